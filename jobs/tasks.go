package jobs

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskDashboardWarmup rebuilds and caches the default dashboard window.
	TaskDashboardWarmup = "dashboard:warmup"
)

// DashboardWarmupPayload describes which window the warmup job should build.
type DashboardWarmupPayload struct {
	WindowDays int  `json:"window_days"`
	Refresh    bool `json:"refresh"`
}

// NewDashboardWarmupTask constructs an Asynq task. A refresh warmup bumps the
// cache version before building so stale entries are not served.
func NewDashboardWarmupTask(windowDays int, refresh bool) (*asynq.Task, error) {
	if windowDays <= 0 {
		return nil, fmt.Errorf("jobs: window days must be positive, got %d", windowDays)
	}
	data, err := json.Marshal(DashboardWarmupPayload{WindowDays: windowDays, Refresh: refresh})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDashboardWarmup, data), nil
}
