package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/novus-dashboard/novus/jobs"
)

// QueueCLI lets operators enqueue warmups and inspect the worker queue.
type QueueCLI struct {
	client    *jobs.Client
	inspector *asynq.Inspector
}

// NewQueueCLI connects to the queue on redisAddr.
func NewQueueCLI(redisAddr string) (*QueueCLI, error) {
	if redisAddr == "" {
		return nil, errors.New("queue cli: REDIS_ADDR is empty")
	}
	opts := asynq.RedisClientOpt{Addr: redisAddr}
	client, err := jobs.NewClient(opts)
	if err != nil {
		return nil, err
	}
	return &QueueCLI{client: client, inspector: asynq.NewInspector(opts)}, nil
}

// Close releases the client and the inspector.
func (c *QueueCLI) Close() error {
	if c == nil {
		return nil
	}
	return errors.Join(c.inspector.Close(), c.client.Close())
}

// Warmup enqueues a dashboard warmup for the given window.
func (c *QueueCLI) Warmup(ctx context.Context, windowDays int, refresh bool) (*asynq.TaskInfo, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("queue cli: client not configured")
	}
	return c.client.EnqueueWarmup(ctx, windowDays, refresh)
}

// QueueStats summarises the default queue plus today's processed counts.
type QueueStats struct {
	Queue          string `json:"queue"`
	Pending        int    `json:"pending"`
	Active         int    `json:"active"`
	Scheduled      int    `json:"scheduled"`
	Retry          int    `json:"retry"`
	Archived       int    `json:"archived"`
	ProcessedToday int    `json:"processedToday"`
	FailedToday    int    `json:"failedToday"`
}

// Stats reads the default queue state.
func (c *QueueCLI) Stats(ctx context.Context) (QueueStats, error) {
	if c == nil || c.inspector == nil {
		return QueueStats{}, errors.New("queue cli: inspector not configured")
	}
	info, err := c.inspector.GetQueueInfo(jobs.QueueDefault)
	if err != nil {
		return QueueStats{}, fmt.Errorf("queue cli: %w", err)
	}
	return statsFromInfo(info), nil
}

func statsFromInfo(info *asynq.QueueInfo) QueueStats {
	stats := QueueStats{Queue: jobs.QueueDefault}
	if info == nil {
		return stats
	}
	stats.Queue = info.Queue
	stats.Pending = info.Pending
	stats.Active = info.Active
	stats.Scheduled = info.Scheduled
	stats.Retry = info.Retry
	stats.Archived = info.Archived
	stats.ProcessedToday = info.Processed
	stats.FailedToday = info.Failed
	return stats
}

// ScheduledTask is one upcoming task.
type ScheduledTask struct {
	ID   string    `json:"id"`
	Type string    `json:"type"`
	Next time.Time `json:"next"`
}

// Scheduled lists up to size upcoming tasks of the default queue.
func (c *QueueCLI) Scheduled(ctx context.Context, size int) ([]ScheduledTask, error) {
	if c == nil || c.inspector == nil {
		return nil, errors.New("queue cli: inspector not configured")
	}
	if size <= 0 {
		size = 10
	}
	infos, err := c.inspector.ListScheduledTasks(jobs.QueueDefault, asynq.PageSize(size), asynq.Page(1))
	if err != nil {
		return nil, fmt.Errorf("queue cli: %w", err)
	}
	out := make([]ScheduledTask, 0, len(infos))
	for _, t := range infos {
		out = append(out, ScheduledTask{ID: t.ID, Type: t.Type, Next: t.NextProcessAt})
	}
	return out, nil
}
