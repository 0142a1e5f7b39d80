package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/novus-dashboard/novus/internal/analytics"
	jobmetrics "github.com/novus-dashboard/novus/internal/jobs"
	"github.com/novus-dashboard/novus/internal/shared"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

const warmupTimeout = 5 * time.Minute

// DashboardBuilder is the part of the analytics service the warmup needs.
type DashboardBuilder interface {
	Dashboard(ctx context.Context, r shared.DateRange) (analytics.Dashboard, error)
	Refresh(ctx context.Context) error
}

// DashboardWarmupJob pre-populates the dashboard cache for the rolling window.
type DashboardWarmupJob struct {
	Dashboards DashboardBuilder
	Logger     *slog.Logger
	Metrics    *jobmetrics.Metrics
	clock      func() time.Time
}

// NewDashboardWarmupJob wires dependencies for the warmup handler.
func NewDashboardWarmupJob(dashboards DashboardBuilder, logger *slog.Logger, metrics *jobmetrics.Metrics) *DashboardWarmupJob {
	return &DashboardWarmupJob{
		Dashboards: dashboards,
		Logger:     logger,
		Metrics:    metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// WithClock overrides the job clock for testing.
func (j *DashboardWarmupJob) WithClock(fn func() time.Time) {
	if fn != nil {
		j.clock = fn
	}
}

// Handle processes dashboard warmup tasks.
func (j *DashboardWarmupJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Dashboards == nil {
		return errors.New("dashboard warmup: handler not configured")
	}
	var payload DashboardWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("dashboard warmup: decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.WindowDays <= 0 {
		return fmt.Errorf("dashboard warmup: window days %d: %w", payload.WindowDays, asynq.SkipRetry)
	}

	tracker := j.metrics().Track(TaskDashboardWarmup)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	now := j.now()
	rng := shared.LastDays(now, payload.WindowDays)
	logger := j.logger().With(slog.String("range", rng.Key()), slog.Bool("refresh", payload.Refresh))
	logger.Info("starting dashboard warmup")

	ctx, cancel := context.WithTimeout(ctx, warmupTimeout)
	defer cancel()

	if payload.Refresh {
		if err := j.Dashboards.Refresh(ctx); err != nil {
			logger.Error("bump dashboard cache", slog.Any("error", err))
			return err
		}
	}
	d, err := j.Dashboards.Dashboard(ctx, rng)
	if err != nil {
		logger.Error("build dashboard", slog.Any("error", err))
		return err
	}

	j.metrics().AddBookingAnomalies(d.Quality.Anomalies)
	j.metrics().AddWarnings(TaskDashboardWarmup, len(d.Warnings))
	for _, w := range d.Warnings {
		logger.Warn("dashboard warning", slog.String("warning", w))
	}
	logger.Info("completed dashboard warmup",
		slog.Int("bookings", d.Summary.Bookings),
		slog.Int("failed_chunks", d.Quality.FailedChunks),
		slog.Duration("duration", time.Since(now)))
	return nil
}

func (j *DashboardWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskDashboardWarmup))
	}
	return slog.Default().With(slog.String("job", TaskDashboardWarmup))
}

func (j *DashboardWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *DashboardWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
