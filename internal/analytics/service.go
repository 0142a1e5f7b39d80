// Package analytics aggregates bookings and expenses into dashboard views.
package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/novus-dashboard/novus/internal/bookeo"
	"github.com/novus-dashboard/novus/internal/booking"
	"github.com/novus-dashboard/novus/internal/diagnostics"
	"github.com/novus-dashboard/novus/internal/expense"
	"github.com/novus-dashboard/novus/internal/shared"
)

// BookingSource fetches raw bookings for an inclusive date range.
type BookingSource interface {
	Fetch(ctx context.Context, start, end time.Time) bookeo.Result
}

// ExpenseSource loads every expense row.
type ExpenseSource interface {
	Load(ctx context.Context) ([]expense.Record, error)
}

// RunRecorder persists fetch diagnostics.
type RunRecorder interface {
	RecordRun(ctx context.Context, run diagnostics.Run) (uuid.UUID, error)
}

// Service coordinates the booking pipeline with the cache layer.
type Service struct {
	bookings BookingSource
	expenses ExpenseSource
	cache    *Cache
	recorder RunRecorder
	target   decimal.Decimal
	logger   *slog.Logger
	now      func() time.Time
	timeout  time.Duration
	group    singleflight.Group
}

// defaultBuildTimeout bounds a shared build, which outlives its callers.
const defaultBuildTimeout = 5 * time.Minute

// NewService wires the sources with a Cache helper. cache may be nil.
func NewService(bookings BookingSource, expenses ExpenseSource, cache *Cache, target decimal.Decimal, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		bookings: bookings,
		expenses: expenses,
		cache:    cache,
		target:   target,
		logger:   logger.With(slog.String("component", "analytics")),
		now:      func() time.Time { return time.Now().UTC() },
		timeout:  defaultBuildTimeout,
	}
}

// WithRecorder attaches a diagnostics recorder.
func (s *Service) WithRecorder(r RunRecorder) *Service {
	s.recorder = r
	return s
}

// WithClock overrides the clock used for GeneratedAt and run timing.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// Dashboard returns every view for r, served from cache when possible.
// Concurrent requests for the same range share one build. The shared build
// is detached from the caller that started it, so a caller that gives up
// does not fail the others.
func (s *Service) Dashboard(ctx context.Context, r shared.DateRange) (Dashboard, error) {
	key, err := s.cache.BuildKey(ctx, keyDashboard(r))
	if err != nil {
		s.logger.Warn("dashboard cache unavailable", slog.Any("error", err))
		return s.build(ctx, r)
	}
	ch := s.group.DoChan(key, func() (any, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		var d Dashboard
		err := s.cache.FetchJSON(flightCtx, key, &d, func(ctx context.Context) (any, error) {
			return s.build(ctx, r)
		})
		if err != nil && flightCtx.Err() == nil {
			s.logger.Warn("dashboard cache bypassed", slog.String("key", key), slog.Any("error", err))
			return s.build(flightCtx, r)
		}
		return d, err
	})
	select {
	case <-ctx.Done():
		return Dashboard{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Dashboard{}, res.Err
		}
		return res.Val.(Dashboard), nil
	}
}

// Refresh invalidates every cached dashboard.
func (s *Service) Refresh(ctx context.Context) error {
	ver, err := s.cache.Bump(ctx)
	if err != nil {
		return fmt.Errorf("analytics: bump cache: %w", err)
	}
	s.logger.Info("dashboard cache bumped", slog.Int64("version", ver))
	return nil
}

func (s *Service) build(ctx context.Context, r shared.DateRange) (Dashboard, error) {
	started := s.now()

	var (
		fetched    bookeo.Result
		records    []expense.Record
		expenseErr error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fetched = s.bookings.Fetch(gctx, r.From, r.To)
		return nil
	})
	if s.expenses != nil {
		g.Go(func() error {
			records, expenseErr = s.expenses.Load(gctx)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return Dashboard{}, err
	}

	deduped := booking.Deduplicate(booking.NormalizeAll(fetched.Records))
	if deduped.MissingID > 0 {
		s.logger.Warn("bookings without id kept", slog.Int("count", deduped.MissingID))
	}

	d := Build(Input{
		Range:    r,
		Bookings: deduped.Bookings,
		Expenses: records,
		Target:   s.target,
		Now:      started,
	})
	d.Quality.Fetched = len(fetched.Records)
	d.Quality.PriceSources = priceSources(fetched.Records)
	d.Quality.Duplicates = deduped.Duplicates
	d.Quality.MissingID = deduped.MissingID
	d.Quality.FailedChunks = fetched.FailedChunks()
	d.Quality.Complete = fetched.Complete()
	d.Quality.Chunks = fetched.Chunks

	if !d.Quality.Complete {
		d.Warnings = append(d.Warnings, fmt.Sprintf("%d of %d booking windows incomplete; figures may be understated",
			incompleteChunks(fetched.Chunks), len(fetched.Chunks)))
	}
	if expenseErr != nil {
		s.logger.Warn("expense source failed", slog.Any("error", expenseErr))
		d.Warnings = append(d.Warnings, "expenses unavailable: "+expenseErr.Error())
	}

	d.Quality.RunID = s.record(ctx, r, d, started, expenseErr)
	s.logger.Info("dashboard built",
		slog.String("range", r.Key()),
		slog.Int("days", r.Days()),
		slog.Int("fetched", d.Quality.Fetched),
		slog.Int("bookings", len(d.Bookings)),
		slog.Int("duplicates", d.Quality.Duplicates),
		slog.Bool("complete", d.Quality.Complete))
	return d, nil
}

func (s *Service) record(ctx context.Context, r shared.DateRange, d Dashboard, started time.Time, expenseErr error) string {
	if s.recorder == nil {
		return ""
	}
	anomalies := 0
	for _, n := range d.Quality.Anomalies {
		anomalies += n
	}
	run := diagnostics.Run{
		StartedAt:    started,
		Duration:     s.now().Sub(started),
		From:         r.From,
		To:           r.To,
		Fetched:      d.Quality.Fetched,
		Bookings:     len(d.Bookings),
		Duplicates:   d.Quality.Duplicates,
		MissingID:    d.Quality.MissingID,
		Anomalies:    anomalies,
		FailedChunks: d.Quality.FailedChunks,
		Complete:     d.Quality.Complete,
		Chunks:       d.Quality.Chunks,
	}
	if expenseErr != nil {
		run.ExpenseError = expenseErr.Error()
	}
	id, err := s.recorder.RecordRun(ctx, run)
	if err != nil {
		s.logger.Warn("fetch run not recorded", slog.Any("error", err))
		return ""
	}
	return id.String()
}

func incompleteChunks(chunks []bookeo.ChunkOutcome) int {
	n := 0
	for _, c := range chunks {
		if c.Status != bookeo.ChunkSuccess || c.Truncated {
			n++
		}
	}
	return n
}

func priceSources(raws []booking.Raw) map[string]int {
	if len(raws) == 0 {
		return nil
	}
	out := make(map[string]int)
	for _, raw := range raws {
		out[booking.PriceSource(raw)]++
	}
	return out
}
