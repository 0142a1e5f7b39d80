package bookeo

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/novus-dashboard/novus/internal/booking"
)

// Fetcher pulls bookings window by window with paging, throttling and
// bounded retries. A Fetcher is safe for sequential use; the limiter spaces
// requests across calls.
type Fetcher struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
	observer   Observer
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewFetcher validates credentials and applies defaults.
func NewFetcher(cfg Config, httpClient *http.Client, logger *slog.Logger) (*Fetcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.RequestTimeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	limit := rate.Inf
	if cfg.PagePause > 0 {
		limit = rate.Every(cfg.PagePause)
	}
	return &Fetcher{
		cfg:        cfg,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(limit, 1),
		logger:     logger.With(slog.String("component", "bookeo")),
		sleep:      sleepContext,
	}, nil
}

// WithSleep overrides the backoff wait for testing.
func (f *Fetcher) WithSleep(fn func(ctx context.Context, d time.Duration) error) {
	if fn != nil {
		f.sleep = fn
	}
}

// WithObserver attaches a chunk observer.
func (f *Fetcher) WithObserver(o Observer) {
	f.observer = o
}

// Config returns the effective configuration.
func (f *Fetcher) Config() Config {
	return f.cfg
}

// Fetch returns every booking in [start, end] that could be retrieved. Failed
// windows are reported in the result rather than returned as errors, and an
// empty result is valid.
func (f *Fetcher) Fetch(ctx context.Context, start, end time.Time) Result {
	windows := SplitWindows(start, end, f.cfg.ChunkDays)
	res := Result{Chunks: make([]ChunkOutcome, 0, len(windows))}
	for _, w := range windows {
		records, outcome := f.fetchWindow(ctx, w)
		res.Records = append(res.Records, records...)
		res.Chunks = append(res.Chunks, outcome)
		f.logOutcome(outcome)
		if f.observer != nil {
			f.observer.ObserveChunk(outcome)
		}
	}
	return res
}

func (f *Fetcher) fetchWindow(ctx context.Context, w Window) ([]booking.Raw, ChunkOutcome) {
	outcome := ChunkOutcome{Window: w, Status: ChunkFailed}
	var lastErr error
	for attempt := 1; attempt <= f.cfg.MaxAttempts; attempt++ {
		outcome.Attempts = attempt
		records, pages, truncated, err := f.pageThrough(ctx, w)
		if err == nil {
			outcome.Status = ChunkSuccess
			outcome.Records = len(records)
			outcome.Pages = pages
			outcome.Truncated = truncated
			return records, outcome
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		if attempt == f.cfg.MaxAttempts {
			break
		}
		delay := f.cfg.ErrorBackoff
		if errors.Is(err, ErrRateLimited) {
			delay = f.cfg.RateLimitBackoff * time.Duration(attempt)
		}
		f.logger.Warn("bookeo chunk retry",
			slog.Time("start", w.Start),
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			slog.Any("error", err))
		if err := f.sleep(ctx, delay); err != nil {
			lastErr = err
			break
		}
	}
	if lastErr != nil {
		outcome.Reason = lastErr.Error()
	}
	return nil, outcome
}

// pageThrough walks the continuation tokens of one window. Pages from a failed
// walk are discarded so a retry starts the window from scratch.
func (f *Fetcher) pageThrough(ctx context.Context, w Window) ([]booking.Raw, int, bool, error) {
	var records []booking.Raw
	token := ""
	pages := 0
	for {
		if pages >= f.cfg.MaxPagesPerChunk {
			f.logger.Warn("bookeo page ceiling reached",
				slog.Time("start", w.Start),
				slog.Int("pages", pages))
			return records, pages, true, nil
		}
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, pages, false, err
		}
		p, err := f.getPage(ctx, w, token, pages+1)
		if err != nil {
			return nil, pages, false, err
		}
		pages++
		if len(p.Data) == 0 {
			return records, pages, false, nil
		}
		records = append(records, p.Data...)
		token = p.Info.PageNavigationToken
		if token == "" {
			return records, pages, false, nil
		}
	}
}

func (f *Fetcher) logOutcome(o ChunkOutcome) {
	attrs := []any{
		slog.Time("start", o.Window.Start),
		slog.Time("end", o.Window.End),
		slog.Int("attempts", o.Attempts),
	}
	if o.Status == ChunkSuccess {
		attrs = append(attrs, slog.Int("records", o.Records), slog.Int("pages", o.Pages))
		f.logger.Info("bookeo chunk fetched", attrs...)
		return
	}
	attrs = append(attrs, slog.String("reason", o.Reason))
	f.logger.Warn("bookeo chunk failed", attrs...)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
