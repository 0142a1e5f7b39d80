package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/novus-dashboard/novus/internal/analytics"
	analytichttp "github.com/novus-dashboard/novus/internal/analytics/http"
	"github.com/novus-dashboard/novus/internal/bookeo"
	"github.com/novus-dashboard/novus/internal/diagnostics"
	"github.com/novus-dashboard/novus/internal/expense"
	"github.com/novus-dashboard/novus/internal/observability"
	"github.com/novus-dashboard/novus/internal/platform/cache"
	"github.com/novus-dashboard/novus/internal/platform/db"
)

// Services holds the wired dashboard dependencies shared by the server, the
// worker and the CLI.
type Services struct {
	Analytics *analytics.Service
	Fetcher   *bookeo.Fetcher
	Runs      *diagnostics.Store
	Redis     *redis.Client
	Pool      *pgxpool.Pool
}

// ServiceOptions tunes BuildServices.
type ServiceOptions struct {
	Metrics *observability.Metrics
	// SkipCache builds every dashboard from scratch.
	SkipCache bool
	// Listen subscribes to cache bumps published by other instances.
	Listen bool
}

// BuildServices connects Redis and Postgres when configured and wires the
// fetcher, the expense loader and the analytics service. Redis and Postgres
// are optional: without them dashboards are uncached and runs are not kept.
func BuildServices(ctx context.Context, cfg *Config, logger *slog.Logger, opts ServiceOptions) (*Services, error) {
	httpClient := &http.Client{Timeout: 30 * time.Second}
	fetcher, err := bookeo.NewFetcher(cfg.Bookeo(), httpClient, logger)
	if err != nil {
		return nil, fmt.Errorf("app: bookeo fetcher: %w", err)
	}
	if opts.Metrics != nil {
		fetcher.WithObserver(opts.Metrics)
	}

	s := &Services{Fetcher: fetcher}

	var dashCache *analytics.Cache
	if !opts.SkipCache && cfg.RedisAddr != "" {
		client, err := cache.New(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Warn("redis unavailable, dashboards will not be cached", slog.Any("error", err))
		} else {
			s.Redis = client
			dashCache = analytics.NewCache(client, cfg.CacheTTL)
			if opts.Listen && !InTestMode() {
				dashCache.ListenForInvalidation(ctx)
			}
		}
	}

	if cfg.PGDSN != "" {
		pool, err := db.New(ctx, cfg.PGDSN)
		if err != nil {
			s.Close(logger)
			return nil, err
		}
		s.Pool = pool
		s.Runs = diagnostics.NewStore(pool, logger)
		if err := s.Runs.EnsureSchema(ctx); err != nil {
			s.Close(logger)
			return nil, fmt.Errorf("app: diagnostics schema: %w", err)
		}
	}

	var expenses analytics.ExpenseSource
	if cfg.ExpenseCSVURL != "" {
		expenses = expense.NewLoader(cfg.ExpenseCSVURL, httpClient, logger)
	}

	s.Analytics = analytics.NewService(fetcher, expenses, dashCache, cfg.Target(), logger)
	if s.Runs != nil {
		s.Analytics.WithRecorder(s.Runs)
	}
	return s, nil
}

// RunLister returns the diagnostics store as a lister, nil when runs are not
// persisted.
func (s *Services) RunLister() analytichttp.RunLister {
	if s == nil || s.Runs == nil {
		return nil
	}
	return s.Runs
}

// Close releases the Redis client and the Postgres pool.
func (s *Services) Close(logger *slog.Logger) {
	if s == nil {
		return
	}
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil && logger != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}
	if s.Pool != nil {
		s.Pool.Close()
	}
}
