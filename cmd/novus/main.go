package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/novus-dashboard/novus/cmd/novus/cli"
	analytichttp "github.com/novus-dashboard/novus/internal/analytics/http"
	"github.com/novus-dashboard/novus/internal/app"
	"github.com/novus-dashboard/novus/internal/observability"
	"github.com/novus-dashboard/novus/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	cmd := "serve"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}
	switch cmd {
	case "serve":
		err = serve(ctx, stop, cfg, logger)
	case "fetch":
		err = fetch(ctx, cfg, logger, os.Args[2:])
	case "jobs":
		err = jobsCommand(ctx, cfg, os.Args[2:])
	default:
		err = fmt.Errorf("unknown command %q (serve, fetch, jobs)", cmd)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error(cmd, slog.Any("error", err))
		os.Exit(1)
	}
}

func serve(ctx context.Context, stop context.CancelFunc, cfg *app.Config, logger *slog.Logger) error {
	metrics := observability.NewMetrics()
	services, err := app.BuildServices(ctx, cfg, logger, app.ServiceOptions{Metrics: metrics, Listen: true})
	if err != nil {
		return err
	}
	defer services.Close(logger)

	analyticsHandler := analytichttp.NewHandler(logger, services.Analytics, services.RunLister(), cfg.DashboardWindowDays)
	analyticsHandler.WithTimeout(cfg.AppRequestTimeout)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		return err
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, jobClient, cfg.DashboardWindowDays, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		AnalyticsHandler: analyticsHandler,
		JobHandler:       jobHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.Bool("auth", cfg.AuthEnabled()))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
	return nil
}

func fetch(ctx context.Context, cfg *app.Config, logger *slog.Logger, args []string) error {
	opts, err := cli.ParseFetchArgs(args, cfg.DashboardWindowDays)
	if err != nil {
		return err
	}
	services, err := app.BuildServices(ctx, cfg, logger, app.ServiceOptions{SkipCache: true})
	if err != nil {
		return err
	}
	defer services.Close(logger)
	return cli.RunFetch(ctx, services.Analytics, opts, time.Now(), os.Stdout)
}

func jobsCommand(ctx context.Context, cfg *app.Config, args []string) error {
	q, err := cli.NewQueueCLI(cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer q.Close()

	sub := "stats"
	if len(args) > 0 {
		sub = args[0]
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	switch sub {
	case "stats":
		stats, err := q.Stats(ctx)
		if err != nil {
			return err
		}
		return enc.Encode(stats)
	case "warmup", "refresh":
		info, err := q.Warmup(ctx, cfg.DashboardWindowDays, sub == "refresh")
		if err != nil {
			return err
		}
		return enc.Encode(map[string]string{"id": info.ID, "queue": info.Queue})
	case "scheduled":
		tasks, err := q.Scheduled(ctx, 10)
		if err != nil {
			return err
		}
		return enc.Encode(tasks)
	}
	return fmt.Errorf("jobs: unknown subcommand %q (stats, warmup, refresh, scheduled)", sub)
}
