// Command okkyjobs runs the job-listing crawler and its HTTP API in one
// process.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/nexthing8-cmd/okky-jobs-backend/internal/api"
	"github.com/nexthing8-cmd/okky-jobs-backend/internal/config"
	"github.com/nexthing8-cmd/okky-jobs-backend/internal/crawl"
	"github.com/nexthing8-cmd/okky-jobs-backend/internal/fetch"
	collyfetch "github.com/nexthing8-cmd/okky-jobs-backend/internal/fetch/colly"
	"github.com/nexthing8-cmd/okky-jobs-backend/internal/fetch/headless"
	"github.com/nexthing8-cmd/okky-jobs-backend/internal/logging"
	"github.com/nexthing8-cmd/okky-jobs-backend/internal/metrics"
	"github.com/nexthing8-cmd/okky-jobs-backend/internal/progress"
	"github.com/nexthing8-cmd/okky-jobs-backend/internal/progress/sinks"
	"github.com/nexthing8-cmd/okky-jobs-backend/internal/scheduler"
	"github.com/nexthing8-cmd/okky-jobs-backend/internal/store/postgres"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, postgres.PoolConfig{
		DSN:      cfg.DB.ConnString(),
		MaxConns: cfg.DB.MaxConns,
		MinConns: cfg.DB.MinConns,
	})
	if err != nil {
		return err
	}
	defer pool.Close()

	if cfg.DB.Migrate {
		if err := postgres.Migrate(ctx, pool); err != nil {
			return err
		}
		logger.Info("database schema ready")
	}

	jobStore := postgres.NewJobStore(pool)
	runStore := postgres.NewRunStore(pool)
	logStore := postgres.NewLogStore(pool)

	// a run left 'running' by a crashed process would block the claim forever
	if swept, err := runStore.ReclaimOrphaned(ctx, time.Now()); err != nil {
		return err
	} else if swept > 0 {
		logger.Warn("finalized orphaned crawl runs as failed", zap.Int64("count", swept))
	}

	live := sinks.NewMemorySink(sinks.DefaultTailCapacity)
	promSink, err := sinks.NewPrometheusSink(prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("register progress metrics: %w", err)
	}
	hub := progress.NewHub(progress.Config{Logger: logger},
		sinks.NewLogSink(logger),
		sinks.NewStoreSink(logStore),
		live,
		promSink,
	)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := hub.Close(closeCtx); err != nil {
			logger.Warn("close progress hub", zap.Error(err))
		}
	}()

	factory := fetcherFactory(cfg.Fetcher)
	crawler := crawl.New(crawl.Config{
		BaseURL: cfg.Source.BaseURL,
		Delay:   cfg.Source.Delay(),
	}, factory, jobStore, runStore, hub, logger.Named("crawl"))
	runner := crawl.NewRunner(crawler, live, logger.Named("crawl"))

	if cfg.Scheduler.Enabled {
		sched := scheduler.New(scheduler.Config{
			Spec:         cfg.Scheduler.CronSpec,
			RunAtStartup: cfg.Scheduler.RunAtStartup,
		}, runner, logger.Named("scheduler"))
		if err := sched.Start(ctx); err != nil {
			return err
		}
		defer sched.Stop()
	}

	server := api.New(api.Config{Port: cfg.Server.Port},
		jobStore, runStore, logStore, runner, live, logger.Named("http"))
	return server.Start(ctx)
}

// fetcherFactory defers fetcher construction to run time so each crawl gets
// a fresh browser or collector session.
func fetcherFactory(cfg config.FetcherConfig) fetch.Factory {
	if cfg.Driver == "http" {
		return func() (fetch.Fetcher, error) {
			return collyfetch.New(collyfetch.Config{
				UserAgent: cfg.UserAgent,
				Timeout:   cfg.NavTimeout(),
			}), nil
		}
	}
	return func() (fetch.Fetcher, error) {
		return headless.New(headless.Config{
			UserAgent:         cfg.UserAgent,
			NavigationTimeout: cfg.NavTimeout(),
			ChromeBin:         cfg.ChromeBin,
		})
	}
}
