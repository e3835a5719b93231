// ingester polls every enabled rate source on an interval and persists quotes
// that changed since the last stored observation.
//
// Usage: ingester --config configs/ingester.example.yaml [--once]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rickgao/bankrates/internal/cache"
	"github.com/rickgao/bankrates/internal/config"
	"github.com/rickgao/bankrates/internal/database"
	"github.com/rickgao/bankrates/internal/fetch"
	"github.com/rickgao/bankrates/internal/httpapi"
	"github.com/rickgao/bankrates/internal/ingest"
	"github.com/rickgao/bankrates/internal/latest"
	"github.com/rickgao/bankrates/internal/metrics"
	"github.com/rickgao/bankrates/internal/normalize"
	"github.com/rickgao/bankrates/internal/poller"
	"github.com/rickgao/bankrates/internal/source"
	"github.com/rickgao/bankrates/internal/store"
	"github.com/rickgao/bankrates/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/ingester.local.yaml", "path to config file")
	envPath := flag.String("env", ".env", "optional .env file loaded before the config")
	once := flag.Bool("once", false, "run a single cycle and exit")
	flag.Parse()

	if err := config.LoadDotEnv(*envPath); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load env file: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := cfg.Logging.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	logger.Info("starting ingester",
		"version", version.Version,
		"commit", version.Commit,
		"instance_id", cfg.Instance.ID,
		"config", *configPath,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Database
	if cfg.Database.Migrate {
		if err := database.Migrate(cfg.Database, logger); err != nil {
			logger.Error("failed to migrate database", "error", err)
			os.Exit(1)
		}
	}

	logger.Info("connecting to database",
		"host", cfg.Database.Host,
		"port", cfg.Database.Port,
		"database", cfg.Database.Name,
	)
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Latest-rates cache
	backend, err := cache.Open(ctx, cfg.Redis)
	if err != nil {
		logger.Error("failed to connect to cache", "error", err)
		os.Exit(1)
	}
	defer backend.Close()

	rates := store.NewPostgresRates(pool)
	aggregate := latest.New(backend, rates, cfg.Redis.TTL, logger)

	// Sources
	descs := source.Descriptors(cfg.Sources)
	client := fetch.NewClient(
		fetch.WithLogger(logger),
		fetch.WithTimeout(cfg.Ingest.Timeout),
		fetch.WithUserAgent(cfg.Ingest.UserAgent),
	)
	adapters, err := source.NewAll(descs, client)
	if err != nil {
		logger.Error("failed to build source adapters", "error", err)
		os.Exit(1)
	}

	orch := ingest.New(
		ingest.Config{Timeout: cfg.Ingest.Timeout, Concurrency: cfg.Ingest.Concurrency},
		adapters,
		normalize.New(descs),
		rates,
		aggregate,
		logger,
	)

	logger.Info("sources configured", "sources", orch.Sources())

	m := metrics.New()
	runner := poller.CycleRunnerFunc(func(ctx context.Context) ingest.CycleReport {
		report := orch.RunCycle(ctx)
		m.ObserveCycle(report)
		return report
	})

	if *once {
		report := runner.RunCycle(ctx)
		if len(report.Failed()) == len(report.Outcomes) && len(report.Outcomes) > 0 {
			os.Exit(1)
		}
		return
	}

	p := poller.New(poller.Config{Interval: cfg.Ingest.Interval}, runner, logger)

	health := httpapi.HealthChecker{
		Deps: map[string]httpapi.Pinger{
			"database": pool,
			"cache":    backend,
		},
		Reports: p,
	}
	mux := http.NewServeMux()
	mux.Handle("/health", health.Handler())
	mux.Handle("/metrics", m.Handler())

	healthServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTP.HealthPort),
		Handler: mux,
	}
	go func() {
		logger.Info("starting health server", "port", cfg.HTTP.HealthPort)
		if err := healthServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("health server error", "error", err)
		}
	}()

	if err := p.Start(ctx); err != nil {
		logger.Error("failed to start poller", "error", err)
		os.Exit(1)
	}

	logger.Info("ingester running",
		"interval", cfg.Ingest.Interval,
		"timeout", cfg.Ingest.Timeout,
		"health_url", fmt.Sprintf("http://localhost:%d/health", cfg.HTTP.HealthPort),
	)

	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Ingest.Timeout+5*time.Second)
	defer shutdownCancel()

	if err := p.Stop(shutdownCtx); err != nil {
		logger.Warn("poller did not stop cleanly", "error", err)
	}
	healthServer.Shutdown(shutdownCtx)

	logger.Info("ingester stopped", "cycles", p.Cycles())
}
