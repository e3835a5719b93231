// server exposes stored rates, the latest-rates aggregate and the contact
// form over HTTP.
//
// Usage: server --config configs/ingester.example.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rickgao/bankrates/internal/cache"
	"github.com/rickgao/bankrates/internal/config"
	"github.com/rickgao/bankrates/internal/contact"
	"github.com/rickgao/bankrates/internal/database"
	"github.com/rickgao/bankrates/internal/httpapi"
	"github.com/rickgao/bankrates/internal/latest"
	"github.com/rickgao/bankrates/internal/metrics"
	"github.com/rickgao/bankrates/internal/notify"
	"github.com/rickgao/bankrates/internal/source"
	"github.com/rickgao/bankrates/internal/store"
	"github.com/rickgao/bankrates/internal/version"
	"github.com/rickgao/bankrates/internal/writer"
)

func main() {
	configPath := flag.String("config", "configs/ingester.local.yaml", "path to config file")
	envPath := flag.String("env", ".env", "optional .env file loaded before the config")
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

	logger.Info("starting api server",
		"version", version.Version,
		"commit", version.Commit,
		"instance_id", cfg.Instance.ID,
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

	if cfg.Database.Migrate {
		if err := database.Migrate(cfg.Database, logger); err != nil {
			logger.Error("failed to migrate database", "error", err)
			os.Exit(1)
		}
	}

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	backend, err := cache.Open(ctx, cfg.Redis)
	if err != nil {
		logger.Error("failed to connect to cache", "error", err)
		os.Exit(1)
	}
	defer backend.Close()

	sink, err := notify.New(cfg.Notify, logger)
	if err != nil {
		logger.Error("failed to create notification sink", "error", err)
		os.Exit(1)
	}
	if c, ok := sink.(io.Closer); ok {
		defer c.Close()
	}

	responses := writer.NewResponseLogWriter(writer.WriterConfig{
		BatchSize:     cfg.Writer.BatchSize,
		FlushInterval: cfg.Writer.FlushInterval,
	}, pool, logger)
	if err := responses.Start(ctx); err != nil {
		logger.Error("failed to start response log writer", "error", err)
		os.Exit(1)
	}

	m := metrics.New()
	if err := m.Register(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "bankrates",
			Subsystem: "writer",
			Name:      "pending",
			Help:      "Response log entries waiting to be flushed",
		}, func() float64 { return float64(responses.Pending()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "bankrates",
			Subsystem: "writer",
			Name:      "dropped_total",
			Help:      "Response log entries dropped on a full queue",
		}, func() float64 { return float64(responses.Stats().Dropped) }),
	); err != nil {
		logger.Error("failed to register writer metrics", "error", err)
		os.Exit(1)
	}

	rates := store.NewPostgresRates(pool)

	gin.SetMode(gin.ReleaseMode)
	router := httpapi.NewRouter(httpapi.Deps{
		Rates:     rates,
		Latest:    latest.New(backend, rates, cfg.Redis.TTL, logger),
		Contacts:  contact.NewService(store.NewPostgresContacts(pool), sink, cfg.Notify.Recipients, logger),
		Sources:   source.Descriptors(cfg.Sources),
		Responses: responses,
		Health: httpapi.HealthChecker{
			Deps: map[string]httpapi.Pinger{
				"database": pool,
				"cache":    backend,
			},
		},
		Metrics: m,
		Logger:  logger,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("listening", "port", cfg.HTTP.Port)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server did not stop cleanly", "error", err)
	}
	if err := responses.Stop(shutdownCtx); err != nil {
		logger.Warn("response log writer did not stop cleanly", "error", err)
	}

	stats := responses.Stats()
	logger.Info("api server stopped",
		"responses_logged", stats.Inserts,
		"responses_dropped", stats.Dropped,
	)
}
