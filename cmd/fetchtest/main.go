// fetchtest fetches every enabled source once and prints the normalized
// quotes. Nothing is written.
//
// Usage: go run ./cmd/fetchtest --config configs/ingester.example.yaml [--source minfin] [--raw]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rickgao/bankrates/internal/config"
	"github.com/rickgao/bankrates/internal/fetch"
	"github.com/rickgao/bankrates/internal/model"
	"github.com/rickgao/bankrates/internal/normalize"
	"github.com/rickgao/bankrates/internal/source"
	"github.com/rickgao/bankrates/internal/version"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional; built-in sources when empty)")
	only := flag.String("source", "", "fetch only this source")
	raw := flag.Bool("raw", false, "print raw records before normalization")
	retries := flag.Int("retries", 2, "transport retries per request")
	timeout := flag.Duration("timeout", 30*time.Second, "overall deadline")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	var overrides map[string]config.SourceConfig
	if *configPath != "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			logger.Error("failed to load config", "error", err)
			os.Exit(1)
		}
		overrides = cfg.Sources
	}

	descs := source.Descriptors(overrides)
	if *only != "" {
		src, err := model.ParseSource(*only)
		if err != nil {
			logger.Error("invalid --source", "error", err)
			os.Exit(1)
		}
		filtered := descs[:0]
		for _, d := range descs {
			if d.ID() == src {
				filtered = append(filtered, d)
			}
		}
		descs = filtered
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	client := fetch.NewClient(
		fetch.WithLogger(logger),
		fetch.WithRetries(*retries, time.Second),
		fetch.WithUserAgent(version.UserAgent()),
	)
	adapters, err := source.NewAll(descs, client)
	if err != nil {
		logger.Error("failed to build adapters", "error", err)
		os.Exit(1)
	}
	norm := normalize.New(descs)

	enc := json.NewEncoder(os.Stdout)
	failed := 0
	for _, a := range adapters {
		start := time.Now()
		records, err := a.Fetch(ctx)
		if err != nil {
			failed++
			logger.Error("fetch failed", "source", a.Source(), "error", err)
			continue
		}

		var kept, skipped int
		for _, r := range records {
			if *raw {
				fmt.Printf("[%s] raw token=%q bid=%q ask=%q\n", a.Source(), r.Token, r.Bid, r.Ask)
			}
			q, ok, err := norm.Normalize(a.Source(), r)
			if err != nil {
				skipped++
				logger.Warn("record rejected", "source", a.Source(), "token", r.Token, "error", err)
				continue
			}
			if !ok {
				skipped++
				continue
			}
			kept++
			enc.Encode(map[string]string{
				"source":   string(q.Source),
				"currency": string(q.Currency),
				"bid":      normalize.Format(q.Bid),
				"ask":      normalize.Format(q.Ask),
			})
		}

		logger.Info("source fetched",
			"source", a.Source(),
			"records", len(records),
			"quotes", kept,
			"skipped", skipped,
			"duration", time.Since(start),
		)
	}

	if failed > 0 {
		os.Exit(1)
	}
}
