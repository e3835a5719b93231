// Package latest maintains the cached "latest rates" aggregate: the newest
// quote for every (source, currency) pair.
//
// Reads go through the cache. Concurrent misses share one store load. Refresh
// bumps the key's generation in the cache and reloads it. Every load captures
// the generation before reading the store and writes back only while it is
// unchanged, so a load that started before the most recent invalidation never
// writes its result back, whichever process ran it.
package latest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/rickgao/bankrates/internal/cache"
	"github.com/rickgao/bankrates/internal/model"
)

// Key is the cache key holding the encoded aggregate.
const Key = "latest_rates"

// Loader reads the newest quote per pair from the store.
type Loader interface {
	LatestAll(ctx context.Context) ([]model.Quote, error)
}

// Aggregate serves the latest-rates view.
type Aggregate struct {
	cache  cache.Versioned
	loader Loader
	ttl    time.Duration
	logger *slog.Logger

	group singleflight.Group
}

// New creates an Aggregate.
func New(c cache.Versioned, loader Loader, ttl time.Duration, logger *slog.Logger) *Aggregate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregate{
		cache:  c,
		loader: loader,
		ttl:    ttl,
		logger: logger,
	}
}

// Get returns the aggregate, loading it from the store on a cache miss.
// A cache failure degrades to a direct store read.
func (a *Aggregate) Get(ctx context.Context) ([]model.Quote, error) {
	data, ok, err := a.cache.Get(ctx, Key)
	if err != nil {
		a.logger.Warn("latest rates cache read failed", "error", err)
	}
	if ok {
		var quotes []model.Quote
		if err := json.Unmarshal(data, &quotes); err == nil {
			return quotes, nil
		}
		a.logger.Warn("latest rates cache entry corrupt, reloading")
	}

	v, err, _ := a.group.Do(Key, func() (any, error) {
		return a.load(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.([]model.Quote), nil
}

// Refresh invalidates the cached aggregate and reloads it from the store.
func (a *Aggregate) Refresh(ctx context.Context) error {
	if _, err := a.cache.Bump(ctx, Key); err != nil {
		return fmt.Errorf("invalidate %s: %w", Key, err)
	}

	// A flight that started before the invalidation must not be joined.
	a.group.Forget(Key)

	_, err := a.load(ctx)
	return err
}

func (a *Aggregate) load(ctx context.Context) ([]model.Quote, error) {
	gen, genErr := a.cache.Generation(ctx, Key)
	if genErr != nil {
		a.logger.Warn("latest rates generation read failed, skipping write-back", "error", genErr)
	}

	quotes, err := a.loader.LatestAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load latest rates: %w", err)
	}
	if genErr != nil {
		return quotes, nil
	}

	data, err := json.Marshal(quotes)
	if err != nil {
		return nil, fmt.Errorf("encode latest rates: %w", err)
	}

	ok, err := a.cache.SetIfGeneration(ctx, Key, data, a.ttl, gen)
	if err != nil {
		a.logger.Warn("latest rates cache write failed", "error", err)
		return quotes, nil
	}
	if !ok {
		a.logger.Debug("discarding stale latest rates load", "gen", gen)
	}
	return quotes, nil
}
