package cache

import (
	"context"
	"time"

	"github.com/rickgao/bankrates/internal/config"
)

// Cache stores opaque values under string keys.
type Cache interface {
	// Get returns the value and true on a hit, or nil and false on a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores val under key. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error

	// Invalidate removes key. Removing a missing key is not an error.
	Invalidate(ctx context.Context, key string) error
}

// Versioned is a Cache whose keys carry a generation shared by every client
// of the backend. Writers Bump the generation when they invalidate; readers
// capture it before computing a value and write back with SetIfGeneration,
// which refuses the write once a newer invalidation has happened.
type Versioned interface {
	Cache

	// Generation returns the current generation of key. Zero before the first Bump.
	Generation(ctx context.Context, key string) (uint64, error)

	// Bump removes key and advances its generation in one step.
	Bump(ctx context.Context, key string) (uint64, error)

	// SetIfGeneration stores val only while key is still at gen. It reports
	// whether the value was written.
	SetIfGeneration(ctx context.Context, key string, val []byte, ttl time.Duration, gen uint64) (bool, error)
}

// Backend is a Versioned cache with a reachable-check and a release hook.
type Backend interface {
	Versioned
	Ping(ctx context.Context) error
	Close() error
}

// Open returns a Redis cache when cfg.Addr is set and the in-process cache
// otherwise.
func Open(ctx context.Context, cfg config.RedisConfig) (Backend, error) {
	if cfg.Addr == "" {
		return NewMemory(), nil
	}
	return NewRedis(ctx, cfg)
}
