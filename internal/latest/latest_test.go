package latest

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/bankrates/internal/cache"
	"github.com/rickgao/bankrates/internal/model"
)

// loaderFunc adapts a function to Loader and counts calls.
type loaderFunc struct {
	calls atomic.Int32
	fn    func(call int32) ([]model.Quote, error)
}

func (l *loaderFunc) LatestAll(context.Context) ([]model.Quote, error) {
	return l.fn(l.calls.Add(1))
}

func usd(bid string) []model.Quote {
	return []model.Quote{{
		Source:     model.SourcePrivatBank,
		Currency:   model.CurrencyUSD,
		Bid:        decimal.RequireFromString(bid),
		Ask:        decimal.RequireFromString("99.00"),
		ObservedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}}
}

func cachedBid(t *testing.T, c cache.Cache) string {
	t.Helper()
	data, ok, err := c.Get(context.Background(), Key)
	require.NoError(t, err)
	require.True(t, ok, "expected %s to be cached", Key)

	var quotes []model.Quote
	require.NoError(t, json.Unmarshal(data, &quotes))
	require.Len(t, quotes, 1)
	return quotes[0].Bid.StringFixed(2)
}

func TestGet_MissLoadsAndCaches(t *testing.T) {
	c := cache.NewMemory()
	l := &loaderFunc{fn: func(int32) ([]model.Quote, error) { return usd("27.50"), nil }}
	a := New(c, l, time.Minute, nil)

	got, err := a.Get(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "27.50", got[0].Bid.StringFixed(2))
	assert.Equal(t, "27.50", cachedBid(t, c))

	_, err = a.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), l.calls.Load(), "second Get should be served from cache")
}

func TestGet_ConcurrentMissesCollapse(t *testing.T) {
	release := make(chan struct{})
	l := &loaderFunc{fn: func(int32) ([]model.Quote, error) {
		<-release
		return usd("27.50"), nil
	}}
	a := New(cache.NewMemory(), l, time.Minute, nil)

	const readers = 20
	var wg sync.WaitGroup
	errs := make(chan error, readers)
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := a.Get(context.Background())
			errs <- err
		}()
	}

	// Let every reader reach the flight before releasing the load.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), l.calls.Load())
}

func TestRefresh_ReplacesCachedValue(t *testing.T) {
	c := cache.NewMemory()
	bids := []string{"27.50", "27.60"}
	l := &loaderFunc{fn: func(call int32) ([]model.Quote, error) { return usd(bids[call-1]), nil }}
	a := New(c, l, time.Minute, nil)

	_, err := a.Get(context.Background())
	require.NoError(t, err)

	require.NoError(t, a.Refresh(context.Background()))
	assert.Equal(t, "27.60", cachedBid(t, c))
}

func TestRefresh_StaleLoadIsNotWrittenBack(t *testing.T) {
	c := cache.NewMemory()
	started := make(chan struct{})
	release := make(chan struct{})
	l := &loaderFunc{fn: func(call int32) ([]model.Quote, error) {
		if call == 1 {
			close(started)
			<-release
			return usd("10.00"), nil // computed before the refresh
		}
		return usd("20.00"), nil
	}}
	a := New(c, l, time.Minute, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = a.Get(context.Background())
	}()
	<-started

	require.NoError(t, a.Refresh(context.Background()))
	close(release)
	<-done

	assert.Equal(t, "20.00", cachedBid(t, c), "last invalidation must win")
}

// Two processes share one Redis: the API serves reads while the ingester
// refreshes after a cycle. A read that loaded before the refresh must not
// overwrite the refreshed value.
func TestRefresh_StaleLoadFromOtherProcessIsNotWrittenBack(t *testing.T) {
	mr := miniredis.RunT(t)
	apiClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	ingesterClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		apiClient.Close()
		ingesterClient.Close()
	})
	apiCache := cache.NewRedisFromClient(apiClient, "bankrates:")
	ingesterCache := cache.NewRedisFromClient(ingesterClient, "bankrates:")

	started := make(chan struct{})
	release := make(chan struct{})
	readerLoader := &loaderFunc{fn: func(call int32) ([]model.Quote, error) {
		if call == 1 {
			close(started)
			<-release
			return usd("27.50"), nil // read from the store before the new cycle committed
		}
		return usd("27.60"), nil
	}}
	writerLoader := &loaderFunc{fn: func(int32) ([]model.Quote, error) { return usd("27.60"), nil }}

	reader := New(apiCache, readerLoader, time.Minute, nil)
	writer := New(ingesterCache, writerLoader, time.Minute, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = reader.Get(context.Background())
	}()
	<-started

	require.NoError(t, writer.Refresh(context.Background()))
	close(release)
	<-done

	assert.Equal(t, "27.60", cachedBid(t, apiCache), "last invalidation must win across processes")

	got, err := reader.Get(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "27.60", got[0].Bid.StringFixed(2))
	assert.Equal(t, int32(1), readerLoader.calls.Load(), "follow-up read should be served from cache")
}

func TestGet_LoaderError(t *testing.T) {
	boom := errors.New("db down")
	l := &loaderFunc{fn: func(int32) ([]model.Quote, error) { return nil, boom }}
	c := cache.NewMemory()
	a := New(c, l, time.Minute, nil)

	_, err := a.Get(context.Background())
	assert.ErrorIs(t, err, boom)

	_, ok, _ := c.Get(context.Background(), Key)
	assert.False(t, ok, "failed load must not populate the cache")
}

// brokenCache fails every operation.
type brokenCache struct{}

func (brokenCache) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("cache down")
}
func (brokenCache) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("cache down")
}
func (brokenCache) Invalidate(context.Context, string) error { return errors.New("cache down") }
func (brokenCache) Generation(context.Context, string) (uint64, error) {
	return 0, errors.New("cache down")
}
func (brokenCache) Bump(context.Context, string) (uint64, error) {
	return 0, errors.New("cache down")
}
func (brokenCache) SetIfGeneration(context.Context, string, []byte, time.Duration, uint64) (bool, error) {
	return false, errors.New("cache down")
}

func TestGet_CacheFailureFallsBackToStore(t *testing.T) {
	l := &loaderFunc{fn: func(int32) ([]model.Quote, error) { return usd("27.50"), nil }}
	a := New(brokenCache{}, l, time.Minute, nil)

	got, err := a.Get(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestGet_CacheFailureDoesNotCache(t *testing.T) {
	l := &loaderFunc{fn: func(int32) ([]model.Quote, error) { return usd("27.50"), nil }}
	a := New(brokenCache{}, l, time.Minute, nil)

	for i := 0; i < 2; i++ {
		_, err := a.Get(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, int32(2), l.calls.Load(), "every read should reach the store while the cache is down")
}

func TestRefresh_InvalidateFailure(t *testing.T) {
	l := &loaderFunc{fn: func(int32) ([]model.Quote, error) { return usd("27.50"), nil }}
	a := New(brokenCache{}, l, time.Minute, nil)

	err := a.Refresh(context.Background())
	assert.ErrorContains(t, err, "invalidate latest_rates")
	assert.Equal(t, int32(0), l.calls.Load())
}
