package pricecache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dem-exchange/insightsx/pkg/errs"
	"github.com/dem-exchange/insightsx/pkg/rpc"
	"github.com/facebookgo/clock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// countingFetcher returns successive integers and counts calls.
type countingFetcher struct {
	calls atomic.Int32
	fail  atomic.Bool
}

func (f *countingFetcher) fetch(ctx context.Context) (int, error) {
	n := f.calls.Add(1)
	if f.fail.Load() {
		return 0, errors.New("feed down")
	}
	return int(n), nil
}

type recordingMirror struct {
	mu    sync.Mutex
	feeds []string
}

func (m *recordingMirror) Store(ctx context.Context, feed string, snapshot any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.feeds = append(m.feeds, feed)
}

func syncSpawn(f func()) { f() }

func TestCache_FirstGetHydratesSynchronously(t *testing.T) {
	f := &countingFetcher{}
	c := New("test", time.Minute, f.fetch, zaptest.NewLogger(t), WithClock(clock.NewMock()))

	hydrated, _ := c.Status()
	assert.False(t, hydrated)

	v, err := c.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	assert.Equal(t, int32(1), f.calls.Load())

	hydrated, _ = c.Status()
	assert.True(t, hydrated)
}

func TestCache_FirstHydrateFailurePropagates(t *testing.T) {
	f := &countingFetcher{}
	f.fail.Store(true)
	c := New("tokens", time.Minute, f.fetch, zaptest.NewLogger(t), WithClock(clock.NewMock()))

	_, err := c.Get(context.Background())
	require.Error(t, err)
	assert.True(t, errs.IsUpstream(err))

	// the next caller tries again instead of serving an empty value
	f.fail.Store(false)
	v, err := c.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestCache_WithinTTLFetchesOnce(t *testing.T) {
	f := &countingFetcher{}
	mock := clock.NewMock()
	c := New("test", time.Minute, f.fetch, zaptest.NewLogger(t), WithClock(mock), withSpawn(syncSpawn))

	a, err := c.Get(context.Background())
	require.NoError(t, err)
	mock.Add(30 * time.Second)
	b, err := c.Get(context.Background())
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, int32(1), f.calls.Load())
}

func TestCache_StaleWhileRevalidate(t *testing.T) {
	f := &countingFetcher{}
	mock := clock.NewMock()
	c := New("test", time.Minute, f.fetch, zaptest.NewLogger(t), WithClock(mock), withSpawn(syncSpawn))

	_, err := c.Get(context.Background())
	require.NoError(t, err)

	mock.Add(2 * time.Minute)
	// the refresh runs inline here, but the caller already holds the stale value
	v, err := c.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	v, err = c.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	assert.Equal(t, int32(2), f.calls.Load())
}

func TestCache_ConcurrentExpiryTriggersOneRefresh(t *testing.T) {
	f := &countingFetcher{}
	mock := clock.NewMock()
	var spawned atomic.Int32
	c := New("test", time.Minute, f.fetch, zaptest.NewLogger(t), WithClock(mock), withSpawn(func(func()) {
		spawned.Add(1)
	}))

	_, err := c.Get(context.Background())
	require.NoError(t, err)
	mock.Add(5 * time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.Get(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, 1, v)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), spawned.Load())
}

func TestCache_BackgroundFailureServesStale(t *testing.T) {
	f := &countingFetcher{}
	mock := clock.NewMock()
	c := New("test", time.Minute, f.fetch, zaptest.NewLogger(t), WithClock(mock), withSpawn(syncSpawn))

	_, err := c.Get(context.Background())
	require.NoError(t, err)

	f.fail.Store(true)
	mock.Add(2 * time.Minute)
	for i := 0; i < 3; i++ {
		v, err := c.Get(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, v)
	}
	// one failed attempt; the others were inside the new TTL window
	assert.Equal(t, int32(2), f.calls.Load())

	// retried on the next cycle
	f.fail.Store(false)
	mock.Add(2 * time.Minute)
	_, _ = c.Get(context.Background())
	v, err := c.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, v)
}

func TestCache_WarmAndMirror(t *testing.T) {
	f := &countingFetcher{}
	mock := clock.NewMock()
	mirror := &recordingMirror{}
	c := New("tokens", time.Minute, f.fetch, zaptest.NewLogger(t), WithClock(mock), WithMirror(mirror))

	require.NoError(t, c.Warm(context.Background()))
	require.NoError(t, c.Warm(context.Background()))
	assert.Equal(t, int32(1), f.calls.Load())

	mock.Add(time.Minute)
	require.NoError(t, c.Warm(context.Background()))
	assert.Equal(t, int32(2), f.calls.Load())

	v, err := c.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	assert.Equal(t, []string{"tokens", "tokens"}, mirror.feeds)
}

type fakeSources struct {
	tokensErr error
}

func (s fakeSources) TokenPrices(ctx context.Context) ([]rpc.TokenPrice, error) {
	if s.tokensErr != nil {
		return nil, s.tokensErr
	}
	return []rpc.TokenPrice{{Denom: "usdc", PriceUSD: decimal.NewFromInt(1), Decimals: 6}}, nil
}

func (s fakeSources) MarkPrices(ctx context.Context) ([]rpc.MarkPrice, error) {
	return []rpc.MarkPrice{{MarketID: "cmkt/1", Mark: decimal.NewFromInt(42)}}, nil
}

func (s fakeSources) Pools(ctx context.Context) ([]rpc.RegistryPool, error) {
	return []rpc.RegistryPool{{ID: "1", Denom: "cplt/1", DepositDenom: "cgt/1"}}, nil
}

// TestFeeds_Isolated tests that one failing feed does not affect the others.
func TestFeeds_Isolated(t *testing.T) {
	src := fakeSources{tokensErr: errors.New("boom")}
	feeds := NewFeeds(src, src, src, DefaultConfig(), zaptest.NewLogger(t), WithClock(clock.NewMock()))

	_, err := feeds.Tokens.Get(context.Background())
	assert.True(t, errs.IsUpstream(err))

	marks, err := feeds.Marks.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "42", marks["cmkt/1"].String())

	pools, err := feeds.Pools.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "cplt/1", pools["1"].Denom)

	names := []string{}
	for _, w := range feeds.All() {
		names = append(names, w.Name())
	}
	assert.Equal(t, []string{FeedTokens, FeedMarks, FeedPools}, names)
}
