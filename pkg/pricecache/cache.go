// Package pricecache serves upstream feeds (token prices, market marks, pool registry)
// from memory with stale-while-revalidate semantics.
package pricecache

import (
	"context"
	"sync"
	"time"

	"github.com/dem-exchange/insightsx/pkg/errs"
	"github.com/facebookgo/clock"
	"go.uber.org/zap"
)

// Fetcher loads a fresh snapshot of a feed.
type Fetcher[T any] func(ctx context.Context) (T, error)

// Mirror receives every successfully fetched snapshot. Implementations must not block for long.
type Mirror interface {
	Store(ctx context.Context, feed string, snapshot any)
}

// Option customizes a Cache.
type Option func(*options)

type options struct {
	clock        clock.Clock
	fetchTimeout time.Duration
	mirror       Mirror
	spawn        func(func())
}

// WithClock replaces the wall clock, mainly for tests.
func WithClock(c clock.Clock) Option { return func(o *options) { o.clock = c } }

// WithFetchTimeout bounds each upstream fetch. Zero disables the bound.
func WithFetchTimeout(d time.Duration) Option { return func(o *options) { o.fetchTimeout = d } }

// WithMirror copies fetched snapshots to m.
func WithMirror(m Mirror) Option { return func(o *options) { o.mirror = m } }

// withSpawn swaps the goroutine launcher used for background refreshes.
func withSpawn(fn func(func())) Option { return func(o *options) { o.spawn = fn } }

// Cache holds one feed. The first Get blocks on the fetch and returns its error; later
// Gets never block. Once the TTL has elapsed a Get returns the stale value and starts a
// single background refresh. Entries are never evicted.
type Cache[T any] struct {
	name   string
	ttl    time.Duration
	fetch  Fetcher[T]
	logger *zap.Logger
	opts   options

	mu          sync.Mutex
	value       T
	hydrated    bool
	lastAttempt time.Time
	fetchedAt   time.Time

	// serializes first-ever hydration
	hydrateMu sync.Mutex
}

// New creates a cache for the named feed.
func New[T any](name string, ttl time.Duration, fetch Fetcher[T], logger *zap.Logger, opts ...Option) *Cache[T] {
	o := options{
		clock: clock.New(),
		spawn: func(f func()) { go f() },
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache[T]{
		name:   name,
		ttl:    ttl,
		fetch:  fetch,
		logger: logger.With(zap.String("feed", name)),
		opts:   o,
	}
}

func (c *Cache[T]) Name() string { return c.name }

// Get returns the current snapshot, hydrating synchronously on first use.
func (c *Cache[T]) Get(ctx context.Context) (T, error) {
	c.mu.Lock()
	if c.hydrated {
		v := c.value
		now := c.opts.clock.Now()
		stale := now.Sub(c.lastAttempt) >= c.ttl
		if stale {
			// stamp before the fetch starts so concurrent readers see a fresh attempt
			c.lastAttempt = now
		}
		c.mu.Unlock()
		if stale {
			c.opts.spawn(c.refresh)
		}
		return v, nil
	}
	c.mu.Unlock()

	return c.hydrate(ctx)
}

// Warm hydrates the feed if needed and refreshes it if stale, waiting for the result.
func (c *Cache[T]) Warm(ctx context.Context) error {
	c.mu.Lock()
	hydrated := c.hydrated
	due := hydrated && c.opts.clock.Now().Sub(c.lastAttempt) >= c.ttl
	if due {
		c.lastAttempt = c.opts.clock.Now()
	}
	c.mu.Unlock()

	if !hydrated {
		_, err := c.hydrate(ctx)
		return err
	}
	if !due {
		return nil
	}
	v, err := c.load(ctx)
	if err != nil {
		return err
	}
	c.store(v)
	return nil
}

// Status reports whether the feed has ever loaded and when the current snapshot was fetched.
func (c *Cache[T]) Status() (hydrated bool, fetchedAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hydrated, c.fetchedAt
}

func (c *Cache[T]) hydrate(ctx context.Context) (T, error) {
	c.hydrateMu.Lock()
	defer c.hydrateMu.Unlock()

	c.mu.Lock()
	if c.hydrated {
		v := c.value
		c.mu.Unlock()
		return v, nil
	}
	c.lastAttempt = c.opts.clock.Now()
	c.mu.Unlock()

	v, err := c.load(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	c.store(v)
	return v, nil
}

func (c *Cache[T]) refresh() {
	ctx := context.Background()
	v, err := c.load(ctx)
	if err != nil {
		c.logger.Warn("background feed refresh failed, serving stale snapshot", zap.Error(err))
		return
	}
	c.store(v)
	c.logger.Debug("feed refreshed")
}

func (c *Cache[T]) load(ctx context.Context) (T, error) {
	if c.opts.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.fetchTimeout)
		defer cancel()
	}
	v, err := c.fetch(ctx)
	if err != nil {
		var zero T
		return zero, errs.Upstream(c.name, err)
	}
	if c.opts.mirror != nil {
		c.opts.mirror.Store(ctx, c.name, v)
	}
	return v, nil
}

func (c *Cache[T]) store(v T) {
	c.mu.Lock()
	c.value = v
	c.hydrated = true
	c.fetchedAt = c.opts.clock.Now()
	c.mu.Unlock()
}
