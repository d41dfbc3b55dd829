// Package requestcache implements a fetch-and-cache pipeline: cache hits are
// served on the caller goroutine, misses are funnelled through a single fetch
// goroutine into a bounded LRU cache.
package requestcache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/user/mediaio/pkg/future"
	"github.com/user/mediaio/pkg/media"
	"github.com/user/mediaio/pkg/ports"
)

// ErrCacheClosed is returned through requests that were still queued or in
// flight when the cache was closed, and through requests made afterwards.
var ErrCacheClosed = errors.New("requestcache: closed")

// Pending is an in-flight fetch. The fetch goroutine polls it once per cycle
// until it reports done or fails, then closes it.
type Pending[V any] interface {
	// Poll returns done=true with the value once available, or an error if
	// the fetch failed. It must not block.
	Poll() (value V, done bool, err error)

	// Close releases resources held by the fetch.
	Close() error
}

// Fetcher starts fetches for cache misses.
type Fetcher[K comparable, V any] interface {
	Fetch(ctx context.Context, key K) (Pending[V], error)
}

// FetchFunc adapts a function to Fetcher.
type FetchFunc[K comparable, V any] func(ctx context.Context, key K) (Pending[V], error)

// Fetch calls f(ctx, key).
func (f FetchFunc[K, V]) Fetch(ctx context.Context, key K) (Pending[V], error) {
	return f(ctx, key)
}

// Options configures a Cache.
type Options struct {
	Capacity      int           // Maximum number of cached entries (default: 1000)
	WaitTimeout   time.Duration // Idle wait of the fetch goroutine (default: 100ms)
	PollInterval  time.Duration // Wait between polls while fetches are pending (default: 5ms)
	StatsInterval time.Duration // Cache usage log interval, 0 disables
}

// DefaultOptions returns Options with default values.
func DefaultOptions() Options {
	return Options{
		Capacity:     1000,
		WaitTimeout:  100 * time.Millisecond,
		PollInterval: 5 * time.Millisecond,
	}
}

// Stats holds request counters.
type Stats struct {
	Hits     int64
	Misses   int64
	Fetches  int64
	Failures int64
}

type request[K comparable, V any] struct {
	key     K
	promise *future.Promise[V]
}

type inflight[K comparable, V any] struct {
	request[K, V]
	pending Pending[V]
}

// Cache is a request cache keyed by K.
type Cache[K comparable, V any] struct {
	fetcher  Fetcher[K, V]
	opts     Options
	logger   ports.Logger
	entries  *lru.Cache[K, V]
	capacity int

	mu       sync.Mutex
	requests []request[K, V]
	closed   bool

	wake   chan struct{}
	cancel context.CancelFunc
	done   chan struct{}

	hits     atomic.Int64
	misses   atomic.Int64
	fetches  atomic.Int64
	failures atomic.Int64
}

// New creates a cache and starts its fetch goroutine.
func New[K comparable, V any](fetcher Fetcher[K, V], opts Options, logger ports.Logger) (*Cache[K, V], error) {
	d := DefaultOptions()
	if opts.Capacity <= 0 {
		opts.Capacity = d.Capacity
	}
	if opts.WaitTimeout <= 0 {
		opts.WaitTimeout = d.WaitTimeout
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = d.PollInterval
	}

	entries, err := lru.New[K, V](opts.Capacity)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Cache[K, V]{
		fetcher:  fetcher,
		opts:     opts,
		logger:   logger.WithComponent("requestcache"),
		entries:  entries,
		capacity: opts.Capacity,
		wake:     make(chan struct{}, 1),
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go c.run(ctx)
	return c, nil
}

// Request returns a future for key. A cached value resolves the future
// before Request returns. Concurrent requests for the same uncached key each
// trigger their own fetch.
func (c *Cache[K, V]) Request(key K) *future.Future[V] {
	if v, ok := c.entries.Get(key); ok {
		c.hits.Add(1)
		return future.Resolved(v)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return future.Rejected[V](ErrCacheClosed)
	}
	p := future.NewPromise[V]()
	c.requests = append(c.requests, request[K, V]{key: key, promise: p})
	c.mu.Unlock()

	c.misses.Add(1)
	c.signal()
	return p.Future()
}

// PercentageUsed returns the cache fill level in the range [0, 100].
func (c *Cache[K, V]) PercentageUsed() float64 {
	n := c.entries.Len()
	if n >= c.capacity {
		return 100
	}
	return float64(n) * 100 / float64(c.capacity)
}

// Len returns the number of cached entries.
func (c *Cache[K, V]) Len() int {
	return c.entries.Len()
}

// Contains reports whether key is cached without refreshing its recency.
func (c *Cache[K, V]) Contains(key K) bool {
	return c.entries.Contains(key)
}

// Stats returns a snapshot of the request counters.
func (c *Cache[K, V]) Stats() Stats {
	return Stats{
		Hits:     c.hits.Load(),
		Misses:   c.misses.Load(),
		Fetches:  c.fetches.Load(),
		Failures: c.failures.Load(),
	}
}

// Close stops the fetch goroutine and waits for it to exit. Outstanding
// requests are rejected with ErrCacheClosed.
func (c *Cache[K, V]) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	<-c.done
	return nil
}

func (c *Cache[K, V]) signal() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// take moves the queued requests out of the shared list.
func (c *Cache[K, V]) take() []request[K, V] {
	c.mu.Lock()
	defer c.mu.Unlock()
	reqs := c.requests
	c.requests = nil
	return reqs
}

// run is the fetch goroutine main loop.
func (c *Cache[K, V]) run(ctx context.Context) {
	defer close(c.done)

	var stats <-chan time.Time
	if c.opts.StatsInterval > 0 {
		ticker := time.NewTicker(c.opts.StatsInterval)
		defer ticker.Stop()
		stats = ticker.C
	}

	var active []inflight[K, V]
	for {
		wait := c.opts.WaitTimeout
		if len(active) > 0 {
			wait = c.opts.PollInterval
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			c.shutdown(active)
			return
		case <-stats:
			c.logger.Debug("Cache usage: %.1f%%", c.PercentageUsed())
		case <-c.wake:
		case <-timer.C:
		}
		timer.Stop()
		if ctx.Err() != nil {
			c.shutdown(active)
			return
		}

		for _, r := range c.take() {
			if f, ok := c.start(ctx, r); ok {
				active = append(active, f)
			}
		}
		active = c.poll(active)
	}
}

// start serves a request from the cache or begins a fetch for it.
func (c *Cache[K, V]) start(ctx context.Context, r request[K, V]) (inflight[K, V], bool) {
	if v, ok := c.entries.Get(r.key); ok {
		r.promise.Resolve(v)
		return inflight[K, V]{}, false
	}

	c.fetches.Add(1)
	pending, err := c.fetcher.Fetch(ctx, r.key)
	if err != nil {
		if ctx.Err() != nil {
			r.promise.Reject(ErrCacheClosed)
		} else {
			c.fail(r, err)
		}
		return inflight[K, V]{}, false
	}
	return inflight[K, V]{request: r, pending: pending}, true
}

// poll checks every in-flight fetch once and returns those still running.
func (c *Cache[K, V]) poll(active []inflight[K, V]) []inflight[K, V] {
	remaining := active[:0]
	for _, f := range active {
		v, done, err := f.pending.Poll()
		switch {
		case err != nil:
			f.pending.Close()
			c.fail(f.request, err)
		case done:
			f.pending.Close()
			c.entries.Add(f.key, v)
			f.promise.Resolve(v)
		default:
			remaining = append(remaining, f)
		}
	}
	for i := len(remaining); i < len(active); i++ {
		active[i] = inflight[K, V]{}
	}
	return remaining
}

func (c *Cache[K, V]) fail(r request[K, V], err error) {
	c.failures.Add(1)
	c.logger.Error("Fetch failed for %v: %v", r.key, err)
	r.promise.Reject(fmt.Errorf("%w: %w", media.ErrCacheFetchFailed, err))
}

func (c *Cache[K, V]) shutdown(active []inflight[K, V]) {
	for _, f := range active {
		f.pending.Close()
		f.promise.Reject(ErrCacheClosed)
	}
	for _, r := range c.take() {
		r.promise.Reject(ErrCacheClosed)
	}
}
