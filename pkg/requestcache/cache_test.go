package requestcache_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/user/mediaio/pkg/media"
	"github.com/user/mediaio/pkg/mocks"
	"github.com/user/mediaio/pkg/requestcache"
)

func newCache(t *testing.T, f requestcache.Fetcher[string, int], capacity int) *requestcache.Cache[string, int] {
	t.Helper()
	opts := requestcache.DefaultOptions()
	opts.Capacity = capacity
	opts.WaitTimeout = 20 * time.Millisecond
	opts.PollInterval = time.Millisecond
	c, err := requestcache.New[string, int](f, opts, mocks.NewLogger())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func wait(t *testing.T, c *requestcache.Cache[string, int], key string) int {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	v, err := c.Request(key).Wait(ctx)
	if err != nil {
		t.Fatalf("Request(%q) failed: %v", key, err)
	}
	return v
}

func TestCacheHitSkipsFetch(t *testing.T) {
	f := mocks.NewFetcher(map[string]int{"a": 1})
	f.Polls = 2
	c := newCache(t, f, 4)

	if v := wait(t, c, "a"); v != 1 {
		t.Errorf("first request = %d, want 1", v)
	}

	for i := 0; i < 2; i++ {
		fut := c.Request("a")
		if !fut.Ready() {
			t.Fatal("cache hit should resolve before Request returns")
		}
		if v, err := fut.Get(); err != nil || v != 1 {
			t.Errorf("hit %d = %d, %v; want 1, nil", i, v, err)
		}
	}

	if got := f.Calls("a"); got != 1 {
		t.Errorf("fetch calls = %d, want 1", got)
	}
	stats := c.Stats()
	if stats.Hits != 2 || stats.Misses != 1 || stats.Fetches != 1 {
		t.Errorf("stats = %+v, want 2 hits, 1 miss, 1 fetch", stats)
	}
	if f.Closed() != 1 {
		t.Errorf("closed pendings = %d, want 1", f.Closed())
	}
}

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	values := map[string]int{}
	for i := 0; i < 5; i++ {
		values[fmt.Sprintf("k%d", i)] = i
	}
	f := mocks.NewFetcher(values)
	c := newCache(t, f, 4)

	for i := 0; i < 4; i++ {
		wait(t, c, fmt.Sprintf("k%d", i))
	}
	if got := c.PercentageUsed(); got != 100 {
		t.Errorf("PercentageUsed = %v, want 100", got)
	}

	// Refresh k0 so that k1 becomes the oldest entry.
	if v := wait(t, c, "k0"); v != 0 {
		t.Fatalf("k0 = %d", v)
	}
	wait(t, c, "k4")

	if c.Contains("k1") {
		t.Error("k1 should have been evicted")
	}
	for _, k := range []string{"k0", "k2", "k3", "k4"} {
		if !c.Contains(k) {
			t.Errorf("%s should still be cached", k)
		}
	}
	if c.Len() != 4 {
		t.Errorf("Len = %d, want 4", c.Len())
	}
	if got := c.PercentageUsed(); got > 100 {
		t.Errorf("PercentageUsed = %v, must not exceed 100", got)
	}
}

func TestCachePercentageUsed(t *testing.T) {
	f := mocks.NewFetcher(map[string]int{"a": 1, "b": 2})
	c := newCache(t, f, 8)

	if got := c.PercentageUsed(); got != 0 {
		t.Errorf("empty PercentageUsed = %v, want 0", got)
	}
	wait(t, c, "a")
	wait(t, c, "b")
	if got := c.PercentageUsed(); got != 25 {
		t.Errorf("PercentageUsed = %v, want 25", got)
	}
}

func TestCacheFetchFailure(t *testing.T) {
	f := mocks.NewFetcher(map[string]int{"good": 7})
	c := newCache(t, f, 4)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := c.Request("missing").Wait(ctx)
	if !errors.Is(err, media.ErrCacheFetchFailed) {
		t.Fatalf("error = %v, want ErrCacheFetchFailed", err)
	}
	if c.Contains("missing") {
		t.Error("failed fetch must not be cached")
	}

	// Other requests are unaffected.
	if v := wait(t, c, "good"); v != 7 {
		t.Errorf("good = %d, want 7", v)
	}
	if c.Stats().Failures != 1 {
		t.Errorf("failures = %d, want 1", c.Stats().Failures)
	}
}

func TestCachePollFailure(t *testing.T) {
	errDecode := errors.New("decode failed")
	f := mocks.NewFetcher[string, int](nil)
	f.FetchFunc = func(ctx context.Context, key string) (requestcache.Pending[int], error) {
		return requestcache.Failed[int](errDecode), nil
	}
	c := newCache(t, f, 4)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := c.Request("x").Wait(ctx)
	if !errors.Is(err, media.ErrCacheFetchFailed) || !errors.Is(err, errDecode) {
		t.Errorf("error = %v, want ErrCacheFetchFailed wrapping decode error", err)
	}
}

func TestCacheConcurrentRequests(t *testing.T) {
	values := map[string]int{}
	for i := 0; i < 20; i++ {
		values[fmt.Sprintf("k%d", i)] = i
	}
	f := mocks.NewFetcher(values)
	f.Polls = 1
	c := newCache(t, f, 32)

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				key := fmt.Sprintf("k%d", i)
				v, err := c.Request(key).Get()
				if err != nil || v != i {
					t.Errorf("%s = %d, %v; want %d, nil", key, v, err, i)
				}
			}
		}()
	}
	wg.Wait()

	if c.Len() != 20 {
		t.Errorf("Len = %d, want 20", c.Len())
	}
	// Duplicate in-flight requests may fetch more than once, never less.
	if f.TotalCalls() < 20 {
		t.Errorf("fetch calls = %d, want at least 20", f.TotalCalls())
	}
}

func TestCacheCloseRejectsOutstanding(t *testing.T) {
	f := mocks.NewFetcher[string, int](nil)
	f.FetchFunc = func(ctx context.Context, key string) (requestcache.Pending[int], error) {
		return &neverDone{}, nil
	}
	c := newCache(t, f, 4)

	fut := c.Request("slow")
	deadline := time.Now().Add(2 * time.Second)
	for f.Calls("slow") == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	if err := c.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := fut.Get(); !errors.Is(err, requestcache.ErrCacheClosed) {
		t.Errorf("outstanding request error = %v, want ErrCacheClosed", err)
	}
	if _, err := c.Request("later").Get(); !errors.Is(err, requestcache.ErrCacheClosed) {
		t.Errorf("request after close error = %v, want ErrCacheClosed", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}

func TestCacheCloseRacingRequest(t *testing.T) {
	for i := 0; i < 200; i++ {
		f := mocks.NewFetcher[string, int](nil)
		f.FetchFunc = func(ctx context.Context, key string) (requestcache.Pending[int], error) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return requestcache.Ready(1), nil
		}
		c := newCache(t, f, 4)

		fut := c.Request("k")
		c.Close()

		v, err := fut.Get()
		switch {
		case err == nil && v == 1:
		case errors.Is(err, requestcache.ErrCacheClosed):
		default:
			t.Fatalf("iteration %d: result = %d, %v; want 1 or ErrCacheClosed", i, v, err)
		}
		if failures := c.Stats().Failures; failures != 0 {
			t.Fatalf("iteration %d: failures = %d, want 0", i, failures)
		}
	}
}

type neverDone struct{}

func (neverDone) Poll() (int, bool, error) { return 0, false, nil }
func (neverDone) Close() error             { return nil }
