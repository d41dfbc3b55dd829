package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/user/mediaio/pkg/requestcache"
)

// Fetcher is a counting mock implementation of requestcache.Fetcher.
// Each fetch completes after Polls polls with Values[key], or fails when the
// key is missing.
type Fetcher[K comparable, V any] struct {
	mu     sync.Mutex
	Values map[K]V
	Polls  int
	calls  map[K]int
	closed int

	FetchFunc func(ctx context.Context, key K) (requestcache.Pending[V], error)
}

// NewFetcher creates a mock fetcher serving values.
func NewFetcher[K comparable, V any](values map[K]V) *Fetcher[K, V] {
	return &Fetcher[K, V]{Values: values, calls: make(map[K]int)}
}

func (m *Fetcher[K, V]) Fetch(ctx context.Context, key K) (requestcache.Pending[V], error) {
	m.mu.Lock()
	m.calls[key]++
	m.mu.Unlock()
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, key)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.Values[key]
	if !ok {
		return nil, fmt.Errorf("mock: no value for %v", key)
	}
	return &pending[K, V]{fetcher: m, value: v, left: m.Polls}, nil
}

// Calls returns how often key was fetched.
func (m *Fetcher[K, V]) Calls(key K) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[key]
}

// TotalCalls returns the number of fetches for all keys.
func (m *Fetcher[K, V]) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		n += c
	}
	return n
}

// Closed returns how many pending fetches were closed.
func (m *Fetcher[K, V]) Closed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

type pending[K comparable, V any] struct {
	fetcher *Fetcher[K, V]
	value   V
	left    int
}

func (p *pending[K, V]) Poll() (V, bool, error) {
	if p.left > 0 {
		p.left--
		var zero V
		return zero, false, nil
	}
	return p.value, true, nil
}

func (p *pending[K, V]) Close() error {
	p.fetcher.mu.Lock()
	defer p.fetcher.mu.Unlock()
	p.fetcher.closed++
	return nil
}

var _ requestcache.Fetcher[string, int] = (*Fetcher[string, int])(nil)
