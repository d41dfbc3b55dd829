// Package future provides a one-shot result channel: a Promise is resolved
// exactly once by a producer and observed through its Future by a consumer.
package future

import (
	"context"
	"sync"
)

// Future is the read side of a one-shot result.
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// Done returns a channel that is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Ready reports whether the result is available.
func (f *Future[T]) Ready() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the result is available or ctx is done.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Get blocks until the result is available.
func (f *Future[T]) Get() (T, error) {
	<-f.done
	return f.value, f.err
}

// TryGet returns the result without blocking. ok is false while pending.
func (f *Future[T]) TryGet() (value T, ok bool, err error) {
	select {
	case <-f.done:
		return f.value, true, f.err
	default:
		var zero T
		return zero, false, nil
	}
}

// Promise is the write side of a one-shot result.
type Promise[T any] struct {
	once   sync.Once
	future *Future[T]
}

// NewPromise creates a pending promise.
func NewPromise[T any]() *Promise[T] {
	return &Promise[T]{future: &Future[T]{done: make(chan struct{})}}
}

// Future returns the read side of the promise.
func (p *Promise[T]) Future() *Future[T] {
	return p.future
}

// Resolve fulfils the promise with a value.
// It returns false if the promise was already settled.
func (p *Promise[T]) Resolve(value T) bool {
	return p.settle(value, nil)
}

// Reject fails the promise with an error.
// It returns false if the promise was already settled.
func (p *Promise[T]) Reject(err error) bool {
	var zero T
	return p.settle(zero, err)
}

func (p *Promise[T]) settle(value T, err error) bool {
	settled := false
	p.once.Do(func() {
		p.future.value = value
		p.future.err = err
		close(p.future.done)
		settled = true
	})
	return settled
}

// Resolved returns a future that already holds value.
func Resolved[T any](value T) *Future[T] {
	p := NewPromise[T]()
	p.Resolve(value)
	return p.future
}

// Rejected returns a future that already holds err.
func Rejected[T any](err error) *Future[T] {
	p := NewPromise[T]()
	p.Reject(err)
	return p.future
}
