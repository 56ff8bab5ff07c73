// Package rendezvous provides the small synchronization primitives the turn
// protocol is built from: a single-assignment future and a count-down latch.
//
// Both types are safe for concurrent use and every blocking call takes a
// context so callers can abandon a wait without leaving state behind.
package rendezvous

import (
	"context"
	"sync"
)

// Future is a single-assignment cell. The first Resolve or Reject wins and
// later attempts report false.
type Future[T any] struct {
	once  sync.Once
	done  chan struct{}
	value T
	err   error
}

// NewFuture returns an unsettled future.
func NewFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Resolve settles the future with value.
func (f *Future[T]) Resolve(value T) bool {
	return f.settle(value, nil)
}

// Reject settles the future with err.
func (f *Future[T]) Reject(err error) bool {
	var zero T
	return f.settle(zero, err)
}

func (f *Future[T]) settle(value T, err error) bool {
	settled := false
	f.once.Do(func() {
		f.value = value
		f.err = err
		settled = true
		close(f.done)
	})
	return settled
}

// Done is closed once the future settles.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Resolved reports whether the future has settled.
func (f *Future[T]) Resolved() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Value returns the settled value. ok is false while the future is pending.
func (f *Future[T]) Value() (value T, err error, ok bool) {
	if !f.Resolved() {
		return value, nil, false
	}
	return f.value, f.err, true
}

// Wait blocks until the future settles or ctx ends. A settled future wins
// over a context that ended at the same time.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-f.done:
		return f.value, f.err
	default:
	}
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
