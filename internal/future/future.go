// Package future provides a single-assignment value that goroutines can wait on.
package future

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrCancelled is returned by Wait when the future was cancelled
	ErrCancelled = errors.New("future cancelled")
	// ErrPending is returned by Peek while the future is not settled
	ErrPending = errors.New("future pending")
)

// Future holds a value that is assigned at most once.
// Completion, failure and cancellation all race to settle the future; the first wins.
type Future[T any] struct {
	done  chan struct{}
	once  sync.Once
	value T
	err   error
}

// New creates a pending future
func New[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Completed creates a future that already holds v
func Completed[T any](v T) *Future[T] {
	f := New[T]()
	f.Complete(v)
	return f
}

// Complete settles the future with v. It reports false if the future was already settled.
func (f *Future[T]) Complete(v T) bool {
	return f.settle(v, nil)
}

// Fail settles the future with err
func (f *Future[T]) Fail(err error) bool {
	var zero T
	return f.settle(zero, err)
}

// Cancel settles the future with ErrCancelled
func (f *Future[T]) Cancel() bool {
	return f.Fail(ErrCancelled)
}

func (f *Future[T]) settle(v T, err error) bool {
	settled := false
	f.once.Do(func() {
		f.value = v
		f.err = err
		settled = true
		close(f.done)
	})
	return settled
}

// Done returns a channel closed once the future is settled
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// IsDone reports whether the future is settled without blocking
func (f *Future[T]) IsDone() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Cancelled reports whether the future was settled by Cancel
func (f *Future[T]) Cancelled() bool {
	return f.IsDone() && errors.Is(f.err, ErrCancelled)
}

// Wait blocks until the future settles or ctx is done
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Peek returns the settled value without blocking, or ErrPending
func (f *Future[T]) Peek() (T, error) {
	if !f.IsDone() {
		var zero T
		return zero, ErrPending
	}
	return f.value, f.err
}

// Forward settles dst with whatever src settles with.
// It returns immediately; the copy happens when src settles.
func Forward[T any](src, dst *Future[T]) {
	if src == nil {
		dst.Fail(errors.New("nil future"))
		return
	}
	go func() {
		select {
		case <-src.done:
			dst.settle(src.value, src.err)
		case <-dst.done:
		}
	}()
}
