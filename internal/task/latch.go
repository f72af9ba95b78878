package task

import (
	"context"
	"sync"
)

// Latch is a one-shot completion signal for a blocked caller
type Latch struct {
	once sync.Once
	ch   chan struct{}
}

// NewLatch creates an unreleased latch
func NewLatch() *Latch {
	return &Latch{ch: make(chan struct{})}
}

// Release opens the latch. Further calls are no-ops.
func (l *Latch) Release() {
	l.once.Do(func() { close(l.ch) })
}

// Released reports whether the latch is open
func (l *Latch) Released() bool {
	select {
	case <-l.ch:
		return true
	default:
		return false
	}
}

// Done returns a channel closed on release
func (l *Latch) Done() <-chan struct{} {
	return l.ch
}

// Await blocks until release or ctx cancellation
func (l *Latch) Await(ctx context.Context) error {
	select {
	case <-l.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
