package debounce

import "sync/atomic"

// loopLock marks the sweep loop as running using atomic operations.
// Registration calls TryAcquire on every request, so it must never block.
type loopLock struct {
	state atomic.Int32 // 0 = no loop, 1 = loop running
}

// TryAcquire attempts to claim the loop without blocking.
// Returns true if the caller should start the loop.
func (l *loopLock) TryAcquire() bool {
	return l.state.CompareAndSwap(0, 1)
}

// Release marks the loop as stopped.
// Must only be called by the loop goroutine that holds the lock.
func (l *loopLock) Release() {
	l.state.Store(0)
}
