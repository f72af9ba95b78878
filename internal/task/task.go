package task

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/dshills/lynxcheck/internal/future"
	"github.com/dshills/lynxcheck/pkg/types"
)

// Kind discriminates the two completion shapes of a Task
type Kind int

const (
	// KindAsync tasks resolve a future that callers may wait on
	KindAsync Kind = iota
	// KindSync tasks fill a result slot and release a latch the caller blocks on
	KindSync
)

func (k Kind) String() string {
	if k == KindSync {
		return "sync"
	}
	return "async"
}

// Task binds one text to its eventual CheckResult.
// Exactly one of async or sync is set, chosen by the constructor.
// The session that pulls a task from its source is the only writer of its result.
type Task struct {
	text     string
	kind     Kind
	async    *future.Future[types.CheckResult]
	sync     *syncSlot
	disposed atomic.Bool
}

type syncSlot struct {
	mu     sync.Mutex
	result *types.CheckResult
	latch  *Latch
	modal  bool
}

// NewAsync creates a future-backed task
func NewAsync(text string) *Task {
	return &Task{
		text:  text,
		kind:  KindAsync,
		async: future.New[types.CheckResult](),
	}
}

// NewSync creates a latch-backed task
func NewSync(text string) *Task {
	return &Task{
		text: text,
		kind: KindSync,
		sync: &syncSlot{latch: NewLatch()},
	}
}

// NewSyncModal creates a latch-backed task whose caller waits without
// honouring cancellation, the way a modal progress dialog blocks
func NewSyncModal(text string) *Task {
	t := NewSync(text)
	t.sync.modal = true
	return t
}

// Text returns the text to be checked
func (t *Task) Text() string { return t.text }

// Kind returns the completion shape of the task
func (t *Task) Kind() Kind { return t.kind }

// Modal reports whether a sync task blocks its caller uninterruptibly
func (t *Task) Modal() bool {
	return t.kind == KindSync && t.sync.modal
}

// Complete stores the result and wakes every waiter
func (t *Task) Complete(result types.CheckResult) {
	switch t.kind {
	case KindAsync:
		t.async.Complete(result)
	case KindSync:
		t.sync.mu.Lock()
		if !t.disposed.Load() {
			t.sync.result = &result
		}
		t.sync.mu.Unlock()
		t.sync.latch.Release()
	}
}

// Release wakes a blocked sync caller without storing a result.
// It is a no-op for async tasks.
func (t *Task) Release() {
	if t.kind == KindSync {
		t.sync.latch.Release()
	}
}

// IsComplete reports whether a result is available
func (t *Task) IsComplete() bool {
	switch t.kind {
	case KindAsync:
		return t.async.IsDone()
	default:
		t.sync.mu.Lock()
		defer t.sync.mu.Unlock()
		return t.sync.result != nil
	}
}

// Result returns the stored result without blocking, or EMPTY
func (t *Task) Result() types.CheckResult {
	switch t.kind {
	case KindAsync:
		res, err := t.async.Peek()
		if err != nil {
			return types.EMPTY
		}
		return res.Copy()
	default:
		t.sync.mu.Lock()
		defer t.sync.mu.Unlock()
		if t.sync.result == nil {
			return types.EMPTY
		}
		return t.sync.result.Copy()
	}
}

// Wait blocks until the task settles.
// Modal sync tasks ignore ctx; every other wait returns ctx.Err() on cancellation.
func (t *Task) Wait(ctx context.Context) (types.CheckResult, error) {
	switch t.kind {
	case KindAsync:
		res, err := t.async.Wait(ctx)
		if err != nil {
			return types.EMPTY, err
		}
		return res.Copy(), nil
	default:
		if t.sync.modal {
			ctx = context.WithoutCancel(ctx)
		}
		if err := t.sync.latch.Await(ctx); err != nil {
			return types.EMPTY, err
		}
		return t.Result(), nil
	}
}

// Future exposes the task as a future for both kinds.
// For sync tasks the future settles when the latch is released.
func (t *Task) Future() *future.Future[types.CheckResult] {
	if t.kind == KindAsync {
		return t.async
	}
	if t.sync.latch.Released() {
		return future.Completed(t.Result())
	}
	f := future.New[types.CheckResult]()
	go func() {
		<-t.sync.latch.Done()
		f.Complete(t.Result())
	}()
	return f
}

// Dispose cancels an async task or clears a sync task's slot.
// Disposed tasks are skipped by sessions that have not started them yet.
func (t *Task) Dispose() {
	t.disposed.Store(true)
	switch t.kind {
	case KindAsync:
		t.async.Cancel()
	case KindSync:
		t.sync.mu.Lock()
		t.sync.result = nil
		t.sync.mu.Unlock()
		t.sync.latch.Release()
	}
}

// Disposed reports whether Dispose has been called
func (t *Task) Disposed() bool {
	return t.disposed.Load()
}
