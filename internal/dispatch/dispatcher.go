package dispatch

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/dshills/lynxcheck/internal/metrics"
	"github.com/dshills/lynxcheck/internal/task"
	"github.com/dshills/lynxcheck/internal/textutil"
)

const (
	// DefaultParallelism is the number of sessions allowed to run at once
	DefaultParallelism = 5

	statusWidth = 80
)

var (
	// ErrClosed is returned when submitting to a closed dispatcher
	ErrClosed = errors.New("dispatcher closed")
	// ErrNilTask is returned when submitting a nil task
	ErrNilTask = errors.New("task is nil")
)

// Runner is one protocol session. Run pulls tasks from src until it returns
// nil or the session fails.
type Runner interface {
	Run(ctx context.Context, src task.Source) error
}

// RunnerFunc adapts a function to the Runner interface
type RunnerFunc func(ctx context.Context, src task.Source) error

// Run calls f
func (f RunnerFunc) Run(ctx context.Context, src task.Source) error {
	return f(ctx, src)
}

// Factory builds a fresh session for each slot
type Factory func() Runner

// Config contains configuration for the dispatcher
type Config struct {
	Parallelism int                 // Max concurrently running pooled sessions (default: 5)
	Progress    func(status string) // Optional status sink for sync submissions
	Logger      *zap.Logger
	Metrics     *metrics.Collector
}

// Dispatcher schedules tasks onto a bounded pool of sessions.
// Async tasks share one queue drained by at most Parallelism sessions; sync
// tasks each run on a dedicated session while the caller blocks.
type Dispatcher struct {
	factory     Factory
	parallelism int32
	queue       *Queue
	active      atomic.Int32
	progress    func(string)
	logger      *zap.Logger
	metrics     *metrics.Collector

	mu     sync.Mutex // Guards closed and wg.Add
	closed bool
	wg     sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a dispatcher that builds sessions with factory
func New(factory Factory, cfg Config) *Dispatcher {
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = DefaultParallelism
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		factory:     factory,
		parallelism: int32(cfg.Parallelism),
		queue:       NewQueue(),
		progress:    cfg.Progress,
		logger:      cfg.Logger,
		metrics:     cfg.Metrics,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Submit queues an async task and starts a session if a slot is free.
// It never blocks on remote work.
func (d *Dispatcher) Submit(t *task.Task) error {
	if t == nil {
		return ErrNilTask
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}

	pending := d.queue.Push(t)
	d.metrics.TaskSubmitted(t.Kind().String())
	if d.tryAcquireSlot() {
		d.wg.Add(1)
		go d.runPooled()
	}
	d.logger.Debug("task queued",
		zap.Int("pending", pending),
		zap.Int32("active", d.active.Load()))
	return nil
}

// SubmitSync runs t on a dedicated session and blocks until that session
// completes it or ctx is done. Modal tasks keep blocking after ctx is cancelled.
func (d *Dispatcher) SubmitSync(ctx context.Context, t *task.Task) error {
	if t == nil {
		return ErrNilTask
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrClosed
	}
	d.wg.Add(1)
	d.mu.Unlock()

	d.metrics.TaskSubmitted(t.Kind().String())
	if d.progress != nil {
		d.progress(StatusText(t.Text()))
	}

	go func() {
		defer d.wg.Done()
		d.runSession(task.NewSingle(t))
		// Wake the caller even if the session abandoned the task
		t.Release()
	}()

	_, err := t.Wait(ctx)
	return err
}

// Active returns the number of pooled sessions currently running
func (d *Dispatcher) Active() int {
	return int(d.active.Load())
}

// Pending returns the number of queued async tasks
func (d *Dispatcher) Pending() int {
	return d.queue.Len()
}

// Parallelism returns the pool bound
func (d *Dispatcher) Parallelism() int {
	return int(d.parallelism)
}

// Close stops accepting work and waits for running sessions to drain the
// queue. If ctx ends first, sessions are cancelled and Close returns ctx.Err().
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		<-done
		return ctx.Err()
	}
}

// tryAcquireSlot claims a pool slot if fewer than parallelism are active
func (d *Dispatcher) tryAcquireSlot() bool {
	for {
		n := d.active.Load()
		if n >= d.parallelism {
			return false
		}
		if d.active.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// runPooled runs sessions on the shared queue while holding one slot
func (d *Dispatcher) runPooled() {
	defer d.wg.Done()

	for {
		d.runSession(d.queue)
		d.active.Add(-1)

		// A task pushed while this slot was being released would otherwise
		// wait for the next Submit
		if d.queue.Len() == 0 || d.ctx.Err() != nil || !d.tryAcquireSlot() {
			return
		}
	}
}

func (d *Dispatcher) runSession(src task.Source) {
	d.metrics.SessionStarted()
	defer d.metrics.SessionEnded()

	if err := d.factory().Run(d.ctx, src); err != nil {
		d.logger.Warn("session ended with error", zap.Error(err))
	}
}

// StatusText renders the progress line shown while a sync check runs
func StatusText(text string) string {
	return `Checking "` + textutil.Abbreviate(strings.Trim(text, " *\"/\n\r"), statusWidth) + `"`
}

