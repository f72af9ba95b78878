// Package debounce coalesces bursts of requests that share an identity.
//
// Every registration for an identity replaces the previously registered
// supplier and returns the same future. Once the identity has been quiet for a
// full interval, the background sweep runs the most recent supplier exactly
// once and settles the shared future with its outcome. Earlier suppliers are
// discarded without running.
//
//	d := debounce.New[string, types.CheckResult](3 * time.Second)
//	defer d.Close()
//
//	f := d.DebounceFuture(docID, func() *future.Future[types.CheckResult] {
//	    return svc.CheckAsync(ctx, text)
//	})
//
// The sweep loop starts on the first registration and stops when no identity
// is pending, so an idle Debouncer owns no goroutine.
package debounce

import (
	"fmt"
	"sync"
	"time"

	"github.com/dshills/lynxcheck/internal/future"
)

// DefaultInterval is the quiet period used when none is given
const DefaultInterval = 3 * time.Second

// call is the pending state of one identity
type call[T any] struct {
	result      *future.Future[T]
	supplier    func() *future.Future[T]
	lastVisited time.Time
}

// Option configures a Debouncer
type Option func(*options)

type options struct {
	clock func() time.Time
}

// WithClock sets the time source used to measure quiet periods.
// The sweep still wakes on a wall-clock ticker.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// Debouncer delays and collapses calls per identity
type Debouncer[K comparable, T any] struct {
	interval time.Duration
	now      func() time.Time

	mu     sync.Mutex
	calls  map[K]*call[T]
	closed bool

	loop loopLock
	stop chan struct{}
	wg   sync.WaitGroup
}

// New creates a Debouncer with the given quiet interval
func New[K comparable, T any](interval time.Duration, opts ...Option) *Debouncer[K, T] {
	if interval <= 0 {
		interval = DefaultInterval
	}
	o := options{clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Debouncer[K, T]{
		interval: interval,
		now:      o.clock,
		calls:    make(map[K]*call[T]),
		stop:     make(chan struct{}),
	}
}

// Interval returns the quiet period
func (d *Debouncer[K, T]) Interval() time.Duration {
	return d.interval
}

// Debounce registers supplier as the latest computation for id.
// The returned future settles with the value of whichever supplier is latest
// when id goes quiet.
func (d *Debouncer[K, T]) Debounce(id K, supplier func() T) *future.Future[T] {
	return d.register(id, func() *future.Future[T] {
		return future.Completed(supplier())
	})
}

// DebounceFuture registers a supplier that itself yields a future.
// The returned future chains onto the future produced by the winning supplier.
func (d *Debouncer[K, T]) DebounceFuture(id K, supplier func() *future.Future[T]) *future.Future[T] {
	return d.register(id, supplier)
}

func (d *Debouncer[K, T]) register(id K, supplier func() *future.Future[T]) *future.Future[T] {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		f := future.New[T]()
		f.Cancel()
		return f
	}

	c, ok := d.calls[id]
	if !ok {
		c = &call[T]{result: future.New[T]()}
		d.calls[id] = c
	}
	c.supplier = supplier
	c.lastVisited = d.now()

	if d.loop.TryAcquire() {
		d.wg.Add(1)
		go d.run()
	}
	return c.result
}

// Pending returns the number of identities waiting for their quiet period
func (d *Debouncer[K, T]) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls)
}

// run is the sweep loop. It exits when nothing is pending or on Close.
func (d *Debouncer[K, T]) run() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-d.stop:
			d.loop.Release()
			return
		case <-ticker.C:
		}

		if d.sweep() > 0 {
			continue
		}
		d.loop.Release()
		// A registration may have slipped in after the sweep saw an empty map
		if d.Pending() == 0 || !d.loop.TryAcquire() {
			return
		}
	}
}

// sweep settles every identity untouched for at least one interval and
// returns how many remain pending
func (d *Debouncer[K, T]) sweep() int {
	now := d.now()

	d.mu.Lock()
	due := make([]*call[T], 0)
	for id, c := range d.calls {
		if now.Sub(c.lastVisited) < d.interval {
			continue
		}
		due = append(due, c)
		delete(d.calls, id)
	}
	remaining := len(d.calls)
	d.mu.Unlock()

	for _, c := range due {
		resolve(c)
	}
	return remaining
}

// resolve runs the winning supplier outside the lock
func resolve[T any](c *call[T]) {
	defer func() {
		if r := recover(); r != nil {
			c.result.Fail(fmt.Errorf("debounced call panicked: %v", r))
		}
	}()
	future.Forward(c.supplier(), c.result)
}

// Close stops the sweep loop and cancels every pending future.
// Registrations after Close return an already cancelled future.
func (d *Debouncer[K, T]) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	pending := d.calls
	d.calls = make(map[K]*call[T])
	d.mu.Unlock()

	close(d.stop)
	d.wg.Wait()

	for _, c := range pending {
		c.result.Cancel()
	}
}
