package debounce

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/dshills/lynxcheck/internal/future"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const testInterval = 20 * time.Millisecond

func waitValue[T any](t *testing.T, f *future.Future[T]) T {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	v, err := f.Wait(ctx)
	require.NoError(t, err)
	return v
}

func TestDebounce_LastWriteWins(t *testing.T) {
	d := New[string, int](testInterval)
	defer d.Close()

	var executed atomic.Int32
	var futures []*future.Future[int]
	for i := 0; i < 7; i++ {
		v := i
		futures = append(futures, d.Debounce("doc", func() int {
			executed.Add(1)
			return v
		}))
	}

	for _, f := range futures {
		assert.Equal(t, 6, waitValue(t, f))
	}
	assert.Equal(t, int32(1), executed.Load(), "only the latest supplier runs")
}

func TestDebounce_FromDifferentGoroutines(t *testing.T) {
	d := New[string, int](testInterval)
	defer d.Close()

	var wg sync.WaitGroup
	futures := make([]*future.Future[int], 8)
	for i := 0; i < len(futures)-1; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			futures[i] = d.Debounce("doc", func() int { return -1 })
		}(i)
	}
	wg.Wait()
	futures[len(futures)-1] = d.Debounce("doc", func() int { return 42 })

	for _, f := range futures {
		assert.Equal(t, 42, waitValue(t, f))
	}
}

func TestDebounce_IndependentIdentities(t *testing.T) {
	d := New[int, string](testInterval)
	defer d.Close()

	a := d.Debounce(1, func() string { return "a" })
	b := d.Debounce(2, func() string { return "b" })

	assert.Equal(t, "a", waitValue(t, a))
	assert.Equal(t, "b", waitValue(t, b))
}

func TestDebounceFuture_ChainsWinningFuture(t *testing.T) {
	d := New[string, int](testInterval)
	defer d.Close()

	var result *future.Future[int]
	for round := 0; round < 3; round++ {
		for j := 0; j < 5; j++ {
			v := j
			result = d.DebounceFuture("doc", func() *future.Future[int] {
				f := future.New[int]()
				go func() {
					time.Sleep(time.Millisecond)
					f.Complete(v)
				}()
				return f
			})
		}
		assert.Equal(t, 4, waitValue(t, result))
	}
}

// manualClock is advanced explicitly by tests
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestDebounce_WaitsForQuietPeriod(t *testing.T) {
	clock := &manualClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	d := New[string, int](testInterval, WithClock(clock.Now))
	defer d.Close()

	d.Debounce("doc", func() int { return 1 })
	clock.Advance(testInterval / 2)
	f := d.Debounce("doc", func() int { return 2 })
	clock.Advance(testInterval / 2)

	// several sweeps run, but the identity was touched half an interval ago
	time.Sleep(5 * testInterval)
	assert.False(t, f.IsDone(), "settled while still within the quiet period")
	assert.Equal(t, 1, d.Pending())

	clock.Advance(testInterval / 2)
	assert.Equal(t, 2, waitValue(t, f))
}

func TestDebounce_LoopStopsWhenIdle(t *testing.T) {
	d := New[string, int](testInterval)
	defer d.Close()

	waitValue(t, d.Debounce("doc", func() int { return 1 }))
	assert.Eventually(t, func() bool {
		return d.loop.state.Load() == 0
	}, time.Second, 5*time.Millisecond)

	// a new registration restarts the loop
	assert.Equal(t, 2, waitValue(t, d.Debounce("doc", func() int { return 2 })))
}

func TestDebounce_SupplierPanicFailsFuture(t *testing.T) {
	d := New[string, int](testInterval)
	defer d.Close()

	f := d.Debounce("doc", func() int { panic("boom") })
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := f.Wait(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")
}

func TestClose_CancelsPending(t *testing.T) {
	d := New[string, int](time.Hour)

	f := d.Debounce("doc", func() int { return 1 })
	assert.Equal(t, 1, d.Pending())
	d.Close()

	_, err := f.Wait(context.Background())
	assert.ErrorIs(t, err, future.ErrCancelled)

	late := d.Debounce("doc", func() int { return 2 })
	assert.True(t, late.Cancelled())
	d.Close()
}

func TestNew_DefaultInterval(t *testing.T) {
	d := New[string, int](0)
	defer d.Close()
	assert.Equal(t, DefaultInterval, d.Interval())
}
