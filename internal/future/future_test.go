package future

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestFuture_CompleteOnce(t *testing.T) {
	f := New[int]()
	assert.False(t, f.IsDone())

	assert.True(t, f.Complete(1))
	assert.False(t, f.Complete(2))
	assert.False(t, f.Cancel())

	v, err := f.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	assert.False(t, f.Cancelled())
}

func TestFuture_Cancel(t *testing.T) {
	f := New[string]()
	assert.True(t, f.Cancel())

	_, err := f.Wait(context.Background())
	assert.ErrorIs(t, err, ErrCancelled)
	assert.True(t, f.Cancelled())
}

func TestFuture_WaitRespectsContext(t *testing.T) {
	f := New[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := f.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFuture_Peek(t *testing.T) {
	f := New[int]()
	_, err := f.Peek()
	assert.ErrorIs(t, err, ErrPending)

	boom := errors.New("boom")
	f.Fail(boom)
	_, err = f.Peek()
	assert.ErrorIs(t, err, boom)
}

func TestFuture_ConcurrentSettle(t *testing.T) {
	f := New[int]()
	var wg sync.WaitGroup
	var wins sync.Map
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if f.Complete(i) {
				wins.Store(i, true)
			}
		}(i)
	}
	wg.Wait()

	count := 0
	wins.Range(func(_, _ any) bool {
		count++
		return true
	})
	assert.Equal(t, 1, count)
}

func TestForward(t *testing.T) {
	src := New[int]()
	dst := New[int]()
	Forward(src, dst)

	src.Complete(42)
	v, err := dst.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestForward_DestinationSettledFirst(t *testing.T) {
	src := New[int]()
	dst := New[int]()
	Forward(src, dst)

	dst.Cancel()
	// forwarding goroutine exits without src ever settling
	assert.Eventually(t, func() bool { return dst.Cancelled() }, time.Second, time.Millisecond)
}
