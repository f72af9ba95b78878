package task

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/lynxcheck/internal/future"
	"github.com/dshills/lynxcheck/pkg/types"
)

func TestAsyncTask(t *testing.T) {
	tk := NewAsync("Hello world")
	assert.Equal(t, KindAsync, tk.Kind())
	assert.Equal(t, "async", tk.Kind().String())
	assert.False(t, tk.IsComplete())
	assert.Equal(t, types.EMPTY, tk.Result())

	want := types.CheckResult{Text: "Hello world", Alerts: []types.Alert{{Content: "Hello"}}}
	tk.Complete(want)
	assert.True(t, tk.IsComplete())

	got, err := tk.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, want, tk.Result())
}

func TestAsyncTask_DisposeCancelsFuture(t *testing.T) {
	tk := NewAsync("text")
	tk.Dispose()

	assert.True(t, tk.Disposed())
	_, err := tk.Wait(context.Background())
	assert.ErrorIs(t, err, future.ErrCancelled)

	// a late completion is ignored
	tk.Complete(types.CheckResult{Text: "text"})
	assert.Equal(t, types.EMPTY, tk.Result())
}

func TestSyncTask_BlocksUntilComplete(t *testing.T) {
	tk := NewSync("text")
	assert.Equal(t, KindSync, tk.Kind())
	assert.False(t, tk.Modal())

	done := make(chan types.CheckResult)
	go func() {
		res, _ := tk.Wait(context.Background())
		done <- res
	}()

	select {
	case <-done:
		t.Fatal("sync wait returned before completion")
	case <-time.After(20 * time.Millisecond):
	}

	tk.Complete(types.CheckResult{Text: "text"})
	select {
	case res := <-done:
		assert.Equal(t, "text", res.Text)
	case <-time.After(time.Second):
		t.Fatal("sync wait did not return")
	}
}

func TestSyncTask_ReleaseWithoutResult(t *testing.T) {
	tk := NewSync("text")
	tk.Release()

	res, err := tk.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.EMPTY, res)
	assert.False(t, tk.IsComplete())
}

func TestSyncTask_ContextCancellation(t *testing.T) {
	tk := NewSync("text")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := tk.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSyncModalTask_IgnoresCancellation(t *testing.T) {
	tk := NewSyncModal("text")
	assert.True(t, tk.Modal())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	go func() {
		time.Sleep(10 * time.Millisecond)
		tk.Complete(types.CheckResult{Text: "text"})
	}()

	res, err := tk.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, "text", res.Text)
}

func TestSyncTask_DisposeClearsSlot(t *testing.T) {
	tk := NewSync("text")
	tk.Complete(types.CheckResult{Text: "text"})
	require.True(t, tk.IsComplete())

	tk.Dispose()
	assert.False(t, tk.IsComplete())
	assert.Equal(t, types.EMPTY, tk.Result())
}

func TestSyncTask_Future(t *testing.T) {
	tk := NewSync("text")
	f := tk.Future()
	assert.False(t, f.IsDone())

	tk.Complete(types.CheckResult{Text: "text"})
	res, err := f.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "text", res.Text)

	// once released, the future is already settled
	assert.True(t, tk.Future().IsDone())
}

func TestKey(t *testing.T) {
	a := AsyncKey("same")
	s := SyncKey("same")
	assert.True(t, a.Same(s))
	assert.Equal(t, a.ID(), s.ID())
	assert.False(t, a.Sync)
	assert.True(t, s.Sync)
	assert.False(t, a.Same(AsyncKey("other")))
}

func TestSingleSource(t *testing.T) {
	tk := NewAsync("text")
	src := NewSingle(tk)
	assert.Same(t, tk, src.Next())
	assert.Nil(t, src.Next())
}

func TestLatch(t *testing.T) {
	l := NewLatch()
	assert.False(t, l.Released())
	l.Release()
	l.Release()
	assert.True(t, l.Released())
	assert.NoError(t, l.Await(context.Background()))
}
