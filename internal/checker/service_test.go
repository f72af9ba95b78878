package checker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/dshills/lynxcheck/internal/dispatch"
	"github.com/dshills/lynxcheck/internal/future"
	"github.com/dshills/lynxcheck/internal/task"
	"github.com/dshills/lynxcheck/pkg/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// backend stands in for the checking service behind every session
type backend struct {
	mu      sync.Mutex
	runs    map[string]int
	respond func(text string, run int) types.CheckResult
	gate    chan struct{}
}

func newBackend() *backend {
	return &backend{
		runs: make(map[string]int),
		respond: func(text string, _ int) types.CheckResult {
			return types.CheckResult{
				Text:   text,
				Alerts: []types.Alert{{Group: "Grammar", Title: "Checked", Content: text}},
				Log:    `{"action":"finished"}`,
			}
		},
	}
}

func (b *backend) factory() dispatch.Runner {
	return dispatch.RunnerFunc(func(ctx context.Context, src task.Source) error {
		for t := src.Next(); t != nil; t = src.Next() {
			if t.Disposed() {
				continue
			}
			if b.gate != nil {
				select {
				case <-b.gate:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			b.mu.Lock()
			b.runs[t.Text()]++
			n := b.runs[t.Text()]
			b.mu.Unlock()
			t.Complete(b.respond(t.Text(), n))
		}
		return nil
	})
}

func (b *backend) count(text string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.runs[text]
}

func newTestService(t *testing.T, b *backend, mutate func(*Config)) *Service {
	t.Helper()
	cfg := Config{
		Settings: Settings{DebounceInterval: 20 * time.Millisecond},
		Sessions: b.factory,
		Logger:   zap.NewNop(),
	}
	if mutate != nil {
		mutate(&cfg)
	}
	svc, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = svc.Close(ctx)
	})
	return svc
}

func waitResult(t *testing.T, f *future.Future[types.CheckResult]) types.CheckResult {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	res, err := f.Wait(ctx)
	require.NoError(t, err)
	return res
}

func TestCheckAsync_CompletesAndCaches(t *testing.T) {
	b := newBackend()
	svc := newTestService(t, b, nil)
	ctx := context.Background()

	res := waitResult(t, svc.CheckAsync(ctx, "some text"))
	assert.Equal(t, "some text", res.Text)
	require.Len(t, res.Alerts, 1)

	again := waitResult(t, svc.CheckAsync(ctx, "some text"))
	assert.Equal(t, res.Alerts, again.Alerts)
	assert.Equal(t, 1, b.count("some text"))

	assert.Equal(t, "some text", svc.LookUp("some text").Text)
	assert.True(t, svc.LookUp("unknown").IsEmpty())
}

func TestCheck_BlankTextIsEmpty(t *testing.T) {
	b := newBackend()
	svc := newTestService(t, b, nil)
	ctx := context.Background()

	assert.True(t, waitResult(t, svc.CheckAsync(ctx, "  \n\t")).IsEmpty())
	assert.True(t, svc.CheckSync(ctx, "").IsEmpty())
	assert.Equal(t, 0, svc.Status().CacheEntries)
}

func TestCheckSync_SharedWithAsync(t *testing.T) {
	b := newBackend()
	var statuses []string
	var mu sync.Mutex
	svc := newTestService(t, b, func(cfg *Config) {
		cfg.Progress = func(s string) {
			mu.Lock()
			statuses = append(statuses, s)
			mu.Unlock()
		}
	})
	ctx := context.Background()

	res := svc.CheckSync(ctx, "sync text")
	assert.Equal(t, "sync text", res.Text)
	require.Len(t, res.Alerts, 1)

	// The cached sync task serves async callers too
	async := waitResult(t, svc.CheckAsync(ctx, "sync text"))
	assert.Equal(t, "sync text", async.Text)
	assert.Equal(t, 1, b.count("sync text"))

	mu.Lock()
	assert.Equal(t, []string{`Checking "sync text"`}, statuses)
	mu.Unlock()
}

func TestCheckSync_WaitsOnAsyncTask(t *testing.T) {
	b := newBackend()
	b.gate = make(chan struct{})
	svc := newTestService(t, b, nil)
	ctx := context.Background()

	f := svc.CheckAsync(ctx, "shared")
	got := make(chan types.CheckResult, 1)
	go func() { got <- svc.CheckSync(ctx, "shared") }()

	close(b.gate)
	assert.Equal(t, "shared", waitResult(t, f).Text)
	select {
	case res := <-got:
		assert.Equal(t, "shared", res.Text)
	case <-time.After(2 * time.Second):
		t.Fatal("sync caller never returned")
	}
	assert.Equal(t, 1, b.count("shared"))
}

func TestFailedResultIsEvicted(t *testing.T) {
	b := newBackend()
	next := b.respond
	b.respond = func(text string, run int) types.CheckResult {
		if run == 1 {
			return types.FailedResult(text, errors.New("boom"))
		}
		return next(text, run)
	}
	svc := newTestService(t, b, nil)
	ctx := context.Background()

	first := svc.CheckSync(ctx, "flaky")
	assert.True(t, first.Failed())
	assert.True(t, svc.LookUp("flaky").IsEmpty())

	second := svc.CheckSync(ctx, "flaky")
	assert.False(t, second.Failed())
	assert.Equal(t, 2, b.count("flaky"))

	async := waitResult(t, svc.CheckAsync(ctx, "flaky"))
	assert.False(t, async.Failed())
	assert.Equal(t, 2, b.count("flaky"))
}

func TestExtendedLogging(t *testing.T) {
	ctx := context.Background()

	plain := newTestService(t, newBackend(), nil)
	assert.Empty(t, plain.CheckSync(ctx, "text").Log)

	extended := newTestService(t, newBackend(), func(cfg *Config) {
		cfg.ExtendedLogging = true
	})
	assert.Equal(t, `{"action":"finished"}`, extended.CheckSync(ctx, "text").Log)
	assert.NotEmpty(t, extended.LookUp("text").Log)
}

func TestCheckAsyncDebounced_LastTextWins(t *testing.T) {
	b := newBackend()
	svc := newTestService(t, b, nil)
	ctx := context.Background()

	f1 := svc.CheckAsyncDebounced(ctx, "doc", "draft one")
	f2 := svc.CheckAsyncDebounced(ctx, "doc", "draft two")
	assert.Same(t, f1, f2)

	res := waitResult(t, f2)
	assert.Equal(t, "draft two", res.Text)
	assert.Equal(t, 0, b.count("draft one"))
	assert.Equal(t, 1, b.count("draft two"))
}

func TestCheckAsyncDebounced_EmptyIdentityIsImmediate(t *testing.T) {
	b := newBackend()
	svc := newTestService(t, b, func(cfg *Config) {
		cfg.DebounceInterval = time.Hour
	})

	res := waitResult(t, svc.CheckAsyncDebounced(context.Background(), "", "now"))
	assert.Equal(t, "now", res.Text)
}

func TestCleanUp_CancelsPending(t *testing.T) {
	b := newBackend()
	b.gate = make(chan struct{})
	svc := newTestService(t, b, nil)

	f := svc.CheckAsync(context.Background(), "pending")
	svc.CleanUp()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := f.Wait(ctx)
	require.ErrorIs(t, err, future.ErrCancelled)
	assert.Equal(t, 0, svc.Status().CacheEntries)

	close(b.gate)
}

func TestReconfigure(t *testing.T) {
	b := newBackend()
	svc := newTestService(t, b, nil)
	ctx := context.Background()

	svc.CheckSync(ctx, "before")
	require.Equal(t, 1, svc.Status().CacheEntries)

	err := svc.Reconfigure(ctx, Settings{CacheLifespan: time.Minute, Parallelism: 2})
	require.NoError(t, err)

	st := svc.Status()
	assert.Equal(t, 2, st.Parallelism)
	assert.Equal(t, time.Minute, st.CacheLifespan)
	assert.Equal(t, 0, st.CacheEntries)

	svc.CheckSync(ctx, "before")
	assert.Equal(t, 2, b.count("before"))
}

func TestReconfigure_Invalid(t *testing.T) {
	svc := newTestService(t, newBackend(), nil)
	err := svc.Reconfigure(context.Background(), Settings{CacheLifespan: -time.Minute})
	require.ErrorIs(t, err, ErrInvalidSettings)
	assert.Equal(t, DefaultSettings().CacheLifespan, svc.Settings().CacheLifespan)
}

func TestReconfigure_LoggingOnly(t *testing.T) {
	svc := newTestService(t, newBackend(), nil)
	ctx := context.Background()
	svc.CheckSync(ctx, "kept")

	s := svc.Settings()
	s.ExtendedLogging = true
	require.NoError(t, svc.Reconfigure(ctx, s))

	assert.Equal(t, 1, svc.Status().CacheEntries)
	assert.NotEmpty(t, svc.LookUp("kept").Log)
}

func TestClose(t *testing.T) {
	b := newBackend()
	svc := newTestService(t, b, nil)
	ctx := context.Background()

	require.NoError(t, svc.Close(ctx))
	require.NoError(t, svc.Close(ctx))

	assert.True(t, svc.CheckSync(ctx, "late").IsEmpty())
	assert.True(t, waitResult(t, svc.CheckAsync(ctx, "late")).IsEmpty())
	require.ErrorIs(t, svc.Reconfigure(ctx, DefaultSettings()), ErrClosed)
	assert.Equal(t, 0, b.count("late"))
}

func TestNew_InvalidSettings(t *testing.T) {
	_, err := New(Config{Settings: Settings{Parallelism: -1}})
	require.ErrorIs(t, err, ErrInvalidSettings)
}
