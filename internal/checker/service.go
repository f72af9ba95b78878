package checker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dshills/lynxcheck/internal/cache"
	"github.com/dshills/lynxcheck/internal/debounce"
	"github.com/dshills/lynxcheck/internal/dispatch"
	"github.com/dshills/lynxcheck/internal/engine"
	"github.com/dshills/lynxcheck/internal/future"
	"github.com/dshills/lynxcheck/internal/metrics"
	"github.com/dshills/lynxcheck/internal/task"
	"github.com/dshills/lynxcheck/pkg/types"
)

var (
	// ErrClosed is returned by operations on a closed service
	ErrClosed = errors.New("checker service closed")
	// ErrInvalidSettings is returned for settings that fail validation
	ErrInvalidSettings = errors.New("invalid settings")
)

// Config contains configuration for the checking service
type Config struct {
	Settings

	Endpoint      string // Websocket endpoint (default: engine.DefaultEndpoint)
	AuthURL       string // Credential endpoint (default: engine.DefaultAuthURL)
	Profile       engine.Profile
	Policy        engine.ProtocolErrorPolicy
	DialAttempts  int // Connection attempts per session (default: 1)
	CacheCapacity int
	Modal         bool // Sync checks ignore caller cancellation

	// Progress receives a status line whenever a sync check starts
	Progress func(status string)

	// Optional overrides. Auth and Dialer default to the real service;
	// Sessions replaces the protocol session entirely.
	Auth     engine.Credentialer
	Dialer   engine.Dialer
	Sessions dispatch.Factory

	Clock   func() time.Time
	Logger  *zap.Logger
	Metrics *metrics.Collector
}

// Service is the host-facing entry point of the checking core.
// It owns the result cache, the dispatcher and the debouncer; callers create
// one per process and pass it where it is needed.
type Service struct {
	cfg     Config
	auth    engine.Credentialer
	dialer  engine.Dialer
	logger  *zap.Logger
	metrics *metrics.Collector

	mu         sync.RWMutex
	settings   Settings
	cache      *cache.ResultCache
	dispatcher *dispatch.Dispatcher
	debouncer  *debounce.Debouncer[string, types.CheckResult]
	stopSweep  context.CancelFunc
	closed     bool

	sweeps sync.WaitGroup
}

// New creates a Service and starts its cache sweep loop
func New(cfg Config) (*Service, error) {
	cfg.Settings = cfg.Settings.withDefaults()
	if err := cfg.Settings.Validate(); err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	s := &Service{
		cfg:     cfg,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
	}
	if cfg.Sessions == nil {
		s.auth = cfg.Auth
		if s.auth == nil {
			s.auth = engine.NewAuthCache(engine.AuthConfig{
				URL:     cfg.AuthURL,
				Profile: cfg.Profile,
				Clock:   cfg.Clock,
				Logger:  cfg.Logger.Named("auth"),
				Metrics: cfg.Metrics,
			})
		}
		s.dialer = cfg.Dialer
		if s.dialer == nil {
			s.dialer = engine.NewDialer(engine.DialerConfig{
				Retry:  engine.RetryConfig{Attempts: cfg.DialAttempts},
				Logger: cfg.Logger.Named("dialer"),
			})
		}
	}

	s.install(cfg.Settings)
	return s, nil
}

// install builds the cache, dispatcher and debouncer for settings.
// Callers hold s.mu or own s exclusively.
func (s *Service) install(settings Settings) {
	s.settings = settings
	s.cache = cache.New(cache.Options{
		TTL:      settings.CacheLifespan,
		Capacity: s.cfg.CacheCapacity,
		Clock:    s.cfg.Clock,
		Logger:   s.logger.Named("cache"),
		Metrics:  s.metrics,
	})
	s.dispatcher = dispatch.New(s.sessionFactory(), dispatch.Config{
		Parallelism: settings.Parallelism,
		Progress:    s.cfg.Progress,
		Logger:      s.logger.Named("dispatch"),
		Metrics:     s.metrics,
	})
	if s.debouncer == nil || s.debouncer.Interval() != settings.DebounceInterval {
		s.debouncer = debounce.New[string, types.CheckResult](settings.DebounceInterval, debounce.WithClock(s.cfg.Clock))
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.stopSweep = cancel
	s.sweeps.Add(1)
	go func(c *cache.ResultCache) {
		defer s.sweeps.Done()
		c.Run(ctx)
	}(s.cache)
}

func (s *Service) sessionFactory() dispatch.Factory {
	if s.cfg.Sessions != nil {
		return s.cfg.Sessions
	}
	logger := s.logger.Named("session")
	return func() dispatch.Runner {
		return engine.NewSession(engine.SessionConfig{
			Endpoint: s.cfg.Endpoint,
			Profile:  s.cfg.Profile,
			Auth:     s.auth,
			Dialer:   s.dialer,
			Policy:   s.cfg.Policy,
			Logger:   logger,
			Metrics:  s.metrics,
		})
	}
}

// snapshot returns the current components under the read lock
func (s *Service) snapshot() (*cache.ResultCache, *dispatch.Dispatcher, *debounce.Debouncer[string, types.CheckResult], bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cache, s.dispatcher, s.debouncer, s.closed
}

// CheckAsync returns a future for the result of checking text.
// Equal texts share one cached task. Blank text resolves to EMPTY at once.
func (s *Service) CheckAsync(ctx context.Context, text string) *future.Future[types.CheckResult] {
	if isBlank(text) {
		return future.Completed(types.EMPTY)
	}
	c, d, _, closed := s.snapshot()
	if closed {
		return future.Completed(types.EMPTY)
	}

	t, _, err := s.obtain(ctx, c, d, task.AsyncKey(text))
	if err != nil {
		s.logger.Warn("async check not scheduled", zap.Error(err))
		return future.Completed(types.EMPTY)
	}

	out := future.New[types.CheckResult]()
	src := t.Future()
	go func() {
		res, err := src.Wait(context.Background())
		if err != nil {
			out.Fail(err)
			return
		}
		out.Complete(s.observe(c, t, res))
	}()
	return out
}

// CheckAsyncDebounced is CheckAsync delayed until identity has been quiet for
// the debounce interval. Only the latest text registered for an identity is
// checked. An empty identity checks immediately.
func (s *Service) CheckAsyncDebounced(ctx context.Context, identity, text string) *future.Future[types.CheckResult] {
	if identity == "" {
		return s.CheckAsync(ctx, text)
	}
	_, _, deb, closed := s.snapshot()
	if closed {
		return future.Completed(types.EMPTY)
	}
	return deb.DebounceFuture(identity, func() *future.Future[types.CheckResult] {
		return s.CheckAsync(ctx, text)
	})
}

// CheckSync checks text on a dedicated session and blocks until the result
// is known. It returns EMPTY for blank text, on cancellation and when the
// session gave up on the task without a result.
func (s *Service) CheckSync(ctx context.Context, text string) types.CheckResult {
	if isBlank(text) {
		return types.EMPTY
	}
	c, d, _, closed := s.snapshot()
	if closed {
		return types.EMPTY
	}

	t, created, err := s.obtain(ctx, c, d, task.SyncKey(text))
	if err != nil {
		s.logger.Warn("sync check not scheduled", zap.Error(err))
		return types.EMPTY
	}

	if created {
		err = d.SubmitSync(ctx, t)
	} else {
		_, err = t.Wait(ctx)
	}
	if err != nil {
		s.logger.Debug("sync check interrupted", zap.Error(err))
		return types.EMPTY
	}
	return s.observe(c, t, t.Result())
}

// LookUp returns the cached result for text without blocking, or EMPTY
func (s *Service) LookUp(text string) types.CheckResult {
	c, _, _, _ := s.snapshot()
	return s.present(c.Lookup(text))
}

// CleanUp disposes every cached task
func (s *Service) CleanUp() {
	c, _, _, _ := s.snapshot()
	c.InvalidateAll()
}

// Settings returns the settings currently in effect
func (s *Service) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Status describes the runtime state of the service
type Status struct {
	CacheEntries   int
	ActiveSessions int
	PendingTasks   int
	Parallelism    int
	CacheLifespan  time.Duration
	Debouncing     int
}

// Status reports cache and dispatcher occupancy
func (s *Service) Status() Status {
	c, d, deb, _ := s.snapshot()
	return Status{
		CacheEntries:   c.Len(),
		ActiveSessions: d.Active(),
		PendingTasks:   d.Pending(),
		Parallelism:    d.Parallelism(),
		CacheLifespan:  c.TTL(),
		Debouncing:     deb.Pending(),
	}
}

// Reconfigure applies new settings. A change of lifespan or parallelism
// replaces the cache and the dispatcher; the old cache is invalidated and
// the old dispatcher drained within ctx.
func (s *Service) Reconfigure(ctx context.Context, settings Settings) error {
	settings = settings.withDefaults()
	if err := settings.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	prev := s.settings
	if prev.CacheLifespan == settings.CacheLifespan &&
		prev.Parallelism == settings.Parallelism &&
		prev.DebounceInterval == settings.DebounceInterval {
		s.settings = settings
		s.mu.Unlock()
		return nil
	}
	oldCache, oldDispatcher, oldDebouncer, stop := s.cache, s.dispatcher, s.debouncer, s.stopSweep
	s.install(settings)
	s.mu.Unlock()

	s.logger.Info("checker reconfigured",
		zap.Duration("cache_lifespan", settings.CacheLifespan),
		zap.Int("parallelism", settings.Parallelism),
		zap.Duration("debounce_interval", settings.DebounceInterval))

	stop()
	if oldDebouncer != s.currentDebouncer() {
		oldDebouncer.Close()
	}
	oldCache.InvalidateAll()
	if err := oldDispatcher.Close(ctx); err != nil {
		return fmt.Errorf("failed to drain previous dispatcher: %w", err)
	}
	return nil
}

// Close cancels pending work and waits for running sessions within ctx
func (s *Service) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	c, d, deb, stop := s.cache, s.dispatcher, s.debouncer, s.stopSweep
	s.mu.Unlock()

	deb.Close()
	stop()
	s.sweeps.Wait()
	c.InvalidateAll()
	return d.Close(ctx)
}

func (s *Service) currentDebouncer() *debounce.Debouncer[string, types.CheckResult] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.debouncer
}

// obtain returns the cached task for key, creating and dispatching it when
// missing. created reports whether this call built the task; a sync task is
// built here but submitted by the caller, which then blocks on it.
func (s *Service) obtain(ctx context.Context, c *cache.ResultCache, d *dispatch.Dispatcher, key task.Key) (t *task.Task, created bool, err error) {
	t, err = c.GetOrCreate(ctx, key, func(_ context.Context, key task.Key) (*task.Task, error) {
		created = true
		if key.Sync {
			if s.cfg.Modal {
				return task.NewSyncModal(key.Text), nil
			}
			return task.NewSync(key.Text), nil
		}
		nt := task.NewAsync(key.Text)
		if err := d.Submit(nt); err != nil {
			return nil, err
		}
		return nt, nil
	})
	return t, created, err
}

// observe evicts failed results so that the next request retries, and
// prepares the result for the caller
func (s *Service) observe(c *cache.ResultCache, t *task.Task, res types.CheckResult) types.CheckResult {
	if res.Failed() {
		if cached, ok := c.Peek(t.Text()); ok && cached == t {
			c.Invalidate(t.Text())
		}
		s.logger.Debug("failed result evicted", zap.Error(res.Err))
	}
	return s.present(res)
}

// present drops the diagnostic log unless extended logging is on
func (s *Service) present(res types.CheckResult) types.CheckResult {
	if res.Log == "" {
		return res
	}
	if s.Settings().ExtendedLogging {
		return res
	}
	s.logger.Debug("check log", zap.String("log", res.Log))
	res.Log = ""
	return res
}

func isBlank(text string) bool {
	return strings.TrimSpace(text) == ""
}
