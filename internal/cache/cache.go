package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/dshills/lynxcheck/internal/metrics"
	"github.com/dshills/lynxcheck/internal/task"
	"github.com/dshills/lynxcheck/pkg/types"
)

const (
	// DefaultTTL is how long a task stays cached after creation
	DefaultTTL = 30 * time.Minute
	// DefaultCapacity bounds the number of cached tasks
	DefaultCapacity = 10000
	// maxSweepInterval caps the period of the background sweep
	maxSweepInterval = time.Minute
)

// ErrNilTask is returned when a loader reports success without a task
var ErrNilTask = errors.New("loader returned nil task")

// Loader builds and dispatches the task for a key that is not cached yet.
// It runs at most once per key among concurrent callers.
type Loader func(ctx context.Context, key task.Key) (*task.Task, error)

// Options configures a ResultCache
type Options struct {
	TTL      time.Duration
	Capacity int
	Clock    func() time.Time // Defaults to time.Now
	Logger   *zap.Logger
	Metrics  *metrics.Collector
}

// entry is a cached task with its expiration time
type entry struct {
	task      *task.Task
	expiresAt time.Time
}

// ResultCache maps texts to in-flight or completed tasks.
// Entries expire a fixed TTL after creation; expired entries are dropped on
// access and by Sweep. Capacity eviction only drops settled or expired
// entries, so the cache may hold more than Capacity pending tasks until they
// settle.
type ResultCache struct {
	mu       sync.Mutex
	entries  *lru.Cache[string, *entry]
	flight   singleflight.Group
	capacity int
	ttl      time.Duration
	now     func() time.Time
	logger  *zap.Logger
	metrics *metrics.Collector
}

// New creates a ResultCache
func New(opts Options) *ResultCache {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Capacity <= 0 {
		opts.Capacity = DefaultCapacity
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	entries, err := lru.New[string, *entry](opts.Capacity)
	if err != nil {
		// Should never happen with positive size, but fallback to default
		entries, _ = lru.New[string, *entry](DefaultCapacity)
	}
	return &ResultCache{
		entries:  entries,
		capacity: opts.Capacity,
		ttl:      opts.TTL,
		now:      opts.Clock,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
	}
}

// TTL returns the configured entry lifespan
func (c *ResultCache) TTL() time.Duration {
	return c.ttl
}

// GetOrCreate returns the live task cached for key, or runs loader to build one.
// Concurrent callers with equal keys share a single loader invocation and
// receive the same task, whichever of them asked for sync or async dispatch.
func (c *ResultCache) GetOrCreate(ctx context.Context, key task.Key, loader Loader) (*task.Task, error) {
	id := key.ID()
	if t := c.get(id); t != nil {
		c.metrics.CacheHit()
		return t, nil
	}

	v, err, _ := c.flight.Do(id, func() (interface{}, error) {
		// Another caller may have stored the task between our miss and this flight
		if t := c.get(id); t != nil {
			c.metrics.CacheHit()
			return t, nil
		}
		c.metrics.CacheMiss()

		t, err := loader(ctx, key)
		if err != nil {
			return nil, err
		}
		if t == nil {
			return nil, ErrNilTask
		}
		c.put(id, t)
		return t, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load task: %w", err)
	}
	return v.(*task.Task), nil
}

// Lookup returns the result cached for text without blocking.
// It returns EMPTY if no task exists or the task is still pending.
func (c *ResultCache) Lookup(text string) types.CheckResult {
	t := c.get(text)
	if t == nil || !t.IsComplete() {
		return types.EMPTY
	}
	return t.Result()
}

// Peek returns the cached task for text, if any, without creating one
func (c *ResultCache) Peek(text string) (*task.Task, bool) {
	t := c.get(text)
	return t, t != nil
}

// Invalidate drops the entry for text without disposing its task
func (c *ResultCache) Invalidate(text string) {
	c.mu.Lock()
	c.entries.Remove(text)
	n := c.entries.Len()
	c.mu.Unlock()
	c.metrics.CacheEntries(n)
}

// InvalidateAll disposes every cached task and empties the cache.
// Pending async callers observe a cancelled future; sync slots are cleared.
func (c *ResultCache) InvalidateAll() {
	c.mu.Lock()
	tasks := make([]*task.Task, 0, c.entries.Len())
	for _, e := range c.entries.Values() {
		tasks = append(tasks, e.task)
	}
	c.entries.Purge()
	c.mu.Unlock()

	for _, t := range tasks {
		t.Dispose()
	}
	c.metrics.CacheEntries(0)
	c.logger.Debug("result cache invalidated", zap.Int("tasks", len(tasks)))
}

// Sweep removes every expired entry and returns how many were dropped
func (c *ResultCache) Sweep() int {
	now := c.now()

	c.mu.Lock()
	removed := 0
	for _, key := range c.entries.Keys() {
		e, ok := c.entries.Peek(key)
		if ok && !now.Before(e.expiresAt) {
			c.entries.Remove(key)
			removed++
		}
	}
	c.shrinkLocked(now)
	n := c.entries.Len()
	c.mu.Unlock()

	c.metrics.CacheEntries(n)
	return removed
}

// Run sweeps expired entries periodically until ctx is done
func (c *ResultCache) Run(ctx context.Context) {
	interval := c.ttl / 2
	if interval > maxSweepInterval {
		interval = maxSweepInterval
	}
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := c.Sweep(); removed > 0 {
				c.logger.Debug("expired cache entries swept", zap.Int("removed", removed))
			}
		}
	}
}

// Len returns the number of cached entries, expired ones included until swept
func (c *ResultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}

// get returns the live task for id, dropping it if expired
func (c *ResultCache) get(id string) *task.Task {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries.Get(id)
	if !ok {
		return nil
	}
	if !now.Before(e.expiresAt) {
		c.entries.Remove(id)
		return nil
	}
	return e.task
}

func (c *ResultCache) put(id string, t *task.Task) {
	now := c.now()

	c.mu.Lock()
	if !c.entries.Contains(id) && c.entries.Len() >= c.capacity && !c.evictLocked(now) {
		// Every entry is still pending: grow rather than drop one
		c.entries.Resize(c.entries.Len() + 1)
	}
	c.entries.Add(id, &entry{task: t, expiresAt: now.Add(c.ttl)})
	n := c.entries.Len()
	c.mu.Unlock()
	c.metrics.CacheEntries(n)
}

// evictLocked removes the least recently used settled entry
func (c *ResultCache) evictLocked(now time.Time) bool {
	for _, key := range c.entries.Keys() {
		e, ok := c.entries.Peek(key)
		if ok && e.evictable(now) {
			c.entries.Remove(key)
			return true
		}
	}
	return false
}

// shrinkLocked drops settled entries beyond capacity and returns the cache
// to its configured size once the overflow has settled
func (c *ResultCache) shrinkLocked(now time.Time) {
	for c.entries.Len() > c.capacity {
		if !c.evictLocked(now) {
			break
		}
	}
	size := c.entries.Len()
	if size < c.capacity {
		size = c.capacity
	}
	c.entries.Resize(size)
}

func (e *entry) evictable(now time.Time) bool {
	return !now.Before(e.expiresAt) || e.task.IsComplete() || e.task.Disposed()
}
