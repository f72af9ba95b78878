// Package cache deduplicates spellcheck work by text.
//
// ResultCache keeps at most one task per distinct text. The first request for a
// text runs a Loader that builds the task and hands it to the dispatcher; every
// later request for the same text, sync or async, receives that same task until
// the entry expires.
//
// # Basic Usage
//
//	c := cache.New(cache.Options{TTL: 30 * time.Minute})
//	t, err := c.GetOrCreate(ctx, task.AsyncKey(text), func(ctx context.Context, k task.Key) (*task.Task, error) {
//	    t := task.NewAsync(k.Text)
//	    dispatcher.Submit(t)
//	    return t, nil
//	})
//
// # Expiration
//
// Every entry lives a fixed TTL from creation. Expired entries are dropped
// lazily when accessed and periodically by Run. Expiry does not cancel the
// task; callers already holding it still receive its result.
//
// # Concurrency
//
// Creation is race-free: concurrent callers for one text share a single loader
// invocation through singleflight, and the task is stored before the flight
// returns so later callers hit the cache. Loaders for different texts never
// block each other.
//
// # Invalidation
//
// InvalidateAll disposes every cached task. Pending async waiters see a
// cancelled future instead of hanging; sync result slots are cleared.
package cache
