package cache

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Entry is a cached value together with the time it was fetched.
type Entry[V any] struct {
	Value     V
	FetchedAt time.Time
}

// Lookup is the result of a successful [TTL.Get].
//
// Fresh is false when the entry is older than the cache's maximum age. Stale
// values are still returned so callers may show them while refreshing.
type Lookup[V any] struct {
	Value     V
	FetchedAt time.Time
	Fresh     bool
}

// Option configures a [TTL] cache.
type Option func(*options)

type options struct {
	maxEntries int
}

// WithMaxEntries bounds the cache to n entries, evicting the least recently
// used entry when full. Values of n <= 0 leave the cache unbounded.
func WithMaxEntries(n int) Option {
	return func(o *options) {
		o.maxEntries = n
	}
}

// TTL is a keyed cache mapping K to a (value, fetchedAt) pair.
//
// TTL is safe for concurrent use.
type TTL[K comparable, V any] struct {
	maxAge time.Duration

	mu    sync.RWMutex
	items map[K]Entry[V]

	// bounded is set instead of items when WithMaxEntries is used.
	bounded *lru.Cache[K, Entry[V]]
}

// NewTTL creates a cache whose entries are fresh for maxAge after being set.
func NewTTL[K comparable, V any](maxAge time.Duration, opts ...Option) *TTL[K, V] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	c := &TTL[K, V]{maxAge: maxAge}
	if o.maxEntries > 0 {
		// lru.New only fails for non-positive sizes
		bounded, _ := lru.New[K, Entry[V]](o.maxEntries)
		c.bounded = bounded
		return c
	}
	c.items = make(map[K]Entry[V])
	return c
}

// MaxAge returns the freshness threshold of the cache.
func (c *TTL[K, V]) MaxAge() time.Duration {
	return c.maxAge
}

// Get looks up key at time now.
//
// The boolean is false when the key is absent. A present entry is returned
// whether or not it is fresh; check [Lookup.Fresh].
func (c *TTL[K, V]) Get(key K, now time.Time) (Lookup[V], bool) {
	e, ok := c.load(key)
	if !ok {
		return Lookup[V]{}, false
	}
	return Lookup[V]{
		Value:     e.Value,
		FetchedAt: e.FetchedAt,
		Fresh:     !expired(e.FetchedAt, now, c.maxAge),
	}, true
}

// Set stores value for key, recording now as its fetch time.
func (c *TTL[K, V]) Set(key K, value V, now time.Time) {
	e := Entry[V]{Value: value, FetchedAt: now}
	if c.bounded != nil {
		c.bounded.Add(key, e)
		return
	}
	c.mu.Lock()
	c.items[key] = e
	c.mu.Unlock()
}

// IsStale reports whether key must be refetched at time now given maxAge.
// Absent keys are stale.
func (c *TTL[K, V]) IsStale(key K, now time.Time, maxAge time.Duration) bool {
	e, ok := c.load(key)
	if !ok {
		return true
	}
	return expired(e.FetchedAt, now, maxAge)
}

// Entries returns a copy of every entry in the cache, stale ones included.
func (c *TTL[K, V]) Entries() map[K]Entry[V] {
	if c.bounded != nil {
		keys := c.bounded.Keys()
		out := make(map[K]Entry[V], len(keys))
		for _, k := range keys {
			// Peek does not touch recency
			if e, ok := c.bounded.Peek(k); ok {
				out[k] = e
			}
		}
		return out
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[K]Entry[V], len(c.items))
	for k, e := range c.items {
		out[k] = e
	}
	return out
}

// Len returns the number of entries, stale ones included.
func (c *TTL[K, V]) Len() int {
	if c.bounded != nil {
		return c.bounded.Len()
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *TTL[K, V]) load(key K) (Entry[V], bool) {
	if c.bounded != nil {
		return c.bounded.Get(key)
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.items[key]
	return e, ok
}

// expired applies the staleness rule: now - fetchedAt > maxAge.
func expired(fetchedAt, now time.Time, maxAge time.Duration) bool {
	return now.Sub(fetchedAt) > maxAge
}
