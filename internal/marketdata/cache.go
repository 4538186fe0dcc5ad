package marketdata

import (
	"sync"
	"time"
)

type cacheEntry[T any] struct {
	data     T
	storedAt time.Time
}

// Cache is an in-memory TTL map. An entry is fresh while now - storedAt < ttl;
// stale entries are dropped on read.
type Cache[T any] struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	items map[string]cacheEntry[T]
}

func NewCache[T any](ttl time.Duration, now func() time.Time) *Cache[T] {
	if now == nil {
		now = time.Now
	}
	return &Cache[T]{
		ttl:   ttl,
		now:   now,
		items: make(map[string]cacheEntry[T]),
	}
}

func (c *Cache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	entry, ok := c.items[key]
	if !ok {
		return zero, false
	}
	if c.now().Sub(entry.storedAt) >= c.ttl {
		delete(c.items, key)
		return zero, false
	}
	return entry.data, true
}

func (c *Cache[T]) Set(key string, data T) {
	c.mu.Lock()
	c.items[key] = cacheEntry[T]{data: data, storedAt: c.now()}
	c.mu.Unlock()
}

func (c *Cache[T]) Clear() {
	c.mu.Lock()
	c.items = make(map[string]cacheEntry[T])
	c.mu.Unlock()
}

// Len counts stored entries, fresh or not.
func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
