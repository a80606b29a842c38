// Package cache holds the identity map and counters shared by the loop-side stores.
package cache

import (
	"sync"
	"sync/atomic"
)

// Cache maps keys to values built on first use. A key is built once, so callers
// may compare cached values by pointer.
type Cache[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]V
}

func New[K comparable, V any]() *Cache[K, V] {
	return &Cache[K, V]{entries: make(map[K]V)}
}

// GetOrCreate returns the value for key, calling create under the lock on a miss.
func (c *Cache[K, V]) GetOrCreate(key K, create func() V) V {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.entries[key]; ok {
		return v
	}
	v := create()
	c.entries[key] = v
	return v
}

func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok
}

func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Counter counts in-flight work. The zero value is ready to use.
type Counter struct {
	n atomic.Int64
}

func (c *Counter) Inc() { c.n.Add(1) }

func (c *Counter) Dec() { c.n.Add(-1) }

func (c *Counter) Value() int { return int(c.n.Load()) }
