// Package cache provides a minimal expiring key/value map.
//
// Entries are never evicted in the background; an expired entry is
// ignored on read and reclaimed only when overwritten. Unbounded growth
// is an accepted limitation for the cache sizes this service sees.
package cache

import (
	"sync"
	"time"
)

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTL is a concurrency-safe map whose entries expire after a per-entry
// duration. The zero value is not usable; construct with New or NewWithClock.
type TTL[K comparable, V any] struct {
	mu      sync.RWMutex
	clock   Clock
	entries map[K]entry[V]
}

// New creates an empty cache using the wall clock.
func New[K comparable, V any]() *TTL[K, V] {
	return NewWithClock[K, V](realClock{})
}

// NewWithClock creates an empty cache with a custom clock (for testing).
func NewWithClock[K comparable, V any](clock Clock) *TTL[K, V] {
	return &TTL[K, V]{
		clock:   clock,
		entries: make(map[K]entry[V]),
	}
}

// Get returns the value for key. The second return is false when the key
// is absent or its entry has expired.
func (c *TTL[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || !c.clock.Now().Before(e.expiresAt) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Put inserts or overwrites key with value, expiring ttl from now.
// Last writer wins on concurrent puts for the same key.
func (c *TTL[K, V]) Put(key K, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry[V]{
		value:     value,
		expiresAt: c.clock.Now().Add(ttl),
	}
}

// Len reports the number of entries that have not yet expired.
func (c *TTL[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := c.clock.Now()
	n := 0
	for _, e := range c.entries {
		if now.Before(e.expiresAt) {
			n++
		}
	}
	return n
}
