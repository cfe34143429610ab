// Package cache is a process-local key/value cache with per-key expiry.
package cache

import (
	"strings"
	"sync"
	"time"
)

type entry struct {
	value []byte
	timer *time.Timer
}

// Cache stores response bodies until their TTL elapses or they are
// invalidated. The zero value is not usable; call New.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	ttl     time.Duration
}

// New returns an empty cache whose entries live for ttl unless Set is given
// another duration.
func New(ttl time.Duration) *Cache {
	return &Cache{
		entries: make(map[string]*entry),
		ttl:     ttl,
	}
}

// TTL returns the default lifetime of entries.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Set stores value under key. Any previous entry and its expiry timer are
// replaced. A non-positive ttl uses the default.
func (c *Cache) Set(key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.ttl
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.entries[key]; ok {
		old.timer.Stop()
	}

	e := &entry{value: value}
	e.timer = time.AfterFunc(ttl, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		// A later Set may have replaced this entry.
		if c.entries[key] == e {
			delete(c.entries, key)
		}
	})
	c.entries[key] = e
}

// Get returns the value stored under key.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return e.value, true
}

// Has reports whether key is cached.
func (c *Cache) Has(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// Invalidate removes every key containing substr and returns how many were
// removed.
func (c *Cache) Invalidate(substr string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for key, e := range c.entries {
		if strings.Contains(key, substr) {
			e.timer.Stop()
			delete(c.entries, key)
			n++
		}
	}
	return n
}

// Len returns the number of cached keys.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
