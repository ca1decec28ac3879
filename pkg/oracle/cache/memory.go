package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryCache is the in-process cache backend. A read past the TTL still
// returns the value tagged stale until the retention horizon passes; a
// slightly stale refresh race between two requests costs one extra adapter
// call, not correctness, so reads and writes take no common critical section.
type MemoryCache struct {
	mu        sync.RWMutex
	entries   map[string]memoryEntry
	ttl       time.Duration
	retention time.Duration
}

type memoryEntry struct {
	value      []byte
	insertedAt time.Time
}

// NewMemoryCache creates an in-process cache with the given TTL and stale
// retention horizon. retention below ttl is raised to ttl.
func NewMemoryCache(ttl, retention time.Duration) *MemoryCache {
	if retention < ttl {
		retention = ttl
	}
	return &MemoryCache{
		entries:   make(map[string]memoryEntry),
		ttl:       ttl,
		retention: retention,
	}
}

// Get implements Cache.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false, false
	}

	age := time.Since(entry.insertedAt)
	if age >= c.retention {
		c.mu.Lock()
		// Re-check under the write lock; a fresher entry may have landed.
		if current, ok := c.entries[key]; ok && time.Since(current.insertedAt) >= c.retention {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false, false
	}

	return entry.value, true, age >= c.ttl
}

// Put implements Cache.
func (c *MemoryCache) Put(_ context.Context, key string, value []byte) {
	c.mu.Lock()
	c.entries[key] = memoryEntry{value: value, insertedAt: time.Now()}
	c.mu.Unlock()
}

// Len returns the number of retained entries.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close implements Cache. It drops all entries so no state leaks across
// restarts or test runs.
func (c *MemoryCache) Close() error {
	c.mu.Lock()
	c.entries = make(map[string]memoryEntry)
	c.mu.Unlock()
	return nil
}
