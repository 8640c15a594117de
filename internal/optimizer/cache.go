package optimizer

import (
	"encoding/binary"
	"sync"
)

// CacheStats reports objective cache activity.
type CacheStats struct {
	Entries int
	Hits    uint64
	Misses  uint64
	Clears  uint64
}

// Cache memoizes scores by allocation. When the entry count exceeds the
// ceiling the whole table is dropped; there is no per-entry eviction.
type Cache struct {
	mu      sync.Mutex
	entries map[string]float64
	max     int

	hits, misses, clears uint64
}

// NewCache returns an empty cache holding at most size entries.
func NewCache(size int) *Cache {
	return &Cache{
		entries: make(map[string]float64),
		max:     size,
	}
}

// cacheKey encodes an allocation as an order-sensitive byte string. Varint
// encoding is prefix free, so distinct allocations give distinct keys.
func cacheKey(allocation []int) string {
	buf := make([]byte, 0, len(allocation)+1)
	for _, a := range allocation {
		buf = binary.AppendVarint(buf, int64(a))
	}
	return string(buf)
}

// Get returns the cached score of key.
func (c *Cache) Get(key string) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return v, ok
}

// Put stores a score, clearing the table if it grew past the ceiling.
func (c *Cache) Put(key string, score float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = score
	if len(c.entries) > c.max {
		clear(c.entries)
		c.clears++
	}
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{
		Entries: len(c.entries),
		Hits:    c.hits,
		Misses:  c.misses,
		Clears:  c.clears,
	}
}
