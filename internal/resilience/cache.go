package resilience

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"
)

type cacheEntry struct {
	data     interface{}
	storedAt time.Time
}

// Cache is a time-boxed in-memory response cache keyed by (source, params).
// Freshness is decided per read: an expired entry is a silent miss and is
// only reclaimed when overwritten. Callers must pass the intended TTL for a
// given source consistently or reads will appear stale/fresh inconsistently.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry

	now func() time.Time
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// Key derives the cache key for (source, params) as an MD5 hex digest of
// the source joined with the JSON encoding of params. encoding/json writes
// map keys in sorted order, so the key is parameter-order independent.
func (c *Cache) Key(source string, params map[string]string) string {
	encoded, _ := json.Marshal(params)
	sum := md5.Sum([]byte(source + ":" + string(encoded)))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached value for (source, params) if it was stored less
// than maxAge ago. The second return is false on a total miss or when the
// entry is older than maxAge.
func (c *Cache) Get(source string, params map[string]string, maxAge time.Duration) (interface{}, bool) {
	key := c.Key(source, params)

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if c.now().Sub(entry.storedAt) >= maxAge {
		return nil, false
	}
	return entry.data, true
}

// Set stores data for (source, params) unconditionally, overwriting any
// prior entry for the same key.
func (c *Cache) Set(source string, params map[string]string, data interface{}) {
	key := c.Key(source, params)

	c.mu.Lock()
	c.entries[key] = cacheEntry{data: data, storedAt: c.now()}
	c.mu.Unlock()
}

// Len returns the number of entries currently held, expired or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
