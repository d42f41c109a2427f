package catalog

import (
	"sync"
	"time"
)

// DefaultTTL applies to every cached query without its own TTL.
const DefaultTTL = 5 * time.Minute

// SearchTTL applies to product search results.
const SearchTTL = 30 * time.Second

// MaxCacheEntries bounds the cache (LRU eviction).
const MaxCacheEntries = 1000

// Cache is a TTL cache with LRU eviction. Values are shared between callers
// and must be treated as read-only.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]*cacheEntry
	accessList []string // LRU tracking: most recent at end
	maxEntries int
	now        func() time.Time
}

type cacheEntry struct {
	value     any
	expiresAt time.Time
}

// NewCache creates a cache holding at most maxEntries values.
// A nil clock uses time.Now.
func NewCache(maxEntries int, now func() time.Time) *Cache {
	if maxEntries <= 0 {
		maxEntries = MaxCacheEntries
	}
	if now == nil {
		now = time.Now
	}
	return &Cache{
		entries:    make(map[string]*cacheEntry),
		accessList: make([]string, 0, maxEntries),
		maxEntries: maxEntries,
		now:        now,
	}
}

// Get returns a fresh value and its remaining lifetime. Expired entries are
// dropped.
func (c *Cache) Get(key string) (any, time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, 0, false
	}
	remaining := entry.expiresAt.Sub(c.now())
	if remaining <= 0 {
		c.removeLocked(key)
		return nil, 0, false
	}
	c.recordAccessLocked(key)
	return entry.value, remaining, true
}

// Set stores value for ttl, evicting the least recently used entry when full.
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictOldestLocked()
	}
	c.entries[key] = &cacheEntry{value: value, expiresAt: c.now().Add(ttl)}
	c.recordAccessLocked(key)
}

// Len returns the number of entries, including expired ones not yet read.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear removes all entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*cacheEntry)
	c.accessList = make([]string, 0, c.maxEntries)
}

func (c *Cache) recordAccessLocked(key string) {
	for i, k := range c.accessList {
		if k == key {
			c.accessList = append(c.accessList[:i], c.accessList[i+1:]...)
			break
		}
	}
	c.accessList = append(c.accessList, key)
}

func (c *Cache) removeLocked(key string) {
	delete(c.entries, key)
	for i, k := range c.accessList {
		if k == key {
			c.accessList = append(c.accessList[:i], c.accessList[i+1:]...)
			return
		}
	}
}

func (c *Cache) evictOldestLocked() {
	if len(c.accessList) == 0 {
		return
	}
	oldest := c.accessList[0]
	c.accessList = c.accessList[1:]
	delete(c.entries, oldest)
}
