package cloud

import (
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

type cacheEntry struct {
	body       []byte
	capturedAt time.Time
	extendedTo time.Time
}

// Cache holds JSON GET responses keyed by method and resolved path.
//
// An entry older than the caller's maxAge is stale. The first caller to see
// it stale pushes its freshness forward by the grace window and goes to the
// network; callers arriving inside that window reuse the stale body. Fetches
// that find no usable entry are also coalesced per key through a
// singleflight group.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry
	grace   time.Duration
	now     func() time.Time

	flight singleflight.Group
}

// NewCache creates a cache. A nil now uses time.Now.
func NewCache(grace time.Duration, now func() time.Time) *Cache {
	if now == nil {
		now = time.Now
	}
	return &Cache{
		entries: make(map[string]*cacheEntry),
		grace:   grace,
		now:     now,
	}
}

func cacheKey(method, path string) string {
	return method + ":" + path
}

// Lookup returns the cached body when it is within maxAge or inside a
// freshness extension. A stale entry is extended once and reported as a
// miss so exactly one caller refreshes it. maxAge <= 0 always misses.
func (c *Cache) Lookup(key string, maxAge time.Duration) ([]byte, bool) {
	if maxAge <= 0 {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}

	now := c.now()
	if now.Sub(entry.capturedAt) <= maxAge || now.Before(entry.extendedTo) {
		return entry.body, true
	}

	entry.extendedTo = now.Add(c.grace)
	return nil, false
}

// Store records a body under key, replacing any previous entry.
func (c *Cache) Store(key string, body []byte) {
	stored := make([]byte, len(body))
	copy(stored, body)

	c.mu.Lock()
	c.entries[key] = &cacheEntry{body: stored, capturedAt: c.now()}
	c.mu.Unlock()
}

// Invalidate deletes the entry for key.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]*cacheEntry)
	c.mu.Unlock()
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
