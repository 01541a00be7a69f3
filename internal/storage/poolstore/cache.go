package poolstore

import (
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// cacheEntry wraps a cached record with its expiry deadline.
type cacheEntry struct {
	rec       *Record
	expiresAt time.Time
	size      int
}

func (e *cacheEntry) expired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// Cache keeps recently fetched records in memory. Recency is tracked by an
// LRU list; entries additionally expire after the configured TTL so a record
// rewritten by another process is not served stale forever.
type Cache struct {
	mu sync.RWMutex

	maxSize int
	ttl     time.Duration

	inner *simplelru.LRU[Key, *cacheEntry]

	hits         uint64
	misses       uint64
	evictions    uint64
	expirations  uint64
	currentBytes int
}

// NewCache creates a cache holding at most maxSize entries, each valid for
// ttl after insertion. maxSize is clamped to at least one entry.
func NewCache(maxSize int, ttl time.Duration) *Cache {
	if maxSize < 1 {
		maxSize = 1
	}

	c := &Cache{
		maxSize: maxSize,
		ttl:     ttl,
	}

	// The callback runs under c.mu on every removal path, so byte
	// accounting stays consistent no matter why an entry leaves.
	inner, _ := simplelru.NewLRU(maxSize, func(_ Key, e *cacheEntry) {
		c.currentBytes -= e.size
	})
	c.inner = inner

	return c
}

// Get returns the cached record for key, or nil and false on a miss.
// Expired entries are removed and count as misses.
func (c *Cache) Get(key Key) (*Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, found := c.inner.Get(key)
	if !found {
		c.misses++
		return nil, false
	}

	if entry.expired(time.Now()) {
		c.inner.Remove(key)
		c.expirations++
		c.misses++
		return nil, false
	}

	c.hits++
	return entry.rec, true
}

// Put stores a record, replacing any entry already held under its key.
func (c *Cache) Put(rec *Record) {
	if rec == nil {
		return
	}

	entry := &cacheEntry{
		rec:       rec,
		expiresAt: time.Now().Add(c.ttl),
		size:      rec.Size(),
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Drop a same-key entry first so Add below only ever evicts for
	// capacity.
	c.inner.Remove(rec.Key)

	if c.inner.Add(rec.Key, entry) {
		c.evictions++
	}
	c.currentBytes += entry.size
}

// Remove drops the entry for key, if present.
func (c *Cache) Remove(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inner.Remove(key)
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inner.Purge()
	c.currentBytes = 0
}

// Sweep removes expired entries and returns how many were dropped. The store
// runs this periodically so idle pools do not pin memory.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0

	for _, key := range c.inner.Keys() {
		entry, found := c.inner.Peek(key)
		if !found || !entry.expired(now) {
			continue
		}
		c.inner.Remove(key)
		c.expirations++
		removed++
	}

	return removed
}

// Stats returns cache counters.
func (c *Cache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return CacheStats{
		Hits:         c.hits,
		Misses:       c.misses,
		Evictions:    c.evictions,
		Expirations:  c.expirations,
		CurrentSize:  c.inner.Len(),
		CurrentBytes: c.currentBytes,
		MaxSize:      c.maxSize,
		TTL:          c.ttl,
	}
}

// Size returns the current number of entries.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.inner.Len()
}

// ByteSize returns the total payload bytes currently held.
func (c *Cache) ByteSize() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.currentBytes
}

// SetTTL changes the TTL for entries stored after the call. Existing entries
// keep their original deadline.
func (c *Cache) SetTTL(ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ttl = ttl
}

// SetMaxSize changes the capacity, evicting the least recently used entries
// when shrinking below the current size.
func (c *Cache) SetMaxSize(maxSize int) {
	if maxSize < 1 {
		maxSize = 1
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.maxSize = maxSize
	c.evictions += uint64(c.inner.Resize(maxSize))
}

// CacheStats holds cache counters.
type CacheStats struct {
	Hits         uint64
	Misses       uint64
	Evictions    uint64
	Expirations  uint64
	CurrentSize  int
	CurrentBytes int
	MaxSize      int
	TTL          time.Duration
}

// HitRate returns the hit rate as a percentage.
func (s CacheStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

// String formats the counters for log output.
func (s CacheStats) String() string {
	return fmt.Sprintf("cache %d/%d entries (%d bytes), %d hits, %d misses (%.1f%%), %d evicted, %d expired, ttl %v",
		s.CurrentSize, s.MaxSize, s.CurrentBytes,
		s.Hits, s.Misses, s.HitRate(),
		s.Evictions, s.Expirations, s.TTL)
}
