package cache

import (
	"container/list"
	"sync"
	"time"
)

// hybridEntry is one cache entry on the recency list.
type hybridEntry[V any] struct {
	key        string
	value      V
	insertedAt time.Time
	accessedAt time.Time
}

// expired reports whether the entry's age exceeds ttl. A zero ttl never
// expires.
func (e *hybridEntry[V]) expired(ttl time.Duration, now time.Time) bool {
	if ttl <= 0 {
		return false
	}
	return now.Sub(e.insertedAt) > ttl
}

// hybridCache combines LRU and TTL eviction. Items are evicted either when
// the cache exceeds its maximum size (LRU) or when they outlive the TTL,
// whichever comes first. TTL is checked lazily on access rather than by a
// background sweeper.
type hybridCache[V any] struct {
	mu      sync.Mutex
	maxSize int           // 0 = unbounded
	ttl     time.Duration // 0 = no expiry
	items   map[string]*list.Element
	order   *list.List // front = most recently used
	stats   *Statistics
	metrics *cacheMetrics
	evictFn EvictCallback[V]
}

func newHybridCache[V any](maxSize int, ttl time.Duration, opts *cacheOptions[V]) (*hybridCache[V], error) {
	var metrics *cacheMetrics
	if opts.metricsReg != nil && opts.metricsPrefix != "" {
		var err error
		metrics, err = newCacheMetrics(opts.metricsReg, opts.metricsPrefix)
		if err != nil {
			return nil, err
		}
	}

	return &hybridCache[V]{
		maxSize: maxSize,
		ttl:     ttl,
		items:   make(map[string]*list.Element),
		order:   list.New(),
		stats:   NewStatistics(),
		metrics: metrics,
		evictFn: opts.evictCallback,
	}, nil
}

// Get retrieves a value by key. An expired entry is removed and reported as
// a miss; a live entry is promoted to most recently used.
func (c *hybridCache[V]) Get(key string) (V, bool) {
	var evicted *hybridEntry[V]

	c.mu.Lock()

	element, exists := c.items[key]
	if !exists {
		c.stats.Miss()
		if c.metrics != nil {
			c.metrics.recordMiss()
		}
		c.mu.Unlock()
		var zero V
		return zero, false
	}

	entry := element.Value.(*hybridEntry[V])
	if entry.expired(c.ttl, time.Now()) {
		c.removeElement(element)
		c.stats.Eviction()
		c.stats.Miss()
		c.stats.UpdateSize(int64(len(c.items)))
		if c.metrics != nil {
			c.metrics.recordEviction()
			c.metrics.recordMiss()
			c.metrics.updateSize(len(c.items))
		}
		evicted = entry
		c.mu.Unlock()

		if c.evictFn != nil {
			c.evictFn(evicted.key, evicted.value)
		}
		var zero V
		return zero, false
	}

	entry.accessedAt = time.Now()
	c.order.MoveToFront(element)
	c.stats.Hit()
	if c.metrics != nil {
		c.metrics.recordHit()
	}
	value := entry.value
	c.mu.Unlock()

	return value, true
}

// Set stores a value, refreshing insertion time, expiry, and recency. If the
// key is new and the cache is at capacity, the least recently used entry is
// evicted first.
func (c *hybridCache[V]) Set(key string, value V) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}

	now := time.Now()
	var evicted *hybridEntry[V]

	c.mu.Lock()

	if element, exists := c.items[key]; exists {
		entry := element.Value.(*hybridEntry[V])
		entry.value = value
		entry.insertedAt = now
		entry.accessedAt = now
		c.order.MoveToFront(element)

		c.stats.Set()
		if c.metrics != nil {
			c.metrics.recordSet()
		}
		c.mu.Unlock()
		return false, nil
	}

	entry := &hybridEntry[V]{key: key, value: value, insertedAt: now, accessedAt: now}
	element := c.order.PushFront(entry)
	c.items[key] = element

	if c.maxSize > 0 && len(c.items) > c.maxSize {
		evicted = c.evictLRU()
	}

	c.stats.Set()
	c.stats.UpdateSize(int64(len(c.items)))
	if c.metrics != nil {
		c.metrics.recordSet()
		c.metrics.updateSize(len(c.items))
	}
	c.mu.Unlock()

	if evicted != nil && c.evictFn != nil {
		c.evictFn(evicted.key, evicted.value)
	}

	return true, nil
}

// Delete removes an entry by key.
func (c *hybridCache[V]) Delete(key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}

	c.mu.Lock()

	element, exists := c.items[key]
	if !exists {
		c.mu.Unlock()
		return false, nil
	}

	entry := element.Value.(*hybridEntry[V])
	c.removeElement(element)

	c.stats.Delete()
	c.stats.UpdateSize(int64(len(c.items)))
	if c.metrics != nil {
		c.metrics.recordDelete()
		c.metrics.updateSize(len(c.items))
	}
	c.mu.Unlock()

	if c.evictFn != nil {
		c.evictFn(entry.key, entry.value)
	}

	return true, nil
}

// Clear removes all entries from the cache.
func (c *hybridCache[V]) Clear() error {
	var entries []*hybridEntry[V]

	c.mu.Lock()
	if c.evictFn != nil {
		entries = make([]*hybridEntry[V], 0, len(c.items))
		for element := c.order.Back(); element != nil; element = element.Prev() {
			entries = append(entries, element.Value.(*hybridEntry[V]))
		}
	}

	c.items = make(map[string]*list.Element)
	c.order.Init()
	c.stats.UpdateSize(0)
	if c.metrics != nil {
		c.metrics.updateSize(0)
	}
	c.mu.Unlock()

	for _, entry := range entries {
		c.evictFn(entry.key, entry.value)
	}

	return nil
}

// Size returns the current number of entries in the cache.
func (c *hybridCache[V]) Size() int {
	c.mu.Lock()
	size := len(c.items)
	c.mu.Unlock()
	return size
}

// Keys returns all non-expired keys, most recently used first.
func (c *hybridCache[V]) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	keys := make([]string, 0, len(c.items))
	for element := c.order.Front(); element != nil; element = element.Next() {
		entry := element.Value.(*hybridEntry[V])
		if !entry.expired(c.ttl, now) {
			keys = append(keys, entry.key)
		}
	}
	return keys
}

// CleanupExpired removes every expired entry and returns how many were
// removed.
func (c *hybridCache[V]) CleanupExpired() int {
	now := time.Now()
	var expired []*hybridEntry[V]

	c.mu.Lock()
	for element := c.order.Front(); element != nil; {
		next := element.Next()
		entry := element.Value.(*hybridEntry[V])
		if entry.expired(c.ttl, now) {
			expired = append(expired, entry)
			c.removeElement(element)
		}
		element = next
	}

	if len(expired) > 0 {
		for range expired {
			c.stats.Eviction()
		}
		c.stats.UpdateSize(int64(len(c.items)))
		if c.metrics != nil {
			for range expired {
				c.metrics.recordEviction()
			}
			c.metrics.updateSize(len(c.items))
		}
	}
	c.mu.Unlock()

	if c.evictFn != nil {
		for _, entry := range expired {
			c.evictFn(entry.key, entry.value)
		}
	}

	return len(expired)
}

// Stats returns cache statistics.
func (c *hybridCache[V]) Stats() *Statistics {
	return c.stats
}

// evictLRU removes the least recently used entry and returns it.
// Must be called with the mutex held.
func (c *hybridCache[V]) evictLRU() *hybridEntry[V] {
	element := c.order.Back()
	if element == nil {
		return nil
	}

	entry := element.Value.(*hybridEntry[V])
	c.removeElement(element)

	c.stats.Eviction()
	if c.metrics != nil {
		c.metrics.recordEviction()
	}
	return entry
}

// removeElement removes an element from both the list and map.
// Must be called with the mutex held.
func (c *hybridCache[V]) removeElement(element *list.Element) {
	entry := element.Value.(*hybridEntry[V])
	delete(c.items, entry.key)
	c.order.Remove(element)
}
