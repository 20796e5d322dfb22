// Package cache provides a generic, thread-safe ciphertext cache with
// combined LRU and TTL eviction.
//
// A single implementation covers all strategies: a maximum size of zero
// disables the LRU bound and a TTL of zero disables expiry. Expiry is
// evaluated lazily at access time; an expired entry is treated as absent
// and removed by the Get that observed it. CleanupExpired offers an
// explicit sweep for callers that want to reclaim memory proactively.
//
// All operations are safe for concurrent use. Statistics are always
// collected; Prometheus export is optional via functional options.
package cache

import (
	"github.com/danieleschmidt/homomorphic-llm-proxy-sub001/errors"
)

// Cache represents a generic cache interface parameterized by value type V.
type Cache[V any] interface {
	// Get retrieves a value by key and marks it as most recently used.
	// Returns the value and true if found and not expired, zero value and
	// false otherwise.
	Get(key string) (V, bool)

	// Set stores a value with the given key, refreshing its expiry and
	// recency. Returns true if a new entry was created, false if an
	// existing entry was updated. Returns an error for invalid keys.
	Set(key string, value V) (bool, error)

	// Delete removes an entry by key. Returns true if the key existed.
	Delete(key string) (bool, error)

	// Clear removes all entries from the cache.
	Clear() error

	// Size returns the current number of entries, including entries that
	// have expired but not yet been observed by a Get or sweep.
	Size() int

	// Keys returns all non-expired keys in recency order (most recently
	// used first).
	Keys() []string

	// CleanupExpired removes all expired entries and returns how many
	// were removed.
	CleanupExpired() int

	// Stats returns cache statistics, nil for the noop cache.
	Stats() *Statistics
}

// EvictCallback is called when an entry is evicted from the cache.
type EvictCallback[V any] func(key string, value V)

// validateKey validates a cache key for basic requirements.
func validateKey(key string) error {
	if key == "" {
		return errors.WrapInvalid(errors.ErrInvalidData, "cache", "validateKey", "key cannot be empty")
	}
	return nil
}

// NewNoop creates a cache that does nothing (always returns cache misses).
// This is useful when caching is disabled via configuration.
func NewNoop[V any]() Cache[V] {
	return &noopCache[V]{}
}

// noopCache is a cache implementation that does nothing.
type noopCache[V any] struct{}

func (c *noopCache[V]) Get(_ string) (V, bool) {
	var zero V
	return zero, false
}

func (c *noopCache[V]) Set(_ string, _ V) (bool, error) {
	return false, nil
}

func (c *noopCache[V]) Delete(_ string) (bool, error) {
	return false, nil
}

func (c *noopCache[V]) Clear() error {
	return nil
}

func (c *noopCache[V]) Size() int {
	return 0
}

func (c *noopCache[V]) Keys() []string {
	return nil
}

func (c *noopCache[V]) CleanupExpired() int {
	return 0
}

func (c *noopCache[V]) Stats() *Statistics {
	return nil
}
