package cache

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/danieleschmidt/homomorphic-llm-proxy-sub001/errors"
)

// Strategy defines the eviction strategy for the cache.
type Strategy string

const (
	// StrategyLRU uses Least Recently Used eviction based on size.
	StrategyLRU Strategy = "lru"

	// StrategyTTL uses Time-To-Live expiry with no size bound.
	StrategyTTL Strategy = "ttl"

	// StrategyHybrid uses combined LRU and TTL eviction.
	StrategyHybrid Strategy = "hybrid"
)

// Config contains configuration for cache creation.
type Config struct {
	// Enabled determines if caching is enabled.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Strategy determines the eviction strategy.
	Strategy Strategy `json:"strategy" yaml:"strategy"`

	// MaxSize is the maximum number of entries (for LRU and Hybrid caches).
	MaxSize int `json:"max_size" yaml:"max_size"`

	// TTL is the time-to-live for entries (for TTL and Hybrid caches).
	TTL time.Duration `json:"ttl" yaml:"ttl"`
}

// DefaultConfig returns a default cache configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:  true,
		Strategy: StrategyHybrid,
		MaxSize:  1000,
		TTL:      5 * time.Minute,
	}
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	switch c.Strategy {
	case StrategyLRU:
		if c.MaxSize <= 0 {
			return errors.WrapInvalid(errors.ErrInvalidData, "cache", "Validate",
				fmt.Sprintf("max_size must be positive for LRU cache, got %d", c.MaxSize))
		}
	case StrategyTTL:
		if c.TTL <= 0 {
			return errors.WrapInvalid(errors.ErrInvalidData, "cache", "Validate",
				fmt.Sprintf("ttl must be positive for TTL cache, got %v", c.TTL))
		}
	case StrategyHybrid:
		if c.MaxSize <= 0 {
			return errors.WrapInvalid(errors.ErrInvalidData, "cache", "Validate",
				fmt.Sprintf("max_size must be positive for Hybrid cache, got %d", c.MaxSize))
		}
		if c.TTL <= 0 {
			return errors.WrapInvalid(errors.ErrInvalidData, "cache", "Validate",
				fmt.Sprintf("ttl must be positive for Hybrid cache, got %v", c.TTL))
		}
	default:
		return errors.WrapInvalid(errors.ErrInvalidData, "cache", "Validate",
			fmt.Sprintf("unknown cache strategy: %s", c.Strategy))
	}

	return nil
}

// NewFromConfig creates a cache based on the provided configuration.
// Returns a noop cache if config.Enabled is false.
func NewFromConfig[V any](config Config, options ...Option[V]) (Cache[V], error) {
	if err := config.Validate(); err != nil {
		return nil, errors.WrapInvalid(err, "cache", "NewFromConfig", "config validation")
	}

	if !config.Enabled {
		return NewNoop[V](), nil
	}

	switch config.Strategy {
	case StrategyLRU:
		return NewLRU[V](config.MaxSize, options...)
	case StrategyTTL:
		return NewTTL[V](config.TTL, options...)
	case StrategyHybrid:
		return NewHybrid[V](config.MaxSize, config.TTL, options...)
	default:
		msg := fmt.Sprintf("unsupported cache strategy: %s", config.Strategy)
		return nil, errors.WrapInvalid(errors.ErrInvalidData, "cache", "NewFromConfig", msg)
	}
}

// NewLRU creates a cache with only the LRU size bound (no expiry).
func NewLRU[V any](maxSize int, options ...Option[V]) (Cache[V], error) {
	opts := applyOptions(options...)
	return newHybridCache[V](maxSize, 0, opts)
}

// NewTTL creates a cache with only TTL expiry (no size bound).
func NewTTL[V any](ttl time.Duration, options ...Option[V]) (Cache[V], error) {
	opts := applyOptions(options...)
	return newHybridCache[V](0, ttl, opts)
}

// NewHybrid creates a cache with combined LRU and TTL eviction.
func NewHybrid[V any](maxSize int, ttl time.Duration, options ...Option[V]) (Cache[V], error) {
	opts := applyOptions(options...)
	return newHybridCache[V](maxSize, ttl, opts)
}

// UnmarshalJSON implements custom JSON unmarshaling for Config to support
// duration strings (e.g., "1h", "5m", "30s") in addition to nanosecond integers.
func (c *Config) UnmarshalJSON(data []byte) error {
	// Use an alias to avoid infinite recursion
	type Alias Config

	aux := &struct {
		TTL json.RawMessage `json:"ttl,omitempty"`
		*Alias
	}{
		Alias: (*Alias)(c),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	if len(aux.TTL) > 0 {
		ttl, err := parseDurationField(aux.TTL, "ttl")
		if err != nil {
			return err
		}
		c.TTL = ttl
	}

	return nil
}

// parseDurationField parses a JSON duration field that can be either an
// integer (nanoseconds) or a string (duration like "1h", "5m", "30s").
func parseDurationField(data json.RawMessage, fieldName string) (time.Duration, error) {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		duration, err := time.ParseDuration(str)
		if err != nil {
			return 0, fmt.Errorf("invalid duration string for %s: %w", fieldName, err)
		}
		return duration, nil
	}

	var nsec int64
	if err := json.Unmarshal(data, &nsec); err != nil {
		return 0, fmt.Errorf("field %s must be either a duration string (e.g., '1h') or integer nanoseconds", fieldName)
	}
	return time.Duration(nsec), nil
}
