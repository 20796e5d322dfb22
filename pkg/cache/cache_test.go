package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func mustSet[V any](t *testing.T, c Cache[V], key string, value V) {
	t.Helper()
	if _, err := c.Set(key, value); err != nil {
		t.Fatalf("Unexpected error setting %s: %v", key, err)
	}
}

func TestBasicOperations(t *testing.T) {
	c, err := NewHybrid[string](10, time.Minute)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}

	// Get on empty cache
	if value, exists := c.Get("key1"); exists {
		t.Errorf("Expected cache miss, got value: %s", value)
	}

	// Set and Get
	isNew, err := c.Set("key1", "value1")
	if err != nil {
		t.Fatalf("Unexpected error setting key: %v", err)
	}
	if !isNew {
		t.Error("Expected new entry creation")
	}

	if value, exists := c.Get("key1"); !exists || value != "value1" {
		t.Errorf("Expected 'value1', got value: %s, exists: %t", value, exists)
	}

	// Update
	isNew, err = c.Set("key1", "value1_updated")
	if err != nil {
		t.Fatalf("Unexpected error updating key: %v", err)
	}
	if isNew {
		t.Error("Expected existing entry update")
	}

	// Delete
	deleted, err := c.Delete("key1")
	if err != nil || !deleted {
		t.Errorf("Expected successful deletion, deleted=%t err=%v", deleted, err)
	}
	deleted, _ = c.Delete("key1")
	if deleted {
		t.Error("Expected deletion failure for non-existent key")
	}
}

func TestEmptyKeyRejected(t *testing.T) {
	c, _ := NewLRU[string](10)

	if _, err := c.Set("", "value"); err == nil {
		t.Error("Expected error for empty key")
	}
	if _, err := c.Delete(""); err == nil {
		t.Error("Expected error for empty key")
	}
}

func TestLRUEviction(t *testing.T) {
	c, err := NewLRU[string](2)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}

	mustSet(t, c, "A", "a")
	mustSet(t, c, "B", "b")

	// Refresh A so B becomes least recently used
	if _, exists := c.Get("A"); !exists {
		t.Fatal("Expected A to be present")
	}

	// Inserting C must evict B, not A
	mustSet(t, c, "C", "c")

	if _, exists := c.Get("A"); !exists {
		t.Error("Expected A to survive eviction")
	}
	if _, exists := c.Get("C"); !exists {
		t.Error("Expected C to be present")
	}
	if _, exists := c.Get("B"); exists {
		t.Error("Expected B to have been evicted")
	}

	if evictions := c.Stats().Evictions(); evictions != 1 {
		t.Errorf("Expected 1 eviction, got %d", evictions)
	}
	if c.Size() != 2 {
		t.Errorf("Expected size 2, got %d", c.Size())
	}
}

func TestCapacityIsHardCeiling(t *testing.T) {
	c, _ := NewLRU[int](3)

	for i := 0; i < 50; i++ {
		mustSet(t, c, fmt.Sprintf("key%d", i), i)
		if c.Size() > 3 {
			t.Fatalf("Size %d exceeded capacity 3 after %d inserts", c.Size(), i+1)
		}
	}
}

func TestTTLExpiry(t *testing.T) {
	c, err := NewTTL[string](100 * time.Millisecond)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}

	mustSet(t, c, "X", "x")

	if value, exists := c.Get("X"); !exists || value != "x" {
		t.Errorf("Expected immediate hit, got value: %s, exists: %t", value, exists)
	}

	time.Sleep(150 * time.Millisecond)

	if _, exists := c.Get("X"); exists {
		t.Error("Expected entry to have expired")
	}

	// Lazy expiry removes the entry on access
	if c.Size() != 0 {
		t.Errorf("Expected expired entry to be removed, size=%d", c.Size())
	}
}

func TestSetRefreshesTTL(t *testing.T) {
	c, _ := NewTTL[string](100 * time.Millisecond)

	mustSet(t, c, "X", "x1")
	time.Sleep(60 * time.Millisecond)
	mustSet(t, c, "X", "x2") // refreshes insertion time
	time.Sleep(60 * time.Millisecond)

	if value, exists := c.Get("X"); !exists || value != "x2" {
		t.Errorf("Expected refreshed entry to survive, got value: %s, exists: %t", value, exists)
	}
}

func TestLRUBeforeTTL(t *testing.T) {
	// An entry can be LRU-evicted well before its TTL elapses
	c, _ := NewHybrid[string](1, time.Hour)

	mustSet(t, c, "first", "1")
	mustSet(t, c, "second", "2")

	if _, exists := c.Get("first"); exists {
		t.Error("Expected first entry to be LRU-evicted despite unexpired TTL")
	}
	if _, exists := c.Get("second"); !exists {
		t.Error("Expected second entry to be present")
	}
}

func TestCleanupExpired(t *testing.T) {
	c, _ := NewTTL[string](50 * time.Millisecond)

	mustSet(t, c, "a", "1")
	mustSet(t, c, "b", "2")
	time.Sleep(80 * time.Millisecond)
	mustSet(t, c, "c", "3")

	removed := c.CleanupExpired()
	if removed != 2 {
		t.Errorf("Expected 2 expired entries removed, got %d", removed)
	}
	if c.Size() != 1 {
		t.Errorf("Expected size 1 after cleanup, got %d", c.Size())
	}
}

func TestKeysOrder(t *testing.T) {
	c, _ := NewLRU[string](10)

	mustSet(t, c, "a", "1")
	mustSet(t, c, "b", "2")
	mustSet(t, c, "c", "3")
	c.Get("a") // promote a

	keys := c.Keys()
	if len(keys) != 3 {
		t.Fatalf("Expected 3 keys, got %d", len(keys))
	}
	if keys[0] != "a" {
		t.Errorf("Expected most recently used key 'a' first, got %v", keys)
	}
}

func TestClear(t *testing.T) {
	c, _ := NewHybrid[string](10, time.Minute)

	mustSet(t, c, "a", "1")
	mustSet(t, c, "b", "2")

	if err := c.Clear(); err != nil {
		t.Fatalf("Unexpected error clearing cache: %v", err)
	}
	if c.Size() != 0 {
		t.Errorf("Expected size 0 after clear, got %d", c.Size())
	}
}

func TestStatsCounting(t *testing.T) {
	c, _ := NewHybrid[string](2, time.Minute)

	mustSet(t, c, "a", "1")
	c.Get("a")       // hit
	c.Get("missing") // miss
	mustSet(t, c, "b", "2")
	mustSet(t, c, "c", "3") // evicts a

	stats := c.Stats()
	if stats.Hits() != 1 {
		t.Errorf("Expected 1 hit, got %d", stats.Hits())
	}
	if stats.Misses() != 1 {
		t.Errorf("Expected 1 miss, got %d", stats.Misses())
	}
	if stats.Evictions() != 1 {
		t.Errorf("Expected 1 eviction, got %d", stats.Evictions())
	}
	if stats.Sets() != 3 {
		t.Errorf("Expected 3 sets, got %d", stats.Sets())
	}
	if stats.CurrentSize() != 2 {
		t.Errorf("Expected current size 2, got %d", stats.CurrentSize())
	}

	summary := stats.Summary()
	if summary.HitRatio != 0.5 {
		t.Errorf("Expected hit ratio 0.5, got %f", summary.HitRatio)
	}
}

func TestEvictionCallback(t *testing.T) {
	var mu sync.Mutex
	evicted := make(map[string]string)

	c, _ := NewLRU[string](1, WithEvictionCallback[string](func(key, value string) {
		mu.Lock()
		evicted[key] = value
		mu.Unlock()
	}))

	mustSet(t, c, "a", "1")
	mustSet(t, c, "b", "2")

	mu.Lock()
	defer mu.Unlock()
	if evicted["a"] != "1" {
		t.Errorf("Expected eviction callback for 'a', got %v", evicted)
	}
}

func TestConcurrentAccess(t *testing.T) {
	c, _ := NewHybrid[int](100, time.Minute)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("key%d", i%50)
				if i%3 == 0 {
					_, _ = c.Set(key, i)
				} else {
					c.Get(key)
				}
			}
		}(g)
	}
	wg.Wait()

	if c.Size() > 100 {
		t.Errorf("Size %d exceeded capacity under concurrency", c.Size())
	}
}

func TestNoopCache(t *testing.T) {
	c := NewNoop[string]()

	if _, err := c.Set("a", "1"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, exists := c.Get("a"); exists {
		t.Error("Expected noop cache to always miss")
	}
	if c.Size() != 0 || c.Stats() != nil || c.CleanupExpired() != 0 {
		t.Error("Expected noop cache to report empty state")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"default valid", DefaultConfig(), false},
		{"disabled skips validation", Config{Enabled: false}, false},
		{"lru needs max size", Config{Enabled: true, Strategy: StrategyLRU}, true},
		{"ttl needs ttl", Config{Enabled: true, Strategy: StrategyTTL}, true},
		{"hybrid needs both", Config{Enabled: true, Strategy: StrategyHybrid, MaxSize: 10}, true},
		{"unknown strategy", Config{Enabled: true, Strategy: "weird"}, true},
		{"valid lru", Config{Enabled: true, Strategy: StrategyLRU, MaxSize: 5}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %t", err, tt.wantErr)
			}
		})
	}
}

func TestNewFromConfig(t *testing.T) {
	c, err := NewFromConfig[string](Config{Enabled: false})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, exists := c.Get("a"); exists {
		t.Error("Expected noop cache for disabled config")
	}

	c, err = NewFromConfig[string](DefaultConfig())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	mustSet(t, c, "a", "1")
	if _, exists := c.Get("a"); !exists {
		t.Error("Expected hit on enabled cache")
	}
}

func TestConfigUnmarshalDurationString(t *testing.T) {
	var config Config
	data := []byte(`{"enabled": true, "strategy": "hybrid", "max_size": 100, "ttl": "5m"}`)

	if err := config.UnmarshalJSON(data); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if config.TTL != 5*time.Minute {
		t.Errorf("Expected 5m TTL, got %v", config.TTL)
	}

	data = []byte(`{"enabled": true, "strategy": "hybrid", "max_size": 100, "ttl": 60000000000}`)
	if err := config.UnmarshalJSON(data); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if config.TTL != time.Minute {
		t.Errorf("Expected 1m TTL from nanoseconds, got %v", config.TTL)
	}
}
