package services

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCacheSetGet(t *testing.T) {
	cache := NewCacheServiceWithConfig(nil, time.Minute, 10)

	cache.Set("CSE:v1", "routine-a")
	value, found := cache.Get("CSE:v1")
	if !found {
		t.Fatal("Expected cache hit for stored key")
	}
	if value != "routine-a" {
		t.Errorf("Expected routine-a, got %v", value)
	}

	if _, found := cache.Get("EEE:v1"); found {
		t.Error("Expected cache miss for absent key")
	}
}

func TestCacheExpiry(t *testing.T) {
	cache := NewCacheServiceWithConfig(nil, time.Minute, 10)

	cache.SetWithTTL("CSE:v1", "routine-a", 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)

	if _, found := cache.Get("CSE:v1"); found {
		t.Error("Expected expired entry to miss")
	}
}

func TestCacheEvictsOldestInserted(t *testing.T) {
	cache := NewCacheServiceWithConfig(nil, time.Minute, 2)

	cache.Set("first", 1)
	time.Sleep(2 * time.Millisecond)
	cache.Set("second", 2)
	time.Sleep(2 * time.Millisecond)
	cache.Set("third", 3)

	if _, found := cache.Get("first"); found {
		t.Error("Oldest-inserted entry must be evicted at capacity")
	}
	if _, found := cache.Get("second"); !found {
		t.Error("Second entry must survive eviction")
	}
	if _, found := cache.Get("third"); !found {
		t.Error("Newly inserted entry must be present")
	}
	if size := cache.Size(); size != 2 {
		t.Errorf("Expected size 2 after eviction, got %d", size)
	}

	stats := cache.GetStats()
	if stats["evictions"].(int64) != 1 {
		t.Errorf("Expected 1 eviction, got %v", stats["evictions"])
	}
}

func TestCacheReplacingKeyDoesNotEvict(t *testing.T) {
	cache := NewCacheServiceWithConfig(nil, time.Minute, 2)

	cache.Set("first", 1)
	time.Sleep(2 * time.Millisecond)
	cache.Set("second", 2)
	time.Sleep(2 * time.Millisecond)
	cache.Set("first", 10)

	if size := cache.Size(); size != 2 {
		t.Errorf("Replacing an existing key must not change size, got %d", size)
	}
	value, found := cache.Get("first")
	if !found || value != 10 {
		t.Errorf("Expected replaced value 10, got %v (found=%v)", value, found)
	}
	if _, found := cache.Get("second"); !found {
		t.Error("Replacing a key at capacity must not evict another entry")
	}

	stats := cache.GetStats()
	if stats["evictions"].(int64) != 0 {
		t.Errorf("Expected 0 evictions, got %v", stats["evictions"])
	}
}

func TestCacheDeletePrefix(t *testing.T) {
	cache := NewCacheServiceWithConfig(nil, time.Minute, 10)

	cache.Set("CSE:v1", 1)
	cache.Set("CSE:v2", 2)
	cache.Set("EEE:v1", 3)

	if removed := cache.DeletePrefix("CSE:"); removed != 2 {
		t.Errorf("Expected 2 entries removed, got %d", removed)
	}
	if size := cache.Size(); size != 1 {
		t.Errorf("Expected size 1 after prefix delete, got %d", size)
	}
	if _, found := cache.Get("EEE:v1"); !found {
		t.Error("Entries outside the prefix must survive")
	}
}

func TestCacheCleanupExpiredEntries(t *testing.T) {
	cache := NewCacheServiceWithConfig(nil, time.Minute, 10)

	cache.SetWithTTL("stale-a", 1, 5*time.Millisecond)
	cache.SetWithTTL("stale-b", 2, 5*time.Millisecond)
	cache.Set("live", 3)
	time.Sleep(20 * time.Millisecond)

	if removed := cache.CleanupExpiredEntries(); removed != 2 {
		t.Errorf("Expected 2 expired entries removed, got %d", removed)
	}
	if size := cache.Size(); size != 1 {
		t.Errorf("Expected only the live entry to remain, got size %d", size)
	}
}

func TestCacheHitMissCounters(t *testing.T) {
	cache := NewCacheServiceWithConfig(nil, time.Minute, 10)

	cache.Set("key", "value")
	cache.Get("key")
	cache.Get("key")
	cache.Get("missing")

	stats := cache.GetStats()
	if stats["hits"].(int64) != 2 {
		t.Errorf("Expected 2 hits, got %v", stats["hits"])
	}
	if stats["misses"].(int64) != 1 {
		t.Errorf("Expected 1 miss, got %v", stats["misses"])
	}
}

func TestCacheClear(t *testing.T) {
	cache := NewCacheServiceWithConfig(nil, time.Minute, 10)

	cache.Set("a", 1)
	cache.Set("b", 2)
	cache.Clear()

	if size := cache.Size(); size != 0 {
		t.Errorf("Expected empty cache after clear, got size %d", size)
	}
}

func TestCacheDatabaseMethodsWithoutDatabase(t *testing.T) {
	cache := NewCacheServiceWithConfig(nil, time.Minute, 10)
	ctx := context.Background()

	if err := cache.StoreRoutine(ctx, nil); !errors.Is(err, errDatabaseUnavailable) {
		t.Errorf("StoreRoutine without database must fail, got %v", err)
	}
	if _, err := cache.GetRoutine(ctx, "CSE", "v1"); !errors.Is(err, errDatabaseUnavailable) {
		t.Errorf("GetRoutine without database must fail, got %v", err)
	}
	if _, err := cache.GetLatestRoutine(ctx, "CSE"); !errors.Is(err, errDatabaseUnavailable) {
		t.Errorf("GetLatestRoutine without database must fail, got %v", err)
	}
	if _, err := cache.DeleteDepartmentRoutines(ctx, "CSE"); !errors.Is(err, errDatabaseUnavailable) {
		t.Errorf("DeleteDepartmentRoutines without database must fail, got %v", err)
	}
	if _, err := cache.CountCachedRoutines(ctx); !errors.Is(err, errDatabaseUnavailable) {
		t.Errorf("CountCachedRoutines without database must fail, got %v", err)
	}
	if err := cache.CleanupExpiredDB(ctx); !errors.Is(err, errDatabaseUnavailable) {
		t.Errorf("CleanupExpiredDB without database must fail, got %v", err)
	}
}
