package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/uniroutine/schedule-backend/models"
)

// CacheEntry represents a cached item with expiration
type CacheEntry struct {
	Data      interface{}
	CreatedAt time.Time
	ExpiresAt time.Time
}

// IsExpired checks if the cache entry has expired
func (ce *CacheEntry) IsExpired() bool {
	return time.Now().After(ce.ExpiresAt)
}

// CacheService provides unified caching for parsed routines with both an
// in-memory layer and database persistence. It supports:
// - In-memory caching with TTL, bounded size and oldest-inserted eviction
// - Database persistence for parsed routine records and their entries
// - Thread-safe operations with read/write locks
// - Hit/miss/eviction counters for the cache statistics endpoint
type CacheService struct {
	cache      map[string]*CacheEntry
	mutex      sync.RWMutex
	defaultTTL time.Duration
	maxSize    int
	DB         *sql.DB // Database for persistent caching

	hits      int64
	misses    int64
	evictions int64
}

// NewCacheService creates a cache service with the default routine TTL of
// 30 days and a bounded in-memory map.
func NewCacheService(db *sql.DB) *CacheService {
	return NewCacheServiceWithConfig(db, 30*24*time.Hour, 200)
}

// NewCacheServiceWithConfig creates a cache service with custom configuration
func NewCacheServiceWithConfig(db *sql.DB, defaultTTL time.Duration, maxSize int) *CacheService {
	cs := &CacheService{
		cache:      make(map[string]*CacheEntry),
		defaultTTL: defaultTTL,
		maxSize:    maxSize,
		DB:         db,
	}

	// Start cleanup goroutine
	go cs.cleanupExpired()

	return cs
}

// Get retrieves a value from cache
func (cs *CacheService) Get(key string) (interface{}, bool) {
	cs.mutex.RLock()
	defer cs.mutex.RUnlock()

	entry, exists := cs.cache[key]
	if !exists || entry.IsExpired() {
		atomic.AddInt64(&cs.misses, 1)
		return nil, false
	}

	atomic.AddInt64(&cs.hits, 1)
	return entry.Data, true
}

// Set stores a value in cache with default TTL
func (cs *CacheService) Set(key string, value interface{}) {
	cs.SetWithTTL(key, value, cs.defaultTTL)
}

// SetWithTTL stores a value in cache with custom TTL
func (cs *CacheService) SetWithTTL(key string, value interface{}, ttl time.Duration) {
	cs.mutex.Lock()
	defer cs.mutex.Unlock()

	// Replacing an existing key never triggers eviction.
	if _, exists := cs.cache[key]; !exists && len(cs.cache) >= cs.maxSize {
		cs.evictOldest()
	}

	now := time.Now()
	cs.cache[key] = &CacheEntry{
		Data:      value,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// evictOldest removes the oldest-inserted entry from cache (FIFO eviction).
// Caller must hold the write lock.
func (cs *CacheService) evictOldest() {
	var oldestKey string
	var oldestTime time.Time

	for key, entry := range cs.cache {
		if oldestKey == "" || entry.CreatedAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.CreatedAt
		}
	}

	if oldestKey != "" {
		delete(cs.cache, oldestKey)
		atomic.AddInt64(&cs.evictions, 1)
	}
}

// Delete removes a value from cache
func (cs *CacheService) Delete(key string) {
	cs.mutex.Lock()
	defer cs.mutex.Unlock()

	delete(cs.cache, key)
}

// DeletePrefix removes every cached value whose key starts with the given
// prefix and returns how many were removed. Used for department-wide
// invalidation across versions.
func (cs *CacheService) DeletePrefix(prefix string) int {
	cs.mutex.Lock()
	defer cs.mutex.Unlock()

	removed := 0
	for key := range cs.cache {
		if strings.HasPrefix(key, prefix) {
			delete(cs.cache, key)
			removed++
		}
	}
	return removed
}

// Clear removes all values from cache
func (cs *CacheService) Clear() {
	cs.mutex.Lock()
	defer cs.mutex.Unlock()

	cs.cache = make(map[string]*CacheEntry)
}

// Size returns the number of items in cache
func (cs *CacheService) Size() int {
	cs.mutex.RLock()
	defer cs.mutex.RUnlock()

	return len(cs.cache)
}

// GetStats returns in-memory cache counters for the statistics endpoint.
func (cs *CacheService) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"type":      "in-memory",
		"size":      cs.Size(),
		"max_size":  cs.maxSize,
		"hits":      atomic.LoadInt64(&cs.hits),
		"misses":    atomic.LoadInt64(&cs.misses),
		"evictions": atomic.LoadInt64(&cs.evictions),
	}
}

// CleanupExpiredEntries removes expired entries from the in-memory cache and
// returns how many were removed. Called by the periodic sweeper and by the
// cache cleanup job.
func (cs *CacheService) CleanupExpiredEntries() int {
	cs.mutex.Lock()
	defer cs.mutex.Unlock()

	removed := 0
	for key, entry := range cs.cache {
		if entry.IsExpired() {
			delete(cs.cache, key)
			removed++
		}
	}
	return removed
}

// cleanupExpired periodically sweeps expired entries from cache
func (cs *CacheService) cleanupExpired() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		cs.CleanupExpiredEntries()
	}
}

// Database cache methods for parsed routine records

// errDatabaseUnavailable reports operations attempted while running without
// a database connection (memory-only degraded mode).
var errDatabaseUnavailable = errors.New("database not available")

// StoreRoutine persists a parsed routine and its entries, replacing any prior
// record for the same department and version in a single transaction. A
// partially failed store leaves the previous record untouched.
func (cs *CacheService) StoreRoutine(ctx context.Context, record *models.RoutineCacheRecord) error {
	if cs.DB == nil {
		return errDatabaseUnavailable
	}

	tx, err := cs.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`DELETE FROM routine_cache WHERE department = $1 AND version = $2`,
		record.Department, record.Version,
	)
	if err != nil {
		return err
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO routine_cache (
			department, source_url, version, parsed_at, expires_at, total_classes
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`,
		record.Department, record.SourceURL, record.Version,
		record.ParsedAt, record.ExpiresAt, record.TotalClasses,
	).Scan(&record.ID)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO class_entries (
			cache_id, department, day, time_start, time_end,
			course_code, course_name, batch, section, batch_section,
			room, is_lab, teacher_initials, low_confidence
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := range record.Entries {
		entry := &record.Entries[i]
		_, err = stmt.ExecContext(ctx,
			record.ID, record.Department, entry.Day, entry.TimeStart, entry.TimeEnd,
			entry.CourseCode, entry.CourseName, entry.Batch, entry.Section, entry.BatchSection,
			entry.Room, entry.IsLab, entry.TeacherInitials, entry.LowConfidence,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetRoutine retrieves a non-expired cached routine with its entries from the
// database. Returns nil without error when no valid record exists.
func (cs *CacheService) GetRoutine(ctx context.Context, department, version string) (*models.RoutineCacheRecord, error) {
	if cs.DB == nil {
		return nil, errDatabaseUnavailable
	}

	var record models.RoutineCacheRecord
	err := cs.DB.QueryRowContext(ctx, `
		SELECT id, department, source_url, version, parsed_at, expires_at, total_classes
		FROM routine_cache
		WHERE department = $1 AND version = $2 AND expires_at > NOW()
	`, department, version).Scan(
		&record.ID, &record.Department, &record.SourceURL, &record.Version,
		&record.ParsedAt, &record.ExpiresAt, &record.TotalClasses,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	rows, err := cs.DB.QueryContext(ctx, `
		SELECT id, department, day, time_start, time_end,
		       course_code, course_name, batch, section, batch_section,
		       room, is_lab, teacher_initials, low_confidence
		FROM class_entries
		WHERE cache_id = $1
		ORDER BY day, time_start, course_code
	`, record.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var entry models.ClassEntry
		err := rows.Scan(
			&entry.ID, &entry.Department, &entry.Day, &entry.TimeStart, &entry.TimeEnd,
			&entry.CourseCode, &entry.CourseName, &entry.Batch, &entry.Section, &entry.BatchSection,
			&entry.Room, &entry.IsLab, &entry.TeacherInitials, &entry.LowConfidence,
		)
		if err != nil {
			return nil, err
		}
		record.Entries = append(record.Entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &record, nil
}

// GetLatestRoutine retrieves the most recently parsed non-expired record for
// a department across versions, without its entries. Returns nil without
// error when no valid record exists.
func (cs *CacheService) GetLatestRoutine(ctx context.Context, department string) (*models.RoutineCacheRecord, error) {
	if cs.DB == nil {
		return nil, errDatabaseUnavailable
	}

	var record models.RoutineCacheRecord
	err := cs.DB.QueryRowContext(ctx, `
		SELECT id, department, source_url, version, parsed_at, expires_at, total_classes
		FROM routine_cache
		WHERE department = $1 AND expires_at > NOW()
		ORDER BY parsed_at DESC
		LIMIT 1
	`, department).Scan(
		&record.ID, &record.Department, &record.SourceURL, &record.Version,
		&record.ParsedAt, &record.ExpiresAt, &record.TotalClasses,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return &record, nil
}

// DeleteDepartmentRoutines removes every cached record for the department
// across all versions. Owned class entries go with them via cascade.
func (cs *CacheService) DeleteDepartmentRoutines(ctx context.Context, department string) (int64, error) {
	if cs.DB == nil {
		return 0, errDatabaseUnavailable
	}

	result, err := cs.DB.ExecContext(ctx,
		`DELETE FROM routine_cache WHERE department = $1`, department)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// CountCachedRoutines returns the number of non-expired records in the
// database cache.
func (cs *CacheService) CountCachedRoutines(ctx context.Context) (int, error) {
	if cs.DB == nil {
		return 0, errDatabaseUnavailable
	}

	var count int
	err := cs.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM routine_cache WHERE expires_at > NOW()`).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// CleanupExpiredDB removes expired cache entries from database
func (cs *CacheService) CleanupExpiredDB(ctx context.Context) error {
	if cs.DB == nil {
		return errDatabaseUnavailable
	}

	result, err := cs.DB.ExecContext(ctx,
		`DELETE FROM routine_cache WHERE expires_at < NOW()`)
	if err != nil {
		return err
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected > 0 {
		logrus.WithFields(logrus.Fields{
			"component":    "CacheService",
			"rows_removed": rowsAffected,
		}).Info("Cleaned up expired database cache entries")
	}

	return nil
}
