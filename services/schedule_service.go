package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/uniroutine/schedule-backend/models"
	"github.com/uniroutine/schedule-backend/shared"
)

// ErrSourceNotConfigured reports a department with no registered routine
// source document.
var ErrSourceNotConfigured = errors.New("no routine source configured")

// DocumentFetcher retrieves the layout-preserving text of a routine document.
// DocumentService is the production implementation.
type DocumentFetcher interface {
	FetchDocumentText(ctx context.Context, sourceURL string) (string, error)
}

// DatabaseOptimizer wraps durable-store writes with connection pool tuning
// and bounded retries for transient failures. Retrying a routine store is
// safe because replacement is a single transaction.
type DatabaseOptimizer struct {
	db                 *sql.DB
	connectionPool     *shared.DatabaseConfig
	maxRetries         int
	baseDelay          time.Duration
	maxDelay           time.Duration
	slowQueryThreshold time.Duration
	dbMetrics          *shared.DatabaseMetrics
}

// NewDatabaseOptimizer creates a new database optimizer
func NewDatabaseOptimizer(db *sql.DB, dbMetrics *shared.DatabaseMetrics) *DatabaseOptimizer {
	config := shared.NewDefaultUnifiedConfiguration()

	return &DatabaseOptimizer{
		db:                 db,
		connectionPool:     &config.Database,
		maxRetries:         3,
		baseDelay:          100 * time.Millisecond,
		maxDelay:           2 * time.Second,
		slowQueryThreshold: 500 * time.Millisecond,
		dbMetrics:          dbMetrics,
	}
}

// ConfigureConnectionPool configures the database connection pool
func (opt *DatabaseOptimizer) ConfigureConnectionPool() {
	opt.db.SetMaxOpenConns(opt.connectionPool.MaxOpenConns)
	opt.db.SetMaxIdleConns(opt.connectionPool.MaxIdleConns)
	opt.db.SetConnMaxLifetime(opt.connectionPool.ConnMaxLifetime)
	opt.db.SetConnMaxIdleTime(opt.connectionPool.ConnMaxIdleTime)

	logrus.WithFields(logrus.Fields{
		"max_open_conns":    opt.connectionPool.MaxOpenConns,
		"max_idle_conns":    opt.connectionPool.MaxIdleConns,
		"conn_max_lifetime": opt.connectionPool.ConnMaxLifetime,
	}).Info("Database connection pool configured")
}

// ExecuteWithRetry executes a database operation with exponential backoff
// retry for transient connection errors. Non-retryable errors return
// immediately.
func (opt *DatabaseOptimizer) ExecuteWithRetry(ctx context.Context, operation func() error) error {
	var lastErr error

	for attempt := 0; attempt <= opt.maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(float64(opt.baseDelay) * math.Pow(2, float64(attempt-1)))
			if delay > opt.maxDelay {
				delay = opt.maxDelay
			}

			logrus.WithFields(logrus.Fields{
				"attempt": attempt,
				"delay":   delay,
				"error":   lastErr,
			}).Warn("Retrying database operation")

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		startTime := time.Now()
		err := operation()
		duration := time.Since(startTime)

		if opt.dbMetrics != nil {
			opt.dbMetrics.RecordQuery(err == nil, duration, duration > opt.slowQueryThreshold)
		}
		if duration > opt.slowQueryThreshold {
			logrus.WithFields(logrus.Fields{
				"duration": duration,
				"attempt":  attempt,
			}).Warn("Slow database operation detected")
		}

		if err == nil {
			return nil
		}
		lastErr = err

		if !isTransientDatabaseError(err) {
			return err
		}
	}

	return fmt.Errorf("database operation failed after %d retries: %w", opt.maxRetries, lastErr)
}

// isTransientDatabaseError reports whether an error looks like a connection
// level failure worth retrying.
func isTransientDatabaseError(err error) bool {
	if err == nil {
		return false
	}

	message := strings.ToLower(err.Error())
	transientMarkers := []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"timeout",
		"too many connections",
		"the database system is starting up",
	}
	for _, marker := range transientMarkers {
		if strings.Contains(message, marker) {
			return true
		}
	}
	return false
}

// ScheduleService is the front door for parsed schedules. It runs the
// retrieve-parse-aggregate pipeline, caches results in memory and in
// Postgres keyed by (department, version), and answers status, invalidation
// and source configuration requests. When the database is unreachable it
// degrades to memory-only caching rather than failing reads.
type ScheduleService struct {
	DB              *sql.DB
	parser          *RoutineParser
	documentService DocumentFetcher
	cache           *CacheService
	cacheTTL        time.Duration
	dbOptimizer     *DatabaseOptimizer
	serviceMetrics  *shared.ServiceMetrics
	dbMetrics       *shared.DatabaseMetrics
}

// NewScheduleService creates the schedule service and tunes the connection
// pool when a database is available.
func NewScheduleService(db *sql.DB, parser *RoutineParser, documentService DocumentFetcher, cache *CacheService, cacheTTL time.Duration) *ScheduleService {
	if cacheTTL <= 0 {
		cacheTTL = 30 * 24 * time.Hour
	}

	dbMetrics := shared.NewDatabaseMetrics()
	service := &ScheduleService{
		DB:              db,
		parser:          parser,
		documentService: documentService,
		cache:           cache,
		cacheTTL:        cacheTTL,
		serviceMetrics:  shared.NewServiceMetrics("schedule-service"),
		dbMetrics:       dbMetrics,
	}

	if db != nil {
		service.dbOptimizer = NewDatabaseOptimizer(db, dbMetrics)
		service.dbOptimizer.ConfigureConnectionPool()
	}

	return service
}

// Metrics exposes the service request counters for reporting endpoints.
func (s *ScheduleService) Metrics() *shared.ServiceMetrics {
	return s.serviceMetrics
}

// DatabaseMetrics exposes the durable-store counters for reporting endpoints.
func (s *ScheduleService) DatabaseMetrics() *shared.DatabaseMetrics {
	return s.dbMetrics
}

// memoryCacheKey builds the in-memory cache key for a routine record.
func memoryCacheKey(department, version string) string {
	return department + ":" + version
}

// ParseDocument runs the full pipeline against a source URL without touching
// any cache. Zero extracted entries is reported as a distinct non-fatal
// outcome: the result still carries the empty entry list and sentinel stats,
// so callers can tell an empty schedule apart from a broken pipeline.
func (s *ScheduleService) ParseDocument(ctx context.Context, sourceURL string) (*models.ParseResult, error) {
	startTime := time.Now()

	documentText, err := s.documentService.FetchDocumentText(ctx, sourceURL)
	if err != nil {
		s.parser.Metrics().RecordParseFailure()
		s.serviceMetrics.RecordRequest(false, time.Since(startTime))
		return nil, err
	}

	entries := s.parser.Parse(documentText)
	result := &models.ParseResult{
		Entries: entries,
		Stats:   AggregateScheduleStats(entries),
	}

	s.serviceMetrics.RecordRequest(true, time.Since(startTime))

	if len(entries) == 0 {
		return result, shared.NewNoEntriesError(sourceURL, "ScheduleService", "ParseDocument")
	}
	return result, nil
}

// GetOrParse returns the cached entries for (department, version), parsing
// the source document only when no valid cached record exists. An expired
// record is never served; it is replaced by a fresh parse. A failed parse
// writes nothing, leaving any previously valid record untouched. When the
// database is unreachable the fresh result is still returned and cached in
// memory only.
func (s *ScheduleService) GetOrParse(ctx context.Context, department, sourceURL, version string) ([]models.ClassEntry, error) {
	logger := logrus.WithFields(logrus.Fields{
		"component":  "ScheduleService",
		"method":     "GetOrParse",
		"department": department,
		"version":    version,
	})

	cacheKey := memoryCacheKey(department, version)

	// Try to get from memory cache first
	if cached, found := s.cache.Get(cacheKey); found {
		if record, ok := cached.(*models.RoutineCacheRecord); ok && !record.IsExpired() {
			logger.Debug("Serving routine from memory cache")
			return record.Entries, nil
		}
	}

	// Then the durable cache; a lookup failure degrades rather than aborts
	databaseAvailable := true
	record, err := s.cache.GetRoutine(ctx, department, version)
	if err != nil {
		databaseAvailable = false
		shared.NewCacheUnavailableError("ScheduleService", "GetOrParse", err).LogError()
	}
	if record != nil {
		s.cache.SetWithTTL(cacheKey, record, time.Until(record.ExpiresAt))
		logger.WithField("total_classes", record.TotalClasses).Debug("Serving routine from database cache")
		return record.Entries, nil
	}

	// Cache miss: run the full pipeline
	result, err := s.ParseDocument(ctx, sourceURL)
	if err != nil && !shared.IsNoEntriesFound(err) {
		return nil, err
	}

	entries := result.Entries
	for i := range entries {
		entries[i].Department = department
	}

	// An empty parse is reported, never cached, so a previously valid
	// record for this key is not displaced by it.
	if len(entries) == 0 {
		logger.Warn("Parse completed with zero entries, nothing cached")
		return entries, err
	}

	now := time.Now()
	freshRecord := &models.RoutineCacheRecord{
		Department:   department,
		SourceURL:    sourceURL,
		Version:      version,
		ParsedAt:     now,
		ExpiresAt:    now.Add(s.cacheTTL),
		TotalClasses: len(entries),
		Entries:      entries,
	}

	if databaseAvailable {
		storeErr := s.dbOptimizer.ExecuteWithRetry(ctx, func() error {
			return s.cache.StoreRoutine(ctx, freshRecord)
		})
		if storeErr != nil {
			shared.NewCacheUnavailableError("ScheduleService", "GetOrParse", storeErr).LogError()
		} else {
			s.recordUpdateLog(ctx, department, version, models.CacheActionParsed, len(entries), sourceURL)
		}
	}

	s.cache.SetWithTTL(cacheKey, freshRecord, s.cacheTTL)

	logger.WithField("total_classes", len(entries)).Info("Parsed and cached routine")
	return entries, nil
}

// GetOrParseDepartment resolves the configured routine source for a
// department and serves its entries through GetOrParse.
func (s *ScheduleService) GetOrParseDepartment(ctx context.Context, department string) ([]models.ClassEntry, error) {
	source, err := s.GetRoutineSource(ctx, department)
	if err != nil {
		return nil, shared.NewCacheUnavailableError("ScheduleService", "GetOrParseDepartment", err)
	}
	if source == nil {
		return nil, fmt.Errorf("%w for department %s", ErrSourceNotConfigured, department)
	}
	return s.GetOrParse(ctx, department, source.SourceURL, source.Version)
}

// Invalidate removes every cached record for the department across all
// versions, from memory and from the database.
func (s *ScheduleService) Invalidate(ctx context.Context, department string) error {
	memoryRemoved := s.cache.DeletePrefix(department + ":")

	rowsRemoved, err := s.cache.DeleteDepartmentRoutines(ctx, department)
	if err != nil {
		return shared.NewCacheUnavailableError("ScheduleService", "Invalidate", err)
	}

	s.recordUpdateLog(ctx, department, "", models.CacheActionInvalidated, 0, "")

	logrus.WithFields(logrus.Fields{
		"component":      "ScheduleService",
		"department":     department,
		"memory_removed": memoryRemoved,
		"rows_removed":   rowsRemoved,
	}).Info("Invalidated cached routines for department")

	return nil
}

// Status reports whether a valid cached record currently exists for the
// department, without forcing a parse.
func (s *ScheduleService) Status(ctx context.Context, department string) (*models.CacheStatus, error) {
	record, err := s.cache.GetLatestRoutine(ctx, department)
	if err != nil {
		return nil, shared.NewCacheUnavailableError("ScheduleService", "Status", err)
	}

	status := &models.CacheStatus{Department: department}
	if record == nil {
		return status, nil
	}

	status.IsCached = true
	status.Version = record.Version
	status.ParsedAt = &record.ParsedAt
	status.ExpiresAt = &record.ExpiresAt
	status.TotalClasses = record.TotalClasses
	return status, nil
}

// RefreshDepartment drops every cached record for the department and
// immediately re-parses its configured source. Returns the fresh entry count.
func (s *ScheduleService) RefreshDepartment(ctx context.Context, department string) (int, error) {
	source, err := s.GetRoutineSource(ctx, department)
	if err != nil {
		return 0, shared.NewCacheUnavailableError("ScheduleService", "RefreshDepartment", err)
	}
	if source == nil {
		return 0, fmt.Errorf("%w for department %s", ErrSourceNotConfigured, department)
	}

	if err := s.Invalidate(ctx, department); err != nil {
		// Memory is already cleared; proceed and let the parse repopulate
		logrus.WithError(err).WithField("department", department).
			Warn("Database invalidation failed, refreshing in degraded mode")
	}

	entries, err := s.GetOrParse(ctx, department, source.SourceURL, source.Version)
	if err != nil && !shared.IsNoEntriesFound(err) {
		return 0, err
	}
	return len(entries), nil
}

// CacheStatistics summarizes both cache layers for the statistics endpoint.
func (s *ScheduleService) CacheStatistics(ctx context.Context) map[string]interface{} {
	statistics := map[string]interface{}{
		"memory": s.cache.GetStats(),
	}

	recordCount, err := s.cache.CountCachedRoutines(ctx)
	if err != nil {
		statistics["database"] = map[string]interface{}{"available": false}
	} else {
		statistics["database"] = map[string]interface{}{
			"available": true,
			"records":   recordCount,
		}
	}
	return statistics
}

// UpsertRoutineSource creates or updates the source document mapping for a
// department.
func (s *ScheduleService) UpsertRoutineSource(ctx context.Context, source *models.RoutineSource) error {
	if s.DB == nil {
		return shared.NewCacheUnavailableError("ScheduleService", "UpsertRoutineSource",
			fmt.Errorf("database not available"))
	}

	source.UpdatedAt = time.Now()
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO routine_sources (department, source_url, version, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (department) DO UPDATE SET
			source_url = EXCLUDED.source_url,
			version = EXCLUDED.version,
			updated_at = EXCLUDED.updated_at
	`, source.Department, source.SourceURL, source.Version, source.UpdatedAt)
	return err
}

// GetRoutineSource returns the configured source for a department, or nil
// without error when none is configured.
func (s *ScheduleService) GetRoutineSource(ctx context.Context, department string) (*models.RoutineSource, error) {
	if s.DB == nil {
		return nil, fmt.Errorf("database not available")
	}

	var source models.RoutineSource
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, department, source_url, version, updated_at
		FROM routine_sources
		WHERE department = $1
	`, department).Scan(
		&source.ID, &source.Department, &source.SourceURL, &source.Version, &source.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &source, nil
}

// ListRoutineSources returns every configured department source.
func (s *ScheduleService) ListRoutineSources(ctx context.Context) ([]models.RoutineSource, error) {
	if s.DB == nil {
		return nil, fmt.Errorf("database not available")
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, department, source_url, version, updated_at
		FROM routine_sources
		ORDER BY department
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sources []models.RoutineSource
	for rows.Next() {
		var source models.RoutineSource
		err := rows.Scan(&source.ID, &source.Department, &source.SourceURL, &source.Version, &source.UpdatedAt)
		if err != nil {
			return nil, err
		}
		sources = append(sources, source)
	}
	return sources, rows.Err()
}

// GetScheduleWithFaculty returns the latest valid cached entries for a
// department joined with scraped instructor profiles. Entries whose initials
// match no profile keep nil faculty fields.
func (s *ScheduleService) GetScheduleWithFaculty(ctx context.Context, department string) ([]models.ClassEntryWithFaculty, error) {
	if s.DB == nil {
		return nil, shared.NewCacheUnavailableError("ScheduleService", "GetScheduleWithFaculty",
			fmt.Errorf("database not available"))
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT ce.id, ce.department, ce.day, ce.time_start, ce.time_end,
		       ce.course_code, ce.course_name, ce.batch, ce.section, ce.batch_section,
		       ce.room, ce.is_lab, ce.teacher_initials, ce.low_confidence,
		       f.name, f.designation, f.email
		FROM class_entries ce
		JOIN routine_cache rc ON rc.id = ce.cache_id
		LEFT JOIN faculty_members f ON UPPER(f.initials) = UPPER(ce.teacher_initials)
		WHERE rc.department = $1
		  AND rc.expires_at > NOW()
		  AND rc.parsed_at = (
			SELECT MAX(parsed_at) FROM routine_cache
			WHERE department = $1 AND expires_at > NOW()
		  )
		ORDER BY ce.day, ce.time_start, ce.course_code
	`, department)
	if err != nil {
		return nil, shared.NewCacheUnavailableError("ScheduleService", "GetScheduleWithFaculty", err)
	}
	defer rows.Close()

	var enriched []models.ClassEntryWithFaculty
	for rows.Next() {
		var row models.ClassEntryWithFaculty
		err := rows.Scan(
			&row.ID, &row.Department, &row.Day, &row.TimeStart, &row.TimeEnd,
			&row.CourseCode, &row.CourseName, &row.Batch, &row.Section, &row.BatchSection,
			&row.Room, &row.IsLab, &row.TeacherInitials, &row.LowConfidence,
			&row.TeacherName, &row.TeacherDesignation, &row.TeacherEmail,
		)
		if err != nil {
			return nil, err
		}
		enriched = append(enriched, row)
	}
	return enriched, rows.Err()
}

// recordUpdateLog appends a cache lifecycle event to the audit trail.
// Best-effort: failures are logged, never surfaced.
func (s *ScheduleService) recordUpdateLog(ctx context.Context, department, version, action string, entryCount int, sourceURL string) {
	if s.DB == nil {
		return
	}
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO routine_update_log (department, version, action, entry_count, source_url)
		VALUES ($1, $2, $3, $4, $5)
	`, department, version, action, entryCount, sourceURL)
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"component":  "ScheduleService",
			"department": department,
			"action":     action,
		}).Warn("Failed to record cache update log entry")
	}
}
