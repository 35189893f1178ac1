package shared

import (
	"context"
	"testing"
	"time"
)

func TestServiceMetricsRecordRequest(t *testing.T) {
	metrics := NewServiceMetrics("test-service")

	metrics.RecordRequest(true, 100*time.Millisecond)
	metrics.RecordRequest(true, 200*time.Millisecond)
	metrics.RecordRequest(false, 300*time.Millisecond)

	snapshot := metrics.GetSnapshot()
	if snapshot.TotalRequests != 3 {
		t.Errorf("Expected 3 total requests, got %d", snapshot.TotalRequests)
	}
	if snapshot.SuccessfulRequests != 2 {
		t.Errorf("Expected 2 successful requests, got %d", snapshot.SuccessfulRequests)
	}
	if snapshot.FailedRequests != 1 {
		t.Errorf("Expected 1 failed request, got %d", snapshot.FailedRequests)
	}
	if snapshot.AverageProcessingTime != 200*time.Millisecond {
		t.Errorf("Expected 200ms average, got %v", snapshot.AverageProcessingTime)
	}

	rate := metrics.GetSuccessRate()
	if rate < 66.6 || rate > 66.7 {
		t.Errorf("Expected success rate near 66.67, got %f", rate)
	}
}

func TestServiceMetricsCustomCounters(t *testing.T) {
	metrics := NewServiceMetrics("test-service")

	metrics.IncrementCustomCounter("cache_hits")
	metrics.IncrementCustomCounter("cache_hits")
	metrics.SetCustomMetric("last_department", "CSE")

	snapshot := metrics.GetSnapshot()
	if snapshot.CustomMetrics["cache_hits"].(int64) != 2 {
		t.Errorf("Expected counter at 2, got %v", snapshot.CustomMetrics["cache_hits"])
	}
	if snapshot.CustomMetrics["last_department"] != "CSE" {
		t.Errorf("Expected custom metric CSE, got %v", snapshot.CustomMetrics["last_department"])
	}
}

func TestDatabaseMetricsRecordQuery(t *testing.T) {
	metrics := NewDatabaseMetrics()

	metrics.RecordQuery(true, 50*time.Millisecond, false)
	metrics.RecordQuery(false, 700*time.Millisecond, true)

	snapshot := metrics.GetSnapshot()
	if snapshot.TotalQueries != 2 {
		t.Errorf("Expected 2 queries, got %d", snapshot.TotalQueries)
	}
	if snapshot.SuccessfulQueries != 1 || snapshot.FailedQueries != 1 {
		t.Errorf("Expected 1 success and 1 failure, got %d and %d",
			snapshot.SuccessfulQueries, snapshot.FailedQueries)
	}
	if snapshot.SlowQueries != 1 {
		t.Errorf("Expected 1 slow query, got %d", snapshot.SlowQueries)
	}
	if rate := metrics.GetQuerySuccessRate(); rate != 50.0 {
		t.Errorf("Expected 50%% success rate, got %f", rate)
	}
}

func TestExtractionMetricsRecordParse(t *testing.T) {
	metrics := NewExtractionMetrics()

	metrics.RecordParse(42, 3, 2)
	metrics.RecordParse(0, 0, 0)
	metrics.RecordParseFailure()
	metrics.RecordDayBlock()
	metrics.RecordDayBlock()
	metrics.RecordColumnPairMismatch()

	snapshot := metrics.GetSnapshot()
	if snapshot.DocumentsParsed != 2 {
		t.Errorf("Expected 2 parsed documents, got %d", snapshot.DocumentsParsed)
	}
	if snapshot.EmptyDocuments != 1 {
		t.Errorf("Expected 1 empty document, got %d", snapshot.EmptyDocuments)
	}
	if snapshot.ParseFailures != 1 {
		t.Errorf("Expected 1 parse failure, got %d", snapshot.ParseFailures)
	}
	if snapshot.EntriesExtracted != 42 {
		t.Errorf("Expected 42 entries extracted, got %d", snapshot.EntriesExtracted)
	}
	if snapshot.DuplicatesDiscarded != 3 {
		t.Errorf("Expected 3 duplicates discarded, got %d", snapshot.DuplicatesDiscarded)
	}
	if snapshot.LowConfidenceEntries != 2 {
		t.Errorf("Expected 2 low-confidence entries, got %d", snapshot.LowConfidenceEntries)
	}
	if snapshot.DayBlocksDetected != 2 {
		t.Errorf("Expected 2 day blocks, got %d", snapshot.DayBlocksDetected)
	}
	if snapshot.ColumnPairMismatches != 1 {
		t.Errorf("Expected 1 column pair mismatch, got %d", snapshot.ColumnPairMismatches)
	}

	// Two completed passes out of three attempts.
	rate := metrics.GetParseSuccessRate()
	if rate < 66.6 || rate > 66.7 {
		t.Errorf("Expected parse success rate near 66.67, got %f", rate)
	}
}

func TestRateLimiterEnforcesMinimumDelay(t *testing.T) {
	limiter := NewHTTPRequestRateLimiter(30 * time.Millisecond)

	start := time.Now()
	limiter.EnforceRateLimit()
	limiter.EnforceRateLimit()
	elapsed := time.Since(start)

	if elapsed < 30*time.Millisecond {
		t.Errorf("Second request must wait out the minimum delay, elapsed %v", elapsed)
	}
	if count := limiter.GetRequestCount(); count != 2 {
		t.Errorf("Expected 2 recorded requests, got %d", count)
	}
}

func TestRateLimiterContextCancellation(t *testing.T) {
	limiter := NewHTTPRequestRateLimiter(500 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := limiter.EnforceRateLimitContext(ctx); err == nil {
		t.Error("Expected context cancellation to abort the rate-limit wait")
	}
	if count := limiter.GetRequestCount(); count != 0 {
		t.Errorf("A cancelled wait must not consume a request slot, got %d", count)
	}
}
