package shared

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrorCategory represents different types of errors that can occur
type ErrorCategory string

const (
	ErrorCategoryConfiguration ErrorCategory = "configuration"
	ErrorCategoryNetwork       ErrorCategory = "network"
	ErrorCategoryDatabase      ErrorCategory = "database"
	ErrorCategoryValidation    ErrorCategory = "validation"
	ErrorCategoryProcessing    ErrorCategory = "processing"
	ErrorCategoryResource      ErrorCategory = "resource"
	ErrorCategoryTimeout       ErrorCategory = "timeout"
)

// Error codes for the parsing pipeline and cache layer. Fetch and extraction
// failures abort a parse; no-entries is a non-fatal outcome; cache-unavailable
// switches the schedule service into memory-only degraded mode.
const (
	ErrCodeSourceFetchFailure = "SOURCE_FETCH_FAILURE"
	ErrCodeExtractionFailure  = "EXTRACTION_FAILURE"
	ErrCodeNoEntriesFound     = "NO_ENTRIES_FOUND"
	ErrCodeCacheUnavailable   = "CACHE_UNAVAILABLE"
)

// ServiceError represents a standardized error with additional context
type ServiceError struct {
	Category    ErrorCategory `json:"category"`
	Code        string        `json:"code"`
	Message     string        `json:"message"`
	Details     interface{}   `json:"details,omitempty"`
	Timestamp   time.Time     `json:"timestamp"`
	ServiceName string        `json:"service_name"`
	Operation   string        `json:"operation"`
	Retryable   bool          `json:"retryable"`
	Cause       error         `json:"-"` // Original error, not serialized
}

// Error implements the error interface
func (e *ServiceError) Error() string {
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// NewServiceError creates a new service error
func NewServiceError(category ErrorCategory, code, message, serviceName, operation string, retryable bool, cause error) *ServiceError {
	return &ServiceError{
		Category:    category,
		Code:        code,
		Message:     message,
		Timestamp:   time.Now(),
		ServiceName: serviceName,
		Operation:   operation,
		Retryable:   retryable,
		Cause:       cause,
	}
}

// WithDetails adds additional details to the error
func (e *ServiceError) WithDetails(details interface{}) *ServiceError {
	e.Details = details
	return e
}

// IsRetryable returns whether the error is retryable
func (e *ServiceError) IsRetryable() bool {
	return e.Retryable
}

// GetCategory returns the error category
func (e *ServiceError) GetCategory() ErrorCategory {
	return e.Category
}

// LogError logs the error with structured fields
func (e *ServiceError) LogError() {
	logrus.WithFields(logrus.Fields{
		"error_category":   e.Category,
		"error_code":       e.Code,
		"error_message":    e.Message,
		"service_name":     e.ServiceName,
		"operation":        e.Operation,
		"retryable":        e.Retryable,
		"timestamp":        e.Timestamp,
		"details":          e.Details,
		"underlying_error": e.Cause,
	}).Error("Service error occurred")
}

// NewSourceFetchError reports a failure to retrieve the routine document over
// the network. The pipeline aborts; retry policy belongs to the caller.
func NewSourceFetchError(sourceURL, serviceName, operation string, cause error) *ServiceError {
	return NewServiceError(
		ErrorCategoryNetwork,
		ErrCodeSourceFetchFailure,
		fmt.Sprintf("failed to fetch routine document from %s", sourceURL),
		serviceName,
		operation,
		true,
		cause,
	).WithDetails(map[string]string{"source_url": sourceURL})
}

// NewExtractionError reports that the layout-text extraction step failed or
// produced empty output. The pipeline aborts with the cause attached.
func NewExtractionError(sourceURL, serviceName, operation string, cause error) *ServiceError {
	return NewServiceError(
		ErrorCategoryProcessing,
		ErrCodeExtractionFailure,
		fmt.Sprintf("layout text extraction failed for %s", sourceURL),
		serviceName,
		operation,
		false,
		cause,
	).WithDetails(map[string]string{"source_url": sourceURL})
}

// NewNoEntriesError reports a parse that completed but yielded zero class
// entries. Callers use this to tell an empty schedule apart from a broken
// pipeline; it never aborts a request.
func NewNoEntriesError(sourceURL, serviceName, operation string) *ServiceError {
	return NewServiceError(
		ErrorCategoryValidation,
		ErrCodeNoEntriesFound,
		fmt.Sprintf("document at %s parsed successfully but contained no class entries", sourceURL),
		serviceName,
		operation,
		false,
		nil,
	)
}

// NewCacheUnavailableError reports that the persistent cache store cannot be
// reached. The schedule service logs it and degrades to memory-only caching.
func NewCacheUnavailableError(serviceName, operation string, cause error) *ServiceError {
	return NewServiceError(
		ErrorCategoryDatabase,
		ErrCodeCacheUnavailable,
		"persistent cache store is unavailable, continuing without durable caching",
		serviceName,
		operation,
		true,
		cause,
	)
}

// IsNoEntriesFound reports whether err is the non-fatal empty-schedule outcome.
func IsNoEntriesFound(err error) bool {
	return hasErrorCode(err, ErrCodeNoEntriesFound)
}

// IsCacheUnavailable reports whether err indicates the durable store is down.
func IsCacheUnavailable(err error) bool {
	return hasErrorCode(err, ErrCodeCacheUnavailable)
}

// IsSourceFetchFailure reports whether err came from document retrieval.
func IsSourceFetchFailure(err error) bool {
	return hasErrorCode(err, ErrCodeSourceFetchFailure)
}

// IsExtractionFailure reports whether err came from the layout-text extraction step.
func IsExtractionFailure(err error) bool {
	return hasErrorCode(err, ErrCodeExtractionFailure)
}

func hasErrorCode(err error, code string) bool {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr.Code == code
	}
	return false
}

// WrapError wraps an existing error with service error context
func WrapError(err error, category ErrorCategory, code, serviceName, operation string, retryable bool) *ServiceError {
	if err == nil {
		return nil
	}

	// If it's already a ServiceError, just update the context
	if serviceErr, ok := err.(*ServiceError); ok {
		serviceErr.ServiceName = serviceName
		serviceErr.Operation = operation
		return serviceErr
	}

	return NewServiceError(category, code, err.Error(), serviceName, operation, retryable, err)
}

// IsRetryableError checks if an error is retryable
func IsRetryableError(err error) bool {
	if serviceErr, ok := err.(*ServiceError); ok {
		return serviceErr.IsRetryable()
	}

	// Default heuristics for standard errors
	errorMsg := strings.ToLower(err.Error())
	retryablePatterns := []string{
		"timeout", "connection refused", "connection reset",
		"temporary failure", "service unavailable", "too many requests",
		"network", "dns", "socket",
	}

	for _, pattern := range retryablePatterns {
		if strings.Contains(errorMsg, pattern) {
			return true
		}
	}

	return false
}
