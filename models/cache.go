package models

import (
	"time"

	"github.com/google/uuid"
)

// RoutineCacheRecord is one durable parse result for a (department, version)
// pair. At most one non-expired record exists per pair; a new parse replaces
// the old record and its owned entries rather than amending them.
type RoutineCacheRecord struct {
	ID           uuid.UUID    `json:"id" gorm:"type:uuid;default:gen_random_uuid()"`
	Department   string       `json:"department"`
	SourceURL    string       `json:"source_url"`
	Version      string       `json:"version"`
	ParsedAt     time.Time    `json:"parsed_at"`
	ExpiresAt    time.Time    `json:"expires_at"`
	TotalClasses int          `json:"total_classes"`
	Entries      []ClassEntry `json:"entries" gorm:"-"`
}

// IsExpired reports whether the record has passed its TTL.
func (r *RoutineCacheRecord) IsExpired() bool {
	return time.Now().After(r.ExpiresAt)
}

// CacheStatus reports whether a valid cached parse exists for a department
// without forcing a parse. ParsedAt and ExpiresAt are nil when no valid
// record exists.
type CacheStatus struct {
	Department   string     `json:"department"`
	IsCached     bool       `json:"is_cached"`
	Version      string     `json:"version,omitempty"`
	ParsedAt     *time.Time `json:"parsed_at,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	TotalClasses int        `json:"total_classes,omitempty"`
}

// RoutineSource is the registered upstream document for a department: where
// the published routine lives and which version label it currently carries.
type RoutineSource struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;default:gen_random_uuid()"`
	Department string    `json:"department" gorm:"uniqueIndex"`
	SourceURL  string    `json:"source_url"`
	Version    string    `json:"version"`
	UpdatedAt  time.Time `json:"updated_at"`
}
