package models

import (
	"time"

	"github.com/google/uuid"
)

// Cache lifecycle actions recorded in the update log.
const (
	CacheActionParsed      = "parsed"
	CacheActionInvalidated = "invalidated"
	CacheActionReplaced    = "replaced"
)

// RoutineUpdateLog records one cache lifecycle event: a fresh parse, an
// explicit invalidation, or an expired record being replaced.
type RoutineUpdateLog struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;default:gen_random_uuid()"`
	Department string    `json:"department"`
	Version    string    `json:"version"`
	Action     string    `json:"action"`
	EntryCount int       `json:"entry_count"`
	SourceURL  string    `json:"source_url"`
	Timestamp  time.Time `json:"timestamp"`
}
