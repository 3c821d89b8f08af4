package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// KeywordEntry status values. Terminal states are completed, failed,
// skipped and cancelled.
const (
	KeywordStatusPending   = "pending"
	KeywordStatusRunning   = "running"
	KeywordStatusCompleted = "completed"
	KeywordStatusFailed    = "failed"
	KeywordStatusSkipped   = "skipped"
	KeywordStatusCancelled = "cancelled"
)

// Keyword failure kinds recorded on failed entries.
const (
	FailureKindTimeout      = "timeout"
	FailureKindConnection   = "connection"
	FailureKindAccessDenied = "access_denied"
	FailureKindUnexpected   = "unexpected"
)

// KeywordEntry is the unit of work for one keyword within a run.
// Position is assigned at submission and defines execution order.
type KeywordEntry struct {
	ID       uint      `gorm:"primaryKey"`
	RunID    uuid.UUID `gorm:"uniqueIndex:keyword_entries_run_position;index;not null"`
	Keyword  string    `gorm:"not null"`
	Position int       `gorm:"uniqueIndex:keyword_entries_run_position;not null"`
	Status   string    `gorm:"index;not null"`

	ListingsSeen    int
	ListingsNew     int
	ListingsUpdated int

	ErrorKind    string
	ErrorMessage string `gorm:"type:VARCHAR;size:500"`

	StartedAt  *time.Time
	FinishedAt *time.Time
}

type KeywordEntryList []KeywordEntry

func (k KeywordEntry) String() string {
	val, _ := json.Marshal(k)
	return string(val)
}

// Terminal reports whether the entry will not be processed again.
func (k KeywordEntry) Terminal() bool {
	switch k.Status {
	case KeywordStatusCompleted, KeywordStatusFailed, KeywordStatusSkipped, KeywordStatusCancelled:
		return true
	}
	return false
}
