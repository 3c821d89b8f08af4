package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Run status values. A run is terminal in completed, failed or cancelled.
const (
	RunStatusPending   = "pending"
	RunStatusRunning   = "running"
	RunStatusPaused    = "paused"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
	RunStatusCancelled = "cancelled"
)

// Run is one submitted keyword batch. Counters are stored denormalized so
// the status query never has to scan keyword entries.
type Run struct {
	ID     uuid.UUID `gorm:"primaryKey"`
	Source string    `gorm:"not null"` // uploaded csv filename or "api"
	Status string    `gorm:"index;not null"`

	TotalKeywords     int
	CompletedKeywords int
	FailedKeywords    int
	SkippedKeywords   int

	// CurrentIndex is the position of the next entry to process. Resume
	// re-derives the real position from entry states; this is advisory.
	CurrentIndex int

	// DelaySeconds is the inter-keyword delay captured at submission.
	// Immutable for the lifetime of the run.
	DelaySeconds int

	CreatedAt     time.Time `gorm:"index"`
	StartedAt     *time.Time
	FinishedAt    *time.Time
	LastHeartbeat *time.Time
}

type RunList []Run

func (r Run) String() string {
	val, _ := json.Marshal(r)
	return string(val)
}

// Terminal reports whether the run reached a terminal status.
func (r Run) Terminal() bool {
	switch r.Status {
	case RunStatusCompleted, RunStatusFailed, RunStatusCancelled:
		return true
	}
	return false
}

// TerminalKeywords is the number of keyword entries the stored counters
// account for.
func (r Run) TerminalKeywords() int {
	return r.CompletedKeywords + r.FailedKeywords + r.SkippedKeywords
}

// Percentage is the run progress derived from the stored counters.
// Cancelled entries do not advance it.
func (r Run) Percentage() float64 {
	if r.TotalKeywords == 0 {
		return 0
	}
	return float64(int(float64(r.TerminalKeywords())/float64(r.TotalKeywords)*1000)) / 10
}

func NewRunFromId(id uuid.UUID) *Run {
	return &Run{ID: id}
}
