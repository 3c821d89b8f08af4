package service

import (
	"fmt"

	"github.com/google/uuid"
)

type ErrResourceNotFound struct {
	error
}

func NewErrResourceNotFound(id string, resourceType string) *ErrResourceNotFound {
	return &ErrResourceNotFound{fmt.Errorf("%s %s not found", resourceType, id)}
}

func NewErrRunNotFound(id uuid.UUID) *ErrResourceNotFound {
	return NewErrResourceNotFound(id.String(), "run")
}

func NewErrListingNotFound(productID string) *ErrResourceNotFound {
	return NewErrResourceNotFound(productID, "listing")
}

// ErrRunActive is the submission conflict: another run holds the guard.
type ErrRunActive struct {
	error
	ActiveRunID uuid.UUID
}

func NewErrRunActive(activeID uuid.UUID) *ErrRunActive {
	return &ErrRunActive{
		error:       fmt.Errorf("another collection run is active: %s", activeID),
		ActiveRunID: activeID,
	}
}

type ErrInvalidSubmission struct {
	error
}

func NewErrInvalidSubmission(message string) *ErrInvalidSubmission {
	return &ErrInvalidSubmission{fmt.Errorf("invalid submission: %s", message)}
}

// ErrInvalidTransition is returned when pause/resume/cancel/delete is
// requested for a run whose state does not allow it.
type ErrInvalidTransition struct {
	error
}

func NewErrInvalidTransition(id uuid.UUID, status string, op string) *ErrInvalidTransition {
	return &ErrInvalidTransition{fmt.Errorf("run %s is %s, cannot %s", id, status, op)}
}

// ErrKeywordCollected is returned by the single-keyword collect endpoint
// when the keyword is in the history and force was not set.
type ErrKeywordCollected struct {
	error
}

func NewErrKeywordCollected(keyword string) *ErrKeywordCollected {
	return &ErrKeywordCollected{fmt.Errorf("keyword %q was already collected; use force to re-collect", keyword)}
}
