package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopdex/shop-collector/internal/store"
)

// RunActiveError is returned when a submission is rejected because
// another run currently holds the guard. It carries the active run id so
// the caller can report it.
type RunActiveError struct {
	ActiveRunID uuid.UUID
}

func (e *RunActiveError) Error() string {
	return fmt.Sprintf("another collection run is active: %s", e.ActiveRunID)
}

// RunGuard enforces the single-active-run rule. The in-process lock
// serializes concurrent submissions; the persisted run status backs it
// across restarts, so a paused run left by a previous process still
// rejects new submissions until it is resumed or cancelled.
type RunGuard struct {
	mu     sync.Mutex
	store  store.Store
	active *uuid.UUID
}

func NewRunGuard(s store.Store) *RunGuard {
	return &RunGuard{store: s}
}

// Acquire takes the guard for runID. Exactly one concurrent Acquire
// succeeds; the rest get a RunActiveError naming the holder. Acquiring
// for the run that already holds the guard succeeds, which is what lets
// a paused run resume.
func (g *RunGuard) Acquire(ctx context.Context, runID uuid.UUID) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.active != nil {
		if *g.active == runID {
			return nil
		}
		return &RunActiveError{ActiveRunID: *g.active}
	}

	// No loop in this process; a non-terminal run in the store belongs
	// to a previous process and still blocks submissions.
	active, err := g.store.Run().Active(ctx)
	if err != nil && !errors.Is(err, store.ErrRecordNotFound) {
		return err
	}
	if active != nil && active.ID != runID {
		return &RunActiveError{ActiveRunID: active.ID}
	}

	id := runID
	g.active = &id
	return nil
}

// Release drops the guard if runID holds it. Idempotent.
func (g *RunGuard) Release(runID uuid.UUID) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.active != nil && *g.active == runID {
		g.active = nil
	}
}

// Holder returns the run currently holding the guard in this process.
func (g *RunGuard) Holder() (uuid.UUID, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.active == nil {
		return uuid.Nil, false
	}
	return *g.active, true
}
