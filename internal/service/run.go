package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopdex/shop-collector/internal/batch"
	"github.com/shopdex/shop-collector/internal/collector"
	"github.com/shopdex/shop-collector/internal/store"
	"github.com/shopdex/shop-collector/internal/store/model"
	"github.com/thoas/go-funk"
	"go.uber.org/zap"
)

// RunCreateForm is a validated batch submission.
type RunCreateForm struct {
	Keywords     []string
	DelaySeconds int
	Source       string
}

// DelayBounds clamps nothing: out-of-range submissions are rejected, a
// zero delay falls back to Default.
type DelayBounds struct {
	Default int
	Min     int
	Max     int
}

// RunService owns batch run lifecycle: submission, pause/resume/cancel,
// status and audit queries. It enforces the single-active-run rule
// through the RunGuard before a controller loop is launched.
type RunService struct {
	store      store.Store
	controller *batch.BatchController
	guard      *batch.RunGuard
	bounds     DelayBounds

	// execCtx parents every run loop: request contexts end with the
	// request, run loops end with the process.
	execCtx context.Context
	log     *zap.SugaredLogger
}

func NewRunService(execCtx context.Context, s store.Store, controller *batch.BatchController, guard *batch.RunGuard, bounds DelayBounds) *RunService {
	return &RunService{
		store:      s,
		controller: controller,
		guard:      guard,
		bounds:     bounds,
		execCtx:    execCtx,
		log:        zap.S().Named("run_service"),
	}
}

// Submit validates the form, persists the run with its keyword entries,
// acquires the guard and launches the run loop. The conflict check is
// synchronous: a second submission while a run is active gets an
// ErrRunActive naming the holder, never a queued run.
func (s *RunService) Submit(ctx context.Context, form RunCreateForm) (*model.Run, error) {
	keywords := normalizeKeywords(form.Keywords)
	if len(keywords) == 0 {
		return nil, NewErrInvalidSubmission("no keywords after normalization")
	}

	delay := form.DelaySeconds
	if delay == 0 {
		delay = s.bounds.Default
	}
	if delay < s.bounds.Min || delay > s.bounds.Max {
		return nil, NewErrInvalidSubmission("delay_seconds out of range")
	}

	source := form.Source
	if source == "" {
		source = "api"
	}

	run := model.Run{
		ID:            uuid.New(),
		Source:        source,
		Status:        model.RunStatusPending,
		TotalKeywords: len(keywords),
		DelaySeconds:  delay,
		CreatedAt:     time.Now(),
	}

	if err := s.guard.Acquire(ctx, run.ID); err != nil {
		var active *batch.RunActiveError
		if errors.As(err, &active) {
			return nil, NewErrRunActive(active.ActiveRunID)
		}
		return nil, err
	}

	created, err := s.createRun(ctx, run, keywords)
	if err != nil {
		s.guard.Release(run.ID)
		return nil, err
	}

	s.launch(created.ID)
	return created, nil
}

func (s *RunService) createRun(ctx context.Context, run model.Run, keywords []string) (*model.Run, error) {
	ctx, err := s.store.NewTransactionContext(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_, _ = store.Rollback(ctx)
	}()

	created, err := s.store.Run().Create(ctx, run)
	if err != nil {
		return nil, err
	}

	entries := make([]model.KeywordEntry, len(keywords))
	for i, keyword := range keywords {
		entries[i] = model.KeywordEntry{
			RunID:    run.ID,
			Keyword:  keyword,
			Position: i,
			Status:   model.KeywordStatusPending,
		}
	}
	if err := s.store.Keyword().CreateBatch(ctx, entries); err != nil {
		return nil, err
	}

	if _, err := store.Commit(ctx); err != nil {
		return nil, err
	}
	return created, nil
}

func (s *RunService) launch(runID uuid.UUID) {
	// Register before the goroutine is scheduled: a pause or cancel
	// arriving right after submission must find the loop's signal box.
	s.controller.Register(runID)
	go func() {
		if err := s.controller.Execute(s.execCtx, runID); err != nil {
			s.log.Errorw("run loop ended with error", "run_id", runID, "error", err)
		}
	}()
}

// Pause signals the loop to stop after the current keyword. Legal only
// for a running run.
func (s *RunService) Pause(ctx context.Context, id uuid.UUID) (*model.Run, error) {
	run, err := s.getRun(ctx, id)
	if err != nil {
		return nil, err
	}
	if run.Status != model.RunStatusRunning {
		return nil, NewErrInvalidTransition(id, run.Status, "pause")
	}
	if err := s.controller.Pause(id); err != nil {
		return nil, NewErrInvalidTransition(id, run.Status, "pause")
	}
	return run, nil
}

// Resume re-launches the loop for a paused run. The loop re-derives its
// position from entry states, so resume is idempotent.
func (s *RunService) Resume(ctx context.Context, id uuid.UUID) (*model.Run, error) {
	run, err := s.getRun(ctx, id)
	if err != nil {
		return nil, err
	}
	if run.Status != model.RunStatusPaused {
		return nil, NewErrInvalidTransition(id, run.Status, "resume")
	}

	if err := s.guard.Acquire(ctx, id); err != nil {
		var active *batch.RunActiveError
		if errors.As(err, &active) {
			return nil, NewErrRunActive(active.ActiveRunID)
		}
		return nil, err
	}

	s.launch(id)
	return run, nil
}

// Cancel stops the run and drains every non-terminal entry to cancelled.
// A running loop drains itself at the next boundary; a paused or pending
// run is drained here directly.
func (s *RunService) Cancel(ctx context.Context, id uuid.UUID) (*model.Run, error) {
	run, err := s.getRun(ctx, id)
	if err != nil {
		return nil, err
	}
	if run.Terminal() {
		return nil, NewErrInvalidTransition(id, run.Status, "cancel")
	}

	// A pending run may already have its loop goroutine attached, so the
	// signal path is tried first for pending and running alike. Draining
	// directly while a loop is alive would let it overwrite the
	// cancellation and keep collecting.
	if err := s.controller.Cancel(id); err == nil {
		return run, nil
	}

	// No loop in this process: a stale run left by a crash, or a loop
	// that just exited. Re-read before draining so a run that reached a
	// terminal state in the meantime is not resurrected.
	run, err = s.getRun(ctx, id)
	if err != nil {
		return nil, err
	}
	if run.Terminal() {
		return nil, NewErrInvalidTransition(id, run.Status, "cancel")
	}

	if err := s.drain(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

func (s *RunService) drain(ctx context.Context, run *model.Run) error {
	drained, err := s.store.Keyword().CancelRemaining(ctx, run.ID)
	if err != nil {
		return err
	}

	now := time.Now()
	run.Status = model.RunStatusCancelled
	run.FinishedAt = &now
	if err := s.store.Run().Update(ctx, run); err != nil {
		return err
	}

	s.guard.Release(run.ID)
	s.log.Infow("run drained", "run_id", run.ID, "drained_entries", drained)
	return nil
}

// Status returns the run with its stored counters. No entry scan.
func (s *RunService) Status(ctx context.Context, id uuid.UUID) (*model.Run, error) {
	return s.getRun(ctx, id)
}

// Keywords returns the full ordered entry list for audit and debugging.
func (s *RunService) Keywords(ctx context.Context, id uuid.UUID) (model.KeywordEntryList, error) {
	if _, err := s.getRun(ctx, id); err != nil {
		return nil, err
	}
	return s.store.Keyword().ListByRun(ctx, id)
}

func (s *RunService) ListRuns(ctx context.Context, limit int) (model.RunList, error) {
	return s.store.Run().List(ctx, limit)
}

// Delete removes a terminal run and its entries. Collected listings and
// the dedup history are untouched.
func (s *RunService) Delete(ctx context.Context, id uuid.UUID) error {
	run, err := s.getRun(ctx, id)
	if err != nil {
		return err
	}
	if !run.Terminal() {
		return NewErrInvalidTransition(id, run.Status, "delete")
	}

	ctx, err = s.store.NewTransactionContext(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = store.Rollback(ctx)
	}()

	if err := s.store.Keyword().DeleteByRun(ctx, id); err != nil {
		return err
	}
	if err := s.store.Run().Delete(ctx, id); err != nil {
		return err
	}

	_, err = store.Commit(ctx)
	return err
}

// RecoverStaleRuns pauses a run left in running state by a crashed
// process. Called once at startup before the API accepts traffic. The
// paused run still holds the single-run slot until resumed or cancelled.
func (s *RunService) RecoverStaleRuns(ctx context.Context) error {
	active, err := s.store.Run().Active(ctx)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if active.Status != model.RunStatusRunning {
		return nil
	}

	s.log.Warnw("recovering stale run from previous process",
		"run_id", active.ID,
		"last_heartbeat", active.LastHeartbeat)
	active.Status = model.RunStatusPaused
	return s.store.Run().Update(ctx, active)
}

func (s *RunService) getRun(ctx context.Context, id uuid.UUID) (*model.Run, error) {
	run, err := s.store.Run().Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrRunNotFound(id)
		}
		return nil, err
	}
	return run, nil
}

// normalizeKeywords trims, lower-cases and de-duplicates the submitted
// keywords, preserving first-occurrence order.
func normalizeKeywords(keywords []string) []string {
	normalized := make([]string, 0, len(keywords))
	for _, keyword := range keywords {
		if n := collector.NormalizeKeyword(keyword); n != "" {
			normalized = append(normalized, n)
		}
	}
	return funk.UniqString(normalized)
}
