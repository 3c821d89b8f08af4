package batch

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lthibault/jitterbug/v2"
	"github.com/pkg/errors"
	"github.com/shopdex/shop-collector/internal/progress"
	"github.com/shopdex/shop-collector/internal/store"
	"github.com/shopdex/shop-collector/internal/store/model"
	"github.com/shopdex/shop-collector/pkg/metrics"
	"go.uber.org/zap"
)

// ErrNotRunning is returned by Pause and Cancel when no loop is
// executing the run in this process.
var ErrNotRunning = errors.New("run has no active loop")

// ProgressSink receives a snapshot after every keyword transition and
// every run status change. Publish must never block the run loop.
type ProgressSink interface {
	Publish(ctx context.Context, snap progress.Snapshot)
}

type signalKind int

const (
	signalNone signalKind = iota
	signalPause
	signalCancel
)

// signalBox carries an asynchronous pause/cancel request to the loop.
// Cancel outranks pause. The notify channel is closed on the first
// signal so an in-progress RateGate wait ends early.
type signalBox struct {
	mu     sync.Mutex
	kind   signalKind
	closed bool
	notify chan struct{}
}

func newSignalBox() *signalBox {
	return &signalBox{notify: make(chan struct{})}
}

func (b *signalBox) raise(kind signalKind) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if kind > b.kind {
		b.kind = kind
	}
	if !b.closed {
		close(b.notify)
		b.closed = true
	}
}

func (b *signalBox) pending() signalKind {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.kind
}

// ControllerConfig bounds a single keyword execution and paces the
// liveness heartbeat.
type ControllerConfig struct {
	KeywordTimeout    time.Duration
	HeartbeatInterval time.Duration
}

// BatchController drives one run at a time through its keyword entries:
// pending -> running -> {paused <-> running} -> completed/failed/cancelled.
// Entries execute strictly in position order, one at a time. Pause and
// cancel are sampled only between keywords; an in-flight collection
// always finishes or hits its own timeout first.
type BatchController struct {
	store  store.Store
	runner *KeywordRunner
	guard  *RunGuard
	gate   RateGate
	sink   ProgressSink
	cfg    ControllerConfig
	log    *zap.SugaredLogger

	mu      sync.Mutex
	signals map[uuid.UUID]*signalBox
}

func NewBatchController(s store.Store, runner *KeywordRunner, guard *RunGuard, sink ProgressSink, cfg ControllerConfig) *BatchController {
	return &BatchController{
		store:   s,
		runner:  runner,
		guard:   guard,
		sink:    sink,
		cfg:     cfg,
		log:     zap.S().Named("batch_controller"),
		signals: make(map[uuid.UUID]*signalBox),
	}
}

// Pause asks the loop to stop after the current keyword. The run stays
// resumable and keeps the guard.
func (c *BatchController) Pause(runID uuid.UUID) error {
	return c.signal(runID, signalPause)
}

// Cancel asks the loop to stop after the current keyword and drain the
// remaining entries to cancelled.
func (c *BatchController) Cancel(runID uuid.UUID) error {
	return c.signal(runID, signalCancel)
}

// Running reports whether a loop for runID is executing in this process.
func (c *BatchController) Running(runID uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.signals[runID]
	return ok
}

func (c *BatchController) signal(runID uuid.UUID, kind signalKind) error {
	c.mu.Lock()
	box, ok := c.signals[runID]
	c.mu.Unlock()
	if !ok {
		return ErrNotRunning
	}
	box.raise(kind)
	return nil
}

// Register makes the run's signal box visible before the loop goroutine
// is scheduled, so a pause or cancel issued right after submission
// reaches the loop instead of racing it.
func (c *BatchController) Register(runID uuid.UUID) {
	c.register(runID)
}

func (c *BatchController) register(runID uuid.UUID) *signalBox {
	c.mu.Lock()
	defer c.mu.Unlock()
	if box, ok := c.signals[runID]; ok {
		return box
	}
	box := newSignalBox()
	c.signals[runID] = box
	return box
}

func (c *BatchController) unregister(runID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.signals, runID)
}

// Execute runs the loop for runID until a terminal state or a pause.
// The caller must hold the RunGuard for runID; Execute releases it on
// every exit path except pause. Blocking; callers launch it in its own
// goroutine.
func (c *BatchController) Execute(ctx context.Context, runID uuid.UUID) error {
	sig := c.register(runID)
	defer c.unregister(runID)

	run, err := c.store.Run().Get(ctx, runID)
	if err != nil {
		c.guard.Release(runID)
		return errors.Wrap(err, "loading run")
	}

	entries, err := c.store.Keyword().ListByRun(ctx, runID)
	if err != nil {
		return c.fail(ctx, run, errors.Wrap(err, "loading keyword entries"))
	}

	// Resume re-derives the position from entry states; a crash before
	// the advisory index was persisted just re-evaluates one keyword.
	start := len(entries)
	for i := range entries {
		if !entries[i].Terminal() {
			start = i
			break
		}
	}
	if start == len(entries) {
		return c.complete(ctx, run)
	}

	now := time.Now()
	run.Status = model.RunStatusRunning
	if run.StartedAt == nil {
		run.StartedAt = &now
	}
	run.LastHeartbeat = &now
	if err := c.store.Run().Update(ctx, run); err != nil {
		return c.fail(ctx, run, errors.Wrap(err, "marking run running"))
	}
	c.sink.Publish(ctx, snapshotOf(run, nil))
	metrics.SetActiveRunsMetric(1)
	defer metrics.SetActiveRunsMetric(0)

	stopHeartbeat := c.startHeartbeat(ctx, runID)
	defer stopHeartbeat()

	c.log.Infow("run loop started",
		"run_id", runID,
		"total", run.TotalKeywords,
		"position", entries[start].Position,
		"delay_seconds", run.DelaySeconds)

	delay := time.Duration(run.DelaySeconds) * time.Second

	// A signal raised between submission and the loop starting lands
	// here, before the first keyword executes.
	if done, err := c.checkBoundary(ctx, run, sig); done {
		return err
	}

	for i := start; i < len(entries); i++ {
		entry := &entries[i]

		begun := time.Now()
		entry.Status = model.KeywordStatusRunning
		entry.StartedAt = &begun
		if err := c.store.Keyword().Update(ctx, entry); err != nil {
			return c.fail(ctx, run, errors.Wrap(err, "marking entry running"))
		}

		outcome, err := c.runner.Run(ctx, entry.Keyword, c.cfg.KeywordTimeout)
		if err != nil {
			return c.fail(ctx, run, errors.Wrapf(err, "running keyword %q", entry.Keyword))
		}

		finished := time.Now()
		entry.Status = outcome.Status
		entry.ListingsSeen = outcome.Seen
		entry.ListingsNew = outcome.New
		entry.ListingsUpdated = outcome.Updated
		entry.ErrorKind = outcome.ErrorKind
		entry.ErrorMessage = outcome.ErrorMessage
		entry.FinishedAt = &finished
		if err := c.store.Keyword().Update(ctx, entry); err != nil {
			return c.fail(ctx, run, errors.Wrap(err, "recording entry outcome"))
		}

		switch outcome.Status {
		case model.KeywordStatusCompleted:
			run.CompletedKeywords++
		case model.KeywordStatusFailed:
			run.FailedKeywords++
		case model.KeywordStatusSkipped:
			run.SkippedKeywords++
		}
		run.CurrentIndex = entry.Position + 1
		if err := c.store.Run().Update(ctx, run); err != nil {
			return c.fail(ctx, run, errors.Wrap(err, "updating run counters"))
		}

		metrics.IncreaseKeywordsProcessedMetric(outcome.Status)
		c.sink.Publish(ctx, snapshotOf(run, entry))

		if done, err := c.checkBoundary(ctx, run, sig); done {
			return err
		}

		if i < len(entries)-1 {
			c.gate.Wait(ctx, delay, sig.notify)
			if done, err := c.checkBoundary(ctx, run, sig); done {
				return err
			}
		}
	}

	return c.complete(ctx, run)
}

// checkBoundary samples the pause/cancel signal and the process context.
// It reports whether the loop must stop, having already finalized the run.
func (c *BatchController) checkBoundary(ctx context.Context, run *model.Run, sig *signalBox) (bool, error) {
	switch sig.pending() {
	case signalCancel:
		return true, c.cancel(ctx, run)
	case signalPause:
		return true, c.pause(ctx, run)
	}
	// Process shutdown leaves the run resumable.
	if ctx.Err() != nil {
		return true, c.pause(ctx, run)
	}
	return false, nil
}

func (c *BatchController) startHeartbeat(ctx context.Context, runID uuid.UUID) func() {
	hbCtx, stop := context.WithCancel(context.WithoutCancel(ctx))
	go func() {
		ticker := jitterbug.New(c.cfg.HeartbeatInterval, &jitterbug.Norm{Stdev: c.cfg.HeartbeatInterval / 10})
		defer ticker.Stop()
		for {
			select {
			case <-hbCtx.Done():
				return
			case now := <-ticker.C:
				if err := c.store.Run().Heartbeat(hbCtx, runID, now); err != nil {
					c.log.Warnw("heartbeat update failed", "run_id", runID, "error", err)
				}
			}
		}
	}()
	return stop
}

func (c *BatchController) complete(ctx context.Context, run *model.Run) error {
	return c.finalize(ctx, run, model.RunStatusCompleted)
}

func (c *BatchController) cancel(ctx context.Context, run *model.Run) error {
	fctx := context.WithoutCancel(ctx)
	drained, err := c.store.Keyword().CancelRemaining(fctx, run.ID)
	if err != nil {
		return c.fail(ctx, run, errors.Wrap(err, "cancelling remaining entries"))
	}
	c.log.Infow("run cancelled", "run_id", run.ID, "drained_entries", drained)
	return c.finalize(ctx, run, model.RunStatusCancelled)
}

func (c *BatchController) pause(ctx context.Context, run *model.Run) error {
	fctx := context.WithoutCancel(ctx)
	run.Status = model.RunStatusPaused
	if err := c.store.Run().Update(fctx, run); err != nil {
		return c.fail(ctx, run, errors.Wrap(err, "marking run paused"))
	}
	c.sink.Publish(fctx, snapshotOf(run, nil))
	c.log.Infow("run paused", "run_id", run.ID, "position", run.CurrentIndex)
	// Guard stays held: a paused run still blocks new submissions.
	return nil
}

// fail transitions the run to failed. Best effort: the guard is released
// even when the final write is refused by the store.
func (c *BatchController) fail(ctx context.Context, run *model.Run, cause error) error {
	defer c.guard.Release(run.ID)

	c.log.Errorw("run failed", "run_id", run.ID, "error", cause)

	fctx := context.WithoutCancel(ctx)
	now := time.Now()
	run.Status = model.RunStatusFailed
	run.FinishedAt = &now
	if err := c.store.Run().Update(fctx, run); err != nil {
		c.log.Errorw("recording run failure failed", "run_id", run.ID, "error", err)
	}
	c.sink.Publish(fctx, snapshotOf(run, nil))
	c.observeDuration(run)
	return cause
}

func (c *BatchController) finalize(ctx context.Context, run *model.Run, status string) error {
	defer c.guard.Release(run.ID)

	fctx := context.WithoutCancel(ctx)
	now := time.Now()
	run.Status = status
	run.FinishedAt = &now
	if err := c.store.Run().Update(fctx, run); err != nil {
		return c.fail(ctx, run, errors.Wrap(err, "finalizing run"))
	}
	c.sink.Publish(fctx, snapshotOf(run, nil))
	c.observeDuration(run)
	c.log.Infow("run finished",
		"run_id", run.ID,
		"status", status,
		"completed", run.CompletedKeywords,
		"failed", run.FailedKeywords,
		"skipped", run.SkippedKeywords)
	return nil
}

func (c *BatchController) observeDuration(run *model.Run) {
	if run.StartedAt == nil || run.FinishedAt == nil {
		return
	}
	metrics.ObserveRunDurationMetric(run.Status, run.FinishedAt.Sub(*run.StartedAt).Seconds())
}

func snapshotOf(run *model.Run, entry *model.KeywordEntry) progress.Snapshot {
	snap := progress.Snapshot{
		RunID:  run.ID.String(),
		Status: run.Status,
		Progress: progress.Progress{
			Total:        run.TotalKeywords,
			Completed:    run.CompletedKeywords,
			Failed:       run.FailedKeywords,
			Skipped:      run.SkippedKeywords,
			CurrentIndex: run.CurrentIndex,
			Percentage:   run.Percentage(),
		},
	}
	if entry != nil {
		snap.Entry = &progress.EntryUpdate{
			Keyword:         entry.Keyword,
			Position:        entry.Position,
			Status:          entry.Status,
			ListingsSeen:    entry.ListingsSeen,
			ListingsNew:     entry.ListingsNew,
			ListingsUpdated: entry.ListingsUpdated,
			ErrorKind:       entry.ErrorKind,
		}
	}
	return snap
}
