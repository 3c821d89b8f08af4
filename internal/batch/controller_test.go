package batch_test

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopdex/shop-collector/internal/batch"
	"github.com/shopdex/shop-collector/internal/collector"
	"github.com/shopdex/shop-collector/internal/store"
	"github.com/shopdex/shop-collector/internal/store/model"
)

var _ = Describe("batch controller", func() {
	var (
		s          store.Store
		source     *fakeSource
		sink       *captureSink
		guard      *batch.RunGuard
		controller *batch.BatchController
		dbSeq      int
	)

	newController := func(keywordTimeout time.Duration) {
		guard = batch.NewRunGuard(s)
		runner := batch.NewKeywordRunner(source, batch.NewHistoryOracle(s))
		controller = batch.NewBatchController(s, runner, guard, sink, batch.ControllerConfig{
			KeywordTimeout:    keywordTimeout,
			HeartbeatInterval: time.Second,
		})
	}

	BeforeEach(func() {
		dbSeq++
		s = openTestStore(fmt.Sprintf("controller_%d", dbSeq))
		source = newFakeSource(s)
		sink = &captureSink{}
		newController(time.Minute)
	})

	AfterEach(func() {
		s.Close()
	})

	execute := func(runID uuid.UUID) {
		Expect(guard.Acquire(context.TODO(), runID)).To(BeNil())
		Expect(controller.Execute(context.TODO(), runID)).To(BeNil())
	}

	entryStatuses := func(run *model.Run) []string {
		entries, err := s.Keyword().ListByRun(context.TODO(), run.ID)
		Expect(err).To(BeNil())
		statuses := make([]string, len(entries))
		for i, entry := range entries {
			statuses[i] = entry.Status
		}
		return statuses
	}

	Context("three keywords with one already collected", func() {
		It("attempts the new ones, skips the duplicate, publishes in order", func() {
			Expect(s.History().Record(context.TODO(), model.CollectionHistory{
				Keyword:     "banana",
				CollectedAt: time.Now(),
			})).To(BeNil())

			source.results["apple"] = batch.CollectionResult{Seen: 5, New: 5}
			source.errs["cherry"] = &collector.ConnectionError{Err: fmt.Errorf("connection refused")}

			run := createRun(s, []string{"apple", "banana", "cherry"}, 0)
			execute(run.ID)

			final, err := s.Run().Get(context.TODO(), run.ID)
			Expect(err).To(BeNil())
			Expect(final.Status).To(Equal(model.RunStatusCompleted))
			Expect(final.CompletedKeywords).To(Equal(1))
			Expect(final.SkippedKeywords).To(Equal(1))
			Expect(final.FailedKeywords).To(Equal(1))

			Expect(entryStatuses(final)).To(Equal([]string{
				model.KeywordStatusCompleted,
				model.KeywordStatusSkipped,
				model.KeywordStatusFailed,
			}))

			// The duplicate never reached the source.
			Expect(source.callsSoFar()).To(Equal([]string{"apple", "cherry"}))

			snaps := sink.entrySnapshots()
			Expect(snaps).To(HaveLen(3))
			Expect(snaps[0].Entry.Keyword).To(Equal("apple"))
			Expect(snaps[1].Entry.Keyword).To(Equal("banana"))
			Expect(snaps[2].Entry.Keyword).To(Equal("cherry"))

			// Terminal counts seen by an ordered observer never decrease.
			last := 0
			for _, snap := range snaps {
				terminal := snap.Progress.Completed + snap.Progress.Failed + snap.Progress.Skipped
				Expect(terminal).To(BeNumerically(">=", last))
				Expect(terminal).To(BeNumerically("<=", snap.Progress.Total))
				last = terminal
			}
			Expect(last).To(Equal(3))
		})

		It("keeps the stored counters equal to an entry scan", func() {
			source.results["apple"] = batch.CollectionResult{Seen: 1, New: 1}
			source.errs["cherry"] = &collector.ConnectionError{Err: fmt.Errorf("reset by peer")}

			run := createRun(s, []string{"apple", "cherry"}, 0)
			execute(run.ID)

			final, err := s.Run().Get(context.TODO(), run.ID)
			Expect(err).To(BeNil())

			counts, err := s.Keyword().CountByStatus(context.TODO(), run.ID)
			Expect(err).To(BeNil())
			Expect(final.CompletedKeywords).To(Equal(counts[model.KeywordStatusCompleted]))
			Expect(final.FailedKeywords).To(Equal(counts[model.KeywordStatusFailed]))
			Expect(final.SkippedKeywords).To(Equal(counts[model.KeywordStatusSkipped]))
		})
	})

	Context("failure isolation", func() {
		It("records a timeout and moves on", func() {
			newController(50 * time.Millisecond)
			source.results["apple"] = batch.CollectionResult{Seen: 1, New: 1}
			source.blocks["banana"] = 500 * time.Millisecond
			source.results["cherry"] = batch.CollectionResult{Seen: 2, New: 2}

			run := createRun(s, []string{"apple", "banana", "cherry"}, 0)
			execute(run.ID)

			final, err := s.Run().Get(context.TODO(), run.ID)
			Expect(err).To(BeNil())
			Expect(final.Status).To(Equal(model.RunStatusCompleted))
			Expect(final.FailedKeywords).To(Equal(1))

			entries, err := s.Keyword().ListByRun(context.TODO(), run.ID)
			Expect(err).To(BeNil())
			Expect(entries[1].Status).To(Equal(model.KeywordStatusFailed))
			Expect(entries[1].ErrorKind).To(Equal(model.FailureKindTimeout))
			Expect(entries[1].ErrorMessage).To(ContainSubstring("banana"))
			Expect(entries[2].Status).To(Equal(model.KeywordStatusCompleted))
		})

		It("records access denied without poisoning the dedup history", func() {
			source.errs["apple"] = &collector.StatusError{StatusCode: 429, Body: "rate limited"}

			run := createRun(s, []string{"apple"}, 0)
			execute(run.ID)

			entries, err := s.Keyword().ListByRun(context.TODO(), run.ID)
			Expect(err).To(BeNil())
			Expect(entries[0].ErrorKind).To(Equal(model.FailureKindAccessDenied))

			// The keyword stays collectable by a later run.
			collected, err := s.History().Exists(context.TODO(), "apple")
			Expect(err).To(BeNil())
			Expect(collected).To(BeFalse())
		})
	})

	Context("pause and resume", func() {
		It("stops between keywords and resumes at the first non-terminal entry", func() {
			source.results["apple"] = batch.CollectionResult{Seen: 1, New: 1}
			source.results["banana"] = batch.CollectionResult{Seen: 1, New: 1}
			source.results["cherry"] = batch.CollectionResult{Seen: 1, New: 1}

			run := createRun(s, []string{"apple", "banana", "cherry"}, 1)
			Expect(guard.Acquire(context.TODO(), run.ID)).To(BeNil())

			done := make(chan error, 1)
			go func() { done <- controller.Execute(context.TODO(), run.ID) }()

			// Pause lands while the loop waits out the inter-keyword delay.
			Eventually(func() int { return source.callCount("apple") }, "2s", "10ms").Should(Equal(1))
			Eventually(func() error { return controller.Pause(run.ID) }, "2s", "10ms").Should(Succeed())
			Eventually(done, "2s").Should(Receive(BeNil()))

			paused, err := s.Run().Get(context.TODO(), run.ID)
			Expect(err).To(BeNil())
			Expect(paused.Status).To(Equal(model.RunStatusPaused))

			statuses := entryStatuses(paused)
			Expect(statuses[0]).To(Equal(model.KeywordStatusCompleted))
			Expect(statuses[2]).To(Equal(model.KeywordStatusPending))

			// The guard is still held: a new run cannot start.
			err = guard.Acquire(context.TODO(), mustUUID("11111111-1111-1111-1111-111111111111"))
			Expect(err).To(BeAssignableToTypeOf(&batch.RunActiveError{}))

			// Resume finishes the rest without re-executing the first keyword.
			Expect(guard.Acquire(context.TODO(), run.ID)).To(BeNil())
			Expect(controller.Execute(context.TODO(), run.ID)).To(BeNil())

			final, err := s.Run().Get(context.TODO(), run.ID)
			Expect(err).To(BeNil())
			Expect(final.Status).To(Equal(model.RunStatusCompleted))
			Expect(final.CompletedKeywords).To(Equal(3))
			Expect(source.callCount("apple")).To(Equal(1))
			Expect(source.callCount("banana")).To(Equal(1))
			Expect(source.callCount("cherry")).To(Equal(1))
		})
	})

	Context("cancel", func() {
		It("drains the remaining entries and stops calling the source", func() {
			source.results["apple"] = batch.CollectionResult{Seen: 1, New: 1}
			source.results["banana"] = batch.CollectionResult{Seen: 1, New: 1}
			source.results["cherry"] = batch.CollectionResult{Seen: 1, New: 1}

			run := createRun(s, []string{"apple", "banana", "cherry"}, 1)
			Expect(guard.Acquire(context.TODO(), run.ID)).To(BeNil())

			done := make(chan error, 1)
			go func() { done <- controller.Execute(context.TODO(), run.ID) }()

			Eventually(func() int { return source.callCount("apple") }, "2s", "10ms").Should(Equal(1))
			Eventually(func() error { return controller.Cancel(run.ID) }, "2s", "10ms").Should(Succeed())
			Eventually(done, "2s").Should(Receive(BeNil()))

			final, err := s.Run().Get(context.TODO(), run.ID)
			Expect(err).To(BeNil())
			Expect(final.Status).To(Equal(model.RunStatusCancelled))

			counts, err := s.Keyword().CountByStatus(context.TODO(), run.ID)
			Expect(err).To(BeNil())
			Expect(counts[model.KeywordStatusCancelled]).To(Equal(2))
			Expect(source.callsSoFar()).To(Equal([]string{"apple"}))

			// The guard is free again: a new submission may start.
			Expect(guard.Acquire(context.TODO(), mustUUID("22222222-2222-2222-2222-222222222222"))).To(BeNil())
		})

		It("honors a cancel raised before the loop starts", func() {
			source.results["apple"] = batch.CollectionResult{Seen: 1, New: 1}
			source.results["banana"] = batch.CollectionResult{Seen: 1, New: 1}

			run := createRun(s, []string{"apple", "banana"}, 1)
			Expect(guard.Acquire(context.TODO(), run.ID)).To(BeNil())

			// Registration precedes the loop, the way a submission wires
			// it up, so the signal lands before any keyword executes.
			controller.Register(run.ID)
			Expect(controller.Cancel(run.ID)).To(Succeed())

			Expect(controller.Execute(context.TODO(), run.ID)).To(BeNil())

			final, err := s.Run().Get(context.TODO(), run.ID)
			Expect(err).To(BeNil())
			Expect(final.Status).To(Equal(model.RunStatusCancelled))
			Expect(entryStatuses(final)).To(Equal([]string{
				model.KeywordStatusCancelled,
				model.KeywordStatusCancelled,
			}))
			Expect(source.callsSoFar()).To(BeEmpty())

			_, held := guard.Holder()
			Expect(held).To(BeFalse())
		})
	})

	Context("signalling a run with no loop", func() {
		It("rejects pause and cancel", func() {
			run := createRun(s, []string{"apple"}, 0)
			Expect(controller.Pause(run.ID)).To(MatchError(batch.ErrNotRunning))
			Expect(controller.Cancel(run.ID)).To(MatchError(batch.ErrNotRunning))
		})
	})

	Context("a run whose entries are all terminal", func() {
		It("completes immediately without touching the source", func() {
			run := createRun(s, []string{"apple"}, 0)
			entries, err := s.Keyword().ListByRun(context.TODO(), run.ID)
			Expect(err).To(BeNil())
			entries[0].Status = model.KeywordStatusCompleted
			Expect(s.Keyword().Update(context.TODO(), &entries[0])).To(BeNil())

			execute(run.ID)

			final, err := s.Run().Get(context.TODO(), run.ID)
			Expect(err).To(BeNil())
			Expect(final.Status).To(Equal(model.RunStatusCompleted))
			Expect(source.callsSoFar()).To(BeEmpty())
		})
	})
})
