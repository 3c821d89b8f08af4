package store_test

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopdex/shop-collector/internal/store"
	"github.com/shopdex/shop-collector/internal/store/model"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

var _ = Describe("keyword store", Ordered, func() {
	var (
		s      store.Store
		gormdb *gorm.DB
		runID  uuid.UUID
	)

	seedEntries := func(statuses ...string) {
		entries := make([]model.KeywordEntry, len(statuses))
		for i, status := range statuses {
			entries[i] = model.KeywordEntry{
				RunID:    runID,
				Keyword:  uuid.NewString(),
				Position: i,
				Status:   status,
			}
		}
		Expect(s.Keyword().CreateBatch(context.TODO(), entries)).To(BeNil())
	}

	BeforeAll(func() {
		gormdb = openTestDB("keyword_store")
		s = store.NewStore(gormdb)
		Expect(s.InitialMigration()).To(BeNil())
	})

	AfterAll(func() {
		s.Close()
	})

	BeforeEach(func() {
		runID = uuid.New()
	})

	AfterEach(func() {
		gormdb.Exec("DELETE FROM keyword_entries;")
	})

	Context("create and list", func() {
		It("returns entries in position order", func() {
			seedEntries(
				model.KeywordStatusPending,
				model.KeywordStatusPending,
				model.KeywordStatusPending,
			)

			entries, err := s.Keyword().ListByRun(context.TODO(), runID)
			Expect(err).To(BeNil())
			Expect(entries).To(HaveLen(3))
			for i, entry := range entries {
				Expect(entry.Position).To(Equal(i))
			}
		})

		It("scopes entries to their run", func() {
			seedEntries(model.KeywordStatusPending)

			otherRun := uuid.New()
			Expect(s.Keyword().CreateBatch(context.TODO(), []model.KeywordEntry{
				{RunID: otherRun, Keyword: "other", Position: 0, Status: model.KeywordStatusPending},
			})).To(BeNil())

			entries, err := s.Keyword().ListByRun(context.TODO(), runID)
			Expect(err).To(BeNil())
			Expect(entries).To(HaveLen(1))
		})

		It("rejects a duplicate position within a run", func() {
			seedEntries(model.KeywordStatusPending)

			err := s.Keyword().CreateBatch(context.TODO(), []model.KeywordEntry{
				{RunID: runID, Keyword: "dup", Position: 0, Status: model.KeywordStatusPending},
			})
			Expect(err).ToNot(BeNil())
		})
	})

	Context("get by position", func() {
		It("finds a single entry", func() {
			seedEntries(model.KeywordStatusPending, model.KeywordStatusPending)

			entry, err := s.Keyword().Get(context.TODO(), runID, 1)
			Expect(err).To(BeNil())
			Expect(entry.Position).To(Equal(1))
		})

		It("returns not found for a missing position", func() {
			_, err := s.Keyword().Get(context.TODO(), runID, 9)
			Expect(err).To(MatchError(store.ErrRecordNotFound))
		})
	})

	Context("update", func() {
		It("records an outcome", func() {
			seedEntries(model.KeywordStatusRunning)

			entries, err := s.Keyword().ListByRun(context.TODO(), runID)
			Expect(err).To(BeNil())

			entry := &entries[0]
			entry.Status = model.KeywordStatusFailed
			entry.ErrorKind = model.FailureKindTimeout
			entry.ErrorMessage = "keyword timed out"
			Expect(s.Keyword().Update(context.TODO(), entry)).To(BeNil())

			found, err := s.Keyword().Get(context.TODO(), runID, 0)
			Expect(err).To(BeNil())
			Expect(found.Status).To(Equal(model.KeywordStatusFailed))
			Expect(found.ErrorKind).To(Equal(model.FailureKindTimeout))
		})
	})

	Context("cancel remaining", func() {
		It("drains only non-terminal entries", func() {
			seedEntries(
				model.KeywordStatusCompleted,
				model.KeywordStatusFailed,
				model.KeywordStatusRunning,
				model.KeywordStatusPending,
			)

			drained, err := s.Keyword().CancelRemaining(context.TODO(), runID)
			Expect(err).To(BeNil())
			Expect(drained).To(Equal(int64(2)))

			counts, err := s.Keyword().CountByStatus(context.TODO(), runID)
			Expect(err).To(BeNil())
			Expect(counts[model.KeywordStatusCancelled]).To(Equal(2))
			Expect(counts[model.KeywordStatusCompleted]).To(Equal(1))
			Expect(counts[model.KeywordStatusFailed]).To(Equal(1))
		})

		It("is a no-op when everything is terminal", func() {
			seedEntries(model.KeywordStatusCompleted, model.KeywordStatusSkipped)

			drained, err := s.Keyword().CancelRemaining(context.TODO(), runID)
			Expect(err).To(BeNil())
			Expect(drained).To(BeZero())
		})
	})

	Context("delete by run", func() {
		It("removes all entries of the run", func() {
			seedEntries(model.KeywordStatusCompleted, model.KeywordStatusCompleted)

			Expect(s.Keyword().DeleteByRun(context.TODO(), runID)).To(BeNil())

			entries, err := s.Keyword().ListByRun(context.TODO(), runID)
			Expect(err).To(BeNil())
			Expect(entries).To(BeEmpty())
		})
	})
})
