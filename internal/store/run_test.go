package store_test

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopdex/shop-collector/internal/store"
	"github.com/shopdex/shop-collector/internal/store/model"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

var _ = Describe("run store", Ordered, func() {
	var (
		s      store.Store
		gormdb *gorm.DB
	)

	BeforeAll(func() {
		gormdb = openTestDB("run_store")
		s = store.NewStore(gormdb)
		Expect(s.InitialMigration()).To(BeNil())
	})

	AfterAll(func() {
		s.Close()
	})

	AfterEach(func() {
		gormdb.Exec("DELETE FROM runs;")
	})

	Context("create and get", func() {
		It("round-trips a run", func() {
			run := model.Run{
				ID:            uuid.New(),
				Source:        "api",
				Status:        model.RunStatusPending,
				TotalKeywords: 3,
				DelaySeconds:  60,
				CreatedAt:     time.Now(),
			}
			created, err := s.Run().Create(context.TODO(), run)
			Expect(err).To(BeNil())
			Expect(created.ID).To(Equal(run.ID))

			found, err := s.Run().Get(context.TODO(), run.ID)
			Expect(err).To(BeNil())
			Expect(found.Status).To(Equal(model.RunStatusPending))
			Expect(found.TotalKeywords).To(Equal(3))
			Expect(found.DelaySeconds).To(Equal(60))
		})

		It("returns not found for an unknown id", func() {
			_, err := s.Run().Get(context.TODO(), uuid.New())
			Expect(err).To(MatchError(store.ErrRecordNotFound))
		})
	})

	Context("list", func() {
		It("lists newest first with a limit", func() {
			base := time.Now()
			for i := 0; i < 3; i++ {
				_, err := s.Run().Create(context.TODO(), model.Run{
					ID:        uuid.New(),
					Source:    "api",
					Status:    model.RunStatusCompleted,
					CreatedAt: base.Add(time.Duration(i) * time.Minute),
				})
				Expect(err).To(BeNil())
			}

			runs, err := s.Run().List(context.TODO(), 2)
			Expect(err).To(BeNil())
			Expect(runs).To(HaveLen(2))
			Expect(runs[0].CreatedAt.After(runs[1].CreatedAt)).To(BeTrue())
		})
	})

	Context("active", func() {
		It("finds the running run", func() {
			id := uuid.New()
			_, err := s.Run().Create(context.TODO(), model.Run{ID: id, Source: "api", Status: model.RunStatusRunning})
			Expect(err).To(BeNil())
			_, err = s.Run().Create(context.TODO(), model.Run{ID: uuid.New(), Source: "api", Status: model.RunStatusCompleted})
			Expect(err).To(BeNil())

			active, err := s.Run().Active(context.TODO())
			Expect(err).To(BeNil())
			Expect(active.ID).To(Equal(id))
		})

		It("finds the paused run", func() {
			id := uuid.New()
			_, err := s.Run().Create(context.TODO(), model.Run{ID: id, Source: "api", Status: model.RunStatusPaused})
			Expect(err).To(BeNil())

			active, err := s.Run().Active(context.TODO())
			Expect(err).To(BeNil())
			Expect(active.ID).To(Equal(id))
		})

		It("reports not found when every run is terminal", func() {
			_, err := s.Run().Create(context.TODO(), model.Run{ID: uuid.New(), Source: "api", Status: model.RunStatusCancelled})
			Expect(err).To(BeNil())

			_, err = s.Run().Active(context.TODO())
			Expect(err).To(MatchError(store.ErrRecordNotFound))
		})
	})

	Context("update", func() {
		It("persists counter changes", func() {
			id := uuid.New()
			created, err := s.Run().Create(context.TODO(), model.Run{ID: id, Source: "api", Status: model.RunStatusRunning, TotalKeywords: 5})
			Expect(err).To(BeNil())

			created.CompletedKeywords = 2
			created.SkippedKeywords = 1
			created.CurrentIndex = 3
			Expect(s.Run().Update(context.TODO(), created)).To(BeNil())

			found, err := s.Run().Get(context.TODO(), id)
			Expect(err).To(BeNil())
			Expect(found.CompletedKeywords).To(Equal(2))
			Expect(found.SkippedKeywords).To(Equal(1))
			Expect(found.CurrentIndex).To(Equal(3))
			Expect(found.TerminalKeywords()).To(Equal(3))
		})
	})

	Context("heartbeat", func() {
		It("updates only the heartbeat column", func() {
			id := uuid.New()
			_, err := s.Run().Create(context.TODO(), model.Run{ID: id, Source: "api", Status: model.RunStatusRunning})
			Expect(err).To(BeNil())

			at := time.Now()
			Expect(s.Run().Heartbeat(context.TODO(), id, at)).To(BeNil())

			found, err := s.Run().Get(context.TODO(), id)
			Expect(err).To(BeNil())
			Expect(found.LastHeartbeat).ToNot(BeNil())
			Expect(found.Status).To(Equal(model.RunStatusRunning))
		})
	})

	Context("delete", func() {
		It("removes the run", func() {
			id := uuid.New()
			_, err := s.Run().Create(context.TODO(), model.Run{ID: id, Source: "api", Status: model.RunStatusCompleted})
			Expect(err).To(BeNil())

			Expect(s.Run().Delete(context.TODO(), id)).To(BeNil())

			_, err = s.Run().Get(context.TODO(), id)
			Expect(err).To(MatchError(store.ErrRecordNotFound))
		})
	})

	Context("percentage", func() {
		It("derives progress from stored counters", func() {
			run := model.Run{TotalKeywords: 3, CompletedKeywords: 1, SkippedKeywords: 1}
			Expect(run.Percentage()).To(BeNumerically("~", 66.6, 0.1))
		})

		It("is zero for an empty run", func() {
			Expect(model.Run{}.Percentage()).To(BeZero())
		})
	})
})
