package store_test

import (
	"context"
	"time"

	"github.com/shopdex/shop-collector/internal/store"
	"github.com/shopdex/shop-collector/internal/store/model"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

var _ = Describe("history store", Ordered, func() {
	var (
		s      store.Store
		gormdb *gorm.DB
	)

	BeforeAll(func() {
		gormdb = openTestDB("history_store")
		s = store.NewStore(gormdb)
		Expect(s.InitialMigration()).To(BeNil())
	})

	AfterAll(func() {
		s.Close()
	})

	AfterEach(func() {
		gormdb.Exec("DELETE FROM collection_histories;")
	})

	Context("exists", func() {
		It("answers false for a never collected keyword", func() {
			collected, err := s.History().Exists(context.TODO(), "keyboard")
			Expect(err).To(BeNil())
			Expect(collected).To(BeFalse())
		})

		It("answers true after a record, forever", func() {
			Expect(s.History().Record(context.TODO(), model.CollectionHistory{
				Keyword:     "keyboard",
				CollectedAt: time.Now().Add(-365 * 24 * time.Hour),
			})).To(BeNil())

			collected, err := s.History().Exists(context.TODO(), "keyboard")
			Expect(err).To(BeNil())
			Expect(collected).To(BeTrue())
		})
	})

	Context("record", func() {
		It("refreshes counts on re-collection instead of duplicating", func() {
			Expect(s.History().Record(context.TODO(), model.CollectionHistory{
				Keyword:      "keyboard",
				ListingsSeen: 10,
				ListingsNew:  10,
				CollectedAt:  time.Now(),
			})).To(BeNil())
			Expect(s.History().Record(context.TODO(), model.CollectionHistory{
				Keyword:         "keyboard",
				ListingsSeen:    12,
				ListingsNew:     2,
				ListingsUpdated: 10,
				CollectedAt:     time.Now(),
			})).To(BeNil())

			entries, err := s.History().List(context.TODO(), 10)
			Expect(err).To(BeNil())
			Expect(entries).To(HaveLen(1))
			Expect(entries[0].ListingsSeen).To(Equal(12))
			Expect(entries[0].ListingsUpdated).To(Equal(10))
		})
	})

	Context("list", func() {
		It("honors the limit", func() {
			for _, keyword := range []string{"a1", "b2", "c3"} {
				Expect(s.History().Record(context.TODO(), model.CollectionHistory{
					Keyword:     keyword,
					CollectedAt: time.Now(),
				})).To(BeNil())
			}

			entries, err := s.History().List(context.TODO(), 2)
			Expect(err).To(BeNil())
			Expect(entries).To(HaveLen(2))
		})
	})
})
