package store_test

import (
	"context"
	"fmt"

	"github.com/shopdex/shop-collector/internal/store"
	"github.com/shopdex/shop-collector/internal/store/model"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

var _ = Describe("listing store", Ordered, func() {
	var (
		s      store.Store
		gormdb *gorm.DB
	)

	newListing := func(productID string, lowPrice int64) model.Listing {
		return model.Listing{
			ProductID:     productID,
			Title:         "title " + productID,
			LowPrice:      lowPrice,
			MallName:      "mall-a",
			Category1:     "digital",
			ProductGroup:  model.ProductGroupGeneral,
			SearchKeyword: "keyboard",
		}
	}

	BeforeAll(func() {
		gormdb = openTestDB("listing_store")
		s = store.NewStore(gormdb)
		Expect(s.InitialMigration()).To(BeNil())
	})

	AfterAll(func() {
		s.Close()
	})

	AfterEach(func() {
		gormdb.Exec("DELETE FROM listings;")
	})

	Context("create batch", func() {
		It("stores all listings", func() {
			listings := make([]model.Listing, 5)
			for i := range listings {
				listings[i] = newListing(fmt.Sprintf("p-%d", i), int64(1000*(i+1)))
			}
			Expect(s.Listing().CreateBatch(context.TODO(), listings)).To(BeNil())

			found, err := s.Listing().List(context.TODO(), nil, nil)
			Expect(err).To(BeNil())
			Expect(found).To(HaveLen(5))
		})

		It("accepts an empty batch", func() {
			Expect(s.Listing().CreateBatch(context.TODO(), nil)).To(BeNil())
		})

		It("rejects a duplicate product id", func() {
			Expect(s.Listing().CreateBatch(context.TODO(), []model.Listing{newListing("p-1", 1000)})).To(BeNil())
			err := s.Listing().CreateBatch(context.TODO(), []model.Listing{newListing("p-1", 2000)})
			Expect(err).ToNot(BeNil())
		})
	})

	Context("get by product ids", func() {
		It("returns only the known subset", func() {
			Expect(s.Listing().CreateBatch(context.TODO(), []model.Listing{
				newListing("p-1", 1000),
				newListing("p-2", 2000),
			})).To(BeNil())

			found, err := s.Listing().GetByProductIDs(context.TODO(), []string{"p-1", "p-404"})
			Expect(err).To(BeNil())
			Expect(found).To(HaveLen(1))
			Expect(found[0].ProductID).To(Equal("p-1"))
		})
	})

	Context("update prices", func() {
		It("refreshes price columns without touching identity", func() {
			Expect(s.Listing().CreateBatch(context.TODO(), []model.Listing{newListing("p-1", 1000)})).To(BeNil())

			high := int64(3000)
			refreshed := newListing("p-1", 1500)
			refreshed.Title = "a different title"
			refreshed.HighPrice = &high
			refreshed.Rank = 7
			Expect(s.Listing().UpdatePrices(context.TODO(), &refreshed)).To(BeNil())

			found, err := s.Listing().Get(context.TODO(), "p-1")
			Expect(err).To(BeNil())
			Expect(found.LowPrice).To(Equal(int64(1500)))
			Expect(found.HighPrice).ToNot(BeNil())
			Expect(*found.HighPrice).To(Equal(int64(3000)))
			Expect(found.Rank).To(Equal(7))
			Expect(found.Title).To(Equal("title p-1"))
		})
	})

	Context("list with filters", func() {
		BeforeEach(func() {
			cheap := newListing("p-1", 1000)
			mid := newListing("p-2", 5000)
			mid.SearchKeyword = "mouse"
			mid.MallName = "mall-b"
			expensive := newListing("p-3", 90000)
			expensive.Used = true
			expensive.ProductGroup = model.ProductGroupUsed
			Expect(s.Listing().CreateBatch(context.TODO(), []model.Listing{cheap, mid, expensive})).To(BeNil())
		})

		It("filters by keyword", func() {
			found, err := s.Listing().List(context.TODO(), store.NewListingQueryFilter().ByKeyword("mouse"), nil)
			Expect(err).To(BeNil())
			Expect(found).To(HaveLen(1))
			Expect(found[0].ProductID).To(Equal("p-2"))
		})

		It("filters by price range", func() {
			found, err := s.Listing().List(context.TODO(), store.NewListingQueryFilter().ByPriceRange(2000, 10000), nil)
			Expect(err).To(BeNil())
			Expect(found).To(HaveLen(1))
			Expect(found[0].ProductID).To(Equal("p-2"))
		})

		It("filters by mall", func() {
			found, err := s.Listing().List(context.TODO(), store.NewListingQueryFilter().ByMall("mall-b"), nil)
			Expect(err).To(BeNil())
			Expect(found).To(HaveLen(1))
		})

		It("excludes used listings", func() {
			found, err := s.Listing().List(context.TODO(), store.NewListingQueryFilter().ExcludeUsed(), nil)
			Expect(err).To(BeNil())
			Expect(found).To(HaveLen(2))
		})

		It("searches text across title, brand and maker", func() {
			found, err := s.Listing().List(context.TODO(), store.NewListingQueryFilter().ByText("title p-3"), nil)
			Expect(err).To(BeNil())
			Expect(found).To(HaveLen(1))
		})

		It("sorts by price descending", func() {
			found, err := s.Listing().List(context.TODO(), nil, store.NewListingQueryOptions().WithSortOrder(store.SortByPriceDesc))
			Expect(err).To(BeNil())
			Expect(found).To(HaveLen(3))
			Expect(found[0].ProductID).To(Equal("p-3"))
			Expect(found[2].ProductID).To(Equal("p-1"))
		})

		It("paginates", func() {
			found, err := s.Listing().List(context.TODO(), nil,
				store.NewListingQueryOptions().WithSortOrder(store.SortByPriceAsc).WithPagination(2, 2))
			Expect(err).To(BeNil())
			Expect(found).To(HaveLen(1))
			Expect(found[0].ProductID).To(Equal("p-3"))
		})
	})

	Context("delete", func() {
		It("removes the listing", func() {
			Expect(s.Listing().CreateBatch(context.TODO(), []model.Listing{newListing("p-1", 1000)})).To(BeNil())
			Expect(s.Listing().Delete(context.TODO(), "p-1")).To(BeNil())

			_, err := s.Listing().Get(context.TODO(), "p-1")
			Expect(err).To(MatchError(store.ErrRecordNotFound))
		})

		It("reports not found for an unknown product", func() {
			Expect(s.Listing().Delete(context.TODO(), "ghost")).To(MatchError(store.ErrRecordNotFound))
		})
	})

	Context("stats", func() {
		It("aggregates counts, keywords and prices", func() {
			first := newListing("p-1", 1000)
			second := newListing("p-2", 3000)
			second.SearchKeyword = "mouse"
			second.Category1 = "appliance"
			second.ProductGroup = model.ProductGroupUsed
			Expect(s.Listing().CreateBatch(context.TODO(), []model.Listing{first, second})).To(BeNil())

			stats, err := s.Listing().Stats(context.TODO())
			Expect(err).To(BeNil())
			Expect(stats.TotalListings).To(Equal(int64(2)))
			Expect(stats.TotalKeywords).To(Equal(int64(2)))
			Expect(stats.AveragePrice).To(BeNumerically("~", 2000, 0.01))
			Expect(stats.ByCategory).To(HaveKeyWithValue("digital", int64(1)))
			Expect(stats.ByProductGroup).To(HaveKeyWithValue(model.ProductGroupUsed, int64(1)))
		})

		It("returns zeroes for an empty table", func() {
			stats, err := s.Listing().Stats(context.TODO())
			Expect(err).To(BeNil())
			Expect(stats.TotalListings).To(BeZero())
			Expect(stats.AveragePrice).To(BeZero())
		})
	})
})
