package service

import (
	"context"
	"errors"
	"time"

	"github.com/shopdex/shop-collector/internal/collector"
	"github.com/shopdex/shop-collector/internal/store"
	"github.com/shopdex/shop-collector/internal/store/model"
	"go.uber.org/zap"
)

// ListingFilter carries the search query parameters.
type ListingFilter struct {
	Text        string
	Keyword     string
	Category    string
	Mall        string
	MinPrice    int64
	MaxPrice    int64
	ExcludeUsed bool
	SortBy      string
	Page        int
	PageSize    int
}

// ListingService owns collected listings: ad-hoc single-keyword
// collection, search, stats, and the collection history.
type ListingService struct {
	store          store.Store
	collector      *collector.Collector
	collectTimeout time.Duration
	log            *zap.SugaredLogger
}

func NewListingService(s store.Store, c *collector.Collector, collectTimeout time.Duration) *ListingService {
	return &ListingService{
		store:          s,
		collector:      c,
		collectTimeout: collectTimeout,
		log:            zap.S().Named("listing_service"),
	}
}

// Collect runs one keyword outside a batch run. Unless force is set, a
// keyword already in the history is rejected instead of re-collected.
func (s *ListingService) Collect(ctx context.Context, keyword string, force bool) (collector.Result, error) {
	normalized := collector.NormalizeKeyword(keyword)
	if normalized == "" {
		return collector.Result{}, NewErrInvalidSubmission("empty keyword")
	}

	if !force {
		collected, err := s.store.History().Exists(ctx, normalized)
		if err != nil {
			return collector.Result{}, err
		}
		if collected {
			return collector.Result{}, NewErrKeywordCollected(normalized)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.collectTimeout)
	defer cancel()

	return s.collector.Collect(ctx, normalized)
}

func (s *ListingService) Search(ctx context.Context, filter ListingFilter) (model.ListingList, error) {
	storeFilter := store.NewListingQueryFilter()
	if filter.Text != "" {
		storeFilter = storeFilter.ByText(filter.Text)
	}
	if filter.Keyword != "" {
		storeFilter = storeFilter.ByKeyword(collector.NormalizeKeyword(filter.Keyword))
	}
	if filter.Category != "" {
		storeFilter = storeFilter.ByCategory(filter.Category)
	}
	if filter.Mall != "" {
		storeFilter = storeFilter.ByMall(filter.Mall)
	}
	if filter.MinPrice > 0 || filter.MaxPrice > 0 {
		storeFilter = storeFilter.ByPriceRange(filter.MinPrice, filter.MaxPrice)
	}
	if filter.ExcludeUsed {
		storeFilter = storeFilter.ExcludeUsed()
	}

	opts := store.NewListingQueryOptions().
		WithSortOrder(sortOrder(filter.SortBy)).
		WithPagination(filter.Page, filter.PageSize)

	return s.store.Listing().List(ctx, storeFilter, opts)
}

func sortOrder(sortBy string) store.SortOrder {
	switch sortBy {
	case "price_asc":
		return store.SortByPriceAsc
	case "price_desc":
		return store.SortByPriceDesc
	case "newest":
		return store.SortByNewest
	}
	return store.Unsorted
}

func (s *ListingService) Get(ctx context.Context, productID string) (*model.Listing, error) {
	listing, err := s.store.Listing().Get(ctx, productID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrListingNotFound(productID)
		}
		return nil, err
	}
	return listing, nil
}

func (s *ListingService) Delete(ctx context.Context, productID string) error {
	if _, err := s.Get(ctx, productID); err != nil {
		return err
	}
	return s.store.Listing().Delete(ctx, productID)
}

func (s *ListingService) Stats(ctx context.Context) (model.ListingStats, error) {
	return s.store.Listing().Stats(ctx)
}

func (s *ListingService) History(ctx context.Context, limit int) (model.CollectionHistoryList, error) {
	return s.store.History().List(ctx, limit)
}
