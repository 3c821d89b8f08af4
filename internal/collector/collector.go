package collector

import (
	"context"
	"time"

	"github.com/shopdex/shop-collector/internal/store"
	"github.com/shopdex/shop-collector/internal/store/model"
	"github.com/shopdex/shop-collector/pkg/metrics"
	"go.uber.org/zap"
)

// Result summarizes one keyword collection.
type Result struct {
	Seen    int `json:"listings_seen"`
	New     int `json:"listings_new"`
	Updated int `json:"listings_updated"`
}

// Collector fetches listings for a keyword and stores them. Listings
// already present (by product id) only get their price columns refreshed.
type Collector struct {
	client *Client
	store  store.Store
	log    *zap.SugaredLogger
}

func NewCollector(client *Client, s store.Store) *Collector {
	return &Collector{
		client: client,
		store:  s,
		log:    zap.S().Named("collector"),
	}
}

// Collect runs a full paginated search for keyword and upserts the
// results. On success the keyword is recorded in the collection history
// so later batch runs can skip it. keyword must be normalized.
func (c *Collector) Collect(ctx context.Context, keyword string) (Result, error) {
	start := time.Now()

	items, err := c.client.SearchAll(ctx, keyword)
	if err != nil {
		return Result{}, err
	}

	result, err := c.storeListings(ctx, keyword, items)
	if err != nil {
		return Result{}, err
	}

	if err := c.store.History().Record(ctx, model.CollectionHistory{
		Keyword:         keyword,
		ListingsSeen:    result.Seen,
		ListingsNew:     result.New,
		ListingsUpdated: result.Updated,
		CollectedAt:     time.Now(),
	}); err != nil {
		return Result{}, err
	}

	c.log.Infow("keyword collected",
		"keyword", keyword,
		"seen", result.Seen,
		"new", result.New,
		"updated", result.Updated,
		"elapsed", time.Since(start).Round(time.Millisecond))

	return result, nil
}

func (c *Collector) storeListings(ctx context.Context, keyword string, items []SearchItem) (Result, error) {
	result := Result{Seen: len(items)}
	if len(items) == 0 {
		return result, nil
	}

	now := time.Now()
	listings := make([]model.Listing, 0, len(items))
	productIDs := make([]string, 0, len(items))
	for i, item := range items {
		if item.ProductID == "" {
			continue
		}
		listings = append(listings, toListing(item, keyword, i+1, now))
		productIDs = append(productIDs, item.ProductID)
	}

	existing, err := c.store.Listing().GetByProductIDs(ctx, productIDs)
	if err != nil {
		return Result{}, err
	}
	known := make(map[string]struct{}, len(existing))
	for _, l := range existing {
		known[l.ProductID] = struct{}{}
	}

	fresh := make([]model.Listing, 0, len(listings))
	for i := range listings {
		if _, ok := known[listings[i].ProductID]; ok {
			if err := c.store.Listing().UpdatePrices(ctx, &listings[i]); err != nil {
				return Result{}, err
			}
			result.Updated++
			continue
		}
		fresh = append(fresh, listings[i])
	}

	if err := c.store.Listing().CreateBatch(ctx, fresh); err != nil {
		return Result{}, err
	}
	result.New = len(fresh)

	metrics.AddListingsStoredMetric("create", result.New)
	metrics.AddListingsStoredMetric("update", result.Updated)

	return result, nil
}
