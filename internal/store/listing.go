package store

import (
	"context"
	"errors"

	"github.com/shopdex/shop-collector/internal/store/model"
	"gorm.io/gorm"
)

type Listing interface {
	InitialMigration() error
	CreateBatch(ctx context.Context, listings []model.Listing) error
	GetByProductIDs(ctx context.Context, productIDs []string) (model.ListingList, error)
	UpdatePrices(ctx context.Context, listing *model.Listing) error
	List(ctx context.Context, filter *ListingQueryFilter, opts *ListingQueryOptions) (model.ListingList, error)
	Get(ctx context.Context, productID string) (*model.Listing, error)
	Delete(ctx context.Context, productID string) error
	Stats(ctx context.Context) (model.ListingStats, error)
}

type ListingStore struct {
	db *gorm.DB
}

// Make sure we conform to Listing interface
var _ Listing = (*ListingStore)(nil)

func NewListingStore(db *gorm.DB) Listing {
	return &ListingStore{db: db}
}

func (s *ListingStore) InitialMigration() error {
	return s.db.AutoMigrate(&model.Listing{})
}

func (s *ListingStore) CreateBatch(ctx context.Context, listings []model.Listing) error {
	if len(listings) == 0 {
		return nil
	}
	return getDB(ctx, s.db).CreateInBatches(&listings, 100).Error
}

func (s *ListingStore) GetByProductIDs(ctx context.Context, productIDs []string) (model.ListingList, error) {
	var listings model.ListingList
	if len(productIDs) == 0 {
		return listings, nil
	}
	result := getDB(ctx, s.db).Where("product_id IN ?", productIDs).Find(&listings)
	if result.Error != nil {
		return nil, result.Error
	}
	return listings, nil
}

// UpdatePrices refreshes the price columns of an already collected listing.
func (s *ListingStore) UpdatePrices(ctx context.Context, listing *model.Listing) error {
	return getDB(ctx, s.db).
		Model(&model.Listing{}).
		Where("product_id = ?", listing.ProductID).
		Select("low_price", "high_price", "discount_rate", "price_range", "rank", "updated_at").
		Updates(listing).Error
}

func (s *ListingStore) List(ctx context.Context, filter *ListingQueryFilter, opts *ListingQueryOptions) (model.ListingList, error) {
	var listings model.ListingList

	tx := getDB(ctx, s.db).Model(&model.Listing{})
	if filter != nil {
		for _, fn := range filter.QueryFn {
			tx = fn(tx)
		}
	}
	if opts != nil {
		for _, fn := range opts.QueryFn {
			tx = fn(tx)
		}
	}

	if result := tx.Find(&listings); result.Error != nil {
		return nil, result.Error
	}
	return listings, nil
}

func (s *ListingStore) Get(ctx context.Context, productID string) (*model.Listing, error) {
	var listing model.Listing
	result := getDB(ctx, s.db).Where("product_id = ?", productID).First(&listing)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, result.Error
	}
	return &listing, nil
}

func (s *ListingStore) Delete(ctx context.Context, productID string) error {
	result := getDB(ctx, s.db).Unscoped().Where("product_id = ?", productID).Delete(&model.Listing{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (s *ListingStore) Stats(ctx context.Context) (model.ListingStats, error) {
	stats := model.ListingStats{
		ByCategory:     map[string]int64{},
		ByProductGroup: map[string]int64{},
	}

	db := getDB(ctx, s.db)

	if result := db.Model(&model.Listing{}).Count(&stats.TotalListings); result.Error != nil {
		return stats, result.Error
	}
	if result := db.Model(&model.Listing{}).Distinct("search_keyword").Count(&stats.TotalKeywords); result.Error != nil {
		return stats, result.Error
	}
	if stats.TotalListings > 0 {
		if result := db.Model(&model.Listing{}).Select("AVG(low_price)").Scan(&stats.AveragePrice); result.Error != nil {
			return stats, result.Error
		}
	}

	var byCategory []struct {
		Category1 string
		Count     int64
	}
	if result := db.Model(&model.Listing{}).
		Select("category1, count(*) as count").
		Group("category1").
		Find(&byCategory); result.Error != nil {
		return stats, result.Error
	}
	for _, row := range byCategory {
		stats.ByCategory[row.Category1] = row.Count
	}

	var byGroup []struct {
		ProductGroup string
		Count        int64
	}
	if result := db.Model(&model.Listing{}).
		Select("product_group, count(*) as count").
		Group("product_group").
		Find(&byGroup); result.Error != nil {
		return stats, result.Error
	}
	for _, row := range byGroup {
		stats.ByProductGroup[row.ProductGroup] = row.Count
	}

	return stats, nil
}
