package model

import (
	"encoding/json"
	"time"
)

// Listing product groups derived from the external productType code.
const (
	ProductGroupGeneral      = "general"
	ProductGroupUsed         = "used"
	ProductGroupDiscontinued = "discontinued"
	ProductGroupPresale      = "presale"
)

// Price-compare match classes derived from the external productType code.
const (
	PriceCompareMatched    = "matched"
	PriceCompareNonMatched = "non_matched"
	PriceCompareCatalog    = "catalog"
)

// Listing is one collected shopping listing. ProductID is the external
// identity; collecting the same listing again refreshes the price columns.
type Listing struct {
	ID        uint   `gorm:"primaryKey"`
	ProductID string `gorm:"uniqueIndex;not null"`
	Title     string `gorm:"index;not null"`
	Link      string
	Image     string
	LowPrice  int64 `gorm:"index"`
	HighPrice *int64
	MallName  string `gorm:"index"`
	Maker     string
	Brand     string

	Category1 string `gorm:"index"`
	Category2 string
	Category3 string
	Category4 string

	ProductType  int
	ProductGroup string
	PriceCompare string
	Discontinued bool
	Presale      bool
	Used         bool

	// Search context of the collection that first stored the listing.
	SearchKeyword string `gorm:"index"`
	Rank          int

	Tags []byte `gorm:"type:jsonb"`

	DiscountRate *float64
	PriceRange   *int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

type ListingList []Listing

func (l Listing) String() string {
	val, _ := json.Marshal(l)
	return string(val)
}

// ListingStats is the aggregate returned by the stats query.
type ListingStats struct {
	TotalListings  int64            `json:"total_listings"`
	TotalKeywords  int64            `json:"total_keywords"`
	AveragePrice   float64          `json:"average_price"`
	ByCategory     map[string]int64 `json:"by_category"`
	ByProductGroup map[string]int64 `json:"by_product_group"`
}
