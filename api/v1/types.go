// Package v1 holds the wire types of the collector HTTP API.
package v1

import "time"

// BatchCreate is the JSON submission body.
type BatchCreate struct {
	Keywords     []string `json:"keywords"`
	DelaySeconds int      `json:"delay_seconds,omitempty"`
}

// Progress mirrors the stored run counters.
type Progress struct {
	Total        int     `json:"total"`
	Completed    int     `json:"completed"`
	Failed       int     `json:"failed"`
	Skipped      int     `json:"skipped"`
	CurrentIndex int     `json:"current_index"`
	Percentage   float64 `json:"percentage"`
}

// Run is the batch run summary. Progress comes from stored counters,
// never from a keyword scan.
type Run struct {
	Id           string     `json:"id"`
	Source       string     `json:"source"`
	Status       string     `json:"status"`
	DelaySeconds int        `json:"delay_seconds"`
	Progress     Progress   `json:"progress"`
	CreatedAt    time.Time  `json:"created_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

type RunList []Run

// KeywordEntry is the per-keyword audit record of a run.
type KeywordEntry struct {
	Keyword         string     `json:"keyword"`
	Position        int        `json:"position"`
	Status          string     `json:"status"`
	ListingsSeen    int        `json:"listings_seen"`
	ListingsNew     int        `json:"listings_new"`
	ListingsUpdated int        `json:"listings_updated"`
	ErrorKind       string     `json:"error_kind,omitempty"`
	ErrorMessage    string     `json:"error_message,omitempty"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
}

type KeywordEntryList []KeywordEntry

// CollectRequest triggers a single-keyword collection outside a batch.
type CollectRequest struct {
	Keyword string `json:"keyword"`
	Force   bool   `json:"force,omitempty"`
}

type CollectResult struct {
	Keyword         string `json:"keyword"`
	ListingsSeen    int    `json:"listings_seen"`
	ListingsNew     int    `json:"listings_new"`
	ListingsUpdated int    `json:"listings_updated"`
}

type Listing struct {
	ProductId    string    `json:"product_id"`
	Title        string    `json:"title"`
	Link         string    `json:"link,omitempty"`
	Image        string    `json:"image,omitempty"`
	LowPrice     int64     `json:"low_price"`
	HighPrice    *int64    `json:"high_price,omitempty"`
	MallName     string    `json:"mall_name,omitempty"`
	Maker        string    `json:"maker,omitempty"`
	Brand        string    `json:"brand,omitempty"`
	Category1    string    `json:"category1,omitempty"`
	Category2    string    `json:"category2,omitempty"`
	Category3    string    `json:"category3,omitempty"`
	Category4    string    `json:"category4,omitempty"`
	ProductGroup string    `json:"product_group,omitempty"`
	PriceCompare string    `json:"price_compare,omitempty"`
	Used         bool      `json:"used"`
	Keyword      string    `json:"keyword,omitempty"`
	Rank         int       `json:"rank"`
	Tags         []string  `json:"tags,omitempty"`
	DiscountRate *float64  `json:"discount_rate,omitempty"`
	PriceRange   *int64    `json:"price_range,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type ListingList []Listing

type ListingStats struct {
	TotalListings  int64            `json:"total_listings"`
	TotalKeywords  int64            `json:"total_keywords"`
	AveragePrice   float64          `json:"average_price"`
	ByCategory     map[string]int64 `json:"by_category"`
	ByProductGroup map[string]int64 `json:"by_product_group"`
}

type HistoryEntry struct {
	Keyword         string    `json:"keyword"`
	ListingsSeen    int       `json:"listings_seen"`
	ListingsNew     int       `json:"listings_new"`
	ListingsUpdated int       `json:"listings_updated"`
	CollectedAt     time.Time `json:"collected_at"`
}

type HistoryList []HistoryEntry

// Error is the uniform error body. ActiveRunId is set on submission
// conflicts so the caller learns which run holds the slot.
type Error struct {
	Message     string `json:"message"`
	ActiveRunId string `json:"active_run_id,omitempty"`
}

type Health struct {
	Status string `json:"status"`
}
