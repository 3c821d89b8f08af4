package model

import (
	"encoding/json"
	"time"
)

// CollectionHistory is the permanent dedup record: one row per keyword
// ever collected successfully. Keyword is stored normalized (trimmed,
// lower-cased) and uniquely indexed so the dedup lookup stays indexed.
// Rows are never expired.
type CollectionHistory struct {
	ID      uint   `gorm:"primaryKey"`
	Keyword string `gorm:"uniqueIndex;not null"`

	ListingsSeen    int
	ListingsNew     int
	ListingsUpdated int

	CollectedAt time.Time `gorm:"index"`
}

type CollectionHistoryList []CollectionHistory

func (h CollectionHistory) String() string {
	val, _ := json.Marshal(h)
	return string(val)
}
