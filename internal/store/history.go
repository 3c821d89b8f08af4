package store

import (
	"context"

	"github.com/shopdex/shop-collector/internal/store/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type History interface {
	InitialMigration() error
	Exists(ctx context.Context, keyword string) (bool, error)
	Record(ctx context.Context, history model.CollectionHistory) error
	List(ctx context.Context, limit int) (model.CollectionHistoryList, error)
}

type HistoryStore struct {
	db *gorm.DB
}

// Make sure we conform to History interface
var _ History = (*HistoryStore)(nil)

func NewHistoryStore(db *gorm.DB) History {
	return &HistoryStore{db: db}
}

func (s *HistoryStore) InitialMigration() error {
	return s.db.AutoMigrate(&model.CollectionHistory{})
}

// Exists answers the dedup question: has this keyword ever been collected?
// The keyword must already be normalized; the lookup rides the unique index.
func (s *HistoryStore) Exists(ctx context.Context, keyword string) (bool, error) {
	var count int64
	result := getDB(ctx, s.db).
		Model(&model.CollectionHistory{}).
		Where("keyword = ?", keyword).
		Count(&count)
	if result.Error != nil {
		return false, result.Error
	}
	return count > 0, nil
}

// Record stores a successful collection. Collecting a keyword again (via
// force) refreshes the counts instead of inserting a duplicate row.
func (s *HistoryStore) Record(ctx context.Context, history model.CollectionHistory) error {
	return getDB(ctx, s.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "keyword"}},
		DoUpdates: clause.AssignmentColumns([]string{"listings_seen", "listings_new", "listings_updated", "collected_at"}),
	}).Create(&history).Error
}

func (s *HistoryStore) List(ctx context.Context, limit int) (model.CollectionHistoryList, error) {
	var history model.CollectionHistoryList
	tx := getDB(ctx, s.db).Model(&history).Order("collected_at DESC")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	if result := tx.Find(&history); result.Error != nil {
		return nil, result.Error
	}
	return history, nil
}
