package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopdex/shop-collector/internal/store/model"
	"gorm.io/gorm"
)

type Keyword interface {
	InitialMigration() error
	CreateBatch(ctx context.Context, entries []model.KeywordEntry) error
	ListByRun(ctx context.Context, runID uuid.UUID) (model.KeywordEntryList, error)
	Get(ctx context.Context, runID uuid.UUID, position int) (*model.KeywordEntry, error)
	Update(ctx context.Context, entry *model.KeywordEntry) error
	CancelRemaining(ctx context.Context, runID uuid.UUID) (int64, error)
	DeleteByRun(ctx context.Context, runID uuid.UUID) error
	CountByStatus(ctx context.Context, runID uuid.UUID) (map[string]int, error)
}

type KeywordStore struct {
	db *gorm.DB
}

// Make sure we conform to Keyword interface
var _ Keyword = (*KeywordStore)(nil)

func NewKeywordStore(db *gorm.DB) Keyword {
	return &KeywordStore{db: db}
}

func (s *KeywordStore) InitialMigration() error {
	return s.db.AutoMigrate(&model.KeywordEntry{})
}

func (s *KeywordStore) CreateBatch(ctx context.Context, entries []model.KeywordEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return getDB(ctx, s.db).Create(&entries).Error
}

func (s *KeywordStore) ListByRun(ctx context.Context, runID uuid.UUID) (model.KeywordEntryList, error) {
	var entries model.KeywordEntryList
	result := getDB(ctx, s.db).
		Where("run_id = ?", runID).
		Order("position").
		Find(&entries)
	if result.Error != nil {
		return nil, result.Error
	}
	return entries, nil
}

func (s *KeywordStore) Get(ctx context.Context, runID uuid.UUID, position int) (*model.KeywordEntry, error) {
	var entry model.KeywordEntry
	result := getDB(ctx, s.db).
		Where("run_id = ? AND position = ?", runID, position).
		First(&entry)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, result.Error
	}
	return &entry, nil
}

func (s *KeywordStore) Update(ctx context.Context, entry *model.KeywordEntry) error {
	return getDB(ctx, s.db).Save(entry).Error
}

// CancelRemaining drains every non-terminal entry of the run to cancelled.
// Returns the number of entries drained.
func (s *KeywordStore) CancelRemaining(ctx context.Context, runID uuid.UUID) (int64, error) {
	result := getDB(ctx, s.db).
		Model(&model.KeywordEntry{}).
		Where("run_id = ? AND status IN ?", runID, []string{model.KeywordStatusPending, model.KeywordStatusRunning}).
		Update("status", model.KeywordStatusCancelled)
	return result.RowsAffected, result.Error
}

func (s *KeywordStore) DeleteByRun(ctx context.Context, runID uuid.UUID) error {
	return getDB(ctx, s.db).
		Where("run_id = ?", runID).
		Delete(&model.KeywordEntry{}).Error
}

// CountByStatus scans the run's entries and aggregates them per status.
// Used by tests and audits to verify the stored run counters; the status
// endpoint itself never calls this.
func (s *KeywordStore) CountByStatus(ctx context.Context, runID uuid.UUID) (map[string]int, error) {
	var rows []struct {
		Status string
		Count  int
	}
	result := getDB(ctx, s.db).
		Model(&model.KeywordEntry{}).
		Select("status, count(*) as count").
		Where("run_id = ?", runID).
		Group("status").
		Find(&rows)
	if result.Error != nil {
		return nil, result.Error
	}

	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
