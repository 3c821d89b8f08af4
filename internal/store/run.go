package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopdex/shop-collector/internal/store/model"
	"gorm.io/gorm"
)

type Run interface {
	InitialMigration() error
	Create(ctx context.Context, run model.Run) (*model.Run, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Run, error)
	List(ctx context.Context, limit int) (model.RunList, error)
	Update(ctx context.Context, run *model.Run) error
	Delete(ctx context.Context, id uuid.UUID) error
	Active(ctx context.Context) (*model.Run, error)
	Heartbeat(ctx context.Context, id uuid.UUID, at time.Time) error
}

type RunStore struct {
	db *gorm.DB
}

// Make sure we conform to Run interface
var _ Run = (*RunStore)(nil)

func NewRunStore(db *gorm.DB) Run {
	return &RunStore{db: db}
}

func (s *RunStore) InitialMigration() error {
	return s.db.AutoMigrate(&model.Run{})
}

func (s *RunStore) Create(ctx context.Context, run model.Run) (*model.Run, error) {
	if result := getDB(ctx, s.db).Create(&run); result.Error != nil {
		return nil, result.Error
	}
	return &run, nil
}

func (s *RunStore) Get(ctx context.Context, id uuid.UUID) (*model.Run, error) {
	run := model.NewRunFromId(id)
	if result := getDB(ctx, s.db).First(run); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, result.Error
	}
	return run, nil
}

func (s *RunStore) List(ctx context.Context, limit int) (model.RunList, error) {
	var runs model.RunList
	tx := getDB(ctx, s.db).Model(&runs).Order("created_at DESC")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	if result := tx.Find(&runs); result.Error != nil {
		return nil, result.Error
	}
	return runs, nil
}

func (s *RunStore) Update(ctx context.Context, run *model.Run) error {
	result := getDB(ctx, s.db).Model(run).Save(run)
	return result.Error
}

func (s *RunStore) Delete(ctx context.Context, id uuid.UUID) error {
	result := getDB(ctx, s.db).Unscoped().Delete(model.NewRunFromId(id))
	if result.Error != nil && !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return result.Error
	}
	return nil
}

// Active returns the run currently holding the execution slot, that is
// the single run in running or paused state, or ErrRecordNotFound.
func (s *RunStore) Active(ctx context.Context) (*model.Run, error) {
	var run model.Run
	result := getDB(ctx, s.db).
		Where("status IN ?", []string{model.RunStatusRunning, model.RunStatusPaused}).
		Order("created_at").
		First(&run)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, result.Error
	}
	return &run, nil
}

func (s *RunStore) Heartbeat(ctx context.Context, id uuid.UUID, at time.Time) error {
	result := getDB(ctx, s.db).
		Model(model.NewRunFromId(id)).
		Update("last_heartbeat", at)
	return result.Error
}
