package store

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var ErrRecordNotFound = errors.New("record not found")

type Store interface {
	NewTransactionContext(ctx context.Context) (context.Context, error)
	Run() Run
	Keyword() Keyword
	Listing() Listing
	History() History
	InitialMigration() error
	Ping(ctx context.Context) error
	Close() error
}

type DataStore struct {
	db      *gorm.DB
	run     Run
	keyword Keyword
	listing Listing
	history History
}

func NewStore(db *gorm.DB) Store {
	return &DataStore{
		db:      db,
		run:     NewRunStore(db),
		keyword: NewKeywordStore(db),
		listing: NewListingStore(db),
		history: NewHistoryStore(db),
	}
}

func (s *DataStore) NewTransactionContext(ctx context.Context) (context.Context, error) {
	return newTransactionContext(ctx, s.db)
}

func (s *DataStore) Run() Run {
	return s.run
}

func (s *DataStore) Keyword() Keyword {
	return s.keyword
}

func (s *DataStore) Listing() Listing {
	return s.listing
}

func (s *DataStore) History() History {
	return s.history
}

func (s *DataStore) InitialMigration() error {
	return errors.Join(
		s.run.InitialMigration(),
		s.keyword.InitialMigration(),
		s.listing.InitialMigration(),
		s.history.InitialMigration(),
	)
}

func (s *DataStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *DataStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
