package batch

import (
	"context"

	"github.com/shopdex/shop-collector/internal/store"
)

// HistoryOracle answers dedup queries from the persisted collection
// history. The lookup rides the unique keyword index.
type HistoryOracle struct {
	store store.Store
}

var _ DedupOracle = (*HistoryOracle)(nil)

func NewHistoryOracle(s store.Store) *HistoryOracle {
	return &HistoryOracle{store: s}
}

func (o *HistoryOracle) HasBeenCollected(ctx context.Context, keyword string) (bool, error) {
	return o.store.History().Exists(ctx, keyword)
}
