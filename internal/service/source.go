package service

import (
	"context"

	"github.com/shopdex/shop-collector/internal/batch"
	"github.com/shopdex/shop-collector/internal/collector"
)

// collectionSource adapts the concrete collector to the run loop's
// collection interface.
type collectionSource struct {
	collector *collector.Collector
}

var _ batch.CollectionSource = (*collectionSource)(nil)

func NewCollectionSource(c *collector.Collector) batch.CollectionSource {
	return &collectionSource{collector: c}
}

func (s *collectionSource) Collect(ctx context.Context, keyword string) (batch.CollectionResult, error) {
	result, err := s.collector.Collect(ctx, keyword)
	if err != nil {
		return batch.CollectionResult{}, err
	}
	return batch.CollectionResult{
		Seen:    result.Seen,
		New:     result.New,
		Updated: result.Updated,
	}, nil
}
