package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopdex/shop-collector/internal/collector"
	"github.com/shopdex/shop-collector/internal/store/model"
	"go.uber.org/zap"
)

const maxErrorMessageLen = 500

// CollectionResult is what a collection source reports for one keyword.
type CollectionResult struct {
	Seen    int
	New     int
	Updated int
}

// CollectionSource fetches and stores listings for a single keyword.
type CollectionSource interface {
	Collect(ctx context.Context, keyword string) (CollectionResult, error)
}

// DedupOracle answers whether a keyword was ever collected before.
// Queries receive the normalized keyword.
type DedupOracle interface {
	HasBeenCollected(ctx context.Context, keyword string) (bool, error)
}

// Outcome is the terminal result of running one keyword.
type Outcome struct {
	Status       string
	Seen         int
	New          int
	Updated      int
	ErrorKind    string
	ErrorMessage string
}

// KeywordRunner executes a single keyword: duplicate check first, then a
// collection bounded by its own timeout. Failures never propagate; they
// are classified into an Outcome and the run moves on.
type KeywordRunner struct {
	source CollectionSource
	oracle DedupOracle
	log    *zap.SugaredLogger
}

func NewKeywordRunner(source CollectionSource, oracle DedupOracle) *KeywordRunner {
	return &KeywordRunner{
		source: source,
		oracle: oracle,
		log:    zap.S().Named("keyword_runner"),
	}
}

// Run executes keyword with the given collection timeout. The returned
// Outcome is always one of completed, skipped or failed; the error return
// is reserved for oracle storage failures, which are fatal to the run.
func (r *KeywordRunner) Run(ctx context.Context, keyword string, timeout time.Duration) (Outcome, error) {
	collected, err := r.oracle.HasBeenCollected(ctx, keyword)
	if err != nil {
		return Outcome{}, err
	}
	if collected {
		r.log.Infow("keyword skipped, already collected", "keyword", keyword)
		return Outcome{Status: model.KeywordStatusSkipped}, nil
	}

	collectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := r.source.Collect(collectCtx, keyword)
	if err != nil {
		kind := classifyFailure(err)
		msg := truncateMessage(fmt.Sprintf("keyword %q: %s", keyword, err))
		r.log.Warnw("keyword collection failed", "keyword", keyword, "kind", kind, "error", msg)
		return Outcome{
			Status:       model.KeywordStatusFailed,
			ErrorKind:    kind,
			ErrorMessage: msg,
		}, nil
	}

	return Outcome{
		Status:  model.KeywordStatusCompleted,
		Seen:    result.Seen,
		New:     result.New,
		Updated: result.Updated,
	}, nil
}

// classifyFailure maps a collection error onto the stored failure kinds.
func classifyFailure(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return model.FailureKindTimeout
	}
	// The client reports the caller's context as-is, so a collection cut
	// short by shutdown surfaces as context.Canceled.
	if errors.Is(err, context.Canceled) {
		return model.FailureKindConnection
	}

	var statusErr *collector.StatusError
	if errors.As(err, &statusErr) {
		if statusErr.AccessDenied() {
			return model.FailureKindAccessDenied
		}
		return model.FailureKindUnexpected
	}

	var connErr *collector.ConnectionError
	if errors.As(err, &connErr) {
		return model.FailureKindConnection
	}

	return model.FailureKindUnexpected
}

func truncateMessage(msg string) string {
	runes := []rune(msg)
	if len(runes) <= maxErrorMessageLen {
		return msg
	}
	return string(runes[:maxErrorMessageLen])
}
