package batch

import (
	"context"
	"time"
)

// RateGate paces keyword executions. Wait suspends until the interval
// elapses or an interrupt arrives, whichever comes first. The delay is
// consumed after duplicate skips too; a batch full of already-collected
// keywords must not burst the external API.
type RateGate struct{}

// Wait blocks for d, returning early when interrupt fires or ctx is
// done. It reports whether the full interval elapsed.
func (RateGate) Wait(ctx context.Context, d time.Duration, interrupt <-chan struct{}) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-interrupt:
		return false
	case <-ctx.Done():
		return false
	}
}
