package progress

import (
	"sync"

	"go.uber.org/zap"
)

const subscriberBufferSize = 16

// Subscription is one observer of a run's progress. Updates are dropped
// rather than blocking when the subscriber falls behind.
type Subscription struct {
	runID string
	ch    chan Snapshot
}

// Updates returns the channel snapshots are delivered on. The channel is
// closed on Unsubscribe.
func (s *Subscription) Updates() <-chan Snapshot {
	return s.ch
}

// Hub fans progress snapshots out to the subscribers of each run.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[*Subscription]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[*Subscription]struct{})}
}

func (h *Hub) Subscribe(runID string) *Subscription {
	sub := &Subscription{
		runID: runID,
		ch:    make(chan Snapshot, subscriberBufferSize),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[runID] == nil {
		h.subs[runID] = make(map[*Subscription]struct{})
	}
	h.subs[runID][sub] = struct{}{}

	return sub
}

func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	runSubs, found := h.subs[sub.runID]
	if !found {
		return
	}
	if _, member := runSubs[sub]; !member {
		return
	}

	delete(runSubs, sub)
	if len(runSubs) == 0 {
		delete(h.subs, sub.runID)
	}
	close(sub.ch)
}

// Broadcast delivers the snapshot to every current subscriber of the run.
// Slow subscribers lose the snapshot instead of stalling the publisher.
func (h *Hub) Broadcast(snap Snapshot) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subs[snap.RunID] {
		select {
		case sub.ch <- snap:
		default:
			zap.S().Named("progress_hub").Debugw("subscriber behind, snapshot dropped", "run_id", snap.RunID)
		}
	}
}

// Subscribers returns the current subscriber count of a run.
func (h *Hub) Subscribers(runID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[runID])
}
