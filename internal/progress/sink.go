package progress

import (
	"bytes"
	"context"
	"encoding/json"

	"go.uber.org/zap"
)

// Sink publishes progress snapshots to in-process subscribers and to the
// event producer. Publish never blocks beyond a buffer push and never
// returns an error to the caller: delivery is best-effort by contract.
type Sink struct {
	hub      *Hub
	producer *EventProducer
}

func NewSink(hub *Hub, producer *EventProducer) *Sink {
	return &Sink{hub: hub, producer: producer}
}

func (s *Sink) Publish(ctx context.Context, snap Snapshot) {
	s.hub.Broadcast(snap)

	data, err := json.Marshal(snap)
	if err != nil {
		zap.S().Named("progress_sink").Errorw("failed to marshal snapshot", "error", err, "run_id", snap.RunID)
		return
	}

	if err := s.producer.Write(ctx, ProgressMessageKind, bytes.NewReader(data)); err != nil {
		zap.S().Named("progress_sink").Errorw("failed to write event", "error", err, "run_id", snap.RunID)
	}
}

func (s *Sink) Hub() *Hub {
	return s.hub
}

func (s *Sink) Close() error {
	return s.producer.Close()
}
