package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopdex/shop-collector/internal/progress"
	"github.com/shopdex/shop-collector/internal/service"
	"go.uber.org/zap"
)

const sseKeepAliveInterval = 15 * time.Second

// EventsHandler streams progress snapshots for one run as server-sent
// events. Subscribers joining mid-run receive updates from that point
// on; the first event is the current run state so late joiners start
// from a consistent snapshot.
type EventsHandler struct {
	runSrv *service.RunService
	hub    *progress.Hub
	log    *zap.SugaredLogger
}

func NewEventsHandler(runSrv *service.RunService, hub *progress.Hub) *EventsHandler {
	return &EventsHandler{
		runSrv: runSrv,
		hub:    hub,
		log:    zap.S().Named("events_handler"),
	}
}

func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	id, ok := runID(w, r)
	if !ok {
		return
	}

	run, err := h.runSrv.Status(r.Context(), id)
	if err != nil {
		renderError(w, r, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		renderError(w, r, fmt.Errorf("streaming unsupported by connection"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	sub := h.hub.Subscribe(id.String())
	defer h.hub.Unsubscribe(sub)

	if err := writeEvent(w, progress.Snapshot{
		RunID:  run.ID.String(),
		Status: run.Status,
		Progress: progress.Progress{
			Total:        run.TotalKeywords,
			Completed:    run.CompletedKeywords,
			Failed:       run.FailedKeywords,
			Skipped:      run.SkippedKeywords,
			CurrentIndex: run.CurrentIndex,
			Percentage:   run.Percentage(),
		},
	}); err != nil {
		return
	}
	flusher.Flush()

	keepAlive := time.NewTicker(sseKeepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case snap, open := <-sub.Updates():
			if !open {
				return
			}
			if err := writeEvent(w, snap); err != nil {
				h.log.Debugw("subscriber write failed", "run_id", id, "error", err)
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, snap progress.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: progress\ndata: %s\n\n", data)
	return err
}
