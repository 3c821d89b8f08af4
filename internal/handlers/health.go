package handlers

import (
	"net/http"

	"github.com/go-chi/render"
	v1 "github.com/shopdex/shop-collector/api/v1"
	"github.com/shopdex/shop-collector/internal/store"
)

// HealthHandler reports service liveness. The store check keeps a dead
// database from answering healthy.
type HealthHandler struct {
	store store.Store
}

func NewHealthHandler(s store.Store) *HealthHandler {
	return &HealthHandler{store: s}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, v1.Health{Status: "unavailable"})
		return
	}
	render.JSON(w, r, v1.Health{Status: "ok"})
}
