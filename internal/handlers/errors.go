package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"
	v1 "github.com/shopdex/shop-collector/api/v1"
	"github.com/shopdex/shop-collector/internal/service"
	"go.uber.org/zap"
)

// renderError maps service errors onto HTTP statuses. Unknown errors
// become an opaque 500; the detail goes to the log, not the wire.
func renderError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		notFound     *service.ErrResourceNotFound
		runActive    *service.ErrRunActive
		invalidSub   *service.ErrInvalidSubmission
		invalidTrans *service.ErrInvalidTransition
		collected    *service.ErrKeywordCollected
	)

	switch {
	case errors.As(err, &notFound):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, v1.Error{Message: err.Error()})
	case errors.As(err, &runActive):
		render.Status(r, http.StatusConflict)
		render.JSON(w, r, v1.Error{Message: err.Error(), ActiveRunId: runActive.ActiveRunID.String()})
	case errors.As(err, &invalidSub):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, v1.Error{Message: err.Error()})
	case errors.As(err, &invalidTrans), errors.As(err, &collected):
		render.Status(r, http.StatusConflict)
		render.JSON(w, r, v1.Error{Message: err.Error()})
	default:
		zap.S().Named("handlers").Errorw("request failed", "path", r.URL.Path, "error", err)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, v1.Error{Message: "internal server error"})
	}
}

func renderBadRequest(w http.ResponseWriter, r *http.Request, message string) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, v1.Error{Message: message})
}
