package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/shopdex/shop-collector/internal/service"

	v1 "github.com/shopdex/shop-collector/api/v1"
)

// ListingHandler exposes collected listings: ad-hoc collection, search,
// stats and the collection history.
type ListingHandler struct {
	listingSrv *service.ListingService
}

func NewListingHandler(listingSrv *service.ListingService) *ListingHandler {
	return &ListingHandler{listingSrv: listingSrv}
}

func (h *ListingHandler) Routes(r chi.Router) {
	r.Post("/collect", h.Collect)
	r.Get("/", h.Search)
	r.Get("/stats", h.Stats)
	r.Get("/history", h.History)
	r.Get("/{productId}", h.Get)
	r.Delete("/{productId}", h.Delete)
}

func (h *ListingHandler) Collect(w http.ResponseWriter, r *http.Request) {
	var body v1.CollectRequest
	if err := render.DecodeJSON(r.Body, &body); err != nil {
		renderBadRequest(w, r, "malformed json body")
		return
	}

	result, err := h.listingSrv.Collect(r.Context(), body.Keyword, body.Force)
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.JSON(w, r, v1.CollectResult{
		Keyword:         body.Keyword,
		ListingsSeen:    result.Seen,
		ListingsNew:     result.New,
		ListingsUpdated: result.Updated,
	})
}

func (h *ListingHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	filter := service.ListingFilter{
		Text:        query.Get("q"),
		Keyword:     query.Get("keyword"),
		Category:    query.Get("category"),
		Mall:        query.Get("mall"),
		SortBy:      query.Get("sort"),
		ExcludeUsed: query.Get("exclude_used") == "true",
	}

	var ok bool
	if filter.MinPrice, ok = int64Param(w, r, "min_price"); !ok {
		return
	}
	if filter.MaxPrice, ok = int64Param(w, r, "max_price"); !ok {
		return
	}

	page, ok := intParam(w, r, "page")
	if !ok {
		return
	}
	pageSize, ok := intParam(w, r, "page_size")
	if !ok {
		return
	}
	filter.Page = page
	filter.PageSize = pageSize

	listings, err := h.listingSrv.Search(r.Context(), filter)
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, listingListToApi(listings))
}

func (h *ListingHandler) Get(w http.ResponseWriter, r *http.Request) {
	listing, err := h.listingSrv.Get(r.Context(), chi.URLParam(r, "productId"))
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, listingToApi(listing))
}

func (h *ListingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.listingSrv.Delete(r.Context(), chi.URLParam(r, "productId")); err != nil {
		renderError(w, r, err)
		return
	}
	render.NoContent(w, r)
}

func (h *ListingHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.listingSrv.Stats(r.Context())
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, v1.ListingStats{
		TotalListings:  stats.TotalListings,
		TotalKeywords:  stats.TotalKeywords,
		AveragePrice:   stats.AveragePrice,
		ByCategory:     stats.ByCategory,
		ByProductGroup: stats.ByProductGroup,
	})
}

func (h *ListingHandler) History(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			renderBadRequest(w, r, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	history, err := h.listingSrv.History(r.Context(), limit)
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, historyListToApi(history))
}

func intParam(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed < 0 {
		renderBadRequest(w, r, name+" must be a non-negative integer")
		return 0, false
	}
	return parsed, true
}

func int64Param(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	parsed, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || parsed < 0 {
		renderBadRequest(w, r, name+" must be a non-negative integer")
		return 0, false
	}
	return parsed, true
}
