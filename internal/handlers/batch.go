package handlers

import (
	"bufio"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	v1 "github.com/shopdex/shop-collector/api/v1"
	"github.com/shopdex/shop-collector/internal/service"
)

const (
	defaultListLimit = 50
	maxUploadSize    = 5 << 20
)

// BatchHandler exposes the batch run lifecycle over HTTP.
type BatchHandler struct {
	runSrv *service.RunService
}

func NewBatchHandler(runSrv *service.RunService) *BatchHandler {
	return &BatchHandler{runSrv: runSrv}
}

func (h *BatchHandler) Routes(r chi.Router) {
	r.Post("/", h.Create)
	r.Post("/upload", h.Upload)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Get("/{id}/keywords", h.Keywords)
	r.Post("/{id}/pause", h.Pause)
	r.Post("/{id}/resume", h.Resume)
	r.Post("/{id}/cancel", h.Cancel)
	r.Delete("/{id}", h.Delete)
}

// Create submits a keyword batch from a JSON body. A second submission
// while a run is active gets 409 with the active run id.
func (h *BatchHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body v1.BatchCreate
	if err := render.DecodeJSON(r.Body, &body); err != nil {
		renderBadRequest(w, r, "malformed json body")
		return
	}

	run, err := h.runSrv.Submit(r.Context(), service.RunCreateForm{
		Keywords:     body.Keywords,
		DelaySeconds: body.DelaySeconds,
	})
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, runToApi(run))
}

// Upload submits a keyword batch from an uploaded text or csv file, one
// keyword per line.
func (h *BatchHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		renderBadRequest(w, r, "malformed multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		renderBadRequest(w, r, "missing file field")
		return
	}
	defer file.Close()

	keywords, err := parseKeywordLines(file)
	if err != nil {
		renderBadRequest(w, r, "unreadable upload")
		return
	}

	delaySeconds := 0
	if raw := r.FormValue("delay_seconds"); raw != "" {
		delaySeconds, err = strconv.Atoi(raw)
		if err != nil {
			renderBadRequest(w, r, "delay_seconds must be an integer")
			return
		}
	}

	run, err := h.runSrv.Submit(r.Context(), service.RunCreateForm{
		Keywords:     keywords,
		DelaySeconds: delaySeconds,
		Source:       header.Filename,
	})
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, runToApi(run))
}

func (h *BatchHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			renderBadRequest(w, r, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	runs, err := h.runSrv.ListRuns(r.Context(), limit)
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, runListToApi(runs))
}

func (h *BatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := runID(w, r)
	if !ok {
		return
	}
	run, err := h.runSrv.Status(r.Context(), id)
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, runToApi(run))
}

func (h *BatchHandler) Keywords(w http.ResponseWriter, r *http.Request) {
	id, ok := runID(w, r)
	if !ok {
		return
	}
	entries, err := h.runSrv.Keywords(r.Context(), id)
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, keywordEntryListToApi(entries))
}

func (h *BatchHandler) Pause(w http.ResponseWriter, r *http.Request) {
	id, ok := runID(w, r)
	if !ok {
		return
	}
	run, err := h.runSrv.Pause(r.Context(), id)
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, runToApi(run))
}

func (h *BatchHandler) Resume(w http.ResponseWriter, r *http.Request) {
	id, ok := runID(w, r)
	if !ok {
		return
	}
	run, err := h.runSrv.Resume(r.Context(), id)
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, runToApi(run))
}

func (h *BatchHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := runID(w, r)
	if !ok {
		return
	}
	run, err := h.runSrv.Cancel(r.Context(), id)
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, runToApi(run))
}

func (h *BatchHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := runID(w, r)
	if !ok {
		return
	}
	if err := h.runSrv.Delete(r.Context(), id); err != nil {
		renderError(w, r, err)
		return
	}
	render.NoContent(w, r)
}

// parseKeywordLines reads one keyword per line. For csv lines only the
// first column is kept and a "keyword" header row is skipped. Blank
// lines and #-comment lines are skipped; a UTF-8 BOM on the first line
// is tolerated.
func parseKeywordLines(file io.Reader) ([]string, error) {
	keywords := make([]string, 0, 64)
	first := true
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimPrefix(scanner.Text(), "\uFEFF")
		if idx := strings.IndexByte(line, ','); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if first {
			first = false
			if strings.EqualFold(line, "keyword") {
				continue
			}
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		keywords = append(keywords, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return keywords, nil
}

func runID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		renderBadRequest(w, r, "id must be a uuid")
		return uuid.Nil, false
	}
	return id, true
}
