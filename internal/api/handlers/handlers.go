// Package handlers exposes the search, detail, tracking and document
// operations over HTTP. Responses are JSON except for the CSV exports.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/amaumene/watchlog/internal/controllers"
	"github.com/amaumene/watchlog/internal/document"
	"github.com/amaumene/watchlog/internal/models"
)

// Handler carries the controllers behind the HTTP routes.
type Handler struct {
	fetcher *controllers.Fetcher
	tracker *controllers.Tracker
	dataDir string
	logger  *logrus.Logger
}

// NewHandler creates a new API handler
func NewHandler(fetcher *controllers.Fetcher, tracker *controllers.Tracker, dataDir string, logger *logrus.Logger) *Handler {
	return &Handler{
		fetcher: fetcher,
		tracker: tracker,
		dataDir: dataDir,
		logger:  logger,
	}
}

// Health returns a liveness response.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Search handles GET /api/search?q=...&type=movie|tv
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		h.respondError(w, http.StatusBadRequest, "query parameter q is required")
		return
	}

	kind := models.Kind(r.URL.Query().Get("type"))
	if kind != "" && !kind.Valid() {
		h.respondError(w, http.StatusBadRequest, "type must be movie or tv")
		return
	}

	results, err := h.fetcher.Search(r.Context(), query, kind)
	if err != nil {
		h.logger.WithError(err).Error("Search failed")
		h.respondError(w, http.StatusBadGateway, "search failed")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"query":   query,
		"count":   len(results),
		"results": results,
	})
}

// GetMovie handles GET /api/movies/{id}
func (h *Handler) GetMovie(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	detail, err := h.fetcher.GetMovieDetail(r.Context(), id)
	if err != nil {
		h.logger.WithError(err).Error("Movie detail fetch failed")
		h.respondError(w, http.StatusBadGateway, "movie detail fetch failed")
		return
	}
	if detail == nil {
		h.respondError(w, http.StatusNotFound, "movie not found")
		return
	}

	h.respondJSON(w, http.StatusOK, detail)
}

// GetSeries handles GET /api/series/{id}
func (h *Handler) GetSeries(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	includeCast := r.URL.Query().Get("cast") != "false"
	includeExternal := r.URL.Query().Get("ratings") != "false"

	detail, err := h.fetcher.GetSeriesDetail(r.Context(), id, includeCast, includeExternal)
	if err != nil {
		h.logger.WithError(err).Error("Series detail fetch failed")
		h.respondError(w, http.StatusBadGateway, "series detail fetch failed")
		return
	}
	if detail == nil {
		h.respondError(w, http.StatusNotFound, "series not found")
		return
	}

	h.respondJSON(w, http.StatusOK, detail)
}

// GetUpcoming handles GET /api/series/{id}/upcoming
func (h *Handler) GetUpcoming(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	upcoming, err := h.fetcher.GetUpcomingEpisodes(r.Context(), id)
	if err != nil {
		h.logger.WithError(err).Error("Upcoming episodes fetch failed")
		h.respondError(w, http.StatusBadGateway, "upcoming episodes fetch failed")
		return
	}
	if upcoming == nil {
		h.respondError(w, http.StatusNotFound, "no upcoming episodes known")
		return
	}

	h.respondJSON(w, http.StatusOK, upcoming)
}

// AddMovie handles POST /api/movies
func (h *Handler) AddMovie(w http.ResponseWriter, r *http.Request) {
	var input controllers.AddMovieInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sequence, err := h.tracker.AddMovie(input)
	if err != nil {
		h.documentError(w, err, "Failed to add movie")
		return
	}

	h.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"sequence": sequence,
	})
}

// AddSeries handles POST /api/series
func (h *Handler) AddSeries(w http.ResponseWriter, r *http.Request) {
	var input controllers.AddSeriesInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sequence, err := h.tracker.AddSeries(input)
	if err != nil {
		h.documentError(w, err, "Failed to add series")
		return
	}

	h.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"sequence": sequence,
	})
}

// GetRows handles GET /api/document/{kind}
func (h *Handler) GetRows(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.pathKind(w, r)
	if !ok {
		return
	}

	rows, err := h.tracker.Rows(kind)
	if err != nil {
		h.documentError(w, err, "Failed to read document rows")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"kind":  kind,
		"count": len(rows),
		"rows":  rows,
	})
}

// UpdateCell handles PUT /api/document/{kind}/rows/{row}/cells/{column}
func (h *Handler) UpdateCell(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.pathKind(w, r)
	if !ok {
		return
	}

	vars := mux.Vars(r)
	rowIndex, err := strconv.Atoi(vars["row"])
	if err != nil || rowIndex < 0 {
		h.respondError(w, http.StatusBadRequest, "row must be a non-negative integer")
		return
	}
	column := vars["column"]

	var body struct {
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.tracker.UpdateCell(kind, rowIndex, column, body.Value); err != nil {
		h.documentError(w, err, "Failed to update cell")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// Export handles GET /api/export/{kind}.csv
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.pathKind(w, r)
	if !ok {
		return
	}

	name := "movies.csv"
	if kind == models.KindSeries {
		name = "series.csv"
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename="+name)

	if err := h.tracker.Export(kind, w); err != nil {
		h.logger.WithError(err).Error("Export failed")
	}
}

// ClearCache handles POST /api/cache/clear
func (h *Handler) ClearCache(w http.ResponseWriter, r *http.Request) {
	if err := h.tracker.ClearCache(); err != nil {
		h.logger.WithError(err).Error("Cache clear failed")
		h.respondError(w, http.StatusInternalServerError, "cache clear failed")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// Backup handles POST /api/backup
func (h *Handler) Backup(w http.ResponseWriter, r *http.Request) {
	dir, err := h.tracker.Backup(h.dataDir)
	if err != nil {
		h.logger.WithError(err).Error("Backup failed")
		h.respondError(w, http.StatusInternalServerError, "backup failed")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"backup": dir})
}

// pathKind resolves the {kind} path segment ("movies" or "series").
func (h *Handler) pathKind(w http.ResponseWriter, r *http.Request) (models.Kind, bool) {
	switch mux.Vars(r)["kind"] {
	case "movies":
		return models.KindMovie, true
	case "series":
		return models.KindSeries, true
	default:
		h.respondError(w, http.StatusBadRequest, "kind must be movies or series")
		return "", false
	}
}

// pathID resolves the {id} path segment as a catalog id.
func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		h.respondError(w, http.StatusBadRequest, "id must be a positive integer")
		return 0, false
	}
	return id, true
}

// documentError maps document adapter errors to HTTP statuses.
func (h *Handler) documentError(w http.ResponseWriter, err error, msg string) {
	h.logger.WithError(err).Error(msg)

	switch {
	case errors.Is(err, document.ErrColumnNotFound), errors.Is(err, document.ErrRowIndex):
		h.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, document.ErrNoPath), errors.Is(err, document.ErrTableIndex), errors.Is(err, document.ErrNotOpen):
		h.respondError(w, http.StatusConflict, err.Error())
	default:
		h.respondError(w, http.StatusInternalServerError, msg)
	}
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.WithError(err).Error("Failed to encode response")
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
