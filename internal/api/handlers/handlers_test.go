package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/amaumene/watchlog/internal/cache"
	"github.com/amaumene/watchlog/internal/config"
	"github.com/amaumene/watchlog/internal/controllers"
	"github.com/amaumene/watchlog/internal/document"
	"github.com/amaumene/watchlog/internal/library"
	"github.com/amaumene/watchlog/internal/models"
	"github.com/amaumene/watchlog/internal/services/omdb"
	"github.com/amaumene/watchlog/internal/services/tmdb"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store, err := cache.NewStore(filepath.Join(t.TempDir(), "cache.db"), logger)
	if err != nil {
		t.Fatalf("failed to open cache: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	fs := afero.NewMemMapFs()
	doc := map[string]interface{}{
		"tables": []map[string]interface{}{
			{"rows": [][]string{{"NO", "NAME", "SEASON", "EPISODE", "GENRE", "STARTING_DATE", "FINISHING_DATE", "FIRST_EPI_DATE", "RATE", "IMDB_RATING", "RT_RATING", "FINISHED"}}},
			{"rows": [][]string{{"NO", "NAME", "TIME_DURATION", "GENRE", "WATCH_DATE", "RELEASE_DATE", "RATE", "IMDB_RATING", "RT_RATING"}}},
		},
	}
	data, _ := json.Marshal(doc)
	if err := afero.WriteFile(fs, "/doc.json", data, 0644); err != nil {
		t.Fatalf("failed to write document: %v", err)
	}

	// Offline mode keeps every catalog call off the network.
	cfg := &config.Config{
		OfflineMode:      true,
		DocumentPath:     "/doc.json",
		DocumentBackend:  "json",
		MovieTableIndex:  config.DefaultMovieTableIndex,
		SeriesTableIndex: config.DefaultSeriesTableIndex,
		MovieColumns:     config.DefaultMovieColumns(),
		SeriesColumns:    config.DefaultSeriesColumns(),
	}

	fetcher := controllers.NewFetcher(cfg, tmdb.NewClient(cfg, logger), omdb.NewClient(cfg, logger), store, logger)
	adapter := document.NewAdapter(cfg, fs, logger)
	libraryStore := library.NewStore(fs, "/data", logger)
	tracker := controllers.NewTracker(adapter, libraryStore, store, logger)

	return NewHandler(fetcher, tracker, "/data", logger)
}

func TestHealth(t *testing.T) {
	handler := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "ok") {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestSearchRequiresQuery(t *testing.T) {
	handler := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.Search(rec, httptest.NewRequest(http.MethodGet, "/api/search", nil))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestSearchRejectsUnknownType(t *testing.T) {
	handler := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.Search(rec, httptest.NewRequest(http.MethodGet, "/api/search?q=alien&type=podcast", nil))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestSearchOfflineEmpty(t *testing.T) {
	handler := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.Search(rec, httptest.NewRequest(http.MethodGet, "/api/search?q=alien&type=movie", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Count   int                   `json:"count"`
		Results []models.SearchResult `json:"results"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if body.Count != 0 {
		t.Errorf("count = %d", body.Count)
	}
}

func TestAddMovieAndReadRows(t *testing.T) {
	handler := newTestHandler(t)

	payload := `{"title": "Inception", "duration": "2h 28m", "user_rating": "9", "rt_rating": "87%"}`
	rec := httptest.NewRecorder()
	handler.AddMovie(rec, httptest.NewRequest(http.MethodPost, "/api/movies", strings.NewReader(payload)))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var created struct {
		Sequence int `json:"sequence"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if created.Sequence != 1 {
		t.Errorf("sequence = %d", created.Sequence)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/document/movies", nil)
	req = mux.SetURLVars(req, map[string]string{"kind": "movies"})
	rec = httptest.NewRecorder()
	handler.GetRows(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var rows struct {
		Count int            `json:"count"`
		Rows  []document.Row `json:"rows"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &rows); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if rows.Count != 1 {
		t.Fatalf("count = %d", rows.Count)
	}
	if rows.Rows[0].Cells["NAME"] != "Inception" {
		t.Errorf("NAME = %q", rows.Rows[0].Cells["NAME"])
	}
	if rows.Rows[0].Cells["RT_RATING"] != "87" {
		t.Errorf("RT_RATING = %q", rows.Rows[0].Cells["RT_RATING"])
	}
}

func TestAddMovieRejectsBadBody(t *testing.T) {
	handler := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.AddMovie(rec, httptest.NewRequest(http.MethodPost, "/api/movies", strings.NewReader("not json")))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestAddMovieRequiresTitle(t *testing.T) {
	handler := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.AddMovie(rec, httptest.NewRequest(http.MethodPost, "/api/movies", strings.NewReader("{}")))

	if rec.Code == http.StatusCreated {
		t.Error("titleless movie was accepted")
	}
}

func TestUpdateCell(t *testing.T) {
	handler := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.AddMovie(rec, httptest.NewRequest(http.MethodPost, "/api/movies", strings.NewReader(`{"title": "Heat"}`)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("setup failed: %s", rec.Body.String())
	}

	body := bytes.NewReader([]byte(`{"value": "9.5/10"}`))
	req := httptest.NewRequest(http.MethodPut, "/api/document/movies/rows/0/cells/RATE", body)
	req = mux.SetURLVars(req, map[string]string{"kind": "movies", "row": "0", "column": "RATE"})
	rec = httptest.NewRecorder()
	handler.UpdateCell(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
}

func TestUpdateCellUnknownColumn(t *testing.T) {
	handler := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.AddMovie(rec, httptest.NewRequest(http.MethodPost, "/api/movies", strings.NewReader(`{"title": "Heat"}`)))

	req := httptest.NewRequest(http.MethodPut, "/api/document/movies/rows/0/cells/BOGUS",
		strings.NewReader(`{"value": "x"}`))
	req = mux.SetURLVars(req, map[string]string{"kind": "movies", "row": "0", "column": "BOGUS"})
	rec = httptest.NewRecorder()
	handler.UpdateCell(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestGetRowsRejectsUnknownKind(t *testing.T) {
	handler := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/document/books", nil)
	req = mux.SetURLVars(req, map[string]string{"kind": "books"})
	rec := httptest.NewRecorder()
	handler.GetRows(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestExportCSV(t *testing.T) {
	handler := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.AddMovie(rec, httptest.NewRequest(http.MethodPost, "/api/movies", strings.NewReader(`{"title": "Heat", "year": "1995"}`)))

	req := httptest.NewRequest(http.MethodGet, "/api/export/movies.csv", nil)
	req = mux.SetURLVars(req, map[string]string{"kind": "movies"})
	rec = httptest.NewRecorder()
	handler.Export(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "Heat") {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestGetMovieRejectsBadID(t *testing.T) {
	handler := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/movies/abc", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "abc"})
	rec := httptest.NewRecorder()
	handler.GetMovie(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestGetMovieOfflineMiss(t *testing.T) {
	handler := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/movies/27205", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "27205"})
	rec := httptest.NewRecorder()
	handler.GetMovie(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 for an uncached id offline", rec.Code)
	}
}

func TestClearCache(t *testing.T) {
	handler := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.ClearCache(rec, httptest.NewRequest(http.MethodPost, "/api/cache/clear", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}
