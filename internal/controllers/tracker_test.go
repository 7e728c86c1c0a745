package controllers

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/amaumene/watchlog/internal/config"
	"github.com/amaumene/watchlog/internal/document"
	"github.com/amaumene/watchlog/internal/library"
	"github.com/amaumene/watchlog/internal/models"
	"github.com/amaumene/watchlog/internal/normalize"
)

func writeEmptyTables(t *testing.T, fs afero.Fs, path string) {
	t.Helper()

	doc := map[string]interface{}{
		"tables": []map[string]interface{}{
			{"rows": [][]string{{"NO", "NAME", "SEASON", "EPISODE", "GENRE", "STARTING_DATE", "FINISHING_DATE", "FIRST_EPI_DATE", "RATE", "IMDB_RATING", "RT_RATING", "FINISHED"}}},
			{"rows": [][]string{{"NO", "NAME", "TIME_DURATION", "GENRE", "WATCH_DATE", "RELEASE_DATE", "RATE", "IMDB_RATING", "RT_RATING"}}},
		},
	}
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("failed to encode document: %v", err)
	}
	if err := afero.WriteFile(fs, path, data, 0644); err != nil {
		t.Fatalf("failed to write document: %v", err)
	}
}

func newTestTracker(t *testing.T) (*Tracker, *document.Adapter, *library.Store) {
	t.Helper()

	logger := testLogger()
	fs := afero.NewMemMapFs()
	writeEmptyTables(t, fs, "/doc.json")

	cfg := &config.Config{
		DocumentPath:     "/doc.json",
		DocumentBackend:  "json",
		MovieTableIndex:  config.DefaultMovieTableIndex,
		SeriesTableIndex: config.DefaultSeriesTableIndex,
		MovieColumns:     config.DefaultMovieColumns(),
		SeriesColumns:    config.DefaultSeriesColumns(),
	}
	adapter := document.NewAdapter(cfg, fs, logger)
	libraryStore := library.NewStore(fs, "/data", logger)
	tracker := NewTracker(adapter, libraryStore, testCache(t), logger)
	return tracker, adapter, libraryStore
}

func TestAddMovieNormalizesFields(t *testing.T) {
	tracker, adapter, libraryStore := newTestTracker(t)

	sequence, err := tracker.AddMovie(AddMovieInput{
		Title:       "Inception",
		Duration:    "2h 28m",
		Genres:      "Action/Science Fiction",
		WatchDate:   "Apr 19, 2025",
		ReleaseDate: "Jul 16, 2010",
		UserRating:  "9",
		IMDBRating:  "8.8",
		RTRating:    "87%",
	})
	if err != nil {
		t.Fatalf("AddMovie failed: %v", err)
	}
	if sequence != 1 {
		t.Errorf("sequence = %d, want 1", sequence)
	}

	rows, err := adapter.ReadRows(models.KindMovie)
	if err != nil {
		t.Fatalf("ReadRows failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("row count = %d", len(rows))
	}

	cells := rows[0].Cells
	if cells["NO"] != "1" {
		t.Errorf("NO = %q", cells["NO"])
	}
	if cells["NAME"] != "Inception" {
		t.Errorf("NAME = %q", cells["NAME"])
	}
	if cells["RATE"] != "9.0/10" {
		t.Errorf("RATE = %q, want 9.0/10", cells["RATE"])
	}
	if cells["IMDB_RATING"] != "8.8/10" {
		t.Errorf("IMDB_RATING = %q, want 8.8/10", cells["IMDB_RATING"])
	}
	if cells["RT_RATING"] != "87" {
		t.Errorf("RT_RATING = %q, want bare 87", cells["RT_RATING"])
	}
	if cells["WATCH_DATE"] != "Apr 19, 2025" {
		t.Errorf("WATCH_DATE = %q", cells["WATCH_DATE"])
	}

	entries, err := libraryStore.List(models.KindMovie)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("mirror entries = %d", len(entries))
	}
	if entries[0].Field("title") != "Inception" {
		t.Errorf("mirrored title = %q", entries[0].Field("title"))
	}
	if entries[0].SequenceNumber != 1 {
		t.Errorf("mirrored sequence = %d", entries[0].SequenceNumber)
	}
	if entries[0].ID == "" {
		t.Error("mirrored entry has no id")
	}
}

func TestAddMovieDefaultsWatchDate(t *testing.T) {
	tracker, adapter, _ := newTestTracker(t)

	if _, err := tracker.AddMovie(AddMovieInput{Title: "Heat"}); err != nil {
		t.Fatalf("AddMovie failed: %v", err)
	}

	rows, err := adapter.ReadRows(models.KindMovie)
	if err != nil {
		t.Fatalf("ReadRows failed: %v", err)
	}
	want := normalize.Date(time.Now())
	if rows[0].Cells["WATCH_DATE"] != want {
		t.Errorf("WATCH_DATE = %q, want today (%s)", rows[0].Cells["WATCH_DATE"], want)
	}
}

func TestAddMovieRewatchMarker(t *testing.T) {
	tracker, adapter, _ := newTestTracker(t)

	if _, err := tracker.AddMovie(AddMovieInput{Title: "Heat", Rewatch: true}); err != nil {
		t.Fatalf("AddMovie failed: %v", err)
	}

	rows, _ := adapter.ReadRows(models.KindMovie)
	if rows[0].Cells["NAME"] != "Heat (Rewatch)" {
		t.Errorf("NAME = %q", rows[0].Cells["NAME"])
	}
}

func TestAddMovieRequiresTitle(t *testing.T) {
	tracker, _, _ := newTestTracker(t)

	if _, err := tracker.AddMovie(AddMovieInput{}); err == nil {
		t.Fatal("expected error for missing title")
	}
}

func TestAddMovieSequencesIncrement(t *testing.T) {
	tracker, _, _ := newTestTracker(t)

	for i, title := range []string{"First", "Second", "Third"} {
		sequence, err := tracker.AddMovie(AddMovieInput{Title: title})
		if err != nil {
			t.Fatalf("AddMovie failed: %v", err)
		}
		if sequence != i+1 {
			t.Errorf("sequence = %d, want %d", sequence, i+1)
		}
	}
}

func TestAddSeriesNormalizesFields(t *testing.T) {
	tracker, adapter, _ := newTestTracker(t)

	sequence, err := tracker.AddSeries(AddSeriesInput{
		Title:        "the wire",
		Season:       "5",
		Episode:      "60",
		Genres:       "Crime/Drama",
		StartDate:    "Jan 05, 2025",
		FinishDate:   "Mar 20, 2025",
		FirstAirDate: "Jun 02, 2002",
		UserRating:   "9.5",
		IMDBRating:   "9.3",
		RTRating:     "94%",
		Finished:     true,
		TMDBID:       1438,
	})
	if err != nil {
		t.Fatalf("AddSeries failed: %v", err)
	}
	if sequence != 1 {
		t.Errorf("sequence = %d", sequence)
	}

	rows, err := adapter.ReadRows(models.KindSeries)
	if err != nil {
		t.Fatalf("ReadRows failed: %v", err)
	}

	cells := rows[0].Cells
	if cells["NAME"] != "The Wire" {
		t.Errorf("NAME = %q, want title-cased The Wire", cells["NAME"])
	}
	if cells["FINISHED"] != "Yes" {
		t.Errorf("FINISHED = %q", cells["FINISHED"])
	}
	if cells["RT_RATING"] != "94" {
		t.Errorf("RT_RATING = %q", cells["RT_RATING"])
	}
	if cells["RATE"] != "9.5/10" {
		t.Errorf("RATE = %q", cells["RATE"])
	}
}

func TestAddSeriesComingSeason(t *testing.T) {
	tracker, adapter, _ := newTestTracker(t)

	if _, err := tracker.AddSeries(AddSeriesInput{
		Title:        "severance",
		Finished:     false,
		ComingSeason: "3",
	}); err != nil {
		t.Fatalf("AddSeries failed: %v", err)
	}

	rows, _ := adapter.ReadRows(models.KindSeries)
	if rows[0].Cells["FINISHED"] != "No(3)" {
		t.Errorf("FINISHED = %q, want No(3)", rows[0].Cells["FINISHED"])
	}
}

func TestUnfinishedSeries(t *testing.T) {
	tracker, _, _ := newTestTracker(t)

	if _, err := tracker.AddSeries(AddSeriesInput{Title: "done show", Finished: true, TMDBID: 1}); err != nil {
		t.Fatalf("AddSeries failed: %v", err)
	}
	if _, err := tracker.AddSeries(AddSeriesInput{Title: "running show", Finished: false, TMDBID: 2}); err != nil {
		t.Fatalf("AddSeries failed: %v", err)
	}
	if _, err := tracker.AddSeries(AddSeriesInput{Title: "untracked id", Finished: false}); err != nil {
		t.Fatalf("AddSeries failed: %v", err)
	}

	entries, err := tracker.UnfinishedSeries()
	if err != nil {
		t.Fatalf("UnfinishedSeries failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if entries[0].Field("title") != "Running Show" {
		t.Errorf("entry = %q", entries[0].Field("title"))
	}
}

func TestExportMoviesCSV(t *testing.T) {
	tracker, _, _ := newTestTracker(t)

	if _, err := tracker.AddMovie(AddMovieInput{
		Title:      "Inception",
		Year:       "2010",
		UserRating: "9",
		Director:   "Christopher Nolan",
	}); err != nil {
		t.Fatalf("AddMovie failed: %v", err)
	}

	var buf bytes.Buffer
	if err := tracker.Export(models.KindMovie, &buf); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("line count = %d: %q", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "title,year,watch_date,user_rating,director") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(lines[1], "Inception") || !strings.Contains(lines[1], "Christopher Nolan") {
		t.Errorf("row = %q", lines[1])
	}
	if strings.Contains(lines[0], "tmdb_id") {
		t.Error("internal field leaked into export header")
	}
}

func TestExportSeriesCSV(t *testing.T) {
	tracker, _, _ := newTestTracker(t)

	if _, err := tracker.AddSeries(AddSeriesInput{Title: "dark", Finished: true, TMDBID: 70523}); err != nil {
		t.Fatalf("AddSeries failed: %v", err)
	}

	var buf bytes.Buffer
	if err := tracker.Export(models.KindSeries, &buf); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "Dark") {
		t.Errorf("export missing entry: %q", out)
	}
	if strings.Contains(strings.SplitN(out, "\n", 2)[0], "tmdb_id") {
		t.Error("internal field leaked into export header")
	}
}
