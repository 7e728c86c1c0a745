package cache

import (
	"fmt"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/amaumene/watchlog/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store, err := NewStore(filepath.Join(t.TempDir(), "cache.db"), logger)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		raw      string
		expected string
	}{
		{"inception", "inception"},
		{"the dark knight", "the_dark_knight"},
		{"wall-e!", "wall_e_"},
		{"Amélie", "Am_lie"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := Sanitize(tt.raw); got != tt.expected {
			t.Errorf("Sanitize(%q) = %q, want %q", tt.raw, got, tt.expected)
		}
	}
}

func TestKey(t *testing.T) {
	if got := Key(models.CacheSearchMovie, "the matrix"); got != "search_movie_the_matrix" {
		t.Errorf("Key = %q", got)
	}
}

func TestSaveAndLoad(t *testing.T) {
	store := newTestStore(t)

	type payload struct {
		Title string
		Year  int
	}

	if !store.Save(models.CacheMovieDetail, "603", payload{Title: "The Matrix", Year: 1999}) {
		t.Fatal("Save returned false")
	}

	var got payload
	if !store.Load(models.CacheMovieDetail, "603", &got) {
		t.Fatal("Load missed a saved entry")
	}
	if got.Title != "The Matrix" || got.Year != 1999 {
		t.Errorf("loaded = %+v", got)
	}
}

func TestLoadMiss(t *testing.T) {
	store := newTestStore(t)

	var got map[string]string
	if store.Load(models.CacheMovieDetail, "nope", &got) {
		t.Error("Load reported a hit for a missing entry")
	}
}

func TestSaveOverwrites(t *testing.T) {
	store := newTestStore(t)

	store.Save(models.CacheSearchMovie, "alien", []string{"old"})
	store.Save(models.CacheSearchMovie, "alien", []string{"new"})

	var got []string
	if !store.Load(models.CacheSearchMovie, "alien", &got) {
		t.Fatal("Load missed")
	}
	if len(got) != 1 || got[0] != "new" {
		t.Errorf("loaded = %v", got)
	}

	count, err := store.Count()
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d after overwrite, want 1", count)
	}
}

func TestKindsDoNotCollide(t *testing.T) {
	store := newTestStore(t)

	store.Save(models.CacheSearchMovie, "dark", "movie results")
	store.Save(models.CacheSearchTV, "dark", "tv results")

	var got string
	if !store.Load(models.CacheSearchTV, "dark", &got) {
		t.Fatal("Load missed")
	}
	if got != "tv results" {
		t.Errorf("loaded = %q", got)
	}
}

func TestClear(t *testing.T) {
	store := newTestStore(t)

	store.Save(models.CacheSearchMovie, "a", 1)
	store.Save(models.CacheSearchMovie, "b", 2)

	if err := store.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	count, err := store.Count()
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d after clear", count)
	}
}

func TestTrimKeepsNewest(t *testing.T) {
	store := newTestStore(t)

	// Upsert with explicit timestamps so ordering is deterministic.
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		entry := &Entry{
			Key:       Key(models.CacheSearchMovie, fmt.Sprintf("q%d", i)),
			Kind:      models.CacheSearchMovie,
			Query:     fmt.Sprintf("q%d", i),
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Payload:   []byte(`"x"`),
		}
		if err := store.store.Upsert(entry.Key, entry); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}

	if err := store.Trim(2); err != nil {
		t.Fatalf("Trim failed: %v", err)
	}

	count, err := store.Count()
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d after trim, want 2", count)
	}

	// The newest entries survive.
	var got string
	if !store.Load(models.CacheSearchMovie, "q4", &got) {
		t.Error("newest entry was trimmed")
	}
	if store.Load(models.CacheSearchMovie, "q0", &got) {
		t.Error("oldest entry survived the trim")
	}
}

func TestTrimUnderLimitIsNoop(t *testing.T) {
	store := newTestStore(t)

	store.Save(models.CacheSearchMovie, "only", "entry")
	if err := store.Trim(200); err != nil {
		t.Fatalf("Trim failed: %v", err)
	}

	count, _ := store.Count()
	if count != 1 {
		t.Errorf("count = %d", count)
	}
}
