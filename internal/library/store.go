// Package library keeps the app-local mirror of tracked entries as
// JSON list files next to the document: one list for movies, one for
// series. Files are read as a whole list and rewritten wholesale on
// every append.
package library

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/amaumene/watchlog/internal/models"
)

// Store persists tracked entries in the data directory.
type Store struct {
	fs     afero.Fs
	dir    string
	logger *logrus.Logger
}

// NewStore creates a mirror store rooted at dir.
func NewStore(fs afero.Fs, dir string, logger *logrus.Logger) *Store {
	return &Store{fs: fs, dir: dir, logger: logger}
}

func (s *Store) file(kind models.Kind) string {
	if kind == models.KindSeries {
		return filepath.Join(s.dir, "series.json")
	}
	return filepath.Join(s.dir, "movies.json")
}

// List returns every tracked entry of one kind. A missing file is an
// empty library, not an error.
func (s *Store) List(kind models.Kind) ([]models.TrackedEntry, error) {
	data, err := afero.ReadFile(s.fs, s.file(kind))
	if err != nil {
		if os.IsNotExist(err) {
			return []models.TrackedEntry{}, nil
		}
		return nil, fmt.Errorf("failed to read %s library: %w", kind, err)
	}

	var entries []models.TrackedEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse %s library: %w", kind, err)
	}
	return entries, nil
}

// Append adds one entry and rewrites the list file. The entry gets an
// id and timestamp if it does not carry them yet.
func (s *Store) Append(entry *models.TrackedEntry) error {
	entries, err := s.List(entry.Kind)
	if err != nil {
		return err
	}

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.AddedAt.IsZero() {
		entry.AddedAt = time.Now()
	}
	entries = append(entries, *entry)

	return s.write(entry.Kind, entries)
}

func (s *Store) write(kind models.Kind, entries []models.TrackedEntry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s library: %w", kind, err)
	}
	if err := s.fs.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := afero.WriteFile(s.fs, s.file(kind), data, 0644); err != nil {
		return fmt.Errorf("failed to write %s library: %w", kind, err)
	}
	return nil
}

// Backup copies both list files into a timestamped directory under dir.
func (s *Store) Backup(dir string) (string, error) {
	target := filepath.Join(dir, "backup_"+time.Now().Format("20060102_150405"))
	if err := s.fs.MkdirAll(target, 0755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	for _, kind := range []models.Kind{models.KindMovie, models.KindSeries} {
		src := s.file(kind)
		data, err := afero.ReadFile(s.fs, src)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return "", fmt.Errorf("failed to read %s for backup: %w", src, err)
		}
		dst := filepath.Join(target, filepath.Base(src))
		if err := afero.WriteFile(s.fs, dst, data, 0644); err != nil {
			return "", fmt.Errorf("failed to write backup %s: %w", dst, err)
		}
	}

	s.logger.WithField("dir", target).Info("Library backup written")
	return target, nil
}
