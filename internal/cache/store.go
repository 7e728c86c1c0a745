package cache

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/timshannon/bolthold"
	"go.etcd.io/bbolt"

	"github.com/amaumene/watchlog/internal/models"
)

// Entry is one cached API response keyed by (operation kind, query).
type Entry struct {
	Key       string `boltholdKey:"Key"`
	Kind      models.CacheKind
	Query     string
	Timestamp time.Time
	Payload   []byte
}

// Store persists API responses for offline use. Failures never propagate:
// a save that cannot complete reports false and a failed load is a miss.
type Store struct {
	store  *bolthold.Store
	logger *logrus.Logger
}

// NewStore opens the cache database at path.
func NewStore(path string, logger *logrus.Logger) (*Store, error) {
	store, err := bolthold.Open(path, 0600, &bolthold.Options{
		Options: &bbolt.Options{
			Timeout: 1 * time.Second,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open cache store: %w", err)
	}

	return &Store{store: store, logger: logger}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.store.Close()
}

// Key builds the composite cache key. The query part is sanitized to a
// filesystem-safe token: every non-alphanumeric rune becomes '_'.
func Key(kind models.CacheKind, query string) string {
	return string(kind) + "_" + Sanitize(query)
}

// Sanitize replaces every non-alphanumeric rune with an underscore.
func Sanitize(query string) string {
	out := make([]rune, 0, len(query))
	for _, r := range query {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}

// Save stores a payload under (kind, query), overwriting any previous entry.
func (s *Store) Save(kind models.CacheKind, query string, payload any) bool {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to encode cache payload")
		return false
	}

	entry := &Entry{
		Key:       Key(kind, query),
		Kind:      kind,
		Query:     query,
		Timestamp: time.Now(),
		Payload:   data,
	}
	if err := s.store.Upsert(entry.Key, entry); err != nil {
		s.logger.WithError(err).WithField("key", entry.Key).Warn("Failed to save cache entry")
		return false
	}
	return true
}

// Load reads the payload stored under (kind, query) into the value pointed
// at by into. It reports whether a usable entry was found.
func (s *Store) Load(kind models.CacheKind, query string, into any) bool {
	var entry Entry
	err := s.store.Get(Key(kind, query), &entry)
	if err == bolthold.ErrNotFound {
		return false
	}
	if err != nil {
		s.logger.WithError(err).WithField("key", Key(kind, query)).Warn("Failed to load cache entry")
		return false
	}

	if err := json.Unmarshal(entry.Payload, into); err != nil {
		s.logger.WithError(err).WithField("key", entry.Key).Warn("Failed to decode cache entry")
		return false
	}
	return true
}

// Count returns the number of cached entries.
func (s *Store) Count() (int, error) {
	var entries []*Entry
	if err := s.store.Find(&entries, nil); err != nil {
		return 0, err
	}
	return len(entries), nil
}

// Clear removes every cached entry.
func (s *Store) Clear() error {
	return s.store.DeleteMatching(&Entry{}, nil)
}

// Trim deletes the oldest entries until at most max remain.
func (s *Store) Trim(max int) error {
	if max <= 0 {
		return s.Clear()
	}

	var entries []*Entry
	if err := s.store.Find(&entries, nil); err != nil {
		return fmt.Errorf("failed to list cache entries: %w", err)
	}
	if len(entries) <= max {
		return nil
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})

	excess := entries[:len(entries)-max]
	for _, entry := range excess {
		if err := s.store.Delete(entry.Key, &Entry{}); err != nil {
			return fmt.Errorf("failed to delete cache entry %s: %w", entry.Key, err)
		}
	}

	s.logger.WithFields(logrus.Fields{
		"deleted":   len(excess),
		"remaining": max,
	}).Info("Trimmed offline cache")
	return nil
}
