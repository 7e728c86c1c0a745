// Package export writes tracked entries to CSV with a fixed field
// allowlist per kind: one header row, one row per record, unknown
// fields dropped.
package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/amaumene/watchlog/internal/models"
)

// MovieFields is the allowed movie export column set, in order.
var MovieFields = []string{
	"title", "year", "watch_date", "user_rating", "director",
	"genres", "runtime", "release_date", "imdb_rating", "rt_rating",
	"is_rewatch",
}

// SeriesFields is the allowed series export column set, in order.
var SeriesFields = []string{
	"title", "year", "watch_date", "user_rating", "status",
	"current_season", "current_episode", "seasons", "episodes",
	"genres", "creator", "first_air_date",
}

// Movies writes the movie entries to w as CSV.
func Movies(w io.Writer, entries []models.TrackedEntry) error {
	return write(w, MovieFields, entries)
}

// Series writes the series entries to w as CSV.
func Series(w io.Writer, entries []models.TrackedEntry) error {
	return write(w, SeriesFields, entries)
}

// Fields returns the allowlist for a kind.
func Fields(kind models.Kind) []string {
	if kind == models.KindSeries {
		return SeriesFields
	}
	return MovieFields
}

func write(w io.Writer, fields []string, entries []models.TrackedEntry) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(fields); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	row := make([]string, len(fields))
	for _, entry := range entries {
		for i, field := range fields {
			row[i] = entry.Field(field)
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}
