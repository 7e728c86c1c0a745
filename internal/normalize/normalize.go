// Package normalize turns raw fetched or user-entered values into the
// exact display strings written to the tracking table. Every function is
// pure; no I/O happens here.
package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DateLayout is the human-readable date form used across the table,
// e.g. "Apr 19, 2025".
const DateLayout = "Jan 02, 2006"

// apiDateLayout is the date form used by the catalog API.
const apiDateLayout = "2006-01-02"

var (
	titleCaser   = cases.Title(language.English)
	moneyPrinter = message.NewPrinter(language.English)
)

// Rating normalizes a user or IMDb rating to the "X.X/10" form.
// Values already carrying "/10" pass through unchanged, which makes the
// function idempotent. Non-numeric values pass through as-is.
func Rating(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	if strings.Contains(trimmed, "/10") {
		return trimmed
	}
	value, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return trimmed
	}
	return RatingValue(value)
}

// RatingValue formats a numeric rating as "X.X/10".
func RatingValue(value float64) string {
	return fmt.Sprintf("%.1f/10", value)
}

// RTCell converts a Rotten Tomatoes rating into the persisted cell form:
// the bare number with no "%" suffix.
func RTCell(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	return strings.TrimSpace(strings.TrimSuffix(trimmed, "%"))
}

// RTDisplay converts a persisted Rotten Tomatoes cell back to its
// display form with the "%" suffix.
func RTDisplay(cell string) string {
	trimmed := strings.TrimSpace(cell)
	if trimmed == "" {
		return ""
	}
	if strings.HasSuffix(trimmed, "%") {
		return trimmed
	}
	return trimmed + "%"
}

// Date renders a timestamp in the table's date form.
// String-typed dates are the caller's responsibility and pass through
// the system untouched; only real timestamps are formatted here.
func Date(t time.Time) string {
	return t.Format(DateLayout)
}

// APIDate reformats a catalog API date ("2006-01-02") into the table's
// form. Unparseable input passes through unchanged.
func APIDate(raw string) string {
	if raw == "" {
		return ""
	}
	t, err := time.Parse(apiDateLayout, raw)
	if err != nil {
		return raw
	}
	return Date(t)
}

// ParseAPIDate parses a catalog API date.
func ParseAPIDate(raw string) (time.Time, error) {
	return time.Parse(apiDateLayout, raw)
}

// Runtime formats a duration in minutes as "2h 28m".
func Runtime(minutes int) string {
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}

// FallbackGenre is the deterministic substitution used when a title has
// exactly one known genre and the secondary source offers nothing better.
func FallbackGenre(primary string) string {
	switch primary {
	case "Action":
		return "Thriller"
	case "Comedy":
		return "Drama"
	case "Drama":
		return "Thriller"
	case "Horror":
		return "Thriller"
	case "Science Fiction":
		return "Action"
	default:
		return "Drama"
	}
}

// GenrePair trims a movie genre list to at most two entries. A single
// genre is padded from the secondary source when it has more than one
// usable entry, otherwise from the substitution table.
func GenrePair(primary, secondary []string) []string {
	genres := dedupe(primary)
	if len(genres) == 1 {
		fallback := dedupe(secondary)
		if len(fallback) > 1 {
			genres = fallback
		} else {
			genres = append(genres, FallbackGenre(genres[0]))
		}
	}
	if len(genres) > 2 {
		genres = genres[:2]
	}
	return genres
}

// SeriesGenres trims a series genre list to at most three entries,
// preferring the secondary source when the primary has one or none.
func SeriesGenres(primary, secondary []string) []string {
	genres := dedupe(primary)
	if len(genres) <= 1 {
		if fallback := dedupe(secondary); len(fallback) > 1 {
			genres = fallback
		}
	}
	if len(genres) > 3 {
		genres = genres[:3]
	}
	return genres
}

// JoinGenres renders a genre list for the GENRE column.
func JoinGenres(genres []string) string {
	return strings.Join(genres, "/")
}

// SeriesTitle title-cases a series name ("the wire" -> "The Wire").
// Movie titles are left as delivered by the catalog.
func SeriesTitle(name string) string {
	return titleCaser.String(name)
}

// FinishedText renders the FINISHED column: "Yes" for ended shows,
// otherwise "No" or "No(<season>)" when a coming season is known.
func FinishedText(finished bool, comingSeason string) string {
	if finished {
		return "Yes"
	}
	if comingSeason != "" {
		return fmt.Sprintf("No(%s)", comingSeason)
	}
	return "No"
}

// RewatchName appends the rewatch marker to a movie name. Rewatches
// share the name column rather than using a column of their own.
func RewatchName(name string, rewatch bool) string {
	if !rewatch {
		return name
	}
	return name + " (Rewatch)"
}

// EpisodeTag renders an episode reference such as "S2E5: The Name".
func EpisodeTag(season, episode int, name string) string {
	return fmt.Sprintf("S%dE%d: %s", season, episode, name)
}

// EpisodeTagWithDate renders an episode reference with its air date,
// such as "S2E5: The Name (Apr 19, 2025)".
func EpisodeTagWithDate(season, episode int, name, date string) string {
	return fmt.Sprintf("S%dE%d: %s (%s)", season, episode, name, date)
}

// JoinNames joins up to max names with a comma separator.
func JoinNames(names []string, max int) string {
	if len(names) > max {
		names = names[:max]
	}
	return strings.Join(names, ", ")
}

// Money renders an amount as a grouped dollar figure ("$1,234,567").
func Money(amount int64) string {
	return moneyPrinter.Sprintf("$%d", amount)
}

func dedupe(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || v == "N/A" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
