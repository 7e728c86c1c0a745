package controllers

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/amaumene/watchlog/internal/cache"
	"github.com/amaumene/watchlog/internal/document"
	"github.com/amaumene/watchlog/internal/export"
	"github.com/amaumene/watchlog/internal/library"
	"github.com/amaumene/watchlog/internal/models"
	"github.com/amaumene/watchlog/internal/normalize"
)

// AddMovieInput carries the fields of a movie "add" action. Dates are
// already display strings; the catalog detail flow pre-formats them and
// user-entered dates are taken verbatim.
type AddMovieInput struct {
	Title       string `json:"title"`
	Duration    string `json:"duration"`
	Genres      string `json:"genres"`
	WatchDate   string `json:"watch_date"`
	ReleaseDate string `json:"release_date"`
	UserRating  string `json:"user_rating"`
	IMDBRating  string `json:"imdb_rating"`
	RTRating    string `json:"rt_rating"`
	Director    string `json:"director"`
	Year        string `json:"year"`
	Rewatch     bool   `json:"rewatch"`
}

// AddSeriesInput carries the fields of a series "add" action.
type AddSeriesInput struct {
	Title        string `json:"title"`
	Season       string `json:"season"`
	Episode      string `json:"episode"`
	Genres       string `json:"genres"`
	StartDate    string `json:"start_date"`
	FinishDate   string `json:"finish_date"`
	FirstAirDate string `json:"first_air_date"`
	UserRating   string `json:"user_rating"`
	IMDBRating   string `json:"imdb_rating"`
	RTRating     string `json:"rt_rating"`
	Creator      string `json:"creator"`
	ComingSeason string `json:"coming_season"`
	Finished     bool   `json:"finished"`
	TMDBID       int64  `json:"tmdb_id"`
}

// Tracker commits "add" actions: it normalizes the input, appends the
// row to the tracking document and mirrors the entry into the local
// JSON library.
type Tracker struct {
	adapter *document.Adapter
	library *library.Store
	cache   *cache.Store
	logger  *logrus.Logger
}

// NewTracker creates a new tracker controller
func NewTracker(adapter *document.Adapter, libraryStore *library.Store, cacheStore *cache.Store, logger *logrus.Logger) *Tracker {
	return &Tracker{
		adapter: adapter,
		library: libraryStore,
		cache:   cacheStore,
		logger:  logger,
	}
}

// AddMovie appends a movie row and mirrors it. It returns the sequence
// number assigned in the document.
func (t *Tracker) AddMovie(in AddMovieInput) (int, error) {
	if in.Title == "" {
		return 0, fmt.Errorf("movie title is required")
	}

	watchDate := in.WatchDate
	if watchDate == "" {
		watchDate = normalize.Date(time.Now())
	}

	fields := map[string]string{
		"NAME":          normalize.RewatchName(in.Title, in.Rewatch),
		"TIME_DURATION": in.Duration,
		"GENRE":         in.Genres,
		"WATCH_DATE":    watchDate,
		"RELEASE_DATE":  in.ReleaseDate,
		"RATE":          normalize.Rating(in.UserRating),
		"IMDB_RATING":   normalize.Rating(in.IMDBRating),
		"RT_RATING":     normalize.RTCell(in.RTRating),
	}

	sequence, err := t.adapter.AppendRow(models.KindMovie, fields)
	if err != nil {
		return 0, err
	}

	entry := &models.TrackedEntry{
		Kind:           models.KindMovie,
		SequenceNumber: sequence,
		Fields: map[string]string{
			"title":        in.Title,
			"year":         in.Year,
			"watch_date":   watchDate,
			"user_rating":  normalize.Rating(in.UserRating),
			"director":     in.Director,
			"genres":       in.Genres,
			"runtime":      in.Duration,
			"release_date": in.ReleaseDate,
			"imdb_rating":  normalize.Rating(in.IMDBRating),
			"rt_rating":    normalize.RTCell(in.RTRating),
			"is_rewatch":   strconv.FormatBool(in.Rewatch),
		},
	}
	if err := t.library.Append(entry); err != nil {
		// The document write is the source of truth; a mirror failure
		// is reported but does not undo the append.
		t.logger.WithError(err).Warn("Failed to mirror movie entry")
	}

	return sequence, nil
}

// AddSeries appends a series row and mirrors it.
func (t *Tracker) AddSeries(in AddSeriesInput) (int, error) {
	if in.Title == "" {
		return 0, fmt.Errorf("series title is required")
	}

	name := normalize.SeriesTitle(in.Title)
	finished := normalize.FinishedText(in.Finished, in.ComingSeason)

	fields := map[string]string{
		"NAME":           name,
		"SEASON":         in.Season,
		"EPISODE":        in.Episode,
		"GENRE":          in.Genres,
		"STARTING_DATE":  in.StartDate,
		"FINISHING_DATE": in.FinishDate,
		"FIRST_EPI_DATE": in.FirstAirDate,
		"RATE":           normalize.Rating(in.UserRating),
		"IMDB_RATING":    normalize.Rating(in.IMDBRating),
		"RT_RATING":      normalize.RTCell(in.RTRating),
		"FINISHED":       finished,
	}

	sequence, err := t.adapter.AppendRow(models.KindSeries, fields)
	if err != nil {
		return 0, err
	}

	entry := &models.TrackedEntry{
		Kind:           models.KindSeries,
		SequenceNumber: sequence,
		Fields: map[string]string{
			"title":          name,
			"watch_date":     in.StartDate,
			"user_rating":    normalize.Rating(in.UserRating),
			"status":         finished,
			"current_season": in.Season,
			"seasons":        in.Season,
			"episodes":       in.Episode,
			"genres":         in.Genres,
			"creator":        in.Creator,
			"first_air_date": in.FirstAirDate,
			"tmdb_id":        strconv.FormatInt(in.TMDBID, 10),
		},
	}
	if err := t.library.Append(entry); err != nil {
		t.logger.WithError(err).Warn("Failed to mirror series entry")
	}

	return sequence, nil
}

// Rows reads the current data rows of one tracking table.
func (t *Tracker) Rows(kind models.Kind) ([]document.Row, error) {
	return t.adapter.ReadRows(kind)
}

// UpdateCell edits one cell of one data row in the document.
func (t *Tracker) UpdateCell(kind models.Kind, rowIndex int, column, value string) error {
	return t.adapter.UpdateCell(kind, rowIndex, column, value)
}

// Export writes the mirrored entries of one kind to w as CSV.
func (t *Tracker) Export(kind models.Kind, w io.Writer) error {
	entries, err := t.library.List(kind)
	if err != nil {
		return err
	}
	if kind == models.KindSeries {
		return export.Series(w, entries)
	}
	return export.Movies(w, entries)
}

// UnfinishedSeries returns mirrored series entries that are not marked
// finished and carry a catalog id; the scheduler refreshes these.
func (t *Tracker) UnfinishedSeries() ([]models.TrackedEntry, error) {
	entries, err := t.library.List(models.KindSeries)
	if err != nil {
		return nil, err
	}

	out := make([]models.TrackedEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.Field("status") == "Yes" {
			continue
		}
		if id, err := strconv.ParseInt(entry.Field("tmdb_id"), 10, 64); err != nil || id <= 0 {
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}

// ClearCache removes every offline cache entry.
func (t *Tracker) ClearCache() error {
	return t.cache.Clear()
}

// Backup copies the mirror files into a timestamped directory.
func (t *Tracker) Backup(dir string) (string, error) {
	return t.library.Backup(dir)
}
