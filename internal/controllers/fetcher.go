package controllers

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"
	gocache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/amaumene/watchlog/internal/cache"
	"github.com/amaumene/watchlog/internal/config"
	"github.com/amaumene/watchlog/internal/models"
	"github.com/amaumene/watchlog/internal/normalize"
	"github.com/amaumene/watchlog/internal/services/omdb"
	"github.com/amaumene/watchlog/internal/services/tmdb"
)

const (
	maxMovieDirectors = 2
	maxMovieCast      = 6
	maxSeriesCast     = 8
)

// FetchError reports a truly unexpected upstream failure. Soft
// conditions (missing key, 401, 404, transport errors) never surface as
// one; they produce empty results instead.
type FetchError struct {
	Op  string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Fetcher queries the catalog and ratings APIs and merges their results
// into canonical detail records. When offline mode is configured it
// serves cached data only and never errors.
type Fetcher struct {
	cfg    *config.Config
	tmdb   *tmdb.Client
	omdb   *omdb.Client
	cache  *cache.Store
	memo   *gocache.Cache
	logger *logrus.Logger
}

// NewFetcher creates a new metadata fetcher
func NewFetcher(cfg *config.Config, tmdbClient *tmdb.Client, omdbClient *omdb.Client, cacheStore *cache.Store, logger *logrus.Logger) *Fetcher {
	return &Fetcher{
		cfg:    cfg,
		tmdb:   tmdbClient,
		omdb:   omdbClient,
		cache:  cacheStore,
		memo:   gocache.New(10*time.Minute, 30*time.Minute),
		logger: logger,
	}
}

// Search looks a query up against the catalog API, or against the
// offline cache when offline mode is on. The result is never nil on
// success; soft failures come back as an empty slice.
func (f *Fetcher) Search(ctx context.Context, query string, kind models.Kind) ([]models.SearchResult, error) {
	cacheKind := models.SearchCacheKind(kind)

	if f.cfg.OfflineMode {
		var results []models.SearchResult
		if f.cache.Load(cacheKind, query, &results) {
			f.logger.WithField("query", query).Debug("Serving search results from cache")
			return results, nil
		}
		f.logger.WithField("query", query).Debug("No cached search results in offline mode")
		return []models.SearchResult{}, nil
	}

	items, err := f.tmdb.Search(ctx, query, kind)
	if err != nil {
		return f.searchFailure(query, err)
	}

	results := make([]models.SearchResult, 0, len(items))
	for _, item := range items {
		result, ok := toSearchResult(item, kind)
		if !ok {
			continue
		}
		results = append(results, result)
	}

	// Closest title first; ties keep the catalog's ranking.
	lowered := strings.ToLower(query)
	sort.SliceStable(results, func(i, j int) bool {
		di := levenshtein.ComputeDistance(lowered, strings.ToLower(results[i].Title))
		dj := levenshtein.ComputeDistance(lowered, strings.ToLower(results[j].Title))
		return di < dj
	})

	f.cache.Save(cacheKind, query, results)

	f.logger.WithFields(logrus.Fields{
		"query": query,
		"count": len(results),
	}).Debug("Search completed")
	return results, nil
}

// toSearchResult reshapes a raw entry, discarding those whose media
// type cannot be determined.
func toSearchResult(item tmdb.SearchItem, kind models.Kind) (models.SearchResult, bool) {
	mediaType := models.Kind(item.MediaType)
	if !mediaType.Valid() {
		mediaType = kind
	}

	switch mediaType {
	case models.KindMovie:
		return models.SearchResult{
			ID:       item.ID,
			Title:    item.Title,
			Kind:     models.KindMovie,
			Date:     item.ReleaseDate,
			Poster:   item.PosterPath,
			Overview: item.Overview,
		}, true
	case models.KindSeries:
		return models.SearchResult{
			ID:       item.ID,
			Title:    item.Name,
			Kind:     models.KindSeries,
			Date:     item.FirstAirDate,
			Poster:   item.PosterPath,
			Overview: item.Overview,
		}, true
	default:
		return models.SearchResult{}, false
	}
}

// GetMovieDetail fetches and merges a movie record. A nil detail with a
// nil error means the movie could not be resolved (soft failure).
func (f *Fetcher) GetMovieDetail(ctx context.Context, movieID int64) (*models.MovieDetail, error) {
	key := strconv.FormatInt(movieID, 10)

	if f.cfg.OfflineMode {
		var detail models.MovieDetail
		if f.cache.Load(models.CacheMovieDetail, key, &detail) {
			return &detail, nil
		}
		return nil, nil
	}

	memoKey := "movie_" + key
	if cached, ok := f.memo.Get(memoKey); ok {
		detail := cached.(models.MovieDetail)
		return &detail, nil
	}

	raw, err := f.tmdb.GetMovieDetails(ctx, movieID)
	if err != nil {
		return nil, f.detailFailure("movie", key, err)
	}

	ratings := f.lookupRatings(ctx, raw.IMDBId)

	directors := raw.Directors()
	director := normalize.JoinNames(directors, maxMovieDirectors)
	if director == "" {
		director = omdb.Field(ratings.Director)
	}

	castNames := raw.CastNames(maxMovieCast)
	cast := strings.Join(castNames, ", ")
	if cast == "" {
		cast = omdb.Field(ratings.Actors)
	}

	genres := normalize.GenrePair(raw.GenreNames(), splitGenres(ratings.Genre))

	detail := models.MovieDetail{
		Title:       raw.Title,
		Runtime:     raw.Runtime,
		Duration:    normalize.Runtime(raw.Runtime),
		Genres:      normalize.JoinGenres(genres),
		ReleaseDate: normalize.APIDate(raw.ReleaseDate),
		Director:    director,
		Cast:        cast,
		IMDBRating:  omdb.Field(ratings.IMDBRating),
		RTRating:    ratings.RottenTomatoes(),
		IMDBId:      raw.IMDBId,
		Tagline:     raw.Tagline,
		Poster:      raw.PosterPath,
		Overview:    raw.Overview,
	}
	if raw.Budget > 0 {
		detail.Budget = normalize.Money(raw.Budget)
	}
	if raw.Revenue > 0 {
		detail.Revenue = normalize.Money(raw.Revenue)
	}

	f.cache.Save(models.CacheMovieDetail, key, detail)
	f.memo.Set(memoKey, detail, gocache.DefaultExpiration)

	return &detail, nil
}

// GetSeriesDetail fetches and merges a series record. includeCast adds
// the credit sub-resources; includeExternal enables the ratings lookup.
func (f *Fetcher) GetSeriesDetail(ctx context.Context, seriesID int64, includeCast, includeExternal bool) (*models.SeriesDetail, error) {
	key := strconv.FormatInt(seriesID, 10)

	if f.cfg.OfflineMode {
		var detail models.SeriesDetail
		if f.cache.Load(models.CacheSeriesDetail, key, &detail) {
			return &detail, nil
		}
		return nil, nil
	}

	memoKey := fmt.Sprintf("series_%s_%t_%t", key, includeCast, includeExternal)
	if cached, ok := f.memo.Get(memoKey); ok {
		detail := cached.(models.SeriesDetail)
		return &detail, nil
	}

	raw, err := f.tmdb.GetSeriesDetails(ctx, seriesID, includeCast)
	if err != nil {
		return nil, f.detailFailure("series", key, err)
	}

	ratings := &omdb.Title{}
	if includeExternal {
		ratings = f.lookupRatings(ctx, raw.ExternalIDs.IMDBId)
	}

	creator := strings.Join(raw.CreatorNames(), ", ")
	if creator == "" {
		creator = omdb.Field(ratings.Director)
	}

	cast := ""
	if includeCast {
		cast = strings.Join(raw.CastNames(maxSeriesCast), ", ")
	}
	if cast == "" {
		cast = omdb.Field(ratings.Actors)
	}

	genres := normalize.SeriesGenres(raw.GenreNames(), splitGenres(ratings.Genre))

	detail := models.SeriesDetail{
		Title:        raw.Name,
		Seasons:      raw.NumberOfSeasons,
		Episodes:     raw.NumberOfEpisodes,
		Genres:       normalize.JoinGenres(genres),
		Creator:      creator,
		Cast:         cast,
		FirstAirDate: normalize.APIDate(raw.FirstAirDate),
		IMDBRating:   omdb.Field(ratings.IMDBRating),
		RTRating:     ratings.RottenTomatoes(),
		IMDBId:       raw.ExternalIDs.IMDBId,
		Status:       raw.Status,
		Finished:     raw.IsFinished(),
		Network:      strings.Join(raw.NetworkNames(), ", "),
		Poster:       raw.PosterPath,
		Overview:     raw.Overview,
	}

	if next := raw.NextEpisode; next != nil {
		detail.UpcomingEpisode = normalize.EpisodeTag(next.SeasonNumber, next.EpisodeNumber, next.Name)
		detail.UpcomingDate = normalize.APIDate(next.AirDate)
	}
	if last := raw.LastEpisode; last != nil {
		detail.LastEpisode = normalize.EpisodeTagWithDate(
			last.SeasonNumber, last.EpisodeNumber, last.Name, normalize.APIDate(last.AirDate))
	}

	f.cache.Save(models.CacheSeriesDetail, key, detail)
	f.memo.Set(memoKey, detail, gocache.DefaultExpiration)

	return &detail, nil
}

// GetUpcomingEpisodes finds the season containing the next unaired
// episode and summarizes everything in it that airs today or later.
// A nil result with nil error means nothing upcoming is known.
func (f *Fetcher) GetUpcomingEpisodes(ctx context.Context, seriesID int64) (*models.UpcomingEpisodes, error) {
	if f.cfg.OfflineMode || !f.tmdb.IsConfigured() {
		return nil, nil
	}

	raw, err := f.tmdb.GetSeriesDetails(ctx, seriesID, false)
	if err != nil {
		return nil, f.detailFailure("upcoming", strconv.FormatInt(seriesID, 10), err)
	}
	if raw.NextEpisode == nil || raw.NextEpisode.SeasonNumber == 0 {
		return nil, nil
	}
	season := raw.NextEpisode.SeasonNumber

	seasonDetails, err := f.tmdb.GetSeason(ctx, seriesID, season)
	if err != nil {
		return nil, f.detailFailure("season", strconv.FormatInt(seriesID, 10), err)
	}

	type upcoming struct {
		episode   tmdb.Episode
		daysUntil int
	}

	// Air dates parse as UTC midnights; compare against a UTC midnight so
	// day arithmetic stays exact in any local zone.
	today := truncateToDay(time.Now().UTC())
	var pending []upcoming
	for _, episode := range seasonDetails.Episodes {
		if episode.AirDate == "" {
			continue
		}
		airDate, err := normalize.ParseAPIDate(episode.AirDate)
		if err != nil {
			f.logger.WithError(err).WithField("air_date", episode.AirDate).Debug("Skipping unparseable air date")
			continue
		}
		if airDate.Before(today) {
			continue
		}
		days := int(airDate.Sub(today).Hours() / 24)
		pending = append(pending, upcoming{episode: episode, daysUntil: days})
	}

	if len(pending) == 0 {
		return nil, nil
	}

	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].daysUntil < pending[j].daysUntil
	})

	next := pending[0]
	return &models.UpcomingEpisodes{
		NextEpisode:    normalize.EpisodeTag(season, next.episode.EpisodeNumber, next.episode.Name),
		NextDate:       normalize.APIDate(next.episode.AirDate),
		DaysUntil:      next.daysUntil,
		FutureEpisodes: len(pending),
		Season:         season,
	}, nil
}

// lookupRatings queries the ratings API by IMDb id. Every failure
// degrades to an empty ratings record; the primary result is never
// aborted by the secondary source.
func (f *Fetcher) lookupRatings(ctx context.Context, imdbID string) *omdb.Title {
	if imdbID == "" {
		return &omdb.Title{}
	}
	title, err := f.omdb.GetByIMDBID(ctx, imdbID)
	if err != nil {
		if !errors.Is(err, omdb.ErrNotConfigured) && !errors.Is(err, omdb.ErrNotFound) {
			f.logger.WithError(err).WithField("imdb_id", imdbID).Warn("Ratings lookup failed")
		}
		return &omdb.Title{}
	}
	return title
}

// searchFailure maps an upstream search error to the empty-result or
// FetchError path.
func (f *Fetcher) searchFailure(query string, err error) ([]models.SearchResult, error) {
	var statusErr *tmdb.StatusError
	if errors.As(err, &statusErr) {
		return nil, &FetchError{Op: "search " + query, Err: err}
	}
	f.logger.WithError(err).WithField("query", query).Warn("Search degraded to empty results")
	return []models.SearchResult{}, nil
}

// detailFailure maps an upstream detail error to the soft-empty or
// FetchError path.
func (f *Fetcher) detailFailure(op, key string, err error) error {
	var statusErr *tmdb.StatusError
	if errors.As(err, &statusErr) {
		return &FetchError{Op: op + " " + key, Err: err}
	}
	f.logger.WithError(err).WithFields(logrus.Fields{
		"op": op,
		"id": key,
	}).Warn("Detail fetch degraded to empty result")
	return nil
}

func splitGenres(raw string) []string {
	raw = omdb.Field(raw)
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ", ")
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
