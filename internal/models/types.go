package models

// Kind represents the type of media (movie or tv series)
type Kind string

const (
	KindMovie  Kind = "movie"
	KindSeries Kind = "tv"
)

// Valid reports whether the kind is one of the known media kinds.
func (k Kind) Valid() bool {
	return k == KindMovie || k == KindSeries
}

// CacheKind identifies the operation a cache entry belongs to
type CacheKind string

const (
	CacheSearchMovie  CacheKind = "search_movie"
	CacheSearchTV     CacheKind = "search_tv"
	CacheSearchMulti  CacheKind = "search_multi"
	CacheMovieDetail  CacheKind = "movie_details"
	CacheSeriesDetail CacheKind = "series_details"
)

// SearchCacheKind returns the cache kind matching a search type filter.
// An empty kind means a multi search across movies and series.
func SearchCacheKind(kind Kind) CacheKind {
	switch kind {
	case KindMovie:
		return CacheSearchMovie
	case KindSeries:
		return CacheSearchTV
	default:
		return CacheSearchMulti
	}
}
