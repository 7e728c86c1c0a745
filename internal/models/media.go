package models

// SearchResult is a single entry returned by a catalog search.
// It lives only for the duration of a search-to-detail flow.
type SearchResult struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Kind     Kind   `json:"type"`
	Date     string `json:"date,omitempty"` // release date for movies, first air date for series
	Poster   string `json:"poster,omitempty"`
	Overview string `json:"overview,omitempty"`
}

// MovieDetail is the canonical merged movie record built from the
// primary catalog API and the secondary ratings API.
//
// Rating fields hold the raw numeric-bearing string ("8.8", "87%");
// display suffixes are applied only by the normalize package.
type MovieDetail struct {
	Title       string `json:"title"`
	Runtime     int    `json:"runtime"` // minutes
	Duration    string `json:"duration"`
	Genres      string `json:"genres"`
	ReleaseDate string `json:"release_date"`
	Director    string `json:"director"`
	Cast        string `json:"cast"`
	IMDBRating  string `json:"imdb_rating"`
	RTRating    string `json:"rt_rating"`
	IMDBId      string `json:"imdb_id"`
	Tagline     string `json:"tagline,omitempty"`
	Budget      string `json:"budget,omitempty"`
	Revenue     string `json:"revenue,omitempty"`
	Poster      string `json:"poster,omitempty"`
	Overview    string `json:"overview,omitempty"`
}

// SeriesDetail is the canonical merged series record.
type SeriesDetail struct {
	Title           string `json:"title"`
	Seasons         int    `json:"number_of_seasons"`
	Episodes        int    `json:"number_of_episodes"`
	Genres          string `json:"genres"`
	Creator         string `json:"creator"`
	Cast            string `json:"cast"`
	FirstAirDate    string `json:"first_air_date"`
	IMDBRating      string `json:"imdb_rating"`
	RTRating        string `json:"rt_rating"`
	IMDBId          string `json:"imdb_id"`
	Status          string `json:"status"`
	Finished        bool   `json:"is_finished"`
	UpcomingEpisode string `json:"upcoming_episode,omitempty"`
	UpcomingDate    string `json:"upcoming_date,omitempty"`
	LastEpisode     string `json:"last_episode,omitempty"`
	Network         string `json:"network,omitempty"`
	Poster          string `json:"poster,omitempty"`
	Overview        string `json:"overview,omitempty"`
}

// UpcomingEpisodes summarizes the unaired episodes of the season in progress.
type UpcomingEpisodes struct {
	NextEpisode    string `json:"upcoming_episode"`
	NextDate       string `json:"upcoming_date"`
	DaysUntil      int    `json:"days_until"`
	FutureEpisodes int    `json:"future_episodes"`
	Season         int    `json:"season_in_progress"`
}
