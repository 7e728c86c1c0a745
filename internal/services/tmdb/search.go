package tmdb

import (
	"context"
	"net/url"

	"github.com/amaumene/watchlog/internal/models"
)

// SearchItem is a raw search result entry as delivered by TMDB.
// Movies carry Title/ReleaseDate, series carry Name/FirstAirDate, and
// multi searches disambiguate through MediaType.
type SearchItem struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	Name         string `json:"name"`
	MediaType    string `json:"media_type"`
	ReleaseDate  string `json:"release_date"`
	FirstAirDate string `json:"first_air_date"`
	PosterPath   string `json:"poster_path"`
	Overview     string `json:"overview"`
}

// SearchResponse is the payload of a /search request.
type SearchResponse struct {
	apiStatus
	Results []SearchItem `json:"results"`
}

// Search queries /search/movie, /search/tv or /search/multi depending on
// kind (empty kind means multi).
func (c *Client) Search(ctx context.Context, query string, kind models.Kind) ([]SearchItem, error) {
	path := "/search/multi"
	switch kind {
	case models.KindMovie:
		path = "/search/movie"
	case models.KindSeries:
		path = "/search/tv"
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("include_adult", "false")

	var response SearchResponse
	if err := c.doGET(ctx, path, params, &response); err != nil {
		return nil, err
	}

	c.logger.WithField("count", len(response.Results)).Debug("TMDB search completed")
	return response.Results, nil
}
