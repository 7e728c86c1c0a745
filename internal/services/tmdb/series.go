package tmdb

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Episode is one episode entry, used both for the next/last episode
// sub-resources and for season listings.
type Episode struct {
	SeasonNumber  int    `json:"season_number"`
	EpisodeNumber int    `json:"episode_number"`
	Name          string `json:"name"`
	AirDate       string `json:"air_date"`
}

// ExternalIDs carries cross-references into other catalogs.
type ExternalIDs struct {
	IMDBId string `json:"imdb_id"`
}

// Network is a broadcasting network entry.
type Network struct {
	Name string `json:"name"`
}

// Creator is a created-by credit.
type Creator struct {
	Name string `json:"name"`
}

// SeriesDetails is the payload of /tv/{id} with the sub-resources this
// application appends.
type SeriesDetails struct {
	apiStatus
	ID               int64       `json:"id"`
	Name             string      `json:"name"`
	NumberOfSeasons  int         `json:"number_of_seasons"`
	NumberOfEpisodes int         `json:"number_of_episodes"`
	FirstAirDate     string      `json:"first_air_date"`
	Status           string      `json:"status"`
	Genres           []Genre     `json:"genres"`
	CreatedBy        []Creator   `json:"created_by"`
	Networks         []Network   `json:"networks"`
	PosterPath       string      `json:"poster_path"`
	Overview         string      `json:"overview"`
	ExternalIDs      ExternalIDs `json:"external_ids"`
	NextEpisode      *Episode    `json:"next_episode_to_air"`
	LastEpisode      *Episode    `json:"last_episode_to_air"`
	Credits          Credits     `json:"credits"`
	AggregateCredits Credits     `json:"aggregate_credits"`
}

// GenreNames returns the series' genre names in API order.
func (s *SeriesDetails) GenreNames() []string {
	names := make([]string, 0, len(s.Genres))
	for _, g := range s.Genres {
		names = append(names, g.Name)
	}
	return names
}

// CreatorNames returns the created-by credits.
func (s *SeriesDetails) CreatorNames() []string {
	names := make([]string, 0, len(s.CreatedBy))
	for _, person := range s.CreatedBy {
		names = append(names, person.Name)
	}
	return names
}

// NetworkNames returns the broadcasting network names.
func (s *SeriesDetails) NetworkNames() []string {
	names := make([]string, 0, len(s.Networks))
	for _, network := range s.Networks {
		names = append(names, network.Name)
	}
	return names
}

// CastNames returns up to max actor names, preferring the aggregate
// credits (the more complete cast list) when present.
func (s *SeriesDetails) CastNames(max int) []string {
	cast := s.AggregateCredits.Cast
	if len(cast) == 0 {
		cast = s.Credits.Cast
	}
	if len(cast) > max {
		cast = cast[:max]
	}
	names := make([]string, 0, len(cast))
	for _, person := range cast {
		names = append(names, person.Name)
	}
	return names
}

// IsFinished derives the ended/canceled flag from the raw status string.
func (s *SeriesDetails) IsFinished() bool {
	status := strings.ToLower(s.Status)
	return status == "ended" || status == "canceled"
}

// SeasonDetails is the payload of /tv/{id}/season/{n}.
type SeasonDetails struct {
	apiStatus
	SeasonNumber int       `json:"season_number"`
	Episodes     []Episode `json:"episodes"`
}

// GetSeriesDetails fetches a series with its external ids and next/last
// episode sub-resources; credits are appended only when requested.
func (c *Client) GetSeriesDetails(ctx context.Context, seriesID int64, includeCast bool) (*SeriesDetails, error) {
	appendTo := []string{"external_ids", "next_episode_to_air", "last_episode_to_air"}
	if includeCast {
		appendTo = append(appendTo, "credits", "aggregate_credits")
	}

	params := url.Values{}
	params.Set("append_to_response", strings.Join(appendTo, ","))

	var details SeriesDetails
	if err := c.doGET(ctx, fmt.Sprintf("/tv/%d", seriesID), params, &details); err != nil {
		return nil, err
	}
	return &details, nil
}

// GetSeason fetches all episodes of one season.
func (c *Client) GetSeason(ctx context.Context, seriesID int64, season int) (*SeasonDetails, error) {
	var details SeasonDetails
	if err := c.doGET(ctx, fmt.Sprintf("/tv/%d/season/%d", seriesID, season), nil, &details); err != nil {
		return nil, err
	}
	return &details, nil
}
