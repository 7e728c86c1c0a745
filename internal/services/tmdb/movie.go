package tmdb

import (
	"context"
	"fmt"
	"net/url"
)

// Genre is a single genre entry.
type Genre struct {
	Name string `json:"name"`
}

// CastMember is a credited actor.
type CastMember struct {
	Name string `json:"name"`
}

// CrewMember is a credited crew person with their job title.
type CrewMember struct {
	Name string `json:"name"`
	Job  string `json:"job"`
}

// Credits bundles the cast and crew sub-resource.
type Credits struct {
	Cast []CastMember `json:"cast"`
	Crew []CrewMember `json:"crew"`
}

// MovieDetails is the payload of /movie/{id} with credits and regional
// release dates appended in the same call.
type MovieDetails struct {
	apiStatus
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Runtime     int     `json:"runtime"`
	ReleaseDate string  `json:"release_date"`
	Genres      []Genre `json:"genres"`
	IMDBId      string  `json:"imdb_id"`
	Tagline     string  `json:"tagline"`
	Budget      int64   `json:"budget"`
	Revenue     int64   `json:"revenue"`
	PosterPath  string  `json:"poster_path"`
	Overview    string  `json:"overview"`
	Credits     Credits `json:"credits"`
}

// GenreNames returns the movie's genre names in API order.
func (m *MovieDetails) GenreNames() []string {
	names := make([]string, 0, len(m.Genres))
	for _, g := range m.Genres {
		names = append(names, g.Name)
	}
	return names
}

// Directors returns the names of crew members credited as Director.
func (m *MovieDetails) Directors() []string {
	var names []string
	for _, person := range m.Credits.Crew {
		if person.Job == "Director" {
			names = append(names, person.Name)
		}
	}
	return names
}

// CastNames returns up to max credited actor names in billing order.
func (m *MovieDetails) CastNames(max int) []string {
	cast := m.Credits.Cast
	if len(cast) > max {
		cast = cast[:max]
	}
	names := make([]string, 0, len(cast))
	for _, person := range cast {
		names = append(names, person.Name)
	}
	return names
}

// GetMovieDetails fetches a movie with its credit and regional-release
// sub-resources in one call.
func (c *Client) GetMovieDetails(ctx context.Context, movieID int64) (*MovieDetails, error) {
	params := url.Values{}
	params.Set("append_to_response", "credits,release_dates")

	var details MovieDetails
	if err := c.doGET(ctx, fmt.Sprintf("/movie/%d", movieID), params, &details); err != nil {
		return nil, err
	}
	return &details, nil
}
