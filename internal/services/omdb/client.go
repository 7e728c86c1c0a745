package omdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/amaumene/watchlog/internal/config"
)

const defaultBaseURL = "http://www.omdbapi.com/"

// Soft failure conditions; ratings are supplementary, so every one of
// these degrades to empty rating fields in the caller.
var (
	ErrNotConfigured = errors.New("omdb api key is not configured")
	ErrNotFound      = errors.New("omdb title not found")
)

// Rating is one entry of the Ratings list, e.g.
// {"Source": "Rotten Tomatoes", "Value": "87%"}.
type Rating struct {
	Source string `json:"Source"`
	Value  string `json:"Value"`
}

// Title is the payload for a single title lookup. OMDb signals errors
// in-band with Response=="False".
type Title struct {
	Response   string   `json:"Response"`
	Error      string   `json:"Error"`
	IMDBRating string   `json:"imdbRating"`
	Ratings    []Rating `json:"Ratings"`
	Genre      string   `json:"Genre"`
	Director   string   `json:"Director"`
	Actors     string   `json:"Actors"`
}

// Field returns an OMDb string field with the "N/A" placeholder
// normalized to empty.
func Field(value string) string {
	if value == "N/A" {
		return ""
	}
	return value
}

// RottenTomatoes returns the Rotten Tomatoes rating value ("87%"),
// or "" when the source is absent.
func (t *Title) RottenTomatoes() string {
	for _, rating := range t.Ratings {
		if rating.Source == "Rotten Tomatoes" {
			return rating.Value
		}
	}
	return ""
}

// Client handles communication with the OMDb API
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewClient creates a new OMDb API client. As with the catalog client,
// a missing key only makes lookups fail softly.
func NewClient(cfg *config.Config, logger *logrus.Logger) *Client {
	return NewClientWithBaseURL(cfg, defaultBaseURL, logger)
}

// NewClientWithBaseURL creates a client against an explicit API base URL.
func NewClientWithBaseURL(cfg *config.Config, baseURL string, logger *logrus.Logger) *Client {
	return &Client{
		apiKey:     cfg.OMDBAPIKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// IsConfigured reports whether an API key is present.
func (c *Client) IsConfigured() bool {
	return c.apiKey != ""
}

// GetByIMDBID looks a title up by its IMDb cross-reference id.
func (c *Client) GetByIMDBID(ctx context.Context, imdbID string) (*Title, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}
	if imdbID == "" {
		return nil, ErrNotFound
	}

	params := url.Values{}
	params.Set("apikey", c.apiKey)
	params.Set("i", imdbID)

	c.logger.WithField("imdb_id", imdbID).Debug("Making OMDb API request")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("omdb request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("omdb request failed with status %d", resp.StatusCode)
	}

	var title Title
	if err := json.NewDecoder(resp.Body).Decode(&title); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if title.Response == "False" {
		c.logger.WithFields(logrus.Fields{
			"imdb_id": imdbID,
			"error":   title.Error,
		}).Debug("OMDb returned an error payload")
		return nil, ErrNotFound
	}

	return &title, nil
}
