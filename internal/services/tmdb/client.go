package tmdb

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

const defaultBaseURL = "https://api.themoviedb.org/3"

// Soft failure conditions the caller degrades to empty results.
var (
	ErrNotConfigured = errors.New("tmdb api key is not configured")
	ErrUnauthorized  = errors.New("tmdb api key invalid or expired")
	ErrNotFound      = errors.New("tmdb resource not found")
)

// StatusError reports an unexpected HTTP status from the catalog API.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("tmdb request failed with status %d: %s", e.Code, e.Status)
}

// Client handles communication with the TMDB API
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewClient creates a new TMDB API client. A missing API key is not an
// error here; requests against an unconfigured client fail softly.
func NewClient(cfg *config.Config, logger *logrus.Logger) *Client {
	return NewClientWithBaseURL(cfg, defaultBaseURL, logger)
}

// NewClientWithBaseURL creates a client against an explicit API base URL.
func NewClientWithBaseURL(cfg *config.Config, baseURL string, logger *logrus.Logger) *Client {
	return &Client{
		apiKey:     cfg.TMDBAPIKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// IsConfigured reports whether an API key is present.
func (c *Client) IsConfigured() bool {
	return c.apiKey != ""
}

// doGET performs a GET request against a TMDB endpoint and decodes the
// JSON response into result.
func (c *Client) doGET(ctx context.Context, path string, params url.Values, result interface{}) error {
	if !c.IsConfigured() {
		return ErrNotConfigured
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.apiKey)

	fullURL := c.baseURL + path + "?" + params.Encode()
	c.logger.WithField("path", path).Debug("Making TMDB API request")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("tmdb request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	// TMDB reports some request-level errors inside a 200 body.
	if apiErr, ok := result.(interface{ apiError() error }); ok {
		if err := apiErr.apiError(); err != nil {
			return err
		}
	}

	return nil
}

// apiStatus is embedded in response payloads to surface TMDB's in-body
// error envelope ({"success": false, "status_message": ...}).
type apiStatus struct {
	Success       *bool  `json:"success,omitempty"`
	StatusMessage string `json:"status_message,omitempty"`
}

func (s apiStatus) apiError() error {
	if s.Success != nil && !*s.Success {
		message := s.StatusMessage
		if message == "" {
			message = "unknown API error"
		}
		return fmt.Errorf("tmdb API error: %s", message)
	}
	return nil
}
