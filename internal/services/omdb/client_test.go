package omdb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/amaumene/watchlog/internal/config"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestField(t *testing.T) {
	if got := Field("N/A"); got != "" {
		t.Errorf("Field(N/A) = %q", got)
	}
	if got := Field("8.8"); got != "8.8" {
		t.Errorf("Field(8.8) = %q", got)
	}
	if got := Field(""); got != "" {
		t.Errorf("Field empty = %q", got)
	}
}

func TestRottenTomatoes(t *testing.T) {
	title := &Title{Ratings: []Rating{
		{Source: "Internet Movie Database", Value: "8.8/10"},
		{Source: "Rotten Tomatoes", Value: "87%"},
		{Source: "Metacritic", Value: "74/100"},
	}}
	if got := title.RottenTomatoes(); got != "87%" {
		t.Errorf("RottenTomatoes = %q", got)
	}

	empty := &Title{}
	if got := empty.RottenTomatoes(); got != "" {
		t.Errorf("RottenTomatoes without source = %q", got)
	}
}

func TestGetByIMDBID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("apikey") != "key" {
			t.Error("apikey not sent")
		}
		if r.URL.Query().Get("i") != "tt1375666" {
			t.Errorf("i = %q", r.URL.Query().Get("i"))
		}
		fmt.Fprint(w, `{"Response": "True", "imdbRating": "8.8"}`)
	}))
	defer server.Close()

	client := NewClientWithBaseURL(&config.Config{OMDBAPIKey: "key"}, server.URL, testLogger())
	title, err := client.GetByIMDBID(context.Background(), "tt1375666")
	if err != nil {
		t.Fatalf("GetByIMDBID failed: %v", err)
	}
	if title.IMDBRating != "8.8" {
		t.Errorf("IMDBRating = %q", title.IMDBRating)
	}
}

func TestGetByIMDBIDErrorPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"Response": "False", "Error": "Incorrect IMDb ID."}`)
	}))
	defer server.Close()

	client := NewClientWithBaseURL(&config.Config{OMDBAPIKey: "key"}, server.URL, testLogger())
	if _, err := client.GetByIMDBID(context.Background(), "tt0000000"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestGetByIMDBIDUnconfigured(t *testing.T) {
	client := NewClient(&config.Config{}, testLogger())
	if _, err := client.GetByIMDBID(context.Background(), "tt1375666"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("err = %v, want ErrNotConfigured", err)
	}
}

func TestGetByIMDBIDEmptyID(t *testing.T) {
	client := NewClient(&config.Config{OMDBAPIKey: "key"}, testLogger())
	if _, err := client.GetByIMDBID(context.Background(), ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
