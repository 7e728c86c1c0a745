package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Table layout defaults. The movie table is the 2nd table in the document,
// the series table the 1st (1-based). Column positions are 0-based.
const (
	DefaultMovieTableIndex  = 2
	DefaultSeriesTableIndex = 1
	DefaultCacheSize        = 200
)

// DefaultMovieColumns maps movie table column names to 0-based positions.
func DefaultMovieColumns() map[string]int {
	return map[string]int{
		"NO":            0,
		"NAME":          1,
		"TIME_DURATION": 2,
		"GENRE":         3,
		"WATCH_DATE":    4,
		"RELEASE_DATE":  5,
		"RATE":          6,
		"IMDB_RATING":   7,
		"RT_RATING":     8,
	}
}

// DefaultSeriesColumns maps series table column names to 0-based positions.
func DefaultSeriesColumns() map[string]int {
	return map[string]int{
		"NO":             0,
		"NAME":           1,
		"SEASON":         2,
		"EPISODE":        3,
		"GENRE":          4,
		"STARTING_DATE":  5,
		"FINISHING_DATE": 6,
		"FIRST_EPI_DATE": 7,
		"RATE":           8,
		"IMDB_RATING":    9,
		"RT_RATING":      10,
		"FINISHED":       11,
	}
}

// Config holds all application configuration
type Config struct {
	// API keys. Both are optional: a missing key degrades to empty
	// fetch results instead of an error.
	TMDBAPIKey string
	OMDBAPIKey string

	// Tracking document
	DocumentPath     string
	DocumentBackend  string // "docx" or "json"
	MovieTableIndex  int    // 1-based position of the movie table
	SeriesTableIndex int    // 1-based position of the series table
	MovieColumns     map[string]int
	SeriesColumns    map[string]int

	// Offline cache
	OfflineMode bool
	CacheSize   int    // maximum number of cached items kept by the trim job
	CacheFile   string // $CONFIG_DIR/cache.db

	// Paths
	DataDir string // movies.json / series.json mirror files

	// Server
	ServerPort string

	// Logging
	LogLevel string
	LogFile  string // optional; enables rotating file output
}

// Load loads configuration from config.json in the config directory,
// with environment variable overrides.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("json")
	viper.AutomaticEnv()

	configDir := viper.GetString("CONFIG_DIR")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config", "watchlog")
	} else {
		absPath, err := filepath.Abs(configDir)
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path for CONFIG_DIR: %w", err)
		}
		configDir = absPath
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")

	viper.SetDefault("DOCUMENT_BACKEND", "docx")
	viper.SetDefault("MOVIE_TABLE_INDEX", DefaultMovieTableIndex)
	viper.SetDefault("SERIES_TABLE_INDEX", DefaultSeriesTableIndex)
	viper.SetDefault("OFFLINE_MODE", false)
	viper.SetDefault("OFFLINE_CACHE_SIZE", DefaultCacheSize)
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("LOG_LEVEL", "info")

	// Config file is optional; defaults and environment cover a fresh setup.
	_ = viper.ReadInConfig()

	dataDir := viper.GetString("DATA_DIR")
	if dataDir == "" {
		dataDir = filepath.Join(configDir, "data")
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	config := &Config{
		TMDBAPIKey: viper.GetString("TMDB_API_KEY"),
		OMDBAPIKey: viper.GetString("OMDB_API_KEY"),

		DocumentPath:     viper.GetString("DOC_PATH"),
		DocumentBackend:  viper.GetString("DOCUMENT_BACKEND"),
		MovieTableIndex:  viper.GetInt("MOVIE_TABLE_INDEX"),
		SeriesTableIndex: viper.GetInt("SERIES_TABLE_INDEX"),
		MovieColumns:     columnsOrDefault("MOVIE_COLUMNS", DefaultMovieColumns()),
		SeriesColumns:    columnsOrDefault("SERIES_COLUMNS", DefaultSeriesColumns()),

		OfflineMode: viper.GetBool("OFFLINE_MODE"),
		CacheSize:   viper.GetInt("OFFLINE_CACHE_SIZE"),
		CacheFile:   filepath.Join(configDir, "cache.db"),

		DataDir: dataDir,

		ServerPort: viper.GetString("SERVER_PORT"),

		LogLevel: viper.GetString("LOG_LEVEL"),
		LogFile:  viper.GetString("LOG_FILE"),
	}

	if config.CacheSize <= 0 {
		config.CacheSize = DefaultCacheSize
	}
	if config.MovieTableIndex <= 0 || config.SeriesTableIndex <= 0 {
		return nil, fmt.Errorf("table indices must be 1-based positive values")
	}

	return config, nil
}

// columnsOrDefault reads a column map from viper, falling back to the
// built-in schema when the key is absent or malformed.
func columnsOrDefault(key string, defaults map[string]int) map[string]int {
	raw := viper.GetStringMap(key)
	if len(raw) == 0 {
		return defaults
	}

	columns := make(map[string]int, len(raw))
	for name, value := range raw {
		switch v := value.(type) {
		case int:
			columns[normalizeColumnKey(name)] = v
		case int64:
			columns[normalizeColumnKey(name)] = int(v)
		case float64:
			columns[normalizeColumnKey(name)] = int(v)
		default:
			return defaults
		}
	}
	return columns
}

// normalizeColumnKey restores the canonical upper-case column names;
// viper lower-cases map keys when reading from file.
func normalizeColumnKey(name string) string {
	upper := make([]rune, 0, len(name))
	for _, r := range name {
		if r >= 'a' && r <= 'z' {
			r = r - 'a' + 'A'
		}
		upper = append(upper, r)
	}
	return string(upper)
}
