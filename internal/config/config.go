// Package config provides centralized configuration management for the
// server and the CLI. It loads configuration from environment variables with
// sensible defaults and validates all settings on startup to fail fast on
// misconfiguration.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server  ServerConfig
	Data    DataConfig
	Sheets  SheetsConfig
	Cache   CacheConfig
	Rate    RateLimitConfig
	Logging LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" envAlt:"PORT" default:"8080"`

	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"30s"`
	IdleTimeout  time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 30s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"30s"`

	// TrustedProxies lists proxy CIDRs whose X-Real-IP and X-Forwarded-For
	// headers are believed. Empty means client headers are ignored.
	TrustedProxies []string `env:"SERVER_TRUSTED_PROXIES"`
}

// DataConfig locates the dataset documents. Paths may be local files or
// http(s) URLs; a ".csv" path is read as a CSV export.
type DataConfig struct {
	// PrimaryPath is tried first after the cache.
	PrimaryPath string `env:"DATA_PRIMARY" envAlt:"DATA_PATH" default:"data/ev_data_final.json"`

	// SecondaryPath is the complete document. Besides being the second source,
	// its vehicle-region subsidies are merged into whatever source won.
	SecondaryPath string `env:"DATA_SECONDARY" default:"data/ev_complete_data.json"`

	// MergeSecondary controls the merge described above (default: true)
	MergeSecondary bool `env:"DATA_MERGE_SECONDARY" default:"true"`

	// CSVEncoding is the text encoding of CSV exports: utf-8 or euc-kr
	CSVEncoding string `env:"DATA_CSV_ENCODING" default:"utf-8"`

	// FetchTimeout bounds every remote fetch (default: 10s)
	FetchTimeout time.Duration `env:"DATA_FETCH_TIMEOUT" default:"10s"`

	// RefreshInterval reloads the dataset on first use after it passes.
	// Zero keeps the dataset until the cache is cleared.
	RefreshInterval time.Duration `env:"DATA_REFRESH_INTERVAL" default:"0s"`

	// BuildDir is where the build command writes its documents (default: data)
	BuildDir string `env:"DATA_BUILD_DIR" default:"data"`
}

// SheetsConfig holds the spreadsheet API source settings. The source is
// skipped unless both the spreadsheet ID and the API key are set.
type SheetsConfig struct {
	BaseURL       string `env:"SHEETS_BASE_URL" default:"https://sheets.googleapis.com/v4/spreadsheets"`
	SpreadsheetID string `env:"SHEETS_SPREADSHEET_ID"`
	APIKey        string `env:"SHEETS_API_KEY" envAlt:"GOOGLE_API_KEY"`
	Sheet         string `env:"SHEETS_SHEET" default:"2025 서울특별시"`
	Columns       string `env:"SHEETS_COLUMNS" default:"A:G"`
}

// Enabled reports whether the spreadsheet source is configured.
func (c *SheetsConfig) Enabled() bool {
	return c.SpreadsheetID != "" && c.APIKey != ""
}

// CacheConfig selects the dataset cache backend.
type CacheConfig struct {
	// Backend is one of sqlite, postgres, redis, file, memory (default: sqlite)
	Backend string `env:"CACHE_BACKEND" default:"sqlite"`

	// Dir holds the sqlite database or the cache files (default: .cache)
	Dir string `env:"CACHE_DIR" default:".cache"`

	// Key is the entry the merged dataset is stored under
	Key string `env:"CACHE_KEY" default:"ev_final_data"`

	// Duration is how long an entry stays fresh (default: 1h)
	Duration time.Duration `env:"CACHE_DURATION" default:"1h"`

	// DatabaseURL is the PostgreSQL connection string for the postgres backend
	DatabaseURL string `env:"CACHE_DATABASE_URL" envAlt:"DATABASE_URL"`

	// MaxConns is the postgres pool size (default: 4)
	MaxConns int `env:"CACHE_DB_MAX_CONNS" default:"4"`

	// RedisURL is the redis:// URL for the redis backend
	RedisURL string `env:"CACHE_REDIS_URL" envAlt:"REDIS_URL"`
}

// RateLimitConfig holds per-IP rate limiting settings for the API.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the sustained rate per IP (default: 120)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"120"`

	// Burst is how many requests an IP may make at once (default: 20)
	Burst int `env:"RATE_LIMIT_BURST" default:"20"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
