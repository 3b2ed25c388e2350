package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Load reads the configuration from the environment, applies tag defaults
// and validates the result.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := loadStruct(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

var durationType = reflect.TypeOf(time.Duration(0))

// lookup returns the first non-empty value among the env and envAlt names of
// a field, falling back to its default tag.
func lookup(tag reflect.StructTag) (name, value string) {
	name = tag.Get("env")
	for _, n := range []string{name, tag.Get("envAlt")} {
		if n == "" {
			continue
		}
		if v := os.Getenv(n); v != "" {
			return name, v
		}
	}
	return name, tag.Get("default")
}

// loadStruct fills tagged fields of v, descending into nested sections.
// Every missing or malformed variable is reported, not only the first.
func loadStruct(v reflect.Value) error {
	var errs []error

	for i := range v.NumField() {
		field, sf := v.Field(i), v.Type().Field(i)
		if !field.CanSet() {
			continue
		}
		if sf.Type.Kind() == reflect.Struct {
			if err := loadStruct(field); err != nil {
				errs = append(errs, err)
			}
			continue
		}

		name, value := lookup(sf.Tag)
		switch {
		case name == "":
		case value == "" && sf.Tag.Get("required") == "true":
			errs = append(errs, fmt.Errorf("required environment variable %s is not set", name))
		case value == "":
		default:
			if err := setField(field, value); err != nil {
				errs = append(errs, fmt.Errorf("%s=%q: %w", name, value, err))
			}
		}
	}

	return errors.Join(errs...)
}

// setField parses value into field according to the field's type.
func setField(field reflect.Value, value string) error {
	switch {
	case field.Type() == durationType:
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}
		field.SetInt(int64(d))

	case field.Kind() == reflect.String:
		field.SetString(value)

	case field.Kind() == reflect.Int || field.Kind() == reflect.Int64:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer: %w", err)
		}
		field.SetInt(n)

	case field.Kind() == reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	case field.Kind() == reflect.Slice && field.Type().Elem().Kind() == reflect.String:
		var items []string
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		field.Set(reflect.ValueOf(items))

	default:
		return fmt.Errorf("unsupported field type %s", field.Type())
	}
	return nil
}

// Cache backends accepted by CACHE_BACKEND.
var cacheBackends = []string{"sqlite", "postgres", "redis", "file", "memory"}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ReadTimeout < 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT must be non-negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}
	if c.Server.RequestTimeout <= 0 {
		errs = append(errs, "SERVER_REQUEST_TIMEOUT must be positive")
	}

	// Data validation
	if c.Data.FetchTimeout <= 0 {
		errs = append(errs, "DATA_FETCH_TIMEOUT must be positive")
	}
	if c.Data.RefreshInterval < 0 {
		errs = append(errs, "DATA_REFRESH_INTERVAL must be non-negative")
	}
	switch strings.ToLower(c.Data.CSVEncoding) {
	case "", "utf-8", "utf8", "euc-kr", "euckr", "cp949":
	default:
		errs = append(errs, fmt.Sprintf("DATA_CSV_ENCODING (%q) must be one of: utf-8, euc-kr", c.Data.CSVEncoding))
	}

	// Sheets validation
	if (c.Sheets.SpreadsheetID == "") != (c.Sheets.APIKey == "") {
		errs = append(errs, "SHEETS_SPREADSHEET_ID and SHEETS_API_KEY must be set together")
	}

	// Cache validation
	backend := strings.ToLower(c.Cache.Backend)
	if !slices.Contains(cacheBackends, backend) {
		errs = append(errs, fmt.Sprintf("CACHE_BACKEND (%q) must be one of: %s", c.Cache.Backend, strings.Join(cacheBackends, ", ")))
	}
	if backend == "postgres" && c.Cache.DatabaseURL == "" {
		errs = append(errs, "CACHE_DATABASE_URL is required for the postgres cache backend")
	}
	if backend == "postgres" && c.Cache.MaxConns <= 0 {
		errs = append(errs, "CACHE_DB_MAX_CONNS must be positive")
	}
	if backend == "redis" && c.Cache.RedisURL == "" {
		errs = append(errs, "CACHE_REDIS_URL is required for the redis cache backend")
	}
	if c.Cache.Key == "" {
		errs = append(errs, "CACHE_KEY must not be empty")
	}
	if c.Cache.Duration <= 0 {
		errs = append(errs, "CACHE_DURATION must be positive")
	}

	// Rate limit validation
	if c.Rate.Enabled && c.Rate.RequestsPerMinute <= 0 {
		errs = append(errs, "RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")
	}
	if c.Rate.Enabled && c.Rate.Burst <= 0 {
		errs = append(errs, "RATE_LIMIT_BURST must be positive when rate limiting is enabled")
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// String returns a safe string representation of the config for logging.
// The API key and connection URLs are masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	b.WriteString(fmt.Sprintf("Server: {Host: %q, Port: %d}, ", c.Server.Host, c.Server.Port))
	b.WriteString(fmt.Sprintf("Data: {Primary: %q, Secondary: %q, Merge: %v, Refresh: %s}, ",
		c.Data.PrimaryPath, c.Data.SecondaryPath, c.Data.MergeSecondary, c.Data.RefreshInterval))
	b.WriteString(fmt.Sprintf("Sheets: {Enabled: %v, Sheet: %q, APIKey: %s}, ",
		c.Sheets.Enabled(), c.Sheets.Sheet, mask(c.Sheets.APIKey)))
	b.WriteString(fmt.Sprintf("Cache: {Backend: %q, Key: %q, Duration: %s, DatabaseURL: %s, RedisURL: %s}, ",
		c.Cache.Backend, c.Cache.Key, c.Cache.Duration, mask(c.Cache.DatabaseURL), mask(c.Cache.RedisURL)))
	b.WriteString(fmt.Sprintf("Rate: {Enabled: %v, RequestsPerMinute: %d, Burst: %d}, ",
		c.Rate.Enabled, c.Rate.RequestsPerMinute, c.Rate.Burst))
	b.WriteString(fmt.Sprintf("Logging: {Level: %q, Format: %q}",
		c.Logging.Level, c.Logging.Format))
	b.WriteString("}")
	return b.String()
}

func mask(secret string) string {
	if secret == "" {
		return "[UNSET]"
	}
	return "[MASKED]"
}
