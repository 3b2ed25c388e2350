package cache

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Backend names accepted by Open.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendFile     = "file"
	BackendMemory   = "memory"
)

// Backends lists the names accepted by Open.
var Backends = []string{BackendSQLite, BackendPostgres, BackendRedis, BackendFile, BackendMemory}

// Config selects and configures a backend.
type Config struct {
	Backend     string
	Dir         string // sqlite and file backends
	DatabaseURL string // postgres backend
	MaxConns    int    // postgres backend
	RedisURL    string // redis backend
	Duration    time.Duration
}

// Open builds the configured backend and wraps it in a Gatekeeper.
func Open(ctx context.Context, cfg Config, opts ...Option) (*Gatekeeper, error) {
	var (
		b   Backend
		err error
	)

	switch strings.ToLower(cfg.Backend) {
	case BackendSQLite, "":
		b, err = NewSQLite(filepath.Join(cfg.Dir, "cache.db"))
	case BackendPostgres:
		b, err = OpenPostgres(ctx, PostgresConfig{URL: cfg.DatabaseURL, MaxConns: cfg.MaxConns})
	case BackendRedis:
		b, err = OpenRedis(ctx, cfg.RedisURL)
	case BackendFile:
		b, err = NewFile(cfg.Dir)
	case BackendMemory:
		b = NewMemory()
	default:
		return nil, fmt.Errorf("unknown cache backend %q (want one of %s)", cfg.Backend, strings.Join(Backends, ", "))
	}
	if err != nil {
		return nil, fmt.Errorf("open %s cache: %w", cfg.Backend, err)
	}

	return New(b, append([]Option{WithDuration(cfg.Duration)}, opts...)...), nil
}
