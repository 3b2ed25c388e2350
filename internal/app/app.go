// Package app wires configuration into a ready core.Service: the cache
// backend, the source chain and the overlay. The server and the CLI both
// start from here.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/JonMunkholm/evsubsidy/internal/cache"
	"github.com/JonMunkholm/evsubsidy/internal/config"
	"github.com/JonMunkholm/evsubsidy/internal/core"
	"github.com/JonMunkholm/evsubsidy/internal/source"
)

// Source names reported in logs, metrics and /api/status.
const (
	SourcePrimary   = "primary"
	SourceSecondary = "secondary"
	SourceSheets    = "sheets"
)

// App owns the long-lived pieces built from a Config.
type App struct {
	Config  *config.Config
	Service *core.Service
	Cache   *cache.Gatekeeper
}

// Option adjusts how New builds the App.
type Option func(*options)

type options struct {
	noCache bool
	client  *http.Client
}

// WithoutCache skips the cache backend entirely.
func WithoutCache() Option {
	return func(o *options) { o.noCache = true }
}

// WithHTTPClient replaces the client built from DATA_FETCH_TIMEOUT.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.client = c }
}

// New opens the cache backend and builds the service. The dataset itself is
// loaded lazily on first use.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{Config: cfg}

	svcOpts := []core.ServiceOption{
		core.WithRefreshInterval(cfg.Data.RefreshInterval),
	}
	if !o.noCache {
		gk, err := cache.Open(ctx, CacheConfig(cfg))
		if err != nil {
			return nil, err
		}
		a.Cache = gk
		svcOpts = append(svcOpts, core.WithCache(gk, cfg.Cache.Key))
	}

	chain, overlay := Sources(cfg, Fetcher(cfg, o.client))
	if overlay != nil {
		svcOpts = append(svcOpts, core.WithOverlay(overlay))
	}
	a.Service = core.NewService(chain, svcOpts...)
	return a, nil
}

// Close releases the cache backend.
func (a *App) Close() error {
	if a.Cache == nil {
		return nil
	}
	if err := a.Cache.Close(); err != nil {
		return fmt.Errorf("close cache: %w", err)
	}
	return nil
}

// CacheConfig maps the cache section onto cache.Config.
func CacheConfig(cfg *config.Config) cache.Config {
	return cache.Config{
		Backend:     cfg.Cache.Backend,
		Dir:         cfg.Cache.Dir,
		DatabaseURL: cfg.Cache.DatabaseURL,
		MaxConns:    cfg.Cache.MaxConns,
		RedisURL:    cfg.Cache.RedisURL,
		Duration:    cfg.Cache.Duration,
	}
}

// Fetcher builds the fetcher every source shares. A nil client gets one
// bounded by DATA_FETCH_TIMEOUT.
func Fetcher(cfg *config.Config, client *http.Client) source.Fetcher {
	if client == nil {
		client = &http.Client{Timeout: cfg.Data.FetchTimeout}
	}
	return source.Fetcher{Client: client}
}

// Sources returns the source chain in the order it is tried: primary
// document, secondary document, spreadsheet, embedded fallback. The overlay
// is the secondary document when merging is enabled.
func Sources(cfg *config.Config, fetcher source.Fetcher) (chain []core.Source, overlay core.Source) {
	opts := source.Options{Fetcher: fetcher, Encoding: cfg.Data.CSVEncoding}

	if cfg.Data.PrimaryPath != "" {
		chain = append(chain, source.FromLocation(SourcePrimary, cfg.Data.PrimaryPath, opts))
	}
	if cfg.Data.SecondaryPath != "" {
		secondary := source.FromLocation(SourceSecondary, cfg.Data.SecondaryPath, opts)
		chain = append(chain, secondary)
		if cfg.Data.MergeSecondary {
			overlay = secondary
		}
	}
	if cfg.Sheets.Enabled() {
		chain = append(chain, source.NewSheets(SourceSheets, source.SheetsConfig{
			BaseURL:       cfg.Sheets.BaseURL,
			SpreadsheetID: cfg.Sheets.SpreadsheetID,
			APIKey:        cfg.Sheets.APIKey,
			Sheet:         cfg.Sheets.Sheet,
			Columns:       cfg.Sheets.Columns,
		}, fetcher))
	}
	chain = append(chain, source.NewFallback())
	return chain, overlay
}
