// Package cache provides the time-bounded dataset cache.
//
// A Gatekeeper wraps a key-value Backend and stores each payload as a
// {"data": ..., "timestamp": <unix ms>} record. Entries expire lazily: a read
// older than the configured duration is treated as absent, nothing is evicted
// in the background. Reads never fail; missing, stale, corrupt and unreadable
// entries are all a miss.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/JonMunkholm/evsubsidy/internal/logging"
	"github.com/JonMunkholm/evsubsidy/internal/metrics"
)

// DefaultDuration is how long an entry stays fresh.
const DefaultDuration = time.Hour

var (
	// ErrNotFound is returned by a Backend when the key has no entry.
	ErrNotFound = errors.New("cache entry not found")

	// ErrInvalidPayload is returned by Put for payloads that are not JSON.
	ErrInvalidPayload = errors.New("invalid cache payload")
)

// Backend is durable raw-bytes storage.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Entry is the stored record.
type Entry struct {
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"` // unix milliseconds
}

// Gatekeeper applies the freshness rules on top of a Backend.
type Gatekeeper struct {
	backend  Backend
	duration time.Duration
	now      func() time.Time
}

// Option configures a Gatekeeper.
type Option func(*Gatekeeper)

// WithDuration sets how long entries stay fresh.
func WithDuration(d time.Duration) Option {
	return func(g *Gatekeeper) {
		if d > 0 {
			g.duration = d
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(g *Gatekeeper) { g.now = now }
}

// New creates a Gatekeeper over b.
func New(b Backend, opts ...Option) *Gatekeeper {
	g := &Gatekeeper{
		backend:  b,
		duration: DefaultDuration,
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// Duration returns the freshness window.
func (g *Gatekeeper) Duration() time.Duration {
	return g.duration
}

// Get returns the payload stored under key if it is present and fresh.
func (g *Gatekeeper) Get(ctx context.Context, key string) ([]byte, bool) {
	logger := logging.WithFields(ctx, "cache_key", key)

	raw, err := g.backend.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		metrics.CacheRequests.WithLabelValues(metrics.CacheMiss).Inc()
		return nil, false
	}
	if err != nil {
		metrics.CacheRequests.WithLabelValues(metrics.CacheError).Inc()
		logger.Warn("cache read failed, treating as miss", "error", err)
		return nil, false
	}

	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil || len(e.Data) == 0 || string(e.Data) == "null" {
		metrics.CacheRequests.WithLabelValues(metrics.CacheCorrupt).Inc()
		logger.Warn("cache entry corrupt, treating as miss", "error", err)
		return nil, false
	}

	if age := g.now().Sub(time.UnixMilli(e.Timestamp)); age >= g.duration {
		metrics.CacheRequests.WithLabelValues(metrics.CacheStale).Inc()
		logger.Debug("cache entry stale", "age", age)
		return nil, false
	}

	metrics.CacheRequests.WithLabelValues(metrics.CacheHit).Inc()
	return e.Data, true
}

// Put stores payload under key, stamped with the current time.
// The payload must be valid JSON.
func (g *Gatekeeper) Put(ctx context.Context, key string, payload []byte) error {
	if !json.Valid(payload) {
		return ErrInvalidPayload
	}

	raw, err := json.Marshal(Entry{
		Data:      json.RawMessage(payload),
		Timestamp: g.now().UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}

	if err := g.backend.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("cache backend set %q: %w", key, err)
	}
	return nil
}

// Clear removes the entry under key. Clearing a missing key is not an error.
func (g *Gatekeeper) Clear(ctx context.Context, key string) error {
	if err := g.backend.Delete(ctx, key); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("cache backend delete %q: %w", key, err)
	}
	return nil
}

// Close releases the backend.
func (g *Gatekeeper) Close() error {
	return g.backend.Close()
}
