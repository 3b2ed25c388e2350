// Package logging configures log/slog for the server and the CLI.
//
// Loggers obtained through FromContext carry the request id set by chi's
// RequestID middleware, so every line written while serving a request can be
// correlated.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

// levels maps accepted LOG_LEVEL spellings. Anything else means info.
var levels = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// Setup installs the default logger writing to stdout.
//
// level is one of debug, info, warn or error; format is text or json.
func Setup(level, format string) {
	SetupWriter(os.Stdout, level, format)
}

// SetupWriter installs the default logger writing to w. The CLI passes
// stderr so stdout only carries command output.
func SetupWriter(w io.Writer, level, format string) {
	slog.SetDefault(New(w, level, format))
}

// New builds a logger without installing it.
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(level string) slog.Level {
	if l, ok := levels[strings.ToLower(strings.TrimSpace(level))]; ok {
		return l
	}
	return slog.LevelInfo
}

// FromContext returns the default logger, with request_id attached when ctx
// belongs to a request that passed through chi's RequestID middleware.
//
//	logging.FromContext(r.Context()).Info("subsidy resolved", "region", region)
func FromContext(ctx context.Context) *slog.Logger {
	if id := middleware.GetReqID(ctx); id != "" {
		return slog.Default().With("request_id", id)
	}
	return slog.Default()
}

// WithFields returns a request-aware logger carrying extra fields, for
// operations that log several steps such as a dataset load:
//
//	log := logging.WithFields(ctx, "load_id", loadID)
//	log.Info("dataset loaded", "source", name, "vehicles", n)
func WithFields(ctx context.Context, args ...any) *slog.Logger {
	return FromContext(ctx).With(args...)
}
