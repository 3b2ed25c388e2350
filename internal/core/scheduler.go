package core

// scheduler.go runs the background dataset refresh for long-running
// processes. Lookups already reload lazily once the refresh interval has
// passed; the scheduler moves that work off the request path so no request
// waits on a slow source.

import (
	"context"
	"time"

	"github.com/JonMunkholm/evsubsidy/internal/logging"
)

// StartRefresher loads the dataset immediately, then reloads it from the
// sources every interval, bypassing the cache. A failed reload keeps the
// previous dataset. It blocks until ctx is cancelled; a non-positive
// interval only performs the initial load.
func (s *Service) StartRefresher(ctx context.Context, interval time.Duration) {
	logger := logging.FromContext(ctx)

	if err := s.Load(ctx); err != nil {
		logger.Error("initial dataset load failed", "error", err)
	}
	if interval <= 0 {
		return
	}

	logger.Info("dataset refresher started", "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("dataset refresher stopped")
			return
		case <-ticker.C:
			s.runRefresh(ctx)
		}
	}
}

// runRefresh performs one reload cycle.
func (s *Service) runRefresh(ctx context.Context) {
	start := time.Now()
	if err := s.Reload(ctx); err != nil {
		logging.FromContext(ctx).Error("dataset refresh failed",
			"error", err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return
	}

	st := s.Status(ctx)
	logging.FromContext(ctx).Debug("dataset refreshed",
		"source", st.Source,
		"load_id", st.LoadID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
