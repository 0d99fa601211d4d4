package poller

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jpalmerr/fleetpulse/internal/metrics"
	"github.com/jpalmerr/fleetpulse/internal/signage"
)

// PlaybackSource reads the current playback of one display.
//
// Implementations return [signage.ErrNotFound] when nothing has played yet.
type PlaybackSource interface {
	GetCurrentPlayback(ctx context.Context, displayID string) (signage.PlaybackSnapshot, error)
}

// StatusFetcher fetches one display's playback and never fails to the caller.
type StatusFetcher struct {
	source  PlaybackSource
	timeout time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewStatusFetcher creates a [StatusFetcher] bounding each read by timeout.
func NewStatusFetcher(source PlaybackSource, timeout time.Duration, logger *slog.Logger, m *metrics.Metrics) *StatusFetcher {
	return &StatusFetcher{
		source:  source,
		timeout: timeout,
		logger:  logger,
		metrics: m,
	}
}

// Fetch returns the display's current playback, or nil when it is absent.
//
// Not-found is the expected steady state of a display that has played nothing
// yet. Any other failure (network error, timeout, unexpected status, malformed
// body) is logged and also reported as nil, so one display's failure never
// affects its siblings.
func (f *StatusFetcher) Fetch(ctx context.Context, displayID string) (snap *signage.PlaybackSnapshot) {
	defer recoverItem(f.logger, "playback fetch", "display_id", displayID)

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	start := time.Now()
	p, err := f.source.GetCurrentPlayback(ctx, displayID)
	switch {
	case errors.Is(err, signage.ErrNotFound):
		f.metrics.IncPlayback(metrics.ResultAbsent)
		f.logger.Debug("no playback logged", "display_id", displayID)
		return nil
	case err != nil:
		f.metrics.IncPlayback(metrics.ResultError)
		f.logger.Warn("playback fetch failed",
			"display_id", displayID,
			"latency_ms", time.Since(start).Milliseconds(),
			"error", err.Error(),
		)
		return nil
	}

	f.metrics.IncPlayback(metrics.ResultOK)
	f.logger.Debug("playback fetched",
		"display_id", displayID,
		"kind", p.Kind,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return &p
}
