package poller

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jpalmerr/fleetpulse/internal/cache"
	"github.com/jpalmerr/fleetpulse/internal/metrics"
	"github.com/jpalmerr/fleetpulse/internal/store"
)

// PreviewSource resolves a short-lived signed preview URL for a media asset.
type PreviewSource interface {
	GetMediaPreviewURL(ctx context.Context, mediaID string) (string, error)
}

// PreviewResolver resolves preview URLs, reusing each one while it is fresh.
//
// Failures are not remembered: an asset that failed to resolve is retried on
// the next call.
type PreviewResolver struct {
	source      PreviewSource
	cache       *cache.TTL[string, string]
	concurrency int
	timeout     time.Duration
	now         func() time.Time
	group       singleflight.Group
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

// NewPreviewResolver creates a [PreviewResolver] backed by c.
//
// Refreshes run through [Map] with the given concurrency ceiling; each remote
// call is bounded by timeout. now supplies the clock for freshness checks.
func NewPreviewResolver(source PreviewSource, c *cache.TTL[string, string], concurrency int, timeout time.Duration, now func() time.Time, logger *slog.Logger, m *metrics.Metrics) *PreviewResolver {
	return &PreviewResolver{
		source:      source,
		cache:       c,
		concurrency: concurrency,
		timeout:     timeout,
		now:         now,
		logger:      logger,
		metrics:     m,
	}
}

// Resolve returns a preview URL for each media id that could be resolved.
//
// Ids missing from the result are absent for this call. Blank and duplicate ids
// are ignored. Fresh cache entries are returned without a remote call; absent
// or stale ones are fetched and, on success, written back to the cache.
func (r *PreviewResolver) Resolve(ctx context.Context, mediaIDs []string) map[string]string {
	now := r.now()
	out := make(map[string]string, len(mediaIDs))
	seen := make(map[string]struct{}, len(mediaIDs))
	var refresh []string

	for _, id := range mediaIDs {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		if hit, ok := r.cache.Get(id, now); ok && hit.Fresh {
			r.metrics.IncPreview(metrics.ResultHit)
			out[id] = hit.Value
			continue
		}
		refresh = append(refresh, id)
	}

	if len(refresh) == 0 {
		return out
	}

	urls, err := Map(ctx, refresh, r.concurrency, r.fetch)
	if err != nil {
		r.logger.Debug("preview resolution interrupted", "pending", len(refresh), "error", err.Error())
	}
	for i, id := range refresh {
		if urls[i] != "" {
			out[id] = urls[i]
		}
	}
	r.metrics.SetPreviewEntries(r.cache.Len())
	return out
}

// fetch resolves one media id. Concurrent fetches of the same id share a
// single remote call. An empty result means the id could not be resolved.
func (r *PreviewResolver) fetch(ctx context.Context, mediaID string) (url string) {
	defer recoverItem(r.logger, "preview fetch", "media_id", mediaID)

	v, err, shared := r.group.Do(mediaID, func() (any, error) {
		callCtx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()

		u, err := r.source.GetMediaPreviewURL(callCtx, mediaID)
		if err != nil {
			return "", err
		}
		r.cache.Set(mediaID, u, r.now())
		return u, nil
	})
	if err != nil {
		r.metrics.IncPreview(metrics.ResultError)
		r.logger.Warn("preview resolution failed", "media_id", mediaID, "error", err.Error())
		return ""
	}

	r.metrics.IncPreview(metrics.ResultFetched)
	r.logger.Debug("preview resolved", "media_id", mediaID, "shared", shared)
	return v.(string)
}

// Entries returns every cached preview, stale ones included, with freshness
// evaluated at now.
func (r *PreviewResolver) Entries(now time.Time) map[string]store.PreviewEntry {
	entries := r.cache.Entries()
	out := make(map[string]store.PreviewEntry, len(entries))
	for id, e := range entries {
		out[id] = store.PreviewEntry{
			URL:        e.Value,
			ResolvedAt: e.FetchedAt,
			Fresh:      now.Sub(e.FetchedAt) <= r.cache.MaxAge(),
		}
	}
	return out
}
