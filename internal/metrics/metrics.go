// Package metrics defines the Prometheus collectors exported by fleetpulse.
//
// All methods are safe to call on a nil *Metrics, so components can be built
// without instrumentation in tests.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "fleetpulse"

// Result labels.
const (
	ResultOK         = "ok"
	ResultAbsent     = "absent"
	ResultError      = "error"
	ResultHit        = "hit"
	ResultFetched    = "fetched"
	ResultSuppressed = "suppressed"
	ResultDiscarded  = "discarded"
)

// Metrics holds the collectors for one fleetpulse instance.
type Metrics struct {
	Cycles         *prometheus.CounterVec
	CycleDuration  prometheus.Histogram
	PlaybackFetch  *prometheus.CounterVec
	PreviewResolve *prometheus.CounterVec
	OnlineDisplays prometheus.Gauge
	PreviewEntries prometheus.Gauge
}

// New creates the collectors and registers them with reg.
//
// A nil reg leaves the collectors unregistered.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_cycles_total",
			Help:      "Poll cycles by outcome (ok, error, suppressed, discarded).",
		}, []string{"result"}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "poll_cycle_duration_seconds",
			Help:      "Wall-clock duration of completed poll cycles.",
			Buckets:   prometheus.DefBuckets,
		}),
		PlaybackFetch: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "playback_fetches_total",
			Help:      "Per-display playback reads by outcome (ok, absent, error).",
		}, []string{"result"}),
		PreviewResolve: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "preview_resolutions_total",
			Help:      "Preview URL lookups by outcome (hit, fetched, error).",
		}, []string{"result"}),
		OnlineDisplays: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online_displays",
			Help:      "Online displays in the most recent roster.",
		}),
		PreviewEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "preview_cache_entries",
			Help:      "Entries held in the preview URL cache.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.Cycles,
			m.CycleDuration,
			m.PlaybackFetch,
			m.PreviewResolve,
			m.OnlineDisplays,
			m.PreviewEntries,
		)
	}
	return m
}

// IncCycle counts one poll cycle outcome.
func (m *Metrics) IncCycle(result string) {
	if m == nil || m.Cycles == nil {
		return
	}
	m.Cycles.WithLabelValues(result).Inc()
}

// ObserveCycle records how long a poll cycle took.
func (m *Metrics) ObserveCycle(d time.Duration) {
	if m == nil || m.CycleDuration == nil {
		return
	}
	m.CycleDuration.Observe(d.Seconds())
}

// IncPlayback counts one playback read outcome.
func (m *Metrics) IncPlayback(result string) {
	if m == nil || m.PlaybackFetch == nil {
		return
	}
	m.PlaybackFetch.WithLabelValues(result).Inc()
}

// IncPreview counts one preview URL resolution outcome.
func (m *Metrics) IncPreview(result string) {
	if m == nil || m.PreviewResolve == nil {
		return
	}
	m.PreviewResolve.WithLabelValues(result).Inc()
}

// SetOnline sets the number of online displays in the last roster.
func (m *Metrics) SetOnline(n int) {
	if m == nil || m.OnlineDisplays == nil {
		return
	}
	m.OnlineDisplays.Set(float64(n))
}

// SetPreviewEntries sets the number of cached preview URLs.
func (m *Metrics) SetPreviewEntries(n int) {
	if m == nil || m.PreviewEntries == nil {
		return
	}
	m.PreviewEntries.Set(float64(n))
}
