package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/jpalmerr/fleetpulse/internal/cache"
	"github.com/jpalmerr/fleetpulse/internal/metrics"
	"github.com/jpalmerr/fleetpulse/internal/signage"
	"github.com/jpalmerr/fleetpulse/internal/store"
)

const (
	DefaultInterval       = 15 * time.Second
	DefaultConcurrency    = 6
	DefaultRequestTimeout = 10 * time.Second
	DefaultPreviewTTL     = 5 * time.Minute
)

// Cycle triggers, used in logs.
const (
	triggerStart = "start"
	triggerTimer = "timer"
	triggerUser  = "user"
)

var (
	// ErrCycleInFlight is returned by [FleetPoller.Refresh] when a cycle is
	// already running. The trigger is dropped, not queued.
	ErrCycleInFlight = errors.New("poll cycle already in flight")

	// ErrStopped is returned once the poller has been torn down.
	ErrStopped = errors.New("poller stopped")

	// ErrSuperseded is returned when a cycle completed after a later cycle had
	// already published; its result is discarded.
	ErrSuperseded = errors.New("poll cycle superseded")
)

// RosterSource lists the displays of an organization.
type RosterSource interface {
	GetDisplayRoster(ctx context.Context, orgID string) ([]signage.Display, error)
}

// API is the set of remote reads a [FleetPoller] consumes.
type API interface {
	RosterSource
	PlaybackSource
	PreviewSource
}

// Config configures a [FleetPoller]. Zero values select the defaults.
type Config struct {
	// OrgID is the organization whose fleet is polled.
	OrgID string

	// Interval is the time between timer-triggered cycles. Defaults to 15s.
	Interval time.Duration

	// Concurrency caps parallel playback and preview reads. Defaults to 6.
	Concurrency int

	// RequestTimeout bounds every individual remote read. Defaults to 10s.
	RequestTimeout time.Duration

	// PreviewTTL is how long a resolved preview URL is reused. Defaults to 5m.
	PreviewTTL time.Duration

	// PreviewCacheSize bounds the preview cache (LRU). Zero means unbounded.
	PreviewCacheSize int

	Logger  *slog.Logger
	Metrics *metrics.Metrics

	// Now is the clock. Defaults to time.Now.
	Now func() time.Time
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.Concurrency < 1 {
		c.Concurrency = DefaultConcurrency
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.PreviewTTL <= 0 {
		c.PreviewTTL = DefaultPreviewTTL
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// FleetPoller owns one dashboard view's live fleet state.
//
// It polls once on [FleetPoller.Start], then on every interval tick, and on
// demand via [FleetPoller.Refresh]. At most one cycle runs at a time: a trigger
// arriving while a cycle is in flight is dropped. Each cycle publishes one
// complete [store.FleetState]; a cycle never publishes after a later cycle has,
// nor after [FleetPoller.Stop].
//
// The preview cache lives as long as the poller.
type FleetPoller struct {
	api      API
	store    store.Store
	cfg      Config
	status   *StatusFetcher
	previews *PreviewResolver
	logger   *slog.Logger
	metrics  *metrics.Metrics

	inFlight atomic.Bool
	closed   atomic.Bool
	seq      atomic.Uint64

	pubMu     sync.Mutex
	published uint64
	lastGood  store.FleetState

	mu      sync.Mutex
	started bool
	stopped bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewFleetPoller creates a [FleetPoller] that reads from api and publishes to st.
//
// The poller must be started with [FleetPoller.Start] and torn down with
// [FleetPoller.Stop]. [FleetPoller.Refresh] may also be used without Start
// for one-shot polling.
func NewFleetPoller(api API, st store.Store, cfg Config) *FleetPoller {
	cfg = cfg.withDefaults()

	var cacheOpts []cache.Option
	if cfg.PreviewCacheSize > 0 {
		cacheOpts = append(cacheOpts, cache.WithMaxEntries(cfg.PreviewCacheSize))
	}
	previewCache := cache.NewTTL[string, string](cfg.PreviewTTL, cacheOpts...)

	return &FleetPoller{
		api:      api,
		store:    st,
		cfg:      cfg,
		status:   NewStatusFetcher(api, cfg.RequestTimeout, cfg.Logger, cfg.Metrics),
		previews: NewPreviewResolver(api, previewCache, cfg.Concurrency, cfg.RequestTimeout, cfg.Now, cfg.Logger, cfg.Metrics),
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
	}
}

// Start begins polling in a background goroutine.
//
// Start is non-blocking. The poller polls immediately, then on every interval
// tick until [FleetPoller.Stop] is called or ctx is cancelled. Ticks that
// arrive while a cycle is in flight are dropped.
//
// If ctx is nil, context.Background() is used as the parent context.
// Start is idempotent; if Stop was called before Start, Start is a no-op.
func (p *FleetPoller) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started || p.stopped {
		p.mu.Unlock()
		return
	}
	p.started = true

	if ctx == nil {
		ctx = context.Background()
	}
	p.ctx, p.cancel = context.WithCancel(ctx)
	pollCtx := p.ctx // capture under lock to avoid race
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()

		var cycles sync.WaitGroup
		defer cycles.Wait()

		trigger := func(name string) {
			cycles.Add(1)
			go func() {
				defer cycles.Done()
				_, _ = p.poll(pollCtx, name)
			}()
		}

		trigger(triggerStart)

		ticker := time.NewTicker(p.cfg.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-pollCtx.Done():
				return
			case <-ticker.C:
				trigger(triggerTimer)
			}
		}
	}()
}

// Stop tears the poller down and waits for its goroutines to exit.
//
// In-flight reads are cancelled and any cycle still running is discarded
// rather than published. Stop is idempotent and safe to call before Start.
func (p *FleetPoller) Stop() {
	p.mu.Lock()
	if !p.stopped {
		p.stopped = true
		p.closed.Store(true)
		if p.cancel != nil {
			p.cancel()
		}
	}
	p.mu.Unlock()

	p.wg.Wait()
}

// Refresh runs one user-triggered cycle and returns the published state.
//
// When the poller is running, the cycle is bound to the poller's lifetime
// rather than ctx, so a caller going away does not abort a cycle whose result
// other readers will see. Returns [ErrCycleInFlight] if a cycle is running,
// [ErrStopped] after Stop, and a wrapped error if the roster read failed.
func (p *FleetPoller) Refresh(ctx context.Context) (store.FleetState, error) {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return store.FleetState{}, ErrStopped
	}
	if p.started {
		ctx = p.ctx
		p.wg.Add(1)
		defer p.wg.Done()
	}
	p.mu.Unlock()

	return p.poll(ctx, triggerUser)
}

// poll runs one cycle unless another one is in flight.
func (p *FleetPoller) poll(ctx context.Context, trigger string) (store.FleetState, error) {
	if p.closed.Load() {
		return store.FleetState{}, ErrStopped
	}
	if !p.inFlight.CompareAndSwap(false, true) {
		p.metrics.IncCycle(metrics.ResultSuppressed)
		p.logger.Debug("poll suppressed, cycle in flight", "trigger", trigger)
		return store.FleetState{}, ErrCycleInFlight
	}
	defer p.inFlight.Store(false)

	start := time.Now()
	state, err := p.cycle(ctx, trigger)
	p.metrics.ObserveCycle(time.Since(start))
	return state, err
}

// cycle reads the fleet and publishes the result. It does not check the
// in-flight flag; callers go through poll.
func (p *FleetPoller) cycle(ctx context.Context, trigger string) (store.FleetState, error) {
	seq := p.seq.Add(1)
	cycleID := uuid.NewString()
	logger := p.logger.With("cycle_id", cycleID, "trigger", trigger)

	rosterCtx, cancel := context.WithTimeout(ctx, p.cfg.RequestTimeout)
	displays, err := p.api.GetDisplayRoster(rosterCtx, p.cfg.OrgID)
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return p.discard(logger, ctx.Err())
		}
		logger.Error("display roster fetch failed", "org_id", p.cfg.OrgID, "error", err.Error())
		state := p.failedState(seq, cycleID, err)
		if !p.publish(seq, state) {
			return p.discard(logger, nil)
		}
		p.metrics.IncCycle(metrics.ResultError)
		return state, fmt.Errorf("fetch display roster: %w", err)
	}

	online := make([]signage.Display, 0, len(displays))
	playback := make(map[string]*signage.PlaybackSnapshot, len(displays))
	for _, d := range displays {
		// offline displays are listed as absent without being polled
		playback[d.ID] = nil
		if d.Online() {
			online = append(online, d)
		}
	}
	p.metrics.SetOnline(len(online))

	if len(online) > 0 {
		snaps, err := Map(ctx, online, p.cfg.Concurrency, func(ctx context.Context, d signage.Display) *signage.PlaybackSnapshot {
			return p.status.Fetch(ctx, d.ID)
		})
		if err != nil {
			return p.discard(logger, err)
		}
		for i, d := range online {
			playback[d.ID] = snaps[i]
		}

		// resolved URLs land in the preview cache, which Entries publishes
		// together with entries from earlier cycles
		if ids := mediaIDs(snaps); len(ids) > 0 {
			_ = p.previews.Resolve(ctx, ids)
			if ctx.Err() != nil {
				return p.discard(logger, ctx.Err())
			}
		}
	}

	now := p.cfg.Now()
	state := store.FleetState{
		Displays:    displays,
		Playback:    playback,
		Previews:    p.previews.Entries(now),
		LastUpdated: now,
		Cycle:       seq,
		CycleID:     cycleID,
	}
	if !p.publish(seq, state) {
		return p.discard(logger, nil)
	}

	p.metrics.IncCycle(metrics.ResultOK)
	logger.Debug("fleet snapshot published",
		"displays", len(displays),
		"online", len(online),
		"previews", len(state.Previews),
	)
	return state, nil
}

// publish hands state to the store unless the poller is stopped or a later
// cycle has already published. It reports whether state was published.
func (p *FleetPoller) publish(seq uint64, state store.FleetState) bool {
	p.pubMu.Lock()
	defer p.pubMu.Unlock()

	if p.closed.Load() || seq <= p.published {
		return false
	}
	p.published = seq
	if state.Error == "" {
		p.lastGood = state
	}
	p.store.Publish(state)
	return true
}

// failedState carries the last good state forward with the roster error set.
func (p *FleetPoller) failedState(seq uint64, cycleID string, err error) store.FleetState {
	p.pubMu.Lock()
	state := p.lastGood
	p.pubMu.Unlock()

	state.Cycle = seq
	state.CycleID = cycleID
	state.Error = err.Error()
	return state
}

// discard records a cycle whose result will not be published.
func (p *FleetPoller) discard(logger *slog.Logger, cause error) (store.FleetState, error) {
	p.metrics.IncCycle(metrics.ResultDiscarded)

	err := ErrSuperseded
	if p.closed.Load() {
		err = ErrStopped
	} else if cause != nil {
		err = cause
	}
	logger.Debug("poll cycle discarded", "reason", err.Error())
	return store.FleetState{}, err
}

// mediaIDs returns the distinct media assets referenced by snaps, in order.
func mediaIDs(snaps []*signage.PlaybackSnapshot) []string {
	seen := make(map[string]struct{}, len(snaps))
	ids := make([]string, 0, len(snaps))
	for _, s := range snaps {
		id, ok := s.MediaAssetID()
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}
