package fleetpulse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/jpalmerr/fleetpulse/dashboard"
	"github.com/jpalmerr/fleetpulse/internal/metrics"
	"github.com/jpalmerr/fleetpulse/internal/poller"
	"github.com/jpalmerr/fleetpulse/internal/server"
	"github.com/jpalmerr/fleetpulse/internal/signage"
	"github.com/jpalmerr/fleetpulse/internal/store"
)

const (
	defaultPollingInterval = poller.DefaultInterval
	defaultPort            = 8080
	defaultConcurrency     = poller.DefaultConcurrency
	defaultRequestTimeout  = poller.DefaultRequestTimeout
	defaultPreviewTTL      = poller.DefaultPreviewTTL
	defaultMaxRetries      = 1
)

// FleetPulse is the main orchestrator for fleet polling and dashboard serving.
//
// FleetPulse polls the signage API for an organization's displays, what each
// one is playing and preview URLs for the media on screen, and serves the
// result as a live dashboard. It is created using [New] with functional
// options and started with [FleetPulse.Start].
//
// The typical lifecycle is:
//
//	fp, err := fleetpulse.New(
//	    fleetpulse.WithAPI("https://signage.example.com/v1"),
//	    fleetpulse.WithOrganization("org-42"),
//	)
//	if err != nil {
//	    slog.Error("failed to create fleetpulse", "error", err)
//	    os.Exit(1)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	fp.Start(ctx) // blocks until context cancelled
type FleetPulse struct {
	title             string
	apiURL            string
	organization      string
	token             string
	headers           map[string]string
	pollingInterval   time.Duration
	concurrency       int
	requestTimeout    time.Duration
	previewTTL        time.Duration
	previewCacheSize  int
	maxRetries        int
	circuitBreaker    bool
	port              int
	logger            *slog.Logger
	snapshotCallbacks []func(Snapshot)
}

// New creates a new [FleetPulse] instance with the given options.
//
// [WithAPI] and [WithOrganization] are required. Other options have sensible
// defaults:
//   - Polling interval: 15 seconds
//   - Concurrency: 6
//   - Request timeout: 10 seconds
//   - Preview TTL: 5 minutes
//   - Port: 8080
//
// Returns an error if a required option is missing or any option is invalid.
func New(opts ...Option) (*FleetPulse, error) {
	cfg := &fpConfig{
		headers:         make(map[string]string),
		pollingInterval: defaultPollingInterval,
		concurrency:     defaultConcurrency,
		requestTimeout:  defaultRequestTimeout,
		previewTTL:      defaultPreviewTTL,
		maxRetries:      defaultMaxRetries,
		circuitBreaker:  true,
		port:            defaultPort,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.apiURL == "" {
		return nil, errors.New("API URL is required")
	}
	if cfg.organization == "" {
		return nil, errors.New("organization is required")
	}

	// default to slog.Default() if no logger provided
	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	return &FleetPulse{
		title:             cfg.title,
		apiURL:            cfg.apiURL,
		organization:      cfg.organization,
		token:             cfg.token,
		headers:           cfg.headers,
		pollingInterval:   cfg.pollingInterval,
		concurrency:       cfg.concurrency,
		requestTimeout:    cfg.requestTimeout,
		previewTTL:        cfg.previewTTL,
		previewCacheSize:  cfg.previewCacheSize,
		maxRetries:        cfg.maxRetries,
		circuitBreaker:    cfg.circuitBreaker,
		port:              cfg.port,
		logger:            logger,
		snapshotCallbacks: cfg.snapshotCallbacks,
	}, nil
}

// Start begins polling the fleet and serving the dashboard.
//
// Start is a blocking call that runs until the provided context is cancelled.
// During execution:
//
//   - The fleet is polled immediately, then at the configured interval
//   - The HTTP server starts on the configured port
//   - Every published snapshot is passed to the registered callbacks
//   - The dashboard is available at http://localhost:<port>
//
// Returns nil on graceful shutdown. Returns an error if the API client cannot
// be created or the HTTP server fails to start.
func (fp *FleetPulse) Start(ctx context.Context) error {
	fp.logger.Info("fleetpulse starting", "organization", fp.organization, "api_url", fp.apiURL)
	fp.logger.Info("polling configured",
		"interval", fp.pollingInterval.String(),
		"concurrency", fp.concurrency,
		"preview_ttl", fp.previewTTL.String(),
	)
	fp.logger.Info("dashboard available", "url", fmt.Sprintf("http://localhost:%d", fp.port))

	// check if context already cancelled
	if ctx.Err() != nil {
		return nil
	}

	client, err := signage.NewClient(fp.apiURL,
		signage.WithToken(fp.token),
		signage.WithHeaders(fp.headers),
		signage.WithMaxRetries(fp.maxRetries),
		signage.WithCircuitBreaker(fp.circuitBreaker),
		signage.WithClientLogger(fp.logger),
	)
	if err != nil {
		return fmt.Errorf("failed to create API client: %w", err)
	}
	defer client.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	fleetStore := store.NewMemoryStore()
	fleetPoller := poller.NewFleetPoller(client, fleetStore, poller.Config{
		OrgID:            fp.organization,
		Interval:         fp.pollingInterval,
		Concurrency:      fp.concurrency,
		RequestTimeout:   fp.requestTimeout,
		PreviewTTL:       fp.previewTTL,
		PreviewCacheSize: fp.previewCacheSize,
		Logger:           fp.logger,
		Metrics:          metrics.New(reg),
	})

	// subscribe before the first cycle so no snapshot is missed
	var wg sync.WaitGroup
	var snapshots <-chan store.FleetState
	if len(fp.snapshotCallbacks) > 0 {
		snapshots = fleetStore.Subscribe()
		wg.Add(1)
		go func() {
			defer wg.Done()
			for state := range snapshots {
				for _, cb := range fp.snapshotCallbacks {
					invokeCallbackSafe(cb, snapshotFromState(state), fp.logger)
				}
			}
		}()
	}

	fleetPoller.Start(ctx)

	// cleanup stops the poller, then drains the callback goroutine
	cleanup := func() {
		fleetPoller.Stop()
		if snapshots != nil {
			fleetStore.Unsubscribe(snapshots) // closes the channel
		}
		wg.Wait()
	}

	// start the HTTP server
	httpServer := server.NewServer(fleetStore, fleetPoller, reg, fp.port, dashboard.Assets, fp.title, fp.logger)
	if err := httpServer.Start(ctx); err != nil {
		cleanup()
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	<-ctx.Done()
	cleanup()
	fp.logger.Info("fleetpulse stopped")
	return nil
}

// Organization returns the monitored organization id.
func (fp *FleetPulse) Organization() string {
	return fp.organization
}

// Port returns the configured HTTP port for the dashboard server.
func (fp *FleetPulse) Port() int {
	return fp.port
}

// PollingInterval returns the configured interval between poll cycles.
func (fp *FleetPulse) PollingInterval() time.Duration {
	return fp.pollingInterval
}

// Concurrency returns the configured ceiling on parallel API reads.
func (fp *FleetPulse) Concurrency() int {
	return fp.concurrency
}

// invokeCallbackSafe calls a snapshot callback with panic recovery.
// Panics are logged but do not propagate.
func invokeCallbackSafe(cb func(Snapshot), snap Snapshot, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("snapshot callback panicked",
				"panic", r,
				"cycle_id", snap.CycleID,
			)
		}
	}()
	cb(snap)
}
