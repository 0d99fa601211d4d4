package fleetpulse

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"
)

// fpConfig holds mutable state during FleetPulse construction.
type fpConfig struct {
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

// Option is a function that configures a [FleetPulse] instance during construction.
//
// Option implements the functional options pattern, allowing optional
// configuration to be passed to [New] in a type-safe, extensible way.
// Options return an error if validation fails.
type Option func(*fpConfig) error

// WithAPI sets the base URL of the signage REST API.
//
// Required. The URL must use the http or https scheme.
//
// Example:
//
//	fp, err := fleetpulse.New(
//	    fleetpulse.WithAPI("https://signage.example.com/v1"),
//	    fleetpulse.WithOrganization("org-42"),
//	)
func WithAPI(baseURL string) Option {
	return func(cfg *fpConfig) error {
		u, err := url.Parse(baseURL)
		if err != nil {
			return fmt.Errorf("invalid API URL: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("API URL scheme must be http or https, got %q", u.Scheme)
		}
		if u.Host == "" {
			return errors.New("API URL must include a host")
		}
		cfg.apiURL = baseURL
		return nil
	}
}

// WithOrganization sets the organization whose displays are monitored. Required.
func WithOrganization(id string) Option {
	return func(cfg *fpConfig) error {
		if id == "" {
			return errors.New("organization cannot be empty")
		}
		cfg.organization = id
		return nil
	}
}

// WithToken sends "Authorization: Bearer <token>" with every API request.
func WithToken(token string) Option {
	return func(cfg *fpConfig) error {
		cfg.token = token
		return nil
	}
}

// WithHeaders adds custom headers to every API request.
//
// Arguments are key-value pairs:
//
//	fleetpulse.WithHeaders("X-Tenant", "acme", "X-Client", "wallboard")
//
// Returns an error if an odd number of arguments is given.
func WithHeaders(keyValues ...string) Option {
	return func(cfg *fpConfig) error {
		if len(keyValues)%2 != 0 {
			return errors.New("WithHeaders requires an even number of arguments (key-value pairs)")
		}
		for i := 0; i < len(keyValues); i += 2 {
			cfg.headers[keyValues[i]] = keyValues[i+1]
		}
		return nil
	}
}

// WithPollingInterval sets the time between timer-triggered poll cycles.
//
// Defaults to 15 seconds if not specified. Returns an error if the duration is
// zero or negative.
func WithPollingInterval(d time.Duration) Option {
	return func(cfg *fpConfig) error {
		if d <= 0 {
			return errors.New("polling interval must be positive")
		}
		cfg.pollingInterval = d
		return nil
	}
}

// WithConcurrency caps how many playback or preview reads run at once.
//
// Defaults to 6. Returns an error if the value is zero or negative.
func WithConcurrency(n int) Option {
	return func(cfg *fpConfig) error {
		if n <= 0 {
			return errors.New("concurrency must be positive")
		}
		cfg.concurrency = n
		return nil
	}
}

// WithRequestTimeout bounds each individual API read. Defaults to 10 seconds.
func WithRequestTimeout(d time.Duration) Option {
	return func(cfg *fpConfig) error {
		if d <= 0 {
			return errors.New("request timeout must be positive")
		}
		cfg.requestTimeout = d
		return nil
	}
}

// WithPreviewTTL sets how long a resolved preview URL is reused before it is
// fetched again. Defaults to 5 minutes.
func WithPreviewTTL(d time.Duration) Option {
	return func(cfg *fpConfig) error {
		if d <= 0 {
			return errors.New("preview TTL must be positive")
		}
		cfg.previewTTL = d
		return nil
	}
}

// WithPreviewCacheSize bounds the preview cache, evicting the least recently
// used entries. Zero, the default, leaves the cache unbounded.
func WithPreviewCacheSize(n int) Option {
	return func(cfg *fpConfig) error {
		if n < 0 {
			return errors.New("preview cache size cannot be negative")
		}
		cfg.previewCacheSize = n
		return nil
	}
}

// WithMaxRetries sets how many times a failed API read is retried.
//
// Only network errors, 429 and 5xx responses are retried. Defaults to 1; zero
// disables retries.
func WithMaxRetries(n int) Option {
	return func(cfg *fpConfig) error {
		if n < 0 {
			return errors.New("max retries cannot be negative")
		}
		cfg.maxRetries = n
		return nil
	}
}

// WithCircuitBreaker enables or disables the API circuit breaker. Enabled by default.
func WithCircuitBreaker(enabled bool) Option {
	return func(cfg *fpConfig) error {
		cfg.circuitBreaker = enabled
		return nil
	}
}

// WithPort sets the HTTP port for the dashboard server.
//
// Defaults to 8080 if not specified. Returns an error if the port is outside
// the valid range (1-65535).
func WithPort(port int) Option {
	return func(cfg *fpConfig) error {
		if port < 1 || port > 65535 {
			return errors.New("port must be between 1 and 65535")
		}
		cfg.port = port
		return nil
	}
}

// WithLogger sets a custom [slog.Logger] for the FleetPulse instance.
//
// If not specified, [slog.Default] is used. Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *fpConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithTitle sets the dashboard title displayed in the browser tab and header.
//
// If not specified, defaults to "FleetPulse".
func WithTitle(title string) Option {
	return func(cfg *fpConfig) error {
		cfg.title = title
		return nil
	}
}

// WithSnapshotCallback registers a function to be called with every published
// fleet [Snapshot].
//
// Multiple callbacks may be registered; they execute in registration order.
//
// IMPORTANT: Callbacks must be non-blocking. Callbacks are invoked
// synchronously from a single goroutine; a slow callback delays later
// snapshots and may cause some to be skipped. Panics within callbacks are
// recovered and logged.
//
// Example:
//
//	fp, err := fleetpulse.New(
//	    fleetpulse.WithAPI(apiURL),
//	    fleetpulse.WithOrganization("org-42"),
//	    fleetpulse.WithSnapshotCallback(func(s fleetpulse.Snapshot) {
//	        if s.Error != "" {
//	            log.Printf("fleet data stale: %s", s.Error)
//	        }
//	    }),
//	)
//
// Nil callbacks are silently ignored.
func WithSnapshotCallback(cb func(Snapshot)) Option {
	return func(cfg *fpConfig) error {
		if cb == nil {
			return nil // no-op for nil callback (safe to call)
		}
		cfg.snapshotCallbacks = append(cfg.snapshotCallbacks, cb)
		return nil
	}
}
