package config

import (
	"errors"
	"sort"

	"github.com/jpalmerr/fleetpulse"
)

// BuildOptions converts parsed configuration into SDK options.
//
// The returned options are passed to [fleetpulse.New] and are validated there;
// callers add their own options (such as a logger) after these.
func BuildOptions(cfg *Config) ([]fleetpulse.Option, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	opts := []fleetpulse.Option{
		fleetpulse.WithAPI(cfg.API.BaseURL),
		fleetpulse.WithOrganization(cfg.Organization),
		fleetpulse.WithPort(cfg.Port),
		fleetpulse.WithPollingInterval(cfg.PollInterval.Duration()),
		fleetpulse.WithConcurrency(cfg.Concurrency),
		fleetpulse.WithRequestTimeout(cfg.RequestTimeout.Duration()),
		fleetpulse.WithPreviewTTL(cfg.PreviewTTL.Duration()),
		fleetpulse.WithMaxRetries(cfg.API.Retries()),
		fleetpulse.WithCircuitBreaker(cfg.API.BreakerEnabled()),
	}

	if cfg.Title != "" {
		opts = append(opts, fleetpulse.WithTitle(cfg.Title))
	}

	if cfg.PreviewCacheSize > 0 {
		opts = append(opts, fleetpulse.WithPreviewCacheSize(cfg.PreviewCacheSize))
	}

	if cfg.API.Token != "" {
		opts = append(opts, fleetpulse.WithToken(cfg.API.Token))
	}

	if len(cfg.API.Headers) > 0 {
		opts = append(opts, fleetpulse.WithHeaders(mapToKeyValuePairs(cfg.API.Headers)...))
	}

	return opts, nil
}

// mapToKeyValuePairs converts a map to a sorted slice of key-value pairs.
func mapToKeyValuePairs(m map[string]string) []string {
	// sort keys for deterministic ordering
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(m)*2)
	for _, k := range keys {
		pairs = append(pairs, k, m[k])
	}
	return pairs
}
