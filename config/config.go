// Package config provides YAML configuration parsing for FleetPulse.
//
// This package enables running FleetPulse as a standalone binary with a
// configuration file, as an alternative to the programmatic SDK approach.
//
// Example configuration:
//
//	title: Store Screens
//	port: 8080
//	organization: org-42
//	poll_interval: 15s
//	concurrency: 6
//
//	api:
//	  base_url: https://signage.example.com/v1
//	  token: ${SIGNAGE_TOKEN}
//	  headers:
//	    X-Tenant: ${TENANT:-acme}
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// minPollInterval is the minimum allowed polling interval for production configs.
// This prevents accidental DoS of the signage API with overly aggressive polling.
const minPollInterval = 1 * time.Second

const (
	defaultPort           = 8080
	defaultPollInterval   = 15 * time.Second
	defaultConcurrency    = 6
	defaultRequestTimeout = 10 * time.Second
	defaultPreviewTTL     = 5 * time.Minute
	defaultMaxRetries     = 1
)

// Config is the root configuration structure for FleetPulse.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// Title is the dashboard title. Defaults to "FleetPulse" if not set.
	Title string `yaml:"title"`

	// Port is the HTTP server port. Defaults to 8080.
	Port int `yaml:"port"`

	// Organization is the signage organization whose displays are polled.
	// Supports environment variable substitution.
	Organization string `yaml:"organization"`

	// PollInterval is the time between poll cycles.
	// Accepts duration strings like "10s", "1m", "500ms".
	// Defaults to 15s.
	PollInterval Duration `yaml:"poll_interval"`

	// Concurrency caps simultaneous playback and preview reads. Defaults to 6.
	Concurrency int `yaml:"concurrency"`

	// RequestTimeout bounds every signage API call. Defaults to 10s.
	RequestTimeout Duration `yaml:"request_timeout"`

	// PreviewTTL is how long a resolved preview URL is reused. Defaults to 5m.
	PreviewTTL Duration `yaml:"preview_ttl"`

	// PreviewCacheSize bounds the number of cached preview URLs.
	// Zero leaves the cache unbounded.
	PreviewCacheSize int `yaml:"preview_cache_size"`

	// API configures the signage REST client.
	API APIConfig `yaml:"api"`
}

// APIConfig configures access to the signage REST API.
type APIConfig struct {
	// BaseURL is the API root, e.g. https://signage.example.com/v1.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	BaseURL string `yaml:"base_url"`

	// Token is sent as a bearer token. Supports environment variable substitution.
	Token string `yaml:"token"`

	// Headers are custom HTTP headers sent with each request.
	// Values support environment variable substitution.
	Headers map[string]string `yaml:"headers"`

	// MaxRetries is the number of retries for idempotent reads. Defaults to 1.
	// Set to 0 to disable retries.
	MaxRetries *int `yaml:"max_retries"`

	// CircuitBreaker enables the client circuit breaker. Defaults to true.
	CircuitBreaker *bool `yaml:"circuit_breaker"`
}

// Retries returns the configured retry count, applying the default.
func (a APIConfig) Retries() int {
	if a.MaxRetries == nil {
		return defaultMaxRetries
	}
	return *a.MaxRetries
}

// BreakerEnabled reports whether the circuit breaker is enabled.
func (a APIConfig) BreakerEnabled() bool {
	if a.CircuitBreaker == nil {
		return true
	}
	return *a.CircuitBreaker
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		// already have an error, skip processing
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a YAML configuration file.
//
// Environment variables in the file are expanded before parsing.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data.
//
// Environment variables are expanded in the organization, the API base URL,
// the token and header values. Defaults are applied for every unset field.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = defaultPort
	}
	if c.PollInterval == 0 {
		c.PollInterval = Duration(defaultPollInterval)
	}
	if c.Concurrency == 0 {
		c.Concurrency = defaultConcurrency
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = Duration(defaultRequestTimeout)
	}
	if c.PreviewTTL == 0 {
		c.PreviewTTL = Duration(defaultPreviewTTL)
	}
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}

	if c.PollInterval.Duration() < minPollInterval {
		return fmt.Errorf("poll_interval must be at least %s, got %s", minPollInterval, c.PollInterval.Duration())
	}

	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}

	if c.RequestTimeout.Duration() < 0 {
		return fmt.Errorf("request_timeout cannot be negative, got %s", c.RequestTimeout.Duration())
	}
	if c.RequestTimeout.Duration() > c.PollInterval.Duration() {
		return fmt.Errorf("request_timeout (%s) must not exceed poll_interval (%s)",
			c.RequestTimeout.Duration(), c.PollInterval.Duration())
	}

	if c.PreviewTTL.Duration() < time.Second {
		return fmt.Errorf("preview_ttl must be at least 1s, got %s", c.PreviewTTL.Duration())
	}

	if c.PreviewCacheSize < 0 {
		return fmt.Errorf("preview_cache_size cannot be negative, got %d", c.PreviewCacheSize)
	}

	org, err := expandEnvVars(c.Organization)
	if err != nil {
		return fmt.Errorf("organization: %w", err)
	}
	c.Organization = org
	if c.Organization == "" {
		return errors.New("organization is required")
	}

	return c.API.expandAndValidate()
}

func (a *APIConfig) expandAndValidate() error {
	if a.BaseURL == "" {
		return errors.New("api.base_url is required")
	}
	expanded, err := expandEnvVars(a.BaseURL)
	if err != nil {
		return fmt.Errorf("api.base_url: %w", err)
	}
	a.BaseURL = expanded

	parsedURL, err := url.Parse(a.BaseURL)
	if err != nil {
		return fmt.Errorf("api.base_url: invalid url: %w", err)
	}
	if parsedURL.Scheme == "" {
		return errors.New("api.base_url must have a scheme (http:// or https://)")
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("api.base_url scheme must be http or https, got %q", parsedURL.Scheme)
	}
	if parsedURL.Host == "" {
		return errors.New("api.base_url must have a host")
	}

	token, err := expandEnvVars(a.Token)
	if err != nil {
		return fmt.Errorf("api.token: %w", err)
	}
	a.Token = token

	for k, v := range a.Headers {
		expanded, err := expandEnvVars(v)
		if err != nil {
			return fmt.Errorf("api.headers[%s]: %w", k, err)
		}
		a.Headers[k] = expanded
	}

	if a.MaxRetries != nil && *a.MaxRetries < 0 {
		return fmt.Errorf("api.max_retries cannot be negative, got %d", *a.MaxRetries)
	}

	return nil
}
