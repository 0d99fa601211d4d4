package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const minimalYAML = `
organization: org-1
api:
  base_url: https://signage.example.com/v1
`

func TestParse_MinimalConfig(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	// check defaults applied
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.PollInterval.Duration() != 15*time.Second {
		t.Errorf("PollInterval = %v, want 15s", cfg.PollInterval.Duration())
	}
	if cfg.Concurrency != 6 {
		t.Errorf("Concurrency = %d, want 6", cfg.Concurrency)
	}
	if cfg.RequestTimeout.Duration() != 10*time.Second {
		t.Errorf("RequestTimeout = %v, want 10s", cfg.RequestTimeout.Duration())
	}
	if cfg.PreviewTTL.Duration() != 5*time.Minute {
		t.Errorf("PreviewTTL = %v, want 5m", cfg.PreviewTTL.Duration())
	}
	if cfg.PreviewCacheSize != 0 {
		t.Errorf("PreviewCacheSize = %d, want 0", cfg.PreviewCacheSize)
	}
	if cfg.API.Retries() != 1 {
		t.Errorf("Retries() = %d, want 1", cfg.API.Retries())
	}
	if !cfg.API.BreakerEnabled() {
		t.Error("BreakerEnabled() = false, want true")
	}
	if cfg.Title != "" {
		t.Errorf("Title = %q, want empty", cfg.Title)
	}
}

func TestParse_FullConfig(t *testing.T) {
	yaml := `
title: Store Screens
port: 9090
organization: org-42
poll_interval: 30s
concurrency: 3
request_timeout: 5s
preview_ttl: 2m
preview_cache_size: 128

api:
  base_url: https://signage.example.com/v1
  token: token123
  headers:
    X-Tenant: acme
    X-Client: wallboard
  max_retries: 0
  circuit_breaker: false
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Title != "Store Screens" {
		t.Errorf("Title = %q, want %q", cfg.Title, "Store Screens")
	}
	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}
	if cfg.Organization != "org-42" {
		t.Errorf("Organization = %q, want %q", cfg.Organization, "org-42")
	}
	if cfg.PollInterval.Duration() != 30*time.Second {
		t.Errorf("PollInterval = %v, want 30s", cfg.PollInterval.Duration())
	}
	if cfg.Concurrency != 3 {
		t.Errorf("Concurrency = %d, want 3", cfg.Concurrency)
	}
	if cfg.RequestTimeout.Duration() != 5*time.Second {
		t.Errorf("RequestTimeout = %v, want 5s", cfg.RequestTimeout.Duration())
	}
	if cfg.PreviewTTL.Duration() != 2*time.Minute {
		t.Errorf("PreviewTTL = %v, want 2m", cfg.PreviewTTL.Duration())
	}
	if cfg.PreviewCacheSize != 128 {
		t.Errorf("PreviewCacheSize = %d, want 128", cfg.PreviewCacheSize)
	}
	if cfg.API.BaseURL != "https://signage.example.com/v1" {
		t.Errorf("API.BaseURL = %q", cfg.API.BaseURL)
	}
	if cfg.API.Token != "token123" {
		t.Errorf("API.Token = %q, want %q", cfg.API.Token, "token123")
	}
	if cfg.API.Headers["X-Tenant"] != "acme" || cfg.API.Headers["X-Client"] != "wallboard" {
		t.Errorf("API.Headers = %v", cfg.API.Headers)
	}
	if cfg.API.Retries() != 0 {
		t.Errorf("Retries() = %d, want 0", cfg.API.Retries())
	}
	if cfg.API.BreakerEnabled() {
		t.Error("BreakerEnabled() = true, want false")
	}
}

func TestParse_EnvVarSubstitution(t *testing.T) {
	t.Setenv("SIGNAGE_HOST", "signage.internal")
	t.Setenv("SIGNAGE_TOKEN", "s3cret")
	t.Setenv("SIGNAGE_ORG", "org-7")

	yaml := `
organization: ${SIGNAGE_ORG}
api:
  base_url: https://${SIGNAGE_HOST}/v1
  token: ${SIGNAGE_TOKEN}
  headers:
    X-Tenant: ${TENANT:-acme}
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Organization != "org-7" {
		t.Errorf("Organization = %q, want %q", cfg.Organization, "org-7")
	}
	if cfg.API.BaseURL != "https://signage.internal/v1" {
		t.Errorf("API.BaseURL = %q, want %q", cfg.API.BaseURL, "https://signage.internal/v1")
	}
	if cfg.API.Token != "s3cret" {
		t.Errorf("API.Token = %q, want %q", cfg.API.Token, "s3cret")
	}
	if cfg.API.Headers["X-Tenant"] != "acme" {
		t.Errorf("API.Headers[X-Tenant] = %q, want %q", cfg.API.Headers["X-Tenant"], "acme")
	}
}

func TestParse_EnvVarMissing(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name: "token",
			yaml: `
organization: org-1
api:
  base_url: https://signage.example.com
  token: ${FLEETPULSE_TEST_MISSING_TOKEN}
`,
			wantErr: "api.token",
		},
		{
			name: "base url",
			yaml: `
organization: org-1
api:
  base_url: ${FLEETPULSE_TEST_MISSING_URL}
`,
			wantErr: "api.base_url",
		},
		{
			name: "header",
			yaml: `
organization: org-1
api:
  base_url: https://signage.example.com
  headers:
    X-Tenant: ${FLEETPULSE_TEST_MISSING_TENANT}
`,
			wantErr: "api.headers[X-Tenant]",
		},
		{
			name: "organization",
			yaml: `
organization: ${FLEETPULSE_TEST_MISSING_ORG}
api:
  base_url: https://signage.example.com
`,
			wantErr: "organization",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("Parse() expected error for missing env var, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want to contain %q", err.Error(), tt.wantErr)
			}
			if !strings.Contains(err.Error(), "is not set") {
				t.Errorf("error = %q, want to contain 'is not set'", err.Error())
			}
		})
	}
}

func TestParse_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name: "missing organization",
			yaml: `
api:
  base_url: https://signage.example.com
`,
			wantErr: "organization is required",
		},
		{
			name:    "missing base url",
			yaml:    `organization: org-1`,
			wantErr: "api.base_url is required",
		},
		{
			name: "base url without scheme",
			yaml: `
organization: org-1
api:
  base_url: signage.example.com
`,
			wantErr: "must have a scheme",
		},
		{
			name: "base url with ftp scheme",
			yaml: `
organization: org-1
api:
  base_url: ftp://signage.example.com
`,
			wantErr: "scheme must be http or https",
		},
		{
			name: "base url without host",
			yaml: `
organization: org-1
api:
  base_url: "https://"
`,
			wantErr: "must have a host",
		},
		{
			name:    "port too high",
			yaml:    minimalYAML + "port: 70000\n",
			wantErr: "port must be between 1 and 65535",
		},
		{
			name:    "negative port",
			yaml:    minimalYAML + "port: -1\n",
			wantErr: "port must be between 1 and 65535",
		},
		{
			name:    "negative concurrency",
			yaml:    minimalYAML + "concurrency: -2\n",
			wantErr: "concurrency must be at least 1",
		},
		{
			name:    "negative request timeout",
			yaml:    minimalYAML + "request_timeout: -1s\n",
			wantErr: "request_timeout cannot be negative",
		},
		{
			name:    "request timeout longer than poll interval",
			yaml:    minimalYAML + "poll_interval: 5s\nrequest_timeout: 10s\n",
			wantErr: "must not exceed poll_interval",
		},
		{
			name:    "preview ttl too short",
			yaml:    minimalYAML + "preview_ttl: 100ms\n",
			wantErr: "preview_ttl must be at least 1s",
		},
		{
			name:    "negative preview cache size",
			yaml:    minimalYAML + "preview_cache_size: -5\n",
			wantErr: "preview_cache_size cannot be negative",
		},
		{
			name:    "negative max retries",
			yaml:    minimalYAML + "  max_retries: -1\n",
			wantErr: "api.max_retries cannot be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("Parse() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want to contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestParse_PollIntervalMinimum(t *testing.T) {
	tests := []struct {
		name     string
		interval string
		wantErr  bool
	}{
		{"below minimum", "500ms", true},
		{"at minimum", "1s", false},
		{"above minimum", "30s", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// keep request_timeout within the interval so only the minimum is tested
			yaml := minimalYAML + "request_timeout: 1s\npoll_interval: " + tt.interval + "\n"
			_, err := Parse([]byte(yaml))
			if tt.wantErr {
				if err == nil {
					t.Fatal("Parse() expected error, got nil")
				}
				if !strings.Contains(err.Error(), "poll_interval must be at least") {
					t.Errorf("error = %q, want to contain 'poll_interval must be at least'", err.Error())
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
		})
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("organization: [unclosed"))
	if err == nil {
		t.Fatal("Parse() expected error for invalid YAML, got nil")
	}
	if !strings.Contains(err.Error(), "failed to parse YAML") {
		t.Errorf("error = %q, want to contain 'failed to parse YAML'", err.Error())
	}
}

func TestParse_InvalidDuration(t *testing.T) {
	_, err := Parse([]byte(minimalYAML + "poll_interval: soon\n"))
	if err == nil {
		t.Fatal("Parse() expected error for invalid duration, got nil")
	}
	if !strings.Contains(err.Error(), "invalid duration") {
		t.Errorf("error = %q, want to contain 'invalid duration'", err.Error())
	}
}

func TestDuration_UnmarshalYAML(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Duration
		wantErr bool
	}{
		{"seconds", "10s", 10 * time.Second, false},
		{"milliseconds", "1500ms", 1500 * time.Millisecond, false},
		{"minutes", "2m", 2 * time.Minute, false},
		{"hours", "1h", 1 * time.Hour, false},
		{"combined", "1m30s", 90 * time.Second, false},
		{"invalid", "not-a-duration", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// preview_ttl accepts any value of at least 1s
			cfg, err := Parse([]byte(minimalYAML + "preview_ttl: " + tt.input + "\n"))
			if tt.wantErr {
				if err == nil {
					t.Fatal("Parse() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if cfg.PreviewTTL.Duration() != tt.want {
				t.Errorf("PreviewTTL = %v, want %v", cfg.PreviewTTL.Duration(), tt.want)
			}
		})
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TEST_VAR", "value")
	t.Setenv("EMPTY_VAR", "") // set but empty

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"no vars", "plain text", "plain text", false},
		{"simple var", "${TEST_VAR}", "value", false},
		{"var in text", "prefix ${TEST_VAR} suffix", "prefix value suffix", false},
		{"multiple vars", "${TEST_VAR}-${TEST_VAR}", "value-value", false},
		{"with default (var set)", "${TEST_VAR:-default}", "value", false},
		{"with default (var unset)", "${UNSET:-default}", "default", false},
		{"missing required", "${MISSING}", "", true},
		{"empty default (var unset)", "${UNSET:-}", "", false},
		{"set but empty var", "${EMPTY_VAR}", "", false},
		{"set but empty with default", "${EMPTY_VAR:-fallback}", "", false}, // set var takes precedence
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// UNSET and MISSING are expected to not exist in environment
			got, err := expandEnvVars(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expandEnvVars() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("expandEnvVars() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("expandEnvVars() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fleetpulse.yaml")
	if err := os.WriteFile(path, []byte(minimalYAML), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Organization != "org-1" {
		t.Errorf("Organization = %q, want %q", cfg.Organization, "org-1")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("Load() expected error for missing file, got nil")
	}
	if !strings.Contains(err.Error(), "failed to read config file") {
		t.Errorf("error = %q, want to contain 'failed to read config file'", err.Error())
	}
}

func TestLoad_ExampleConfig(t *testing.T) {
	t.Setenv("SIGNAGE_API", "http://localhost:9999")
	t.Setenv("SIGNAGE_TOKEN", "")

	cfg, err := Load(filepath.Join("..", "example", "config.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.API.BaseURL != "http://localhost:9999" {
		t.Errorf("API.BaseURL = %q, want %q", cfg.API.BaseURL, "http://localhost:9999")
	}
	if cfg.Title != "FleetPulse Demo" {
		t.Errorf("Title = %q, want %q", cfg.Title, "FleetPulse Demo")
	}
}
