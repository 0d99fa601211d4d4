package fleetpulse

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"
)

// required returns the options every valid FleetPulse needs.
func required(extra ...Option) []Option {
	return append([]Option{
		WithAPI("https://signage.example.com/v1"),
		WithOrganization("org-1"),
	}, extra...)
}

func TestNew_Valid(t *testing.T) {
	fp, err := New(required()...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if fp.Organization() != "org-1" {
		t.Errorf("Organization() = %q, want %q", fp.Organization(), "org-1")
	}
}

func TestNew_MissingAPI(t *testing.T) {
	_, err := New(WithOrganization("org-1"))
	if err == nil {
		t.Fatal("New() expected error for missing API URL, got nil")
	}
	if !strings.Contains(err.Error(), "API URL is required") {
		t.Errorf("New() error = %v, want error containing 'API URL is required'", err)
	}
}

func TestNew_MissingOrganization(t *testing.T) {
	_, err := New(WithAPI("https://signage.example.com"))
	if err == nil {
		t.Fatal("New() expected error for missing organization, got nil")
	}
	if !strings.Contains(err.Error(), "organization is required") {
		t.Errorf("New() error = %v, want error containing 'organization is required'", err)
	}
}

func TestNew_Defaults(t *testing.T) {
	fp, err := New(required()...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if fp.PollingInterval() != 15*time.Second {
		t.Errorf("PollingInterval() = %v, want %v", fp.PollingInterval(), 15*time.Second)
	}
	if fp.Port() != 8080 {
		t.Errorf("Port() = %v, want %v", fp.Port(), 8080)
	}
	if fp.Concurrency() != 6 {
		t.Errorf("Concurrency() = %v, want %v", fp.Concurrency(), 6)
	}
	if fp.requestTimeout != 10*time.Second {
		t.Errorf("requestTimeout = %v, want %v", fp.requestTimeout, 10*time.Second)
	}
	if fp.previewTTL != 5*time.Minute {
		t.Errorf("previewTTL = %v, want %v", fp.previewTTL, 5*time.Minute)
	}
	if fp.maxRetries != 1 {
		t.Errorf("maxRetries = %v, want 1", fp.maxRetries)
	}
	if !fp.circuitBreaker {
		t.Error("circuit breaker should be enabled by default")
	}
	if fp.title != "" {
		t.Errorf("title = %q, want empty string", fp.title)
	}
}

func TestWithAPI_Invalid(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"empty", ""},
		{"no scheme", "signage.example.com"},
		{"ftp scheme", "ftp://signage.example.com"},
		{"no host", "https://"},
		{"unparseable", "http://[::1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(WithAPI(tt.url), WithOrganization("org-1"))
			if err == nil {
				t.Errorf("New(WithAPI(%q)) expected error, got nil", tt.url)
			}
		})
	}
}

func TestWithOrganization_Empty(t *testing.T) {
	_, err := New(WithAPI("https://signage.example.com"), WithOrganization(""))
	if err == nil {
		t.Error("New() expected error for empty organization, got nil")
	}
}

func TestWithHeaders(t *testing.T) {
	fp, err := New(required(
		WithHeaders("X-Tenant", "acme", "X-Client", "wallboard"),
		WithToken("secret"),
	)...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if fp.headers["X-Tenant"] != "acme" || fp.headers["X-Client"] != "wallboard" {
		t.Errorf("headers = %v", fp.headers)
	}
	if fp.token != "secret" {
		t.Errorf("token = %q, want %q", fp.token, "secret")
	}
}

func TestWithHeaders_OddArguments(t *testing.T) {
	_, err := New(required(WithHeaders("X-Tenant"))...)
	if err == nil {
		t.Fatal("New() expected error for odd header arguments, got nil")
	}
	if !strings.Contains(err.Error(), "even number") {
		t.Errorf("error = %v, want error containing 'even number'", err)
	}
}

func TestWithPollingInterval(t *testing.T) {
	fp, err := New(required(WithPollingInterval(30 * time.Second))...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if fp.PollingInterval() != 30*time.Second {
		t.Errorf("PollingInterval() = %v, want %v", fp.PollingInterval(), 30*time.Second)
	}
}

func TestDurationOptions_Invalid(t *testing.T) {
	tests := []struct {
		name string
		opt  func(time.Duration) Option
	}{
		{"polling interval", WithPollingInterval},
		{"request timeout", WithRequestTimeout},
		{"preview ttl", WithPreviewTTL},
	}

	for _, tt := range tests {
		for _, d := range []time.Duration{0, -time.Second} {
			t.Run(tt.name, func(t *testing.T) {
				_, err := New(required(tt.opt(d))...)
				if err == nil {
					t.Errorf("New() expected error for %s %v, got nil", tt.name, d)
				}
			})
		}
	}
}

func TestWithRequestTimeoutAndPreviewTTL(t *testing.T) {
	fp, err := New(required(
		WithRequestTimeout(3*time.Second),
		WithPreviewTTL(time.Minute),
	)...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if fp.requestTimeout != 3*time.Second {
		t.Errorf("requestTimeout = %v, want 3s", fp.requestTimeout)
	}
	if fp.previewTTL != time.Minute {
		t.Errorf("previewTTL = %v, want 1m", fp.previewTTL)
	}
}

func TestWithPort(t *testing.T) {
	fp, err := New(required(WithPort(9090))...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if fp.Port() != 9090 {
		t.Errorf("Port() = %v, want %v", fp.Port(), 9090)
	}
}

func TestWithPort_Invalid(t *testing.T) {
	tests := []struct {
		name string
		port int
	}{
		{"zero", 0},
		{"negative", -1},
		{"too high", 65536},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(required(WithPort(tt.port))...)
			if err == nil {
				t.Errorf("New() expected error for port %d, got nil", tt.port)
			}
		})
	}
}

func TestWithPort_ValidEdgeCases(t *testing.T) {
	for _, port := range []int{1, 65535} {
		fp, err := New(required(WithPort(port))...)
		if err != nil {
			t.Errorf("New() error = %v for port %d", err, port)
			continue
		}
		if fp.Port() != port {
			t.Errorf("Port() = %v, want %v", fp.Port(), port)
		}
	}
}

func TestWithConcurrency(t *testing.T) {
	fp, err := New(required(WithConcurrency(3))...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if fp.Concurrency() != 3 {
		t.Errorf("Concurrency() = %v, want %v", fp.Concurrency(), 3)
	}
}

func TestWithConcurrency_Invalid(t *testing.T) {
	for _, n := range []int{0, -1} {
		if _, err := New(required(WithConcurrency(n))...); err == nil {
			t.Errorf("New() expected error for concurrency %d, got nil", n)
		}
	}
}

func TestCountOptions(t *testing.T) {
	fp, err := New(required(
		WithPreviewCacheSize(256),
		WithMaxRetries(0),
		WithCircuitBreaker(false),
	)...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if fp.previewCacheSize != 256 {
		t.Errorf("previewCacheSize = %d, want 256", fp.previewCacheSize)
	}
	if fp.maxRetries != 0 {
		t.Errorf("maxRetries = %d, want 0", fp.maxRetries)
	}
	if fp.circuitBreaker {
		t.Error("circuit breaker should be disabled")
	}

	if _, err := New(required(WithPreviewCacheSize(-1))...); err == nil {
		t.Error("New() expected error for negative preview cache size")
	}
	if _, err := New(required(WithMaxRetries(-1))...); err == nil {
		t.Error("New() expected error for negative max retries")
	}
}

func TestWithLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	fp, err := New(required(WithLogger(logger))...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if fp.logger != logger {
		t.Error("logger was not applied")
	}
}

func TestWithLogger_Nil(t *testing.T) {
	_, err := New(required(WithLogger(nil))...)
	if err == nil {
		t.Error("New() expected error for nil logger, got nil")
	}
	if err != nil && !strings.Contains(err.Error(), "logger cannot be nil") {
		t.Errorf("New() error = %v, want error containing 'logger cannot be nil'", err)
	}
}

func TestWithLogger_DefaultsToSlogDefault(t *testing.T) {
	fp, err := New(required()...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if fp.logger == nil {
		t.Fatal("logger should default to slog.Default()")
	}
}

func TestWithTitle(t *testing.T) {
	fp, err := New(required(WithTitle("Store Screens"))...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if fp.title != "Store Screens" {
		t.Errorf("title = %q, want %q", fp.title, "Store Screens")
	}
}

func TestWithSnapshotCallback_NilIgnored(t *testing.T) {
	fp, err := New(required(WithSnapshotCallback(nil))...)
	if err != nil {
		t.Fatalf("New() error = %v, want nil (nil callback should be accepted)", err)
	}

	if len(fp.snapshotCallbacks) != 0 {
		t.Errorf("len(snapshotCallbacks) = %d, want 0", len(fp.snapshotCallbacks))
	}
}
