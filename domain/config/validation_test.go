package config

import (
	"strings"
	"testing"
	"time"
)

// validConfig returns a minimal configuration that passes validation.
func validConfig() *Config {
	return &Config{
		Transport: TransportConfig{
			BaseURL: "https://api.example.com/api/v1",
		},
	}
}

func TestValidator_ValidateMinimal(t *testing.T) {
	tests := []struct {
		name   string
		config *Config
	}{
		{
			name:   "minimal valid config",
			config: validConfig(),
		},
		{
			name: "valid config with name and version",
			config: &Config{
				Name:    "dashboard",
				Version: "1",
				Transport: TransportConfig{
					BaseURL: "http://localhost:8080",
				},
			},
		},
		{
			name:   "defaults with base URL",
			config: withBaseURL(Default()),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewValidator()
			errs := v.Validate(tt.config)
			if errs.HasErrors() {
				t.Errorf("expected no errors, got: %v", errs)
			}
		})
	}
}

func withBaseURL(cfg *Config) *Config {
	cfg.Transport.BaseURL = "https://api.example.com"
	return cfg
}

func TestValidator_ValidateTransport(t *testing.T) {
	tests := []struct {
		name         string
		transport    TransportConfig
		wantErrPaths []string
	}{
		{
			name:         "missing base URL",
			transport:    TransportConfig{},
			wantErrPaths: []string{"transport.base_url"},
		},
		{
			name:         "base URL without scheme",
			transport:    TransportConfig{BaseURL: "api.example.com"},
			wantErrPaths: []string{"transport.base_url"},
		},
		{
			name:         "http scheme accepted",
			transport:    TransportConfig{BaseURL: "http://localhost:8080"},
			wantErrPaths: nil,
		},
		{
			name: "negative timeout",
			transport: TransportConfig{
				BaseURL: "https://api.example.com",
				Timeout: Duration(-time.Second),
			},
			wantErrPaths: []string{"transport.timeout"},
		},
		{
			name: "negative max body size",
			transport: TransportConfig{
				BaseURL:     "https://api.example.com",
				MaxBodySize: -1,
			},
			wantErrPaths: []string{"transport.max_body_size"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Transport: tt.transport}
			v := NewValidator()
			assertErrorPaths(t, v.Validate(cfg), tt.wantErrPaths)
		})
	}
}

func TestValidator_ValidateResilience(t *testing.T) {
	tests := []struct {
		name         string
		resilience   ResilienceConfig
		wantErrPaths []string
	}{
		{
			name: "disabled sections skip checks",
			resilience: ResilienceConfig{
				Retry:          RetryConfig{MaxAttempts: -1},
				CircuitBreaker: CircuitBreakerConfig{Threshold: -1},
				Bulkhead:       BulkheadConfig{MaxConcurrent: -1},
			},
			wantErrPaths: nil,
		},
		{
			name: "retry enabled without attempts",
			resilience: ResilienceConfig{
				Retry: RetryConfig{Enabled: true, Multiplier: 2.0},
			},
			wantErrPaths: []string{"resilience.retry.max_attempts"},
		},
		{
			name: "retry multiplier below one",
			resilience: ResilienceConfig{
				Retry: RetryConfig{Enabled: true, MaxAttempts: 3, Multiplier: 0.5},
			},
			wantErrPaths: []string{"resilience.retry.multiplier"},
		},
		{
			name: "circuit breaker enabled without threshold",
			resilience: ResilienceConfig{
				CircuitBreaker: CircuitBreakerConfig{Enabled: true},
			},
			wantErrPaths: []string{"resilience.circuit_breaker.threshold"},
		},
		{
			name: "bulkhead enabled without max concurrent",
			resilience: ResilienceConfig{
				Bulkhead: BulkheadConfig{Enabled: true},
			},
			wantErrPaths: []string{"resilience.bulkhead.max_concurrent"},
		},
		{
			name: "rate limit enabled without rate and burst",
			resilience: ResilienceConfig{
				RateLimit: RateLimitConfig{Enabled: true},
			},
			wantErrPaths: []string{"resilience.rate_limit.rate", "resilience.rate_limit.burst"},
		},
		{
			name: "valid enabled resilience",
			resilience: ResilienceConfig{
				Retry:          RetryConfig{Enabled: true, MaxAttempts: 3, Multiplier: 2.0},
				CircuitBreaker: CircuitBreakerConfig{Enabled: true, Threshold: 5},
				Bulkhead:       BulkheadConfig{Enabled: true, MaxConcurrent: 10},
				RateLimit:      RateLimitConfig{Enabled: true, Rate: 10, Burst: 20},
			},
			wantErrPaths: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Resilience = tt.resilience
			v := NewValidator()
			assertErrorPaths(t, v.Validate(cfg), tt.wantErrPaths)
		})
	}
}

func TestValidator_ValidateCache(t *testing.T) {
	tests := []struct {
		name         string
		cache        CacheConfig
		wantErrPaths []string
	}{
		{
			name:         "zero config valid",
			cache:        CacheConfig{},
			wantErrPaths: nil,
		},
		{
			name: "gc idle without interval",
			cache: CacheConfig{
				GCIdle: Duration(5 * time.Minute),
			},
			wantErrPaths: []string{"cache.gc_idle"},
		},
		{
			name: "gc interval without idle",
			cache: CacheConfig{
				GCInterval: Duration(time.Minute),
			},
			wantErrPaths: []string{"cache.gc_idle"},
		},
		{
			name: "both gc fields set",
			cache: CacheConfig{
				GCIdle:     Duration(5 * time.Minute),
				GCInterval: Duration(time.Minute),
			},
			wantErrPaths: nil,
		},
		{
			name: "negative fetch timeout",
			cache: CacheConfig{
				FetchTimeout: Duration(-time.Second),
			},
			wantErrPaths: []string{"cache.fetch_timeout"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Cache = tt.cache
			v := NewValidator()
			assertErrorPaths(t, v.Validate(cfg), tt.wantErrPaths)
		})
	}
}

func TestValidator_ValidatePersistence(t *testing.T) {
	tests := []struct {
		name         string
		persistence  PersistenceConfig
		wantErrPaths []string
	}{
		{
			name:         "disabled skips checks",
			persistence:  PersistenceConfig{Backend: "bogus"},
			wantErrPaths: nil,
		},
		{
			name:         "unknown backend",
			persistence:  PersistenceConfig{Enabled: true, Backend: "etcd"},
			wantErrPaths: []string{"persistence.backend"},
		},
		{
			name:         "filesystem requires path",
			persistence:  PersistenceConfig{Enabled: true, Backend: "filesystem"},
			wantErrPaths: []string{"persistence.path"},
		},
		{
			name:         "badger requires path",
			persistence:  PersistenceConfig{Enabled: true, Backend: "badger"},
			wantErrPaths: []string{"persistence.path"},
		},
		{
			name:         "sqlite requires path",
			persistence:  PersistenceConfig{Enabled: true, Backend: "sqlite"},
			wantErrPaths: []string{"persistence.path"},
		},
		{
			name:         "redis requires address",
			persistence:  PersistenceConfig{Enabled: true, Backend: "redis"},
			wantErrPaths: []string{"persistence.address"},
		},
		{
			name: "valid filesystem",
			persistence: PersistenceConfig{
				Enabled: true, Backend: "filesystem", Path: "/tmp/snapshot.json",
			},
			wantErrPaths: nil,
		},
		{
			name: "valid redis",
			persistence: PersistenceConfig{
				Enabled: true, Backend: "redis", Address: "localhost:6379",
			},
			wantErrPaths: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Persistence = tt.persistence
			v := NewValidator()
			assertErrorPaths(t, v.Validate(cfg), tt.wantErrPaths)
		})
	}
}

func TestValidator_ValidateLogging(t *testing.T) {
	tests := []struct {
		name         string
		logging      LoggingConfig
		wantErrPaths []string
	}{
		{
			name:         "empty logging valid",
			logging:      LoggingConfig{},
			wantErrPaths: nil,
		},
		{
			name:         "valid level and format",
			logging:      LoggingConfig{Level: "debug", Format: "json"},
			wantErrPaths: nil,
		},
		{
			name:         "level is case insensitive",
			logging:      LoggingConfig{Level: "WARN"},
			wantErrPaths: nil,
		},
		{
			name:         "invalid level",
			logging:      LoggingConfig{Level: "verbose"},
			wantErrPaths: []string{"logging.level"},
		},
		{
			name:         "invalid format",
			logging:      LoggingConfig{Format: "xml"},
			wantErrPaths: []string{"logging.format"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Logging = tt.logging
			v := NewValidator()
			assertErrorPaths(t, v.Validate(cfg), tt.wantErrPaths)
		})
	}
}

func TestValidator_ValidateObservability(t *testing.T) {
	tests := []struct {
		name         string
		obs          ObservabilityConfig
		wantErrPaths []string
	}{
		{
			name:         "empty observability valid",
			obs:          ObservabilityConfig{},
			wantErrPaths: nil,
		},
		{
			name: "invalid exporter",
			obs: ObservabilityConfig{
				Tracing: TracingConfig{Exporter: "jaeger"},
			},
			wantErrPaths: []string{"observability.tracing.exporter"},
		},
		{
			name: "otlp requires endpoint when enabled",
			obs: ObservabilityConfig{
				Tracing: TracingConfig{Enabled: true, Exporter: "otlp", SampleRate: 1.0},
			},
			wantErrPaths: []string{"observability.tracing.endpoint"},
		},
		{
			name: "otlp endpoint not required when disabled",
			obs: ObservabilityConfig{
				Tracing: TracingConfig{Exporter: "otlp"},
			},
			wantErrPaths: nil,
		},
		{
			name: "sample rate above one",
			obs: ObservabilityConfig{
				Tracing: TracingConfig{SampleRate: 1.5},
			},
			wantErrPaths: []string{"observability.tracing.sample_rate"},
		},
		{
			name: "valid stdout tracing",
			obs: ObservabilityConfig{
				Tracing: TracingConfig{Enabled: true, Exporter: "stdout", SampleRate: 1.0},
			},
			wantErrPaths: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Observability = tt.obs
			v := NewValidator()
			assertErrorPaths(t, v.Validate(cfg), tt.wantErrPaths)
		})
	}
}

func TestValidator_ValidateInvalidation(t *testing.T) {
	tests := []struct {
		name         string
		invalidation map[string][]string
		wantErrPaths []string
	}{
		{
			name:         "nil map valid",
			invalidation: nil,
			wantErrPaths: nil,
		},
		{
			name: "valid rules",
			invalidation: map[string][]string{
				"createProbe":  {"probes"},
				"executeProbe": {"probes", "citations/metrics"},
			},
			wantErrPaths: nil,
		},
		{
			name: "empty mutation name",
			invalidation: map[string][]string{
				"  ": {"probes"},
			},
			wantErrPaths: []string{"invalidation"},
		},
		{
			name: "no prefixes",
			invalidation: map[string][]string{
				"createProbe": {},
			},
			wantErrPaths: []string{"invalidation.createProbe"},
		},
		{
			name: "blank prefix",
			invalidation: map[string][]string{
				"createProbe": {"probes", " "},
			},
			wantErrPaths: []string{"invalidation.createProbe[1]"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Invalidation = tt.invalidation
			v := NewValidator()
			assertErrorPaths(t, v.Validate(cfg), tt.wantErrPaths)
		})
	}
}

func TestValidationErrors_Error(t *testing.T) {
	tests := []struct {
		name string
		errs ValidationErrors
		want string
	}{
		{
			name: "empty",
			errs: ValidationErrors{},
			want: "no validation errors",
		},
		{
			name: "single error",
			errs: ValidationErrors{
				{Path: "transport.base_url", Message: "base_url is required"},
			},
			want: "transport.base_url: base_url is required",
		},
		{
			name: "multiple errors include count",
			errs: ValidationErrors{
				{Path: "a", Message: "first"},
				{Path: "b", Message: "second"},
			},
			want: "2 validation errors",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.errs.Error()
			if !strings.Contains(got, tt.want) {
				t.Errorf("Error() = %q, want it to contain %q", got, tt.want)
			}
		})
	}
}

func TestValidationError_ErrorWithoutPath(t *testing.T) {
	err := ValidationError{Message: "configuration is nil"}
	if got := err.Error(); got != "configuration is nil" {
		t.Errorf("Error() = %q", got)
	}
}

func TestValidator_CompleteConfig(t *testing.T) {
	config := &Config{
		Name:    "dashboard",
		Version: "1",
		Transport: TransportConfig{
			BaseURL:     "https://api.example.com/api/v1",
			Timeout:     Duration(10 * time.Second),
			Headers:     map[string]string{"Authorization": "Bearer token"},
			MaxBodySize: 1 << 20,
		},
		Resilience: ResilienceConfig{
			Retry: RetryConfig{
				Enabled:      true,
				MaxAttempts:  3,
				InitialDelay: Duration(100 * time.Millisecond),
				MaxDelay:     Duration(2 * time.Second),
				Multiplier:   2.0,
			},
			CircuitBreaker: CircuitBreakerConfig{
				Enabled:   true,
				Threshold: 5,
				Timeout:   Duration(30 * time.Second),
			},
			Bulkhead: BulkheadConfig{
				Enabled:       true,
				MaxConcurrent: 10,
			},
			RateLimit: RateLimitConfig{
				Enabled: true,
				Rate:    10,
				Burst:   20,
			},
		},
		Cache: CacheConfig{
			GCIdle:       Duration(5 * time.Minute),
			GCInterval:   Duration(time.Minute),
			FetchTimeout: Duration(15 * time.Second),
		},
		Persistence: PersistenceConfig{
			Enabled: true,
			Backend: "redis",
			Address: "localhost:6379",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Observability: ObservabilityConfig{
			ServiceName: "dashboard",
			Tracing: TracingConfig{
				Enabled:    true,
				Exporter:   "otlp",
				Endpoint:   "localhost:4317",
				SampleRate: 0.25,
			},
			Metrics: MetricsConfig{Enabled: true},
		},
		Invalidation: map[string][]string{
			"createProbe": {"probes"},
		},
	}

	v := NewValidator()
	errs := v.Validate(config)
	if errs.HasErrors() {
		t.Errorf("expected no errors for complete valid config, got: %v", errs)
	}
}

// assertErrorPaths verifies that the actual errors contain all expected paths.
func assertErrorPaths(t *testing.T, errs ValidationErrors, wantPaths []string) {
	t.Helper()

	if len(errs) != len(wantPaths) {
		t.Errorf("got %d errors, want %d:\n%v", len(errs), len(wantPaths), errs)
		return
	}

	// Check each expected path is present
	for _, wantPath := range wantPaths {
		found := false
		for _, err := range errs {
			if err.Path == wantPath {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("missing expected error path %q in errors:\n%v", wantPath, errs)
		}
	}

	// Check for unexpected paths
	for _, err := range errs {
		found := false
		for _, wantPath := range wantPaths {
			if err.Path == wantPath {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("unexpected error path %q in errors:\n%v", err.Path, errs)
		}
	}
}
