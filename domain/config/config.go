// Package config provides the domain model for client configuration.
package config

import "time"

// Config is the complete client configuration.
type Config struct {
	// Name is a human-readable name for this configuration.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
	// Version is the configuration schema version.
	Version string `json:"version,omitempty" yaml:"version,omitempty"`

	// Transport configures the HTTP client.
	Transport TransportConfig `json:"transport" yaml:"transport"`
	// Resilience configures retries, circuit breaking, and rate limiting.
	Resilience ResilienceConfig `json:"resilience,omitempty" yaml:"resilience,omitempty"`
	// Cache configures the query store.
	Cache CacheConfig `json:"cache,omitempty" yaml:"cache,omitempty"`
	// Persistence configures snapshot storage.
	Persistence PersistenceConfig `json:"persistence,omitempty" yaml:"persistence,omitempty"`
	// Logging configures structured logging.
	Logging LoggingConfig `json:"logging,omitempty" yaml:"logging,omitempty"`
	// Observability configures tracing and metrics export.
	Observability ObservabilityConfig `json:"observability,omitempty" yaml:"observability,omitempty"`
	// Invalidation maps mutation names to the key prefixes they touch.
	Invalidation map[string][]string `json:"invalidation,omitempty" yaml:"invalidation,omitempty"`
}

// TransportConfig configures the HTTP client.
type TransportConfig struct {
	// BaseURL is the API root, e.g. "https://api.example.com/api/v1".
	BaseURL string `json:"base_url" yaml:"base_url"`
	// Timeout bounds each round trip.
	Timeout Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	// Headers are sent with every request.
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	// MaxBodySize caps response bodies in bytes.
	MaxBodySize int64 `json:"max_body_size,omitempty" yaml:"max_body_size,omitempty"`
	// UserAgent overrides the default User-Agent header.
	UserAgent string `json:"user_agent,omitempty" yaml:"user_agent,omitempty"`
}

// ResilienceConfig configures the transport resilience pipeline.
type ResilienceConfig struct {
	// Timeout bounds each guarded call.
	Timeout Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	// Retry configures retry behavior for idempotent requests.
	Retry RetryConfig `json:"retry,omitempty" yaml:"retry,omitempty"`
	// CircuitBreaker configures circuit breaker behavior.
	CircuitBreaker CircuitBreakerConfig `json:"circuit_breaker,omitempty" yaml:"circuit_breaker,omitempty"`
	// Bulkhead bounds concurrent requests.
	Bulkhead BulkheadConfig `json:"bulkhead,omitempty" yaml:"bulkhead,omitempty"`
	// RateLimit throttles outgoing requests.
	RateLimit RateLimitConfig `json:"rate_limit,omitempty" yaml:"rate_limit,omitempty"`
}

// RetryConfig configures retry behavior.
type RetryConfig struct {
	// Enabled enables retry.
	Enabled bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	// MaxAttempts is the maximum attempt count including the first call.
	MaxAttempts int `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty"`
	// InitialDelay is the first retry delay.
	InitialDelay Duration `json:"initial_delay,omitempty" yaml:"initial_delay,omitempty"`
	// MaxDelay caps the delay between retries.
	MaxDelay Duration `json:"max_delay,omitempty" yaml:"max_delay,omitempty"`
	// Multiplier is the backoff multiplier.
	Multiplier float64 `json:"multiplier,omitempty" yaml:"multiplier,omitempty"`
}

// CircuitBreakerConfig configures circuit breaker behavior.
type CircuitBreakerConfig struct {
	// Enabled enables the circuit breaker.
	Enabled bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	// Threshold is the failure count before the circuit opens.
	Threshold int `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	// Timeout is how long the circuit stays open.
	Timeout Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// BulkheadConfig bounds concurrent requests.
type BulkheadConfig struct {
	// Enabled enables the bulkhead.
	Enabled bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	// MaxConcurrent is the maximum concurrent requests.
	MaxConcurrent int `json:"max_concurrent,omitempty" yaml:"max_concurrent,omitempty"`
}

// RateLimitConfig throttles outgoing requests.
type RateLimitConfig struct {
	// Enabled enables rate limiting.
	Enabled bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	// Rate is requests per second.
	Rate int `json:"rate,omitempty" yaml:"rate,omitempty"`
	// Burst is the maximum burst size.
	Burst int `json:"burst,omitempty" yaml:"burst,omitempty"`
}

// CacheConfig configures the query store.
type CacheConfig struct {
	// GCIdle evicts entries unread for this long. Zero disables eviction.
	GCIdle Duration `json:"gc_idle,omitempty" yaml:"gc_idle,omitempty"`
	// GCInterval is how often the janitor sweeps.
	GCInterval Duration `json:"gc_interval,omitempty" yaml:"gc_interval,omitempty"`
	// FetchTimeout bounds each fetch round trip.
	FetchTimeout Duration `json:"fetch_timeout,omitempty" yaml:"fetch_timeout,omitempty"`
}

// PersistenceConfig configures snapshot storage.
type PersistenceConfig struct {
	// Enabled turns snapshot persistence on.
	Enabled bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	// Backend selects the store: filesystem, badger, redis, or sqlite.
	Backend string `json:"backend,omitempty" yaml:"backend,omitempty"`
	// Path is the file or directory path for filesystem, badger, and
	// sqlite backends.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
	// Address is the redis server address.
	Address string `json:"address,omitempty" yaml:"address,omitempty"`
	// Password is the redis password.
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
	// DB is the redis database index.
	DB int `json:"db,omitempty" yaml:"db,omitempty"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is the minimum level: trace, debug, info, warn, or error.
	Level string `json:"level,omitempty" yaml:"level,omitempty"`
	// Format is console or json.
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// ObservabilityConfig configures tracing and metrics.
type ObservabilityConfig struct {
	// ServiceName identifies the consuming application.
	ServiceName string `json:"service_name,omitempty" yaml:"service_name,omitempty"`
	// Tracing configures span export.
	Tracing TracingConfig `json:"tracing,omitempty" yaml:"tracing,omitempty"`
	// Metrics enables the meter.
	Metrics MetricsConfig `json:"metrics,omitempty" yaml:"metrics,omitempty"`
}

// TracingConfig configures span export.
type TracingConfig struct {
	// Enabled enables tracing.
	Enabled bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	// Exporter is otlp, stdout, or noop.
	Exporter string `json:"exporter,omitempty" yaml:"exporter,omitempty"`
	// Endpoint is the OTLP collector address.
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	// Insecure disables TLS to the collector.
	Insecure bool `json:"insecure,omitempty" yaml:"insecure,omitempty"`
	// SampleRate is the trace sampling rate in [0.0, 1.0].
	SampleRate float64 `json:"sample_rate,omitempty" yaml:"sample_rate,omitempty"`
}

// MetricsConfig enables the meter.
type MetricsConfig struct {
	// Enabled enables metrics.
	Enabled bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`
}

// Default returns a configuration with conservative defaults and all
// optional machinery disabled.
func Default() *Config {
	return &Config{
		Version: "1",
		Transport: TransportConfig{
			Timeout:     Duration(30 * time.Second),
			MaxBodySize: 10 << 20,
		},
		Resilience: ResilienceConfig{
			Retry: RetryConfig{
				MaxAttempts:  3,
				InitialDelay: Duration(100 * time.Millisecond),
				MaxDelay:     Duration(2 * time.Second),
				Multiplier:   2.0,
			},
			CircuitBreaker: CircuitBreakerConfig{
				Threshold: 5,
				Timeout:   Duration(30 * time.Second),
			},
			Bulkhead: BulkheadConfig{
				MaxConcurrent: 10,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Duration is a time.Duration with JSON and YAML string representation,
// so files can say "30s" instead of nanosecond counts.
type Duration time.Duration

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}

	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
