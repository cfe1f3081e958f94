package config

import (
	"encoding/json"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestDuration_JSON_Roundtrip(t *testing.T) {
	tests := []struct {
		name     string
		duration Duration
		wantJSON string
	}{
		{
			name:     "zero value",
			duration: Duration(0),
			wantJSON: `"0s"`,
		},
		{
			name:     "5 seconds",
			duration: Duration(5 * time.Second),
			wantJSON: `"5s"`,
		},
		{
			name:     "complex duration",
			duration: Duration(2*time.Hour + 30*time.Minute + 45*time.Second),
			wantJSON: `"2h30m45s"`,
		},
		{
			name:     "milliseconds",
			duration: Duration(500 * time.Millisecond),
			wantJSON: `"500ms"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotJSON, err := json.Marshal(tt.duration)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}

			if string(gotJSON) != tt.wantJSON {
				t.Errorf("Marshal() = %s, want %s", string(gotJSON), tt.wantJSON)
			}

			var got Duration
			if err := json.Unmarshal(gotJSON, &got); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}

			if got != tt.duration {
				t.Errorf("Roundtrip failed: got %v, want %v", got, tt.duration)
			}
		})
	}
}

func TestDuration_JSON_UnmarshalInvalidStrings(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{
			name:    "invalid format",
			input:   `"invalid"`,
			wantErr: true,
		},
		{
			name:    "missing unit",
			input:   `"123"`,
			wantErr: true,
		},
		{
			name:    "non-string numeric",
			input:   `123`,
			wantErr: true,
		},
		{
			name:    "negative duration",
			input:   `"-5s"`,
			wantErr: false, // time.ParseDuration allows negative durations
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Duration
			err := json.Unmarshal([]byte(tt.input), &got)

			if tt.wantErr && err == nil {
				t.Errorf("Unmarshal() expected error but got none")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Unmarshal() unexpected error = %v", err)
			}
		})
	}
}

func TestDuration_JSON_UnmarshalNull(t *testing.T) {
	var d Duration
	err := json.Unmarshal([]byte("null"), &d)
	if err != nil {
		t.Errorf("Unmarshal(null) error = %v, want nil", err)
	}

	if d != Duration(0) {
		t.Errorf("Unmarshal(null) = %v, want 0", d)
	}
}

func TestDuration_YAML_Roundtrip(t *testing.T) {
	tests := []struct {
		name     string
		duration Duration
		wantYAML string
	}{
		{
			name:     "5 seconds",
			duration: Duration(5 * time.Second),
			wantYAML: "5s\n",
		},
		{
			name:     "1 minute 30 seconds",
			duration: Duration(90 * time.Second),
			wantYAML: "1m30s\n",
		},
		{
			name:     "milliseconds",
			duration: Duration(750 * time.Millisecond),
			wantYAML: "750ms\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotYAML, err := yaml.Marshal(tt.duration)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}

			if string(gotYAML) != tt.wantYAML {
				t.Errorf("Marshal() = %q, want %q", string(gotYAML), tt.wantYAML)
			}

			var got Duration
			if err := yaml.Unmarshal(gotYAML, &got); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}

			if got != tt.duration {
				t.Errorf("Roundtrip failed: got %v, want %v", got, tt.duration)
			}
		})
	}
}

func TestDuration_YAML_UnmarshalInvalid(t *testing.T) {
	var got Duration
	if err := yaml.Unmarshal([]byte("5x"), &got); err == nil {
		t.Errorf("Unmarshal() expected error but got none")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Version != "1" {
		t.Errorf("Version = %q, want %q", cfg.Version, "1")
	}
	if cfg.Transport.Timeout.Duration() != 30*time.Second {
		t.Errorf("Transport.Timeout = %v, want 30s", cfg.Transport.Timeout.Duration())
	}
	if cfg.Transport.MaxBodySize != 10<<20 {
		t.Errorf("Transport.MaxBodySize = %d, want %d", cfg.Transport.MaxBodySize, 10<<20)
	}
	if cfg.Resilience.Retry.Enabled {
		t.Error("Resilience.Retry.Enabled = true, want false")
	}
	if cfg.Resilience.Retry.MaxAttempts != 3 {
		t.Errorf("Resilience.Retry.MaxAttempts = %d, want 3", cfg.Resilience.Retry.MaxAttempts)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "info")
	}
	if cfg.Logging.Format != "console" {
		t.Errorf("Logging.Format = %q, want %q", cfg.Logging.Format, "console")
	}
	if cfg.Persistence.Enabled {
		t.Error("Persistence.Enabled = true, want false")
	}
}

func TestConfig_UnmarshalYAML(t *testing.T) {
	input := `
name: dashboard
version: "1"
transport:
  base_url: https://api.example.com/api/v1
  timeout: 10s
  headers:
    Authorization: Bearer token
resilience:
  retry:
    enabled: true
    max_attempts: 4
    initial_delay: 50ms
    multiplier: 2.0
cache:
  gc_idle: 5m
  gc_interval: 1m
  fetch_timeout: 15s
persistence:
  enabled: true
  backend: badger
  path: /var/lib/dashboard/cache
logging:
  level: debug
  format: json
invalidation:
  createProbe:
    - probes
  executeProbe:
    - probes
    - citations/metrics
`

	var cfg Config
	if err := yaml.Unmarshal([]byte(input), &cfg); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if cfg.Name != "dashboard" {
		t.Errorf("Name = %q, want %q", cfg.Name, "dashboard")
	}
	if cfg.Transport.BaseURL != "https://api.example.com/api/v1" {
		t.Errorf("Transport.BaseURL = %q", cfg.Transport.BaseURL)
	}
	if cfg.Transport.Timeout.Duration() != 10*time.Second {
		t.Errorf("Transport.Timeout = %v, want 10s", cfg.Transport.Timeout.Duration())
	}
	if got := cfg.Transport.Headers["Authorization"]; got != "Bearer token" {
		t.Errorf("Headers[Authorization] = %q", got)
	}
	if !cfg.Resilience.Retry.Enabled {
		t.Error("Resilience.Retry.Enabled = false, want true")
	}
	if cfg.Resilience.Retry.InitialDelay.Duration() != 50*time.Millisecond {
		t.Errorf("Retry.InitialDelay = %v, want 50ms", cfg.Resilience.Retry.InitialDelay.Duration())
	}
	if cfg.Cache.GCIdle.Duration() != 5*time.Minute {
		t.Errorf("Cache.GCIdle = %v, want 5m", cfg.Cache.GCIdle.Duration())
	}
	if cfg.Persistence.Backend != "badger" {
		t.Errorf("Persistence.Backend = %q, want %q", cfg.Persistence.Backend, "badger")
	}
	if len(cfg.Invalidation["executeProbe"]) != 2 {
		t.Errorf("Invalidation[executeProbe] = %v, want 2 prefixes", cfg.Invalidation["executeProbe"])
	}
}

func TestConfig_UnmarshalJSON(t *testing.T) {
	input := `{
		"transport": {"base_url": "http://localhost:8080", "timeout": "5s"},
		"cache": {"fetch_timeout": "30s"},
		"observability": {
			"tracing": {"enabled": true, "exporter": "otlp", "endpoint": "localhost:4317", "sample_rate": 0.5}
		}
	}`

	var cfg Config
	if err := json.Unmarshal([]byte(input), &cfg); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if cfg.Transport.BaseURL != "http://localhost:8080" {
		t.Errorf("Transport.BaseURL = %q", cfg.Transport.BaseURL)
	}
	if cfg.Cache.FetchTimeout.Duration() != 30*time.Second {
		t.Errorf("Cache.FetchTimeout = %v, want 30s", cfg.Cache.FetchTimeout.Duration())
	}
	if !cfg.Observability.Tracing.Enabled {
		t.Error("Observability.Tracing.Enabled = false, want true")
	}
	if cfg.Observability.Tracing.SampleRate != 0.5 {
		t.Errorf("SampleRate = %v, want 0.5", cfg.Observability.Tracing.SampleRate)
	}
}
