// Package observability wires OpenTelemetry exporters behind the
// domain telemetry abstractions, so cache internals stay exporter-free.
package observability

import (
	"time"
)

// Config configures trace export and metrics.
type Config struct {
	// ServiceName identifies the consuming application in telemetry.
	ServiceName string

	// ServiceVersion is the application version.
	ServiceVersion string

	// Environment is the deployment environment, e.g. "production".
	Environment string

	// Tracing configures span export.
	Tracing TracingConfig

	// MetricsEnabled turns on the meter. Metric export rides the global
	// meter provider configured by the host application.
	MetricsEnabled bool
}

// TracingConfig configures span export.
type TracingConfig struct {
	// Enabled turns on tracing (default: false).
	Enabled bool

	// Exporter selects the span exporter.
	Exporter ExporterType

	// Endpoint is the OTLP endpoint, e.g. "localhost:4317".
	Endpoint string

	// Insecure disables TLS on the exporter connection.
	Insecure bool

	// SampleRate is the trace sampling rate in [0.0, 1.0].
	SampleRate float64

	// BatchTimeout bounds batch export delay.
	BatchTimeout time.Duration

	// MaxExportBatchSize caps the export batch.
	MaxExportBatchSize int
}

// ExporterType selects the span exporter.
type ExporterType string

const (
	// ExporterOTLP exports over gRPC to an OTLP collector.
	ExporterOTLP ExporterType = "otlp"

	// ExporterStdout pretty-prints spans to stdout.
	ExporterStdout ExporterType = "stdout"

	// ExporterNoop discards spans.
	ExporterNoop ExporterType = "noop"
)

// DefaultConfig returns a configuration with all export disabled.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "querykit",
		ServiceVersion: "1.0.0",
		Environment:    "development",
		Tracing: TracingConfig{
			Enabled:            false,
			Exporter:           ExporterNoop,
			SampleRate:         1.0,
			BatchTimeout:       5 * time.Second,
			MaxExportBatchSize: 512,
		},
	}
}

// Option configures the provider.
type Option func(*Config)

// WithServiceName sets the service name.
func WithServiceName(name string) Option {
	return func(c *Config) {
		c.ServiceName = name
	}
}

// WithServiceVersion sets the service version.
func WithServiceVersion(version string) Option {
	return func(c *Config) {
		c.ServiceVersion = version
	}
}

// WithEnvironment sets the deployment environment.
func WithEnvironment(env string) Option {
	return func(c *Config) {
		c.Environment = env
	}
}

// WithTracing enables tracing with the given exporter and endpoint.
func WithTracing(exporter ExporterType, endpoint string) Option {
	return func(c *Config) {
		c.Tracing.Enabled = true
		c.Tracing.Exporter = exporter
		c.Tracing.Endpoint = endpoint
	}
}

// WithTracingInsecure disables TLS for the trace exporter.
func WithTracingInsecure() Option {
	return func(c *Config) {
		c.Tracing.Insecure = true
	}
}

// WithSampleRate sets the trace sampling rate.
func WithSampleRate(rate float64) Option {
	return func(c *Config) {
		c.Tracing.SampleRate = rate
	}
}

// WithStdoutTracing enables stdout span export, for development.
func WithStdoutTracing() Option {
	return func(c *Config) {
		c.Tracing.Enabled = true
		c.Tracing.Exporter = ExporterStdout
	}
}

// WithMetrics enables the meter.
func WithMetrics() Option {
	return func(c *Config) {
		c.MetricsEnabled = true
	}
}

// WithOTLP enables OTLP tracing and the meter together.
func WithOTLP(endpoint string) Option {
	return func(c *Config) {
		c.Tracing.Enabled = true
		c.Tracing.Exporter = ExporterOTLP
		c.Tracing.Endpoint = endpoint
		c.MetricsEnabled = true
	}
}
