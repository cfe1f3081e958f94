package telemetry_test

import (
	"testing"

	"github.com/felixgeelhaar/querykit/domain/telemetry"
)

func TestWithAttributes(t *testing.T) {
	t.Parallel()

	t.Run("adds attributes to config", func(t *testing.T) {
		t.Parallel()

		opt := telemetry.WithAttributes(
			telemetry.String("query.key", "probes.list"),
			telemetry.Int64("query.token", 3),
		)

		config := &telemetry.SpanConfig{}
		opt.ApplySpan(config)

		if len(config.Attributes) != 2 {
			t.Fatalf("Attributes len = %d, want 2", len(config.Attributes))
		}
		if config.Attributes[0].Key != "query.key" {
			t.Errorf("Attributes[0].Key = %s, want query.key", config.Attributes[0].Key)
		}
	})

	t.Run("appends to existing attributes", func(t *testing.T) {
		t.Parallel()

		config := &telemetry.SpanConfig{
			Attributes: []telemetry.Attribute{telemetry.String("existing", "value")},
		}

		opt := telemetry.WithAttributes(telemetry.Bool("cache.hit", true))
		opt.ApplySpan(config)

		if len(config.Attributes) != 2 {
			t.Fatalf("Attributes len = %d, want 2", len(config.Attributes))
		}
	})
}

func TestWithSpanKind(t *testing.T) {
	t.Parallel()

	opt := telemetry.WithSpanKind(telemetry.SpanKindClient)

	config := &telemetry.SpanConfig{}
	opt.ApplySpan(config)

	if config.Kind != telemetry.SpanKindClient {
		t.Errorf("Kind = %d, want SpanKindClient", config.Kind)
	}
}

func TestAttributeConstructors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		attr telemetry.Attribute
		key  string
		val  any
	}{
		{"string", telemetry.String("query.key", "probes.results/p-1"), "query.key", "probes.results/p-1"},
		{"int", telemetry.Int("cache.size", 12), "cache.size", 12},
		{"int64", telemetry.Int64("query.token", int64(7)), "query.token", int64(7)},
		{"float64", telemetry.Float64("fetch.duration_s", 0.25), "fetch.duration_s", 0.25},
		{"bool", telemetry.Bool("cache.stale", true), "cache.stale", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if tt.attr.Key != tt.key {
				t.Errorf("Key = %s, want %s", tt.attr.Key, tt.key)
			}
			if tt.attr.Value != tt.val {
				t.Errorf("Value = %v, want %v", tt.attr.Value, tt.val)
			}
		})
	}
}

func TestMetricOptions(t *testing.T) {
	t.Parallel()

	config := &telemetry.MetricConfig{}
	telemetry.WithDescription("Fetch round trips issued").ApplyMetric(config)
	telemetry.WithUnit("ms").ApplyMetric(config)

	if config.Description != "Fetch round trips issued" {
		t.Errorf("Description = %s", config.Description)
	}
	if config.Unit != "ms" {
		t.Errorf("Unit = %s, want ms", config.Unit)
	}
}

func TestOptionFuncs(t *testing.T) {
	t.Parallel()

	spanOpt := telemetry.SpanOptionFunc(func(c *telemetry.SpanConfig) {
		c.Kind = telemetry.SpanKindInternal
	})
	spanConfig := &telemetry.SpanConfig{}
	spanOpt.ApplySpan(spanConfig)
	if spanConfig.Kind != telemetry.SpanKindInternal {
		t.Errorf("Kind = %d, want SpanKindInternal", spanConfig.Kind)
	}

	metricOpt := telemetry.MetricOptionFunc(func(c *telemetry.MetricConfig) {
		c.Unit = "1"
	})
	metricConfig := &telemetry.MetricConfig{}
	metricOpt.ApplyMetric(metricConfig)
	if metricConfig.Unit != "1" {
		t.Errorf("Unit = %s, want 1", metricConfig.Unit)
	}
}
