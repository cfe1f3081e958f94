// Package telemetry provides OpenTelemetry metrics for the query cache:
// fetch counts and durations, hit rates, dedup and supersede drops,
// invalidations, and mutation outcomes.
package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsProvider provides access to metrics instruments.
type MetricsProvider struct {
	meter metric.Meter

	// Counters
	fetches           metric.Int64Counter
	cacheHits         metric.Int64Counter
	cacheMisses       metric.Int64Counter
	dedupHits         metric.Int64Counter
	supersededDrops   metric.Int64Counter
	invalidations     metric.Int64Counter
	evictions         metric.Int64Counter
	mutations         metric.Int64Counter
	mutationRejected  metric.Int64Counter
	snapshotRecords   metric.Int64Counter

	// Histograms
	fetchDuration    metric.Float64Histogram
	mutationDuration metric.Float64Histogram

	// Gauges (using UpDownCounter for OpenTelemetry)
	activeEntries       metric.Int64UpDownCounter
	activeSubscriptions metric.Int64UpDownCounter

	initOnce sync.Once
	initErr  error
}

// MetricsConfig configures the metrics provider.
type MetricsConfig struct {
	// MeterName is the name of the meter (default: "github.com/felixgeelhaar/querykit").
	MeterName string
	// MeterVersion is the version of the meter.
	MeterVersion string
	// Attributes are default attributes to attach to all metrics.
	Attributes []attribute.KeyValue
}

// DefaultMetricsConfig returns a default metrics configuration.
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		MeterName:    "github.com/felixgeelhaar/querykit",
		MeterVersion: "1.0.0",
	}
}

// NewMetricsProvider creates a new metrics provider.
func NewMetricsProvider(config MetricsConfig) *MetricsProvider {
	if config.MeterName == "" {
		config = DefaultMetricsConfig()
	}

	provider := otel.GetMeterProvider()
	meter := provider.Meter(
		config.MeterName,
		metric.WithInstrumentationVersion(config.MeterVersion),
	)

	mp := &MetricsProvider{
		meter: meter,
	}

	mp.initOnce.Do(func() {
		mp.initErr = mp.initInstruments()
	})

	return mp
}

// initInstruments initializes all metric instruments.
func (mp *MetricsProvider) initInstruments() error {
	var err error

	// Counters
	mp.fetches, err = mp.meter.Int64Counter(
		"querykit.fetches",
		metric.WithDescription("Number of fetch round trips issued"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return err
	}

	mp.cacheHits, err = mp.meter.Int64Counter(
		"querykit.cache.hits",
		metric.WithDescription("Number of cache reads served from a settled entry"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return err
	}

	mp.cacheMisses, err = mp.meter.Int64Counter(
		"querykit.cache.misses",
		metric.WithDescription("Number of cache reads with no usable entry"),
		metric.WithUnit("{miss}"),
	)
	if err != nil {
		return err
	}

	mp.dedupHits, err = mp.meter.Int64Counter(
		"querykit.fetch.dedup",
		metric.WithDescription("Number of fetches coalesced into an in-flight request"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return err
	}

	mp.supersededDrops, err = mp.meter.Int64Counter(
		"querykit.fetch.superseded",
		metric.WithDescription("Number of responses dropped because a later fetch superseded them"),
		metric.WithUnit("{drop}"),
	)
	if err != nil {
		return err
	}

	mp.invalidations, err = mp.meter.Int64Counter(
		"querykit.invalidations",
		metric.WithDescription("Number of entries invalidated"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return err
	}

	mp.evictions, err = mp.meter.Int64Counter(
		"querykit.entries.evicted",
		metric.WithDescription("Number of idle entries evicted"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return err
	}

	mp.mutations, err = mp.meter.Int64Counter(
		"querykit.mutations",
		metric.WithDescription("Number of mutations executed"),
		metric.WithUnit("{mutation}"),
	)
	if err != nil {
		return err
	}

	mp.mutationRejected, err = mp.meter.Int64Counter(
		"querykit.mutations.rejected",
		metric.WithDescription("Number of mutations rejected while one was pending"),
		metric.WithUnit("{rejection}"),
	)
	if err != nil {
		return err
	}

	mp.snapshotRecords, err = mp.meter.Int64Counter(
		"querykit.snapshot.records",
		metric.WithDescription("Number of snapshot records saved or restored"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return err
	}

	// Histograms
	mp.fetchDuration, err = mp.meter.Float64Histogram(
		"querykit.fetch.duration",
		metric.WithDescription("Duration of fetch round trips"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	mp.mutationDuration, err = mp.meter.Float64Histogram(
		"querykit.mutation.duration",
		metric.WithDescription("Duration of mutations"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	// Gauges (UpDownCounters)
	mp.activeEntries, err = mp.meter.Int64UpDownCounter(
		"querykit.entries.active",
		metric.WithDescription("Number of live cache entries"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return err
	}

	mp.activeSubscriptions, err = mp.meter.Int64UpDownCounter(
		"querykit.subscriptions.active",
		metric.WithDescription("Number of active subscriptions"),
		metric.WithUnit("{subscription}"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Error returns any initialization error.
func (mp *MetricsProvider) Error() error {
	return mp.initErr
}

// RecordFetch records one fetch round trip and its outcome.
func (mp *MetricsProvider) RecordFetch(ctx context.Context, keyName string, outcome string, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String("query.name", keyName),
		attribute.String("outcome", outcome),
	}

	mp.fetches.Add(ctx, 1, metric.WithAttributes(attrs...))
	mp.fetchDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}

// RecordCacheHit records a read served from a settled entry.
func (mp *MetricsProvider) RecordCacheHit(ctx context.Context, keyName string) {
	mp.cacheHits.Add(ctx, 1, metric.WithAttributes(
		attribute.String("query.name", keyName),
	))
}

// RecordCacheMiss records a read with no usable entry.
func (mp *MetricsProvider) RecordCacheMiss(ctx context.Context, keyName string) {
	mp.cacheMisses.Add(ctx, 1, metric.WithAttributes(
		attribute.String("query.name", keyName),
	))
}

// RecordDedup records a fetch coalesced into an in-flight request.
func (mp *MetricsProvider) RecordDedup(ctx context.Context, keyName string) {
	mp.dedupHits.Add(ctx, 1, metric.WithAttributes(
		attribute.String("query.name", keyName),
	))
}

// RecordSuperseded records a response dropped by request-token ordering.
func (mp *MetricsProvider) RecordSuperseded(ctx context.Context, keyName string) {
	mp.supersededDrops.Add(ctx, 1, metric.WithAttributes(
		attribute.String("query.name", keyName),
	))
}

// RecordInvalidation records entries matched by an invalidation sweep.
func (mp *MetricsProvider) RecordInvalidation(ctx context.Context, prefix string, matched int) {
	mp.invalidations.Add(ctx, int64(matched), metric.WithAttributes(
		attribute.String("prefix", prefix),
	))
}

// RecordEviction records an idle entry eviction.
func (mp *MetricsProvider) RecordEviction(ctx context.Context, keyName string) {
	mp.evictions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("query.name", keyName),
	))
}

// RecordMutation records a mutation execution.
func (mp *MetricsProvider) RecordMutation(ctx context.Context, name string, success bool, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String("mutation.name", name),
		attribute.Bool("success", success),
	}

	mp.mutations.Add(ctx, 1, metric.WithAttributes(attrs...))
	mp.mutationDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}

// RecordMutationRejected records a busy rejection.
func (mp *MetricsProvider) RecordMutationRejected(ctx context.Context, name string) {
	mp.mutationRejected.Add(ctx, 1, metric.WithAttributes(
		attribute.String("mutation.name", name),
	))
}

// RecordSnapshot records snapshot records processed by save or restore.
func (mp *MetricsProvider) RecordSnapshot(ctx context.Context, op string, records int) {
	mp.snapshotRecords.Add(ctx, int64(records), metric.WithAttributes(
		attribute.String("op", op),
	))
}

// IncrementEntries increments the live entry gauge.
func (mp *MetricsProvider) IncrementEntries(ctx context.Context) {
	mp.activeEntries.Add(ctx, 1)
}

// DecrementEntries decrements the live entry gauge.
func (mp *MetricsProvider) DecrementEntries(ctx context.Context) {
	mp.activeEntries.Add(ctx, -1)
}

// IncrementSubscriptions increments the active subscription gauge.
func (mp *MetricsProvider) IncrementSubscriptions(ctx context.Context) {
	mp.activeSubscriptions.Add(ctx, 1)
}

// DecrementSubscriptions decrements the active subscription gauge.
func (mp *MetricsProvider) DecrementSubscriptions(ctx context.Context) {
	mp.activeSubscriptions.Add(ctx, -1)
}

// NoopMetricsProvider is a no-op metrics provider for testing or when
// metrics are disabled.
type NoopMetricsProvider struct{}

// RecordFetch is a no-op.
func (n *NoopMetricsProvider) RecordFetch(ctx context.Context, keyName string, outcome string, duration time.Duration) {
}

// RecordCacheHit is a no-op.
func (n *NoopMetricsProvider) RecordCacheHit(ctx context.Context, keyName string) {}

// RecordCacheMiss is a no-op.
func (n *NoopMetricsProvider) RecordCacheMiss(ctx context.Context, keyName string) {}

// RecordDedup is a no-op.
func (n *NoopMetricsProvider) RecordDedup(ctx context.Context, keyName string) {}

// RecordSuperseded is a no-op.
func (n *NoopMetricsProvider) RecordSuperseded(ctx context.Context, keyName string) {}

// RecordInvalidation is a no-op.
func (n *NoopMetricsProvider) RecordInvalidation(ctx context.Context, prefix string, matched int) {}

// RecordEviction is a no-op.
func (n *NoopMetricsProvider) RecordEviction(ctx context.Context, keyName string) {}

// RecordMutation is a no-op.
func (n *NoopMetricsProvider) RecordMutation(ctx context.Context, name string, success bool, duration time.Duration) {
}

// RecordMutationRejected is a no-op.
func (n *NoopMetricsProvider) RecordMutationRejected(ctx context.Context, name string) {}

// RecordSnapshot is a no-op.
func (n *NoopMetricsProvider) RecordSnapshot(ctx context.Context, op string, records int) {}

// IncrementEntries is a no-op.
func (n *NoopMetricsProvider) IncrementEntries(ctx context.Context) {}

// DecrementEntries is a no-op.
func (n *NoopMetricsProvider) DecrementEntries(ctx context.Context) {}

// IncrementSubscriptions is a no-op.
func (n *NoopMetricsProvider) IncrementSubscriptions(ctx context.Context) {}

// DecrementSubscriptions is a no-op.
func (n *NoopMetricsProvider) DecrementSubscriptions(ctx context.Context) {}

// Metrics defines the interface for metrics recording.
type Metrics interface {
	RecordFetch(ctx context.Context, keyName string, outcome string, duration time.Duration)
	RecordCacheHit(ctx context.Context, keyName string)
	RecordCacheMiss(ctx context.Context, keyName string)
	RecordDedup(ctx context.Context, keyName string)
	RecordSuperseded(ctx context.Context, keyName string)
	RecordInvalidation(ctx context.Context, prefix string, matched int)
	RecordEviction(ctx context.Context, keyName string)
	RecordMutation(ctx context.Context, name string, success bool, duration time.Duration)
	RecordMutationRejected(ctx context.Context, name string)
	RecordSnapshot(ctx context.Context, op string, records int)
	IncrementEntries(ctx context.Context)
	DecrementEntries(ctx context.Context)
	IncrementSubscriptions(ctx context.Context)
	DecrementSubscriptions(ctx context.Context)
}

// Ensure implementations satisfy the interface.
var (
	_ Metrics = (*MetricsProvider)(nil)
	_ Metrics = (*NoopMetricsProvider)(nil)
)
