package api

import (
	"errors"
	"fmt"

	querykit "github.com/felixgeelhaar/querykit"
	domaincfg "github.com/felixgeelhaar/querykit/domain/config"
	"github.com/felixgeelhaar/querykit/domain/invalidation"
	"github.com/felixgeelhaar/querykit/domain/key"
	"github.com/felixgeelhaar/querykit/domain/persistence"
	"github.com/felixgeelhaar/querykit/domain/transport"
	infracfg "github.com/felixgeelhaar/querykit/infrastructure/config"
	"github.com/felixgeelhaar/querykit/infrastructure/logging"
	"github.com/felixgeelhaar/querykit/infrastructure/observability"
	"github.com/felixgeelhaar/querykit/infrastructure/persistence/badger"
	"github.com/felixgeelhaar/querykit/infrastructure/persistence/filesystem"
	"github.com/felixgeelhaar/querykit/infrastructure/persistence/redis"
	"github.com/felixgeelhaar/querykit/infrastructure/persistence/sqlite"
	"github.com/felixgeelhaar/querykit/infrastructure/resilience"
	"github.com/felixgeelhaar/querykit/infrastructure/store"
	infratel "github.com/felixgeelhaar/querykit/infrastructure/telemetry"
	httptransport "github.com/felixgeelhaar/querykit/infrastructure/transport"
)

// ErrUnknownBackend indicates a persistence backend name the client
// does not recognize.
var ErrUnknownBackend = errors.New("unknown persistence backend")

// FromConfig assembles a fully wired client from a validated
// configuration: transport, resilience pipeline, cache tuning,
// persistence backend, invalidation bindings, and observability all
// come from the file. Explicit options are applied last and win over
// the configured values.
func FromConfig(cfg *domaincfg.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		cfg = domaincfg.Default()
	}
	if errs := domaincfg.NewValidator().Validate(cfg); errs.HasErrors() {
		return nil, errs
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	var t transport.Transport
	base, err := httptransport.NewFromConfig(httptransport.Config{
		BaseURL:     cfg.Transport.BaseURL,
		Timeout:     cfg.Transport.Timeout.Duration(),
		Headers:     cfg.Transport.Headers,
		MaxBodySize: cfg.Transport.MaxBodySize,
		UserAgent:   cfg.Transport.UserAgent,
	})
	if err != nil {
		return nil, err
	}
	t = base

	if execCfg, enabled := executorConfig(cfg.Resilience); enabled {
		t = resilience.NewExecutor(t, execCfg)
	}

	assembled := []Option{}

	if cfg.Observability.Tracing.Enabled || cfg.Observability.Metrics.Enabled {
		provider, err := buildProvider(cfg.Observability)
		if err != nil {
			return nil, fmt.Errorf("build observability provider: %w", err)
		}
		assembled = append(assembled,
			WithTracer(provider.Tracer()),
			WithMeter(provider.Meter()),
			WithInstrumentation(),
			withProvider(provider),
		)
		if cfg.Observability.Metrics.Enabled {
			mc := infratel.DefaultMetricsConfig()
			mc.MeterVersion = querykit.Version
			assembled = append(assembled, WithMetrics(infratel.NewMetricsProvider(mc)))
		}
	}

	var storeOpts []store.Option
	if idle := cfg.Cache.GCIdle.Duration(); idle > 0 {
		storeOpts = append(storeOpts, store.WithGC(idle, cfg.Cache.GCInterval.Duration()))
	}
	if ft := cfg.Cache.FetchTimeout.Duration(); ft > 0 {
		storeOpts = append(storeOpts, store.WithFetchTimeout(ft))
	}
	if len(storeOpts) > 0 {
		assembled = append(assembled, WithStoreOptions(storeOpts...))
	}

	if cfg.Persistence.Enabled {
		p, err := openPersistence(cfg.Persistence)
		if err != nil {
			return nil, fmt.Errorf("open persistence backend: %w", err)
		}
		assembled = append(assembled, WithPersistence(p))
	}

	if len(cfg.Invalidation) > 0 {
		rules, err := buildRules(cfg.Invalidation)
		if err != nil {
			return nil, err
		}
		assembled = append(assembled, WithRules(rules))
	}

	return New(t, append(assembled, opts...)...)
}

// FromConfigFile loads, validates, and assembles a client from a JSON
// or YAML configuration file.
func FromConfigFile(path string, opts ...Option) (*Client, error) {
	cfg, err := infracfg.NewLoader().LoadFile(path)
	if err != nil {
		return nil, err
	}
	return FromConfig(cfg, opts...)
}

// executorConfig translates the resilience block into an executor
// configuration, reporting whether any mechanism is switched on.
// Disabled mechanisms map to their zero value, which the executor
// skips.
func executorConfig(rc domaincfg.ResilienceConfig) (resilience.ExecutorConfig, bool) {
	var ec resilience.ExecutorConfig
	ec.DefaultTimeout = rc.Timeout.Duration()

	if rc.Retry.Enabled {
		ec.RetryMaxAttempts = rc.Retry.MaxAttempts
		ec.RetryInitialDelay = rc.Retry.InitialDelay.Duration()
		ec.RetryBackoffMultiplier = rc.Retry.Multiplier
	}
	if rc.CircuitBreaker.Enabled {
		ec.CircuitBreakerThreshold = rc.CircuitBreaker.Threshold
		ec.CircuitBreakerTimeout = rc.CircuitBreaker.Timeout.Duration()
	}
	if rc.Bulkhead.Enabled {
		ec.MaxConcurrent = rc.Bulkhead.MaxConcurrent
	}
	if rc.RateLimit.Enabled {
		ec.Rate = rc.RateLimit.Rate
		ec.Burst = rc.RateLimit.Burst
	}

	enabled := rc.Retry.Enabled || rc.CircuitBreaker.Enabled ||
		rc.Bulkhead.Enabled || rc.RateLimit.Enabled || ec.DefaultTimeout > 0
	return ec, enabled
}

// buildProvider maps the observability block onto a provider.
func buildProvider(oc domaincfg.ObservabilityConfig) (*observability.Provider, error) {
	opts := []observability.Option{
		observability.WithServiceName(oc.ServiceName),
		observability.WithServiceVersion(querykit.Version),
	}
	if oc.Tracing.Enabled {
		opts = append(opts, observability.WithTracing(
			observability.ExporterType(oc.Tracing.Exporter),
			oc.Tracing.Endpoint,
		))
		if oc.Tracing.Insecure {
			opts = append(opts, observability.WithTracingInsecure())
		}
		if oc.Tracing.SampleRate > 0 {
			opts = append(opts, observability.WithSampleRate(oc.Tracing.SampleRate))
		}
	}
	if oc.Metrics.Enabled {
		opts = append(opts, observability.WithMetrics())
	}
	return observability.New(opts...)
}

// openPersistence opens the configured snapshot backend.
func openPersistence(pc domaincfg.PersistenceConfig) (persistence.Store, error) {
	switch pc.Backend {
	case "filesystem":
		return filesystem.NewStore(pc.Path)
	case "badger":
		return badger.NewStore(badger.DefaultConfig(), badger.WithDir(pc.Path))
	case "redis":
		return redis.NewStore(redis.DefaultConfig(),
			redis.WithAddress(pc.Address),
			redis.WithPassword(pc.Password),
			redis.WithDB(pc.DB),
		)
	case "sqlite":
		return sqlite.NewStore(sqlite.DefaultConfig(), sqlite.WithDSN("file:"+pc.Path))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, pc.Backend)
	}
}

// buildRules parses the invalidation map into bound rules. Prefix
// strings use the same '/'-separated form keys serialize to.
func buildRules(m map[string][]string) (*invalidation.Rules, error) {
	rules := invalidation.NewRules()
	for mutation, raw := range m {
		prefixes := make([]key.Prefix, 0, len(raw))
		for _, s := range raw {
			k, err := key.Parse(s)
			if err != nil {
				return nil, fmt.Errorf("invalidation prefix %q for %q: %w", s, mutation, err)
			}
			prefixes = append(prefixes, key.PrefixOf(k))
		}
		if err := rules.Bind(mutation, prefixes...); err != nil {
			return nil, fmt.Errorf("bind invalidation for %q: %w", mutation, err)
		}
	}
	return rules, nil
}
