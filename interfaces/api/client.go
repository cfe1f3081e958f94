// Package api provides the public surface of querykit, a server-state
// synchronization toolkit for Go clients of REST backends.
//
// querykit keeps a client-side cache of server responses keyed by
// operation, deduplicates concurrent requests for the same key, applies
// responses in request order, and refreshes cached data when mutations
// invalidate it. Consumers subscribe to keys and render whatever the
// cache currently holds; the cache decides when to talk to the server.
//
// # Quick Start
//
// Create a client over an HTTP transport and bind a typed query:
//
//	httpClient, _ := httptransport.New("https://api.example.com/api/v1")
//	client, _ := api.New(httpClient)
//	defer client.Close()
//
//	probes, _ := api.NewQuery(client, api.NewKey("probes", "list"),
//	    func(ctx context.Context) ([]Probe, error) {
//	        return transport.GetEnveloped[[]Probe](ctx, client.Transport(), "/probes/", nil)
//	    })
//
//	cancel, _ := probes.Subscribe(func(r api.QueryResult[[]Probe]) {
//	    render(r.Data, r.Err, r.IsFetching)
//	})
//	defer cancel()
//	probes.Fetch(ctx)
//
// Mutations declare which cached keys they touch; a successful mutation
// refreshes them automatically:
//
//	create, _ := api.NewMutation[CreateProbeRequest, Probe](client, "createProbe",
//	    func(ctx context.Context, in CreateProbeRequest) (Probe, error) {
//	        return transport.PostEnveloped[CreateProbeRequest, Probe](ctx, client.Transport(), "/probes/create", in)
//	    })
//	create.WithInvalidates(api.NewPrefix("probes", "list"))
//
//	probe, err := create.Mutate(ctx, req)
//
// # Lifecycle
//
// Every cached entry and every mutation moves through the same four
// states: idle, loading, success, error. Loading settles to success or
// error; success and error re-enter loading on refetch or invalidation;
// error returns to idle only through an explicit reset. A query result
// distinguishes IsLoading (no data yet) from IsFetching (any request in
// flight), so consumers can keep rendering stale data during refreshes.
//
// # Configuration
//
// FromConfig assembles a complete client, including the resilience
// pipeline, persistence backend, logging, and telemetry, from a
// config.Config loaded from YAML or JSON.
package api

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/querykit/domain/invalidation"
	"github.com/felixgeelhaar/querykit/domain/key"
	"github.com/felixgeelhaar/querykit/domain/persistence"
	"github.com/felixgeelhaar/querykit/domain/telemetry"
	"github.com/felixgeelhaar/querykit/domain/transport"
	"github.com/felixgeelhaar/querykit/infrastructure/logging"
	"github.com/felixgeelhaar/querykit/infrastructure/observability"
	"github.com/felixgeelhaar/querykit/infrastructure/store"
	infratel "github.com/felixgeelhaar/querykit/infrastructure/telemetry"
)

// Client facade errors.
var (
	// ErrNilTransport indicates New was called without a transport.
	ErrNilTransport = errors.New("nil transport")

	// ErrNilClient indicates a query or mutation was built without a client.
	ErrNilClient = errors.New("nil client")

	// ErrNoPersistence indicates a snapshot operation on a client that has
	// no persistence backend configured.
	ErrNoPersistence = errors.New("no persistence backend configured")
)

// Client owns the pieces a synchronized application shares: the
// transport to the backend, the cache store, and the invalidation
// routing table. Queries and mutations are built against a client and
// operate on its store.
type Client struct {
	id        string
	transport transport.Transport
	store     *store.Store
	rules     *invalidation.Rules
	tracer    telemetry.Tracer
	meter     telemetry.Meter
	metrics   infratel.Metrics
	persist   persistence.Store
	provider  *observability.Provider
}

// clientConfig collects option state before the client is assembled.
type clientConfig struct {
	store      *store.Store
	storeOpts  []store.Option
	rules      *invalidation.Rules
	tracer     telemetry.Tracer
	meter      telemetry.Meter
	metrics    infratel.Metrics
	persist    persistence.Store
	provider   *observability.Provider
	instrument bool
}

// Option configures the Client.
type Option func(*clientConfig)

// WithStore injects a prebuilt cache store. The client takes ownership
// and closes it on Close.
func WithStore(s *store.Store) Option {
	return func(c *clientConfig) {
		c.store = s
	}
}

// WithStoreOptions passes options through to the client-owned store.
// Ignored when WithStore injects a prebuilt one.
func WithStoreOptions(opts ...store.Option) Option {
	return func(c *clientConfig) {
		c.storeOpts = append(c.storeOpts, opts...)
	}
}

// WithRules injects a prebuilt invalidation routing table.
func WithRules(r *invalidation.Rules) Option {
	return func(c *clientConfig) {
		c.rules = r
	}
}

// WithTracer sets the tracer used for fetch and mutation spans.
func WithTracer(t telemetry.Tracer) Option {
	return func(c *clientConfig) {
		c.tracer = t
	}
}

// WithMeter sets the meter used for transport instrumentation.
func WithMeter(m telemetry.Meter) Option {
	return func(c *clientConfig) {
		c.meter = m
	}
}

// WithMetrics wires a cache metrics recorder into the store and the
// mutation units.
func WithMetrics(m infratel.Metrics) Option {
	return func(c *clientConfig) {
		c.metrics = m
	}
}

// WithPersistence attaches a snapshot backend for SaveSnapshot and
// LoadSnapshot. The client closes it on Close.
func WithPersistence(p persistence.Store) Option {
	return func(c *clientConfig) {
		c.persist = p
	}
}

// WithInstrumentation wraps the transport so every round trip is traced
// and measured with the configured tracer and meter.
func WithInstrumentation() Option {
	return func(c *clientConfig) {
		c.instrument = true
	}
}

// withProvider hands the client an observability provider to shut down
// on Close. Used by FromConfig.
func withProvider(p *observability.Provider) Option {
	return func(c *clientConfig) {
		c.provider = p
	}
}

// New creates a client over the given transport.
func New(t transport.Transport, opts ...Option) (*Client, error) {
	if t == nil {
		return nil, ErrNilTransport
	}

	cfg := &clientConfig{
		tracer:  observability.NewNoopTracer(),
		meter:   observability.NewNoopMeter(),
		metrics: &infratel.NoopMetricsProvider{},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.instrument {
		t = observability.Instrument(t, cfg.tracer, cfg.meter)
	}

	st := cfg.store
	if st == nil {
		storeOpts := append([]store.Option{store.WithMetrics(cfg.metrics)}, cfg.storeOpts...)
		st = store.New(storeOpts...)
	}

	rules := cfg.rules
	if rules == nil {
		rules = invalidation.NewRules()
	}

	c := &Client{
		id:        uuid.New().String(),
		transport: t,
		store:     st,
		rules:     rules,
		tracer:    cfg.tracer,
		meter:     cfg.meter,
		metrics:   cfg.metrics,
		persist:   cfg.persist,
		provider:  cfg.provider,
	}

	logging.Debug().
		Add(logging.Str("client_id", c.id)).
		Add(logging.Component("api")).
		Msg("client created")

	return c, nil
}

// ID returns the unique identifier of this client instance.
func (c *Client) ID() string {
	return c.id
}

// Transport returns the transport queries and mutations should issue
// requests through. It carries whatever decoration the client was
// built with.
func (c *Client) Transport() transport.Transport {
	return c.transport
}

// Store returns the underlying cache store.
func (c *Client) Store() *store.Store {
	return c.store
}

// Rules returns the invalidation routing table.
func (c *Client) Rules() *invalidation.Rules {
	return c.rules
}

// Invalidate marks every cached entry under the given prefixes for
// refresh. Watched entries refetch immediately; unwatched ones refresh
// on their next subscription. Returns the number of entries touched.
func (c *Client) Invalidate(ctx context.Context, prefixes ...key.Prefix) int {
	return c.store.Invalidate(ctx, prefixes...)
}

// InvalidateKey invalidates exactly one key.
func (c *Client) InvalidateKey(ctx context.Context, k key.Key) int {
	return c.store.InvalidateKey(ctx, k)
}

// InvalidateAll invalidates every non-idle cached entry.
func (c *Client) InvalidateAll(ctx context.Context) int {
	return c.store.InvalidateAll(ctx)
}

// InvalidateMutation fires the invalidation bound to the named mutation
// without running it, as if it had just succeeded.
func (c *Client) InvalidateMutation(ctx context.Context, name string) int {
	prefixes := c.rules.Resolve(name)
	if len(prefixes) == 0 {
		return 0
	}
	return c.store.Invalidate(ctx, prefixes...)
}

// Stats returns current cache statistics.
func (c *Client) Stats() store.Stats {
	return c.store.Stats()
}

// Keys returns all cached keys in canonical order.
func (c *Client) Keys() []key.Key {
	return c.store.Keys()
}

// SaveSnapshot persists the cache's successful entries to the
// configured persistence backend.
func (c *Client) SaveSnapshot(ctx context.Context) error {
	if c.persist == nil {
		return ErrNoPersistence
	}
	return c.store.SaveSnapshot(ctx, c.persist)
}

// LoadSnapshot restores previously persisted entries into idle cache
// slots. Restored entries are stale and refresh on first subscription.
// Returns the number of entries restored.
func (c *Client) LoadSnapshot(ctx context.Context) (int, error) {
	if c.persist == nil {
		return 0, ErrNoPersistence
	}
	return c.store.LoadSnapshot(ctx, c.persist)
}

// Close tears down everything the client owns: the store, the
// persistence backend, and any telemetry provider built by FromConfig.
func (c *Client) Close() error {
	var errs []error
	if err := c.store.Close(); err != nil {
		errs = append(errs, err)
	}
	if c.persist != nil {
		if err := c.persist.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.provider != nil {
		if err := c.provider.Shutdown(context.Background()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
