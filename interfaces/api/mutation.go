package api

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/felixgeelhaar/querykit/domain/entry"
	"github.com/felixgeelhaar/querykit/domain/key"
	"github.com/felixgeelhaar/querykit/domain/telemetry"
	"github.com/felixgeelhaar/querykit/infrastructure/logging"
	"github.com/felixgeelhaar/querykit/infrastructure/statemachine"
)

// Mutation errors.
var (
	// ErrMutationPending indicates Mutate was called while a previous
	// invocation of the same mutation is still running. The pending
	// invocation is unaffected.
	ErrMutationPending = errors.New("mutation already pending")

	// ErrEmptyMutationName indicates a mutation was built without a name.
	ErrEmptyMutationName = errors.New("empty mutation name")

	// ErrNilMutationFunc indicates a mutation was built without a function.
	ErrNilMutationFunc = errors.New("nil mutation function")
)

// MutationFunc performs the server-side write for a mutation.
type MutationFunc[In, Out any] func(ctx context.Context, in In) (Out, error)

// Mutation is a named write operation against the backend. One
// invocation runs at a time; its lifecycle is driven through the
// statechart interpreter, and a success fires the invalidation
// prefixes bound to the mutation's name.
type Mutation[In, Out any] struct {
	client    *Client
	name      string
	fn        MutationFunc[In, Out]
	onSuccess func(context.Context, Out)
	onError   func(context.Context, error)

	mu     sync.Mutex
	interp *statemachine.Interpreter
	last   *entry.Invocation
}

// NewMutation creates a named mutation on the client. Callbacks and
// invalidation bindings chain on afterward:
//
//	m, err := api.NewMutation[CreateProbeRequest, Probe](client, "createProbe", createFn)
//	if err != nil { ... }
//	m.WithOnSuccess(notify).WithInvalidates(api.NewPrefix("probes", "list"))
//
// The With methods mutate the receiver; calling them concurrently with
// Mutate is not supported.
func NewMutation[In, Out any](c *Client, name string, fn MutationFunc[In, Out]) (*Mutation[In, Out], error) {
	if c == nil {
		return nil, ErrNilClient
	}
	if name == "" {
		return nil, ErrEmptyMutationName
	}
	if fn == nil {
		return nil, ErrNilMutationFunc
	}

	machine, err := statemachine.NewLifecycleMachine()
	if err != nil {
		return nil, fmt.Errorf("build lifecycle machine: %w", err)
	}
	interp := statemachine.NewInterpreter(machine, statemachine.NewContext(name))
	interp.Start()

	return &Mutation[In, Out]{
		client: c,
		name:   name,
		fn:     fn,
		interp: interp,
	}, nil
}

// WithOnSuccess registers a callback that runs synchronously with the
// typed result before bound invalidations fire.
func (m *Mutation[In, Out]) WithOnSuccess(fn func(context.Context, Out)) *Mutation[In, Out] {
	m.onSuccess = fn
	return m
}

// WithOnError registers a callback that runs synchronously with the
// classified failure.
func (m *Mutation[In, Out]) WithOnError(fn func(context.Context, error)) *Mutation[In, Out] {
	m.onError = fn
	return m
}

// WithInvalidates binds the cache key prefixes a successful invocation
// refreshes. Rebinding replaces the previous set.
func (m *Mutation[In, Out]) WithInvalidates(prefixes ...key.Prefix) *Mutation[In, Out] {
	if err := m.client.rules.Bind(m.name, prefixes...); err != nil {
		logging.Warn().
			Add(logging.Mutation(m.name)).
			Add(logging.ErrorField(err)).
			Add(logging.Component("api")).
			Msg("invalidation binding rejected")
	}
	return m
}

// Name returns the mutation's name.
func (m *Mutation[In, Out]) Name() string {
	return m.name
}

// Status returns the current lifecycle position. After a failed
// invocation the status is idle again; the failure itself stays
// observable through LastInvocation.
func (m *Mutation[In, Out]) Status() entry.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.interp.Status()
}

// LastInvocation returns a copy of the most recent invocation record,
// or nil when the mutation has never run.
func (m *Mutation[In, Out]) LastInvocation() *entry.Invocation {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.last == nil {
		return nil
	}
	inv := *m.last
	return &inv
}

// History returns the lifecycle transitions applied so far, in order.
func (m *Mutation[In, Out]) History() []statemachine.Transition {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.interp.History()
}

// Mutate runs the mutation with the given input. A call while a
// previous invocation is pending fails immediately with
// ErrMutationPending and leaves that invocation untouched.
//
// On success the OnSuccess callback runs with the result, then the
// bound invalidation prefixes fire against the cache. On failure the
// OnError callback runs and the lifecycle resets to idle, so the next
// Mutate is a retry.
func (m *Mutation[In, Out]) Mutate(ctx context.Context, in In) (Out, error) {
	var zero Out

	m.mu.Lock()
	if m.interp.Status() == entry.StatusLoading {
		m.mu.Unlock()
		m.client.metrics.RecordMutationRejected(ctx, m.name)
		logging.Debug().
			Add(logging.Mutation(m.name)).
			Add(logging.Reason("busy")).
			Add(logging.Component("api")).
			Msg("mutation rejected")
		return zero, fmt.Errorf("%w: %s", ErrMutationPending, m.name)
	}

	inv := entry.NewInvocation(m.name, in)
	if err := m.interp.Transition(entry.StatusLoading, "mutate"); err != nil {
		m.mu.Unlock()
		return zero, err
	}
	m.last = inv
	m.mu.Unlock()

	ctx, span := m.client.tracer.StartSpan(ctx, "querykit.mutation",
		telemetry.WithAttributes(
			telemetry.String("querykit.mutation", m.name),
			telemetry.String("querykit.invocation_id", inv.ID),
		),
		telemetry.WithSpanKind(telemetry.SpanKindClient),
	)
	defer span.End()

	out, err := m.fn(ctx, in)
	if err != nil {
		m.settleError(ctx, inv, err)
		span.RecordError(err)
		span.SetStatus(telemetry.StatusCodeError, err.Error())
		return zero, err
	}

	m.settleSuccess(ctx, inv, out)
	span.SetStatus(telemetry.StatusCodeOK, "")
	return out, nil
}

// settleSuccess applies the success transition, runs the callback, and
// fires bound invalidations.
func (m *Mutation[In, Out]) settleSuccess(ctx context.Context, inv *entry.Invocation, out Out) {
	m.mu.Lock()
	inv.Succeed(out)
	_ = m.interp.Transition(entry.StatusSuccess, "resolved")
	m.mu.Unlock()

	m.client.metrics.RecordMutation(ctx, m.name, true, inv.Duration())
	logging.Debug().
		Add(logging.Mutation(m.name)).
		Add(logging.InvocationID(inv.ID)).
		Add(logging.Duration(inv.Duration())).
		Add(logging.Component("api")).
		Msg("mutation succeeded")

	if m.onSuccess != nil {
		m.onSuccess(ctx, out)
	}

	if prefixes := m.client.rules.Resolve(m.name); len(prefixes) > 0 {
		m.client.store.Invalidate(ctx, prefixes...)
	}
}

// settleError applies error and reset in one step, so a concurrent
// Mutate never observes the transient error state, then runs the
// callback. The failed invocation record survives in LastInvocation.
func (m *Mutation[In, Out]) settleError(ctx context.Context, inv *entry.Invocation, cause error) {
	m.mu.Lock()
	inv.Fail(cause)
	_ = m.interp.Transition(entry.StatusError, "rejected")
	_ = m.interp.Transition(entry.StatusIdle, "settled")
	m.mu.Unlock()

	m.client.metrics.RecordMutation(ctx, m.name, false, inv.Duration())
	logging.Debug().
		Add(logging.Mutation(m.name)).
		Add(logging.InvocationID(inv.ID)).
		Add(logging.Duration(inv.Duration())).
		Add(logging.ErrorField(cause)).
		Add(logging.Component("api")).
		Msg("mutation failed")

	if m.onError != nil {
		m.onError(ctx, cause)
	}
}
