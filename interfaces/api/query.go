package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/felixgeelhaar/querykit/domain/entry"
	"github.com/felixgeelhaar/querykit/domain/key"
	"github.com/felixgeelhaar/querykit/infrastructure/logging"
	"github.com/felixgeelhaar/querykit/infrastructure/store"
)

// Query errors.
var (
	// ErrQueryDisabled indicates a fetch was requested on a disabled query.
	ErrQueryDisabled = errors.New("query disabled")

	// ErrSnapshotDecode indicates a restored cache payload does not decode
	// into the query's result type.
	ErrSnapshotDecode = errors.New("cached payload does not decode")
)

// Fetcher loads the current server state for a query.
type Fetcher[T any] func(ctx context.Context) (T, error)

// QueryResult is the typed projection of a cache entry that subscribers
// and Snapshot observe.
type QueryResult[T any] struct {
	// Data is the last successfully fetched value. It survives failed
	// refreshes: when Err is set, Data still holds the previous result.
	Data T

	// Err is the classified failure of the most recent fetch, if any.
	Err error

	// Status is the lifecycle position of the underlying entry.
	Status entry.Status

	// UpdatedAt is when Data was last refreshed from the server.
	UpdatedAt time.Time

	// Stale marks data that has been invalidated but not yet refreshed.
	Stale bool

	// IsLoading is true during the first load, when no data exists yet.
	IsLoading bool

	// IsFetching is true whenever a request is in flight, including
	// background refreshes of existing data.
	IsFetching bool
}

// HasData reports whether the result carries a fetched value, including
// retained data during background refreshes and after failed ones.
func (r QueryResult[T]) HasData() bool {
	return r.Status == entry.StatusSuccess || !r.UpdatedAt.IsZero()
}

// Query binds one operation key to a typed fetcher on a client's cache.
// Multiple queries may share a key; they observe the same entry and the
// same deduplicated requests.
type Query[T any] struct {
	client  *Client
	key     key.Key
	fetcher store.Fetcher

	mu      sync.Mutex
	enabled bool
}

// queryConfig collects option state for NewQuery.
type queryConfig struct {
	enabled bool
}

// QueryOption configures a query at construction.
type QueryOption func(*queryConfig)

// WithEnabled sets whether the query may fetch. A disabled query never
// talks to the server; its entry stays idle until it is enabled.
func WithEnabled(enabled bool) QueryOption {
	return func(c *queryConfig) {
		c.enabled = enabled
	}
}

// NewQuery binds a typed fetcher to k on the client's cache. An enabled
// query registers its fetcher immediately; the first subscription or
// Fetch issues the initial request.
func NewQuery[T any](c *Client, k key.Key, f Fetcher[T], opts ...QueryOption) (*Query[T], error) {
	if c == nil {
		return nil, ErrNilClient
	}
	if f == nil {
		return nil, store.ErrNilFetcher
	}
	if err := k.Validate(); err != nil {
		return nil, err
	}

	cfg := queryConfig{enabled: true}
	for _, opt := range opts {
		opt(&cfg)
	}

	q := &Query[T]{
		client: c,
		key:    k,
		fetcher: func(ctx context.Context) (any, error) {
			v, err := f(ctx)
			if err != nil {
				return nil, err
			}
			return v, nil
		},
		enabled: cfg.enabled,
	}

	if cfg.enabled {
		if err := c.store.Bind(k, q.fetcher); err != nil {
			return nil, err
		}
	}
	return q, nil
}

// Key returns the operation key this query is bound to.
func (q *Query[T]) Key() key.Key {
	return q.key
}

// Enabled reports whether the query may fetch.
func (q *Query[T]) Enabled() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.enabled
}

// SetEnabled switches fetching on or off. Enabling a previously
// disabled query triggers exactly one fetch; disabling unbinds the
// fetcher but keeps cached data readable. An in-flight request at
// disable time settles normally.
func (q *Query[T]) SetEnabled(enabled bool) error {
	q.mu.Lock()
	if q.enabled == enabled {
		q.mu.Unlock()
		return nil
	}
	q.enabled = enabled
	q.mu.Unlock()

	logging.Debug().
		Add(logging.Key(q.key)).
		Add(logging.Str("enabled", fmt.Sprintf("%t", enabled))).
		Add(logging.Component("api")).
		Msg("query toggled")

	if !enabled {
		q.client.store.Unbind(q.key)
		return nil
	}
	if err := q.client.store.Bind(q.key, q.fetcher); err != nil {
		return err
	}
	return q.client.store.EnsureFetch(context.Background(), q.key)
}

// Subscribe registers fn to observe every state change of the query's
// entry and returns the deregistration function. Subscribing to an idle
// enabled query issues the first fetch; concurrent subscriptions share
// that one request. Re-subscribing to fresh data does not refetch.
func (q *Query[T]) Subscribe(fn func(QueryResult[T])) (func(), error) {
	if fn == nil {
		return nil, store.ErrNilCallback
	}

	sub, err := q.client.store.Subscribe(q.key, func(v entry.View) {
		fn(q.project(v))
	})
	if err != nil {
		return nil, err
	}

	if q.Enabled() {
		if view, ok := q.client.store.Get(q.key); !ok || view.Status == entry.StatusIdle {
			// Mount fetch. Deduplication collapses concurrent mounts
			// onto a single request.
			_ = q.client.store.EnsureFetch(context.Background(), q.key)
		}
	}
	return sub.Cancel, nil
}

// Snapshot returns the current state of the query without fetching.
// A key with no cache entry projects as idle.
func (q *Query[T]) Snapshot() QueryResult[T] {
	view, ok := q.client.store.Get(q.key)
	if !ok {
		return QueryResult[T]{Status: entry.StatusIdle}
	}
	return q.project(view)
}

// Fetch ensures a request is running for the query's key. If one is
// already in flight the call coalesces onto it; fresh cached data is
// not refetched. Fetch returns without waiting for the result.
func (q *Query[T]) Fetch(ctx context.Context) error {
	if !q.Enabled() {
		return ErrQueryDisabled
	}
	return q.client.store.EnsureFetch(ctx, q.key)
}

// Value returns the query's data, fetching and waiting when the cache
// holds nothing fresh. A canceled context abandons the wait but not the
// request.
func (q *Query[T]) Value(ctx context.Context) (T, error) {
	var zero T
	if !q.Enabled() {
		return zero, ErrQueryDisabled
	}

	view, err := q.client.store.Fetch(ctx, q.key)
	if err != nil {
		return zero, err
	}
	result := q.project(view)
	if result.Err != nil {
		return result.Data, result.Err
	}
	return result.Data, nil
}

// Refetch forces a fresh request regardless of cache state, superseding
// any in-flight one. This is the explicit retry path: an entry in error
// goes back to loading without a reset.
func (q *Query[T]) Refetch(ctx context.Context) error {
	if !q.Enabled() {
		return ErrQueryDisabled
	}
	return q.client.store.Refetch(ctx, q.key)
}

// Reset returns an errored entry to idle, discarding the failure. Only
// the error state resets.
func (q *Query[T]) Reset() error {
	return q.client.store.Reset(q.key)
}

// project converts a cache view into a typed result. Values restored
// from a persisted snapshot arrive as raw JSON and decode on first
// observation.
func (q *Query[T]) project(v entry.View) QueryResult[T] {
	out := QueryResult[T]{
		Err:        v.Err,
		Status:     v.Status,
		UpdatedAt:  v.LastUpdated,
		Stale:      v.Stale,
		IsLoading:  v.IsLoading(),
		IsFetching: v.IsFetching(),
	}

	if v.Data == nil {
		return out
	}

	if typed, ok := v.Data.(T); ok {
		out.Data = typed
	} else if raw, ok := v.Data.(json.RawMessage); ok {
		var decoded T
		if err := json.Unmarshal(raw, &decoded); err != nil {
			out.Err = fmt.Errorf("%w: %v", ErrSnapshotDecode, err)
		} else {
			out.Data = decoded
		}
	} else {
		out.Err = fmt.Errorf("%w: unexpected payload type %T", ErrSnapshotDecode, v.Data)
	}
	return out
}
