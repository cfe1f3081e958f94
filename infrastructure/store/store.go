// Package store implements the shared query cache: one entry per
// operation key, request deduplication, token-ordered response
// application, prefix invalidation, and subscriber notification.
//
// The store serializes all state changes under a single mutex and
// dispatches subscriber callbacks outside it, in registration order.
// Fetches run on store-owned goroutines: canceling the context that
// requested a fetch does not cancel a round trip other consumers may be
// waiting on.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/felixgeelhaar/querykit/domain/entry"
	"github.com/felixgeelhaar/querykit/domain/key"
	"github.com/felixgeelhaar/querykit/infrastructure/logging"
	"github.com/felixgeelhaar/querykit/infrastructure/telemetry"
)

// Fetcher loads the current server state for one key.
type Fetcher func(ctx context.Context) (any, error)

// Config configures the store.
type Config struct {
	// GCIdle evicts entries unread for this long, provided they have no
	// subscribers and no request in flight. Zero disables eviction.
	GCIdle time.Duration

	// GCInterval is how often the janitor sweeps. Zero disables eviction.
	GCInterval time.Duration

	// FetchTimeout bounds each fetch round trip. Zero leaves timeouts to
	// the transport.
	FetchTimeout time.Duration

	// Metrics receives cache observability events.
	Metrics telemetry.Metrics

	// Clock supplies time for freshness bookkeeping.
	Clock func() time.Time
}

// DefaultConfig returns a configuration with eviction disabled and
// metrics discarded.
func DefaultConfig() Config {
	return Config{
		Metrics: &telemetry.NoopMetricsProvider{},
		Clock:   time.Now,
	}
}

// Option configures the store.
type Option func(*Config)

// WithGC enables idle-entry eviction.
func WithGC(idle, interval time.Duration) Option {
	return func(c *Config) {
		c.GCIdle = idle
		c.GCInterval = interval
	}
}

// WithFetchTimeout bounds each fetch round trip.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.FetchTimeout = d
	}
}

// WithMetrics wires a metrics recorder.
func WithMetrics(m telemetry.Metrics) Option {
	return func(c *Config) {
		c.Metrics = m
	}
}

// WithClock overrides the time source.
func WithClock(clock func() time.Time) Option {
	return func(c *Config) {
		c.Clock = clock
	}
}

// entryState pairs a cache entry with its fetch coordination state.
type entryState struct {
	k         key.Key
	ent       *entry.Entry
	inflight  bool
	nextToken uint64
	waiters   []chan entry.View
}

// Subscription is a registered entry-change callback. Cancel is
// idempotent.
type Subscription struct {
	id uint64
	k  key.Key
	fn func(entry.View)
	s  *Store
}

// Key returns the subscribed key.
func (sub *Subscription) Key() key.Key {
	return sub.k
}

// Cancel removes the subscription.
func (sub *Subscription) Cancel() {
	sub.s.unsubscribe(sub)
}

// notification is a pending callback batch, dispatched outside the lock.
type notification struct {
	subs []*Subscription
	view entry.View
}

// Counters are the store's cumulative statistics.
type Counters struct {
	Hits          uint64
	Misses        uint64
	DedupHits     uint64
	Superseded    uint64
	Invalidations uint64
	Evictions     uint64
}

// Stats is a point-in-time view of the store.
type Stats struct {
	Entries     int
	InFlight    int
	Subscribers int
	Counters    Counters
}

// Store is the shared query cache.
type Store struct {
	mu        sync.Mutex
	entries   map[string]*entryState
	fetchers  map[string]Fetcher
	subs      map[string][]*Subscription
	nextSubID uint64
	counters  Counters
	closed    bool

	clock        func() time.Time
	metrics      telemetry.Metrics
	fetchTimeout time.Duration

	baseCtx context.Context
	cancel  context.CancelFunc
	fetchWg sync.WaitGroup

	gcIdle     time.Duration
	gcInterval time.Duration
	gcStop     chan struct{}
	gcWg       sync.WaitGroup
}

// New creates a store.
func New(opts ...Option) *Store {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Metrics == nil {
		cfg.Metrics = &telemetry.NoopMetricsProvider{}
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Store{
		entries:      make(map[string]*entryState),
		fetchers:     make(map[string]Fetcher),
		subs:         make(map[string][]*Subscription),
		clock:        cfg.Clock,
		metrics:      cfg.Metrics,
		fetchTimeout: cfg.FetchTimeout,
		baseCtx:      ctx,
		cancel:       cancel,
		gcIdle:       cfg.GCIdle,
		gcInterval:   cfg.GCInterval,
	}

	if s.gcIdle > 0 && s.gcInterval > 0 {
		s.gcStop = make(chan struct{})
		s.startJanitor()
	}

	return s
}

// ensureEntryLocked returns the entry state for k, creating an idle one
// if absent. Callers hold s.mu.
func (s *Store) ensureEntryLocked(k key.Key) *entryState {
	ck := k.String()
	es, ok := s.entries[ck]
	if !ok {
		es = &entryState{
			k:   k,
			ent: entry.New(s.clock()),
		}
		s.entries[ck] = es
		s.metrics.IncrementEntries(s.baseCtx)
	}
	return es
}

// Bind registers the fetcher used for k on fetches and invalidation
// refreshes. Rebinding replaces the previous fetcher.
func (s *Store) Bind(k key.Key, f Fetcher) error {
	if err := k.Validate(); err != nil {
		return err
	}
	if f == nil {
		return ErrNilFetcher
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	s.ensureEntryLocked(k)
	s.fetchers[k.String()] = f
	return nil
}

// Unbind removes the fetcher for k. The cached entry survives.
func (s *Store) Unbind(k key.Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.fetchers, k.String())
}

// Get returns the current view of k's entry.
func (s *Store) Get(k key.Key) (entry.View, bool) {
	s.mu.Lock()
	es, ok := s.entries[k.String()]
	if !ok {
		s.counters.Misses++
		s.mu.Unlock()
		s.metrics.RecordCacheMiss(s.baseCtx, k.Name())
		return entry.View{}, false
	}
	es.ent.Touch(s.clock())
	view := es.ent.View()
	s.counters.Hits++
	s.mu.Unlock()

	s.metrics.RecordCacheHit(s.baseCtx, k.Name())
	return view, true
}

// Subscribe registers fn to run after every state change of k's entry.
// The callback runs outside the store lock, in registration order, and
// must not block for long. Subscribing to a stale entry triggers a
// refresh when a fetcher is bound.
func (s *Store) Subscribe(k key.Key, fn func(entry.View)) (*Subscription, error) {
	if err := k.Validate(); err != nil {
		return nil, err
	}
	if fn == nil {
		return nil, ErrNilCallback
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrStoreClosed
	}

	es := s.ensureEntryLocked(k)
	es.ent.Touch(s.clock())

	s.nextSubID++
	sub := &Subscription{id: s.nextSubID, k: k, fn: fn, s: s}
	ck := k.String()
	s.subs[ck] = append(s.subs[ck], sub)

	// A stale entry refreshes as soon as someone starts watching it.
	var notes []notification
	if es.ent.Stale && !es.inflight {
		if f := s.fetchers[ck]; f != nil {
			s.startFetchLocked(es, f)
			notes = append(notes, notification{subs: s.snapshotSubsLocked(ck), view: es.ent.View()})
		}
	}
	s.mu.Unlock()

	s.metrics.IncrementSubscriptions(s.baseCtx)
	s.dispatch(notes)
	return sub, nil
}

// unsubscribe removes sub from its key's list.
func (s *Store) unsubscribe(sub *Subscription) {
	s.mu.Lock()
	ck := sub.k.String()
	list := s.subs[ck]
	found := false
	for i, candidate := range list {
		if candidate.id == sub.id {
			s.subs[ck] = append(list[:i:i], list[i+1:]...)
			found = true
			break
		}
	}
	if len(s.subs[ck]) == 0 {
		delete(s.subs, ck)
	}
	s.mu.Unlock()

	if found {
		s.metrics.DecrementSubscriptions(s.baseCtx)
	}
}

// EnsureFetch starts a fetch for k unless one is already in flight.
// Concurrent callers coalesce onto the running request.
func (s *Store) EnsureFetch(ctx context.Context, k key.Key) error {
	if err := k.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrStoreClosed
	}

	es := s.ensureEntryLocked(k)
	ck := k.String()
	f := s.fetchers[ck]
	if f == nil {
		s.mu.Unlock()
		return ErrNoFetcher
	}

	if es.inflight {
		s.counters.DedupHits++
		s.mu.Unlock()
		s.metrics.RecordDedup(ctx, k.Name())
		return nil
	}

	s.startFetchLocked(es, f)
	notes := []notification{{subs: s.snapshotSubsLocked(ck), view: es.ent.View()}}
	s.mu.Unlock()

	s.dispatch(notes)
	return nil
}

// Fetch returns k's entry, issuing a fetch and waiting for it to settle
// when no fresh data is cached. A canceled context abandons the wait but
// not the round trip.
func (s *Store) Fetch(ctx context.Context, k key.Key) (entry.View, error) {
	if err := k.Validate(); err != nil {
		return entry.View{}, err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return entry.View{}, ErrStoreClosed
	}

	es := s.ensureEntryLocked(k)
	es.ent.Touch(s.clock())
	view := es.ent.View()

	if view.Status == entry.StatusSuccess && !view.Stale && !es.inflight {
		s.counters.Hits++
		s.mu.Unlock()
		s.metrics.RecordCacheHit(ctx, k.Name())
		return view, nil
	}

	ck := k.String()
	f := s.fetchers[ck]
	if f == nil && !es.inflight {
		s.mu.Unlock()
		return view, ErrNoFetcher
	}

	ch := make(chan entry.View, 1)
	es.waiters = append(es.waiters, ch)

	var notes []notification
	if !es.inflight {
		s.startFetchLocked(es, f)
		notes = append(notes, notification{subs: s.snapshotSubsLocked(ck), view: es.ent.View()})
	} else {
		s.counters.DedupHits++
		defer s.metrics.RecordDedup(ctx, k.Name())
	}
	s.mu.Unlock()

	s.dispatch(notes)

	select {
	case settled := <-ch:
		return settled, settled.Err
	case <-ctx.Done():
		s.removeWaiter(ck, ch)
		return view, ctx.Err()
	}
}

// removeWaiter drops an abandoned settle channel.
func (s *Store) removeWaiter(ck string, ch chan entry.View) {
	s.mu.Lock()
	defer s.mu.Unlock()
	es, ok := s.entries[ck]
	if !ok {
		return
	}
	for i, w := range es.waiters {
		if w == ch {
			es.waiters = append(es.waiters[:i:i], es.waiters[i+1:]...)
			return
		}
	}
}

// Refetch issues a fresh fetch for k regardless of current state. An
// in-flight request is superseded by the new token; an entry in error
// refetches without an explicit reset.
func (s *Store) Refetch(ctx context.Context, k key.Key) error {
	if err := k.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrStoreClosed
	}

	es := s.ensureEntryLocked(k)
	ck := k.String()
	f := s.fetchers[ck]
	if f == nil {
		s.mu.Unlock()
		return ErrNoFetcher
	}

	// Superseding an in-flight request is counted when the stale result
	// lands, same as the invalidation path.
	s.startFetchLocked(es, f)
	notes := []notification{{subs: s.snapshotSubsLocked(ck), view: es.ent.View()}}
	s.mu.Unlock()

	s.dispatch(notes)
	return nil
}

// startFetchLocked issues a fetch under a fresh token. Callers hold s.mu
// and have verified f is non-nil. Issuing while a fetch is in flight
// supersedes it: the newer token wins and the older result is dropped.
func (s *Store) startFetchLocked(es *entryState, f Fetcher) {
	es.nextToken++
	token := es.nextToken
	_ = es.ent.MarkLoading(token)
	es.inflight = true

	logging.Debug().
		Add(logging.Key(es.k)).
		Add(logging.Token(token)).
		Add(logging.Component("store")).
		Msg("fetch issued")

	s.fetchWg.Add(1)
	go func() {
		defer s.fetchWg.Done()

		ctx := s.baseCtx
		cancel := context.CancelFunc(func() {})
		if s.fetchTimeout > 0 {
			ctx, cancel = context.WithTimeout(ctx, s.fetchTimeout)
		}
		defer cancel()

		started := s.clock()
		data, err := f(ctx)
		s.applyResult(es, token, data, err, s.clock().Sub(started))
	}()
}

// applyResult settles a fetch outcome, enforcing token ordering: a
// response for a superseded token is dropped without touching the entry.
func (s *Store) applyResult(es *entryState, token uint64, data any, err error, elapsed time.Duration) {
	s.mu.Lock()
	ck := es.k.String()
	if current, ok := s.entries[ck]; !ok || current != es {
		// Evicted while in flight; nothing to settle.
		s.mu.Unlock()
		return
	}

	if es.ent.Token != token {
		s.counters.Superseded++
		s.mu.Unlock()

		s.metrics.RecordSuperseded(s.baseCtx, es.k.Name())
		logging.Debug().
			Add(logging.Key(es.k)).
			Add(logging.Token(token)).
			Add(logging.Component("store")).
			Add(logging.Reason("superseded")).
			Msg("fetch result dropped")
		return
	}

	es.inflight = false
	outcome := "success"
	if err != nil {
		_ = es.ent.MarkError(err)
		outcome = "error"
	} else {
		_ = es.ent.MarkSuccess(data, s.clock())
	}

	view := es.ent.View()
	waiters := es.waiters
	es.waiters = nil
	notes := []notification{{subs: s.snapshotSubsLocked(ck), view: view}}
	closed := s.closed
	s.mu.Unlock()

	s.metrics.RecordFetch(s.baseCtx, es.k.Name(), outcome, elapsed)
	logging.Debug().
		Add(logging.Key(es.k)).
		Add(logging.Token(token)).
		Add(logging.Status(view.Status)).
		Add(logging.Duration(elapsed)).
		Add(logging.ErrorField(err)).
		Add(logging.Component("store")).
		Msg("fetch settled")

	for _, w := range waiters {
		w <- view
	}
	if !closed {
		s.dispatch(notes)
	}
}

// Set writes data for k directly, marking it successful and superseding
// any in-flight fetch.
func (s *Store) Set(k key.Key, data any) error {
	if err := k.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrStoreClosed
	}

	es := s.ensureEntryLocked(k)
	es.nextToken++
	now := s.clock()
	es.ent.Overwrite(data, es.nextToken, now)
	es.ent.Touch(now)
	es.inflight = false

	view := es.ent.View()
	waiters := es.waiters
	es.waiters = nil
	notes := []notification{{subs: s.snapshotSubsLocked(k.String()), view: view}}
	s.mu.Unlock()

	for _, w := range waiters {
		w <- view
	}
	s.dispatch(notes)
	return nil
}

// SetError records a failure for k directly, superseding any in-flight
// fetch. Existing data is retained alongside the error.
func (s *Store) SetError(k key.Key, cause error) error {
	if err := k.Validate(); err != nil {
		return err
	}
	if cause == nil {
		return ErrNilError
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrStoreClosed
	}

	es := s.ensureEntryLocked(k)
	es.nextToken++
	es.ent.OverwriteError(cause, es.nextToken)
	es.ent.Touch(s.clock())
	es.inflight = false

	view := es.ent.View()
	waiters := es.waiters
	es.waiters = nil
	notes := []notification{{subs: s.snapshotSubsLocked(k.String()), view: view}}
	s.mu.Unlock()

	for _, w := range waiters {
		w <- view
	}
	s.dispatch(notes)
	return nil
}

// Reset returns k's errored entry to idle. This is the explicit retry
// path; any other status is an invalid transition.
func (s *Store) Reset(k key.Key) error {
	s.mu.Lock()
	es, ok := s.entries[k.String()]
	if !ok {
		s.mu.Unlock()
		return ErrUnknownKey
	}
	if err := es.ent.Reset(); err != nil {
		s.mu.Unlock()
		return err
	}
	view := es.ent.View()
	notes := []notification{{subs: s.snapshotSubsLocked(k.String()), view: view}}
	s.mu.Unlock()

	s.dispatch(notes)
	return nil
}

// Invalidate sweeps every entry matching any of the prefixes. Watched
// entries refetch immediately, superseding in-flight requests; unwatched
// ones are marked stale and refresh on their next subscription. Idle
// entries carry nothing to invalidate and are skipped. Returns the
// number of entries invalidated.
func (s *Store) Invalidate(ctx context.Context, prefixes ...key.Prefix) int {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0
	}

	matchedPer := make(map[string]int, len(prefixes))
	var notes []notification
	count := 0

	for ck, es := range s.entries {
		if es.ent.Status == entry.StatusIdle {
			continue
		}
		matched := false
		for _, p := range prefixes {
			if p.Matches(es.k) {
				matchedPer[p.String()]++
				matched = true
			}
		}
		if !matched {
			continue
		}
		count++

		subs := s.snapshotSubsLocked(ck)
		f := s.fetchers[ck]
		if len(subs) > 0 && f != nil {
			s.startFetchLocked(es, f)
			notes = append(notes, notification{subs: subs, view: es.ent.View()})
			continue
		}

		es.ent.MarkStale()
		if len(subs) > 0 {
			notes = append(notes, notification{subs: subs, view: es.ent.View()})
		}
	}
	s.counters.Invalidations += uint64(count)
	s.mu.Unlock()

	for p, matched := range matchedPer {
		s.metrics.RecordInvalidation(ctx, p, matched)
	}
	if count > 0 {
		logging.Debug().
			Add(logging.Int("matched", count)).
			Add(logging.Component("store")).
			Msg("invalidation sweep")
	}
	s.dispatch(notes)
	return count
}

// InvalidateKey invalidates exactly one key, leaving longer keys that
// share its prefix untouched. Returns 1 when the entry existed and held
// something to invalidate, 0 otherwise.
func (s *Store) InvalidateKey(ctx context.Context, k key.Key) int {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0
	}

	ck := k.String()
	es, ok := s.entries[ck]
	if !ok || es.ent.Status == entry.StatusIdle {
		s.mu.Unlock()
		return 0
	}

	var notes []notification
	subs := s.snapshotSubsLocked(ck)
	f := s.fetchers[ck]
	if len(subs) > 0 && f != nil {
		s.startFetchLocked(es, f)
		notes = append(notes, notification{subs: subs, view: es.ent.View()})
	} else {
		es.ent.MarkStale()
		if len(subs) > 0 {
			notes = append(notes, notification{subs: subs, view: es.ent.View()})
		}
	}
	s.counters.Invalidations++
	s.mu.Unlock()

	s.metrics.RecordInvalidation(ctx, ck, 1)
	s.dispatch(notes)
	return 1
}

// InvalidateAll invalidates every non-idle entry.
func (s *Store) InvalidateAll(ctx context.Context) int {
	s.mu.Lock()
	prefixes := make([]key.Prefix, 0, len(s.entries))
	seen := make(map[string]struct{}, len(s.entries))
	for _, es := range s.entries {
		name := es.k.Name()
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		prefixes = append(prefixes, key.NewPrefix(name))
	}
	s.mu.Unlock()

	return s.Invalidate(ctx, prefixes...)
}

// snapshotSubsLocked copies a key's subscriber list. Callers hold s.mu.
func (s *Store) snapshotSubsLocked(ck string) []*Subscription {
	list := s.subs[ck]
	if len(list) == 0 {
		return nil
	}
	out := make([]*Subscription, len(list))
	copy(out, list)
	return out
}

// dispatch runs pending notifications in registration order.
func (s *Store) dispatch(notes []notification) {
	for _, n := range notes {
		for _, sub := range n.subs {
			sub.fn(n.view)
		}
	}
}

// Len returns the number of cached entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Keys returns all cached keys in canonical order.
func (s *Store) Keys() []key.Key {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]key.Key, 0, len(s.entries))
	for _, es := range s.entries {
		out = append(out, es.k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// KeyView pairs a key with its current entry view.
type KeyView struct {
	Key  key.Key
	View entry.View
}

// Entries returns a snapshot of every entry in canonical key order.
func (s *Store) Entries() []KeyView {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]KeyView, 0, len(s.entries))
	for _, es := range s.entries {
		out = append(out, KeyView{Key: es.k, View: es.ent.View()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key.String() < out[j].Key.String() })
	return out
}

// Stats returns current store statistics.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	inflight := 0
	for _, es := range s.entries {
		if es.inflight {
			inflight++
		}
	}
	subscribers := 0
	for _, list := range s.subs {
		subscribers += len(list)
	}

	return Stats{
		Entries:     len(s.entries),
		InFlight:    inflight,
		Subscribers: subscribers,
		Counters:    s.counters,
	}
}

// startJanitor starts the idle-entry eviction goroutine.
func (s *Store) startJanitor() {
	s.gcWg.Add(1)
	go func() {
		defer s.gcWg.Done()
		ticker := time.NewTicker(s.gcInterval)
		defer ticker.Stop()

		for {
			select {
			case <-s.gcStop:
				return
			case <-ticker.C:
				s.evictIdle()
			}
		}
	}()
}

// evictIdle drops entries unread past the idle window. Watched entries,
// in-flight entries, and entries with waiters are never evicted.
func (s *Store) evictIdle() {
	now := s.clock()

	s.mu.Lock()
	var evicted []key.Key
	for ck, es := range s.entries {
		if es.inflight || len(es.waiters) > 0 || len(s.subs[ck]) > 0 {
			continue
		}
		if now.Sub(es.ent.LastAccess) < s.gcIdle {
			continue
		}
		delete(s.entries, ck)
		evicted = append(evicted, es.k)
	}
	s.counters.Evictions += uint64(len(evicted))
	s.mu.Unlock()

	for _, k := range evicted {
		s.metrics.RecordEviction(s.baseCtx, k.Name())
		s.metrics.DecrementEntries(s.baseCtx)
		logging.Debug().
			Add(logging.Key(k)).
			Add(logging.Component("store")).
			Add(logging.Reason("idle")).
			Msg("entry evicted")
	}
}

// Close stops the janitor, cancels in-flight fetches, and waits for them
// to drain. Further operations fail with ErrStoreClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	if s.gcStop != nil {
		close(s.gcStop)
		s.gcWg.Wait()
	}

	s.cancel()
	s.fetchWg.Wait()
	return nil
}
