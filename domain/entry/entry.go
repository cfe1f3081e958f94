package entry

import (
	"fmt"
	"time"
)

// Entry is the mutable cache record for one operation key.
// The store owns every Entry exclusively: all mutation goes through the
// store's methods under its lock, and consumers only ever see View copies.
type Entry struct {
	// Status is the lifecycle position.
	Status Status

	// Data is the last successful result payload, decoded at the transport
	// boundary. It survives failed refreshes (stale-while-error).
	Data any

	// Err is the classified failure of the last resolved request, if any.
	Err error

	// LastUpdated is when Data was last refreshed from the server.
	LastUpdated time.Time

	// Token identifies the fetch this entry currently tracks. While loading
	// it names the in-flight request; once settled, the applied one.
	Token uint64

	// Stale marks the entry as invalidated: its data must not be trusted
	// past the next refetch opportunity.
	Stale bool

	// LastAccess is when the entry was last read or subscribed to.
	// The janitor uses it to collect abandoned entries.
	LastAccess time.Time
}

// New creates an idle entry.
func New(now time.Time) *Entry {
	return &Entry{
		Status:     StatusIdle,
		LastAccess: now,
	}
}

// MarkLoading transitions the entry to loading under the given fetch token.
// Calling it while already loading supersedes the tracked request: the new
// token wins and the old fetch's result will be dropped on arrival.
func (e *Entry) MarkLoading(token uint64) error {
	if !e.Status.CanTransition(StatusLoading) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, e.Status, StatusLoading)
	}
	e.Status = StatusLoading
	e.Token = token
	return nil
}

// MarkSuccess settles the entry with fresh data.
func (e *Entry) MarkSuccess(data any, now time.Time) error {
	if !e.Status.CanTransition(StatusSuccess) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, e.Status, StatusSuccess)
	}
	e.Status = StatusSuccess
	e.Data = data
	e.Err = nil
	e.LastUpdated = now
	e.Stale = false
	return nil
}

// MarkError settles the entry with a failure. Existing data is retained so
// consumers keep the last good value alongside the error.
func (e *Entry) MarkError(err error) error {
	if !e.Status.CanTransition(StatusError) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, e.Status, StatusError)
	}
	e.Status = StatusError
	e.Err = err
	return nil
}

// Reset returns an errored entry to idle. This is the explicit retry path;
// it is illegal from any other status.
func (e *Entry) Reset() error {
	if e.Status != StatusError {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, e.Status, StatusIdle)
	}
	e.Status = StatusIdle
	e.Err = nil
	return nil
}

// Overwrite replaces the entry with a successful value from outside the
// fetch path, such as a manual cache write or a snapshot restore. The new
// token supersedes any in-flight request, whose result drops on arrival.
func (e *Entry) Overwrite(data any, token uint64, updatedAt time.Time) {
	e.Status = StatusSuccess
	e.Data = data
	e.Err = nil
	e.Token = token
	e.LastUpdated = updatedAt
	e.Stale = false
}

// OverwriteError replaces the entry with a failure from outside the fetch
// path. Existing data is retained, matching the stale-while-error rule.
func (e *Entry) OverwriteError(err error, token uint64) {
	e.Status = StatusError
	e.Err = err
	e.Token = token
}

// MarkStale flags the entry as invalidated without touching its data.
func (e *Entry) MarkStale() {
	e.Stale = true
}

// Touch records a read or subscription for janitor bookkeeping.
func (e *Entry) Touch(now time.Time) {
	e.LastAccess = now
}

// View returns an immutable projection of the entry.
func (e *Entry) View() View {
	return View{
		Status:      e.Status,
		Data:        e.Data,
		Err:         e.Err,
		LastUpdated: e.LastUpdated,
		Token:       e.Token,
		Stale:       e.Stale,
	}
}

// View is a read-only projection of a cache entry, safe to hand to
// subscribers outside the store's lock.
type View struct {
	Status      Status
	Data        any
	Err         error
	LastUpdated time.Time
	Token       uint64
	Stale       bool
}

// IsFetching reports whether any request is in flight, including a
// background refresh of existing data.
func (v View) IsFetching() bool {
	return v.Status == StatusLoading
}

// IsLoading reports whether the first load is in flight: a request is
// running and no data has ever arrived.
func (v View) IsLoading() bool {
	return v.Status == StatusLoading && v.Data == nil
}

// HasData reports whether the view carries a result payload.
func (v View) HasData() bool {
	return v.Data != nil
}
