package store

import "errors"

var (
	// ErrStoreClosed is returned by operations on a closed store.
	ErrStoreClosed = errors.New("store is closed")

	// ErrNoFetcher is returned when a fetch is requested for a key with
	// no bound fetcher.
	ErrNoFetcher = errors.New("no fetcher bound for key")

	// ErrNilFetcher is returned when binding a nil fetcher.
	ErrNilFetcher = errors.New("fetcher is nil")

	// ErrNilCallback is returned when subscribing with a nil callback.
	ErrNilCallback = errors.New("callback is nil")

	// ErrNilError is returned when recording a nil error.
	ErrNilError = errors.New("error is nil")

	// ErrUnknownKey is returned when operating on a key with no entry.
	ErrUnknownKey = errors.New("unknown key")
)
