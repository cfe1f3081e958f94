package api

import (
	"github.com/felixgeelhaar/querykit/domain/entry"
	"github.com/felixgeelhaar/querykit/domain/key"
	"github.com/felixgeelhaar/querykit/domain/transport"
	"github.com/felixgeelhaar/querykit/infrastructure/store"
)

// Re-exported domain types, so everyday integrations only import api.
type (
	// Key identifies a cache entry.
	Key = key.Key

	// Prefix matches a key subtree for invalidation.
	Prefix = key.Prefix

	// Status is a lifecycle position.
	Status = entry.Status

	// View is an immutable observation of a cache entry.
	View = entry.View

	// Invocation records a single mutation call.
	Invocation = entry.Invocation

	// Stats summarizes cache activity.
	Stats = store.Stats

	// Subscription is a live watch handle on a cache key.
	Subscription = store.Subscription
)

// Lifecycle states.
const (
	StatusIdle    = entry.StatusIdle
	StatusLoading = entry.StatusLoading
	StatusSuccess = entry.StatusSuccess
	StatusError   = entry.StatusError
)

// NewKey builds a cache key from a name and ordered parameters.
func NewKey(name string, params ...string) Key {
	return key.New(name, params...)
}

// NewPrefix builds an invalidation prefix from a name and leading
// parameters.
func NewPrefix(name string, params ...string) Prefix {
	return key.NewPrefix(name, params...)
}

// ParseKey parses the canonical string form back into a key.
func ParseKey(s string) (Key, error) {
	return key.Parse(s)
}

// IsNetworkError reports whether err is a transport-level failure that
// never produced an HTTP response.
func IsNetworkError(err error) bool {
	return transport.IsNetwork(err)
}

// IsRequestError reports whether err is a non-2xx HTTP response.
func IsRequestError(err error) bool {
	return transport.IsRequest(err)
}

// IsSerializationError reports whether err came from an undecodable
// response body.
func IsSerializationError(err error) bool {
	return transport.IsSerialization(err)
}

// StatusCode extracts the HTTP status code from a request error, or
// zero for other failures.
func StatusCode(err error) int {
	return transport.StatusCode(err)
}
