// Package transport defines the client-server boundary for server-state
// synchronization: the request contract, the failure taxonomy, and the
// response envelopes the backend wraps payloads in.
package transport

import (
	"context"
	"encoding/json"
	"net/http"
)

// Transport issues a single stateless request against the backend.
// Implementations may be HTTP, an in-memory fake, or a decorated client;
// each call is independent and carries no retry policy of its own.
type Transport interface {
	// Request performs one round trip and returns the raw response body.
	// Failures are classified per the package error taxonomy and never
	// panic across the call boundary.
	Request(ctx context.Context, method, path string, opts Options) ([]byte, error)
}

// Options carries the per-request inputs.
type Options struct {
	// Params are serialized as the query string, sorted by name.
	Params map[string]string

	// Body is serialized as the JSON request payload when non-nil.
	Body any

	// Header adds request headers for this call only.
	Header map[string]string
}

// Validatable lets endpoint response types verify their own shape after
// decoding. Validation failures classify as serialization failures.
type Validatable interface {
	Validate() error
}

// Get issues a GET and decodes the response into T at the boundary.
func Get[T any](ctx context.Context, t Transport, path string, params map[string]string) (T, error) {
	var out T
	raw, err := t.Request(ctx, http.MethodGet, path, Options{Params: params})
	if err != nil {
		return out, err
	}
	return decode[T](http.MethodGet, path, raw)
}

// Post issues a POST with a JSON body and decodes the response into Out.
func Post[In, Out any](ctx context.Context, t Transport, path string, in In) (Out, error) {
	var out Out
	raw, err := t.Request(ctx, http.MethodPost, path, Options{Body: in})
	if err != nil {
		return out, err
	}
	return decode[Out](http.MethodPost, path, raw)
}

// decode unmarshals and validates a response payload.
func decode[T any](method, path string, raw []byte) (T, error) {
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, NewSerializationError(method, path, err)
	}
	if v, ok := any(out).(Validatable); ok {
		if err := v.Validate(); err != nil {
			return out, NewSerializationError(method, path, err)
		}
	}
	return out, nil
}
