package transport

import (
	"errors"
	"fmt"
)

// Failure classes. Every error returned by a Transport matches exactly one
// of these under errors.Is, so callers can branch without string matching.
var (
	// ErrNetwork marks failures where no usable response arrived:
	// connection refused, DNS failure, timeout, canceled context.
	ErrNetwork = errors.New("network failure")

	// ErrRequest marks responses the server produced deliberately:
	// any non-2xx status, including validation rejections.
	ErrRequest = errors.New("request failed")

	// ErrSerialization marks payloads that could not be encoded or
	// decoded, or decoded values that failed validation.
	ErrSerialization = errors.New("serialization failure")
)

// Error is a classified transport failure. Kind is always one of the
// package sentinels; the remaining fields carry whatever the failure
// produced.
type Error struct {
	Kind       error
	Method     string
	Path       string
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("%s: %s %s: status %d: %s", e.Kind, e.Method, e.Path, e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: %s %s: status %d", e.Kind, e.Method, e.Path, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s %s: %v", e.Kind, e.Method, e.Path, e.Err)
	default:
		return fmt.Sprintf("%s: %s %s", e.Kind, e.Method, e.Path)
	}
}

// Unwrap exposes both the failure class and the underlying cause, so
// errors.Is works against the sentinels and against wrapped causes alike.
func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// NewNetworkError classifies a failure to complete the round trip.
func NewNetworkError(method, path string, err error) *Error {
	return &Error{Kind: ErrNetwork, Method: method, Path: path, Err: err}
}

// NewRequestError classifies a non-2xx server response.
func NewRequestError(method, path string, status int, message string) *Error {
	return &Error{Kind: ErrRequest, Method: method, Path: path, StatusCode: status, Message: message}
}

// NewSerializationError classifies an encode, decode, or validation failure.
func NewSerializationError(method, path string, err error) *Error {
	return &Error{Kind: ErrSerialization, Method: method, Path: path, Err: err}
}

// IsNetwork reports whether err is a network-class failure.
func IsNetwork(err error) bool { return errors.Is(err, ErrNetwork) }

// IsRequest reports whether err is a request-class failure.
func IsRequest(err error) bool { return errors.Is(err, ErrRequest) }

// IsSerialization reports whether err is a serialization-class failure.
func IsSerialization(err error) bool { return errors.Is(err, ErrSerialization) }

// StatusCode extracts the HTTP status from a request-class failure,
// or zero when err carries none.
func StatusCode(err error) int {
	var te *Error
	if errors.As(err, &te) {
		return te.StatusCode
	}
	return 0
}
