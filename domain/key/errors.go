package key

import "errors"

// Domain errors for operation keys.
var (
	// ErrEmptyName is returned when a key has no operation name.
	ErrEmptyName = errors.New("key has empty operation name")

	// ErrMalformedKey is returned when a canonical key string cannot be decoded.
	ErrMalformedKey = errors.New("malformed key encoding")
)
