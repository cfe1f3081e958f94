package entry

import "errors"

// Domain errors for cache entries.
var (
	// ErrInvalidTransition indicates an attempted status transition is not allowed.
	ErrInvalidTransition = errors.New("invalid status transition")
)
