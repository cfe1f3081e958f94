package persistence

import "errors"

// Domain errors for snapshot operations.
var (
	// ErrInvalidRecord is returned when a record is missing its key or payload.
	ErrInvalidRecord = errors.New("invalid snapshot record")

	// ErrCorruptSnapshot is returned when stored data cannot be decoded.
	ErrCorruptSnapshot = errors.New("snapshot is corrupt")

	// ErrConnectionFailed is returned when the backend cannot be reached.
	ErrConnectionFailed = errors.New("persistence connection failed")

	// ErrOperationTimeout is returned when a snapshot operation times out.
	ErrOperationTimeout = errors.New("persistence operation timeout")
)
