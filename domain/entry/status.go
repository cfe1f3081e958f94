// Package entry provides the cache entry model for server-state operations.
package entry

// Status represents the lifecycle position of a cache entry or mutation.
// Statuses are identified by stable strings, not behavioral definitions.
type Status string

// Canonical statuses shared by query entries and mutation invocations.
const (
	StatusIdle    Status = "idle"    // No request issued yet
	StatusLoading Status = "loading" // A request is in flight
	StatusSuccess Status = "success" // Last request resolved with data
	StatusError   Status = "error"   // Last request failed
)

// IsSettled returns true if the status reflects a resolved request.
func (s Status) IsSettled() bool {
	return s == StatusSuccess || s == StatusError
}

// IsValid returns true if the status is a recognized canonical status.
func (s Status) IsValid() bool {
	switch s {
	case StatusIdle, StatusLoading, StatusSuccess, StatusError:
		return true
	default:
		return false
	}
}

// CanTransition reports whether moving from s to the target status is legal:
//
//	idle -> loading
//	loading -> success | error
//	success | error -> loading   (refetch or invalidation)
//	error -> idle                (explicit retry reset only)
//
// loading -> loading is also legal: a superseding fetch replaces the request
// token without leaving the loading status.
func (s Status) CanTransition(to Status) bool {
	switch s {
	case StatusIdle:
		return to == StatusLoading
	case StatusLoading:
		return to == StatusSuccess || to == StatusError || to == StatusLoading
	case StatusSuccess:
		return to == StatusLoading
	case StatusError:
		return to == StatusLoading || to == StatusIdle
	default:
		return false
	}
}

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// AllStatuses returns all canonical statuses.
func AllStatuses() []Status {
	return []Status{StatusIdle, StatusLoading, StatusSuccess, StatusError}
}
