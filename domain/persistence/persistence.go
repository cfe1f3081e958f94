// Package persistence provides the domain interface for durable query
// snapshots, so a process restart can warm the cache with the last known
// server state.
package persistence

import (
	"context"
	"encoding/json"
	"time"
)

// Record is one persisted query entry: the canonical key encoding, the
// raw JSON payload, and the freshness timestamp it carried when the
// snapshot was taken. Only successful entries are ever recorded.
type Record struct {
	Key         string          `json:"key"`
	Data        json.RawMessage `json:"data"`
	LastUpdated time.Time       `json:"last_updated"`
}

// Validate checks the record is restorable.
func (r Record) Validate() error {
	if r.Key == "" {
		return ErrInvalidRecord
	}
	if len(r.Data) == 0 {
		return ErrInvalidRecord
	}
	return nil
}

// Store persists query snapshots.
// Implementations may be filesystem, Badger, Redis, or SQLite backed.
type Store interface {
	// Save replaces the stored snapshot with the given records.
	Save(ctx context.Context, records []Record) error

	// Load returns all stored records. A missing snapshot loads as an
	// empty slice, not an error.
	Load(ctx context.Context) ([]Record, error)

	// Clear removes the stored snapshot.
	Clear(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}
