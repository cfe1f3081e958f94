// Package filesystem provides a JSON-file-backed snapshot store.
package filesystem

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/felixgeelhaar/querykit/domain/persistence"
	"github.com/felixgeelhaar/querykit/infrastructure/logging"
)

// snapshotVersion is the on-disk format version.
const snapshotVersion = 1

// snapshotFile is the on-disk envelope around the records.
type snapshotFile struct {
	Version int                  `json:"version"`
	SavedAt time.Time            `json:"saved_at"`
	Records []persistence.Record `json:"records"`
}

// Store implements persistence.Store on a single JSON file. Writes go
// through a temp file and rename, so readers never observe a partially
// written snapshot.
type Store struct {
	path string
}

var _ persistence.Store = (*Store)(nil)

// NewStore creates a filesystem snapshot store at the given path. The
// parent directory is created if it does not exist.
func NewStore(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("snapshot path is required")
	}
	// Restrictive permissions (G301 fix)
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	return &Store{path: path}, nil
}

// Path returns the snapshot file path.
func (s *Store) Path() string {
	return s.path
}

// Save replaces the stored snapshot with the given records.
func (s *Store) Save(ctx context.Context, records []persistence.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(snapshotFile{
		Version: snapshotVersion,
		SavedAt: time.Now().UTC(),
		Records: records,
	})
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".querykit-snapshot-*")
	if err != nil {
		return fmt.Errorf("failed to create snapshot temp file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()               // #nosec G104 -- best-effort cleanup in error path
		os.Remove(tmp.Name())     // #nosec G104 -- best-effort cleanup in error path
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name()) // #nosec G104 -- best-effort cleanup in error path
		return fmt.Errorf("failed to close snapshot temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name()) // #nosec G104 -- best-effort cleanup in error path
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}

	logging.Debug().
		Add(logging.Backend("filesystem")).
		Add(logging.Records(len(records))).
		Add(logging.Component("persistence")).
		Msg("snapshot saved")
	return nil
}

// Load returns all stored records. A missing snapshot loads as an empty
// slice.
func (s *Store) Load(ctx context.Context) ([]persistence.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []persistence.Record{}, nil
		}
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var file snapshotFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", persistence.ErrCorruptSnapshot, err)
	}
	if file.Version != snapshotVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", persistence.ErrCorruptSnapshot, file.Version)
	}

	if file.Records == nil {
		return []persistence.Record{}, nil
	}
	logging.Debug().
		Add(logging.Backend("filesystem")).
		Add(logging.Records(len(file.Records))).
		Add(logging.Component("persistence")).
		Msg("snapshot loaded")
	return file.Records, nil
}

// Clear removes the snapshot file.
func (s *Store) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove snapshot: %w", err)
	}
	return nil
}

// Close is a no-op for the filesystem store.
func (s *Store) Close() error {
	return nil
}
