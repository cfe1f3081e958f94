package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/felixgeelhaar/querykit/domain/persistence"
	"github.com/felixgeelhaar/querykit/infrastructure/logging"
)

// Store is a SQLite-backed implementation of persistence.Store. Records
// live in a single table keyed by the prefixed query key, so multiple
// clients can share one database file under distinct prefixes.
type Store struct {
	db        *sql.DB
	keyPrefix string
}

var _ persistence.Store = (*Store)(nil)

// NewStore creates a SQLite snapshot store with the given configuration.
func NewStore(cfg Config, opts ...Option) (*Store, error) {
	// Apply options
	for _, opt := range opts {
		opt(&cfg)
	}

	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	s := &Store{
		db:        db,
		keyPrefix: cfg.KeyPrefix,
	}

	// Auto-migrate if enabled
	if cfg.AutoMigrate {
		if err := s.migrate(); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	return s, nil
}

// NewStoreFromDB creates a snapshot store from an existing database connection.
func NewStoreFromDB(db *sql.DB, keyPrefix string) (*Store, error) {
	s := &Store{
		db:        db,
		keyPrefix: keyPrefix,
	}

	if err := s.migrate(); err != nil {
		return nil, err
	}

	return s, nil
}

// migrate creates the snapshot table if it doesn't exist.
func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS query_snapshot (
			key TEXT PRIMARY KEY,
			data BLOB NOT NULL,
			last_updated INTEGER NOT NULL,
			saved_at INTEGER NOT NULL
		);
	`

	_, err := s.db.Exec(schema)
	if err != nil {
		return errors.Join(ErrMigrationFailed, err)
	}

	return nil
}

// prefixKey adds the key prefix.
func (s *Store) prefixKey(key string) string {
	return s.keyPrefix + key
}

// Save replaces the stored snapshot with the given records.
func (s *Store) Save(ctx context.Context, records []persistence.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	if s.keyPrefix != "" {
		_, err = tx.ExecContext(ctx, "DELETE FROM query_snapshot WHERE key LIKE ?", s.keyPrefix+"%")
	} else {
		_, err = tx.ExecContext(ctx, "DELETE FROM query_snapshot")
	}
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO query_snapshot (key, data, last_updated, saved_at)
		 VALUES (?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close() //nolint:errcheck

	now := time.Now().Unix()
	for _, record := range records {
		var lastUpdated int64
		if !record.LastUpdated.IsZero() {
			lastUpdated = record.LastUpdated.UnixNano()
		}
		if _, err := stmt.ExecContext(ctx,
			s.prefixKey(record.Key), []byte(record.Data), lastUpdated, now,
		); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	logging.Debug().
		Add(logging.Backend("sqlite")).
		Add(logging.Records(len(records))).
		Add(logging.Component("persistence")).
		Msg("snapshot saved")
	return nil
}

// Load returns all stored records in key order. A missing snapshot loads
// as an empty slice.
func (s *Store) Load(ctx context.Context) ([]persistence.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rows *sql.Rows
	var err error
	if s.keyPrefix != "" {
		rows, err = s.db.QueryContext(ctx,
			"SELECT key, data, last_updated FROM query_snapshot WHERE key LIKE ? ORDER BY key",
			s.keyPrefix+"%",
		)
	} else {
		rows, err = s.db.QueryContext(ctx,
			"SELECT key, data, last_updated FROM query_snapshot ORDER BY key",
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	records := []persistence.Record{}
	for rows.Next() {
		var key string
		var data []byte
		var lastUpdated int64
		if err := rows.Scan(&key, &data, &lastUpdated); err != nil {
			return nil, err
		}

		record := persistence.Record{
			Key:  strings.TrimPrefix(key, s.keyPrefix),
			Data: json.RawMessage(data),
		}
		if lastUpdated != 0 {
			record.LastUpdated = time.Unix(0, lastUpdated)
		}
		if !json.Valid(record.Data) {
			return nil, persistence.ErrCorruptSnapshot
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	logging.Debug().
		Add(logging.Backend("sqlite")).
		Add(logging.Records(len(records))).
		Add(logging.Component("persistence")).
		Msg("snapshot loaded")
	return records, nil
}

// Clear removes all records under the key prefix.
func (s *Store) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var err error
	if s.keyPrefix != "" {
		_, err = s.db.ExecContext(ctx, "DELETE FROM query_snapshot WHERE key LIKE ?", s.keyPrefix+"%")
	} else {
		_, err = s.db.ExecContext(ctx, "DELETE FROM query_snapshot")
	}
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection.
func (s *Store) DB() *sql.DB {
	return s.db
}
