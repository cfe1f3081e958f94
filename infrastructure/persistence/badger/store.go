package badger

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/felixgeelhaar/querykit/domain/persistence"
	"github.com/felixgeelhaar/querykit/infrastructure/logging"
)

// Store is a BadgerDB-backed implementation of persistence.Store. Each
// record lives under its own prefixed key, so records load back in
// canonical key order.
type Store struct {
	db        *badger.DB
	keyPrefix string
	gcStop    chan struct{}
	gcWg      sync.WaitGroup
}

var _ persistence.Store = (*Store)(nil)

// NewStore creates a BadgerDB snapshot store with the given configuration.
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
		gcStop:    make(chan struct{}),
	}

	// Start GC goroutine
	if cfg.GCInterval > 0 {
		s.startGC(cfg.GCInterval, cfg.GCDiscardRatio)
	}

	return s, nil
}

// NewStoreFromDB creates a snapshot store from an existing BadgerDB database.
func NewStoreFromDB(db *badger.DB, keyPrefix string) *Store {
	return &Store{
		db:        db,
		keyPrefix: keyPrefix,
		gcStop:    make(chan struct{}),
	}
}

// startGC starts the value log garbage collection goroutine.
func (s *Store) startGC(interval time.Duration, discardRatio float64) {
	s.gcWg.Add(1)
	go func() {
		defer s.gcWg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.gcStop:
				return
			case <-ticker.C:
				for {
					err := s.db.RunValueLogGC(discardRatio)
					if err != nil {
						break
					}
				}
			}
		}
	}()
}

// recordKey adds the key prefix and snapshot namespace.
func (s *Store) recordKey(key string) []byte {
	return []byte(s.keyPrefix + "snapshot:" + key)
}

// snapshotPrefix is the key range holding all records.
func (s *Store) snapshotPrefix() []byte {
	return []byte(s.keyPrefix + "snapshot:")
}

// Save replaces the stored snapshot with the given records.
func (s *Store) Save(ctx context.Context, records []persistence.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.db.DropPrefix(s.snapshotPrefix()); err != nil {
		return fmt.Errorf("failed to drop previous snapshot: %w", err)
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		for _, record := range records {
			value, err := json.Marshal(record)
			if err != nil {
				return fmt.Errorf("failed to encode record %q: %w", record.Key, err)
			}
			if err := txn.Set(s.recordKey(record.Key), value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	logging.Debug().
		Add(logging.Backend("badger")).
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

	records := []persistence.Record{}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = s.snapshotPrefix()

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			value, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			var record persistence.Record
			if err := json.Unmarshal(value, &record); err != nil {
				return fmt.Errorf("%w: %v", persistence.ErrCorruptSnapshot, err)
			}
			records = append(records, record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logging.Debug().
		Add(logging.Backend("badger")).
		Add(logging.Records(len(records))).
		Add(logging.Component("persistence")).
		Msg("snapshot loaded")
	return records, nil
}

// Clear removes all records under the snapshot prefix.
func (s *Store) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.DropPrefix(s.snapshotPrefix())
}

// Close stops the GC goroutine and closes the database.
func (s *Store) Close() error {
	close(s.gcStop)
	s.gcWg.Wait()

	return s.db.Close()
}

// DB returns the underlying BadgerDB database.
func (s *Store) DB() *badger.DB {
	return s.db
}
