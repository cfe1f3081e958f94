package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/felixgeelhaar/querykit/domain/persistence"
	"github.com/felixgeelhaar/querykit/infrastructure/logging"
)

// snapshotEnvelope is the stored value: the records plus the save time.
type snapshotEnvelope struct {
	SavedAt time.Time            `json:"saved_at"`
	Records []persistence.Record `json:"records"`
}

// Store is a Redis-backed implementation of persistence.Store. The whole
// snapshot lives under a single key, so Save replaces it in one SET.
type Store struct {
	client    *redis.Client
	keyPrefix string
}

var _ persistence.Store = (*Store)(nil)

// NewStore creates a Redis snapshot store with the given configuration.
func NewStore(cfg Config, opts ...ConfigOption) (*Store, error) {
	// Apply options
	for _, opt := range opts {
		opt(&cfg)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Join(persistence.ErrConnectionFailed, err)
	}

	return &Store{
		client:    client,
		keyPrefix: cfg.KeyPrefix,
	}, nil
}

// NewStoreFromClient creates a snapshot store from an existing Redis client.
func NewStoreFromClient(client *redis.Client, keyPrefix string) *Store {
	return &Store{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// snapshotKey is the single key holding the snapshot.
func (s *Store) snapshotKey() string {
	return s.keyPrefix + "snapshot"
}

// Save replaces the stored snapshot with the given records.
func (s *Store) Save(ctx context.Context, records []persistence.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(snapshotEnvelope{
		SavedAt: time.Now().UTC(),
		Records: records,
	})
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	if err := s.client.Set(ctx, s.snapshotKey(), data, 0).Err(); err != nil {
		return s.wrapError(err)
	}

	logging.Debug().
		Add(logging.Backend("redis")).
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

	data, err := s.client.Get(ctx, s.snapshotKey()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []persistence.Record{}, nil
		}
		return nil, s.wrapError(err)
	}

	var envelope snapshotEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", persistence.ErrCorruptSnapshot, err)
	}

	if envelope.Records == nil {
		return []persistence.Record{}, nil
	}
	logging.Debug().
		Add(logging.Backend("redis")).
		Add(logging.Records(len(envelope.Records))).
		Add(logging.Component("persistence")).
		Msg("snapshot loaded")
	return envelope.Records, nil
}

// Clear removes the stored snapshot.
func (s *Store) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.client.Del(ctx, s.snapshotKey()).Err(); err != nil {
		return s.wrapError(err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}

// Ping checks the Redis connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Client returns the underlying Redis client for advanced operations.
func (s *Store) Client() *redis.Client {
	return s.client
}

// wrapError wraps Redis errors with domain errors.
func (s *Store) wrapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return errors.Join(persistence.ErrOperationTimeout, err)
	}

	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return errors.Join(persistence.ErrOperationTimeout, err)
	}

	return err
}
