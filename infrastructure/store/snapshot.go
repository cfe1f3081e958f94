package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/felixgeelhaar/querykit/domain/entry"
	"github.com/felixgeelhaar/querykit/domain/key"
	"github.com/felixgeelhaar/querykit/domain/persistence"
	"github.com/felixgeelhaar/querykit/infrastructure/logging"
)

// Snapshot serializes every entry holding data, in canonical key order.
// Loading and idle entries carry nothing durable and are skipped, as are
// entries whose data does not marshal.
func (s *Store) Snapshot() []persistence.Record {
	s.mu.Lock()
	type pending struct {
		es *entryState
		v  entry.View
	}
	candidates := make([]pending, 0, len(s.entries))
	for _, es := range s.entries {
		v := es.ent.View()
		if !v.HasData() {
			continue
		}
		candidates = append(candidates, pending{es: es, v: v})
	}
	s.mu.Unlock()

	records := make([]persistence.Record, 0, len(candidates))
	for _, c := range candidates {
		raw, err := json.Marshal(c.v.Data)
		if err != nil {
			logging.Warn().
				Add(logging.Key(c.es.k)).
				Add(logging.ErrorField(err)).
				Add(logging.Component("store")).
				Msg("entry skipped in snapshot")
			continue
		}
		records = append(records, persistence.Record{
			Key:         c.es.k.String(),
			Data:        raw,
			LastUpdated: c.v.LastUpdated,
		})
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Key < records[j].Key })
	return records
}

// Restore loads snapshot records into the cache as stale successes, so
// the data is served immediately and refreshed on first subscription.
// Records never overwrite live entries: only absent or idle slots are
// filled. Data is restored as raw JSON; consumers decode it on read.
// Returns the number of entries restored.
func (s *Store) Restore(records []persistence.Record) int {
	now := s.clock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0
	}

	var notes []notification
	restored := 0
	for _, rec := range records {
		if err := rec.Validate(); err != nil {
			logging.Warn().
				Add(logging.Str("record_key", rec.Key)).
				Add(logging.ErrorField(err)).
				Add(logging.Component("store")).
				Msg("snapshot record skipped")
			continue
		}
		k, err := key.Parse(rec.Key)
		if err != nil {
			logging.Warn().
				Add(logging.Str("record_key", rec.Key)).
				Add(logging.ErrorField(err)).
				Add(logging.Component("store")).
				Msg("snapshot record skipped")
			continue
		}

		es := s.ensureEntryLocked(k)
		if es.ent.Status != entry.StatusIdle {
			continue
		}

		es.nextToken++
		es.ent.Overwrite(json.RawMessage(rec.Data), es.nextToken, rec.LastUpdated)
		es.ent.MarkStale()
		es.ent.Touch(now)
		restored++

		if subs := s.snapshotSubsLocked(k.String()); len(subs) > 0 {
			notes = append(notes, notification{subs: subs, view: es.ent.View()})
		}
	}
	s.mu.Unlock()

	s.dispatch(notes)
	return restored
}

// SaveSnapshot persists the current snapshot to p.
func (s *Store) SaveSnapshot(ctx context.Context, p persistence.Store) error {
	records := s.Snapshot()
	if err := p.Save(ctx, records); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	s.metrics.RecordSnapshot(ctx, "save", len(records))
	logging.Debug().
		Add(logging.Records(len(records))).
		Add(logging.Component("store")).
		Msg("snapshot saved")
	return nil
}

// LoadSnapshot restores the snapshot held by p. A missing snapshot
// restores nothing and is not an error.
func (s *Store) LoadSnapshot(ctx context.Context, p persistence.Store) (int, error) {
	records, err := p.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("load snapshot: %w", err)
	}

	restored := s.Restore(records)
	s.metrics.RecordSnapshot(ctx, "load", restored)
	logging.Debug().
		Add(logging.Records(restored)).
		Add(logging.Component("store")).
		Msg("snapshot restored")
	return restored, nil
}
