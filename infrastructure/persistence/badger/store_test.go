package badger_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/felixgeelhaar/querykit/domain/persistence"
	"github.com/felixgeelhaar/querykit/infrastructure/persistence/badger"
)

func newTestStore(t *testing.T) *badger.Store {
	t.Helper()

	s, err := badger.NewStore(badger.DefaultConfig(), badger.WithInMemory(), badger.WithGCInterval(0))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	return s
}

func sampleRecords() []persistence.Record {
	return []persistence.Record{
		{
			Key:         "probes",
			Data:        json.RawMessage(`[{"id":"p1","name":"brand visibility"}]`),
			LastUpdated: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		},
		{
			Key:         "probes/p1/results",
			Data:        json.RawMessage(`{"score":0.82}`),
			LastUpdated: time.Date(2025, 6, 1, 12, 5, 0, 0, time.UTC),
		},
	}
}

// byKey indexes records for order-independent comparison; badger loads
// in byte order of the prefixed keys.
func byKey(records []persistence.Record) map[string]persistence.Record {
	m := make(map[string]persistence.Record, len(records))
	for _, r := range records {
		m[r.Key] = r
	}
	return m
}

func TestNewStore_InMemory(t *testing.T) {
	s := newTestStore(t)

	if err := s.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

func TestStore_SaveLoadRoundtrip(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	ctx := context.Background()
	want := sampleRecords()

	if err := s.Save(ctx, want); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded) != len(want) {
		t.Fatalf("Load returned %d records, want %d", len(loaded), len(want))
	}

	got := byKey(loaded)
	for _, w := range want {
		g, ok := got[w.Key]
		if !ok {
			t.Errorf("record %q missing from loaded snapshot", w.Key)
			continue
		}
		if string(g.Data) != string(w.Data) {
			t.Errorf("record %q data = %s, want %s", w.Key, g.Data, w.Data)
		}
		if !g.LastUpdated.Equal(w.LastUpdated) {
			t.Errorf("record %q last_updated = %v, want %v", w.Key, g.LastUpdated, w.LastUpdated)
		}
	}
}

func TestStore_LoadEmptyDatabase(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	got, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Load returned %d records, want 0", len(got))
	}
}

func TestStore_SaveReplacesPrevious(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	ctx := context.Background()
	if err := s.Save(ctx, sampleRecords()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := s.Save(ctx, sampleRecords()[:1]); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Load returned %d records, want 1", len(got))
	}
	if got[0].Key != "probes" {
		t.Errorf("record key = %q, want probes", got[0].Key)
	}
}

func TestStore_Clear(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	ctx := context.Background()
	if err := s.Save(ctx, sampleRecords()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load after Clear failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Load returned %d records after Clear, want 0", len(got))
	}
}

func TestStore_CorruptRecordIsReported(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	err := s.DB().Update(func(txn *badgerdb.Txn) error {
		return txn.Set([]byte("querykit:snapshot:bad"), []byte("{"))
	})
	if err != nil {
		t.Fatalf("injecting corrupt record failed: %v", err)
	}

	_, err = s.Load(context.Background())
	if !errors.Is(err, persistence.ErrCorruptSnapshot) {
		t.Errorf("Load error = %v, want ErrCorruptSnapshot", err)
	}
}

func TestStore_PrefixIsolation(t *testing.T) {
	base := newTestStore(t)
	defer base.Close()

	a := badger.NewStoreFromDB(base.DB(), "a:")
	b := badger.NewStoreFromDB(base.DB(), "b:")

	ctx := context.Background()
	if err := a.Save(ctx, sampleRecords()); err != nil {
		t.Fatalf("Save on a failed: %v", err)
	}
	if err := b.Save(ctx, sampleRecords()[:1]); err != nil {
		t.Fatalf("Save on b failed: %v", err)
	}

	gotA, err := a.Load(ctx)
	if err != nil {
		t.Fatalf("Load on a failed: %v", err)
	}
	if len(gotA) != 2 {
		t.Errorf("a.Load returned %d records, want 2", len(gotA))
	}

	if err := a.Clear(ctx); err != nil {
		t.Fatalf("Clear on a failed: %v", err)
	}
	gotB, err := b.Load(ctx)
	if err != nil {
		t.Fatalf("Load on b failed: %v", err)
	}
	if len(gotB) != 1 {
		t.Errorf("b.Load returned %d records after a.Clear, want 1", len(gotB))
	}
}

func TestStore_GCLoopStopsOnClose(t *testing.T) {
	s, err := badger.NewStore(badger.DefaultConfig(),
		badger.WithInMemory(),
		badger.WithGCInterval(10*time.Millisecond),
	)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	if err := s.Save(context.Background(), sampleRecords()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	time.Sleep(30 * time.Millisecond)

	if err := s.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}
