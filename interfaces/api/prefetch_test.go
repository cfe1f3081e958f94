package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/felixgeelhaar/querykit/domain/transport"
	"github.com/felixgeelhaar/querykit/infrastructure/store"
	httptransport "github.com/felixgeelhaar/querykit/infrastructure/transport"
	"github.com/felixgeelhaar/querykit/interfaces/api"
)

func TestClient_Prefetch(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	hits := map[string]int{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits[r.URL.Path]++
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(probe{ID: r.URL.Path})
	}))
	t.Cleanup(srv.Close)
	tr, err := httptransport.New(srv.URL)
	if err != nil {
		t.Fatalf("transport.New() error = %v", err)
	}
	c, err := api.New(tr)
	if err != nil {
		t.Fatalf("api.New() error = %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	keys := []api.Key{
		api.NewKey("probes", "results", "p-1"),
		api.NewKey("probes", "results", "p-2"),
		api.NewKey("probes", "results", "p-3"),
	}
	for i, k := range keys {
		path := fmt.Sprintf("/probes/p-%d/results", i+1)
		if err := c.Store().Bind(k, func(ctx context.Context) (any, error) {
			return transport.Get[probe](ctx, c.Transport(), path, nil)
		}); err != nil {
			t.Fatalf("Bind() error = %v", err)
		}
	}

	if err := c.Prefetch(context.Background(), keys...); err != nil {
		t.Fatalf("Prefetch() error = %v", err)
	}
	for _, k := range keys {
		view, ok := c.Store().Get(k)
		if !ok || view.Status != api.StatusSuccess {
			t.Errorf("key %v not warmed, status %q", k, view.Status)
		}
	}
	mu.Lock()
	total := 0
	for _, n := range hits {
		total += n
	}
	mu.Unlock()
	if total != 3 {
		t.Errorf("requests = %d, want 3", total)
	}

	// Warm entries make a second pass free.
	if err := c.Prefetch(context.Background(), keys...); err != nil {
		t.Fatalf("second Prefetch() error = %v", err)
	}
	mu.Lock()
	total = 0
	for _, n := range hits {
		total += n
	}
	mu.Unlock()
	if total != 3 {
		t.Errorf("requests after warm prefetch = %d, want still 3", total)
	}
}

func TestClient_PrefetchEmpty(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, nil)
	if err := c.Prefetch(context.Background()); err != nil {
		t.Errorf("Prefetch() with no keys error = %v, want nil", err)
	}
}

func TestClient_PrefetchPropagatesFailure(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, nil)
	bound := api.NewKey("probes", "results", "p-1")
	errBroken := errors.New("backend unavailable")
	if err := c.Store().Bind(bound, func(ctx context.Context) (any, error) {
		return nil, errBroken
	}); err != nil {
		t.Fatalf("Bind() error = %v", err)
	}

	err := c.Prefetch(context.Background(), bound)
	if !errors.Is(err, errBroken) {
		t.Errorf("Prefetch() error = %v, want fetch failure", err)
	}

	if err := c.Prefetch(context.Background(), api.NewKey("probes", "unbound")); !errors.Is(err, store.ErrNoFetcher) {
		t.Errorf("Prefetch() unbound error = %v, want ErrNoFetcher", err)
	}
}
