// Package main demonstrates a mutation with automatic invalidation: a
// subscribed probe list refetches by itself after a create succeeds.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	httptransport "github.com/felixgeelhaar/querykit/infrastructure/transport"
	"github.com/felixgeelhaar/querykit/interfaces/api"
	"github.com/felixgeelhaar/querykit/pack/probes"
)

func main() {
	// 1. Fake backend with real write state: creates append to the list
	//    that later reads return.
	var mu sync.Mutex
	stored := []probes.Probe{
		{ID: "probe-1", Brand: "Acme", Status: "active", Frequency: "daily"},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /probes/", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		list := probes.List{Probes: append([]probes.Probe(nil), stored...), Total: len(stored)}
		mu.Unlock()
		_ = json.NewEncoder(w).Encode(list)
	})
	mux.HandleFunc("POST /probes/create", func(w http.ResponseWriter, r *http.Request) {
		var req probes.CreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		mu.Lock()
		probe := probes.Probe{
			ID:        fmt.Sprintf("probe-%d", len(stored)+1),
			Brand:     req.Brand,
			Keywords:  req.Keywords,
			Frequency: req.Frequency,
			Engines:   req.Engines,
			Status:    "active",
		}
		stored = append(stored, probe)
		mu.Unlock()
		_ = json.NewEncoder(w).Encode(probe)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	// 2. Client and the probe list query.
	transport, err := httptransport.New(server.URL)
	if err != nil {
		log.Fatal(err)
	}
	client, err := api.New(transport)
	if err != nil {
		log.Fatal(err)
	}
	defer client.Close()

	query, err := probes.NewListQuery(client)
	if err != nil {
		log.Fatal(err)
	}

	// 3. Subscribe before mutating. The refreshed channel fires once the
	//    post-create refetch lands with the grown list.
	refreshed := make(chan probes.List, 1)
	cancel, err := query.Subscribe(func(r api.QueryResult[probes.List]) {
		fmt.Printf("  state=%-8s stale=%-5t probes=%d\n", r.Status, r.Stale, r.Data.Total)
		if r.Status == api.StatusSuccess && !r.IsFetching && r.Data.Total > 1 {
			select {
			case refreshed <- r.Data:
			default:
			}
		}
	})
	if err != nil {
		log.Fatal(err)
	}
	defer cancel()

	fmt.Println("=== Mutation Example ===")
	before, err := query.Value(context.Background())
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("before create: %d probe(s)\n", before.Total)

	// 4. The create mutation from the probe pack already declares that
	//    success invalidates everything under the probes prefix.
	create, err := probes.NewCreateMutation(client)
	if err != nil {
		log.Fatal(err)
	}
	probe, err := create.Mutate(context.Background(), probes.CreateRequest{
		Brand:     "Acme",
		Keywords:  []string{"acme analytics", "acme dashboards"},
		Frequency: probes.FrequencyDaily,
	})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("created %s (%s)\n", probe.ID, probe.Frequency)

	// 5. No manual refetch. Invalidation marked the list stale, and the
	//    live subscription triggered the refresh on its own.
	select {
	case list := <-refreshed:
		fmt.Printf("after create:  %d probe(s)\n", list.Total)
		for _, p := range list.Probes {
			fmt.Printf("  %s  %s\n", p.ID, p.Brand)
		}
	case <-time.After(2 * time.Second):
		log.Fatal("timed out waiting for the invalidation refetch")
	}
}
