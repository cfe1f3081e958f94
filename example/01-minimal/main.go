// Package main demonstrates the absolute minimum working client: one
// cached query against a fake backend. This is the simplest possible
// querykit example.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"sync/atomic"

	httptransport "github.com/felixgeelhaar/querykit/infrastructure/transport"
	"github.com/felixgeelhaar/querykit/interfaces/api"
	"github.com/felixgeelhaar/querykit/pack/probes"
)

func main() {
	// 1. Fake backend. Any server speaking the probe API works here; the
	//    request counter shows how often the client actually goes out.
	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		_ = json.NewEncoder(w).Encode(probes.List{
			Probes: []probes.Probe{
				{ID: "probe-1", Brand: "Acme", Status: "active", Frequency: "daily"},
				{ID: "probe-2", Brand: "Acme", Status: "paused", Frequency: "weekly"},
			},
			Total: 2,
		})
	}))
	defer server.Close()

	// 2. Build the client: an HTTP transport plus the cache facade.
	transport, err := httptransport.New(server.URL)
	if err != nil {
		log.Fatal(err)
	}
	client, err := api.New(transport)
	if err != nil {
		log.Fatal(err)
	}
	defer client.Close()

	// 3. Bind the probe list as a typed query.
	query, err := probes.NewListQuery(client)
	if err != nil {
		log.Fatal(err)
	}

	// 4. Observe every state change: loading first, then success.
	cancel, err := query.Subscribe(func(r api.QueryResult[probes.List]) {
		fmt.Printf("  state=%-8s fetching=%-5t probes=%d\n", r.Status, r.IsFetching, r.Data.Total)
	})
	if err != nil {
		log.Fatal(err)
	}
	defer cancel()

	// 5. Read the value. The first read waits for the fetch the
	//    subscription started; the second is served from the cache.
	fmt.Println("=== Minimal Query Example ===")
	list, err := query.Value(context.Background())
	if err != nil {
		log.Fatal(err)
	}
	for _, p := range list.Probes {
		fmt.Printf("  %s  %-8s %s\n", p.ID, p.Status, p.Brand)
	}

	if _, err := query.Value(context.Background()); err != nil {
		log.Fatal(err)
	}

	// 6. Two reads, one request.
	stats := client.Stats()
	fmt.Printf("server requests=%d cache hits=%d\n", requests.Load(), stats.Counters.Hits)
}
