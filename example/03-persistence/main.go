// Package main demonstrates snapshot persistence: one process run saves
// the cache to disk, the next starts warm from it and shows data before
// any network request.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/felixgeelhaar/querykit/domain/config"
	"github.com/felixgeelhaar/querykit/interfaces/api"
	"github.com/felixgeelhaar/querykit/pack/probes"
)

func main() {
	// 1. Fake backend with a request counter, so the warm start below can
	//    prove it served data without going out.
	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		_ = json.NewEncoder(w).Encode(probes.List{
			Probes: []probes.Probe{
				{ID: "probe-1", Brand: "Acme", Status: "active", Frequency: "daily"},
				{ID: "probe-2", Brand: "Acme", Status: "active", Frequency: "weekly"},
			},
			Total: 2,
		})
	}))
	defer server.Close()

	// 2. One config for both runs: filesystem persistence pointing at a
	//    snapshot file that survives the first client.
	dir, err := os.MkdirTemp("", "querykit-example-*")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)

	cfg := config.Default()
	cfg.Transport.BaseURL = server.URL
	cfg.Logging.Level = "error"
	cfg.Persistence.Enabled = true
	cfg.Persistence.Backend = "filesystem"
	cfg.Persistence.Path = filepath.Join(dir, "snapshot.json")

	ctx := context.Background()
	fmt.Println("=== Persistence Example ===")

	// 3. First run: fetch the list over the network, then snapshot the
	//    cache and shut down.
	first, err := api.FromConfig(cfg)
	if err != nil {
		log.Fatal(err)
	}
	query, err := probes.NewListQuery(first)
	if err != nil {
		log.Fatal(err)
	}
	list, err := query.Value(ctx)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("first run:  fetched %d probe(s), %d request(s)\n", list.Total, requests.Load())

	if err := first.SaveSnapshot(ctx); err != nil {
		log.Fatal(err)
	}
	if err := first.Close(); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("snapshot saved to %s\n", cfg.Persistence.Path)

	// 4. Warm start: a fresh client restores the snapshot before touching
	//    the network at all.
	second, err := api.FromConfig(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer second.Close()

	restored, err := second.LoadSnapshot(ctx)
	if err != nil {
		log.Fatal(err)
	}
	query, err = probes.NewListQuery(second)
	if err != nil {
		log.Fatal(err)
	}

	// 5. The restored entry is immediately readable. It is marked stale,
	//    which tells the UI to render it while a refresh runs.
	snap := query.Snapshot()
	fmt.Printf("warm start: restored %d entr(ies), data=%t stale=%t, still %d request(s)\n",
		restored, snap.HasData(), snap.Stale, requests.Load())
	for _, p := range snap.Data.Probes {
		fmt.Printf("  %s  %s (from disk)\n", p.ID, p.Brand)
	}

	// 6. Reading the value refreshes the stale entry from the server.
	list, err = query.Value(ctx)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("refreshed:  %d probe(s), %d request(s) total\n", list.Total, requests.Load())
}
