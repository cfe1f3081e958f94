package citations_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	httptransport "github.com/felixgeelhaar/querykit/infrastructure/transport"
	"github.com/felixgeelhaar/querykit/interfaces/api"
	"github.com/felixgeelhaar/querykit/pack/citations"
)

func newClient(t *testing.T, h http.Handler) *api.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	tr, err := httptransport.New(srv.URL)
	if err != nil {
		t.Fatalf("httptransport.New() error = %v", err)
	}
	c, err := api.New(tr)
	if err != nil {
		t.Fatalf("api.New() error = %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestNewMetricsQuery(t *testing.T) {
	t.Parallel()

	t.Run("fetches metrics with the default timeframe", func(t *testing.T) {
		t.Parallel()

		var gotPath, gotTimeframe atomic.Value
		c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath.Store(r.URL.Path)
			gotTimeframe.Store(r.URL.Query().Get("timeframe"))
			_ = json.NewEncoder(w).Encode(citations.Metrics{
				TotalCitations:     42,
				CitationRate:       0.6,
				AvgCredibility:     0.74,
				HTTPSRate:          0.9,
				OfficialDomainRate: 0.25,
				PositionDistribution: map[string]int{
					"early": 18, "middle": 15, "late": 9,
				},
				CredibilityDistribution: map[string]int{
					"high": 20, "medium": 14, "low": 8,
				},
			})
		}))

		q, err := citations.NewMetricsQuery(c, "brand-1", "")
		if err != nil {
			t.Fatalf("NewMetricsQuery() error = %v", err)
		}
		if got, want := q.Key().String(), citations.MetricsKey("brand-1", citations.DefaultTimeframe).String(); got != want {
			t.Fatalf("Key() = %q, want %q", got, want)
		}

		m, err := q.Value(context.Background())
		if err != nil {
			t.Fatalf("Value() error = %v", err)
		}
		if m.TotalCitations != 42 || m.AvgCredibility != 0.74 {
			t.Fatalf("Value() = %+v, want 42 citations with credibility 0.74", m)
		}
		if m.PositionDistribution["early"] != 18 {
			t.Errorf("PositionDistribution[early] = %d, want 18", m.PositionDistribution["early"])
		}
		if got := gotPath.Load(); got != "/citations/metrics/brand-1" {
			t.Errorf("request path = %v, want /citations/metrics/brand-1", got)
		}
		if got := gotTimeframe.Load(); got != citations.DefaultTimeframe {
			t.Errorf("timeframe param = %v, want %q", got, citations.DefaultTimeframe)
		}
	})

	t.Run("rejects empty brand id", func(t *testing.T) {
		t.Parallel()
		c := newClient(t, http.NotFoundHandler())
		if _, err := citations.NewMetricsQuery(c, "", ""); !errors.Is(err, citations.ErrEmptyBrandID) {
			t.Fatalf("NewMetricsQuery() error = %v, want %v", err, citations.ErrEmptyBrandID)
		}
	})

	t.Run("rejects unknown timeframe", func(t *testing.T) {
		t.Parallel()
		c := newClient(t, http.NotFoundHandler())
		if _, err := citations.NewMetricsQuery(c, "brand-1", "14d"); !errors.Is(err, citations.ErrInvalidTimeframe) {
			t.Fatalf("NewMetricsQuery() error = %v, want %v", err, citations.ErrInvalidTimeframe)
		}
	})

	t.Run("invalidates under the brand prefix", func(t *testing.T) {
		t.Parallel()

		c := newClient(t, http.NotFoundHandler())
		if err := c.Store().Set(citations.MetricsKey("brand-1", "7d"), citations.Metrics{}); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		if err := c.Store().Set(citations.MetricsKey("brand-2", "7d"), citations.Metrics{}); err != nil {
			t.Fatalf("Set() error = %v", err)
		}

		if got := c.Invalidate(context.Background(), citations.BrandMetricsPrefix("brand-1")); got != 1 {
			t.Fatalf("Invalidate() = %d, want 1", got)
		}
		view, ok := c.Store().Get(citations.MetricsKey("brand-2", "7d"))
		if !ok || view.Stale {
			t.Error("brand-2 metrics invalidated by brand-1 prefix")
		}
	})
}

func TestNewExtractMutation(t *testing.T) {
	t.Parallel()

	t.Run("extracts citations from answer text", func(t *testing.T) {
		t.Parallel()

		var hits atomic.Int32
		c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || r.URL.Path != "/citations/extract" {
				http.NotFound(w, r)
				return
			}
			hits.Add(1)
			var req citations.ExtractRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			_ = json.NewEncoder(w).Encode([]citations.Citation{
				{
					Text:        "see https://acme.com/docs",
					Type:        "url",
					URL:         "https://acme.com/docs",
					Position:    1,
					Credibility: 0.9,
					Domain:      "acme.com",
					IsHTTPS:     true,
					IsOfficial:  true,
				},
			})
		}))

		m, err := citations.NewExtractMutation(c)
		if err != nil {
			t.Fatalf("NewExtractMutation() error = %v", err)
		}
		if m.Name() != citations.MutationExtract {
			t.Fatalf("Name() = %q, want %q", m.Name(), citations.MutationExtract)
		}

		found, err := m.Mutate(context.Background(), citations.ExtractRequest{
			ResponseText: "Acme is popular, see https://acme.com/docs for details.",
		})
		if err != nil {
			t.Fatalf("Mutate() error = %v", err)
		}
		if len(found) != 1 || found[0].Domain != "acme.com" || !found[0].IsOfficial {
			t.Fatalf("Mutate() = %+v, want one official acme.com citation", found)
		}
		if m.Status() != api.StatusSuccess {
			t.Errorf("Status() = %v, want %v", m.Status(), api.StatusSuccess)
		}

		inv := m.LastInvocation()
		if inv == nil || inv.Mutation != citations.MutationExtract {
			t.Fatalf("LastInvocation() = %+v, want settled extraction", inv)
		}
	})

	t.Run("rejects empty text without a request", func(t *testing.T) {
		t.Parallel()

		var hits atomic.Int32
		c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			_ = json.NewEncoder(w).Encode([]citations.Citation{})
		}))

		m, err := citations.NewExtractMutation(c)
		if err != nil {
			t.Fatalf("NewExtractMutation() error = %v", err)
		}
		if _, err := m.Mutate(context.Background(), citations.ExtractRequest{}); !errors.Is(err, citations.ErrEmptyResponseText) {
			t.Fatalf("Mutate() error = %v, want %v", err, citations.ErrEmptyResponseText)
		}
		if got := hits.Load(); got != 0 {
			t.Errorf("server hits = %d, want 0", got)
		}
	})
}
