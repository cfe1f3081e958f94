// Package citations provides typed bindings for the citation analysis
// API: extracting source references from LLM answer text and reading
// per-brand citation quality metrics as cached queries.
package citations

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/felixgeelhaar/querykit/domain/transport"
	"github.com/felixgeelhaar/querykit/interfaces/api"
)

const namespace = "citations"

// MutationExtract names the extraction mutation in the invalidation
// router and in logs.
const MutationExtract = "citations.extract"

// DefaultTimeframe is the metrics window used when none is given.
const DefaultTimeframe = "30d"

var validTimeframes = map[string]struct{}{
	"7d": {}, "30d": {}, "90d": {}, "1y": {},
}

// Binding errors.
var (
	ErrEmptyResponseText = errors.New("empty response text")
	ErrEmptyBrandID      = errors.New("empty brand id")
	ErrInvalidTimeframe  = errors.New("invalid timeframe")
)

// ExtractRequest carries the answer text to mine for citations.
type ExtractRequest struct {
	ResponseText string `json:"response_text"`
}

// Validate checks the request before it leaves the client.
func (r ExtractRequest) Validate() error {
	if r.ResponseText == "" {
		return ErrEmptyResponseText
	}
	return nil
}

// Citation is one source reference found in answer text.
type Citation struct {
	Text string `json:"text"`

	// Type classifies the reference: url, domain_mention, or brand_mention.
	Type string `json:"type"`

	URL string `json:"url,omitempty"`

	// Position counts sentences before the citation appears.
	Position int `json:"position"`

	// Credibility scores the source between 0 and 1.
	Credibility float64 `json:"credibility"`

	Domain     string `json:"domain,omitempty"`
	IsHTTPS    bool   `json:"is_https"`
	IsOfficial bool   `json:"is_official"`
}

// Metrics aggregates citation quality for one brand over a timeframe.
// Rates are fractions between 0 and 1.
type Metrics struct {
	TotalCitations          int            `json:"total_citations"`
	CitationRate            float64        `json:"citation_rate"`
	AvgCredibility          float64        `json:"avg_credibility"`
	HTTPSRate               float64        `json:"https_rate"`
	OfficialDomainRate      float64        `json:"official_domain_rate"`
	PositionDistribution    map[string]int `json:"position_distribution"`
	CredibilityDistribution map[string]int `json:"credibility_distribution"`
}

// Prefix covers every cached citation entry.
func Prefix() api.Prefix {
	return api.NewPrefix(namespace)
}

// MetricsKey identifies one brand's cached metrics for one timeframe.
func MetricsKey(brandID, timeframe string) api.Key {
	return api.NewKey(namespace, "metrics", brandID, timeframe)
}

// MetricsPrefix covers every cached metrics entry.
func MetricsPrefix() api.Prefix {
	return api.NewPrefix(namespace, "metrics")
}

// BrandMetricsPrefix covers one brand's cached metrics across
// timeframes.
func BrandMetricsPrefix(brandID string) api.Prefix {
	return api.NewPrefix(namespace, "metrics", brandID)
}

// NewMetricsQuery binds one brand's citation metrics endpoint as a
// cached query. An empty timeframe reads the default window.
func NewMetricsQuery(c *api.Client, brandID, timeframe string, opts ...api.QueryOption) (*api.Query[Metrics], error) {
	if brandID == "" {
		return nil, ErrEmptyBrandID
	}
	if timeframe == "" {
		timeframe = DefaultTimeframe
	}
	if _, ok := validTimeframes[timeframe]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimeframe, timeframe)
	}
	tf := timeframe
	path := "/citations/metrics/" + url.PathEscape(brandID)
	return api.NewQuery(c, MetricsKey(brandID, tf), func(ctx context.Context) (Metrics, error) {
		return transport.Get[Metrics](ctx, c.Transport(), path, map[string]string{"timeframe": tf})
	}, opts...)
}

// NewExtractMutation binds the citation extraction endpoint. Extraction
// is a pure analysis call, so success invalidates nothing.
func NewExtractMutation(c *api.Client) (*api.Mutation[ExtractRequest, []Citation], error) {
	return api.NewMutation(c, MutationExtract, func(ctx context.Context, req ExtractRequest) ([]Citation, error) {
		if err := req.Validate(); err != nil {
			return nil, err
		}
		return transport.Post[ExtractRequest, []Citation](ctx, c.Transport(), "/citations/extract", req)
	})
}
