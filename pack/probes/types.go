// Package probes provides typed bindings for the brand visibility probe
// API: scheduled LLM queries that measure whether and where a brand
// shows up in generated answers, exposed as cached query and mutation
// units over the client facade.
package probes

import (
	"errors"
	"fmt"
)

// Scheduling frequencies the probe API accepts.
const (
	FrequencyHourly = "hourly"
	FrequencyDaily  = "daily"
	FrequencyWeekly = "weekly"
)

// Result timeframes the probe API accepts.
const (
	Timeframe7D  = "7d"
	Timeframe30D = "30d"
	Timeframe90D = "90d"
	Timeframe1Y  = "1y"
)

// Binding errors.
var (
	ErrEmptyBrand       = errors.New("empty brand")
	ErrNoKeywords       = errors.New("no keywords")
	ErrInvalidFrequency = errors.New("invalid frequency")
	ErrInvalidTimeframe = errors.New("invalid timeframe")
	ErrEmptyJobID       = errors.New("empty job id")
)

// DefaultEngines returns the engines a probe queries when the request
// names none.
func DefaultEngines() []string {
	return []string{"gpt-4", "claude-3", "gemini-pro"}
}

// ValidFrequency reports whether the API accepts the frequency.
func ValidFrequency(f string) bool {
	switch f {
	case FrequencyHourly, FrequencyDaily, FrequencyWeekly:
		return true
	default:
		return false
	}
}

// ValidTimeframe reports whether the results endpoint accepts the
// timeframe.
func ValidTimeframe(tf string) bool {
	switch tf {
	case Timeframe7D, Timeframe30D, Timeframe90D, Timeframe1Y:
		return true
	default:
		return false
	}
}

// CreateRequest asks the scheduler for a new probe job.
type CreateRequest struct {
	// Brand is the brand whose visibility the probe measures.
	Brand string `json:"brand"`

	// Keywords are the search queries each engine is asked.
	Keywords []string `json:"keywords"`

	// Frequency schedules recurring runs. Empty defaults to daily on
	// the server.
	Frequency string `json:"frequency,omitempty"`

	// Engines lists the LLM engines to query. Empty means the server
	// default set.
	Engines []string `json:"llm_engines,omitempty"`
}

// Validate checks the request before it leaves the client.
func (r CreateRequest) Validate() error {
	if r.Brand == "" {
		return ErrEmptyBrand
	}
	if len(r.Keywords) == 0 {
		return ErrNoKeywords
	}
	if r.Frequency != "" && !ValidFrequency(r.Frequency) {
		return fmt.Errorf("%w: %q", ErrInvalidFrequency, r.Frequency)
	}
	return nil
}

// Probe is a scheduled visibility job.
type Probe struct {
	ID        string   `json:"id"`
	Brand     string   `json:"brand"`
	Keywords  []string `json:"keywords"`
	Frequency string   `json:"frequency"`
	Engines   []string `json:"llm_engines"`
	Status    string   `json:"status"`

	// Timestamps keep the server's ISO encoding verbatim.
	CreatedAt string `json:"created_at,omitempty"`
	LastRunAt string `json:"last_run_at,omitempty"`
	NextRunAt string `json:"next_run_at,omitempty"`
}

// List is the list endpoint payload.
type List struct {
	Probes []Probe `json:"probes"`
	Total  int     `json:"total"`
}

// DataPoint is one engine answer observation.
type DataPoint struct {
	Timestamp   string `json:"timestamp"`
	Brand       string `json:"brand"`
	Keyword     string `json:"keyword"`
	Engine      string `json:"llm_engine"`
	IsMentioned bool   `json:"is_mentioned"`

	// Position counts sentences before the first brand mention, -1 when
	// the brand never appears.
	Position int `json:"position"`

	// ResponseText is the engine answer, truncated by the server.
	ResponseText string `json:"response_text,omitempty"`
}

// VisibilityScore aggregates data points into the dashboard score.
// Components are percentages except Trend, which is a signed delta.
type VisibilityScore struct {
	Overall       float64 `json:"overall"`
	MentionRate   float64 `json:"mention_rate"`
	PositionScore float64 `json:"position_score"`
	Consistency   float64 `json:"consistency"`
	Trend         float64 `json:"trend"`
}

// Results is the outcome payload for one job: an immediate execution or
// a timeframe read. Timeframe is empty for execution results.
type Results struct {
	JobID           string          `json:"job_id"`
	Brand           string          `json:"brand"`
	Timeframe       string          `json:"timeframe,omitempty"`
	DataPoints      []DataPoint     `json:"data_points"`
	VisibilityScore VisibilityScore `json:"visibility_score"`
}
