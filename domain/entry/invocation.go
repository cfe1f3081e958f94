package entry

import (
	"time"

	"github.com/google/uuid"
)

// Invocation is the one-shot record of a single mutation call. It has no
// persistent identity: the owning mutation discards it once the caller has
// observed the outcome.
type Invocation struct {
	// ID uniquely identifies this invocation.
	ID string `json:"id"`

	// Mutation is the name of the mutation that was invoked.
	Mutation string `json:"mutation"`

	// Status is the lifecycle position.
	Status Status `json:"status"`

	// Input is the request payload the caller supplied.
	Input any `json:"input,omitempty"`

	// Result is the decoded response payload on success.
	Result any `json:"result,omitempty"`

	// Err is the classified failure, if any.
	Err error `json:"-"`

	// StartedAt is when the invocation began.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the invocation settled.
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

// NewInvocation creates a loading invocation for the named mutation.
func NewInvocation(mutation string, input any) *Invocation {
	return &Invocation{
		ID:        uuid.New().String(),
		Mutation:  mutation,
		Status:    StatusLoading,
		Input:     input,
		StartedAt: time.Now(),
	}
}

// Succeed settles the invocation with a result.
func (inv *Invocation) Succeed(result any) {
	inv.Status = StatusSuccess
	inv.Result = result
	inv.FinishedAt = time.Now()
}

// Fail settles the invocation with an error.
func (inv *Invocation) Fail(err error) {
	inv.Status = StatusError
	inv.Err = err
	inv.FinishedAt = time.Now()
}

// Duration returns how long the invocation ran.
func (inv *Invocation) Duration() time.Duration {
	if inv.FinishedAt.IsZero() {
		return time.Since(inv.StartedAt)
	}
	return inv.FinishedAt.Sub(inv.StartedAt)
}
