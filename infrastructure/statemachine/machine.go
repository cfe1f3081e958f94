// Package statemachine provides the statekit integration for the query
// and mutation lifecycle: idle, loading, success, error, with the domain
// transition policy enforced as guards.
package statemachine

import (
	"time"

	"github.com/felixgeelhaar/statekit"

	"github.com/felixgeelhaar/querykit/domain/entry"
)

// Context carries lifecycle state through the state machine.
type Context struct {
	// Name identifies the unit driving the machine, such as a mutation
	// name or a canonical query key.
	Name string

	// Current mirrors the machine state as a domain status.
	Current entry.Status

	// History records applied transitions in order.
	History []Transition
}

// Transition is one applied lifecycle transition.
type Transition struct {
	From   entry.Status
	To     entry.Status
	Reason string
	At     time.Time
}

// NewContext creates a machine context for the named unit.
func NewContext(name string) *Context {
	return &Context{
		Name:    name,
		Current: entry.StatusIdle,
	}
}

// State IDs as StateID type for statekit.
const (
	stateIdle    statekit.StateID = statekit.StateID(entry.StatusIdle)
	stateLoading statekit.StateID = statekit.StateID(entry.StatusLoading)
	stateSuccess statekit.StateID = statekit.StateID(entry.StatusSuccess)
	stateError   statekit.StateID = statekit.StateID(entry.StatusError)
)

// NewLifecycleMachine creates the canonical lifecycle statechart.
// The loading state defines no START transition, so a busy unit ignores
// further start events until it settles.
func NewLifecycleMachine() (*statekit.MachineConfig[*Context], error) {
	return statekit.NewMachine[*Context]("lifecycle").
		WithInitial(stateIdle).
		WithContext(&Context{}).
		// Register actions
		WithAction("recordTransition", recordTransition).
		// Register guards
		WithGuard("canTransition", guardCanTransition).
		// Define states
		State(stateIdle).
			On("START").Target(stateLoading).Guard("canTransition").Do("recordTransition").
			Done().
		State(stateLoading).
			On("RESOLVE").Target(stateSuccess).Guard("canTransition").Do("recordTransition").
			On("REJECT").Target(stateError).Guard("canTransition").Do("recordTransition").
			Done().
		State(stateSuccess).
			On("START").Target(stateLoading).Guard("canTransition").Do("recordTransition").
			Done().
		State(stateError).
			On("START").Target(stateLoading).Guard("canTransition").Do("recordTransition").
			On("RESET").Target(stateIdle).Guard("canTransition").Do("recordTransition").
			Done().
		Build()
}

// EventForTransition returns the event type that drives the machine
// toward the given status.
func EventForTransition(to entry.Status) statekit.EventType {
	switch to {
	case entry.StatusLoading:
		return "START"
	case entry.StatusSuccess:
		return "RESOLVE"
	case entry.StatusError:
		return "REJECT"
	case entry.StatusIdle:
		return "RESET"
	default:
		return statekit.EventType(to)
	}
}

// StatusFromMachine converts the machine state ID to a domain status.
func StatusFromMachine(stateID statekit.StateID) entry.Status {
	return entry.Status(stateID)
}
