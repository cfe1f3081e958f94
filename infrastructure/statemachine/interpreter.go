package statemachine

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"

	"github.com/felixgeelhaar/querykit/domain/entry"
)

// TransitionPayload carries additional data with a transition event.
type TransitionPayload struct {
	ToStatus entry.Status
	Reason   string
}

// Interpreter wraps the statekit interpreter with lifecycle-specific
// functionality.
type Interpreter struct {
	interp *statekit.Interpreter[*Context]
	ctx    *Context
}

// NewInterpreter creates a new interpreter for the lifecycle machine.
func NewInterpreter(machine *statekit.MachineConfig[*Context], ctx *Context) *Interpreter {
	interp := statekit.NewInterpreter(machine)
	// Update the context reference in the machine
	interp.UpdateContext(func(c **Context) {
		*c = ctx
	})
	return &Interpreter{
		interp: interp,
		ctx:    ctx,
	}
}

// Start initializes the interpreter and enters the initial state.
func (i *Interpreter) Start() {
	i.interp.Start()
	state := i.interp.State()
	i.ctx.Current = entry.Status(state.Value)
}

// Stop stops the interpreter.
func (i *Interpreter) Stop() {
	i.interp.Stop()
}

// Status returns the current lifecycle status.
func (i *Interpreter) Status() entry.Status {
	state := i.interp.State()
	return entry.Status(state.Value)
}

// Transition attempts to move the lifecycle to the target status.
func (i *Interpreter) Transition(to entry.Status, reason string) error {
	if !i.CanTransition(to) {
		return fmt.Errorf("%w: %s to %s", entry.ErrInvalidTransition, i.ctx.Current, to)
	}

	event := statekit.Event{
		Type: EventForTransition(to),
		Payload: TransitionPayload{
			ToStatus: to,
			Reason:   reason,
		},
	}

	// Send does not return an error; guards drop disallowed events.
	i.interp.Send(event)

	state := i.interp.State()
	i.ctx.Current = entry.Status(state.Value)

	return nil
}

// CanTransition checks if a transition to the target status is allowed.
func (i *Interpreter) CanTransition(to entry.Status) bool {
	return i.ctx.Current.CanTransition(to)
}

// Matches checks if the current state matches the given status.
func (i *Interpreter) Matches(status entry.Status) bool {
	return i.interp.Matches(statekit.StateID(status))
}

// History returns the applied transitions in order.
func (i *Interpreter) History() []Transition {
	out := make([]Transition, len(i.ctx.History))
	copy(out, i.ctx.History)
	return out
}

// Context returns the interpreter context.
func (i *Interpreter) Context() *Context {
	return i.ctx
}
