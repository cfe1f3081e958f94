package statemachine

import (
	"github.com/felixgeelhaar/statekit"

	"github.com/felixgeelhaar/querykit/domain/entry"
)

// guardCanTransition checks the transition against the domain policy.
// Note: In statekit, guards receive the context by value. Since our
// context is *Context, the guard receives *Context directly.
func guardCanTransition(ctx *Context, event statekit.Event) bool {
	if ctx == nil {
		return false
	}

	from := ctx.Current

	var to entry.Status
	if payload, ok := event.Payload.(TransitionPayload); ok {
		to = payload.ToStatus
	} else {
		to = statusFromEventType(event.Type)
	}

	return from.CanTransition(to)
}

// statusFromEventType derives the target status from an event type.
func statusFromEventType(eventType statekit.EventType) entry.Status {
	switch eventType {
	case "START":
		return entry.StatusLoading
	case "RESOLVE":
		return entry.StatusSuccess
	case "REJECT":
		return entry.StatusError
	case "RESET":
		return entry.StatusIdle
	default:
		return entry.Status(eventType)
	}
}
