package statemachine

import (
	"time"

	"github.com/felixgeelhaar/statekit"

	"github.com/felixgeelhaar/querykit/domain/entry"
)

// recordTransition appends the applied transition to the context history
// and advances the mirrored status.
// In statekit, actions receive a pointer to the context. Since our context
// is *Context, actions receive **Context.
func recordTransition(ctx **Context, event statekit.Event) {
	if ctx == nil || *ctx == nil {
		return
	}

	c := *ctx
	from := c.Current

	var to entry.Status
	var reason string
	if payload, ok := event.Payload.(TransitionPayload); ok {
		to = payload.ToStatus
		reason = payload.Reason
	} else {
		to = statusFromEventType(event.Type)
	}

	if to == "" {
		return
	}

	c.History = append(c.History, Transition{
		From:   from,
		To:     to,
		Reason: reason,
		At:     time.Now(),
	})
	c.Current = to
}
