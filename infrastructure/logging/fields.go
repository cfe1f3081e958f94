package logging

import (
	"time"

	"github.com/felixgeelhaar/bolt/v3"

	"github.com/felixgeelhaar/querykit/domain/entry"
	"github.com/felixgeelhaar/querykit/domain/key"
)

// Field is a function that applies structured data to a log event.
type Field func(*bolt.Event) *bolt.Event

// Common field constructors for query cache logging.

// Key adds the canonical query key.
func Key(k key.Key) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("key", k.String())
	}
}

// Prefix adds an invalidation prefix.
func Prefix(p key.Prefix) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("prefix", p.String())
	}
}

// Status adds an entry status field.
func Status(s entry.Status) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("status", string(s))
	}
}

// FromStatus adds a from_status field for transitions.
func FromStatus(s entry.Status) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("from_status", string(s))
	}
}

// ToStatus adds a to_status field for transitions.
func ToStatus(s entry.Status) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("to_status", string(s))
	}
}

// Token adds the request ordering token.
func Token(t uint64) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int64("token", int64(t))
	}
}

// Subscribers adds the subscriber count for a key.
func Subscribers(n int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int("subscribers", n)
	}
}

// Method adds the HTTP method.
func Method(m string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("method", m)
	}
}

// Endpoint adds the request path.
func Endpoint(path string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("endpoint", path)
	}
}

// StatusCode adds the HTTP response status.
func StatusCode(code int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int("status_code", code)
	}
}

// Attempt adds the retry attempt number.
func Attempt(n int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int("attempt", n)
	}
}

// Duration adds a duration field in milliseconds.
func Duration(d time.Duration) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int64("duration_ms", d.Milliseconds())
	}
}

// Hit adds a cache hit field.
func Hit(hit bool) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Bool("hit", hit)
	}
}

// Stale adds a staleness marker.
func Stale(stale bool) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Bool("stale", stale)
	}
}

// Mutation adds a mutation name field.
func Mutation(name string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("mutation", name)
	}
}

// InvocationID adds a mutation invocation ID.
func InvocationID(id string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("invocation_id", id)
	}
}

// Records adds a snapshot record count.
func Records(n int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int("records", n)
	}
}

// Backend adds a persistence backend name.
func Backend(name string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("backend", name)
	}
}

// ErrorField adds an error field.
func ErrorField(err error) Field {
	return func(e *bolt.Event) *bolt.Event {
		if err == nil {
			return e
		}
		return e.Err(err)
	}
}

// Reason adds a reason field.
func Reason(reason string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("reason", reason)
	}
}

// Component adds a component field for categorization.
func Component(name string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("component", name)
	}
}

// Operation adds an operation field.
func Operation(op string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("operation", op)
	}
}

// Str adds a string field with custom key.
func Str(key, value string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str(key, value)
	}
}

// Int adds an integer field with custom key.
func Int(key string, value int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int(key, value)
	}
}
