// Package key defines the identity of cached server-state operations.
//
// A Key is an ordered tuple of an operation name and the parameter values
// the operation was invoked with. Two invocations with the same name and
// the same parameter values share one cache slot. A Prefix covers a whole
// family of keys (for example every page of a paginated list) and is the
// unit of invalidation.
package key

import (
	"strings"
)

// Key identifies one cached server-state operation.
// The zero value is invalid; use New.
type Key struct {
	parts []string
}

// New creates a key from an operation name and its parameter values.
// Parameter order is significant: ("results", "a", "b") and
// ("results", "b", "a") are distinct keys.
func New(name string, params ...string) Key {
	parts := make([]string, 0, len(params)+1)
	parts = append(parts, name)
	parts = append(parts, params...)
	return Key{parts: parts}
}

// Name returns the operation name.
func (k Key) Name() string {
	if len(k.parts) == 0 {
		return ""
	}
	return k.parts[0]
}

// Params returns the parameter values in order.
func (k Key) Params() []string {
	if len(k.parts) <= 1 {
		return nil
	}
	out := make([]string, len(k.parts)-1)
	copy(out, k.parts[1:])
	return out
}

// IsZero reports whether the key is the zero value.
func (k Key) IsZero() bool {
	return len(k.parts) == 0
}

// Validate checks that the key has a non-empty operation name.
func (k Key) Validate() error {
	if len(k.parts) == 0 || k.parts[0] == "" {
		return ErrEmptyName
	}
	return nil
}

// Equal reports whether two keys identify the same operation invocation.
func (k Key) Equal(other Key) bool {
	if len(k.parts) != len(other.parts) {
		return false
	}
	for i := range k.parts {
		if k.parts[i] != other.parts[i] {
			return false
		}
	}
	return true
}

// HasPrefix reports whether the key falls under the given prefix.
// Matching is component-wise: the prefix ("probes") covers
// ("probes", "job1") but not ("probes-archive").
func (k Key) HasPrefix(p Prefix) bool {
	if len(p.parts) == 0 || len(p.parts) > len(k.parts) {
		return false
	}
	for i := range p.parts {
		if k.parts[i] != p.parts[i] {
			return false
		}
	}
	return true
}

// String returns the canonical encoding of the key: components joined by
// '/' with '/' and '\' escaped, so distinct tuples never collide.
func (k Key) String() string {
	return encodeParts(k.parts)
}

// Prefix identifies a family of keys sharing leading components.
type Prefix struct {
	parts []string
}

// NewPrefix creates a prefix from an operation name and leading parameters.
func NewPrefix(name string, params ...string) Prefix {
	parts := make([]string, 0, len(params)+1)
	parts = append(parts, name)
	parts = append(parts, params...)
	return Prefix{parts: parts}
}

// PrefixOf returns the prefix that matches exactly the given key.
func PrefixOf(k Key) Prefix {
	parts := make([]string, len(k.parts))
	copy(parts, k.parts)
	return Prefix{parts: parts}
}

// Matches reports whether the key falls under this prefix.
func (p Prefix) Matches(k Key) bool {
	return k.HasPrefix(p)
}

// IsZero reports whether the prefix is the zero value.
func (p Prefix) IsZero() bool {
	return len(p.parts) == 0
}

// String returns the canonical encoding of the prefix.
func (p Prefix) String() string {
	return encodeParts(p.parts)
}

// Parse decodes a canonical key string produced by Key.String.
// It is the inverse used when restoring persisted snapshots.
func Parse(s string) (Key, error) {
	if s == "" {
		return Key{}, ErrEmptyName
	}
	parts, err := decodeParts(s)
	if err != nil {
		return Key{}, err
	}
	k := Key{parts: parts}
	if err := k.Validate(); err != nil {
		return Key{}, err
	}
	return k, nil
}

// encodeParts joins components with '/' escaping '\' and '/'.
func encodeParts(parts []string) string {
	var b strings.Builder
	for i, part := range parts {
		if i > 0 {
			b.WriteByte('/')
		}
		for j := 0; j < len(part); j++ {
			c := part[j]
			if c == '\\' || c == '/' {
				b.WriteByte('\\')
			}
			b.WriteByte(c)
		}
	}
	return b.String()
}

// decodeParts splits a canonical encoding on unescaped '/'.
func decodeParts(s string) ([]string, error) {
	var parts []string
	var cur strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\\':
			if i+1 >= len(s) {
				return nil, ErrMalformedKey
			}
			i++
			cur.WriteByte(s[i])
		case '/':
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	parts = append(parts, cur.String())
	return parts, nil
}
