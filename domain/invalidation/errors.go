package invalidation

import "errors"

// ErrEmptyMutation is returned when binding under an empty mutation name.
var ErrEmptyMutation = errors.New("mutation name is empty")
