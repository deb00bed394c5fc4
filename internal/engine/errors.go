package engine

import "errors"

// Error taxonomy of the credit engine. Callers match with errors.Is; every
// returned error wraps exactly one of these.
var (
	ErrInvalidAdjustment    = errors.New("invalid adjustment")
	ErrUnknownUser          = errors.New("unknown user")
	ErrInvalidConfiguration = errors.New("invalid configuration")
)
