package event

import "errors"

// Domain errors for the event bus.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrUnknownEvent is returned when subscribing to a category or
	// (category, id) pair the bus does not know.
	ErrUnknownEvent = errors.New("event: unknown category or id")

	// ErrSealed is returned when subscribing after Seal().
	ErrSealed = errors.New("event: bus is sealed")

	// ErrNilHandler is returned when subscribing a nil handler.
	ErrNilHandler = errors.New("event: handler cannot be nil")
)
