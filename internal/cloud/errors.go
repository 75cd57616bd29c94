package cloud

import "errors"

var (
	// ErrInvalidPayload is returned when a params message is not a JSON
	// object of {"Device": {"Param": value}} objects.
	ErrInvalidPayload = errors.New("cloud: invalid params payload")

	// ErrNotStarted is returned by Report before Start has run.
	ErrNotStarted = errors.New("cloud: agent not started")

	// ErrStopped is returned for remote messages delivered after Stop.
	ErrStopped = errors.New("cloud: agent stopped")
)
