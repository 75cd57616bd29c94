package device

import (
	"errors"
	"fmt"
)

// Domain errors for the device package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, device.ErrNotFound) {
//	    // handle not found case
//	}
var (
	// ErrTypeMismatch is returned when a value's type tag differs from the
	// parameter's established type. Always a caller bug; nothing is mutated.
	ErrTypeMismatch = errors.New("device: value type mismatch")

	// ErrDuplicateName is returned when registering a device or parameter
	// whose name is already taken. Fatal at startup.
	ErrDuplicateName = errors.New("device: duplicate name")

	// ErrNotFound is returned when a device or parameter lookup misses.
	ErrNotFound = errors.New("device: not found")

	// ErrNotOwned is returned when assigning a primary parameter that belongs
	// to another device, or when a handler targets a foreign parameter.
	ErrNotOwned = errors.New("device: parameter not owned by device")

	// ErrParamOwned is returned when adding a parameter that already belongs
	// to a device.
	ErrParamOwned = errors.New("device: parameter already owned")

	// ErrRejected is returned when a write handler refuses a write.
	// No parameter is mutated and nothing is reported.
	ErrRejected = errors.New("device: write rejected")

	// ErrReadOnly is returned when a write targets a read-only parameter.
	// It wraps ErrRejected, so errors.Is(err, ErrRejected) also holds.
	ErrReadOnly = fmt.Errorf("%w: parameter is read-only", ErrRejected)

	// ErrSealed is returned when the node topology is modified after Seal().
	ErrSealed = errors.New("device: node is sealed")

	// ErrNotReady is returned when a write arrives before the node is sealed.
	ErrNotReady = errors.New("device: node not ready")

	// ErrReportFailed is returned when the reporting collaborator fails.
	// The value has already been applied when this is returned.
	ErrReportFailed = errors.New("device: report failed")

	// ErrInvalidName is returned when a device or parameter name is empty.
	ErrInvalidName = errors.New("device: invalid name")

	// ErrCorruptValue is returned by ParamStore.LoadParams for stored rows
	// that cannot be decoded. The readable rows are still returned.
	ErrCorruptValue = errors.New("device: corrupt stored value")

	// ErrInvalidRange is returned when a derived value range has min > max.
	ErrInvalidRange = errors.New("device: invalid range")
)
