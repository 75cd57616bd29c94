package hardware

import (
	"errors"
	"fmt"

	"github.com/nerrad567/switchnode/internal/infrastructure/config"
)

// ErrClosed is returned by SetState after Close.
var ErrClosed = errors.New("hardware: driver closed")

// Driver is an actuator behind a switch. It satisfies
// device.HardwareDriver.
type Driver interface {
	// SetState drives the output on or off.
	SetState(on bool) error

	// State returns the last state successfully applied.
	State() bool

	// Close releases the output.
	Close() error
}

// Logger is the logging interface used by the drivers.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any) {}
func (noopLogger) Warn(string, ...any) {}

// Open creates the driver selected by cfg and applies cfg.DefaultState.
// logger may be nil.
func Open(cfg config.HardwareConfig, logger Logger) (Driver, error) {
	if logger == nil {
		logger = noopLogger{}
	}

	switch cfg.Driver {
	case config.HardwareDriverLog, "":
		d := NewLogDriver(logger)
		if err := d.SetState(cfg.DefaultState); err != nil {
			return nil, err
		}
		return d, nil
	case config.HardwareDriverGPIO:
		return OpenGPIO(cfg, logger)
	default:
		return nil, fmt.Errorf("hardware: unknown driver %q", cfg.Driver)
	}
}
