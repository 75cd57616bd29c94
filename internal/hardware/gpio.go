package hardware

import (
	"errors"
	"fmt"
	"sync"

	gpiod "github.com/warthog618/go-gpiocdev"

	"github.com/nerrad567/switchnode/internal/infrastructure/config"
)

const consumer = "switchnode"

// outputLine is the part of *gpiod.Line used by GPIODriver.
type outputLine interface {
	SetValue(value int) error
	Close() error
}

// GPIODriver drives a relay or LED on a GPIO character device line.
type GPIODriver struct {
	mu     sync.Mutex
	chip   *gpiod.Chip
	line   outputLine
	state  bool
	closed bool
	name   string
	logger Logger
}

// OpenGPIO requests cfg.Line on cfg.Chip as an output initialised to
// cfg.DefaultState. With ActiveLow the line is driven low for "on".
func OpenGPIO(cfg config.HardwareConfig, logger Logger) (*GPIODriver, error) {
	if logger == nil {
		logger = noopLogger{}
	}

	chip, err := gpiod.NewChip(cfg.Chip, gpiod.WithConsumer(consumer))
	if err != nil {
		return nil, fmt.Errorf("open chip %s: %w", cfg.Chip, err)
	}

	opts := []gpiod.LineReqOption{gpiod.AsOutput(level(cfg.DefaultState))}
	if cfg.ActiveLow {
		opts = append(opts, gpiod.AsActiveLow)
	}
	line, err := chip.RequestLine(cfg.Line, opts...)
	if err != nil {
		chip.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("request output line %d: %w", cfg.Line, err)
	}

	d := newGPIODriver(line, fmt.Sprintf("%s:%d", cfg.Chip, cfg.Line), cfg.DefaultState, logger)
	d.chip = chip
	logger.Info("gpio output ready", "line", d.name, "active_low", cfg.ActiveLow, "on", cfg.DefaultState)
	return d, nil
}

func newGPIODriver(line outputLine, name string, initial bool, logger Logger) *GPIODriver {
	return &GPIODriver{line: line, name: name, state: initial, logger: logger}
}

// SetState implements Driver. The recorded state only changes when the
// line accepts the new value.
func (d *GPIODriver) SetState(on bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrClosed
	}
	if err := d.line.SetValue(level(on)); err != nil {
		return fmt.Errorf("set %s: %w", d.name, err)
	}
	d.state = on
	d.logger.Info("hardware state applied", "driver", "gpio", "line", d.name, "on", on)
	return nil
}

// State implements Driver.
func (d *GPIODriver) State() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Close releases the line and the chip. It is safe to call twice.
func (d *GPIODriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true

	var errs []error
	if err := d.line.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close line %s: %w", d.name, err))
	}
	if d.chip != nil {
		if err := d.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}
	return errors.Join(errs...)
}

func level(on bool) int {
	if on {
		return 1
	}
	return 0
}
