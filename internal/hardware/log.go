package hardware

import "sync"

// LogDriver stands in for an actuator on hosts without one: every state
// change is logged.
type LogDriver struct {
	mu     sync.Mutex
	state  bool
	closed bool
	logger Logger
}

// NewLogDriver creates a LogDriver. The initial state is off.
func NewLogDriver(logger Logger) *LogDriver {
	if logger == nil {
		logger = noopLogger{}
	}
	return &LogDriver{logger: logger}
}

// SetState implements Driver.
func (d *LogDriver) SetState(on bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrClosed
	}
	d.state = on
	d.logger.Info("hardware state applied", "driver", "log", "on", on)
	return nil
}

// State implements Driver.
func (d *LogDriver) State() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Close implements Driver.
func (d *LogDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}
