package device

import (
	"context"
	"fmt"
	"sync"
)

// Kind is the device classification advertised to the control plane.
type Kind string

// Supported device kinds.
const (
	KindSwitch Kind = "switch"
	KindOther  Kind = "other"
)

// Logger defines the logging interface used by the device package.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Update is the outcome of an accepted write: the value to store and the
// parameter to store it in. Param may differ from the written parameter.
type Update struct {
	Param *Param
	Value Value
}

// WriteHandler decides what an incoming write does to a device.
//
// A handler either returns the Update to apply or an error wrapping
// ErrRejected. It must not mutate parameters itself; the dispatcher applies
// the returned Update.
type WriteHandler interface {
	HandleWrite(ctx context.Context, d *Device, p *Param, v Value, src Source) (Update, error)
}

// WriteHandlerFunc adapts a function to the WriteHandler interface.
type WriteHandlerFunc func(ctx context.Context, d *Device, p *Param, v Value, src Source) (Update, error)

// HandleWrite calls f.
func (f WriteHandlerFunc) HandleWrite(ctx context.Context, d *Device, p *Param, v Value, src Source) (Update, error) {
	return f(ctx, d, p, v, src)
}

// Device is a named collection of parameters with a single write entry
// point. Parameter order is insertion order, which is display order.
//
// All public methods are thread-safe.
type Device struct {
	name    string
	kind    Kind
	handler WriteHandler

	mu      sync.RWMutex
	params  []*Param
	byName  map[string]*Param
	primary *Param
}

// NewDevice creates a device with the given write handler.
// A nil handler rejects every write.
func NewDevice(name string, kind Kind, handler WriteHandler) (*Device, error) {
	if name == "" {
		return nil, ErrInvalidName
	}
	return &Device{
		name:    name,
		kind:    kind,
		handler: handler,
		byName:  make(map[string]*Param),
	}, nil
}

// Name returns the device name.
func (d *Device) Name() string { return d.name }

// Kind returns the device kind.
func (d *Device) Kind() Kind { return d.kind }

// AddParam appends a parameter to the device.
// Returns ErrDuplicateName if the name is taken on this device and
// ErrParamOwned if p already belongs to a device.
func (d *Device) AddParam(p *Param) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.byName[p.Name()]; exists {
		return fmt.Errorf("%w: parameter %q on device %q", ErrDuplicateName, p.Name(), d.name)
	}
	if err := p.claim(d); err != nil {
		return err
	}

	d.params = append(d.params, p)
	d.byName[p.Name()] = p
	return nil
}

// AssignPrimary marks p as the device's primary parameter.
// Returns ErrNotOwned if p is not one of this device's parameters.
func (d *Device) AssignPrimary(p *Param) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if p == nil || d.byName[p.Name()] != p {
		return fmt.Errorf("%w: device %q", ErrNotOwned, d.name)
	}
	d.primary = p
	return nil
}

// Primary returns the primary parameter, or nil if none is assigned.
func (d *Device) Primary() *Param {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.primary
}

// Param returns the named parameter.
// Returns ErrNotFound if the device has no such parameter.
func (d *Device) Param(name string) (*Param, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	p, ok := d.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: parameter %q on device %q", ErrNotFound, name, d.name)
	}
	return p, nil
}

// ParamByType returns the first parameter of type t in display order.
// Returns ErrNotFound if none exists.
func (d *Device) ParamByType(t ParamType) (*Param, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, p := range d.params {
		if p.Type() == t {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: no %s parameter on device %q", ErrNotFound, t, d.name)
}

// Params returns the parameters in display order.
func (d *Device) Params() []*Param {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]*Param, len(d.params))
	copy(out, d.params)
	return out
}

// Values returns the current value of every parameter keyed by name.
func (d *Device) Values() map[string]Value {
	params := d.Params()
	out := make(map[string]Value, len(params))
	for _, p := range params {
		out[p.Name()] = p.Value()
	}
	return out
}

// HandleWrite runs the device's write handler for a write of v to p.
//
// The returned Update is checked before it is handed back: its parameter
// must belong to this device and its value must match that parameter's
// type tag. Nothing is mutated here.
func (d *Device) HandleWrite(ctx context.Context, p *Param, v Value, src Source) (Update, error) {
	if p.Owner() != d {
		return Update{}, fmt.Errorf("%w: %q is not a parameter of %q", ErrNotOwned, p.Name(), d.name)
	}
	if d.handler == nil {
		return Update{}, fmt.Errorf("%w: device %q accepts no writes", ErrRejected, d.name)
	}

	upd, err := d.handler.HandleWrite(ctx, d, p, v, src)
	if err != nil {
		return Update{}, err
	}

	if upd.Param == nil || upd.Param.Owner() != d {
		return Update{}, fmt.Errorf("%w: handler for %q targeted a foreign parameter", ErrNotOwned, d.name)
	}
	if upd.Value.Type() != upd.Param.ValueType() {
		return Update{}, fmt.Errorf("%w: handler for %q produced %s for %s parameter %q",
			ErrTypeMismatch, d.name, upd.Value.Type(), upd.Param.ValueType(), upd.Param.Name())
	}
	return upd, nil
}
