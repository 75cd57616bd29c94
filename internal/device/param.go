package device

import (
	"fmt"
	"sync"
)

// ParamType classifies a parameter for lookups such as FindParamByType.
type ParamType string

// Standard parameter types.
const (
	ParamTypeName  ParamType = "name"
	ParamTypePower ParamType = "power"
	ParamTypeOther ParamType = "other"
)

// Standard parameter names.
const (
	ParamName  = "Name"
	ParamPower = "Power"
)

// UI hints attached to parameters for control-plane rendering.
const (
	UIText   = "text"
	UIToggle = "toggle"
	UISlider = "slider"
)

// ParamOption configures a Param at construction.
type ParamOption func(*Param)

// ReadOnly marks the parameter as not writable from any source.
func ReadOnly() ParamOption {
	return func(p *Param) { p.readOnly = true }
}

// WithUI sets the parameter's UI hint.
func WithUI(ui string) ParamOption {
	return func(p *Param) { p.ui = ui }
}

// Persist controls whether applied values are written to the ParamStore.
func Persist(persist bool) ParamOption {
	return func(p *Param) { p.persist = persist }
}

// Param is a named, typed value slot owned by exactly one Device.
//
// The value's type tag is fixed at construction; SetValue refuses values
// of any other tag. Reads are safe from any goroutine.
type Param struct {
	name     string
	typ      ParamType
	readOnly bool
	persist  bool
	ui       string

	// writeMu serialises writes through the dispatcher, held from
	// validation until reporting completes.
	writeMu sync.Mutex

	mu    sync.RWMutex
	value Value
	owner *Device
}

// NewParam creates a parameter with the given initial value.
// Returns ErrInvalidName if name is empty and ErrTypeMismatch if initial
// carries no type tag.
func NewParam(name string, typ ParamType, initial Value, opts ...ParamOption) (*Param, error) {
	if name == "" {
		return nil, ErrInvalidName
	}
	if !initial.IsValid() {
		return nil, fmt.Errorf("%w: parameter %q has no initial value", ErrTypeMismatch, name)
	}
	p := &Param{
		name:  name,
		typ:   typ,
		value: initial,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// NewNameParam creates the standard "Name" parameter holding the device's
// display name.
func NewNameParam(displayName string) *Param {
	p, _ := NewParam(ParamName, ParamTypeName, String(displayName), WithUI(UIText), Persist(true)) //nolint:errcheck // constant name, valid value
	return p
}

// NewPowerParam creates the standard "Power" parameter.
func NewPowerParam(on bool) *Param {
	p, _ := NewParam(ParamPower, ParamTypePower, Bool(on), WithUI(UIToggle), Persist(true)) //nolint:errcheck // constant name, valid value
	return p
}

// NewOtherParam creates a persisted parameter of type other.
func NewOtherParam(name string, initial Value, opts ...ParamOption) (*Param, error) {
	opts = append([]ParamOption{Persist(true)}, opts...)
	return NewParam(name, ParamTypeOther, initial, opts...)
}

// Name returns the parameter name.
func (p *Param) Name() string { return p.name }

// Type returns the parameter type.
func (p *Param) Type() ParamType { return p.typ }

// ValueType returns the established type tag of the value.
func (p *Param) ValueType() ValueType {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.value.Type()
}

// ReadOnly reports whether writes to the parameter are refused.
func (p *Param) ReadOnly() bool { return p.readOnly }

// Persisted reports whether applied values are stored.
func (p *Param) Persisted() bool { return p.persist }

// UI returns the UI hint, or "" if none.
func (p *Param) UI() string { return p.ui }

// Value returns the current value.
func (p *Param) Value() Value {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.value
}

// SetValue replaces the current value.
// Returns ErrTypeMismatch, leaving the stored value unchanged, when v's
// tag differs from the established one.
func (p *Param) SetValue(v Value) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if v.Type() != p.value.Type() {
		return fmt.Errorf("%w: parameter %q is %s, got %s", ErrTypeMismatch, p.name, p.value.Type(), v.Type())
	}
	p.value = v
	return nil
}

// Owner returns the owning device, or nil before the parameter is added.
func (p *Param) Owner() *Device {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.owner
}

// IsPrimary reports whether the parameter is its owner's primary.
func (p *Param) IsPrimary() bool {
	d := p.Owner()
	return d != nil && d.Primary() == p
}

// claim sets the owner if the parameter is unowned.
func (p *Param) claim(d *Device) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.owner != nil {
		return fmt.Errorf("%w: %q belongs to %q", ErrParamOwned, p.name, p.owner.name)
	}
	p.owner = d
	return nil
}
