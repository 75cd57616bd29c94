package device

import (
	"fmt"
	"sync"
)

// Node is the device registry: an ordered, name-unique collection of
// devices exposed to the control plane.
//
// A Node is built once at startup. After Seal() its topology is frozen and
// the dispatcher starts accepting writes. All public methods are
// thread-safe.
type Node struct {
	id       string
	name     string
	nodeType string

	mu      sync.RWMutex
	devices []*Device
	byName  map[string]*Device
	sealed  bool

	logger Logger
}

// NewNode creates an empty node.
func NewNode(id, name, nodeType string) *Node {
	return &Node{
		id:       id,
		name:     name,
		nodeType: nodeType,
		byName:   make(map[string]*Device),
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the node.
func (n *Node) SetLogger(logger Logger) {
	n.logger = logger
}

// ID returns the node identifier.
func (n *Node) ID() string { return n.id }

// Name returns the node display name.
func (n *Node) Name() string { return n.name }

// Type returns the node type.
func (n *Node) Type() string { return n.nodeType }

// AddDevice appends a device to the node.
// Returns ErrDuplicateName if the name is taken and ErrSealed after Seal().
// On failure the node is unchanged.
func (n *Node) AddDevice(d *Device) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.sealed {
		return fmt.Errorf("%w: cannot add device %q", ErrSealed, d.Name())
	}
	if _, exists := n.byName[d.Name()]; exists {
		return fmt.Errorf("%w: device %q", ErrDuplicateName, d.Name())
	}

	n.devices = append(n.devices, d)
	n.byName[d.Name()] = d
	n.logger.Debug("device added", "device", d.Name(), "kind", d.Kind())
	return nil
}

// Device returns the named device.
// Returns ErrNotFound if no such device exists.
func (n *Node) Device(name string) (*Device, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	d, ok := n.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: device %q", ErrNotFound, name)
	}
	return d, nil
}

// Devices returns the devices in registration order.
func (n *Node) Devices() []*Device {
	n.mu.RLock()
	defer n.mu.RUnlock()

	out := make([]*Device, len(n.devices))
	copy(out, n.devices)
	return out
}

// FindParam returns the named parameter of the named device.
// Returns ErrNotFound if either lookup misses.
func (n *Node) FindParam(deviceName, paramName string) (*Param, error) {
	d, err := n.Device(deviceName)
	if err != nil {
		return nil, err
	}
	return d.Param(paramName)
}

// FindParamByType returns the first parameter of type t on the named device.
// Returns ErrNotFound if either lookup misses.
func (n *Node) FindParamByType(deviceName string, t ParamType) (*Param, error) {
	d, err := n.Device(deviceName)
	if err != nil {
		return nil, err
	}
	return d.ParamByType(t)
}

// Seal marks construction complete. It is idempotent.
func (n *Node) Seal() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.sealed {
		n.sealed = true
		n.logger.Info("node sealed", "node_id", n.id, "devices", len(n.devices))
	}
}

// Sealed reports whether Seal has been called.
func (n *Node) Sealed() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.sealed
}

// Values returns every parameter value keyed by device then parameter name.
func (n *Node) Values() map[string]map[string]Value {
	devices := n.Devices()
	out := make(map[string]map[string]Value, len(devices))
	for _, d := range devices {
		out[d.Name()] = d.Values()
	}
	return out
}

// NodeConfig is the JSON description of a node published to the control
// plane.
type NodeConfig struct {
	ID      string         `json:"node_id"`
	Name    string         `json:"name"`
	Type    string         `json:"type"`
	Devices []DeviceConfig `json:"devices"`
}

// DeviceConfig describes one device in a NodeConfig.
type DeviceConfig struct {
	Name    string        `json:"name"`
	Kind    Kind          `json:"type"`
	Primary string        `json:"primary,omitempty"`
	Params  []ParamConfig `json:"params"`
}

// ParamConfig describes one parameter in a DeviceConfig.
type ParamConfig struct {
	Name     string    `json:"name"`
	Type     ParamType `json:"type"`
	DataType ValueType `json:"data_type"`
	UI       string    `json:"ui_type,omitempty"`
	ReadOnly bool      `json:"read_only"`
	Persist  bool      `json:"persist"`
	Value    Value     `json:"value"`
}

// Config returns the node description including current values.
func (n *Node) Config() NodeConfig {
	devices := n.Devices()
	cfg := NodeConfig{
		ID:      n.id,
		Name:    n.name,
		Type:    n.nodeType,
		Devices: make([]DeviceConfig, 0, len(devices)),
	}
	for _, d := range devices {
		cfg.Devices = append(cfg.Devices, d.Config())
	}
	return cfg
}

// Config returns the device description including current values.
func (d *Device) Config() DeviceConfig {
	dc := DeviceConfig{Name: d.Name(), Kind: d.Kind()}
	if p := d.Primary(); p != nil {
		dc.Primary = p.Name()
	}
	params := d.Params()
	dc.Params = make([]ParamConfig, 0, len(params))
	for _, p := range params {
		v := p.Value()
		dc.Params = append(dc.Params, ParamConfig{
			Name:     p.Name(),
			Type:     p.Type(),
			DataType: v.Type(),
			UI:       p.UI(),
			ReadOnly: p.ReadOnly(),
			Persist:  p.Persisted(),
			Value:    v,
		})
	}
	return dc
}
