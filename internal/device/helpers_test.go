package device

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"
)

// recordingReporter captures every report it receives.
type recordingReporter struct {
	mu      sync.Mutex
	reports []Report
	err     error
}

func (r *recordingReporter) Report(_ context.Context, rep Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, rep)
	return r.err
}

func (r *recordingReporter) all() []Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Report, len(r.reports))
	copy(out, r.reports)
	return out
}

// mockDriver records hardware state changes.
type mockDriver struct {
	mu     sync.Mutex
	states []bool
	err    error
}

func (m *mockDriver) SetState(on bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states = append(m.states, on)
	return m.err
}

// memoryStore is an in-memory ParamStore.
type memoryStore struct {
	mu     sync.Mutex
	values []StoredValue
	err    error
}

func (m *memoryStore) SaveParam(_ context.Context, deviceName, paramName string, v Value) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for i := range m.values {
		if m.values[i].Device == deviceName && m.values[i].Param == paramName {
			m.values[i].Value = v
			return nil
		}
	}
	m.values = append(m.values, StoredValue{Device: deviceName, Param: paramName, Value: v})
	return nil
}

func (m *memoryStore) LoadParams(context.Context) ([]StoredValue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]StoredValue, len(m.values))
	copy(out, m.values)
	return out, nil
}

var errBoom = errors.New("boom")

// testRand returns a deterministic random source.
func testRand() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2))
}

// newSwitch builds a switch device with Name and Power params.
func newSwitch(t *testing.T, name string, driver HardwareDriver) *Device {
	t.Helper()

	d, err := NewDevice(name, KindSwitch, NewPowerHandler(driver))
	if err != nil {
		t.Fatalf("NewDevice(%q) error = %v", name, err)
	}
	power := NewPowerParam(false)
	if err := d.AddParam(NewNameParam(name)); err != nil {
		t.Fatalf("AddParam(Name) error = %v", err)
	}
	if err := d.AddParam(power); err != nil {
		t.Fatalf("AddParam(Power) error = %v", err)
	}
	if err := d.AssignPrimary(power); err != nil {
		t.Fatalf("AssignPrimary() error = %v", err)
	}
	return d
}

// newDispense builds a dispense device with a derived Value param.
func newDispense(t *testing.T) (*Device, *DerivedValueHandler) {
	t.Helper()

	h, err := NewDerivedValueHandler(testRand(), DefaultDerivedMin, DefaultDerivedMax)
	if err != nil {
		t.Fatalf("NewDerivedValueHandler() error = %v", err)
	}
	d, err := NewDevice("Dispense", KindOther, h)
	if err != nil {
		t.Fatalf("NewDevice() error = %v", err)
	}
	value, err := NewOtherParam("Value", Int(0))
	if err != nil {
		t.Fatalf("NewOtherParam() error = %v", err)
	}
	if err := d.AddParam(NewNameParam("Dispense")); err != nil {
		t.Fatalf("AddParam(Name) error = %v", err)
	}
	if err := d.AddParam(value); err != nil {
		t.Fatalf("AddParam(Value) error = %v", err)
	}
	return d, h
}

// newTestNode builds a sealed node with Switch and Dispense devices.
func newTestNode(t *testing.T, driver HardwareDriver) *Node {
	t.Helper()

	n := NewNode("node-1", "Test Node", "Switch")
	if err := n.AddDevice(newSwitch(t, "Switch", driver)); err != nil {
		t.Fatalf("AddDevice(Switch) error = %v", err)
	}
	dispense, _ := newDispense(t)
	if err := n.AddDevice(dispense); err != nil {
		t.Fatalf("AddDevice(Dispense) error = %v", err)
	}
	n.Seal()
	return n
}

// paramValue reads a parameter value or fails the test.
func paramValue(t *testing.T, n *Node, deviceName, paramName string) Value {
	t.Helper()

	d, err := n.Device(deviceName)
	if err != nil {
		t.Fatalf("Device(%q) error = %v", deviceName, err)
	}
	p, err := d.Param(paramName)
	if err != nil {
		t.Fatalf("Param(%q) error = %v", paramName, err)
	}
	return p.Value()
}
