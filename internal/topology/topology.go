// Package topology builds the node's device registry from configuration.
//
// The topology is static: Build creates every device and parameter once,
// seals the node and returns it. Any naming collision aborts the build.
package topology

import (
	"fmt"
	"math/rand/v2"

	"github.com/nerrad567/switchnode/internal/device"
	"github.com/nerrad567/switchnode/internal/infrastructure/config"
)

// Options holds the collaborators shared by the devices.
type Options struct {
	// Driver is the hardware actuator for switches with hardware: true.
	Driver device.HardwareDriver

	// Rand is the process-wide random source, seeded once at startup.
	// Each dispense device gets its own generator seeded from it.
	// Defaults to device.NewSeededRand().
	Rand *rand.Rand

	// Logger is passed to the node and every handler. Optional.
	Logger device.Logger
}

// Build creates and seals a node with the configured devices, in order.
func Build(nc config.NodeConfig, devices []config.DeviceConfig, opts Options) (*device.Node, error) {
	if opts.Rand == nil {
		opts.Rand = device.NewSeededRand()
	}

	node := device.NewNode(nc.ID, nc.Name, nc.Type)
	if opts.Logger != nil {
		node.SetLogger(opts.Logger)
	}

	for _, dc := range devices {
		d, err := buildDevice(dc, opts)
		if err != nil {
			return nil, fmt.Errorf("building device %q: %w", dc.Name, err)
		}
		if err := node.AddDevice(d); err != nil {
			return nil, fmt.Errorf("registering device %q: %w", dc.Name, err)
		}
	}

	node.Seal()
	return node, nil
}

func buildDevice(dc config.DeviceConfig, opts Options) (*device.Device, error) {
	switch dc.Kind {
	case config.DeviceKindSwitch:
		return buildSwitch(dc, opts)
	case config.DeviceKindDispense:
		return buildDispense(dc, opts)
	default:
		return nil, fmt.Errorf("unknown device kind %q", dc.Kind)
	}
}

// buildSwitch creates a device with Name and Power parameters. Power is
// primary and only switches marked hardware drive the actuator.
func buildSwitch(dc config.DeviceConfig, opts Options) (*device.Device, error) {
	var driver device.HardwareDriver
	if dc.Hardware {
		driver = opts.Driver
	}
	handler := device.NewPowerHandler(driver)
	if opts.Logger != nil {
		handler.SetLogger(opts.Logger)
	}

	d, err := device.NewDevice(dc.Name, device.KindSwitch, handler)
	if err != nil {
		return nil, err
	}
	power := device.NewPowerParam(dc.DefaultPower)
	if err := addParams(d, device.NewNameParam(dc.Name), power); err != nil {
		return nil, err
	}
	if err := d.AssignPrimary(power); err != nil {
		return nil, err
	}
	return d, nil
}

// buildDispense creates a device with Name and an integer parameter that
// any write replaces with a value drawn from [Min, Max].
func buildDispense(dc config.DeviceConfig, opts Options) (*device.Device, error) {
	rng := rand.New(rand.NewPCG(opts.Rand.Uint64(), opts.Rand.Uint64())) //nolint:gosec // not security sensitive
	minValue, maxValue := dc.Range()
	handler, err := device.NewDerivedValueHandler(rng, minValue, maxValue)
	if err != nil {
		return nil, err
	}
	if opts.Logger != nil {
		handler.SetLogger(opts.Logger)
	}

	d, err := device.NewDevice(dc.Name, device.KindOther, handler)
	if err != nil {
		return nil, err
	}
	value, err := device.NewOtherParam(dc.ValueParam, device.Int(0), device.WithUI(device.UISlider))
	if err != nil {
		return nil, err
	}
	if err := addParams(d, device.NewNameParam(dc.Name), value); err != nil {
		return nil, err
	}
	return d, nil
}

func addParams(d *device.Device, params ...*device.Param) error {
	for _, p := range params {
		if err := d.AddParam(p); err != nil {
			return err
		}
	}
	return nil
}
