// Package device provides the device/parameter registry of a switchnode.
//
// A Node holds an ordered set of Devices. Each Device owns named, typed
// Params and a WriteHandler that decides what an incoming write does.
// The Dispatcher is the single mutation path: it validates a WriteRequest,
// runs the device's handler, applies the resulting Update and hands the
// new value to a Reporter exactly once.
//
// # Architecture
//
//	 cloud / local API / schedule / scene / init
//	                    │ WriteRequest
//	                    ▼
//	┌─────────────────────────────────────────────┐
//	│ Dispatcher                                  │
//	│   validate ─▶ Device.HandleWrite ─▶ apply   │
//	│                                      │      │
//	│                 ParamStore ◀─────────┤      │
//	│                                      ▼      │
//	│                               Reporter(s)   │
//	└─────────────────────────────────────────────┘
//	          │                    │
//	          ▼                    ▼
//	   Node ─▶ Device ─▶ Param   MQTT / InfluxDB / history / WebSocket
//
// # Key Types
//
//   - Value: tagged scalar (bool, int64, float64, string)
//   - Param: type-stable value slot owned by one Device
//   - Device: parameters plus a WriteHandler (PowerHandler, DerivedValueHandler)
//   - Node: the registry, sealed once construction completes
//   - Dispatcher: serialised write path with per-parameter locking
//
// # Usage
//
//	node := device.NewNode("node-1", "Switch Node", "Switch")
//
//	sw, _ := device.NewDevice("Switch", device.KindSwitch, device.NewPowerHandler(driver))
//	power := device.NewPowerParam(false)
//	_ = sw.AddParam(device.NewNameParam("Switch"))
//	_ = sw.AddParam(power)
//	_ = sw.AssignPrimary(power)
//	_ = node.AddDevice(sw)
//	node.Seal()
//
//	d := device.NewDispatcher(node, reporter)
//	res, err := d.Dispatch(ctx, device.NewWriteRequest("Switch", "Power", device.Bool(true), device.SourceCloud))
//
// # Thread Safety
//
// All exported types are safe for concurrent use. Writes to one parameter
// run one at a time; writes to different parameters proceed in parallel.
package device
