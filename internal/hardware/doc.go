// Package hardware drives the actuator behind the node's primary switch.
//
// Two drivers are provided: GPIODriver, which requests an output line on
// a Linux GPIO character device, and LogDriver, which only logs state
// changes for development hosts. Open picks one from the hardware config
// section and applies the default state before returning.
package hardware
