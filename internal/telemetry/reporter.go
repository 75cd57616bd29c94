// Package telemetry forwards reported parameter values to a time-series
// database.
package telemetry

import (
	"context"
	"time"

	"github.com/nerrad567/switchnode/internal/device"
)

// PointWriter writes a single parameter value point. It is satisfied by
// *influxdb.Client.
type PointWriter interface {
	WriteParamValue(deviceName, paramName, source string, value any, ts time.Time)
}

// Reporter is a device.Reporter that writes numeric and boolean values as
// points. String values (device names) are skipped.
type Reporter struct {
	writer PointWriter
}

// NewReporter creates a Reporter writing to w.
func NewReporter(w PointWriter) *Reporter {
	return &Reporter{writer: w}
}

// Report implements device.Reporter. Writes are batched by the writer, so
// Report never fails.
func (r *Reporter) Report(_ context.Context, rep device.Report) error {
	value, ok := fieldValue(rep.Value)
	if !ok {
		return nil
	}
	ts := rep.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	r.writer.WriteParamValue(rep.Device, rep.Param, rep.Source.String(), value, ts)
	return nil
}

// fieldValue keeps the native type of the value so InfluxDB stores booleans
// and integers as such.
func fieldValue(v device.Value) (any, bool) {
	switch v.Type() {
	case device.TypeBool, device.TypeInt, device.TypeFloat:
		return v.Interface(), true
	default:
		return nil, false
	}
}
