package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// MeasurementParamValues holds one point per reported parameter value.
const MeasurementParamValues = "param_values"

// WriteParamValue records a reported parameter value.
//
// value must be a float64, int64 or bool. The write is non-blocking; the
// point is batched and sent asynchronously.
//
//	client.WriteParamValue("Switch", "Power", "cloud", true, time.Now())
//	client.WriteParamValue("Dispense", "Value", "local", int64(421), time.Now())
func (c *Client) WriteParamValue(deviceName, paramName, source string, value any, ts time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		MeasurementParamValues,
		map[string]string{
			"device": deviceName,
			"param":  paramName,
			"source": source,
		},
		map[string]any{
			"value": value,
		},
		ts,
	)
	c.writeAPI.WritePoint(point)
}
