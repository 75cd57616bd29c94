// Package influxdb provides InfluxDB connectivity for switchnode.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, batched non-blocking writes and health checks. The node
// writes one param_values point per reported parameter value, tagged with
// the device, parameter and write source.
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteParamValue("Switch", "Power", "cloud", true, time.Now())
//
// # Error Handling
//
// Writes are batched, so their errors arrive asynchronously through the
// callback set with SetOnError. Connection and health check errors are
// returned directly.
package influxdb
