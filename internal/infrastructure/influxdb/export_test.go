package influxdb

// Flush exposes flush to the external test package.
var Flush = (*Client).flush
