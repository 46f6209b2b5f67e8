// Package influxdb records device reading history in InfluxDB.
//
// It wraps the official influxdb-client-go v2 library. Writes are
// non-blocking and batched; the sink is optional and the rest of the
// service runs unchanged when it is disabled.
package influxdb
