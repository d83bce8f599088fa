// Package influxdb provides optional InfluxDB telemetry for the DeviceLab
// controller.
//
// It wraps the official influxdb-client-go v2 library for connection
// management, batched metric writing, and health monitoring.
//
// # Purpose
//
// The remote state channel only holds the latest value of each status
// field. This package keeps their history:
//   - devicelab_staleness: seconds since the target last changed
//   - devicelab_heartbeat: liveness markers
//   - devicelab_reboot: recovery events tagged by reason
//   - devicelab_navigate: per-device navigate outcomes
//   - devicelab_devices: attached device count
//
// Every point carries a "node" tag.
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB, cfg.Node.Name)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.RecordStaleness(42 * time.Second)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are reported via the
// SetOnError callback. Connection and health check errors are returned
// directly.
package influxdb
