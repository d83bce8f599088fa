package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names written by the controller.
const (
	MeasurementStaleness = "devicelab_staleness"
	MeasurementHeartbeat = "devicelab_heartbeat"
	MeasurementReboot    = "devicelab_reboot"
	MeasurementNavigate  = "devicelab_navigate"
	MeasurementDevices   = "devicelab_devices"
)

// RecordStaleness writes the seconds elapsed since the target last changed.
//
// Called on every watchdog tick that does not trigger recovery.
func (c *Client) RecordStaleness(elapsed time.Duration) {
	c.WritePoint(MeasurementStaleness, nil, map[string]interface{}{
		"seconds": elapsed.Seconds(),
	})
}

// RecordHeartbeat writes a liveness marker.
func (c *Client) RecordHeartbeat() {
	c.WritePoint(MeasurementHeartbeat, nil, map[string]interface{}{
		"alive": true,
	})
}

// RecordReboot writes a recovery event with its reason.
//
// The reason is a tag so reboots can be grouped by cause.
func (c *Client) RecordReboot(reason string) {
	c.WritePoint(MeasurementReboot,
		map[string]string{"reason": reason},
		map[string]interface{}{"count": 1},
	)
}

// RecordNavigate writes the outcome of one navigate command.
//
// Parameters:
//   - deviceID: Device serial
//   - ok: Whether the device accepted the command
func (c *Client) RecordNavigate(deviceID string, ok bool) {
	c.WritePoint(MeasurementNavigate,
		map[string]string{"device": deviceID},
		map[string]interface{}{"ok": ok},
	)
}

// RecordDevices writes the number of attached devices.
func (c *Client) RecordDevices(count int) {
	c.WritePoint(MeasurementDevices, nil, map[string]interface{}{
		"count": count,
	})
}

// WritePoint writes a custom point with full control over tags and fields.
// The node tag is always added.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("system_stats",
//	    map[string]string{"board": "pi4"},
//	    map[string]interface{}{"cpu_percent": 45.2, "memory_mb": 512})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	c.WritePointWithTime(measurement, tags, fields, time.Now())
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., delayed data).
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	all := make(map[string]string, len(tags)+1)
	for k, v := range tags {
		all[k] = v
	}
	if c.node != "" {
		all["node"] = c.node
	}

	point := write.NewPoint(measurement, all, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
