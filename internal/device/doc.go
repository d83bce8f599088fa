// Package device provides the Device Registry for the DeviceLab controller.
//
// The registry is the local set of display devices currently attached to
// this node. It is reconciled against asynchronous notifications from a
// Monitor (add, remove, change) and is the fan-out list used when a new
// target URL must be sent to every device through a Navigator.
//
// # Key Types
//
//   - Event: a Monitor notification (KindAdd, KindRemove, KindChange)
//   - Registry: the attached-device set, owned by one event loop
//   - Monitor: source of Events (implemented by the adb package)
//   - Navigator: sends a URL to one device (implemented by the adb package)
//
// # Reconciliation
//
// A change to StatusPresent is treated as an add and a change to
// StatusOffline as a remove. Changes to any other status are ignored.
//
//	reg := device.NewRegistry()
//	for ev := range monitor.Events() {
//	    if attached, ok := reg.Apply(ev); ok && attached {
//	        // send the current target to ev.ID
//	    }
//	}
package device
