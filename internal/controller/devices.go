package controller

import (
	"github.com/nerrad567/devicelab-core/internal/device"
)

// handleDevice reconciles the registry against one Device Monitor event.
// A change to present is an attach and a change to offline a detach;
// any other status is ignored.
//
// An attach always dispatches the current target, even for a device that
// was already present. A detach of an absent device does nothing.
func (c *Controller) handleDevice(ev device.Event) {
	if err := ev.Validate(); err != nil {
		c.logger.Warn("ignoring device event", "event", ev.Kind.String(), "error", err)
		return
	}

	before := c.registry.Len()
	attached, ok := c.registry.Apply(ev)
	if !ok {
		c.logger.Debug("ignoring device status", "device", ev.ID, "status", string(ev.Status))
		return
	}
	changed := c.registry.Len() != before

	switch {
	case attached:
		if changed {
			c.logger.Info("device attached", "device", ev.ID, "count", c.registry.Len())
		}
		c.dispatchCurrent(ev.ID)
		c.publishClients()
	case changed:
		c.logger.Info("device detached", "device", ev.ID, "count", c.registry.Len())
		c.publishClients()
	}
}

// dispatchCurrent sends a newly attached device the current target, or
// the home URL before any target has been received.
func (c *Controller) dispatchCurrent(id string) {
	switch {
	case c.target != "":
		c.navigate(id, c.target)
	case c.homeURL != "":
		c.navigate(id, c.homeURL)
	}
}

// publishClients writes the attached-device document {id: true, ...}.
// The document is removed once no device is attached.
func (c *Controller) publishClients() {
	if c.registry.Len() == 0 {
		c.remove(fieldClients)
	} else {
		c.set(fieldClients, c.registry.Snapshot())
	}
	c.metrics.RecordDevices(c.registry.Len())
	c.publishStatus()
}
