package controller

import (
	"fmt"
)

// checkStaleness is the watchdog tick.
//
// Before the first target arrives nothing happens. Afterwards the elapsed
// time since the last change either triggers recovery (once past MaxStale)
// or is published as timeSinceChange in whole seconds.
func (c *Controller) checkStaleness() {
	if c.lastChange.IsZero() {
		return
	}

	elapsed := c.now().Sub(c.lastChange)
	if elapsed > c.maxStale {
		c.reboot(fmt.Sprintf("target update timeout: %.1fs", elapsed.Seconds()))
		return
	}

	c.set(fieldTimeSinceChange, int64(elapsed.Seconds()))
	c.metrics.RecordStaleness(elapsed)
}
