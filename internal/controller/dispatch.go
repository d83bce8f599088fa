package controller

import (
	"context"

	"github.com/nerrad567/devicelab-core/internal/remote"
)

// onTarget handles a value of the shared target path.
//
// Removed or empty values and repeats of the current target are ignored;
// the target is never deleted locally.
func (c *Controller) onTarget(v remote.Value) {
	target := v.String()
	if target == "" {
		c.logger.Debug("ignoring empty target")
		return
	}
	if target == c.target {
		c.logger.Debug("target unchanged", "url", target)
		return
	}
	c.setTarget(target)
}

// setTarget records target, resets staleness, publishes it, and fans it out
// to every attached device. Devices attaching later receive it on attach.
func (c *Controller) setTarget(target string) {
	now := c.now()
	c.target = target
	c.lastChange = now

	c.logger.Info("target changed", "url", target, "devices", c.registry.Len())

	c.set(fieldURL, target)
	c.set(fieldURLTime, now.UnixMilli())
	c.set(fieldTimeSinceChange, 0)

	for _, id := range c.registry.IDs() {
		c.navigate(id, target)
	}
	c.publishStatus()
}

// navigate sends target to one device without blocking the loop.
// Failures are logged and recorded, never escalated.
func (c *Controller) navigate(id, target string) {
	c.navWG.Add(1)
	go func() {
		defer c.navWG.Done()

		ctx, cancel := context.WithTimeout(c.ctx, c.navTimeout)
		defer cancel()

		err := c.navigator.Navigate(ctx, id, target)
		c.metrics.RecordNavigate(id, err == nil)
		if err != nil {
			c.logger.Warn("navigate failed", "device", id, "url", target, "error", err)
			return
		}
		c.logger.Debug("navigated", "device", id, "url", target)
	}()
}
