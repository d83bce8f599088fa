package controller

// beat publishes the liveness timestamp (unix milliseconds).
// Publish failures are not escalated: connectivity loss is reported
// separately by the remote channel.
func (c *Controller) beat() {
	now := c.now()
	if err := c.store.Set(c.nodePath(fieldHeartBeat), now.UnixMilli()); err != nil {
		c.logger.Debug("heartbeat publish failed", "error", err)
		return
	}
	c.metrics.RecordHeartbeat()
}
