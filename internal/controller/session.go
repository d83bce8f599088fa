package controller

import (
	"context"
	"fmt"

	"github.com/nerrad567/devicelab-core/internal/remote"
)

// Start initialises the remote session. It must be called once after the
// Remote State Channel has authenticated and before Run.
//
// Static identity facts are published, per-session fields left behind by a
// previous run are cleared, on-disconnect cleanups are armed, and the
// target, reboot flag and connectivity watches are registered. Only watch
// failures are fatal: without them the watchdog has no signal path.
func (c *Controller) Start(ctx context.Context) error {
	c.ctx = ctx
	c.startedAt = c.now()

	c.set(fieldStartedAt, c.startedAt.UnixMilli())
	c.set(fieldVersion, c.version)

	c.set(fieldReboot, false)
	c.armRemove(fieldReboot)

	c.remove(fieldClients)
	c.remove(fieldRebooting)
	c.armRemove(fieldRebooting)

	c.set(fieldTimeSinceChange, 0)

	if err := c.store.Watch(TargetPath, func(v remote.Value) {
		c.post(targetEvent{value: v})
	}); err != nil {
		return fmt.Errorf("%w: watching %s: %w", ErrSessionFailed, TargetPath, err)
	}

	rebootPath := c.nodePath(fieldReboot)
	if err := c.store.Watch(rebootPath, func(v remote.Value) {
		c.post(rebootEvent{value: v})
	}); err != nil {
		return fmt.Errorf("%w: watching %s: %w", ErrSessionFailed, rebootPath, err)
	}

	c.store.WatchConnection(func(connected bool) {
		c.post(connectivityEvent{connected: connected})
	})

	c.beat()
	c.armRemove(fieldHeartBeat)

	c.publishStatus()
	c.logger.Info("remote session started",
		"node", c.node,
		"version", c.version,
		"started_at", c.startedAt,
	)
	return nil
}

// onConnectivity reacts to a remote connectivity transition.
//
// Loss of the channel is escalated to recovery: it is the only path by
// which the watchdog's own failures could be reported. On (re)connect the
// liveness block is republished and its disconnect cleanups re-armed, so
// an involuntary disconnect stays visible to observers.
func (c *Controller) onConnectivity(connected bool) {
	c.connected = connected
	if !connected {
		c.reboot("connection lost")
		return
	}
	defer c.publishStatus()

	now := c.now()
	c.logger.Info("remote connected")

	c.set(fieldStartedAt, c.startedAt.UnixMilli())

	c.set(fieldConnectedAt, now.UnixMilli())
	c.armRemove(fieldConnectedAt)

	c.set(fieldAlive, true)
	c.armSet(fieldAlive, false)

	c.remove(fieldDisconnectedAt)
	c.armSet(fieldDisconnectedAt, remote.ServerTimestamp)
}

// set writes a per-node field. Failures are logged and absorbed.
func (c *Controller) set(field string, v any) {
	if err := c.store.Set(c.nodePath(field), v); err != nil {
		c.logger.Warn("remote set failed", "field", field, "error", err)
	}
}

// remove deletes a per-node field. Failures are logged and absorbed.
func (c *Controller) remove(field string) {
	if err := c.store.Remove(c.nodePath(field)); err != nil {
		c.logger.Warn("remote remove failed", "field", field, "error", err)
	}
}

func (c *Controller) armRemove(field string) {
	if err := c.store.OnDisconnectRemove(c.nodePath(field)); err != nil {
		c.logger.Warn("arming disconnect cleanup failed", "field", field, "error", err)
	}
}

func (c *Controller) armSet(field string, v any) {
	if err := c.store.OnDisconnectSet(c.nodePath(field), v); err != nil {
		c.logger.Warn("arming disconnect cleanup failed", "field", field, "error", err)
	}
}
