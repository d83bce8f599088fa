// Package controller implements the liveness and reconciliation core of a
// DeviceLab node.
//
// A Controller owns the Device Registry and the current Target and runs a
// single event loop over four sources:
//
//	device.Monitor events  ──▶ attach / detach ──▶ navigate current target
//	remote "url"           ──▶ setTarget ──▶ navigate every device
//	remote reboot flag     ──▶ recovery
//	remote connectivity    ──▶ liveness block / recovery on loss
//	watchdog ticker        ──▶ timeSinceChange / recovery on staleness
//	heartbeat ticker       ──▶ heartBeat
//
// All recovery goes through one funnel that logs the reason to the remote
// rebootLog, marks the node as rebooting, and launches the reboot command.
// A second trigger while rebooting is ignored.
//
// Publishing and navigating never block the loop: remote writes are
// fire-and-forget and each navigate runs in its own goroutine.
//
// The loop publishes a Status snapshot after every state change. Status is
// safe to call from any goroutine, and SetOnStatus registers a callback that
// runs on the loop.
//
// # Usage
//
//	ctrl, err := controller.New(controller.Config{
//	    Node:              cfg.Node.Name,
//	    Version:           version,
//	    MaxStale:          cfg.MaxStale(),
//	    CheckInterval:     cfg.Watchdog.CheckInterval,
//	    HeartbeatInterval: cfg.Heartbeat.Interval,
//	    Store:             store,
//	    Monitor:           tracker,
//	    Navigator:         navigator,
//	    Rebooter:          rebooter,
//	})
//	if err != nil {
//	    return err
//	}
//	if err := ctrl.Start(ctx); err != nil {
//	    return err
//	}
//	return ctrl.Run(ctx)
package controller
