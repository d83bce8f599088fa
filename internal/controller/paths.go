package controller

import "fmt"

// TargetPath is the shared command path holding the current target URL.
const TargetPath = "url"

// Per-node status fields under clients/{node}/.
const (
	fieldStartedAt       = "startedAt"
	fieldVersion         = "version"
	fieldReboot          = "reboot"
	fieldRebooting       = "rebooting"
	fieldRebootLog       = "rebootLog"
	fieldClients         = "clients"
	fieldTimeSinceChange = "timeSinceChange"
	fieldURL             = "url"
	fieldURLTime         = "urlTime"
	fieldHeartBeat       = "heartBeat"
	fieldConnectedAt     = "connectedAt"
	fieldDisconnectedAt  = "disconnectedAt"
	fieldAlive           = "alive"
)

// nodePath returns the state path of a per-node field.
func (c *Controller) nodePath(field string) string {
	return fmt.Sprintf("clients/%s/%s", c.node, field)
}
