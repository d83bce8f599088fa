package controller

import (
	"time"
)

// Status is a point-in-time view of the controller for local observers.
type Status struct {
	Node       string    `json:"node"`
	Version    string    `json:"version"`
	StartedAt  time.Time `json:"started_at,omitzero"`
	Connected  bool      `json:"connected"`
	Target     string    `json:"target,omitempty"`
	LastChange time.Time `json:"last_change,omitzero"`
	Devices    []string  `json:"devices"`
	Rebooting  string    `json:"rebooting,omitempty"`
}

// SetOnStatus sets a callback invoked with every new Status snapshot.
// It runs on the loop goroutine and must not block. Call before Start.
func (c *Controller) SetOnStatus(fn func(Status)) {
	c.onStatus = fn
}

// Status returns the latest snapshot. Safe for concurrent use.
func (c *Controller) Status() Status {
	if s := c.status.Load(); s != nil {
		return *s
	}
	return Status{Node: c.node, Version: c.version, Devices: []string{}}
}

// publishStatus snapshots loop-owned state after a mutation.
func (c *Controller) publishStatus() {
	s := Status{
		Node:       c.node,
		Version:    c.version,
		StartedAt:  c.startedAt,
		Connected:  c.connected,
		Target:     c.target,
		LastChange: c.lastChange,
		Devices:    c.registry.IDs(),
		Rebooting:  c.rebootReason,
	}
	c.status.Store(&s)
	if c.onStatus != nil {
		c.onStatus(s)
	}
}
