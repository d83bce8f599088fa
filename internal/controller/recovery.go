package controller

import (
	"time"
)

// RebootEntry is one record of the append-only rebootLog.
type RebootEntry struct {
	// Date is unix milliseconds.
	Date   int64  `json:"date"`
	DT     string `json:"dt"`
	Reason string `json:"reason"`
}

// reboot is the single Recovery Action funnel.
//
// In order: append {time, reason} to rebootLog, publish reason as the
// rebooting status, and launch the reboot primitive without waiting. Once
// a reboot is under way further triggers are no-ops.
func (c *Controller) reboot(reason string) {
	if c.rebootReason != "" {
		c.logger.Debug("reboot already in progress", "reason", reason)
		return
	}
	c.rebootReason = reason
	c.publishStatus()

	now := c.now()
	c.logger.Warn("recovery triggered", "reason", reason)

	entry := RebootEntry{
		Date:   now.UnixMilli(),
		DT:     now.UTC().Format(time.RFC3339),
		Reason: reason,
	}
	if _, err := c.store.Push(c.nodePath(fieldRebootLog), entry); err != nil {
		c.logger.Warn("reboot log push failed", "error", err)
	}
	c.set(fieldRebooting, reason)
	c.metrics.RecordReboot(reason)

	if err := c.rebooter.Reboot(reason); err != nil {
		c.logger.Error("reboot failed", "reason", reason, "error", err)
	}
}
