// Package process launches fire-and-forget subprocesses for the DeviceLab
// controller.
//
// The only long-lived caller is the Recovery Action: Rebooter runs the
// configured reboot command (default "sudo reboot") and returns as soon as
// it has started. The operating system terminates this process shortly
// after, so nothing ever waits for the command to finish.
//
// Features:
//   - Child runs in its own process group
//   - Log capture from subprocess stdout/stderr
//   - Exit status reaped and logged in the background
//   - Dry-run mode for bench testing
//
// Example usage:
//
//	launcher := process.NewLauncher()
//	launcher.SetLogger(logger)
//
//	rebooter := process.NewRebooter(launcher, cfg.Recovery)
//	if err := rebooter.Reboot("connection lost"); err != nil {
//	    logger.Error("reboot failed", "error", err)
//	}
package process
