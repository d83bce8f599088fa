package process

import (
	"fmt"

	"github.com/nerrad567/devicelab-core/internal/infrastructure/config"
)

// Rebooter is the node's Recovery Action primitive: it restarts the
// machine by launching the configured command and never waits for it.
type Rebooter struct {
	launcher *Launcher
	cmd      Config
	dryRun   bool
	logger   Logger
}

// NewRebooter creates a Rebooter from the recovery configuration.
func NewRebooter(launcher *Launcher, cfg config.RecoveryConfig) *Rebooter {
	return &Rebooter{
		launcher: launcher,
		cmd:      FromArgv("reboot", cfg.Command),
		dryRun:   cfg.DryRun,
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the rebooter.
func (r *Rebooter) SetLogger(logger Logger) {
	r.logger = logger
}

// Reboot launches the reboot command. In dry-run mode it only logs.
// Reboot returns once the command has started.
func (r *Rebooter) Reboot(reason string) error {
	if r.dryRun {
		r.logger.Warn("dry run: skipping reboot",
			"reason", reason,
			"command", append([]string{r.cmd.Binary}, r.cmd.Args...),
		)
		return nil
	}

	r.logger.Warn("rebooting node", "reason", reason)
	p, err := r.launcher.Launch(r.cmd)
	if err != nil {
		return fmt.Errorf("launching reboot: %w", err)
	}
	go r.watch(p, reason)
	return nil
}

// watch reports a reboot command that exits with an error. A reboot that
// works never gets this far.
func (r *Rebooter) watch(p *Process, reason string) {
	<-p.Done()
	if err := p.Err(); err != nil {
		r.logger.Error("reboot command failed, node still running",
			"reason", reason,
			"pid", p.Pid,
			"error", err,
		)
	}
}
