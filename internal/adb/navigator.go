package adb

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	goadb "github.com/zach-klippenstein/goadb"

	"github.com/nerrad567/devicelab-core/internal/device"
	"github.com/nerrad567/devicelab-core/internal/infrastructure/config"
)

// browserAppExtra keeps the browser on one tab per app id instead of
// opening a new tab for every intent.
const browserAppExtra = "com.android.browser.application_id"

// runFunc runs a shell command on the device with the given serial.
type runFunc func(serial, cmd string, args ...string) (string, error)

// Navigator opens URLs on devices through the activity manager.
type Navigator struct {
	cfg config.NavigateConfig
	run runFunc
}

// NewNavigator returns a Navigator that sends intents through client.
// A nil client yields a Navigator that rejects every command.
func NewNavigator(client *goadb.Adb, cfg config.NavigateConfig) *Navigator {
	return &Navigator{
		cfg: cfg,
		run: func(serial, cmd string, args ...string) (string, error) {
			if client == nil {
				return "", ErrServerUnavailable
			}
			return client.Device(goadb.DeviceWithSerial(serial)).RunCommand(cmd, args...)
		},
	}
}

// Navigate opens target on the device id.
func (n *Navigator) Navigate(ctx context.Context, id, target string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	args, err := n.intentArgs(target)
	if err != nil {
		return err
	}

	out, err := n.run(id, "am", args...)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrNavigateFailed, id, err)
	}
	if msg, failed := amError(out); failed {
		return fmt.Errorf("%w: %s: %s", ErrNavigateFailed, id, msg)
	}
	return nil
}

// intentArgs builds the "am start" arguments for target.
//
// The device shell sees the joined command line, so the URL is single
// quoted to keep '&' and '?' literal.
func (n *Navigator) intentArgs(target string) ([]string, error) {
	if err := validateURL(target); err != nil {
		return nil, err
	}

	args := []string{"start"}
	if n.cfg.Action != "" {
		args = append(args, "-a", n.cfg.Action)
	}
	args = append(args, "-n", n.cfg.Component)
	if n.cfg.Flags != "" {
		args = append(args, "-f", n.cfg.Flags)
	}
	args = append(args,
		"-d", "'"+target+"'",
		"--es", browserAppExtra, browserPackage(n.cfg.Component),
	)
	return args, nil
}

// browserPackage returns the package half of an activity component.
func browserPackage(component string) string {
	if pkg, _, ok := strings.Cut(component, "/"); ok {
		return pkg
	}
	return component
}

// validateURL rejects targets that cannot be passed through the device shell.
func validateURL(target string) error {
	if target == "" {
		return fmt.Errorf("%w: empty", device.ErrInvalidURL)
	}
	if strings.ContainsAny(target, "'\" \t\r\n") {
		return fmt.Errorf("%w: %q contains quotes or whitespace", device.ErrInvalidURL, target)
	}
	if _, err := url.Parse(target); err != nil {
		return fmt.Errorf("%w: %w", device.ErrInvalidURL, err)
	}
	return nil
}

// amError extracts the failure line from activity manager output.
func amError(out string) (string, bool) {
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "Error:") || strings.HasPrefix(line, "Error type") {
			return line, true
		}
	}
	return "", false
}
