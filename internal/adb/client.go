package adb

import (
	"fmt"

	goadb "github.com/zach-klippenstein/goadb"

	"github.com/nerrad567/devicelab-core/internal/infrastructure/config"
)

// Logger defines the logging interface used by this package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Connect returns a client for the adb server described by cfg and checks
// that the server answers. When cfg.Path names an adb binary the server is
// started first if it is not already running.
func Connect(cfg config.ADBConfig) (*goadb.Adb, error) {
	client, err := goadb.NewWithConfig(goadb.ServerConfig{
		Host:      cfg.Host,
		Port:      cfg.Port,
		PathToAdb: cfg.Path,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrServerUnavailable, err)
	}

	if cfg.Path != "" {
		if err := client.StartServer(); err != nil {
			return nil, fmt.Errorf("%w: starting server: %w", ErrServerUnavailable, err)
		}
	}

	if _, err := client.ServerVersion(); err != nil {
		return nil, fmt.Errorf("%w: %s:%d: %w", ErrServerUnavailable, cfg.Host, cfg.Port, err)
	}

	return client, nil
}
