package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/nerrad567/devicelab-core/internal/infrastructure/config"
)

// serviceName is attached to every log entry.
const serviceName = "devicelab"

// Attribute keys shared by every DeviceLab log line. Fleet log queries
// group by node first, then by component.
const (
	KeyService   = "service"
	KeyVersion   = "version"
	KeyNode      = "node"
	KeyComponent = "component"
)

// Logger is a slog.Logger bound to one DeviceLab node.
//
// Every entry carries the service, build version and node name, so lines
// shipped from many lab nodes to one sink stay attributable.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Logger struct {
	*slog.Logger
}

// New creates the node logger from cfg.
//
// Output is stdout unless cfg.Output is "stderr". Format is JSON unless
// cfg.Format is "text". An empty node is omitted, which is only the case
// before configuration has been loaded.
func New(cfg config.LoggingConfig, node, version string) *Logger {
	return newWithWriter(writerFor(cfg.Output), cfg, node, version)
}

func writerFor(output string) io.Writer {
	if strings.EqualFold(output, "stderr") {
		return os.Stderr
	}
	return os.Stdout
}

func newWithWriter(output io.Writer, cfg config.LoggingConfig, node, version string) *Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler = slog.NewJSONHandler(output, opts)
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(output, opts)
	}

	attrs := []slog.Attr{
		slog.String(KeyService, serviceName),
		slog.String(KeyVersion, version),
	}
	if node != "" {
		attrs = append(attrs, slog.String(KeyNode, node))
	}

	return &Logger{Logger: slog.New(handler.WithAttrs(attrs))}
}

// parseLevel maps debug, warn/warning and error; anything else is info.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// With returns a new Logger with additional default attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Component returns a logger for one subsystem of the node.
//
//	log.Component("adb").Info("tracking devices") // component=adb
func (l *Logger) Component(name string) *Logger {
	return l.With(KeyComponent, name)
}

// Default is the bootstrap logger used until configuration is loaded:
// JSON on stdout at info level, without a node.
func Default(version string) *Logger {
	return New(config.LoggingConfig{}, "", version)
}
