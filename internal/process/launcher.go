package process

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// outputBufferSize is the buffer size for capturing subprocess stdout/stderr.
const outputBufferSize = 4096

// ErrNoBinary is returned when a Config has no executable.
var ErrNoBinary = errors.New("process: binary is required")

// Config holds configuration for a launched subprocess.
type Config struct {
	// Name is a human-readable identifier for logging.
	Name string

	// Binary is the path (or PATH-resolved name) of the executable.
	Binary string

	// Args are command-line arguments to pass to the binary.
	Args []string

	// Env are additional environment variables (key=value format).
	// If nil, inherits from parent process.
	Env []string

	// WorkDir is the working directory for the process.
	// If empty, inherits from parent process.
	WorkDir string
}

// FromArgv builds a Config from an argv slice.
func FromArgv(name string, argv []string) Config {
	cfg := Config{Name: name}
	if len(argv) > 0 {
		cfg.Binary = argv[0]
		cfg.Args = argv[1:]
	}
	return cfg
}

// Logger defines the logging interface for the launcher.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Process is a launched subprocess. Its exit is observed in the background.
type Process struct {
	Name      string
	Pid       int
	StartedAt time.Time

	done chan struct{}
	mu   sync.Mutex
	err  error
}

// Done is closed once the process has exited and been reaped.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Err returns the exit error once Done is closed.
func (p *Process) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Launcher starts fire-and-forget subprocesses.
type Launcher struct {
	logger Logger
}

// NewLauncher creates a launcher that discards its logs.
func NewLauncher() *Launcher {
	return &Launcher{logger: noopLogger{}}
}

// SetLogger sets the logger for the launcher.
func (l *Launcher) SetLogger(logger Logger) {
	l.logger = logger
}

// Launch starts the subprocess and returns without waiting for it.
//
// The child runs in its own process group so it is not taken down by
// signals aimed at this process, and it is not bound to any context.
// Output is logged line-buffered at debug level and the exit status at
// info/warn level.
func (l *Launcher) Launch(cfg Config) (*Process, error) {
	if cfg.Binary == "" {
		return nil, ErrNoBinary
	}

	l.logger.Info("starting process",
		"name", cfg.Name,
		"binary", cfg.Binary,
		"args", cfg.Args,
	)

	cmd := exec.Command(cfg.Binary, cfg.Args...) //nolint:gosec // argv comes from validated configuration

	// Create a new process group so the child outlives our own shutdown signals
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if cfg.Env != nil {
		cmd.Env = append(os.Environ(), cfg.Env...)
	}
	if cfg.WorkDir != "" {
		cmd.Dir = cfg.WorkDir
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("creating stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("creating stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", cfg.Name, err)
	}

	p := &Process{
		Name:      cfg.Name,
		Pid:       cmd.Process.Pid,
		StartedAt: time.Now(),
		done:      make(chan struct{}),
	}

	l.logger.Info("process started",
		"name", cfg.Name,
		"pid", p.Pid,
	)

	var wg sync.WaitGroup
	wg.Add(2)
	go l.captureOutput(&wg, cfg.Name, "stdout", stdout)
	go l.captureOutput(&wg, cfg.Name, "stderr", stderr)

	go func() {
		// Pipes must be drained before Wait closes them.
		wg.Wait()
		err := cmd.Wait()

		p.mu.Lock()
		p.err = err
		p.mu.Unlock()

		if err != nil {
			l.logger.Warn("process exited with error",
				"name", cfg.Name,
				"pid", p.Pid,
				"error", err,
			)
		} else {
			l.logger.Info("process exited",
				"name", cfg.Name,
				"pid", p.Pid,
				"uptime", time.Since(p.StartedAt).Round(time.Millisecond),
			)
		}
		close(p.done)
	}()

	return p, nil
}

// captureOutput reads from the given reader and logs each chunk.
func (l *Launcher) captureOutput(wg *sync.WaitGroup, name, stream string, r io.Reader) {
	defer wg.Done()

	buf := make([]byte, outputBufferSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			l.logger.Debug("process output",
				"name", name,
				"stream", stream,
				"output", string(buf[:n]),
			)
		}
		if err != nil {
			if err != io.EOF {
				l.logger.Debug("output stream closed",
					"name", name,
					"stream", stream,
				)
			}
			return
		}
	}
}
