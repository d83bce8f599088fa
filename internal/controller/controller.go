package controller

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/devicelab-core/internal/device"
	"github.com/nerrad567/devicelab-core/internal/remote"
)

// eventBuffer is the capacity of the remote event queue.
const eventBuffer = 64

// defaultNavigateTimeout bounds a single navigate command.
const defaultNavigateTimeout = 30 * time.Second

// Store is the Remote State Channel as used by the controller.
// *remote.Store satisfies it.
type Store interface {
	Set(path string, v any) error
	Remove(path string) error
	Push(path string, v any) (string, error)
	Watch(path string, fn func(remote.Value)) error
	WatchConnection(fn func(connected bool))
	OnDisconnectSet(path string, v any) error
	OnDisconnectRemove(path string) error
}

// Rebooter is the Recovery Action primitive. Reboot must return once the
// reboot has been initiated, without waiting for it to complete.
type Rebooter interface {
	Reboot(reason string) error
}

// Metrics receives controller telemetry. *influxdb.Client satisfies it.
type Metrics interface {
	RecordStaleness(elapsed time.Duration)
	RecordHeartbeat()
	RecordReboot(reason string)
	RecordNavigate(deviceID string, ok bool)
	RecordDevices(count int)
}

// Logger defines the logging interface used by the controller.
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

type noopMetrics struct{}

func (noopMetrics) RecordStaleness(time.Duration) {}
func (noopMetrics) RecordHeartbeat()              {}
func (noopMetrics) RecordReboot(string)           {}
func (noopMetrics) RecordNavigate(string, bool)   {}
func (noopMetrics) RecordDevices(int)             {}

// Config holds the controller's collaborators and timing.
type Config struct {
	// Node is this controller's name under clients/.
	Node string

	// Version is published once per session.
	Version string

	// MaxStale is how long the target may stay unchanged before recovery.
	MaxStale time.Duration

	// CheckInterval is the watchdog period. Must be shorter than MaxStale.
	CheckInterval time.Duration

	// HeartbeatInterval is the heartbeat period.
	HeartbeatInterval time.Duration

	// HomeURL is sent to devices that attach before any target arrives.
	// Empty disables it.
	HomeURL string

	// NavigateTimeout bounds each navigate command. Default: 30 seconds.
	NavigateTimeout time.Duration

	Store     Store
	Monitor   device.Monitor
	Navigator device.Navigator
	Rebooter  Rebooter
}

// Controller is the liveness and reconciliation core of a DeviceLab node.
//
// All state below the "loop-owned" marker is touched only by the goroutine
// running Run (and by Start before Run begins), so it carries no locks.
// Remote callbacks and device events reach that goroutine as events.
type Controller struct {
	node       string
	version    string
	maxStale   time.Duration
	checkIvl   time.Duration
	beatIvl    time.Duration
	homeURL    string
	navTimeout time.Duration

	store     Store
	monitor   device.Monitor
	navigator device.Navigator
	rebooter  Rebooter
	metrics   Metrics
	logger    Logger
	now       func() time.Time

	events  chan event
	stopped chan struct{}
	stop    sync.Once
	ctx     context.Context
	navWG   sync.WaitGroup

	status   atomic.Pointer[Status]
	onStatus func(Status)

	// loop-owned
	registry     *device.Registry
	target       string
	lastChange   time.Time // zero until the first target arrives
	startedAt    time.Time
	connected    bool
	rebootReason string // non-empty once recovery has started
}

// New creates a controller. Call Start, then Run.
func New(cfg Config) (*Controller, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	navTimeout := cfg.NavigateTimeout
	if navTimeout <= 0 {
		navTimeout = defaultNavigateTimeout
	}

	return &Controller{
		node:       cfg.Node,
		version:    cfg.Version,
		maxStale:   cfg.MaxStale,
		checkIvl:   cfg.CheckInterval,
		beatIvl:    cfg.HeartbeatInterval,
		homeURL:    cfg.HomeURL,
		navTimeout: navTimeout,
		store:      cfg.Store,
		monitor:    cfg.Monitor,
		navigator:  cfg.Navigator,
		rebooter:   cfg.Rebooter,
		metrics:    noopMetrics{},
		logger:     noopLogger{},
		now:        time.Now,
		events:     make(chan event, eventBuffer),
		stopped:    make(chan struct{}),
		ctx:        context.Background(),
		registry:   device.NewRegistry(),
	}, nil
}

func (cfg Config) validate() error {
	switch {
	case cfg.Node == "":
		return fmt.Errorf("%w: node is required", ErrInvalidConfig)
	case cfg.Store == nil || cfg.Monitor == nil || cfg.Navigator == nil || cfg.Rebooter == nil:
		return fmt.Errorf("%w: store, monitor, navigator and rebooter are required", ErrInvalidConfig)
	case cfg.MaxStale <= 0:
		return fmt.Errorf("%w: max stale must be positive", ErrInvalidConfig)
	case cfg.CheckInterval <= 0 || cfg.CheckInterval >= cfg.MaxStale:
		return fmt.Errorf("%w: check interval must be positive and shorter than max stale", ErrInvalidConfig)
	case cfg.HeartbeatInterval <= 0:
		return fmt.Errorf("%w: heartbeat interval must be positive", ErrInvalidConfig)
	}
	return nil
}

// SetLogger sets the logger for the controller.
func (c *Controller) SetLogger(logger Logger) {
	c.logger = logger
}

// SetMetrics sets the telemetry sink for the controller.
func (c *Controller) SetMetrics(metrics Metrics) {
	c.metrics = metrics
}

// Run processes device events, remote events, and both timers until ctx
// is cancelled. It must be called once, after Start.
func (c *Controller) Run(ctx context.Context) error {
	defer c.shutdown()

	watchdog := time.NewTicker(c.checkIvl)
	defer watchdog.Stop()
	heartbeat := time.NewTicker(c.beatIvl)
	defer heartbeat.Stop()

	devices := c.monitor.Events()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-devices:
			if !ok {
				devices = nil
				c.monitorClosed()
				continue
			}
			c.handleDevice(ev)

		case ev := <-c.events:
			c.handle(ev)

		case <-watchdog.C:
			c.checkStaleness()

		case <-heartbeat.C:
			c.beat()
		}
	}
}

// shutdown releases blocked producers and waits for in-flight navigates.
func (c *Controller) shutdown() {
	c.stop.Do(func() { close(c.stopped) })
	c.navWG.Wait()
}

// monitorClosed handles the end of the device event stream.
func (c *Controller) monitorClosed() {
	err := c.monitor.Err()
	if err == nil {
		c.logger.Info("device monitor stopped")
		return
	}
	c.logger.Error("device monitor failed", "error", err)
	c.reboot("device monitor error")
}
