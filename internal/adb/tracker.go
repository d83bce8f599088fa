package adb

import (
	"sync"

	goadb "github.com/zach-klippenstein/goadb"

	"github.com/nerrad567/devicelab-core/internal/device"
)

// trackerBuffer is the event channel capacity. Attach bursts at boot can
// exceed a handful of devices.
const trackerBuffer = 32

// watcher is the part of goadb's DeviceWatcher used by Tracker.
type watcher interface {
	C() <-chan goadb.DeviceStateChangedEvent
	Err() error
	Shutdown()
}

// Tracker is a device.Monitor backed by the adb server's device tracking.
//
// Devices already attached when tracking starts are reported as adds.
type Tracker struct {
	w      watcher
	events chan device.Event
	logger Logger

	mu     sync.Mutex
	err    error
	closed bool
	done   chan struct{}
}

// NewTracker starts tracking devices on client.
func NewTracker(client *goadb.Adb) *Tracker {
	return newTracker(client.NewDeviceWatcher(), noopLogger{})
}

// FailedTracker returns a Tracker whose event stream has already ended
// with err. It stands in for a server that could not be reached at startup
// so the failure reaches the controller like any other monitor error.
func FailedTracker(err error) *Tracker {
	return newTracker(newFailedWatcher(err), noopLogger{})
}

// failedWatcher is a watcher that stopped before delivering anything.
type failedWatcher struct {
	c   chan goadb.DeviceStateChangedEvent
	err error
}

func newFailedWatcher(err error) *failedWatcher {
	c := make(chan goadb.DeviceStateChangedEvent)
	close(c)
	return &failedWatcher{c: c, err: err}
}

func (w *failedWatcher) C() <-chan goadb.DeviceStateChangedEvent { return w.c }
func (w *failedWatcher) Err() error                              { return w.err }
func (w *failedWatcher) Shutdown()                               {}

func newTracker(w watcher, logger Logger) *Tracker {
	t := &Tracker{
		w:      w,
		events: make(chan device.Event, trackerBuffer),
		logger: logger,
		done:   make(chan struct{}),
	}
	go t.forward()
	return t
}

// SetLogger sets the logger for the tracker.
func (t *Tracker) SetLogger(logger Logger) {
	t.mu.Lock()
	t.logger = logger
	t.mu.Unlock()
}

func (t *Tracker) getLogger() Logger {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.logger
}

// forward translates watcher notifications until the watcher stops.
func (t *Tracker) forward() {
	defer close(t.done)
	defer close(t.events)

	for ev := range t.w.C() {
		out := toEvent(ev)
		t.getLogger().Debug("adb device state changed",
			"serial", ev.Serial,
			"old", ev.OldState,
			"new", ev.NewState,
			"event", out.Kind.String(),
		)
		t.events <- out
	}

	t.mu.Lock()
	if !t.closed {
		t.err = t.w.Err()
		if t.err == nil {
			t.err = device.ErrMonitorClosed
		}
	}
	t.mu.Unlock()
}

// Events returns the translated event stream. It is closed when tracking stops.
func (t *Tracker) Events() <-chan device.Event {
	return t.events
}

// Err reports why the event stream closed. It is nil after Close.
func (t *Tracker) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Close stops tracking and waits for the event stream to drain.
// Pending events are discarded.
func (t *Tracker) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	t.mu.Unlock()

	t.w.Shutdown()
	for range t.events {
	}
	<-t.done
}

// toEvent maps an adb state transition onto a Monitor event.
//
//   - disconnected → online: add
//   - anything → disconnected: remove
//   - otherwise: change, classified by the new state
func toEvent(ev goadb.DeviceStateChangedEvent) device.Event {
	switch {
	case ev.OldState == goadb.StateDisconnected && ev.NewState == goadb.StateOnline:
		return device.Add(ev.Serial)
	case ev.NewState == goadb.StateDisconnected:
		return device.Remove(ev.Serial)
	}
	return device.Change(ev.Serial, classify(ev.NewState))
}

func classify(state goadb.DeviceState) device.Status {
	switch state {
	case goadb.StateOnline:
		return device.StatusPresent
	case goadb.StateOffline:
		return device.StatusOffline
	default:
		return device.StatusOther
	}
}
