package controller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/devicelab-core/internal/device"
	"github.com/nerrad567/devicelab-core/internal/remote"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	f.mu.Unlock()
}

// storeOp is one recorded Store call.
type storeOp struct {
	kind  string
	path  string
	value any
}

// fakeStore is an in-memory Store that records every call.
type fakeStore struct {
	mu        sync.Mutex
	ops       []storeOp
	values    map[string]any
	manifest  map[string]storeOp
	pushes    map[string][]any
	watches   map[string]func(remote.Value)
	connWatch []func(bool)
	connected bool
	watchErr  error
	setErr    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		values:   make(map[string]any),
		manifest: make(map[string]storeOp),
		pushes:   make(map[string][]any),
		watches:  make(map[string]func(remote.Value)),
	}
}

func (f *fakeStore) record(op storeOp) {
	f.ops = append(f.ops, op)
}

func (f *fakeStore) Set(path string, v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	f.record(storeOp{"set", path, v})
	f.values[path] = v
	return nil
}

func (f *fakeStore) Remove(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	f.record(storeOp{"remove", path, nil})
	delete(f.values, path)
	return nil
}

func (f *fakeStore) Push(path string, v any) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return "", f.setErr
	}
	f.record(storeOp{"push", path, v})
	f.pushes[path] = append(f.pushes[path], v)
	return "key", nil
}

func (f *fakeStore) Watch(path string, fn func(remote.Value)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.watchErr != nil {
		return f.watchErr
	}
	f.record(storeOp{"watch", path, nil})
	f.watches[path] = fn
	return nil
}

func (f *fakeStore) WatchConnection(fn func(bool)) {
	f.mu.Lock()
	f.record(storeOp{"watch-connection", "", nil})
	f.connWatch = append(f.connWatch, fn)
	connected := f.connected
	f.mu.Unlock()
	if connected {
		fn(true)
	}
}

func (f *fakeStore) OnDisconnectSet(path string, v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	op := storeOp{"on-disconnect-set", path, v}
	f.record(op)
	f.manifest[path] = op
	return nil
}

func (f *fakeStore) OnDisconnectRemove(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	op := storeOp{"on-disconnect-remove", path, nil}
	f.record(op)
	f.manifest[path] = op
	return nil
}

// deliver simulates a remote value change at path.
func (f *fakeStore) deliver(path, raw string) {
	f.mu.Lock()
	fn := f.watches[path]
	f.mu.Unlock()
	if fn != nil {
		fn(remote.NewValue(path, []byte(raw)))
	}
}

// setConnected simulates a connectivity transition.
func (f *fakeStore) setConnected(connected bool) {
	f.mu.Lock()
	f.connected = connected
	watchers := append([]func(bool){}, f.connWatch...)
	f.mu.Unlock()
	for _, fn := range watchers {
		fn(connected)
	}
}

func (f *fakeStore) value(path string) (any, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[path]
	return v, ok
}

func (f *fakeStore) pushed(path string) []any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]any(nil), f.pushes[path]...)
}

func (f *fakeStore) armed(path string) (storeOp, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	op, ok := f.manifest[path]
	return op, ok
}

func (f *fakeStore) opsSnapshot() []storeOp {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]storeOp(nil), f.ops...)
}

func (f *fakeStore) resetOps() {
	f.mu.Lock()
	f.ops = nil
	f.mu.Unlock()
}

// navCall is one recorded navigate command.
type navCall struct {
	id  string
	url string
}

// fakeNavigator records navigate commands.
type fakeNavigator struct {
	mu    sync.Mutex
	calls []navCall
	fail  map[string]error
}

func (f *fakeNavigator) Navigate(_ context.Context, id, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, navCall{id: id, url: url})
	return f.fail[id]
}

func (f *fakeNavigator) callsFor(id string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var urls []string
	for _, c := range f.calls {
		if c.id == id {
			urls = append(urls, c.url)
		}
	}
	return urls
}

func (f *fakeNavigator) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// fakeRebooter records reboot reasons.
type fakeRebooter struct {
	mu      sync.Mutex
	reasons []string
	err     error
}

func (f *fakeRebooter) Reboot(reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reasons = append(f.reasons, reason)
	return f.err
}

func (f *fakeRebooter) snapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.reasons...)
}

// fakeMonitor is a device.Monitor fed by the test.
type fakeMonitor struct {
	ch  chan device.Event
	mu  sync.Mutex
	err error
}

func newFakeMonitor() *fakeMonitor {
	return &fakeMonitor{ch: make(chan device.Event, 16)}
}

func (f *fakeMonitor) Events() <-chan device.Event { return f.ch }

func (f *fakeMonitor) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *fakeMonitor) Close() {}

// fail closes the stream with err.
func (f *fakeMonitor) fail(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
	close(f.ch)
}

// recordingMetrics counts telemetry calls.
type recordingMetrics struct {
	mu        sync.Mutex
	staleness []time.Duration
	beats     int
	reboots   []string
	navigates map[string][]bool
	devices   []int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{navigates: make(map[string][]bool)}
}

func (m *recordingMetrics) RecordStaleness(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.staleness = append(m.staleness, d)
}

func (m *recordingMetrics) RecordHeartbeat() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.beats++
}

func (m *recordingMetrics) RecordReboot(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reboots = append(m.reboots, reason)
}

func (m *recordingMetrics) RecordNavigate(id string, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.navigates[id] = append(m.navigates[id], ok)
}

func (m *recordingMetrics) RecordDevices(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.devices = append(m.devices, count)
}

// harness bundles a controller with its fakes.
type harness struct {
	ctrl     *Controller
	store    *fakeStore
	monitor  *fakeMonitor
	nav      *fakeNavigator
	rebooter *fakeRebooter
	metrics  *recordingMetrics
	clock    *fakeClock
}

func testConfig(h *harness) Config {
	return Config{
		Node:              "pi1",
		Version:           "1.4.0",
		MaxStale:          120 * time.Second,
		CheckInterval:     3 * time.Second,
		HeartbeatInterval: 30 * time.Second,
		Store:             h.store,
		Monitor:           h.monitor,
		Navigator:         h.nav,
		Rebooter:          h.rebooter,
	}
}

func newHarness(t *testing.T, mutate ...func(*Config)) *harness {
	t.Helper()

	h := &harness{
		store:    newFakeStore(),
		monitor:  newFakeMonitor(),
		nav:      &fakeNavigator{fail: make(map[string]error)},
		rebooter: &fakeRebooter{},
		metrics:  newRecordingMetrics(),
		clock:    newFakeClock(),
	}
	cfg := testConfig(h)
	for _, m := range mutate {
		m(&cfg)
	}

	ctrl, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctrl.now = h.clock.Now
	ctrl.SetMetrics(h.metrics)
	h.ctrl = ctrl
	return h
}

// settle waits for in-flight navigates started by direct handler calls.
func (h *harness) settle() {
	h.ctrl.navWG.Wait()
}

// eventually polls cond until it holds or the deadline passes.
func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

var errBoom = errors.New("boom")
