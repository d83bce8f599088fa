package remote

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/nerrad567/devicelab-core/internal/infrastructure/mqtt"
)

type published struct {
	topic   string
	payload []byte
}

// fakeTransport records publishes and lets tests drive deliveries and
// connectivity.
type fakeTransport struct {
	mu           sync.Mutex
	connected    bool
	publishErr   error
	published    []published
	handlers     map[string]mqtt.MessageHandler
	onConnect    func()
	onDisconnect func(error)
}

func newFakeTransport(connected bool) *fakeTransport {
	return &fakeTransport{
		connected: connected,
		handlers:  make(map[string]mqtt.MessageHandler),
	}
}

func (f *fakeTransport) PublishRetained(topic string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, published{topic: topic, payload: payload})
	return nil
}

func (f *fakeTransport) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[topic] = handler
	return nil
}

func (f *fakeTransport) Unsubscribe(topic string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.handlers, topic)
	return nil
}

func (f *fakeTransport) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeTransport) SetOnConnect(cb func())         { f.onConnect = cb }
func (f *fakeTransport) SetOnDisconnect(cb func(error)) { f.onDisconnect = cb }
func (f *fakeTransport) Topics() mqtt.Topics            { return mqtt.NewTopics("devicelab", "pi1") }
func (f *fakeTransport) QoS() byte                      { return 1 }

// deliver routes a message to every handler whose filter matches topic.
func (f *fakeTransport) deliver(topic, payload string) {
	f.mu.Lock()
	var hs []mqtt.MessageHandler
	for filter, h := range f.handlers {
		if matchTopic(filter, topic) {
			hs = append(hs, h)
		}
	}
	f.mu.Unlock()
	for _, h := range hs {
		_ = h(topic, []byte(payload))
	}
}

// matchTopic reports whether topic matches filter. Only the single-level
// wildcard is supported.
func matchTopic(filter, topic string) bool {
	fs, ts := strings.Split(filter, "/"), strings.Split(topic, "/")
	if len(fs) != len(ts) {
		return false
	}
	for i := range fs {
		if fs[i] != "+" && fs[i] != ts[i] {
			return false
		}
	}
	return true
}

func (f *fakeTransport) publishedTo(topic string) (published, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.published) - 1; i >= 0; i-- {
		if f.published[i].topic == topic {
			return f.published[i], true
		}
	}
	return published{}, false
}

func (f *fakeTransport) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.published)
}

func (f *fakeTransport) last() published {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.published) == 0 {
		return published{}
	}
	return f.published[len(f.published)-1]
}

func TestStore_SetRemove(t *testing.T) {
	tr := newFakeTransport(true)
	s := New(tr)

	if err := s.Set("clients/pi1/version", "1.4.0"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got := tr.last()
	if got.topic != "devicelab/clients/pi1/version" || string(got.payload) != `"1.4.0"` {
		t.Errorf("Set published %s=%s", got.topic, got.payload)
	}

	if err := s.Set("clients/pi1/clients", map[string]bool{"D1": true}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if string(tr.last().payload) != `{"D1":true}` {
		t.Errorf("Set(map) payload = %s", tr.last().payload)
	}

	if err := s.Remove("clients/pi1/rebooting"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	got = tr.last()
	if got.topic != "devicelab/clients/pi1/rebooting" || len(got.payload) != 0 {
		t.Errorf("Remove published %s=%q, want empty payload", got.topic, got.payload)
	}
}

func TestStore_InvalidPath(t *testing.T) {
	s := New(newFakeTransport(true))

	for _, path := range []string{"", "/", "clients/+/url", "clients/#"} {
		if err := s.Set(path, 1); !errors.Is(err, ErrInvalidPath) {
			t.Errorf("Set(%q) error = %v, want ErrInvalidPath", path, err)
		}
		if err := s.Remove(path); !errors.Is(err, ErrInvalidPath) {
			t.Errorf("Remove(%q) error = %v, want ErrInvalidPath", path, err)
		}
	}
}

func TestStore_SetEncodeError(t *testing.T) {
	s := New(newFakeTransport(true))
	if err := s.Set("x", make(chan int)); !errors.Is(err, ErrEncode) {
		t.Errorf("Set(chan) error = %v, want ErrEncode", err)
	}
}

func TestStore_PublishErrorPropagates(t *testing.T) {
	tr := newFakeTransport(false)
	tr.publishErr = mqtt.ErrNotConnected
	s := New(tr)

	if err := s.Set("clients/pi1/heartBeat", "now"); !errors.Is(err, mqtt.ErrNotConnected) {
		t.Errorf("Set() error = %v, want ErrNotConnected", err)
	}
}

func TestStore_Push(t *testing.T) {
	tr := newFakeTransport(true)
	s := New(tr)

	keys := []string{"k1", "k2"}
	s.newKey = func() string {
		k := keys[0]
		keys = keys[1:]
		return k
	}

	key, err := s.Push("clients/pi1/rebootLog", map[string]string{"reason": "test"})
	if err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	if key != "k1" {
		t.Errorf("Push() key = %q, want k1", key)
	}
	if got := tr.last().topic; got != "devicelab/clients/pi1/rebootLog/k1" {
		t.Errorf("Push() topic = %q", got)
	}

	key, _ = s.Push("clients/pi1/rebootLog/", "again")
	if key != "k2" || tr.last().topic != "devicelab/clients/pi1/rebootLog/k2" {
		t.Errorf("second Push() = %q at %q", key, tr.last().topic)
	}
}

func TestNewPushKey_Ordered(t *testing.T) {
	prev := newPushKey()
	for i := 0; i < 100; i++ {
		next := newPushKey()
		if next <= prev {
			t.Fatalf("push keys not increasing: %s then %s", prev, next)
		}
		prev = next
	}
}

func TestStore_Watch(t *testing.T) {
	tr := newFakeTransport(true)
	s := New(tr)

	var got []Value
	if err := s.Watch("url", func(v Value) { got = append(got, v) }); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	tr.deliver("devicelab/url", `"https://a.example"`)
	tr.deliver("devicelab/url", "")

	if len(got) != 2 {
		t.Fatalf("watcher received %d values, want 2", len(got))
	}
	if got[0].Path != "url" || got[0].String() != "https://a.example" {
		t.Errorf("first value = %+v (%q)", got[0], got[0].String())
	}
	if got[1].Exists() {
		t.Error("empty payload should not exist")
	}

	if err := s.Watch("#", func(Value) {}); !errors.Is(err, ErrInvalidPath) {
		t.Errorf("Watch(#) error = %v, want ErrInvalidPath", err)
	}
}

func TestStore_WatchConnection(t *testing.T) {
	tr := newFakeTransport(true)
	s := New(tr)

	var states []bool
	s.WatchConnection(func(c bool) { states = append(states, c) })

	if len(states) != 1 || !states[0] {
		t.Fatalf("states after registration = %v, want [true]", states)
	}

	tr.onDisconnect(errors.New("EOF"))
	tr.onConnect()

	want := []bool{true, false, true}
	if len(states) != len(want) {
		t.Fatalf("states = %v, want %v", states, want)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Errorf("states = %v, want %v", states, want)
		}
	}
}

func TestStore_WatchConnection_NotYetConnected(t *testing.T) {
	tr := newFakeTransport(false)
	s := New(tr)

	called := false
	s.WatchConnection(func(bool) { called = true })
	if called {
		t.Error("watcher invoked before any connection")
	}
}

func TestStore_OnDisconnectManifest(t *testing.T) {
	tr := newFakeTransport(true)
	s := New(tr)

	if err := s.OnDisconnectRemove("clients/pi1/rebooting"); err != nil {
		t.Fatalf("OnDisconnectRemove() error = %v", err)
	}
	if err := s.OnDisconnectSet("clients/pi1/alive", false); err != nil {
		t.Fatalf("OnDisconnectSet() error = %v", err)
	}
	if err := s.OnDisconnectSet("/clients/pi1/disconnectedAt/", ServerTimestamp); err != nil {
		t.Fatalf("OnDisconnectSet() error = %v", err)
	}

	last := tr.last()
	if last.topic != "devicelab/clients/pi1/$ondisconnect" {
		t.Errorf("manifest topic = %q", last.topic)
	}

	var manifest Manifest
	if err := json.Unmarshal(last.payload, &manifest); err != nil {
		t.Fatalf("manifest payload %s: %v", last.payload, err)
	}
	if len(manifest) != 3 {
		t.Fatalf("manifest = %v, want 3 entries", manifest)
	}
	if op := manifest["clients/pi1/rebooting"]; op.Op != OpRemove || len(op.Value) != 0 {
		t.Errorf("rebooting op = %+v", op)
	}
	if op := manifest["clients/pi1/alive"]; op.Op != OpSet || string(op.Value) != "false" {
		t.Errorf("alive op = %+v", op)
	}
	if op := manifest["clients/pi1/disconnectedAt"]; !strings.Contains(string(op.Value), `".sv":"timestamp"`) {
		t.Errorf("disconnectedAt op = %+v", op)
	}

	// Re-arming a path replaces its entry in the republished manifest.
	_ = s.OnDisconnectRemove("clients/pi1/alive")
	manifest = nil
	if err := json.Unmarshal(tr.last().payload, &manifest); err != nil {
		t.Fatalf("manifest payload %s: %v", tr.last().payload, err)
	}
	if op := manifest["clients/pi1/alive"]; op.Op != OpRemove || len(manifest) != 3 {
		t.Errorf("re-armed manifest = %+v, want alive remove among 3 entries", manifest)
	}
}
