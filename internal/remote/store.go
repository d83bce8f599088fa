package remote

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/nerrad567/devicelab-core/internal/infrastructure/mqtt"
)

// Transport is the subset of the MQTT client the store needs.
// *mqtt.Client satisfies it.
type Transport interface {
	PublishRetained(topic string, payload []byte) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
	IsConnected() bool
	SetOnConnect(callback func())
	SetOnDisconnect(callback func(err error))
	Topics() mqtt.Topics
	QoS() byte
}

// Logger defines the logging interface used by the Store.
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

// Manifest operations.
const (
	OpSet    = "set"
	OpRemove = "remove"
)

// DisconnectOp is one entry of the on-disconnect manifest.
type DisconnectOp struct {
	Op    string          `json:"op"`
	Value json.RawMessage `json:"value,omitempty"`
}

// Manifest maps state paths to the operation armed for them.
type Manifest map[string]DisconnectOp

// Store is the Remote State Channel: a tree-structured key/value store
// mapped onto retained MQTT topics under the configured prefix.
//
// All writes are fire-and-forget. Argument and connection errors are
// returned immediately; delivery failures are logged by the transport.
//
// Thread Safety: all methods are safe for concurrent use.
type Store struct {
	transport Transport
	topics    mqtt.Topics
	logger    Logger
	newKey    func() string

	mu        sync.Mutex
	manifest  Manifest
	watchers  []func(connected bool)
	connected bool
}

// New creates a Store over transport and installs its connection hooks.
func New(transport Transport) *Store {
	s := &Store{
		transport: transport,
		topics:    transport.Topics(),
		logger:    noopLogger{},
		newKey:    newPushKey,
		manifest:  make(Manifest),
		connected: transport.IsConnected(),
	}
	transport.SetOnConnect(func() { s.notifyConnection(true) })
	transport.SetOnDisconnect(func(err error) {
		s.logger.Warn("remote connection lost", "error", err)
		s.notifyConnection(false)
	})
	return s
}

// SetLogger sets the logger for the store.
func (s *Store) SetLogger(logger Logger) {
	s.logger = logger
}

// newPushKey returns a time-ordered key so pushed entries sort by creation.
func newPushKey() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// validatePath rejects paths that cannot name a single retained topic.
func validatePath(path string) error {
	if strings.Trim(path, "/") == "" {
		return fmt.Errorf("%w: empty", ErrInvalidPath)
	}
	if strings.ContainsAny(path, "+#") {
		return fmt.Errorf("%w: %q contains a wildcard", ErrInvalidPath, path)
	}
	return nil
}

// encode marshals v, passing pre-encoded JSON through untouched.
func encode(v any) ([]byte, error) {
	if raw, ok := v.(json.RawMessage); ok {
		return raw, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncode, err)
	}
	return data, nil
}

// Set stores v at path.
func (s *Store) Set(path string, v any) error {
	if err := validatePath(path); err != nil {
		return err
	}
	data, err := encode(v)
	if err != nil {
		return err
	}
	return s.transport.PublishRetained(s.topics.Path(path), data)
}

// Remove deletes the value at path.
func (s *Store) Remove(path string) error {
	if err := validatePath(path); err != nil {
		return err
	}
	return s.transport.PublishRetained(s.topics.Path(path), nil)
}

// Push appends v to the ordered log at path and returns the new entry's key.
func (s *Store) Push(path string, v any) (string, error) {
	if err := validatePath(path); err != nil {
		return "", err
	}
	key := s.newKey()
	if err := s.Set(strings.TrimRight(path, "/")+"/"+key, v); err != nil {
		return "", err
	}
	return key, nil
}

// Watch subscribes fn to value changes at path. The current value, if
// any, is delivered first. Watches survive reconnects.
func (s *Store) Watch(path string, fn func(Value)) error {
	if err := validatePath(path); err != nil {
		return err
	}
	return s.transport.Subscribe(s.topics.Path(path), s.transport.QoS(), func(_ string, payload []byte) error {
		fn(NewValue(path, payload))
		return nil
	})
}

// WatchConnection registers fn for connectivity transitions: true on every
// (re)connect and false on connection loss. If the channel is already
// connected, fn(true) is invoked before WatchConnection returns.
func (s *Store) WatchConnection(fn func(connected bool)) {
	s.mu.Lock()
	s.watchers = append(s.watchers, fn)
	connected := s.connected || s.transport.IsConnected()
	s.mu.Unlock()

	if connected {
		fn(true)
	}
}

func (s *Store) notifyConnection(connected bool) {
	s.mu.Lock()
	s.connected = connected
	watchers := append([]func(bool){}, s.watchers...)
	s.mu.Unlock()

	for _, fn := range watchers {
		fn(connected)
	}
}

// OnDisconnectSet arranges for path to be set to v if this node
// disconnects ungracefully.
func (s *Store) OnDisconnectSet(path string, v any) error {
	if err := validatePath(path); err != nil {
		return err
	}
	data, err := encode(v)
	if err != nil {
		return err
	}
	return s.arm(path, DisconnectOp{Op: OpSet, Value: data})
}

// OnDisconnectRemove arranges for path to be removed if this node
// disconnects ungracefully.
func (s *Store) OnDisconnectRemove(path string) error {
	if err := validatePath(path); err != nil {
		return err
	}
	return s.arm(path, DisconnectOp{Op: OpRemove})
}

// arm records op for path and republishes the manifest. The broker's Last
// Will on the alive topic signals observers to apply it.
func (s *Store) arm(path string, op DisconnectOp) error {
	s.mu.Lock()
	s.manifest[strings.Trim(path, "/")] = op
	data, err := json.Marshal(s.manifest)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("%w: manifest: %w", ErrEncode, err)
	}
	return s.transport.PublishRetained(s.topics.Manifest(), data)
}
