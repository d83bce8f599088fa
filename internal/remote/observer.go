package remote

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nerrad567/devicelab-core/internal/infrastructure/mqtt"
)

// Observer applies the on-disconnect manifests of peer nodes.
//
// It tracks every retained clients/+/$ondisconnect manifest and watches
// clients/+/alive. When a peer's Last Will sets alive to false, the
// observer replays that peer's manifest once. A graceful close publishes a
// different marker and is left alone. An observer never acts for its own
// node: its own will can only be seen by others.
//
// Applying a manifest is idempotent apart from resolved timestamps, so
// several nodes may observe the same peers.
type Observer struct {
	transport Transport
	topics    mqtt.Topics
	logger    Logger
	now       func() time.Time

	mu        sync.Mutex
	manifests map[string]Manifest
}

// NewObserver creates an observer over transport. Call Start to begin.
func NewObserver(transport Transport) *Observer {
	return &Observer{
		transport: transport,
		topics:    transport.Topics(),
		logger:    noopLogger{},
		now:       time.Now,
		manifests: make(map[string]Manifest),
	}
}

// SetLogger sets the logger for the observer.
func (o *Observer) SetLogger(logger Logger) {
	o.logger = logger
}

// Start subscribes to peer manifests and then to peer liveness, so a
// retained will from a peer that died while nobody watched is applied
// against its retained manifest.
func (o *Observer) Start() error {
	qos := o.transport.QoS()
	if err := o.transport.Subscribe(o.topics.AllManifests(), qos, o.onManifest); err != nil {
		return fmt.Errorf("watching peer manifests: %w", err)
	}
	if err := o.transport.Subscribe(o.topics.AllAlive(), qos, o.onAlive); err != nil {
		return fmt.Errorf("watching peer liveness: %w", err)
	}
	return nil
}

// Stop removes both subscriptions.
func (o *Observer) Stop() error {
	return errors.Join(
		o.transport.Unsubscribe(o.topics.AllAlive()),
		o.transport.Unsubscribe(o.topics.AllManifests()),
	)
}

// peer returns the node a topic belongs to, or "" for this node.
func (o *Observer) peer(topic string) string {
	node := o.topics.NodeOf(topic)
	if node == o.topics.Node {
		return ""
	}
	return node
}

func (o *Observer) onManifest(topic string, payload []byte) error {
	node := o.peer(topic)
	if node == "" {
		return nil
	}

	if len(payload) == 0 {
		o.mu.Lock()
		delete(o.manifests, node)
		o.mu.Unlock()
		return nil
	}

	var m Manifest
	if err := json.Unmarshal(payload, &m); err != nil {
		return fmt.Errorf("%w: manifest of %s: %w", ErrDecode, node, err)
	}

	o.mu.Lock()
	o.manifests[node] = m
	o.mu.Unlock()
	return nil
}

func (o *Observer) onAlive(topic string, payload []byte) error {
	node := o.peer(topic)
	if node == "" || string(payload) != mqtt.AliveLost {
		return nil
	}

	// Taking the manifest makes the replay one-shot: the manifest's own
	// alive=false write comes back here and finds nothing.
	o.mu.Lock()
	m := o.manifests[node]
	delete(o.manifests, node)
	o.mu.Unlock()

	if len(m) == 0 {
		return nil
	}

	o.logger.Info("peer disconnected, applying on-disconnect manifest",
		"peer", node,
		"operations", len(m),
	)
	return o.apply(node, m)
}

// apply replays m for node. Paths outside the node's own subtree are
// skipped so one node cannot clear another's state.
func (o *Observer) apply(node string, m Manifest) error {
	scope := o.topics.For(node).NodePath("")
	now := o.now()

	var errs []error
	for path, op := range m {
		if !strings.HasPrefix(path, scope) {
			o.logger.Warn("skipping manifest entry outside peer subtree", "peer", node, "path", path)
			continue
		}

		topic := o.topics.Path(path)
		switch op.Op {
		case OpRemove:
			errs = append(errs, o.transport.PublishRetained(topic, nil))
		case OpSet:
			errs = append(errs, o.transport.PublishRetained(topic, resolve(op.Value, now)))
		default:
			errs = append(errs, fmt.Errorf("%w: %s: unknown manifest op %q", ErrDecode, path, op.Op))
		}
	}
	return errors.Join(errs...)
}

// resolve substitutes ServerTimestamp with now in unix milliseconds.
func resolve(raw json.RawMessage, now time.Time) []byte {
	var sv map[string]string
	if err := json.Unmarshal(raw, &sv); err == nil && len(sv) == 1 && sv[".sv"] == "timestamp" {
		return strconv.AppendInt(nil, now.UnixMilli(), 10)
	}
	return raw
}
