package mqtt

import (
	"fmt"
	"strings"
)

// Topic tree layout.
//
// Every remote state path lives under the configured prefix:
//
//	{prefix}/url                          shared target (command input)
//	{prefix}/clients/{node}/{field}       per-node status fields
//	{prefix}/clients/{node}/$ondisconnect on-disconnect manifest
const (
	// ClientsSegment is the subtree holding per-node status.
	ClientsSegment = "clients"

	// AliveField is the per-node liveness flag. It doubles as the Last Will topic.
	AliveField = "alive"

	// ManifestField holds the retained on-disconnect manifest.
	ManifestField = "$ondisconnect"
)

// Topics provides builders for DeviceLab MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.NewTopics("devicelab", "pi1")
//	topics.Path("url")         // "devicelab/url"
//	topics.NodeField("alive")  // "devicelab/clients/pi1/alive"
type Topics struct {
	Prefix string
	Node   string
}

// NewTopics returns a Topics for the given prefix and node name.
// Leading and trailing slashes on the prefix are ignored.
func NewTopics(prefix, node string) Topics {
	return Topics{
		Prefix: strings.Trim(prefix, "/"),
		Node:   node,
	}
}

// Path converts a slash-separated state path to its topic.
//
// Example: Path("clients/pi1/heartBeat") → "devicelab/clients/pi1/heartBeat"
func (t Topics) Path(path string) string {
	path = strings.Trim(path, "/")
	if path == "" {
		return t.Prefix
	}
	return fmt.Sprintf("%s/%s", t.Prefix, path)
}

// NodePath returns the state path (without prefix) of a per-node field.
//
// Example: NodePath("heartBeat") → "clients/pi1/heartBeat"
func (t Topics) NodePath(field string) string {
	return fmt.Sprintf("%s/%s/%s", ClientsSegment, t.Node, strings.Trim(field, "/"))
}

// NodeField returns the full topic of a per-node field.
//
// Example: devicelab/clients/pi1/heartBeat
func (t Topics) NodeField(field string) string {
	return t.Path(t.NodePath(field))
}

// Alive returns the liveness topic used for the Last Will and Testament.
//
// Example: devicelab/clients/pi1/alive
func (t Topics) Alive() string {
	return t.NodeField(AliveField)
}

// Manifest returns the topic of the retained on-disconnect manifest.
//
// Example: devicelab/clients/pi1/$ondisconnect
func (t Topics) Manifest() string {
	return t.NodeField(ManifestField)
}

// For returns the topic builder of another node under the same prefix.
func (t Topics) For(node string) Topics {
	t.Node = node
	return t
}

// AllAlive returns a pattern matching every node's liveness topic.
//
// Pattern: devicelab/clients/+/alive
func (t Topics) AllAlive() string {
	return t.Path(ClientsSegment + "/+/" + AliveField)
}

// AllManifests returns a pattern matching every node's on-disconnect manifest.
//
// Pattern: devicelab/clients/+/$ondisconnect
func (t Topics) AllManifests() string {
	return t.Path(ClientsSegment + "/+/" + ManifestField)
}

// NodeOf extracts the node name from a per-node topic. It returns "" for
// topics outside {prefix}/clients/.
//
// Example: NodeOf("devicelab/clients/pi2/alive") → "pi2"
func (t Topics) NodeOf(topic string) string {
	rest, ok := strings.CutPrefix(topic, t.Path(ClientsSegment)+"/")
	if !ok {
		return ""
	}
	node, _, _ := strings.Cut(rest, "/")
	return node
}
