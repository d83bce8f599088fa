package mqtt

import (
	"crypto/tls"
	"strings"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/devicelab-core/internal/infrastructure/config"
)

// Connection constants.
const (
	// defaultConnectTimeout is the maximum time to wait for initial connection.
	defaultConnectTimeout = 10 * time.Second

	// defaultPublishTimeout is the maximum time to wait for publish acknowledgment.
	defaultPublishTimeout = 5 * time.Second

	// defaultDisconnectQuiesce is the time to wait for pending operations on disconnect.
	defaultDisconnectQuiesce = 1000 // milliseconds

	// defaultKeepAlive is the keepalive interval for the connection. Kept
	// short so a dead link surfaces as a connectivity loss quickly.
	defaultKeepAlive = 30 * time.Second

	// maxQoS is the maximum QoS level supported.
	maxQoS = 2

	// tlsMinVersion is the minimum TLS version for secure connections.
	tlsMinVersion = tls.VersionTLS12

	// willQoS is the QoS of the Last Will message.
	willQoS = 1
)

// Payloads of the retained liveness flag. Only AliveLost, the Last Will,
// tells observers to apply the node's on-disconnect manifest.
const (
	AliveOnline = "true"
	AliveLost   = "false"
	AliveClosed = `"closed"`
)

// brokerURL normalises the configured endpoint to a paho broker URL.
// Bare "host:port" endpoints default to plain TCP.
func brokerURL(endpoint string) string {
	if strings.Contains(endpoint, "://") {
		return endpoint
	}
	return "tcp://" + endpoint
}

// isSecure reports whether the broker URL needs a TLS configuration.
func isSecure(url string) bool {
	for _, scheme := range []string{"ssl://", "tls://", "mqtts://", "wss://"} {
		if strings.HasPrefix(url, scheme) {
			return true
		}
	}
	return false
}

// buildClientOptions creates paho MQTT options from the remote config.
//
// This configures:
//   - Broker URL (tcp:// unless the endpoint names a scheme)
//   - Client ID for identification
//   - Credential presented as the MQTT password
//   - Auto-reconnect with exponential backoff (after the first connect)
//   - TLS configuration for secure schemes
//   - Clean session mode
//
// Connect retry is deliberately off: a rejected credential must fail the
// initial connect instead of retrying forever.
func buildClientOptions(cfg config.RemoteConfig) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()

	url := brokerURL(cfg.Endpoint)
	opts.AddBroker(url)

	opts.SetClientID(cfg.ClientID)

	if cfg.Username != "" || cfg.Credential != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Credential)
	}

	opts.SetCleanSession(true)

	// Handlers run in order on a single goroutine; the controller relies on
	// per-source ordering.
	opts.SetOrderMatters(true)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(false)
	opts.SetConnectRetryInterval(time.Duration(cfg.Reconnect.InitialDelay) * time.Second)
	opts.SetMaxReconnectInterval(time.Duration(cfg.Reconnect.MaxDelay) * time.Second)

	opts.SetConnectTimeout(defaultConnectTimeout)
	opts.SetKeepAlive(defaultKeepAlive)

	if isSecure(url) {
		opts.SetTLSConfig(&tls.Config{
			MinVersion: tlsMinVersion,
		})
	}

	return opts
}

// configureLWT sets up Last Will and Testament for offline detection.
//
// The broker publishes the will if the node disconnects unexpectedly
// (crash, power loss, network failure). It is the broker-side half of the
// on-disconnect contract: observers see alive=false and then apply the
// node's retained on-disconnect manifest.
//
// Topic: {prefix}/clients/{node}/alive
// QoS: 1 (guaranteed delivery)
// Retained: true (new subscribers see last status)
func configureLWT(opts *pahomqtt.ClientOptions, topics Topics) {
	opts.SetWill(topics.Alive(), AliveLost, willQoS, true)
}
