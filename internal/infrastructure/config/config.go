package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the DeviceLab controller.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Node      NodeConfig      `yaml:"node"`
	Remote    RemoteConfig    `yaml:"remote"`
	Watchdog  WatchdogConfig  `yaml:"watchdog"`
	Heartbeat HeartbeatConfig `yaml:"heartbeat"`
	ADB       ADBConfig       `yaml:"adb"`
	Navigate  NavigateConfig  `yaml:"navigate"`
	Recovery  RecoveryConfig  `yaml:"recovery"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// NodeConfig identifies this controller node in the remote state tree.
type NodeConfig struct {
	// Name is the node's key under clients/. Defaults to the short hostname.
	Name string `yaml:"name"`
}

// RemoteConfig contains the Remote State Channel (MQTT broker) settings.
type RemoteConfig struct {
	// Endpoint is the broker address: "host:port" or a tcp://, ssl://, ws:// URL.
	Endpoint string `yaml:"endpoint"`

	// Credential is the opaque authentication token presented as the MQTT password.
	Credential string `yaml:"credential"`

	// Username is presented alongside Credential. Defaults to the node name.
	Username string `yaml:"username"`

	// ClientID defaults to "devicelab-<node>".
	ClientID string `yaml:"client_id"`

	// Prefix is the topic root all state paths live under.
	Prefix string `yaml:"prefix"`

	QoS       int                   `yaml:"qos"`
	Reconnect RemoteReconnectConfig `yaml:"reconnect"`

	// ObservePeers runs the on-disconnect observer for the other nodes
	// under Prefix.
	ObservePeers bool `yaml:"observe_peers"`
}

// RemoteReconnectConfig contains broker reconnection settings (seconds).
type RemoteReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// WatchdogConfig contains staleness watchdog settings.
type WatchdogConfig struct {
	// MaxStaleSeconds is how long the target may stay unchanged before the
	// node reboots itself.
	MaxStaleSeconds int `yaml:"max_stale_seconds"`

	// CheckInterval is the tick period. Must be shorter than MaxStaleSeconds.
	CheckInterval time.Duration `yaml:"check_interval"`
}

// HeartbeatConfig contains heartbeat emitter settings.
type HeartbeatConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// ADBConfig contains Android Debug Bridge server settings.
type ADBConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// Path is an optional adb binary used to start the server if it is not running.
	Path string `yaml:"path"`
}

// NavigateConfig describes the intent used to open a URL on a device.
type NavigateConfig struct {
	Component string `yaml:"component"`
	Action    string `yaml:"action"`
	Flags     string `yaml:"flags"`

	// HomeURL is sent to newly attached devices before any target has been
	// received. Empty disables it.
	HomeURL string `yaml:"home_url"`
}

// RecoveryConfig contains the reboot primitive settings.
type RecoveryConfig struct {
	Command []string `yaml:"command"`

	// DryRun logs the reboot instead of executing Command.
	DryRun bool `yaml:"dry_run"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// APIConfig contains the node-local status API settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings (seconds).
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// WebSocketConfig contains status stream settings.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"` // seconds
	PongTimeout    int `yaml:"pong_timeout"`  // seconds
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//  4. Derived values (node name from hostname, client ID, username)
//
// Environment variables follow the pattern: DEVICELAB_SECTION_KEY
// For example: DEVICELAB_REMOTE_ENDPOINT, DEVICELAB_REMOTE_CREDENTIAL
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)
	applyDerived(cfg, os.Hostname)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Remote: RemoteConfig{
			Prefix:       "devicelab",
			QoS:          1,
			ObservePeers: true,
			Reconnect: RemoteReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		Watchdog: WatchdogConfig{
			MaxStaleSeconds: 120,
			CheckInterval:   3 * time.Second,
		},
		Heartbeat: HeartbeatConfig{
			Interval: 30 * time.Second,
		},
		ADB: ADBConfig{
			Host: "localhost",
			Port: 5037,
		},
		Navigate: NavigateConfig{
			Component: "com.android.chrome/com.google.android.apps.chrome.Main",
			Action:    "android.intent.action.VIEW",
			Flags:     "0x10000000",
		},
		Recovery: RecoveryConfig{
			Command: []string{"sudo", "reboot"},
		},
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8090,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 60,
				Idle:  120,
			},
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DEVICELAB_NODE_NAME"); v != "" {
		cfg.Node.Name = v
	}
	if v := os.Getenv("DEVICELAB_REMOTE_ENDPOINT"); v != "" {
		cfg.Remote.Endpoint = v
	}
	if v := os.Getenv("DEVICELAB_REMOTE_USERNAME"); v != "" {
		cfg.Remote.Username = v
	}
	if v := os.Getenv("DEVICELAB_REMOTE_CREDENTIAL"); v != "" {
		cfg.Remote.Credential = v
	}
	if v := os.Getenv("DEVICELAB_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// applyDerived fills in values computed from other settings.
func applyDerived(cfg *Config, hostname func() (string, error)) {
	if cfg.Node.Name == "" {
		if h, err := hostname(); err == nil {
			cfg.Node.Name = ShortHostname(h)
		}
	}
	if cfg.Remote.ClientID == "" && cfg.Node.Name != "" {
		cfg.Remote.ClientID = "devicelab-" + cfg.Node.Name
	}
	if cfg.Remote.Username == "" {
		cfg.Remote.Username = cfg.Node.Name
	}
}

// ShortHostname returns the hostname up to its first dot.
func ShortHostname(hostname string) string {
	if i := strings.IndexByte(hostname, '.'); i >= 0 {
		return hostname[:i]
	}
	return hostname
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Node.Name == "" {
		errs = append(errs, "node.name is required (hostname lookup failed)")
	} else if strings.ContainsAny(c.Node.Name, "/+#") {
		errs = append(errs, "node.name must not contain '/', '+' or '#'")
	}

	// The watchdog's only recovery signal path is the remote channel,
	// so running without one is never valid.
	if c.Remote.Endpoint == "" {
		errs = append(errs, "remote.endpoint is required")
	}
	if c.Remote.Credential == "" {
		errs = append(errs, "remote.credential is required (set DEVICELAB_REMOTE_CREDENTIAL environment variable)")
	}
	if c.Remote.Prefix == "" || strings.ContainsAny(c.Remote.Prefix, "+#") {
		errs = append(errs, "remote.prefix must be non-empty and free of wildcards")
	}
	if c.Remote.QoS < 0 || c.Remote.QoS > 2 {
		errs = append(errs, "remote.qos must be 0, 1, or 2")
	}

	if c.Watchdog.MaxStaleSeconds <= 0 {
		errs = append(errs, "watchdog.max_stale_seconds must be positive")
	}
	if c.Watchdog.CheckInterval <= 0 || c.Watchdog.CheckInterval >= c.MaxStale() {
		errs = append(errs, "watchdog.check_interval must be positive and shorter than max_stale_seconds")
	}
	if c.Heartbeat.Interval <= c.Watchdog.CheckInterval {
		errs = append(errs, "heartbeat.interval must be longer than watchdog.check_interval")
	}

	if c.ADB.Port < 1 || c.ADB.Port > 65535 {
		errs = append(errs, "adb.port must be between 1 and 65535")
	}
	if c.Navigate.Component == "" {
		errs = append(errs, "navigate.component is required")
	}

	if len(c.Recovery.Command) == 0 && !c.Recovery.DryRun {
		errs = append(errs, "recovery.command is required unless recovery.dry_run is set")
	}

	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" || c.InfluxDB.Org == "" || c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.url, influxdb.org and influxdb.bucket are required when influxdb is enabled")
		}
	}

	if c.API.Enabled {
		if c.API.Port < 1 || c.API.Port > 65535 {
			errs = append(errs, "api.port must be between 1 and 65535")
		}
		if c.WebSocket.PingInterval <= 0 || c.WebSocket.PongTimeout <= 0 {
			errs = append(errs, "websocket.ping_interval and websocket.pong_timeout must be positive")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// MaxStale returns the staleness threshold as a Duration.
func (c *Config) MaxStale() time.Duration {
	return time.Duration(c.Watchdog.MaxStaleSeconds) * time.Second
}
