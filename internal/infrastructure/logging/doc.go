// Package logging provides structured logging for the DeviceLab controller.
//
// This package wraps Go's standard log/slog package to provide
// consistent, structured logging across the daemon.
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, cfg.Node.Name, version)
//	logger.Component("controller").Info("target updated", "url", url)
//
// Every entry carries service, version and node. Subsystems add component.
//
// Never log the remote credential or the InfluxDB token.
package logging
