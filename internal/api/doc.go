// Package api implements the node-local HTTP status API for a DeviceLab
// controller.
//
// This package provides:
//   - Read-only REST endpoints for health, controller status, attached
//     devices and runtime metrics
//   - A WebSocket stream of controller status snapshots
//   - Middleware stack (request ID, logging, recovery)
//
// The API never changes controller state. Commands reach a node only
// through the remote state tree, so a node that is unreachable remotely can
// still be inspected from the lab network.
package api
