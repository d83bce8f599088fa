// Package remote implements the Remote State Channel over MQTT.
//
// The channel is a key/value tree: path "a/b" is the retained topic
// "{prefix}/a/b" and its value is the JSON payload. An empty retained
// payload removes the value.
//
// # Operations
//
//   - Set / Remove: write or delete a value
//   - Push: append to an ordered log (path/{uuidv7})
//   - Watch: receive the current value and every change
//   - WatchConnection: connectivity transitions
//   - OnDisconnectSet / OnDisconnectRemove: dead-man's-switch registrations
//
// # On-disconnect contract
//
// MQTT only offers a single Last Will per connection, so the store keeps
// a manifest of armed operations retained at
// {prefix}/clients/{node}/$ondisconnect. The Last Will publishes
// alive=false and a graceful close publishes alive="closed".
//
// Observer is the other half: each node runs one for its peers. On a
// peer's will it replays that peer's manifest once, resolving
// ServerTimestamp to its own receive time.
package remote
