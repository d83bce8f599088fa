package device

import (
	"sort"
)

// Registry is the in-memory set of currently attached device identifiers.
//
// A device is present while its ID is a key; absence means not attached.
// Mutations are idempotent: adding a present ID or removing an absent one
// is a no-op reported through the return value.
//
// Registry is not safe for concurrent use. It is owned by a single event
// loop that applies Monitor events in delivery order.
type Registry struct {
	devices map[string]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{devices: make(map[string]struct{})}
}

// Add marks id as attached. It reports whether id was newly added.
func (r *Registry) Add(id string) bool {
	if _, ok := r.devices[id]; ok {
		return false
	}
	r.devices[id] = struct{}{}
	return true
}

// Remove marks id as detached. It reports whether id was present.
func (r *Registry) Remove(id string) bool {
	if _, ok := r.devices[id]; !ok {
		return false
	}
	delete(r.devices, id)
	return true
}

// Apply reconciles the registry against a single Monitor event.
//
// It returns whether the event left the device attached and whether the
// event affected presence at all. Invalid events and change events with an
// unrecognised status leave the registry untouched.
func (r *Registry) Apply(e Event) (attached, ok bool) {
	if e.Validate() != nil {
		return false, false
	}
	attached, ok = e.Attached()
	if !ok {
		return false, false
	}
	if attached {
		r.Add(e.ID)
	} else {
		r.Remove(e.ID)
	}
	return attached, true
}

// Len returns the number of attached devices.
func (r *Registry) Len() int {
	return len(r.devices)
}

// IDs returns the attached identifiers in sorted order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.devices))
	for id := range r.devices {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Snapshot returns the presence document published to the remote store:
// every attached ID mapped to true.
func (r *Registry) Snapshot() map[string]bool {
	snap := make(map[string]bool, len(r.devices))
	for id := range r.devices {
		snap[id] = true
	}
	return snap
}
