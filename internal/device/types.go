package device

import (
	"context"
	"fmt"
)

// Kind is the type of a Device Monitor event.
type Kind int

// Event kinds reported by a Monitor.
const (
	// KindAdd reports a newly attached device.
	KindAdd Kind = iota + 1

	// KindRemove reports a device that is no longer attached.
	KindRemove

	// KindChange reports a status reclassification of a known device.
	KindChange
)

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	switch k {
	case KindAdd:
		return "add"
	case KindRemove:
		return "remove"
	case KindChange:
		return "change"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Status is the classification carried by a change event.
type Status string

// Recognised statuses. Anything a monitor cannot classify is StatusOther.
const (
	StatusPresent Status = "present"
	StatusOffline Status = "offline"
	StatusOther   Status = "other"
)

// Event is a single notification from a Device Monitor.
//
// Status is only meaningful for KindChange events.
type Event struct {
	Kind   Kind
	ID     string
	Status Status
}

// Add returns an attach event for id.
func Add(id string) Event {
	return Event{Kind: KindAdd, ID: id}
}

// Remove returns a detach event for id.
func Remove(id string) Event {
	return Event{Kind: KindRemove, ID: id}
}

// Change returns a reclassification event for id.
func Change(id string, status Status) Event {
	return Event{Kind: KindChange, ID: id, Status: status}
}

// Attached reports whether the event leaves the device attached.
//
// Add and change-to-present are attach-equivalent. Remove and
// change-to-offline are detach-equivalent. ok is false for events that do
// not affect presence (a change to any other status).
func (e Event) Attached() (attached, ok bool) {
	switch e.Kind {
	case KindAdd:
		return true, true
	case KindRemove:
		return false, true
	case KindChange:
		switch e.Status {
		case StatusPresent:
			return true, true
		case StatusOffline:
			return false, true
		}
	}
	return false, false
}

// Validate checks that the event can be applied to a Registry.
func (e Event) Validate() error {
	if e.ID == "" {
		return ErrInvalidID
	}
	switch e.Kind {
	case KindAdd, KindRemove, KindChange:
		return nil
	default:
		return fmt.Errorf("%w: %d", ErrInvalidKind, int(e.Kind))
	}
}

// Monitor is a subscription source of attach/detach/change events for
// locally attached devices.
//
// Events for the same device are delivered in order. The channel is closed
// when the monitor stops; Err then reports why (nil after Close).
type Monitor interface {
	Events() <-chan Event
	Err() error
	Close()
}

// Navigator sends a "navigate to url" command to a single device.
type Navigator interface {
	Navigate(ctx context.Context, id, url string) error
}
