package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, device.ErrInvalidID) {
//	    // drop the event
//	}
var (
	// ErrInvalidID is returned when a device identifier is empty.
	ErrInvalidID = errors.New("device: invalid id")

	// ErrInvalidKind is returned when an event kind is not recognised.
	ErrInvalidKind = errors.New("device: invalid event kind")

	// ErrInvalidURL is returned when a navigate target cannot be sent to a device.
	ErrInvalidURL = errors.New("device: invalid url")

	// ErrMonitorClosed is returned by a Monitor whose event stream ended.
	ErrMonitorClosed = errors.New("device: monitor closed")
)
