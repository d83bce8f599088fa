package adb

import "errors"

// Domain errors for the adb package.
var (
	// ErrServerUnavailable is returned when the adb server cannot be reached.
	ErrServerUnavailable = errors.New("adb: server unavailable")

	// ErrNavigateFailed is returned when the activity manager rejects an intent.
	ErrNavigateFailed = errors.New("adb: navigate failed")
)
