package controller

import "errors"

// Domain errors for the controller.
var (
	// ErrInvalidConfig is returned by New for missing collaborators or
	// inconsistent timing.
	ErrInvalidConfig = errors.New("controller: invalid config")

	// ErrSessionFailed is returned by Start when the remote session cannot
	// be established.
	ErrSessionFailed = errors.New("controller: remote session failed")
)
