package remote

import "errors"

// Domain errors for the remote state channel.
var (
	// ErrInvalidPath is returned for an empty or wildcard state path.
	ErrInvalidPath = errors.New("remote: invalid path")

	// ErrEncode is returned when a value cannot be encoded as JSON.
	ErrEncode = errors.New("remote: encoding value")

	// ErrDecode is returned when a stored value cannot be decoded.
	ErrDecode = errors.New("remote: decoding value")
)
