package remote

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ServerTimestamp is a placeholder value resolved to the observer's
// receive time when an on-disconnect operation is applied.
var ServerTimestamp = map[string]string{".sv": "timestamp"}

// Value is a snapshot of one path delivered to a watcher.
//
// An empty payload means the path holds no value (never set or removed).
type Value struct {
	Path string
	raw  []byte
}

// NewValue wraps a raw payload received for path.
func NewValue(path string, raw []byte) Value {
	return Value{Path: path, raw: raw}
}

// Exists reports whether the path currently holds a value.
func (v Value) Exists() bool {
	return len(v.raw) > 0 && string(v.raw) != "null"
}

// Raw returns the stored payload.
func (v Value) Raw() []byte {
	return v.raw
}

// Decode unmarshals the JSON payload into dst.
func (v Value) Decode(dst any) error {
	if !v.Exists() {
		return fmt.Errorf("%w: %s: no value", ErrDecode, v.Path)
	}
	if err := json.Unmarshal(v.raw, dst); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrDecode, v.Path, err)
	}
	return nil
}

// String returns the value as text.
//
// JSON strings are unquoted. Anything else, including payloads written by
// tools that do not JSON-encode, is returned as the trimmed raw text.
func (v Value) String() string {
	if !v.Exists() {
		return ""
	}
	var s string
	if err := json.Unmarshal(v.raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(v.raw))
}

// Bool reports whether the value is true (JSON true or the text "true").
func (v Value) Bool() bool {
	var b bool
	if err := json.Unmarshal(v.raw, &b); err == nil {
		return b
	}
	return v.String() == "true"
}
