// Package property provides pure value types and rules for property
// paths and the error kinds shared across the library.
package property

import "errors"

// Error kinds returned by the library. Callers test them with errors.Is;
// wrapped errors carry the context (path, channel, member index).
var (
	// ErrNotFound means the property does not exist in the store.
	ErrNotFound = errors.New("property not found")

	// ErrTypeMismatch means a value's tag has no defined conversion to
	// the requested tag, or a struct member tag did not match its layout.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrLengthMismatch means an array or struct arity did not match.
	ErrLengthMismatch = errors.New("length mismatch")

	// ErrUnsupportedTag means a layout or value carried a tag the
	// operation cannot handle.
	ErrUnsupportedTag = errors.New("unsupported tag")

	// ErrRemoteFailure wraps transport or store errors. The payload is
	// opaque to this layer.
	ErrRemoteFailure = errors.New("remote failure")

	// ErrInvalidArgument covers empty channel names, malformed UTF-8 in
	// string values, empty string lists and the like.
	ErrInvalidArgument = errors.New("invalid argument")
)
