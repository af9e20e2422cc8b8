package store

import (
	"errors"
	"fmt"
)

// Sentinel errors for the recoverable failure modes of room and vote
// operations. Handlers map these to HTTP status codes with errors.Is.
var (
	// ErrRoomNotFound is returned when a room code does not exist.
	ErrRoomNotFound = errors.New("room not found")

	// ErrRoomClosed is returned when voting is attempted on a closed room.
	ErrRoomClosed = errors.New("room closed")

	// ErrStaleVoteIDs is returned when an edit references vote ids that no
	// longer exist. Distinct from ValidationError so a caller can recover by
	// falling back to a fresh submission.
	ErrStaleVoteIDs = errors.New("stale vote ids")
)

// ValidationError reports a malformed or disallowed request: missing required
// fields, an unknown role, a write-in where write-ins are off, or too few
// merge sources.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", e.Reason)
}

func validationErrorf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}
