package adapter

import "errors"

// Domain-specific errors for adapter operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrNoDevice is returned when no capability is configured for a slot.
	ErrNoDevice = errors.New("adapter: no device configured")

	// ErrSessionClosed is returned when a command is issued on a closed session.
	ErrSessionClosed = errors.New("adapter: session closed")

	// ErrInvalidChannel is returned when a channel string contains
	// anything other than digits.
	ErrInvalidChannel = errors.New("adapter: invalid channel")
)
