package capture

import "errors"

var (
	// ErrDuplicateRequest: an operation of the same kind is already in
	// flight. Logged and dropped; the original operation's event
	// satisfies the caller.
	ErrDuplicateRequest = errors.New("capture: operation of this kind already in flight")

	// ErrResourceUnavailable: the device lacks the required capture
	// hardware.
	ErrResourceUnavailable = errors.New("capture: capture hardware unavailable")

	// ErrClosed: the coordinator was shut down.
	ErrClosed = errors.New("capture: coordinator closed")
)
