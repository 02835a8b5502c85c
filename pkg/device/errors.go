package device

import "errors"

var (
	// ErrInvalidArgument indicates a malformed caller value; no I/O was attempted
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotSupported indicates an unknown channel, device or action
	ErrNotSupported = errors.New("not supported")

	// ErrTemporarilyOffline indicates a transport-level failure reaching the device
	ErrTemporarilyOffline = errors.New("temporarily offline")

	// ErrFailure indicates the device was reachable but gave no usable reply
	ErrFailure = errors.New("operation failed")

	// ErrNotFound indicates an unknown device
	ErrNotFound = errors.New("device not found")

	// ErrTimeout indicates a host-side wait for a command result expired
	ErrTimeout = errors.New("operation timed out")
)

// StatusError maps a command status to its sentinel error, or nil for success.
func StatusError(status CmdStatus) error {
	switch status {
	case StatusSuccess:
		return nil
	case StatusInvalidArgument:
		return ErrInvalidArgument
	case StatusNotSupported:
		return ErrNotSupported
	case StatusTemporarilyOffline:
		return ErrTemporarilyOffline
	default:
		return ErrFailure
	}
}
