package processor

import "errors"

// Domain-specific errors for the processor engine.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrConnectionFailed is returned (wrapped) by a Transport when a
	// session cannot be established. The Coordinator's retry loop treats
	// any Connect failure as transient and keeps retrying.
	ErrConnectionFailed = errors.New("processor: connection failed")

	// ErrNotReady is returned by WaitForReady when the device has not
	// produced a usable snapshot within the readiness timeout. Callers
	// should treat it as "retry initialisation later", not as fatal.
	ErrNotReady = errors.New("processor: device state not yet fully loaded")

	// ErrNoTransport is returned when a Coordinator is created without
	// a transport.
	ErrNoTransport = errors.New("processor: transport is required")
)
