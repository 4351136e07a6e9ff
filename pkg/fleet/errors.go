package fleet

import "errors"

// Package-level errors.
var (
	// ErrAlreadyStarted is returned when Start() is called on a running fleet.
	ErrAlreadyStarted = errors.New("fleet: already started")

	// ErrNotInitialized is returned when Start() is called on a fleet that
	// is neither initialized nor running.
	ErrNotInitialized = errors.New("fleet: not initialized")

	// ErrNotStarted is returned when an operation requires a running fleet.
	ErrNotStarted = errors.New("fleet: not started")

	// ErrAlreadyStopped is returned when Stop() is called on a stopped fleet.
	ErrAlreadyStopped = errors.New("fleet: already stopped")

	// ErrInvalidConfig is returned when Config validation fails.
	ErrInvalidConfig = errors.New("fleet: invalid configuration")

	// ErrNoDevices is returned when the configuration lists no devices.
	ErrNoDevices = errors.New("fleet: no devices configured")

	// ErrDuplicateSerial is returned when two devices share a serial number.
	ErrDuplicateSerial = errors.New("fleet: duplicate serial number")

	// ErrTooManyEndpoints is returned when the devices do not fit the
	// endpoint id space.
	ErrTooManyEndpoints = errors.New("fleet: endpoint ids exhausted")

	// ErrDeviceNotFound is returned when no device owns an endpoint.
	ErrDeviceNotFound = errors.New("fleet: device not found")
)
