package datamodel

import "errors"

// Errors returned by datamodel operations.
var (
	// ErrEndpointNotFound indicates the requested endpoint does not exist.
	ErrEndpointNotFound = errors.New("endpoint not found")

	// ErrEndpointExists indicates an endpoint with the same ID already exists.
	ErrEndpointExists = errors.New("endpoint already exists")

	// ErrEndpointHasParent indicates the endpoint is already attached to a parent.
	ErrEndpointHasParent = errors.New("endpoint already has a parent")

	// ErrClusterNotFound indicates the requested cluster does not exist.
	ErrClusterNotFound = errors.New("cluster not found")

	// ErrClusterExists indicates a cluster with the same ID already exists.
	ErrClusterExists = errors.New("cluster already exists")

	// ErrInvalidDataVersion indicates a data version mismatch.
	ErrInvalidDataVersion = errors.New("data version mismatch")

	// ErrInvalidInState indicates the operation is invalid in the current state.
	ErrInvalidInState = errors.New("invalid in current state")

	// ErrConstraintError indicates a constraint violation.
	ErrConstraintError = errors.New("constraint error")

	// ErrInvalidCommand indicates an invalid command.
	ErrInvalidCommand = errors.New("invalid command")

	// ErrInvalidDataType indicates a value of the wrong Go type for the
	// attribute or command.
	ErrInvalidDataType = errors.New("invalid data type")

	// ErrUnsupportedAttribute indicates the attribute is not supported by the cluster.
	ErrUnsupportedAttribute = errors.New("unsupported attribute")

	// ErrUnsupportedWrite indicates the attribute does not support writes.
	ErrUnsupportedWrite = errors.New("unsupported write")

	// ErrUnsupportedCommand indicates the command is not supported by the cluster.
	ErrUnsupportedCommand = errors.New("unsupported command")
)
