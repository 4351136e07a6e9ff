package datamodel

import "context"

// Node is the highest addressable entity in the data model and contains
// one or more endpoints.
type Node interface {
	// GetEndpoint returns the endpoint with the specified ID, or nil if not found.
	GetEndpoint(id EndpointID) Endpoint

	// GetEndpoints returns all registered endpoints in registration order.
	GetEndpoints() []Endpoint
}

// Endpoint is an instance of a device type and contains clusters.
// Endpoints form a tree: a parent owns its children exclusively.
type Endpoint interface {
	// ID returns the endpoint number.
	ID() EndpointID

	// Entry returns the endpoint metadata.
	Entry() EndpointEntry

	// GetCluster returns the server cluster with the specified ID, or nil if not found.
	GetCluster(id ClusterID) Cluster

	// GetClusters returns all server clusters on this endpoint in registration order.
	GetClusters() []Cluster

	// GetDeviceTypes returns the device types supported by this endpoint.
	GetDeviceTypes() []DeviceTypeEntry

	// Children returns the direct child endpoints in insertion order.
	Children() []Endpoint
}

// Cluster represents a server-side cluster instance.
//
// Attribute values and command payloads are plain Go values; the binary
// encoding is owned by whatever host drives the node.
type Cluster interface {
	// ID returns the cluster ID (e.g., 0x0006 for OnOff).
	ID() ClusterID

	// EndpointID returns the endpoint this cluster belongs to.
	EndpointID() EndpointID

	// DataVersion returns the current cluster data version.
	// Must increment whenever any attribute changes.
	DataVersion() DataVersion

	// ClusterRevision returns the implemented cluster revision (0xFFFD).
	ClusterRevision() uint16

	// FeatureMap returns the supported features bitmap (0xFFFC).
	FeatureMap() uint32

	// AttributeList returns metadata for all supported attributes,
	// global attributes included.
	AttributeList() []AttributeEntry

	// AcceptedCommandList returns metadata for accepted (client→server) commands.
	AcceptedCommandList() []CommandEntry

	// GeneratedCommandList returns IDs of generated (server→client) commands.
	GeneratedCommandList() []CommandID

	// ReadAttribute returns the current value of an attribute.
	ReadAttribute(ctx context.Context, req ReadAttributeRequest) (any, error)

	// WriteAttribute replaces the value of an attribute.
	WriteAttribute(ctx context.Context, req WriteAttributeRequest, value any) error

	// InvokeCommand executes a command. fields holds the typed request
	// struct of the command (or nil for commands without fields); the
	// returned value is the typed response, nil for status-only commands.
	InvokeCommand(ctx context.Context, req InvokeRequest, fields any) (any, error)
}

// ClusterWithEvents is an optional interface for clusters that support events.
type ClusterWithEvents interface {
	Cluster

	// EventList returns metadata for all supported events.
	EventList() []EventEntry
}

// AttributeChange describes a single attribute value transition.
type AttributeChange struct {
	Path     ConcreteAttributePath
	OldValue any
	NewValue any

	// Offline marks a notification replayed from persisted state during
	// startup rather than a live change.
	Offline bool
}

// AttributeChangeListener is notified when attribute values change.
type AttributeChangeListener interface {
	OnAttributeChanged(change AttributeChange)
}

// ChangeContext carries metadata about an attribute notification.
type ChangeContext struct {
	// Offline is true for notifications replayed during startup. Handlers
	// must skip side effects for them.
	Offline bool
}

// AttributeCallback receives attribute subscription notifications.
type AttributeCallback func(oldValue, newValue any, ctx ChangeContext)

// Platform is the host boundary the device layer is written against.
type Platform interface {
	Node

	// GetCluster returns the cluster at (endpoint, cluster), or nil.
	GetCluster(endpoint EndpointID, cluster ClusterID) Cluster

	// GetAttribute reads an attribute value.
	GetAttribute(ctx context.Context, path ConcreteAttributePath) (any, error)

	// SetAttribute writes an attribute value as an internal operation.
	SetAttribute(ctx context.Context, path ConcreteAttributePath, value any) error

	// SubscribeAttribute registers cb for changes of path. The returned
	// function cancels the subscription.
	SubscribeAttribute(path ConcreteAttributePath, cb AttributeCallback) (cancel func())
}
