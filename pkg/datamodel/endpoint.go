package datamodel

import "sync"

// BasicEndpoint is a simple in-memory Endpoint implementation.
// It provides thread-safe cluster registration and lookup, and owns its
// child endpoints.
type BasicEndpoint struct {
	mu          sync.RWMutex
	entry       EndpointEntry
	clusters    map[ClusterID]Cluster
	order       []ClusterID // Preserve registration order
	deviceTypes []DeviceTypeEntry
	children    []*BasicEndpoint
}

// NewEndpoint creates a new endpoint with the given ID.
// The endpoint uses Tree composition pattern by default.
func NewEndpoint(id EndpointID) *BasicEndpoint {
	return &BasicEndpoint{
		entry: EndpointEntry{
			ID:                 id,
			CompositionPattern: CompositionTree,
		},
		clusters: make(map[ClusterID]Cluster),
	}
}

// ID returns the endpoint ID.
func (e *BasicEndpoint) ID() EndpointID {
	return e.entry.ID
}

// Entry returns the endpoint metadata.
func (e *BasicEndpoint) Entry() EndpointEntry {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.entry
}

// SetCompositionPattern sets the endpoint composition pattern.
func (e *BasicEndpoint) SetCompositionPattern(pattern EndpointComposition) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.entry.CompositionPattern = pattern
}

// AddChild attaches child below this endpoint. The child must not already
// have a parent.
func (e *BasicEndpoint) AddChild(child *BasicEndpoint) error {
	if child == e {
		return ErrEndpointExists
	}

	child.mu.Lock()
	if child.entry.ParentID != nil {
		child.mu.Unlock()
		return ErrEndpointHasParent
	}
	parent := e.entry.ID
	child.entry.ParentID = &parent
	child.mu.Unlock()

	e.mu.Lock()
	e.children = append(e.children, child)
	e.mu.Unlock()
	return nil
}

// RemoveChild detaches the direct child with the given ID.
// Returns ErrEndpointNotFound if no such child exists.
func (e *BasicEndpoint) RemoveChild(id EndpointID) error {
	e.mu.Lock()
	var child *BasicEndpoint
	for i, c := range e.children {
		if c.ID() == id {
			child = c
			e.children = append(e.children[:i:i], e.children[i+1:]...)
			break
		}
	}
	e.mu.Unlock()

	if child == nil {
		return ErrEndpointNotFound
	}
	child.mu.Lock()
	child.entry.ParentID = nil
	child.mu.Unlock()
	return nil
}

// Children returns the direct child endpoints in insertion order.
func (e *BasicEndpoint) Children() []Endpoint {
	e.mu.RLock()
	defer e.mu.RUnlock()

	result := make([]Endpoint, 0, len(e.children))
	for _, c := range e.children {
		result = append(result, c)
	}
	return result
}

// Walk visits the endpoint and all descendants depth-first, parents first.
func Walk(ep Endpoint, fn func(Endpoint)) {
	fn(ep)
	for _, child := range ep.Children() {
		Walk(child, fn)
	}
}

// AddCluster registers a cluster with the endpoint.
// Returns ErrClusterExists if a cluster with the same ID already exists.
func (e *BasicEndpoint) AddCluster(c Cluster) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := c.ID()
	if _, exists := e.clusters[id]; exists {
		return ErrClusterExists
	}

	e.clusters[id] = c
	e.order = append(e.order, id)
	return nil
}

// GetCluster returns the cluster with the given ID, or nil if not found.
func (e *BasicEndpoint) GetCluster(id ClusterID) Cluster {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.clusters[id]
}

// GetClusters returns all clusters in registration order.
func (e *BasicEndpoint) GetClusters() []Cluster {
	e.mu.RLock()
	defer e.mu.RUnlock()

	result := make([]Cluster, 0, len(e.order))
	for _, id := range e.order {
		if c, ok := e.clusters[id]; ok {
			result = append(result, c)
		}
	}
	return result
}

// HasCluster returns true if a cluster with the given ID exists.
func (e *BasicEndpoint) HasCluster(id ClusterID) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, exists := e.clusters[id]
	return exists
}

// AddDeviceType adds a device type to the endpoint.
func (e *BasicEndpoint) AddDeviceType(dt DeviceTypeEntry) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.deviceTypes = append(e.deviceTypes, dt)
}

// GetDeviceTypes returns all device types for this endpoint.
func (e *BasicEndpoint) GetDeviceTypes() []DeviceTypeEntry {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]DeviceTypeEntry{}, e.deviceTypes...)
}

// GetClusterIDs returns the IDs of all clusters on this endpoint.
func (e *BasicEndpoint) GetClusterIDs() []ClusterID {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]ClusterID{}, e.order...)
}

// Verify BasicEndpoint implements the interface.
var _ Endpoint = (*BasicEndpoint)(nil)
