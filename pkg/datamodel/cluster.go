package datamodel

import (
	"crypto/rand"
	"encoding/binary"
	"sync"
	"sync/atomic"
)

// ClusterBase provides common functionality for cluster implementations.
// Embed this struct in your cluster implementation to get standard behavior
// for global attributes, data version management and change notification.
type ClusterBase struct {
	id          ClusterID
	endpointID  EndpointID
	revision    uint16
	featureMap  uint32
	dataVersion atomic.Uint32

	listenerMu sync.RWMutex
	listener   AttributeChangeListener
}

// NewClusterBase creates a new cluster base with the given parameters.
// The data version is initialized to a random value.
func NewClusterBase(id ClusterID, endpointID EndpointID, revision uint16) *ClusterBase {
	cb := &ClusterBase{
		id:         id,
		endpointID: endpointID,
		revision:   revision,
	}
	cb.dataVersion.Store(randomDataVersion())
	return cb
}

// ID returns the cluster ID.
func (c *ClusterBase) ID() ClusterID {
	return c.id
}

// EndpointID returns the endpoint this cluster belongs to.
func (c *ClusterBase) EndpointID() EndpointID {
	return c.endpointID
}

// ClusterRevision returns the cluster revision.
func (c *ClusterBase) ClusterRevision() uint16 {
	return c.revision
}

// FeatureMap returns the feature map.
func (c *ClusterBase) FeatureMap() uint32 {
	return c.featureMap
}

// HasFeature reports whether all bits of feature are set in the feature map.
func (c *ClusterBase) HasFeature(feature uint32) bool {
	return c.featureMap&feature == feature
}

// DataVersion returns the current data version.
func (c *ClusterBase) DataVersion() DataVersion {
	return DataVersion(c.dataVersion.Load())
}

// SetFeatureMap sets the feature map bits.
func (c *ClusterBase) SetFeatureMap(features uint32) {
	c.featureMap = features
}

// IncrementDataVersion increments the data version.
func (c *ClusterBase) IncrementDataVersion() {
	c.dataVersion.Add(1)
}

// SetDataVersion sets the data version to a specific value.
// Use IncrementDataVersion for normal updates; this is for initialization.
func (c *ClusterBase) SetDataVersion(version DataVersion) {
	c.dataVersion.Store(uint32(version))
}

// SetChangeListener binds the listener that receives attribute changes.
// The node calls this when the owning endpoint is registered.
func (c *ClusterBase) SetChangeListener(l AttributeChangeListener) {
	c.listenerMu.Lock()
	c.listener = l
	c.listenerMu.Unlock()
}

// AttributeChanged bumps the data version and reports the change to the
// bound listener. Call it after releasing the cluster's own lock.
func (c *ClusterBase) AttributeChanged(attrID AttributeID, oldValue, newValue any) {
	c.IncrementDataVersion()

	c.listenerMu.RLock()
	l := c.listener
	c.listenerMu.RUnlock()

	if l == nil {
		return
	}
	l.OnAttributeChanged(AttributeChange{
		Path:     c.AttributePath(attrID),
		OldValue: oldValue,
		NewValue: newValue,
	})
}

// Path returns the concrete cluster path for this cluster.
func (c *ClusterBase) Path() ConcreteClusterPath {
	return ConcreteClusterPath{
		Endpoint: c.endpointID,
		Cluster:  c.id,
	}
}

// AttributePath returns a concrete attribute path for an attribute on this cluster.
func (c *ClusterBase) AttributePath(attrID AttributeID) ConcreteAttributePath {
	return ConcreteAttributePath{
		Endpoint:  c.endpointID,
		Cluster:   c.id,
		Attribute: attrID,
	}
}

// CommandPath returns a concrete command path for a command on this cluster.
func (c *ClusterBase) CommandPath(cmdID CommandID) ConcreteCommandPath {
	return ConcreteCommandPath{
		Endpoint: c.endpointID,
		Cluster:  c.id,
		Command:  cmdID,
	}
}

// ReadGlobalAttribute handles reading of global attributes.
// Returns ok=false if attrID is not a global attribute.
func (c *ClusterBase) ReadGlobalAttribute(attrID AttributeID, attrList []AttributeEntry, cmdList []CommandEntry, genCmdList []CommandID) (value any, ok bool) {
	switch attrID {
	case GlobalAttrClusterRevision:
		return c.revision, true

	case GlobalAttrFeatureMap:
		return c.featureMap, true

	case GlobalAttrAttributeList:
		ids := make([]AttributeID, 0, len(attrList))
		for _, attr := range attrList {
			ids = append(ids, attr.ID)
		}
		return ids, true

	case GlobalAttrAcceptedCommandList:
		ids := make([]CommandID, 0, len(cmdList))
		for _, cmd := range cmdList {
			ids = append(ids, cmd.ID)
		}
		return ids, true

	case GlobalAttrGeneratedCommandList:
		return append([]CommandID{}, genCmdList...), true

	default:
		return nil, false
	}
}

// randomDataVersion generates a random initial data version.
func randomDataVersion() uint32 {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 1
	}
	return binary.LittleEndian.Uint32(buf[:])
}

// MergeAttributeLists combines cluster-specific attributes with global attributes.
// Use this to build the complete AttributeList for a cluster.
func MergeAttributeLists(clusterAttrs []AttributeEntry) []AttributeEntry {
	globals := GlobalAttributeEntries()
	result := make([]AttributeEntry, 0, len(clusterAttrs)+len(globals))
	result = append(result, clusterAttrs...)
	result = append(result, globals...)
	return result
}

// FindAttribute searches an attribute list for a specific attribute ID.
// Returns nil if not found.
func FindAttribute(list []AttributeEntry, id AttributeID) *AttributeEntry {
	for i := range list {
		if list[i].ID == id {
			return &list[i]
		}
	}
	return nil
}

// FindCommand searches a command list for a specific command ID.
// Returns nil if not found.
func FindCommand(list []CommandEntry, id CommandID) *CommandEntry {
	for i := range list {
		if list[i].ID == id {
			return &list[i]
		}
	}
	return nil
}
