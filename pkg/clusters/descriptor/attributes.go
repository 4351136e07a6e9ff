package descriptor

import (
	"github.com/backkem/matter-appliances/pkg/datamodel"
)

// DeviceTypeList returns the device types of the endpoint.
func (c *Cluster) DeviceTypeList() ([]datamodel.DeviceTypeEntry, error) {
	endpoint := c.config.Node.GetEndpoint(c.config.EndpointID)
	if endpoint == nil {
		return nil, datamodel.ErrEndpointNotFound
	}
	return endpoint.GetDeviceTypes(), nil
}

// ServerList returns the IDs of the server clusters on the endpoint.
func (c *Cluster) ServerList() ([]datamodel.ClusterID, error) {
	endpoint := c.config.Node.GetEndpoint(c.config.EndpointID)
	if endpoint == nil {
		return nil, datamodel.ErrEndpointNotFound
	}

	clusters := endpoint.GetClusters()
	ids := make([]datamodel.ClusterID, 0, len(clusters))
	for _, cluster := range clusters {
		ids = append(ids, cluster.ID())
	}
	return ids, nil
}

// PartsList returns the composition of the endpoint.
//
// For the root endpoint (0) it lists every other registered endpoint.
// Otherwise it depends on the composition pattern:
//   - CompositionFullFamily: all descendants
//   - CompositionTree: direct children only
func (c *Cluster) PartsList() []datamodel.EndpointID {
	parts := []datamodel.EndpointID{}

	if c.config.EndpointID == 0 {
		for _, ep := range c.config.Node.GetEndpoints() {
			if ep.ID() != 0 {
				parts = append(parts, ep.ID())
			}
		}
		return parts
	}

	self := c.config.Node.GetEndpoint(c.config.EndpointID)
	if self == nil {
		return parts
	}

	switch self.Entry().CompositionPattern {
	case datamodel.CompositionFullFamily:
		for _, child := range self.Children() {
			datamodel.Walk(child, func(ep datamodel.Endpoint) {
				parts = append(parts, ep.ID())
			})
		}
	case datamodel.CompositionTree:
		for _, child := range self.Children() {
			parts = append(parts, child.ID())
		}
	}
	return parts
}
