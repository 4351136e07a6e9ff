package fleet

import (
	"github.com/backkem/matter-appliances/pkg/clusters/descriptor"
	"github.com/backkem/matter-appliances/pkg/datamodel"
)

// Fixed endpoint layout of a bridge.
const (
	// RootEndpointID is the ID of the root endpoint.
	RootEndpointID datamodel.EndpointID = 0

	// AggregatorEndpointID is the endpoint every device is bridged below.
	AggregatorEndpointID datamodel.EndpointID = 1

	// FirstDeviceEndpointID is where device endpoints start.
	FirstDeviceEndpointID datamodel.EndpointID = 2
)

// Device types of the fixed endpoints.
const (
	RootDeviceType       datamodel.DeviceTypeID = 0x0016
	AggregatorDeviceType datamodel.DeviceTypeID = 0x000E
)

// createRootEndpoint creates endpoint 0. Its descriptor lists every other
// endpoint of the node as a part.
func createRootEndpoint(node datamodel.Node) *datamodel.BasicEndpoint {
	ep := datamodel.NewEndpoint(RootEndpointID)
	ep.AddDeviceType(datamodel.DeviceTypeEntry{DeviceTypeID: RootDeviceType, Revision: 3})
	_ = ep.AddCluster(descriptor.New(descriptor.Config{
		EndpointID: RootEndpointID,
		Node:       node,
	}))
	return ep
}

// createAggregator creates the aggregator endpoint. Devices are attached
// as its children, and FullFamily composition makes its PartsList cover
// every device endpoint.
func createAggregator(node datamodel.Node) *datamodel.BasicEndpoint {
	ep := datamodel.NewEndpoint(AggregatorEndpointID)
	ep.SetCompositionPattern(datamodel.CompositionFullFamily)
	ep.AddDeviceType(datamodel.DeviceTypeEntry{DeviceTypeID: AggregatorDeviceType, Revision: 2})
	_ = ep.AddCluster(descriptor.New(descriptor.Config{
		EndpointID: AggregatorEndpointID,
		Node:       node,
	}))
	return ep
}
