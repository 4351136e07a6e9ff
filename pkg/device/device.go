// Package device assembles simulated appliances: the endpoint subtree of
// each kind with its clusters, the couplings between them and the demo
// animations that move them.
package device

import (
	"errors"
	"fmt"

	"github.com/backkem/matter-appliances/pkg/clusters/basic"
	"github.com/backkem/matter-appliances/pkg/clusters/descriptor"
	"github.com/backkem/matter-appliances/pkg/coupling"
	"github.com/backkem/matter-appliances/pkg/datamodel"
	"github.com/backkem/matter-appliances/pkg/sim"
	"github.com/backkem/matter-appliances/pkg/storage"
	"github.com/pion/logging"
)

// Device type ids.
const (
	DeviceTypeBridgedNode                  datamodel.DeviceTypeID = 0x0013
	DeviceTypeRefrigerator                 datamodel.DeviceTypeID = 0x0070
	DeviceTypeTemperatureControlledCabinet datamodel.DeviceTypeID = 0x0071
	DeviceTypeLaundryWasher                datamodel.DeviceTypeID = 0x0073
	DeviceTypeRVC                          datamodel.DeviceTypeID = 0x0074
	DeviceTypeDishwasher                   datamodel.DeviceTypeID = 0x0075
	DeviceTypeCookSurface                  datamodel.DeviceTypeID = 0x0077
	DeviceTypeCooktop                      datamodel.DeviceTypeID = 0x0078
	DeviceTypeMicrowaveOven                datamodel.DeviceTypeID = 0x0079
	DeviceTypeOven                         datamodel.DeviceTypeID = 0x007B
	DeviceTypeWaterHeater                  datamodel.DeviceTypeID = 0x050F
	DeviceTypeLightSensor                  datamodel.DeviceTypeID = 0x0106
	DeviceTypeFan                          datamodel.DeviceTypeID = 0x002B
)

// Vendor reported by every simulated device.
const (
	VendorName = "Appliance Sim"
	VendorID   = 0xFFF1
)

// Build errors.
var (
	ErrNoNode     = errors.New("device: node is required")
	ErrNoEndpoint = errors.New("device: endpoint 0 is reserved")
)

// Env is what a device is built into.
type Env struct {
	// Node hosts the endpoints. Required.
	Node *datamodel.BasicNode

	// Parent, when set, is the aggregator the device is attached below.
	// It must already be registered with Node.
	Parent *datamodel.BasicEndpoint

	// Reactor owns coupling subscriptions. Nil disables couplings.
	Reactor *coupling.Reactor

	// Store persists cluster state. Nil keeps state in memory only.
	Store storage.Store

	// Events receives cluster events (optional).
	Events datamodel.EventPublisher

	// TickSeconds is the simulated time per animation tick.
	TickSeconds uint32

	// LoggerFactory for scoped logging; nil disables logging.
	LoggerFactory logging.LoggerFactory
}

// Identity describes one device instance.
type Identity struct {
	// Name is the initial NodeLabel.
	Name string

	// Serial is the serial number; it seeds UniqueID and the storage
	// scope, so it should be stable across restarts.
	Serial string

	// Endpoint is the device's top-level endpoint. Sub-units take the
	// ids that follow it.
	Endpoint datamodel.EndpointID
}

// Device is a built appliance.
type Device struct {
	Kind     Kind
	Name     string
	Endpoint datamodel.EndpointID

	// Basic is the bridged device basic information cluster.
	Basic *basic.Cluster

	// Animations move the device while the simulation runs.
	Animations []sim.Animation

	endpoints []datamodel.EndpointID
}

// Endpoints returns every endpoint of the device, top-level first.
func (d *Device) Endpoints() []datamodel.EndpointID {
	return append([]datamodel.EndpointID(nil), d.endpoints...)
}

// profile builds the kind specific part of a device.
type profile struct {
	deviceType datamodel.DeviceTypeID
	product    string
	productID  uint16
	build      func(b *builder) error
}

// Build creates the endpoint subtree of a device of the given kind,
// registers it with env.Node and wires its couplings.
func Build(kind Kind, id Identity, env Env) (*Device, error) {
	p, ok := profiles[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, uint8(kind))
	}
	if env.Node == nil {
		return nil, ErrNoNode
	}
	if id.Endpoint == 0 {
		return nil, ErrNoEndpoint
	}
	if id.Name == "" {
		id.Name = p.product
	}

	b := &builder{
		env:  env,
		id:   id,
		kind: kind,
		next: id.Endpoint,
		dev:  &Device{Kind: kind, Name: id.Name, Endpoint: id.Endpoint},
	}
	if env.LoggerFactory != nil {
		b.log = env.LoggerFactory.NewLogger("device")
	}

	b.root = b.endpoint(p.deviceType, nil)
	b.root.AddDeviceType(datamodel.DeviceTypeEntry{DeviceTypeID: DeviceTypeBridgedNode, Revision: 3})
	b.dev.Basic = basic.New(basic.Config{
		EndpointID: id.Endpoint,
		DeviceInfo: basic.DeviceInfo{
			VendorName:            VendorName,
			VendorID:              VendorID,
			ProductName:           p.product,
			ProductID:             p.productID,
			HardwareVersion:       1,
			HardwareVersionString: "1.0",
			SoftwareVersion:       1,
			SoftwareVersionString: "1.0.0",
			SerialNumber:          id.Serial,
		},
		InitialNodeLabel: id.Name,
		Storage:          b.store(0, basic.ClusterID),
		EventPublisher:   env.Events,
		LoggerFactory:    env.LoggerFactory,
	})
	if err := b.add(b.root, b.dev.Basic); err != nil {
		return nil, err
	}

	if err := p.build(b); err != nil {
		return nil, fmt.Errorf("build %s %q: %w", kind, id.Name, err)
	}
	if err := env.Node.AddEndpoint(b.root); err != nil {
		return nil, err
	}
	if env.Parent != nil {
		if err := env.Parent.AddChild(b.root); err != nil {
			return nil, err
		}
	}
	for _, wire := range b.wiring {
		wire()
	}

	if b.log != nil {
		b.log.Infof("%s %q on endpoints %v", kind, id.Name, b.dev.endpoints)
	}
	return b.dev, nil
}

// builder carries the state of one Build call.
type builder struct {
	env  Env
	id   Identity
	kind Kind
	log  logging.LeveledLogger

	next datamodel.EndpointID
	root *datamodel.BasicEndpoint
	dev  *Device

	// wiring runs once the subtree is registered.
	wiring []func()
}

// endpoint allocates the next endpoint id and gives it a descriptor.
func (b *builder) endpoint(deviceType datamodel.DeviceTypeID, tags []descriptor.SemanticTag) *datamodel.BasicEndpoint {
	id := b.next
	b.next++
	b.dev.endpoints = append(b.dev.endpoints, id)

	ep := datamodel.NewEndpoint(id)
	ep.AddDeviceType(datamodel.DeviceTypeEntry{DeviceTypeID: deviceType, Revision: 1})
	_ = ep.AddCluster(descriptor.New(descriptor.Config{
		EndpointID:   id,
		Node:         b.env.Node,
		SemanticTags: tags,
	}))
	return ep
}

// child creates a sub-unit endpoint below the top-level endpoint.
func (b *builder) child(deviceType datamodel.DeviceTypeID, tags ...descriptor.SemanticTag) (*datamodel.BasicEndpoint, error) {
	ep := b.endpoint(deviceType, tags)
	if err := b.root.AddChild(ep); err != nil {
		return nil, err
	}
	return ep, nil
}

func (b *builder) add(ep *datamodel.BasicEndpoint, clusters ...datamodel.Cluster) error {
	for _, c := range clusters {
		if err := ep.AddCluster(c); err != nil {
			return err
		}
	}
	return nil
}

// store returns the storage scope of a cluster on the endpoint offset
// positions after the top-level one. Scopes are keyed by serial so a
// device keeps its state when the fleet layout changes.
func (b *builder) store(offset int, cluster datamodel.ClusterID) storage.Store {
	if b.env.Store == nil {
		return nil
	}
	key := b.id.Serial
	if key == "" {
		key = b.id.Name
	}
	return storage.Scoped(b.env.Store, fmt.Sprintf("%s/%d/0x%04X", key, offset, uint32(cluster)))
}

// offset returns the position of ep within the device.
func (b *builder) offset(ep *datamodel.BasicEndpoint) int {
	return int(ep.ID() - b.id.Endpoint)
}

func (b *builder) animate(a sim.Animation) {
	b.dev.Animations = append(b.dev.Animations, a)
}

func (b *builder) wire(fn func(r *coupling.Reactor)) {
	if b.env.Reactor == nil {
		return
	}
	b.wiring = append(b.wiring, func() { fn(b.env.Reactor) })
}

func semantic(namespace, tag uint8) descriptor.SemanticTag {
	return descriptor.SemanticTag{NamespaceID: namespace, Tag: tag}
}
