// Package basic implements the Bridged Device Basic Information Cluster
// (0x0039).
//
// Every appliance in the fleet sits behind the aggregator endpoint and
// carries this cluster on its top-level endpoint: vendor and product
// identity, a user-writable NodeLabel, a stable UniqueID and the
// Reachable flag.
package basic

import (
	"context"
	"sync"

	"github.com/backkem/matter-appliances/pkg/datamodel"
	"github.com/pion/logging"
)

// Cluster constants.
const (
	ClusterID       datamodel.ClusterID = 0x0039
	ClusterRevision uint16              = 4
)

// Attribute IDs.
const (
	AttrVendorName         datamodel.AttributeID = 0x0001
	AttrVendorID           datamodel.AttributeID = 0x0002
	AttrProductName        datamodel.AttributeID = 0x0003
	AttrProductID          datamodel.AttributeID = 0x0004
	AttrNodeLabel          datamodel.AttributeID = 0x0005
	AttrHardwareVersion    datamodel.AttributeID = 0x0007
	AttrHardwareVersionStr datamodel.AttributeID = 0x0008
	AttrSoftwareVersion    datamodel.AttributeID = 0x0009
	AttrSoftwareVersionStr datamodel.AttributeID = 0x000A
	AttrManufacturingDate  datamodel.AttributeID = 0x000B
	AttrPartNumber         datamodel.AttributeID = 0x000C
	AttrProductURL         datamodel.AttributeID = 0x000D
	AttrProductLabel       datamodel.AttributeID = 0x000E
	AttrSerialNumber       datamodel.AttributeID = 0x000F
	AttrReachable          datamodel.AttributeID = 0x0011
	AttrUniqueID           datamodel.AttributeID = 0x0012
	AttrProductAppearance  datamodel.AttributeID = 0x0014
)

// Event IDs.
const (
	EventStartUp          datamodel.EventID = 0x00
	EventShutDown         datamodel.EventID = 0x01
	EventLeave            datamodel.EventID = 0x02
	EventReachableChanged datamodel.EventID = 0x03
)

// MaxNodeLabelLength is the longest accepted NodeLabel.
const MaxNodeLabelLength = 32

const storageKeyNodeLabel = "nodelabel"

// ProductFinish describes the visible finish of the product.
type ProductFinish uint8

const (
	ProductFinishOther    ProductFinish = 0
	ProductFinishMatte    ProductFinish = 1
	ProductFinishSatin    ProductFinish = 2
	ProductFinishPolished ProductFinish = 3
	ProductFinishRugged   ProductFinish = 4
	ProductFinishFabric   ProductFinish = 5
)

// String returns the name of the product finish.
func (p ProductFinish) String() string {
	switch p {
	case ProductFinishOther:
		return "Other"
	case ProductFinishMatte:
		return "Matte"
	case ProductFinishSatin:
		return "Satin"
	case ProductFinishPolished:
		return "Polished"
	case ProductFinishRugged:
		return "Rugged"
	case ProductFinishFabric:
		return "Fabric"
	default:
		return "Unknown"
	}
}

// Color describes the primary color of the product.
type Color uint8

const (
	ColorBlack  Color = 0
	ColorGray   Color = 7
	ColorWhite  Color = 14
	ColorChrome Color = 16
	ColorSilver Color = 19
)

// ProductAppearance describes the product's appearance.
type ProductAppearance struct {
	Finish       ProductFinish
	PrimaryColor *Color // nullable
}

// DeviceInfo provides static device information.
type DeviceInfo struct {
	VendorName            string // max 32 chars
	VendorID              uint16
	ProductName           string // max 32 chars
	ProductID             uint16
	HardwareVersion       uint16
	HardwareVersionString string
	SoftwareVersion       uint32
	SoftwareVersionString string

	// SerialNumber is reported when non-empty and seeds UniqueID.
	SerialNumber string

	// UniqueID overrides the id derived from SerialNumber.
	UniqueID string

	// Optional attributes
	ManufacturingDate *string // YYYYMMDD
	PartNumber        *string
	ProductURL        *string
	ProductLabel      *string
	ProductAppearance *ProductAppearance
}

// Storage provides persistence for the node label.
type Storage interface {
	// Load retrieves a value by key.
	Load(key string) ([]byte, error)
	// Store persists a value.
	Store(key string, value []byte) error
}

// Config provides dependencies for the cluster.
type Config struct {
	// EndpointID is the bridged device's top-level endpoint.
	EndpointID datamodel.EndpointID

	// DeviceInfo provides static device information.
	DeviceInfo DeviceInfo

	// InitialNodeLabel is used when nothing is persisted.
	InitialNodeLabel string

	// Storage for persisting NodeLabel (optional).
	Storage Storage

	// EventPublisher for StartUp/ShutDown/Leave/ReachableChanged events.
	// Optional - if nil, events are not emitted.
	EventPublisher datamodel.EventPublisher

	// LoggerFactory for scoped logging; nil disables logging.
	LoggerFactory logging.LoggerFactory
}

// Cluster implements the Bridged Device Basic Information cluster.
type Cluster struct {
	*datamodel.ClusterBase
	*datamodel.EventSource
	config Config
	log    logging.LeveledLogger

	uniqueID string

	mu        sync.RWMutex
	nodeLabel string
	reachable bool

	attrList []datamodel.AttributeEntry
}

// New creates a new Bridged Device Basic Information cluster. The device
// starts reachable.
func New(cfg Config) *Cluster {
	c := &Cluster{
		ClusterBase: datamodel.NewClusterBase(ClusterID, cfg.EndpointID, ClusterRevision),
		EventSource: datamodel.NewEventSource(),
		config:      cfg,
		uniqueID:    cfg.DeviceInfo.UniqueID,
		nodeLabel:   truncate(cfg.InitialNodeLabel, MaxNodeLabelLength),
		reachable:   true,
	}
	if c.uniqueID == "" {
		c.uniqueID = UniqueIDFromSerial(cfg.DeviceInfo.SerialNumber)
	}

	if cfg.LoggerFactory != nil {
		c.log = cfg.LoggerFactory.NewLogger("basic")
	}

	if cfg.Storage != nil {
		if data, err := cfg.Storage.Load(storageKeyNodeLabel); err == nil && len(data) <= MaxNodeLabelLength {
			c.nodeLabel = string(data)
		}
	}

	if cfg.EventPublisher != nil {
		c.EventSource.Bind(cfg.EndpointID, ClusterID, cfg.EventPublisher)
	}
	c.EventSource.RegisterEvents(c.EventList())

	c.attrList = c.buildAttributeList()
	return c
}

// buildAttributeList constructs the list of supported attributes.
func (c *Cluster) buildAttributeList() []datamodel.AttributeEntry {
	viewPriv := datamodel.PrivilegeView
	managePriv := datamodel.PrivilegeManage
	info := c.config.DeviceInfo

	attrs := []datamodel.AttributeEntry{
		datamodel.NewReadOnlyAttribute(AttrVendorName, datamodel.AttrQualityFixed, viewPriv),
		datamodel.NewReadOnlyAttribute(AttrVendorID, datamodel.AttrQualityFixed, viewPriv),
		datamodel.NewReadOnlyAttribute(AttrProductName, datamodel.AttrQualityFixed, viewPriv),
		datamodel.NewReadOnlyAttribute(AttrProductID, datamodel.AttrQualityFixed, viewPriv),
		datamodel.NewReadWriteAttribute(AttrNodeLabel, datamodel.AttrQualityNonVolatile, viewPriv, managePriv),
		datamodel.NewReadOnlyAttribute(AttrHardwareVersion, datamodel.AttrQualityFixed, viewPriv),
		datamodel.NewReadOnlyAttribute(AttrHardwareVersionStr, datamodel.AttrQualityFixed, viewPriv),
		datamodel.NewReadOnlyAttribute(AttrSoftwareVersion, datamodel.AttrQualityFixed, viewPriv),
		datamodel.NewReadOnlyAttribute(AttrSoftwareVersionStr, datamodel.AttrQualityFixed, viewPriv),
		datamodel.NewReadOnlyAttribute(AttrReachable, datamodel.AttrQualityReportable, viewPriv),
		datamodel.NewReadOnlyAttribute(AttrUniqueID, datamodel.AttrQualityFixed, viewPriv),
	}

	if info.SerialNumber != "" {
		attrs = append(attrs, datamodel.NewReadOnlyAttribute(AttrSerialNumber, datamodel.AttrQualityFixed, viewPriv))
	}
	if info.ManufacturingDate != nil {
		attrs = append(attrs, datamodel.NewReadOnlyAttribute(AttrManufacturingDate, datamodel.AttrQualityFixed, viewPriv))
	}
	if info.PartNumber != nil {
		attrs = append(attrs, datamodel.NewReadOnlyAttribute(AttrPartNumber, datamodel.AttrQualityFixed, viewPriv))
	}
	if info.ProductURL != nil {
		attrs = append(attrs, datamodel.NewReadOnlyAttribute(AttrProductURL, datamodel.AttrQualityFixed, viewPriv))
	}
	if info.ProductLabel != nil {
		attrs = append(attrs, datamodel.NewReadOnlyAttribute(AttrProductLabel, datamodel.AttrQualityFixed, viewPriv))
	}
	if info.ProductAppearance != nil {
		attrs = append(attrs, datamodel.NewReadOnlyAttribute(AttrProductAppearance, datamodel.AttrQualityFixed, viewPriv))
	}

	return datamodel.MergeAttributeLists(attrs)
}

// AttributeList implements datamodel.Cluster.
func (c *Cluster) AttributeList() []datamodel.AttributeEntry {
	return c.attrList
}

// AcceptedCommandList implements datamodel.Cluster.
// The cluster has no commands.
func (c *Cluster) AcceptedCommandList() []datamodel.CommandEntry {
	return nil
}

// GeneratedCommandList implements datamodel.Cluster.
// The cluster has no commands.
func (c *Cluster) GeneratedCommandList() []datamodel.CommandID {
	return nil
}

// EventList implements datamodel.ClusterWithEvents.
func (c *Cluster) EventList() []datamodel.EventEntry {
	return []datamodel.EventEntry{
		datamodel.NewEventEntry(EventStartUp, datamodel.EventPriorityCritical, datamodel.PrivilegeView),
		datamodel.NewEventEntry(EventShutDown, datamodel.EventPriorityCritical, datamodel.PrivilegeView),
		datamodel.NewEventEntry(EventLeave, datamodel.EventPriorityInfo, datamodel.PrivilegeView),
		datamodel.NewEventEntry(EventReachableChanged, datamodel.EventPriorityInfo, datamodel.PrivilegeView),
	}
}

// ReadAttribute implements datamodel.Cluster.
func (c *Cluster) ReadAttribute(ctx context.Context, req datamodel.ReadAttributeRequest) (any, error) {
	if v, ok := c.ReadGlobalAttribute(req.Path.Attribute, c.attrList, nil, nil); ok {
		return v, nil
	}
	if datamodel.FindAttribute(c.attrList, req.Path.Attribute) == nil {
		return nil, datamodel.ErrUnsupportedAttribute
	}

	info := c.config.DeviceInfo
	switch req.Path.Attribute {
	case AttrVendorName:
		return info.VendorName, nil
	case AttrVendorID:
		return info.VendorID, nil
	case AttrProductName:
		return info.ProductName, nil
	case AttrProductID:
		return info.ProductID, nil
	case AttrHardwareVersion:
		return info.HardwareVersion, nil
	case AttrHardwareVersionStr:
		return info.HardwareVersionString, nil
	case AttrSoftwareVersion:
		return info.SoftwareVersion, nil
	case AttrSoftwareVersionStr:
		return info.SoftwareVersionString, nil
	case AttrSerialNumber:
		return info.SerialNumber, nil
	case AttrUniqueID:
		return c.uniqueID, nil
	case AttrNodeLabel:
		return c.NodeLabel(), nil
	case AttrReachable:
		return c.Reachable(), nil
	case AttrManufacturingDate:
		return *info.ManufacturingDate, nil
	case AttrPartNumber:
		return *info.PartNumber, nil
	case AttrProductURL:
		return *info.ProductURL, nil
	case AttrProductLabel:
		return *info.ProductLabel, nil
	case AttrProductAppearance:
		return c.productAppearance(), nil
	default:
		return nil, datamodel.ErrUnsupportedAttribute
	}
}

// WriteAttribute implements datamodel.Cluster. Only NodeLabel is
// writable; internal writes may also set Reachable.
func (c *Cluster) WriteAttribute(ctx context.Context, req datamodel.WriteAttributeRequest, value any) error {
	switch req.Path.Attribute {
	case AttrNodeLabel:
		return c.writeNodeLabel(value)
	case AttrReachable:
		if !req.IsInternal() {
			return datamodel.ErrUnsupportedWrite
		}
		return c.writeReachable(value)
	default:
		return datamodel.ErrUnsupportedWrite
	}
}

// InvokeCommand implements datamodel.Cluster.
// The cluster has no commands.
func (c *Cluster) InvokeCommand(ctx context.Context, req datamodel.InvokeRequest, fields any) (any, error) {
	return nil, datamodel.ErrUnsupportedCommand
}

// NodeLabel returns the current node label.
func (c *Cluster) NodeLabel() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.nodeLabel
}

// Reachable reports whether the bridged device is reachable.
func (c *Cluster) Reachable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.reachable
}

// UniqueID returns the stable unique identifier of the device.
func (c *Cluster) UniqueID() string {
	return c.uniqueID
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
