// Package illuminance implements the Illuminance Measurement cluster
// (0x0400). Values are carried in the logarithmic encoding of
// codec.Illuminance; 0 means too dark to measure.
package illuminance

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/backkem/matter-appliances/pkg/codec"
	"github.com/backkem/matter-appliances/pkg/datamodel"
	"github.com/pion/logging"
)

// Cluster constants.
const (
	ClusterID       datamodel.ClusterID = 0x0400
	ClusterRevision uint16              = 3
)

// Attribute IDs.
const (
	AttrMeasuredValue    datamodel.AttributeID = 0x0000
	AttrMinMeasuredValue datamodel.AttributeID = 0x0001
	AttrMaxMeasuredValue datamodel.AttributeID = 0x0002
	AttrTolerance        datamodel.AttributeID = 0x0003
	AttrLightSensorType  datamodel.AttributeID = 0x0004
)

// LightSensorType values.
type LightSensorType uint8

const (
	SensorPhotodiode LightSensorType = 0
	SensorCMOS       LightSensorType = 1
)

// Defaults cover roughly 1 lx to 100 klx.
const (
	DefaultMinLux = 1
	DefaultMaxLux = 100000
)

// ErrInvalidRange is returned when the measurable range is empty.
var ErrInvalidRange = errors.New("illuminance: min must be below max")

// Config provides dependencies for an Illuminance Measurement cluster.
type Config struct {
	// EndpointID is the endpoint this cluster belongs to.
	EndpointID datamodel.EndpointID

	// MinLux and MaxLux bound the measurable range in lux. Zero values
	// select the defaults.
	MinLux float64
	MaxLux float64

	// Tolerance in encoded units.
	Tolerance uint16

	// SensorType is reported when non-nil.
	SensorType *LightSensorType

	// LoggerFactory for scoped logging; nil disables logging.
	LoggerFactory logging.LoggerFactory
}

// Cluster implements the Illuminance Measurement cluster.
type Cluster struct {
	*datamodel.ClusterBase
	config Config
	log    logging.LeveledLogger

	mu       sync.RWMutex
	measured *uint16 // nil means unknown

	min, max uint16
	attrList []datamodel.AttributeEntry
}

// New creates an Illuminance Measurement cluster.
func New(cfg Config) (*Cluster, error) {
	if cfg.MinLux == 0 {
		cfg.MinLux = DefaultMinLux
	}
	if cfg.MaxLux == 0 {
		cfg.MaxLux = DefaultMaxLux
	}
	minV, maxV := codec.Illuminance.Encode(cfg.MinLux), codec.Illuminance.Encode(cfg.MaxLux)
	if minV >= maxV {
		return nil, fmt.Errorf("%w: %v..%v lx", ErrInvalidRange, cfg.MinLux, cfg.MaxLux)
	}
	// MinMeasuredValue must be at least 1; 0 is reserved for "too dark".
	if minV == 0 {
		minV = 1
	}

	c := &Cluster{
		ClusterBase: datamodel.NewClusterBase(ClusterID, cfg.EndpointID, ClusterRevision),
		config:      cfg,
		min:         minV,
		max:         maxV,
	}
	if cfg.LoggerFactory != nil {
		c.log = cfg.LoggerFactory.NewLogger("illuminance")
	}

	view := datamodel.PrivilegeView
	attrs := []datamodel.AttributeEntry{
		datamodel.NewReadOnlyAttribute(AttrMeasuredValue, datamodel.AttrQualityNullable|datamodel.AttrQualityReportable, view),
		datamodel.NewReadOnlyAttribute(AttrMinMeasuredValue, datamodel.AttrQualityNullable, view),
		datamodel.NewReadOnlyAttribute(AttrMaxMeasuredValue, datamodel.AttrQualityNullable, view),
		datamodel.NewReadOnlyAttribute(AttrTolerance, 0, view),
	}
	if cfg.SensorType != nil {
		attrs = append(attrs, datamodel.NewReadOnlyAttribute(AttrLightSensorType, datamodel.AttrQualityNullable, view))
	}
	c.attrList = datamodel.MergeAttributeLists(attrs)
	return c, nil
}

// AttributeList implements datamodel.Cluster.
func (c *Cluster) AttributeList() []datamodel.AttributeEntry {
	return c.attrList
}

// AcceptedCommandList implements datamodel.Cluster.
func (c *Cluster) AcceptedCommandList() []datamodel.CommandEntry {
	return nil
}

// GeneratedCommandList implements datamodel.Cluster.
func (c *Cluster) GeneratedCommandList() []datamodel.CommandID {
	return nil
}

// ReadAttribute implements datamodel.Cluster. MeasuredValue is *uint16,
// nil while no measurement has been taken.
func (c *Cluster) ReadAttribute(ctx context.Context, req datamodel.ReadAttributeRequest) (any, error) {
	if v, ok := c.ReadGlobalAttribute(req.Path.Attribute, c.attrList, c.AcceptedCommandList(), c.GeneratedCommandList()); ok {
		return v, nil
	}

	switch req.Path.Attribute {
	case AttrMeasuredValue:
		c.mu.RLock()
		defer c.mu.RUnlock()
		if c.measured == nil {
			return (*uint16)(nil), nil
		}
		v := *c.measured
		return &v, nil
	case AttrMinMeasuredValue:
		v := c.min
		return &v, nil
	case AttrMaxMeasuredValue:
		v := c.max
		return &v, nil
	case AttrTolerance:
		return c.config.Tolerance, nil
	case AttrLightSensorType:
		if c.config.SensorType == nil {
			return nil, datamodel.ErrUnsupportedAttribute
		}
		v := *c.config.SensorType
		return &v, nil
	default:
		return nil, datamodel.ErrUnsupportedAttribute
	}
}

// WriteAttribute implements datamodel.Cluster. Internal writes of
// MeasuredValue accept an encoded uint16 or nil.
func (c *Cluster) WriteAttribute(ctx context.Context, req datamodel.WriteAttributeRequest, value any) error {
	if req.Path.Attribute != AttrMeasuredValue || !req.IsInternal() {
		return datamodel.ErrUnsupportedWrite
	}
	switch v := value.(type) {
	case nil:
		c.setMeasured(nil)
	case uint16:
		c.setMeasured(&v)
	case *uint16:
		c.setMeasured(v)
	default:
		return fmt.Errorf("%w: MeasuredValue wants uint16, got %T", datamodel.ErrInvalidDataType, value)
	}
	return nil
}

// InvokeCommand implements datamodel.Cluster.
func (c *Cluster) InvokeCommand(ctx context.Context, req datamodel.InvokeRequest, fields any) (any, error) {
	return nil, datamodel.ErrUnsupportedCommand
}

// SetMeasuredLux records a measurement in lux. Zero or negative lux is
// reported as 0 (too dark); other values are clamped to the measurable
// range. Returns the encoded value.
func (c *Cluster) SetMeasuredLux(lux float64) uint16 {
	v := codec.Illuminance.Encode(lux)
	if v != 0 {
		v = min(max(v, c.min), c.max)
	}
	c.setMeasured(&v)
	return v
}

// MeasuredLux returns the current measurement decoded to lux and whether
// a measurement exists.
func (c *Cluster) MeasuredLux() (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.measured == nil {
		return 0, false
	}
	return codec.Illuminance.Decode(float64(*c.measured)), true
}

func (c *Cluster) setMeasured(v *uint16) {
	c.mu.Lock()
	old := c.measured
	if (old == nil && v == nil) || (old != nil && v != nil && *old == *v) {
		c.mu.Unlock()
		return
	}
	var next *uint16
	if v != nil {
		n := *v
		next = &n
	}
	c.measured = next
	c.mu.Unlock()

	if c.log != nil && next != nil {
		c.log.Tracef("endpoint %d: illuminance %d", c.EndpointID(), *next)
	}
	c.AttributeChanged(AttrMeasuredValue, old, next)
}
