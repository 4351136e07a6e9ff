// Package temperature implements the Temperature Control cluster (0x0056)
// in its two flavours: a numeric setpoint bounded by min, max and step, or
// a selected level out of a list of named levels.
package temperature

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/backkem/matter-appliances/pkg/datamodel"
	"github.com/pion/logging"
)

// Cluster constants.
const (
	ClusterID       datamodel.ClusterID = 0x0056
	ClusterRevision uint16              = 1
)

// Attribute IDs.
const (
	AttrTemperatureSetpoint        datamodel.AttributeID = 0x0000
	AttrMinTemperature             datamodel.AttributeID = 0x0001
	AttrMaxTemperature             datamodel.AttributeID = 0x0002
	AttrStep                       datamodel.AttributeID = 0x0003
	AttrSelectedTemperatureLevel   datamodel.AttributeID = 0x0004
	AttrSupportedTemperatureLevels datamodel.AttributeID = 0x0005
)

// Command IDs.
const (
	CmdSetTemperature datamodel.CommandID = 0x00
)

// Feature bits.
type Feature uint32

const (
	FeatureTemperatureNumber Feature = 1 << 0 // TN
	FeatureTemperatureLevel  Feature = 1 << 1 // TL
	FeatureTemperatureStep   Feature = 1 << 2 // STEP
)

// MaxLevels is the maximum length of SupportedTemperatureLevels.
const MaxLevels = 32

// Errors.
var (
	ErrInvalidFeatures = errors.New("temperature: exactly one of number or level is required")
	ErrInvalidRange    = errors.New("temperature: invalid temperature range")
	ErrInvalidLevels   = errors.New("temperature: invalid supported levels")
)

// SetTemperatureRequest represents the SetTemperature command. Setpoints
// are in hundredths of a degree Celsius.
type SetTemperatureRequest struct {
	TargetTemperature      *int16
	TargetTemperatureLevel *uint8
}

// Config provides dependencies for a Temperature Control cluster.
type Config struct {
	// EndpointID is the endpoint this cluster belongs to.
	EndpointID datamodel.EndpointID

	// FeatureMap must set exactly one of FeatureTemperatureNumber and
	// FeatureTemperatureLevel.
	FeatureMap Feature

	// Numeric variant bounds, in hundredths of a degree. Step is used
	// with FeatureTemperatureStep.
	MinTemperature  int16
	MaxTemperature  int16
	Step            int16
	InitialSetpoint int16

	// Level variant.
	SupportedLevels []string
	InitialLevel    uint8

	// LoggerFactory for scoped logging; nil disables logging.
	LoggerFactory logging.LoggerFactory
}

// Cluster implements the Temperature Control cluster.
type Cluster struct {
	*datamodel.ClusterBase
	config Config
	log    logging.LeveledLogger

	mu       sync.RWMutex
	setpoint int16
	level    uint8

	attrList []datamodel.AttributeEntry
}

// New creates a Temperature Control cluster.
func New(cfg Config) (*Cluster, error) {
	number := cfg.FeatureMap&FeatureTemperatureNumber != 0
	level := cfg.FeatureMap&FeatureTemperatureLevel != 0
	if number == level {
		return nil, ErrInvalidFeatures
	}
	if number {
		if cfg.MinTemperature >= cfg.MaxTemperature {
			return nil, fmt.Errorf("%w: min %d, max %d", ErrInvalidRange, cfg.MinTemperature, cfg.MaxTemperature)
		}
		if cfg.FeatureMap&FeatureTemperatureStep != 0 && cfg.Step <= 0 {
			return nil, fmt.Errorf("%w: step %d", ErrInvalidRange, cfg.Step)
		}
		if cfg.InitialSetpoint < cfg.MinTemperature || cfg.InitialSetpoint > cfg.MaxTemperature {
			cfg.InitialSetpoint = cfg.MinTemperature
		}
	}
	if level {
		if len(cfg.SupportedLevels) == 0 || len(cfg.SupportedLevels) > MaxLevels {
			return nil, fmt.Errorf("%w: %d levels", ErrInvalidLevels, len(cfg.SupportedLevels))
		}
		if int(cfg.InitialLevel) >= len(cfg.SupportedLevels) {
			cfg.InitialLevel = 0
		}
		cfg.SupportedLevels = append([]string(nil), cfg.SupportedLevels...)
	}

	c := &Cluster{
		ClusterBase: datamodel.NewClusterBase(ClusterID, cfg.EndpointID, ClusterRevision),
		config:      cfg,
		setpoint:    cfg.InitialSetpoint,
		level:       cfg.InitialLevel,
	}
	c.ClusterBase.SetFeatureMap(uint32(cfg.FeatureMap))

	if cfg.LoggerFactory != nil {
		c.log = cfg.LoggerFactory.NewLogger("temperature")
	}

	c.attrList = c.buildAttributeList()
	return c, nil
}

func (c *Cluster) hasFeature(f Feature) bool {
	return c.config.FeatureMap&f != 0
}

func (c *Cluster) buildAttributeList() []datamodel.AttributeEntry {
	view := datamodel.PrivilegeView
	var attrs []datamodel.AttributeEntry
	if c.hasFeature(FeatureTemperatureNumber) {
		attrs = append(attrs,
			datamodel.NewReadOnlyAttribute(AttrTemperatureSetpoint, 0, view),
			datamodel.NewReadOnlyAttribute(AttrMinTemperature, datamodel.AttrQualityFixed, view),
			datamodel.NewReadOnlyAttribute(AttrMaxTemperature, datamodel.AttrQualityFixed, view),
		)
		if c.hasFeature(FeatureTemperatureStep) {
			attrs = append(attrs, datamodel.NewReadOnlyAttribute(AttrStep, datamodel.AttrQualityFixed, view))
		}
	}
	if c.hasFeature(FeatureTemperatureLevel) {
		attrs = append(attrs,
			datamodel.NewReadOnlyAttribute(AttrSelectedTemperatureLevel, 0, view),
			datamodel.NewReadOnlyAttribute(AttrSupportedTemperatureLevels, datamodel.AttrQualityList, view),
		)
	}
	return datamodel.MergeAttributeLists(attrs)
}

// AttributeList implements datamodel.Cluster.
func (c *Cluster) AttributeList() []datamodel.AttributeEntry {
	return c.attrList
}

// AcceptedCommandList implements datamodel.Cluster.
func (c *Cluster) AcceptedCommandList() []datamodel.CommandEntry {
	return []datamodel.CommandEntry{
		datamodel.NewCommandEntry(CmdSetTemperature, 0, datamodel.PrivilegeOperate),
	}
}

// GeneratedCommandList implements datamodel.Cluster.
func (c *Cluster) GeneratedCommandList() []datamodel.CommandID {
	return nil
}

// ReadAttribute implements datamodel.Cluster.
func (c *Cluster) ReadAttribute(ctx context.Context, req datamodel.ReadAttributeRequest) (any, error) {
	if v, ok := c.ReadGlobalAttribute(req.Path.Attribute, c.attrList, c.AcceptedCommandList(), c.GeneratedCommandList()); ok {
		return v, nil
	}
	if datamodel.FindAttribute(c.attrList, req.Path.Attribute) == nil {
		return nil, datamodel.ErrUnsupportedAttribute
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	switch req.Path.Attribute {
	case AttrTemperatureSetpoint:
		return c.setpoint, nil
	case AttrMinTemperature:
		return c.config.MinTemperature, nil
	case AttrMaxTemperature:
		return c.config.MaxTemperature, nil
	case AttrStep:
		return c.config.Step, nil
	case AttrSelectedTemperatureLevel:
		return c.level, nil
	case AttrSupportedTemperatureLevels:
		return append([]string(nil), c.config.SupportedLevels...), nil
	default:
		return nil, datamodel.ErrUnsupportedAttribute
	}
}

// WriteAttribute implements datamodel.Cluster. No attribute is writable.
func (c *Cluster) WriteAttribute(ctx context.Context, req datamodel.WriteAttributeRequest, value any) error {
	return datamodel.ErrUnsupportedWrite
}

// InvokeCommand implements datamodel.Cluster.
func (c *Cluster) InvokeCommand(ctx context.Context, req datamodel.InvokeRequest, fields any) (any, error) {
	if req.Path.Command != CmdSetTemperature {
		return nil, datamodel.ErrUnsupportedCommand
	}
	switch r := fields.(type) {
	case SetTemperatureRequest:
		return nil, c.SetTemperature(r)
	case *SetTemperatureRequest:
		if r == nil {
			return nil, datamodel.ErrInvalidCommand
		}
		return nil, c.SetTemperature(*r)
	case nil:
		return nil, datamodel.ErrInvalidCommand
	default:
		return nil, fmt.Errorf("%w: SetTemperature wants SetTemperatureRequest, got %T", datamodel.ErrInvalidDataType, fields)
	}
}

// SetTemperature applies the field matching the cluster's variant.
//
// The numeric variant refuses a missing target with ErrInvalidCommand
// and an out of range or off-step target with ErrConstraintError. The
// level variant only logs an unknown level and reports success without a
// change, unlike the mode clusters.
func (c *Cluster) SetTemperature(req SetTemperatureRequest) error {
	if c.hasFeature(FeatureTemperatureNumber) {
		return c.setNumber(req.TargetTemperature)
	}
	c.setLevel(req.TargetTemperatureLevel)
	return nil
}

func (c *Cluster) setNumber(target *int16) error {
	if target == nil {
		return fmt.Errorf("%w: TargetTemperature is required", datamodel.ErrInvalidCommand)
	}
	v := *target
	if v < c.config.MinTemperature || v > c.config.MaxTemperature {
		return fmt.Errorf("%w: %d outside [%d, %d]", datamodel.ErrConstraintError, v, c.config.MinTemperature, c.config.MaxTemperature)
	}
	if c.hasFeature(FeatureTemperatureStep) && (int32(v)-int32(c.config.MinTemperature))%int32(c.config.Step) != 0 {
		return fmt.Errorf("%w: %d is not on step %d from %d", datamodel.ErrConstraintError, v, c.config.Step, c.config.MinTemperature)
	}

	c.mu.Lock()
	old := c.setpoint
	c.setpoint = v
	c.mu.Unlock()

	if old != v {
		c.AttributeChanged(AttrTemperatureSetpoint, old, v)
	}
	return nil
}

func (c *Cluster) setLevel(target *uint8) {
	if target == nil || int(*target) >= len(c.config.SupportedLevels) {
		if c.log != nil {
			c.log.Errorf("endpoint %d: temperature level %v not in %d supported levels", c.EndpointID(), levelString(target), len(c.config.SupportedLevels))
		}
		return
	}

	v := *target
	c.mu.Lock()
	old := c.level
	c.level = v
	c.mu.Unlock()

	if old != v {
		c.AttributeChanged(AttrSelectedTemperatureLevel, old, v)
	}
}

// Setpoint returns the numeric setpoint in hundredths of a degree.
func (c *Cluster) Setpoint() int16 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.setpoint
}

// SelectedLevel returns the selected level index.
func (c *Cluster) SelectedLevel() uint8 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.level
}

func levelString(l *uint8) string {
	if l == nil {
		return "<absent>"
	}
	return fmt.Sprint(*l)
}
