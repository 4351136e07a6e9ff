// Package microwave implements the Microwave Oven Control cluster (0x005F).
//
// SetCookingParameters decides each of its fields independently: a valid
// value is adopted, an absent or out of range one falls back to its
// default. AddMoreTime extends the cook time.
package microwave

import (
	"context"
	"fmt"
	"sync"

	"github.com/backkem/matter-appliances/pkg/clusters/modebase"
	"github.com/backkem/matter-appliances/pkg/clusters/modes"
	"github.com/backkem/matter-appliances/pkg/clusters/opstate"
	"github.com/backkem/matter-appliances/pkg/datamodel"
	"github.com/pion/logging"
)

// Cluster constants.
const (
	ClusterID       datamodel.ClusterID = 0x005F
	ClusterRevision uint16              = 1
)

// Attribute IDs.
const (
	AttrCookTime          datamodel.AttributeID = 0x0000
	AttrMaxCookTime       datamodel.AttributeID = 0x0001
	AttrPowerSetting      datamodel.AttributeID = 0x0002
	AttrMinPower          datamodel.AttributeID = 0x0003
	AttrMaxPower          datamodel.AttributeID = 0x0004
	AttrPowerStep         datamodel.AttributeID = 0x0005
	AttrSupportedWatts    datamodel.AttributeID = 0x0006
	AttrSelectedWattIndex datamodel.AttributeID = 0x0007
	AttrWattRating        datamodel.AttributeID = 0x0008
)

// Command IDs.
const (
	CmdSetCookingParameters datamodel.CommandID = 0x00
	CmdAddMoreTime          datamodel.CommandID = 0x01
)

// Feature bits.
type Feature uint32

const (
	FeaturePowerAsNumber     Feature = 1 << 0 // PWRNUM
	FeaturePowerInWatts      Feature = 1 << 1 // WATTS
	FeaturePowerNumberLimits Feature = 1 << 2 // PWRLMTS
)

// Defaults.
const (
	DefaultCookTime    uint32 = 30
	DefaultMaxCookTime uint32 = 86400
	DefaultMinPower    uint8  = 10
	DefaultMaxPower    uint8  = 100
	DefaultPowerStep   uint8  = 10

	// MaxSupportedWatts is the longest SupportedWatts list a uint8
	// SelectedWattIndex can address.
	MaxSupportedWatts = 256
)

// ModeSelector is the co-located Microwave Oven Mode cluster.
type ModeSelector interface {
	SupportedModes() []modebase.ModeOption
	CurrentMode() uint8
	ForceMode(mode uint8) error
}

// Operation is the co-located Operational State cluster.
type Operation interface {
	State() opstate.StateID
	Start() opstate.OperationalCommandResponse
}

// Config provides dependencies for the Microwave Oven Control cluster.
type Config struct {
	// EndpointID is the endpoint this cluster belongs to.
	EndpointID datamodel.EndpointID

	// FeatureMap selects power as number or power in watts.
	FeatureMap Feature

	// MaxCookTime in seconds; defaults to DefaultMaxCookTime.
	MaxCookTime uint32

	// Power limits for FeaturePowerAsNumber. Zero values take defaults.
	MinPower  uint8
	MaxPower  uint8
	PowerStep uint8

	// SupportedWatts for FeaturePowerInWatts.
	SupportedWatts []uint16

	// WattRating is the nominal power in watts (optional).
	WattRating uint16

	// Modes and Operation are the sibling clusters (optional).
	Modes     ModeSelector
	Operation Operation

	// LoggerFactory for scoped logging; nil disables logging.
	LoggerFactory logging.LoggerFactory
}

// Cluster implements the Microwave Oven Control cluster.
type Cluster struct {
	*datamodel.ClusterBase
	config Config
	log    logging.LeveledLogger

	mu                sync.RWMutex
	cookTime          uint32
	powerSetting      uint8
	selectedWattIndex uint8

	attrList []datamodel.AttributeEntry
}

// New creates a Microwave Oven Control cluster.
func New(cfg Config) (*Cluster, error) {
	if cfg.FeatureMap&FeaturePowerAsNumber != 0 && cfg.FeatureMap&FeaturePowerInWatts != 0 {
		return nil, fmt.Errorf("%w: power as number and power in watts are exclusive", datamodel.ErrConstraintError)
	}
	if cfg.FeatureMap&FeaturePowerInWatts != 0 && len(cfg.SupportedWatts) == 0 {
		return nil, fmt.Errorf("%w: power in watts needs supported watts", datamodel.ErrConstraintError)
	}
	if n := len(cfg.SupportedWatts); n > MaxSupportedWatts {
		return nil, fmt.Errorf("%w: %d supported watts, at most %d", datamodel.ErrConstraintError, n, MaxSupportedWatts)
	}
	if cfg.MaxCookTime == 0 {
		cfg.MaxCookTime = DefaultMaxCookTime
	}
	if cfg.MinPower == 0 {
		cfg.MinPower = DefaultMinPower
	}
	if cfg.MaxPower == 0 {
		cfg.MaxPower = DefaultMaxPower
	}
	if cfg.PowerStep == 0 {
		cfg.PowerStep = DefaultPowerStep
	}
	if cfg.MinPower > cfg.MaxPower {
		return nil, fmt.Errorf("%w: min power %d above max power %d", datamodel.ErrConstraintError, cfg.MinPower, cfg.MaxPower)
	}

	c := &Cluster{
		ClusterBase:  datamodel.NewClusterBase(ClusterID, cfg.EndpointID, ClusterRevision),
		config:       cfg,
		cookTime:     DefaultCookTime,
		powerSetting: cfg.MaxPower,
	}
	if n := len(cfg.SupportedWatts); n > 0 {
		c.selectedWattIndex = uint8(n - 1)
	}
	c.ClusterBase.SetFeatureMap(uint32(cfg.FeatureMap))

	if cfg.LoggerFactory != nil {
		c.log = cfg.LoggerFactory.NewLogger("microwave")
	}

	c.attrList = c.buildAttributeList()
	return c, nil
}

func (c *Cluster) buildAttributeList() []datamodel.AttributeEntry {
	view := datamodel.PrivilegeView
	attrs := []datamodel.AttributeEntry{
		datamodel.NewReadOnlyAttribute(AttrCookTime, 0, view),
		datamodel.NewReadOnlyAttribute(AttrMaxCookTime, datamodel.AttrQualityFixed, view),
	}
	if c.config.FeatureMap&FeaturePowerAsNumber != 0 {
		attrs = append(attrs, datamodel.NewReadOnlyAttribute(AttrPowerSetting, 0, view))
		if c.config.FeatureMap&FeaturePowerNumberLimits != 0 {
			attrs = append(attrs,
				datamodel.NewReadOnlyAttribute(AttrMinPower, datamodel.AttrQualityFixed, view),
				datamodel.NewReadOnlyAttribute(AttrMaxPower, datamodel.AttrQualityFixed, view),
				datamodel.NewReadOnlyAttribute(AttrPowerStep, datamodel.AttrQualityFixed, view),
			)
		}
	}
	if c.config.FeatureMap&FeaturePowerInWatts != 0 {
		attrs = append(attrs,
			datamodel.NewReadOnlyAttribute(AttrSupportedWatts, datamodel.AttrQualityFixed|datamodel.AttrQualityList, view),
			datamodel.NewReadOnlyAttribute(AttrSelectedWattIndex, 0, view),
		)
	}
	if c.config.WattRating != 0 {
		attrs = append(attrs, datamodel.NewReadOnlyAttribute(AttrWattRating, datamodel.AttrQualityFixed, view))
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
		datamodel.NewCommandEntry(CmdSetCookingParameters, 0, datamodel.PrivilegeOperate),
		datamodel.NewCommandEntry(CmdAddMoreTime, 0, datamodel.PrivilegeOperate),
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
	case AttrCookTime:
		return c.cookTime, nil
	case AttrMaxCookTime:
		return c.config.MaxCookTime, nil
	case AttrPowerSetting:
		return c.powerSetting, nil
	case AttrMinPower:
		return c.config.MinPower, nil
	case AttrMaxPower:
		return c.config.MaxPower, nil
	case AttrPowerStep:
		return c.config.PowerStep, nil
	case AttrSupportedWatts:
		return append([]uint16(nil), c.config.SupportedWatts...), nil
	case AttrSelectedWattIndex:
		return c.selectedWattIndex, nil
	case AttrWattRating:
		return c.config.WattRating, nil
	default:
		return nil, datamodel.ErrUnsupportedAttribute
	}
}

// WriteAttribute implements datamodel.Cluster. No attribute is writable.
func (c *Cluster) WriteAttribute(ctx context.Context, req datamodel.WriteAttributeRequest, value any) error {
	return datamodel.ErrUnsupportedWrite
}

// CookTime returns the cook time in seconds.
func (c *Cluster) CookTime() uint32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cookTime
}

// PowerSetting returns the power setting.
func (c *Cluster) PowerSetting() uint8 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.powerSetting
}

// SelectedWattIndex returns the index into SupportedWatts.
func (c *Cluster) SelectedWattIndex() uint8 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.selectedWattIndex
}

// MaxCookTime returns the configured maximum cook time.
func (c *Cluster) MaxCookTime() uint32 {
	return c.config.MaxCookTime
}

func (c *Cluster) setCookTime(v uint32) {
	c.mu.Lock()
	old := c.cookTime
	c.cookTime = v
	c.mu.Unlock()
	if old != v {
		c.AttributeChanged(AttrCookTime, old, v)
	}
}

func (c *Cluster) setPower(v uint8) {
	c.mu.Lock()
	old := c.powerSetting
	c.powerSetting = v
	c.mu.Unlock()
	if old != v {
		c.AttributeChanged(AttrPowerSetting, old, v)
	}
}

func (c *Cluster) setWattIndex(v uint8) {
	c.mu.Lock()
	old := c.selectedWattIndex
	c.selectedWattIndex = v
	c.mu.Unlock()
	if old != v {
		c.AttributeChanged(AttrSelectedWattIndex, old, v)
	}
}

// defaultCookMode is the Normal tagged mode, or the first supported mode.
func defaultCookMode(supported []modebase.ModeOption) uint8 {
	for _, m := range supported {
		if m.HasTag(modes.TagMicrowaveNormal) {
			return m.Mode
		}
	}
	if len(supported) > 0 {
		return supported[0].Mode
	}
	return 0
}
