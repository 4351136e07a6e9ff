// Package fancontrol implements the Fan Control cluster (0x0202).
//
// FanMode and PercentSetting are kept consistent: writing one updates the
// other. PercentCurrent follows PercentSetting immediately.
package fancontrol

import (
	"context"
	"fmt"
	"sync"

	"github.com/backkem/matter-appliances/pkg/datamodel"
	"github.com/pion/logging"
)

// Cluster constants.
const (
	ClusterID       datamodel.ClusterID = 0x0202
	ClusterRevision uint16              = 4
)

// Attribute IDs.
const (
	AttrFanMode         datamodel.AttributeID = 0x0000
	AttrFanModeSequence datamodel.AttributeID = 0x0001
	AttrPercentSetting  datamodel.AttributeID = 0x0002
	AttrPercentCurrent  datamodel.AttributeID = 0x0003
)

// Command IDs.
const (
	CmdStep datamodel.CommandID = 0x00
)

// Feature bits.
type Feature uint32

const (
	FeatureMultiSpeed Feature = 1 << 0 // SPD
	FeatureAuto       Feature = 1 << 1 // AUT
	FeatureStep       Feature = 1 << 4 // STEP
)

// FanMode is the FanModeEnum.
type FanMode uint8

const (
	FanModeOff    FanMode = 0
	FanModeLow    FanMode = 1
	FanModeMedium FanMode = 2
	FanModeHigh   FanMode = 3
	FanModeOn     FanMode = 4
	FanModeAuto   FanMode = 5
	FanModeSmart  FanMode = 6
)

func (m FanMode) String() string {
	switch m {
	case FanModeOff:
		return "Off"
	case FanModeLow:
		return "Low"
	case FanModeMedium:
		return "Medium"
	case FanModeHigh:
		return "High"
	case FanModeOn:
		return "On"
	case FanModeAuto:
		return "Auto"
	case FanModeSmart:
		return "Smart"
	default:
		return fmt.Sprintf("FanMode(%d)", uint8(m))
	}
}

// FanModeSequence is the FanModeSequenceEnum.
type FanModeSequence uint8

const (
	SequenceOffLowMedHigh     FanModeSequence = 0
	SequenceOffLowHigh        FanModeSequence = 1
	SequenceOffLowMedHighAuto FanModeSequence = 2
	SequenceOffLowHighAuto    FanModeSequence = 3
	SequenceOffHighAuto       FanModeSequence = 4
	SequenceOffHigh           FanModeSequence = 5
)

// modes returns the speed modes of a sequence, Off first.
func (s FanModeSequence) modes() []FanMode {
	switch s {
	case SequenceOffLowMedHigh:
		return []FanMode{FanModeOff, FanModeLow, FanModeMedium, FanModeHigh}
	case SequenceOffLowHigh:
		return []FanMode{FanModeOff, FanModeLow, FanModeHigh}
	case SequenceOffLowMedHighAuto:
		return []FanMode{FanModeOff, FanModeLow, FanModeMedium, FanModeHigh, FanModeAuto}
	case SequenceOffLowHighAuto:
		return []FanMode{FanModeOff, FanModeLow, FanModeHigh, FanModeAuto}
	case SequenceOffHighAuto:
		return []FanMode{FanModeOff, FanModeHigh, FanModeAuto}
	default:
		return []FanMode{FanModeOff, FanModeHigh}
	}
}

// StepDirection is the StepDirectionEnum.
type StepDirection uint8

const (
	StepIncrease StepDirection = 0
	StepDecrease StepDirection = 1
)

// StepRequest represents the Step command.
type StepRequest struct {
	Direction StepDirection
	Wrap      bool
	LowestOff bool
}

// stepPercent is the PercentSetting increment of one Step.
const stepPercent = 10

// Config provides dependencies for a Fan Control cluster.
type Config struct {
	// EndpointID is the endpoint this cluster belongs to.
	EndpointID datamodel.EndpointID

	// FeatureMap indicates supported features.
	FeatureMap Feature

	// Sequence selects the supported fan modes.
	Sequence FanModeSequence

	// LoggerFactory for scoped logging; nil disables logging.
	LoggerFactory logging.LoggerFactory
}

// Cluster implements the Fan Control cluster.
type Cluster struct {
	*datamodel.ClusterBase
	config Config
	log    logging.LeveledLogger

	mu      sync.RWMutex
	mode    FanMode
	percent *uint8
	current uint8

	attrList []datamodel.AttributeEntry
}

// New creates a Fan Control cluster in FanMode Off.
func New(cfg Config) *Cluster {
	zero := uint8(0)
	c := &Cluster{
		ClusterBase: datamodel.NewClusterBase(ClusterID, cfg.EndpointID, ClusterRevision),
		config:      cfg,
		mode:        FanModeOff,
		percent:     &zero,
	}
	c.ClusterBase.SetFeatureMap(uint32(cfg.FeatureMap))

	if cfg.LoggerFactory != nil {
		c.log = cfg.LoggerFactory.NewLogger("fancontrol")
	}

	view, operate := datamodel.PrivilegeView, datamodel.PrivilegeOperate
	c.attrList = datamodel.MergeAttributeLists([]datamodel.AttributeEntry{
		datamodel.NewReadWriteAttribute(AttrFanMode, datamodel.AttrQualityNonVolatile, view, operate),
		datamodel.NewReadOnlyAttribute(AttrFanModeSequence, datamodel.AttrQualityFixed, view),
		datamodel.NewReadWriteAttribute(AttrPercentSetting, datamodel.AttrQualityNullable, view, operate),
		datamodel.NewReadOnlyAttribute(AttrPercentCurrent, 0, view),
	})
	return c
}

// AttributeList implements datamodel.Cluster.
func (c *Cluster) AttributeList() []datamodel.AttributeEntry {
	return c.attrList
}

// AcceptedCommandList implements datamodel.Cluster.
func (c *Cluster) AcceptedCommandList() []datamodel.CommandEntry {
	if c.config.FeatureMap&FeatureStep == 0 {
		return nil
	}
	return []datamodel.CommandEntry{
		datamodel.NewCommandEntry(CmdStep, 0, datamodel.PrivilegeOperate),
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

	c.mu.RLock()
	defer c.mu.RUnlock()

	switch req.Path.Attribute {
	case AttrFanMode:
		return c.mode, nil
	case AttrFanModeSequence:
		return c.config.Sequence, nil
	case AttrPercentSetting:
		if c.percent == nil {
			return (*uint8)(nil), nil
		}
		v := *c.percent
		return &v, nil
	case AttrPercentCurrent:
		return c.current, nil
	default:
		return nil, datamodel.ErrUnsupportedAttribute
	}
}

// WriteAttribute implements datamodel.Cluster.
func (c *Cluster) WriteAttribute(ctx context.Context, req datamodel.WriteAttributeRequest, value any) error {
	switch req.Path.Attribute {
	case AttrFanMode:
		var mode FanMode
		switch v := value.(type) {
		case FanMode:
			mode = v
		case uint8:
			mode = FanMode(v)
		default:
			return fmt.Errorf("%w: FanMode wants FanMode, got %T", datamodel.ErrInvalidDataType, value)
		}
		return c.SetFanMode(mode)
	case AttrPercentSetting:
		switch v := value.(type) {
		case uint8:
			return c.SetPercent(v)
		case *uint8:
			if v == nil {
				// Null is only reported by the server while in Auto.
				return fmt.Errorf("%w: PercentSetting cannot be written null", datamodel.ErrConstraintError)
			}
			return c.SetPercent(*v)
		case nil:
			return fmt.Errorf("%w: PercentSetting cannot be written null", datamodel.ErrConstraintError)
		default:
			return fmt.Errorf("%w: PercentSetting wants uint8, got %T", datamodel.ErrInvalidDataType, value)
		}
	default:
		return datamodel.ErrUnsupportedWrite
	}
}

// InvokeCommand implements datamodel.Cluster.
func (c *Cluster) InvokeCommand(ctx context.Context, req datamodel.InvokeRequest, fields any) (any, error) {
	if req.Path.Command != CmdStep || c.config.FeatureMap&FeatureStep == 0 {
		return nil, datamodel.ErrUnsupportedCommand
	}
	switch r := fields.(type) {
	case StepRequest:
		return nil, c.Step(r)
	case *StepRequest:
		if r == nil {
			return nil, datamodel.ErrInvalidCommand
		}
		return nil, c.Step(*r)
	default:
		return nil, fmt.Errorf("%w: Step wants StepRequest, got %T", datamodel.ErrInvalidDataType, fields)
	}
}

// supports reports whether the configured sequence contains mode.
func (c *Cluster) supports(mode FanMode) bool {
	for _, m := range c.config.Sequence.modes() {
		if m == mode {
			return true
		}
	}
	return false
}

// SetFanMode selects a fan mode and derives PercentSetting from it. On
// maps to High; Smart maps to Auto when the sequence has Auto and to High
// otherwise. Modes outside the sequence fail with ErrConstraintError.
func (c *Cluster) SetFanMode(mode FanMode) error {
	switch mode {
	case FanModeOn:
		mode = FanModeHigh
	case FanModeSmart:
		if c.supports(FanModeAuto) {
			mode = FanModeAuto
		} else {
			mode = FanModeHigh
		}
	}
	if !c.supports(mode) {
		return fmt.Errorf("%w: fan mode %s not in sequence %d", datamodel.ErrConstraintError, mode, c.config.Sequence)
	}

	var percent *uint8
	if mode != FanModeAuto {
		p := percentForMode(mode)
		percent = &p
	}
	c.apply(mode, percent)
	return nil
}

// SetPercent sets PercentSetting and derives the fan mode from it.
func (c *Cluster) SetPercent(p uint8) error {
	if p > 100 {
		return fmt.Errorf("%w: percent %d above 100", datamodel.ErrConstraintError, p)
	}
	c.apply(c.modeForPercent(p), &p)
	return nil
}

// Step changes PercentSetting by one increment. Without Wrap it stops at
// the ends of the range; LowestOff makes 0 the lowest value instead of
// one increment.
func (c *Cluster) Step(req StepRequest) error {
	lowest := uint8(stepPercent)
	if req.LowestOff {
		lowest = 0
	}

	c.mu.RLock()
	cur := uint8(0)
	if c.percent != nil {
		cur = *c.percent
	}
	c.mu.RUnlock()

	var next uint8
	switch req.Direction {
	case StepIncrease:
		switch {
		case cur >= 100 && req.Wrap:
			next = lowest
		case cur >= 100-stepPercent:
			next = 100
		default:
			next = max(cur+stepPercent, lowest)
		}
	case StepDecrease:
		switch {
		case cur <= lowest && req.Wrap:
			next = 100
		case cur <= lowest+stepPercent:
			next = lowest
		default:
			next = cur - stepPercent
		}
	default:
		return fmt.Errorf("%w: step direction %d", datamodel.ErrConstraintError, req.Direction)
	}
	return c.SetPercent(next)
}

// FanMode returns the current fan mode.
func (c *Cluster) FanMode() FanMode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mode
}

// PercentSetting returns the percent setting, nil while in Auto.
func (c *Cluster) PercentSetting() *uint8 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.percent == nil {
		return nil
	}
	v := *c.percent
	return &v
}

// PercentCurrent returns the actual fan speed.
func (c *Cluster) PercentCurrent() uint8 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// SetPercentCurrent reports the actual speed, e.g. while an Auto fan
// ramps.
func (c *Cluster) SetPercentCurrent(p uint8) {
	p = min(p, 100)
	c.mu.Lock()
	old := c.current
	c.current = p
	c.mu.Unlock()
	if old != p {
		c.AttributeChanged(AttrPercentCurrent, old, p)
	}
}

func (c *Cluster) apply(mode FanMode, percent *uint8) {
	c.mu.Lock()
	oldMode, oldPercent, oldCurrent := c.mode, c.percent, c.current
	c.mode = mode
	c.percent = percent
	if percent != nil {
		c.current = *percent
	}
	newCurrent := c.current
	c.mu.Unlock()

	if c.log != nil {
		c.log.Debugf("endpoint %d: fan %s %v", c.EndpointID(), mode, percentString(percent))
	}
	if oldMode != mode {
		c.AttributeChanged(AttrFanMode, oldMode, mode)
	}
	if !equalPercent(oldPercent, percent) {
		c.AttributeChanged(AttrPercentSetting, oldPercent, percent)
	}
	if oldCurrent != newCurrent {
		c.AttributeChanged(AttrPercentCurrent, oldCurrent, newCurrent)
	}
}

func percentForMode(mode FanMode) uint8 {
	switch mode {
	case FanModeLow:
		return 33
	case FanModeMedium:
		return 66
	case FanModeHigh:
		return 100
	default:
		return 0
	}
}

// modeForPercent picks the lowest speed mode of the sequence whose
// percentage covers p.
func (c *Cluster) modeForPercent(p uint8) FanMode {
	if p == 0 {
		return FanModeOff
	}
	for _, m := range c.config.Sequence.modes() {
		if m == FanModeOff || m == FanModeAuto {
			continue
		}
		if p <= percentForMode(m) {
			return m
		}
	}
	return FanModeHigh
}

func equalPercent(a, b *uint8) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func percentString(p *uint8) string {
	if p == nil {
		return "null"
	}
	return fmt.Sprintf("%d%%", *p)
}
