// Package modebase implements the behaviour shared by every Mode Base
// derived cluster (oven, dishwasher, laundry washer, refrigerator, RVC run
// and clean, microwave, water heater): a fixed list of supported modes and
// a current mode that only ever holds one of their ids.
package modebase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/backkem/matter-appliances/pkg/datamodel"
	"github.com/pion/logging"
)

// Attribute IDs.
const (
	AttrSupportedModes datamodel.AttributeID = 0x0000
	AttrCurrentMode    datamodel.AttributeID = 0x0001
	AttrStartUpMode    datamodel.AttributeID = 0x0002
	AttrOnMode         datamodel.AttributeID = 0x0003
)

// Command IDs.
const (
	CmdChangeToMode         datamodel.CommandID = 0x00
	CmdChangeToModeResponse datamodel.CommandID = 0x01
)

// Feature bits.
type Feature uint32

const (
	// FeatureOnOff adds the OnMode attribute.
	FeatureOnOff Feature = 1 << 0 // DEPONOFF
)

// Errors.
var (
	ErrNoSupportedModes = errors.New("modebase: supported modes must not be empty")
	ErrDuplicateMode    = errors.New("modebase: duplicate mode id")
	ErrUnsupportedMode  = errors.New("modebase: mode not in supported modes")
)

const (
	storageKeyCurrentMode = "currentmode"
	storageKeyStartUpMode = "startupmode"
	storageKeyOnMode      = "onmode"
)

// Storage provides persistence for mode cluster state.
type Storage interface {
	Load(key string) ([]byte, error)
	Store(key string, value []byte) error
}

// Config provides dependencies for a mode cluster.
type Config struct {
	// ClusterID and Revision identify the derived cluster.
	ClusterID datamodel.ClusterID
	Revision  uint16

	// EndpointID is the endpoint this cluster belongs to.
	EndpointID datamodel.EndpointID

	// FeatureMap indicates supported features.
	FeatureMap Feature

	// SupportedModes is the fixed list of mode options. Must be non-empty
	// with unique ids.
	SupportedModes []ModeOption

	// InitialMode is the current mode when nothing is persisted.
	InitialMode uint8

	// StartUpMode, when set, overrides the current mode at construction.
	StartUpMode *uint8

	// OnMode is exposed when FeatureOnOff is set.
	OnMode *uint8

	// Storage for persisting state (optional).
	Storage Storage

	// OnModeChanged is called after a successful ChangeToMode (optional).
	OnModeChanged ModeChangedFunc

	// DisableChangeToMode removes the ChangeToMode command. Used by
	// clusters whose mode is only driven by the device.
	DisableChangeToMode bool

	// LoggerFactory for scoped logging; nil disables logging.
	LoggerFactory logging.LoggerFactory
}

// Cluster is a mode selection cluster.
type Cluster struct {
	*datamodel.ClusterBase
	config Config
	log    logging.LeveledLogger

	mu          sync.RWMutex
	currentMode uint8
	startUpMode *uint8
	onMode      *uint8

	attrList []datamodel.AttributeEntry
}

// New creates a mode cluster. It fails if the supported list is empty or
// ambiguous, or if a configured mode is not a member.
func New(cfg Config) (*Cluster, error) {
	if len(cfg.SupportedModes) == 0 {
		return nil, ErrNoSupportedModes
	}
	seen := make(map[uint8]bool, len(cfg.SupportedModes))
	for _, m := range cfg.SupportedModes {
		if seen[m.Mode] {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateMode, m.Mode)
		}
		seen[m.Mode] = true
	}
	for _, m := range []*uint8{&cfg.InitialMode, cfg.StartUpMode, cfg.OnMode} {
		if m != nil && !seen[*m] {
			return nil, fmt.Errorf("%w: %d", ErrUnsupportedMode, *m)
		}
	}

	cfg.SupportedModes = cloneModes(cfg.SupportedModes)

	c := &Cluster{
		ClusterBase: datamodel.NewClusterBase(cfg.ClusterID, cfg.EndpointID, cfg.Revision),
		config:      cfg,
		currentMode: cfg.InitialMode,
		startUpMode: cfg.StartUpMode,
		onMode:      cfg.OnMode,
	}
	c.ClusterBase.SetFeatureMap(uint32(cfg.FeatureMap))

	if cfg.LoggerFactory != nil {
		c.log = cfg.LoggerFactory.NewLogger("modebase")
	}

	if cfg.Storage != nil {
		c.loadPersistedState()
	}
	if c.startUpMode != nil {
		c.currentMode = *c.startUpMode
	}

	c.attrList = c.buildAttributeList()
	return c, nil
}

func (c *Cluster) buildAttributeList() []datamodel.AttributeEntry {
	nv := datamodel.AttrQualityNonVolatile
	attrs := []datamodel.AttributeEntry{
		datamodel.NewReadOnlyAttribute(AttrSupportedModes, datamodel.AttrQualityFixed|datamodel.AttrQualityList, datamodel.PrivilegeView),
		datamodel.NewReadOnlyAttribute(AttrCurrentMode, nv|datamodel.AttrQualityReportable, datamodel.PrivilegeView),
		datamodel.NewReadWriteAttribute(AttrStartUpMode, nv|datamodel.AttrQualityNullable, datamodel.PrivilegeView, datamodel.PrivilegeOperate),
	}
	if c.config.FeatureMap&FeatureOnOff != 0 {
		attrs = append(attrs, datamodel.NewReadWriteAttribute(AttrOnMode, nv|datamodel.AttrQualityNullable, datamodel.PrivilegeView, datamodel.PrivilegeOperate))
	}
	return datamodel.MergeAttributeLists(attrs)
}

// loadPersistedState restores modes from storage, ignoring records that
// no longer name a supported mode.
func (c *Cluster) loadPersistedState() {
	if data, err := c.config.Storage.Load(storageKeyCurrentMode); err == nil && len(data) == 1 {
		if _, ok := c.find(data[0]); ok {
			c.currentMode = data[0]
		}
	}
	c.startUpMode = c.loadNullable(storageKeyStartUpMode, c.startUpMode)
	c.onMode = c.loadNullable(storageKeyOnMode, c.onMode)
}

// loadNullable decodes a nullable mode record: empty means null.
func (c *Cluster) loadNullable(key string, fallback *uint8) *uint8 {
	data, err := c.config.Storage.Load(key)
	if err != nil {
		return fallback
	}
	switch len(data) {
	case 0:
		return nil
	case 1:
		if _, ok := c.find(data[0]); ok {
			v := data[0]
			return &v
		}
	}
	return fallback
}

func (c *Cluster) persist(key string, value *uint8) {
	if c.config.Storage == nil {
		return
	}
	data := []byte{}
	if value != nil {
		data = []byte{*value}
	}
	if err := c.config.Storage.Store(key, data); err != nil && c.log != nil {
		c.log.Warnf("endpoint %d cluster 0x%04X: persist %s: %v", c.EndpointID(), uint32(c.ID()), key, err)
	}
}

// AttributeList implements datamodel.Cluster.
func (c *Cluster) AttributeList() []datamodel.AttributeEntry {
	return c.attrList
}

// AcceptedCommandList implements datamodel.Cluster.
func (c *Cluster) AcceptedCommandList() []datamodel.CommandEntry {
	if c.config.DisableChangeToMode {
		return nil
	}
	return []datamodel.CommandEntry{
		datamodel.NewCommandEntry(CmdChangeToMode, 0, datamodel.PrivilegeOperate),
	}
}

// GeneratedCommandList implements datamodel.Cluster.
func (c *Cluster) GeneratedCommandList() []datamodel.CommandID {
	if c.config.DisableChangeToMode {
		return nil
	}
	return []datamodel.CommandID{CmdChangeToModeResponse}
}

// ReadAttribute implements datamodel.Cluster.
func (c *Cluster) ReadAttribute(ctx context.Context, req datamodel.ReadAttributeRequest) (any, error) {
	if v, ok := c.ReadGlobalAttribute(req.Path.Attribute, c.attrList, c.AcceptedCommandList(), c.GeneratedCommandList()); ok {
		return v, nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	switch req.Path.Attribute {
	case AttrSupportedModes:
		return cloneModes(c.config.SupportedModes), nil
	case AttrCurrentMode:
		return c.currentMode, nil
	case AttrStartUpMode:
		return copyMode(c.startUpMode), nil
	case AttrOnMode:
		if c.config.FeatureMap&FeatureOnOff == 0 {
			return nil, datamodel.ErrUnsupportedAttribute
		}
		return copyMode(c.onMode), nil
	default:
		return nil, datamodel.ErrUnsupportedAttribute
	}
}

// WriteAttribute implements datamodel.Cluster. StartUpMode and OnMode take
// a *uint8 (nil for null) or uint8. CurrentMode accepts internal writes
// only and is treated as a forced transition.
func (c *Cluster) WriteAttribute(ctx context.Context, req datamodel.WriteAttributeRequest, value any) error {
	switch req.Path.Attribute {
	case AttrCurrentMode:
		if !req.IsInternal() {
			return datamodel.ErrUnsupportedWrite
		}
		mode, ok := value.(uint8)
		if !ok {
			return fmt.Errorf("%w: current mode wants uint8, got %T", datamodel.ErrInvalidDataType, value)
		}
		return c.ForceMode(mode)
	case AttrStartUpMode:
		return c.writeNullable(AttrStartUpMode, storageKeyStartUpMode, &c.startUpMode, value)
	case AttrOnMode:
		if c.config.FeatureMap&FeatureOnOff == 0 {
			return datamodel.ErrUnsupportedAttribute
		}
		return c.writeNullable(AttrOnMode, storageKeyOnMode, &c.onMode, value)
	default:
		return datamodel.ErrUnsupportedWrite
	}
}

func (c *Cluster) writeNullable(attr datamodel.AttributeID, key string, field **uint8, value any) error {
	var next *uint8
	switch v := value.(type) {
	case nil:
	case *uint8:
		next = copyMode(v)
	case uint8:
		next = &v
	default:
		return fmt.Errorf("%w: mode wants *uint8, got %T", datamodel.ErrInvalidDataType, value)
	}
	if next != nil {
		if _, ok := c.find(*next); !ok {
			return fmt.Errorf("%w: mode %d", datamodel.ErrConstraintError, *next)
		}
	}

	c.mu.Lock()
	old := *field
	*field = next
	c.mu.Unlock()

	c.persist(key, next)
	c.AttributeChanged(attr, copyMode(old), copyMode(next))
	return nil
}

// InvokeCommand implements datamodel.Cluster.
func (c *Cluster) InvokeCommand(ctx context.Context, req datamodel.InvokeRequest, fields any) (any, error) {
	if req.Path.Command != CmdChangeToMode || c.config.DisableChangeToMode {
		return nil, datamodel.ErrUnsupportedCommand
	}

	switch r := fields.(type) {
	case ChangeToModeRequest:
		return c.ChangeToMode(r.NewMode), nil
	case *ChangeToModeRequest:
		if r == nil {
			return nil, datamodel.ErrInvalidCommand
		}
		return c.ChangeToMode(r.NewMode), nil
	case nil:
		return nil, datamodel.ErrInvalidCommand
	default:
		return nil, fmt.Errorf("%w: ChangeToMode wants ChangeToModeRequest, got %T", datamodel.ErrInvalidDataType, fields)
	}
}

// ChangeToMode switches to newMode if it is a supported mode. Unknown ids
// yield InvalidInMode and leave the current mode untouched.
func (c *Cluster) ChangeToMode(newMode uint8) ChangeToModeResponse {
	opt, ok := c.find(newMode)
	if !ok {
		if c.log != nil {
			c.log.Infof("endpoint %d cluster 0x%04X: rejected mode %d", c.EndpointID(), uint32(c.ID()), newMode)
		}
		return ChangeToModeResponse{
			Status:     StatusInvalidInMode,
			StatusText: fmt.Sprintf("mode %d is not a supported mode", newMode),
		}
	}

	c.setCurrentMode(opt)

	if c.config.OnModeChanged != nil {
		c.config.OnModeChanged(c.EndpointID(), opt)
	}
	return ChangeToModeResponse{Status: StatusSuccess}
}

// ForceMode sets the current mode without a client command and without
// calling OnModeChanged. The id must still be a supported mode.
func (c *Cluster) ForceMode(mode uint8) error {
	opt, ok := c.find(mode)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnsupportedMode, mode)
	}
	c.setCurrentMode(opt)
	return nil
}

func (c *Cluster) setCurrentMode(opt ModeOption) {
	c.mu.Lock()
	old := c.currentMode
	if old == opt.Mode {
		c.mu.Unlock()
		return
	}
	c.currentMode = opt.Mode
	c.mu.Unlock()

	c.persist(storageKeyCurrentMode, &opt.Mode)

	if c.log != nil {
		c.log.Debugf("endpoint %d cluster 0x%04X: mode %d -> %d (%s)", c.EndpointID(), uint32(c.ID()), old, opt.Mode, opt.Label)
	}
	c.AttributeChanged(AttrCurrentMode, old, opt.Mode)
}

// CurrentMode returns the current mode id.
func (c *Cluster) CurrentMode() uint8 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.currentMode
}

// CurrentOption returns the option of the current mode.
func (c *Cluster) CurrentOption() ModeOption {
	opt, _ := c.find(c.CurrentMode())
	return opt
}

// SupportedModes returns a copy of the supported mode list.
func (c *Cluster) SupportedModes() []ModeOption {
	return cloneModes(c.config.SupportedModes)
}

// FindByTag returns the first supported option carrying tag.
func (c *Cluster) FindByTag(tag ModeTag) (ModeOption, bool) {
	for _, m := range c.config.SupportedModes {
		if m.HasTag(tag) {
			return m, true
		}
	}
	return ModeOption{}, false
}

func (c *Cluster) find(mode uint8) (ModeOption, bool) {
	for _, m := range c.config.SupportedModes {
		if m.Mode == mode {
			return m, true
		}
	}
	return ModeOption{}, false
}

func cloneModes(in []ModeOption) []ModeOption {
	out := make([]ModeOption, len(in))
	for i, m := range in {
		out[i] = ModeOption{Label: m.Label, Mode: m.Mode, ModeTags: append([]ModeTag(nil), m.ModeTags...)}
	}
	return out
}

func copyMode(m *uint8) *uint8 {
	if m == nil {
		return nil
	}
	v := *m
	return &v
}
