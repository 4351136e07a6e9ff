// Package onoff implements the On/Off Cluster (0x0006) as used by
// appliances: a primary power toggle, optionally with dead front
// behavior or restricted to off-only.
package onoff

import (
	"context"
	"fmt"
	"sync"

	"github.com/backkem/matter-appliances/pkg/datamodel"
	"github.com/pion/logging"
)

// Cluster constants.
const (
	ClusterID       datamodel.ClusterID = 0x0006
	ClusterRevision uint16              = 6
)

// Attribute IDs.
const (
	AttrOnOff datamodel.AttributeID = 0x0000
)

// Command IDs.
const (
	CmdOff    datamodel.CommandID = 0x00
	CmdOn     datamodel.CommandID = 0x01
	CmdToggle datamodel.CommandID = 0x02
)

// Feature bits.
type Feature uint32

const (
	// FeatureLighting indicates support for lighting applications.
	FeatureLighting Feature = 1 << 0 // LT

	// FeatureDeadFrontBehavior indicates that turning the device off puts
	// dependent clusters into a neutral dead front representation.
	FeatureDeadFrontBehavior Feature = 1 << 1 // DF

	// FeatureOffOnly indicates the device can only be turned off, not on.
	FeatureOffOnly Feature = 1 << 2 // OFFONLY
)

const storageKeyOnOff = "onoff"

// Storage provides persistence for On/Off cluster state.
type Storage interface {
	// Load retrieves a value by key.
	Load(key string) ([]byte, error)
	// Store persists a value.
	Store(key string, value []byte) error
}


// Config provides dependencies for the On/Off cluster.
type Config struct {
	// EndpointID is the endpoint this cluster belongs to.
	EndpointID datamodel.EndpointID

	// FeatureMap indicates supported features.
	FeatureMap Feature

	// Storage for persisting state (optional).
	// If nil, state is not persisted.
	Storage Storage

	// InitialOnOff is the initial on/off state if no persisted value exists.
	InitialOnOff bool

	// LoggerFactory for scoped logging; nil disables logging.
	LoggerFactory logging.LoggerFactory
}

// Cluster implements the On/Off cluster (0x0006).
type Cluster struct {
	*datamodel.ClusterBase
	config Config
	log    logging.LeveledLogger

	mu    sync.RWMutex
	onOff bool

	attrList []datamodel.AttributeEntry
}

// New creates a new On/Off cluster.
func New(cfg Config) *Cluster {
	c := &Cluster{
		ClusterBase: datamodel.NewClusterBase(ClusterID, cfg.EndpointID, ClusterRevision),
		config:      cfg,
		onOff:       cfg.InitialOnOff,
	}
	c.ClusterBase.SetFeatureMap(uint32(cfg.FeatureMap))

	if cfg.LoggerFactory != nil {
		c.log = cfg.LoggerFactory.NewLogger("onoff")
	}

	if cfg.Storage != nil {
		c.loadPersistedState()
	}

	c.attrList = datamodel.MergeAttributeLists([]datamodel.AttributeEntry{
		datamodel.NewReadOnlyAttribute(AttrOnOff, datamodel.AttrQualityNonVolatile|datamodel.AttrQualityReportable, datamodel.PrivilegeView),
	})

	return c
}

// loadPersistedState loads state from storage.
func (c *Cluster) loadPersistedState() {
	data, err := c.config.Storage.Load(storageKeyOnOff)
	if err != nil || len(data) != 1 {
		return
	}
	c.onOff = data[0] != 0
}

// saveOnOff persists the on/off state.
func (c *Cluster) saveOnOff(state bool) {
	if c.config.Storage == nil {
		return
	}
	val := byte(0)
	if state {
		val = 1
	}
	if err := c.config.Storage.Store(storageKeyOnOff, []byte{val}); err != nil && c.log != nil {
		c.log.Warnf("endpoint %d: persist onoff: %v", c.EndpointID(), err)
	}
}

// AttributeList implements datamodel.Cluster.
func (c *Cluster) AttributeList() []datamodel.AttributeEntry {
	return c.attrList
}

// AcceptedCommandList implements datamodel.Cluster.
func (c *Cluster) AcceptedCommandList() []datamodel.CommandEntry {
	operatePriv := datamodel.PrivilegeOperate

	if c.config.FeatureMap&FeatureOffOnly != 0 {
		return []datamodel.CommandEntry{
			datamodel.NewCommandEntry(CmdOff, 0, operatePriv),
		}
	}
	return []datamodel.CommandEntry{
		datamodel.NewCommandEntry(CmdOff, 0, operatePriv),
		datamodel.NewCommandEntry(CmdOn, 0, operatePriv),
		datamodel.NewCommandEntry(CmdToggle, 0, operatePriv),
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

	switch req.Path.Attribute {
	case AttrOnOff:
		return c.GetOnOff(), nil
	default:
		return nil, datamodel.ErrUnsupportedAttribute
	}
}

// WriteAttribute implements datamodel.Cluster. OnOff is writable only by
// internal operations.
func (c *Cluster) WriteAttribute(ctx context.Context, req datamodel.WriteAttributeRequest, value any) error {
	if req.Path.Attribute != AttrOnOff || !req.IsInternal() {
		return datamodel.ErrUnsupportedWrite
	}
	state, ok := value.(bool)
	if !ok {
		return fmt.Errorf("%w: onoff wants bool, got %T", datamodel.ErrInvalidDataType, value)
	}
	c.setOnOff(state)
	return nil
}

// InvokeCommand implements datamodel.Cluster.
func (c *Cluster) InvokeCommand(ctx context.Context, req datamodel.InvokeRequest, fields any) (any, error) {
	switch req.Path.Command {
	case CmdOff:
		c.setOnOff(false)
		return nil, nil
	case CmdOn:
		return nil, c.handleOn()
	case CmdToggle:
		return nil, c.handleToggle()
	default:
		return nil, datamodel.ErrUnsupportedCommand
	}
}

// handleOn handles the On command.
func (c *Cluster) handleOn() error {
	if c.config.FeatureMap&FeatureOffOnly != 0 {
		return datamodel.ErrUnsupportedCommand
	}
	c.setOnOff(true)
	return nil
}

// handleToggle handles the Toggle command.
func (c *Cluster) handleToggle() error {
	if c.GetOnOff() {
		c.setOnOff(false)
		return nil
	}
	return c.handleOn()
}

// setOnOff sets the on/off state and triggers callbacks.
func (c *Cluster) setOnOff(newState bool) {
	c.mu.Lock()
	oldState := c.onOff
	if oldState == newState {
		c.mu.Unlock()
		return
	}
	c.onOff = newState
	c.mu.Unlock()

	c.saveOnOff(newState)

	if c.log != nil {
		c.log.Debugf("endpoint %d: onoff %t -> %t", c.EndpointID(), oldState, newState)
	}

	c.AttributeChanged(AttrOnOff, oldState, newState)
}

// GetOnOff returns the current on/off state.
func (c *Cluster) GetOnOff() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.onOff
}

// SetOnOff sets the on/off state directly (for couplings and timers).
func (c *Cluster) SetOnOff(newState bool) {
	c.setOnOff(newState)
}
