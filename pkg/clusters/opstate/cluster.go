// Package opstate implements the operational state clusters: the generic
// Operational State cluster (0x0060), the Oven Cavity Operational State
// cluster (0x0048) and the RVC Operational State cluster (0x0061).
//
// The three share one state machine; a Definition selects the accepted
// commands and the state table.
package opstate

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/backkem/matter-appliances/pkg/datamodel"
	"github.com/pion/logging"
)

// Errors returned by the internal setters.
var (
	ErrUnknownState      = errors.New("opstate: state not in operational state list")
	ErrMissingErrorLabel = errors.New("opstate: manufacturer specific error requires a label")
	ErrNoPhaseList       = errors.New("opstate: phase list is null or empty")
	ErrPhaseOutOfRange   = errors.New("opstate: phase index out of range")
	ErrTooManyPhases     = errors.New("opstate: too many phases")
	ErrCountdownTooLarge = errors.New("opstate: countdown time too large")
	ErrCountdownDisabled = errors.New("opstate: countdown time not supported")
	ErrInvalidDefinition = errors.New("opstate: invalid definition")
)

// CheckFunc is a precondition hook for Start or Resume. Returning anything
// other than ErrorNoError refuses the command with that error.
type CheckFunc func() ErrorID

// CommandFunc observes every operational command after it was handled.
type CommandFunc func(cmd datamodel.CommandID, resp OperationalCommandResponse)

// Config provides dependencies for an operational state cluster.
type Config struct {
	// EndpointID is the endpoint this cluster belongs to.
	EndpointID datamodel.EndpointID

	// InitialState defaults to Stopped.
	InitialState StateID

	// PhaseList is the initial phase list; nil means null.
	PhaseList []string

	// Countdown exposes the optional CountdownTime attribute.
	Countdown bool

	// StartCheck and ResumeCheck are precondition hooks (optional).
	StartCheck  CheckFunc
	ResumeCheck CheckFunc

	// OnCommand is called after each operational command (optional).
	OnCommand CommandFunc

	// Events publishes OperationalError and OperationCompletion (optional).
	Events datamodel.EventPublisher

	// LoggerFactory for scoped logging; nil disables logging.
	LoggerFactory logging.LoggerFactory
}

// Cluster is an operational state cluster.
type Cluster struct {
	*datamodel.ClusterBase
	*datamodel.EventSource
	def    Definition
	config Config
	log    logging.LeveledLogger

	mu           sync.RWMutex
	state        StateID
	opError      ErrorState
	phaseList    []string
	currentPhase *uint8
	countdown    *uint32

	// prePause is the state Pause (or a forced Paused) left.
	prePause StateID
	// midOperation is set when the device was sent home while an
	// operation was in progress.
	midOperation bool

	attrList []datamodel.AttributeEntry
}

// NewOvenCavity creates an Oven Cavity Operational State cluster.
func NewOvenCavity(cfg Config) (*Cluster, error) {
	return New(OvenCavityDefinition(), cfg)
}

// NewGeneric creates an Operational State cluster.
func NewGeneric(cfg Config) (*Cluster, error) {
	return New(GenericDefinition(), cfg)
}

// NewRVC creates an RVC Operational State cluster.
func NewRVC(cfg Config) (*Cluster, error) {
	return New(RvcDefinition(), cfg)
}

// New creates an operational state cluster for the given definition.
func New(def Definition, cfg Config) (*Cluster, error) {
	if len(def.States) == 0 || !def.HasState(StateStopped) {
		return nil, fmt.Errorf("%w: %s has no Stopped state", ErrInvalidDefinition, def.Name)
	}
	if !def.HasState(cfg.InitialState) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownState, cfg.InitialState)
	}
	if len(cfg.PhaseList) > MaxPhases {
		return nil, ErrTooManyPhases
	}

	c := &Cluster{
		ClusterBase: datamodel.NewClusterBase(def.ClusterID, cfg.EndpointID, def.Revision),
		EventSource: datamodel.NewEventSource(),
		def:         def,
		config:      cfg,
		state:       cfg.InitialState,
		opError:     NoError,
		prePause:    StateRunning,
	}
	if cfg.PhaseList != nil {
		c.phaseList = slices.Clone(cfg.PhaseList)
		if len(c.phaseList) > 0 {
			c.currentPhase = new(uint8)
		}
	}
	if cfg.LoggerFactory != nil {
		c.log = cfg.LoggerFactory.NewLogger("opstate")
	}

	if cfg.Events != nil {
		c.EventSource.Bind(cfg.EndpointID, def.ClusterID, cfg.Events)
	}
	c.EventSource.RegisterEvents(c.EventList())

	c.attrList = c.buildAttributeList()
	return c, nil
}

func (c *Cluster) buildAttributeList() []datamodel.AttributeEntry {
	view := datamodel.PrivilegeView
	attrs := []datamodel.AttributeEntry{
		datamodel.NewReadOnlyAttribute(AttrPhaseList, datamodel.AttrQualityNullable|datamodel.AttrQualityList, view),
		datamodel.NewReadOnlyAttribute(AttrCurrentPhase, datamodel.AttrQualityNullable, view),
	}
	if c.config.Countdown {
		attrs = append(attrs, datamodel.NewReadOnlyAttribute(AttrCountdownTime, datamodel.AttrQualityNullable|datamodel.AttrQualityChangesOmitted, view))
	}
	attrs = append(attrs,
		datamodel.NewReadOnlyAttribute(AttrOperationalStateList, datamodel.AttrQualityList, view),
		datamodel.NewReadOnlyAttribute(AttrOperationalState, datamodel.AttrQualityReportable, view),
		datamodel.NewReadOnlyAttribute(AttrOperationalError, datamodel.AttrQualityReportable, view),
	)
	return datamodel.MergeAttributeLists(attrs)
}

// Definition returns the variant this cluster implements.
func (c *Cluster) Definition() Definition {
	return c.def
}

// AttributeList implements datamodel.Cluster.
func (c *Cluster) AttributeList() []datamodel.AttributeEntry {
	return c.attrList
}

// AcceptedCommandList implements datamodel.Cluster.
func (c *Cluster) AcceptedCommandList() []datamodel.CommandEntry {
	cmds := make([]datamodel.CommandEntry, 0, len(c.def.Commands))
	for _, id := range c.def.Commands {
		cmds = append(cmds, datamodel.NewCommandEntry(id, 0, datamodel.PrivilegeOperate))
	}
	return cmds
}

// GeneratedCommandList implements datamodel.Cluster.
func (c *Cluster) GeneratedCommandList() []datamodel.CommandID {
	return []datamodel.CommandID{CmdOperationalCommandResponse}
}

// EventList implements datamodel.ClusterWithEvents.
func (c *Cluster) EventList() []datamodel.EventEntry {
	return []datamodel.EventEntry{
		datamodel.NewEventEntry(EventOperationalError, datamodel.EventPriorityCritical, datamodel.PrivilegeView),
		datamodel.NewEventEntry(EventOperationCompletion, datamodel.EventPriorityInfo, datamodel.PrivilegeView),
	}
}

// ReadAttribute implements datamodel.Cluster.
func (c *Cluster) ReadAttribute(ctx context.Context, req datamodel.ReadAttributeRequest) (any, error) {
	if v, ok := c.ReadGlobalAttribute(req.Path.Attribute, c.attrList, c.AcceptedCommandList(), c.GeneratedCommandList()); ok {
		return v, nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	switch req.Path.Attribute {
	case AttrPhaseList:
		return slices.Clone(c.phaseList), nil
	case AttrCurrentPhase:
		return copyPtr(c.currentPhase), nil
	case AttrCountdownTime:
		if !c.config.Countdown {
			return nil, datamodel.ErrUnsupportedAttribute
		}
		return copyPtr(c.countdown), nil
	case AttrOperationalStateList:
		return slices.Clone(c.def.States), nil
	case AttrOperationalState:
		return c.state, nil
	case AttrOperationalError:
		return c.opError, nil
	default:
		return nil, datamodel.ErrUnsupportedAttribute
	}
}

// WriteAttribute implements datamodel.Cluster. OperationalState accepts
// internal writes only.
func (c *Cluster) WriteAttribute(ctx context.Context, req datamodel.WriteAttributeRequest, value any) error {
	if req.Path.Attribute != AttrOperationalState || !req.IsInternal() {
		return datamodel.ErrUnsupportedWrite
	}
	state, ok := value.(StateID)
	if !ok {
		return fmt.Errorf("%w: operational state wants StateID, got %T", datamodel.ErrInvalidDataType, value)
	}
	return c.SetOperationalState(state)
}

// State returns the current operational state.
func (c *Cluster) State() StateID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Error returns the current operational error.
func (c *Cluster) Error() ErrorState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.opError
}

// MidOperation reports whether the device was sent home while operating.
func (c *Cluster) MidOperation() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.midOperation
}

// PhaseList returns a copy of the phase list; nil means null.
func (c *Cluster) PhaseList() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.phaseList)
}

// CurrentPhase returns the current phase index, or nil.
func (c *Cluster) CurrentPhase() *uint8 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return copyPtr(c.currentPhase)
}

// CountdownTime returns the countdown in seconds, or nil.
func (c *Cluster) CountdownTime() *uint32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return copyPtr(c.countdown)
}

// SetOperationalState forces a state. Entering Paused remembers the state
// it left so Resume can return to it. Any state other than Error clears
// the operational error.
func (c *Cluster) SetOperationalState(state StateID) error {
	if !c.def.HasState(state) {
		return fmt.Errorf("%w: %d", ErrUnknownState, state)
	}
	c.mu.Lock()
	changes := c.transitionLocked(state, state != StateError)
	c.mu.Unlock()
	c.publish(changes)
	return nil
}

// SetError sets the operational error. A non-nominal error moves the
// device into the Error state and emits OperationalError; NoError only
// clears the error.
func (c *Cluster) SetError(es ErrorState) error {
	if es.ID.IsManufacturerSpecific() && es.Label == "" {
		return ErrMissingErrorLabel
	}

	c.mu.Lock()
	var changes []change
	if c.opError != es {
		changes = append(changes, change{AttrOperationalError, c.opError, es})
		c.opError = es
	}
	if es.ID != ErrorNoError {
		changes = append(changes, c.transitionLocked(StateError, false)...)
	}
	c.mu.Unlock()

	c.publish(changes)

	if es.ID != ErrorNoError {
		if c.log != nil {
			c.log.Warnf("endpoint %d cluster 0x%04X: operational error %s", c.EndpointID(), uint32(c.ID()), es.ID)
		}
		c.emit(EventOperationalError, datamodel.EventPriorityCritical, OperationalErrorEvent{ErrorState: es})
	}
	return nil
}

// SetPhaseList replaces the phase list. A nil or empty list nulls the
// current phase; otherwise an out of range current phase resets to 0.
func (c *Cluster) SetPhaseList(phases []string) error {
	if len(phases) > MaxPhases {
		return ErrTooManyPhases
	}

	c.mu.Lock()
	oldList, oldPhase := c.phaseList, copyPtr(c.currentPhase)
	if phases == nil {
		c.phaseList = nil
	} else {
		c.phaseList = slices.Clone(phases)
	}
	switch {
	case len(c.phaseList) == 0:
		c.currentPhase = nil
	case c.currentPhase == nil || int(*c.currentPhase) >= len(c.phaseList):
		c.currentPhase = new(uint8)
	}
	changes := []change{{AttrPhaseList, oldList, slices.Clone(c.phaseList)}}
	if !equalPtr(oldPhase, c.currentPhase) {
		changes = append(changes, change{AttrCurrentPhase, oldPhase, copyPtr(c.currentPhase)})
	}
	c.mu.Unlock()

	c.publish(changes)
	return nil
}

// SetCurrentPhase sets the current phase index; nil is always allowed.
func (c *Cluster) SetCurrentPhase(phase *uint8) error {
	c.mu.Lock()
	if phase != nil {
		if len(c.phaseList) == 0 {
			c.mu.Unlock()
			return ErrNoPhaseList
		}
		if int(*phase) >= len(c.phaseList) {
			c.mu.Unlock()
			return fmt.Errorf("%w: %d of %d", ErrPhaseOutOfRange, *phase, len(c.phaseList))
		}
	}
	old := c.currentPhase
	if equalPtr(old, phase) {
		c.mu.Unlock()
		return nil
	}
	c.currentPhase = copyPtr(phase)
	c.mu.Unlock()

	c.publish([]change{{AttrCurrentPhase, old, copyPtr(phase)}})
	return nil
}

// SetCountdownTime sets the remaining time in seconds; nil means unknown.
func (c *Cluster) SetCountdownTime(seconds *uint32) error {
	if !c.config.Countdown {
		return ErrCountdownDisabled
	}
	if seconds != nil && *seconds > MaxCountdownTime {
		return fmt.Errorf("%w: %d", ErrCountdownTooLarge, *seconds)
	}

	c.mu.Lock()
	old := c.countdown
	if equalPtr(old, seconds) {
		c.mu.Unlock()
		return nil
	}
	c.countdown = copyPtr(seconds)
	c.mu.Unlock()

	c.publish([]change{{AttrCountdownTime, old, copyPtr(seconds)}})
	return nil
}

// CompleteOperation ends the current operation: it emits
// OperationCompletion, clears the mid-operation flag and zeroes the
// countdown. The operational state is left to the caller.
func (c *Cluster) CompleteOperation(code ErrorID, totalSeconds, pausedSeconds *uint32) {
	c.mu.Lock()
	c.midOperation = false
	c.mu.Unlock()

	if c.config.Countdown {
		zero := uint32(0)
		_ = c.SetCountdownTime(&zero)
	}

	if c.log != nil {
		c.log.Infof("endpoint %d cluster 0x%04X: operation complete (%s)", c.EndpointID(), uint32(c.ID()), code)
	}
	c.emit(EventOperationCompletion, datamodel.EventPriorityInfo, OperationCompletionEvent{
		CompletionErrorCode:  code,
		TotalOperationalTime: copyPtr(totalSeconds),
		PausedTime:           copyPtr(pausedSeconds),
	})
}

type change struct {
	attr               datamodel.AttributeID
	oldValue, newValue any
}

// transitionLocked moves to state, optionally clearing the error, and
// returns the attribute changes to publish. Caller holds c.mu.
func (c *Cluster) transitionLocked(state StateID, clearError bool) []change {
	var changes []change
	if clearError && c.opError != NoError {
		changes = append(changes, change{AttrOperationalError, c.opError, NoError})
		c.opError = NoError
	}
	if c.state != state {
		if state == StatePaused {
			c.prePause = c.state
		}
		changes = append(changes, change{AttrOperationalState, c.state, state})
		c.state = state
	}
	return changes
}

// publish reports changes to the change listener. Called without c.mu.
func (c *Cluster) publish(changes []change) {
	for _, ch := range changes {
		if ch.attr == AttrOperationalState && c.log != nil {
			c.log.Debugf("endpoint %d cluster 0x%04X: state %s -> %s", c.EndpointID(), uint32(c.ID()), ch.oldValue, ch.newValue)
		}
		c.AttributeChanged(ch.attr, ch.oldValue, ch.newValue)
	}
}

func (c *Cluster) emit(id datamodel.EventID, priority datamodel.EventPriority, payload any) {
	if !c.EventSource.IsBound() {
		return
	}
	if _, err := c.EventSource.Emit(id, priority, payload); err != nil && c.log != nil {
		c.log.Warnf("endpoint %d cluster 0x%04X: emit event 0x%02X: %v", c.EndpointID(), uint32(c.ID()), uint32(id), err)
	}
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
