package coupling

import (
	"sync"

	"github.com/backkem/matter-appliances/pkg/clusters/modebase"
	"github.com/backkem/matter-appliances/pkg/clusters/modes"
	"github.com/backkem/matter-appliances/pkg/clusters/opstate"
	"github.com/backkem/matter-appliances/pkg/datamodel"
)

// RunModes is the RVC run mode cluster as seen by the RVC link.
type RunModes interface {
	ModeForcer
	FindByTag(tag modebase.ModeTag) (modebase.ModeOption, bool)
}

// OperationalState is the RVC operational state cluster as seen by the
// RVC link.
type OperationalState interface {
	SetOperationalState(state opstate.StateID) error
}

// RVC links an RVC run mode cluster with its operational state cluster.
//
// Both clusters take a hook at construction, so the link is created
// first, its hooks are passed to the constructors and the clusters are
// attached with Bind.
type RVC struct {
	r *Reactor

	mu  sync.RWMutex
	run RunModes
	op  OperationalState
}

// NewRVC creates an unbound RVC link.
func (r *Reactor) NewRVC() *RVC {
	return &RVC{r: r}
}

// Bind attaches the clusters. Hooks firing before Bind do nothing.
func (l *RVC) Bind(run RunModes, op OperationalState) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.run, l.op = run, op
}

func (l *RVC) bound() (RunModes, OperationalState) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.run, l.op
}

// OnRunModeChanged is the run mode cluster's OnModeChanged hook. A mode
// tagged Cleaning sets the operational state to Running, one tagged Idle
// to Docked; any other mode counts as running.
func (l *RVC) OnRunModeChanged(ep datamodel.EndpointID, mode modebase.ModeOption) {
	_, op := l.bound()
	if op == nil {
		return
	}

	state := opstate.StateRunning
	switch {
	case mode.HasTag(modes.TagRvcCleaning):
		state = opstate.StateRunning
	case mode.HasTag(modes.TagRvcIdle):
		state = opstate.StateDocked
	}
	if err := op.SetOperationalState(state); err != nil {
		l.r.warnf("endpoint %d: run mode %q -> %s: %v", ep, mode.Label, state, err)
	}
}

// OnOpStateCommand is the operational state cluster's OnCommand hook.
// After a successful Pause or GoHome the run mode becomes the Idle
// tagged option; after a successful Resume the Cleaning tagged one.
func (l *RVC) OnOpStateCommand(cmd datamodel.CommandID, resp opstate.OperationalCommandResponse) {
	if !resp.Succeeded() {
		return
	}
	run, _ := l.bound()
	if run == nil {
		return
	}

	var tag modebase.ModeTag
	switch cmd {
	case opstate.CmdPause, opstate.CmdGoHome:
		tag = modes.TagRvcIdle
	case opstate.CmdResume:
		tag = modes.TagRvcCleaning
	default:
		return
	}

	opt, ok := run.FindByTag(tag)
	if !ok {
		l.r.warnf("rvc: no run mode tagged 0x%04X", uint16(tag))
		return
	}
	if err := run.ForceMode(opt.Mode); err != nil {
		l.r.warnf("rvc: force run mode %d: %v", opt.Mode, err)
	}
}
