package sim

import (
	"github.com/backkem/matter-appliances/pkg/clusters/modebase"
	"github.com/backkem/matter-appliances/pkg/clusters/modes"
	"github.com/backkem/matter-appliances/pkg/clusters/opstate"
	"github.com/pion/logging"
)

// RvcOperation is the RVC operational state cluster driven by a CleanRun.
type RvcOperation interface {
	State() opstate.StateID
	SetOperationalState(state opstate.StateID) error
	CompleteOperation(code opstate.ErrorID, totalSeconds, pausedSeconds *uint32)
}

// AreaWalker is the service area cluster driven by a CleanRun.
type AreaWalker interface {
	Advance() (uint32, bool)
	ResetProgress()
}

// RunModes is the RVC run mode cluster driven by a CleanRun.
type RunModes interface {
	FindByTag(tag modebase.ModeTag) (modebase.ModeOption, bool)
	ForceMode(mode uint8) error
}

// CleanRunConfig configures a CleanRun.
type CleanRunConfig struct {
	Operation RvcOperation
	Areas     AreaWalker
	RunModes  RunModes

	// TickSeconds is the simulated time per tick; zero selects
	// DefaultTickSeconds.
	TickSeconds uint32

	// LoggerFactory for scoped logging; nil disables logging.
	LoggerFactory logging.LoggerFactory
}

// CleanRun animates an RVC cleaning run. Each tick while Running cleans
// one area of the route; once the route is done the robot seeks its
// charger, charges and docks, and the run completes. A robot sent home
// early keeps its progress so it can resume.
type CleanRun struct {
	cfg CleanRunConfig
	log logging.LeveledLogger

	finished bool
	elapsed  uint32
	paused   uint32
}

// NewCleanRun creates a CleanRun.
func NewCleanRun(cfg CleanRunConfig) *CleanRun {
	if cfg.TickSeconds == 0 {
		cfg.TickSeconds = DefaultTickSeconds
	}
	r := &CleanRun{cfg: cfg}
	if cfg.LoggerFactory != nil {
		r.log = cfg.LoggerFactory.NewLogger("sim")
	}
	return r
}

// Tick implements Animation.
func (r *CleanRun) Tick() {
	op := r.cfg.Operation
	switch op.State() {
	case opstate.StateRunning:
		r.elapsed += r.cfg.TickSeconds
		area, ok := r.cfg.Areas.Advance()
		if ok {
			if r.log != nil {
				r.log.Debugf("rvc: cleaning area %d", area)
			}
			return
		}
		r.finished = true
		r.idle()
		r.warn(op.SetOperationalState(opstate.StateSeekingCharger))

	case opstate.StatePaused:
		r.paused += r.cfg.TickSeconds

	case opstate.StateSeekingCharger:
		r.warn(op.SetOperationalState(opstate.StateCharging))

	case opstate.StateCharging:
		r.warn(op.SetOperationalState(opstate.StateDocked))
		if r.finished {
			total, paused := r.elapsed, r.paused
			op.CompleteOperation(opstate.ErrorNoError, &total, &paused)
			r.cfg.Areas.ResetProgress()
			r.finished = false
			r.elapsed, r.paused = 0, 0
		}
	}
}

func (r *CleanRun) idle() {
	if r.cfg.RunModes == nil {
		return
	}
	opt, ok := r.cfg.RunModes.FindByTag(modes.TagRvcIdle)
	if !ok {
		return
	}
	r.warn(r.cfg.RunModes.ForceMode(opt.Mode))
}

func (r *CleanRun) warn(err error) {
	if err != nil && r.log != nil {
		r.log.Warnf("rvc: %v", err)
	}
}
