package sim

import (
	"github.com/backkem/matter-appliances/pkg/clusters/opstate"
	"github.com/pion/logging"
)

// Animation advances simulated device state by one tick. Ticks run under
// the node's dispatch lock, so an animation mutates clusters directly.
type Animation interface {
	Tick()
}

// Operation is the operational state cluster driven by a Cycle.
type Operation interface {
	State() opstate.StateID
	SetOperationalState(state opstate.StateID) error
	PhaseList() []string
	SetCurrentPhase(phase *uint8) error
	SetCountdownTime(seconds *uint32) error
	CompleteOperation(code opstate.ErrorID, totalSeconds, pausedSeconds *uint32)
}

// DefaultTickSeconds is the simulated time that passes per tick.
const DefaultTickSeconds = 60

// CycleConfig configures a Cycle.
type CycleConfig struct {
	Operation Operation

	// Duration returns the length of a run in seconds. It is read every
	// tick, so a run extended while running (AddMoreTime) finishes later.
	Duration func() uint32

	// Countdown publishes the remaining time in CountdownTime.
	Countdown bool

	// TickSeconds is the simulated time per tick; zero selects
	// DefaultTickSeconds.
	TickSeconds uint32

	// LoggerFactory for scoped logging; nil disables logging.
	LoggerFactory logging.LoggerFactory
}

// Cycle runs a timed operation: while the device is Running it walks the
// phase list in proportion to elapsed time, counts down the remaining
// time and, at the end, emits OperationCompletion and stops the device.
// Pausing freezes the run; stopping abandons it.
type Cycle struct {
	cfg CycleConfig
	log logging.LeveledLogger

	active  bool
	elapsed uint32
	paused  uint32
}

// NewCycle creates a Cycle.
func NewCycle(cfg CycleConfig) *Cycle {
	if cfg.TickSeconds == 0 {
		cfg.TickSeconds = DefaultTickSeconds
	}
	c := &Cycle{cfg: cfg}
	if cfg.LoggerFactory != nil {
		c.log = cfg.LoggerFactory.NewLogger("sim")
	}
	return c
}

// Tick implements Animation.
func (c *Cycle) Tick() {
	op := c.cfg.Operation
	switch op.State() {
	case opstate.StateRunning:
		if !c.active {
			c.begin()
			return
		}
		c.elapsed += c.cfg.TickSeconds
		if c.elapsed >= c.duration() {
			c.finish()
			return
		}
		c.publish()

	case opstate.StatePaused:
		if c.active {
			c.paused += c.cfg.TickSeconds
		}

	default:
		if c.active {
			c.active = false
			if c.cfg.Countdown {
				c.warn(op.SetCountdownTime(nil))
			}
		}
	}
}

func (c *Cycle) duration() uint32 {
	if c.cfg.Duration == nil {
		return 0
	}
	return c.cfg.Duration()
}

func (c *Cycle) begin() {
	c.active = true
	c.elapsed, c.paused = 0, 0
	c.publish()
}

func (c *Cycle) publish() {
	op := c.cfg.Operation
	total := c.duration()
	remaining := uint32(0)
	if total > c.elapsed {
		remaining = total - c.elapsed
	}
	if c.cfg.Countdown {
		if remaining > opstate.MaxCountdownTime {
			remaining = opstate.MaxCountdownTime
		}
		c.warn(op.SetCountdownTime(&remaining))
	}
	if phases := len(op.PhaseList()); phases > 0 && total > 0 {
		idx := uint8(uint64(c.elapsed) * uint64(phases) / uint64(total))
		if int(idx) >= phases {
			idx = uint8(phases - 1)
		}
		c.warn(op.SetCurrentPhase(&idx))
	}
}

func (c *Cycle) finish() {
	op := c.cfg.Operation
	total, paused := c.elapsed, c.paused
	c.active = false

	op.CompleteOperation(opstate.ErrorNoError, &total, &paused)
	c.warn(op.SetOperationalState(opstate.StateStopped))
	if len(op.PhaseList()) > 0 {
		first := uint8(0)
		c.warn(op.SetCurrentPhase(&first))
	}
}

func (c *Cycle) warn(err error) {
	if err != nil && c.log != nil {
		c.log.Warnf("cycle: %v", err)
	}
}
