package opstate

import (
	"context"

	"github.com/backkem/matter-appliances/pkg/datamodel"
)

// InvokeCommand implements datamodel.Cluster. Every operational command
// carries no fields and returns an OperationalCommandResponse.
func (c *Cluster) InvokeCommand(ctx context.Context, req datamodel.InvokeRequest, fields any) (any, error) {
	cmd := req.Path.Command
	if !c.def.Supports(cmd) {
		return nil, datamodel.ErrUnsupportedCommand
	}

	switch cmd {
	case CmdPause:
		return c.Pause(), nil
	case CmdStop:
		return c.Stop(), nil
	case CmdStart:
		return c.Start(), nil
	case CmdResume:
		return c.Resume(), nil
	case CmdGoHome:
		return c.GoHome(), nil
	default:
		return nil, datamodel.ErrUnsupportedCommand
	}
}

// Stop moves the device to Stopped. Stopping a stopped device succeeds
// without a change.
func (c *Cluster) Stop() OperationalCommandResponse {
	c.mu.Lock()
	var changes []change
	if c.state != StateStopped {
		changes = c.transitionLocked(StateStopped, true)
		c.midOperation = false
	}
	c.mu.Unlock()

	return c.finish(CmdStop, changes, NoError)
}

// Start moves the device to Running after the StartCheck hook passed.
// Starting a running device succeeds without a change.
func (c *Cluster) Start() OperationalCommandResponse {
	if c.State() == StateRunning {
		return c.finish(CmdStart, nil, NoError)
	}
	if es := c.check(c.config.StartCheck); es.ID != ErrorNoError {
		return c.finish(CmdStart, nil, es)
	}

	c.mu.Lock()
	changes := c.transitionLocked(StateRunning, true)
	c.midOperation = false
	c.mu.Unlock()

	return c.finish(CmdStart, changes, NoError)
}

// Pause is valid only while Running.
func (c *Cluster) Pause() OperationalCommandResponse {
	c.mu.Lock()
	if c.state != StateRunning {
		c.mu.Unlock()
		return c.finish(CmdPause, nil, invalidInState())
	}
	changes := c.transitionLocked(StatePaused, true)
	c.mu.Unlock()

	return c.finish(CmdPause, changes, NoError)
}

// Resume continues an operation. From Paused the device returns to the
// state it paused from when that state is resumable: Running always is,
// Charging and Docked only when the device went home in the middle of an
// operation. From Charging or Docked the device resumes the interrupted
// operation and moves to Running.
func (c *Cluster) Resume() OperationalCommandResponse {
	c.mu.RLock()
	target, ok := resumeTarget(c.state, c.prePause, c.midOperation)
	c.mu.RUnlock()

	if !ok {
		return c.finish(CmdResume, nil, invalidInState())
	}
	if es := c.check(c.config.ResumeCheck); es.ID != ErrorNoError {
		return c.finish(CmdResume, nil, es)
	}

	c.mu.Lock()
	changes := c.transitionLocked(target, true)
	if target == StateRunning {
		c.midOperation = false
	}
	c.mu.Unlock()

	return c.finish(CmdResume, changes, NoError)
}

// GoHome sends the device to its charger. From Charging or Docked it
// succeeds without a change.
func (c *Cluster) GoHome() OperationalCommandResponse {
	c.mu.Lock()
	var changes []change
	if c.state != StateCharging && c.state != StateDocked {
		if c.state == StateRunning || c.state == StatePaused {
			c.midOperation = true
		}
		changes = c.transitionLocked(StateSeekingCharger, true)
	}
	c.mu.Unlock()

	return c.finish(CmdGoHome, changes, NoError)
}

func resumeTarget(state, prePause StateID, midOperation bool) (StateID, bool) {
	switch state {
	case StatePaused:
		return prePause, resumable(prePause, midOperation)
	case StateCharging, StateDocked:
		return StateRunning, midOperation
	default:
		return state, false
	}
}

func resumable(from StateID, midOperation bool) bool {
	switch from {
	case StateRunning:
		return true
	case StateCharging, StateDocked:
		return midOperation
	default:
		return false
	}
}

func invalidInState() ErrorState {
	return ErrorState{ID: ErrorCommandInvalidInState}
}

func (c *Cluster) check(fn CheckFunc) ErrorState {
	if fn == nil {
		return NoError
	}
	return ErrorState{ID: fn()}
}

// finish publishes the changes of a handled command, logs refusals and
// calls the OnCommand hook.
func (c *Cluster) finish(cmd datamodel.CommandID, changes []change, es ErrorState) OperationalCommandResponse {
	c.publish(changes)

	resp := OperationalCommandResponse{CommandResponseState: es}
	if !resp.Succeeded() && c.log != nil {
		c.log.Infof("endpoint %d cluster 0x%04X: command 0x%02X refused in %s: %s",
			c.EndpointID(), uint32(c.ID()), uint32(cmd), c.State(), es.ID)
	}
	if c.config.OnCommand != nil {
		c.config.OnCommand(cmd, resp)
	}
	return resp
}
