package basic

import (
	"github.com/backkem/matter-appliances/pkg/datamodel"
)

// StartUpEvent is emitted after the bridged device comes up.
// Priority: CRITICAL
type StartUpEvent struct {
	SoftwareVersion uint32
}

// ShutDownEvent is emitted before orderly shutdown.
// Priority: CRITICAL
type ShutDownEvent struct{}

// LeaveEvent is emitted when the device is removed from the bridge.
// Priority: INFO
type LeaveEvent struct{}

// ReachableChangedEvent is emitted when Reachable changes.
// Priority: INFO
type ReachableChangedEvent struct {
	ReachableNewValue bool
}

// EmitStartUp emits the StartUp event.
func (c *Cluster) EmitStartUp() (datamodel.EventNumber, error) {
	if !c.EventSource.IsBound() {
		return 0, nil // No publisher, silently skip
	}
	event := StartUpEvent{
		SoftwareVersion: c.config.DeviceInfo.SoftwareVersion,
	}
	return c.EventSource.Emit(EventStartUp, datamodel.EventPriorityCritical, event)
}

// EmitShutDown emits the ShutDown event.
func (c *Cluster) EmitShutDown() (datamodel.EventNumber, error) {
	if !c.EventSource.IsBound() {
		return 0, nil
	}
	return c.EventSource.Emit(EventShutDown, datamodel.EventPriorityCritical, ShutDownEvent{})
}

// EmitLeave emits the Leave event.
func (c *Cluster) EmitLeave() (datamodel.EventNumber, error) {
	if !c.EventSource.IsBound() {
		return 0, nil
	}
	return c.EventSource.Emit(EventLeave, datamodel.EventPriorityInfo, LeaveEvent{})
}

// EmitReachableChanged emits the ReachableChanged event. Failures are
// logged.
func (c *Cluster) EmitReachableChanged(newValue bool) {
	if !c.EventSource.IsBound() {
		return
	}
	event := ReachableChangedEvent{ReachableNewValue: newValue}
	if _, err := c.EventSource.Emit(EventReachableChanged, datamodel.EventPriorityInfo, event); err != nil && c.log != nil {
		c.log.Warnf("endpoint %d: emit ReachableChanged: %v", c.EndpointID(), err)
	}
}
