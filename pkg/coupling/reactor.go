// Package coupling wires side effects between clusters of one appliance:
// dead front mode on power off, cascading power off to sub-units, and the
// RVC run mode / operational state link.
//
// Rules run synchronously inside the dispatch that triggered them, so they
// mutate clusters directly and never go back through the node's Invoke or
// SetAttribute. Failures are logged and never reach the original caller.
// Notifications replayed at startup (ChangeContext.Offline) are ignored.
package coupling

import (
	"context"
	"fmt"
	"sync"

	"github.com/backkem/matter-appliances/pkg/clusters/modes"
	"github.com/backkem/matter-appliances/pkg/clusters/onoff"
	"github.com/backkem/matter-appliances/pkg/datamodel"
	"github.com/pion/logging"
)

// Subscriber is the part of the host platform the reactor needs.
type Subscriber interface {
	GetCluster(endpoint datamodel.EndpointID, cluster datamodel.ClusterID) datamodel.Cluster
	SubscribeAttribute(path datamodel.ConcreteAttributePath, cb datamodel.AttributeCallback) (cancel func())
}

// ModeForcer sets a mode without a client command.
type ModeForcer interface {
	ForceMode(mode uint8) error
}

// Config configures a Reactor.
type Config struct {
	// Platform provides subscriptions and cluster lookup.
	Platform Subscriber

	// LoggerFactory for scoped logging; nil disables logging.
	LoggerFactory logging.LoggerFactory
}

// Reactor owns the coupling subscriptions of a fleet.
type Reactor struct {
	platform Subscriber
	log      logging.LeveledLogger

	mu      sync.Mutex
	cancels []func()
}

// New creates a Reactor.
func New(cfg Config) *Reactor {
	r := &Reactor{platform: cfg.Platform}
	if cfg.LoggerFactory != nil {
		r.log = cfg.LoggerFactory.NewLogger("coupling")
	}
	return r
}

func onOffPath(ep datamodel.EndpointID) datamodel.ConcreteAttributePath {
	return datamodel.ConcreteAttributePath{Endpoint: ep, Cluster: onoff.ClusterID, Attribute: onoff.AttrOnOff}
}

// onPowerOff subscribes fn to true -> false transitions of an endpoint's
// OnOff attribute.
func (r *Reactor) onPowerOff(ep datamodel.EndpointID, fn func()) {
	cancel := r.platform.SubscribeAttribute(onOffPath(ep), func(oldValue, newValue any, ctx datamodel.ChangeContext) {
		if ctx.Offline {
			return
		}
		was, ok1 := oldValue.(bool)
		now, ok2 := newValue.(bool)
		if !ok1 || !ok2 || !was || now {
			return
		}
		fn()
	})

	r.mu.Lock()
	r.cancels = append(r.cancels, cancel)
	r.mu.Unlock()
}

// DeadFront puts target into modes.DeadFrontMode whenever the OnOff
// attribute of ep goes from on to off. Turning the device back on does
// not restore the previous mode.
func (r *Reactor) DeadFront(ep datamodel.EndpointID, target ModeForcer) {
	r.onPowerOff(ep, func() {
		if err := target.ForceMode(modes.DeadFrontMode); err != nil {
			r.warnf("endpoint %d: dead front: %v", ep, err)
			return
		}
		if r.log != nil {
			r.log.Debugf("endpoint %d: dead front mode %d", ep, modes.DeadFrontMode)
		}
	})
}

// CascadeOff turns off the OnOff cluster of every child, in order, when
// parent is turned off. Children that fail are logged and skipped; the
// ones already turned off stay off.
func (r *Reactor) CascadeOff(parent datamodel.EndpointID, children []datamodel.EndpointID) {
	children = append([]datamodel.EndpointID(nil), children...)
	r.onPowerOff(parent, func() {
		for _, child := range children {
			if err := r.turnOff(child); err != nil {
				r.warnf("endpoint %d: cascade off to %d: %v", parent, child, err)
			}
		}
	})
}

func (r *Reactor) turnOff(ep datamodel.EndpointID) error {
	c := r.platform.GetCluster(ep, onoff.ClusterID)
	if c == nil {
		return fmt.Errorf("%w: on/off on endpoint %d", datamodel.ErrClusterNotFound, ep)
	}
	return c.WriteAttribute(context.Background(), datamodel.WriteAttributeRequest{
		Path:           onOffPath(ep),
		OperationFlags: datamodel.OpFlagInternal,
	}, false)
}

// Close cancels every subscription made by the reactor.
func (r *Reactor) Close() {
	r.mu.Lock()
	cancels := r.cancels
	r.cancels = nil
	r.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}

func (r *Reactor) warnf(format string, args ...any) {
	if r.log != nil {
		r.log.Warnf(format, args...)
	}
}
