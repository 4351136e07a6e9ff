package fleet

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/backkem/matter-appliances/pkg/coupling"
	"github.com/backkem/matter-appliances/pkg/datamodel"
	"github.com/backkem/matter-appliances/pkg/device"
	"github.com/backkem/matter-appliances/pkg/events"
	"github.com/backkem/matter-appliances/pkg/sim"
	"github.com/backkem/matter-appliances/pkg/storage"
	"github.com/pion/logging"
)

// Fleet is a bridge node hosting simulated appliances. It owns the data
// model, the persistent store, the event journal, the coupling reactor
// and the animation timers.
type Fleet struct {
	config Config
	state  State
	log    logging.LeveledLogger

	node      *datamodel.BasicNode
	store     storage.Store
	journal   *events.Journal
	reactor   *coupling.Reactor
	scheduler *sim.Scheduler

	aggregator *datamodel.BasicEndpoint
	devices    []*device.Device
	byEndpoint map[datamodel.EndpointID]*device.Device
	timers     map[*device.Device][]*sim.Handle

	mu sync.RWMutex
}

// New builds a fleet from the configuration. The fleet is created but not
// started. Call Start() to replay persisted state and run animations.
func New(config Config) (*Fleet, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	config.applyDefaults()

	f := &Fleet{
		config:     config,
		state:      StateUninitialized,
		node:       datamodel.NewNode(),
		byEndpoint: make(map[datamodel.EndpointID]*device.Device),
		timers:     make(map[*device.Device][]*sim.Handle),
	}
	if config.LoggerFactory != nil {
		f.log = config.LoggerFactory.NewLogger("fleet")
	}

	if err := f.open(); err != nil {
		f.release()
		return nil, err
	}
	if err := f.build(); err != nil {
		f.release()
		return nil, err
	}

	f.state = StateInitialized
	if f.log != nil {
		f.log.Infof("fleet initialized: %d devices on %d endpoints", len(f.devices), f.node.EndpointCount())
	}
	return f, nil
}

// open sets up storage, the journal, the reactor and the scheduler.
func (f *Fleet) open() error {
	switch {
	case f.config.Store != nil:
		f.store = f.config.Store
	case f.config.StoragePath != "":
		bolt, err := storage.OpenBolt(f.config.StoragePath)
		if err != nil {
			return err
		}
		f.store = bolt
	default:
		f.store = storage.NewMemoryStore()
	}

	journal, err := events.New(events.Config{
		Path:          f.config.JournalPath,
		Capacity:      f.config.JournalCapacity,
		LoggerFactory: f.config.LoggerFactory,
	})
	if err != nil {
		return err
	}
	f.journal = journal

	f.reactor = coupling.New(coupling.Config{
		Platform:      f.node,
		LoggerFactory: f.config.LoggerFactory,
	})
	f.scheduler = f.newScheduler()
	return nil
}

func (f *Fleet) newScheduler() *sim.Scheduler {
	return sim.NewScheduler(sim.Config{
		Runner:        f.node,
		LoggerFactory: f.config.LoggerFactory,
	})
}

// build registers the fixed endpoints and one subtree per device.
func (f *Fleet) build() error {
	if err := f.node.AddEndpoint(createRootEndpoint(f.node)); err != nil {
		return err
	}
	aggregator := createAggregator(f.node)
	if err := f.node.AddEndpoint(aggregator); err != nil {
		return err
	}
	f.aggregator = aggregator

	env := device.Env{
		Node:          f.node,
		Parent:        aggregator,
		Reactor:       f.reactor,
		Store:         f.store,
		Events:        f.journal,
		TickSeconds:   f.config.TickSeconds,
		LoggerFactory: f.config.LoggerFactory,
	}

	next := int(FirstDeviceEndpointID)
	for _, dc := range f.config.Devices {
		if next > math.MaxUint16 {
			return ErrTooManyEndpoints
		}
		dev, err := device.Build(dc.Kind, device.Identity{
			Name:     dc.Name,
			Serial:   dc.Serial,
			Endpoint: datamodel.EndpointID(next),
		}, env)
		if err != nil {
			return err
		}
		f.devices = append(f.devices, dev)
		for _, ep := range dev.Endpoints() {
			f.byEndpoint[ep] = dev
		}
		next += len(dev.Endpoints())
	}
	return nil
}

// release closes whatever open() acquired.
func (f *Fleet) release() error {
	var errs []error
	if f.reactor != nil {
		f.reactor.Close()
	}
	if f.journal != nil {
		errs = append(errs, f.journal.Close())
	}
	if f.store != nil {
		errs = append(errs, f.store.Close())
	}
	return errors.Join(errs...)
}

// Start replays persisted state to the couplings, marks the devices
// reachable and schedules their animations.
func (f *Fleet) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.state.CanStart() {
		if f.state.IsRunning() {
			return ErrAlreadyStarted
		}
		return ErrNotInitialized
	}

	f.state = StateStarting

	// Couplings see restored values as Offline and leave them alone.
	if err := f.node.Replay(ctx); err != nil {
		f.state = StateInitialized
		return fmt.Errorf("replay: %w", err)
	}

	if !f.config.Static {
		if err := f.schedule(); err != nil {
			// A stopped scheduler refuses new timers.
			f.scheduler.Stop()
			f.scheduler = f.newScheduler()
			clear(f.timers)
			f.state = StateInitialized
			return fmt.Errorf("schedule animations: %w", err)
		}
	}

	f.node.Do(func() {
		for _, dev := range f.devices {
			dev.Basic.SetReachable(true)
			if _, err := dev.Basic.EmitStartUp(); err != nil && f.log != nil {
				f.log.Warnf("endpoint %d: StartUp event: %v", dev.Endpoint, err)
			}
		}
	})

	f.state = StateRunning
	if f.log != nil {
		f.log.Infof("fleet started: %d timers every %s", f.scheduler.Len(), f.config.Interval)
	}
	f.notify()
	return nil
}

// schedule starts one timer per device animation.
func (f *Fleet) schedule() error {
	for _, dev := range f.devices {
		for _, a := range dev.Animations {
			h, err := f.scheduler.Every(f.config.Interval, a.Tick)
			if err != nil {
				return err
			}
			f.timers[dev] = append(f.timers[dev], h)
		}
	}
	return nil
}

// RemoveDevice takes the device owning endpoint ep off the bridge. Its
// timers are cancelled, Leave is emitted when the fleet is running and its
// endpoint subtree leaves the node. Persisted state is kept, so the
// device resumes where it left off when it is configured again.
func (f *Fleet) RemoveDevice(ep datamodel.EndpointID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.state {
	case StateStopping, StateStopped:
		return ErrAlreadyStopped
	}
	dev, ok := f.byEndpoint[ep]
	if !ok {
		return fmt.Errorf("%w: endpoint %d", ErrDeviceNotFound, ep)
	}

	for _, h := range f.timers[dev] {
		h.Cancel()
	}
	delete(f.timers, dev)

	var err error
	f.node.Do(func() {
		if f.state.IsRunning() {
			if _, lerr := dev.Basic.EmitLeave(); lerr != nil && f.log != nil {
				f.log.Warnf("endpoint %d: Leave event: %v", dev.Endpoint, lerr)
			}
		}
		if err = f.aggregator.RemoveChild(dev.Endpoint); err != nil {
			return
		}
		err = f.node.RemoveEndpoint(dev.Endpoint)
	})
	if err != nil {
		return fmt.Errorf("remove endpoint %d: %w", dev.Endpoint, err)
	}

	f.devices = slices.DeleteFunc(f.devices, func(d *device.Device) bool { return d == dev })
	for _, id := range dev.Endpoints() {
		delete(f.byEndpoint, id)
	}
	if f.log != nil {
		f.log.Infof("removed %s %q from endpoints %v", dev.Kind, dev.Name, dev.Endpoints())
	}
	return nil
}

// Stop cancels the animation timers, waits for them, emits ShutDown and
// closes the journal and the store.
func (f *Fleet) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.state.CanStop() {
		if f.state == StateStopped {
			return ErrAlreadyStopped
		}
		return ErrNotStarted
	}

	wasRunning := f.state.IsRunning()
	f.state = StateStopping

	// Timers take the dispatch lock, so they are joined before it is held.
	f.scheduler.Stop()

	if wasRunning {
		f.node.Do(func() {
			for _, dev := range f.devices {
				if _, err := dev.Basic.EmitShutDown(); err != nil && f.log != nil {
					f.log.Warnf("endpoint %d: ShutDown event: %v", dev.Endpoint, err)
				}
				dev.Basic.SetReachable(false)
			}
		})
	}

	err := f.release()
	f.state = StateStopped
	if f.log != nil {
		f.log.Info("fleet stopped")
	}
	f.notify()
	return err
}

func (f *Fleet) notify() {
	if f.config.OnStateChanged != nil {
		f.config.OnStateChanged(f.state)
	}
}

// State returns the lifecycle state.
func (f *Fleet) State() State {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.state
}

// Node returns the data model. Commands and attribute access go through it.
func (f *Fleet) Node() *datamodel.BasicNode {
	return f.node
}

// Journal returns the event journal.
func (f *Fleet) Journal() *events.Journal {
	return f.journal
}

// Store returns the persistent store.
func (f *Fleet) Store() storage.Store {
	return f.store
}

// Devices returns the devices in configuration order.
func (f *Fleet) Devices() []*device.Device {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]*device.Device(nil), f.devices...)
}

// DeviceAt returns the device owning endpoint ep.
func (f *Fleet) DeviceAt(ep datamodel.EndpointID) (*device.Device, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	dev, ok := f.byEndpoint[ep]
	if !ok {
		return nil, fmt.Errorf("%w: endpoint %d", ErrDeviceNotFound, ep)
	}
	return dev, nil
}

// Snapshot returns a CBOR dump of the persisted cluster state.
func (f *Fleet) Snapshot() ([]byte, error) {
	return storage.Snapshot(f.store)
}
