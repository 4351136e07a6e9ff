package fleet

import (
	"fmt"
	"time"

	"github.com/backkem/matter-appliances/pkg/device"
	"github.com/backkem/matter-appliances/pkg/storage"
	"github.com/pion/logging"
)

// DefaultInterval is the wall time between animation ticks.
const DefaultInterval = time.Second

// maxLabel is the longest NodeLabel a bridged device reports.
const maxLabel = 32

// DeviceConfig describes one simulated appliance.
type DeviceConfig struct {
	Kind   device.Kind `yaml:"kind"`
	Name   string      `yaml:"name,omitempty"`
	Serial string      `yaml:"serial,omitempty"`
}

// Config holds all configuration for a Fleet.
type Config struct {
	// Devices - Required
	Devices []DeviceConfig

	// Storage - Optional. Store takes precedence over StoragePath; with
	// neither, state lives in memory. A store passed in is closed by Stop.
	Store       storage.Store
	StoragePath string // bbolt file

	// Events - Optional
	JournalPath     string // CBOR event file; empty keeps events in memory
	JournalCapacity int    // in-memory history (default: events.DefaultCapacity)

	// Animation - Optional
	Interval    time.Duration // wall time per tick (default: 1s)
	TickSeconds uint32        // simulated seconds per tick (default: sim.DefaultTickSeconds)
	Static      bool          // no animations; the devices only react to commands

	// Callbacks - Optional
	OnStateChanged func(state State)

	// LoggerFactory for scoped logging; nil disables logging.
	LoggerFactory logging.LoggerFactory
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if len(c.Devices) == 0 {
		return ErrNoDevices
	}

	if c.Interval < 0 {
		return fmt.Errorf("%w: negative interval %s", ErrInvalidConfig, c.Interval)
	}

	serials := make(map[string]int, len(c.Devices))
	for i, d := range c.Devices {
		if _, err := d.Kind.MarshalText(); err != nil {
			return fmt.Errorf("%w: device %d: %w", ErrInvalidConfig, i, err)
		}
		if d.Serial == "" {
			continue
		}
		if j, dup := serials[d.Serial]; dup {
			return fmt.Errorf("%w: %q (devices %d and %d)", ErrDuplicateSerial, d.Serial, j, i)
		}
		serials[d.Serial] = i
	}

	return nil
}

// applyDefaults fills in default values for unset fields.
func (c *Config) applyDefaults() {
	if c.Interval == 0 {
		c.Interval = DefaultInterval
	}

	devices := make([]DeviceConfig, len(c.Devices))
	copy(devices, c.Devices)
	for i := range devices {
		d := &devices[i]
		// Position based serials stay stable as long as the device list
		// keeps its order.
		if d.Serial == "" {
			d.Serial = fmt.Sprintf("%s-%03d", d.Kind, i+1)
		}
		if len(d.Name) > maxLabel {
			d.Name = d.Name[:maxLabel]
		}
	}
	c.Devices = devices
}
