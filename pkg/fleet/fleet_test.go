package fleet

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/backkem/matter-appliances/pkg/clusters/basic"
	"github.com/backkem/matter-appliances/pkg/clusters/descriptor"
	"github.com/backkem/matter-appliances/pkg/clusters/illuminance"
	"github.com/backkem/matter-appliances/pkg/clusters/modebase"
	"github.com/backkem/matter-appliances/pkg/clusters/modes"
	"github.com/backkem/matter-appliances/pkg/clusters/onoff"
	"github.com/backkem/matter-appliances/pkg/clusters/opstate"
	"github.com/backkem/matter-appliances/pkg/datamodel"
	"github.com/backkem/matter-appliances/pkg/device"
	"github.com/backkem/matter-appliances/pkg/sim"
	"github.com/pion/logging"
	"github.com/pion/transport/v3/test"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{
			name:    "no devices",
			config:  Config{},
			wantErr: ErrNoDevices,
		},
		{
			name:    "unknown kind",
			config:  Config{Devices: []DeviceConfig{{Kind: device.Kind(0)}}},
			wantErr: ErrInvalidConfig,
		},
		{
			name: "duplicate serial",
			config: Config{Devices: []DeviceConfig{
				{Kind: device.KindFan, Serial: "A"},
				{Kind: device.KindOven, Serial: "A"},
			}},
			wantErr: ErrDuplicateSerial,
		},
		{
			name:    "negative interval",
			config:  Config{Devices: []DeviceConfig{{Kind: device.KindFan}}, Interval: -time.Second},
			wantErr: ErrInvalidConfig,
		},
		{
			name: "valid",
			config: Config{Devices: []DeviceConfig{
				{Kind: device.KindFan},
				{Kind: device.KindFan},
			}},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.config.Validate()
			if tc.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("Validate err = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestConfigDefaults(t *testing.T) {
	c := Config{Devices: []DeviceConfig{
		{Kind: device.KindFan},
		{Kind: device.KindRVC, Serial: "R2", Name: "a name that is far longer than thirty-two characters"},
	}}
	c.applyDefaults()

	if c.Interval != DefaultInterval {
		t.Errorf("Interval = %s", c.Interval)
	}
	if c.Devices[0].Serial != "fan-001" {
		t.Errorf("serial = %q, want fan-001", c.Devices[0].Serial)
	}
	if c.Devices[1].Serial != "R2" {
		t.Errorf("explicit serial replaced: %q", c.Devices[1].Serial)
	}
	if len(c.Devices[1].Name) != maxLabel {
		t.Errorf("name not truncated: %q", c.Devices[1].Name)
	}
}

const fleetYAML = `
log:
  level: debug
storage:
  path: /var/lib/sim/fleet.db
journal:
  path: /var/lib/sim/events.cbor
  capacity: 64
animation:
  interval: 250ms
  tick_seconds: 30
devices:
  - kind: dishwasher
    name: Kitchen
    serial: DW-0001
  - kind: laundry_washer
  - kind: RVC
    serial: RVC-7
`

func TestParse(t *testing.T) {
	f, err := Parse([]byte(fleetYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	level, err := f.LogLevel()
	if err != nil || level != logging.LogLevelDebug {
		t.Errorf("LogLevel = %v, %v", level, err)
	}

	c := f.Config()
	if c.StoragePath != "/var/lib/sim/fleet.db" || c.JournalPath != "/var/lib/sim/events.cbor" {
		t.Errorf("paths = %q, %q", c.StoragePath, c.JournalPath)
	}
	if c.JournalCapacity != 64 {
		t.Errorf("JournalCapacity = %d", c.JournalCapacity)
	}
	if c.Interval != 250*time.Millisecond || c.TickSeconds != 30 {
		t.Errorf("animation = %s / %d", c.Interval, c.TickSeconds)
	}

	want := []DeviceConfig{
		{Kind: device.KindDishwasher, Name: "Kitchen", Serial: "DW-0001"},
		{Kind: device.KindLaundryWasher},
		{Kind: device.KindRVC, Serial: "RVC-7"},
	}
	if !slices.Equal(c.Devices, want) {
		t.Errorf("devices = %+v, want %+v", c.Devices, want)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestParseErrors(t *testing.T) {
	tests := map[string]string{
		"unknown key":  "devices: []\nbogus: 1\n",
		"unknown kind": "devices:\n  - kind: toaster\n",
		"log level":    "log:\n  level: loud\n",
		"interval":     "animation:\n  interval: soon\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(doc)); err == nil {
				t.Fatal("Parse succeeded")
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fleet.yaml")
	if err := os.WriteFile(path, []byte(fleetYAML), 0o600); err != nil {
		t.Fatal(err)
	}
	f, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(f.Devices) != 3 {
		t.Errorf("devices = %d", len(f.Devices))
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file err = %v", err)
	}
}

func newFleet(t *testing.T, cfg Config) *Fleet {
	t.Helper()
	f, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() {
		if f.State() != StateStopped {
			_ = f.Stop()
		}
	})
	return f
}

func partsOf(t *testing.T, f *Fleet, ep datamodel.EndpointID) []datamodel.EndpointID {
	t.Helper()
	return f.Node().GetCluster(ep, descriptor.ClusterID).(*descriptor.Cluster).PartsList()
}

func TestLayout(t *testing.T) {
	f := newFleet(t, Config{Static: true, Devices: []DeviceConfig{
		{Kind: device.KindOven},
		{Kind: device.KindDishwasher},
		{Kind: device.KindFan},
	}})

	if got, want := partsOf(t, f, RootEndpointID), []datamodel.EndpointID{1, 2, 3, 4, 5, 6}; !slices.Equal(got, want) {
		t.Errorf("root parts = %v, want %v", got, want)
	}
	if got, want := partsOf(t, f, AggregatorEndpointID), []datamodel.EndpointID{2, 3, 4, 5, 6}; !slices.Equal(got, want) {
		t.Errorf("aggregator parts = %v, want %v", got, want)
	}

	tests := []struct {
		ep   datamodel.EndpointID
		kind device.Kind
	}{
		{2, device.KindOven},
		{4, device.KindOven},
		{5, device.KindDishwasher},
		{6, device.KindFan},
	}
	for _, tc := range tests {
		dev, err := f.DeviceAt(tc.ep)
		if err != nil {
			t.Fatalf("DeviceAt(%d): %v", tc.ep, err)
		}
		if dev.Kind != tc.kind {
			t.Errorf("DeviceAt(%d) = %s, want %s", tc.ep, dev.Kind, tc.kind)
		}
	}
	if _, err := f.DeviceAt(1); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("DeviceAt(1) err = %v", err)
	}
}

func TestLifecycle(t *testing.T) {
	defer test.CheckRoutines(t)()

	var states []State
	f := newFleet(t, Config{
		Devices:        []DeviceConfig{{Kind: device.KindDishwasher}, {Kind: device.KindLightSensor}},
		Interval:       time.Hour,
		OnStateChanged: func(s State) { states = append(states, s) },
	})
	if f.State() != StateInitialized {
		t.Fatalf("state = %s", f.State())
	}

	if err := f.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := f.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start err = %v", err)
	}

	var startUps int
	for _, r := range f.Journal().History() {
		if r.Cluster == basic.ClusterID && r.Event == basic.EventStartUp {
			startUps++
		}
	}
	if startUps != 2 {
		t.Errorf("StartUp events = %d, want 2", startUps)
	}
	for _, dev := range f.Devices() {
		if !dev.Basic.Reachable() {
			t.Errorf("%s not reachable", dev.Name)
		}
	}

	if err := f.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := f.Stop(); !errors.Is(err, ErrAlreadyStopped) {
		t.Errorf("second Stop err = %v", err)
	}
	if err := f.Start(context.Background()); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Start after Stop err = %v", err)
	}

	if want := []State{StateRunning, StateStopped}; !slices.Equal(states, want) {
		t.Errorf("state changes = %v, want %v", states, want)
	}
}

func TestStartRetryAfterScheduleFailure(t *testing.T) {
	defer test.CheckRoutines(t)()

	f := newFleet(t, Config{
		Interval: time.Hour,
		Devices:  []DeviceConfig{{Kind: device.KindLightSensor}},
	})

	f.config.Interval = 0
	if err := f.Start(context.Background()); !errors.Is(err, sim.ErrInvalidInterval) {
		t.Fatalf("Start with zero interval err = %v", err)
	}
	if f.State() != StateInitialized {
		t.Fatalf("state after failed Start = %s", f.State())
	}
	for _, r := range f.Journal().History() {
		if r.Event == basic.EventStartUp {
			t.Error("failed Start emitted StartUp")
		}
	}

	f.config.Interval = time.Hour
	if err := f.Start(context.Background()); err != nil {
		t.Fatalf("retried Start: %v", err)
	}
	if got, want := f.scheduler.Len(), len(f.Devices()[0].Animations); got != want {
		t.Errorf("timers = %d, want %d", got, want)
	}
	if err := f.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestRemoveDevice(t *testing.T) {
	defer test.CheckRoutines(t)()

	f := newFleet(t, Config{
		Interval: time.Hour,
		Devices: []DeviceConfig{
			{Kind: device.KindOven},
			{Kind: device.KindDishwasher},
			{Kind: device.KindFan},
		},
	})
	if err := f.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	oven, err := f.DeviceAt(2)
	if err != nil {
		t.Fatal(err)
	}
	timers := f.scheduler.Len()

	// Any endpoint of the device selects the whole device.
	if err := f.RemoveDevice(3); err != nil {
		t.Fatalf("RemoveDevice(3): %v", err)
	}

	if got, want := partsOf(t, f, RootEndpointID), []datamodel.EndpointID{1, 5, 6}; !slices.Equal(got, want) {
		t.Errorf("root parts = %v, want %v", got, want)
	}
	if got, want := partsOf(t, f, AggregatorEndpointID), []datamodel.EndpointID{5, 6}; !slices.Equal(got, want) {
		t.Errorf("aggregator parts = %v, want %v", got, want)
	}
	for _, ep := range []datamodel.EndpointID{2, 3, 4} {
		if f.Node().HasEndpoint(ep) {
			t.Errorf("endpoint %d still registered", ep)
		}
		if _, err := f.DeviceAt(ep); !errors.Is(err, ErrDeviceNotFound) {
			t.Errorf("DeviceAt(%d) err = %v", ep, err)
		}
	}
	if n := len(f.Devices()); n != 2 {
		t.Errorf("devices = %d, want 2", n)
	}
	if got, want := f.scheduler.Len(), timers-len(oven.Animations); got != want {
		t.Errorf("timers = %d, want %d", got, want)
	}

	var leaves int
	for _, r := range f.Journal().History() {
		if r.Endpoint == 2 && r.Cluster == basic.ClusterID && r.Event == basic.EventLeave {
			leaves++
		}
	}
	if leaves != 1 {
		t.Errorf("Leave events for endpoint 2 = %d, want 1", leaves)
	}

	if err := f.RemoveDevice(2); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("second RemoveDevice err = %v", err)
	}

	// The remaining devices keep their couplings.
	invoke(t, f, 5, onoff.ClusterID, onoff.CmdOff, nil)
	if mode := f.Node().GetCluster(5, modes.DishwasherModeClusterID).(*modebase.Cluster).CurrentMode(); mode != modes.DeadFrontMode {
		t.Errorf("dishwasher mode after off = %d, want dead front", mode)
	}

	if err := f.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := f.RemoveDevice(5); !errors.Is(err, ErrAlreadyStopped) {
		t.Errorf("RemoveDevice after Stop err = %v", err)
	}
}

func invoke(t *testing.T, f *Fleet, ep datamodel.EndpointID, cluster datamodel.ClusterID, cmd datamodel.CommandID, fields any) any {
	t.Helper()
	resp, err := f.Node().Invoke(context.Background(), datamodel.ConcreteCommandPath{Endpoint: ep, Cluster: cluster, Command: cmd}, fields)
	if err != nil {
		t.Fatalf("invoke %d/0x%04X/0x%02X: %v", ep, uint32(cluster), uint32(cmd), err)
	}
	return resp
}

func dishwasherState(f *Fleet) (on bool, mode uint8) {
	on = f.Node().GetCluster(2, onoff.ClusterID).(*onoff.Cluster).GetOnOff()
	mode = f.Node().GetCluster(2, modes.DishwasherModeClusterID).(*modebase.Cluster).CurrentMode()
	return on, mode
}

func TestRestartReplaysOffline(t *testing.T) {
	cfg := Config{
		Static:      true,
		StoragePath: filepath.Join(t.TempDir(), "fleet.db"),
		Devices:     []DeviceConfig{{Kind: device.KindDishwasher, Serial: "DW-1"}},
	}

	f := newFleet(t, cfg)
	if err := f.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	invoke(t, f, 2, onoff.ClusterID, onoff.CmdOff, nil)
	if _, mode := dishwasherState(f); mode != modes.DeadFrontMode {
		t.Fatalf("mode after off = %d, want dead front", mode)
	}
	invoke(t, f, 2, modes.DishwasherModeClusterID, modebase.CmdChangeToMode, modebase.ChangeToModeRequest{NewMode: 3})
	if err := f.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	f = newFleet(t, cfg)
	if err := f.Start(context.Background()); err != nil {
		t.Fatalf("restart: %v", err)
	}
	on, mode := dishwasherState(f)
	if on {
		t.Error("on/off not restored")
	}
	if mode != 3 {
		t.Errorf("mode after restart = %d, want 3 (replay must not force dead front)", mode)
	}

	// The coupling is live again for real changes.
	invoke(t, f, 2, onoff.ClusterID, onoff.CmdOn, nil)
	invoke(t, f, 2, onoff.ClusterID, onoff.CmdOff, nil)
	if _, mode := dishwasherState(f); mode != modes.DeadFrontMode {
		t.Errorf("mode after off = %d, want dead front", mode)
	}
}

func TestAnimationsRun(t *testing.T) {
	defer test.CheckRoutines(t)()
	lim := test.TimeOut(10 * time.Second)
	defer lim.Stop()

	f := newFleet(t, Config{
		Interval: 5 * time.Millisecond,
		Devices:  []DeviceConfig{{Kind: device.KindLightSensor}},
	})
	if err := f.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	sensor := f.Node().GetCluster(2, illuminance.ClusterID).(*illuminance.Cluster)
	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, ok := sensor.MeasuredLux(); ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("light sensor never measured")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := f.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

// Commands and timers run concurrently; every cluster must still hold a
// valid mode and a listed operational state afterwards.
func TestConcurrentCommandsAndTimers(t *testing.T) {
	defer test.CheckRoutines(t)()
	lim := test.TimeOut(20 * time.Second)
	defer lim.Stop()

	f := newFleet(t, Config{
		Interval:    time.Millisecond,
		TickSeconds: 600,
		Devices: []DeviceConfig{
			{Kind: device.KindDishwasher},
			{Kind: device.KindRVC},
			{Kind: device.KindMicrowave},
			{Kind: device.KindCooktop},
		},
	})
	if err := f.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	ctx := context.Background()
	node := f.Node()
	call := func(ep datamodel.EndpointID, cluster datamodel.ClusterID, cmd datamodel.CommandID, fields any) {
		_, _ = node.Invoke(ctx, datamodel.ConcreteCommandPath{Endpoint: ep, Cluster: cluster, Command: cmd}, fields)
	}

	var wg sync.WaitGroup
	workers := []func(i int){
		func(i int) {
			call(2, onoff.ClusterID, onoff.CmdToggle, nil)
			call(2, modes.DishwasherModeClusterID, modebase.CmdChangeToMode, modebase.ChangeToModeRequest{NewMode: uint8(i%4 + 1)})
		},
		func(i int) {
			cmds := []datamodel.CommandID{opstate.CmdStart, opstate.CmdPause, opstate.CmdResume, opstate.CmdStop}
			call(2, opstate.GenericClusterID, cmds[i%len(cmds)], nil)
			call(4, opstate.GenericClusterID, cmds[(i+1)%len(cmds)], nil)
		},
		func(i int) {
			cmds := []datamodel.CommandID{opstate.CmdPause, opstate.CmdResume, opstate.CmdGoHome}
			call(3, modes.RvcRunModeClusterID, modebase.CmdChangeToMode, modebase.ChangeToModeRequest{NewMode: uint8(i%3 + 1)})
			call(3, opstate.RvcClusterID, cmds[i%len(cmds)], nil)
		},
		func(i int) {
			call(5, onoff.ClusterID, onoff.CmdToggle, nil)
			call(6, onoff.ClusterID, onoff.CmdOn, nil)
		},
	}
	for _, work := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 200 {
				work(i)
			}
		}()
	}
	wg.Wait()

	if err := f.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	for _, ep := range node.GetEndpoints() {
		for _, c := range ep.GetClusters() {
			switch c := c.(type) {
			case *modebase.Cluster:
				current := c.CurrentMode()
				if !slices.ContainsFunc(c.SupportedModes(), func(o modebase.ModeOption) bool { return o.Mode == current }) {
					t.Errorf("endpoint %d cluster 0x%04X: mode %d not supported", ep.ID(), uint32(c.ID()), current)
				}
			case *opstate.Cluster:
				if !c.Definition().HasState(c.State()) {
					t.Errorf("endpoint %d: state %v not listed", ep.ID(), c.State())
				}
				if c.PhaseList() == nil && c.CurrentPhase() != nil {
					t.Errorf("endpoint %d: phase set without a phase list", ep.ID())
				}
			}
		}
	}
}
