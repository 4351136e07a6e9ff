package console

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/backkem/matter-appliances/pkg/clusters/modebase"
	"github.com/backkem/matter-appliances/pkg/clusters/modes"
	"github.com/backkem/matter-appliances/pkg/clusters/opstate"
	"github.com/backkem/matter-appliances/pkg/datamodel"
	"github.com/backkem/matter-appliances/pkg/device"
	"github.com/backkem/matter-appliances/pkg/fleet"
)

// Endpoint layout of the test fleet.
const (
	epDishwasher datamodel.EndpointID = 2
	epRVC        datamodel.EndpointID = 3
	epMicrowave  datamodel.EndpointID = 4
	epFan        datamodel.EndpointID = 5
	epLight      datamodel.EndpointID = 6
	epOvenTop    datamodel.EndpointID = 8
)

func newConsole(t *testing.T) (*Console, *fleet.Fleet, *bytes.Buffer) {
	t.Helper()
	f, err := fleet.New(fleet.Config{
		Static: true,
		Devices: []fleet.DeviceConfig{
			{Kind: device.KindDishwasher, Name: "Kitchen"},
			{Kind: device.KindRVC},
			{Kind: device.KindMicrowave},
			{Kind: device.KindFan},
			{Kind: device.KindLightSensor},
			{Kind: device.KindOven},
		},
	})
	if err != nil {
		t.Fatalf("fleet.New: %v", err)
	}
	if err := f.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = f.Stop() })

	var out bytes.Buffer
	return New(Config{Fleet: f, Out: &out}), f, &out
}

func TestExec(t *testing.T) {
	tests := []struct {
		line string
		want []string
	}{
		{"list", []string{"dishwasher", `"Kitchen"`, "rvc", "reachable"}},
		{"read 2 0x6 0", []string{"2/0x0006/0x0000 = true"}},
		{"mode 2", []string{"cluster 0x0059", "*   2  Normal"}},
		{"mode 2 3", []string{"mode -> 3"}},
		{"mode 2 42", []string{"InvalidInMode"}},
		{"mode 3 0x55 2", []string{"mode -> 2"}},
		{"op 2 start", []string{"response: NoError", "state Running"}},
		{"op 2 resume", []string{"response: CommandInvalidInState"}},
		{"op 2", []string{"state Running"}},
		{"areas 3 1 2", []string{"SelectAreas: Success", "+   1  Kitchen", "+   2  Living Room", "    3  Bedroom"}},
		{"areas 3 9", []string{"SelectAreas: UnsupportedArea"}},
		{"cook 4 time=90 power=50", []string{"cook time 90s"}},
		{"addtime 4 30", []string{"cook time 120s"}},
		{"temp 8 200", []string{"setpoint -> 200.00°C"}},
		{"temp 8 201", []string{"error:"}},
		{"fan 5 high", []string{"fan High"}},
		{"fan 5 30", []string{"setting 30"}},
		{"lux 6 500", []string{"MeasuredValue =", "illuminance"}},
		{"events 2", []string{"cluster 0x0039"}},
		{"onoff 2", []string{"error: usage"}},
		{"op 99", []string{"error: endpoint not found"}},
		{"fan 2 high", []string{"error: endpoint has no such cluster"}},
		{"frobnicate", []string{"Unknown command: frobnicate"}},
	}

	c, _, out := newConsole(t)
	for _, tc := range tests {
		out.Reset()
		if quit := c.Exec(context.Background(), tc.line); quit {
			t.Fatalf("%q quit", tc.line)
		}
		for _, want := range tc.want {
			if !strings.Contains(out.String(), want) {
				t.Errorf("%q: output missing %q:\n%s", tc.line, want, out.String())
			}
		}
	}
}

func TestDeadFrontFromConsole(t *testing.T) {
	c, f, out := newConsole(t)
	c.Exec(context.Background(), "mode 2 3")
	c.Exec(context.Background(), "onoff 2 off")
	if !strings.Contains(out.String(), "on/off = false") {
		t.Fatalf("output:\n%s", out.String())
	}

	mode := f.Node().GetCluster(epDishwasher, modes.DishwasherModeClusterID).(*modebase.Cluster).CurrentMode()
	if mode != modes.DeadFrontMode {
		t.Errorf("mode = %d, want %d", mode, modes.DeadFrontMode)
	}
}

func TestRVCFromConsole(t *testing.T) {
	c, f, _ := newConsole(t)
	op := f.Node().GetCluster(epRVC, opstate.RvcClusterID).(*opstate.Cluster)

	c.Exec(context.Background(), "mode 3 0x54 2")
	if op.State() != opstate.StateRunning {
		t.Fatalf("state = %s, want Running", op.State())
	}
	c.Exec(context.Background(), "op 3 home")
	if op.State() != opstate.StateSeekingCharger {
		t.Errorf("state = %s, want SeekingCharger", op.State())
	}
}

func TestWatch(t *testing.T) {
	tests := []struct {
		line string
		want []string
		not  []string
	}{
		{"watch", []string{"watch off"}, nil},
		{"watch on", []string{"watch on"}, nil},
		{"mode 2 3", []string{"~ 2/0x0059/0x0001: 2 -> 3"}, nil},
		{"onoff 2 off", []string{"~ 2/0x0006/0x0000: true -> false", "~ 2/0x0059/0x0001: 3 -> 2"}, nil},
		{"watch off", []string{"watch off"}, nil},
		{"onoff 2 on", []string{"on/off = true"}, []string{"~ "}},
		{"watch sideways", []string{"error: usage"}, nil},
	}

	c, _, out := newConsole(t)
	for _, tc := range tests {
		out.Reset()
		c.Exec(context.Background(), tc.line)
		for _, want := range tc.want {
			if !strings.Contains(out.String(), want) {
				t.Errorf("%q: output missing %q:\n%s", tc.line, want, out.String())
			}
		}
		for _, not := range tc.not {
			if strings.Contains(out.String(), not) {
				t.Errorf("%q: output has %q:\n%s", tc.line, not, out.String())
			}
		}
	}
}

func TestRemove(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{"remove 8", "removed device at endpoint 8"},
		{"read 8 0x6 0", "error: endpoint not found"},
		{"remove 7", "error: fleet: device not found"},
		{"remove", "error: usage"},
		{"remove x", "error: invalid endpoint"},
	}

	c, f, out := newConsole(t)
	for _, tc := range tests {
		out.Reset()
		c.Exec(context.Background(), tc.line)
		if !strings.Contains(out.String(), tc.want) {
			t.Errorf("%q: output missing %q:\n%s", tc.line, tc.want, out.String())
		}
	}

	out.Reset()
	c.Exec(context.Background(), "list")
	if strings.Contains(out.String(), "oven") {
		t.Errorf("oven still listed:\n%s", out.String())
	}
	if got := len(f.Devices()); got != 5 {
		t.Errorf("devices = %d, want 5", got)
	}
}

func TestSnapshotAndQuit(t *testing.T) {
	dir := t.TempDir()
	c, _, out := newConsole(t)

	path := filepath.Join(dir, "manual.cbor")
	c.Exec(context.Background(), "snapshot "+path)
	if !strings.Contains(out.String(), "snapshot written") {
		t.Fatalf("output:\n%s", out.String())
	}
	if info, err := os.Stat(path); err != nil || info.Size() == 0 {
		t.Fatalf("snapshot file: %v", err)
	}

	c.cfg.SnapshotPath = filepath.Join(dir, "quit.cbor")
	if !c.Exec(context.Background(), "quit") {
		t.Fatal("quit did not quit")
	}
	if _, err := os.Stat(c.cfg.SnapshotPath); err != nil {
		t.Errorf("quit snapshot: %v", err)
	}
}

func TestFormatValue(t *testing.T) {
	var nilPhase *uint8
	three := uint8(3)
	tests := []struct {
		in   any
		want string
	}{
		{nil, "null"},
		{nilPhase, "null"},
		{&three, "3"},
		{true, "true"},
		{[]string{"a", "b"}, "[a b]"},
	}
	for _, tc := range tests {
		if got := formatValue(tc.in); got != tc.want {
			t.Errorf("formatValue(%#v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
