package main

import (
	"testing"
	"time"

	"github.com/backkem/matter-appliances/pkg/device"
	"github.com/backkem/matter-appliances/pkg/fleet"
)

func TestLoadFileDefaults(t *testing.T) {
	o := Options{set: map[string]bool{}}
	f, err := o.loadFile()
	if err != nil {
		t.Fatalf("loadFile: %v", err)
	}
	if len(f.Devices) != len(device.Kinds()) {
		t.Errorf("devices = %d, want one per kind (%d)", len(f.Devices), len(device.Kinds()))
	}

	o.Devices = []device.Kind{device.KindRVC, device.KindFan}
	f, err = o.loadFile()
	if err != nil {
		t.Fatalf("loadFile: %v", err)
	}
	if len(f.Devices) != 2 || f.Devices[0].Kind != device.KindRVC || f.Devices[1].Kind != device.KindFan {
		t.Errorf("devices = %+v", f.Devices)
	}
}

func TestLoadFileSample(t *testing.T) {
	o := Options{ConfigPath: "fleet.yaml", set: map[string]bool{}}
	f, err := o.loadFile()
	if err != nil {
		t.Fatalf("loadFile: %v", err)
	}
	if len(f.Devices) != 10 {
		t.Errorf("devices = %d, want 10", len(f.Devices))
	}
	cfg := f.Config()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestApplyOverridesOnlySetFlags(t *testing.T) {
	f := &fleet.File{}
	f.Storage.Path = "file.db"
	f.Journal.Path = "file.cbor"
	f.Log.Level = "warn"

	o := Options{
		StoragePath: "flag.db",
		JournalPath: "flag.cbor",
		Interval:    time.Second,
		LogLevel:    "debug",
		set:         map[string]bool{"storage": true, "interval": true},
	}
	o.apply(f)

	if f.Storage.Path != "flag.db" {
		t.Errorf("storage = %q, want flag.db", f.Storage.Path)
	}
	if f.Journal.Path != "file.cbor" {
		t.Errorf("journal = %q, want file.cbor", f.Journal.Path)
	}
	if f.Animation.Interval != time.Second {
		t.Errorf("interval = %v, want 1s", f.Animation.Interval)
	}
	if f.Log.Level != "warn" {
		t.Errorf("log level = %q, want warn", f.Log.Level)
	}
}
