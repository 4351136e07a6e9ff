package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/backkem/matter-appliances/pkg/device"
	"github.com/backkem/matter-appliances/pkg/fleet"
)

// Options holds the CLI flags. Flags that are set override the fleet file.
type Options struct {
	// ConfigPath is the YAML fleet file. Empty simulates one of each kind.
	ConfigPath string

	// StoragePath is the bbolt file for persistent state.
	StoragePath string

	// JournalPath is the CBOR event file.
	JournalPath string

	// Interval is the wall time per animation tick.
	Interval time.Duration

	// LogLevel is a pion log level name.
	LogLevel string

	// Devices is a comma separated kind list used without a fleet file.
	Devices []device.Kind

	// Interactive starts the controller console.
	Interactive bool

	// SnapshotPath is written by the console's quit command.
	SnapshotPath string

	set map[string]bool
}

// ParseFlags parses the command line:
//
//	-config      YAML fleet file (default: one device of each kind)
//	-devices     Comma separated device kinds, used without -config
//	-storage     bbolt file for persistent state (default: in-memory)
//	-journal     CBOR event journal file (default: in-memory)
//	-interval    Animation tick interval (default: 1s)
//	-log         Log level: error, warn, info, debug, trace
//	-interactive Start the controller console
//	-snapshot    File written by the console's quit command
func ParseFlags() Options {
	o := Options{set: make(map[string]bool)}

	flag.StringVar(&o.ConfigPath, "config", "", "YAML fleet file")
	flag.Func("devices", "Comma separated device kinds ("+kindList()+")", func(s string) error {
		for _, name := range strings.Split(s, ",") {
			k, err := device.ParseKind(name)
			if err != nil {
				return err
			}
			o.Devices = append(o.Devices, k)
		}
		return nil
	})
	flag.StringVar(&o.StoragePath, "storage", "", "bbolt file for persistent state (empty = in-memory)")
	flag.StringVar(&o.JournalPath, "journal", "", "CBOR event journal file (empty = in-memory)")
	flag.DurationVar(&o.Interval, "interval", fleet.DefaultInterval, "Animation tick interval")
	flag.StringVar(&o.LogLevel, "log", "info", "Log level")
	flag.BoolVar(&o.Interactive, "interactive", false, "Start the controller console")
	flag.StringVar(&o.SnapshotPath, "snapshot", "", "Snapshot file written on quit")

	flag.Parse()
	flag.Visit(func(f *flag.Flag) { o.set[f.Name] = true })
	return o
}

// isSet reports whether a flag was given explicitly.
func (o Options) isSet(name string) bool {
	return o.set[name]
}

func kindList() string {
	names := make([]string, 0, len(device.Kinds()))
	for _, k := range device.Kinds() {
		names = append(names, k.String())
	}
	return strings.Join(names, ", ")
}

// loadFile returns the fleet file named by -config, or a default fleet.
func (o Options) loadFile() (*fleet.File, error) {
	if o.ConfigPath != "" {
		return fleet.LoadFile(o.ConfigPath)
	}

	f := &fleet.File{}
	kinds := o.Devices
	if len(kinds) == 0 {
		kinds = device.Kinds()
	}
	for _, k := range kinds {
		f.Devices = append(f.Devices, fleet.DeviceConfig{Kind: k})
	}
	return f, nil
}

// apply overlays explicitly set flags onto the fleet file.
func (o Options) apply(f *fleet.File) {
	if o.isSet("storage") {
		f.Storage.Path = o.StoragePath
	}
	if o.isSet("journal") {
		f.Journal.Path = o.JournalPath
	}
	if o.isSet("interval") {
		f.Animation.Interval = o.Interval
	}
	if o.isSet("log") {
		f.Log.Level = o.LogLevel
	}
}

// PrintUsage prints usage information to stderr.
func PrintUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [options]\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "\nOptions:\n")
	flag.PrintDefaults()
}
