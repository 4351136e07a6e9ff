package fleet

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pion/logging"
	"gopkg.in/yaml.v3"
)

// File is the YAML fleet description.
//
//	log:
//	  level: info
//	storage:
//	  path: fleet.db
//	journal:
//	  path: events.cbor
//	animation:
//	  interval: 2s
//	devices:
//	  - kind: dishwasher
//	    name: Kitchen
//	    serial: DW-0001
type File struct {
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Storage struct {
		Path string `yaml:"path"`
	} `yaml:"storage"`

	Journal struct {
		Path     string `yaml:"path"`
		Capacity int    `yaml:"capacity"`
	} `yaml:"journal"`

	Animation struct {
		Interval    time.Duration `yaml:"interval"`
		TickSeconds uint32        `yaml:"tick_seconds"`
		Disabled    bool          `yaml:"disabled"`
	} `yaml:"animation"`

	Devices []DeviceConfig `yaml:"devices"`
}

// LoadFile reads and parses a YAML fleet file.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fleet file: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse decodes a YAML fleet description. Unknown keys are rejected.
func Parse(data []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if _, err := f.LogLevel(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Config converts the file into a fleet Config.
func (f *File) Config() Config {
	return Config{
		Devices:         append([]DeviceConfig(nil), f.Devices...),
		StoragePath:     f.Storage.Path,
		JournalPath:     f.Journal.Path,
		JournalCapacity: f.Journal.Capacity,
		Interval:        f.Animation.Interval,
		TickSeconds:     f.Animation.TickSeconds,
		Static:          f.Animation.Disabled,
	}
}

// LogLevel returns the configured log level; empty means info.
func (f *File) LogLevel() (logging.LogLevel, error) {
	return ParseLogLevel(f.Log.Level)
}

// ParseLogLevel parses a pion log level name.
func ParseLogLevel(s string) (logging.LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return logging.LogLevelInfo, nil
	case "disabled", "off":
		return logging.LogLevelDisabled, nil
	case "error":
		return logging.LogLevelError, nil
	case "warn", "warning":
		return logging.LogLevelWarn, nil
	case "debug":
		return logging.LogLevelDebug, nil
	case "trace":
		return logging.LogLevelTrace, nil
	default:
		return logging.LogLevelDisabled, fmt.Errorf("%w: log level %q", ErrInvalidConfig, s)
	}
}
