package device

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is a simulated appliance type.
type Kind uint8

// Supported kinds.
const (
	KindOven Kind = iota + 1
	KindCooktop
	KindDishwasher
	KindLaundryWasher
	KindRefrigerator
	KindWaterHeater
	KindRVC
	KindMicrowave
	KindLightSensor
	KindFan
)

// ErrUnknownKind is returned for a kind outside the supported set.
var ErrUnknownKind = errors.New("device: unknown kind")

var kindNames = []struct {
	kind Kind
	name string
}{
	{KindOven, "oven"},
	{KindCooktop, "cooktop"},
	{KindDishwasher, "dishwasher"},
	{KindLaundryWasher, "laundry-washer"},
	{KindRefrigerator, "refrigerator"},
	{KindWaterHeater, "water-heater"},
	{KindRVC, "rvc"},
	{KindMicrowave, "microwave"},
	{KindLightSensor, "light-sensor"},
	{KindFan, "fan"},
}

// Kinds returns every supported kind.
func Kinds() []Kind {
	out := make([]Kind, len(kindNames))
	for i, k := range kindNames {
		out[i] = k.kind
	}
	return out
}

// String returns the configuration name of the kind.
func (k Kind) String() string {
	for _, n := range kindNames {
		if n.kind == k {
			return n.name
		}
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// ParseKind parses a configuration name. Case and underscores are
// ignored, so "Laundry_Washer" parses as KindLaundryWasher.
func ParseKind(s string) (Kind, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-")
	for _, n := range kindNames {
		if n.name == norm {
			return n.kind, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if _, ok := profiles[k]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, uint8(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	v, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = v
	return nil
}
