package params

import (
	"testing"

	"github.com/pion/logging"
)

func ptr[T any](v T) *T { return &v }

func TestResolve(t *testing.T) {
	cookTime := Field[uint32]{Name: "CookTime", Range: Range[uint32]{Min: 1, Max: 600}, Default: 30}

	tests := []struct {
		name    string
		value   *uint32
		want    uint32
		outcome Outcome
	}{
		{"absent", nil, 30, DefaultedAbsent},
		{"valid", ptr[uint32](90), 90, Adopted},
		{"lower bound", ptr[uint32](1), 1, Adopted},
		{"upper bound", ptr[uint32](600), 600, Adopted},
		{"zero", ptr[uint32](0), 30, DefaultedInvalid},
		{"too large", ptr[uint32](601), 30, DefaultedInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(nil)
			if got := Resolve(r, cookTime, tt.value); got != tt.want {
				t.Errorf("Resolve() = %d, want %d", got, tt.want)
			}
			if o, ok := r.Outcome("CookTime"); !ok || o != tt.outcome {
				t.Errorf("Outcome = %v, want %v", o, tt.outcome)
			}
		})
	}
}

func TestResolve_ValidFunc(t *testing.T) {
	modes := map[uint8]bool{1: true, 2: true, 5: true}
	mode := Field[uint8]{
		Name:    "CookMode",
		Range:   Range[uint8]{Min: 0, Max: 255},
		Default: 1,
		Valid:   func(v uint8) bool { return modes[v] },
	}

	r := NewResolver(nil)
	if got := Resolve(r, mode, ptr[uint8](5)); got != 5 {
		t.Errorf("member = %d, want 5", got)
	}
	if got := Resolve(r, mode, ptr[uint8](3)); got != 1 {
		t.Errorf("non-member = %d, want default 1", got)
	}
}

func TestResolver_FieldsIndependent(t *testing.T) {
	r := NewResolver(logging.NewDefaultLoggerFactory().NewLogger("params"))

	power := Resolve(r, Field[uint8]{Name: "PowerSetting", Range: Range[uint8]{Min: 10, Max: 100}, Default: 100}, ptr[uint8](50))
	cook := Resolve(r, Field[uint32]{Name: "CookTime", Range: Range[uint32]{Min: 1, Max: 600}, Default: 30}, ptr[uint32](9999))
	watt := Resolve(r, Field[uint8]{Name: "WattSettingIndex", Range: Range[uint8]{Min: 0, Max: 3}, Default: 3}, nil)

	if power != 50 || cook != 30 || watt != 3 {
		t.Errorf("got power=%d cook=%d watt=%d", power, cook, watt)
	}
	rejected := r.Rejected()
	if len(rejected) != 1 || rejected[0] != "CookTime" {
		t.Errorf("Rejected() = %v, want [CookTime]", rejected)
	}
}

func TestOutcome_String(t *testing.T) {
	for o, want := range map[Outcome]string{
		Adopted:          "adopted",
		DefaultedAbsent:  "defaulted (absent)",
		DefaultedInvalid: "defaulted (invalid)",
		Outcome(9):       "unknown",
	} {
		if got := o.String(); got != want {
			t.Errorf("String() = %q, want %q", got, want)
		}
	}
}
