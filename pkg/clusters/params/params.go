// Package params resolves the independently defaulted fields of
// multi-field commands. Each field is decided on its own: a present and
// valid value is adopted, anything else falls back to the field default.
package params

import (
	"cmp"

	"github.com/pion/logging"
)

// Range is an inclusive bound.
type Range[T cmp.Ordered] struct {
	Min T
	Max T
}

// Contains reports whether v lies within the range.
func (r Range[T]) Contains(v T) bool {
	return v >= r.Min && v <= r.Max
}

// Field describes one command field.
type Field[T cmp.Ordered] struct {
	Name    string
	Range   Range[T]
	Default T

	// Valid is an additional membership check (optional).
	Valid func(T) bool
}

// Check reports whether v is acceptable for the field.
func (f Field[T]) Check(v T) bool {
	if !f.Range.Contains(v) {
		return false
	}
	return f.Valid == nil || f.Valid(v)
}

// Outcome records how a field was decided.
type Outcome uint8

const (
	Adopted Outcome = iota
	DefaultedAbsent
	DefaultedInvalid
)

// String returns the name of the outcome.
func (o Outcome) String() string {
	switch o {
	case Adopted:
		return "adopted"
	case DefaultedAbsent:
		return "defaulted (absent)"
	case DefaultedInvalid:
		return "defaulted (invalid)"
	default:
		return "unknown"
	}
}

// Resolver collects the outcome of every field resolved through it and
// logs rejected values.
type Resolver struct {
	log      logging.LeveledLogger
	outcomes map[string]Outcome
	order    []string
}

// NewResolver creates a resolver. log may be nil.
func NewResolver(log logging.LeveledLogger) *Resolver {
	return &Resolver{log: log, outcomes: make(map[string]Outcome)}
}

// Outcome returns how the named field was decided.
func (r *Resolver) Outcome(name string) (Outcome, bool) {
	o, ok := r.outcomes[name]
	return o, ok
}

// Rejected returns the names of fields whose value was present but
// invalid, in resolution order.
func (r *Resolver) Rejected() []string {
	var names []string
	for _, n := range r.order {
		if r.outcomes[n] == DefaultedInvalid {
			names = append(names, n)
		}
	}
	return names
}

func (r *Resolver) record(name string, o Outcome) {
	if _, seen := r.outcomes[name]; !seen {
		r.order = append(r.order, name)
	}
	r.outcomes[name] = o
}

// Resolve decides a single field: v present and valid is adopted; absent
// or invalid yields the default.
func Resolve[T cmp.Ordered](r *Resolver, f Field[T], v *T) T {
	switch {
	case v == nil:
		r.record(f.Name, DefaultedAbsent)
		return f.Default
	case f.Check(*v):
		r.record(f.Name, Adopted)
		return *v
	default:
		r.record(f.Name, DefaultedInvalid)
		if r.log != nil {
			r.log.Warnf("%s %v out of range [%v, %v], using default %v", f.Name, *v, f.Range.Min, f.Range.Max, f.Default)
		}
		return f.Default
	}
}
