// Package codec converts physical quantities to and from the integer
// representations carried in cluster attributes.
package codec

import "math"

// LogScale maps a positive physical quantity onto an unsigned integer
// using round(Factor * log10(x)), clamped to [0, Max].
//
// The transform is lossy: Decode(Encode(x)) recovers x only to within the
// width of one encoding step at x (see Step).
type LogScale struct {
	Factor float64
	Max    uint16
}

// Illuminance is the lux encoding of the Illuminance Measurement cluster.
// 0xFFFF is reserved as the null marker and is never produced.
var Illuminance = LogScale{Factor: 10000, Max: 0xFFFE}

// Encode converts a physical value. Non-finite or non-positive input
// encodes as 0.
func (s LogScale) Encode(physical float64) uint16 {
	if math.IsNaN(physical) || math.IsInf(physical, 0) || physical <= 0 {
		return 0
	}
	v := math.Round(s.Factor * math.Log10(physical))
	if v < 0 {
		return 0
	}
	if v > float64(s.Max) {
		return s.Max
	}
	return uint16(v)
}

// Decode converts an encoded value back to physical units, rounded to the
// nearest integer unit. Input outside [0, Max] is clamped; non-finite or
// negative input decodes as if it were 0.
func (s LogScale) Decode(encoded float64) float64 {
	if math.IsNaN(encoded) || math.IsInf(encoded, 0) || encoded < 0 {
		encoded = 0
	}
	if encoded > float64(s.Max) {
		encoded = float64(s.Max)
	}
	return math.Round(math.Pow(10, encoded/s.Factor))
}

// Step returns the physical width of one encoding step at x, i.e. the
// distance between x and the value one encoded unit above it. The integer
// rounding in Decode adds at most half a unit on top of this.
func (s LogScale) Step(physical float64) float64 {
	if physical <= 0 || math.IsNaN(physical) || math.IsInf(physical, 0) {
		return 0
	}
	return physical * (math.Pow(10, 1/s.Factor) - 1)
}
