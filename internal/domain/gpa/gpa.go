// Package gpa converts percentage scores to the fixed 4.0 GPA scale.
package gpa

import (
	"math"

	"github.com/volatiletech/null/v8"
)

// MaxGPA is the top of the scale; series values are clamped to [0, MaxGPA].
const MaxGPA = 4.0

// Band is one step of the conversion table. MinPercent is inclusive.
type Band struct {
	MinPercent float64
	GPA        float64
}

// bands is ordered highest threshold first; the first match wins.
var bands = []Band{
	{MinPercent: 95.5, GPA: 4.00},
	{MinPercent: 89.5, GPA: 3.50},
	{MinPercent: 83.5, GPA: 3.00},
	{MinPercent: 77.5, GPA: 2.50},
	{MinPercent: 71.5, GPA: 2.00},
	{MinPercent: 65.5, GPA: 1.50},
	{MinPercent: 59.5, GPA: 1.00},
}

// Bands returns a copy of the conversion table, highest band first.
func Bands() []Band {
	out := make([]Band, len(bands))
	copy(out, bands)
	return out
}

// FromPercentage maps a percentage to its GPA band. NaN yields 0.
func FromPercentage(percent float64) float64 {
	if math.IsNaN(percent) {
		return 0
	}
	for _, b := range bands {
		if percent >= b.MinPercent {
			return b.GPA
		}
	}
	return 0
}

// FromNullable is FromPercentage for optional inputs; null yields 0.
func FromNullable(percent null.Float64) float64 {
	if !percent.Valid {
		return 0
	}
	return FromPercentage(percent.Float64)
}

// Normalize returns v unchanged when it already fits the GPA scale and
// converts it as a percentage otherwise.
func Normalize(v float64) float64 {
	if v > MaxGPA {
		return FromPercentage(v)
	}
	return v
}

// Clamp bounds v to [0, MaxGPA]. NaN yields 0.
func Clamp(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > MaxGPA:
		return MaxGPA
	default:
		return v
	}
}
