package models

import (
	"fmt"
	"math"
	"strings"
)

// ParameterCount is the number of policy dimensions searched.
const ParameterCount = 6

// ParameterNames lists the engine constant names in vector order.
var ParameterNames = [ParameterCount]string{"pyear", "ppgf2", "alai2", "hsid", "imti", "dcfsn"}

// ParameterVector is one policy configuration handed to the simulator.
type ParameterVector struct {
	PolicyYear                float64 `json:"pyear" yaml:"pyear"`
	PollutionGeneration       float64 `json:"ppgf2" yaml:"ppgf2"`
	AgriculturalInputLifetime float64 `json:"alai2" yaml:"alai2"`
	HealthServiceDelay        float64 `json:"hsid" yaml:"hsid"`
	MaterialToxicity          float64 `json:"imti" yaml:"imti"`
	DesiredChildren           float64 `json:"dcfsn" yaml:"dcfsn"`
}

// DefaultParameters are the engine's standard-run values for the policy constants.
func DefaultParameters() ParameterVector {
	return ParameterVector{
		PolicyYear:                1975,
		PollutionGeneration:       1,
		AgriculturalInputLifetime: 2,
		HealthServiceDelay:        20,
		MaterialToxicity:          10,
		DesiredChildren:           3.8,
	}
}

// ParameterVectorFromSlice builds a vector from an ordered 6-tuple.
func ParameterVectorFromSlice(x []float64) (ParameterVector, error) {
	if len(x) != ParameterCount {
		return ParameterVector{}, fmt.Errorf("parameter vector needs %d values, got %d", ParameterCount, len(x))
	}
	return ParameterVector{
		PolicyYear:                x[0],
		PollutionGeneration:       x[1],
		AgriculturalInputLifetime: x[2],
		HealthServiceDelay:        x[3],
		MaterialToxicity:          x[4],
		DesiredChildren:           x[5],
	}, nil
}

// Slice returns the ordered 6-tuple.
func (p ParameterVector) Slice() []float64 {
	return []float64{
		p.PolicyYear,
		p.PollutionGeneration,
		p.AgriculturalInputLifetime,
		p.HealthServiceDelay,
		p.MaterialToxicity,
		p.DesiredChildren,
	}
}

// Constants maps engine constant names to values.
func (p ParameterVector) Constants() map[string]float64 {
	out := make(map[string]float64, ParameterCount)
	for i, v := range p.Slice() {
		out[ParameterNames[i]] = v
	}
	return out
}

func (p ParameterVector) String() string {
	parts := make([]string, ParameterCount)
	for i, v := range p.Slice() {
		parts[i] = fmt.Sprintf("%s=%g", ParameterNames[i], v)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// Bounds is an inclusive [Lower, Upper] interval.
type Bounds struct {
	Lower float64 `json:"lower" yaml:"lower"`
	Upper float64 `json:"upper" yaml:"upper"`
}

// Width returns Upper - Lower.
func (b Bounds) Width() float64 {
	return b.Upper - b.Lower
}

// Contains reports whether v lies within the interval.
func (b Bounds) Contains(v float64) bool {
	return v >= b.Lower && v <= b.Upper
}

// ParameterBounds holds one interval per dimension, in vector order.
type ParameterBounds [ParameterCount]Bounds

// DefaultBounds are the valid ranges accepted by the engine driver.
func DefaultBounds() ParameterBounds {
	return ParameterBounds{
		{Lower: 1975, Upper: 2100},
		{Lower: 0.1, Upper: 2},
		{Lower: 0.5, Upper: 10},
		{Lower: 1, Upper: 60},
		{Lower: 1, Upper: 40},
		{Lower: 1, Upper: 6},
	}
}

// Validate checks every interval is finite and ordered.
func (pb ParameterBounds) Validate() error {
	for i, b := range pb {
		if math.IsNaN(b.Lower) || math.IsNaN(b.Upper) || math.IsInf(b.Lower, 0) || math.IsInf(b.Upper, 0) {
			return fmt.Errorf("%s: bounds must be finite, got [%g, %g]", ParameterNames[i], b.Lower, b.Upper)
		}
		if b.Lower > b.Upper {
			return fmt.Errorf("%s: lower bound %g exceeds upper bound %g", ParameterNames[i], b.Lower, b.Upper)
		}
	}
	return nil
}

// Contains reports whether every component of p is within its interval.
func (pb ParameterBounds) Contains(p ParameterVector) bool {
	for i, v := range p.Slice() {
		if !pb[i].Contains(v) {
			return false
		}
	}
	return true
}

// Scale maps a point in the unit cube into the box. Results are clamped so
// rounding never leaves the interval.
func (pb ParameterBounds) Scale(unit []float64) []float64 {
	out := make([]float64, len(unit))
	for i, u := range unit {
		out[i] = pb[i].Lower + u*pb[i].Width()
	}
	return pb.Clip(out)
}

// Clip clamps each coordinate of x into its interval.
func (pb ParameterBounds) Clip(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = math.Min(math.Max(v, pb[i].Lower), pb[i].Upper)
	}
	return out
}
