package utils

import (
	"fmt"
	"math"
)

// ClampFloat64 clamps a float64 value between min and max
func ClampFloat64(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// IsFinite reports whether v is neither NaN nor infinite
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// AllFinite reports whether every value is finite
func AllFinite(values []float64) bool {
	for _, v := range values {
		if !IsFinite(v) {
			return false
		}
	}
	return true
}

// Logistic evaluates 1 / (1 + exp(-(x-center)/scale)).
func Logistic(x, center, scale float64) float64 {
	return 1 / (1 + math.Exp(-(x-center)/scale))
}

// Arange returns start, start+step, ... strictly below stop.
func Arange(start, stop, step float64) ([]float64, error) {
	if !IsFinite(start) || !IsFinite(stop) || !IsFinite(step) {
		return nil, fmt.Errorf("range bounds must be finite")
	}
	if step <= 0 {
		return nil, fmt.Errorf("range step must be positive, got %g", step)
	}
	n := int(math.Ceil((stop - start) / step))
	if n <= 0 {
		return []float64{}, nil
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out, nil
}

// CartesianSize returns the number of tuples in the product of sets with the given sizes
func CartesianSize(sizes []int) int {
	if len(sizes) == 0 {
		return 0
	}
	total := 1
	for _, s := range sizes {
		total *= s
	}
	return total
}

// CartesianIndex decodes a flat product index into per-dimension indices.
// The first dimension varies slowest.
func CartesianIndex(flat int, sizes []int) []int {
	idx := make([]int, len(sizes))
	for d := len(sizes) - 1; d >= 0; d-- {
		idx[d] = flat % sizes[d]
		flat /= sizes[d]
	}
	return idx
}
