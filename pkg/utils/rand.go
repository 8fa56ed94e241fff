package utils

import (
	"math/rand/v2"
	"time"
)

// RandSource is a seeded random number generator. It is not safe for
// concurrent use; each search owns its own source.
type RandSource struct {
	src *rand.PCG
	rng *rand.Rand
}

// NewRandSource creates a new random source with the given seed.
// A zero seed draws one from the clock.
func NewRandSource(seed uint64) *RandSource {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	src := rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
	return &RandSource{
		src: src,
		rng: rand.New(src),
	}
}

// Source exposes the underlying generator for libraries that accept a rand.Source
func (r *RandSource) Source() rand.Source {
	return r.src
}

// Float64 returns a random float64 in [0.0, 1.0)
func (r *RandSource) Float64() float64 {
	return r.rng.Float64()
}

// Intn returns a random int in [0, n)
func (r *RandSource) Intn(n int) int {
	return r.rng.IntN(n)
}

// UniformFloat64 returns a uniformly distributed random number in [min, max)
func (r *RandSource) UniformFloat64(min, max float64) float64 {
	return min + r.rng.Float64()*(max-min)
}

// Distinct draws k distinct indices from [0, n) excluding the given ones.
// It panics if fewer than k candidates remain.
func (r *RandSource) Distinct(n, k int, exclude ...int) []int {
	skip := make(map[int]bool, len(exclude))
	for _, e := range exclude {
		skip[e] = true
	}
	pool := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if !skip[i] {
			pool = append(pool, i)
		}
	}
	if len(pool) < k {
		panic("utils: not enough candidates for Distinct")
	}
	for i := 0; i < k; i++ {
		j := i + r.rng.IntN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:k]
}

// LatinHypercube returns n points in the unit cube [0,1)^dim. Each dimension is
// split into n equal strata and every stratum holds exactly one point.
func (r *RandSource) LatinHypercube(n, dim int) [][]float64 {
	points := make([][]float64, n)
	for i := range points {
		points[i] = make([]float64, dim)
	}
	segment := 1.0 / float64(n)
	for d := 0; d < dim; d++ {
		order := r.rng.Perm(n)
		for i := 0; i < n; i++ {
			points[i][d] = (float64(order[i]) + r.rng.Float64()) * segment
		}
	}
	return points
}
