package improvement

import (
	"fmt"

	"github.com/GoSim-25-26J-441/policy-search/pkg/utils"
)

// PopulationInitializer places the initial population in the unit cube.
type PopulationInitializer interface {
	Initialize(rng *utils.RandSource, n, dim int) [][]float64
	Name() string
}

// LatinHypercubeInitializer stratifies every dimension so the first generation
// covers the whole box.
type LatinHypercubeInitializer struct{}

func (LatinHypercubeInitializer) Name() string {
	return "latinhypercube"
}

func (LatinHypercubeInitializer) Initialize(rng *utils.RandSource, n, dim int) [][]float64 {
	return rng.LatinHypercube(n, dim)
}

// UniformInitializer draws every coordinate independently.
type UniformInitializer struct{}

func (UniformInitializer) Name() string {
	return "random"
}

func (UniformInitializer) Initialize(rng *utils.RandSource, n, dim int) [][]float64 {
	points := make([][]float64, n)
	for i := range points {
		points[i] = make([]float64, dim)
		for d := range points[i] {
			points[i][d] = rng.Float64()
		}
	}
	return points
}

// NewInitializer returns the initializer for name. Empty means Latin hypercube.
func NewInitializer(name string) (PopulationInitializer, error) {
	switch name {
	case "", "latinhypercube":
		return LatinHypercubeInitializer{}, nil
	case "random":
		return UniformInitializer{}, nil
	default:
		return nil, fmt.Errorf("unknown population initializer %q", name)
	}
}
