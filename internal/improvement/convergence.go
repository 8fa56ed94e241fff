package improvement

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// GenerationStep summarizes one generation of a population search. Values are
// in minimization form (negated score, or PenaltyValue).
type GenerationStep struct {
	Generation int
	BestValue  float64
	// Energies holds the value of every population member after the generation.
	Energies []float64
}

// ConvergenceStrategy decides from the generation history whether to stop.
type ConvergenceStrategy interface {
	CheckConvergence(history []GenerationStep) (bool, string)
	Name() string
}

// ConvergenceConfig holds the stopping thresholds.
type ConvergenceConfig struct {
	// Tol and Atol bound the population spread: std <= Atol + Tol*|mean|.
	Tol  float64
	Atol float64
	// NoImprovementGenerations stops after that many generations without a
	// better best value; zero disables the check.
	NoImprovementGenerations int
	// ImprovementThreshold is the smallest change of the best value counted as progress.
	ImprovementThreshold float64
	// PlateauGenerations and PlateauTolerance stop when the best value moved
	// less than the tolerance over the window; zero disables the check.
	PlateauGenerations int
	PlateauTolerance   float64
}

// DefaultConvergenceConfig returns the population-spread test only.
func DefaultConvergenceConfig() *ConvergenceConfig {
	return &ConvergenceConfig{
		Tol:                  0.01,
		ImprovementThreshold: 1e-12,
		PlateauTolerance:     1e-6,
	}
}

// PopulationSpreadStrategy stops when the population energies have collapsed
// relative to their mean.
type PopulationSpreadStrategy struct {
	config *ConvergenceConfig
}

// NewPopulationSpreadStrategy creates the population spread test.
func NewPopulationSpreadStrategy(config *ConvergenceConfig) *PopulationSpreadStrategy {
	if config == nil {
		config = DefaultConvergenceConfig()
	}
	return &PopulationSpreadStrategy{config: config}
}

func (s *PopulationSpreadStrategy) Name() string {
	return "population_spread"
}

func (s *PopulationSpreadStrategy) CheckConvergence(history []GenerationStep) (bool, string) {
	if len(history) == 0 {
		return false, ""
	}
	energies := history[len(history)-1].Energies
	if len(energies) < 2 {
		return false, ""
	}
	for _, e := range energies {
		if math.IsInf(e, 0) || math.IsNaN(e) {
			return false, ""
		}
	}
	mean, std := stat.PopMeanStdDev(energies, nil)
	limit := s.config.Atol + s.config.Tol*math.Abs(mean)
	if std <= limit {
		return true, fmt.Sprintf("population spread %.3g within %.3g", std, limit)
	}
	return false, ""
}

// NoImprovementStrategy stops when the best value has not improved for N generations.
type NoImprovementStrategy struct {
	config *ConvergenceConfig
}

// NewNoImprovementStrategy creates the patience test.
func NewNoImprovementStrategy(config *ConvergenceConfig) *NoImprovementStrategy {
	if config == nil {
		config = DefaultConvergenceConfig()
	}
	return &NoImprovementStrategy{config: config}
}

func (s *NoImprovementStrategy) Name() string {
	return "no_improvement"
}

func (s *NoImprovementStrategy) CheckConvergence(history []GenerationStep) (bool, string) {
	patience := s.config.NoImprovementGenerations
	if patience <= 0 || len(history) <= patience {
		return false, ""
	}

	best := history[0].BestValue
	bestAt := 0
	for i, step := range history {
		if step.BestValue < best-s.config.ImprovementThreshold {
			best = step.BestValue
			bestAt = i
		}
	}

	since := len(history) - 1 - bestAt
	if since >= patience {
		return true, fmt.Sprintf("no improvement for %d generations (best at generation %d)", since, history[bestAt].Generation)
	}
	return false, ""
}

// PlateauStrategy stops when the best value stayed within a tolerance over a window.
type PlateauStrategy struct {
	config *ConvergenceConfig
}

// NewPlateauStrategy creates the plateau test.
func NewPlateauStrategy(config *ConvergenceConfig) *PlateauStrategy {
	if config == nil {
		config = DefaultConvergenceConfig()
	}
	return &PlateauStrategy{config: config}
}

func (s *PlateauStrategy) Name() string {
	return "plateau"
}

func (s *PlateauStrategy) CheckConvergence(history []GenerationStep) (bool, string) {
	window := s.config.PlateauGenerations
	if window <= 1 || len(history) < window {
		return false, ""
	}

	recent := history[len(history)-window:]
	lo, hi := recent[0].BestValue, recent[0].BestValue
	for _, step := range recent {
		lo = math.Min(lo, step.BestValue)
		hi = math.Max(hi, step.BestValue)
	}
	if hi-lo <= s.config.PlateauTolerance {
		return true, fmt.Sprintf("best value plateaued for %d generations (range %.3g)", window, hi-lo)
	}
	return false, ""
}

// CombinedStrategy stops as soon as any of its strategies does.
type CombinedStrategy struct {
	strategies []ConvergenceStrategy
}

// NewCombinedStrategy builds the population spread test plus the optional
// patience and plateau tests enabled in config.
func NewCombinedStrategy(config *ConvergenceConfig) *CombinedStrategy {
	if config == nil {
		config = DefaultConvergenceConfig()
	}
	s := &CombinedStrategy{
		strategies: []ConvergenceStrategy{NewPopulationSpreadStrategy(config)},
	}
	if config.NoImprovementGenerations > 0 {
		s.AddStrategy(NewNoImprovementStrategy(config))
	}
	if config.PlateauGenerations > 1 {
		s.AddStrategy(NewPlateauStrategy(config))
	}
	return s
}

func (s *CombinedStrategy) Name() string {
	return "combined"
}

func (s *CombinedStrategy) CheckConvergence(history []GenerationStep) (bool, string) {
	for _, strategy := range s.strategies {
		if converged, reason := strategy.CheckConvergence(history); converged {
			return true, fmt.Sprintf("%s: %s", strategy.Name(), reason)
		}
	}
	return false, ""
}

// AddStrategy appends a custom strategy.
func (s *CombinedStrategy) AddStrategy(strategy ConvergenceStrategy) {
	s.strategies = append(s.strategies, strategy)
}
