package improvement

import (
	"context"
	"time"

	"github.com/GoSim-25-26J-441/policy-search/internal/scoring"
	"github.com/GoSim-25-26J-441/policy-search/pkg/config"
	"github.com/GoSim-25-26J-441/policy-search/pkg/models"
)

// ProgressFunc receives the search state after every generation.
type ProgressFunc func(state SearchState)

// Optimizer is a population search over the parameter box.
type Optimizer interface {
	Optimize(ctx context.Context, eval Evaluator) (*OptimizationResult, error)
	Name() string
}

// OptimizationResult contains the final state of a population search.
type OptimizationResult struct {
	Best              models.ParameterVector
	Score             scoring.Score
	Found             bool
	Generations       int
	Evaluations       int
	Failures          int
	History           []GenerationStep
	Converged         bool
	ConvergenceReason string
	Duration          time.Duration
}

// EvolutionSettings configures an Optimizer.
type EvolutionSettings struct {
	Bounds   models.ParameterBounds
	Strategy string
	Init     string
	// PopulationMultiplier times the dimension gives the population size.
	PopulationMultiplier int
	MaxGenerations       int
	// Seed zero draws a seed from the clock.
	Seed          uint64
	MutationLow   float64
	MutationHigh  float64
	Recombination float64
	Convergence   *ConvergenceConfig
	Progress      ProgressFunc
}

// DefaultEvolutionSettings mirrors config.DefaultEvolution over the default bounds.
func DefaultEvolutionSettings() EvolutionSettings {
	s, _ := SettingsFromConfig(config.DefaultEvolution())
	return s
}

// SettingsFromConfig converts and validates the YAML evolution block.
func SettingsFromConfig(cfg *config.EvolutionConfig) (EvolutionSettings, error) {
	bounds, err := cfg.ParameterBounds()
	if err != nil {
		return EvolutionSettings{}, err
	}
	plateauTol := cfg.PlateauTol
	if plateauTol == 0 {
		plateauTol = DefaultConvergenceConfig().PlateauTolerance
	}
	low, high := cfg.Mutation[0], cfg.Mutation[0]
	if len(cfg.Mutation) > 1 {
		high = cfg.Mutation[1]
	}
	return EvolutionSettings{
		Bounds:               bounds,
		Strategy:             cfg.Strategy,
		Init:                 cfg.Init,
		PopulationMultiplier: cfg.PopSize,
		MaxGenerations:       cfg.MaxGenerations,
		Seed:                 cfg.Seed,
		MutationLow:          low,
		MutationHigh:         high,
		Recombination:        cfg.Recombination,
		Convergence: &ConvergenceConfig{
			Tol:                      cfg.Tol,
			Atol:                     cfg.Atol,
			NoImprovementGenerations: cfg.Patience,
			ImprovementThreshold:     1e-12,
			PlateauGenerations:       cfg.Plateau,
			PlateauTolerance:         plateauTol,
		},
	}, nil
}

// PopulationSize is max(5, multiplier * dimension).
func (s EvolutionSettings) PopulationSize() int {
	n := s.PopulationMultiplier * models.ParameterCount
	if n < 5 {
		n = 5
	}
	return n
}

// NewOptimizer builds the optimizer named by s.Strategy.
func NewOptimizer(s EvolutionSettings) (Optimizer, error) {
	if s.Strategy == StrategyCMAES {
		return NewCMAES(s)
	}
	return NewDifferentialEvolution(s)
}

func buildResult(state *SearchState, history []GenerationStep, converged bool, reason string, start time.Time) *OptimizationResult {
	return &OptimizationResult{
		Best:              state.Best,
		Score:             state.BestScore,
		Found:             state.Found,
		Generations:       len(history),
		Evaluations:       state.Evaluations,
		Failures:          state.Failures,
		History:           history,
		Converged:         converged,
		ConvergenceReason: reason,
		Duration:          time.Since(start),
	}
}
