package improvement

import (
	"context"
	"fmt"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/GoSim-25-26J-441/policy-search/internal/scoring"
	"github.com/GoSim-25-26J-441/policy-search/pkg/config"
	"github.com/GoSim-25-26J-441/policy-search/pkg/logger"
	"github.com/GoSim-25-26J-441/policy-search/pkg/models"
	"github.com/GoSim-25-26J-441/policy-search/pkg/utils"
)

// Mutation strategies.
const (
	StrategyBest1Bin          = "best1bin"
	StrategyRand1Bin          = "rand1bin"
	StrategyCurrentToBest1Bin = "currenttobest1bin"
	StrategyBest2Bin          = "best2bin"
	StrategyRand2Bin          = "rand2bin"
	StrategyCMAES             = "cmaes"
)

// samplesNeeded is the number of distinct donors each strategy draws.
var samplesNeeded = map[string]int{
	StrategyBest1Bin:          2,
	StrategyRand1Bin:          3,
	StrategyCurrentToBest1Bin: 2,
	StrategyBest2Bin:          4,
	StrategyRand2Bin:          5,
}

// DifferentialEvolution minimizes the objective over the bounds. Members live
// in the unit cube and are scaled to the box on evaluation. Trial vectors
// replace their parent immediately when they are at least as good.
type DifferentialEvolution struct {
	settings    EvolutionSettings
	initializer PopulationInitializer
	convergence ConvergenceStrategy
}

// NewDifferentialEvolution validates s and creates the optimizer.
func NewDifferentialEvolution(s EvolutionSettings) (*DifferentialEvolution, error) {
	if err := s.Bounds.Validate(); err != nil {
		return nil, &config.ConfigurationError{Field: "evolution.bounds", Reason: err.Error()}
	}
	if s.Strategy == "" {
		s.Strategy = StrategyBest1Bin
	}
	if _, ok := samplesNeeded[s.Strategy]; !ok {
		return nil, &config.ConfigurationError{Field: "evolution.strategy", Reason: fmt.Sprintf("unknown strategy %q", s.Strategy)}
	}
	if s.MaxGenerations < 1 {
		return nil, &config.ConfigurationError{Field: "evolution.max_generations", Reason: "must be positive"}
	}
	if s.PopulationMultiplier < 1 {
		return nil, &config.ConfigurationError{Field: "evolution.popsize", Reason: "must be positive"}
	}
	if s.MutationLow <= 0 || s.MutationHigh < s.MutationLow {
		return nil, &config.ConfigurationError{Field: "evolution.mutation", Reason: "dither range must satisfy 0 < low <= high"}
	}
	if s.Recombination < 0 || s.Recombination > 1 {
		return nil, &config.ConfigurationError{Field: "evolution.recombination", Reason: "must be within [0, 1]"}
	}
	initializer, err := NewInitializer(s.Init)
	if err != nil {
		return nil, &config.ConfigurationError{Field: "evolution.init", Reason: err.Error()}
	}
	return &DifferentialEvolution{
		settings:    s,
		initializer: initializer,
		convergence: NewCombinedStrategy(s.Convergence),
	}, nil
}

func (de *DifferentialEvolution) Name() string {
	return "differential_evolution/" + de.settings.Strategy
}

// member is one population slot.
type member struct {
	unit   []float64
	energy float64
	score  scoring.Score
}

// Optimize runs until the generation budget is spent or the population converges.
// Engine failures score PenaltyValue and never stop the search.
func (de *DifferentialEvolution) Optimize(ctx context.Context, eval Evaluator) (*OptimizationResult, error) {
	s := de.settings
	start := time.Now()
	rng := utils.NewRandSource(s.Seed)
	n := s.PopulationSize()
	dim := models.ParameterCount
	state := &SearchState{}
	history := make([]GenerationStep, 0, s.MaxGenerations)

	logger.Info("differential evolution started",
		"strategy", s.Strategy,
		"population", n,
		"max_generations", s.MaxGenerations,
		"seed", s.Seed,
	)

	evaluate := func(unit []float64) (member, error) {
		params, _ := models.ParameterVectorFromSlice(s.Bounds.Scale(unit))
		e, err := eval.Evaluate(ctx, params)
		if err != nil {
			return member{}, err
		}
		state.Observe(e)
		return member{unit: unit, energy: e.Value(), score: e.Score}, nil
	}

	pop := make([]member, n)
	for i, unit := range de.initializer.Initialize(rng, n, dim) {
		if err := ctx.Err(); err != nil {
			return buildResult(state, history, false, "", start), fmt.Errorf("evolution interrupted during initialisation: %w", err)
		}
		m, err := evaluate(unit)
		if err != nil {
			return buildResult(state, history, false, "", start), err
		}
		pop[i] = m
	}
	best := bestMember(pop)

	for gen := 1; gen <= s.MaxGenerations; gen++ {
		f := s.MutationLow
		if s.MutationHigh > s.MutationLow {
			f = rng.UniformFloat64(s.MutationLow, s.MutationHigh)
		}

		for c := 0; c < n; c++ {
			if err := ctx.Err(); err != nil {
				return buildResult(state, history, false, "", start), fmt.Errorf("evolution interrupted in generation %d: %w", gen, err)
			}
			trial := de.trial(rng, pop, c, best, f)
			m, err := evaluate(trial)
			if err != nil {
				return buildResult(state, history, false, "", start), err
			}
			if m.energy <= pop[c].energy {
				pop[c] = m
				if m.energy < pop[best].energy {
					best = c
				}
			}
		}

		step := GenerationStep{
			Generation: gen,
			BestValue:  pop[best].energy,
			Energies:   energies(pop),
		}
		history = append(history, step)
		state.Generation = gen

		logger.Info("generation finished",
			"generation", gen,
			"best", state.Best.String(),
			"score", state.BestScore.Value,
			"failures", state.Failures,
		)
		if s.Progress != nil {
			s.Progress(*state)
		}

		if converged, reason := de.convergence.CheckConvergence(history); converged {
			logger.Info("differential evolution converged", "generation", gen, "reason", reason)
			return buildResult(state, history, true, reason, start), nil
		}
	}

	return buildResult(state, history, false, "max generations reached", start), nil
}

// trial builds the mutant for slot c and crosses it with the parent.
func (de *DifferentialEvolution) trial(rng *utils.RandSource, pop []member, c, best int, f float64) []float64 {
	s := de.settings
	dim := len(pop[c].unit)
	r := rng.Distinct(len(pop), samplesNeeded[s.Strategy], c)
	x := func(i int) []float64 { return pop[i].unit }

	mutant := make([]float64, dim)
	switch s.Strategy {
	case StrategyBest1Bin:
		// best + F(r0 - r1)
		floats.SubTo(mutant, x(r[0]), x(r[1]))
		floats.AddScaledTo(mutant, x(best), f, mutant)
	case StrategyRand1Bin:
		floats.SubTo(mutant, x(r[1]), x(r[2]))
		floats.AddScaledTo(mutant, x(r[0]), f, mutant)
	case StrategyCurrentToBest1Bin:
		// current + F(best - current + r0 - r1)
		floats.SubTo(mutant, x(best), x(c))
		floats.Add(mutant, x(r[0]))
		floats.Sub(mutant, x(r[1]))
		floats.AddScaledTo(mutant, x(c), f, mutant)
	case StrategyBest2Bin:
		floats.AddTo(mutant, x(r[0]), x(r[1]))
		floats.Sub(mutant, x(r[2]))
		floats.Sub(mutant, x(r[3]))
		floats.AddScaledTo(mutant, x(best), f, mutant)
	case StrategyRand2Bin:
		floats.AddTo(mutant, x(r[1]), x(r[2]))
		floats.Sub(mutant, x(r[3]))
		floats.Sub(mutant, x(r[4]))
		floats.AddScaledTo(mutant, x(r[0]), f, mutant)
	}

	// binomial crossover, one dimension always taken from the mutant
	trial := append([]float64(nil), pop[c].unit...)
	fill := rng.Intn(dim)
	for d := 0; d < dim; d++ {
		if d == fill || rng.Float64() < s.Recombination {
			trial[d] = mutant[d]
		}
	}

	// out-of-box components are redrawn inside the box
	for d, v := range trial {
		if v < 0 || v > 1 {
			trial[d] = rng.Float64()
		}
	}
	return trial
}

func bestMember(pop []member) int {
	return floats.MinIdx(energies(pop))
}

func energies(pop []member) []float64 {
	out := make([]float64, len(pop))
	for i, m := range pop {
		out[i] = m.energy
	}
	return out
}
