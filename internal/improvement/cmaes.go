package improvement

import (
	"context"
	"fmt"
	"time"

	"gonum.org/v1/gonum/optimize"

	"github.com/GoSim-25-26J-441/policy-search/pkg/config"
	"github.com/GoSim-25-26J-441/policy-search/pkg/logger"
	"github.com/GoSim-25-26J-441/policy-search/pkg/models"
	"github.com/GoSim-25-26J-441/policy-search/pkg/utils"
)

// cmaesInitStep is the initial sampling spread in unit-cube coordinates.
const cmaesInitStep = 0.3

// CMAES minimizes the objective with gonum's CMA-ES. The search runs in unit
// coordinates; samples outside the cube are clipped before evaluation.
type CMAES struct {
	settings    EvolutionSettings
	convergence ConvergenceStrategy
}

// NewCMAES validates s and creates the optimizer.
func NewCMAES(s EvolutionSettings) (*CMAES, error) {
	if err := s.Bounds.Validate(); err != nil {
		return nil, &config.ConfigurationError{Field: "evolution.bounds", Reason: err.Error()}
	}
	if s.MaxGenerations < 1 {
		return nil, &config.ConfigurationError{Field: "evolution.max_generations", Reason: "must be positive"}
	}
	if s.PopulationMultiplier < 1 {
		return nil, &config.ConfigurationError{Field: "evolution.popsize", Reason: "must be positive"}
	}
	return &CMAES{
		settings:    s,
		convergence: NewCombinedStrategy(s.Convergence),
	}, nil
}

func (c *CMAES) Name() string {
	return StrategyCMAES
}

// Optimize runs CMA-ES for at most MaxGenerations major iterations.
func (c *CMAES) Optimize(ctx context.Context, eval Evaluator) (*OptimizationResult, error) {
	s := c.settings
	start := time.Now()
	rng := utils.NewRandSource(s.Seed)
	dim := models.ParameterCount

	run := &cmaesRun{
		ctx:            ctx,
		eval:           eval,
		bounds:         s.Bounds,
		maxGenerations: s.MaxGenerations,
		progress:       s.Progress,
		convergence:    c.convergence,
		state:          &SearchState{},
	}

	logger.Info("cma-es started", "population", s.PopulationSize(), "max_generations", s.MaxGenerations, "seed", s.Seed)

	initX := make([]float64, dim)
	for i := range initX {
		initX[i] = 0.5
	}
	problem := optimize.Problem{Func: run.value, Status: run.status}
	settings := &optimize.Settings{
		MajorIterations: s.MaxGenerations,
		Concurrent:      1,
		Converger:       run,
	}
	method := &optimize.CmaEsChol{
		InitStepSize: cmaesInitStep,
		Population:   s.PopulationSize(),
		Src:          rng.Source(),
	}

	res, err := optimize.Minimize(problem, initX, settings, method)
	if run.err != nil {
		return buildResult(run.state, run.history, false, "", start), run.err
	}
	if err != nil && res == nil {
		return buildResult(run.state, run.history, false, "", start), fmt.Errorf("cma-es failed: %w", err)
	}

	converged := run.reason != ""
	reason := run.reason
	if !converged {
		reason = "max generations reached"
		if res != nil && res.Status != optimize.IterationLimit {
			converged = true
			reason = res.Status.String()
		}
	}
	return buildResult(run.state, run.history, converged, reason, start), nil
}

// cmaesRun carries one Optimize call through gonum's callbacks. Evaluations
// are sequential because Settings.Concurrent is 1.
type cmaesRun struct {
	ctx            context.Context
	eval           Evaluator
	bounds         models.ParameterBounds
	maxGenerations int
	progress       ProgressFunc
	convergence    ConvergenceStrategy

	state    *SearchState
	history  []GenerationStep
	energies []float64
	reason   string
	// stopped is set once the last generation has been recorded; gonum may
	// still report a final best location afterwards.
	stopped bool
	err     error
}

func (r *cmaesRun) value(x []float64) float64 {
	if r.err != nil {
		return PenaltyValue
	}
	if err := r.ctx.Err(); err != nil {
		r.err = fmt.Errorf("cma-es interrupted: %w", err)
		return PenaltyValue
	}

	unit := make([]float64, len(x))
	for i, v := range x {
		unit[i] = utils.ClampFloat64(v, 0, 1)
	}
	params, _ := models.ParameterVectorFromSlice(r.bounds.Scale(unit))
	e, err := r.eval.Evaluate(r.ctx, params)
	if err != nil {
		r.err = err
		return PenaltyValue
	}
	r.state.Observe(e)
	r.energies = append(r.energies, e.Value())
	return e.Value()
}

// status stops Minimize as soon as an evaluation aborted the search.
func (r *cmaesRun) status() (optimize.Status, error) {
	if r.err != nil {
		return optimize.Failure, r.err
	}
	return optimize.NotTerminated, nil
}

// Init implements optimize.Converger.
func (r *cmaesRun) Init(dim int) {}

// Converged implements optimize.Converger; gonum calls it once per major iteration.
func (r *cmaesRun) Converged(loc *optimize.Location) optimize.Status {
	if r.err != nil {
		return optimize.Failure
	}
	if r.stopped {
		return optimize.NotTerminated
	}
	gen := len(r.history) + 1
	r.history = append(r.history, GenerationStep{
		Generation: gen,
		BestValue:  loc.F,
		Energies:   r.energies,
	})
	r.energies = nil
	r.state.Generation = gen

	logger.Info("generation finished", "generation", gen, "best", r.state.Best.String(), "score", r.state.BestScore.Value)
	if r.progress != nil {
		r.progress(*r.state)
	}

	if converged, reason := r.convergence.CheckConvergence(r.history); converged {
		r.reason = reason
		r.stopped = true
		return optimize.FunctionConvergence
	}
	if gen >= r.maxGenerations {
		r.stopped = true
	}
	return optimize.NotTerminated
}
