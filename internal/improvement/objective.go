package improvement

import (
	"context"
	"time"

	"github.com/GoSim-25-26J-441/policy-search/internal/scoring"
	"github.com/GoSim-25-26J-441/policy-search/internal/simulation"
	"github.com/GoSim-25-26J-441/policy-search/pkg/logger"
	"github.com/GoSim-25-26J-441/policy-search/pkg/models"
)

// PenaltyValue is the minimization value of a vector the engine rejected.
// Every scored vector lies in [-1, 0], so the penalty is always worse.
const PenaltyValue = 1e6

// Evaluation is the outcome of simulating and scoring one vector.
type Evaluation struct {
	Params   models.ParameterVector
	Score    scoring.Score
	Duration time.Duration
	// Candidate is the 1-based enumeration position in a grid search, zero
	// for searches without a fixed order. It breaks ties between equal scores.
	Candidate int
	// Err is the simulation failure, nil when the vector was scored.
	Err *simulation.SimulationError
}

// Failed reports whether the engine rejected the vector.
func (e Evaluation) Failed() bool {
	return e.Err != nil
}

// Value is the minimization form of the evaluation: the negated score, or
// PenaltyValue for a failed run.
func (e Evaluation) Value() float64 {
	if e.Failed() {
		return PenaltyValue
	}
	return -e.Score.Value
}

// Evaluator turns a parameter vector into an Evaluation. Simulation failures
// are reported inside the Evaluation; a returned error aborts the search.
type Evaluator interface {
	Evaluate(ctx context.Context, params models.ParameterVector) (Evaluation, error)
}

// CandidateEvaluator is an Evaluator that stamps the grid position on the
// evaluation before it is recorded.
type CandidateEvaluator interface {
	Evaluator
	EvaluateCandidate(ctx context.Context, candidate int, params models.ParameterVector) (Evaluation, error)
}

// Recorder receives every evaluation a search makes.
type Recorder interface {
	Record(ctx context.Context, eval Evaluation) error
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(ctx context.Context, eval Evaluation) error

// Record calls f.
func (f RecorderFunc) Record(ctx context.Context, eval Evaluation) error {
	return f(ctx, eval)
}

// Objective runs the engine and scores the result.
type Objective struct {
	sim      simulation.Simulator
	scorer   *scoring.Scorer
	env      simulation.Environment
	recorder Recorder
}

// NewObjective creates an objective over sim. A nil scorer uses the reference targets.
func NewObjective(sim simulation.Simulator, scorer *scoring.Scorer, env simulation.Environment) *Objective {
	if scorer == nil {
		scorer = scoring.NewDefaultScorer()
	}
	return &Objective{
		sim:    sim,
		scorer: scorer,
		env:    env,
	}
}

// WithRecorder sets the sink for every evaluation.
func (o *Objective) WithRecorder(r Recorder) *Objective {
	o.recorder = r
	return o
}

// Scorer returns the scorer in use.
func (o *Objective) Scorer() *scoring.Scorer {
	return o.scorer
}

// Evaluate simulates and scores params. Engine failures are logged and
// returned as a failed Evaluation. An unscorable result is returned as an
// *scoring.InvalidResultError.
func (o *Objective) Evaluate(ctx context.Context, params models.ParameterVector) (Evaluation, error) {
	eval, _, err := o.inspect(ctx, 0, params)
	return eval, err
}

// EvaluateCandidate is Evaluate for the 1-based grid position candidate.
func (o *Objective) EvaluateCandidate(ctx context.Context, candidate int, params models.ParameterVector) (Evaluation, error) {
	eval, _, err := o.inspect(ctx, candidate, params)
	return eval, err
}

// Inspect is Evaluate that also returns the simulated series, nil when the
// engine rejected params.
func (o *Objective) Inspect(ctx context.Context, params models.ParameterVector) (Evaluation, *models.SimulationResult, error) {
	return o.inspect(ctx, 0, params)
}

// inspect returns ctx's error unrecorded when the run was interrupted, so a
// cancelled search never books engine failures.
func (o *Objective) inspect(ctx context.Context, candidate int, params models.ParameterVector) (Evaluation, *models.SimulationResult, error) {
	start := time.Now()
	eval := Evaluation{Params: params, Candidate: candidate}

	result, err := o.sim.Simulate(ctx, o.env.Request(params))
	eval.Duration = time.Since(start)
	if ctxErr := ctx.Err(); err != nil && ctxErr != nil {
		return eval, nil, ctxErr
	}
	if err != nil {
		eval.Err = simulation.AsSimulationError(params, err)
		logger.Warn("simulation failed",
			"params", params.String(),
			"error", eval.Err.Cause,
		)
		o.record(ctx, eval)
		return eval, nil, nil
	}

	score, err := o.scorer.Score(result)
	if err != nil {
		logger.Error("engine returned an unscorable result", "params", params.String(), "error", err)
		return eval, result, err
	}
	eval.Score = score
	o.record(ctx, eval)
	return eval, result, nil
}

// Value is the minimization objective: the negated score, or PenaltyValue
// when the engine rejects params.
func (o *Objective) Value(ctx context.Context, params models.ParameterVector) (float64, error) {
	eval, err := o.Evaluate(ctx, params)
	if err != nil {
		return 0, err
	}
	return eval.Value(), nil
}

func (o *Objective) record(ctx context.Context, eval Evaluation) {
	if o.recorder == nil {
		return
	}
	if err := o.recorder.Record(ctx, eval); err != nil {
		logger.Warn("failed to record evaluation", "params", eval.Params.String(), "error", err)
	}
}
