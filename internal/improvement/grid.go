package improvement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/GoSim-25-26J-441/policy-search/internal/scoring"
	"github.com/GoSim-25-26J-441/policy-search/pkg/config"
	"github.com/GoSim-25-26J-441/policy-search/pkg/logger"
	"github.com/GoSim-25-26J-441/policy-search/pkg/models"
	"github.com/GoSim-25-26J-441/policy-search/pkg/utils"
)

// ErrNoValidCandidate is returned when every grid candidate failed to simulate.
var ErrNoValidCandidate = errors.New("no candidate produced a valid score")

// CandidateSets holds the ordered candidate values of each dimension.
type CandidateSets [models.ParameterCount][]float64

// GridResult is the outcome of an exhaustive search.
type GridResult struct {
	Best        models.ParameterVector
	Score       scoring.Score
	Found       bool
	Candidates  int
	Evaluations int
	Failures    int
	Duration    time.Duration
}

// GridSearch enumerates the Cartesian product of the candidate sets. The first
// dimension varies slowest.
type GridSearch struct {
	sets          CandidateSets
	sizes         []int
	workers       int
	onImprovement func(SearchState)
}

// NewGridSearch validates the sets before any simulation runs.
func NewGridSearch(sets CandidateSets) (*GridSearch, error) {
	sizes := make([]int, models.ParameterCount)
	for i, set := range sets {
		field := "grid.candidates." + models.ParameterNames[i]
		if len(set) == 0 {
			return nil, &config.ConfigurationError{Field: field, Reason: "candidate set is empty"}
		}
		if !utils.AllFinite(set) {
			return nil, &config.ConfigurationError{Field: field, Reason: "candidate values must be finite"}
		}
		sizes[i] = len(set)
	}

	var owned CandidateSets
	for i, set := range sets {
		owned[i] = append([]float64(nil), set...)
	}
	return &GridSearch{sets: owned, sizes: sizes, workers: 1}, nil
}

// WithWorkers evaluates up to n candidates at once.
func (g *GridSearch) WithWorkers(n int) *GridSearch {
	if n < 1 {
		n = 1
	}
	g.workers = n
	return g
}

// OnImprovement registers a callback invoked with the state after every new best.
func (g *GridSearch) OnImprovement(fn func(SearchState)) *GridSearch {
	g.onImprovement = fn
	return g
}

// Size is the number of candidates.
func (g *GridSearch) Size() int {
	return utils.CartesianSize(g.sizes)
}

// Candidate returns the i-th vector in enumeration order.
func (g *GridSearch) Candidate(i int) models.ParameterVector {
	idx := utils.CartesianIndex(i, g.sizes)
	values := make([]float64, models.ParameterCount)
	for d, k := range idx {
		values[d] = g.sets[d][k]
	}
	p, _ := models.ParameterVectorFromSlice(values)
	return p
}

// Run evaluates every candidate. Failed simulations are skipped. Cancelling
// ctx stops the search between candidates and returns the partial result.
func (g *GridSearch) Run(ctx context.Context, eval Evaluator) (*GridResult, error) {
	n := g.Size()
	logger.Info("grid search started", "candidates", n, "workers", g.workers)

	start := time.Now()
	state := &SearchState{}
	var err error
	if g.workers > 1 {
		err = g.runParallel(ctx, eval, state)
	} else {
		err = g.runSequential(ctx, eval, state)
	}

	result := &GridResult{
		Best:        state.Best,
		Score:       state.BestScore,
		Found:       state.Found,
		Candidates:  n,
		Evaluations: state.Evaluations,
		Failures:    state.Failures,
		Duration:    time.Since(start),
	}
	if err != nil {
		return result, err
	}
	if !state.Found {
		return result, ErrNoValidCandidate
	}

	logger.Info("grid search finished",
		"best", state.Best.String(),
		"score", state.BestScore.Value,
		"evaluations", state.Evaluations,
		"failures", state.Failures,
		"duration", result.Duration,
	)
	return result, nil
}

func (g *GridSearch) runSequential(ctx context.Context, eval Evaluator, state *SearchState) error {
	n := g.Size()
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("grid search interrupted after %d of %d candidates: %w", i, n, err)
		}

		iterStart := time.Now()
		e, err := g.evaluate(ctx, eval, i)
		if err != nil {
			return fmt.Errorf("candidate %d: %w", i, err)
		}
		if i == 0 {
			g.logEstimate(time.Since(iterStart), n)
		}
		g.observe(state, i, e)
	}
	return nil
}

// evaluate runs candidate i and stamps its 1-based position.
func (g *GridSearch) evaluate(ctx context.Context, eval Evaluator, i int) (Evaluation, error) {
	if ce, ok := eval.(CandidateEvaluator); ok {
		return ce.EvaluateCandidate(ctx, i+1, g.Candidate(i))
	}
	e, err := eval.Evaluate(ctx, g.Candidate(i))
	e.Candidate = i + 1
	return e, err
}

// observe folds one evaluation into the state. Candidates must be observed in
// enumeration order for the first-wins tie rule to hold.
func (g *GridSearch) observe(state *SearchState, index int, e Evaluation) {
	if state.Observe(e) {
		logger.Info("new best candidate",
			"candidate", index,
			"params", e.Params.String(),
			"score", e.Score.Value,
		)
		if g.onImprovement != nil {
			g.onImprovement(*state)
		}
		return
	}
	if e.Failed() {
		logger.Info("skipping candidate", "candidate", index, "params", e.Params.String(), "error", e.Err.Cause)
	}
}

func (g *GridSearch) logEstimate(iteration time.Duration, n int) {
	rounds := (n + g.workers - 1) / g.workers
	logger.Info("first candidate evaluated",
		"iteration_time", iteration,
		"estimated_total", iteration*time.Duration(rounds),
	)
}
