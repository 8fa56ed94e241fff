package improvement

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/GoSim-25-26J-441/policy-search/internal/scoring"
	"github.com/GoSim-25-26J-441/policy-search/internal/simulation"
	"github.com/GoSim-25-26J-441/policy-search/internal/store"
	"github.com/GoSim-25-26J-441/policy-search/pkg/logger"
	"github.com/GoSim-25-26J-441/policy-search/pkg/models"
)

// Experiment kinds written to the ledger.
const (
	KindGrid    = "grid"
	KindEvolve  = "evolve"
	KindCompare = "run"
)

// Orchestrator runs searches as experiments and writes every evaluation to
// the ledger.
type Orchestrator struct {
	sim    simulation.Simulator
	scorer *scoring.Scorer
	env    simulation.Environment
	store  store.Store

	mu     sync.RWMutex
	active map[string]*ExperimentContext
}

// ExperimentContext tracks one experiment while it runs.
type ExperimentContext struct {
	ID          string
	Kind        string
	Status      store.Status
	Evaluations int
	Failures    int
	Error       error
	CreatedAt   time.Time
	CompletedAt time.Time
}

// ExperimentResult contains the results of a search experiment.
type ExperimentResult struct {
	ExperimentID      string
	Kind              string
	Best              models.ParameterVector
	Score             scoring.Score
	Found             bool
	Evaluations       int
	Failures          int
	Generations       int
	History           []GenerationStep
	Converged         bool
	ConvergenceReason string
	Duration          time.Duration
}

// ComparisonReport is a candidate policy simulated next to a baseline.
type ComparisonReport struct {
	ExperimentID    string
	Baseline        Evaluation
	Candidate       Evaluation
	BaselineSeries  *models.SimulationResult
	CandidateSeries *models.SimulationResult
	Comparison      *ScoreComparison
}

// NewOrchestrator creates an orchestrator. A nil ledger keeps experiments in memory.
func NewOrchestrator(sim simulation.Simulator, scorer *scoring.Scorer, env simulation.Environment, ledger store.Store) *Orchestrator {
	if ledger == nil {
		ledger = store.NewMemoryStore()
	}
	return &Orchestrator{
		sim:    sim,
		scorer: scorer,
		env:    env,
		store:  ledger,
		active: make(map[string]*ExperimentContext),
	}
}

// Store returns the ledger.
func (o *Orchestrator) Store() store.Store {
	return o.store
}

// RunGrid runs an exhaustive search as one experiment.
func (o *Orchestrator) RunGrid(ctx context.Context, grid *GridSearch, cfgSummary string) (*ExperimentResult, error) {
	rc, objective, err := o.begin(ctx, KindGrid, cfgSummary)
	if err != nil {
		return nil, err
	}

	res, runErr := grid.Run(ctx, objective)
	result := &ExperimentResult{
		ExperimentID: rc.ID,
		Kind:         KindGrid,
		Best:         res.Best,
		Score:        res.Score,
		Found:        res.Found,
		Evaluations:  res.Evaluations,
		Failures:     res.Failures,
		Duration:     res.Duration,
	}
	o.finish(ctx, rc, result, runErr)
	return result, runErr
}

// RunOptimizer runs a population search as one experiment.
func (o *Orchestrator) RunOptimizer(ctx context.Context, opt Optimizer, cfgSummary string) (*ExperimentResult, error) {
	rc, objective, err := o.begin(ctx, KindEvolve, cfgSummary)
	if err != nil {
		return nil, err
	}

	res, runErr := opt.Optimize(ctx, objective)
	result := &ExperimentResult{ExperimentID: rc.ID, Kind: KindEvolve}
	if res != nil {
		result.Best = res.Best
		result.Score = res.Score
		result.Found = res.Found
		result.Evaluations = res.Evaluations
		result.Failures = res.Failures
		result.Generations = res.Generations
		result.History = res.History
		result.Converged = res.Converged
		result.ConvergenceReason = res.ConvergenceReason
		result.Duration = res.Duration
	}
	if runErr == nil && !result.Found {
		runErr = ErrNoValidCandidate
	}
	o.finish(ctx, rc, result, runErr)
	return result, runErr
}

// Compare simulates baseline and candidate and compares their scores.
func (o *Orchestrator) Compare(ctx context.Context, baseline, candidate models.ParameterVector) (*ComparisonReport, error) {
	rc, objective, err := o.begin(ctx, KindCompare, fmt.Sprintf("baseline=%s candidate=%s", baseline, candidate))
	if err != nil {
		return nil, err
	}

	report := &ComparisonReport{ExperimentID: rc.ID}
	result := &ExperimentResult{ExperimentID: rc.ID, Kind: KindCompare}
	start := time.Now()

	report.Baseline, report.BaselineSeries, err = objective.Inspect(ctx, baseline)
	if err == nil {
		report.Candidate, report.CandidateSeries, err = objective.Inspect(ctx, candidate)
	}
	if err == nil {
		report.Comparison, err = CompareEvaluations(report.Baseline, report.Candidate)
	}
	if err == nil {
		result.Best = candidate
		result.Score = report.Candidate.Score
		result.Found = true
	}
	result.Evaluations = rc.Evaluations
	result.Failures = rc.Failures
	result.Duration = time.Since(start)
	o.finish(ctx, rc, result, err)
	if err != nil {
		return report, err
	}
	return report, nil
}

// Evaluations reads an experiment's evaluations back from the ledger in the
// order they were made.
func (o *Orchestrator) Evaluations(ctx context.Context, experimentID string) ([]Evaluation, error) {
	records, err := o.store.ListEvaluations(ctx, experimentID)
	if err != nil {
		return nil, err
	}
	out := make([]Evaluation, len(records))
	for i, r := range records {
		out[i] = fromLedger(r)
	}
	return out, nil
}

// Experiment returns the tracking context of an experiment started by o.
func (o *Orchestrator) Experiment(id string) (ExperimentContext, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	rc, ok := o.active[id]
	if !ok {
		return ExperimentContext{}, false
	}
	return *rc, true
}

// Experiments returns every experiment started by o.
func (o *Orchestrator) Experiments() []ExperimentContext {
	o.mu.RLock()
	defer o.mu.RUnlock()

	out := make([]ExperimentContext, 0, len(o.active))
	for _, rc := range o.active {
		out = append(out, *rc)
	}
	return out
}

// begin registers the experiment and returns an objective that records into it.
func (o *Orchestrator) begin(ctx context.Context, kind, cfgSummary string) (*ExperimentContext, *Objective, error) {
	id, err := o.store.CreateExperiment(ctx, kind, cfgSummary)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create experiment: %w", err)
	}
	rc := &ExperimentContext{
		ID:        id,
		Kind:      kind,
		Status:    store.StatusRunning,
		CreatedAt: time.Now(),
	}
	o.mu.Lock()
	o.active[id] = rc
	o.mu.Unlock()

	logger.ForExperiment(id, kind).Info("experiment started")
	objective := NewObjective(o.sim, o.scorer, o.env).WithRecorder(o.recorder(rc))
	return rc, objective, nil
}

// recorder counts evaluations on rc and appends them to the ledger.
func (o *Orchestrator) recorder(rc *ExperimentContext) Recorder {
	return RecorderFunc(func(ctx context.Context, eval Evaluation) error {
		o.mu.Lock()
		rc.Evaluations++
		if eval.Failed() {
			rc.Failures++
		}
		o.mu.Unlock()

		return o.store.RecordEvaluation(ctx, toLedger(rc.ID, eval))
	})
}

func (o *Orchestrator) finish(ctx context.Context, rc *ExperimentContext, result *ExperimentResult, runErr error) {
	status := store.StatusCompleted
	switch {
	case runErr == nil:
	case errors.Is(runErr, context.Canceled), errors.Is(runErr, context.DeadlineExceeded):
		status = store.StatusCancelled
	default:
		status = store.StatusFailed
	}

	var best *models.ParameterVector
	if result.Found {
		best = &result.Best
	}
	// the ledger is still written when ctx was cancelled
	log := logger.ForExperiment(rc.ID, rc.Kind)
	if err := o.store.FinishExperiment(context.WithoutCancel(ctx), rc.ID, status, best, result.Score.Value); err != nil {
		log.Warn("failed to finish experiment", "error", err)
	}

	o.mu.Lock()
	rc.Status = status
	rc.Error = runErr
	rc.CompletedAt = time.Now()
	o.mu.Unlock()

	if runErr != nil {
		log.Warn("experiment stopped", "status", status, "error", runErr)
		return
	}
	log.Info("experiment finished",
		"best", result.Best.String(),
		"score", result.Score.Value,
		"evaluations", result.Evaluations,
	)
}

func toLedger(experimentID string, e Evaluation) *store.Evaluation {
	rec := &store.Evaluation{
		ExperimentID: experimentID,
		Candidate:    e.Candidate,
		Params:       e.Params,
		Duration:     e.Duration,
	}
	if e.Failed() {
		rec.Failed = true
		rec.Error = fmt.Sprint(e.Err.Cause)
		return rec
	}
	rec.Score = e.Score.Value
	rec.Components = e.Score.Components
	return rec
}

func fromLedger(r store.Evaluation) Evaluation {
	e := Evaluation{Params: r.Params, Duration: r.Duration, Candidate: r.Candidate}
	if r.Failed {
		e.Err = &simulation.SimulationError{Params: r.Params, Cause: errors.New(r.Error)}
		return e
	}
	e.Score = scoring.Score{Value: r.Score, Components: r.Components}
	return e
}
