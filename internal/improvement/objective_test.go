package improvement

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/GoSim-25-26J-441/policy-search/internal/scoring"
	"github.com/GoSim-25-26J-441/policy-search/internal/simulation"
	"github.com/GoSim-25-26J-441/policy-search/pkg/models"
)

func TestObjectiveEvaluate(t *testing.T) {
	engine := &fakeEngine{iopc: func(models.ParameterVector) float64 { return 450 }}
	obj := newFakeObjective(engine)

	eval, err := obj.Evaluate(context.Background(), models.DefaultParameters())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if eval.Failed() {
		t.Fatalf("expected scored evaluation, got failure %v", eval.Err)
	}
	if math.Abs(eval.Score.Value-scoreOf(450)) > 1e-12 {
		t.Errorf("expected score %v, got %v", scoreOf(450), eval.Score.Value)
	}
	if eval.Value() != -eval.Score.Value {
		t.Errorf("expected value to be the negated score, got %v", eval.Value())
	}
	if eval.Params != models.DefaultParameters() {
		t.Errorf("evaluation lost its parameters: %v", eval.Params)
	}
}

func TestObjectivePenaltyOnRejectedVector(t *testing.T) {
	engine := &fakeEngine{fail: func(models.ParameterVector) bool { return true }}
	obj := newFakeObjective(engine)

	v, err := obj.Value(context.Background(), models.DefaultParameters())
	if err != nil {
		t.Fatalf("engine failures must not surface as errors: %v", err)
	}
	if v != PenaltyValue {
		t.Fatalf("expected penalty %v, got %v", PenaltyValue, v)
	}

	eval, _ := obj.Evaluate(context.Background(), models.DefaultParameters())
	if !eval.Failed() {
		t.Fatal("expected failed evaluation")
	}
	if !errors.Is(eval.Err, errRejected) {
		t.Errorf("expected the engine error as cause, got %v", eval.Err)
	}
	if eval.Err.Params != models.DefaultParameters() {
		t.Errorf("simulation error should carry the vector, got %v", eval.Err.Params)
	}
}

func TestObjectiveInvalidResultPropagates(t *testing.T) {
	engine := &fakeEngine{broken: func(models.ParameterVector) bool { return true }}
	obj := newFakeObjective(engine)

	_, err := obj.Value(context.Background(), models.DefaultParameters())
	var invalid *scoring.InvalidResultError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected *scoring.InvalidResultError, got %T: %v", err, err)
	}
}

func TestObjectiveRecorder(t *testing.T) {
	engine := &fakeEngine{fail: func(p models.ParameterVector) bool { return p.PolicyYear > 2000 }}
	var recorded []Evaluation
	obj := newFakeObjective(engine).WithRecorder(RecorderFunc(func(_ context.Context, e Evaluation) error {
		recorded = append(recorded, e)
		return errors.New("ledger unavailable")
	}))

	ok := models.DefaultParameters()
	bad := ok
	bad.PolicyYear = 2010
	if _, err := obj.Evaluate(context.Background(), ok); err != nil {
		t.Fatalf("recorder errors must not fail the evaluation: %v", err)
	}
	if _, err := obj.Evaluate(context.Background(), bad); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(recorded) != 2 {
		t.Fatalf("expected 2 recorded evaluations, got %d", len(recorded))
	}
	if recorded[0].Failed() || !recorded[1].Failed() {
		t.Errorf("unexpected recorded outcomes: %+v", recorded)
	}
}

func TestObjectiveInspectReturnsSeries(t *testing.T) {
	obj := newFakeObjective(&fakeEngine{})
	eval, series, err := obj.Inspect(context.Background(), models.DefaultParameters())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if series == nil || len(series.IndustrialOutputPerCapita) == 0 {
		t.Fatal("expected the simulated series")
	}
	if eval.Score.Statistics.MeanIOPC != series.IndustrialOutputPerCapita[0] {
		t.Errorf("score statistics do not match series")
	}

	failing := newFakeObjective(&fakeEngine{fail: func(models.ParameterVector) bool { return true }})
	_, series, err = failing.Inspect(context.Background(), models.DefaultParameters())
	if err != nil || series != nil {
		t.Errorf("expected nil series and no error for a rejected vector, got %v, %v", series, err)
	}
}

func TestObjectiveCancelledContext(t *testing.T) {
	recorded := 0
	obj := newFakeObjective(&fakeEngine{}).WithRecorder(RecorderFunc(func(context.Context, Evaluation) error {
		recorded++
		return nil
	}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	eval, err := obj.Evaluate(ctx, models.DefaultParameters())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	var simErr *simulation.SimulationError
	if errors.As(err, &simErr) || eval.Failed() {
		t.Errorf("an interrupted run is not an engine failure, got %v", err)
	}
	if recorded != 0 {
		t.Errorf("expected nothing recorded, got %d", recorded)
	}
}

func TestObjectiveEvaluateCandidate(t *testing.T) {
	var recorded []Evaluation
	obj := newFakeObjective(&fakeEngine{}).WithRecorder(RecorderFunc(func(_ context.Context, e Evaluation) error {
		recorded = append(recorded, e)
		return nil
	}))

	eval, err := obj.EvaluateCandidate(context.Background(), 4, models.DefaultParameters())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if eval.Candidate != 4 || len(recorded) != 1 || recorded[0].Candidate != 4 {
		t.Errorf("expected candidate 4 recorded, got %d and %+v", eval.Candidate, recorded)
	}
}
