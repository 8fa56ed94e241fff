package improvement

import (
	"context"
	"errors"
	"testing"

	"github.com/GoSim-25-26J-441/policy-search/internal/scoring"
	"github.com/GoSim-25-26J-441/policy-search/pkg/models"
)

func cmaesSettings() EvolutionSettings {
	s := testSettings(StrategyCMAES)
	s.MaxGenerations = 5
	s.Convergence = &ConvergenceConfig{Tol: 0}
	return s
}

func TestCMAESOptimize(t *testing.T) {
	s := cmaesSettings()
	var generations []int
	s.Progress = func(state SearchState) { generations = append(generations, state.Generation) }
	opt, err := NewCMAES(s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	engine := &fakeEngine{}
	res, err := opt.Optimize(context.Background(), newFakeObjective(engine))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Found {
		t.Fatal("expected a best vector")
	}
	if res.Generations < 1 || res.Generations > s.MaxGenerations {
		t.Errorf("expected between 1 and %d generations, got %d", s.MaxGenerations, res.Generations)
	}
	if len(generations) != res.Generations {
		t.Errorf("expected %d progress calls, got %v", res.Generations, generations)
	}
	for i, g := range generations {
		if g != i+1 {
			t.Fatalf("progress generations must be 1-indexed, got %v", generations)
		}
	}
	if res.Evaluations != engine.callCount() {
		t.Errorf("evaluations %d do not match engine calls %d", res.Evaluations, engine.callCount())
	}
	for _, p := range engine.seen {
		if !models.DefaultBounds().Contains(p) {
			t.Fatalf("simulated out-of-bounds vector %v", p)
		}
	}
}

func TestCMAESReproducible(t *testing.T) {
	run := func() *OptimizationResult {
		opt, _ := NewCMAES(cmaesSettings())
		res, err := opt.Optimize(context.Background(), newFakeObjective(&fakeEngine{}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return res
	}
	a, b := run(), run()
	if a.Best != b.Best || a.Evaluations != b.Evaluations {
		t.Errorf("same seed gave different results: %v (%d) vs %v (%d)", a.Best, a.Evaluations, b.Best, b.Evaluations)
	}
}

func TestCMAESInvalidResultAborts(t *testing.T) {
	engine := &fakeEngine{broken: func(models.ParameterVector) bool { return true }}
	opt, _ := NewCMAES(cmaesSettings())

	_, err := opt.Optimize(context.Background(), newFakeObjective(engine))
	var invalid *scoring.InvalidResultError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected *scoring.InvalidResultError, got %v", err)
	}
}

func TestCMAESToleratesFailures(t *testing.T) {
	engine := &fakeEngine{fail: func(p models.ParameterVector) bool { return p.DesiredChildren > 4 }}
	opt, _ := NewCMAES(cmaesSettings())

	res, err := opt.Optimize(context.Background(), newFakeObjective(engine))
	if err != nil {
		t.Fatalf("engine failures must not abort the search: %v", err)
	}
	if res.Found && res.Best.DesiredChildren > 4 {
		t.Errorf("a rejected vector became the best: %v", res.Best)
	}
}

func TestNewCMAESRejects(t *testing.T) {
	s := cmaesSettings()
	s.MaxGenerations = 0
	if _, err := NewCMAES(s); err == nil {
		t.Error("expected error for zero generations")
	}
	s = cmaesSettings()
	s.Bounds[0] = models.Bounds{Lower: 2, Upper: 1}
	if _, err := NewCMAES(s); err == nil {
		t.Error("expected error for inverted bounds")
	}
}
