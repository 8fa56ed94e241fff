package improvement

import (
	"errors"
	"math"
	"testing"

	"github.com/GoSim-25-26J-441/policy-search/internal/scoring"
	"github.com/GoSim-25-26J-441/policy-search/internal/simulation"
	"github.com/GoSim-25-26J-441/policy-search/pkg/models"
)

func scored(c scoring.Components) Evaluation {
	return Evaluation{
		Params: models.DefaultParameters(),
		Score:  scoring.Score{Value: scoring.Combine(c), Components: c},
	}
}

func TestCompareScores(t *testing.T) {
	baseline := scored(scoring.Components{Population: 0.5, Resources: 0.9, Industry: 0.4, Pollution: 0.8, Food: 0.7})
	candidate := scored(scoring.Components{Population: 0.5, Resources: 0.7, Industry: 0.9, Pollution: 0.8, Food: 0.7})

	cmp, err := CompareEvaluations(baseline, candidate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cmp.Improvement || cmp.ScoreDiff <= 0 {
		t.Errorf("expected an improvement, got %+v", cmp)
	}
	if math.Abs(cmp.ScoreDiff-(cmp.CandidateScore-cmp.BaselineScore)) > 1e-15 {
		t.Errorf("score diff %v inconsistent", cmp.ScoreDiff)
	}
	if len(cmp.Factors) != len(scoring.FactorNames) {
		t.Fatalf("expected %d factors, got %d", len(scoring.FactorNames), len(cmp.Factors))
	}
	if cmp.Factors[1].Name != scoring.FactorResources || math.Abs(cmp.Factors[1].Diff+0.2) > 1e-12 {
		t.Errorf("unexpected resources delta %+v", cmp.Factors[1])
	}
	if got := cmp.Largest(); got.Name != scoring.FactorIndustry {
		t.Errorf("expected industry to change most, got %s", got.Name)
	}
	if cmp.Weakest != scoring.FactorPopulation {
		t.Errorf("expected population to hold the candidate down, got %s", cmp.Weakest)
	}
}

func TestCompareSameScoreIsNoImprovement(t *testing.T) {
	e := scored(scoring.Components{Population: 0.5, Resources: 0.5, Industry: 0.5, Pollution: 0.5, Food: 0.5})
	cmp, err := CompareEvaluations(e, e)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cmp.Improvement || cmp.ScoreDiff != 0 {
		t.Errorf("identical runs must not count as an improvement: %+v", cmp)
	}
}

func TestCompareFailedEvaluation(t *testing.T) {
	ok := scored(scoring.Components{Population: 1, Resources: 1, Industry: 1, Pollution: 1, Food: 1})
	failed := Evaluation{
		Params: models.DefaultParameters(),
		Err:    &simulation.SimulationError{Params: models.DefaultParameters(), Cause: errRejected},
	}

	if _, err := CompareEvaluations(failed, ok); !errors.Is(err, errRejected) {
		t.Errorf("expected the baseline failure, got %v", err)
	}
	if _, err := CompareEvaluations(ok, failed); !errors.Is(err, errRejected) {
		t.Errorf("expected the candidate failure, got %v", err)
	}
}
