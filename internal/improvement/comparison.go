package improvement

import (
	"fmt"

	"github.com/GoSim-25-26J-441/policy-search/internal/scoring"
)

// FactorDelta is the change of one quality-of-life factor between two runs.
type FactorDelta struct {
	Name      string
	Baseline  float64
	Candidate float64
	Diff      float64 // candidate - baseline
}

// ScoreComparison compares a candidate policy against a baseline run.
type ScoreComparison struct {
	BaselineScore  float64
	CandidateScore float64
	ScoreDiff      float64 // candidate - baseline
	Improvement    bool
	Factors        []FactorDelta
	// Weakest is the factor holding the candidate's score down.
	Weakest string
}

// CompareEvaluations compares two scored evaluations factor by factor.
func CompareEvaluations(baseline, candidate Evaluation) (*ScoreComparison, error) {
	if baseline.Failed() {
		return nil, fmt.Errorf("baseline was not scored: %w", baseline.Err)
	}
	if candidate.Failed() {
		return nil, fmt.Errorf("candidate was not scored: %w", candidate.Err)
	}
	return CompareScores(baseline.Score, candidate.Score), nil
}

// CompareScores compares two scores factor by factor.
func CompareScores(baseline, candidate scoring.Score) *ScoreComparison {
	base := baseline.Components.Slice()
	cand := candidate.Components.Slice()
	factors := make([]FactorDelta, len(scoring.FactorNames))
	for i, name := range scoring.FactorNames {
		factors[i] = FactorDelta{
			Name:      name,
			Baseline:  base[i],
			Candidate: cand[i],
			Diff:      cand[i] - base[i],
		}
	}
	weakest, _ := candidate.Components.Weakest()
	return &ScoreComparison{
		BaselineScore:  baseline.Value,
		CandidateScore: candidate.Value,
		ScoreDiff:      candidate.Value - baseline.Value,
		Improvement:    candidate.Value > baseline.Value,
		Factors:        factors,
		Weakest:        weakest,
	}
}

// Largest returns the factor with the largest absolute change.
func (c *ScoreComparison) Largest() FactorDelta {
	var best FactorDelta
	for i, f := range c.Factors {
		if i == 0 || abs(f.Diff) > abs(best.Diff) {
			best = f
		}
	}
	return best
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
