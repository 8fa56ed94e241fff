package improvement

import (
	"github.com/GoSim-25-26J-441/policy-search/internal/scoring"
	"github.com/GoSim-25-26J-441/policy-search/pkg/models"
)

// SearchState is the running record of one search. It is owned by a single
// search loop and handed to callbacks by value.
type SearchState struct {
	Best        models.ParameterVector
	BestScore   scoring.Score
	Found       bool
	Evaluations int
	Failures    int
	// Generation is 1-indexed for evolutionary searches and zero for grid search.
	Generation int
}

// Observe counts eval and keeps it if it strictly improves the best score.
// It reports whether the best changed.
func (s *SearchState) Observe(eval Evaluation) bool {
	s.Evaluations++
	if eval.Failed() {
		s.Failures++
		return false
	}
	return s.Consider(eval.Params, eval.Score)
}

// Consider replaces the best only on strict improvement, so among equal
// scores the first one seen wins.
func (s *SearchState) Consider(params models.ParameterVector, score scoring.Score) bool {
	if s.Found && !(score.Value > s.BestScore.Value) {
		return false
	}
	s.Best = params
	s.BestScore = score
	s.Found = true
	return true
}
