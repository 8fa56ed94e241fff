package improvement

import (
	"fmt"
	"sort"
)

// SelectionStrategy picks evaluations from a finished search.
type SelectionStrategy interface {
	Select(evals []Evaluation) ([]Evaluation, error)
	Name() string
}

// TopScoreStrategy keeps the N best scored evaluations. Equal scores are
// ordered by grid position, otherwise they keep their original order.
type TopScoreStrategy struct {
	N int
}

func (s *TopScoreStrategy) Name() string {
	return "top_score"
}

func (s *TopScoreStrategy) Select(evals []Evaluation) ([]Evaluation, error) {
	scored := scoredOnly(evals)
	if len(scored) == 0 {
		return nil, fmt.Errorf("no scored evaluations")
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score.Value != scored[j].Score.Value {
			return scored[i].Score.Value > scored[j].Score.Value
		}
		return scored[i].Candidate < scored[j].Candidate
	})
	n := s.N
	if n <= 0 || n > len(scored) {
		n = len(scored)
	}
	return scored[:n], nil
}

// ParetoStrategy keeps the evaluations whose factors are not dominated by any
// other evaluation. It shows the trade-offs the geometric mean hides.
type ParetoStrategy struct{}

func (s *ParetoStrategy) Name() string {
	return "pareto"
}

func (s *ParetoStrategy) Select(evals []Evaluation) ([]Evaluation, error) {
	scored := scoredOnly(evals)
	if len(scored) == 0 {
		return nil, fmt.Errorf("no scored evaluations")
	}

	front := make([]Evaluation, 0)
	for i, candidate := range scored {
		dominated := false
		for j, other := range scored {
			if i != j && dominates(other, candidate) {
				dominated = true
				break
			}
		}
		if !dominated {
			front = append(front, candidate)
		}
	}
	return front, nil
}

// dominates reports whether a is at least as good as b in every factor and
// strictly better in one.
func dominates(a, b Evaluation) bool {
	fa := a.Score.Components.Slice()
	fb := b.Score.Components.Slice()
	better := false
	for i := range fa {
		if fa[i] < fb[i] {
			return false
		}
		if fa[i] > fb[i] {
			better = true
		}
	}
	return better
}

// SelectBest returns the highest scoring evaluation, the earliest candidate on ties.
func SelectBest(evals []Evaluation) (Evaluation, error) {
	top, err := (&TopScoreStrategy{N: 1}).Select(evals)
	if err != nil {
		return Evaluation{}, err
	}
	return top[0], nil
}

func scoredOnly(evals []Evaluation) []Evaluation {
	out := make([]Evaluation, 0, len(evals))
	for _, e := range evals {
		if !e.Failed() {
			out = append(out, e)
		}
	}
	return out
}
