package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/GoSim-25-26J-441/policy-search/pkg/models"
	"github.com/GoSim-25-26J-441/policy-search/pkg/utils"
)

type experimentRecord struct {
	exp   Experiment
	evals []Evaluation
}

// MemoryStore is a Store that lives for the length of the process.
type MemoryStore struct {
	mu          sync.RWMutex
	experiments map[string]*experimentRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		experiments: make(map[string]*experimentRecord),
	}
}

func (s *MemoryStore) CreateExperiment(_ context.Context, kind, cfgSummary string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := utils.GenerateExperimentID(kind)
	if _, exists := s.experiments[id]; exists {
		return "", fmt.Errorf("experiment already exists: %s", id)
	}
	s.experiments[id] = &experimentRecord{
		exp: Experiment{
			ID:        id,
			Kind:      kind,
			Config:    cfgSummary,
			Status:    StatusRunning,
			CreatedAt: fromUnixMs(nowUnixMs()),
		},
	}
	return id, nil
}

func (s *MemoryStore) GetExperiment(_ context.Context, id string) (*Experiment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.experiments[id]
	if !ok {
		return nil, fmt.Errorf("experiment %s: %w", id, ErrNotFound)
	}
	return copyExperiment(rec.exp), nil
}

// ListExperiments returns the newest experiments first.
func (s *MemoryStore) ListExperiments(_ context.Context, limit int) ([]*Experiment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	out := make([]*Experiment, 0, len(s.experiments))
	for _, rec := range s.experiments {
		out = append(out, copyExperiment(rec.exp))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) RecordEvaluation(_ context.Context, eval *Evaluation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.experiments[eval.ExperimentID]
	if !ok {
		return fmt.Errorf("experiment %s: %w", eval.ExperimentID, ErrNotFound)
	}
	if eval.ID == "" {
		eval.ID = utils.GenerateEvaluationID()
	}
	eval.Seq = len(rec.evals) + 1
	eval.CreatedAt = fromUnixMs(nowUnixMs())
	rec.evals = append(rec.evals, *eval)
	return nil
}

func (s *MemoryStore) ListEvaluations(_ context.Context, experimentID string) ([]Evaluation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.experiments[experimentID]
	if !ok {
		return nil, fmt.Errorf("experiment %s: %w", experimentID, ErrNotFound)
	}
	out := make([]Evaluation, len(rec.evals))
	copy(out, rec.evals)
	return out, nil
}

func (s *MemoryStore) Best(_ context.Context, experimentID string) (*Evaluation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.experiments[experimentID]
	if !ok {
		return nil, fmt.Errorf("experiment %s: %w", experimentID, ErrNotFound)
	}
	var best *Evaluation
	for i := range rec.evals {
		e := &rec.evals[i]
		if e.Failed {
			continue
		}
		if best == nil || better(e, best) {
			best = e
		}
	}
	if best == nil {
		return nil, fmt.Errorf("no scored evaluation in %s: %w", experimentID, ErrNotFound)
	}
	out := *best
	return &out, nil
}

func (s *MemoryStore) FinishExperiment(_ context.Context, id string, status Status, best *models.ParameterVector, score float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.experiments[id]
	if !ok {
		return fmt.Errorf("experiment %s: %w", id, ErrNotFound)
	}
	rec.exp.Status = status
	rec.exp.FinishedAt = fromUnixMs(nowUnixMs())
	if best != nil {
		p := *best
		rec.exp.Best = &p
		rec.exp.BestScore = score
	}
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}

func copyExperiment(e Experiment) *Experiment {
	out := e
	if e.Best != nil {
		p := *e.Best
		out.Best = &p
	}
	return &out
}
