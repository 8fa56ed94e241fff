// Package store keeps the ledger of search experiments and every evaluation
// they make, in memory or in a SQL database.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/GoSim-25-26J-441/policy-search/internal/scoring"
	"github.com/GoSim-25-26J-441/policy-search/pkg/config"
	"github.com/GoSim-25-26J-441/policy-search/pkg/models"
)

// ErrNotFound is returned for an unknown experiment, or by Best when an
// experiment has no scored evaluation.
var ErrNotFound = errors.New("not found")

// Status is the lifecycle state of an experiment.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Experiment is one search run.
type Experiment struct {
	ID     string
	Kind   string
	Config string
	Status Status
	// Best is nil until the experiment finishes with a scored candidate.
	Best       *models.ParameterVector
	BestScore  float64
	CreatedAt  time.Time
	FinishedAt time.Time
}

// Evaluation is one simulated vector as written to the ledger.
type Evaluation struct {
	ID           string
	ExperimentID string
	Seq          int
	// Candidate is the 1-based grid position, zero outside grid searches.
	Candidate    int
	Params       models.ParameterVector
	Score        float64
	Components   scoring.Components
	Failed       bool
	Error        string
	Duration     time.Duration
	CreatedAt    time.Time
}

// Store is the experiment ledger.
type Store interface {
	// CreateExperiment registers a running experiment and returns its id.
	CreateExperiment(ctx context.Context, kind, cfgSummary string) (string, error)
	GetExperiment(ctx context.Context, id string) (*Experiment, error)
	ListExperiments(ctx context.Context, limit int) ([]*Experiment, error)
	// RecordEvaluation appends eval to its experiment, filling ID, Seq and CreatedAt.
	RecordEvaluation(ctx context.Context, eval *Evaluation) error
	// ListEvaluations returns the evaluations of an experiment in Seq order.
	ListEvaluations(ctx context.Context, experimentID string) ([]Evaluation, error)
	// Best returns the highest scored evaluation. Ties go to the lowest
	// candidate position, then the lowest Seq.
	Best(ctx context.Context, experimentID string) (*Evaluation, error)
	FinishExperiment(ctx context.Context, id string, status Status, best *models.ParameterVector, score float64) error
	Close() error
}

// Open returns the store named by cfg.
func Open(cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite", "postgres":
		s, err := NewSQLStore(cfg.Driver, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, &config.ConfigurationError{
			Field:  "store.driver",
			Reason: fmt.Sprintf("must be memory, sqlite, or postgres, got %q", cfg.Driver),
		}
	}
}

// better reports whether a outranks b: higher score, then earlier candidate,
// then earlier Seq. Parallel grids record out of order, so Seq alone is not
// the enumeration order.
func better(a, b *Evaluation) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.Candidate != b.Candidate {
		return a.Candidate < b.Candidate
	}
	return a.Seq < b.Seq
}

func nowUnixMs() int64 {
	return time.Now().UTC().UnixMilli()
}

func fromUnixMs(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
