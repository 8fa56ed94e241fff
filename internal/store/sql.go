package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"  // PostgreSQL driver
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/GoSim-25-26J-441/policy-search/internal/scoring"
	"github.com/GoSim-25-26J-441/policy-search/pkg/models"
	"github.com/GoSim-25-26J-441/policy-search/pkg/utils"
)

const schema = `
CREATE TABLE IF NOT EXISTS experiments (
	id TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	config TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	best_params TEXT NOT NULL DEFAULT '',
	best_score DOUBLE PRECISION NOT NULL DEFAULT 0,
	created_at BIGINT NOT NULL,
	finished_at BIGINT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS evaluations (
	id TEXT PRIMARY KEY,
	experiment_id TEXT NOT NULL REFERENCES experiments(id),
	seq INTEGER NOT NULL,
	candidate INTEGER NOT NULL DEFAULT 0,
	pyear DOUBLE PRECISION NOT NULL,
	ppgf2 DOUBLE PRECISION NOT NULL,
	alai2 DOUBLE PRECISION NOT NULL,
	hsid DOUBLE PRECISION NOT NULL,
	imti DOUBLE PRECISION NOT NULL,
	dcfsn DOUBLE PRECISION NOT NULL,
	score DOUBLE PRECISION NOT NULL,
	f_population DOUBLE PRECISION NOT NULL,
	f_nrfr DOUBLE PRECISION NOT NULL,
	f_iopc DOUBLE PRECISION NOT NULL,
	f_ppolx DOUBLE PRECISION NOT NULL,
	f_fpc DOUBLE PRECISION NOT NULL,
	failed BOOLEAN NOT NULL,
	error TEXT NOT NULL DEFAULT '',
	duration_ms BIGINT NOT NULL,
	created_at BIGINT NOT NULL,
	UNIQUE (experiment_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_evaluations_experiment ON evaluations(experiment_id, seq);
`

type experimentRow struct {
	ID         string  `db:"id"`
	Kind       string  `db:"kind"`
	Config     string  `db:"config"`
	Status     string  `db:"status"`
	BestParams string  `db:"best_params"`
	BestScore  float64 `db:"best_score"`
	CreatedAt  int64   `db:"created_at"`
	FinishedAt int64   `db:"finished_at"`
}

type evaluationRow struct {
	ID           string  `db:"id"`
	ExperimentID string  `db:"experiment_id"`
	Seq          int     `db:"seq"`
	Candidate    int     `db:"candidate"`
	PYear        float64 `db:"pyear"`
	PPGF2        float64 `db:"ppgf2"`
	ALAI2        float64 `db:"alai2"`
	HSID         float64 `db:"hsid"`
	IMTI         float64 `db:"imti"`
	DCFSN        float64 `db:"dcfsn"`
	Score        float64 `db:"score"`
	FPopulation  float64 `db:"f_population"`
	FNRFR        float64 `db:"f_nrfr"`
	FIOPC        float64 `db:"f_iopc"`
	FPPOLX       float64 `db:"f_ppolx"`
	FFPC         float64 `db:"f_fpc"`
	Failed       bool    `db:"failed"`
	Error        string  `db:"error"`
	DurationMs   int64   `db:"duration_ms"`
	CreatedAt    int64   `db:"created_at"`
}

const evaluationColumns = `id, experiment_id, seq, candidate, pyear, ppgf2, alai2, hsid, imti, dcfsn,
	score, f_population, f_nrfr, f_iopc, f_ppolx, f_fpc, failed, error, duration_ms, created_at`

// SQLStore is a Store backed by SQLite or PostgreSQL.
type SQLStore struct {
	// serializes sequence allocation
	mu sync.Mutex
	db *sqlx.DB
}

// NewSQLStore opens the database and creates the schema if needed. driver is
// "sqlite" or "postgres".
func NewSQLStore(driver, dsn string) (*SQLStore, error) {
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", driver, err)
	}
	if driver == "sqlite" {
		db.SetMaxOpenConns(1)
	}
	return newSQLStore(context.Background(), db)
}

func newSQLStore(ctx context.Context, db *sqlx.DB) (*SQLStore, error) {
	s := &SQLStore{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLStore) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) CreateExperiment(ctx context.Context, kind, cfgSummary string) (string, error) {
	id := utils.GenerateExperimentID(kind)
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO experiments (id, kind, config, status, created_at)
		VALUES (?, ?, ?, ?, ?)
	`), id, kind, cfgSummary, string(StatusRunning), nowUnixMs())
	if err != nil {
		return "", fmt.Errorf("insert experiment: %w", err)
	}
	return id, nil
}

func (s *SQLStore) GetExperiment(ctx context.Context, id string) (*Experiment, error) {
	var row experimentRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(`SELECT * FROM experiments WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("experiment %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get experiment: %w", err)
	}
	return row.experiment()
}

// ListExperiments returns the newest experiments first.
func (s *SQLStore) ListExperiments(ctx context.Context, limit int) ([]*Experiment, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []experimentRow
	err := s.db.SelectContext(ctx, &rows, s.db.Rebind(`
		SELECT * FROM experiments ORDER BY created_at DESC, id ASC LIMIT ?
	`), limit)
	if err != nil {
		return nil, fmt.Errorf("list experiments: %w", err)
	}
	out := make([]*Experiment, 0, len(rows))
	for _, r := range rows {
		exp, err := r.experiment()
		if err != nil {
			return nil, err
		}
		out = append(out, exp)
	}
	return out, nil
}

func (s *SQLStore) RecordEvaluation(ctx context.Context, eval *Evaluation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.GetContext(ctx, &exists, tx.Rebind(`SELECT COUNT(*) FROM experiments WHERE id = ?`), eval.ExperimentID)
	if err != nil {
		return fmt.Errorf("check experiment: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("experiment %s: %w", eval.ExperimentID, ErrNotFound)
	}

	var seq int
	err = tx.GetContext(ctx, &seq, tx.Rebind(`
		SELECT COALESCE(MAX(seq), 0) + 1 FROM evaluations WHERE experiment_id = ?
	`), eval.ExperimentID)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	if eval.ID == "" {
		eval.ID = utils.GenerateEvaluationID()
	}
	eval.Seq = seq
	row := newEvaluationRow(eval, nowUnixMs())
	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO evaluations (`+evaluationColumns+`)
		VALUES (:id, :experiment_id, :seq, :candidate, :pyear, :ppgf2, :alai2, :hsid, :imti, :dcfsn,
			:score, :f_population, :f_nrfr, :f_iopc, :f_ppolx, :f_fpc, :failed, :error, :duration_ms, :created_at)
	`, row)
	if err != nil {
		return fmt.Errorf("insert evaluation: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	eval.CreatedAt = fromUnixMs(row.CreatedAt)
	return nil
}

func (s *SQLStore) ListEvaluations(ctx context.Context, experimentID string) ([]Evaluation, error) {
	if _, err := s.GetExperiment(ctx, experimentID); err != nil {
		return nil, err
	}
	var rows []evaluationRow
	err := s.db.SelectContext(ctx, &rows, s.db.Rebind(`
		SELECT `+evaluationColumns+` FROM evaluations WHERE experiment_id = ? ORDER BY seq
	`), experimentID)
	if err != nil {
		return nil, fmt.Errorf("list evaluations: %w", err)
	}
	out := make([]Evaluation, len(rows))
	for i, r := range rows {
		out[i] = r.evaluation()
	}
	return out, nil
}

func (s *SQLStore) Best(ctx context.Context, experimentID string) (*Evaluation, error) {
	if _, err := s.GetExperiment(ctx, experimentID); err != nil {
		return nil, err
	}
	var row evaluationRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(`
		SELECT `+evaluationColumns+` FROM evaluations
		WHERE experiment_id = ? AND failed = ?
		ORDER BY score DESC, candidate ASC, seq ASC LIMIT 1
	`), experimentID, false)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no scored evaluation in %s: %w", experimentID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("best evaluation: %w", err)
	}
	eval := row.evaluation()
	return &eval, nil
}

func (s *SQLStore) FinishExperiment(ctx context.Context, id string, status Status, best *models.ParameterVector, score float64) error {
	bestParams := ""
	if best != nil {
		data, err := json.Marshal(best)
		if err != nil {
			return fmt.Errorf("encode best parameters: %w", err)
		}
		bestParams = string(data)
	} else {
		score = 0
	}
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`
		UPDATE experiments
		SET status = ?, best_params = ?, best_score = ?, finished_at = ?
		WHERE id = ?
	`), string(status), bestParams, score, nowUnixMs(), id)
	if err != nil {
		return fmt.Errorf("finish experiment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish experiment: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("experiment %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r experimentRow) experiment() (*Experiment, error) {
	exp := &Experiment{
		ID:         r.ID,
		Kind:       r.Kind,
		Config:     r.Config,
		Status:     Status(r.Status),
		BestScore:  r.BestScore,
		CreatedAt:  fromUnixMs(r.CreatedAt),
		FinishedAt: fromUnixMs(r.FinishedAt),
	}
	if r.BestParams != "" {
		var p models.ParameterVector
		if err := json.Unmarshal([]byte(r.BestParams), &p); err != nil {
			return nil, fmt.Errorf("decode best parameters of %s: %w", r.ID, err)
		}
		exp.Best = &p
	}
	return exp, nil
}

func newEvaluationRow(e *Evaluation, createdAt int64) evaluationRow {
	return evaluationRow{
		ID:           e.ID,
		ExperimentID: e.ExperimentID,
		Seq:          e.Seq,
		Candidate:    e.Candidate,
		PYear:        e.Params.PolicyYear,
		PPGF2:        e.Params.PollutionGeneration,
		ALAI2:        e.Params.AgriculturalInputLifetime,
		HSID:         e.Params.HealthServiceDelay,
		IMTI:         e.Params.MaterialToxicity,
		DCFSN:        e.Params.DesiredChildren,
		Score:        e.Score,
		FPopulation:  e.Components.Population,
		FNRFR:        e.Components.Resources,
		FIOPC:        e.Components.Industry,
		FPPOLX:       e.Components.Pollution,
		FFPC:         e.Components.Food,
		Failed:       e.Failed,
		Error:        e.Error,
		DurationMs:   e.Duration.Milliseconds(),
		CreatedAt:    createdAt,
	}
}

func (r evaluationRow) evaluation() Evaluation {
	return Evaluation{
		ID:           r.ID,
		ExperimentID: r.ExperimentID,
		Seq:          r.Seq,
		Candidate:    r.Candidate,
		Params: models.ParameterVector{
			PolicyYear:                r.PYear,
			PollutionGeneration:       r.PPGF2,
			AgriculturalInputLifetime: r.ALAI2,
			HealthServiceDelay:        r.HSID,
			MaterialToxicity:          r.IMTI,
			DesiredChildren:           r.DCFSN,
		},
		Score: r.Score,
		Components: scoring.Components{
			Population: r.FPopulation,
			Resources:  r.FNRFR,
			Industry:   r.FIOPC,
			Pollution:  r.FPPOLX,
			Food:       r.FFPC,
		},
		Failed:    r.Failed,
		Error:     r.Error,
		Duration:  time.Duration(r.DurationMs) * time.Millisecond,
		CreatedAt: fromUnixMs(r.CreatedAt),
	}
}
