// Package report renders search experiments as an xlsx workbook and an HTML
// summary.
package report

import (
	"errors"
	"fmt"
	"os"

	"github.com/montanaflynn/stats"

	"github.com/GoSim-25-26J-441/policy-search/internal/improvement"
	"github.com/GoSim-25-26J-441/policy-search/internal/store"
	"github.com/GoSim-25-26J-441/policy-search/pkg/config"
	"github.com/GoSim-25-26J-441/policy-search/pkg/logger"
)

// ErrNoScores is returned when every evaluation failed.
var ErrNoScores = errors.New("no scored evaluations")

const defaultTitle = "Policy search report"

// Report is everything known about one experiment.
type Report struct {
	Title       string
	Experiment  *store.Experiment
	Evaluations []improvement.Evaluation
	Comparison  *improvement.ComparisonReport
	// Top is the number of rows on the top-scores sheet, all when zero.
	Top int
}

// Summary is the distribution of scores over an experiment.
type Summary struct {
	Evaluations int
	Failures    int
	Min         float64
	Median      float64
	Mean        float64
	P90         float64
	Max         float64
}

// Summarize computes score statistics over the scored evaluations.
func Summarize(evals []improvement.Evaluation) (Summary, error) {
	s := Summary{Evaluations: len(evals)}
	scores := make([]float64, 0, len(evals))
	for _, e := range evals {
		if e.Failed() {
			s.Failures++
			continue
		}
		scores = append(scores, e.Score.Value)
	}
	if len(scores) == 0 {
		return s, ErrNoScores
	}

	var err error
	if s.Min, err = stats.Min(scores); err != nil {
		return s, err
	}
	if s.Max, err = stats.Max(scores); err != nil {
		return s, err
	}
	if s.Mean, err = stats.Mean(scores); err != nil {
		return s, err
	}
	if s.Median, err = stats.Median(scores); err != nil {
		return s, err
	}
	if s.P90, err = stats.Percentile(scores, 90); err != nil {
		return s, err
	}
	return s, nil
}

// Write renders the outputs named in cfg. Empty paths are skipped.
func Write(cfg config.ReportConfig, r *Report) error {
	if r.Top == 0 {
		r.Top = cfg.Top
	}
	if cfg.XLSX != "" {
		f, err := r.Workbook()
		if err != nil {
			return fmt.Errorf("failed to build workbook: %w", err)
		}
		err = f.SaveAs(cfg.XLSX)
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
		if err != nil {
			return fmt.Errorf("failed to write %s: %w", cfg.XLSX, err)
		}
		logger.Info("report written", "path", cfg.XLSX)
	}
	if cfg.HTML != "" {
		if err := os.WriteFile(cfg.HTML, r.HTML(), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", cfg.HTML, err)
		}
		logger.Info("report written", "path", cfg.HTML)
	}
	return nil
}

func (r *Report) title() string {
	if r.Title != "" {
		return r.Title
	}
	return defaultTitle
}

// best returns the highest scoring evaluation.
func (r *Report) best() (improvement.Evaluation, bool) {
	best, err := improvement.SelectBest(r.Evaluations)
	if err != nil {
		return improvement.Evaluation{}, false
	}
	return best, true
}
