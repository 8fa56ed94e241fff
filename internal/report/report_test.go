package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/GoSim-25-26J-441/policy-search/internal/improvement"
	"github.com/GoSim-25-26J-441/policy-search/internal/scoring"
	"github.com/GoSim-25-26J-441/policy-search/internal/simulation"
	"github.com/GoSim-25-26J-441/policy-search/internal/store"
	"github.com/GoSim-25-26J-441/policy-search/pkg/config"
	"github.com/GoSim-25-26J-441/policy-search/pkg/models"
)

func scoredAt(year, value float64) improvement.Evaluation {
	p := models.DefaultParameters()
	p.PolicyYear = year
	c := scoring.Components{Population: value, Resources: value, Industry: value, Pollution: value, Food: value}
	return improvement.Evaluation{
		Params:   p,
		Score:    scoring.Score{Value: scoring.Combine(c), Components: c},
		Duration: 20 * time.Millisecond,
	}
}

func failedAt(year float64) improvement.Evaluation {
	p := models.DefaultParameters()
	p.PolicyYear = year
	return improvement.Evaluation{
		Params: p,
		Err:    &simulation.SimulationError{Params: p, Cause: os.ErrDeadlineExceeded},
	}
}

// tenScores has scores 0.1 to 1.0 and one failure.
func tenScores() []improvement.Evaluation {
	values := []float64{0.3, 0.1, 0.2, 0.5, 0.4, 0.6, 0.9, 0.8, 0.7, 1.0}
	evals := make([]improvement.Evaluation, 0, len(values)+1)
	for i, v := range values {
		evals = append(evals, scoredAt(1980+float64(i), v))
	}
	return append(evals, failedAt(2050))
}

func series(n int) *models.SimulationResult {
	res := &models.SimulationResult{SubsistenceFood: 230}
	for i := 0; i < n; i++ {
		res.Time = append(res.Time, 1900+float64(i))
		res.Population = append(res.Population, 4e9)
		res.NonRenewableFraction = append(res.NonRenewableFraction, 1-float64(i)/float64(n))
		res.IndustrialOutputPerCapita = append(res.IndustrialOutputPerCapita, 400)
		res.PollutionIndex = append(res.PollutionIndex, 0.5)
		res.FoodPerCapita = append(res.FoodPerCapita, 600)
	}
	return res
}

func comparison(t *testing.T) *improvement.ComparisonReport {
	baseline := scoredAt(1975, 0.4)
	candidate := scoredAt(2000, 0.7)
	cmp, err := improvement.CompareEvaluations(baseline, candidate)
	require.NoError(t, err)
	return &improvement.ComparisonReport{
		ExperimentID:    "run-1",
		Baseline:        baseline,
		Candidate:       candidate,
		BaselineSeries:  series(11),
		CandidateSeries: series(11),
		Comparison:      cmp,
	}
}

func TestSummarize(t *testing.T) {
	s, err := Summarize(tenScores())
	require.NoError(t, err)

	assert.Equal(t, 11, s.Evaluations)
	assert.Equal(t, 1, s.Failures)
	assert.InDelta(t, 0.1, s.Min, 1e-12)
	assert.InDelta(t, 1.0, s.Max, 1e-12)
	assert.InDelta(t, 0.55, s.Median, 1e-12)
	assert.InDelta(t, 0.55, s.Mean, 1e-12)
	assert.InDelta(t, 0.9, s.P90, 1e-12)
}

func TestSummarizeNoScores(t *testing.T) {
	s, err := Summarize([]improvement.Evaluation{failedAt(1975)})
	assert.ErrorIs(t, err, ErrNoScores)
	assert.Equal(t, 1, s.Failures)
}

func TestWorkbook(t *testing.T) {
	r := &Report{
		Experiment: &store.Experiment{
			ID:     "evolve-1",
			Kind:   "evolve",
			Status: store.StatusCompleted,
		},
		Evaluations: tenScores(),
		Comparison:  comparison(t),
		Top:         3,
	}

	f, err := r.Workbook()
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t,
		[]string{SheetSummary, SheetEvaluations, SheetTop, SheetPareto, SheetComparison, SheetBaseline, SheetCandidate},
		f.GetSheetList())

	rows, err := f.GetRows(SheetEvaluations)
	require.NoError(t, err)
	require.Len(t, rows, 12)
	assert.Equal(t, "seq", rows[0][0])
	assert.Equal(t, "pyear", rows[0][1])
	assert.Equal(t, "score", rows[0][7])
	assert.Equal(t, "TRUE", rows[11][13])

	top, err := f.GetRows(SheetTop)
	require.NoError(t, err)
	require.Len(t, top, 4)
	assert.Equal(t, "1989", top[1][1], "highest score first")

	// equal factors everywhere: only the best is undominated
	pareto, err := f.GetRows(SheetPareto)
	require.NoError(t, err)
	assert.Len(t, pareto, 2)

	cmp, err := f.GetRows(SheetComparison)
	require.NoError(t, err)
	require.Len(t, cmp, 1+len(scoring.FactorNames)+1)
	assert.Equal(t, "score", cmp[len(cmp)-1][0])

	candidate, err := f.GetRows(SheetCandidate)
	require.NoError(t, err)
	require.Len(t, candidate, 12)
	assert.Equal(t, "time", candidate[0][0])
	assert.Equal(t, models.SeriesNRFR, candidate[0][1])
	assert.Equal(t, "0.25", candidate[1][10], "population scaled onto the chart axis")
}

func TestWorkbookWithoutComparison(t *testing.T) {
	f, err := (&Report{Evaluations: []improvement.Evaluation{failedAt(1975)}}).Workbook()
	require.NoError(t, err)
	defer f.Close()

	// nothing scored: no selection sheets
	assert.Equal(t, []string{SheetSummary, SheetEvaluations}, f.GetSheetList())
}

func TestMarkdownAndHTML(t *testing.T) {
	r := &Report{
		Title:       "Sustainable policies",
		Evaluations: tenScores(),
		Comparison:  comparison(t),
		Top:         2,
	}

	md := r.Markdown()
	assert.Contains(t, md, "# Sustainable policies")
	assert.Contains(t, md, "## Top 2")
	assert.Contains(t, md, "## Comparison with baseline")
	assert.Contains(t, md, "pyear=1989")

	page := string(r.HTML())
	assert.Contains(t, page, "<title>Sustainable policies</title>")
	assert.Contains(t, page, "<table>")
	assert.Equal(t, 3, strings.Count(page, "<table>"))
}

func TestReportTieGoesToEarliestCandidate(t *testing.T) {
	// completion order of a parallel grid: candidate 2 landed first
	second := scoredAt(2010, 0.5)
	second.Candidate = 2
	first := scoredAt(2000, 0.5)
	first.Candidate = 1
	r := &Report{Evaluations: []improvement.Evaluation{second, first}, Top: 2}

	assert.Contains(t, r.Markdown(), "Best policy `(pyear=2000")

	f, err := r.Workbook()
	require.NoError(t, err)
	defer f.Close()
	top, err := f.GetRows(SheetTop)
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, "2000", top[1][1])
	assert.Equal(t, "2010", top[2][1])
}

func TestWrite(t *testing.T) {
	dir := t.TempDir()
	cfg := config.ReportConfig{
		XLSX: filepath.Join(dir, "report.xlsx"),
		HTML: filepath.Join(dir, "report.html"),
		Top:  5,
	}
	r := &Report{Evaluations: tenScores()}
	require.NoError(t, Write(cfg, r))
	assert.Equal(t, 5, r.Top)

	f, err := excelize.OpenFile(cfg.XLSX)
	require.NoError(t, err)
	defer f.Close()
	top, err := f.GetRows(SheetTop)
	require.NoError(t, err)
	assert.Len(t, top, 6)

	page, err := os.ReadFile(cfg.HTML)
	require.NoError(t, err)
	assert.Contains(t, string(page), defaultTitle)
}

func TestWriteSkipsEmptyPaths(t *testing.T) {
	require.NoError(t, Write(config.ReportConfig{}, &Report{}))
}
