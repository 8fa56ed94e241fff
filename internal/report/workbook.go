package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/GoSim-25-26J-441/policy-search/internal/improvement"
	"github.com/GoSim-25-26J-441/policy-search/internal/scoring"
	"github.com/GoSim-25-26J-441/policy-search/pkg/logger"
	"github.com/GoSim-25-26J-441/policy-search/pkg/models"
)

// Sheet names.
const (
	SheetSummary     = "Summary"
	SheetEvaluations = "Evaluations"
	SheetTop         = "Top"
	SheetPareto      = "Pareto"
	SheetComparison  = "Comparison"
	SheetBaseline    = "Baseline"
	SheetCandidate   = "Candidate"
)

// seriesScale maps each series onto a common 0..1 chart axis.
var seriesScale = map[string]float64{
	models.SeriesNRFR:  1,
	models.SeriesIOPC:  2e3,
	models.SeriesFPC:   2e3,
	models.SeriesPOP:   16e9,
	models.SeriesPPOLX: 32,
}

// Workbook builds the xlsx report. The caller closes the file.
func (r *Report) Workbook() (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		_ = f.Close()
		return nil, err
	}

	steps := []func(*excelize.File) error{
		r.writeSummary,
		r.writeEvaluations,
		r.writeSelections,
		r.writeComparison,
	}
	for _, step := range steps {
		if err := step(f); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	return f, nil
}

func (r *Report) writeSummary(f *excelize.File) error {
	rows := [][]any{{"Report", r.title()}}
	if exp := r.Experiment; exp != nil {
		rows = append(rows,
			[]any{"Experiment", exp.ID},
			[]any{"Kind", exp.Kind},
			[]any{"Status", string(exp.Status)},
			[]any{"Config", exp.Config},
			[]any{"Started", exp.CreatedAt.Format("2006-01-02 15:04:05")},
		)
	}
	if best, ok := r.best(); ok {
		rows = append(rows, []any{"Best", best.Params.String()}, []any{"Best score", best.Score.Value})
	}
	if s, err := Summarize(r.Evaluations); err == nil {
		rows = append(rows,
			[]any{"Evaluations", s.Evaluations},
			[]any{"Failures", s.Failures},
			[]any{"Min score", s.Min},
			[]any{"Median score", s.Median},
			[]any{"Mean score", s.Mean},
			[]any{"P90 score", s.P90},
			[]any{"Max score", s.Max},
		)
	} else {
		rows = append(rows, []any{"Evaluations", s.Evaluations}, []any{"Failures", s.Failures})
	}

	for i, row := range rows {
		if err := setRow(f, SheetSummary, i+1, row); err != nil {
			return err
		}
	}
	return f.SetColWidth(SheetSummary, "A", "A", 16)
}

func (r *Report) writeEvaluations(f *excelize.File) error {
	if _, err := f.NewSheet(SheetEvaluations); err != nil {
		return err
	}
	header := append([]string{"seq"}, models.ParameterNames[:]...)
	header = append(header, "score")
	header = append(header, scoring.FactorNames...)
	header = append(header, "failed", "error", "duration_ms")

	rows := make([][]any, len(r.Evaluations))
	for i, e := range r.Evaluations {
		row := append([]any{i + 1}, evaluationCells(e)...)
		errText := ""
		if e.Failed() {
			errText = fmt.Sprint(e.Err.Cause)
		}
		rows[i] = append(row, e.Failed(), errText, e.Duration.Milliseconds())
	}
	return writeTable(f, SheetEvaluations, header, rows)
}

func (r *Report) writeSelections(f *excelize.File) error {
	header := append([]string{"rank"}, models.ParameterNames[:]...)
	header = append(header, "score")
	header = append(header, scoring.FactorNames...)

	strategies := []struct {
		sheet    string
		strategy improvement.SelectionStrategy
	}{
		{SheetTop, &improvement.TopScoreStrategy{N: r.Top}},
		{SheetPareto, &improvement.ParetoStrategy{}},
	}
	for _, s := range strategies {
		selected, err := s.strategy.Select(r.Evaluations)
		if err != nil {
			logger.Debug("selection skipped", "strategy", s.strategy.Name(), "error", err)
			continue
		}
		if _, err := f.NewSheet(s.sheet); err != nil {
			return err
		}
		rows := make([][]any, len(selected))
		for i, e := range selected {
			rows[i] = append([]any{i + 1}, evaluationCells(e)...)
		}
		if err := writeTable(f, s.sheet, header, rows); err != nil {
			return err
		}
	}
	return nil
}

func (r *Report) writeComparison(f *excelize.File) error {
	c := r.Comparison
	if c == nil {
		return nil
	}
	if c.Comparison != nil {
		if _, err := f.NewSheet(SheetComparison); err != nil {
			return err
		}
		rows := make([][]any, 0, len(c.Comparison.Factors)+1)
		for _, d := range c.Comparison.Factors {
			rows = append(rows, []any{d.Name, d.Baseline, d.Candidate, d.Diff})
		}
		rows = append(rows, []any{"score", c.Comparison.BaselineScore, c.Comparison.CandidateScore, c.Comparison.ScoreDiff})
		if err := writeTable(f, SheetComparison, []string{"factor", "baseline", "candidate", "change"}, rows); err != nil {
			return err
		}
	}

	runs := []struct {
		sheet  string
		params models.ParameterVector
		series *models.SimulationResult
	}{
		{SheetBaseline, c.Baseline.Params, c.BaselineSeries},
		{SheetCandidate, c.Candidate.Params, c.CandidateSeries},
	}
	for _, run := range runs {
		if run.series == nil {
			continue
		}
		if err := writeSeries(f, run.sheet, run.params, run.series); err != nil {
			return err
		}
	}
	return nil
}

// writeSeries writes the raw series in columns A-F, the scaled series in
// H-L, and a line chart over the scaled block.
func writeSeries(f *excelize.File, sheet string, params models.ParameterVector, res *models.SimulationResult) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	named := res.NamedSeries()
	n := len(res.Time)

	header := append([]any{"time"}, toAny(models.SeriesOrder)...)
	header = append(header, "")
	header = append(header, toAny(models.SeriesOrder)...)
	if err := setRow(f, sheet, 1, header); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		row := []any{res.Time[i]}
		scaled := make([]any, 0, len(models.SeriesOrder))
		for _, name := range models.SeriesOrder {
			var v any
			var sv any
			if s := named[name]; i < len(s) {
				v = s[i]
				sv = s[i] / seriesScale[name]
			}
			row = append(row, v)
			scaled = append(scaled, sv)
		}
		row = append(row, nil)
		row = append(row, scaled...)
		if err := setRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}
	if n == 0 {
		return nil
	}

	chart := &excelize.Chart{
		Type:         excelize.Line,
		Title:        []excelize.RichTextRun{{Text: params.String()}},
		Legend:       excelize.ChartLegend{Position: "bottom"},
		Dimension:    excelize.ChartDimension{Width: 720, Height: 420},
		ShowBlanksAs: "gap",
		XAxis:        excelize.ChartAxis{TickLabelSkip: 20},
		YAxis:        excelize.ChartAxis{MajorGridLines: true},
	}
	categories := fmt.Sprintf("%s!$A$2:$A$%d", sheet, n+1)
	for i := range models.SeriesOrder {
		col, err := excelize.ColumnNumberToName(8 + i)
		if err != nil {
			return err
		}
		chart.Series = append(chart.Series, excelize.ChartSeries{
			Name:       fmt.Sprintf("%s!$%s$1", sheet, col),
			Categories: categories,
			Values:     fmt.Sprintf("%s!$%s$2:$%s$%d", sheet, col, col, n+1),
		})
	}
	return f.AddChart(sheet, "N2", chart)
}

// writeTable writes a bold header, rows and an autofilter over them.
func writeTable(f *excelize.File, sheet string, header []string, rows [][]any) error {
	if err := setRow(f, sheet, 1, toAny(header)); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
		return err
	}

	for i, row := range rows {
		if err := setRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}
	if len(rows) == 0 {
		return nil
	}
	end, err := excelize.CoordinatesToCellName(len(header), len(rows)+1)
	if err != nil {
		return err
	}
	return f.AutoFilter(sheet, "A1:"+end, nil)
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

// evaluationCells is the parameter, score and factor cells of e. Failed
// evaluations leave the score cells empty.
func evaluationCells(e improvement.Evaluation) []any {
	cells := make([]any, 0, models.ParameterCount+1+len(scoring.FactorNames))
	for _, v := range e.Params.Slice() {
		cells = append(cells, v)
	}
	if e.Failed() {
		for i := 0; i <= len(scoring.FactorNames); i++ {
			cells = append(cells, nil)
		}
		return cells
	}
	cells = append(cells, e.Score.Value)
	for _, v := range e.Score.Components.Slice() {
		cells = append(cells, v)
	}
	return cells
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
