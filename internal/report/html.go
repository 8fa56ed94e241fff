package report

import (
	"fmt"
	"strings"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"github.com/GoSim-25-26J-441/policy-search/internal/improvement"
	"github.com/GoSim-25-26J-441/policy-search/pkg/models"
)

// Markdown renders the report summary as markdown tables.
func (r *Report) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", r.title())

	if exp := r.Experiment; exp != nil {
		b.WriteString("| | |\n|---|---|\n")
		fmt.Fprintf(&b, "| experiment | `%s` |\n", exp.ID)
		fmt.Fprintf(&b, "| kind | %s |\n", exp.Kind)
		fmt.Fprintf(&b, "| status | %s |\n", exp.Status)
		if exp.Config != "" {
			fmt.Fprintf(&b, "| config | `%s` |\n", exp.Config)
		}
		b.WriteString("\n")
	}

	if best, ok := r.best(); ok {
		fmt.Fprintf(&b, "Best policy `%s` scored **%.6f**.\n\n", best.Params, best.Score.Value)
	}

	s, err := Summarize(r.Evaluations)
	b.WriteString("## Scores\n\n")
	if err != nil {
		fmt.Fprintf(&b, "%d evaluations, %d failed, none scored.\n\n", s.Evaluations, s.Failures)
	} else {
		b.WriteString("| evaluations | failures | min | median | mean | p90 | max |\n")
		b.WriteString("|---:|---:|---:|---:|---:|---:|---:|\n")
		fmt.Fprintf(&b, "| %d | %d | %.6f | %.6f | %.6f | %.6f | %.6f |\n\n",
			s.Evaluations, s.Failures, s.Min, s.Median, s.Mean, s.P90, s.Max)
	}

	if c := r.Comparison; c != nil && c.Comparison != nil {
		b.WriteString("## Comparison with baseline\n\n")
		fmt.Fprintf(&b, "Baseline `%s`, candidate `%s`.\n\n", c.Baseline.Params, c.Candidate.Params)
		b.WriteString("| factor | baseline | candidate | change |\n|---|---:|---:|---:|\n")
		for _, d := range c.Comparison.Factors {
			fmt.Fprintf(&b, "| %s | %.4f | %.4f | %+.4f |\n", d.Name, d.Baseline, d.Candidate, d.Diff)
		}
		fmt.Fprintf(&b, "| **score** | %.4f | %.4f | %+.4f |\n\n",
			c.Comparison.BaselineScore, c.Comparison.CandidateScore, c.Comparison.ScoreDiff)
		if c.Comparison.Weakest != "" {
			fmt.Fprintf(&b, "The candidate is held down most by %s.\n\n", c.Comparison.Weakest)
		}
	}

	top, err := (&improvement.TopScoreStrategy{N: r.Top}).Select(r.Evaluations)
	if err == nil {
		fmt.Fprintf(&b, "## Top %d\n\n", len(top))
		b.WriteString("| rank | " + strings.Join(models.ParameterNames[:], " | ") + " | score | weakest |\n")
		b.WriteString("|---:" + strings.Repeat("|---:", models.ParameterCount+1) + "|---|\n")
		for i, e := range top {
			weakest, _ := e.Score.Components.Weakest()
			fmt.Fprintf(&b, "| %d | %s | %.6f | %s |\n", i+1, joinValues(e.Params), e.Score.Value, weakest)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// HTML renders Markdown as a standalone page.
func (r *Report) HTML() []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{
		Title: r.title(),
		Flags: mdhtml.CommonFlags | mdhtml.CompletePage,
	})
	return markdown.ToHTML([]byte(r.Markdown()), p, renderer)
}

func joinValues(p models.ParameterVector) string {
	vals := p.Slice()
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = fmt.Sprintf("%g", v)
	}
	return strings.Join(parts, " | ")
}
