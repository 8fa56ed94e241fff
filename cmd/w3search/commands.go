package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/GoSim-25-26J-441/policy-search/internal/improvement"
	"github.com/GoSim-25-26J-441/policy-search/internal/report"
	"github.com/GoSim-25-26J-441/policy-search/internal/scoring"
	"github.com/GoSim-25-26J-441/policy-search/internal/store"
	"github.com/GoSim-25-26J-441/policy-search/pkg/config"
	"github.com/GoSim-25-26J-441/policy-search/pkg/models"
)

func newGridCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grid",
		Short: "Simulate every combination of the configured candidate values",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.Grid == nil {
				return &config.ConfigurationError{Field: "grid", Reason: "no grid configured"}
			}
			sets, err := a.cfg.Grid.CandidateSets()
			if err != nil {
				return err
			}
			workers := a.cfg.Grid.Workers
			if cmd.Flags().Changed("workers") {
				workers, _ = cmd.Flags().GetInt("workers")
			}

			grid, err := improvement.NewGridSearch(sets)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			grid.WithWorkers(workers).OnImprovement(func(s improvement.SearchState) {
				fmt.Fprintf(out, "new best %s score %.6f (%d evaluated)\n", s.Best, s.BestScore.Value, s.Evaluations)
			})

			orch, cleanup, err := a.orchestrator()
			if err != nil {
				return err
			}
			defer cleanup()

			summary := fmt.Sprintf("grid candidates=%d workers=%d", grid.Size(), workers)
			res, runErr := orch.RunGrid(cmd.Context(), grid, summary)
			if res == nil {
				return runErr
			}
			printResult(out, res)
			return errors.Join(runErr, a.writeReport(cmd.Context(), orch, res.ExperimentID, nil))
		},
	}
	cmd.Flags().Int("workers", 1, "Concurrent simulations (overrides grid.workers)")
	return cmd
}

func newEvolveCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evolve",
		Short: "Search the parameter box with differential evolution or CMA-ES",
		RunE: func(cmd *cobra.Command, args []string) error {
			evo := a.cfg.Evolution
			if evo == nil {
				evo = config.DefaultEvolution()
			}
			settings, err := improvement.SettingsFromConfig(evo)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("strategy") {
				settings.Strategy, _ = cmd.Flags().GetString("strategy")
			}
			if cmd.Flags().Changed("seed") {
				settings.Seed, _ = cmd.Flags().GetUint64("seed")
			}
			if cmd.Flags().Changed("generations") {
				settings.MaxGenerations, _ = cmd.Flags().GetInt("generations")
			}

			out := cmd.OutOrStdout()
			settings.Progress = func(s improvement.SearchState) {
				fmt.Fprintf(out, "generation %d best %s score %.6f\n", s.Generation, s.Best, s.BestScore.Value)
			}
			opt, err := improvement.NewOptimizer(settings)
			if err != nil {
				return err
			}

			orch, cleanup, err := a.orchestrator()
			if err != nil {
				return err
			}
			defer cleanup()

			summary := fmt.Sprintf("strategy=%s population=%d generations=%d seed=%d",
				opt.Name(), settings.PopulationSize(), settings.MaxGenerations, settings.Seed)
			res, runErr := orch.RunOptimizer(cmd.Context(), opt, summary)
			if res == nil {
				return runErr
			}
			printResult(out, res)
			if res.Converged {
				fmt.Fprintf(out, "converged: %s\n", res.ConvergenceReason)
			}
			return errors.Join(runErr, a.writeReport(cmd.Context(), orch, res.ExperimentID, nil))
		},
	}
	cmd.Flags().String("strategy", "", "Search strategy (best1bin, rand1bin, currenttobest1bin, best2bin, rand2bin, cmaes)")
	cmd.Flags().Uint64("seed", 0, "Random seed, 0 draws one from the clock")
	cmd.Flags().Int("generations", 0, "Maximum number of generations")
	return cmd
}

func newScoreCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "score <result.json>",
		Short: "Score a simulation result file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var result models.SimulationResult
			if err := json.Unmarshal(data, &result); err != nil {
				return fmt.Errorf("failed to parse %s: %w", args[0], err)
			}

			scorer, err := scoring.NewScorer(scoring.TargetsFromConfig(a.cfg.Scoring))
			if err != nil {
				return err
			}
			score, err := scorer.Score(&result)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "score %.6f\n", score.Value)
			for i, v := range score.Components.Slice() {
				fmt.Fprintf(out, "  %-10s %.6f\n", scoring.FactorNames[i], v)
			}
			weakest, _ := score.Components.Weakest()
			fmt.Fprintf(out, "weakest factor: %s\n", weakest)
			return nil
		},
	}
}

func newRunCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <pyear> <ppgf2> <alai2> <hsid> <imti> <dcfsn>",
		Short: "Simulate one policy, compare it with a baseline and report its series",
		Args:  cobra.ExactArgs(models.ParameterCount),
		RunE: func(cmd *cobra.Command, args []string) error {
			candidate, err := parseVector(args)
			if err != nil {
				return err
			}
			baseline := models.DefaultParameters()
			if b, _ := cmd.Flags().GetString("baseline"); b != "" {
				if baseline, err = parseVector(strings.Split(b, ",")); err != nil {
					return fmt.Errorf("--baseline: %w", err)
				}
			}

			orch, cleanup, err := a.orchestrator()
			if err != nil {
				return err
			}
			defer cleanup()

			cmp, runErr := orch.Compare(cmd.Context(), baseline, candidate)
			if cmp == nil {
				return runErr
			}
			if cmp.Comparison != nil {
				printComparison(cmd.OutOrStdout(), cmp.Comparison)
			}
			return errors.Join(runErr, a.writeReport(cmd.Context(), orch, cmp.ExperimentID, cmp))
		},
	}
	cmd.Flags().String("baseline", "", "Baseline vector as six comma separated values (default: the reference policy)")
	return cmd
}

func newExperimentsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "experiments",
		Short: "List experiments recorded in the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			ledger, err := store.Open(a.cfg.Store)
			if err != nil {
				return err
			}
			defer ledger.Close()

			exps, err := ledger.ListExperiments(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, e := range exps {
				best := "-"
				if e.Best != nil {
					best = fmt.Sprintf("%s score %.6f", e.Best, e.BestScore)
				}
				fmt.Fprintf(out, "%s\t%s\t%s\t%s\n", e.ID, e.Kind, e.Status, best)
			}
			return nil
		},
	}
	cmd.Flags().Int("limit", 20, "Maximum number of experiments")
	return cmd
}

// writeReport renders the configured report outputs for one experiment.
func (a *app) writeReport(ctx context.Context, orch *improvement.Orchestrator, experimentID string, cmp *improvement.ComparisonReport) error {
	if a.cfg.Report.XLSX == "" && a.cfg.Report.HTML == "" {
		return nil
	}
	// the report is still written for a cancelled search
	ctx = context.WithoutCancel(ctx)
	evals, err := orch.Evaluations(ctx, experimentID)
	if err != nil {
		return err
	}
	exp, err := orch.Store().GetExperiment(ctx, experimentID)
	if err != nil {
		return err
	}
	return report.Write(a.cfg.Report, &report.Report{
		Experiment:  exp,
		Evaluations: evals,
		Comparison:  cmp,
	})
}

func parseVector(fields []string) (models.ParameterVector, error) {
	values := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return models.ParameterVector{}, fmt.Errorf("invalid value %q: %w", f, err)
		}
		values[i] = v
	}
	return models.ParameterVectorFromSlice(values)
}

func printResult(out io.Writer, res *improvement.ExperimentResult) {
	fmt.Fprintf(out, "experiment %s: %d evaluations, %d failed, %s\n",
		res.ExperimentID, res.Evaluations, res.Failures, res.Duration.Round(time.Millisecond))
	if !res.Found {
		fmt.Fprintln(out, "no policy could be scored")
		return
	}
	fmt.Fprintf(out, "best %s score %.6f\n", res.Best, res.Score.Value)
}

func printComparison(out io.Writer, c *improvement.ScoreComparison) {
	fmt.Fprintf(out, "%-10s %10s %10s %10s\n", "factor", "baseline", "candidate", "change")
	for _, d := range c.Factors {
		fmt.Fprintf(out, "%-10s %10.4f %10.4f %+10.4f\n", d.Name, d.Baseline, d.Candidate, d.Diff)
	}
	fmt.Fprintf(out, "%-10s %10.4f %10.4f %+10.4f\n", "score", c.BaselineScore, c.CandidateScore, c.ScoreDiff)
}
