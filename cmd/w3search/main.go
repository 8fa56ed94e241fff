package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/GoSim-25-26J-441/policy-search/internal/improvement"
	"github.com/GoSim-25-26J-441/policy-search/internal/scoring"
	"github.com/GoSim-25-26J-441/policy-search/internal/simulation"
	"github.com/GoSim-25-26J-441/policy-search/internal/store"
	"github.com/GoSim-25-26J-441/policy-search/pkg/config"
	"github.com/GoSim-25-26J-441/policy-search/pkg/logger"
)

var version = "0.1.0-dev"

// app carries the loaded configuration between the root command and its
// subcommands.
type app struct {
	cfg *config.Config
	// openSimulator is replaced in tests.
	openSimulator func(config.SimulatorConfig) (simulation.Simulator, error)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(&app{openSimulator: simulation.Open}).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "w3search",
		Short: "Search World3 policy parameters for a sustainable quality of life",
		Long: `w3search drives an external World3 engine over a six-parameter policy
vector, scores every run with a quality-of-life metric and looks for the
policy with the highest score by grid search or differential evolution.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}

	rootCmd.PersistentFlags().String("config", "", "Search configuration file (YAML)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("env-file", ".env", "Environment file loaded before the configuration")

	rootCmd.AddCommand(
		newVersionCmd(),
		newGridCmd(a),
		newEvolveCmd(a),
		newScoreCmd(a),
		newRunCmd(a),
		newExperimentsCmd(a),
	)
	return rootCmd
}

// load reads the environment file, the configuration and the environment
// overrides, then installs the logger.
func (a *app) load(cmd *cobra.Command) error {
	envFile, _ := cmd.Flags().GetString("env-file")
	if err := config.LoadEnv(envFile); err != nil {
		return fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	cfg := config.Default()
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if err := config.ApplyEnv(cfg); err != nil {
		return err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}

	logger.SetDefault(logger.New(logger.Options{
		Format: cfg.LogFormat,
		Level:  cfg.LogLevel,
		Output: cmd.ErrOrStderr(),
	}))
	a.cfg = cfg
	return nil
}

// orchestrator wires the simulator, scorer, table environment and ledger
// from the configuration. The returned cleanup closes the simulator and
// the ledger.
func (a *app) orchestrator() (*improvement.Orchestrator, func(), error) {
	scorer, err := scoring.NewScorer(scoring.TargetsFromConfig(a.cfg.Scoring))
	if err != nil {
		return nil, nil, err
	}
	env, err := simulation.EnvironmentFromConfig(a.cfg)
	if err != nil {
		return nil, nil, err
	}
	sim, err := a.openSimulator(a.cfg.Simulator)
	if err != nil {
		return nil, nil, err
	}
	ledger, err := store.Open(a.cfg.Store)
	if err != nil {
		_ = simulation.Close(sim)
		return nil, nil, err
	}

	cleanup := func() {
		if err := simulation.Close(sim); err != nil {
			logger.Warn("failed to close simulator", "error", err)
		}
		if err := ledger.Close(); err != nil {
			logger.Warn("failed to close store", "error", err)
		}
	}
	return improvement.NewOrchestrator(sim, scorer, env, ledger), cleanup, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		// no configuration needed
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "w3search version %s\n", version)
		},
	}
}
