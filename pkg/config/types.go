package config

import (
	"time"

	"github.com/GoSim-25-26J-441/policy-search/pkg/models"
)

// Config represents a policy-search run configuration
type Config struct {
	LogLevel  string                   `yaml:"log_level"`
	LogFormat string                   `yaml:"log_format"` // text or json
	Simulator SimulatorConfig          `yaml:"simulator"`
	Tables    *TablesConfig            `yaml:"tables,omitempty"`
	Overrides models.ConstantOverrides `yaml:"overrides"`
	Scoring   ScoringConfig            `yaml:"scoring"`
	Grid      *GridConfig              `yaml:"grid,omitempty"`
	Evolution *EvolutionConfig         `yaml:"evolution,omitempty"`
	Store     StoreConfig              `yaml:"store"`
	Report    ReportConfig             `yaml:"report"`
}

// SimulatorConfig selects and configures the external engine adapter
type SimulatorConfig struct {
	Kind          string   `yaml:"kind"`              // exec or grpc
	Command       []string `yaml:"command,omitempty"` // exec: argv of the engine driver
	WorkDir       string   `yaml:"work_dir,omitempty"`
	Timeout       string   `yaml:"timeout"` // e.g. "2m"
	Address       string   `yaml:"address,omitempty"`
	Retries       int      `yaml:"retries"`
	Backoff       string   `yaml:"backoff"` // exponential, linear, constant
	BackoffBaseMs int      `yaml:"backoff_base_ms"`
	BackoffMaxMs  int      `yaml:"backoff_max_ms"`
}

// TablesConfig points at a table-function file and in-memory patches to apply to it
type TablesConfig struct {
	Path    string       `yaml:"path"`
	Patches []TablePatch `yaml:"patches,omitempty"`
}

// TablePatch rewrites the y.values of one table, either by scaling or by replacement
type TablePatch struct {
	Index  int       `yaml:"index"`
	Scale  *float64  `yaml:"scale,omitempty"`
	Values []float64 `yaml:"values,omitempty"`
}

// CurveConfig is the center and spread of one logistic desirability curve
type CurveConfig struct {
	Target float64 `yaml:"target"`
	Spread float64 `yaml:"spread"`
}

// FoodCurveConfig expresses the food curve relative to the subsistence constant
type FoodCurveConfig struct {
	TargetMultiplier float64 `yaml:"target_multiplier"`
	SpreadDivisor    float64 `yaml:"spread_divisor"`
}

// ScoringConfig holds the quality-of-life curve constants
type ScoringConfig struct {
	Population CurveConfig     `yaml:"population"`
	IOPC       CurveConfig     `yaml:"iopc"`
	Pollution  CurveConfig     `yaml:"ppolx"`
	Food       FoodCurveConfig `yaml:"food"`
}

// CandidateSpec lists candidate values explicitly or as a half-open range
type CandidateSpec struct {
	Values []float64 `yaml:"values,omitempty"`
	Start  *float64  `yaml:"start,omitempty"`
	Stop   *float64  `yaml:"stop,omitempty"`
	Step   *float64  `yaml:"step,omitempty"`
}

// GridConfig configures exhaustive search
type GridConfig struct {
	Workers    int                      `yaml:"workers"`
	Candidates map[string]CandidateSpec `yaml:"candidates"`
}

// EvolutionConfig configures differential evolution
type EvolutionConfig struct {
	Strategy       string               `yaml:"strategy"`
	Init           string               `yaml:"init"` // latinhypercube or random
	PopSize        int                  `yaml:"popsize"`
	MaxGenerations int                  `yaml:"max_generations"`
	Seed           uint64               `yaml:"seed"`
	Mutation       []float64            `yaml:"mutation,omitempty"` // one value or [low, high) dither
	Recombination  float64              `yaml:"recombination"`
	Tol            float64              `yaml:"tol"`
	Atol           float64              `yaml:"atol"`
	Patience       int                  `yaml:"patience"`         // generations without improvement, 0 disables
	Plateau        int                  `yaml:"plateau"`          // window for the plateau test, 0 disables
	PlateauTol     float64              `yaml:"plateau_tol"`      // best-value range counted as flat
	Bounds         map[string][]float64 `yaml:"bounds,omitempty"` // name -> [lower, upper]
}

// StoreConfig selects the evaluation ledger backend
type StoreConfig struct {
	Driver string `yaml:"driver"` // memory, sqlite or postgres
	DSN    string `yaml:"dsn,omitempty"`
}

// ReportConfig names optional report outputs
type ReportConfig struct {
	XLSX string `yaml:"xlsx,omitempty"`
	HTML string `yaml:"html,omitempty"`
	Top  int    `yaml:"top"` // rows on the top-scores sheet
}

// GetTimeout parses the simulator timeout; empty means no timeout
func (s *SimulatorConfig) GetTimeout() (time.Duration, error) {
	if s.Timeout == "" {
		return 0, nil
	}
	return time.ParseDuration(s.Timeout)
}

// Default returns a configuration holding the reference scoring constants
// and conservative search settings.
func Default() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "text",
		Simulator: SimulatorConfig{
			Timeout:       "5m",
			Retries:       3,
			Backoff:       "exponential",
			BackoffBaseMs: 200,
			BackoffMaxMs:  5000,
		},
		Scoring: DefaultScoring(),
		Store:   StoreConfig{Driver: "memory"},
		Report:  ReportConfig{Top: 10},
	}
}

// DefaultScoring returns the reference quality-of-life constants
func DefaultScoring() ScoringConfig {
	return ScoringConfig{
		Population: CurveConfig{Target: 2e9, Spread: 2e8},
		IOPC:       CurveConfig{Target: 400, Spread: 50},
		Pollution:  CurveConfig{Target: 0.5, Spread: 0.2},
		Food:       FoodCurveConfig{TargetMultiplier: 1.5, SpreadDivisor: 8},
	}
}

// DefaultEvolution mirrors the settings the reference study ran with
func DefaultEvolution() *EvolutionConfig {
	return &EvolutionConfig{
		Strategy:       "best1bin",
		Init:           "latinhypercube",
		PopSize:        5,
		MaxGenerations: 20,
		Seed:           42,
		Mutation:       []float64{0.5, 1},
		Recombination:  0.7,
		Tol:            0.01,
	}
}
