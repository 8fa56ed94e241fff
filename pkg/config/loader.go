package config

import (
	"fmt"
	"math"
	"os"

	"github.com/GoSim-25-26J-441/policy-search/pkg/models"
	"github.com/GoSim-25-26J-441/policy-search/pkg/utils"
)

// LoadConfig loads and parses a configuration file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	cfg, err := ParseConfigYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate performs validation on the configuration. Every failure is a *ConfigurationError.
func Validate(cfg *Config) error {
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[cfg.LogLevel] {
		return configErr("log_level", "must be debug, info, warn, or error, got %q", cfg.LogLevel)
	}
	if cfg.LogFormat != "" && cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return configErr("log_format", "must be text or json, got %q", cfg.LogFormat)
	}

	if err := validateSimulator(&cfg.Simulator); err != nil {
		return err
	}
	if cfg.Tables != nil {
		if err := validateTables(cfg.Tables); err != nil {
			return err
		}
	}
	if err := ValidateScoring(cfg.Scoring); err != nil {
		return err
	}
	if cfg.Grid != nil {
		if _, err := cfg.Grid.CandidateSets(); err != nil {
			return err
		}
		if cfg.Grid.Workers < 1 {
			return configErr("grid.workers", "must be at least 1, got %d", cfg.Grid.Workers)
		}
	}
	if cfg.Evolution != nil {
		if err := validateEvolution(cfg.Evolution); err != nil {
			return err
		}
	}
	switch cfg.Store.Driver {
	case "memory":
	case "sqlite", "postgres":
		if cfg.Store.DSN == "" {
			return configErr("store.dsn", "required for driver %s", cfg.Store.Driver)
		}
	default:
		return configErr("store.driver", "must be memory, sqlite, or postgres, got %q", cfg.Store.Driver)
	}
	if cfg.Report.Top < 0 {
		return configErr("report.top", "must not be negative, got %d", cfg.Report.Top)
	}

	return nil
}

// validateSimulator validates the adapter selection
func validateSimulator(s *SimulatorConfig) error {
	switch s.Kind {
	case "":
		// resolved later; commands that never simulate do not need one
	case "exec":
		if len(s.Command) == 0 {
			return configErr("simulator.command", "exec simulator needs a command")
		}
	case "grpc":
		if s.Address == "" {
			return configErr("simulator.address", "grpc simulator needs an address")
		}
	default:
		return configErr("simulator.kind", "must be exec or grpc, got %q", s.Kind)
	}
	if _, err := s.GetTimeout(); err != nil {
		return configErr("simulator.timeout", "%v", err)
	}
	if s.Retries < 0 {
		return configErr("simulator.retries", "cannot be negative, got %d", s.Retries)
	}
	validBackoffs := map[string]bool{
		"":            true,
		"exponential": true,
		"linear":      true,
		"constant":    true,
	}
	if !validBackoffs[s.Backoff] {
		return configErr("simulator.backoff", "must be exponential, linear, or constant, got %q", s.Backoff)
	}
	return nil
}

func validateTables(t *TablesConfig) error {
	if t.Path == "" {
		return configErr("tables.path", "cannot be empty")
	}
	for i, p := range t.Patches {
		field := fmt.Sprintf("tables.patches[%d]", i)
		if p.Index < 0 {
			return configErr(field, "index cannot be negative")
		}
		if (p.Scale == nil) == (len(p.Values) == 0) {
			return configErr(field, "exactly one of scale or values is required")
		}
		if p.Scale != nil && !utils.IsFinite(*p.Scale) {
			return configErr(field, "scale must be finite")
		}
		if !utils.AllFinite(p.Values) {
			return configErr(field, "values must be finite")
		}
	}
	return nil
}

// ValidateScoring rejects non-finite targets and non-positive spreads
func ValidateScoring(s ScoringConfig) error {
	curves := []struct {
		name string
		c    CurveConfig
	}{
		{"scoring.population", s.Population},
		{"scoring.iopc", s.IOPC},
		{"scoring.ppolx", s.Pollution},
	}
	for _, cv := range curves {
		if !utils.IsFinite(cv.c.Target) {
			return configErr(cv.name+".target", "must be finite, got %g", cv.c.Target)
		}
		if !utils.IsFinite(cv.c.Spread) || cv.c.Spread <= 0 {
			return configErr(cv.name+".spread", "must be finite and positive, got %g", cv.c.Spread)
		}
	}
	if !utils.IsFinite(s.Food.TargetMultiplier) || s.Food.TargetMultiplier <= 0 {
		return configErr("scoring.food.target_multiplier", "must be finite and positive, got %g", s.Food.TargetMultiplier)
	}
	if !utils.IsFinite(s.Food.SpreadDivisor) || s.Food.SpreadDivisor <= 0 {
		return configErr("scoring.food.spread_divisor", "must be finite and positive, got %g", s.Food.SpreadDivisor)
	}
	return nil
}

func validateEvolution(e *EvolutionConfig) error {
	validStrategies := map[string]bool{
		"best1bin":          true,
		"rand1bin":          true,
		"currenttobest1bin": true,
		"best2bin":          true,
		"rand2bin":          true,
		"cmaes":             true,
	}
	if !validStrategies[e.Strategy] {
		return configErr("evolution.strategy", "unknown strategy %q", e.Strategy)
	}
	if e.Init != "latinhypercube" && e.Init != "random" {
		return configErr("evolution.init", "must be latinhypercube or random, got %q", e.Init)
	}
	if e.PopSize < 1 {
		return configErr("evolution.popsize", "must be positive, got %d", e.PopSize)
	}
	if e.MaxGenerations < 1 {
		return configErr("evolution.max_generations", "must be positive, got %d", e.MaxGenerations)
	}
	switch len(e.Mutation) {
	case 1:
		if e.Mutation[0] <= 0 || e.Mutation[0] > 2 {
			return configErr("evolution.mutation", "must be in (0, 2], got %g", e.Mutation[0])
		}
	case 2:
		if e.Mutation[0] <= 0 || e.Mutation[1] > 2 || e.Mutation[0] > e.Mutation[1] {
			return configErr("evolution.mutation", "dither range must satisfy 0 < low <= high <= 2, got %v", e.Mutation)
		}
	default:
		return configErr("evolution.mutation", "expects one value or a [low, high] pair")
	}
	if e.Recombination < 0 || e.Recombination > 1 {
		return configErr("evolution.recombination", "must be within [0, 1], got %g", e.Recombination)
	}
	if e.Tol < 0 || e.Atol < 0 || math.IsNaN(e.Tol) || math.IsNaN(e.Atol) {
		return configErr("evolution.tol", "tolerances cannot be negative")
	}
	if e.Patience < 0 {
		return configErr("evolution.patience", "cannot be negative, got %d", e.Patience)
	}
	if e.Plateau < 0 || e.PlateauTol < 0 {
		return configErr("evolution.plateau", "window and tolerance cannot be negative")
	}
	if _, err := e.ParameterBounds(); err != nil {
		return err
	}
	return nil
}

func parameterIndex(name string) (int, bool) {
	for i, n := range models.ParameterNames {
		if n == name {
			return i, true
		}
	}
	return 0, false
}

// CandidateSets expands the grid specification into one ordered candidate list per
// dimension. Dimensions that are not named use the standard-run value.
func (g *GridConfig) CandidateSets() ([models.ParameterCount][]float64, error) {
	var sets [models.ParameterCount][]float64
	defaults := models.DefaultParameters().Slice()
	for i := range sets {
		sets[i] = []float64{defaults[i]}
	}
	for name, spec := range g.Candidates {
		idx, ok := parameterIndex(name)
		if !ok {
			return sets, configErr("grid.candidates", "unknown parameter %q", name)
		}
		field := "grid.candidates." + name
		var values []float64
		switch {
		case len(spec.Values) > 0:
			if spec.Start != nil || spec.Stop != nil || spec.Step != nil {
				return sets, configErr(field, "use either values or start/stop/step")
			}
			values = append([]float64(nil), spec.Values...)
		case spec.Start != nil && spec.Stop != nil && spec.Step != nil:
			r, err := utils.Arange(*spec.Start, *spec.Stop, *spec.Step)
			if err != nil {
				return sets, configErr(field, "%v", err)
			}
			values = r
		default:
			return sets, configErr(field, "needs values or start/stop/step")
		}
		if len(values) == 0 {
			return sets, configErr(field, "candidate set is empty")
		}
		if !utils.AllFinite(values) {
			return sets, configErr(field, "candidate values must be finite")
		}
		sets[idx] = values
	}
	return sets, nil
}

// ParameterBounds resolves the configured bounds over the default valid ranges
func (e *EvolutionConfig) ParameterBounds() (models.ParameterBounds, error) {
	bounds := models.DefaultBounds()
	for name, b := range e.Bounds {
		idx, ok := parameterIndex(name)
		if !ok {
			return bounds, configErr("evolution.bounds", "unknown parameter %q", name)
		}
		if len(b) != 2 {
			return bounds, configErr("evolution.bounds."+name, "expects [lower, upper], got %v", b)
		}
		bounds[idx] = models.Bounds{Lower: b[0], Upper: b[1]}
	}
	if err := bounds.Validate(); err != nil {
		return bounds, configErr("evolution.bounds", "%v", err)
	}
	return bounds, nil
}
