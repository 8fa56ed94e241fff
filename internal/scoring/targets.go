package scoring

import (
	"github.com/GoSim-25-26J-441/policy-search/pkg/config"
)

// Curve is the center and spread of one logistic desirability curve.
type Curve struct {
	Target float64
	Spread float64
}

// Targets holds every constant of the quality-of-life metric.
type Targets struct {
	Population Curve
	IOPC       Curve
	Pollution  Curve
	// Food target and spread are derived from the run's subsistence constant.
	FoodTargetMultiplier float64
	FoodSpreadDivisor    float64
}

// DefaultTargets returns the reference constants: a population of 2e9, 400
// dollars of industrial output per person, half the 1970 pollution level and
// 150% of subsistence food.
func DefaultTargets() Targets {
	return TargetsFromConfig(config.DefaultScoring())
}

// TargetsFromConfig converts the YAML scoring block.
func TargetsFromConfig(c config.ScoringConfig) Targets {
	return Targets{
		Population:           Curve{Target: c.Population.Target, Spread: c.Population.Spread},
		IOPC:                 Curve{Target: c.IOPC.Target, Spread: c.IOPC.Spread},
		Pollution:            Curve{Target: c.Pollution.Target, Spread: c.Pollution.Spread},
		FoodTargetMultiplier: c.Food.TargetMultiplier,
		FoodSpreadDivisor:    c.Food.SpreadDivisor,
	}
}

// Config converts back to the YAML scoring block.
func (t Targets) Config() config.ScoringConfig {
	return config.ScoringConfig{
		Population: config.CurveConfig{Target: t.Population.Target, Spread: t.Population.Spread},
		IOPC:       config.CurveConfig{Target: t.IOPC.Target, Spread: t.IOPC.Spread},
		Pollution:  config.CurveConfig{Target: t.Pollution.Target, Spread: t.Pollution.Spread},
		Food: config.FoodCurveConfig{
			TargetMultiplier: t.FoodTargetMultiplier,
			SpreadDivisor:    t.FoodSpreadDivisor,
		},
	}
}

// Validate returns a *config.ConfigurationError for non-finite targets or
// non-positive spreads.
func (t Targets) Validate() error {
	return config.ValidateScoring(t.Config())
}
