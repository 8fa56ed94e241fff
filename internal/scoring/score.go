package scoring

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/GoSim-25-26J-441/policy-search/pkg/models"
	"github.com/GoSim-25-26J-441/policy-search/pkg/utils"
)

// Factor names, in the order they enter the geometric mean.
const (
	FactorPopulation = "population"
	FactorResources  = "nrfr"
	FactorIndustry   = "iopc"
	FactorPollution  = "ppolx"
	FactorFood       = "fpc"
)

// FactorNames lists the factors in combination order.
var FactorNames = []string{FactorPopulation, FactorResources, FactorIndustry, FactorPollution, FactorFood}

// Statistics are the raw aggregates read off a run.
type Statistics struct {
	MeanPopulation float64 `json:"mean_pop"`
	FinalNRFR      float64 `json:"final_nrfr"`
	MeanIOPC       float64 `json:"mean_iopc"`
	MeanPPOLX      float64 `json:"mean_ppolx"`
	MeanFPC        float64 `json:"mean_fpc"`
	SFPC           float64 `json:"sfpc"`
}

// Components are the five normalized factors, each in [0, 1].
type Components struct {
	Population float64 `json:"population"`
	Resources  float64 `json:"nrfr"`
	Industry   float64 `json:"iopc"`
	Pollution  float64 `json:"ppolx"`
	Food       float64 `json:"fpc"`
}

// Slice returns the factors in FactorNames order.
func (c Components) Slice() []float64 {
	return []float64{c.Population, c.Resources, c.Industry, c.Pollution, c.Food}
}

// Weakest returns the name and value of the smallest factor.
func (c Components) Weakest() (string, float64) {
	vals := c.Slice()
	i := floats.MinIdx(vals)
	return FactorNames[i], vals[i]
}

// Score is the evaluated quality of life of one run.
type Score struct {
	Value      float64    `json:"score"`
	Components Components `json:"components"`
	Statistics Statistics `json:"statistics"`
}

// InvalidResultError means a run cannot be scored. It signals an integration
// bug and is never recovered by the searches.
type InvalidResultError struct {
	Reason string
}

func (e *InvalidResultError) Error() string {
	return "invalid simulation result: " + e.Reason
}

// Scorer evaluates runs against a fixed set of targets.
type Scorer struct {
	targets Targets
}

// NewScorer validates the targets and returns a scorer.
func NewScorer(targets Targets) (*Scorer, error) {
	if err := targets.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{targets: targets}, nil
}

// NewDefaultScorer returns a scorer with the reference constants.
func NewDefaultScorer() *Scorer {
	return &Scorer{targets: DefaultTargets()}
}

// Targets returns the scorer's constants.
func (s *Scorer) Targets() Targets {
	return s.targets
}

// Summarize extracts the five aggregates from a run.
func Summarize(result *models.SimulationResult) (Statistics, error) {
	if result == nil {
		return Statistics{}, &InvalidResultError{Reason: "result is nil"}
	}
	series := []struct {
		name   string
		values []float64
	}{
		{"pop", result.Population},
		{"nrfr", result.NonRenewableFraction},
		{"iopc", result.IndustrialOutputPerCapita},
		{"ppolx", result.PollutionIndex},
		{"fpc", result.FoodPerCapita},
	}
	for _, s := range series {
		if len(s.values) == 0 {
			return Statistics{}, &InvalidResultError{Reason: fmt.Sprintf("series %s is missing or empty", s.name)}
		}
		if !utils.AllFinite(s.values) {
			return Statistics{}, &InvalidResultError{Reason: fmt.Sprintf("series %s contains non-finite values", s.name)}
		}
	}
	if !(result.SubsistenceFood > 0) || math.IsInf(result.SubsistenceFood, 0) {
		return Statistics{}, &InvalidResultError{Reason: fmt.Sprintf("subsistence food must be positive, got %g", result.SubsistenceFood)}
	}

	return Statistics{
		MeanPopulation: stat.Mean(result.Population, nil),
		FinalNRFR:      result.NonRenewableFraction[len(result.NonRenewableFraction)-1],
		MeanIOPC:       stat.Mean(result.IndustrialOutputPerCapita, nil),
		MeanPPOLX:      stat.Mean(result.PollutionIndex, nil),
		MeanFPC:        stat.Mean(result.FoodPerCapita, nil),
		SFPC:           result.SubsistenceFood,
	}, nil
}

// Components maps raw statistics onto the desirability curves.
func (s *Scorer) Components(st Statistics) Components {
	t := s.targets
	foodTarget := st.SFPC * t.FoodTargetMultiplier
	foodSpread := st.SFPC / t.FoodSpreadDivisor
	return Components{
		Population: utils.Logistic(st.MeanPopulation, t.Population.Target, t.Population.Spread),
		// already a fraction of the initial stock
		Resources: utils.ClampFloat64(st.FinalNRFR, 0, 1),
		Industry:  utils.Logistic(st.MeanIOPC, t.IOPC.Target, t.IOPC.Spread),
		Pollution: 1 - utils.Logistic(st.MeanPPOLX, t.Pollution.Target, t.Pollution.Spread),
		Food:      utils.Logistic(st.MeanFPC, foodTarget, foodSpread),
	}
}

// Combine returns the geometric mean of the factors.
func Combine(c Components) float64 {
	vals := c.Slice()
	return math.Pow(floats.Prod(vals), 1/float64(len(vals)))
}

// Score evaluates one run.
func (s *Scorer) Score(result *models.SimulationResult) (Score, error) {
	st, err := Summarize(result)
	if err != nil {
		return Score{}, err
	}
	comps := s.Components(st)
	return Score{
		Value:      Combine(comps),
		Components: comps,
		Statistics: st,
	}, nil
}
