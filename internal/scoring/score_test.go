package scoring

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoSim-25-26J-441/policy-search/pkg/config"
	"github.com/GoSim-25-26J-441/policy-search/pkg/models"
	"github.com/GoSim-25-26J-441/policy-search/pkg/utils"
)

func constant(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func flatResult(pop, nrfr, iopc, ppolx, fpc, sfpc float64) *models.SimulationResult {
	return &models.SimulationResult{
		Time:                      []float64{1900, 1950, 2000, 2050, 2100},
		Population:                constant(pop, 5),
		NonRenewableFraction:      constant(nrfr, 5),
		IndustrialOutputPerCapita: constant(iopc, 5),
		PollutionIndex:            constant(ppolx, 5),
		FoodPerCapita:             constant(fpc, 5),
		SubsistenceFood:           sfpc,
	}
}

func TestScoreAtTargets(t *testing.T) {
	scorer := NewDefaultScorer()
	score, err := scorer.Score(flatResult(2e9, 1.0, 400, 0.5, 1.5*350, 350))
	require.NoError(t, err)

	assert.InDelta(t, 0.5, score.Components.Population, 1e-12)
	assert.InDelta(t, 1.0, score.Components.Resources, 1e-12)
	assert.InDelta(t, 0.5, score.Components.Industry, 1e-12)
	assert.InDelta(t, 0.5, score.Components.Pollution, 1e-12)
	assert.InDelta(t, 0.5, score.Components.Food, 1e-12)
	// four factors at one half and full resources: (0.5^4)^(1/5)
	assert.InDelta(t, math.Pow(0.5, 0.8), score.Value, 1e-12)
	assert.InDelta(t, 0.57435, score.Value, 1e-5)
}

func TestCombineSingleHalfFactor(t *testing.T) {
	got := Combine(Components{Population: 1, Resources: 1, Industry: 1, Pollution: 1, Food: 0.5})
	assert.InDelta(t, 0.87055, got, 1e-5)
}

func TestStatisticsAggregation(t *testing.T) {
	result := &models.SimulationResult{
		Population:                []float64{1e9, 3e9},
		NonRenewableFraction:      []float64{1, 0.8, 0.4},
		IndustrialOutputPerCapita: []float64{100, 300},
		PollutionIndex:            []float64{1, 2, 3},
		FoodPerCapita:             []float64{200, 400},
		SubsistenceFood:           230,
	}
	st, err := Summarize(result)
	require.NoError(t, err)
	assert.Equal(t, 2e9, st.MeanPopulation)
	assert.Equal(t, 0.4, st.FinalNRFR)
	assert.Equal(t, 200.0, st.MeanIOPC)
	assert.Equal(t, 2.0, st.MeanPPOLX)
	assert.Equal(t, 300.0, st.MeanFPC)
	assert.Equal(t, 230.0, st.SFPC)
}

func TestScoreRange(t *testing.T) {
	scorer := NewDefaultScorer()
	rng := utils.NewRandSource(2024)
	for i := 0; i < 500; i++ {
		sfpc := rng.UniformFloat64(100, 500)
		res := flatResult(
			rng.UniformFloat64(0, 1.6e10),
			rng.UniformFloat64(0, 1),
			rng.UniformFloat64(0, 2000),
			rng.UniformFloat64(0, 32),
			rng.UniformFloat64(0, 2000),
			sfpc,
		)
		score, err := scorer.Score(res)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, score.Value, 0.0)
		assert.LessOrEqual(t, score.Value, 1.0)
		for _, f := range score.Components.Slice() {
			assert.GreaterOrEqual(t, f, 0.0)
			assert.LessOrEqual(t, f, 1.0)
		}
	}
}

func TestScoreMonotonicInPopulation(t *testing.T) {
	scorer := NewDefaultScorer()
	target, spread := 2e9, 2e8
	prev := -1.0
	for k := -5.0; k <= 5.0; k += 0.5 {
		score, err := scorer.Score(flatResult(target+k*spread, 0.8, 450, 0.3, 500, 230))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, score.Value, prev, "score should not decrease at %g spreads", k)
		prev = score.Value
	}

	low, err := scorer.Score(flatResult(target-5*spread, 1, 400, 0.5, 345, 230))
	require.NoError(t, err)
	high, err := scorer.Score(flatResult(target+5*spread, 1, 400, 0.5, 345, 230))
	require.NoError(t, err)
	assert.Less(t, low.Components.Population, 0.01)
	assert.Greater(t, high.Components.Population, 0.99)

	// saturated: further growth barely moves the score
	higher, err := scorer.Score(flatResult(target+10*spread, 1, 400, 0.5, 345, 230))
	require.NoError(t, err)
	assert.InDelta(t, high.Value, higher.Value, 0.01)
}

func TestScoreDirections(t *testing.T) {
	scorer := NewDefaultScorer()
	base, err := scorer.Score(flatResult(2e9, 0.5, 400, 0.5, 345, 230))
	require.NoError(t, err)

	moreIndustry, _ := scorer.Score(flatResult(2e9, 0.5, 450, 0.5, 345, 230))
	morePollution, _ := scorer.Score(flatResult(2e9, 0.5, 400, 0.7, 345, 230))
	moreFood, _ := scorer.Score(flatResult(2e9, 0.5, 400, 0.5, 400, 230))
	moreResources, _ := scorer.Score(flatResult(2e9, 0.9, 400, 0.5, 345, 230))

	assert.Greater(t, moreIndustry.Value, base.Value)
	assert.Less(t, morePollution.Value, base.Value)
	assert.Greater(t, moreFood.Value, base.Value)
	assert.Greater(t, moreResources.Value, base.Value)
}

func TestPollutionCollapse(t *testing.T) {
	scorer := NewDefaultScorer()

	// ten spreads above target: the pollution factor alone bounds the score
	tenSpreads, err := scorer.Score(flatResult(5e9, 1, 2000, 0.5+10*0.2, 2000, 230))
	require.NoError(t, err)
	assert.Less(t, tenSpreads.Components.Pollution, 1e-4)
	assert.LessOrEqual(t, tenSpreads.Value, math.Pow(tenSpreads.Components.Pollution, 0.2)+1e-12)
	name, _ := tenSpreads.Components.Weakest()
	assert.Equal(t, FactorPollution, name)

	// far beyond the curve every other factor is irrelevant
	farAbove, err := scorer.Score(flatResult(5e9, 1, 2000, 0.5+100*0.2, 2000, 230))
	require.NoError(t, err)
	assert.Less(t, farAbove.Value, 1e-6)
}

func TestFoodShortfallPenalizedSharply(t *testing.T) {
	scorer := NewDefaultScorer()
	sfpc := 230.0
	atSubsistence, err := scorer.Score(flatResult(2e9, 1, 400, 0.5, sfpc, sfpc))
	require.NoError(t, err)
	// four spreads below target
	assert.Less(t, atSubsistence.Components.Food, 0.02)
}

func TestScoreInvalidResult(t *testing.T) {
	scorer := NewDefaultScorer()
	valid := func() *models.SimulationResult { return flatResult(2e9, 1, 400, 0.5, 345, 230) }

	tests := []struct {
		name   string
		mutate func(r *models.SimulationResult) *models.SimulationResult
	}{
		{"nil result", func(r *models.SimulationResult) *models.SimulationResult { return nil }},
		{"missing population", func(r *models.SimulationResult) *models.SimulationResult {
			r.Population = nil
			return r
		}},
		{"empty nrfr", func(r *models.SimulationResult) *models.SimulationResult {
			r.NonRenewableFraction = []float64{}
			return r
		}},
		{"empty iopc", func(r *models.SimulationResult) *models.SimulationResult {
			r.IndustrialOutputPerCapita = nil
			return r
		}},
		{"empty ppolx", func(r *models.SimulationResult) *models.SimulationResult {
			r.PollutionIndex = nil
			return r
		}},
		{"empty fpc", func(r *models.SimulationResult) *models.SimulationResult {
			r.FoodPerCapita = nil
			return r
		}},
		{"nan series", func(r *models.SimulationResult) *models.SimulationResult {
			r.FoodPerCapita[2] = math.NaN()
			return r
		}},
		{"zero sfpc", func(r *models.SimulationResult) *models.SimulationResult {
			r.SubsistenceFood = 0
			return r
		}},
		{"negative sfpc", func(r *models.SimulationResult) *models.SimulationResult {
			r.SubsistenceFood = -230
			return r
		}},
		{"nan sfpc", func(r *models.SimulationResult) *models.SimulationResult {
			r.SubsistenceFood = math.NaN()
			return r
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := scorer.Score(tt.mutate(valid()))
			require.Error(t, err)
			var invalid *InvalidResultError
			assert.True(t, errors.As(err, &invalid), "expected *InvalidResultError, got %T", err)
		})
	}
}

func TestNewScorerValidatesTargets(t *testing.T) {
	targets := DefaultTargets()
	targets.IOPC.Spread = 0
	_, err := NewScorer(targets)
	var cfgErr *config.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "scoring.iopc.spread", cfgErr.Field)

	targets = DefaultTargets()
	targets.Pollution.Target = math.Inf(1)
	_, err = NewScorer(targets)
	require.ErrorAs(t, err, &cfgErr)

	scorer, err := NewScorer(DefaultTargets())
	require.NoError(t, err)
	assert.Equal(t, DefaultTargets(), scorer.Targets())
}

func TestOverriddenTargets(t *testing.T) {
	targets := DefaultTargets()
	targets.Population.Target = 4e9
	scorer, err := NewScorer(targets)
	require.NoError(t, err)

	score, err := scorer.Score(flatResult(4e9, 1, 400, 0.5, 345, 230))
	require.NoError(t, err)
	assert.InDelta(t, 0.5, score.Components.Population, 1e-12)
}

func TestTargetsConfigRoundTrip(t *testing.T) {
	assert.Equal(t, config.DefaultScoring(), DefaultTargets().Config())
	assert.Equal(t, 2e9, DefaultTargets().Population.Target)
	assert.Equal(t, 8.0, DefaultTargets().FoodSpreadDivisor)
}
