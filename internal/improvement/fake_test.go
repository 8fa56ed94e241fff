package improvement

import (
	"context"
	"errors"
	"math"
	"sync"

	"github.com/GoSim-25-26J-441/policy-search/internal/scoring"
	"github.com/GoSim-25-26J-441/policy-search/internal/simulation"
	"github.com/GoSim-25-26J-441/policy-search/pkg/models"
)

var errRejected = errors.New("engine rejected vector")

// fakeEngine answers with flat series whose industrial output peaks at the
// point 60% of the way through every default bound.
type fakeEngine struct {
	mu    sync.Mutex
	calls int
	seen  []models.ParameterVector
	// fail rejects a vector like a crashed engine run
	fail func(p models.ParameterVector) bool
	// broken returns a result without series
	broken func(p models.ParameterVector) bool
	// iopc overrides the landscape
	iopc func(p models.ParameterVector) float64
}

func (f *fakeEngine) Simulate(ctx context.Context, req models.SimulationRequest) (*models.SimulationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.calls++
	f.seen = append(f.seen, req.Params)
	f.mu.Unlock()

	p := req.Params
	if f.fail != nil && f.fail(p) {
		return nil, errRejected
	}
	if f.broken != nil && f.broken(p) {
		return &models.SimulationResult{SubsistenceFood: 230}, nil
	}
	iopc := landscape(p)
	if f.iopc != nil {
		iopc = f.iopc(p)
	}
	return flatRun(iopc), nil
}

func (f *fakeEngine) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// landscape maps params to a mean IOPC between 200 and 600.
func landscape(p models.ParameterVector) float64 {
	bounds := models.DefaultBounds()
	sum := 0.0
	for i, v := range p.Slice() {
		u := (v - bounds[i].Lower) / bounds[i].Width()
		d := (u - 0.6) / 0.35
		sum += d * d
	}
	q := math.Exp(-sum)
	return 400 + 50*(8*q-4)
}

// flatRun is a run where every factor but industry is saturated.
func flatRun(iopc float64) *models.SimulationResult {
	n := 5
	series := func(v float64) []float64 {
		out := make([]float64, n)
		for i := range out {
			out[i] = v
		}
		return out
	}
	return &models.SimulationResult{
		Time:                      []float64{1900, 1950, 2000, 2050, 2100},
		Population:                series(4e9),
		NonRenewableFraction:      series(1),
		IndustrialOutputPerCapita: series(iopc),
		PollutionIndex:            series(0),
		FoodPerCapita:             series(1000),
		SubsistenceFood:           230,
	}
}

func scoreOf(iopc float64) float64 {
	s, _ := scoring.NewDefaultScorer().Score(flatRun(iopc))
	return s.Value
}

func newFakeObjective(engine *fakeEngine) *Objective {
	return NewObjective(engine, nil, simulation.Environment{})
}
