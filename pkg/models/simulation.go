package models

// ConstantOverrides carries optional engine constants outside the searched vector.
type ConstantOverrides struct {
	// IOPCD is the desired industrial output per capita.
	IOPCD *float64 `json:"iopcd,omitempty" yaml:"iopcd,omitempty"`
	// IET is the industrial equilibrium (emission) year.
	IET *float64 `json:"iet,omitempty" yaml:"iet,omitempty"`
}

// SimulationRequest is everything the engine needs for one run.
type SimulationRequest struct {
	Params    ParameterVector
	Overrides ConstantOverrides
	// Tables replaces the engine's default table functions when non-nil.
	Tables TableSet
}

// Constants flattens the vector and overrides into engine constant names.
func (r SimulationRequest) Constants() map[string]float64 {
	out := r.Params.Constants()
	if r.Overrides.IOPCD != nil {
		out["iopcd"] = *r.Overrides.IOPCD
	}
	if r.Overrides.IET != nil {
		out["iet"] = *r.Overrides.IET
	}
	return out
}

// SimulationResult holds the tracked series of one completed run.
type SimulationResult struct {
	Time                      []float64 `json:"time"`
	Population                []float64 `json:"pop"`
	NonRenewableFraction      []float64 `json:"nrfr"`
	IndustrialOutputPerCapita []float64 `json:"iopc"`
	PollutionIndex            []float64 `json:"ppolx"`
	FoodPerCapita             []float64 `json:"fpc"`
	// SubsistenceFood is the engine constant sfpc (kg/person/year).
	SubsistenceFood float64 `json:"sfpc"`
}

// Series names in report order.
const (
	SeriesNRFR  = "NRFR"
	SeriesIOPC  = "IOPC"
	SeriesFPC   = "FPC"
	SeriesPOP   = "POP"
	SeriesPPOLX = "PPOLX"
)

// NamedSeries returns the five tracked series keyed by display name.
func (r *SimulationResult) NamedSeries() map[string][]float64 {
	return map[string][]float64{
		SeriesNRFR:  r.NonRenewableFraction,
		SeriesIOPC:  r.IndustrialOutputPerCapita,
		SeriesFPC:   r.FoodPerCapita,
		SeriesPOP:   r.Population,
		SeriesPPOLX: r.PollutionIndex,
	}
}

// SeriesOrder is the column order used by reports.
var SeriesOrder = []string{SeriesNRFR, SeriesIOPC, SeriesFPC, SeriesPOP, SeriesPPOLX}
