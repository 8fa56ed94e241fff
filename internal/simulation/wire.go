package simulation

import (
	"fmt"

	"github.com/GoSim-25-26J-441/policy-search/pkg/models"
)

// wireRequest is the JSON document both adapters send to an engine:
//
//	{"constants": {"pyear": 1975, ..., "iopcd": 400}, "tables": [...]}
type wireRequest struct {
	Constants map[string]float64 `json:"constants"`
	Tables    models.TableSet    `json:"tables,omitempty"`
}

func newWireRequest(req models.SimulationRequest) wireRequest {
	return wireRequest{
		Constants: req.Constants(),
		Tables:    req.Tables,
	}
}

// request rebuilds a SimulationRequest on the engine side.
func (w wireRequest) request() (models.SimulationRequest, error) {
	values := make([]float64, models.ParameterCount)
	for i, name := range models.ParameterNames {
		v, ok := w.Constants[name]
		if !ok {
			return models.SimulationRequest{}, fmt.Errorf("missing constant %q", name)
		}
		values[i] = v
	}
	params, err := models.ParameterVectorFromSlice(values)
	if err != nil {
		return models.SimulationRequest{}, err
	}

	req := models.SimulationRequest{Params: params, Tables: w.Tables}
	if v, ok := w.Constants["iopcd"]; ok {
		req.Overrides.IOPCD = &v
	}
	if v, ok := w.Constants["iet"]; ok {
		req.Overrides.IET = &v
	}
	return req, nil
}
