package simulation

import (
	"fmt"

	"github.com/GoSim-25-26J-441/policy-search/pkg/config"
	"github.com/GoSim-25-26J-441/policy-search/pkg/models"
)

// Environment is the part of every request that stays fixed during a search.
type Environment struct {
	Overrides models.ConstantOverrides
	Tables    models.TableSet
}

// Request builds the engine request for params. Each request owns its own
// copy of the table set.
func (e Environment) Request(params models.ParameterVector) models.SimulationRequest {
	return models.SimulationRequest{
		Params:    params,
		Overrides: e.Overrides,
		Tables:    e.Tables.Clone(),
	}
}

// EnvironmentFromConfig loads the table file once and applies its patches in memory.
func EnvironmentFromConfig(cfg *config.Config) (Environment, error) {
	env := Environment{Overrides: cfg.Overrides}
	tables, err := LoadTables(cfg.Tables)
	if err != nil {
		return Environment{}, err
	}
	env.Tables = tables
	return env, nil
}

// LoadTables reads the configured table file and applies every patch in order.
// A nil config means the engine keeps its default tables.
func LoadTables(cfg *config.TablesConfig) (models.TableSet, error) {
	if cfg == nil || cfg.Path == "" {
		return nil, nil
	}
	tables, err := models.LoadTableSet(cfg.Path)
	if err != nil {
		return nil, err
	}
	if err := ApplyPatches(tables, cfg.Patches); err != nil {
		return nil, err
	}
	return tables, nil
}

// ApplyPatches edits tables in place.
func ApplyPatches(tables models.TableSet, patches []config.TablePatch) error {
	for i, p := range patches {
		field := fmt.Sprintf("tables.patches[%d]", i)
		var err error
		switch {
		case p.Scale != nil:
			err = tables.ScaleY(p.Index, *p.Scale)
		case p.Values != nil:
			err = tables.SetY(p.Index, p.Values)
		default:
			err = fmt.Errorf("patch has neither scale nor values")
		}
		if err != nil {
			return &config.ConfigurationError{Field: field, Reason: err.Error()}
		}
	}
	return nil
}
