package simulation

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoSim-25-26J-441/policy-search/pkg/config"
	"github.com/GoSim-25-26J-441/policy-search/pkg/models"
)

const testTables = `[
  {"y.name": "HSAPC", "x.values": [0, 250, 500], "y.values": [0, 20, 50]},
  {"y.name": "FSAFC", "x.values": [0, 1], "y.values": [0, 0.005]}
]`

func writeTables(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tables.json")
	require.NoError(t, os.WriteFile(path, []byte(testTables), 0o644))
	return path
}

func TestLoadTablesAppliesPatches(t *testing.T) {
	scale := 2.0
	tables, err := LoadTables(&config.TablesConfig{
		Path: writeTables(t),
		Patches: []config.TablePatch{
			{Index: 0, Scale: &scale},
			{Index: 1, Values: []float64{0.1, 0.2}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 40, 100}, tables[0].YValues)
	assert.Equal(t, []float64{0.1, 0.2}, tables[1].YValues)
}

func TestLoadTablesNil(t *testing.T) {
	tables, err := LoadTables(nil)
	require.NoError(t, err)
	assert.Nil(t, tables)
}

func TestLoadTablesBadPatch(t *testing.T) {
	scale := 2.0
	_, err := LoadTables(&config.TablesConfig{
		Path:    writeTables(t),
		Patches: []config.TablePatch{{Index: 7, Scale: &scale}},
	})
	var cfgErr *config.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "tables.patches[0]", cfgErr.Field)
}

func TestEnvironmentRequestIsolation(t *testing.T) {
	iopcd := 400.0
	cfg := config.Default()
	cfg.Tables = &config.TablesConfig{Path: writeTables(t)}
	cfg.Overrides = models.ConstantOverrides{IOPCD: &iopcd}

	env, err := EnvironmentFromConfig(cfg)
	require.NoError(t, err)

	first := env.Request(models.DefaultParameters())
	first.Tables[0].YValues[0] = 99

	second := env.Request(models.DefaultParameters())
	assert.Equal(t, 0.0, second.Tables[0].YValues[0])
	assert.Equal(t, 400.0, second.Constants()["iopcd"])
}

func TestOpen(t *testing.T) {
	sim, err := Open(config.SimulatorConfig{Kind: "exec", Command: []string{"python3", "driver.py"}, Timeout: "1m"})
	require.NoError(t, err)
	assert.IsType(t, &ExecSimulator{}, sim)
	assert.NoError(t, Close(sim))

	sim, err = Open(config.SimulatorConfig{Kind: "grpc", Address: "localhost:50051", Retries: 2})
	require.NoError(t, err)
	assert.IsType(t, &GRPCSimulator{}, sim)
	assert.NoError(t, Close(sim))

	var cfgErr *config.ConfigurationError
	_, err = Open(config.SimulatorConfig{})
	assert.ErrorAs(t, err, &cfgErr)
	_, err = Open(config.SimulatorConfig{Kind: "exec", Command: []string{"x"}, Timeout: "later"})
	assert.ErrorAs(t, err, &cfgErr)
}

func TestAsSimulationError(t *testing.T) {
	params := models.DefaultParameters()
	cause := errors.New("boom")

	wrapped := AsSimulationError(params, cause)
	assert.Equal(t, cause, wrapped.Cause)
	assert.ErrorIs(t, wrapped, cause)
	assert.Same(t, wrapped, AsSimulationError(models.ParameterVector{}, wrapped))

	f := Func(func(context.Context, models.SimulationRequest) (*models.SimulationResult, error) {
		return nil, cause
	})
	_, err := f.Simulate(context.Background(), models.SimulationRequest{})
	assert.Equal(t, cause, err)
}
