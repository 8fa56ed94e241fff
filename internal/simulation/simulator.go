package simulation

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/GoSim-25-26J-441/policy-search/pkg/config"
	"github.com/GoSim-25-26J-441/policy-search/pkg/models"
	"github.com/GoSim-25-26J-441/policy-search/pkg/utils"
)

// Simulator runs the external World3 engine for one request.
type Simulator interface {
	Simulate(ctx context.Context, req models.SimulationRequest) (*models.SimulationResult, error)
}

// Func adapts an ordinary function to the Simulator interface.
type Func func(ctx context.Context, req models.SimulationRequest) (*models.SimulationResult, error)

// Simulate calls f.
func (f Func) Simulate(ctx context.Context, req models.SimulationRequest) (*models.SimulationResult, error) {
	return f(ctx, req)
}

// SimulationError reports that the engine could not produce a run for Params.
// Searches recover from it; it never aborts a search.
type SimulationError struct {
	Params models.ParameterVector
	Cause  error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("simulation failed for %s: %v", e.Params, e.Cause)
}

func (e *SimulationError) Unwrap() error {
	return e.Cause
}

// AsSimulationError wraps err for params unless it already is a *SimulationError.
func AsSimulationError(params models.ParameterVector, err error) *SimulationError {
	var simErr *SimulationError
	if errors.As(err, &simErr) {
		return simErr
	}
	return &SimulationError{Params: params, Cause: err}
}

// Open builds the adapter selected by cfg. Adapters holding a connection
// implement io.Closer.
func Open(cfg config.SimulatorConfig) (Simulator, error) {
	timeout, err := cfg.GetTimeout()
	if err != nil {
		return nil, &config.ConfigurationError{Field: "simulator.timeout", Reason: err.Error()}
	}

	switch cfg.Kind {
	case "exec":
		sim, err := NewExecSimulator(cfg.Command, cfg.WorkDir, timeout)
		if err != nil {
			return nil, err
		}
		return sim, nil
	case "grpc":
		backoff := utils.NewBackoff(cfg.Backoff, cfg.BackoffBaseMs, cfg.BackoffMaxMs)
		sim, err := DialGRPC(cfg.Address, GRPCOptions{
			Timeout: timeout,
			Retries: cfg.Retries,
			Backoff: &backoff,
		})
		if err != nil {
			return nil, err
		}
		return sim, nil
	case "":
		return nil, &config.ConfigurationError{Field: "simulator.kind", Reason: "no simulator configured"}
	default:
		return nil, &config.ConfigurationError{Field: "simulator.kind", Reason: "unknown simulator " + cfg.Kind}
	}
}

// Close releases sim if it holds resources.
func Close(sim Simulator) error {
	if c, ok := sim.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
