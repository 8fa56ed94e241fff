package simulation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/GoSim-25-26J-441/policy-search/pkg/logger"
	"github.com/GoSim-25-26J-441/policy-search/pkg/models"
)

// stderrTailBytes bounds how much engine stderr ends up in an error.
const stderrTailBytes = 2048

// ExecSimulator runs an engine driver process per request. The request is
// written to stdin as JSON and the result is read from stdout.
type ExecSimulator struct {
	Command []string
	WorkDir string
	// Timeout bounds one run; zero means no limit beyond the caller's context.
	Timeout time.Duration
	// Env is appended to the current process environment.
	Env []string
}

// NewExecSimulator creates an exec adapter for command.
func NewExecSimulator(command []string, workDir string, timeout time.Duration) (*ExecSimulator, error) {
	if len(command) == 0 || command[0] == "" {
		return nil, fmt.Errorf("exec simulator requires a command")
	}
	return &ExecSimulator{
		Command: append([]string(nil), command...),
		WorkDir: workDir,
		Timeout: timeout,
	}, nil
}

// Simulate runs the driver once. Every failure is a *SimulationError.
func (s *ExecSimulator) Simulate(ctx context.Context, req models.SimulationRequest) (*models.SimulationResult, error) {
	payload, err := json.Marshal(newWireRequest(req))
	if err != nil {
		return nil, &SimulationError{Params: req.Params, Cause: fmt.Errorf("failed to encode request: %w", err)}
	}

	runCtx := ctx
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, s.Command[0], s.Command[1:]...)
	cmd.Dir = s.WorkDir
	if len(s.Env) > 0 {
		cmd.Env = append(os.Environ(), s.Env...)
	}
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		if ctxErr := runCtx.Err(); ctxErr != nil {
			err = fmt.Errorf("engine did not finish: %w", ctxErr)
		} else {
			err = fmt.Errorf("engine exited: %w", err)
		}
		if tail := tail(stderr.String(), stderrTailBytes); tail != "" {
			err = fmt.Errorf("%w: %s", err, tail)
		}
		return nil, &SimulationError{Params: req.Params, Cause: err}
	}

	var result models.SimulationResult
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		return nil, &SimulationError{Params: req.Params, Cause: fmt.Errorf("malformed engine output: %w", err)}
	}

	logger.Debug("engine run finished", "params", req.Params.String(), "duration", time.Since(start))
	return &result, nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
