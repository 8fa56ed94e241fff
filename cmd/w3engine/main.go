// Command w3engine serves the engine contract over gRPC in front of a local
// engine driver, so searches on other machines can share one installation.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/GoSim-25-26J-441/policy-search/internal/simulation"
	"github.com/GoSim-25-26J-441/policy-search/pkg/config"
	"github.com/GoSim-25-26J-441/policy-search/pkg/logger"
)

type options struct {
	addr      string
	command   string
	workDir   string
	timeout   time.Duration
	maxRuns   uint
	logLevel  string
	logFormat string
	envFile   string
}

func main() {
	var o options
	flag.StringVar(&o.addr, "grpc-addr", ":50051", "gRPC listen address")
	flag.StringVar(&o.command, "command", "", "engine driver command line (default $"+config.EnvSimulatorCommand+")")
	flag.StringVar(&o.workDir, "work-dir", "", "working directory of the driver")
	flag.DurationVar(&o.timeout, "timeout", 5*time.Minute, "per-run timeout")
	flag.UintVar(&o.maxRuns, "max-runs", 4, "concurrent engine runs, 0 for unlimited")
	flag.StringVar(&o.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flag.StringVar(&o.logFormat, "log-format", logger.FormatText, "log format (text, json)")
	flag.StringVar(&o.envFile, "env-file", ".env", "environment file")
	flag.Parse()

	logger.SetDefault(logger.New(logger.Options{Format: o.logFormat, Level: o.logLevel, Output: os.Stdout}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, o); err != nil {
		logger.Error("engine server failed", "error", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, o options) error {
	if err := config.LoadEnv(o.envFile); err != nil {
		return fmt.Errorf("failed to load %s: %w", o.envFile, err)
	}
	if o.command == "" {
		o.command = os.Getenv(config.EnvSimulatorCommand)
	}
	driver, err := simulation.NewExecSimulator(strings.Fields(o.command), o.workDir, o.timeout)
	if err != nil {
		return err
	}

	lis, err := net.Listen("tcp", o.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", o.addr, err)
	}
	logger.Info("engine server listening", "addr", lis.Addr().String(), "command", o.command, "max_runs", o.maxRuns)
	return serve(ctx, lis, driver, o.maxRuns)
}

// serve answers engine and health requests on lis until ctx is done.
func serve(ctx context.Context, lis net.Listener, sim simulation.Simulator, maxRuns uint) error {
	var serverOpts []grpc.ServerOption
	if maxRuns > 0 {
		serverOpts = append(serverOpts, grpc.MaxConcurrentStreams(uint32(maxRuns)))
	}
	srv := grpc.NewServer(serverOpts...)
	simulation.RegisterSimulationService(srv, sim)

	hs := health.NewServer()
	hs.SetServingStatus(simulation.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(lis) }()

	select {
	case err := <-errc:
		if errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	logger.Info("shutdown requested")
	hs.Shutdown()
	srv.GracefulStop()
	return nil
}
