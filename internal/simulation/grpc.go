package simulation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/GoSim-25-26J-441/policy-search/pkg/logger"
	"github.com/GoSim-25-26J-441/policy-search/pkg/models"
	"github.com/GoSim-25-26J-441/policy-search/pkg/utils"
)

// Engine service contract. Requests and responses are google.protobuf.Struct
// documents carrying the same JSON the exec driver speaks.
const (
	ServiceName    = "world3.v1.SimulationService"
	simulateMethod = "/" + ServiceName + "/Simulate"
)

// GRPCOptions tunes the remote adapter.
type GRPCOptions struct {
	// Timeout bounds one attempt; zero means the caller's context only.
	Timeout time.Duration
	// Retries is the number of extra attempts after an Unavailable error.
	Retries int
	// Backoff defaults to a constant 100ms.
	Backoff *utils.Backoff
}

// GRPCSimulator calls a remote engine over gRPC.
type GRPCSimulator struct {
	conn    *grpc.ClientConn
	owned   bool
	timeout time.Duration
	retries int
	backoff utils.Backoff
}

// DialGRPC connects to the engine at address with plaintext transport.
func DialGRPC(address string, opts GRPCOptions, dialOpts ...grpc.DialOption) (*GRPCSimulator, error) {
	if address == "" {
		return nil, fmt.Errorf("grpc simulator requires an address")
	}
	dialOpts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, dialOpts...)
	conn, err := grpc.NewClient(address, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create grpc client for %s: %w", address, err)
	}
	sim := NewGRPCSimulator(conn, opts)
	sim.owned = true
	return sim, nil
}

// NewGRPCSimulator wraps an existing connection. The caller keeps ownership of conn.
func NewGRPCSimulator(conn *grpc.ClientConn, opts GRPCOptions) *GRPCSimulator {
	backoff := utils.Backoff{Kind: utils.BackoffConstant, Base: 100 * time.Millisecond}
	if opts.Backoff != nil {
		backoff = *opts.Backoff
	}
	retries := opts.Retries
	if retries < 0 {
		retries = 0
	}
	return &GRPCSimulator{
		conn:    conn,
		timeout: opts.Timeout,
		retries: retries,
		backoff: backoff,
	}
}

// Close releases the connection if DialGRPC created it.
func (s *GRPCSimulator) Close() error {
	if !s.owned {
		return nil
	}
	return s.conn.Close()
}

// Simulate performs one remote run, retrying while the engine is unavailable.
func (s *GRPCSimulator) Simulate(ctx context.Context, req models.SimulationRequest) (*models.SimulationResult, error) {
	in, err := toStruct(newWireRequest(req))
	if err != nil {
		return nil, &SimulationError{Params: req.Params, Cause: fmt.Errorf("failed to encode request: %w", err)}
	}

	for attempt := 0; ; attempt++ {
		out := new(structpb.Struct)
		err := s.invoke(ctx, in, out)
		if err == nil {
			var result models.SimulationResult
			if err := fromStruct(out, &result); err != nil {
				return nil, &SimulationError{Params: req.Params, Cause: fmt.Errorf("malformed engine response: %w", err)}
			}
			return &result, nil
		}

		if status.Code(err) != codes.Unavailable || attempt >= s.retries {
			return nil, &SimulationError{Params: req.Params, Cause: err}
		}

		logger.Warn("engine unavailable, retrying", "attempt", attempt+1, "delay", s.backoff.Delay(attempt), "error", err)
		if werr := s.backoff.Wait(ctx, attempt); werr != nil {
			return nil, &SimulationError{Params: req.Params, Cause: werr}
		}
	}
}

func (s *GRPCSimulator) invoke(ctx context.Context, in, out *structpb.Struct) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return s.conn.Invoke(ctx, simulateMethod, in, out)
}

// SimulationServer is the server side of the engine contract.
type SimulationServer interface {
	Simulate(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

type simulationService struct {
	sim Simulator
}

func (s *simulationService) Simulate(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var wire wireRequest
	if err := fromStruct(in, &wire); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	req, err := wire.request()
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	result, err := s.sim.Simulate(ctx, req)
	if err != nil {
		if st, ok := status.FromError(err); ok {
			return nil, st.Err()
		}
		logger.Warn("engine run failed", "params", req.Params.String(), "error", err)
		return nil, status.Error(codes.Internal, err.Error())
	}

	out, err := toStruct(result)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func simulateHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SimulationServer).Simulate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: simulateMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(SimulationServer).Simulate(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

var simulationServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SimulationServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Simulate",
			Handler:    simulateHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "world3/v1/simulation.proto",
}

// RegisterSimulationService serves sim on s under the engine contract.
func RegisterSimulationService(s grpc.ServiceRegistrar, sim Simulator) {
	s.RegisterService(&simulationServiceDesc, &simulationService{sim: sim})
}

func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, err
	}
	return out, nil
}

func fromStruct(in *structpb.Struct, v any) error {
	data, err := protojson.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
