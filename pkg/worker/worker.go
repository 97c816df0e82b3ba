package worker

import (
	"context"
	"fmt"
	"net"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"

	"github.com/amnes-io/amnes/pkg/executor"
	"github.com/amnes-io/amnes/pkg/log"
	"github.com/amnes-io/amnes/pkg/modules"
	"github.com/amnes-io/amnes/pkg/rpc"
	"github.com/amnes-io/amnes/pkg/transfer"
)

// Worker is the node-side daemon: it answers pings and executes node
// tasks dispatched by the controller.
type Worker struct {
	executor *executor.Executor
	grpc     *grpc.Server
	logger   zerolog.Logger
}

// New creates a worker with the built-in modules registered.
func New(logger zerolog.Logger) (*Worker, error) {
	registry := modules.NewRegistry()
	if err := modules.RegisterBuiltins(registry); err != nil {
		return nil, err
	}
	return NewWithRegistry(registry, logger), nil
}

// NewWithRegistry creates a worker over a caller-assembled registry.
func NewWithRegistry(registry *modules.Registry, logger zerolog.Logger) *Worker {
	logger = log.WithComponent(logger, "worker")
	exec := executor.New(registry, func(ctx context.Context, taskID, sinkAddr string) (modules.ResultSink, error) {
		return transfer.NewSink(ctx, taskID, sinkAddr)
	}, logger)
	return &Worker{
		executor: exec,
		grpc:     grpc.NewServer(),
		logger:   logger,
	}
}

// Start begins serving on addr. It blocks until the server stops.
func (w *Worker) Start(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	rpc.RegisterWorkerServer(w.grpc, w)

	w.logger.Info().Str("addr", addr).Msg("Worker listening")
	return w.grpc.Serve(lis)
}

// Stop gracefully stops the gRPC server.
func (w *Worker) Stop() {
	if w.grpc != nil {
		w.grpc.GracefulStop()
	}
}

// Ping echoes the caller's payload, proving the worker is alive end to
// end rather than just accepting connections.
func (w *Worker) Ping(ctx context.Context, req *rpc.PingRequest) (*rpc.PingResponse, error) {
	return &rpc.PingResponse{Payload: req.Payload}, nil
}

// ExecuteModule runs one node task and reports its outcome code. Task
// failures are encoded in the outcome, never as RPC errors.
func (w *Worker) ExecuteModule(ctx context.Context, req *rpc.ExecuteModuleRequest) (*rpc.ExecuteModuleResponse, error) {
	taskLogger := log.WithTaskID(w.logger, req.TaskID)
	taskLogger.Info().Str("module", req.Module).Msg("Executing task")

	outcome := w.executor.Execute(ctx, executor.Request{
		TaskID:   req.TaskID,
		Module:   req.Module,
		Params:   req.Params,
		Files:    req.Files,
		SinkAddr: req.ControllerAddr,
	})

	taskLogger.Info().Str("outcome", string(outcome)).Msg("Task finished")
	return &rpc.ExecuteModuleResponse{Outcome: string(outcome)}, nil
}
