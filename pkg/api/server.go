package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/amnes-io/amnes/pkg/controller"
	"github.com/amnes-io/amnes/pkg/log"
	"github.com/amnes-io/amnes/pkg/rpc"
	"github.com/amnes-io/amnes/pkg/transfer"
)

// Server exposes the controller's remote control facade over gRPC.
type Server struct {
	controller *controller.Controller
	grpc       *grpc.Server
	logger     zerolog.Logger
}

// NewServer creates the facade server around a controller.
func NewServer(ctrl *controller.Controller, logger zerolog.Logger) *Server {
	logger = log.WithComponent(logger, "api")
	return &Server{
		controller: ctrl,
		grpc:       grpc.NewServer(grpc.UnaryInterceptor(LoggingInterceptor(logger))),
		logger:     logger,
	}
}

// Start begins serving on addr. It blocks until the server stops.
func (s *Server) Start(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	rpc.RegisterControllerServer(s.grpc, s)

	s.logger.Info().Str("addr", addr).Msg("Control API listening")
	return s.grpc.Serve(lis)
}

// Stop gracefully stops the gRPC server.
func (s *Server) Stop() {
	if s.grpc != nil {
		s.grpc.GracefulStop()
	}
}

// ImportProject imports a project definition document.
func (s *Server) ImportProject(ctx context.Context, req *rpc.ImportProjectRequest) (*rpc.ImportProjectResponse, error) {
	id, slug, err := s.controller.ImportProject(req.Definition)
	if err != nil {
		return nil, controlError(err)
	}
	return &rpc.ImportProjectResponse{ID: id, Slug: slug}, nil
}

// StartProject starts execution of an imported project.
func (s *Server) StartProject(ctx context.Context, req *rpc.StartProjectRequest) (*rpc.StartProjectResponse, error) {
	if err := s.controller.StartProject(req.Slug); err != nil {
		return nil, controlError(err)
	}
	return &rpc.StartProjectResponse{}, nil
}

// StopProject aborts the running project.
func (s *Server) StopProject(ctx context.Context, req *rpc.StopProjectRequest) (*rpc.StopProjectResponse, error) {
	if err := s.controller.StopProject(); err != nil {
		return nil, controlError(err)
	}
	return &rpc.StopProjectResponse{}, nil
}

// Shutdown triggers the graceful shutdown path. Fire-and-forget: the
// response is sent before the daemon starts tearing itself down.
func (s *Server) Shutdown(ctx context.Context, req *rpc.ShutdownRequest) (*rpc.ShutdownResponse, error) {
	go s.controller.Shutdown()
	return &rpc.ShutdownResponse{}, nil
}

// Kill terminates the process immediately, bypassing graceful shutdown.
func (s *Server) Kill(ctx context.Context, req *rpc.KillRequest) (*rpc.KillResponse, error) {
	s.logger.Warn().Msg("Kill requested, terminating immediately")
	go func() {
		// Leave the response a moment to flush.
		time.Sleep(100 * time.Millisecond)
		os.Exit(1)
	}()
	return &rpc.KillResponse{}, nil
}

// RequestTransferSlot mints an upload token for the current repetition.
func (s *Server) RequestTransferSlot(ctx context.Context, req *rpc.RequestTransferSlotRequest) (*rpc.RequestTransferSlotResponse, error) {
	token, addr, err := s.controller.RequestTransferSlot()
	if err != nil {
		return nil, controlError(err)
	}
	return &rpc.RequestTransferSlotResponse{Token: token, Address: addr}, nil
}

// controlError maps controller errors onto gRPC status codes.
func controlError(err error) error {
	switch {
	case errors.Is(err, controller.ErrBusy):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, controller.ErrNotRunning):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, transfer.ErrNoCurrentRepetition):
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
