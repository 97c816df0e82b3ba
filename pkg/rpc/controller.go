package rpc

import (
	"context"

	"google.golang.org/grpc"
)

// ControllerServiceName is the fully qualified gRPC service name of the
// controller's remote control facade.
const ControllerServiceName = "amnes.Controller"

// Full method names for invoking the controller service.
const (
	ControllerImportProjectMethod       = "/" + ControllerServiceName + "/ImportProject"
	ControllerStartProjectMethod        = "/" + ControllerServiceName + "/StartProject"
	ControllerStopProjectMethod         = "/" + ControllerServiceName + "/StopProject"
	ControllerShutdownMethod            = "/" + ControllerServiceName + "/Shutdown"
	ControllerKillMethod                = "/" + ControllerServiceName + "/Kill"
	ControllerRequestTransferSlotMethod = "/" + ControllerServiceName + "/RequestTransferSlot"
)

// ControllerServer is the remote control surface of the controller.
type ControllerServer interface {
	ImportProject(ctx context.Context, req *ImportProjectRequest) (*ImportProjectResponse, error)
	StartProject(ctx context.Context, req *StartProjectRequest) (*StartProjectResponse, error)
	StopProject(ctx context.Context, req *StopProjectRequest) (*StopProjectResponse, error)
	Shutdown(ctx context.Context, req *ShutdownRequest) (*ShutdownResponse, error)
	Kill(ctx context.Context, req *KillRequest) (*KillResponse, error)
	RequestTransferSlot(ctx context.Context, req *RequestTransferSlotRequest) (*RequestTransferSlotResponse, error)
}

// RegisterControllerServer registers srv on a gRPC server.
func RegisterControllerServer(s grpc.ServiceRegistrar, srv ControllerServer) {
	s.RegisterService(&ControllerServiceDesc, srv)
}

func controllerImportProjectHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ImportProjectRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ControllerServer).ImportProject(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: ControllerImportProjectMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ControllerServer).ImportProject(ctx, req.(*ImportProjectRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func controllerStartProjectHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(StartProjectRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ControllerServer).StartProject(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: ControllerStartProjectMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ControllerServer).StartProject(ctx, req.(*StartProjectRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func controllerStopProjectHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(StopProjectRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ControllerServer).StopProject(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: ControllerStopProjectMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ControllerServer).StopProject(ctx, req.(*StopProjectRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func controllerShutdownHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ShutdownRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ControllerServer).Shutdown(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: ControllerShutdownMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ControllerServer).Shutdown(ctx, req.(*ShutdownRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func controllerKillHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(KillRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ControllerServer).Kill(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: ControllerKillMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ControllerServer).Kill(ctx, req.(*KillRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func controllerRequestTransferSlotHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(RequestTransferSlotRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ControllerServer).RequestTransferSlot(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: ControllerRequestTransferSlotMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ControllerServer).RequestTransferSlot(ctx, req.(*RequestTransferSlotRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// ControllerServiceDesc is the gRPC service descriptor for the controller
// service.
var ControllerServiceDesc = grpc.ServiceDesc{
	ServiceName: ControllerServiceName,
	HandlerType: (*ControllerServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "ImportProject",
			Handler:    controllerImportProjectHandler,
		},
		{
			MethodName: "StartProject",
			Handler:    controllerStartProjectHandler,
		},
		{
			MethodName: "StopProject",
			Handler:    controllerStopProjectHandler,
		},
		{
			MethodName: "Shutdown",
			Handler:    controllerShutdownHandler,
		},
		{
			MethodName: "Kill",
			Handler:    controllerKillHandler,
		},
		{
			MethodName: "RequestTransferSlot",
			Handler:    controllerRequestTransferSlotHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "amnes/controller",
}
