package rpc

import (
	"context"

	"google.golang.org/grpc"
)

// WorkerServiceName is the fully qualified gRPC service name of the worker.
const WorkerServiceName = "amnes.Worker"

// Full method names for invoking the worker service.
const (
	WorkerPingMethod          = "/" + WorkerServiceName + "/Ping"
	WorkerExecuteModuleMethod = "/" + WorkerServiceName + "/ExecuteModule"
)

// WorkerServer is the contract a worker node exposes to the controller.
type WorkerServer interface {
	Ping(ctx context.Context, req *PingRequest) (*PingResponse, error)
	ExecuteModule(ctx context.Context, req *ExecuteModuleRequest) (*ExecuteModuleResponse, error)
}

// RegisterWorkerServer registers srv on a gRPC server.
func RegisterWorkerServer(s grpc.ServiceRegistrar, srv WorkerServer) {
	s.RegisterService(&WorkerServiceDesc, srv)
}

func workerPingHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(PingRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(WorkerServer).Ping(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: WorkerPingMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(WorkerServer).Ping(ctx, req.(*PingRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func workerExecuteModuleHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ExecuteModuleRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(WorkerServer).ExecuteModule(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: WorkerExecuteModuleMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(WorkerServer).ExecuteModule(ctx, req.(*ExecuteModuleRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// WorkerServiceDesc is the gRPC service descriptor for the worker service.
var WorkerServiceDesc = grpc.ServiceDesc{
	ServiceName: WorkerServiceName,
	HandlerType: (*WorkerServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Ping",
			Handler:    workerPingHandler,
		},
		{
			MethodName: "ExecuteModule",
			Handler:    workerExecuteModuleHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "amnes/worker",
}
