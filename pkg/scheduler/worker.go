package scheduler

import (
	"context"

	"github.com/amnes-io/amnes/pkg/rpc"
)

// WorkerConn is the slice of a worker client the schedulers need. The
// production implementation is client.Worker; tests substitute fakes.
type WorkerConn interface {
	Ping(ctx context.Context) error
	ExecuteModule(ctx context.Context, req *rpc.ExecuteModuleRequest) (string, error)
}

// ConnectFunc opens a connection to a worker endpoint address.
type ConnectFunc func(addr string) (WorkerConn, error)
