package client

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"google.golang.org/grpc"

	"github.com/amnes-io/amnes/pkg/rpc"
)

// Worker is the controller's typed client to one worker node.
type Worker struct {
	addr string
	conn *grpc.ClientConn
}

// NewWorker connects to a worker endpoint. Connection establishment is
// lazy; the first RPC surfaces unreachable workers.
func NewWorker(addr string) (*Worker, error) {
	conn, err := dial(addr, rpc.CodecName)
	if err != nil {
		return nil, err
	}
	return &Worker{addr: addr, conn: conn}, nil
}

// Addr returns the worker endpoint this client is bound to.
func (w *Worker) Addr() string {
	return w.addr
}

// Ping sends a random payload and verifies the worker echoes it back. A
// reply with the wrong payload counts as a failed ping.
func (w *Worker) Ping(ctx context.Context) error {
	payload := uuid.New().String()
	out := new(rpc.PingResponse)
	if err := w.conn.Invoke(ctx, rpc.WorkerPingMethod, &rpc.PingRequest{Payload: payload}, out); err != nil {
		return fmt.Errorf("ping %s: %w", w.addr, err)
	}
	if out.Payload != payload {
		return fmt.Errorf("ping %s: payload mismatch", w.addr)
	}
	return nil
}

// ExecuteModule dispatches one node task and returns its outcome code.
func (w *Worker) ExecuteModule(ctx context.Context, req *rpc.ExecuteModuleRequest) (string, error) {
	out := new(rpc.ExecuteModuleResponse)
	if err := w.conn.Invoke(ctx, rpc.WorkerExecuteModuleMethod, req, out); err != nil {
		return "", fmt.Errorf("execute module on %s: %w", w.addr, err)
	}
	return out.Outcome, nil
}

// Close releases the underlying connection.
func (w *Worker) Close() error {
	return w.conn.Close()
}
