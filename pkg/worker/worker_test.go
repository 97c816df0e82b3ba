package worker

import (
	"context"
	"net"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"github.com/amnes-io/amnes/pkg/executor"
	"github.com/amnes-io/amnes/pkg/rpc"
)

func serveWorker(t *testing.T) *grpc.ClientConn {
	t.Helper()

	w, err := New(zerolog.Nop())
	require.NoError(t, err)

	lis := bufconn.Listen(1024 * 1024)
	srv := grpc.NewServer()
	rpc.RegisterWorkerServer(srv, w)
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, addr string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(rpc.CodecName)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestPingEchoesPayload(t *testing.T) {
	conn := serveWorker(t)

	out := new(rpc.PingResponse)
	require.NoError(t, conn.Invoke(context.Background(), rpc.WorkerPingMethod,
		&rpc.PingRequest{Payload: "probe-42"}, out))
	assert.Equal(t, "probe-42", out.Payload)
}

func TestExecuteModuleSuccess(t *testing.T) {
	conn := serveWorker(t)

	out := new(rpc.ExecuteModuleResponse)
	req := &rpc.ExecuteModuleRequest{
		TaskID:         "t1",
		Module:         "shellcmd/ShellCommand",
		ControllerAddr: "127.0.0.1:1",
		Params:         map[string]string{"command": "true"},
	}
	require.NoError(t, conn.Invoke(context.Background(), rpc.WorkerExecuteModuleMethod, req, out))
	assert.Equal(t, string(executor.OutcomeSuccess), out.Outcome)
}

func TestExecuteModuleUnknownModuleIsOutcomeNotError(t *testing.T) {
	conn := serveWorker(t)

	out := new(rpc.ExecuteModuleResponse)
	req := &rpc.ExecuteModuleRequest{TaskID: "t1", Module: "nosuch/Module"}
	require.NoError(t, conn.Invoke(context.Background(), rpc.WorkerExecuteModuleMethod, req, out))
	assert.Equal(t, string(executor.OutcomeNamespaceNotFound), out.Outcome)
}

func TestExecuteModuleFailingCommand(t *testing.T) {
	conn := serveWorker(t)

	out := new(rpc.ExecuteModuleResponse)
	req := &rpc.ExecuteModuleRequest{
		TaskID:         "t1",
		Module:         "shellcmd/ShellCommand",
		ControllerAddr: "127.0.0.1:1",
		Params:         map[string]string{"command": "exit 1"},
	}
	require.NoError(t, conn.Invoke(context.Background(), rpc.WorkerExecuteModuleMethod, req, out))
	assert.Equal(t, string(executor.OutcomeFailure), out.Outcome)
}
