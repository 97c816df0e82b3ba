package rpc

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
)

type echoWorker struct {
	executed []*ExecuteModuleRequest
}

func (w *echoWorker) Ping(ctx context.Context, req *PingRequest) (*PingResponse, error) {
	return &PingResponse{Payload: req.Payload}, nil
}

func (w *echoWorker) ExecuteModule(ctx context.Context, req *ExecuteModuleRequest) (*ExecuteModuleResponse, error) {
	w.executed = append(w.executed, req)
	return &ExecuteModuleResponse{Outcome: "success"}, nil
}

func dialBuf(t *testing.T, lis *bufconn.Listener) *grpc.ClientConn {
	t.Helper()
	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, addr string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestWorkerServiceRoundTrip(t *testing.T) {
	lis := bufconn.Listen(1024 * 1024)
	srv := grpc.NewServer()
	worker := &echoWorker{}
	RegisterWorkerServer(srv, worker)
	go srv.Serve(lis)
	defer srv.Stop()

	conn := dialBuf(t, lis)
	ctx := context.Background()

	out := new(PingResponse)
	require.NoError(t, conn.Invoke(ctx, WorkerPingMethod, &PingRequest{Payload: "abc123"}, out))
	assert.Equal(t, "abc123", out.Payload)

	execOut := new(ExecuteModuleResponse)
	req := &ExecuteModuleRequest{
		TaskID:         "unit-1",
		Module:         "shellcmd/ShellCommand",
		Params:         map[string]string{"command": "true"},
		ControllerAddr: "127.0.0.1:7700",
	}
	require.NoError(t, conn.Invoke(ctx, WorkerExecuteModuleMethod, req, execOut))
	assert.Equal(t, "success", execOut.Outcome)

	require.Len(t, worker.executed, 1)
	assert.Equal(t, "unit-1", worker.executed[0].TaskID)
	assert.Equal(t, map[string]string{"command": "true"}, worker.executed[0].Params)
}

type stubController struct {
	imported [][]byte
}

func (c *stubController) ImportProject(ctx context.Context, req *ImportProjectRequest) (*ImportProjectResponse, error) {
	c.imported = append(c.imported, req.Definition)
	return &ImportProjectResponse{ID: "id-1", Slug: "proj"}, nil
}

func (c *stubController) StartProject(ctx context.Context, req *StartProjectRequest) (*StartProjectResponse, error) {
	return &StartProjectResponse{}, nil
}

func (c *stubController) StopProject(ctx context.Context, req *StopProjectRequest) (*StopProjectResponse, error) {
	return &StopProjectResponse{}, nil
}

func (c *stubController) Shutdown(ctx context.Context, req *ShutdownRequest) (*ShutdownResponse, error) {
	return &ShutdownResponse{}, nil
}

func (c *stubController) Kill(ctx context.Context, req *KillRequest) (*KillResponse, error) {
	return &KillResponse{}, nil
}

func (c *stubController) RequestTransferSlot(ctx context.Context, req *RequestTransferSlotRequest) (*RequestTransferSlotResponse, error) {
	return &RequestTransferSlotResponse{Token: "tok", Address: "127.0.0.1:7701"}, nil
}

func TestControllerServiceRoundTrip(t *testing.T) {
	lis := bufconn.Listen(1024 * 1024)
	srv := grpc.NewServer()
	controller := &stubController{}
	RegisterControllerServer(srv, controller)
	go srv.Serve(lis)
	defer srv.Stop()

	conn := dialBuf(t, lis)
	ctx := context.Background()

	importOut := new(ImportProjectResponse)
	require.NoError(t, conn.Invoke(ctx, ControllerImportProjectMethod,
		&ImportProjectRequest{Definition: []byte("slug: proj")}, importOut))
	assert.Equal(t, "proj", importOut.Slug)
	require.Len(t, controller.imported, 1)
	assert.Equal(t, []byte("slug: proj"), controller.imported[0])

	slotOut := new(RequestTransferSlotResponse)
	require.NoError(t, conn.Invoke(ctx, ControllerRequestTransferSlotMethod,
		&RequestTransferSlotRequest{TaskID: "unit-1", FileName: "stdout.log"}, slotOut))
	assert.Equal(t, "tok", slotOut.Token)
	assert.Equal(t, "127.0.0.1:7701", slotOut.Address)
}
