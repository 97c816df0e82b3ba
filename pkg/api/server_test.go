package api

import (
	"context"
	"net"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/amnes-io/amnes/pkg/controller"
	"github.com/amnes-io/amnes/pkg/rpc"
	"github.com/amnes-io/amnes/pkg/scheduler"
	"github.com/amnes-io/amnes/pkg/storage"
	"github.com/amnes-io/amnes/pkg/transfer"
)

const definition = `
slug: demo
repetitions: 1
stages:
  - slug: measure
    name: Measure
nodes:
  - slug: client
    endpoint:
      address: 10.0.0.1
      port: 9000
    tasks:
      - slug: bench
        module: shellcmd/ShellCommand
        stage: measure
        params:
          command: "true"
`

type instantConn struct{}

func (instantConn) Ping(ctx context.Context) error { return nil }

func (instantConn) ExecuteModule(ctx context.Context, req *rpc.ExecuteModuleRequest) (string, error) {
	return "success", nil
}

func serveFacade(t *testing.T) *grpc.ClientConn {
	t.Helper()

	store, err := storage.NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ts := transfer.NewServer(store, nil, zerolog.Nop())
	require.NoError(t, ts.Start("127.0.0.1:0"))
	t.Cleanup(ts.Shutdown)

	connect := func(addr string) (scheduler.WorkerConn, error) {
		return instantConn{}, nil
	}
	ctrl := controller.New(store, nil, ts, connect, "127.0.0.1:7700", zerolog.Nop())
	facade := NewServer(ctrl, zerolog.Nop())

	lis := bufconn.Listen(1024 * 1024)
	srv := grpc.NewServer(grpc.UnaryInterceptor(LoggingInterceptor(zerolog.Nop())))
	rpc.RegisterControllerServer(srv, facade)
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

func TestImportAndStartOverWire(t *testing.T) {
	conn := serveFacade(t)
	ctx := context.Background()

	importOut := new(rpc.ImportProjectResponse)
	require.NoError(t, conn.Invoke(ctx, rpc.ControllerImportProjectMethod,
		&rpc.ImportProjectRequest{Definition: []byte(definition)}, importOut))
	assert.Equal(t, "demo", importOut.Slug)
	assert.NotEmpty(t, importOut.ID)

	startOut := new(rpc.StartProjectResponse)
	require.NoError(t, conn.Invoke(ctx, rpc.ControllerStartProjectMethod,
		&rpc.StartProjectRequest{Slug: "demo"}, startOut))
}

func TestDuplicateImportIsInternalError(t *testing.T) {
	conn := serveFacade(t)
	ctx := context.Background()

	importOut := new(rpc.ImportProjectResponse)
	require.NoError(t, conn.Invoke(ctx, rpc.ControllerImportProjectMethod,
		&rpc.ImportProjectRequest{Definition: []byte(definition)}, importOut))

	err := conn.Invoke(ctx, rpc.ControllerImportProjectMethod,
		&rpc.ImportProjectRequest{Definition: []byte(definition)}, new(rpc.ImportProjectResponse))
	require.Error(t, err)
	assert.Equal(t, codes.Internal, status.Code(err))
}

func TestStopWithoutRunIsFailedPrecondition(t *testing.T) {
	conn := serveFacade(t)

	err := conn.Invoke(context.Background(), rpc.ControllerStopProjectMethod,
		&rpc.StopProjectRequest{}, new(rpc.StopProjectResponse))
	require.Error(t, err)
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
}

func TestTransferSlotWithoutRunIsFailedPrecondition(t *testing.T) {
	conn := serveFacade(t)

	err := conn.Invoke(context.Background(), rpc.ControllerRequestTransferSlotMethod,
		&rpc.RequestTransferSlotRequest{TaskID: "t1"}, new(rpc.RequestTransferSlotResponse))
	require.Error(t, err)
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
}
