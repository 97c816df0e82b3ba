package controller

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amnes-io/amnes/pkg/rpc"
	"github.com/amnes-io/amnes/pkg/scheduler"
	"github.com/amnes-io/amnes/pkg/storage"
	"github.com/amnes-io/amnes/pkg/transfer"
	"github.com/amnes-io/amnes/pkg/types"
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

// blockingConn parks every ExecuteModule call until released.
type blockingConn struct {
	started chan struct{}
	release chan struct{}
}

func newBlockingConn() *blockingConn {
	return &blockingConn{
		started: make(chan struct{}, 8),
		release: make(chan struct{}),
	}
}

func (c *blockingConn) Ping(ctx context.Context) error { return nil }

func (c *blockingConn) ExecuteModule(ctx context.Context, req *rpc.ExecuteModuleRequest) (string, error) {
	c.started <- struct{}{}
	<-c.release
	return "success", nil
}

type instantConn struct{}

func (instantConn) Ping(ctx context.Context) error { return nil }

func (instantConn) ExecuteModule(ctx context.Context, req *rpc.ExecuteModuleRequest) (string, error) {
	return "success", nil
}

func newController(t *testing.T, connect scheduler.ConnectFunc) *Controller {
	t.Helper()

	store, err := storage.NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ts := transfer.NewServer(store, nil, zerolog.Nop())
	require.NoError(t, ts.Start("127.0.0.1:0"))
	t.Cleanup(ts.Shutdown)

	c := New(store, nil, ts, connect, "127.0.0.1:7700", zerolog.Nop())
	c.timeout = 100 * time.Millisecond
	return c
}

func TestImportProject(t *testing.T) {
	c := newController(t, nil)

	id, slug, err := c.ImportProject([]byte(definition))
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, "demo", slug)

	_, _, err = c.ImportProject([]byte(definition))
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)
}

func TestImportProjectRejectsGarbage(t *testing.T) {
	c := newController(t, nil)

	_, _, err := c.ImportProject([]byte("nonsense: [true"))
	assert.Error(t, err)
}

func TestStartProjectRunsToCompletion(t *testing.T) {
	c := newController(t, func(addr string) (scheduler.WorkerConn, error) {
		return instantConn{}, nil
	})

	_, slug, err := c.ImportProject([]byte(definition))
	require.NoError(t, err)

	require.NoError(t, c.StartProject(slug))
	c.Wait()

	project, err := c.store.GetProjectBySlug(slug)
	require.NoError(t, err)
	state, err := project.Sequences[0].Experiments[0].State(1)
	require.NoError(t, err)
	assert.Equal(t, types.StateFinished, state)
}

func TestStartUnknownProject(t *testing.T) {
	c := newController(t, nil)
	assert.Error(t, c.StartProject("missing"))
}

func TestControlCommandsBusyWhileRunning(t *testing.T) {
	conn := newBlockingConn()
	c := newController(t, func(addr string) (scheduler.WorkerConn, error) {
		return conn, nil
	})

	_, slug, err := c.ImportProject([]byte(definition))
	require.NoError(t, err)
	require.NoError(t, c.StartProject(slug))

	// Wait until the run is inside a task and still holding the lock.
	select {
	case <-conn.started:
	case <-time.After(5 * time.Second):
		t.Fatal("run never dispatched a task")
	}

	_, _, err = c.ImportProject([]byte(definition))
	assert.ErrorIs(t, err, ErrBusy)
	assert.ErrorIs(t, c.StartProject(slug), ErrBusy)

	close(conn.release)
	c.Wait()

	// The lock is free again after the run.
	_, _, err = c.ImportProject([]byte(definition))
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)
}

func TestStopProjectBypassesLock(t *testing.T) {
	conn := newBlockingConn()
	c := newController(t, func(addr string) (scheduler.WorkerConn, error) {
		return conn, nil
	})

	_, slug, err := c.ImportProject([]byte(definition))
	require.NoError(t, err)
	require.NoError(t, c.StartProject(slug))

	select {
	case <-conn.started:
	case <-time.After(5 * time.Second):
		t.Fatal("run never dispatched a task")
	}

	// Stop succeeds immediately even though the run holds the lock.
	require.NoError(t, c.StopProject())

	close(conn.release)
	c.Wait()
}

func TestStopProjectWithoutRun(t *testing.T) {
	c := newController(t, nil)
	assert.ErrorIs(t, c.StopProject(), ErrNotRunning)
}

func TestRequestTransferSlotOutsideRun(t *testing.T) {
	c := newController(t, nil)
	_, _, err := c.RequestTransferSlot()
	assert.ErrorIs(t, err, transfer.ErrNoCurrentRepetition)
}

func TestShutdownClosesDone(t *testing.T) {
	c := newController(t, nil)
	c.Shutdown()
	select {
	case <-c.Done():
	default:
		t.Fatal("shutdown channel still open")
	}
	c.Shutdown()
}
