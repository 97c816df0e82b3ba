package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amnes-io/amnes/pkg/rpc"
	"github.com/amnes-io/amnes/pkg/storage"
	"github.com/amnes-io/amnes/pkg/types"
)

type fakeConn struct {
	mu      sync.Mutex
	pings   int
	execs   []*rpc.ExecuteModuleRequest
	pingErr error

	// pingFn overrides pingErr; n is the 1-based ping count
	pingFn func(n int) error

	// outcome decides the per-request result; nil means success
	outcome func(req *rpc.ExecuteModuleRequest) string
	// onExecute runs inside ExecuteModule, used to trigger cancellation
	onExecute func()
}

func (c *fakeConn) Ping(ctx context.Context) error {
	c.mu.Lock()
	c.pings++
	n := c.pings
	c.mu.Unlock()
	if c.pingFn != nil {
		return c.pingFn(n)
	}
	return c.pingErr
}

func (c *fakeConn) ExecuteModule(ctx context.Context, req *rpc.ExecuteModuleRequest) (string, error) {
	c.mu.Lock()
	c.execs = append(c.execs, req)
	c.mu.Unlock()
	if c.onExecute != nil {
		c.onExecute()
	}
	if c.outcome != nil {
		return c.outcome(req), nil
	}
	return "success", nil
}

func (c *fakeConn) executed() []*rpc.ExecuteModuleRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*rpc.ExecuteModuleRequest(nil), c.execs...)
}

type transitionRecord struct {
	ref    types.ExperimentRef
	states map[int]types.ExperimentState
}

type fakeStore struct {
	mu          sync.Mutex
	transitions []transitionRecord
}

func (s *fakeStore) ImportProject(project *types.Project) (string, error) { return "", nil }

func (s *fakeStore) GetProjectBySlug(slug string) (*types.Project, error) {
	return nil, storage.ErrNotFound
}

func (s *fakeStore) UpdateExperimentStates(ref types.ExperimentRef, states map[int]types.ExperimentState) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := make(map[int]types.ExperimentState, len(states))
	for rep, state := range states {
		copied[rep] = state
	}
	s.transitions = append(s.transitions, transitionRecord{ref: ref, states: copied})
	return "id", nil
}

func (s *fakeStore) ImportFile(data []byte, ref *types.ExperimentRef, repetition int) (string, error) {
	return "", nil
}

func (s *fakeStore) GetFile(id string) (*storage.File, error) { return nil, storage.ErrNotFound }

func (s *fakeStore) ListFiles(ref types.ExperimentRef, repetition int) ([]*storage.File, error) {
	return nil, nil
}

func (s *fakeStore) Close() error { return nil }

// statesOf flattens the persisted transitions for one repetition in order.
func (s *fakeStore) statesOf(repetition int) []types.ExperimentState {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []types.ExperimentState
	for _, tr := range s.transitions {
		if state, ok := tr.states[repetition]; ok {
			out = append(out, state)
		}
	}
	return out
}

type fakeTracker struct {
	mu      sync.Mutex
	current []int
	cleared int
}

func (tr *fakeTracker) SetCurrent(ref *types.ExperimentRef, repetition int) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.current = append(tr.current, repetition)
}

func (tr *fakeTracker) ClearCurrent() {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.cleared++
}

// buildProject assembles a two-stage, two-node project with one synthetic
// sequence and the given repetition count.
func buildProject(t *testing.T, repetitions int) *types.Project {
	t.Helper()

	setup, err := types.NewStage("setup", "Setup", "")
	require.NoError(t, err)
	measure, err := types.NewStage("measure", "Measure", "")
	require.NoError(t, err)

	ep1, err := types.NewWorkerEndpoint("10.0.0.1", 9000)
	require.NoError(t, err)
	ep2, err := types.NewWorkerEndpoint("10.0.0.2", 9000)
	require.NoError(t, err)

	prep, err := types.NewNodeTask("prep", "shellcmd/ShellCommand", "setup", map[string]string{"command": "true"}, nil)
	require.NoError(t, err)
	bench, err := types.NewNodeTask("bench", "iperf/IperfClient", "measure", map[string]string{"host": "10.0.0.2"}, nil)
	require.NoError(t, err)
	capture, err := types.NewNodeTask("capture", "tcpdump/Tcpdump", "measure", nil, nil)
	require.NoError(t, err)

	tmplNode1, err := types.NewExperimentNodeTemplate("client", ep1, []types.NodeTask{prep, bench})
	require.NoError(t, err)
	tmplNode2, err := types.NewExperimentNodeTemplate("server", ep2, []types.NodeTask{capture})
	require.NoError(t, err)
	template, err := types.NewExperimentTemplate("tmpl", []types.Stage{setup, measure}, []types.ExperimentNodeTemplate{tmplNode1, tmplNode2})
	require.NoError(t, err)

	node1, err := types.NewConcreteExperimentNode("client", ep1, []types.NodeTask{prep, bench})
	require.NoError(t, err)
	node2, err := types.NewConcreteExperimentNode("server", ep2, []types.NodeTask{capture})
	require.NoError(t, err)
	experiment, err := types.NewConcreteExperiment("exp", []types.Stage{setup, measure},
		[]types.ConcreteExperimentNode{node1, node2}, repetitions)
	require.NoError(t, err)

	set, err := types.NewParameterSet("default", nil)
	require.NoError(t, err)
	seq, err := types.NewExperimentSequence(set, []*types.ConcreteExperiment{experiment})
	require.NoError(t, err)

	project, err := types.NewProject("proj", template, repetitions, nil, []*types.ExperimentSequence{seq})
	require.NoError(t, err)
	return project
}

type fixture struct {
	store   *fakeStore
	tracker *fakeTracker
	conns   map[string]*fakeConn
	sched   *ProjectScheduler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:   &fakeStore{},
		tracker: &fakeTracker{},
		conns:   make(map[string]*fakeConn),
	}
	connect := func(addr string) (WorkerConn, error) {
		conn, ok := f.conns[addr]
		if !ok {
			conn = &fakeConn{}
			f.conns[addr] = conn
		}
		return conn, nil
	}
	experiments := NewExperimentScheduler(nil, "127.0.0.1:7700", zerolog.Nop())
	f.sched = NewProjectScheduler(f.store, nil, f.tracker, connect, experiments, zerolog.Nop())
	return f
}

func (f *fixture) allExecuted() []*rpc.ExecuteModuleRequest {
	var out []*rpc.ExecuteModuleRequest
	for _, conn := range f.conns {
		out = append(out, conn.executed()...)
	}
	return out
}

func TestRunProjectAllSuccess(t *testing.T) {
	f := newFixture(t)
	project := buildProject(t, 2)

	require.NoError(t, f.sched.Run(context.Background(), project))

	// Three tasks per repetition, two repetitions.
	assert.Len(t, f.allExecuted(), 6)

	// Every repetition went PENDING -> RUNNING -> FINISHED, persisted.
	for rep := 1; rep <= 2; rep++ {
		assert.Equal(t, []types.ExperimentState{
			types.StatePending,
			types.StateRunning,
			types.StateFinished,
		}, f.store.statesOf(rep))
	}

	// The transfer tracker saw each repetition become current, in order.
	assert.Equal(t, []int{1, 2}, f.tracker.current)
	assert.Equal(t, 2, f.tracker.cleared)
}

func TestRunProjectDispatchesTasksToOwningNode(t *testing.T) {
	f := newFixture(t)
	project := buildProject(t, 1)

	require.NoError(t, f.sched.Run(context.Background(), project))

	client := f.conns["10.0.0.1:9000"]
	server := f.conns["10.0.0.2:9000"]
	require.NotNil(t, client)
	require.NotNil(t, server)

	assert.Len(t, client.executed(), 2)
	require.Len(t, server.executed(), 1)
	assert.Equal(t, "tcpdump/Tcpdump", server.executed()[0].Module)
	assert.Equal(t, "127.0.0.1:7700", server.executed()[0].ControllerAddr)
}

func TestFailFastSkipsRemainingStages(t *testing.T) {
	f := newFixture(t)
	project := buildProject(t, 1)

	// The setup-stage task fails; measure-stage tasks must never run.
	f.conns["10.0.0.1:9000"] = &fakeConn{
		outcome: func(req *rpc.ExecuteModuleRequest) string {
			if req.Module == "shellcmd/ShellCommand" {
				return "failure"
			}
			return "success"
		},
	}

	require.NoError(t, f.sched.Run(context.Background(), project))

	assert.Equal(t, []types.ExperimentState{
		types.StatePending,
		types.StateRunning,
		types.StateFailed,
	}, f.store.statesOf(1))

	for _, req := range f.allExecuted() {
		assert.Equal(t, "shellcmd/ShellCommand", req.Module)
	}
}

func TestPreflightFailureAbortsBeforeExecution(t *testing.T) {
	f := newFixture(t)
	project := buildProject(t, 1)

	f.conns["10.0.0.2:9000"] = &fakeConn{pingErr: errors.New("connection refused")}

	err := f.sched.Run(context.Background(), project)
	require.Error(t, err)

	// Nothing was dispatched and no repetition went RUNNING.
	assert.Empty(t, f.allExecuted())
	assert.NotContains(t, f.store.statesOf(1), types.StateRunning)
	assert.Equal(t, []types.ExperimentState{types.StatePending}, f.store.statesOf(1))
}

func TestUnitPingFailureFailsRepetition(t *testing.T) {
	f := newFixture(t)
	project := buildProject(t, 1)

	// The server worker answers the pre-flight ping, then goes away. Its
	// measure-stage task must fail without being dispatched.
	f.conns["10.0.0.2:9000"] = &fakeConn{
		pingFn: func(n int) error {
			if n == 1 {
				return nil
			}
			return errors.New("connection refused")
		},
	}

	require.NoError(t, f.sched.Run(context.Background(), project))

	assert.Equal(t, []types.ExperimentState{
		types.StatePending,
		types.StateRunning,
		types.StateFailed,
	}, f.store.statesOf(1))
	assert.Empty(t, f.conns["10.0.0.2:9000"].executed())
}

func TestStopBetweenStagesAbortsRepetition(t *testing.T) {
	f := newFixture(t)
	project := buildProject(t, 2)

	ctx, cancel := context.WithCancel(context.Background())

	// Cancellation arrives while the setup stage is in flight; the stage
	// completes, the repetition is aborted before the next stage.
	f.conns["10.0.0.1:9000"] = &fakeConn{onExecute: cancel}

	err := f.sched.Run(ctx, project)
	assert.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, []types.ExperimentState{
		types.StatePending,
		types.StateRunning,
		types.StateAborted,
	}, f.store.statesOf(1))

	// The second repetition was never started.
	assert.Equal(t, []types.ExperimentState{types.StatePending}, f.store.statesOf(2))

	// Only the setup-stage task ran.
	for _, req := range f.allExecuted() {
		assert.Equal(t, "shellcmd/ShellCommand", req.Module)
	}
}

func TestEmptyStageCountsAsSuccess(t *testing.T) {
	_ = newFixture(t)

	idle, err := types.NewStage("idle", "Idle", "")
	require.NoError(t, err)
	measure, err := types.NewStage("measure", "Measure", "")
	require.NoError(t, err)

	ep, err := types.NewWorkerEndpoint("10.0.0.1", 9000)
	require.NoError(t, err)
	bench, err := types.NewNodeTask("bench", "shellcmd/ShellCommand", "measure", map[string]string{"command": "true"}, nil)
	require.NoError(t, err)
	node, err := types.NewConcreteExperimentNode("client", ep, []types.NodeTask{bench})
	require.NoError(t, err)
	experiment, err := types.NewConcreteExperiment("exp", []types.Stage{idle, measure},
		[]types.ConcreteExperimentNode{node}, 1)
	require.NoError(t, err)

	conns := map[string]WorkerConn{"10.0.0.1:9000": &fakeConn{}}
	experiments := NewExperimentScheduler(nil, "127.0.0.1:7700", zerolog.Nop())
	state := experiments.RunRepetition(context.Background(), experiment, 1, conns)

	assert.Equal(t, types.StateFinished, state)
}
