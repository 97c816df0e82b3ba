package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSlug(t *testing.T) {
	tests := []struct {
		name    string
		slug    string
		wantErr bool
	}{
		{name: "simple", slug: "collector", wantErr: false},
		{name: "single uppercase letter", slug: "A", wantErr: false},
		{name: "generated", slug: "exp12", wantErr: false},
		{name: "empty", slug: "", wantErr: true},
		{name: "inner space", slug: "my task", wantErr: true},
		{name: "tab", slug: "a\tb", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSlug(tt.slug)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewNodeTask(t *testing.T) {
	task, err := NewNodeTask("measure", "iperf/IperfClient", "run",
		map[string]string{"rate": "[[rate]]", "omit": ""}, nil)
	require.NoError(t, err)
	assert.Equal(t, "measure", task.Slug)
	assert.Equal(t, "", task.Params["omit"], "empty param values are allowed")

	_, err = NewNodeTask("measure", "", "run", nil, nil)
	assert.Error(t, err, "empty module must be rejected")

	_, err = NewNodeTask("measure", "iperf/IperfClient", "run",
		map[string]string{"": "x"}, nil)
	assert.Error(t, err, "empty param name must be rejected")
}

func TestNodeTaskCloneIsDeep(t *testing.T) {
	task, err := NewNodeTask("probe", "shellcmd/ShellCommand", "run",
		map[string]string{"command": "true"}, map[string]string{"script": "run.sh"})
	require.NoError(t, err)

	clone := task.Clone()
	clone.Params["command"] = "false"
	clone.Files["script"] = "other.sh"

	assert.Equal(t, "true", task.Params["command"])
	assert.Equal(t, "run.sh", task.Files["script"])
}

func TestNewExperimentTemplate(t *testing.T) {
	stageSetup, err := NewStage("setup", "Setup", "")
	require.NoError(t, err)
	stageRun, err := NewStage("run", "Run", "")
	require.NoError(t, err)
	endpoint, err := NewWorkerEndpoint("10.0.0.5", 7620)
	require.NoError(t, err)

	task, err := NewNodeTask("probe", "shellcmd/ShellCommand", "run", nil, nil)
	require.NoError(t, err)
	node, err := NewExperimentNodeTemplate("client", endpoint, []NodeTask{task})
	require.NoError(t, err)

	tmpl, err := NewExperimentTemplate("baseline", []Stage{stageSetup, stageRun},
		[]ExperimentNodeTemplate{node})
	require.NoError(t, err)
	assert.Len(t, tmpl.Stages, 2)

	// duplicate stage slugs
	_, err = NewExperimentTemplate("baseline", []Stage{stageRun, stageRun},
		[]ExperimentNodeTemplate{node})
	assert.Error(t, err)

	// task referencing an undeclared stage
	_, err = NewExperimentTemplate("baseline", []Stage{stageSetup},
		[]ExperimentNodeTemplate{node})
	assert.Error(t, err)

	// duplicate node slugs
	_, err = NewExperimentTemplate("baseline", []Stage{stageSetup, stageRun},
		[]ExperimentNodeTemplate{node, node})
	assert.Error(t, err)
}

func TestNewParameterSet(t *testing.T) {
	set, err := NewParameterSet("rates", []ParameterAxis{
		{Name: "rate", Values: []string{"10", "20"}},
		{Name: "duration", Values: []string{"60"}},
	})
	require.NoError(t, err)
	assert.False(t, set.Empty())

	empty, err := NewParameterSet("none", nil)
	require.NoError(t, err)
	assert.True(t, empty.Empty())

	_, err = NewParameterSet("rates", []ParameterAxis{
		{Name: "rate", Values: []string{"10"}},
		{Name: "rate", Values: []string{"20"}},
	})
	assert.Error(t, err, "duplicate parameter names must be rejected at construction")

	_, err = NewParameterSet("rates", []ParameterAxis{
		{Name: "rate", Values: []string{"  "}},
	})
	assert.Error(t, err, "blank values must be rejected")
}

func TestConcreteExperimentStates(t *testing.T) {
	exp := mustExperiment(t, "exp1", 3)

	for rep := 1; rep <= 3; rep++ {
		state, err := exp.State(rep)
		require.NoError(t, err)
		assert.Equal(t, StateCreated, state)
	}

	_, err := exp.State(4)
	assert.Error(t, err, "unknown repetition must be rejected")

	require.NoError(t, exp.SetState(2, StatePending))
	state, err := exp.State(2)
	require.NoError(t, err)
	assert.Equal(t, StatePending, state)

	assert.Error(t, exp.SetState(0, StatePending))
	assert.Error(t, exp.SetState(1, ExperimentState("paused")))
}

func TestPendingRepetitionsOrdered(t *testing.T) {
	exp := mustExperiment(t, "exp1", 4)
	require.NoError(t, exp.SetState(3, StatePending))
	require.NoError(t, exp.SetState(1, StatePending))
	require.NoError(t, exp.SetState(2, StateFinished))

	assert.Equal(t, []int{1, 3}, exp.PendingRepetitions())
}

func TestExperimentStateClassification(t *testing.T) {
	assert.True(t, StateFinished.Terminal())
	assert.True(t, StateFailed.Terminal())
	assert.True(t, StateAborted.Terminal())
	assert.False(t, StateRunning.Terminal())
	assert.False(t, StateCreated.Terminal())

	assert.True(t, StatePending.Valid())
	assert.False(t, ExperimentState("done").Valid())
}

func TestNewProject(t *testing.T) {
	tmpl := mustTemplate(t)
	set, err := NewParameterSet("rates", []ParameterAxis{{Name: "rate", Values: []string{"10"}}})
	require.NoError(t, err)

	exp := mustExperiment(t, "exp1", 1)
	seq, err := NewExperimentSequence(set, []*ConcreteExperiment{exp})
	require.NoError(t, err)

	project, err := NewProject("demo", tmpl, 1, []ParameterSet{set}, []*ExperimentSequence{seq})
	require.NoError(t, err)
	assert.Equal(t, "demo", project.Slug)

	// sequence/set count mismatch
	_, err = NewProject("demo", tmpl, 1, []ParameterSet{set}, nil)
	assert.Error(t, err)

	// parameter set slug colliding with a task slug
	collide, err := NewParameterSet("probe", nil)
	require.NoError(t, err)
	collideSeq, err := NewExperimentSequence(collide, nil)
	require.NoError(t, err)
	_, err = NewProject("demo", tmpl, 1, []ParameterSet{collide}, []*ExperimentSequence{collideSeq})
	assert.Error(t, err)

	// zero parameter sets require exactly one synthetic sequence
	synthetic, err := NewParameterSet("default", nil)
	require.NoError(t, err)
	synSeq, err := NewExperimentSequence(synthetic, []*ConcreteExperiment{mustExperiment(t, "exp", 1)})
	require.NoError(t, err)
	_, err = NewProject("demo", tmpl, 1, nil, []*ExperimentSequence{synSeq, synSeq})
	assert.Error(t, err)
	_, err = NewProject("demo", tmpl, 1, nil, []*ExperimentSequence{synSeq})
	assert.NoError(t, err)
}

func mustTemplate(t *testing.T) *ExperimentTemplate {
	t.Helper()
	stage, err := NewStage("run", "Run", "")
	require.NoError(t, err)
	endpoint, err := NewWorkerEndpoint("127.0.0.1", 7620)
	require.NoError(t, err)
	task, err := NewNodeTask("probe", "shellcmd/ShellCommand", "run", nil, nil)
	require.NoError(t, err)
	node, err := NewExperimentNodeTemplate("client", endpoint, []NodeTask{task})
	require.NoError(t, err)
	tmpl, err := NewExperimentTemplate("baseline", []Stage{stage}, []ExperimentNodeTemplate{node})
	require.NoError(t, err)
	return tmpl
}

func mustExperiment(t *testing.T, slug string, repetitions int) *ConcreteExperiment {
	t.Helper()
	stage, err := NewStage("run", "Run", "")
	require.NoError(t, err)
	endpoint, err := NewWorkerEndpoint("127.0.0.1", 7620)
	require.NoError(t, err)
	task, err := NewNodeTask("probe", "shellcmd/ShellCommand", "run", nil, nil)
	require.NoError(t, err)
	node, err := NewConcreteExperimentNode("client", endpoint, []NodeTask{task})
	require.NoError(t, err)
	exp, err := NewConcreteExperiment(slug, []Stage{stage}, []ConcreteExperimentNode{node}, repetitions)
	require.NoError(t, err)
	return exp
}
