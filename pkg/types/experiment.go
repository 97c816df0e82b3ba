package types

import (
	"fmt"
	"sort"
)

// ConcreteExperiment is one fully resolved, placeholder-free experiment
// instance, run for N independent repetitions. Each repetition carries its
// own lifecycle state, initialized to StateCreated.
type ConcreteExperiment struct {
	Slug        string
	Stages      []Stage
	Nodes       []ConcreteExperimentNode
	Repetitions int
	States      map[int]ExperimentState
}

// NewConcreteExperiment creates a validated concrete experiment with all
// repetition states set to StateCreated. Repetitions are numbered 1..N.
func NewConcreteExperiment(slug string, stages []Stage, nodes []ConcreteExperimentNode, repetitions int) (*ConcreteExperiment, error) {
	if err := ValidateSlug(slug); err != nil {
		return nil, fmt.Errorf("invalid experiment: %w", err)
	}
	if len(stages) == 0 {
		return nil, fmt.Errorf("experiment %s: at least one stage is required", slug)
	}
	if repetitions < 1 {
		return nil, fmt.Errorf("experiment %s: repetitions must be >= 1, got %d", slug, repetitions)
	}
	seen := make(map[string]bool, len(nodes))
	for _, node := range nodes {
		if seen[node.Slug] {
			return nil, fmt.Errorf("experiment %s: duplicate node slug %s", slug, node.Slug)
		}
		seen[node.Slug] = true
	}
	states := make(map[int]ExperimentState, repetitions)
	for rep := 1; rep <= repetitions; rep++ {
		states[rep] = StateCreated
	}
	return &ConcreteExperiment{
		Slug:        slug,
		Stages:      stages,
		Nodes:       nodes,
		Repetitions: repetitions,
		States:      states,
	}, nil
}

// State returns the lifecycle state of the given repetition
func (e *ConcreteExperiment) State(repetition int) (ExperimentState, error) {
	state, ok := e.States[repetition]
	if !ok {
		return "", fmt.Errorf("experiment %s: unknown repetition %d", e.Slug, repetition)
	}
	return state, nil
}

// SetState records a state transition for the given repetition. The state
// map validates that the repetition exists and the state is known; the
// transition sequence itself is driven by the schedulers.
func (e *ConcreteExperiment) SetState(repetition int, state ExperimentState) error {
	if _, ok := e.States[repetition]; !ok {
		return fmt.Errorf("experiment %s: unknown repetition %d", e.Slug, repetition)
	}
	if !state.Valid() {
		return fmt.Errorf("experiment %s: unknown state %q", e.Slug, state)
	}
	e.States[repetition] = state
	return nil
}

// PendingRepetitions returns the repetitions currently in StatePending,
// in ascending order.
func (e *ConcreteExperiment) PendingRepetitions() []int {
	var pending []int
	for rep, state := range e.States {
		if state == StatePending {
			pending = append(pending, rep)
		}
	}
	sort.Ints(pending)
	return pending
}

// ExperimentSequence groups the concrete experiments generated from exactly
// one parameter set. Experiment slugs are unique within a sequence and
// follow the deterministic enumeration order of the generator.
type ExperimentSequence struct {
	ParameterSet ParameterSet
	Experiments  []*ConcreteExperiment
}

// NewExperimentSequence creates a validated sequence
func NewExperimentSequence(set ParameterSet, experiments []*ConcreteExperiment) (*ExperimentSequence, error) {
	seen := make(map[string]bool, len(experiments))
	for _, exp := range experiments {
		if seen[exp.Slug] {
			return nil, fmt.Errorf("sequence %s: duplicate experiment slug %s", set.Slug, exp.Slug)
		}
		seen[exp.Slug] = true
	}
	return &ExperimentSequence{ParameterSet: set, Experiments: experiments}, nil
}

// Slug returns the sequence identifier, which is its parameter set's slug
func (s *ExperimentSequence) Slug() string {
	return s.ParameterSet.Slug
}

// Experiment returns the experiment with the given slug, if present
func (s *ExperimentSequence) Experiment(slug string) (*ConcreteExperiment, bool) {
	for _, exp := range s.Experiments {
		if exp.Slug == slug {
			return exp, true
		}
	}
	return nil, false
}

// Project is the top-level configuration artifact: one template, a
// repetition count, the declared parameter sets and the sequences generated
// from them. The graph is built once at import and mutated only through
// repetition state transitions.
type Project struct {
	Slug          string
	Template      *ExperimentTemplate
	Repetitions   int
	ParameterSets []ParameterSet
	Sequences     []*ExperimentSequence
}

// NewProject creates a validated project. There must be exactly one sequence
// per declared parameter set, matched by slug; with zero parameter sets a
// single synthetic sequence is required. Parameter set slugs must be unique
// and distinct from the template's node and task slugs.
func NewProject(slug string, template *ExperimentTemplate, repetitions int, sets []ParameterSet, sequences []*ExperimentSequence) (*Project, error) {
	if err := ValidateSlug(slug); err != nil {
		return nil, fmt.Errorf("invalid project: %w", err)
	}
	if template == nil {
		return nil, fmt.Errorf("project %s: template is required", slug)
	}
	if repetitions < 1 {
		return nil, fmt.Errorf("project %s: repetitions must be >= 1, got %d", slug, repetitions)
	}

	reserved := make(map[string]bool)
	for _, node := range template.Nodes {
		reserved[node.Slug] = true
		for _, task := range node.Tasks {
			reserved[task.Slug] = true
		}
	}
	setSlugs := make(map[string]bool, len(sets))
	for _, set := range sets {
		if setSlugs[set.Slug] {
			return nil, fmt.Errorf("project %s: duplicate parameter set slug %s", slug, set.Slug)
		}
		if reserved[set.Slug] {
			return nil, fmt.Errorf("project %s: parameter set slug %s collides with a node or task slug", slug, set.Slug)
		}
		setSlugs[set.Slug] = true
	}

	if len(sets) == 0 {
		if len(sequences) != 1 {
			return nil, fmt.Errorf("project %s: expected exactly one synthetic sequence, got %d", slug, len(sequences))
		}
	} else {
		if len(sequences) != len(sets) {
			return nil, fmt.Errorf("project %s: expected %d sequences, got %d", slug, len(sets), len(sequences))
		}
		for i, set := range sets {
			if sequences[i].Slug() != set.Slug {
				return nil, fmt.Errorf("project %s: sequence %d is keyed by %s, want %s",
					slug, i, sequences[i].Slug(), set.Slug)
			}
		}
	}

	return &Project{
		Slug:          slug,
		Template:      template,
		Repetitions:   repetitions,
		ParameterSets: sets,
		Sequences:     sequences,
	}, nil
}

// ExperimentRef identifies one concrete experiment within a project
type ExperimentRef struct {
	Project    string
	Sequence   string
	Experiment string
}

// String renders the reference as project/sequence/experiment
func (r ExperimentRef) String() string {
	return r.Project + "/" + r.Sequence + "/" + r.Experiment
}
