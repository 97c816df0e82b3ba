package types

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"unicode"
)

// ValidateSlug checks that a slug is non-empty and free of whitespace.
// Slugs identify stages, tasks, nodes, parameter sets and experiments.
func ValidateSlug(slug string) error {
	if slug == "" {
		return fmt.Errorf("slug must not be empty")
	}
	for _, r := range slug {
		if unicode.IsSpace(r) {
			return fmt.Errorf("slug %q must not contain whitespace", slug)
		}
	}
	return nil
}

// Stage is a named execution phase of an experiment. Stages are totally
// ordered as declared in the template; execution proceeds stage by stage.
type Stage struct {
	Slug        string
	Name        string
	Description string
}

// NewStage creates a validated Stage
func NewStage(slug, name, description string) (Stage, error) {
	if err := ValidateSlug(slug); err != nil {
		return Stage{}, fmt.Errorf("invalid stage: %w", err)
	}
	return Stage{Slug: slug, Name: name, Description: description}, nil
}

// WorkerEndpoint is the network address of a worker's control RPC interface
type WorkerEndpoint struct {
	Address string
	Port    int
}

// NewWorkerEndpoint creates a validated WorkerEndpoint
func NewWorkerEndpoint(address string, port int) (WorkerEndpoint, error) {
	if address == "" {
		return WorkerEndpoint{}, fmt.Errorf("worker endpoint address must not be empty")
	}
	if port < 1 || port > 65535 {
		return WorkerEndpoint{}, fmt.Errorf("worker endpoint port %d out of range", port)
	}
	return WorkerEndpoint{Address: address, Port: port}, nil
}

// String returns the endpoint in host:port form
func (e WorkerEndpoint) String() string {
	return net.JoinHostPort(e.Address, strconv.Itoa(e.Port))
}

// NodeTask is one unit of work bound to a module, a stage and a set of
// parameters and files. In a template task a param value may contain
// placeholders of the form [[key]]; in a concrete task all placeholders
// that match a parameter are resolved.
type NodeTask struct {
	Slug   string
	Module string
	Stage  string
	Params map[string]string
	Files  map[string]string
}

// NewNodeTask creates a validated NodeTask. Param values may be empty;
// param and file names must not be.
func NewNodeTask(slug, module, stage string, params, files map[string]string) (NodeTask, error) {
	if err := ValidateSlug(slug); err != nil {
		return NodeTask{}, fmt.Errorf("invalid task: %w", err)
	}
	if module == "" {
		return NodeTask{}, fmt.Errorf("task %s: module must not be empty", slug)
	}
	if err := ValidateSlug(stage); err != nil {
		return NodeTask{}, fmt.Errorf("task %s: invalid stage: %w", slug, err)
	}
	for name := range params {
		if name == "" {
			return NodeTask{}, fmt.Errorf("task %s: param name must not be empty", slug)
		}
	}
	for name := range files {
		if name == "" {
			return NodeTask{}, fmt.Errorf("task %s: file name must not be empty", slug)
		}
	}
	return NodeTask{
		Slug:   slug,
		Module: module,
		Stage:  stage,
		Params: copyStringMap(params),
		Files:  copyStringMap(files),
	}, nil
}

// Clone returns a deep copy of the task
func (t NodeTask) Clone() NodeTask {
	return NodeTask{
		Slug:   t.Slug,
		Module: t.Module,
		Stage:  t.Stage,
		Params: copyStringMap(t.Params),
		Files:  copyStringMap(t.Files),
	}
}

func copyStringMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// ExperimentNode is a participant in an experiment: a worker endpoint plus
// an unordered set of tasks with unique slugs. Template and concrete nodes
// share this shape; concrete node tasks carry resolved parameter values.
type ExperimentNode struct {
	Slug     string
	Endpoint WorkerEndpoint
	Tasks    []NodeTask
}

func newExperimentNode(slug string, endpoint WorkerEndpoint, tasks []NodeTask) (ExperimentNode, error) {
	if err := ValidateSlug(slug); err != nil {
		return ExperimentNode{}, fmt.Errorf("invalid node: %w", err)
	}
	seen := make(map[string]bool, len(tasks))
	cloned := make([]NodeTask, 0, len(tasks))
	for _, task := range tasks {
		if seen[task.Slug] {
			return ExperimentNode{}, fmt.Errorf("node %s: duplicate task slug %s", slug, task.Slug)
		}
		seen[task.Slug] = true
		cloned = append(cloned, task.Clone())
	}
	return ExperimentNode{Slug: slug, Endpoint: endpoint, Tasks: cloned}, nil
}

// Task returns the task with the given slug, if present
func (n ExperimentNode) Task(slug string) (NodeTask, bool) {
	for _, task := range n.Tasks {
		if task.Slug == slug {
			return task, true
		}
	}
	return NodeTask{}, false
}

// ExperimentNodeTemplate is a node definition inside an experiment template;
// its task params may contain unresolved placeholders.
type ExperimentNodeTemplate struct {
	ExperimentNode
}

// NewExperimentNodeTemplate creates a validated node template
func NewExperimentNodeTemplate(slug string, endpoint WorkerEndpoint, tasks []NodeTask) (ExperimentNodeTemplate, error) {
	node, err := newExperimentNode(slug, endpoint, tasks)
	if err != nil {
		return ExperimentNodeTemplate{}, err
	}
	return ExperimentNodeTemplate{ExperimentNode: node}, nil
}

// ConcreteExperimentNode is a node of a concrete experiment
type ConcreteExperimentNode struct {
	ExperimentNode
}

// NewConcreteExperimentNode creates a validated concrete node
func NewConcreteExperimentNode(slug string, endpoint WorkerEndpoint, tasks []NodeTask) (ConcreteExperimentNode, error) {
	node, err := newExperimentNode(slug, endpoint, tasks)
	if err != nil {
		return ConcreteExperimentNode{}, err
	}
	return ConcreteExperimentNode{ExperimentNode: node}, nil
}

// ExperimentTemplate is the parameterized description of an experiment:
// an ordered stage list and a set of node templates.
type ExperimentTemplate struct {
	Slug   string
	Stages []Stage
	Nodes  []ExperimentNodeTemplate
}

// NewExperimentTemplate creates a validated template. Stage and node slugs
// must be unique and every task must reference a declared stage.
func NewExperimentTemplate(slug string, stages []Stage, nodes []ExperimentNodeTemplate) (*ExperimentTemplate, error) {
	if err := ValidateSlug(slug); err != nil {
		return nil, fmt.Errorf("invalid template: %w", err)
	}
	if len(stages) == 0 {
		return nil, fmt.Errorf("template %s: at least one stage is required", slug)
	}
	stageSlugs := make(map[string]bool, len(stages))
	for _, stage := range stages {
		if stageSlugs[stage.Slug] {
			return nil, fmt.Errorf("template %s: duplicate stage slug %s", slug, stage.Slug)
		}
		stageSlugs[stage.Slug] = true
	}
	nodeSlugs := make(map[string]bool, len(nodes))
	for _, node := range nodes {
		if nodeSlugs[node.Slug] {
			return nil, fmt.Errorf("template %s: duplicate node slug %s", slug, node.Slug)
		}
		nodeSlugs[node.Slug] = true
		for _, task := range node.Tasks {
			if !stageSlugs[task.Stage] {
				return nil, fmt.Errorf("template %s: task %s/%s references unknown stage %s",
					slug, node.Slug, task.Slug, task.Stage)
			}
		}
	}
	return &ExperimentTemplate{Slug: slug, Stages: stages, Nodes: nodes}, nil
}

// ParameterAxis is one parameter with its ordered list of candidate values.
// Axis order inside a ParameterSet is the declared order and determines the
// enumeration order of generated experiments.
type ParameterAxis struct {
	Name   string
	Values []string
}

// ParameterSet maps parameter names to candidate value lists. A set may be
// empty; an axis with zero values yields zero generated experiments.
type ParameterSet struct {
	Slug string
	Axes []ParameterAxis
}

// NewParameterSet creates a validated parameter set. Parameter names must be
// unique within the set; names and values must be non-empty, non-whitespace.
func NewParameterSet(slug string, axes []ParameterAxis) (ParameterSet, error) {
	if err := ValidateSlug(slug); err != nil {
		return ParameterSet{}, fmt.Errorf("invalid parameter set: %w", err)
	}
	names := make(map[string]bool, len(axes))
	for _, axis := range axes {
		if err := ValidateSlug(axis.Name); err != nil {
			return ParameterSet{}, fmt.Errorf("parameter set %s: invalid parameter name: %w", slug, err)
		}
		if names[axis.Name] {
			return ParameterSet{}, fmt.Errorf("parameter set %s: duplicate parameter %s", slug, axis.Name)
		}
		names[axis.Name] = true
		for _, value := range axis.Values {
			if strings.TrimSpace(value) == "" {
				return ParameterSet{}, fmt.Errorf("parameter set %s: parameter %s: value must not be blank",
					slug, axis.Name)
			}
		}
	}
	return ParameterSet{Slug: slug, Axes: axes}, nil
}

// Empty reports whether the set declares no parameters at all
func (p ParameterSet) Empty() bool {
	return len(p.Axes) == 0
}
