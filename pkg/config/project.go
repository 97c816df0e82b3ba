package config

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/amnes-io/amnes/pkg/sequence"
	"github.com/amnes-io/amnes/pkg/types"
)

// projectDefinition is the YAML shape of an importable project.
type projectDefinition struct {
	Slug        string `yaml:"slug"`
	Repetitions int    `yaml:"repetitions"`

	Stages []struct {
		Slug        string `yaml:"slug"`
		Name        string `yaml:"name"`
		Description string `yaml:"description"`
	} `yaml:"stages"`

	Nodes []struct {
		Slug     string `yaml:"slug"`
		Endpoint struct {
			Address string `yaml:"address"`
			Port    int    `yaml:"port"`
		} `yaml:"endpoint"`
		Tasks []struct {
			Slug   string            `yaml:"slug"`
			Module string            `yaml:"module"`
			Stage  string            `yaml:"stage"`
			Params map[string]string `yaml:"params"`
			Files  map[string]string `yaml:"files"`
		} `yaml:"tasks"`
	} `yaml:"nodes"`

	ParameterSets []struct {
		Slug       string `yaml:"slug"`
		Parameters []struct {
			Name   string   `yaml:"name"`
			Values []string `yaml:"values"`
		} `yaml:"parameters"`
	} `yaml:"parameter_sets"`
}

// LoadProject parses a project definition document and builds the full
// project graph, including every generated experiment sequence. Unknown
// YAML fields are rejected.
func LoadProject(data []byte) (*types.Project, error) {
	var def projectDefinition
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil {
		return nil, fmt.Errorf("failed to parse project definition: %w", err)
	}

	if def.Repetitions == 0 {
		def.Repetitions = 1
	}

	stages := make([]types.Stage, 0, len(def.Stages))
	for _, s := range def.Stages {
		stage, err := types.NewStage(s.Slug, s.Name, s.Description)
		if err != nil {
			return nil, err
		}
		stages = append(stages, stage)
	}

	nodes := make([]types.ExperimentNodeTemplate, 0, len(def.Nodes))
	for _, n := range def.Nodes {
		endpoint, err := types.NewWorkerEndpoint(n.Endpoint.Address, n.Endpoint.Port)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", n.Slug, err)
		}
		tasks := make([]types.NodeTask, 0, len(n.Tasks))
		for _, t := range n.Tasks {
			task, err := types.NewNodeTask(t.Slug, t.Module, t.Stage, t.Params, t.Files)
			if err != nil {
				return nil, fmt.Errorf("node %s: %w", n.Slug, err)
			}
			tasks = append(tasks, task)
		}
		node, err := types.NewExperimentNodeTemplate(n.Slug, endpoint, tasks)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}

	template, err := types.NewExperimentTemplate(def.Slug, stages, nodes)
	if err != nil {
		return nil, err
	}

	sets := make([]types.ParameterSet, 0, len(def.ParameterSets))
	for _, ps := range def.ParameterSets {
		axes := make([]types.ParameterAxis, 0, len(ps.Parameters))
		for _, p := range ps.Parameters {
			axes = append(axes, types.ParameterAxis{Name: p.Name, Values: p.Values})
		}
		set, err := types.NewParameterSet(ps.Slug, axes)
		if err != nil {
			return nil, err
		}
		sets = append(sets, set)
	}

	sequences, err := sequence.Generate(template, sets, def.Repetitions)
	if err != nil {
		return nil, err
	}

	return types.NewProject(def.Slug, template, def.Repetitions, sets, sequences)
}
