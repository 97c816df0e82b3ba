package sequence

import (
	"fmt"
	"strings"

	"github.com/amnes-io/amnes/pkg/types"
)

// DefaultSetSlug keys the synthetic sequence generated for a project that
// declares no parameter sets.
const DefaultSetSlug = "default"

// Generate expands one template into the concrete experiment sequences for
// the given parameter sets, one sequence per set. With no parameter sets a
// single synthetic sequence is produced, containing one experiment (slug
// "exp") whose tasks are verbatim copies of the template's.
//
// Within a set, experiments are numbered exp1, exp2, ... in Cartesian
// product order over the declared axes, with the last axis varying fastest.
// An axis with zero candidate values yields a sequence with zero
// experiments.
func Generate(template *types.ExperimentTemplate, sets []types.ParameterSet, repetitions int) ([]*types.ExperimentSequence, error) {
	if template == nil {
		return nil, fmt.Errorf("template is required")
	}

	if len(sets) == 0 {
		set, err := types.NewParameterSet(DefaultSetSlug, nil)
		if err != nil {
			return nil, err
		}
		exp, err := concreteExperiment(template, "exp", nil, repetitions)
		if err != nil {
			return nil, err
		}
		seq, err := types.NewExperimentSequence(set, []*types.ConcreteExperiment{exp})
		if err != nil {
			return nil, err
		}
		return []*types.ExperimentSequence{seq}, nil
	}

	sequences := make([]*types.ExperimentSequence, 0, len(sets))
	for _, set := range sets {
		var experiments []*types.ConcreteExperiment
		for i, assignment := range combinations(set.Axes) {
			slug := fmt.Sprintf("exp%d", i+1)
			exp, err := concreteExperiment(template, slug, &substitution{set.Axes, assignment}, repetitions)
			if err != nil {
				return nil, fmt.Errorf("set %s: %w", set.Slug, err)
			}
			experiments = append(experiments, exp)
		}
		seq, err := types.NewExperimentSequence(set, experiments)
		if err != nil {
			return nil, err
		}
		sequences = append(sequences, seq)
	}
	return sequences, nil
}

// combinations enumerates the Cartesian product of the axes in declared
// order, last axis varying fastest. An axis without values empties the
// product.
func combinations(axes []types.ParameterAxis) []map[string]string {
	combos := []map[string]string{{}}
	for _, axis := range axes {
		if len(axis.Values) == 0 {
			return nil
		}
		next := make([]map[string]string, 0, len(combos)*len(axis.Values))
		for _, combo := range combos {
			for _, value := range axis.Values {
				assignment := make(map[string]string, len(combo)+1)
				for k, v := range combo {
					assignment[k] = v
				}
				assignment[axis.Name] = value
				next = append(next, assignment)
			}
		}
		combos = next
	}
	return combos
}

// substitution resolves [[key]] placeholders against one assignment. Keys
// are applied in axis order so the result is deterministic. nil means "copy
// verbatim" (the synthetic no-parameters case).
type substitution struct {
	axes       []types.ParameterAxis
	assignment map[string]string
}

func (s substitution) apply(value string) string {
	for _, axis := range s.axes {
		value = strings.ReplaceAll(value, "[["+axis.Name+"]]", s.assignment[axis.Name])
	}
	// Placeholders without a matching parameter are left verbatim. This is
	// intentionally non-strict to allow partial templating.
	return value
}

func concreteExperiment(template *types.ExperimentTemplate, slug string, subst *substitution, repetitions int) (*types.ConcreteExperiment, error) {
	nodes := make([]types.ConcreteExperimentNode, 0, len(template.Nodes))
	for _, nodeTemplate := range template.Nodes {
		tasks := make([]types.NodeTask, 0, len(nodeTemplate.Tasks))
		for _, task := range nodeTemplate.Tasks {
			resolved := task.Clone()
			if subst != nil {
				for name, value := range resolved.Params {
					resolved.Params[name] = subst.apply(value)
				}
			}
			// Files are copied unchanged; file references are not templated.
			tasks = append(tasks, resolved)
		}
		node, err := types.NewConcreteExperimentNode(nodeTemplate.Slug, nodeTemplate.Endpoint, tasks)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return types.NewConcreteExperiment(slug, template.Stages, nodes, repetitions)
}
