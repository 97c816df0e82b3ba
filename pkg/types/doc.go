/*
Package types defines the core data structures of the AMNES experiment model.

The model is the static description of a network experiment: ordered stages,
per-node tasks bound to worker modules, templates with [[key]] parameter
placeholders, parameter sets that expand a template into many concrete
experiments, and the per-repetition lifecycle state map.

# Core Types

Static description:

  - Stage: named, ordered execution phase
  - NodeTask: one unit of work (module, stage, params, files)
  - WorkerEndpoint: address of a worker's control RPC interface
  - ExperimentNodeTemplate / ConcreteExperimentNode: a participant with tasks
  - ExperimentTemplate: stages plus node templates
  - ParameterSet: ordered axes of parameter -> candidate values

Generated artifacts:

  - ConcreteExperiment: placeholder-free instance, run for N repetitions
  - ExperimentSequence: one parameter set plus its generated experiments
  - Project: template + parameter sets + sequences, built once at import
  - ExperimentRef: (project, sequence, experiment) identifier

# Lifecycle

Every repetition starts in StateCreated and moves through StatePending and
StateRunning to one of the terminal states StateFinished, StateFailed or
StateAborted. Transitions are requested by the schedulers; the state map only
validates that the repetition exists and the state is known.

# Validation

All constructors fail fast on malformed definitions: empty or whitespace
slugs, duplicate slugs within a scope, tasks referencing undeclared stages,
duplicate parameter names, blank parameter values, repetition counts below
one. Nothing is silently defaulted.

Constructed values are treated as immutable; the only sanctioned mutation is
ConcreteExperiment.SetState.
*/
package types
