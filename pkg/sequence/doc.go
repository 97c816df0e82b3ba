/*
Package sequence expands parameterized experiment templates into concrete,
runnable experiments.

Generate takes one template, the project's parameter sets and a repetition
count and produces one ExperimentSequence per set. Each assignment from the
Cartesian product of a set's axes yields one ConcreteExperiment whose task
params have every [[key]] placeholder replaced by the assigned value.

The enumeration is deterministic: axes are iterated in declared order with
the last axis varying fastest, and experiments are numbered exp1, exp2, ...
in that order. Running the generator twice over the same inputs yields
structurally equal output.

Placeholders that match no parameter of the set are left verbatim rather
than rejected, so templates can be partially resolved on purpose. File
references are never substituted.
*/
package sequence
