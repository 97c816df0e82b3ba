// Package scheduler contains the two-level execution engine of the
// controller. The ExperimentScheduler runs one repetition stage by stage
// with concurrent task fan-out inside each stage; the ProjectScheduler
// drives whole projects, persisting every repetition state transition and
// executing repetitions strictly one at a time.
package scheduler
