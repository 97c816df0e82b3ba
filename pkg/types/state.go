package types

// ExperimentState represents the lifecycle state of one experiment repetition
type ExperimentState string

const (
	// StateCreated marks a repetition that exists but has not been scheduled
	StateCreated ExperimentState = "created"
	// StatePending marks a repetition queued for execution
	StatePending ExperimentState = "pending"
	// StateRunning marks the repetition the project scheduler is executing
	StateRunning ExperimentState = "running"
	// StateFinished marks a repetition whose stages all succeeded (terminal)
	StateFinished ExperimentState = "finished"
	// StateFailed marks a repetition aborted by a task failure (terminal)
	StateFailed ExperimentState = "failed"
	// StateAborted marks a repetition cancelled by an operator (terminal)
	StateAborted ExperimentState = "aborted"
)

// Valid reports whether s is one of the known experiment states.
func (s ExperimentState) Valid() bool {
	switch s {
	case StateCreated, StatePending, StateRunning, StateFinished, StateFailed, StateAborted:
		return true
	}
	return false
}

// Terminal reports whether s is a terminal state. There is no transition
// out of a terminal state; the schedulers never request one.
func (s ExperimentState) Terminal() bool {
	switch s {
	case StateFinished, StateFailed, StateAborted:
		return true
	}
	return false
}
