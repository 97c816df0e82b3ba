package storage

import (
	"errors"
	"time"

	"github.com/amnes-io/amnes/pkg/types"
)

var (
	// ErrAlreadyExists is returned when importing a project whose slug is taken
	ErrAlreadyExists = errors.New("already exists")
	// ErrNotFound is returned for lookups that match nothing
	ErrNotFound = errors.New("not found")
)

// File is a result artifact collected from a worker, bound to the
// experiment repetition it was produced by. A file imported without a
// reference is kept as an unbound upload.
type File struct {
	ID         string
	Ref        *types.ExperimentRef
	Repetition int
	Data       []byte
	CreatedAt  time.Time
}

// Store defines the narrow persistence interface the execution core needs.
// All operations are synchronous and atomic per call; the core calls them
// at state transition points and checks every return.
type Store interface {
	// ImportProject persists a newly constructed project and returns its
	// storage ID. ErrAlreadyExists is returned when the slug is taken.
	ImportProject(project *types.Project) (string, error)

	// GetProjectBySlug returns the persisted project, ErrNotFound otherwise
	GetProjectBySlug(slug string) (*types.Project, error)

	// UpdateExperimentStates persists repetition state transitions for one
	// experiment and returns the owning project's storage ID.
	UpdateExperimentStates(ref types.ExperimentRef, states map[int]types.ExperimentState) (string, error)

	// ImportFile persists a collected result file and returns its ID
	ImportFile(data []byte, ref *types.ExperimentRef, repetition int) (string, error)

	// GetFile returns a stored file by ID, ErrNotFound otherwise
	GetFile(id string) (*File, error)

	// ListFiles returns the files bound to one experiment repetition
	ListFiles(ref types.ExperimentRef, repetition int) ([]*File, error)

	// Close releases the underlying database
	Close() error
}
