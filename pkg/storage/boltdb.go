package storage

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/amnes-io/amnes/pkg/types"
)

var (
	// Bucket names
	bucketProjects = []byte("projects")
	bucketFiles    = []byte("files")
)

// storedProject wraps a project with its storage ID
type storedProject struct {
	ID      string
	Project *types.Project
}

// BoltStore implements Store using BoltDB
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore creates a new BoltDB-backed store in dataDir
func NewBoltStore(dataDir string) (*BoltStore, error) {
	dbPath := filepath.Join(dataDir, "amnes.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketProjects, bucketFiles} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// ImportProject persists a project keyed by its slug
func (s *BoltStore) ImportProject(project *types.Project) (string, error) {
	id := uuid.New().String()
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketProjects)
		if b.Get([]byte(project.Slug)) != nil {
			return fmt.Errorf("project %s: %w", project.Slug, ErrAlreadyExists)
		}
		data, err := json.Marshal(&storedProject{ID: id, Project: project})
		if err != nil {
			return err
		}
		return b.Put([]byte(project.Slug), data)
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// GetProjectBySlug returns a stored project
func (s *BoltStore) GetProjectBySlug(slug string) (*types.Project, error) {
	var stored storedProject
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketProjects)
		data := b.Get([]byte(slug))
		if data == nil {
			return fmt.Errorf("project %s: %w", slug, ErrNotFound)
		}
		return json.Unmarshal(data, &stored)
	})
	if err != nil {
		return nil, err
	}
	return stored.Project, nil
}

// UpdateExperimentStates persists repetition state transitions for one
// experiment within its stored project.
func (s *BoltStore) UpdateExperimentStates(ref types.ExperimentRef, states map[int]types.ExperimentState) (string, error) {
	var id string
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketProjects)
		data := b.Get([]byte(ref.Project))
		if data == nil {
			return fmt.Errorf("project %s: %w", ref.Project, ErrNotFound)
		}
		var stored storedProject
		if err := json.Unmarshal(data, &stored); err != nil {
			return err
		}
		exp, err := findExperiment(stored.Project, ref)
		if err != nil {
			return err
		}
		for rep, state := range states {
			if err := exp.SetState(rep, state); err != nil {
				return err
			}
		}
		updated, err := json.Marshal(&stored)
		if err != nil {
			return err
		}
		id = stored.ID
		return b.Put([]byte(ref.Project), updated)
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// ImportFile persists a collected result file
func (s *BoltStore) ImportFile(data []byte, ref *types.ExperimentRef, repetition int) (string, error) {
	file := &File{
		ID:         uuid.New().String(),
		Ref:        ref,
		Repetition: repetition,
		Data:       data,
		CreatedAt:  time.Now(),
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketFiles)
		encoded, err := json.Marshal(file)
		if err != nil {
			return err
		}
		return b.Put([]byte(file.ID), encoded)
	})
	if err != nil {
		return "", err
	}
	return file.ID, nil
}

// GetFile returns a stored file by ID
func (s *BoltStore) GetFile(id string) (*File, error) {
	var file File
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketFiles)
		data := b.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("file %s: %w", id, ErrNotFound)
		}
		return json.Unmarshal(data, &file)
	})
	if err != nil {
		return nil, err
	}
	return &file, nil
}

// ListFiles returns the files bound to one experiment repetition
func (s *BoltStore) ListFiles(ref types.ExperimentRef, repetition int) ([]*File, error) {
	var files []*File
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketFiles)
		return b.ForEach(func(k, v []byte) error {
			var file File
			if err := json.Unmarshal(v, &file); err != nil {
				return err
			}
			if file.Ref != nil && *file.Ref == ref && file.Repetition == repetition {
				files = append(files, &file)
			}
			return nil
		})
	})
	return files, err
}

func findExperiment(project *types.Project, ref types.ExperimentRef) (*types.ConcreteExperiment, error) {
	for _, seq := range project.Sequences {
		if seq.Slug() != ref.Sequence {
			continue
		}
		if exp, ok := seq.Experiment(ref.Experiment); ok {
			return exp, nil
		}
	}
	return nil, fmt.Errorf("experiment %s: %w", ref, ErrNotFound)
}
