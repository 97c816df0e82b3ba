package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver (pure Go)

	"github.com/amnes-io/amnes/pkg/types"
)

// SQLStore implements Store using SQLite. Projects are stored as JSON
// documents; repetition states and files are additionally kept in flat
// tables so runs can be inspected with plain SQL.
type SQLStore struct {
	db *sql.DB
}

const sqlSchema = `
CREATE TABLE IF NOT EXISTS projects (
	slug       TEXT PRIMARY KEY,
	id         TEXT NOT NULL,
	data       TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS experiment_states (
	project    TEXT NOT NULL,
	sequence   TEXT NOT NULL,
	experiment TEXT NOT NULL,
	repetition INTEGER NOT NULL,
	state      TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	PRIMARY KEY (project, sequence, experiment, repetition)
);
CREATE TABLE IF NOT EXISTS files (
	id         TEXT PRIMARY KEY,
	project    TEXT,
	sequence   TEXT,
	experiment TEXT,
	repetition INTEGER NOT NULL,
	data       BLOB NOT NULL,
	created_at TIMESTAMP NOT NULL
);
`

// NewSQLStore creates a SQLite-backed store in dataDir
func NewSQLStore(dataDir string) (*SQLStore, error) {
	dbPath := filepath.Join(dataDir, "amnes.sqlite")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec(sqlSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &SQLStore{db: db}, nil
}

// Close closes the database
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// ImportProject persists a project and seeds the experiment_states table
func (s *SQLStore) ImportProject(project *types.Project) (string, error) {
	data, err := json.Marshal(project)
	if err != nil {
		return "", err
	}
	id := uuid.New().String()

	tx, err := s.db.Begin()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	var existing string
	err = tx.QueryRow(`SELECT id FROM projects WHERE slug = ?`, project.Slug).Scan(&existing)
	if err == nil {
		return "", fmt.Errorf("project %s: %w", project.Slug, ErrAlreadyExists)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", err
	}

	now := time.Now()
	if _, err := tx.Exec(`INSERT INTO projects (slug, id, data, created_at) VALUES (?, ?, ?, ?)`,
		project.Slug, id, string(data), now); err != nil {
		return "", err
	}
	for _, seq := range project.Sequences {
		for _, exp := range seq.Experiments {
			for rep, state := range exp.States {
				if _, err := tx.Exec(
					`INSERT INTO experiment_states (project, sequence, experiment, repetition, state, updated_at)
					 VALUES (?, ?, ?, ?, ?, ?)`,
					project.Slug, seq.Slug(), exp.Slug, rep, string(state), now); err != nil {
					return "", err
				}
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return id, nil
}

// GetProjectBySlug returns a stored project
func (s *SQLStore) GetProjectBySlug(slug string) (*types.Project, error) {
	var data string
	err := s.db.QueryRow(`SELECT data FROM projects WHERE slug = ?`, slug).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("project %s: %w", slug, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	var project types.Project
	if err := json.Unmarshal([]byte(data), &project); err != nil {
		return nil, err
	}
	return &project, nil
}

// UpdateExperimentStates persists repetition state transitions
func (s *SQLStore) UpdateExperimentStates(ref types.ExperimentRef, states map[int]types.ExperimentState) (string, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	var id, data string
	err = tx.QueryRow(`SELECT id, data FROM projects WHERE slug = ?`, ref.Project).Scan(&id, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("project %s: %w", ref.Project, ErrNotFound)
	}
	if err != nil {
		return "", err
	}

	var project types.Project
	if err := json.Unmarshal([]byte(data), &project); err != nil {
		return "", err
	}
	exp, err := findExperiment(&project, ref)
	if err != nil {
		return "", err
	}
	now := time.Now()
	for rep, state := range states {
		if err := exp.SetState(rep, state); err != nil {
			return "", err
		}
		if _, err := tx.Exec(
			`UPDATE experiment_states SET state = ?, updated_at = ?
			 WHERE project = ? AND sequence = ? AND experiment = ? AND repetition = ?`,
			string(state), now, ref.Project, ref.Sequence, ref.Experiment, rep); err != nil {
			return "", err
		}
	}

	updated, err := json.Marshal(&project)
	if err != nil {
		return "", err
	}
	if _, err := tx.Exec(`UPDATE projects SET data = ? WHERE slug = ?`, string(updated), ref.Project); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return id, nil
}

// ImportFile persists a collected result file
func (s *SQLStore) ImportFile(data []byte, ref *types.ExperimentRef, repetition int) (string, error) {
	id := uuid.New().String()
	var project, sequence, experiment any
	if ref != nil {
		project, sequence, experiment = ref.Project, ref.Sequence, ref.Experiment
	}
	_, err := s.db.Exec(
		`INSERT INTO files (id, project, sequence, experiment, repetition, data, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, project, sequence, experiment, repetition, data, time.Now())
	if err != nil {
		return "", err
	}
	return id, nil
}

// GetFile returns a stored file by ID
func (s *SQLStore) GetFile(id string) (*File, error) {
	var file File
	var project, sequence, experiment sql.NullString
	err := s.db.QueryRow(
		`SELECT id, project, sequence, experiment, repetition, data, created_at FROM files WHERE id = ?`, id).
		Scan(&file.ID, &project, &sequence, &experiment, &file.Repetition, &file.Data, &file.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("file %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if project.Valid {
		file.Ref = &types.ExperimentRef{
			Project:    project.String,
			Sequence:   sequence.String,
			Experiment: experiment.String,
		}
	}
	return &file, nil
}

// ListFiles returns the files bound to one experiment repetition
func (s *SQLStore) ListFiles(ref types.ExperimentRef, repetition int) ([]*File, error) {
	rows, err := s.db.Query(
		`SELECT id, repetition, data, created_at FROM files
		 WHERE project = ? AND sequence = ? AND experiment = ? AND repetition = ?`,
		ref.Project, ref.Sequence, ref.Experiment, repetition)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []*File
	for rows.Next() {
		file := &File{Ref: &ref}
		if err := rows.Scan(&file.ID, &file.Repetition, &file.Data, &file.CreatedAt); err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, rows.Err()
}
