package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/amnes-io/amnes/pkg/client"
	"github.com/amnes-io/amnes/pkg/events"
	"github.com/amnes-io/amnes/pkg/log"
	"github.com/amnes-io/amnes/pkg/storage"
	"github.com/amnes-io/amnes/pkg/types"
)

// RepetitionTracker publishes which repetition is currently executing so
// incoming result files can be attributed. transfer.Server implements it.
type RepetitionTracker interface {
	SetCurrent(ref *types.ExperimentRef, repetition int)
	ClearCurrent()
}

// ProjectScheduler runs a whole project: it schedules every repetition,
// health-checks all workers, then executes repetitions one at a time until
// none is pending. Every state transition is persisted before execution
// proceeds.
type ProjectScheduler struct {
	store       storage.Store
	broker      *events.Broker
	tracker     RepetitionTracker
	connect     ConnectFunc
	experiments *ExperimentScheduler
	logger      zerolog.Logger

	preflightTimeout time.Duration
}

// NewProjectScheduler wires a project scheduler from its collaborators.
func NewProjectScheduler(store storage.Store, broker *events.Broker, tracker RepetitionTracker, connect ConnectFunc, experiments *ExperimentScheduler, logger zerolog.Logger) *ProjectScheduler {
	return &ProjectScheduler{
		store:            store,
		broker:           broker,
		tracker:          tracker,
		connect:          connect,
		experiments:      experiments,
		logger:           logger,
		preflightTimeout: client.PreflightTimeout,
	}
}

// Run executes the project until no repetition is pending or ctx is
// cancelled. A failed pre-flight ping aborts the run before any repetition
// starts.
func (s *ProjectScheduler) Run(ctx context.Context, project *types.Project) error {
	logger := log.WithProject(s.logger, project.Slug)

	if err := s.schedule(project); err != nil {
		return err
	}

	conns, err := s.connectAll(project)
	if err != nil {
		return err
	}
	defer closeAll(conns)

	if err := s.preflight(conns); err != nil {
		logger.Error().Err(err).Msg("Pre-flight check failed, aborting run")
		s.broker.Publish(&events.Event{
			Type:     events.EventProjectAborted,
			Message:  "pre-flight check failed",
			Metadata: map[string]string{"project": project.Slug},
		})
		return err
	}

	logger.Info().Msg("Project execution started")
	s.broker.Publish(&events.Event{
		Type:     events.EventProjectStarted,
		Message:  "project started",
		Metadata: map[string]string{"project": project.Slug},
	})

	if err := s.executeAll(ctx, project, conns); err != nil {
		s.broker.Publish(&events.Event{
			Type:     events.EventProjectAborted,
			Message:  "project aborted",
			Metadata: map[string]string{"project": project.Slug},
		})
		return err
	}

	logger.Info().Msg("Project execution finished")
	s.broker.Publish(&events.Event{
		Type:     events.EventProjectFinished,
		Message:  "project finished",
		Metadata: map[string]string{"project": project.Slug},
	})
	return nil
}

// schedule transitions every CREATED repetition to PENDING, persisting per
// experiment.
func (s *ProjectScheduler) schedule(project *types.Project) error {
	for _, sequence := range project.Sequences {
		for _, experiment := range sequence.Experiments {
			changed := make(map[int]types.ExperimentState)
			for rep, state := range experiment.States {
				if state == types.StateCreated {
					if err := experiment.SetState(rep, types.StatePending); err != nil {
						return err
					}
					changed[rep] = types.StatePending
				}
			}
			if len(changed) == 0 {
				continue
			}

			ref := types.ExperimentRef{
				Project:    project.Slug,
				Sequence:   sequence.Slug(),
				Experiment: experiment.Slug,
			}
			if _, err := s.store.UpdateExperimentStates(ref, changed); err != nil {
				return fmt.Errorf("failed to persist scheduling of %s: %w", ref, err)
			}
			s.broker.Publish(&events.Event{
				Type:     events.EventExperimentScheduled,
				Message:  "experiment scheduled",
				Metadata: map[string]string{"experiment": ref.String()},
			})
		}
	}
	return nil
}

// connectAll opens one connection per distinct worker endpoint in the
// project template; connections are reused for the whole run.
func (s *ProjectScheduler) connectAll(project *types.Project) (map[string]WorkerConn, error) {
	conns := make(map[string]WorkerConn)
	for _, node := range project.Template.Nodes {
		endpoint := node.Endpoint.String()
		if _, ok := conns[endpoint]; ok {
			continue
		}
		conn, err := s.connect(endpoint)
		if err != nil {
			closeAll(conns)
			return nil, fmt.Errorf("failed to connect to worker %s: %w", endpoint, err)
		}
		conns[endpoint] = conn
	}
	return conns, nil
}

// preflight pings every worker concurrently; a single failure fails the
// whole check.
func (s *ProjectScheduler) preflight(conns map[string]WorkerConn) error {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for endpoint, conn := range conns {
		wg.Add(1)
		go func(endpoint string, conn WorkerConn) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), s.preflightTimeout)
			defer cancel()
			if err := conn.Ping(ctx); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("worker %s is not available: %w", endpoint, err)
				}
				mu.Unlock()
			}
		}(endpoint, conn)
	}
	wg.Wait()
	return firstErr
}

// executeAll scans the project in declaration order for pending
// repetitions and runs them one at a time until none remains.
func (s *ProjectScheduler) executeAll(ctx context.Context, project *types.Project, conns map[string]WorkerConn) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		ref, experiment, repetition, found := nextPending(project)
		if !found {
			return nil
		}

		if err := s.runOne(ctx, ref, experiment, repetition, conns); err != nil {
			return err
		}
	}
}

// runOne executes a single repetition: RUNNING is persisted before any
// task is dispatched, the terminal state before the next scan.
func (s *ProjectScheduler) runOne(ctx context.Context, ref types.ExperimentRef, experiment *types.ConcreteExperiment, repetition int, conns map[string]WorkerConn) error {
	logger := log.WithExperiment(s.logger, experiment.Slug, repetition)

	if err := s.transition(ref, experiment, repetition, types.StateRunning); err != nil {
		return err
	}
	s.tracker.SetCurrent(&ref, repetition)
	defer s.tracker.ClearCurrent()

	logger.Info().Msg("Repetition started")
	s.broker.Publish(&events.Event{
		Type:     events.EventExperimentStarted,
		Message:  "repetition started",
		Metadata: map[string]string{"experiment": ref.String(), "repetition": fmt.Sprint(repetition)},
	})

	terminal := s.experiments.RunRepetition(ctx, experiment, repetition, conns)
	if err := s.transition(ref, experiment, repetition, terminal); err != nil {
		return err
	}

	eventType := events.EventExperimentFinished
	switch terminal {
	case types.StateFailed:
		eventType = events.EventExperimentFailed
	case types.StateAborted:
		eventType = events.EventExperimentAborted
	}
	logger.Info().Str("state", string(terminal)).Msg("Repetition finished")
	s.broker.Publish(&events.Event{
		Type:     eventType,
		Message:  "repetition " + string(terminal),
		Metadata: map[string]string{"experiment": ref.String(), "repetition": fmt.Sprint(repetition)},
	})
	return nil
}

func (s *ProjectScheduler) transition(ref types.ExperimentRef, experiment *types.ConcreteExperiment, repetition int, state types.ExperimentState) error {
	if err := experiment.SetState(repetition, state); err != nil {
		return err
	}
	if _, err := s.store.UpdateExperimentStates(ref, map[int]types.ExperimentState{repetition: state}); err != nil {
		return fmt.Errorf("failed to persist %s repetition %d -> %s: %w", ref, repetition, state, err)
	}
	return nil
}

// nextPending returns the first pending repetition in declaration order.
func nextPending(project *types.Project) (types.ExperimentRef, *types.ConcreteExperiment, int, bool) {
	for _, sequence := range project.Sequences {
		for _, experiment := range sequence.Experiments {
			pending := experiment.PendingRepetitions()
			if len(pending) == 0 {
				continue
			}
			ref := types.ExperimentRef{
				Project:    project.Slug,
				Sequence:   sequence.Slug(),
				Experiment: experiment.Slug,
			}
			return ref, experiment, pending[0], true
		}
	}
	return types.ExperimentRef{}, nil, 0, false
}

func closeAll(conns map[string]WorkerConn) {
	for _, conn := range conns {
		if closer, ok := conn.(interface{ Close() error }); ok {
			closer.Close()
		}
	}
}
