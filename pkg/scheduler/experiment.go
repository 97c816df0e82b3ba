package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/amnes-io/amnes/pkg/client"
	"github.com/amnes-io/amnes/pkg/events"
	"github.com/amnes-io/amnes/pkg/executor"
	"github.com/amnes-io/amnes/pkg/log"
	"github.com/amnes-io/amnes/pkg/rpc"
	"github.com/amnes-io/amnes/pkg/types"
)

// unit is one (node, task) pair dispatched in the current stage.
type unit struct {
	node types.ConcreteExperimentNode
	task types.NodeTask
}

// ExperimentScheduler drives one experiment repetition through its stages:
// per stage, every matching task fans out concurrently, and the stage only
// completes when all of its units have returned.
type ExperimentScheduler struct {
	broker         *events.Broker
	controllerAddr string
	logger         zerolog.Logger
	pingTimeout    time.Duration
	executeTimeout time.Duration
}

// NewExperimentScheduler creates a scheduler dispatching tasks that report
// results back to controllerAddr.
func NewExperimentScheduler(broker *events.Broker, controllerAddr string, logger zerolog.Logger) *ExperimentScheduler {
	return &ExperimentScheduler{
		broker:         broker,
		controllerAddr: controllerAddr,
		logger:         logger,
		pingTimeout:    client.PingTimeout,
		executeTimeout: client.ExecuteTimeout,
	}
}

// RunRepetition executes all stages in declared order and returns the
// repetition's terminal state. A failed unit fails the whole repetition
// and skips the remaining stages. Cancellation is observed between
// stages; in-flight task RPCs are never cut short.
func (s *ExperimentScheduler) RunRepetition(ctx context.Context, experiment *types.ConcreteExperiment, repetition int, conns map[string]WorkerConn) types.ExperimentState {
	logger := log.WithExperiment(s.logger, experiment.Slug, repetition)

	for _, stage := range experiment.Stages {
		if ctx.Err() != nil {
			logger.Warn().Str("stage", stage.Slug).Msg("Repetition aborted before stage")
			return types.StateAborted
		}

		units := collectUnits(experiment, stage.Slug)
		if len(units) == 0 {
			logger.Debug().Str("stage", stage.Slug).Msg("Stage has no tasks, skipping")
			continue
		}

		logger.Info().Str("stage", stage.Slug).Int("tasks", len(units)).Msg("Stage started")
		s.broker.Publish(&events.Event{
			Type:    events.EventStageStarted,
			Message: "stage started",
			Metadata: map[string]string{
				"experiment": experiment.Slug,
				"stage":      stage.Slug,
			},
		})

		if !s.runStage(logger, units, conns) {
			logger.Warn().Str("stage", stage.Slug).Msg("Stage failed, aborting remaining stages")
			return types.StateFailed
		}
	}

	return types.StateFinished
}

// runStage fans the stage's units out, joins them all and reports whether
// every unit succeeded.
func (s *ExperimentScheduler) runStage(logger zerolog.Logger, units []unit, conns map[string]WorkerConn) bool {
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results = make(map[string]bool, len(units))
	)

	for _, u := range units {
		taskID := uuid.New().String()

		wg.Add(1)
		go func(u unit, taskID string) {
			defer wg.Done()
			ok := s.runUnit(u, taskID, conns)
			mu.Lock()
			results[taskID] = ok
			mu.Unlock()
		}(u, taskID)
	}
	wg.Wait()

	for _, ok := range results {
		if !ok {
			return false
		}
	}
	return true
}

// runUnit pings the owning worker, then dispatches the task with the long
// execution timeout. Task contexts are rooted at Background so a stopped
// run never cuts an already dispatched task short.
func (s *ExperimentScheduler) runUnit(u unit, taskID string, conns map[string]WorkerConn) bool {
	endpoint := u.node.Endpoint.String()
	logger := log.WithTaskID(s.logger, taskID)

	conn, ok := conns[endpoint]
	if !ok {
		logger.Error().Str("worker", endpoint).Msg("No connection for worker endpoint")
		return false
	}

	pingCtx, cancel := context.WithTimeout(context.Background(), s.pingTimeout)
	err := conn.Ping(pingCtx)
	cancel()
	if err != nil {
		logger.Warn().Err(err).Str("worker", endpoint).Msg("Worker ping failed before dispatch")
		s.publishTaskFailed(u, taskID, "ping failed")
		return false
	}

	s.broker.Publish(&events.Event{
		Type:    events.EventTaskDispatched,
		Message: "task dispatched",
		Metadata: map[string]string{
			"task_id": taskID,
			"node":    u.node.Slug,
			"task":    u.task.Slug,
		},
	})

	execCtx, cancel := context.WithTimeout(context.Background(), s.executeTimeout)
	defer cancel()
	outcome, err := conn.ExecuteModule(execCtx, &rpc.ExecuteModuleRequest{
		TaskID:         taskID,
		Module:         u.task.Module,
		Params:         u.task.Params,
		Files:          u.task.Files,
		ControllerAddr: s.controllerAddr,
	})
	if err != nil {
		logger.Error().Err(err).Str("worker", endpoint).Msg("Task dispatch failed")
		s.publishTaskFailed(u, taskID, err.Error())
		return false
	}
	if outcome != string(executor.OutcomeSuccess) {
		logger.Warn().Str("outcome", outcome).Str("worker", endpoint).Msg("Task reported failure")
		s.publishTaskFailed(u, taskID, outcome)
		return false
	}

	logger.Debug().Str("worker", endpoint).Msg("Task finished")
	return true
}

func (s *ExperimentScheduler) publishTaskFailed(u unit, taskID, reason string) {
	s.broker.Publish(&events.Event{
		Type:    events.EventTaskFailed,
		Message: "task failed",
		Metadata: map[string]string{
			"task_id": taskID,
			"node":    u.node.Slug,
			"task":    u.task.Slug,
			"reason":  reason,
		},
	})
}

// collectUnits gathers every (node, task) pair bound to the given stage.
func collectUnits(experiment *types.ConcreteExperiment, stageSlug string) []unit {
	var units []unit
	for _, node := range experiment.Nodes {
		for _, task := range node.Tasks {
			if task.Stage == stageSlug {
				units = append(units, unit{node: node, task: task})
			}
		}
	}
	return units
}
