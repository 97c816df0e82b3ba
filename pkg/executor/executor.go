package executor

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/amnes-io/amnes/pkg/log"
	"github.com/amnes-io/amnes/pkg/modules"
)

// Outcome is the discrete result of one task execution. Callers dispatch on
// the code, never on error values crossing the RPC boundary.
type Outcome string

const (
	OutcomeSuccess            Outcome = "success"
	OutcomeFailure            Outcome = "failure"
	OutcomeNamespaceNotFound  Outcome = "namespace-not-found"
	OutcomeModuleNotFound     Outcome = "module-not-found"
	OutcomeIncompatibleModule Outcome = "incompatible-module"
	OutcomeWorkdirInitFailed  Outcome = "workdir-init-failed"
	OutcomeSinkInitFailed     Outcome = "sink-init-failed"
)

// Success reports whether the outcome is the success code
func (o Outcome) Success() bool {
	return o == OutcomeSuccess
}

// Request carries everything needed to run one node task.
type Request struct {
	TaskID   string
	Module   string
	Params   map[string]string
	Files    map[string]string
	SinkAddr string
}

// SinkFactory builds the result sink a module pushes its artifacts through.
// The worker wires a transfer client here; tests wire an in-memory sink.
type SinkFactory func(ctx context.Context, taskID, sinkAddr string) (modules.ResultSink, error)

// Executor runs node tasks through the module phase protocol.
type Executor struct {
	registry *modules.Registry
	newSink  SinkFactory
	logger   zerolog.Logger
}

// New creates an executor over the given module registry.
func New(registry *modules.Registry, newSink SinkFactory, logger zerolog.Logger) *Executor {
	return &Executor{registry: registry, newSink: newSink, logger: logger}
}

// Execute runs one task to completion and returns its outcome. Resolution
// and setup failures each map to their own code; once the module runs, the
// outcome is success only when all three phases succeed.
func (e *Executor) Execute(ctx context.Context, req Request) Outcome {
	logger := log.WithTaskID(e.logger, req.TaskID)

	factory, err := e.registry.Resolve(req.Module)
	if err != nil {
		logger.Warn().Err(err).Str("module", req.Module).Msg("Module resolution failed")
		switch {
		case errors.Is(err, modules.ErrModuleNotFound):
			return OutcomeModuleNotFound
		default:
			return OutcomeNamespaceNotFound
		}
	}

	workdir, err := os.MkdirTemp("", "amnes-task-")
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create working directory")
		return OutcomeWorkdirInitFailed
	}
	defer func() {
		if err := os.RemoveAll(workdir); err != nil {
			logger.Warn().Err(err).Str("workdir", workdir).Msg("Failed to remove working directory")
		}
	}()

	if err := materializeFiles(workdir, req.Files); err != nil {
		logger.Error().Err(err).Msg("Failed to write task files")
		return OutcomeWorkdirInitFailed
	}

	sink, err := e.newSink(ctx, req.TaskID, req.SinkAddr)
	if err != nil {
		logger.Error().Err(err).Str("sink", req.SinkAddr).Msg("Failed to build result sink")
		return OutcomeSinkInitFailed
	}
	if closer, ok := sink.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	instance, err := factory(req.Params, req.Files, workdir)
	if err != nil {
		logger.Warn().Err(err).Str("module", req.Module).Msg("Module construction failed")
		return OutcomeFailure
	}
	module, ok := instance.(modules.NodeModule)
	if !ok {
		logger.Warn().Str("module", req.Module).Msg("Resolved type is not a node module")
		return OutcomeIncompatibleModule
	}
	module.SetResultSink(sink)

	return e.runPhases(ctx, logger, module)
}

// runPhases drives execute, collect and cleanup. All three are always
// attempted, whatever the earlier phases returned: collect salvages partial
// artifacts and cleanup releases processes and other resources even after a
// failed run. A module whose state is corrupted by an uncaught error decides
// for itself how much real work its later phases still do.
func (e *Executor) runPhases(ctx context.Context, logger zerolog.Logger, module modules.NodeModule) Outcome {
	phases := []struct {
		name string
		run  func(context.Context) error
	}{
		{"execute", module.Execute},
		{"collect", module.Collect},
		{"cleanup", module.Cleanup},
	}

	failed := false
	for _, phase := range phases {
		err := phase.run(ctx)
		if err == nil {
			continue
		}
		failed = true
		if modules.IsModuleError(err) {
			logger.Warn().Err(err).Str("phase", phase.name).Msg("Module phase failed")
		} else {
			logger.Error().Err(err).Str("phase", phase.name).Msg("Uncaught module phase error")
		}
	}

	if failed {
		return OutcomeFailure
	}
	return OutcomeSuccess
}

// materializeFiles writes the task's file payloads into the workdir so the
// module sees them as plain files.
func materializeFiles(workdir string, files map[string]string) error {
	for name, content := range files {
		path := filepath.Join(workdir, filepath.Base(name))
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return err
		}
	}
	return nil
}
