/*
Package log provides structured logging for AMNES using zerolog.

The log package wraps the zerolog library to provide JSON-structured logging
with component-specific loggers, configurable log levels, and helper functions
for common logging patterns. All logs include timestamps and support filtering
by severity level.

# Usage

Build the root logger once at process start and hand child loggers to each
component constructor; there is no package-level logger:

	logger := log.New(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
	})

Create component loggers for subsystems:

	apiLogger := log.WithComponent(logger, "scheduler")
	apiLogger.Info().Str("experiment", "exp1").Msg("repetition started")

Field helpers exist for the identifiers that recur throughout a run:
WithProject, WithExperiment, WithTaskID and WithWorker.

Console (human-readable) output is the default; set JSONOutput for
production deployments that ship logs to an aggregator.
*/
package log
