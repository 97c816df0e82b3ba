package log

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Level represents log level
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Config holds logging configuration
type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer
}

// New builds the root logger for a process. Components receive child loggers
// derived from it through the With* helpers; there is no package-level
// logger state.
func New(cfg Config) zerolog.Logger {
	var level zerolog.Level
	switch cfg.Level {
	case DebugLevel:
		level = zerolog.DebugLevel
	case InfoLevel:
		level = zerolog.InfoLevel
	case WarnLevel:
		level = zerolog.WarnLevel
	case ErrorLevel:
		level = zerolog.ErrorLevel
	default:
		level = zerolog.InfoLevel
	}

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	var logger zerolog.Logger
	if cfg.JSONOutput {
		logger = zerolog.New(output)
	} else {
		logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		})
	}
	return logger.Level(level).With().Timestamp().Logger()
}

// WithComponent creates a child logger with component field
func WithComponent(parent zerolog.Logger, component string) zerolog.Logger {
	return parent.With().Str("component", component).Logger()
}

// WithProject creates a child logger with project field
func WithProject(parent zerolog.Logger, slug string) zerolog.Logger {
	return parent.With().Str("project", slug).Logger()
}

// WithExperiment creates a child logger with experiment and repetition fields
func WithExperiment(parent zerolog.Logger, slug string, repetition int) zerolog.Logger {
	return parent.With().Str("experiment", slug).Int("repetition", repetition).Logger()
}

// WithTaskID creates a child logger with task_id field
func WithTaskID(parent zerolog.Logger, taskID string) zerolog.Logger {
	return parent.With().Str("task_id", taskID).Logger()
}

// WithWorker creates a child logger with worker field
func WithWorker(parent zerolog.Logger, endpoint string) zerolog.Logger {
	return parent.With().Str("worker", endpoint).Logger()
}
