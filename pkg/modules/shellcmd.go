package modules

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"
)

// ShellCommand runs one shell command on the worker host and collects its
// stdout and stderr as result files.
//
// Params:
//
//	command  the command line, run through /bin/sh -c (required)
//	timeout  optional duration limit, e.g. "30s"
type ShellCommand struct {
	Base

	command string
	timeout time.Duration

	stdout bytes.Buffer
	stderr bytes.Buffer
}

// NewShellCommand constructs the module; an empty command param is a
// construction failure.
func NewShellCommand(params, files map[string]string, workdir string) (any, error) {
	m := &ShellCommand{Base: NewBase(params, files, workdir)}
	m.command = m.Param("command", "")
	if m.command == "" {
		return nil, fmt.Errorf("shellcmd: command param is required")
	}
	if raw := m.Param("timeout", ""); raw != "" {
		timeout, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("shellcmd: invalid timeout %q: %w", raw, err)
		}
		m.timeout = timeout
	}
	return m, nil
}

// Execute runs the command in the working directory. A non-zero exit is an
// expected module error; failing to even start the command is not.
func (m *ShellCommand) Execute(ctx context.Context) error {
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", m.command)
	cmd.Dir = m.Workdir
	cmd.Stdout = &m.stdout
	cmd.Stderr = &m.stderr

	if err := cmd.Run(); err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			return NewModuleError("shellcmd execute", err)
		}
		return fmt.Errorf("shellcmd: failed to run command: %w", err)
	}
	return nil
}

// Collect pushes the captured output streams
func (m *ShellCommand) Collect(ctx context.Context) error {
	if m.stdout.Len() > 0 {
		if err := m.PushStream("stdout.log", bytes.NewReader(m.stdout.Bytes())); err != nil {
			return fmt.Errorf("shellcmd: failed to push stdout: %w", err)
		}
	}
	if m.stderr.Len() > 0 {
		if err := m.PushStream("stderr.log", bytes.NewReader(m.stderr.Bytes())); err != nil {
			return fmt.Errorf("shellcmd: failed to push stderr: %w", err)
		}
	}
	return nil
}

// Cleanup has nothing to release; the executor removes the workdir
func (m *ShellCommand) Cleanup(ctx context.Context) error {
	return nil
}
