package modules

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ResultSink receives output streams a module wants preserved. The worker
// wires a sink that uploads to the controller's result transfer server.
type ResultSink interface {
	Push(name string, r io.Reader) error
}

// NodeModule is the capability set a worker module must satisfy. The three
// phases run in order; Collect and Cleanup are attempted even when Execute
// failed so partial artifacts and diagnostics are still gathered.
type NodeModule interface {
	Execute(ctx context.Context) error
	Collect(ctx context.Context) error
	Cleanup(ctx context.Context) error
	SetResultSink(sink ResultSink)
}

// ModuleError marks an expected, domain-level failure: the tool under test
// misbehaved rather than the harness. The executor logs these as warnings;
// any other error class counts as uncaught and is logged as a harness fault.
// Either way the remaining phases still run.
type ModuleError struct {
	Op  string
	Err error
}

func (e *ModuleError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ModuleError) Unwrap() error {
	return e.Err
}

// NewModuleError wraps err as an expected module failure
func NewModuleError(op string, err error) *ModuleError {
	return &ModuleError{Op: op, Err: err}
}

// IsModuleError reports whether err is an expected module failure
func IsModuleError(err error) bool {
	var me *ModuleError
	return errors.As(err, &me)
}

// Base carries the state every module is constructed with and implements
// the result-sink plumbing. Concrete modules embed it.
type Base struct {
	Params  map[string]string
	Files   map[string]string
	Workdir string

	sink ResultSink
}

// NewBase creates the shared module state
func NewBase(params, files map[string]string, workdir string) Base {
	return Base{Params: params, Files: files, Workdir: workdir}
}

// SetResultSink installs the sink used by PushFile and PushStream
func (b *Base) SetResultSink(sink ResultSink) {
	b.sink = sink
}

// PushStream uploads a named stream through the sink, if one is installed
func (b *Base) PushStream(name string, r io.Reader) error {
	if b.sink == nil {
		return fmt.Errorf("no result sink installed")
	}
	return b.sink.Push(name, r)
}

// PushFile uploads a file from the working directory through the sink
func (b *Base) PushFile(name string) error {
	f, err := os.Open(filepath.Join(b.Workdir, name))
	if err != nil {
		return fmt.Errorf("failed to open artifact %s: %w", name, err)
	}
	defer f.Close()
	return b.PushStream(name, f)
}

// Param returns a parameter value with a fallback default
func (b *Base) Param(name, fallback string) string {
	if v, ok := b.Params[name]; ok && v != "" {
		return v
	}
	return fallback
}
