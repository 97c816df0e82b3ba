package modules

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"
)

const captureFile = "capture.pcap"

// Tcpdump captures traffic on an interface for the duration of the
// experiment stage. Execute starts the capture and returns immediately;
// Collect stops it and pushes the pcap.
//
// Params:
//
//	interface  capture interface, default "any"
//	filter     optional pcap filter expression
//	snaplen    optional snapshot length
type Tcpdump struct {
	Base

	iface   string
	filter  string
	snaplen string

	cmd *exec.Cmd
}

// NewTcpdump constructs the module from its params.
func NewTcpdump(params, files map[string]string, workdir string) (any, error) {
	m := &Tcpdump{Base: NewBase(params, files, workdir)}
	m.iface = m.Param("interface", "any")
	m.filter = m.Param("filter", "")
	m.snaplen = m.Param("snaplen", "")
	return m, nil
}

// Execute starts the capture in the background.
func (m *Tcpdump) Execute(ctx context.Context) error {
	args := []string{"-i", m.iface, "-w", captureFile}
	if m.snaplen != "" {
		args = append(args, "-s", m.snaplen)
	}
	if m.filter != "" {
		args = append(args, m.filter)
	}

	cmd := exec.Command("tcpdump", args...)
	cmd.Dir = m.Workdir
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("tcpdump: failed to start capture: %w", err)
	}
	m.cmd = cmd
	return nil
}

// Collect stops the capture and pushes the pcap file.
func (m *Tcpdump) Collect(ctx context.Context) error {
	if m.cmd == nil {
		return nil
	}

	// SIGINT lets tcpdump flush its buffers before exiting.
	if err := m.cmd.Process.Signal(os.Interrupt); err != nil {
		return NewModuleError("tcpdump stop", err)
	}

	done := make(chan error, 1)
	go func() { done <- m.cmd.Wait() }()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		_ = m.cmd.Process.Kill()
		<-done
	}
	m.cmd = nil

	if err := m.PushFile(captureFile); err != nil {
		return NewModuleError("tcpdump collect", err)
	}
	return nil
}

// Cleanup kills the capture process if it is still running.
func (m *Tcpdump) Cleanup(ctx context.Context) error {
	if m.cmd != nil && m.cmd.Process != nil {
		_ = m.cmd.Process.Kill()
		_, _ = m.cmd.Process.Wait()
		m.cmd = nil
	}
	return nil
}
