package modules

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"time"
)

// IperfClient runs an iperf3 client measurement against a server node and
// collects the JSON report.
//
// Params:
//
//	host      iperf3 server address (required)
//	port      server port, default 5201
//	duration  measurement time in seconds, default 10
//	reverse   "true" to measure server-to-client
type IperfClient struct {
	Base

	host     string
	port     int
	duration int
	reverse  bool

	report bytes.Buffer
}

// NewIperfClient constructs the module from its params.
func NewIperfClient(params, files map[string]string, workdir string) (any, error) {
	m := &IperfClient{Base: NewBase(params, files, workdir), port: 5201, duration: 10}
	m.host = m.Param("host", "")
	if m.host == "" {
		return nil, fmt.Errorf("iperf: host param is required")
	}
	if raw := m.Param("port", ""); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil || port < 1 || port > 65535 {
			return nil, fmt.Errorf("iperf: invalid port %q", raw)
		}
		m.port = port
	}
	if raw := m.Param("duration", ""); raw != "" {
		duration, err := strconv.Atoi(raw)
		if err != nil || duration < 1 {
			return nil, fmt.Errorf("iperf: invalid duration %q", raw)
		}
		m.duration = duration
	}
	m.reverse = m.Param("reverse", "false") == "true"
	return m, nil
}

// Execute runs the iperf3 client to completion.
func (m *IperfClient) Execute(ctx context.Context) error {
	args := []string{
		"--client", m.host,
		"--port", strconv.Itoa(m.port),
		"--time", strconv.Itoa(m.duration),
		"--json",
	}
	if m.reverse {
		args = append(args, "--reverse")
	}

	// iperf3 itself bounds the run; the context deadline is the backstop.
	ctx, cancel := context.WithTimeout(ctx, time.Duration(m.duration+30)*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "iperf3", args...)
	cmd.Dir = m.Workdir
	cmd.Stdout = &m.report
	cmd.Stderr = &m.report

	if err := cmd.Run(); err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			return NewModuleError("iperf execute", err)
		}
		return fmt.Errorf("iperf: failed to run iperf3: %w", err)
	}
	return nil
}

// Collect pushes the JSON report produced by the run.
func (m *IperfClient) Collect(ctx context.Context) error {
	if m.report.Len() == 0 {
		return nil
	}
	if err := m.PushStream("iperf.json", bytes.NewReader(m.report.Bytes())); err != nil {
		return fmt.Errorf("iperf: failed to push report: %w", err)
	}
	return nil
}

func (m *IperfClient) Cleanup(ctx context.Context) error {
	return nil
}
