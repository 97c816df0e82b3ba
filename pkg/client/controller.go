package client

import (
	"context"
	"fmt"

	"google.golang.org/grpc"

	"github.com/amnes-io/amnes/pkg/rpc"
)

// Controller is the typed client to the controller's remote control
// facade, used by the CLI and by workers requesting transfer slots.
type Controller struct {
	addr string
	conn *grpc.ClientConn
}

// NewController connects to a controller endpoint.
func NewController(addr string) (*Controller, error) {
	conn, err := dial(addr, rpc.CodecName)
	if err != nil {
		return nil, err
	}
	return &Controller{addr: addr, conn: conn}, nil
}

// ImportProject uploads a project definition document.
func (c *Controller) ImportProject(ctx context.Context, definition []byte) (*rpc.ImportProjectResponse, error) {
	out := new(rpc.ImportProjectResponse)
	if err := c.conn.Invoke(ctx, rpc.ControllerImportProjectMethod, &rpc.ImportProjectRequest{Definition: definition}, out); err != nil {
		return nil, fmt.Errorf("import project: %w", err)
	}
	return out, nil
}

// StartProject starts execution of an imported project.
func (c *Controller) StartProject(ctx context.Context, slug string) error {
	out := new(rpc.StartProjectResponse)
	if err := c.conn.Invoke(ctx, rpc.ControllerStartProjectMethod, &rpc.StartProjectRequest{Slug: slug}, out); err != nil {
		return fmt.Errorf("start project: %w", err)
	}
	return nil
}

// StopProject aborts the currently running project.
func (c *Controller) StopProject(ctx context.Context) error {
	out := new(rpc.StopProjectResponse)
	if err := c.conn.Invoke(ctx, rpc.ControllerStopProjectMethod, &rpc.StopProjectRequest{}, out); err != nil {
		return fmt.Errorf("stop project: %w", err)
	}
	return nil
}

// Shutdown asks the controller to stop gracefully.
func (c *Controller) Shutdown(ctx context.Context) error {
	out := new(rpc.ShutdownResponse)
	if err := c.conn.Invoke(ctx, rpc.ControllerShutdownMethod, &rpc.ShutdownRequest{}, out); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Kill asks the controller to terminate immediately.
func (c *Controller) Kill(ctx context.Context) error {
	out := new(rpc.KillResponse)
	if err := c.conn.Invoke(ctx, rpc.ControllerKillMethod, &rpc.KillRequest{}, out); err != nil {
		return fmt.Errorf("kill: %w", err)
	}
	return nil
}

// RequestTransferSlot asks for a one-shot result upload slot.
func (c *Controller) RequestTransferSlot(ctx context.Context, taskID, fileName string) (*rpc.RequestTransferSlotResponse, error) {
	out := new(rpc.RequestTransferSlotResponse)
	req := &rpc.RequestTransferSlotRequest{TaskID: taskID, FileName: fileName}
	if err := c.conn.Invoke(ctx, rpc.ControllerRequestTransferSlotMethod, req, out); err != nil {
		return nil, fmt.Errorf("request transfer slot: %w", err)
	}
	return out, nil
}

// Close releases the underlying connection.
func (c *Controller) Close() error {
	return c.conn.Close()
}
