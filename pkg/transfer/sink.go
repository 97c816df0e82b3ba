package transfer

import (
	"context"
	"fmt"
	"io"

	"github.com/amnes-io/amnes/pkg/client"
)

// Sink is the result sink wired into worker modules. Every Push requests
// a fresh one-shot slot from the controller, then streams the file to the
// transfer server named in the reply.
type Sink struct {
	ctx        context.Context
	controller *client.Controller
	taskID     string
}

// NewSink connects to the controller's control endpoint for slot requests.
func NewSink(ctx context.Context, taskID, controllerAddr string) (*Sink, error) {
	c, err := client.NewController(controllerAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to build result sink: %w", err)
	}
	return &Sink{ctx: ctx, controller: c, taskID: taskID}, nil
}

// Push uploads one named result stream.
func (s *Sink) Push(name string, r io.Reader) error {
	slot, err := s.controller.RequestTransferSlot(s.ctx, s.taskID, name)
	if err != nil {
		return err
	}
	return Push(s.ctx, slot.Address, slot.Token, r)
}

// Close releases the controller connection.
func (s *Sink) Close() error {
	return s.controller.Close()
}
