package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/amnes-io/amnes/pkg/config"
	"github.com/amnes-io/amnes/pkg/events"
	"github.com/amnes-io/amnes/pkg/log"
	"github.com/amnes-io/amnes/pkg/scheduler"
	"github.com/amnes-io/amnes/pkg/storage"
	"github.com/amnes-io/amnes/pkg/transfer"
)

// lockTimeout bounds how long a control command waits for the exclusivity
// lock before failing busy.
const lockTimeout = 2 * time.Second

var (
	// ErrBusy is returned when another control command or a running
	// project holds the exclusivity lock.
	ErrBusy = errors.New("controller is busy")
	// ErrNotRunning is returned by StopProject when nothing is running.
	ErrNotRunning = errors.New("no project is running")
)

// Controller owns the execution core: it imports projects, starts and
// stops runs and exposes the transfer server's slot registration. A
// single lock serializes control commands against the project scheduler;
// a running project holds it for the whole run.
type Controller struct {
	store    storage.Store
	broker   *events.Broker
	transfer *transfer.Server
	connect  scheduler.ConnectFunc
	logger   zerolog.Logger

	// controlAddr is the address workers call back for transfer slots
	controlAddr string

	lock    chan struct{}
	timeout time.Duration

	mu        sync.Mutex
	runCancel context.CancelFunc
	runDone   chan struct{}

	shutdownOnce sync.Once
	shutdownCh   chan struct{}
}

// New wires a controller from its collaborators.
func New(store storage.Store, broker *events.Broker, transferServer *transfer.Server, connect scheduler.ConnectFunc, controlAddr string, logger zerolog.Logger) *Controller {
	return &Controller{
		store:       store,
		broker:      broker,
		transfer:    transferServer,
		connect:     connect,
		logger:      log.WithComponent(logger, "controller"),
		controlAddr: controlAddr,
		lock:        make(chan struct{}, 1),
		timeout:     lockTimeout,
		shutdownCh:  make(chan struct{}),
	}
}

// tryLock acquires the exclusivity lock, giving up after the timeout.
func (c *Controller) tryLock() bool {
	select {
	case c.lock <- struct{}{}:
		return true
	case <-time.After(c.timeout):
		return false
	}
}

func (c *Controller) unlock() {
	<-c.lock
}

// ImportProject parses a project definition, generates its experiment
// sequences and persists the whole graph.
func (c *Controller) ImportProject(definition []byte) (string, string, error) {
	if !c.tryLock() {
		return "", "", ErrBusy
	}
	defer c.unlock()

	project, err := config.LoadProject(definition)
	if err != nil {
		return "", "", err
	}

	id, err := c.store.ImportProject(project)
	if err != nil {
		return "", "", err
	}

	projectLogger := log.WithProject(c.logger, project.Slug)
	projectLogger.Info().Str("id", id).Msg("Project imported")
	c.broker.Publish(&events.Event{
		Type:     events.EventProjectImported,
		Message:  "project imported",
		Metadata: map[string]string{"project": project.Slug, "id": id},
	})
	return id, project.Slug, nil
}

// StartProject launches a project run in the background. The exclusivity
// lock is held by the run goroutine until the run ends.
func (c *Controller) StartProject(slug string) error {
	if !c.tryLock() {
		return ErrBusy
	}

	project, err := c.store.GetProjectBySlug(slug)
	if err != nil {
		c.unlock()
		return fmt.Errorf("failed to load project %s: %w", slug, err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	c.mu.Lock()
	c.runCancel = cancel
	c.runDone = done
	c.mu.Unlock()

	experiments := scheduler.NewExperimentScheduler(c.broker, c.controlAddr, c.logger)
	projects := scheduler.NewProjectScheduler(c.store, c.broker, c.transfer, c.connect, experiments, c.logger)

	go func() {
		defer c.unlock()
		defer close(done)
		defer func() {
			c.mu.Lock()
			c.runCancel = nil
			c.runDone = nil
			c.mu.Unlock()
		}()

		if err := projects.Run(runCtx, project); err != nil {
			runLogger := log.WithProject(c.logger, slug)
			runLogger.Error().Err(err).Msg("Project run ended with error")
			return
		}
	}()
	return nil
}

// StopProject cancels the running project. It deliberately bypasses the
// exclusivity lock: the run goroutine holds it, so a locked stop could
// never succeed.
func (c *Controller) StopProject() error {
	c.mu.Lock()
	cancel := c.runCancel
	c.mu.Unlock()

	if cancel == nil {
		return ErrNotRunning
	}
	cancel()
	c.logger.Info().Msg("Stop requested, cancelling running project")
	return nil
}

// RequestTransferSlot mints an upload token for the current repetition.
func (c *Controller) RequestTransferSlot() (string, string, error) {
	token, err := c.transfer.RequestSlot()
	if err != nil {
		return "", "", err
	}
	return token, c.transfer.Addr(), nil
}

// Shutdown triggers the graceful shutdown path: the running project is
// cancelled and waited for, then the shutdown channel closes so the
// daemon can stop its listeners.
func (c *Controller) Shutdown() {
	c.shutdownOnce.Do(func() {
		c.mu.Lock()
		cancel := c.runCancel
		done := c.runDone
		c.mu.Unlock()

		if cancel != nil {
			cancel()
			<-done
		}
		close(c.shutdownCh)
	})
}

// Done is closed once a graceful shutdown has been requested.
func (c *Controller) Done() <-chan struct{} {
	return c.shutdownCh
}

// Wait blocks until the current run, if any, has finished.
func (c *Controller) Wait() {
	c.mu.Lock()
	done := c.runDone
	c.mu.Unlock()
	if done != nil {
		<-done
	}
}
