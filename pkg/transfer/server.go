package transfer

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/amnes-io/amnes/pkg/events"
	"github.com/amnes-io/amnes/pkg/log"
	"github.com/amnes-io/amnes/pkg/storage"
	"github.com/amnes-io/amnes/pkg/types"
)

// TokenLength is the fixed length of the hex token prefix every upload
// connection must start with.
const TokenLength = 64

const (
	acceptPollInterval = 500 * time.Millisecond
	transferDeadline   = 5 * time.Minute
)

// ErrNoCurrentRepetition is returned when a transfer slot is requested
// while no repetition is executing.
var ErrNoCurrentRepetition = errors.New("no repetition is currently running")

// slot binds an upload token to the repetition its file belongs to.
type slot struct {
	ref        *types.ExperimentRef
	repetition int
}

// Server accepts raw TCP uploads of result files. Each upload starts with
// a previously registered token; the remainder of the connection is the
// file content, attributed to the repetition the token was bound to.
type Server struct {
	store  storage.Store
	broker *events.Broker
	logger zerolog.Logger

	listener  *net.TCPListener
	advertise string

	mu       sync.Mutex
	current  *slot
	slots    map[string]slot
	shutdown bool

	loopDone chan struct{}
	handlers sync.WaitGroup
}

// NewServer creates a transfer server persisting uploads through store.
func NewServer(store storage.Store, broker *events.Broker, logger zerolog.Logger) *Server {
	return &Server{
		store:    store,
		broker:   broker,
		logger:   log.WithComponent(logger, "transfer"),
		slots:    make(map[string]slot),
		loopDone: make(chan struct{}),
	}
}

// Start binds the listener and launches the accept loop in its own
// goroutine.
func (s *Server) Start(addr string) error {
	tcpAddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to resolve transfer address: %w", err)
	}
	listener, err := net.ListenTCP("tcp", tcpAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = listener

	go s.acceptLoop()

	s.logger.Info().Str("addr", listener.Addr().String()).Msg("Transfer server listening")
	return nil
}

// SetAdvertiseAddr overrides the address handed out in transfer-slot
// replies. Required when the listener binds a wildcard address that
// remote workers cannot dial back. Must be called before Start.
func (s *Server) SetAdvertiseAddr(addr string) {
	s.advertise = addr
}

// Addr returns the address workers should upload to: the advertise
// address when one is configured, otherwise the bound listen address.
func (s *Server) Addr() string {
	if s.advertise != "" {
		return s.advertise
	}
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// SetCurrent marks the repetition incoming files are attributed to.
func (s *Server) SetCurrent(ref *types.ExperimentRef, repetition int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = &slot{ref: ref, repetition: repetition}
}

// ClearCurrent removes the current repetition binding.
func (s *Server) ClearCurrent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
}

// RequestSlot mints a token bound to the current repetition and registers
// it for one upload. It fails when no repetition is executing.
func (s *Server) RequestSlot() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return "", ErrNoCurrentRepetition
	}

	raw := make([]byte, TokenLength/2)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate transfer token: %w", err)
	}
	token := hex.EncodeToString(raw)

	s.slots[token] = *s.current
	return token, nil
}

// Shutdown stops the accept loop and waits for it and every in-flight
// transfer handler to finish.
func (s *Server) Shutdown() {
	s.mu.Lock()
	if s.shutdown {
		s.mu.Unlock()
		return
	}
	s.shutdown = true
	s.mu.Unlock()

	<-s.loopDone
	s.handlers.Wait()
	s.listener.Close()
}

func (s *Server) stopping() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shutdown
}

// acceptLoop polls the listener with a bounded deadline so the shutdown
// flag is observed promptly.
func (s *Server) acceptLoop() {
	defer close(s.loopDone)
	logger := s.logger

	for {
		if s.stopping() {
			return
		}
		if err := s.listener.SetDeadline(time.Now().Add(acceptPollInterval)); err != nil {
			logger.Error().Err(err).Msg("Failed to arm accept deadline")
			return
		}

		conn, err := s.listener.AcceptTCP()
		if err != nil {
			var nerr net.Error
			if errors.As(err, &nerr) && nerr.Timeout() {
				continue
			}
			if s.stopping() {
				return
			}
			logger.Error().Err(err).Msg("Accept failed")
			continue
		}

		s.handlers.Add(1)
		go func() {
			defer s.handlers.Done()
			s.handle(conn)
		}()
	}
}

// handle reads the token prefix, validates it, buffers the rest of the
// connection and imports it as a file. The token is deregistered whether
// the transfer succeeds or not.
func (s *Server) handle(conn *net.TCPConn) {
	defer conn.Close()
	logger := s.logger

	conn.SetDeadline(time.Now().Add(transferDeadline))

	tokenBuf := make([]byte, TokenLength)
	if _, err := io.ReadFull(conn, tokenBuf); err != nil {
		logger.Warn().Err(err).Msg("Failed to read transfer token")
		return
	}
	token := string(tokenBuf)

	s.mu.Lock()
	bound, known := s.slots[token]
	delete(s.slots, token)
	s.mu.Unlock()

	if !known {
		logger.Warn().Str("remote", conn.RemoteAddr().String()).Msg("Rejected transfer with unknown token")
		return
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, conn); err != nil {
		logger.Error().Err(err).Msg("Transfer aborted mid-stream")
		return
	}

	fileID, err := s.store.ImportFile(buf.Bytes(), bound.ref, bound.repetition)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to persist transferred file")
		return
	}

	logger.Debug().Str("file_id", fileID).Int("bytes", buf.Len()).Msg("Result file received")
	s.broker.Publish(&events.Event{
		Type:    events.EventFileReceived,
		Message: "result file received",
		Metadata: map[string]string{
			"file_id": fileID,
			"bytes":   strconv.Itoa(buf.Len()),
		},
	})
}
