// Package tcp serves the line protocol over plain TCP sockets, one goroutine
// per connection.
package tcp

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"vine-and-dine/server/internal/net/intake"
	"vine-and-dine/server/internal/net/proto"
	"vine-and-dine/server/internal/telemetry"
	"vine-and-dine/server/logging"
	"vine-and-dine/server/logging/network"
)

// Config tunes the TCP listener.
type Config struct {
	Addr         string
	IdleTimeout  time.Duration
	WriteTimeout time.Duration
	MaxLineBytes int
}

// DefaultConfig mirrors the stock listener settings: port 5000 and a 20
// second idle cutoff.
func DefaultConfig() Config {
	return Config{
		Addr:         ":5000",
		IdleTimeout:  20 * time.Second,
		WriteTimeout: 5 * time.Second,
		MaxLineBytes: 512,
	}
}

// Server accepts connections and runs one read loop per client.
type Server struct {
	cfg       Config
	gateway   intake.Gateway
	logger    telemetry.Logger
	metrics   telemetry.Metrics
	publisher logging.Publisher

	mu       sync.Mutex
	listener net.Listener
	clients  map[*client]struct{}
	closed   bool

	wg sync.WaitGroup
}

// NewServer wires a server; Serve starts accepting.
func NewServer(cfg Config, gateway intake.Gateway, logger telemetry.Logger, metrics telemetry.Metrics, publisher logging.Publisher) *Server {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 20 * time.Second
	}
	if cfg.MaxLineBytes <= 0 {
		cfg.MaxLineBytes = 512
	}
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	return &Server{
		cfg:       cfg,
		gateway:   gateway,
		logger:    logger,
		metrics:   metrics,
		publisher: publisher,
		clients:   make(map[*client]struct{}),
	}
}

// Serve listens on the configured address and blocks until Close.
func (s *Server) Serve() error {
	listener, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("tcp listen on %s: %w", s.cfg.Addr, err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		listener.Close()
		return net.ErrClosed
	}
	s.listener = listener
	s.mu.Unlock()

	if s.logger != nil {
		s.logger.Printf("tcp listening on %s", listener.Addr())
	}

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			if s.logger != nil {
				s.logger.Printf("tcp accept: %v", err)
			}
			continue
		}
		s.wg.Add(1)
		go s.handle(conn)
	}
}

// Addr reports the bound listener address, empty before Serve.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close stops accepting, closes every live connection and waits for the read
// loops to drain.
func (s *Server) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	listener := s.listener
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	if listener != nil {
		listener.Close()
	}
	for _, c := range clients {
		c.Close()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) handle(conn net.Conn) {
	defer s.wg.Done()

	c := newClient(conn, s.cfg.WriteTimeout)
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		c.Close()
		return
	}
	s.clients[c] = struct{}{}
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.Add("tcp_connections_total", 1)
	}
	network.ClientConnected(context.Background(), s.publisher,
		logging.EntityRef{Kind: logging.EntityKindConnection, ID: c.remoteAddr()})

	reason := s.readLoop(c, conn)

	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()

	s.gateway.DropObserver(c, reason)
	c.Close()
	network.ClientDisconnected(context.Background(), s.publisher,
		logging.EntityRef{Kind: logging.EntityKindConnection, ID: c.remoteAddr()},
		network.ClientDisconnectedPayload{Reason: reason})
}

// readLoop consumes lines until the client quits, goes idle, or the socket
// fails, and reports why it stopped.
func (s *Server) readLoop(c *client, conn net.Conn) string {
	if err := c.SendLine(proto.Welcome()); err != nil {
		return "write_failed"
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, s.cfg.MaxLineBytes), s.cfg.MaxLineBytes)
	for {
		conn.SetReadDeadline(time.Now().Add(s.cfg.IdleTimeout))
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				var netErr net.Error
				if errors.As(err, &netErr) && netErr.Timeout() {
					return "idle_timeout"
				}
				return "read_failed"
			}
			return "client_closed"
		}
		if intake.Dispatch(s.gateway, c, scanner.Text()) {
			return "quit"
		}
	}
}
