// Package ws bridges the line protocol onto WebSocket text messages so
// browser clients speak the same commands as TCP ones.
package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"vine-and-dine/server/internal/net/intake"
	"vine-and-dine/server/internal/net/proto"
	"vine-and-dine/server/internal/telemetry"
	"vine-and-dine/server/logging"
	"vine-and-dine/server/logging/network"
)

// Config tunes the WebSocket endpoint.
type Config struct {
	IdleTimeout  time.Duration
	WriteTimeout time.Duration
	MaxLineBytes int64
}

func DefaultConfig() Config {
	return Config{
		IdleTimeout:  20 * time.Second,
		WriteTimeout: 5 * time.Second,
		MaxLineBytes: 512,
	}
}

// Handler upgrades HTTP requests and runs the shared intake dispatch per
// message. One text message carries one protocol line.
type Handler struct {
	cfg       Config
	gateway   intake.Gateway
	logger    telemetry.Logger
	metrics   telemetry.Metrics
	publisher logging.Publisher
	upgrader  websocket.Upgrader
}

func NewHandler(cfg Config, gateway intake.Gateway, logger telemetry.Logger, metrics telemetry.Metrics, publisher logging.Publisher) *Handler {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 20 * time.Second
	}
	if cfg.MaxLineBytes <= 0 {
		cfg.MaxLineBytes = 512
	}
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	return &Handler{
		cfg:       cfg,
		gateway:   gateway,
		logger:    logger,
		metrics:   metrics,
		publisher: publisher,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		if h.logger != nil {
			h.logger.Printf("ws upgrade: %v", err)
		}
		return
	}
	if h.metrics != nil {
		h.metrics.Add("ws_connections_total", 1)
	}

	sess := &session{conn: conn, writeTimeout: h.cfg.WriteTimeout}
	network.ClientConnected(context.Background(), h.publisher,
		logging.EntityRef{Kind: logging.EntityKindConnection, ID: conn.RemoteAddr().String()})

	reason := h.readLoop(sess, conn)

	h.gateway.DropObserver(sess, reason)
	sess.Close()
	network.ClientDisconnected(context.Background(), h.publisher,
		logging.EntityRef{Kind: logging.EntityKindConnection, ID: conn.RemoteAddr().String()},
		network.ClientDisconnectedPayload{Reason: reason})
}

func (h *Handler) readLoop(sess *session, conn *websocket.Conn) string {
	if err := sess.SendLine(proto.Welcome()); err != nil {
		return "write_failed"
	}

	conn.SetReadLimit(h.cfg.MaxLineBytes)
	for {
		conn.SetReadDeadline(time.Now().Add(h.cfg.IdleTimeout))
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return "client_closed"
			}
			return "read_failed"
		}
		if kind != websocket.TextMessage {
			continue
		}
		if intake.Dispatch(h.gateway, sess, string(data)) {
			return "quit"
		}
	}
}

// session adapts a WebSocket connection to the observer contract. Gorilla
// allows one concurrent writer, so sends are serialized behind a mutex.
type session struct {
	mu           sync.Mutex
	conn         *websocket.Conn
	writeTimeout time.Duration
	closed       bool
}

func (s *session) SendLine(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return websocket.ErrCloseSent
	}
	if s.writeTimeout > 0 {
		s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	}
	return s.conn.WriteMessage(websocket.TextMessage, []byte(line))
}

func (s *session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.conn.Close()
}
