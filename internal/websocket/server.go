// Herald - Notification Pipeline and Delivery Workers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/herald

package websocket

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/herald/internal/config"
	"github.com/tomtom215/herald/internal/logging"
	"github.com/tomtom215/herald/internal/metrics"
)

// InvalidTokenReason is the close reason sent when authentication fails.
const InvalidTokenReason = "Invalid JWT token"

// DefaultAuthTimeout bounds the wait for the token frame.
const DefaultAuthTimeout = 10 * time.Second

// ErrNotText is returned when the token frame is not a text frame.
var ErrNotText = errors.New("token frame must be text")

// TokenValidator resolves a token to a recipient id.
type TokenValidator interface {
	ValidateToken(token string) (string, error)
}

// ServerConfig configures the acceptor.
type ServerConfig struct {
	AuthTimeout    time.Duration
	SendBuffer     int
	AllowedOrigins []string
}

// ServerConfigFrom converts the websocket config section.
func ServerConfigFrom(cfg *config.WebsocketConfig) ServerConfig {
	return ServerConfig{
		AuthTimeout:    cfg.AuthTimeout,
		SendBuffer:     cfg.SendBuffer,
		AllowedOrigins: cfg.AllowedOrigins,
	}
}

// Server upgrades and authenticates incoming connections.
type Server struct {
	hub      *Hub
	tokens   TokenValidator
	cfg      ServerConfig
	upgrader websocket.Upgrader
}

// NewServer creates an acceptor registering clients with hub.
func NewServer(hub *Hub, tokens TokenValidator, cfg ServerConfig) *Server {
	if cfg.AuthTimeout <= 0 {
		cfg.AuthTimeout = DefaultAuthTimeout
	}
	s := &Server{hub: hub, tokens: tokens, cfg: cfg}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// Routes mounts the acceptor at path with health probes beside it.
func (s *Server) Routes(path string) http.Handler {
	if path == "" {
		path = "/"
	}
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get(path, s.ServeHTTP)
	return r
}

// ServeHTTP upgrades the request and waits for the token frame.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Debug().Err(err).Str("remote_addr", r.RemoteAddr).Msg("websocket upgrade failed")
		return
	}

	userID, err := s.authenticate(conn)
	if err != nil {
		metrics.RecordWSAuthFailure()
		logging.Info().Err(err).Str("remote_addr", r.RemoteAddr).Msg("websocket authentication failed")
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, InvalidTokenReason),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}

	client := NewClient(s.hub, conn, userID, s.cfg.SendBuffer)
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.AuthTimeout)
	defer cancel()
	if !s.hub.Register(ctx, client) {
		logging.Warn().Str("user_id", userID).Msg("websocket hub unavailable, closing connection")
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, ""),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}
	client.Start()
}

// authenticate reads the first frame within AuthTimeout and validates it
// as a token.
func (s *Server) authenticate(conn *websocket.Conn) (string, error) {
	if err := conn.SetReadDeadline(time.Now().Add(s.cfg.AuthTimeout)); err != nil {
		return "", err
	}
	mt, data, err := conn.ReadMessage()
	if err != nil {
		return "", fmt.Errorf("read token frame: %w", err)
	}
	if mt != websocket.TextMessage {
		return "", ErrNotText
	}
	if err := conn.SetReadDeadline(time.Time{}); err != nil {
		return "", err
	}
	return s.tokens.ValidateToken(strings.TrimSpace(string(data)))
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	return origin == "" || slices.Contains(s.cfg.AllowedOrigins, origin)
}
