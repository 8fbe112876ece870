package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/personakit/persona-go/pkg/ws"
)

// Config holds the HTTP server's startup parameters.
type Config struct {
	Host string
	Port int
	// Path is the WebSocket endpoint, e.g. "/ws".
	Path string
}

// Server exposes the control transport over HTTP: a WebSocket endpoint for
// clients and a health route for probes.
type Server struct {
	cfg       Config
	transport *ws.Transport
	upgrader  websocket.Upgrader
	http      *http.Server
}

func New(cfg Config, transport *ws.Transport) *Server {
	if cfg.Path == "" {
		cfg.Path = "/ws"
	}

	return &Server{
		cfg:       cfg,
		transport: transport,
		upgrader: websocket.Upgrader{
			// Browser extensions and local panels connect from arbitrary
			// origins; auth is out of scope for this control channel.
			CheckOrigin: func(_ *http.Request) bool { return true },
		},
	}
}

// Start runs the HTTP server until ctx is cancelled, then closes every
// client connection and shuts the listener down.
func (s *Server) Start(ctx context.Context) error {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Get(s.cfg.Path, s.handleWS)
	router.Get("/healthz", s.handleHealth)

	s.http = &http.Server{
		Addr:        fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:     router,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		log.Info("control server listening", "addr", s.http.Addr, "path", s.cfg.Path)

		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.transport.CloseAll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.http.Shutdown(shutdownCtx)
}

// handleWS upgrades the connection and pumps inbound messages into the
// transport. Messages on one connection are handled in order; connections
// are independent of each other.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	sess := s.transport.HandleConnection(conn)
	if sess == nil {
		return
	}

	defer sess.Close()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			log.Debug("connection read ended", "connection", sess.ID(), "error", err)
			return
		}

		s.transport.HandleMessage(r.Context(), sess, payload)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
