package ws

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/personakit/persona-go/pkg/errors"
	"github.com/personakit/persona-go/pkg/hooks"
	"github.com/personakit/persona-go/pkg/jsonrpc"
	"github.com/personakit/persona-go/pkg/rpc"
)

// Config carries the transport's startup parameters. They are opaque to the
// protocol itself.
type Config struct {
	MaxConnections    int
	HeartbeatInterval time.Duration
	ServerName        string
	ServerVersion     string
}

/*
Transport manages the pool of persistent connections: capacity enforcement,
envelope parsing, per-connection heartbeats, subscription bookkeeping, and
the bridge that turns hook registry events into push notifications for
subscribed connections.
*/
type Transport struct {
	cfg    Config
	server *rpc.Server
	hooks  *hooks.Registry

	mu       sync.RWMutex
	sessions map[*Session]struct{}

	bridgeMu sync.Mutex
	bridges  map[string]*bridge
}

// bridge is one hook registered on behalf of subscribed connections,
// refcounted across sessions.
type bridge struct {
	hookID string
	refs   int
}

func NewTransport(server *rpc.Server, registry *hooks.Registry, cfg Config) *Transport {
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = 32
	}

	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = 30 * time.Second
	}

	return &Transport{
		cfg:      cfg,
		server:   server,
		hooks:    registry,
		sessions: make(map[*Session]struct{}),
		bridges:  make(map[string]*bridge),
	}
}

// HandleConnection admits a new connection. At capacity the connection is
// closed immediately without any payload and nil is returned; otherwise the
// session is registered, greeted with a "connected" push, and its heartbeat
// timer starts.
func (t *Transport) HandleConnection(conn Conn) *Session {
	sess := &Session{
		id:        uuid.NewString(),
		conn:      conn,
		transport: t,
		subs:      make(map[string]struct{}),
		done:      make(chan struct{}),
	}

	t.mu.Lock()

	if len(t.sessions) >= t.cfg.MaxConnections {
		t.mu.Unlock()
		_ = conn.Close()
		log.Warn("connection rejected at capacity", "max", t.cfg.MaxConnections)
		return nil
	}

	t.sessions[sess] = struct{}{}
	count := len(t.sessions)
	t.mu.Unlock()

	log.Info("connection opened", "connection", sess.id, "active", count)

	_ = sess.send(jsonrpc.NewNotification("connected", map[string]any{
		"server":       t.cfg.ServerName,
		"version":      t.cfg.ServerVersion,
		"connectionId": sess.id,
	}))

	go t.heartbeat(sess)

	return sess
}

// heartbeat pushes a liveness notification at the configured interval until
// the session closes. The session's closed check makes a tick that raced
// with Close a no-op.
func (t *Transport) heartbeat(sess *Session) {
	ticker := time.NewTicker(t.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-sess.done:
			return
		case <-ticker.C:
			_ = sess.send(jsonrpc.NewNotification("heartbeat", map[string]any{
				"timestamp": time.Now().UnixMilli(),
			}))
		}
	}
}

// HandleMessage parses one inbound payload, routes it, and writes back
// whatever response is owed. Malformed payloads earn a single ParseError
// response rather than a dropped connection.
func (t *Transport) HandleMessage(ctx context.Context, sess *Session, payload []byte) {
	payload = bytes.TrimSpace(payload)

	if len(payload) == 0 {
		_ = sess.send(jsonrpc.NewErrorResponse(nil, errors.ErrParseError))
		return
	}

	if payload[0] == '[' {
		var batch []jsonrpc.Request

		if err := json.Unmarshal(payload, &batch); err != nil {
			_ = sess.send(jsonrpc.NewErrorResponse(nil, errors.ErrParseError))
			return
		}

		responses := t.server.HandleBatch(ctx, batch, sess)

		// A batch of nothing but notifications owes no reply.
		if len(responses) == 0 {
			return
		}

		_ = sess.send(responses)
		return
	}

	var req jsonrpc.Request

	if err := json.Unmarshal(payload, &req); err != nil {
		_ = sess.send(jsonrpc.NewErrorResponse(nil, errors.ErrParseError))
		return
	}

	if req.IsNotification() {
		t.server.HandleNotification(ctx, &req, sess)
		return
	}

	_ = sess.send(t.server.HandleRequest(ctx, &req, sess))
}

// BroadcastEvent pushes "event:<event>" to exactly the open sessions
// subscribed to event.
func (t *Transport) BroadcastEvent(event string, payload any) {
	notification := jsonrpc.NewNotification("event:"+event, payload)

	for _, sess := range t.snapshot() {
		if !sess.subscribedTo(event) {
			continue
		}

		if err := sess.send(notification); err != nil {
			log.Debug("event push skipped", "connection", sess.id, "event", event, "error", err)
		}
	}
}

// Broadcast sends an arbitrary payload to every open session.
func (t *Transport) Broadcast(v any) {
	for _, sess := range t.snapshot() {
		if err := sess.send(v); err != nil {
			log.Debug("broadcast skipped", "connection", sess.id, "error", err)
		}
	}
}

// CloseAll closes every tracked connection and clears internal state.
func (t *Transport) CloseAll() {
	for _, sess := range t.snapshot() {
		sess.Close()
	}

	t.bridgeMu.Lock()
	for event, b := range t.bridges {
		t.hooks.Unregister(b.hookID)
		delete(t.bridges, event)
	}
	t.bridgeMu.Unlock()
}

// ConnectionCount reports the number of open connections.
func (t *Transport) ConnectionCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.sessions)
}

func (t *Transport) snapshot() []*Session {
	t.mu.RLock()
	defer t.mu.RUnlock()

	sessions := make([]*Session, 0, len(t.sessions))
	for sess := range t.sessions {
		sessions = append(sessions, sess)
	}

	return sessions
}

func (t *Transport) remove(sess *Session) {
	t.mu.Lock()
	_, tracked := t.sessions[sess]
	delete(t.sessions, sess)
	count := len(t.sessions)
	t.mu.Unlock()

	if tracked {
		log.Info("connection closed", "connection", sess.id, "active", count)
	}
}

// acquireBridge lazily registers a hook forwarding event payloads to
// subscribed connections. One hook serves all subscribers of an event.
func (t *Transport) acquireBridge(event string) {
	t.bridgeMu.Lock()
	defer t.bridgeMu.Unlock()

	if b, ok := t.bridges[event]; ok {
		b.refs++
		return
	}

	hookID := t.hooks.Register(event, 0, func(ctx context.Context, payload any) (any, error) {
		t.BroadcastEvent(event, payload)
		return nil, nil
	})

	t.bridges[event] = &bridge{hookID: hookID, refs: 1}
}

// releaseBridge drops one subscriber reference and unregisters the bridge
// hook when nobody is left listening.
func (t *Transport) releaseBridge(event string) {
	t.bridgeMu.Lock()
	defer t.bridgeMu.Unlock()

	b, ok := t.bridges[event]
	if !ok {
		return
	}

	b.refs--
	if b.refs > 0 {
		return
	}

	t.hooks.Unregister(b.hookID)
	delete(t.bridges, event)
}
