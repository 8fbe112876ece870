package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/personakit/persona-go/pkg/avatar"
	"github.com/personakit/persona-go/pkg/hooks"
	"github.com/personakit/persona-go/pkg/rpc"
	"github.com/personakit/persona-go/pkg/ws"
)

func newTestServer(t *testing.T) (*Server, *hooks.Registry) {
	t.Helper()

	registry := hooks.NewRegistry()

	scenarios, err := avatar.NewScenarioStore(t.TempDir())
	require.NoError(t, err)

	rpcServer := rpc.NewServer(&rpc.Deps{
		Hooks:         registry,
		Chat:          avatar.NewEngine(registry, nil),
		Scene:         avatar.NewScene(registry),
		Media:         avatar.NewMedia(nil, false),
		Config:        avatar.NewConfigStore(nil),
		Scenarios:     scenarios,
		ServerName:    "persona-go-test",
		ServerVersion: "0.0.1",
	})

	transport := ws.NewTransport(rpcServer, registry, ws.Config{
		ServerName:    "persona-go-test",
		ServerVersion: "0.0.1",
	})

	return New(Config{}, transport), registry
}

func dial(t *testing.T, handler http.HandlerFunc) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()

	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(payload, &decoded))
	return decoded
}

func TestWebSocketRequestResponse(t *testing.T) {
	server, _ := newTestServer(t)
	conn := dial(t, server.handleWS)

	welcome := readJSON(t, conn)
	assert.Equal(t, "connected", welcome["method"])
	params := welcome["params"].(map[string]any)
	assert.Equal(t, "persona-go-test", params["server"])
	assert.NotEmpty(t, params["connectionId"])

	require.NoError(t, conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"jsonrpc":"2.0","method":"system.ping","id":1}`)))

	resp := readJSON(t, conn)
	assert.Equal(t, float64(1), resp["id"])
	assert.Equal(t, true, resp["result"].(map[string]any)["pong"])
}

func TestWebSocketEventPush(t *testing.T) {
	server, registry := newTestServer(t)
	conn := dial(t, server.handleWS)

	readJSON(t, conn) // welcome

	require.NoError(t, conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"jsonrpc":"2.0","method":"events.subscribe","params":{"events":["model:loaded"]},"id":1}`)))
	readJSON(t, conn) // subscribe ack

	registry.Trigger(context.Background(), "model:loaded", map[string]any{"source": "mari.vrm"})

	push := readJSON(t, conn)
	assert.Equal(t, "event:model:loaded", push["method"])
	assert.Equal(t, "mari.vrm", push["params"].(map[string]any)["source"])
	_, hasID := push["id"]
	assert.False(t, hasID)
}

func TestWebSocketMalformedPayload(t *testing.T) {
	server, _ := newTestServer(t)
	conn := dial(t, server.handleWS)

	readJSON(t, conn) // welcome

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{nope`)))

	resp := readJSON(t, conn)
	errObj := resp["error"].(map[string]any)
	assert.Equal(t, float64(-32700), errObj["code"])
}

func TestHealthRoute(t *testing.T) {
	server, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	server.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
