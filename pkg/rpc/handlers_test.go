package rpc

import (
	"context"
	"encoding/json"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/personakit/persona-go/pkg/avatar"
	"github.com/personakit/persona-go/pkg/errors"
	"github.com/personakit/persona-go/pkg/jsonrpc"
)

// fakeSink stands in for a transport session in events.* tests.
type fakeSink struct {
	subs map[string]struct{}
}

func newFakeSink() *fakeSink {
	return &fakeSink{subs: make(map[string]struct{})}
}

func (f *fakeSink) ID() string { return "fake" }

func (f *fakeSink) Subscribe(events []string) []string {
	for _, event := range events {
		f.subs[event] = struct{}{}
	}
	return events
}

func (f *fakeSink) Unsubscribe(events []string) []string {
	removed := []string{}
	for _, event := range events {
		if _, ok := f.subs[event]; ok {
			delete(f.subs, event)
			removed = append(removed, event)
		}
	}
	return removed
}

func (f *fakeSink) Subscriptions() []string {
	events := make([]string, 0, len(f.subs))
	for event := range f.subs {
		events = append(events, event)
	}
	sort.Strings(events)
	return events
}

func callMethod(t *testing.T, server *Server, method string, params any) jsonrpc.Response {
	t.Helper()

	req := jsonrpc.NewRequest(1, method, params)
	return server.HandleRequest(context.Background(), &req, nil)
}

func TestModelSetPositionWithoutModel(t *testing.T) {
	server, _ := newTestServer(t)

	resp := callMethod(t, server, "model.setPosition",
		map[string]any{"position": map[string]float64{"x": 1, "y": 2, "z": 3}})

	require.NotNil(t, resp.Error)
	assert.Equal(t, -32603, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "No model loaded")
}

func TestModelSetPositionMissingParams(t *testing.T) {
	server, _ := newTestServer(t)

	resp := callMethod(t, server, "model.setPosition", map[string]any{})

	require.NotNil(t, resp.Error)
	assert.Equal(t, -32602, resp.Error.Code)
}

func TestModelLifecycle(t *testing.T) {
	server, _ := newTestServer(t)

	resp := callMethod(t, server, "model.load", map[string]any{"source": "mari.vrm"})
	require.Nil(t, resp.Error)

	resp = callMethod(t, server, "model.setPosition",
		map[string]any{"position": map[string]float64{"x": 1, "y": 2, "z": 3}})
	require.Nil(t, resp.Error)

	transform := resp.Result.(map[string]any)["transform"].(avatar.Transform)
	assert.Equal(t, avatar.Vec3{X: 1, Y: 2, Z: 3}, transform.Position)
	// Loading placed the model at identity scale.
	assert.Equal(t, avatar.Vec3{X: 1, Y: 1, Z: 1}, transform.Scale)

	resp = callMethod(t, server, "model.unload", nil)
	require.Nil(t, resp.Error)

	resp = callMethod(t, server, "model.getTransform", nil)
	require.NotNil(t, resp.Error)
	assert.Contains(t, resp.Error.Message, "No model loaded")
}

func TestCharacterRequiresModel(t *testing.T) {
	server, _ := newTestServer(t)

	resp := callMethod(t, server, "character.setExpression",
		map[string]any{"expression": "happy"})
	require.NotNil(t, resp.Error)
	assert.Contains(t, resp.Error.Message, "No model loaded")

	callMethod(t, server, "model.load", map[string]any{"source": "mari.vrm"})

	resp = callMethod(t, server, "character.setExpression",
		map[string]any{"expression": "happy"})
	require.Nil(t, resp.Error)

	resp = callMethod(t, server, "character.getInfo", nil)
	require.Nil(t, resp.Error)
	assert.Equal(t, "happy", resp.Result.(map[string]any)["expression"])
}

func TestViewerNotInitialized(t *testing.T) {
	server, deps := newTestServer(t)

	resp := callMethod(t, server, "viewer.resetCamera", nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, -32603, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "Viewer not initialized")

	deps.Scene.SetViewerReady(true)

	resp = callMethod(t, server, "viewer.resetCamera", nil)
	require.Nil(t, resp.Error)

	resp = callMethod(t, server, "viewer.getState", nil)
	assert.Equal(t, true, resp.Result.(map[string]any)["initialized"])
}

func TestRoomLifecycle(t *testing.T) {
	server, _ := newTestServer(t)

	resp := callMethod(t, server, "room.getTransform", nil)
	require.NotNil(t, resp.Error)
	assert.Contains(t, resp.Error.Message, "No room loaded")

	resp = callMethod(t, server, "room.load", map[string]any{"source": "studio.glb"})
	require.Nil(t, resp.Error)

	resp = callMethod(t, server, "room.setTransform", map[string]any{
		"transform": map[string]any{
			"position": map[string]float64{"y": 2},
			"scale":    map[string]float64{"x": 1, "y": 1, "z": 1},
		},
	})
	require.Nil(t, resp.Error)

	resp = callMethod(t, server, "room.getTransform", nil)
	require.Nil(t, resp.Error)
	transform := resp.Result.(map[string]any)["transform"].(avatar.Transform)
	assert.Equal(t, float64(2), transform.Position.Y)
}

func TestChatSendMessage(t *testing.T) {
	server, deps := newTestServer(t)

	resp := callMethod(t, server, "chat.sendMessage", map[string]any{"text": "hello"})
	require.Nil(t, resp.Error)

	msg := resp.Result.(map[string]any)["message"].(avatar.Message)
	assert.Equal(t, "user", msg.Role)
	assert.Equal(t, "hello", msg.Content)

	resp = callMethod(t, server, "chat.getMessages", nil)
	require.Nil(t, resp.Error)
	assert.Len(t, resp.Result.(map[string]any)["messages"].([]avatar.Message), 1)

	resp = callMethod(t, server, "chat.getState", nil)
	require.Nil(t, resp.Error)
	assert.Equal(t, false, resp.Result.(map[string]any)["processing"])

	// Missing text is a validation failure, and must not touch state.
	resp = callMethod(t, server, "chat.sendMessage", map[string]any{})
	require.NotNil(t, resp.Error)
	assert.Equal(t, -32602, resp.Error.Code)
	assert.Len(t, deps.Chat.Messages(), 1)
}

func TestVisionDescribeWithoutBackend(t *testing.T) {
	server, _ := newTestServer(t)

	resp := callMethod(t, server, "vision.describe", map[string]any{"frame": "frame-1"})

	require.NotNil(t, resp.Error)
	assert.Equal(t, -32603, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "Vision backend not available")
}

func TestAudioVolume(t *testing.T) {
	server, _ := newTestServer(t)

	resp := callMethod(t, server, "audio.setVolume", map[string]any{"volume": 2.5})
	require.Nil(t, resp.Error)
	assert.Equal(t, 1.0, resp.Result.(avatar.AudioState).Volume)

	resp = callMethod(t, server, "audio.setVolume", nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, -32602, resp.Error.Code)
}

func TestXRUnsupported(t *testing.T) {
	server, _ := newTestServer(t)

	resp := callMethod(t, server, "xr.setActive", map[string]any{"active": true})

	require.NotNil(t, resp.Error)
	assert.Contains(t, resp.Error.Message, "XR not available")
}

func TestConfigGetSet(t *testing.T) {
	server, _ := newTestServer(t)

	resp := callMethod(t, server, "config.get", map[string]any{"key": "chat.autoReply"})
	require.Nil(t, resp.Error)
	assert.Equal(t, true, resp.Result.(map[string]any)["value"])

	resp = callMethod(t, server, "config.set",
		map[string]any{"key": "model.idleMotion", "value": "sway"})
	require.Nil(t, resp.Error)

	resp = callMethod(t, server, "config.get", map[string]any{"key": "model.idleMotion"})
	require.Nil(t, resp.Error)
	assert.Equal(t, "sway", resp.Result.(map[string]any)["value"])

	resp = callMethod(t, server, "config.get", map[string]any{"key": "missing.key"})
	require.Nil(t, resp.Error)
	assert.Equal(t, false, resp.Result.(map[string]any)["exists"])

	resp = callMethod(t, server, "config.set", map[string]any{"key": "k"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, -32602, resp.Error.Code)
}

func TestScenarioSaveLoad(t *testing.T) {
	server, deps := newTestServer(t)

	callMethod(t, server, "model.load", map[string]any{"source": "mari.vrm"})
	callMethod(t, server, "model.setPosition",
		map[string]any{"position": map[string]float64{"x": 5}})

	resp := callMethod(t, server, "scenario.save", map[string]any{"name": "opening"})
	require.Nil(t, resp.Error)

	callMethod(t, server, "model.unload", nil)
	require.Nil(t, deps.Scene.Snapshot().Model)

	resp = callMethod(t, server, "scenario.load", map[string]any{"name": "opening"})
	require.Nil(t, resp.Error)

	model, err := deps.Scene.Model()
	require.NoError(t, err)
	assert.Equal(t, "mari.vrm", model.Source)
	assert.Equal(t, float64(5), model.Transform.Position.X)

	resp = callMethod(t, server, "scenario.list", nil)
	require.Nil(t, resp.Error)
	assert.Equal(t, []string{"opening"}, resp.Result.(map[string]any)["scenarios"])

	resp = callMethod(t, server, "scenario.load", map[string]any{"name": "missing"})
	require.NotNil(t, resp.Error)
	assert.Contains(t, resp.Error.Message, "not found")
}

func TestHooksOverWire(t *testing.T) {
	server, deps := newTestServer(t)

	resp := callMethod(t, server, "hooks.register",
		map[string]any{"event": "before:llm:request", "priority": 5})
	require.Nil(t, resp.Error)

	hookID := resp.Result.(map[string]any)["hookId"].(string)
	require.NotEmpty(t, hookID)

	resp = callMethod(t, server, "hooks.trigger",
		map[string]any{"event": "before:llm:request", "payload": map[string]any{"text": "hi"}})
	require.Nil(t, resp.Error)

	results := resp.Result.(map[string]any)["results"].(map[string]any)
	assert.Equal(t, map[string]any{"text": "hi"}, results[hookID])

	resp = callMethod(t, server, "hooks.list", map[string]any{"event": "before:llm:request"})
	require.Nil(t, resp.Error)

	resp = callMethod(t, server, "hooks.unregister", map[string]any{"hookId": hookID})
	require.Nil(t, resp.Error)
	assert.Equal(t, true, resp.Result.(map[string]any)["removed"])

	resp = callMethod(t, server, "hooks.unregister", map[string]any{"hookId": hookID})
	require.Nil(t, resp.Error)
	assert.Equal(t, false, resp.Result.(map[string]any)["removed"])

	callMethod(t, server, "hooks.disable", nil)
	assert.False(t, deps.Hooks.Enabled())
	callMethod(t, server, "hooks.enable", nil)
	assert.True(t, deps.Hooks.Enabled())
}

func TestEventsMethodsRequireConnection(t *testing.T) {
	server, _ := newTestServer(t)

	resp := callMethod(t, server, "events.subscribe",
		map[string]any{"events": []string{"model:loaded"}})

	require.NotNil(t, resp.Error)
	assert.Contains(t, resp.Error.Message, "No active connection")
}

func TestEventsMethodsWithSink(t *testing.T) {
	server, _ := newTestServer(t)
	sink := newFakeSink()

	req := jsonrpc.NewRequest(1, "events.subscribe",
		map[string]any{"events": []string{"model:loaded", "room:loaded"}})
	resp := server.HandleRequest(context.Background(), &req, sink)
	require.Nil(t, resp.Error)
	assert.Len(t, resp.Result.(map[string]any)["subscribed"], 2)

	req = jsonrpc.NewRequest(2, "events.listSubscriptions", nil)
	resp = server.HandleRequest(context.Background(), &req, sink)
	require.Nil(t, resp.Error)
	assert.Equal(t, []string{"model:loaded", "room:loaded"},
		resp.Result.(map[string]any)["events"])

	req = jsonrpc.NewRequest(3, "events.unsubscribe",
		map[string]any{"events": []string{"model:loaded"}})
	resp = server.HandleRequest(context.Background(), &req, sink)
	require.Nil(t, resp.Error)
	assert.Equal(t, []string{"model:loaded"}, resp.Result.(map[string]any)["unsubscribed"])
}

func TestValidationFailureDoesNotMutateState(t *testing.T) {
	server, deps := newTestServer(t)

	callMethod(t, server, "model.load", map[string]any{"source": "mari.vrm"})

	resp := callMethod(t, server, "model.setPosition", map[string]any{"position": "sideways"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, -32602, resp.Error.Code)

	transform, err := deps.Scene.ModelTransform()
	require.NoError(t, err)
	assert.Equal(t, avatar.Vec3{}, transform.Position)
}

func TestRawParamsPassThrough(t *testing.T) {
	server, _ := newTestServer(t)

	var raw json.RawMessage
	server.Register("inspect.params", func(ctx context.Context, call *Call) (any, *errors.RpcError) {
		raw = call.Params
		return nil, nil
	})

	req := parseRequest(t, `{"jsonrpc":"2.0","method":"inspect.params","params":{"a":[1,2]},"id":1}`)
	resp := server.HandleRequest(context.Background(), req, nil)

	require.Nil(t, resp.Error)
	assert.JSONEq(t, `{"a":[1,2]}`, string(raw))
}
