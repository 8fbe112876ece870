package jsonrpc

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/personakit/persona-go/pkg/errors"
)

func TestRequestMethodName(t *testing.T) {
	var req Request
	require.NoError(t, json.Unmarshal([]byte(`{"jsonrpc":"2.0","method":"system.ping","id":1}`), &req))

	method, ok := req.MethodName()
	assert.True(t, ok)
	assert.Equal(t, "system.ping", method)
	assert.False(t, req.IsNotification())
}

func TestRequestNonStringMethod(t *testing.T) {
	var req Request
	require.NoError(t, json.Unmarshal([]byte(`{"jsonrpc":"2.0","method":123,"id":1}`), &req))

	_, ok := req.MethodName()
	assert.False(t, ok)
}

func TestRequestNotificationDetection(t *testing.T) {
	for payload, want := range map[string]bool{
		`{"jsonrpc":"2.0","method":"m"}`:           true,
		`{"jsonrpc":"2.0","method":"m","id":null}`: true,
		`{"jsonrpc":"2.0","method":"m","id":0}`:    false,
		`{"jsonrpc":"2.0","method":"m","id":"a"}`:  false,
	} {
		var req Request
		require.NoError(t, json.Unmarshal([]byte(payload), &req))
		assert.Equal(t, want, req.IsNotification(), payload)
	}
}

func TestResponseRoundTrip(t *testing.T) {
	resp := NewResponse(json.RawMessage(`42`), map[string]any{"pong": true})

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded Response
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, json.RawMessage(`42`), decoded.ID)
	assert.Equal(t, Version, decoded.JSONRPC)
	assert.Nil(t, decoded.Error)
	assert.Equal(t, map[string]any{"pong": true}, decoded.Result)
}

func TestErrorResponseRoundTrip(t *testing.T) {
	resp := NewErrorResponse(json.RawMessage(`"req-7"`),
		errors.ErrInternal.WithMessagef("No model loaded"))

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded Response
	require.NoError(t, json.Unmarshal(data, &decoded))

	require.NotNil(t, decoded.Error)
	assert.Equal(t, -32603, decoded.Error.Code)
	assert.Equal(t, "No model loaded", decoded.Error.Message)
	assert.Equal(t, json.RawMessage(`"req-7"`), decoded.ID)
	assert.Nil(t, decoded.Result)
}

func TestNilErrorCoercedToInternal(t *testing.T) {
	resp := NewErrorResponse(nil, nil)

	require.NotNil(t, resp.Error)
	assert.Equal(t, -32603, resp.Error.Code)
}

func TestNotificationShape(t *testing.T) {
	push := NewNotification("event:model:loaded", map[string]any{"source": "mari.vrm"})

	data, err := json.Marshal(push)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "event:model:loaded", decoded["method"])
	assert.Equal(t, Version, decoded["jsonrpc"])
	// Push notifications never carry a correlation id.
	_, hasID := decoded["id"]
	assert.False(t, hasID)
}

func TestNewRequestHelper(t *testing.T) {
	req := NewRequest(1, "system.ping", nil)
	assert.False(t, req.IsNotification())

	method, ok := req.MethodName()
	assert.True(t, ok)
	assert.Equal(t, "system.ping", method)

	note := NewRequest(nil, "system.ping", nil)
	assert.True(t, note.IsNotification())
}
