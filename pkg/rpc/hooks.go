package rpc

import (
	"context"
	"encoding/json"

	"github.com/tidwall/gjson"

	"github.com/personakit/persona-go/pkg/errors"
)

// hooks.* delegates to the hook registry. Wire-side registrations install a
// recording callback: remote code cannot run in-process, so the payload is
// echoed into the trigger aggregate and observable via events.subscribe.
func (s *Server) registerHooks() {
	s.Register("hooks.register", func(ctx context.Context, call *Call) (any, *errors.RpcError) {
		var params struct {
			Event    string `json:"event"`
			Priority int    `json:"priority"`
		}

		if err := json.Unmarshal(call.Params, &params); err != nil || params.Event == "" {
			return nil, errors.ErrInvalidParams.WithMessagef("event is required")
		}

		id := call.Deps.Hooks.Register(params.Event, params.Priority,
			func(ctx context.Context, payload any) (any, error) {
				return payload, nil
			})

		return map[string]any{"hookId": id}, nil
	})

	s.Register("hooks.unregister", func(ctx context.Context, call *Call) (any, *errors.RpcError) {
		var params struct {
			HookID string `json:"hookId"`
		}

		if err := json.Unmarshal(call.Params, &params); err != nil || params.HookID == "" {
			return nil, errors.ErrInvalidParams.WithMessagef("hookId is required")
		}

		return map[string]any{"removed": call.Deps.Hooks.Unregister(params.HookID)}, nil
	})

	s.Register("hooks.unregisterAll", func(ctx context.Context, call *Call) (any, *errors.RpcError) {
		var params struct {
			Event string `json:"event"`
		}

		if err := json.Unmarshal(call.Params, &params); err != nil || params.Event == "" {
			return nil, errors.ErrInvalidParams.WithMessagef("event is required")
		}

		call.Deps.Hooks.UnregisterAll(params.Event)
		return map[string]any{"event": params.Event}, nil
	})

	s.Register("hooks.trigger", func(ctx context.Context, call *Call) (any, *errors.RpcError) {
		var params struct {
			Event   string `json:"event"`
			Payload any    `json:"payload"`
		}

		if err := json.Unmarshal(call.Params, &params); err != nil || params.Event == "" {
			return nil, errors.ErrInvalidParams.WithMessagef("event is required")
		}

		results := call.Deps.Hooks.Trigger(ctx, params.Event, params.Payload)
		return map[string]any{"results": results}, nil
	})

	s.Register("hooks.list", func(ctx context.Context, call *Call) (any, *errors.RpcError) {
		if event := gjson.GetBytes(call.Params, "event"); event.Exists() {
			return map[string]any{"hooks": call.Deps.Hooks.Hooks(event.String())}, nil
		}

		return map[string]any{"hooks": call.Deps.Hooks.Hooks()}, nil
	})

	s.Register("hooks.enable", func(ctx context.Context, call *Call) (any, *errors.RpcError) {
		call.Deps.Hooks.SetEnabled(true)
		return map[string]any{"enabled": true}, nil
	})

	s.Register("hooks.disable", func(ctx context.Context, call *Call) (any, *errors.RpcError) {
		call.Deps.Hooks.SetEnabled(false)
		return map[string]any{"enabled": false}, nil
	})

	s.Register("hooks.clear", func(ctx context.Context, call *Call) (any, *errors.RpcError) {
		call.Deps.Hooks.Clear()
		return map[string]any{"cleared": true}, nil
	})
}
