package rpc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/tidwall/gjson"

	"github.com/personakit/persona-go/pkg/errors"
	"github.com/personakit/persona-go/pkg/jsonrpc"
)

func (s *Server) registerSystem() {
	s.Register("system.ping", func(ctx context.Context, call *Call) (any, *errors.RpcError) {
		return map[string]any{
			"pong":      true,
			"timestamp": time.Now().UnixMilli(),
		}, nil
	})

	s.Register("system.version", func(ctx context.Context, call *Call) (any, *errors.RpcError) {
		return map[string]any{
			"name":     call.Deps.ServerName,
			"version":  call.Deps.ServerVersion,
			"protocol": jsonrpc.Version,
		}, nil
	})

	s.Register("system.capabilities", func(ctx context.Context, call *Call) (any, *errors.RpcError) {
		return map[string]any{"methods": s.Methods()}, nil
	})

	s.Register("system.batch", s.handleSystemBatch)
}

// handleSystemBatch executes a list of sub-actions. Default mode runs them
// concurrently and returns the responses in input order; sequential mode
// runs strictly one at a time and adds a success/error tally.
func (s *Server) handleSystemBatch(ctx context.Context, call *Call) (any, *errors.RpcError) {
	var params struct {
		Actions []jsonrpc.Request `json:"actions"`
	}

	if err := json.Unmarshal(call.Params, &params); err != nil {
		return nil, errors.ErrInvalidParams.WithMessagef("actions must be an array of requests")
	}

	if params.Actions == nil {
		return nil, errors.ErrInvalidParams.WithMessagef("actions is required")
	}

	// Sub-actions routinely omit the protocol tag; fill it in rather than
	// bouncing every item with InvalidRequest.
	for i := range params.Actions {
		if params.Actions[i].JSONRPC == "" {
			params.Actions[i].JSONRPC = jsonrpc.Version
		}
	}

	sequential := gjson.GetBytes(call.Params, "sequential").Bool()

	if !sequential {
		return s.HandleBatch(ctx, params.Actions, call.Origin), nil
	}

	results := make([]jsonrpc.Response, 0, len(params.Actions))
	succeeded, failed := 0, 0

	for i := range params.Actions {
		req := &params.Actions[i]

		if req.IsNotification() {
			s.HandleNotification(ctx, req, call.Origin)
			continue
		}

		resp := s.HandleRequest(ctx, req, call.Origin)
		results = append(results, resp)

		if resp.Error != nil {
			failed++
		} else {
			succeeded++
		}
	}

	return map[string]any{
		"results":   results,
		"succeeded": succeeded,
		"errors":    failed,
	}, nil
}
