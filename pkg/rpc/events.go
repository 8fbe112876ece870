package rpc

import (
	"context"
	"encoding/json"

	"github.com/personakit/persona-go/pkg/errors"
)

// events.* operates on the originating connection's subscription set. The
// methods are dispatched here but the state lives in the transport session
// (call.Origin); in-process callers have no connection to subscribe.
func (s *Server) registerEvents() {
	s.Register("events.subscribe", func(ctx context.Context, call *Call) (any, *errors.RpcError) {
		events, rpcErr := eventList(call.Params)
		if rpcErr != nil {
			return nil, rpcErr
		}

		if call.Origin == nil {
			return nil, errors.ErrInternal.WithMessagef("No active connection")
		}

		return map[string]any{"subscribed": call.Origin.Subscribe(events)}, nil
	})

	s.Register("events.unsubscribe", func(ctx context.Context, call *Call) (any, *errors.RpcError) {
		events, rpcErr := eventList(call.Params)
		if rpcErr != nil {
			return nil, rpcErr
		}

		if call.Origin == nil {
			return nil, errors.ErrInternal.WithMessagef("No active connection")
		}

		return map[string]any{"unsubscribed": call.Origin.Unsubscribe(events)}, nil
	})

	s.Register("events.listSubscriptions", func(ctx context.Context, call *Call) (any, *errors.RpcError) {
		if call.Origin == nil {
			return nil, errors.ErrInternal.WithMessagef("No active connection")
		}

		return map[string]any{"events": call.Origin.Subscriptions()}, nil
	})
}

func eventList(params json.RawMessage) ([]string, *errors.RpcError) {
	var decoded struct {
		Events []string `json:"events"`
	}

	if err := json.Unmarshal(params, &decoded); err != nil || len(decoded.Events) == 0 {
		return nil, errors.ErrInvalidParams.WithMessagef("events is required")
	}

	return decoded.Events, nil
}
