package rpc

import (
	"context"
	"encoding/json"

	"github.com/personakit/persona-go/pkg/errors"
)

func (s *Server) registerChat() {
	s.Register("chat.sendMessage", func(ctx context.Context, call *Call) (any, *errors.RpcError) {
		var params struct {
			Text string `json:"text"`
		}

		if err := json.Unmarshal(call.Params, &params); err != nil || params.Text == "" {
			return nil, errors.ErrInvalidParams.WithMessagef("text is required")
		}

		if call.Deps.Chat == nil {
			return nil, errors.ErrInternal.WithMessagef("Chat engine not available")
		}

		msg, err := call.Deps.Chat.Send(ctx, params.Text)
		if err != nil {
			return nil, errors.Internal(err)
		}

		return map[string]any{"message": msg}, nil
	})

	s.Register("chat.interrupt", func(ctx context.Context, call *Call) (any, *errors.RpcError) {
		if call.Deps.Chat == nil {
			return nil, errors.ErrInternal.WithMessagef("Chat engine not available")
		}

		return map[string]any{"interrupted": call.Deps.Chat.Interrupt()}, nil
	})

	s.Register("chat.getMessages", func(ctx context.Context, call *Call) (any, *errors.RpcError) {
		if call.Deps.Chat == nil {
			return nil, errors.ErrInternal.WithMessagef("Chat engine not available")
		}

		return map[string]any{"messages": call.Deps.Chat.Messages()}, nil
	})

	s.Register("chat.getState", func(ctx context.Context, call *Call) (any, *errors.RpcError) {
		if call.Deps.Chat == nil {
			return nil, errors.ErrInternal.WithMessagef("Chat engine not available")
		}

		return map[string]any{
			"processing": call.Deps.Chat.Processing(),
			"speaking":   call.Deps.Chat.Speaking(),
		}, nil
	})
}
