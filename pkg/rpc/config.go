package rpc

import (
	"context"
	"encoding/json"

	"github.com/personakit/persona-go/pkg/errors"
)

func (s *Server) registerConfig() {
	s.Register("config.get", func(ctx context.Context, call *Call) (any, *errors.RpcError) {
		var params struct {
			Key string `json:"key"`
		}

		if err := json.Unmarshal(call.Params, &params); err != nil || params.Key == "" {
			return nil, errors.ErrInvalidParams.WithMessagef("key is required")
		}

		value, exists := call.Deps.Config.Get(params.Key)

		return map[string]any{
			"key":    params.Key,
			"value":  value,
			"exists": exists,
		}, nil
	})

	s.Register("config.set", func(ctx context.Context, call *Call) (any, *errors.RpcError) {
		var params struct {
			Key   string          `json:"key"`
			Value json.RawMessage `json:"value"`
		}

		if err := json.Unmarshal(call.Params, &params); err != nil || params.Key == "" {
			return nil, errors.ErrInvalidParams.WithMessagef("key is required")
		}

		if len(params.Value) == 0 {
			return nil, errors.ErrInvalidParams.WithMessagef("value is required")
		}

		var value any
		if err := json.Unmarshal(params.Value, &value); err != nil {
			return nil, errors.ErrInvalidParams.WithMessagef("value must be valid JSON")
		}

		if err := call.Deps.Config.Set(params.Key, value); err != nil {
			return nil, errors.Internal(err)
		}

		return map[string]any{"key": params.Key, "value": value}, nil
	})

	s.Register("config.delete", func(ctx context.Context, call *Call) (any, *errors.RpcError) {
		var params struct {
			Key string `json:"key"`
		}

		if err := json.Unmarshal(call.Params, &params); err != nil || params.Key == "" {
			return nil, errors.ErrInvalidParams.WithMessagef("key is required")
		}

		if err := call.Deps.Config.Delete(params.Key); err != nil {
			return nil, errors.Internal(err)
		}

		return map[string]any{"key": params.Key}, nil
	})

	s.Register("config.list", func(ctx context.Context, call *Call) (any, *errors.RpcError) {
		return map[string]any{"config": call.Deps.Config.Document()}, nil
	})
}
