package rpc

import (
	"context"
	"encoding/json"

	"github.com/personakit/persona-go/pkg/errors"
)

func (s *Server) registerScenario() {
	s.Register("scenario.save", func(ctx context.Context, call *Call) (any, *errors.RpcError) {
		var params struct {
			Name string `json:"name"`
		}

		if err := json.Unmarshal(call.Params, &params); err != nil || params.Name == "" {
			return nil, errors.ErrInvalidParams.WithMessagef("name is required")
		}

		if call.Deps.Scenarios == nil {
			return nil, errors.ErrInternal.WithMessagef("Scenario store not available")
		}

		snap := call.Deps.Scene.Snapshot()
		if err := call.Deps.Scenarios.Save(params.Name, snap); err != nil {
			return nil, errors.Internal(err)
		}

		return map[string]any{"name": params.Name, "scenario": snap}, nil
	})

	s.Register("scenario.load", func(ctx context.Context, call *Call) (any, *errors.RpcError) {
		var params struct {
			Name string `json:"name"`
		}

		if err := json.Unmarshal(call.Params, &params); err != nil || params.Name == "" {
			return nil, errors.ErrInvalidParams.WithMessagef("name is required")
		}

		if call.Deps.Scenarios == nil {
			return nil, errors.ErrInternal.WithMessagef("Scenario store not available")
		}

		snap, err := call.Deps.Scenarios.Load(params.Name)
		if err != nil {
			return nil, errors.Internal(err)
		}

		call.Deps.Scene.Restore(ctx, snap)

		return map[string]any{"name": params.Name, "scenario": snap}, nil
	})

	s.Register("scenario.list", func(ctx context.Context, call *Call) (any, *errors.RpcError) {
		if call.Deps.Scenarios == nil {
			return nil, errors.ErrInternal.WithMessagef("Scenario store not available")
		}

		names, err := call.Deps.Scenarios.List()
		if err != nil {
			return nil, errors.Internal(err)
		}

		return map[string]any{"scenarios": names}, nil
	})
}
