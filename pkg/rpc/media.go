package rpc

import (
	"context"
	"encoding/json"

	"github.com/personakit/persona-go/pkg/errors"
)

func (s *Server) registerMedia() {
	s.Register("vision.getState", func(ctx context.Context, call *Call) (any, *errors.RpcError) {
		return call.Deps.Media.Vision(), nil
	})

	s.Register("vision.setEnabled", func(ctx context.Context, call *Call) (any, *errors.RpcError) {
		var params struct {
			Enabled *bool `json:"enabled"`
		}

		if err := json.Unmarshal(call.Params, &params); err != nil || params.Enabled == nil {
			return nil, errors.ErrInvalidParams.WithMessagef("enabled is required")
		}

		call.Deps.Media.SetVisionEnabled(*params.Enabled)
		return call.Deps.Media.Vision(), nil
	})

	s.Register("vision.describe", func(ctx context.Context, call *Call) (any, *errors.RpcError) {
		var params struct {
			Frame string `json:"frame"`
		}

		if err := json.Unmarshal(call.Params, &params); err != nil || params.Frame == "" {
			return nil, errors.ErrInvalidParams.WithMessagef("frame is required")
		}

		description, err := call.Deps.Media.Describe(ctx, params.Frame)
		if err != nil {
			return nil, errors.Internal(err)
		}

		return map[string]any{"description": description}, nil
	})

	s.Register("audio.getState", func(ctx context.Context, call *Call) (any, *errors.RpcError) {
		return call.Deps.Media.Audio(), nil
	})

	s.Register("audio.setVolume", func(ctx context.Context, call *Call) (any, *errors.RpcError) {
		var params struct {
			Volume *float64 `json:"volume"`
		}

		if err := json.Unmarshal(call.Params, &params); err != nil || params.Volume == nil {
			return nil, errors.ErrInvalidParams.WithMessagef("volume is required")
		}

		return call.Deps.Media.SetVolume(*params.Volume), nil
	})

	s.Register("audio.setMuted", func(ctx context.Context, call *Call) (any, *errors.RpcError) {
		var params struct {
			Muted *bool `json:"muted"`
		}

		if err := json.Unmarshal(call.Params, &params); err != nil || params.Muted == nil {
			return nil, errors.ErrInvalidParams.WithMessagef("muted is required")
		}

		return call.Deps.Media.SetMuted(*params.Muted), nil
	})

	s.Register("audio.stop", func(ctx context.Context, call *Call) (any, *errors.RpcError) {
		stopped := false

		if call.Deps.Chat != nil && call.Deps.Chat.Speaking() {
			stopped = call.Deps.Chat.Interrupt()
		}

		return map[string]any{"stopped": stopped}, nil
	})

	s.Register("xr.getState", func(ctx context.Context, call *Call) (any, *errors.RpcError) {
		return call.Deps.Media.XR(), nil
	})

	s.Register("xr.setActive", func(ctx context.Context, call *Call) (any, *errors.RpcError) {
		var params struct {
			Active *bool `json:"active"`
		}

		if err := json.Unmarshal(call.Params, &params); err != nil || params.Active == nil {
			return nil, errors.ErrInvalidParams.WithMessagef("active is required")
		}

		state, err := call.Deps.Media.SetXRActive(*params.Active)
		if err != nil {
			return nil, errors.Internal(err)
		}

		return state, nil
	})
}
