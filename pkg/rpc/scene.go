package rpc

import (
	"context"
	"encoding/json"

	"github.com/personakit/persona-go/pkg/avatar"
	"github.com/personakit/persona-go/pkg/errors"
)

// model.*, character.*, room.*, and viewer.* are thin adapters over the
// scene coordinator. Missing preconditions ("No model loaded", "Viewer not
// initialized") surface as InternalError with the collaborator's message.
func (s *Server) registerScene() {
	s.Register("model.load", func(ctx context.Context, call *Call) (any, *errors.RpcError) {
		var params struct {
			Source string `json:"source"`
		}

		if err := json.Unmarshal(call.Params, &params); err != nil || params.Source == "" {
			return nil, errors.ErrInvalidParams.WithMessagef("source is required")
		}

		return map[string]any{"model": call.Deps.Scene.LoadModel(ctx, params.Source)}, nil
	})

	s.Register("model.unload", func(ctx context.Context, call *Call) (any, *errors.RpcError) {
		if err := call.Deps.Scene.UnloadModel(ctx); err != nil {
			return nil, errors.Internal(err)
		}

		return map[string]any{"unloaded": true}, nil
	})

	s.Register("model.setPosition", func(ctx context.Context, call *Call) (any, *errors.RpcError) {
		vec, rpcErr := requireVec3(call.Params, "position")
		if rpcErr != nil {
			return nil, rpcErr
		}

		if err := call.Deps.Scene.SetModelPosition(vec); err != nil {
			return nil, errors.Internal(err)
		}

		return transformResult(call.Deps.Scene)
	})

	s.Register("model.setRotation", func(ctx context.Context, call *Call) (any, *errors.RpcError) {
		vec, rpcErr := requireVec3(call.Params, "rotation")
		if rpcErr != nil {
			return nil, rpcErr
		}

		if err := call.Deps.Scene.SetModelRotation(vec); err != nil {
			return nil, errors.Internal(err)
		}

		return transformResult(call.Deps.Scene)
	})

	s.Register("model.setScale", func(ctx context.Context, call *Call) (any, *errors.RpcError) {
		vec, rpcErr := requireVec3(call.Params, "scale")
		if rpcErr != nil {
			return nil, rpcErr
		}

		if err := call.Deps.Scene.SetModelScale(vec); err != nil {
			return nil, errors.Internal(err)
		}

		return transformResult(call.Deps.Scene)
	})

	s.Register("model.getTransform", func(ctx context.Context, call *Call) (any, *errors.RpcError) {
		return transformResult(call.Deps.Scene)
	})

	s.Register("character.setExpression", func(ctx context.Context, call *Call) (any, *errors.RpcError) {
		var params struct {
			Expression string `json:"expression"`
		}

		if err := json.Unmarshal(call.Params, &params); err != nil || params.Expression == "" {
			return nil, errors.ErrInvalidParams.WithMessagef("expression is required")
		}

		if err := call.Deps.Scene.SetExpression(ctx, params.Expression); err != nil {
			return nil, errors.Internal(err)
		}

		return map[string]any{"expression": params.Expression}, nil
	})

	s.Register("character.playMotion", func(ctx context.Context, call *Call) (any, *errors.RpcError) {
		var params struct {
			Motion string `json:"motion"`
		}

		if err := json.Unmarshal(call.Params, &params); err != nil || params.Motion == "" {
			return nil, errors.ErrInvalidParams.WithMessagef("motion is required")
		}

		if err := call.Deps.Scene.PlayMotion(ctx, params.Motion); err != nil {
			return nil, errors.Internal(err)
		}

		return map[string]any{"motion": params.Motion}, nil
	})

	s.Register("character.getInfo", func(ctx context.Context, call *Call) (any, *errors.RpcError) {
		model, err := call.Deps.Scene.Model()
		if err != nil {
			return nil, errors.Internal(err)
		}

		return map[string]any{
			"source":     model.Source,
			"expression": model.Expression,
			"motion":     model.Motion,
		}, nil
	})

	s.Register("room.load", func(ctx context.Context, call *Call) (any, *errors.RpcError) {
		var params struct {
			Source string `json:"source"`
		}

		if err := json.Unmarshal(call.Params, &params); err != nil || params.Source == "" {
			return nil, errors.ErrInvalidParams.WithMessagef("source is required")
		}

		return map[string]any{"room": call.Deps.Scene.LoadRoom(ctx, params.Source)}, nil
	})

	s.Register("room.unload", func(ctx context.Context, call *Call) (any, *errors.RpcError) {
		if err := call.Deps.Scene.UnloadRoom(ctx); err != nil {
			return nil, errors.Internal(err)
		}

		return map[string]any{"unloaded": true}, nil
	})

	s.Register("room.setTransform", func(ctx context.Context, call *Call) (any, *errors.RpcError) {
		var params struct {
			Transform *avatar.Transform `json:"transform"`
		}

		if err := json.Unmarshal(call.Params, &params); err != nil || params.Transform == nil {
			return nil, errors.ErrInvalidParams.WithMessagef("transform is required")
		}

		if err := call.Deps.Scene.SetRoomTransform(*params.Transform); err != nil {
			return nil, errors.Internal(err)
		}

		return map[string]any{"transform": *params.Transform}, nil
	})

	s.Register("room.getTransform", func(ctx context.Context, call *Call) (any, *errors.RpcError) {
		room, err := call.Deps.Scene.Room()
		if err != nil {
			return nil, errors.Internal(err)
		}

		return map[string]any{"transform": room.Transform}, nil
	})

	s.Register("viewer.getState", func(ctx context.Context, call *Call) (any, *errors.RpcError) {
		return map[string]any{"initialized": call.Deps.Scene.ViewerReady()}, nil
	})

	s.Register("viewer.getCamera", func(ctx context.Context, call *Call) (any, *errors.RpcError) {
		camera, err := call.Deps.Scene.Camera()
		if err != nil {
			return nil, errors.Internal(err)
		}

		return map[string]any{"camera": camera}, nil
	})

	s.Register("viewer.resetCamera", func(ctx context.Context, call *Call) (any, *errors.RpcError) {
		if err := call.Deps.Scene.ResetCamera(ctx); err != nil {
			return nil, errors.Internal(err)
		}

		camera, err := call.Deps.Scene.Camera()
		if err != nil {
			return nil, errors.Internal(err)
		}

		return map[string]any{"camera": camera}, nil
	})
}

func requireVec3(params json.RawMessage, field string) (avatar.Vec3, *errors.RpcError) {
	var decoded map[string]*avatar.Vec3

	if err := json.Unmarshal(params, &decoded); err != nil || decoded[field] == nil {
		return avatar.Vec3{}, errors.ErrInvalidParams.WithMessagef("%s is required", field)
	}

	return *decoded[field], nil
}

func transformResult(scene *avatar.Scene) (any, *errors.RpcError) {
	transform, err := scene.ModelTransform()
	if err != nil {
		return nil, errors.Internal(err)
	}

	return map[string]any{"transform": transform}, nil
}
