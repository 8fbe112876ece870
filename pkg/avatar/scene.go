package avatar

import (
	"context"
	"errors"
	"sync"

	"github.com/personakit/persona-go/pkg/hooks"
)

// Sentinel errors surfaced by handlers as InternalError with these exact
// messages, which clients match on.
var (
	ErrNoModel        = errors.New("No model loaded")
	ErrNoRoom         = errors.New("No room loaded")
	ErrViewerNotReady = errors.New("Viewer not initialized")
)

type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type Transform struct {
	Position Vec3 `json:"position"`
	Rotation Vec3 `json:"rotation"`
	Scale    Vec3 `json:"scale"`
}

func identityTransform() Transform {
	return Transform{Scale: Vec3{X: 1, Y: 1, Z: 1}}
}

type Model struct {
	Source     string    `json:"source"`
	Transform  Transform `json:"transform"`
	Expression string    `json:"expression,omitempty"`
	Motion     string    `json:"motion,omitempty"`
}

type Room struct {
	Source    string    `json:"source"`
	Transform Transform `json:"transform"`
}

type Camera struct {
	Position Vec3 `json:"position"`
	Target   Vec3 `json:"target"`
}

/*
Scene coordinates the renderer-facing state the control surface mutates:
the loaded model, the room, and the camera. The actual 3D renderer consumes
this state elsewhere; here it is the collaborator contract plus bookkeeping.
Scene mutations fire hooks so transports can bridge them to clients.
*/
type Scene struct {
	mu          sync.RWMutex
	model       *Model
	room        *Room
	camera      Camera
	homeCamera  Camera
	viewerReady bool
	hooks       *hooks.Registry
}

func NewScene(registry *hooks.Registry) *Scene {
	home := Camera{Position: Vec3{Z: 3}, Target: Vec3{Y: 1}}

	return &Scene{
		camera:     home,
		homeCamera: home,
		hooks:      registry,
	}
}

// LoadModel replaces the current model with a freshly placed one.
func (s *Scene) LoadModel(ctx context.Context, source string) Model {
	s.mu.Lock()
	model := Model{Source: source, Transform: identityTransform()}
	s.model = &model
	s.mu.Unlock()

	s.hooks.Trigger(ctx, "model:loaded", map[string]any{"source": source})
	return model
}

func (s *Scene) UnloadModel(ctx context.Context) error {
	s.mu.Lock()
	if s.model == nil {
		s.mu.Unlock()
		return ErrNoModel
	}
	source := s.model.Source
	s.model = nil
	s.mu.Unlock()

	s.hooks.Trigger(ctx, "model:unloaded", map[string]any{"source": source})
	return nil
}

// Model returns a copy of the loaded model.
func (s *Scene) Model() (Model, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.model == nil {
		return Model{}, ErrNoModel
	}
	return *s.model, nil
}

func (s *Scene) SetModelPosition(pos Vec3) error {
	return s.mutateModel(func(m *Model) { m.Transform.Position = pos })
}

func (s *Scene) SetModelRotation(rot Vec3) error {
	return s.mutateModel(func(m *Model) { m.Transform.Rotation = rot })
}

func (s *Scene) SetModelScale(scale Vec3) error {
	return s.mutateModel(func(m *Model) { m.Transform.Scale = scale })
}

func (s *Scene) ModelTransform() (Transform, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.model == nil {
		return Transform{}, ErrNoModel
	}
	return s.model.Transform, nil
}

// SetExpression switches the character's facial expression.
func (s *Scene) SetExpression(ctx context.Context, expression string) error {
	if err := s.mutateModel(func(m *Model) { m.Expression = expression }); err != nil {
		return err
	}

	s.hooks.Trigger(ctx, "character:expression", map[string]any{"expression": expression})
	return nil
}

// PlayMotion starts a named motion on the character.
func (s *Scene) PlayMotion(ctx context.Context, motion string) error {
	if err := s.mutateModel(func(m *Model) { m.Motion = motion }); err != nil {
		return err
	}

	s.hooks.Trigger(ctx, "character:motion", map[string]any{"motion": motion})
	return nil
}

func (s *Scene) mutateModel(fn func(*Model)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.model == nil {
		return ErrNoModel
	}
	fn(s.model)
	return nil
}

func (s *Scene) LoadRoom(ctx context.Context, source string) Room {
	s.mu.Lock()
	room := Room{Source: source, Transform: identityTransform()}
	s.room = &room
	s.mu.Unlock()

	s.hooks.Trigger(ctx, "room:loaded", map[string]any{"source": source})
	return room
}

func (s *Scene) UnloadRoom(ctx context.Context) error {
	s.mu.Lock()
	if s.room == nil {
		s.mu.Unlock()
		return ErrNoRoom
	}
	source := s.room.Source
	s.room = nil
	s.mu.Unlock()

	s.hooks.Trigger(ctx, "room:unloaded", map[string]any{"source": source})
	return nil
}

func (s *Scene) Room() (Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.room == nil {
		return Room{}, ErrNoRoom
	}
	return *s.room, nil
}

func (s *Scene) SetRoomTransform(t Transform) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.room == nil {
		return ErrNoRoom
	}
	s.room.Transform = t
	return nil
}

// SetViewerReady marks the renderer viewport as initialized. Camera
// operations fail with ErrViewerNotReady until this is set.
func (s *Scene) SetViewerReady(ready bool) {
	s.mu.Lock()
	s.viewerReady = ready
	s.mu.Unlock()
}

func (s *Scene) ViewerReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.viewerReady
}

func (s *Scene) Camera() (Camera, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.viewerReady {
		return Camera{}, ErrViewerNotReady
	}
	return s.camera, nil
}

// ResetCamera restores the home camera pose.
func (s *Scene) ResetCamera(ctx context.Context) error {
	s.mu.Lock()
	if !s.viewerReady {
		s.mu.Unlock()
		return ErrViewerNotReady
	}
	s.camera = s.homeCamera
	s.mu.Unlock()

	s.hooks.Trigger(ctx, "camera:reset", nil)
	return nil
}

// Snapshot captures the restorable parts of the scene for scenario storage.
func (s *Scene) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{Camera: s.camera}

	if s.model != nil {
		model := *s.model
		snap.Model = &model
	}

	if s.room != nil {
		room := *s.room
		snap.Room = &room
	}

	return snap
}

// Restore applies a scenario snapshot, replacing model, room, and camera.
func (s *Scene) Restore(ctx context.Context, snap Snapshot) {
	s.mu.Lock()
	s.model = nil
	s.room = nil

	if snap.Model != nil {
		model := *snap.Model
		s.model = &model
	}

	if snap.Room != nil {
		room := *snap.Room
		s.room = &room
	}

	s.camera = snap.Camera
	s.mu.Unlock()

	s.hooks.Trigger(ctx, "scenario:restored", nil)
}
