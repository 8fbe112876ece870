package avatar

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrNoVisionBackend = errors.New("Vision backend not available")
	ErrXRUnavailable   = errors.New("XR not available")
)

// Describer is the vision backend seam: given an opaque frame reference it
// returns a textual description. Implemented outside this repository.
type Describer interface {
	Describe(ctx context.Context, frame string) (string, error)
}

// VisionState is the wire shape for vision.getState.
type VisionState struct {
	Enabled bool `json:"enabled"`
	Backend bool `json:"backend"`
}

// AudioState is the wire shape for audio.getState.
type AudioState struct {
	Volume float64 `json:"volume"`
	Muted  bool    `json:"muted"`
}

// XRState is the wire shape for xr.getState.
type XRState struct {
	Supported bool `json:"supported"`
	Active    bool `json:"active"`
}

/*
Media tracks the audio/vision/XR toggles the control surface exposes. The
actual capture and playback backends live elsewhere; absent backends surface
as descriptive errors rather than panics.
*/
type Media struct {
	mu            sync.RWMutex
	visionEnabled bool
	vision        Describer
	volume        float64
	muted         bool
	xrSupported   bool
	xrActive      bool
}

func NewMedia(vision Describer, xrSupported bool) *Media {
	return &Media{
		vision:      vision,
		volume:      1.0,
		xrSupported: xrSupported,
	}
}

func (m *Media) Vision() VisionState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return VisionState{Enabled: m.visionEnabled, Backend: m.vision != nil}
}

func (m *Media) SetVisionEnabled(enabled bool) {
	m.mu.Lock()
	m.visionEnabled = enabled
	m.mu.Unlock()
}

// Describe forwards a frame to the vision backend.
func (m *Media) Describe(ctx context.Context, frame string) (string, error) {
	m.mu.RLock()
	vision := m.vision
	m.mu.RUnlock()

	if vision == nil {
		return "", ErrNoVisionBackend
	}
	return vision.Describe(ctx, frame)
}

func (m *Media) Audio() AudioState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return AudioState{Volume: m.volume, Muted: m.muted}
}

// SetVolume clamps to [0, 1].
func (m *Media) SetVolume(volume float64) AudioState {
	if volume < 0 {
		volume = 0
	}
	if volume > 1 {
		volume = 1
	}

	m.mu.Lock()
	m.volume = volume
	state := AudioState{Volume: m.volume, Muted: m.muted}
	m.mu.Unlock()

	return state
}

func (m *Media) SetMuted(muted bool) AudioState {
	m.mu.Lock()
	m.muted = muted
	state := AudioState{Volume: m.volume, Muted: m.muted}
	m.mu.Unlock()

	return state
}

func (m *Media) XR() XRState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return XRState{Supported: m.xrSupported, Active: m.xrActive}
}

// SetXRActive toggles the XR session; unsupported hardware is an error the
// handler reports verbatim.
func (m *Media) SetXRActive(active bool) (XRState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.xrSupported {
		return XRState{}, ErrXRUnavailable
	}

	m.xrActive = active
	return XRState{Supported: true, Active: m.xrActive}, nil
}
