package hooks

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// Callback is invoked by Trigger with the event payload. Its return value is
// merged into the trigger aggregate under the hook id. An error (or panic)
// is logged and never stops the remaining callbacks.
type Callback func(ctx context.Context, payload any) (any, error)

// Info describes a registered hook without exposing its callback.
type Info struct {
	ID       string `json:"id"`
	Event    string `json:"event"`
	Priority int    `json:"priority"`
	Enabled  bool   `json:"enabled"`
}

type hook struct {
	id       string
	event    string
	priority int
	seq      uint64
	fn       Callback
}

/*
Registry holds named event subscriptions with priority ordering and a global
enable state. It is safe for concurrent use; Trigger runs callbacks strictly
sequentially in priority order (ties broken by registration order), so one
trigger's callbacks never interleave with each other.
*/
type Registry struct {
	mu      sync.RWMutex
	events  map[string][]*hook
	byID    map[string]*hook
	enabled bool
	seq     uint64
}

func NewRegistry() *Registry {
	return &Registry{
		events:  make(map[string][]*hook),
		byID:    make(map[string]*hook),
		enabled: true,
	}
}

// Register adds a callback for event and returns its hook id. Registration
// always succeeds. Higher priorities run first; equal priorities run in
// registration order.
func (r *Registry) Register(event string, priority int, fn Callback) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	h := &hook{
		id:       uuid.NewString(),
		event:    event,
		priority: priority,
		seq:      r.seq,
		fn:       fn,
	}

	list := append(r.events[event], h)
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].priority != list[j].priority {
			return list[i].priority > list[j].priority
		}
		return list[i].seq < list[j].seq
	})

	r.events[event] = list
	r.byID[h.id] = h

	return h.id
}

// Unregister removes the hook with the given id. It returns false when no
// such hook exists, which is not an error.
func (r *Registry) Unregister(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.byID[id]
	if !ok {
		return false
	}

	delete(r.byID, id)
	list := r.events[h.event]

	for i, cur := range list {
		if cur.id == id {
			r.events[h.event] = append(list[:i], list[i+1:]...)
			break
		}
	}

	if len(r.events[h.event]) == 0 {
		delete(r.events, h.event)
	}

	return true
}

// UnregisterAll removes every hook for event. Unknown events are a no-op.
func (r *Registry) UnregisterAll(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, h := range r.events[event] {
		delete(r.byID, h.id)
	}

	delete(r.events, event)
}

// Trigger invokes every callback registered for event, sequentially, in
// priority order, awaiting each before starting the next. The returned
// aggregate maps hook id to that callback's result. Callback failures are
// logged and skipped. When the registry is disabled the aggregate is empty
// and no callback runs.
func (r *Registry) Trigger(ctx context.Context, event string, payload any) map[string]any {
	r.mu.RLock()

	if !r.enabled {
		r.mu.RUnlock()
		return map[string]any{}
	}

	// Snapshot so callbacks may register/unregister hooks without
	// deadlocking or perturbing this trigger's ordering.
	list := make([]*hook, len(r.events[event]))
	copy(list, r.events[event])
	r.mu.RUnlock()

	results := make(map[string]any, len(list))

	for _, h := range list {
		result, err := r.invoke(ctx, h, payload)
		if err != nil {
			log.Error("hook callback failed", "event", event, "hook", h.id, "error", err)
			continue
		}
		results[h.id] = result
	}

	return results
}

// invoke runs one callback, converting a panic into an error so a
// misbehaving third-party hook cannot take down the trigger loop.
func (r *Registry) invoke(ctx context.Context, h *hook, payload any) (result any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("hook panicked: %v", rec)
		}
	}()

	return h.fn(ctx, payload)
}

// SetEnabled toggles the global enable state.
func (r *Registry) SetEnabled(enabled bool) {
	r.mu.Lock()
	r.enabled = enabled
	r.mu.Unlock()
}

// Enabled reports the global enable state.
func (r *Registry) Enabled() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.enabled
}

// Clear removes every hook while preserving the enable state.
func (r *Registry) Clear() {
	r.mu.Lock()
	r.events = make(map[string][]*hook)
	r.byID = make(map[string]*hook)
	r.mu.Unlock()
}

// Hooks lists registered hooks, in trigger order, for the given event; with
// no argument it lists all hooks across events.
func (r *Registry) Hooks(event ...string) []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var infos []Info

	appendEvent := func(name string) {
		for _, h := range r.events[name] {
			infos = append(infos, Info{
				ID:       h.id,
				Event:    h.event,
				Priority: h.priority,
				Enabled:  r.enabled,
			})
		}
	}

	if len(event) > 0 {
		appendEvent(event[0])
		return infos
	}

	names := make([]string, 0, len(r.events))
	for name := range r.events {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		appendEvent(name)
	}

	return infos
}
