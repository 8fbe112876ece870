package rpc

import (
	"encoding/json"

	"github.com/personakit/persona-go/pkg/avatar"
	"github.com/personakit/persona-go/pkg/hooks"
)

// Deps bundles the collaborator handles every handler may reach. A single
// owned instance is injected at construction so multiple independent server
// instances can coexist in one process.
type Deps struct {
	Hooks     *hooks.Registry
	Chat      avatar.ChatEngine
	Scene     *avatar.Scene
	Media     *avatar.Media
	Config    *avatar.ConfigStore
	Scenarios *avatar.ScenarioStore

	// ServerName and ServerVersion identify this server in system.version
	// and in the welcome push.
	ServerName    string
	ServerVersion string
}

// EventSink is the per-connection subscription surface the events.* methods
// mutate. The transport's session type implements it; in-process callers
// have none.
type EventSink interface {
	ID() string
	Subscribe(events []string) []string
	Unsubscribe(events []string) []string
	Subscriptions() []string
}

// Call is the execution context handed to a handler: the raw params, the
// collaborators, and the originating connection (nil when the call did not
// arrive over a transport).
type Call struct {
	Params json.RawMessage
	Origin EventSink
	Deps   *Deps
}
