package ws

import (
	"errors"
	"sort"
	"sync"
)

// ErrClosed is returned by writes to a session that already left Open state.
var ErrClosed = errors.New("session closed")

// Conn is the minimal duplex connection surface the transport needs. A
// gorilla *websocket.Conn satisfies it; tests inject recording fakes.
type Conn interface {
	WriteJSON(v any) error
	Close() error
}

/*
Session is one tracked connection: an opaque identity, the write half of the
socket, and this connection's event subscription set. Lifecycle is
Open → Closed with no intermediate states; Close is idempotent and the
subscription set dies with the session.
*/
type Session struct {
	id        string
	conn      Conn
	transport *Transport

	mu     sync.Mutex
	subs   map[string]struct{}
	closed bool

	// done stops the heartbeat goroutine.
	done chan struct{}
}

func (s *Session) ID() string {
	return s.id
}

// Subscribe adds events to this session's subscription set and returns the
// requested events now subscribed. A closed session yields an empty list.
func (s *Session) Subscribe(events []string) []string {
	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()
		return []string{}
	}

	subscribed := make([]string, 0, len(events))
	added := make([]string, 0, len(events))

	for _, event := range events {
		if event == "" {
			continue
		}
		if _, ok := s.subs[event]; !ok {
			s.subs[event] = struct{}{}
			added = append(added, event)
		}
		subscribed = append(subscribed, event)
	}

	s.mu.Unlock()

	for _, event := range added {
		s.transport.acquireBridge(event)
	}

	return subscribed
}

// Unsubscribe removes events from the subscription set and returns the ones
// actually removed. A closed session yields an empty list.
func (s *Session) Unsubscribe(events []string) []string {
	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()
		return []string{}
	}

	removed := make([]string, 0, len(events))

	for _, event := range events {
		if _, ok := s.subs[event]; ok {
			delete(s.subs, event)
			removed = append(removed, event)
		}
	}

	s.mu.Unlock()

	for _, event := range removed {
		s.transport.releaseBridge(event)
	}

	return removed
}

// Subscriptions returns the subscribed event names, sorted.
func (s *Session) Subscriptions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return []string{}
	}

	events := make([]string, 0, len(s.subs))
	for event := range s.subs {
		events = append(events, event)
	}

	sort.Strings(events)
	return events
}

func (s *Session) subscribedTo(event string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}

	_, ok := s.subs[event]
	return ok
}

// send serializes under the session mutex so concurrent pushes never
// interleave on the socket, and so nothing is written after Close.
func (s *Session) send(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	return s.conn.WriteJSON(v)
}

// Close moves the session to its terminal state. It is safe to call from
// the peer-close path, the error path, and CloseAll concurrently.
func (s *Session) Close() {
	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()
		return
	}

	s.closed = true
	subs := make([]string, 0, len(s.subs))
	for event := range s.subs {
		subs = append(subs, event)
	}
	s.subs = map[string]struct{}{}

	close(s.done)
	_ = s.conn.Close()
	s.mu.Unlock()

	for _, event := range subs {
		s.transport.releaseBridge(event)
	}

	s.transport.remove(s)
}
