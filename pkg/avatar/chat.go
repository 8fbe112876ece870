package avatar

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/personakit/persona-go/pkg/hooks"
)

// Message is a single chat transcript entry.
type Message struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

/*
ChatEngine is the contract the dispatch server consumes. The LLM pipeline
itself lives outside this repository; handlers only see this surface.
*/
type ChatEngine interface {
	Send(ctx context.Context, text string) (Message, error)
	Interrupt() bool
	Messages() []Message
	Processing() bool
	Speaking() bool
}

// Responder produces an assistant reply for a conversation history. It is
// the seam where an external LLM backend plugs in.
type Responder interface {
	Respond(ctx context.Context, history []Message) (string, error)
}

/*
Engine is the reference in-memory ChatEngine. It keeps the transcript,
exposes processing/speaking state, and fires the llm lifecycle hooks around
the optional Responder backend.
*/
type Engine struct {
	mu         sync.RWMutex
	messages   []Message
	processing bool
	speaking   bool
	responder  Responder
	hooks      *hooks.Registry
}

func NewEngine(registry *hooks.Registry, responder Responder) *Engine {
	return &Engine{
		responder: responder,
		hooks:     registry,
	}
}

// Send appends the user message, consults the Responder when one is
// configured, and returns the user message. Hook events: before:llm:request
// fires before the backend call, after:llm:response after it.
func (e *Engine) Send(ctx context.Context, text string) (Message, error) {
	msg := Message{
		ID:        uuid.NewString(),
		Role:      "user",
		Content:   text,
		Timestamp: time.Now().UnixMilli(),
	}

	e.hooks.Trigger(ctx, "before:llm:request", map[string]any{"text": text})

	e.mu.Lock()
	e.messages = append(e.messages, msg)
	history := make([]Message, len(e.messages))
	copy(history, e.messages)
	responder := e.responder
	if responder != nil {
		e.processing = true
	}
	e.mu.Unlock()

	if responder == nil {
		return msg, nil
	}

	reply, err := responder.Respond(ctx, history)

	e.mu.Lock()
	e.processing = false
	if err == nil {
		e.messages = append(e.messages, Message{
			ID:        uuid.NewString(),
			Role:      "assistant",
			Content:   reply,
			Timestamp: time.Now().UnixMilli(),
		})
	}
	e.mu.Unlock()

	if err != nil {
		return Message{}, err
	}

	e.hooks.Trigger(ctx, "after:llm:response", map[string]any{"text": reply})

	return msg, nil
}

// Interrupt stops any in-flight processing or speech. It reports whether
// there was anything to interrupt.
func (e *Engine) Interrupt() bool {
	e.mu.Lock()
	interrupted := e.processing || e.speaking
	e.processing = false
	e.speaking = false
	e.mu.Unlock()

	if interrupted {
		e.hooks.Trigger(context.Background(), "llm:interrupted", nil)
	}

	return interrupted
}

// Messages returns a copy of the transcript.
func (e *Engine) Messages() []Message {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]Message, len(e.messages))
	copy(out, e.messages)
	return out
}

func (e *Engine) Processing() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.processing
}

func (e *Engine) Speaking() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.speaking
}

// SetSpeaking is driven by the audio playback collaborator.
func (e *Engine) SetSpeaking(speaking bool) {
	e.mu.Lock()
	e.speaking = speaking
	e.mu.Unlock()
}
