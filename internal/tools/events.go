// Package tools provides LLM tool handlers that translate Home Assistant
// REST responses into markdown.
package tools

import "context"

// EventType identifies the kind of progress event.
type EventType string

// Event types understood by the host tool-calling framework.
const (
	// EventStatus reports tool progress; its data carries "description"
	// and "done".
	EventStatus EventType = "status"
	// EventMessage carries markdown content for the model to reason over;
	// its data carries "content".
	EventMessage EventType = "message"
)

// Event is the host framework's event contract: a type tag plus a data map.
type Event struct {
	Type EventType      `json:"type"`
	Data map[string]any `json:"data"`
}

// Emitter delivers progress events to the host framework. It may be nil.
type Emitter func(ctx context.Context, event Event) error

// StatusEvent builds a status event.
func StatusEvent(description string, done bool) Event {
	return Event{
		Type: EventStatus,
		Data: map[string]any{
			"description": description,
			"done":        done,
		},
	}
}

// MessageEvent builds a message event with markdown content.
func MessageEvent(content string) Event {
	return Event{
		Type: EventMessage,
		Data: map[string]any{
			"content": content,
		},
	}
}

// emit delivers an event through the emitter if one is set. Emitter failures
// never fail the tool call.
func emit(ctx context.Context, emitter Emitter, event Event) {
	if emitter == nil {
		return
	}
	_ = emitter(ctx, event)
}

// emitStatus is shorthand for emitting a status event.
func emitStatus(ctx context.Context, emitter Emitter, description string, done bool) {
	emit(ctx, emitter, StatusEvent(description, done))
}

// emitMessage is shorthand for emitting a message event.
func emitMessage(ctx context.Context, emitter Emitter, content string) {
	emit(ctx, emitter, MessageEvent(content))
}
