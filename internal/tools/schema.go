package tools

import (
	"context"

	"gitlab.com/rdelange/ha-tools/internal/homeassistant"
)

// Tool describes a tool the host framework can call.
type Tool struct {
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	InputSchema JSONSchema `json:"inputSchema"`
}

// JSONSchema represents a JSON Schema for tool input validation.
type JSONSchema struct {
	Type        string                `json:"type"`
	Description string                `json:"description,omitempty"`
	Properties  map[string]JSONSchema `json:"properties,omitempty"`
	Required    []string              `json:"required,omitempty"`
	Items       *JSONSchema           `json:"items,omitempty"`
	Enum        []string              `json:"enum,omitempty"`
	Default     any                   `json:"default,omitempty"`
}

// Result is the outcome of a tool call: one markdown document, optionally
// flagged as an error.
type Result struct {
	Markdown string `json:"markdown"`
	IsError  bool   `json:"isError,omitempty"`
}

// NewResult creates a successful result with markdown content.
func NewResult(markdown string) *Result {
	return &Result{Markdown: markdown}
}

// NewErrorResult creates an error-flagged result with markdown content.
func NewErrorResult(markdown string) *Result {
	return &Result{Markdown: markdown, IsError: true}
}

// Handler is a function that handles a tool call. args come from the host
// framework as decoded JSON; emitter may be nil.
type Handler func(ctx context.Context, client homeassistant.Client, args map[string]any, emitter Emitter) (*Result, error)

// getString extracts a string argument, returning "" when absent or of the
// wrong type.
func getString(args map[string]any, key string) string {
	if v, ok := args[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// getMap extracts an object argument, returning nil when absent or of the
// wrong type.
func getMap(args map[string]any, key string) map[string]any {
	if v, ok := args[key]; ok {
		if m, ok := v.(map[string]any); ok {
			return m
		}
	}
	return nil
}
