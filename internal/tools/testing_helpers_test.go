package tools

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"

	"gitlab.com/rdelange/ha-tools/internal/homeassistant"
)

// testSchemaTypeObject is the JSON schema type expected on every tool.
const testSchemaTypeObject = "object"

// MockClient is a flexible mock for all handler tests. It implements the
// homeassistant.Client interface with configurable function hooks. If a hook
// is nil, the method returns a sensible default.
type MockClient struct {
	GetStatesFn   func(ctx context.Context) ([]homeassistant.Entity, error)
	GetStateFn    func(ctx context.Context, entityID string) (*homeassistant.Entity, error)
	GetServicesFn func(ctx context.Context) ([]homeassistant.ServiceDomain, error)
	CallServiceFn func(ctx context.Context, domain, service string, payload map[string]any) (*homeassistant.ServiceCallReceipt, error)
}

func (m *MockClient) GetStates(ctx context.Context) ([]homeassistant.Entity, error) {
	if m.GetStatesFn != nil {
		return m.GetStatesFn(ctx)
	}
	return []homeassistant.Entity{}, nil
}

func (m *MockClient) GetState(ctx context.Context, entityID string) (*homeassistant.Entity, error) {
	if m.GetStateFn != nil {
		return m.GetStateFn(ctx, entityID)
	}
	return &homeassistant.Entity{EntityID: entityID, State: "unknown"}, nil
}

func (m *MockClient) GetServices(ctx context.Context) ([]homeassistant.ServiceDomain, error) {
	if m.GetServicesFn != nil {
		return m.GetServicesFn(ctx)
	}
	return []homeassistant.ServiceDomain{}, nil
}

func (m *MockClient) CallService(ctx context.Context, domain, service string, payload map[string]any) (*homeassistant.ServiceCallReceipt, error) {
	if m.CallServiceFn != nil {
		return m.CallServiceFn(ctx, domain, service, payload)
	}
	return &homeassistant.ServiceCallReceipt{
		Success:    true,
		StatusCode: http.StatusOK,
		Domain:     domain,
		Service:    service,
		Endpoint:   "/api/services/" + domain + "/" + service,
		Payload:    payload,
		Response:   "[]",
	}, nil
}

// eventRecorder captures emitted events for assertions.
type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

// Emitter returns an Emitter that records every event.
func (r *eventRecorder) Emitter() Emitter {
	return func(_ context.Context, event Event) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events = append(r.events, event)
		return nil
	}
}

// Events returns a copy of the recorded events.
func (r *eventRecorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// lastStatus returns the final status event, or a zero event if none exists.
func (r *eventRecorder) lastStatus() (Event, bool) {
	events := r.Events()
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Type == EventStatus {
			return events[i], true
		}
	}
	return Event{}, false
}

// handlerTestCase represents a standard test case for handler functions.
type handlerTestCase struct {
	name            string
	args            map[string]any
	setupMock       func(*MockClient)
	wantError       bool
	wantContains    []string
	wantNotContains []string
}

// runHandlerTestCases executes a set of test cases for a handler function.
func runHandlerTestCases(t *testing.T, tests []handlerTestCase, handler Handler) {
	t.Helper()

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client := &MockClient{}
			if tt.setupMock != nil {
				tt.setupMock(client)
			}

			result, err := handler(context.Background(), client, tt.args, nil)
			if err != nil {
				t.Fatalf("handler returned unexpected error: %v", err)
			}
			if result == nil {
				t.Fatal("handler returned nil result")
			}

			if result.IsError != tt.wantError {
				t.Errorf("IsError = %v, want %v", result.IsError, tt.wantError)
			}

			assertContainsAll(t, result.Markdown, tt.wantContains)
			assertNotContainsAny(t, result.Markdown, tt.wantNotContains)
		})
	}
}

// paramRequiredTestCases generates standard test cases for required parameters.
func paramRequiredTestCases(paramName string, baseArgs map[string]any) []handlerTestCase {
	missing := make(map[string]any)
	empty := make(map[string]any)
	for k, v := range baseArgs {
		if k == paramName {
			continue
		}
		missing[k] = v
		empty[k] = v
	}
	empty[paramName] = ""

	return []handlerTestCase{
		{
			name:         "missing " + paramName,
			args:         missing,
			wantError:    true,
			wantContains: []string{paramName + " is required"},
		},
		{
			name:         "empty " + paramName,
			args:         empty,
			wantError:    true,
			wantContains: []string{paramName + " is required"},
		},
	}
}

// toolSchemaExpectation defines expectations for a tool's schema.
type toolSchemaExpectation struct {
	ExpectedName   string
	RequiredParams []string
	OptionalParams []string
}

// verifyToolSchema validates a tool's schema against expectations.
func verifyToolSchema(t *testing.T, tool Tool, expect toolSchemaExpectation) {
	t.Helper()

	if tool.Name != expect.ExpectedName {
		t.Errorf("tool.Name = %q, want %q", tool.Name, expect.ExpectedName)
	}
	if tool.Description == "" {
		t.Error("tool.Description is empty, want non-empty")
	}
	if tool.InputSchema.Type != testSchemaTypeObject {
		t.Errorf("InputSchema.Type = %q, want %q", tool.InputSchema.Type, testSchemaTypeObject)
	}

	requiredMap := make(map[string]bool)
	for _, req := range tool.InputSchema.Required {
		requiredMap[req] = true
	}
	for _, param := range expect.RequiredParams {
		if !requiredMap[param] {
			t.Errorf("Required parameter %q not found in schema.Required", param)
		}
	}

	allParams := make([]string, 0, len(expect.RequiredParams)+len(expect.OptionalParams))
	allParams = append(allParams, expect.RequiredParams...)
	allParams = append(allParams, expect.OptionalParams...)
	for _, param := range allParams {
		if _, ok := tool.InputSchema.Properties[param]; !ok {
			t.Errorf("Property %q missing from schema.Properties", param)
		}
	}
}

// assertContainsAll checks that content contains all expected strings.
func assertContainsAll(t *testing.T, content string, want []string) {
	t.Helper()
	for _, expected := range want {
		if !strings.Contains(content, expected) {
			t.Errorf("Content missing expected string %q\nGot: %s", expected, truncateForError(content))
		}
	}
}

// assertNotContainsAny checks that content does not contain any of the unwanted strings.
func assertNotContainsAny(t *testing.T, content string, notWant []string) {
	t.Helper()
	for _, unexpected := range notWant {
		if strings.Contains(content, unexpected) {
			t.Errorf("Content should not contain %q\nGot: %s", unexpected, truncateForError(content))
		}
	}
}

// truncateForError truncates long content for readable error messages.
func truncateForError(content string) string {
	const maxLen = 500
	if len(content) > maxLen {
		return content[:maxLen] + "... (truncated)"
	}
	return content
}

// testEntity creates a standard test entity.
func testEntity(entityID, state, friendlyName string) homeassistant.Entity {
	return homeassistant.Entity{
		EntityID: entityID,
		State:    state,
		Attributes: map[string]any{
			"friendly_name": friendlyName,
		},
	}
}
