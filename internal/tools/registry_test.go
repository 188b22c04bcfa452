package tools

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"gitlab.com/rdelange/ha-tools/internal/homeassistant"
	"gitlab.com/rdelange/ha-tools/internal/logging"
)

func newTestTool(name string) Tool {
	return Tool{
		Name:        name,
		Description: "test tool " + name,
		InputSchema: JSONSchema{Type: "object"},
	}
}

func staticHandler(markdown string) Handler {
	return func(_ context.Context, _ homeassistant.Client, _ map[string]any, _ Emitter) (*Result, error) {
		return NewResult(markdown), nil
	}
}

func TestRegistryRegisterAndGet(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	registry.RegisterTool(newTestTool("alpha"), staticHandler("alpha result"))

	tool, ok := registry.GetTool("alpha")
	if !ok {
		t.Fatal("GetTool returned false for registered tool")
	}
	if tool.Name != "alpha" {
		t.Errorf("tool.Name = %q, want %q", tool.Name, "alpha")
	}

	if _, ok := registry.GetTool("missing"); ok {
		t.Error("GetTool returned true for unregistered tool")
	}

	handler, ok := registry.GetHandler("alpha")
	if !ok {
		t.Fatal("GetHandler returned false for registered tool")
	}
	result, err := handler(context.Background(), &MockClient{}, nil, nil)
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if result.Markdown != "alpha result" {
		t.Errorf("result.Markdown = %q, want %q", result.Markdown, "alpha result")
	}

	if _, ok := registry.GetHandler("missing"); ok {
		t.Error("GetHandler returned true for unregistered tool")
	}
}

func TestRegistryReplaceTool(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	registry.RegisterTool(newTestTool("alpha"), staticHandler("first"))
	registry.RegisterTool(newTestTool("alpha"), staticHandler("second"))

	if registry.ToolCount() != 1 {
		t.Errorf("ToolCount() = %d, want 1", registry.ToolCount())
	}

	handler, _ := registry.GetHandler("alpha")
	result, err := handler(context.Background(), &MockClient{}, nil, nil)
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if result.Markdown != "second" {
		t.Errorf("result.Markdown = %q, want %q (re-registration should replace)", result.Markdown, "second")
	}
}

func TestRegistryListToolsSorted(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	registry.RegisterTool(newTestTool("zeta"), staticHandler(""))
	registry.RegisterTool(newTestTool("alpha"), staticHandler(""))
	registry.RegisterTool(newTestTool("mid"), staticHandler(""))

	var names []string
	for _, tool := range registry.ListTools() {
		names = append(names, tool.Name)
	}

	want := []string{"alpha", "mid", "zeta"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("ListTools order mismatch (-want +got):\n%s", diff)
	}
}

func TestRegisterAllTools(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	RegisterAllTools(registry)

	wantTools := []string{
		"control_entity",
		"get_all_entities",
		"get_entities_by_domain",
		"get_entity_attributes",
		"get_services_for_domain",
		"set_entity_attribute",
	}

	if registry.ToolCount() != len(wantTools) {
		t.Errorf("ToolCount() = %d, want %d", registry.ToolCount(), len(wantTools))
	}

	var names []string
	for _, tool := range registry.ListTools() {
		names = append(names, tool.Name)
	}
	if diff := cmp.Diff(wantTools, names); diff != "" {
		t.Errorf("registered tools mismatch (-want +got):\n%s", diff)
	}

	for _, name := range wantTools {
		if _, ok := registry.GetHandler(name); !ok {
			t.Errorf("no handler registered for %q", name)
		}
	}
}

func TestLogRegisteredTools(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	registry.RegisterTool(newTestTool("alpha"), staticHandler(""))

	var buf bytes.Buffer
	logger := logging.NewWithWriter(logging.LevelDebug, &buf)
	registry.LogRegisteredTools(logger)

	output := buf.String()
	if !strings.Contains(output, "alpha") {
		t.Errorf("log output missing tool name, got: %s", output)
	}

	// Below debug level nothing is logged.
	buf.Reset()
	quiet := logging.NewWithWriter(logging.LevelInfo, &buf)
	registry.LogRegisteredTools(quiet)
	if buf.Len() != 0 {
		t.Errorf("expected no output at info level, got: %s", buf.String())
	}

	// Nil logger must not panic.
	registry.LogRegisteredTools(nil)
}

func TestTruncateDescription(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		desc   string
		maxLen int
		want   string
	}{
		{name: "short unchanged", desc: "short", maxLen: 10, want: "short"},
		{name: "exact length unchanged", desc: "1234567890", maxLen: 10, want: "1234567890"},
		{name: "long truncated", desc: "abcdefghijkl", maxLen: 10, want: "abcdefg..."},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := truncateDescription(tt.desc, tt.maxLen)
			if got != tt.want {
				t.Errorf("truncateDescription(%q, %d) = %q, want %q", tt.desc, tt.maxLen, got, tt.want)
			}
		})
	}
}
