package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestStatusEvent(t *testing.T) {
	t.Parallel()

	got := StatusEvent("Querying entities", false)
	want := Event{
		Type: EventStatus,
		Data: map[string]any{
			"description": "Querying entities",
			"done":        false,
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("StatusEvent mismatch (-want +got):\n%s", diff)
	}
}

func TestMessageEvent(t *testing.T) {
	t.Parallel()

	got := MessageEvent("**Result**")
	want := Event{
		Type: EventMessage,
		Data: map[string]any{
			"content": "**Result**",
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("MessageEvent mismatch (-want +got):\n%s", diff)
	}
}

func TestEventJSONShape(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(StatusEvent("working", true))
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if decoded["type"] != "status" {
		t.Errorf(`decoded["type"] = %v, want "status"`, decoded["type"])
	}
	inner, ok := decoded["data"].(map[string]any)
	if !ok {
		t.Fatalf(`decoded["data"] is %T, want object`, decoded["data"])
	}
	if inner["description"] != "working" {
		t.Errorf(`data["description"] = %v, want "working"`, inner["description"])
	}
	if inner["done"] != true {
		t.Errorf(`data["done"] = %v, want true`, inner["done"])
	}
}

func TestEmitNilEmitter(t *testing.T) {
	t.Parallel()

	// Must not panic.
	emit(context.Background(), nil, StatusEvent("noop", false))
	emitStatus(context.Background(), nil, "noop", true)
	emitMessage(context.Background(), nil, "noop")
}

func TestEmitterErrorsIgnored(t *testing.T) {
	t.Parallel()

	calls := 0
	failing := Emitter(func(_ context.Context, _ Event) error {
		calls++
		return fmt.Errorf("host went away")
	})

	emitStatus(context.Background(), failing, "first", false)
	emitMessage(context.Background(), failing, "second")

	if calls != 2 {
		t.Errorf("emitter called %d times, want 2 (errors must not stop emission)", calls)
	}
}

func TestEmitterReceivesContext(t *testing.T) {
	t.Parallel()

	type ctxKey struct{}
	ctx := context.WithValue(context.Background(), ctxKey{}, "marker")

	var gotCtx context.Context
	recorder := Emitter(func(c context.Context, _ Event) error {
		gotCtx = c
		return nil
	})

	emitStatus(ctx, recorder, "check", false)

	if gotCtx == nil || gotCtx.Value(ctxKey{}) != "marker" {
		t.Error("emitter did not receive the caller's context")
	}
}
