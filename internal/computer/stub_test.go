package computer

import (
	"bytes"
	"context"
	"image/png"
	"testing"
)

func TestNavigateThenClickCart(t *testing.T) {
	adapter := NewAdapter(ModeMock, "", nil)
	ctx := context.Background()

	first := adapter.Execute(ctx, "navigate", map[string]any{"url": "https://shop.example.com"})
	if !first.Success {
		t.Fatalf("navigate failed: %s", first.Error)
	}
	if got := first.State["url"]; got != "https://shop.example.com" {
		t.Errorf("Expected navigate to set url, got %v", got)
	}

	second := adapter.Execute(ctx, "click", map[string]any{"selector": "Add to Cart button"})
	if !second.Success {
		t.Fatalf("click failed: %s", second.Error)
	}
	if got := second.State["url"]; got != "mock://cart" {
		t.Errorf("Expected cart click to move to cart view, got %v", got)
	}
	if got := second.State["action_count"]; got != 2 {
		t.Errorf("Expected action_count 2, got %v", got)
	}

	if bytes.Equal(first.Screenshot, second.Screenshot) {
		t.Error("Expected screenshots to differ across state transitions")
	}
	for i, outcome := range []*Outcome{first, second} {
		if _, err := png.Decode(bytes.NewReader(outcome.Screenshot)); err != nil {
			t.Errorf("Screenshot %d is not a valid PNG: %v", i, err)
		}
	}
}

func TestClickJacketNavigatesToProduct(t *testing.T) {
	stub := NewStub(nil)

	_, state, err := stub.Execute("click", map[string]any{"selector": "black jacket thumbnail"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if state["url"] != "mock://product/jacket" {
		t.Errorf("Expected jacket product page, got %v", state["url"])
	}
}

func TestResetRestoresInitialState(t *testing.T) {
	adapter := NewAdapter(ModeMock, "", nil)
	ctx := context.Background()

	adapter.Execute(ctx, "navigate", map[string]any{"url": "mock://somewhere"})
	adapter.Execute(ctx, "scroll", map[string]any{"direction": "down"})

	adapter.Reset(ctx)

	outcome := adapter.Execute(ctx, "screenshot", map[string]any{})
	if got := outcome.State["action_count"]; got != 1 {
		t.Errorf("Expected action_count 1 after reset, got %v", got)
	}
	if got := outcome.State["url"]; got != "mock://home" {
		t.Errorf("Expected home url after reset, got %v", got)
	}
	if len(NewStub(nil).History()) != 0 {
		t.Error("Expected fresh stub history to be empty")
	}
}

func TestCapabilities(t *testing.T) {
	adapter := NewAdapter(ModeMock, "", nil)

	caps := adapter.Capabilities()
	if caps["mode"] != "MOCK" {
		t.Errorf("Expected MOCK mode, got %v", caps["mode"])
	}
	if _, ok := caps["bridge_url"]; ok {
		t.Error("Mock adapter should not report a bridge URL")
	}
	actions, ok := caps["available_actions"].([]string)
	if !ok || len(actions) != 5 {
		t.Errorf("Expected 5 available actions, got %v", caps["available_actions"])
	}
}
