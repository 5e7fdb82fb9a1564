package computer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestBridgeNotImplemented(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"Not Implemented"}`, http.StatusNotImplemented)
	}))
	defer srv.Close()

	adapter := NewAdapter(ModeLive, srv.URL, nil)
	outcome := adapter.Execute(context.Background(), "click", map[string]any{"selector": "button"})

	if outcome.Success {
		t.Error("Expected failure for 501 response")
	}
	if !strings.Contains(outcome.Error, "not implemented") {
		t.Errorf("Expected 'not implemented' error, got %q", outcome.Error)
	}
	if outcome.Mode != ModeLive {
		t.Errorf("Expected LIVE mode, got %v", outcome.Mode)
	}
}

func TestBridgeUnreachable(t *testing.T) {
	// Closed server port.
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	adapter := NewAdapter(ModeLive, srv.URL, nil)
	outcome := adapter.Execute(context.Background(), "navigate", map[string]any{"url": "https://example.com"})

	if outcome.Success {
		t.Error("Expected failure when bridge is unreachable")
	}
	if outcome.Error != "unreachable" {
		t.Errorf("Expected 'unreachable' error, got %q", outcome.Error)
	}
}

func TestBridgeErrorStatusIncludesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "browser crashed", http.StatusInternalServerError)
	}))
	defer srv.Close()

	adapter := NewAdapter(ModeLive, srv.URL, nil)
	outcome := adapter.Execute(context.Background(), "type", map[string]any{"text": "hello"})

	if outcome.Success {
		t.Error("Expected failure for 500 response")
	}
	if !strings.Contains(outcome.Error, "500") || !strings.Contains(outcome.Error, "browser crashed") {
		t.Errorf("Expected status and body in error, got %q", outcome.Error)
	}
}

func TestBridgeSuccessFetchesScreenshot(t *testing.T) {
	screenshot := []byte("fake-png-bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/action":
			if r.Method != http.MethodPost {
				t.Errorf("Expected POST /action, got %s", r.Method)
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"success":true,"state":{"url":"https://example.com"}}`))
		case "/screenshot":
			_, _ = w.Write(screenshot)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	adapter := NewAdapter(ModeLive, srv.URL, nil)
	outcome := adapter.Execute(context.Background(), "navigate", map[string]any{"url": "https://example.com"})

	if !outcome.Success {
		t.Fatalf("Expected success, got error %q", outcome.Error)
	}
	if string(outcome.Screenshot) != string(screenshot) {
		t.Error("Expected screenshot bytes from bridge")
	}
	if outcome.State["url"] != "https://example.com" {
		t.Errorf("Expected state from bridge, got %v", outcome.State)
	}
}

func TestBridgeResetFailureReturnsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	bridge := NewBridge(srv.URL, nil)
	if err := bridge.Reset(context.Background()); err == nil {
		t.Error("Expected reset error for non-200 response")
	}
}

func TestCapabilitiesLiveIncludesBridgeURL(t *testing.T) {
	adapter := NewAdapter(ModeLive, "http://127.0.0.1:34115", nil)

	caps := adapter.Capabilities()
	if caps["bridge_url"] != "http://127.0.0.1:34115" {
		t.Errorf("Expected bridge URL in capabilities, got %v", caps["bridge_url"])
	}
}
