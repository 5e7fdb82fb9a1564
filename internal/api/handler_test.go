package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/xpandai03/operator-agent/internal/computer"
	"github.com/xpandai03/operator-agent/internal/config"
	"github.com/xpandai03/operator-agent/internal/runtime"
)

func testHandler(rt runtime.Runtime) *Handler {
	cfg := &config.Config{
		ComputerMode:      config.ComputerModeMock,
		AirtableAPIKey:    "key",
		AirtableBaseID:    "base",
		AirtableTableName: "table",
	}
	adapter := computer.NewAdapter(computer.ModeMock, "", nil)
	return NewHandler(cfg, rt, adapter)
}

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()
	data := map[string]string{"foo": "bar"}

	JSON(w, http.StatusOK, data)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	var got map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if got["foo"] != "bar" {
		t.Errorf("Expected foo=bar, got %v", got["foo"])
	}
}

func TestHealthReflectsConfiguration(t *testing.T) {
	h := testHandler(runtime.NewMock(nil, nil))
	w := httptest.NewRecorder()

	h.Health(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	var got map[string]any
	if err := json.NewDecoder(w.Result().Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if got["ok"] != true {
		t.Error("Expected ok=true")
	}
	if got["api_key_configured"] != false {
		t.Error("Expected api_key_configured=false without a key")
	}
	if got["airtable"] != true {
		t.Error("Expected airtable=true with full Airtable config")
	}
	caps, ok := got["computer"].(map[string]any)
	if !ok {
		t.Fatalf("computer capabilities missing: %v", got["computer"])
	}
	if caps["mode"] != "MOCK" {
		t.Errorf("Expected computer mode MOCK, got %v", caps["mode"])
	}
}

func TestRunExecutesTask(t *testing.T) {
	h := testHandler(runtime.NewMock(nil, nil))
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/run", strings.NewReader(`{"task":"search for shoes"}`))

	h.Run(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	var got struct {
		Result string `json:"result"`
		Steps  []struct {
			Name string `json:"name"`
		} `json:"steps"`
		ModeFlags map[string]any `json:"mode_flags"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if got.Result == "" {
		t.Error("Expected a non-empty result")
	}
	if len(got.Steps) != 1 || got.Steps[0].Name != "WebSearch" {
		t.Errorf("Expected one WebSearch step, got %+v", got.Steps)
	}
	if got.ModeFlags["computer_mode"] != "MOCK" {
		t.Errorf("Expected computer_mode MOCK, got %v", got.ModeFlags["computer_mode"])
	}
}

func TestRunRejectsBadRequests(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"empty task", `{"task":""}`, http.StatusBadRequest},
		{"malformed body", `{not json`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := testHandler(runtime.NewMock(nil, nil))
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/run", strings.NewReader(tt.body))

			h.Run(w, req)

			if w.Result().StatusCode != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, w.Result().StatusCode)
			}
		})
	}
}

func TestRunWithoutRuntime(t *testing.T) {
	h := testHandler(nil)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/run", strings.NewReader(`{"task":"hello"}`))

	h.Run(w, req)

	if w.Result().StatusCode != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", w.Result().StatusCode)
	}
}
