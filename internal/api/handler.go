// Package api provides the REST surface: service info, capability health
// checks, and blocking task execution.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/xpandai03/operator-agent/internal/computer"
	"github.com/xpandai03/operator-agent/internal/config"
	"github.com/xpandai03/operator-agent/internal/runtime"
)

// Handler provides the REST handlers and their shared dependencies.
type Handler struct {
	cfg     *config.Config
	runtime runtime.Runtime
	adapter *computer.Adapter
}

// NewHandler creates a new Handler with common dependencies. runtime may be
// nil when no backend is configured.
func NewHandler(cfg *config.Config, rt runtime.Runtime, adapter *computer.Adapter) *Handler {
	return &Handler{cfg: cfg, runtime: rt, adapter: adapter}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// Info handles GET / with service identification.
func (h *Handler) Info(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]any{
		"service": "operator-agent",
		"status":  "running",
		"mode":    string(h.cfg.ComputerMode),
	})
}

// Health handles GET /healthz with per-capability flags.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]any{
		"ok":                      true,
		"websearch":               h.cfg.HasOpenAI(),
		"filesearch":              h.cfg.HasVectorStore(),
		"computer":                h.adapter.Capabilities(),
		"airtable":                h.cfg.HasAirtable(),
		"api_key_configured":      h.cfg.HasOpenAI(),
		"vector_store_configured": h.cfg.HasVectorStore(),
	})
}

// runRequest is the POST /run body.
type runRequest struct {
	Task string `json:"task"`
}

// Run handles POST /run: blocking task execution without a session.
func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Task == "" {
		Error(w, http.StatusBadRequest, "task is required")
		return
	}
	if h.runtime == nil {
		Error(w, http.StatusServiceUnavailable, "no agent runtime configured")
		return
	}

	ctx := r.Context()
	if h.cfg.RuntimeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.cfg.RuntimeTimeout)
		defer cancel()
	}

	result, err := h.runtime.Run(ctx, req.Task)
	if err != nil {
		slog.Error("Blocking run failed", "error", err)
		Error(w, http.StatusInternalServerError, "task execution failed")
		return
	}

	steps := result.ToolCalls
	if steps == nil {
		steps = []runtime.ToolCall{}
	}
	JSON(w, http.StatusOK, map[string]any{
		"result": result.Text(),
		"steps":  steps,
		"mode_flags": map[string]any{
			"computer_mode": string(h.cfg.ComputerMode),
			"live_api":      h.cfg.HasOpenAI(),
		},
	})
}
