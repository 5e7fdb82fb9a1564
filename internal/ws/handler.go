// Package ws implements the WebSocket session transport: one bidirectional
// JSON-envelope channel per connection, dispatching tasks to the
// orchestrator and serving history and control messages.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"

	"github.com/xpandai03/operator-agent/internal/agent"
	"github.com/xpandai03/operator-agent/internal/metrics"
	"github.com/xpandai03/operator-agent/internal/session"
)

// Handler upgrades connections and runs the session protocol.
type Handler struct {
	orchestrator *agent.Orchestrator
	store        session.Store
	allowedOrigin string
	isDev        bool
}

// NewHandler creates a WebSocket session handler.
func NewHandler(orchestrator *agent.Orchestrator, store session.Store, allowedOrigin string, isDev bool) *Handler {
	return &Handler{
		orchestrator:  orchestrator,
		store:         store,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// inboundMessage is the client-to-server envelope.
type inboundMessage struct {
	Type string `json:"type"`
	Task string `json:"task,omitempty"`
}

// conn serializes writes to one WebSocket connection. Task goroutines and
// the read loop share it.
type conn struct {
	ws     *websocket.Conn
	mu     sync.Mutex
	closed bool
}

// send marshals and writes one envelope. After the first write failure the
// connection is treated as gone and later sends become no-ops; an in-flight
// task keeps running for history persistence either way.
func (c *conn) send(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("Failed to marshal outbound envelope", "error", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if err := c.ws.Write(context.Background(), websocket.MessageText, data); err != nil {
		slog.Debug("WebSocket write failed, dropping delivery", "error", err)
		c.closed = true
	}
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "ip", r.RemoteAddr)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr)
		}
	}()

	metrics.Connections.Inc()
	defer metrics.Connections.Dec()

	ctx := r.Context()

	// Resume the session named in the query, or mint a fresh one.
	sess, err := h.store.GetOrCreate(ctx, r.URL.Query().Get("session_id"))
	if err != nil {
		slog.Error("Failed to open session", "error", err)
		return
	}
	slog.Info("WebSocket connected", "session_id", sess.ID, "ip", r.RemoteAddr)

	c := &conn{ws: ws}

	history, err := h.store.History(ctx, sess.ID)
	if err != nil {
		slog.Error("Failed to load session history", "session_id", sess.ID, "error", err)
		history = []session.Message{}
	}
	c.send(map[string]any{
		"type":       "session_info",
		"session_id": sess.ID,
		"history":    history,
	})

	h.readLoop(ctx, c, sess.ID)
	slog.Info("WebSocket disconnected", "session_id", sess.ID)
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

func (h *Handler) readLoop(ctx context.Context, c *conn, sessionID string) {
	for {
		_, message, err := c.ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("WebSocket closed by client", "session_id", sessionID)
			} else {
				slog.Warn("WebSocket read error", "error", err, "session_id", sessionID)
			}
			return
		}

		var msg inboundMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			slog.Debug("Ignoring malformed message", "error", err, "session_id", sessionID)
			continue
		}

		switch msg.Type {
		case "task":
			if msg.Task == "" {
				slog.Warn("Ignoring empty task", "session_id", sessionID)
				continue
			}
			// Run on its own goroutine so ping and history requests are
			// answered mid-task. The detached context lets the task finish
			// and record history even if the client disconnects.
			taskCtx := context.WithoutCancel(ctx)
			go h.runTask(taskCtx, c, sessionID, msg.Task)

		case "get_history":
			history, err := h.store.History(ctx, sessionID)
			if err != nil {
				slog.Error("Failed to load history", "session_id", sessionID, "error", err)
				history = []session.Message{}
			}
			c.send(map[string]any{"type": "history", "messages": history})

		case "clear_history":
			if err := h.store.Clear(ctx, sessionID); err != nil {
				slog.Error("Failed to clear history", "session_id", sessionID, "error", err)
				continue
			}
			c.send(map[string]any{"type": "history_cleared"})

		case "ping":
			c.send(map[string]any{"type": "pong"})

		default:
			slog.Debug("Ignoring unknown message type", "type", msg.Type, "session_id", sessionID)
		}
	}
}

func (h *Handler) runTask(ctx context.Context, c *conn, sessionID, task string) {
	slog.Info("Task started", "session_id", sessionID)
	h.orchestrator.Run(ctx, sessionID, task, func(ev *agent.Event) {
		c.send(envelope(ev))
	})
	slog.Info("Task finished", "session_id", sessionID)
}

// envelope maps a normalized event to its outbound wire form.
func envelope(ev *agent.Event) map[string]any {
	switch ev.Kind {
	case agent.KindStreamStart:
		return map[string]any{"type": "stream_start", "message": ev.Message}
	case agent.KindTextDelta:
		return map[string]any{"type": "text_delta", "content": ev.Text}
	case agent.KindTextComplete:
		return map[string]any{"type": "text_complete", "content": ev.Text}
	case agent.KindToolCall:
		return map[string]any{"type": "tool_call", "tool": ev.Tool}
	case agent.KindStreamComplete:
		return map[string]any{
			"type":       "stream_complete",
			"final_text": ev.FinalText,
			"tool_calls": ev.ToolCalls,
		}
	case agent.KindError:
		return map[string]any{"type": "error", "error": ev.Message}
	default:
		return map[string]any{"type": string(ev.Kind)}
	}
}
