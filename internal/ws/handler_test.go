package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/xpandai03/operator-agent/internal/agent"
	"github.com/xpandai03/operator-agent/internal/runtime"
	"github.com/xpandai03/operator-agent/internal/session"
)

func newTestServer(t *testing.T) (*httptest.Server, session.Store) {
	t.Helper()
	store := session.NewMemoryStore(10)
	orch := agent.NewOrchestrator(runtime.NewMock(nil, nil), store, nil)
	srv := httptest.NewServer(NewHandler(orch, store, "*", true))
	t.Cleanup(srv.Close)
	return srv, store
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + query
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "test done") })
	return conn
}

func sendJSON(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
}

func readEnvelope(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	var envelope map[string]any
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("unmarshal %q: %v", data, err)
	}
	return envelope
}

func TestConnectSendsSessionInfo(t *testing.T) {
	srv, _ := newTestServer(t)
	conn := dial(t, srv, "")

	info := readEnvelope(t, conn)
	if info["type"] != "session_info" {
		t.Fatalf("first envelope type = %v, want session_info", info["type"])
	}
	if id, _ := info["session_id"].(string); id == "" {
		t.Error("session_info carries no session id")
	}
	if history, ok := info["history"].([]any); !ok || len(history) != 0 {
		t.Errorf("history = %v, want empty list", info["history"])
	}
}

func TestSessionResume(t *testing.T) {
	srv, store := newTestServer(t)

	ctx := context.Background()
	sess, err := store.GetOrCreate(ctx, "resume-me")
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	if err := store.Append(ctx, sess.ID, session.RoleUser, "earlier question"); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	conn := dial(t, srv, "?session_id=resume-me")
	info := readEnvelope(t, conn)
	if info["session_id"] != "resume-me" {
		t.Errorf("session_id = %v, want resume-me", info["session_id"])
	}
	history, _ := info["history"].([]any)
	if len(history) != 1 {
		t.Fatalf("resumed history has %d entries, want 1", len(history))
	}
}

func TestPingPong(t *testing.T) {
	srv, _ := newTestServer(t)
	conn := dial(t, srv, "")
	readEnvelope(t, conn) // session_info

	sendJSON(t, conn, map[string]string{"type": "ping"})
	if reply := readEnvelope(t, conn); reply["type"] != "pong" {
		t.Errorf("reply type = %v, want pong", reply["type"])
	}
}

func TestGetHistoryEmpty(t *testing.T) {
	srv, _ := newTestServer(t)
	conn := dial(t, srv, "")
	readEnvelope(t, conn)

	sendJSON(t, conn, map[string]string{"type": "get_history"})
	reply := readEnvelope(t, conn)
	if reply["type"] != "history" {
		t.Fatalf("reply type = %v, want history", reply["type"])
	}
	if messages, ok := reply["messages"].([]any); !ok || len(messages) != 0 {
		t.Errorf("messages = %v, want empty list", reply["messages"])
	}
}

func TestUnknownTypeIgnored(t *testing.T) {
	srv, _ := newTestServer(t)
	conn := dial(t, srv, "")
	readEnvelope(t, conn)

	sendJSON(t, conn, map[string]string{"type": "launch_missiles"})
	conn.Write(context.Background(), websocket.MessageText, []byte("{not json"))

	// The connection stays open and produces no envelope for either message:
	// the next reply must be the pong.
	sendJSON(t, conn, map[string]string{"type": "ping"})
	if reply := readEnvelope(t, conn); reply["type"] != "pong" {
		t.Errorf("reply type = %v, want pong", reply["type"])
	}
}

func TestTaskStreamsToCompletion(t *testing.T) {
	srv, store := newTestServer(t)
	conn := dial(t, srv, "?session_id=task-session")
	readEnvelope(t, conn)

	sendJSON(t, conn, map[string]string{"type": "task", "task": "say hello"})

	var types []string
	var deltas strings.Builder
	var final map[string]any
	for {
		envelope := readEnvelope(t, conn)
		typ, _ := envelope["type"].(string)
		types = append(types, typ)
		switch typ {
		case "text_delta":
			content, _ := envelope["content"].(string)
			deltas.WriteString(content)
		case "stream_complete":
			final = envelope
		case "error":
			t.Fatalf("task failed: %v", envelope["error"])
		}
		if final != nil {
			break
		}
	}

	if types[0] != "stream_start" {
		t.Errorf("first envelope = %q, want stream_start", types[0])
	}
	finalText, _ := final["final_text"].(string)
	if finalText == "" {
		t.Fatal("stream_complete has empty final_text")
	}
	if deltas.Len() > 0 && deltas.String() != finalText {
		t.Errorf("concatenated deltas %q != final_text %q", deltas.String(), finalText)
	}

	history, err := store.History(context.Background(), "task-session")
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history has %d messages after one task, want 2", len(history))
	}
	if history[0].Role != session.RoleUser || history[1].Role != session.RoleAssistant {
		t.Errorf("history roles = %q,%q", history[0].Role, history[1].Role)
	}
}

func TestPingAnsweredMidTask(t *testing.T) {
	srv, _ := newTestServer(t)
	conn := dial(t, srv, "")
	readEnvelope(t, conn)

	sendJSON(t, conn, map[string]string{"type": "task", "task": "long task"})
	sendJSON(t, conn, map[string]string{"type": "ping"})

	// The read loop keeps dispatching while the task runs, so the pong
	// arrives regardless of task progress; task envelopes may interleave.
	var sawPong, sawTerminal bool
	for !sawPong || !sawTerminal {
		envelope := readEnvelope(t, conn)
		switch envelope["type"] {
		case "pong":
			sawPong = true
		case "stream_complete", "error":
			sawTerminal = true
		}
	}
}

func TestClearHistory(t *testing.T) {
	srv, store := newTestServer(t)
	ctx := context.Background()
	sess, _ := store.GetOrCreate(ctx, "clear-me")
	store.Append(ctx, sess.ID, session.RoleUser, "hello")

	conn := dial(t, srv, "?session_id=clear-me")
	readEnvelope(t, conn)

	sendJSON(t, conn, map[string]string{"type": "clear_history"})
	if reply := readEnvelope(t, conn); reply["type"] != "history_cleared" {
		t.Fatalf("reply type = %v, want history_cleared", reply["type"])
	}

	history, _ := store.History(ctx, "clear-me")
	if len(history) != 0 {
		t.Errorf("history after clear = %+v, want empty", history)
	}
}

func TestOriginRejected(t *testing.T) {
	store := session.NewMemoryStore(10)
	orch := agent.NewOrchestrator(runtime.NewMock(nil, nil), store, nil)
	srv := httptest.NewServer(NewHandler(orch, store, "https://app.example.com", false))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	_, resp, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		HTTPHeader: map[string][]string{"Origin": {"https://evil.example.com"}},
	})
	if err == nil {
		t.Fatal("dial with a rejected origin succeeded")
	}
	if resp != nil && resp.StatusCode != 403 {
		t.Errorf("status = %d, want 403", resp.StatusCode)
	}
}
