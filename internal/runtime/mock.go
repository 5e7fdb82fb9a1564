package runtime

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Mock is a deterministic runtime used when no API key is configured and in
// tests. It streams a canned answer as text deltas and simulates tool use
// from task keywords, driving the real execution-mode adapter for
// computer-flavored tasks.
type Mock struct {
	computerTool *ComputerTool
	logger       *slog.Logger
}

// NewMock creates a mock runtime. computerTool may be nil.
func NewMock(computerTool *ComputerTool, logger *slog.Logger) *Mock {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mock{computerTool: computerTool, logger: logger}
}

// RunStreamed starts a scripted streaming run.
func (m *Mock) RunStreamed(ctx context.Context, task string) (EventStream, error) {
	events, result := m.script(ctx, task)
	return &mockStream{events: events, result: result}, nil
}

// Run executes the scripted task without streaming.
func (m *Mock) Run(ctx context.Context, task string) (*Result, error) {
	_, result := m.script(ctx, task)
	return result, nil
}

// Close releases runtime resources.
func (m *Mock) Close() {}

func (m *Mock) script(ctx context.Context, task string) ([]*Event, *Result) {
	lower := strings.ToLower(task)
	var events []*Event
	var toolCalls []ToolCall

	if strings.Contains(lower, "search") {
		events = append(events, wrapped("response.tool_call", map[string]any{"name": "WebSearch"}))
		toolCalls = append(toolCalls, ToolCall{Name: "WebSearch", Status: "executed", Summary: "Searched the web"})
	}

	if m.computerTool != nil && containsAny(lower, "open", "click", "type", "navigate", "cart", "website") {
		for _, args := range m.computerActions(lower) {
			outcome := m.computerTool.Call(ctx, args)
			events = append(events, wrapped("response.tool_call", m.computerTool.ToolEventPayload(args, outcome)))
			status := "executed"
			if !outcome.Success {
				status = "error"
			}
			toolCalls = append(toolCalls, ToolCall{
				Name:    m.computerTool.Name(),
				Status:  status,
				Summary: fmt.Sprintf("Controlled browser in %s mode", outcome.Mode),
			})
		}
	}

	if strings.Contains(lower, "airtable") {
		events = append(events, wrapped("response.tool_call", map[string]any{"name": "Airtable"}))
		toolCalls = append(toolCalls, ToolCall{Name: "Airtable", Status: "executed", Summary: "Logged to Airtable"})
	}

	answer := fmt.Sprintf(
		"I'm running in demo mode without an OpenAI API key. "+
			"To use WebSearch and other tools, please set OPENAI_API_KEY in the environment. "+
			"Your task was: '%s'", task)

	for _, chunk := range chunkText(answer, 4) {
		events = append(events, wrapped("response.output_text.delta", map[string]any{"delta": chunk}))
	}
	events = append(events, wrapped("response.done", nil))

	return events, &Result{FinalOutput: answer, ToolCalls: toolCalls}
}

func (m *Mock) computerActions(lowerTask string) []map[string]any {
	actions := []map[string]any{
		{"action": "navigate", "url": "mock://shop"},
	}
	if strings.Contains(lowerTask, "cart") {
		actions = append(actions, map[string]any{"action": "click", "selector": "Add to Cart button"})
	}
	return actions
}

func wrapped(nestedType string, payload map[string]any) *Event {
	return &Event{
		Type: "raw_response_event",
		Data: &Event{Type: nestedType, Payload: payload},
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// chunkText splits text into groups of n words, preserving total content.
func chunkText(text string, n int) []string {
	words := strings.Split(text, " ")
	var chunks []string
	for i := 0; i < len(words); i += n {
		end := min(i+n, len(words))
		chunk := strings.Join(words[i:end], " ")
		if end < len(words) {
			chunk += " "
		}
		chunks = append(chunks, chunk)
	}
	return chunks
}

type mockStream struct {
	events []*Event
	pos    int
	result *Result
}

func (s *mockStream) Next(ctx context.Context) (*Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.pos >= len(s.events) {
		return nil, io.EOF
	}
	ev := s.events[s.pos]
	s.pos++
	return ev, nil
}

func (s *mockStream) Result(context.Context) (*Result, error) {
	return s.result, nil
}

var _ Runtime = (*Mock)(nil)
