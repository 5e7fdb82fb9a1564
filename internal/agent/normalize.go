package agent

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/xpandai03/operator-agent/internal/metrics"
	"github.com/xpandai03/operator-agent/internal/runtime"
)

// Normalizer classifies raw runtime stream events into normalized Events for
// one task. It accumulates the running response text and the tool-call list
// so the orchestrator can finalize the stream. Not safe for concurrent use;
// create one per task.
type Normalizer struct {
	buffer    strings.Builder
	toolCalls []runtime.ToolCall
	complete  bool
	logger    *slog.Logger
}

// NewNormalizer creates a normalizer for a single task.
func NewNormalizer(logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{logger: logger}
}

// Normalize classifies one raw event and returns the normalized events it
// produces, usually zero or one. A failure processing a single event is
// logged and swallowed; one malformed event never aborts the task.
func (n *Normalizer) Normalize(raw *runtime.Event) (out []*Event) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Error("Recovered from event processing failure", "panic", r, "event_type", eventType(raw))
			out = nil
		}
	}()

	if raw == nil {
		return nil
	}

	// Transport wrapper: unwrap one level and classify the nested event.
	inner := raw
	if raw.Type == "raw_response_event" && raw.Data != nil {
		inner = raw.Data
	}

	switch {
	case inner.Type == "response.output_text.delta":
		if delta := inner.StringField("delta"); delta != "" {
			n.buffer.WriteString(delta)
			return n.count(textDelta(delta))
		}
		return nil

	case inner.Type == "response.tool_call" || strings.Contains(inner.Type, "tool"):
		return n.count(n.normalizeToolCall(inner))

	case inner.Type == "response.done":
		// Finalization happens after the loop.
		return nil

	case inner.Type == "text-delta":
		if text := inner.StringField("text"); text != "" {
			n.buffer.WriteString(text)
			return n.count(textDelta(text))
		}
		return nil

	case inner.Type == "agent-message":
		content := inner.StringField("content")
		if content == "" {
			return nil
		}
		// A full message only substitutes for the stream when no deltas
		// arrived; otherwise the deltas already carried it.
		if n.buffer.Len() == 0 {
			n.buffer.WriteString(content)
			n.complete = true
			return n.count(textComplete(content))
		}
		return nil

	default:
		// Unknown shape that still carries text is treated as a fragment.
		if content := inner.StringField("content"); content != "" {
			n.buffer.WriteString(content)
			return n.count(textDelta(content))
		}
		n.logger.Debug("Skipping unrecognized stream event", "event_type", inner.Type)
		return nil
	}
}

func (n *Normalizer) normalizeToolCall(inner *runtime.Event) *Event {
	name := inner.StringField("name")
	if name == "" {
		name = "Unknown"
	}

	tool := map[string]any{
		"name":   name,
		"status": "executed",
	}
	if strings.Contains(strings.ToLower(name), "computer") {
		tool["type"] = "computer_call"
		for _, field := range []string{"screenshot", "action", "coordinates"} {
			if v, ok := inner.Field(field); ok && v != nil {
				tool[field] = v
			}
		}
	}

	n.toolCalls = append(n.toolCalls, runtime.ToolCall{Name: name, Status: "executed"})
	return toolCall(tool)
}

func (n *Normalizer) count(ev *Event) []*Event {
	if ev == nil {
		return nil
	}
	metrics.EventsTotal.WithLabelValues(string(ev.Kind)).Inc()
	return []*Event{ev}
}

// Text returns the response accumulated so far.
func (n *Normalizer) Text() string { return n.buffer.String() }

// ToolCalls returns the tool invocations observed so far.
func (n *Normalizer) ToolCalls() []runtime.ToolCall { return n.toolCalls }

// SawComplete reports whether a full-message event substituted for the delta
// sequence.
func (n *Normalizer) SawComplete() bool { return n.complete }

func eventType(ev *runtime.Event) string {
	if ev == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%q", ev.Type)
}
