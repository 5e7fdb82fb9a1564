// Package agent turns the runtime's heterogeneous event stream into a fixed
// set of session-protocol events. The normalizer classifies raw stream
// events; the orchestrator drives one task through the streaming path with a
// blocking fallback.
package agent

import "github.com/xpandai03/operator-agent/internal/runtime"

// Kind discriminates the closed set of normalized event variants. Raw stream
// shapes from any provider collapse into these at the normalizer boundary.
type Kind string

const (
	// KindStreamStart acknowledges that a task began processing.
	KindStreamStart Kind = "stream_start"
	// KindTextDelta carries one incremental answer fragment.
	KindTextDelta Kind = "text_delta"
	// KindTextComplete carries a full answer delivered at once, used by the
	// fallback path. Never mixed with deltas for the same task.
	KindTextComplete Kind = "text_complete"
	// KindToolCall reports one tool invocation.
	KindToolCall Kind = "tool_call"
	// KindStreamComplete is the success terminal. Exactly one terminal event
	// per task.
	KindStreamComplete Kind = "stream_complete"
	// KindError is the failure terminal, mutually exclusive with
	// KindStreamComplete.
	KindError Kind = "error"
)

// Event is one normalized session-protocol event. Only the fields for its
// Kind are set.
type Event struct {
	Kind Kind

	// Text holds the fragment (KindTextDelta) or full answer
	// (KindTextComplete).
	Text string

	// Tool holds the outbound tool descriptor for KindToolCall: at least
	// {name, status}, plus screenshot/action/coordinates for computer-class
	// tools.
	Tool map[string]any

	// FinalText and ToolCalls are set on KindStreamComplete.
	FinalText string
	ToolCalls []runtime.ToolCall

	// Message holds the start message (KindStreamStart) or the sanitized
	// error (KindError).
	Message string
}

func streamStart(message string) *Event { return &Event{Kind: KindStreamStart, Message: message} }

func textDelta(text string) *Event { return &Event{Kind: KindTextDelta, Text: text} }

func textComplete(text string) *Event { return &Event{Kind: KindTextComplete, Text: text} }

func toolCall(tool map[string]any) *Event { return &Event{Kind: KindToolCall, Tool: tool} }

func streamComplete(finalText string, toolCalls []runtime.ToolCall) *Event {
	if toolCalls == nil {
		toolCalls = []runtime.ToolCall{}
	}
	return &Event{Kind: KindStreamComplete, FinalText: finalText, ToolCalls: toolCalls}
}

func errorEvent(message string) *Event { return &Event{Kind: KindError, Message: message} }
