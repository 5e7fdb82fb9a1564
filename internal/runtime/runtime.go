// Package runtime abstracts the LLM agent runtime behind a streaming and a
// blocking entry point. The runtime is a black box that yields an async event
// sequence; event shapes vary by provider and SDK version and are parsed
// defensively downstream.
package runtime

import (
	"context"
	"fmt"
)

// Event is one item from a runtime's event stream. The shape is not
// controlled by this system: Type is the provider's discriminant, Data holds
// a nested event for wrapped transport events, and Payload carries whatever
// fields the provider included.
type Event struct {
	Type    string
	Data    *Event
	Payload map[string]any
}

// StringField returns the named payload field when it is a string.
func (e *Event) StringField(name string) string {
	if e == nil || e.Payload == nil {
		return ""
	}
	s, _ := e.Payload[name].(string)
	return s
}

// Field returns the named payload field, or nil when absent.
func (e *Event) Field(name string) (any, bool) {
	if e == nil || e.Payload == nil {
		return nil, false
	}
	v, ok := e.Payload[name]
	return v, ok
}

// ToolCall summarizes one tool invocation made during a run.
type ToolCall struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Summary string `json:"summary,omitempty"`
}

// ResultMessage is one message in a Result's message-list field.
type ResultMessage struct {
	Role    string
	Content string
}

// Result is the final value of a run. Providers disagree about which field
// carries the answer; Text probes the candidates in priority order.
type Result struct {
	FinalOutput string
	Output      string
	Messages    []ResultMessage
	Content     string
	ToolCalls   []ToolCall
	Raw         any
}

// Text extracts the answer from whichever field is present, in priority
// order: FinalOutput, Output, the first non-empty message content, Content.
// As a last resort the raw result is stringified.
func (r *Result) Text() string {
	if r == nil {
		return ""
	}
	if r.FinalOutput != "" {
		return r.FinalOutput
	}
	if r.Output != "" {
		return r.Output
	}
	for _, msg := range r.Messages {
		if msg.Content != "" {
			return msg.Content
		}
	}
	if r.Content != "" {
		return r.Content
	}
	if r.Raw != nil {
		return fmt.Sprintf("%v", r.Raw)
	}
	return ""
}

// EventStream is an in-flight streaming run.
type EventStream interface {
	// Next returns the next event. io.EOF signals normal end of stream; any
	// other error is a protocol-level failure of the stream itself.
	Next(ctx context.Context) (*Event, error)

	// Result waits for the run to finish and returns its final result.
	Result(ctx context.Context) (*Result, error)
}

// Runtime is the agent runtime consumed by the orchestrator.
type Runtime interface {
	// RunStreamed starts a streaming run for the task.
	RunStreamed(ctx context.Context, task string) (EventStream, error)

	// Run executes the task to completion and returns the final result.
	Run(ctx context.Context, task string) (*Result, error)

	// Close releases runtime resources.
	Close()
}
