package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

const agentInstructions = "You are a helpful assistant with access to multiple tools:\n" +
	"- Use the computer tool to control the browser when tasks mention 'open', 'click', 'type', or 'add to cart'\n" +
	"- Use upsert_airtable_record to log records when requested\n" +
	"When using the computer tool, explain your actions step by step."

// defaultMaxRounds bounds the tool-call loop for one task.
const defaultMaxRounds = 8

// OpenAI is the live agent runtime backed by the OpenAI API. It runs a
// bounded tool loop: function tool calls requested by the model are executed
// and their results fed back until the model produces a final answer.
type OpenAI struct {
	client       *openai.Client
	model        string
	tools        map[string]Tool
	computerTool *ComputerTool
	maxRounds    int
	logger       *slog.Logger
}

// NewOpenAI creates a live runtime for the given model and tools.
func NewOpenAI(apiKey, model string, tools []Tool, logger *slog.Logger) (*OpenAI, error) {
	if apiKey == "" {
		return nil, errors.New("OpenAI API key not set")
	}
	if logger == nil {
		logger = slog.Default()
	}

	// The v2 SDK returns the client by value.
	c := openai.NewClient(option.WithAPIKey(apiKey))

	o := &OpenAI{
		client:    &c,
		model:     model,
		tools:     make(map[string]Tool, len(tools)),
		maxRounds: defaultMaxRounds,
		logger:    logger,
	}
	for _, t := range tools {
		o.tools[t.Name()] = t
		if ct, ok := t.(*ComputerTool); ok {
			o.computerTool = ct
		}
	}
	return o, nil
}

// Close releases runtime resources.
func (o *OpenAI) Close() {}

// RunStreamed starts a streaming run for the task.
func (o *OpenAI) RunStreamed(ctx context.Context, task string) (EventStream, error) {
	s := &liveStream{
		ctx:    ctx,
		events: make(chan *Event, 16),
		done:   make(chan struct{}),
	}
	go o.drive(ctx, task, s)
	return s, nil
}

func (o *OpenAI) drive(ctx context.Context, task string, s *liveStream) {
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(agentInstructions),
		openai.UserMessage(task),
	}
	var toolCalls []ToolCall

	for round := 0; round < o.maxRounds; round++ {
		stream := o.client.Chat.Completions.NewStreaming(ctx, openai.ChatCompletionNewParams{
			Model:    openai.ChatModel(o.model),
			Messages: messages,
			Tools:    o.toolParams(),
		})

		acc := openai.ChatCompletionAccumulator{}
		for stream.Next() {
			chunk := stream.Current()
			acc.AddChunk(chunk)
			if len(chunk.Choices) > 0 {
				if delta := chunk.Choices[0].Delta.Content; delta != "" {
					s.emit(wrapped("response.output_text.delta", map[string]any{"delta": delta}))
				}
			}
		}
		if err := stream.Err(); err != nil {
			s.finish(nil, fmt.Errorf("chat stream failed: %w", err))
			return
		}
		if len(acc.Choices) == 0 {
			s.finish(nil, errors.New("chat stream returned no choices"))
			return
		}

		msg := acc.Choices[0].Message
		if len(msg.ToolCalls) == 0 {
			s.emit(wrapped("response.done", nil))
			s.finish(&Result{FinalOutput: msg.Content, ToolCalls: toolCalls}, nil)
			return
		}

		messages = append(messages, msg.ToParam())
		for _, tc := range msg.ToolCalls {
			output, status := o.invokeTool(ctx, s, tc.Function.Name, tc.Function.Arguments)
			toolCalls = append(toolCalls, ToolCall{Name: tc.Function.Name, Status: status})
			messages = append(messages, openai.ToolMessage(output, tc.ID))
		}
	}

	s.emit(wrapped("response.done", nil))
	s.finish(&Result{
		Content:   "Stopped after reaching the tool-call limit for this task.",
		ToolCalls: toolCalls,
	}, nil)
}

// invokeTool executes one requested tool call, emitting the matching tool
// event before returning the output fed back to the model.
func (o *OpenAI) invokeTool(ctx context.Context, s *liveStream, name, rawArgs string) (output, status string) {
	var args map[string]any
	if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
		o.logger.Warn("Malformed tool arguments", "tool", name, "error", err)
		args = map[string]any{}
	}

	if o.computerTool != nil && name == o.computerTool.Name() {
		outcome := o.computerTool.Call(ctx, args)
		s.emit(wrapped("response.tool_call", o.computerTool.ToolEventPayload(args, outcome)))
		summary := map[string]any{"success": outcome.Success, "state": outcome.State, "mode": outcome.Mode}
		if outcome.Error != "" {
			summary["error"] = outcome.Error
		}
		data, _ := json.Marshal(summary)
		if !outcome.Success {
			return string(data), "error"
		}
		return string(data), "executed"
	}

	s.emit(wrapped("response.tool_call", map[string]any{"name": name}))

	tool, ok := o.tools[name]
	if !ok {
		o.logger.Warn("Model requested unknown tool", "tool", name)
		return fmt.Sprintf("unknown tool %q", name), "error"
	}
	out, err := tool.Execute(ctx, args)
	if err != nil {
		o.logger.Error("Tool execution failed", "tool", name, "error", err)
		return err.Error(), "error"
	}
	return out, "executed"
}

// Run executes the task to completion without streaming.
func (o *OpenAI) Run(ctx context.Context, task string) (*Result, error) {
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(agentInstructions),
		openai.UserMessage(task),
	}
	var toolCalls []ToolCall

	for round := 0; round < o.maxRounds; round++ {
		resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Model:    openai.ChatModel(o.model),
			Messages: messages,
			Tools:    o.toolParams(),
		})
		if err != nil {
			return nil, fmt.Errorf("chat completion failed: %w", err)
		}
		if len(resp.Choices) == 0 {
			return nil, errors.New("chat completion returned no choices")
		}

		msg := resp.Choices[0].Message
		if len(msg.ToolCalls) == 0 {
			return &Result{FinalOutput: msg.Content, ToolCalls: toolCalls}, nil
		}

		messages = append(messages, msg.ToParam())
		for _, tc := range msg.ToolCalls {
			output, status := o.invokeToolBlocking(ctx, tc.Function.Name, tc.Function.Arguments)
			toolCalls = append(toolCalls, ToolCall{Name: tc.Function.Name, Status: status})
			messages = append(messages, openai.ToolMessage(output, tc.ID))
		}
	}

	return &Result{
		Content:   "Stopped after reaching the tool-call limit for this task.",
		ToolCalls: toolCalls,
	}, nil
}

func (o *OpenAI) invokeToolBlocking(ctx context.Context, name, rawArgs string) (output, status string) {
	var args map[string]any
	if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
		args = map[string]any{}
	}
	tool, ok := o.tools[name]
	if !ok {
		return fmt.Sprintf("unknown tool %q", name), "error"
	}
	out, err := tool.Execute(ctx, args)
	if err != nil {
		return err.Error(), "error"
	}
	return out, "executed"
}

// toolParams converts the registered tools into the OpenAI tool format. A
// generic object schema is used and argument shapes are described in the
// tool description.
func (o *OpenAI) toolParams() []openai.ChatCompletionToolUnionParam {
	if len(o.tools) == 0 {
		return nil
	}
	var out []openai.ChatCompletionToolUnionParam
	for _, t := range o.tools {
		out = append(out, openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        t.Name(),
			Description: openai.String(t.Description()),
			Parameters: openai.FunctionParameters{
				"type":       "object",
				"properties": map[string]any{},
			},
		}))
	}
	return out
}

// liveStream bridges the driver goroutine to the EventStream consumer.
type liveStream struct {
	ctx    context.Context
	events chan *Event
	result *Result
	err    error
	done   chan struct{}
}

func (s *liveStream) emit(ev *Event) {
	select {
	case s.events <- ev:
	case <-s.ctx.Done():
	}
}

// finish records the outcome and closes the stream. err is set before the
// channels close so readers observe it after drain.
func (s *liveStream) finish(result *Result, err error) {
	s.result = result
	s.err = err
	close(s.events)
	close(s.done)
}

func (s *liveStream) Next(ctx context.Context) (*Event, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case ev, ok := <-s.events:
		if !ok {
			if s.err != nil {
				return nil, s.err
			}
			return nil, io.EOF
		}
		return ev, nil
	}
}

func (s *liveStream) Result(ctx context.Context) (*Result, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.done:
		return s.result, s.err
	}
}

var _ Runtime = (*OpenAI)(nil)
