package runtime

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/xpandai03/operator-agent/internal/airtable"
	"github.com/xpandai03/operator-agent/internal/computer"
)

// Tool is a function tool the runtime can offer to the model.
type Tool interface {
	Name() string
	Description() string
	Execute(ctx context.Context, args map[string]any) (string, error)
}

// ComputerTool exposes the execution-mode adapter as a function tool.
type ComputerTool struct {
	adapter *computer.Adapter
}

// NewComputerTool wraps the adapter.
func NewComputerTool(adapter *computer.Adapter) *ComputerTool {
	return &ComputerTool{adapter: adapter}
}

func (t *ComputerTool) Name() string { return "computer" }

func (t *ComputerTool) Description() string {
	return "Control the browser: navigate, click, type, scroll, or take a screenshot. " +
		"Pass an 'action' plus action-specific parameters (url, selector, text, direction)."
}

// Call executes the action and returns the full outcome, including the
// screenshot bytes.
func (t *ComputerTool) Call(ctx context.Context, args map[string]any) *computer.Outcome {
	action, _ := args["action"].(string)
	if action == "" {
		action = "screenshot"
	}
	params := make(map[string]any, len(args))
	for k, v := range args {
		if k != "action" {
			params[k] = v
		}
	}
	return t.adapter.Execute(ctx, action, params)
}

// Execute runs the action and returns a JSON summary for the model. The
// screenshot is omitted from the summary to keep the context small.
func (t *ComputerTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	outcome := t.Call(ctx, args)
	summary := map[string]any{
		"success": outcome.Success,
		"state":   outcome.State,
		"mode":    outcome.Mode,
	}
	if outcome.Error != "" {
		summary["error"] = outcome.Error
	}
	data, err := json.Marshal(summary)
	if err != nil {
		return "", fmt.Errorf("marshal computer outcome: %w", err)
	}
	return string(data), nil
}

// ToolEventPayload builds the event payload for a computer tool invocation,
// attaching the action descriptor and base64 screenshot when present.
func (t *ComputerTool) ToolEventPayload(args map[string]any, outcome *computer.Outcome) map[string]any {
	payload := map[string]any{"name": t.Name()}
	if action, ok := args["action"].(string); ok && action != "" {
		payload["action"] = action
	}
	if coords, ok := args["coordinates"]; ok {
		payload["coordinates"] = coords
	}
	if len(outcome.Screenshot) > 0 {
		payload["screenshot"] = base64.StdEncoding.EncodeToString(outcome.Screenshot)
	}
	return payload
}

var _ Tool = (*ComputerTool)(nil)

// AirtableTool exposes record upserts as a function tool.
type AirtableTool struct {
	client *airtable.Client
}

// NewAirtableTool wraps the client.
func NewAirtableTool(client *airtable.Client) *AirtableTool {
	return &AirtableTool{client: client}
}

func (t *AirtableTool) Name() string { return "upsert_airtable_record" }

func (t *AirtableTool) Description() string {
	return "Add or update a record in Airtable. Pass the fields to insert as a flat object."
}

func (t *AirtableTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	fields := args
	if payload, ok := args["payload"].(map[string]any); ok {
		fields = payload
	}
	result := t.client.UpsertRecord(ctx, fields)
	data, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("marshal airtable result: %w", err)
	}
	return string(data), nil
}

var _ Tool = (*AirtableTool)(nil)
