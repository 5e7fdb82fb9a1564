// Package computer implements the execution-mode adapter for computer-use
// actions. A single Adapter fronts two interchangeable backends: an
// in-process simulator and a remote HTTP bridge.
package computer

import (
	"context"
	"log/slog"
)

// Mode selects the execution backend.
type Mode string

const (
	// ModeMock executes actions against the in-process simulator.
	ModeMock Mode = "MOCK"
	// ModeLive forwards actions to the remote bridge.
	ModeLive Mode = "LIVE"
)

// SupportedActions is the fixed set of action types the adapter accepts.
var SupportedActions = []string{"navigate", "click", "type", "scroll", "screenshot"}

// maxActionsPerRun bounds how many computer actions one agent turn may take.
const maxActionsPerRun = 30

// Outcome is the result of a single computer action. Produced fresh per call;
// not persisted beyond the event it accompanies.
type Outcome struct {
	Success    bool           `json:"success"`
	Screenshot []byte         `json:"-"`
	State      map[string]any `json:"state,omitempty"`
	Mode       Mode           `json:"mode"`
	Error      string         `json:"error,omitempty"`
}

// Adapter executes computer actions via the backend selected at construction.
type Adapter struct {
	mode   Mode
	stub   *Stub
	bridge *Bridge
	logger *slog.Logger
}

// NewAdapter creates an adapter in the given mode. bridgeURL is only used in
// LIVE mode.
func NewAdapter(mode Mode, bridgeURL string, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}

	a := &Adapter{mode: mode, logger: logger}
	if mode == ModeLive {
		a.bridge = NewBridge(bridgeURL, logger)
		logger.Info("Computer adapter initialized", "mode", mode, "bridge_url", bridgeURL)
	} else {
		a.stub = NewStub(logger)
		logger.Info("Computer adapter initialized", "mode", mode)
	}
	return a
}

// Mode returns the adapter's execution mode.
func (a *Adapter) Mode() Mode {
	return a.mode
}

// Execute performs one computer action. Backend failures are reported in the
// Outcome, never as an error; the agent's turn continues either way.
func (a *Adapter) Execute(ctx context.Context, actionType string, params map[string]any) *Outcome {
	if a.mode == ModeLive {
		return a.bridge.Execute(ctx, actionType, params)
	}

	screenshot, state, err := a.stub.Execute(actionType, params)
	if err != nil {
		a.logger.Error("Mock execution failed", "action", actionType, "error", err)
		return &Outcome{Success: false, Error: err.Error(), Mode: ModeMock}
	}
	return &Outcome{
		Success:    true,
		Screenshot: screenshot,
		State:      state,
		Mode:       ModeMock,
	}
}

// Screenshot returns the current visual state without performing an action.
func (a *Adapter) Screenshot(ctx context.Context) ([]byte, error) {
	if a.mode == ModeLive {
		return a.bridge.Screenshot(ctx)
	}
	screenshot, _, err := a.stub.Execute("screenshot", map[string]any{})
	return screenshot, err
}

// Reset clears the backend's state. Remote reset failures are logged, not
// raised.
func (a *Adapter) Reset(ctx context.Context) {
	if a.mode == ModeLive {
		if err := a.bridge.Reset(ctx); err != nil {
			a.logger.Error("Failed to reset bridge", "error", err)
		} else {
			a.logger.Info("Live bridge reset")
		}
		return
	}
	a.stub.Reset()
}

// Capabilities describes the adapter's current configuration.
func (a *Adapter) Capabilities() map[string]any {
	caps := map[string]any{
		"mode":                string(a.mode),
		"available_actions":   SupportedActions,
		"max_actions_per_run": maxActionsPerRun,
	}
	if a.mode == ModeLive {
		caps["bridge_url"] = a.bridge.BaseURL()
	}
	return caps
}
