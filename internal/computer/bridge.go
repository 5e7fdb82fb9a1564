package computer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Bridge forwards computer actions to a remote HTTP endpoint that controls a
// real browser. The wire contract is POST /action, GET /screenshot,
// POST /reset.
type Bridge struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewBridge creates a client for the bridge at baseURL.
func NewBridge(baseURL string, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
	}
}

// BaseURL returns the configured bridge endpoint.
func (b *Bridge) BaseURL() string {
	return b.baseURL
}

// Execute forwards one action to the bridge and retrieves the companion
// screenshot. Transport-level failures are mapped into the Outcome.
func (b *Bridge) Execute(ctx context.Context, actionType string, params map[string]any) *Outcome {
	body := map[string]any{"type": actionType}
	for k, v := range params {
		body[k] = v
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return &Outcome{Success: false, Error: err.Error(), Mode: ModeLive}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/action", bytes.NewReader(payload))
	if err != nil {
		return &Outcome{Success: false, Error: err.Error(), Mode: ModeLive}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		b.logger.Error("Cannot connect to LIVE bridge", "url", b.baseURL, "error", err)
		return &Outcome{Success: false, Error: "unreachable", Mode: ModeLive}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotImplemented {
		b.logger.Warn("LIVE bridge returned 501 Not Implemented")
		return &Outcome{Success: false, Error: "not implemented", Mode: ModeLive}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &Outcome{
			Success: false,
			Error:   fmt.Sprintf("bridge returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail))),
			Mode:    ModeLive,
		}
	}

	var result struct {
		Success bool           `json:"success"`
		State   map[string]any `json:"state"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return &Outcome{Success: false, Error: fmt.Sprintf("decode bridge response: %v", err), Mode: ModeLive}
	}

	screenshot, err := b.Screenshot(ctx)
	if err != nil {
		b.logger.Warn("Failed to fetch bridge screenshot", "error", err)
	}

	return &Outcome{
		Success:    result.Success,
		Screenshot: screenshot,
		State:      result.State,
		Mode:       ModeLive,
	}
}

// Screenshot fetches the current screenshot from the bridge.
func (b *Bridge) Screenshot(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/screenshot", nil)
	if err != nil {
		return nil, err
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get screenshot: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("screenshot returned %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// Reset asks the bridge to clear its browser state.
func (b *Bridge) Reset(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/reset", nil)
	if err != nil {
		return err
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("reset bridge: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("reset returned %d", resp.StatusCode)
	}
	return nil
}
