// Package airtable provides a minimal client for logging records to an
// Airtable table.
package airtable

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

const defaultBaseURL = "https://api.airtable.com/v0"

// Client upserts records into a single configured table.
type Client struct {
	apiKey    string
	baseID    string
	tableName string
	baseURL   string
	client    *http.Client
	logger    *slog.Logger
}

// NewClient creates an Airtable client for one base/table pair.
func NewClient(apiKey, baseID, tableName string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		apiKey:    apiKey,
		baseID:    baseID,
		tableName: tableName,
		baseURL:   defaultBaseURL,
		client:    &http.Client{Timeout: 15 * time.Second},
		logger:    logger,
	}
}

// UpsertResult reports the outcome of an upsert attempt.
type UpsertResult struct {
	Status   string `json:"status"`
	RecordID string `json:"record_id,omitempty"`
	Message  string `json:"message"`
}

// UpsertRecord inserts a record with the given fields. A timestamp field is
// added when absent. All failures are reported in the result, not as errors,
// so a failed log write never aborts the agent's turn.
func (c *Client) UpsertRecord(ctx context.Context, fields map[string]any) *UpsertResult {
	if _, ok := fields["timestamp"]; !ok {
		fields["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	}

	payload, err := json.Marshal(map[string]any{
		"fields":   fields,
		"typecast": true,
	})
	if err != nil {
		return &UpsertResult{Status: "error", Message: fmt.Sprintf("marshal record: %v", err)}
	}

	url := fmt.Sprintf("%s/%s/%s", c.baseURL, c.baseID, c.tableName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return &UpsertResult{Status: "error", Message: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("Network error calling Airtable", "error", err)
		return &UpsertResult{Status: "error", Message: "could not reach Airtable API"}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		c.logger.Warn("Airtable API error", "status", resp.StatusCode, "body", string(body))
		return &UpsertResult{
			Status:  "error",
			Message: fmt.Sprintf("Airtable API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return &UpsertResult{Status: "error", Message: fmt.Sprintf("decode response: %v", err)}
	}

	c.logger.Info("Airtable record created", "record_id", created.ID)
	return &UpsertResult{
		Status:   "success",
		RecordID: created.ID,
		Message:  "Record successfully added to Airtable",
	}
}
