package computer

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

const homeURL = "mock://home"

// ActionRecord is one entry in the simulator's action log.
type ActionRecord struct {
	Action    string         `json:"action"`
	Params    map[string]any `json:"params"`
	Timestamp time.Time      `json:"timestamp"`
	Count     int            `json:"count"`
}

// Stub simulates computer actions without a real browser. It keeps a logical
// location, an action counter, and an action log, and synthesizes a rendered
// screenshot for every action.
type Stub struct {
	mu          sync.Mutex
	actionCount int
	currentURL  string
	history     []ActionRecord
	logger      *slog.Logger
}

// NewStub creates a simulator in its initial state.
func NewStub(logger *slog.Logger) *Stub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Stub{currentURL: homeURL, logger: logger}
}

// Execute performs one simulated action and returns the rendered screenshot
// and the resulting state snapshot.
func (s *Stub) Execute(actionType string, params map[string]any) ([]byte, map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.actionCount++
	s.history = append(s.history, ActionRecord{
		Action:    actionType,
		Params:    params,
		Timestamp: time.Now().UTC(),
		Count:     s.actionCount,
	})
	s.logger.Info("MOCK computer action", "count", s.actionCount, "action", actionType, "params", params)

	state := s.updateState(actionType, params)

	screenshot, err := renderScreenshot(actionType, params, state)
	if err != nil {
		return nil, nil, err
	}
	return screenshot, state, nil
}

func (s *Stub) updateState(actionType string, params map[string]any) map[string]any {
	var notes []string

	switch actionType {
	case "navigate":
		if url, ok := params["url"].(string); ok && url != "" {
			s.currentURL = url
		} else {
			s.currentURL = "mock://unknown"
		}
		notes = append(notes, fmt.Sprintf("Navigated to %s", s.currentURL))

	case "click":
		selector, _ := params["selector"].(string)
		if selector == "" {
			selector = "unknown"
		}
		notes = append(notes, fmt.Sprintf("Clicked on %s", selector))

		// Click targets naming a known logical region also move the location.
		lower := strings.ToLower(selector)
		if strings.Contains(lower, "cart") {
			s.currentURL = "mock://cart"
			notes = append(notes, "Navigated to cart page")
		} else if strings.Contains(lower, "jacket") {
			s.currentURL = "mock://product/jacket"
			notes = append(notes, "Viewing jacket product page")
		}

	case "type":
		text, _ := params["text"].(string)
		selector, _ := params["selector"].(string)
		notes = append(notes, fmt.Sprintf("Typed %q into %s", text, selector))

	case "scroll":
		direction, _ := params["direction"].(string)
		if direction == "" {
			direction = "down"
		}
		notes = append(notes, fmt.Sprintf("Scrolled %s", direction))

	default:
		notes = append(notes, fmt.Sprintf("Performed %s action", actionType))
	}

	return map[string]any{
		"url":          s.currentURL,
		"action_count": s.actionCount,
		"last_action":  actionType,
		"notes":        notes,
		"success":      true,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
	}
}

// History returns a copy of the action log.
func (s *Stub) History() []ActionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ActionRecord, len(s.history))
	copy(out, s.history)
	return out
}

// Reset restores the simulator to its initial state.
func (s *Stub) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actionCount = 0
	s.currentURL = homeURL
	s.history = nil
	s.logger.Info("Computer stub reset")
}
