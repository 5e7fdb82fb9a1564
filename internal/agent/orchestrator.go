package agent

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/xpandai03/operator-agent/internal/metrics"
	"github.com/xpandai03/operator-agent/internal/runtime"
	"github.com/xpandai03/operator-agent/internal/session"
)

const startMessage = "Starting task..."

// Orchestrator runs one task at a time per session: it drives the runtime's
// streaming path through the normalizer, falls back to the blocking path on a
// protocol-level failure, and records the turn in session history. Every task
// ends with exactly one terminal event.
type Orchestrator struct {
	runtime runtime.Runtime
	store   session.Store
	logger  *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewOrchestrator creates an orchestrator. runtime may be nil when no backend
// is configured; tasks then fail with an initialization error but the session
// stays usable.
func NewOrchestrator(rt runtime.Runtime, store session.Store, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		runtime: rt,
		store:   store,
		logger:  logger,
		locks:   make(map[string]*sync.Mutex),
	}
}

// Run executes one task for the session, delivering each normalized event
// through emit in order. Tasks for the same session are serialized; distinct
// sessions run independently. Run itself never returns an error: failures
// surface as a terminal KindError event.
func (o *Orchestrator) Run(ctx context.Context, sessionID, task string, emit func(*Event)) {
	lock := o.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	if o.runtime == nil {
		o.logger.Error("Task rejected: no runtime configured", "session_id", sessionID)
		o.terminate(emit, errorEvent("Failed to initialize agent"))
		return
	}

	if err := o.store.Append(ctx, sessionID, session.RoleUser, task); err != nil {
		o.logger.Error("Failed to record user message", "session_id", sessionID, "error", err)
	}

	emit(streamStart(startMessage))

	finalText, toolCalls, err := o.streamTask(ctx, sessionID, task, emit)
	if err != nil {
		// Protocol-level failure of the streaming path: run the blocking
		// path exactly once.
		o.logger.Warn("Streaming failed, falling back to blocking run", "session_id", sessionID, "error", err)
		metrics.FallbacksTotal.Inc()

		result, runErr := o.runtime.Run(ctx, task)
		if runErr != nil {
			o.logger.Error("Blocking fallback failed", "session_id", sessionID, "error", runErr)
			o.terminate(emit, errorEvent(sanitizeError(runErr)))
			return
		}
		finalText = result.Text()
		toolCalls = result.ToolCalls
		emit(textComplete(finalText))
	}

	if err := o.store.Append(ctx, sessionID, session.RoleAssistant, finalText); err != nil {
		o.logger.Error("Failed to record assistant message", "session_id", sessionID, "error", err)
	}

	metrics.TasksTotal.WithLabelValues("complete").Inc()
	emit(streamComplete(finalText, toolCalls))
}

// streamTask drives the streaming path. A non-nil error means the stream
// failed at the protocol level and the caller should fall back; per-event
// failures are absorbed by the normalizer.
func (o *Orchestrator) streamTask(ctx context.Context, sessionID, task string, emit func(*Event)) (string, []runtime.ToolCall, error) {
	stream, err := o.runtime.RunStreamed(ctx, task)
	if err != nil {
		return "", nil, err
	}

	norm := NewNormalizer(o.logger)
	for {
		raw, err := stream.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", nil, err
		}
		for _, ev := range norm.Normalize(raw) {
			emit(ev)
		}
	}

	finalText := norm.Text()
	toolCalls := norm.ToolCalls()

	if finalText == "" {
		// The stream carried no usable text. One recovery attempt: probe
		// the run's final result.
		result, err := stream.Result(ctx)
		if err != nil {
			return "", nil, err
		}
		finalText = result.Text()
		if len(toolCalls) == 0 {
			toolCalls = result.ToolCalls
		}
		if finalText != "" {
			emit(textComplete(finalText))
		} else {
			o.logger.Warn("Run produced no extractable text", "session_id", sessionID)
		}
	}

	return finalText, toolCalls, nil
}

func (o *Orchestrator) terminate(emit func(*Event), ev *Event) {
	metrics.TasksTotal.WithLabelValues("error").Inc()
	emit(ev)
}

func (o *Orchestrator) sessionLock(sessionID string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	lock, ok := o.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		o.locks[sessionID] = lock
	}
	return lock
}

// sanitizeError rewrites error text that looks like it leaks credentials
// before it reaches the client.
func sanitizeError(err error) string {
	msg := err.Error()
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "api_key") || strings.Contains(lower, "api key") || strings.Contains(lower, "sk-") {
		return "API key not configured properly"
	}
	return msg
}
