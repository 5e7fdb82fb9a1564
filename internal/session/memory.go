package session

import (
	"container/list"
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps sessions in process memory, bounded by a least-recently-
// used eviction policy so the map cannot grow without limit.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*list.Element // session id -> element holding *Session
	order    *list.List               // front = most recently used
	capacity int
}

// NewMemoryStore creates an in-memory session store holding at most capacity
// sessions.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = 256
	}
	return &MemoryStore{
		sessions: make(map[string]*list.Element),
		order:    list.New(),
		capacity: capacity,
	}
}

// GetOrCreate returns the session with the given id, creating it if needed.
func (s *MemoryStore) GetOrCreate(_ context.Context, sessionID string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	if el, ok := s.sessions[sessionID]; ok {
		s.order.MoveToFront(el)
		return el.Value.(*Session), nil
	}

	sess := &Session{ID: sessionID, CreatedAt: time.Now().UTC()}
	s.sessions[sessionID] = s.order.PushFront(sess)
	for s.order.Len() > s.capacity {
		oldest := s.order.Back()
		evicted := oldest.Value.(*Session)
		s.order.Remove(oldest)
		delete(s.sessions, evicted.ID)
		slog.Info("Evicted least-recently-used session", "session_id", evicted.ID, "messages", len(evicted.Messages))
	}
	return sess, nil
}

// Append adds a message to the session's history, creating the session if it
// does not exist yet.
func (s *MemoryStore) Append(ctx context.Context, sessionID, role, content string) error {
	sess, err := s.GetOrCreate(ctx, sessionID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sess.Messages = append(sess.Messages, Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	})
	return nil
}

// History returns the session's messages in insertion order.
func (s *MemoryStore) History(_ context.Context, sessionID string) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.sessions[sessionID]
	if !ok {
		return []Message{}, nil
	}
	s.order.MoveToFront(el)
	sess := el.Value.(*Session)
	out := make([]Message, len(sess.Messages))
	copy(out, sess.Messages)
	return out, nil
}

// Clear removes all messages from a session.
func (s *MemoryStore) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.sessions[sessionID]; ok {
		el.Value.(*Session).Messages = nil
	}
	return nil
}

// Close releases store resources.
func (s *MemoryStore) Close() error {
	return nil
}

var _ Store = (*MemoryStore)(nil)
