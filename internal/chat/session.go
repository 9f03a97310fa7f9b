// Package chat owns conversation state and the message-handling
// orchestrator: sessions with append-only turn history, an in-memory
// session store with lazy expiry, per-session serialization lanes, and the
// pipeline that turns a user message into a guarded assistant response.
package chat

import (
	"sync"
	"time"
)

// Role identifies the author of a turn.
type Role string

// The two turn roles. No other values are produced or accepted.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message exchange unit. Immutable once appended.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is a single conversation: an append-only turn log plus lifecycle
// timestamps and free-form context. All methods are safe for concurrent
// use; turn ordering within a session is the caller's concern (see LaneLock).
type Session struct {
	// ID is an opaque unique token assigned at creation, never reused.
	ID string

	// CreatedAt is fixed at creation.
	CreatedAt time.Time

	mu           sync.RWMutex
	turns        []Turn
	lastActivity time.Time

	// context holds free-form auxiliary state (e.g. user-supplied facts).
	// Nothing reads it today; it is preserved for extension.
	context map[string]string
}

// newSession is called by the store under its lock.
func newSession(id string, now time.Time) *Session {
	return &Session{
		ID:           id,
		CreatedAt:    now,
		lastActivity: now,
	}
}

// AddTurn appends a turn with the given timestamp and bumps LastActivity.
func (s *Session) AddTurn(role Role, content string, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, Turn{
		Role:      role,
		Content:   content,
		Timestamp: now,
	})
	s.lastActivity = now
}

// History returns the full ordered turn log as a copy.
func (s *Session) History() []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Recent returns the n most recent turns. If fewer than n exist, all are
// returned.
func (s *Session) Recent(n int) []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n >= len(s.turns) {
		out := make([]Turn, len(s.turns))
		copy(out, s.turns)
		return out
	}
	out := make([]Turn, n)
	copy(out, s.turns[len(s.turns)-n:])
	return out
}

// Len returns the number of turns.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turns)
}

// LastActivity returns the timestamp of the most recent append (or the
// creation time for a fresh session).
func (s *Session) LastActivity() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActivity
}

// ExpiredAt reports whether the session has been idle longer than maxIdle
// as of now. Pure function of now − LastActivity.
func (s *Session) ExpiredAt(now time.Time, maxIdle time.Duration) bool {
	return now.Sub(s.LastActivity()) > maxIdle
}

// SetContext stores a free-form context value.
func (s *Session) SetContext(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.context == nil {
		s.context = make(map[string]string)
	}
	s.context[key] = value
}

// Context returns a copy of the session's context map.
func (s *Session) Context() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.context) == 0 {
		return nil
	}
	out := make(map[string]string, len(s.context))
	for k, v := range s.context {
		out[k] = v
	}
	return out
}
