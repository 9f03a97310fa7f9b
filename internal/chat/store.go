package chat

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxIdle is the expiry window applied when none is configured.
// Inherited from the original deployment: a day of silence ends a session.
const DefaultMaxIdle = 24 * time.Hour

// SessionStore manages session lifecycle. Implementations must be safe for
// concurrent use from in-flight request handlers.
type SessionStore interface {
	// Create stores and returns a fresh empty session with a unique id.
	Create() *Session

	// Get returns the session if present, nil otherwise. It does not
	// filter expired sessions; callers decide what expiry means to them.
	Get(id string) *Session

	// GetOrCreate returns the live session for id, or a new session when
	// id is empty, unknown, or names an expired session. An expired entry
	// is evicted eagerly on this path. The bool is true when a new
	// session was created.
	GetOrCreate(id string) (*Session, bool)

	// Remove deletes the session if present and reports whether it existed.
	Remove(id string) bool

	// SweepExpired removes every session idle longer than the expiry
	// window and returns the number removed. Called opportunistically
	// after each processed message, never on a timer, so cleanup cadence
	// follows traffic.
	SweepExpired() int

	// Len returns the number of stored sessions (including not-yet-swept
	// expired ones).
	Len() int

	// Range calls fn for each session. If fn returns false, iteration stops.
	Range(fn func(*Session) bool)
}

// InMemorySessionStore is a concurrency-safe, in-memory SessionStore.
// State is volatile and process-local: nothing survives a restart.
// The `now` function is injectable for deterministic testing.
type InMemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	maxIdle  time.Duration

	now func() time.Time
}

// Compile-time interface check.
var _ SessionStore = (*InMemorySessionStore)(nil)

// NewInMemorySessionStore creates a ready-to-use store. A non-positive
// maxIdle falls back to DefaultMaxIdle.
func NewInMemorySessionStore(maxIdle time.Duration) *InMemorySessionStore {
	if maxIdle <= 0 {
		maxIdle = DefaultMaxIdle
	}
	return &InMemorySessionStore{
		sessions: make(map[string]*Session),
		maxIdle:  maxIdle,
		now:      time.Now,
	}
}

// MaxIdle returns the configured expiry window.
func (s *InMemorySessionStore) MaxIdle() time.Duration {
	return s.maxIdle
}

// Create stores and returns a fresh empty session. IDs are UUIDv4:
// collision-resistant, opaque, never reused.
func (s *InMemorySessionStore) Create() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createLocked()
}

func (s *InMemorySessionStore) createLocked() *Session {
	sess := newSession(uuid.NewString(), s.now())
	s.sessions[sess.ID] = sess
	return sess
}

// Get returns the session for id, or nil. Expired sessions are returned
// as-is; this is the raw lookup.
func (s *InMemorySessionStore) Get(id string) *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[id]
}

// GetOrCreate implements the lazy-eviction path: an expired session found
// under id is removed here and now, and a fresh one takes its place.
func (s *InMemorySessionStore) GetOrCreate(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id != "" {
		if sess, ok := s.sessions[id]; ok {
			if !sess.ExpiredAt(s.now(), s.maxIdle) {
				return sess, false
			}
			delete(s.sessions, id)
		}
	}

	return s.createLocked(), true
}

// Remove deletes the session if present and reports whether it existed.
func (s *InMemorySessionStore) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	return ok
}

// SweepExpired removes all sessions past the expiry window.
func (s *InMemorySessionStore) SweepExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, sess := range s.sessions {
		if sess.ExpiredAt(now, s.maxIdle) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored sessions.
func (s *InMemorySessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Range calls fn for each session. The lock is held for the whole
// iteration; keep fn fast.
func (s *InMemorySessionStore) Range(fn func(*Session) bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sess := range s.sessions {
		if !fn(sess) {
			return
		}
	}
}

// ActiveIDs returns a snapshot of currently stored session ids, used to
// clean up stale serialization lanes.
func (s *InMemorySessionStore) ActiveIDs() map[string]struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make(map[string]struct{}, len(s.sessions))
	for id := range s.sessions {
		ids[id] = struct{}{}
	}
	return ids
}
