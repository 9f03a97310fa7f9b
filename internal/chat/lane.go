package chat

import "sync"

// LaneLock provides per-session serialization: messages for the same
// session id are applied one at a time, in acquisition order, while
// messages for different sessions proceed in parallel. This keeps a
// session's turn history free of interleaved or lost appends without
// serializing the whole store.
//
// A global mutex protects the lane map; each lane has its own mutex for
// intra-session serialization. The global mutex is held only briefly to
// look up or create the per-session mutex.
type LaneLock struct {
	mu    sync.Mutex
	lanes map[string]*lane
}

// lane stores per-session synchronization metadata. refs counts goroutines
// that acquired (or are waiting on) this lane; stale marks lanes eligible
// for cleanup once refs drops to zero.
type lane struct {
	mu    sync.Mutex
	refs  int
	stale bool
}

// NewLaneLock creates a ready-to-use LaneLock.
func NewLaneLock() *LaneLock {
	return &LaneLock{
		lanes: make(map[string]*lane),
	}
}

// Acquire gets or creates the per-session mutex and locks it.
// The caller must call Release with the same id when done.
func (l *LaneLock) Acquire(id string) {
	l.mu.Lock()
	ln, ok := l.lanes[id]
	if !ok {
		ln = &lane{}
		l.lanes[id] = ln
	}
	ln.refs++
	ln.stale = false
	l.mu.Unlock()

	// Lock outside the global mutex so other sessions are not blocked.
	ln.mu.Lock()
}

// Release unlocks the per-session mutex for the given id.
func (l *LaneLock) Release(id string) {
	l.mu.Lock()
	ln, ok := l.lanes[id]
	if !ok {
		l.mu.Unlock()
		return
	}
	ln.refs--
	if ln.refs == 0 && ln.stale {
		delete(l.lanes, id)
	}
	l.mu.Unlock()

	ln.mu.Unlock()
}

// Cleanup removes lane entries for sessions that are no longer stored.
// activeIDs should contain only the ids of currently live sessions.
// This keeps the lane map from growing without bound.
func (l *LaneLock) Cleanup(activeIDs map[string]struct{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for id, ln := range l.lanes {
		if _, active := activeIDs[id]; !active {
			ln.stale = true
			if ln.refs == 0 {
				delete(l.lanes, id)
			}
		}
	}
}

// Len returns the number of tracked lanes. Used in tests.
func (l *LaneLock) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.lanes)
}
