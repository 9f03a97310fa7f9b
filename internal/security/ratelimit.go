package security

import (
	"errors"
	"sync"
	"time"
)

// ErrRateLimited is returned when a request exceeds the rate limit.
var ErrRateLimited = errors.New("rate limit exceeded")

// RateLimitConfig holds configurable rate limits for the chat API.
type RateLimitConfig struct {
	// MessagesPerMin caps chat messages per client key per minute.
	MessagesPerMin int `yaml:"messages_per_min"`
}

// defaultMessagesPerMin is applied when the configured limit is zero or negative.
const defaultMessagesPerMin = 30

// RateLimiter implements sliding-window rate limiting keyed by client
// (session id or remote address). Each key tracks timestamps of recent
// events within a one-minute window. Idle keys are pruned opportunistically.
type RateLimiter struct {
	mu      sync.Mutex
	limit   int
	windows map[string][]time.Time
	now     func() time.Time
}

// NewRateLimiter creates a rate limiter with the given config.
// Zero-value fields are replaced with defaults.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	limit := cfg.MessagesPerMin
	if limit <= 0 {
		limit = defaultMessagesPerMin
	}
	return &RateLimiter{
		limit:   limit,
		windows: make(map[string][]time.Time),
		now:     time.Now,
	}
}

const rateWindow = time.Minute

// WithClock overrides the limiter's time source so callers can age the
// window deterministically. Returns the limiter for chaining.
func (rl *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	rl.now = now
	return rl
}

// Tracked reports how many client keys currently hold window state.
func (rl *RateLimiter) Tracked() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.windows)
}

// Allow checks whether another message from the given client key is
// permitted. Returns nil if allowed, ErrRateLimited otherwise.
func (rl *RateLimiter) Allow(key string) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	cutoff := now.Add(-rateWindow)

	events := rl.windows[key]
	// Drop events that have slid out of the window.
	kept := events[:0]
	for _, ts := range events {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= rl.limit {
		rl.windows[key] = kept
		return ErrRateLimited
	}

	rl.windows[key] = append(kept, now)
	return nil
}

// PruneIdle removes keys with no events inside the window. Intended to be
// called opportunistically (e.g. alongside session sweeps) to bound memory.
func (rl *RateLimiter) PruneIdle() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rateWindow)
	for key, events := range rl.windows {
		live := false
		for _, ts := range events {
			if ts.After(cutoff) {
				live = true
				break
			}
		}
		if !live {
			delete(rl.windows, key)
		}
	}
}
