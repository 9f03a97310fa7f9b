package chat

import (
	"sync"
	"testing"
	"time"
)

// fakeClock is a settable time source shared by the chat tests.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func TestSession_AddTurnPreservesOrder(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	sess := newSession("s1", clock.Now())

	sess.AddTurn(RoleUser, "hello", clock.Now())
	clock.Advance(time.Second)
	sess.AddTurn(RoleAssistant, "hi, how are you feeling?", clock.Now())
	clock.Advance(time.Second)
	sess.AddTurn(RoleUser, "stressed", clock.Now())

	turns := sess.History()
	if len(turns) != 3 {
		t.Fatalf("len(History()) = %d, want 3", len(turns))
	}
	wantRoles := []Role{RoleUser, RoleAssistant, RoleUser}
	for i, turn := range turns {
		if turn.Role != wantRoles[i] {
			t.Errorf("turn %d role = %q, want %q", i, turn.Role, wantRoles[i])
		}
	}
	if !turns[2].Timestamp.After(turns[0].Timestamp) {
		t.Error("timestamps should be monotonically increasing")
	}
}

func TestSession_HistoryReturnsCopy(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	sess := newSession("s1", clock.Now())
	sess.AddTurn(RoleUser, "original", clock.Now())

	turns := sess.History()
	turns[0].Content = "mutated"

	if got := sess.History()[0].Content; got != "original" {
		t.Errorf("History()[0].Content = %q, want %q", got, "original")
	}
}

func TestSession_Recent(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	sess := newSession("s1", clock.Now())
	for i := 0; i < 15; i++ {
		role := RoleUser
		if i%2 == 1 {
			role = RoleAssistant
		}
		sess.AddTurn(role, "turn", clock.Now())
	}

	if got := len(sess.Recent(10)); got != 10 {
		t.Errorf("len(Recent(10)) = %d, want 10", got)
	}
	if got := len(sess.Recent(100)); got != 15 {
		t.Errorf("len(Recent(100)) = %d, want 15", got)
	}

	// Recent must return the tail, not the head.
	sess.AddTurn(RoleUser, "latest", clock.Now())
	recent := sess.Recent(3)
	if recent[len(recent)-1].Content != "latest" {
		t.Errorf("Recent tail = %q, want %q", recent[len(recent)-1].Content, "latest")
	}
}

func TestSession_ExpiredAt(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	sess := newSession("s1", clock.Now())

	if sess.ExpiredAt(clock.Now(), time.Hour) {
		t.Error("fresh session should not be expired")
	}
	if sess.ExpiredAt(clock.Now().Add(time.Hour), time.Hour) {
		t.Error("exactly at the boundary should not count as expired")
	}
	if !sess.ExpiredAt(clock.Now().Add(time.Hour+time.Nanosecond), time.Hour) {
		t.Error("past the boundary should count as expired")
	}

	// Activity resets the clock.
	clock.Advance(50 * time.Minute)
	sess.AddTurn(RoleUser, "still here", clock.Now())
	if sess.ExpiredAt(clock.Now().Add(59*time.Minute), time.Hour) {
		t.Error("activity should reset the idle window")
	}
}

func TestSession_ContextIsCopied(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	sess := newSession("s1", clock.Now())

	if sess.Context() != nil {
		t.Error("empty context should be nil")
	}

	sess.SetContext("mood", "anxious")
	ctx := sess.Context()
	ctx["mood"] = "mutated"

	if got := sess.Context()["mood"]; got != "anxious" {
		t.Errorf("Context()[mood] = %q, want %q", got, "anxious")
	}
}
