package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/MichalKokolus/chatbot-advisor/internal/chat"
)

// timeLayout is RFC 3339 with millisecond precision; lexicographic order
// matches chronological order, so the created_at index works for range scans.
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// defaultListLimit bounds unfiltered event listings.
const defaultListLimit = 100

// eventStore persists guard events in SQLite.
type eventStore struct {
	db *sql.DB
}

// RecordGuardEvent implements chat.GuardAuditor.
func (s *eventStore) RecordGuardEvent(ctx context.Context, ev chat.GuardEvent) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO guard_events (created_at, session_id, rule, excerpt) VALUES (?, ?, ?, ?)",
		ev.Time.UTC().Format(timeLayout), ev.SessionID, ev.Rule, ev.Excerpt,
	)
	if err != nil {
		return fmt.Errorf("audit.sqlite: record event: %w", err)
	}
	return nil
}

// ListGuardEvents implements chat.GuardEventLister.
func (s *eventStore) ListGuardEvents(ctx context.Context, rule string, limit int) ([]chat.StoredGuardEvent, error) {
	if limit <= 0 || limit > 1000 {
		limit = defaultListLimit
	}

	query := "SELECT id, created_at, session_id, rule, excerpt FROM guard_events"
	args := []any{}
	if rule != "" {
		query += " WHERE rule = ?"
		args = append(args, rule)
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("audit.sqlite: list events: %w", err)
	}
	defer rows.Close() //nolint:errcheck // best-effort close

	var out []chat.StoredGuardEvent
	for rows.Next() {
		var ev chat.StoredGuardEvent
		var created string
		if err := rows.Scan(&ev.ID, &created, &ev.SessionID, &ev.Rule, &ev.Excerpt); err != nil {
			return nil, fmt.Errorf("audit.sqlite: scan event: %w", err)
		}
		if ev.Time, err = time.Parse(timeLayout, created); err != nil {
			return nil, fmt.Errorf("audit.sqlite: parse created_at %q: %w", created, err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// PurgeBefore deletes events recorded before cutoff and returns the count.
func (s *eventStore) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM guard_events WHERE created_at < ?",
		cutoff.UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("audit.sqlite: purge events: %w", err)
	}
	return res.RowsAffected()
}
