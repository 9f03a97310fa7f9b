package sqlite

import (
	"context"
	"log/slog"
	"time"

	"github.com/MichalKokolus/chatbot-advisor/internal/cron"
)

// retentionJob purges guard events older than the retention window.
type retentionJob struct {
	store     *eventStore
	retention time.Duration
	schedule  string
	logger    *slog.Logger
}

// Compile-time interface check.
var _ cron.Job = (*retentionJob)(nil)

// Name implements cron.Job.
func (j *retentionJob) Name() string { return "audit_retention" }

// Schedule implements cron.Job.
func (j *retentionJob) Schedule() string { return j.schedule }

// Run implements cron.Job.
func (j *retentionJob) Run(ctx context.Context) error {
	cutoff := time.Now().Add(-j.retention)
	purged, err := j.store.PurgeBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	if purged > 0 {
		j.logger.Info("purged expired guard events", "count", purged)
	}
	return nil
}
