package cron

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// entry pairs a registered job with the mutex that keeps its ticks from
// overlapping. A retention purge that outlives its interval must not
// have a second purge racing it against the same database.
type entry struct {
	job     Job
	running sync.Mutex
}

// Scheduler runs registered jobs on 5-field cron expressions. The audit
// module owns one scheduler per store; it carries the retention purge
// and whatever other maintenance a store registers.
type Scheduler struct {
	mu      sync.Mutex
	cron    *cron.Cron
	order   []string
	entries map[string]*entry
	logger  *slog.Logger
	cancel  context.CancelFunc
}

// NewScheduler creates an empty scheduler. Register jobs before Start.
func NewScheduler(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		entries: make(map[string]*entry),
		logger:  logger,
	}
}

// RegisterJob adds a job. Job names are unique; registering the same
// name twice is an error.
func (s *Scheduler) RegisterJob(j Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := j.Name()
	if _, dup := s.entries[name]; dup {
		return fmt.Errorf("cron: duplicate job name %q", name)
	}
	s.entries[name] = &entry{job: j}
	s.order = append(s.order, name)
	return nil
}

// Start parses every registered schedule and begins ticking. An invalid
// expression fails the whole start so a bad retention schedule surfaces
// at module startup, not silently at 3am.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	s.cron = cron.New(cron.WithParser(parser))

	for _, name := range s.order {
		e := s.entries[name]
		if _, err := s.cron.AddFunc(e.job.Schedule(), func() {
			s.tick(ctx, e)
		}); err != nil {
			cancel()
			return fmt.Errorf("cron: invalid schedule for job %q: %w", name, err)
		}
	}

	s.cron.Start()
	s.logger.Info("cron: scheduler started", "jobs", len(s.order))
	return nil
}

// tick runs one scheduled firing of a job. TryLock makes the
// check-and-acquire atomic: if the previous firing is still running the
// tick is dropped rather than queued.
func (s *Scheduler) tick(ctx context.Context, e *entry) {
	if !e.running.TryLock() {
		s.logger.Warn("cron: job still running, skipping tick", "job", e.job.Name())
		return
	}
	defer e.running.Unlock()

	s.logger.Debug("cron: job started", "job", e.job.Name())
	if err := e.job.Run(ctx); err != nil {
		s.logger.Error("cron: job failed", "job", e.job.Name(), "error", err)
		return
	}
	s.logger.Debug("cron: job completed", "job", e.job.Name())
}

// Stop cancels the job context and waits for in-flight runs to finish.
func (s *Scheduler) Stop(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	if s.cron != nil {
		<-s.cron.Stop().Done()
		s.logger.Info("cron: scheduler stopped")
	}
	return nil
}
