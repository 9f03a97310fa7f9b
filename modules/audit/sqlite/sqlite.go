// Package sqlite implements a persistent audit trail for guard rule
// activations. It uses modernc.org/sqlite (pure Go, no CGO) with WAL mode
// and a scheduled retention purge. Conversations themselves are never
// persisted; only the rule name, session id, and a bounded excerpt of the
// rewritten model output are stored, so the list thresholds can be tuned
// from real traffic.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/MichalKokolus/chatbot-advisor/internal/chat"
	"github.com/MichalKokolus/chatbot-advisor/internal/core"
	"github.com/MichalKokolus/chatbot-advisor/internal/cron"

	_ "modernc.org/sqlite" // SQLite driver registration
)

func init() {
	core.RegisterModule(&Module{})
}

// Service names published by this module.
const (
	// ServiceEvents exposes the event listing API to the gateway.
	ServiceEvents = "audit.events"
)

// Module is the SQLite-backed guard audit module.
type Module struct {
	config    Config
	db        *sql.DB
	logger    *slog.Logger
	store     *eventStore
	scheduler *cron.Scheduler
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "audit.sqlite",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("audit.sqlite: decode config: %w", err)
	}
	m.config.defaults()
	return nil
}

// Provision implements core.Provisioner. The event store is published
// here so the chat module finds it when it starts.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.config.defaults()
	m.logger = ctx.Logger

	if m.config.Path == "" {
		m.config.Path = filepath.Join(ctx.DataDir, defaultDBFile)
	}

	if dir := filepath.Dir(m.config.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("audit.sqlite: create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", m.config.Path)
	if err != nil {
		return fmt.Errorf("audit.sqlite: open %s: %w", m.config.Path, err)
	}

	// SQLite handles one writer at a time; limit pool to 1 connection
	// so PRAGMAs apply consistently.
	db.SetMaxOpenConns(1)

	if m.config.walEnabled() {
		if _, err := db.ExecContext(context.TODO(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return fmt.Errorf("audit.sqlite: enable WAL: %w", err)
		}
	}
	if _, err := db.ExecContext(context.TODO(), fmt.Sprintf("PRAGMA busy_timeout=%d", m.config.BusyTimeout)); err != nil {
		_ = db.Close()
		return fmt.Errorf("audit.sqlite: set busy_timeout: %w", err)
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return err
	}

	m.db = db
	m.store = &eventStore{db: db}

	m.scheduler = cron.NewScheduler(m.logger)
	if err := m.scheduler.RegisterJob(&retentionJob{
		store:     m.store,
		retention: m.config.Retention,
		schedule:  m.config.RetentionSchedule,
		logger:    m.logger,
	}); err != nil {
		_ = db.Close()
		return err
	}

	ctx.RegisterService(chat.ServiceGuardAuditor, m.store)
	ctx.RegisterService(ServiceEvents, m.store)
	return nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	return m.config.validate()
}

// Start implements core.Starter.
func (m *Module) Start() error {
	if err := m.scheduler.Start(); err != nil {
		return err
	}
	m.logger.Info("audit store started",
		"path", m.config.Path,
		"retention", m.config.Retention,
	)
	return nil
}

// Stop implements core.Stopper.
func (m *Module) Stop(ctx context.Context) error {
	if m.scheduler != nil {
		_ = m.scheduler.Stop(ctx)
	}
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}

// Compile-time interface assertions.
var (
	_ core.Module       = (*Module)(nil)
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
	_ core.Validator    = (*Module)(nil)
	_ core.Starter      = (*Module)(nil)
	_ core.Stopper      = (*Module)(nil)

	_ chat.GuardAuditor     = (*eventStore)(nil)
	_ chat.GuardEventLister = (*eventStore)(nil)
)
