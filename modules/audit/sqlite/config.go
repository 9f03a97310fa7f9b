package sqlite

import (
	"fmt"
	"time"
)

const (
	defaultBusyTimeout = 5000
	defaultDBFile      = "audit.db"
	defaultRetention   = 30 * 24 * time.Hour
	defaultSchedule    = "0 3 * * *"
)

// Config holds the SQLite audit module configuration.
type Config struct {
	// Path is the database file path. Defaults to {DataDir}/audit.db.
	Path string `yaml:"path"`

	// WAL enables WAL journal mode for concurrent reads. Defaults to true.
	WAL *bool `yaml:"wal"`

	// BusyTimeout is the milliseconds to wait on a busy lock. Defaults to 5000.
	BusyTimeout int `yaml:"busy_timeout"`

	// Retention is how long guard events are kept. Defaults to 30 days.
	Retention time.Duration `yaml:"retention"`

	// RetentionSchedule is the cron expression for the purge job.
	// Defaults to a daily run at 03:00.
	RetentionSchedule string `yaml:"retention_schedule"`
}

func (c *Config) defaults() {
	if c.WAL == nil {
		t := true
		c.WAL = &t
	}
	if c.BusyTimeout == 0 {
		c.BusyTimeout = defaultBusyTimeout
	}
	if c.Retention == 0 {
		c.Retention = defaultRetention
	}
	if c.RetentionSchedule == "" {
		c.RetentionSchedule = defaultSchedule
	}
}

func (c *Config) walEnabled() bool {
	return c.WAL == nil || *c.WAL
}

func (c *Config) validate() error {
	if c.BusyTimeout < 0 {
		return fmt.Errorf("audit.sqlite: busy_timeout must be non-negative, got %d", c.BusyTimeout)
	}
	if c.Retention < 0 {
		return fmt.Errorf("audit.sqlite: retention must be non-negative, got %s", c.Retention)
	}
	return nil
}
