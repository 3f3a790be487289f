package journal

import (
	"fmt"
	"strings"
	"time"
)

// Backends accepted by Open.
const (
	BackendNone     = "none"
	BackendJSONL    = "jsonl"
	BackendRotating = "rotating"
	BackendSQLite   = "sqlite"
)

// Config selects and tunes a journal backend.
type Config struct {
	Backend    string `json:"backend"`
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
	Buffer     int    `json:"buffer"`
}

// SetDefaults fills rotation settings and the default path.
func (c *Config) SetDefaults() {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	if c.Backend == "" {
		c.Backend = BackendNone
	}
	if c.Path == "" {
		switch c.Backend {
		case BackendSQLite:
			c.Path = "tellocmd-journal.db"
		default:
			c.Path = "tellocmd-journal.jsonl"
		}
	}
	if c.MaxSizeMB <= 0 {
		c.MaxSizeMB = 10
	}
	if c.MaxBackups <= 0 {
		c.MaxBackups = 3
	}
	if c.MaxAgeDays <= 0 {
		c.MaxAgeDays = 7
	}
	if c.Buffer <= 0 {
		c.Buffer = DefaultBuffer
	}
}

// Validate checks the backend name.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendNone, BackendJSONL, BackendRotating, BackendSQLite:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Backend)
}

// Open builds the configured store. The none backend returns a nil store.
func Open(cfg Config) (Store, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case BackendJSONL:
		return NewJSONLStore(cfg.Path)
	case BackendRotating:
		return NewRotatingJSONLStore(cfg.Path, cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
	case BackendSQLite:
		return NewSQLiteStore(cfg.Path)
	}
	return nil, nil
}

func unixNano(ns int64) time.Time { return time.Unix(0, ns) }
