// Package audit keeps a queryable trail of committed allocation, crew and
// sweep operations.
package audit

import (
	"context"
	"fmt"
	"time"
)

// Record captures one committed operation and its outcome.
type Record struct {
	Timestamp time.Time      `json:"timestamp"`
	Kind      string         `json:"kind"`
	JourneyID string         `json:"journey_id,omitempty"`
	VehicleID string         `json:"vehicle_id,omitempty"`
	StaffID   string         `json:"staff_id,omitempty"`
	Outcome   string         `json:"outcome"`
	Error     string         `json:"error,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// Query filters records. Zero values match everything.
type Query struct {
	Start     time.Time
	End       time.Time
	JourneyID string
	Kind      string
}

func (q Query) match(r Record) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.JourneyID != "" && r.JourneyID != q.JourneyID {
		return false
	}
	return q.Kind == "" || r.Kind == q.Kind
}

// Store persists records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

// Config defines settings for audit storage and rotation.
type Config struct {
	// Backend selects the store type: "jsonl" or "sqlite".
	Backend string `json:"backend"`
	// Path is the file location of the store.
	Path string `json:"path"`
	// MaxSizeMB triggers rotation when the file exceeds this size in megabytes.
	MaxSizeMB int `json:"max_size_mb"`
	// MaxBackups limits the number of rotated files to keep.
	MaxBackups int `json:"max_backups"`
	// MaxAgeDays removes rotated files older than this number of days.
	MaxAgeDays int `json:"max_age_days"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "jsonl"
	}
	if c.Path == "" {
		c.Path = "audit.log"
	}
	if c.MaxSizeMB == 0 {
		c.MaxSizeMB = 50
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if c.Backend != "jsonl" && c.Backend != "sqlite" {
		return fmt.Errorf("unknown audit backend %s", c.Backend)
	}
	if c.Path == "" {
		return fmt.Errorf("audit path is required")
	}
	return nil
}

// Open creates the store selected by cfg.
func Open(cfg Config) (Store, error) {
	switch cfg.Backend {
	case "sqlite":
		return NewSQLiteStore(cfg.Path)
	case "jsonl", "":
		return NewRotatingJSONLStore(cfg.Path, cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
	default:
		return nil, fmt.Errorf("unknown audit backend %s", cfg.Backend)
	}
}
