// Package config defines the sync configuration and how it is loaded.
//
// Conventions:
// - Defaults come from New; Load layers an optional file and env vars on top.
// - All functions accept context.Context as the first parameter.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/lanr/missionsync/internal/domain/record"
)

// Supported gateway backends.
const (
	GatewaySheets = "sheets"
	GatewaySQLite = "sqlite"
)

// Where partition table deltas start.
const (
	PartitionCursorOwn = "partition"
	PartitionCursorAll = "all"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Gateway selects the destination backend: sheets or sqlite.
	Gateway string `koanf:"gateway"`

	// DestinationID is the spreadsheet identifier.
	DestinationID string `koanf:"destination_id"`

	// CSVPath is the delimited survey log.
	CSVPath string `koanf:"csv_path"`

	// SensorDocDir and NoSensorDocDir hold the subject history documents of
	// each sensor group.
	SensorDocDir   string `koanf:"sensor_doc_dir"`
	NoSensorDocDir string `koanf:"no_sensor_doc_dir"`

	// CredentialsFile holds OAuth client secrets or a service account key.
	CredentialsFile string `koanf:"credentials_file"`

	// TokenFile caches the user OAuth token.
	TokenFile string `koanf:"token_file"`

	// SQLitePath is the database used by the sqlite gateway.
	SQLitePath string `koanf:"sqlite_path"`

	// MaxSessions is the per-subject session window.
	MaxSessions int `koanf:"max_sessions"`

	// CSVDelimiter is the single-character field delimiter.
	CSVDelimiter string `koanf:"csv_delimiter"`

	// CSVStrict rejects ragged rows instead of keeping them as-is.
	CSVStrict bool `koanf:"csv_strict"`

	// SentinelMatch is how the "-1" absent marker is matched: substring or exact.
	SentinelMatch string `koanf:"sentinel_match"`

	// PartitionCursor is where partition deltas start: "partition" uses each
	// partition table's own row count, "all" the row count of the all table.
	PartitionCursor string `koanf:"partition_cursor"`

	// MetricsFile, when set, receives the run metrics in Prometheus text format.
	MetricsFile string `koanf:"metrics_file"`
}

// New creates a Config with defaults. Context is accepted first to satisfy the
// project-wide convention.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:        "info",
		LogFormat:       "text",
		Gateway:         GatewaySheets,
		CredentialsFile: "credentials.json",
		TokenFile:       "token.json",
		SQLitePath:      "missionsync.db",
		MaxSessions:     10,
		CSVDelimiter:    ",",
		SentinelMatch:   "substring",
		PartitionCursor: PartitionCursorOwn,
	}
}

// Delimiter returns the configured delimiter rune.
func (c *Config) Delimiter() rune {
	r, _ := utf8.DecodeRuneInString(c.CSVDelimiter)
	return r
}

// MatchMode returns the parsed sentinel match mode.
func (c *Config) MatchMode() record.MatchMode {
	m, _ := record.ParseMatchMode(c.SentinelMatch)
	return m
}

// Validate checks the configuration for a sync run.
func (c *Config) Validate(_ context.Context) error {
	switch strings.ToLower(c.Gateway) {
	case GatewaySheets:
		if c.DestinationID == "" {
			return fmt.Errorf("%w: destination_id must not be empty", ErrInvalidConfig)
		}
	case GatewaySQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("%w: sqlite_path must not be empty", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown gateway %q", ErrInvalidConfig, c.Gateway)
	}
	if c.CSVPath == "" && c.SensorDocDir == "" && c.NoSensorDocDir == "" {
		return fmt.Errorf("%w: no source configured (csv_path, sensor_doc_dir, no_sensor_doc_dir)", ErrInvalidConfig)
	}
	if c.MaxSessions <= 0 {
		return fmt.Errorf("%w: max_sessions must be positive", ErrInvalidConfig)
	}
	if utf8.RuneCountInString(c.CSVDelimiter) != 1 {
		return fmt.Errorf("%w: csv_delimiter must be a single character", ErrInvalidConfig)
	}
	if _, err := record.ParseMatchMode(c.SentinelMatch); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	switch strings.ToLower(c.PartitionCursor) {
	case PartitionCursorOwn, PartitionCursorAll:
	default:
		return fmt.Errorf("%w: partition_cursor must be %q or %q", ErrInvalidConfig, PartitionCursorOwn, PartitionCursorAll)
	}
	return nil
}
