package main

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"google.golang.org/api/option"

	"github.com/lanr/missionsync/internal/adapters/gateway"
	"github.com/lanr/missionsync/internal/adapters/source"
	"github.com/lanr/missionsync/internal/app"
	"github.com/lanr/missionsync/internal/config"
	"github.com/lanr/missionsync/internal/domain/layout"
	"github.com/lanr/missionsync/internal/domain/record"
	"github.com/lanr/missionsync/pkg/logger"
	"github.com/lanr/missionsync/pkg/metrics"
)

// errRunFailed is returned when at least one destination failed or was blocked.
var errRunFailed = errors.New("sync finished with failures")

var validFormats = []string{"text", "json"}

// rootOptions holds global flags and the configuration loaded before every command.
type rootOptions struct {
	configPath string
	logLevel   string
	format     string

	cfg *config.Config
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "missionsync",
		Short: "Append new assessment results to the shared spreadsheet",
		Long: `missionsync reads the local survey log and the per-subject session documents
and appends to each destination table exactly the rows it does not hold yet.
Re-running it is safe: every run starts from the row counts of the destination.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.setup(cmd)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (yaml or json); defaults to $MSYNC_CONFIG")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override log_level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&opts.format, "format", "text", "report format (text|json)")

	cmd.AddCommand(newSyncCommand(opts))
	cmd.AddCommand(newStatusCommand(opts))
	cmd.AddCommand(newAuthCommand(opts))
	return cmd
}

// setup loads the configuration and initializes logging.
func (o *rootOptions) setup(cmd *cobra.Command) error {
	if !slices.Contains(validFormats, o.format) {
		return fmt.Errorf("invalid format %q: must be one of %v", o.format, validFormats)
	}

	ctx := cmd.Context()
	cfg, err := config.Load(ctx, o.configPath)
	if err != nil {
		return err
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}

	// Logs go to stderr so the report on stdout stays parseable.
	if err := logger.Init(logger.WithOutput(cmd.ErrOrStderr()), logger.WithFormat(cfg.LogFormat)); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	o.cfg = cfg
	return nil
}

// openGateway connects to the configured destination store. The returned
// close function is never nil.
func openGateway(ctx context.Context, cfg *config.Config) (gateway.Gateway, func() error, error) {
	switch strings.ToLower(cfg.Gateway) {
	case config.GatewaySQLite:
		db, err := gateway.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return db, db.Close, nil
	default:
		ts, err := gateway.TokenSource(ctx, cfg.CredentialsFile, cfg.TokenFile)
		if err != nil {
			return nil, nil, err
		}
		gw, err := gateway.NewSheets(ctx, cfg.DestinationID, option.WithTokenSource(ts))
		if err != nil {
			return nil, nil, err
		}
		return gw, func() error { return nil }, nil
	}
}

// engineOptions translates the configuration into engine sources. Sources
// left empty are not synchronized.
func engineOptions(cfg *config.Config) []app.Option {
	// Validate has already rejected unknown modes.
	mode, _ := app.ParseCursorMode(cfg.PartitionCursor)
	opts := []app.Option{
		app.WithSchema(record.NewSchema(record.WithMatchMode(cfg.MatchMode()))),
		app.WithCursorMode(mode),
		app.WithLogger(logger.Get()),
		app.WithMetrics(metrics.Default()),
	}
	if cfg.CSVPath != "" {
		opts = append(opts, app.WithCSV(cfg.CSVPath,
			source.WithDelimiter(cfg.Delimiter()),
			source.WithStrict(cfg.CSVStrict),
		))
	}

	dirs := [len(layout.Groups)]string{
		layout.SensorPresent: cfg.SensorDocDir,
		layout.SensorAbsent:  cfg.NoSensorDocDir,
	}
	for _, g := range layout.Groups {
		if dirs[g] != "" {
			opts = append(opts, app.WithDocumentDir(g, dirs[g], source.WithMaxEntries(cfg.MaxSessions)))
		}
	}
	return opts
}
