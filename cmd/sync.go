package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lanr/missionsync/internal/adapters/gateway"
	"github.com/lanr/missionsync/internal/app"
	"github.com/lanr/missionsync/internal/config"
	"github.com/lanr/missionsync/pkg/logger"
	"github.com/lanr/missionsync/pkg/metrics"
)

func newSyncCommand(root *rootOptions) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Append missing rows to every destination table",
		Long: `Read every destination row count, read the local sources and append the rows
each table is missing, in a fixed order. A failed append does not stop the
others; the command exits non-zero and a re-run appends only what is still missing.

Example:
  missionsync sync --config missionsync.yaml
  missionsync sync --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSync(cmd, root, dryRun)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report pending rows without appending")
	return cmd
}

func newStatusCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show cursors and pending rows per destination",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSync(cmd, root, true)
		},
	}
}

func runSync(cmd *cobra.Command, root *rootOptions, dryRun bool) error {
	ctx := cmd.Context()
	cfg := root.cfg
	if err := cfg.Validate(ctx); err != nil {
		return err
	}

	gw, closeGateway, err := openGateway(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeGateway(); err != nil {
			logger.Get().Warn(ctx, "closing gateway", logger.Error(err))
		}
	}()

	rep, err := execute(ctx, app.New(gw, engineOptions(cfg)...), dryRun)
	if err != nil {
		return err
	}

	if err := writeReport(cmd.OutOrStdout(), root.format, rep); err != nil {
		return err
	}
	if err := exportMetrics(ctx, cfg); err != nil {
		return err
	}
	if rep.Failed() {
		return fmt.Errorf("%w: %w", errRunFailed, rep.Err())
	}
	return nil
}

func execute(ctx context.Context, eng *app.Engine, dryRun bool) (*app.Report, error) {
	if !dryRun {
		return eng.Sync(ctx)
	}
	plan, err := eng.Plan(ctx)
	if err != nil {
		return nil, err
	}
	return plan.Report(), nil
}

func exportMetrics(ctx context.Context, cfg *config.Config) error {
	if cfg.MetricsFile == "" {
		return nil
	}
	if err := metrics.WriteTextfile(cfg.MetricsFile); err != nil {
		return err
	}
	logger.Get().Debug(ctx, "metrics written", logger.String("path", cfg.MetricsFile))
	return nil
}

func newAuthCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Authorize access to the spreadsheet and cache the token",
		Long: `Run the one-time OAuth consent flow for an installed-app client: open the
printed URL, grant access and paste the code back. The token is written to
token_file and refreshed automatically afterwards.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := root.cfg
			if err := gateway.Authorize(cmd.Context(), cfg.CredentialsFile, cfg.TokenFile, cmd.InOrStdin(), cmd.OutOrStdout()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "token saved to %s\n", cfg.TokenFile)
			return nil
		},
	}
}
