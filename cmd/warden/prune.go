package main

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/warden/pkg/cli"
	"mercator-hq/warden/pkg/server"
)

var errNegativeDays = errors.New("--days must not be negative")

var pruneFlags struct {
	days int
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete idle conversations",
	Long: `Run one retention cycle against the configured store.

Conversations whose last activity is older than the retention period are
deleted together with their entries. The period comes from
storage.retention.days unless --days is given.

Examples:
  # Use the configured retention period
  warden prune

  # Delete conversations idle for more than a week
  warden prune --days 7`,
	Args: cobra.NoArgs,
	RunE: runPrune,
}

func init() {
	rootCmd.AddCommand(pruneCmd)

	pruneCmd.Flags().IntVar(&pruneFlags.days, "days", 0, "override retention period in days")
}

func runPrune(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig("prune")
	if err != nil {
		return err
	}
	if pruneFlags.days < 0 {
		return cli.NewCommandError("prune", errNegativeDays)
	}
	if pruneFlags.days > 0 {
		cfg.Storage.Retention.Days = pruneFlags.days
	}

	printer := cli.NewPrinter(cmd.OutOrStdout(), cli.FormatText)
	if cfg.Storage.Retention.Days == 0 {
		printer.Warnf("Retention is disabled; set storage.retention.days or pass --days")
		return nil
	}

	logger, err := server.NewLogger(cfg.Telemetry.Logging, cmd.ErrOrStderr())
	if err != nil {
		return cli.NewCommandError("prune", err)
	}

	store, err := server.NewStore(cfg.Storage, logger)
	if err != nil {
		return cli.NewCommandError("prune", err)
	}
	defer store.Close()

	pruner := server.NewPruner(store, cfg.Storage.Retention, logger)
	deleted, err := pruner.Prune(cmd.Context())
	if err != nil {
		return cli.NewCommandError("prune", err)
	}

	printer.Successf("Pruned %d conversation(s) idle since %s", deleted, pruner.Cutoff().Format(time.RFC3339))
	return nil
}
