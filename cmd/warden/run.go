package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/warden/pkg/cli"
	"mercator-hq/warden/pkg/config"
	"mercator-hq/warden/pkg/server"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Warden server",
	Long: `Start the Warden server with the specified configuration.

The server listens on the configured address and serves POST /api/chat/
together with /health, /ready, /version and /metrics. SIGINT or SIGTERM
starts a graceful shutdown; a second signal exits immediately.

Examples:
  # Start with default config
  warden run

  # Start with custom config
  warden run --config /etc/warden/config.yaml

  # Override listen address
  warden run --listen 0.0.0.0:8080

  # Validate config without starting server
  warden run --dry-run`,
	Args: cobra.NoArgs,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig("run")
	if err != nil {
		return err
	}

	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if err := config.Validate(cfg); err != nil {
		return cli.NewCommandError("run", err)
	}

	printer := cli.NewPrinter(cmd.OutOrStdout(), cli.FormatText)
	if runFlags.dryRun {
		printer.Successf("Configuration valid: %s", cfgFile)
		return nil
	}

	logger, err := server.NewLogger(cfg.Telemetry.Logging, os.Stdout)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	slog.SetDefault(logger)

	ctx := cli.SetupSignalHandler()

	srv, err := server.New(ctx, cfg,
		server.WithLogger(logger),
		server.WithVersion(versionInfo()),
	)
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}
	return nil
}
