package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/warden/pkg/cli"
	"mercator-hq/warden/pkg/config"
)

var (
	// Global flags
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "warden",
	Short: "Warden - guarded conversational-agent gateway",
	Long: `Warden serves a debate agent over HTTP and checks every message in both
directions against a policy gate before it is stored or returned.

The gate runs an ordered pattern cascade (injection, abuse, code, PII,
suspicious content) and falls back to an LLM classifier for text no pattern
decides. Anything other than an explicit allow is rejected.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Errors other than a bare exit status are
// printed to stderr.
func Execute() error {
	err := rootCmd.Execute()
	var exit *cli.ExitError
	if err != nil && !errors.As(err, &exit) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
}

// loadConfig loads cfgFile with environment overrides. Commands pass the
// result down explicitly.
func loadConfig(command string) (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, cli.NewCommandError(command, err)
	}
	return cfg, nil
}
