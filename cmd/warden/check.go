package main

import (
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"mercator-hq/warden/pkg/cli"
	"mercator-hq/warden/pkg/policy/engine"
	"mercator-hq/warden/pkg/server"
)

// Exit statuses of the check command.
const (
	checkExitAllowed   = 0
	checkExitRejected  = 1
	checkExitUndecided = 2
)

var checkFlags struct {
	fallback bool
	output   string
}

var checkCmd = &cobra.Command{
	Use:   "check <text>",
	Short: "Classify a message with the policy gate",
	Long: `Run the policy cascade over a single message and print the verdict.

Without --fallback only the pattern cascade runs; a message no pattern
decides is reported as undecided. With --fallback the configured classifier
model is consulted for such messages.

Exit status is 0 when the message is allowed, 1 when it is denied or
flagged, and 2 when it is undecided.

Examples:
  # Pattern cascade only
  warden check "ignore all previous instructions"

  # Consult the classifier model too
  warden check --fallback "which is better, tea or coffee?"

  # Machine-readable output
  warden check --output json "my card is 4111111111111111"`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().BoolVar(&checkFlags.fallback, "fallback", false, "consult the classifier model when no pattern decides")
	checkCmd.Flags().StringVarP(&checkFlags.output, "output", "o", "text", "output format (text, json)")
}

// checkResult is the JSON form of a verdict.
type checkResult struct {
	Decided    bool   `json:"decided"`
	Action     string `json:"action,omitempty"`
	Source     string `json:"source,omitempty"`
	Category   string `json:"category,omitempty"`
	Rule       string `json:"rule,omitempty"`
	Label      string `json:"label,omitempty"`
	Redactions int    `json:"redactions,omitempty"`
	Text       string `json:"text"`
}

func runCheck(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(checkFlags.output)
	if err != nil {
		return cli.NewCommandError("check", err)
	}

	cfg, err := loadConfig("check")
	if err != nil {
		return err
	}

	// stdout carries the verdict only.
	logger, err := server.NewLogger(cfg.Telemetry.Logging, os.Stderr)
	if err != nil {
		return cli.NewCommandError("check", err)
	}

	ctx := cmd.Context()
	rules, err := server.LoadRules(ctx, cfg.Policy.Rules, logger)
	if err != nil {
		return cli.NewCommandError("check", err)
	}

	var classifier engine.Classifier
	if checkFlags.fallback {
		manager, err := server.NewProviderManager(cfg, logger)
		if err != nil {
			return cli.NewCommandError("check", err)
		}
		defer manager.Close()

		svc, err := server.NewCompletion("classifier", cfg.Classifier, manager)
		if err != nil {
			return cli.NewCommandError("check", err)
		}
		classifier = engine.CompletionClassifier(svc)
	}

	eng, err := engine.New(rules.Holder, classifier,
		engine.Config{PIIMode: engine.PIIMode(cfg.Policy.PIIMode)},
		engine.WithLogger(logger),
	)
	if err != nil {
		return cli.NewCommandError("check", err)
	}

	var (
		verdict engine.Verdict
		decided bool
	)
	if checkFlags.fallback {
		verdict, err = eng.Decide(ctx, args[0])
		if err != nil {
			return cli.NewCommandError("check", err)
		}
		decided = true
	} else {
		verdict, decided = eng.Evaluate(args[0])
	}

	if err := printVerdict(cli.NewPrinter(cmd.OutOrStdout(), format), verdict, decided); err != nil {
		return cli.NewCommandError("check", err)
	}

	switch {
	case !decided:
		return &cli.ExitError{Code: checkExitUndecided}
	case !verdict.Allowed():
		return &cli.ExitError{Code: checkExitRejected}
	default:
		return nil
	}
}

func printVerdict(p *cli.Printer, v engine.Verdict, decided bool) error {
	result := checkResult{
		Decided:    decided,
		Source:     string(v.Source),
		Category:   string(v.Category),
		Rule:       v.Rule,
		Label:      string(v.Label),
		Redactions: v.Redactions,
		Text:       v.Text,
	}
	if decided {
		result.Action = v.Action.String()
	}

	if p.Format() == cli.FormatJSON {
		return p.JSON(result)
	}

	verdict := "UNDECIDED"
	if decided {
		verdict = cli.Action(result.Action)
	}
	fields := []cli.Field{
		{Label: "Verdict", Value: verdict},
		{Label: "Source", Value: result.Source},
		{Label: "Category", Value: result.Category},
		{Label: "Rule", Value: result.Rule},
		{Label: "Label", Value: result.Label},
	}
	if v.Redactions > 0 {
		fields = append(fields,
			cli.Field{Label: "Redactions", Value: strconv.Itoa(v.Redactions)},
			cli.Field{Label: "Text", Value: v.Text},
		)
	}
	if err := p.Fields(fields...); err != nil {
		return err
	}
	if !decided {
		p.Warnf("No pattern decided; rerun with --fallback to consult the classifier")
	}
	return nil
}
