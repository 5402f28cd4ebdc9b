// Package cli holds helpers shared by the warden commands: output
// formatting, error and exit-status handling, and signal setup.
//
//	p := cli.NewPrinter(os.Stdout, cli.FormatText)
//	p.Fields(cli.Field{Label: "verdict", Value: cli.Action("deny")})
//
// Colour follows github.com/fatih/color, which disables itself when stdout
// is not a terminal or NO_COLOR is set.
//
// For graceful shutdown on SIGINT/SIGTERM:
//
//	ctx := cli.SetupSignalHandler()
package cli
