package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// OutputFormat represents the output format for command results.
type OutputFormat string

const (
	// FormatText is human-readable, coloured when the terminal allows it.
	FormatText OutputFormat = "text"
	// FormatJSON is indented JSON.
	FormatJSON OutputFormat = "json"
)

// ParseOutputFormat parses the --output flag.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case FormatText, "":
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (supported: text, json)", s)
	}
}

// Field is one labelled line of text output.
type Field struct {
	Label string
	Value string
}

// Printer writes command results in the selected format.
type Printer struct {
	w      io.Writer
	format OutputFormat
}

// NewPrinter creates a printer writing to w.
func NewPrinter(w io.Writer, format OutputFormat) *Printer {
	return &Printer{w: w, format: format}
}

// Format returns the selected output format.
func (p *Printer) Format() OutputFormat {
	return p.format
}

// JSON writes v as indented JSON.
func (p *Printer) JSON(v any) error {
	encoder := json.NewEncoder(p.w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// Fields writes aligned "label: value" lines. Empty values are skipped.
func (p *Printer) Fields(fields ...Field) error {
	width := 0
	for _, f := range fields {
		if f.Value != "" && len(f.Label) > width {
			width = len(f.Label)
		}
	}
	for _, f := range fields {
		if f.Value == "" {
			continue
		}
		if _, err := fmt.Fprintf(p.w, "%-*s  %s\n", width+1, f.Label+":", f.Value); err != nil {
			return err
		}
	}
	return nil
}

// Successf writes a green line.
func (p *Printer) Successf(format string, args ...any) {
	fmt.Fprintln(p.w, color.GreenString(format, args...))
}

// Warnf writes a yellow line.
func (p *Printer) Warnf(format string, args ...any) {
	fmt.Fprintln(p.w, color.YellowString(format, args...))
}

// Errorf writes a red line.
func (p *Printer) Errorf(format string, args ...any) {
	fmt.Fprintln(p.w, color.RedString(format, args...))
}

// Action colours a policy action name: allow green, warn yellow, anything
// else red.
func Action(action string) string {
	switch action {
	case "allow":
		return color.GreenString(strings.ToUpper(action))
	case "warn":
		return color.YellowString(strings.ToUpper(action))
	default:
		return color.New(color.FgRed, color.Bold).Sprint(strings.ToUpper(action))
	}
}
