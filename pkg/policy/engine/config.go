package engine

import "fmt"

// PIIMode selects how the pii category is enforced.
type PIIMode string

const (
	// PIIModeDeny rejects any message containing PII.
	PIIModeDeny PIIMode = "deny"

	// PIIModeObfuscate redacts PII and keeps evaluating the redacted text.
	PIIModeObfuscate PIIMode = "obfuscate"
)

// Config holds engine settings.
type Config struct {
	// PIIMode controls the pii cascade step. Defaults to PIIModeDeny.
	PIIMode PIIMode
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{PIIMode: PIIModeDeny}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	switch c.PIIMode {
	case PIIModeDeny, PIIModeObfuscate:
		return nil
	default:
		return fmt.Errorf("invalid pii mode %q (must be %q or %q)", c.PIIMode, PIIModeDeny, PIIModeObfuscate)
	}
}
