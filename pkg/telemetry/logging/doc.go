// Package logging builds the process logger.
//
// New returns a *slog.Logger whose handler redacts PII from attribute
// values and adds request and conversation identifiers carried by the
// context:
//
//	logger, err := logging.New(logging.Config{Level: "info", Format: "json", RedactPII: true})
//	ctx = logging.WithRequestID(ctx, "req-123")
//	logger.InfoContext(ctx, "turn completed", "api_key", key) // request_id added, api_key redacted
//
// Components receive the logger by injection and add a "component"
// attribute with With.
package logging
