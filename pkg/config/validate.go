package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"

	"mercator-hq/warden/pkg/telemetry/logging"
	"mercator-hq/warden/pkg/telemetry/tracing"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the field, e.g. "server.listen_address".
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d errors:\n", len(e.Errors))
	for _, err := range e.Errors {
		fmt.Fprintf(&sb, "  - %s\n", err.Error())
	}
	return sb.String()
}

// HasField reports whether field failed validation.
func (e ValidationError) HasField(field string) bool {
	for _, fe := range e.Errors {
		if fe.Field == field {
			return true
		}
	}
	return false
}

type fieldErrors []FieldError

func (f *fieldErrors) add(field, format string, args ...any) {
	*f = append(*f, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// Validate checks cfg and returns a ValidationError holding every failed
// field, or nil. Validate expects defaults to have been applied.
func Validate(cfg *Config) error {
	var errs fieldErrors

	validateServer(&cfg.Server, &errs)
	validateProviders(cfg.Providers, &errs)
	validateCompletion("agent", &cfg.Agent, cfg.Providers, &errs)
	validateCompletion("classifier", &cfg.Classifier, cfg.Providers, &errs)
	validatePolicy(&cfg.Policy, &errs)
	validateChat(&cfg.Chat, &errs)
	validateStorage(&cfg.Storage, &errs)
	validateNotify(&cfg.Notify, &errs)
	validateAuth(&cfg.Auth, &errs)
	validateTelemetry(&cfg.Telemetry, &errs)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateServer(s *ServerConfig, errs *fieldErrors) {
	if s.ListenAddress == "" {
		errs.add("server.listen_address", "listen address is required")
	}
	for field, d := range map[string]int64{
		"server.read_timeout":     int64(s.ReadTimeout),
		"server.write_timeout":    int64(s.WriteTimeout),
		"server.idle_timeout":     int64(s.IdleTimeout),
		"server.shutdown_timeout": int64(s.ShutdownTimeout),
		"server.request_timeout":  int64(s.RequestTimeout),
	} {
		if d < 0 {
			errs.add(field, "must not be negative")
		}
	}
	if s.MaxHeaderBytes < 0 {
		errs.add("server.max_header_bytes", "must not be negative")
	}
	if s.MaxBodyBytes < 0 {
		errs.add("server.max_body_bytes", "must not be negative")
	}
}

func validateProviders(providers map[string]ProviderConfig, errs *fieldErrors) {
	if len(providers) == 0 {
		errs.add("providers", "at least one provider is required")
		return
	}
	for name, p := range providers {
		field := "providers." + name
		typ := p.Type
		if typ == "" {
			typ = inferProviderType(name)
		}
		switch typ {
		case "openai", "anthropic":
		case "generic":
			if p.BaseURL == "" {
				errs.add(field+".base_url", "base URL is required for generic providers")
			}
		default:
			errs.add(field+".type", "unsupported provider type %q (supported: openai, anthropic, generic)", p.Type)
		}
		if p.BaseURL != "" {
			if u, err := url.Parse(p.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
				errs.add(field+".base_url", "invalid URL %q", p.BaseURL)
			}
		}
		if p.Timeout < 0 {
			errs.add(field+".timeout", "must not be negative")
		}
		if p.MaxRetries < 0 {
			errs.add(field+".max_retries", "must not be negative")
		}
	}
}

// inferProviderType maps a provider name to its adapter type when Type is
// left empty.
func inferProviderType(name string) string {
	switch name {
	case "openai", "anthropic":
		return name
	default:
		return "generic"
	}
}

func validateCompletion(section string, c *CompletionConfig, providers map[string]ProviderConfig, errs *fieldErrors) {
	if c.Provider == "" {
		errs.add(section+".provider", "provider is required when more than one provider is configured")
	} else if _, ok := providers[c.Provider]; !ok {
		errs.add(section+".provider", "unknown provider %q", c.Provider)
	}
	if c.Model == "" {
		errs.add(section+".model", "model is required")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		errs.add(section+".temperature", "must be between 0 and 2")
	}
	if c.MaxTokens < 0 {
		errs.add(section+".max_tokens", "must not be negative")
	}
	if c.Timeout < 0 {
		errs.add(section+".timeout", "must not be negative")
	}
}

func validatePolicy(p *PolicyConfig, errs *fieldErrors) {
	switch p.PIIMode {
	case "deny", "obfuscate":
	default:
		errs.add("policy.pii_mode", "must be deny or obfuscate, got %q", p.PIIMode)
	}

	r := &p.Rules
	switch r.Mode {
	case "builtin":
	case "file":
		if r.FilePath == "" {
			errs.add("policy.rules.file_path", "file path is required for mode file")
		}
	case "git":
		if r.Git.Repository == "" {
			errs.add("policy.rules.git.repository", "repository is required for mode git")
		}
		if r.Git.Path == "" {
			errs.add("policy.rules.git.path", "rule file path is required for mode git")
		}
		if _, err := cron.ParseStandard(r.Git.PollSchedule); err != nil {
			errs.add("policy.rules.git.poll_schedule", "invalid cron expression: %v", err)
		}
		if r.Git.Token != "" && r.Git.SSHKeyPath != "" {
			errs.add("policy.rules.git", "token and ssh_key_path are mutually exclusive")
		}
	default:
		errs.add("policy.rules.mode", "must be builtin, file, or git, got %q", r.Mode)
	}
	if r.Debounce < 0 {
		errs.add("policy.rules.debounce", "must not be negative")
	}
}

func validateChat(c *ChatConfig, errs *fieldErrors) {
	if c.HistoryLimit < 0 {
		errs.add("chat.history_limit", "must not be negative")
	}
	if c.HistoryFetchLimit < 0 {
		errs.add("chat.history_fetch_limit", "must not be negative")
	} else if c.HistoryFetchLimit < c.HistoryLimit-2 {
		errs.add("chat.history_fetch_limit", "must be at least history_limit-2 (%d), got %d", c.HistoryLimit-2, c.HistoryFetchLimit)
	}
	switch c.InboundRejection {
	case "strict", "recover":
	default:
		errs.add("chat.inbound_rejection", "must be strict or recover, got %q", c.InboundRejection)
	}
}

func validateStorage(s *StorageConfig, errs *fieldErrors) {
	switch s.Backend {
	case "memory":
	case "sqlite":
		switch s.SQLite.Driver {
		case "sqlite", "sqlite3":
		default:
			errs.add("storage.sqlite.driver", "must be sqlite or sqlite3, got %q", s.SQLite.Driver)
		}
		if s.SQLite.Path == "" {
			errs.add("storage.sqlite.path", "path is required")
		}
		if s.SQLite.MaxOpenConns < 0 {
			errs.add("storage.sqlite.max_open_conns", "must not be negative")
		}
	default:
		errs.add("storage.backend", "must be sqlite or memory, got %q", s.Backend)
	}

	switch s.Compression {
	case "none", "zstd", "lz4":
	default:
		errs.add("storage.compression", "must be none, zstd, or lz4, got %q", s.Compression)
	}

	if s.Retention.Days < 0 {
		errs.add("storage.retention.days", "must not be negative")
	}
	if s.Retention.Schedule != "" {
		if _, err := cron.ParseStandard(s.Retention.Schedule); err != nil {
			errs.add("storage.retention.schedule", "invalid cron expression: %v", err)
		}
		if s.Retention.Days == 0 {
			errs.add("storage.retention.days", "must be positive when a schedule is set")
		}
	}
}

func validateNotify(n *NotifyConfig, errs *fieldErrors) {
	w := &n.Webhook
	if w.URL != "" {
		u, err := url.Parse(w.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs.add("notify.webhook.url", "invalid URL %q", w.URL)
		}
	}
	if w.Timeout < 0 {
		errs.add("notify.webhook.timeout", "must not be negative")
	}
	if w.MaxRetries < 0 {
		errs.add("notify.webhook.max_retries", "must not be negative")
	}
}

func validateAuth(a *AuthConfig, errs *fieldErrors) {
	if !a.Enabled {
		return
	}
	enabled := 0
	seen := make(map[string]bool)
	for i, k := range a.Keys {
		field := fmt.Sprintf("auth.keys[%d]", i)
		if k.Key == "" {
			errs.add(field+".key", "key is required")
			continue
		}
		if seen[k.Key] {
			errs.add(field+".key", "duplicate key")
		}
		seen[k.Key] = true
		if k.IsEnabled() {
			enabled++
		}
	}
	if enabled == 0 {
		errs.add("auth.keys", "at least one enabled key is required when auth is enabled")
	}
	for i, s := range a.Sources {
		field := fmt.Sprintf("auth.sources[%d]", i)
		switch s.Type {
		case "header", "query":
		default:
			errs.add(field+".type", "must be header or query, got %q", s.Type)
		}
		if s.Name == "" {
			errs.add(field+".name", "name is required")
		}
	}
}

func validateTelemetry(t *TelemetryConfig, errs *fieldErrors) {
	if _, err := logging.ParseLevel(t.Logging.Level); err != nil {
		errs.add("telemetry.logging.level", "%v", err)
	}
	switch strings.ToLower(t.Logging.Format) {
	case "json", "text", "console":
	default:
		errs.add("telemetry.logging.format", "must be json or text, got %q", t.Logging.Format)
	}
	if _, err := logging.NewRedactor(toLoggingPatterns(t.Logging.RedactPatterns)); err != nil {
		errs.add("telemetry.logging.redact_patterns", "%v", err)
	}

	if !strings.HasPrefix(t.Metrics.Path, "/") {
		errs.add("telemetry.metrics.path", "must start with /")
	}

	if t.Tracing.Enabled && t.Tracing.Endpoint == "" {
		errs.add("telemetry.tracing.endpoint", "endpoint is required when tracing is enabled")
	}
	if err := tracing.ValidateSampler(t.Tracing.Sampler, t.Tracing.SampleRatio); err != nil {
		errs.add("telemetry.tracing.sampler", "%v", err)
	}

	if t.Health.CheckTimeout < 0 {
		errs.add("telemetry.health.check_timeout", "must not be negative")
	}
}

func toLoggingPatterns(in []RedactPattern) []logging.Pattern {
	out := make([]logging.Pattern, len(in))
	for i, p := range in {
		out[i] = logging.Pattern{Name: p.Name, Pattern: p.Pattern, Replacement: p.Replacement}
	}
	return out
}

// LoggingPatterns converts configured redaction patterns for the logger.
func (l LoggingConfig) LoggingPatterns() []logging.Pattern {
	return toLoggingPatterns(l.RedactPatterns)
}
