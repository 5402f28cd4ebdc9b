package config

import "time"

// Config is the root configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`

	// Providers are keyed by provider name, referenced by Agent.Provider
	// and Classifier.Provider.
	Providers map[string]ProviderConfig `yaml:"providers"`

	// Agent is the debate agent completion.
	Agent CompletionConfig `yaml:"agent"`

	// Classifier is the policy fallback completion.
	Classifier CompletionConfig `yaml:"classifier"`

	Policy    PolicyConfig    `yaml:"policy"`
	Chat      ChatConfig      `yaml:"chat"`
	Storage   StorageConfig   `yaml:"storage"`
	Notify    NotifyConfig    `yaml:"notify"`
	Auth      AuthConfig      `yaml:"auth"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	// ListenAddress is "host:port". Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// RequestTimeout bounds a whole chat turn. Default: 90s
	RequestTimeout time.Duration `yaml:"request_timeout"`

	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// MaxBodyBytes limits the chat request body. Default: 64KiB
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	CORS CORSConfig `yaml:"cors"`
}

// CORSConfig configures cross-origin access to the chat endpoint.
type CORSConfig struct {
	Enabled        bool     `yaml:"enabled"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedHeaders []string `yaml:"allowed_headers"`
	MaxAge         int      `yaml:"max_age"`
}

// ProviderConfig configures one LLM backend.
type ProviderConfig struct {
	// Type is "openai", "anthropic", or "generic". Inferred from the
	// provider name when empty.
	Type string `yaml:"type"`

	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`

	// Timeout bounds one HTTP attempt. Default: 60s
	Timeout time.Duration `yaml:"timeout"`

	// MaxRetries is the number of retries after the first attempt. Default: 2
	MaxRetries int `yaml:"max_retries"`

	// HealthCheckInterval enables periodic health probes when positive.
	HealthCheckInterval time.Duration `yaml:"health_check_interval"`
}

// CompletionConfig configures a completion service.
type CompletionConfig struct {
	// Provider names an entry of Config.Providers.
	Provider string `yaml:"provider"`

	Model        string  `yaml:"model"`
	Instructions string  `yaml:"instructions"`
	Temperature  float64 `yaml:"temperature"`
	MaxTokens    int     `yaml:"max_tokens"`

	// Timeout bounds one completion including retries. Default: 60s
	Timeout time.Duration `yaml:"timeout"`
}

// PolicyConfig configures the policy engine.
type PolicyConfig struct {
	// PIIMode is "deny" or "obfuscate". Default: "deny"
	PIIMode string `yaml:"pii_mode"`

	Rules RulesConfig `yaml:"rules"`
}

// RulesConfig selects where pattern rules come from.
type RulesConfig struct {
	// Mode is "builtin", "file", or "git". Default: "builtin"
	Mode string `yaml:"mode"`

	// FilePath is the rule file for mode "file".
	FilePath string `yaml:"file_path"`

	// Watch reloads FilePath on change.
	Watch bool `yaml:"watch"`

	// Debounce coalesces bursts of file events. Default: 250ms
	Debounce time.Duration `yaml:"debounce"`

	Git GitRulesConfig `yaml:"git"`
}

// GitRulesConfig configures mode "git".
type GitRulesConfig struct {
	Repository string `yaml:"repository"`
	Branch     string `yaml:"branch"`

	// Path is the rule file inside the repository.
	Path string `yaml:"path"`

	// LocalPath is the clone directory. Default: "data/rules"
	LocalPath string `yaml:"local_path"`

	Token            string `yaml:"token"`
	SSHKeyPath       string `yaml:"ssh_key_path"`
	SSHKeyPassphrase string `yaml:"ssh_key_passphrase"`

	// PollSchedule is a cron expression. Default: "*/5 * * * *"
	PollSchedule string `yaml:"poll_schedule"`

	Timeout time.Duration `yaml:"timeout"`
}

// ChatConfig configures the conversation orchestrator.
type ChatConfig struct {
	// HistoryLimit bounds the returned transcript. Default: 5
	HistoryLimit int `yaml:"history_limit"`

	// HistoryFetchLimit bounds messages loaded on resume. Default: 20
	HistoryFetchLimit int `yaml:"history_fetch_limit"`

	// InboundRejection is "strict" or "recover". Default: "strict"
	InboundRejection string `yaml:"inbound_rejection"`

	// RecoveryReply is sent in recover mode.
	RecoveryReply string `yaml:"recovery_reply"`
}

// StorageConfig configures the conversation store.
type StorageConfig struct {
	// Backend is "sqlite" or "memory". Default: "sqlite"
	Backend string `yaml:"backend"`

	// Compression for context blobs: "none", "zstd", or "lz4". Default: "zstd"
	Compression string `yaml:"compression"`

	SQLite    SQLiteConfig    `yaml:"sqlite"`
	Retention RetentionConfig `yaml:"retention"`
}

// SQLiteConfig configures the SQLite backend.
type SQLiteConfig struct {
	// Driver is "sqlite" (modernc, pure Go) or "sqlite3" (mattn, cgo).
	// Default: "sqlite"
	Driver string `yaml:"driver"`

	// Path is the database file, or ":memory:". Default: "data/warden.db"
	Path string `yaml:"path"`

	MaxOpenConns int           `yaml:"max_open_conns"`
	WALMode      *bool         `yaml:"wal_mode"`
	BusyTimeout  time.Duration `yaml:"busy_timeout"`
}

// RetentionConfig configures pruning of idle conversations.
type RetentionConfig struct {
	// Days is the idle age after which a conversation is deleted. Zero
	// keeps conversations forever.
	Days int `yaml:"days"`

	// Schedule is a cron expression for automatic pruning. Empty disables
	// the scheduler; "warden prune" still works.
	Schedule string `yaml:"schedule"`
}

// NotifyConfig configures alert delivery for flagged messages.
type NotifyConfig struct {
	// Log writes alerts to the process log. Default: true
	Log *bool `yaml:"log"`

	Webhook WebhookConfig `yaml:"webhook"`
}

// WebhookConfig configures the webhook notifier. Disabled when URL is empty.
type WebhookConfig struct {
	URL        string            `yaml:"url"`
	Headers    map[string]string `yaml:"headers"`
	Timeout    time.Duration     `yaml:"timeout"`
	MaxRetries int               `yaml:"max_retries"`
}

// AuthConfig configures API key authentication of the chat endpoint.
type AuthConfig struct {
	Enabled bool `yaml:"enabled"`

	// Sources are tried in order. Default: Authorization header with the
	// Bearer scheme, then X-API-Key.
	Sources []APIKeySource `yaml:"sources"`

	Keys []APIKeyConfig `yaml:"keys"`
}

// APIKeySource names where a key is read from.
type APIKeySource struct {
	// Type is "header" or "query".
	Type   string `yaml:"type"`
	Name   string `yaml:"name"`
	Scheme string `yaml:"scheme,omitempty"`
}

// APIKeyConfig is one accepted key.
type APIKeyConfig struct {
	Key     string `yaml:"key"`
	Name    string `yaml:"name"`
	Enabled *bool  `yaml:"enabled"`
}

// IsEnabled reports whether the key is accepted. Keys are enabled unless
// explicitly disabled.
func (k APIKeyConfig) IsEnabled() bool {
	return k.Enabled == nil || *k.Enabled
}

// TelemetryConfig configures observability.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
	Health  HealthConfig  `yaml:"health"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	// Level is "debug", "info", "warn", or "error". Default: "info"
	Level string `yaml:"level"`

	// Format is "json" or "text". Default: "json"
	Format string `yaml:"format"`

	AddSource bool `yaml:"add_source"`

	// RedactPII masks credentials and PII in log values. Default: true
	RedactPII *bool `yaml:"redact_pii"`

	RedactPatterns []RedactPattern `yaml:"redact_patterns"`
}

// RedactPattern is a custom log redaction rule.
type RedactPattern struct {
	Name        string `yaml:"name"`
	Pattern     string `yaml:"pattern"`
	Replacement string `yaml:"replacement"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Enabled defaults to true.
	Enabled *bool `yaml:"enabled"`

	// Path defaults to "/metrics".
	Path string `yaml:"path"`

	// Namespace defaults to "warden".
	Namespace string `yaml:"namespace"`
}

// TracingConfig configures OpenTelemetry export.
type TracingConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Endpoint    string        `yaml:"endpoint"`
	Insecure    bool          `yaml:"insecure"`
	Timeout     time.Duration `yaml:"timeout"`
	ServiceName string        `yaml:"service_name"`

	// Sampler is "always", "never", or "ratio". Default: "always"
	Sampler     string  `yaml:"sampler"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// HealthConfig configures the readiness probe.
type HealthConfig struct {
	// CheckTimeout bounds each readiness check. Default: 5s
	CheckTimeout time.Duration `yaml:"check_timeout"`
}

// BoolValue dereferences an optional boolean.
func BoolValue(b *bool, fallback bool) bool {
	if b == nil {
		return fallback
	}
	return *b
}
