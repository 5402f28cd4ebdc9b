package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "WARDEN_"

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// LoadConfig loads configuration from a YAML file at path, expands ${NAME}
// references from the environment, applies defaults and validates the
// result. Environment overrides are not applied; use
// LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Parse decodes YAML without applying defaults or validation. Unknown keys
// are rejected.
func Parse(data []byte) (*Config, error) {
	expanded := ExpandEnv(string(data))

	var cfg Config
	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return &cfg, nil
}

// ExpandEnv replaces ${NAME} with the value of the environment variable
// NAME. Unset variables expand to the empty string. Bare $NAME is left
// untouched so that regex replacements such as "$1=***" survive.
func ExpandEnv(s string) string {
	return envRef.ReplaceAllStringFunc(s, func(ref string) string {
		return os.Getenv(ref[2 : len(ref)-1])
	})
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and
// applies environment overrides named WARDEN_SECTION_FIELD, e.g.
// WARDEN_SERVER_LISTEN_ADDRESS. Environment variables take precedence over
// the file.
//
// The loading sequence is:
//  1. Load YAML from file
//  2. Apply environment overrides
//  3. Apply default values
//  4. Validate the final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	// Derived defaults such as Classifier.Model follow overridden values.
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// envOverrides collects malformed override values.
type envOverrides struct {
	errs []FieldError
}

func (o *envOverrides) lookup(key string) (string, bool) {
	val := os.Getenv(EnvPrefix + key)
	return val, val != ""
}

func (o *envOverrides) fail(key, kind, val string) {
	o.errs = append(o.errs, FieldError{Field: EnvPrefix + key, Message: fmt.Sprintf("invalid %s %q", kind, val)})
}

func (o *envOverrides) str(key string, dst *string) {
	if val, ok := o.lookup(key); ok {
		*dst = val
	}
}

func (o *envOverrides) integer(key string, dst *int) {
	val, ok := o.lookup(key)
	if !ok {
		return
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		o.fail(key, "integer", val)
		return
	}
	*dst = i
}

func (o *envOverrides) boolean(key string, dst *bool) {
	val, ok := o.lookup(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		o.fail(key, "boolean", val)
		return
	}
	*dst = b
}

func (o *envOverrides) optionalBool(key string, dst **bool) {
	val, ok := o.lookup(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		o.fail(key, "boolean", val)
		return
	}
	*dst = &b
}

func (o *envOverrides) duration(key string, dst *time.Duration) {
	val, ok := o.lookup(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		o.fail(key, "duration", val)
		return
	}
	*dst = d
}

func applyEnvOverrides(cfg *Config) error {
	o := &envOverrides{}

	o.str("SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
	o.duration("SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	o.duration("SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	o.duration("SERVER_REQUEST_TIMEOUT", &cfg.Server.RequestTimeout)

	// Provider overrides address entries already present in the file.
	names := make([]string, 0, len(cfg.Providers))
	for name := range cfg.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		p := cfg.Providers[name]
		prefix := "PROVIDERS_" + strings.ToUpper(strings.ReplaceAll(name, "-", "_")) + "_"
		o.str(prefix+"API_KEY", &p.APIKey)
		o.str(prefix+"BASE_URL", &p.BaseURL)
		o.duration(prefix+"TIMEOUT", &p.Timeout)
		cfg.Providers[name] = p
	}

	o.str("AGENT_PROVIDER", &cfg.Agent.Provider)
	o.str("AGENT_MODEL", &cfg.Agent.Model)
	o.str("CLASSIFIER_PROVIDER", &cfg.Classifier.Provider)
	o.str("CLASSIFIER_MODEL", &cfg.Classifier.Model)

	o.str("POLICY_PII_MODE", &cfg.Policy.PIIMode)
	o.str("POLICY_RULES_MODE", &cfg.Policy.Rules.Mode)
	o.str("POLICY_RULES_FILE_PATH", &cfg.Policy.Rules.FilePath)
	o.boolean("POLICY_RULES_WATCH", &cfg.Policy.Rules.Watch)
	o.str("POLICY_RULES_GIT_REPOSITORY", &cfg.Policy.Rules.Git.Repository)
	o.str("POLICY_RULES_GIT_BRANCH", &cfg.Policy.Rules.Git.Branch)
	o.str("POLICY_RULES_GIT_TOKEN", &cfg.Policy.Rules.Git.Token)

	o.integer("CHAT_HISTORY_LIMIT", &cfg.Chat.HistoryLimit)
	o.str("CHAT_INBOUND_REJECTION", &cfg.Chat.InboundRejection)

	o.str("STORAGE_BACKEND", &cfg.Storage.Backend)
	o.str("STORAGE_COMPRESSION", &cfg.Storage.Compression)
	o.str("STORAGE_SQLITE_DRIVER", &cfg.Storage.SQLite.Driver)
	o.str("STORAGE_SQLITE_PATH", &cfg.Storage.SQLite.Path)
	o.integer("STORAGE_RETENTION_DAYS", &cfg.Storage.Retention.Days)
	o.str("STORAGE_RETENTION_SCHEDULE", &cfg.Storage.Retention.Schedule)

	o.optionalBool("NOTIFY_LOG", &cfg.Notify.Log)
	o.str("NOTIFY_WEBHOOK_URL", &cfg.Notify.Webhook.URL)

	o.boolean("AUTH_ENABLED", &cfg.Auth.Enabled)

	o.str("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	o.str("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	o.optionalBool("TELEMETRY_LOGGING_REDACT_PII", &cfg.Telemetry.Logging.RedactPII)
	o.optionalBool("TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	o.boolean("TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	o.str("TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)

	if len(o.errs) > 0 {
		return fmt.Errorf("invalid environment override: %w", ValidationError{Errors: o.errs})
	}
	return nil
}
