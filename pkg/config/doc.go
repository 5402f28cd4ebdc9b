// Package config loads the gateway configuration.
//
// Configuration is read from a YAML file, completed with defaults,
// overridden by WARDEN_SECTION_FIELD environment variables, and validated:
//
//	cfg, err := config.LoadConfigWithEnvOverrides("config.yaml")
//
// Validation collects every problem into a ValidationError of FieldErrors
// instead of stopping at the first one.
//
// There is no process-wide instance. Commands load a *Config and pass it to
// the components they build.
//
// # Example
//
//	server:
//	  listen_address: "127.0.0.1:8080"
//	providers:
//	  openai:
//	    base_url: "https://api.openai.com/v1"
//	    api_key: "${OPENAI_API_KEY}"
//	agent:
//	  provider: openai
//	  model: gpt-4o-mini
//	classifier:
//	  provider: openai
//	  model: gpt-4o-mini
//	policy:
//	  pii_mode: deny
//	  rules:
//	    mode: file
//	    file_path: rules.yaml
//	    watch: true
//	chat:
//	  history_limit: 5
//	  inbound_rejection: strict
//	storage:
//	  backend: sqlite
//	  compression: zstd
//	  sqlite:
//	    path: data/warden.db
//	  retention:
//	    days: 30
//	    schedule: "0 3 * * *"
//
// Values of the form ${NAME} are expanded from the environment when the
// file is loaded.
package config
