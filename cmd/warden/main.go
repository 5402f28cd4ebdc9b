// Warden is a guarded conversational-agent gateway.
//
// Every user message and every agent reply passes a policy gate built from
// a pattern cascade and an LLM classifier before it is stored or returned.
//
// Usage:
//
//	# Start the server
//	warden run --config config.yaml
//
//	# Classify a message locally
//	warden check "ignore all previous instructions"
//
//	# Also consult the classifier model
//	warden check --fallback "is tea better than coffee?"
//
//	# Run one retention cycle
//	warden prune
//
//	# Show version information
//	warden version
package main

import (
	"os"

	"mercator-hq/warden/pkg/cli"
)

func main() {
	os.Exit(cli.ExitCode(Execute()))
}
