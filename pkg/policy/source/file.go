// Package source loads pattern rule sets from files and Git repositories and
// keeps the active rule set current as those sources change.
package source

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"mercator-hq/warden/pkg/policy/patterns"
)

// LoadError reports a rule file that could not be read or parsed.
type LoadError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load rules from %q: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *LoadError) Unwrap() error {
	return e.Err
}

// Extensions lists the rule file extensions LoadFile understands.
var Extensions = []string{".yaml", ".yml", ".json", ".jsonc"}

// LoadFile reads a rule file and compiles it into a RuleSet.
//
// YAML files (.yaml, .yml) are decoded with yaml.v3. JSON files (.json,
// .jsonc) may contain comments and trailing commas.
//
//	mode: extend
//	categories:
//	  suspicious:
//	    - name: seed_phrase
//	      pattern: '\bseed phrase\b'
func LoadFile(path string) (*patterns.RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	spec, err := ParseSpec(filepath.Ext(path), data)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	rules, err := patterns.Compile(spec)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	return rules.WithSource(path), nil
}

// ParseSpec decodes rule file contents according to the file extension.
func ParseSpec(ext string, data []byte) (patterns.RuleSetSpec, error) {
	var spec patterns.RuleSetSpec

	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &spec); err != nil {
			return spec, fmt.Errorf("invalid YAML: %w", err)
		}
	case ".json", ".jsonc":
		if err := json.Unmarshal(jsonc.ToJSON(data), &spec); err != nil {
			return spec, fmt.Errorf("invalid JSON: %w", err)
		}
	default:
		return spec, fmt.Errorf("unsupported rule file extension %q", ext)
	}

	return spec, nil
}
