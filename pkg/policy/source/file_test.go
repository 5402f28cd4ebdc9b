package source

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"mercator-hq/warden/pkg/policy/patterns"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "yaml",
			file: "rules.yaml",
			content: `
mode: extend
categories:
  suspicious:
    - name: seed_phrase
      pattern: '\bseed phrase\b'
`,
		},
		{
			name: "jsonc with comments",
			file: "rules.jsonc",
			content: `{
  // extra soft signals
  "mode": "extend",
  "categories": {
    "suspicious": [
      {"name": "seed_phrase", "pattern": "\\bseed phrase\\b"},
    ],
  },
}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, tt.file, tt.content)

			rules, err := LoadFile(path)
			if err != nil {
				t.Fatalf("LoadFile failed: %v", err)
			}
			if rules.Source() != path {
				t.Errorf("expected source %q, got %q", path, rules.Source())
			}
			match, ok := rules.MatchCategory(patterns.CategorySuspicious, "my seed phrase is")
			if !ok || match.Rule != "seed_phrase" {
				t.Errorf("expected seed_phrase match, got %+v ok=%v", match, ok)
			}
		})
	}
}

func TestLoadFile_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		path string
	}{
		{name: "missing file", path: filepath.Join(dir, "missing.yaml")},
		{name: "bad yaml", path: writeFile(t, dir, "bad.yaml", "categories: [unclosed")},
		{name: "bad regex", path: writeFile(t, dir, "regex.yaml", "categories:\n  pii:\n    - pattern: '(oops'\n")},
		{name: "unknown extension", path: writeFile(t, dir, "rules.toml", "x = 1")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFile(tt.path)
			if err == nil {
				t.Fatal("expected error")
			}
			var loadErr *LoadError
			if !errors.As(err, &loadErr) {
				t.Fatalf("expected *LoadError, got %T", err)
			}
			if loadErr.Path != tt.path {
				t.Errorf("expected path %q, got %q", tt.path, loadErr.Path)
			}
		})
	}
}

func TestHolder_ReloadFile(t *testing.T) {
	dir := t.TempDir()
	holder := NewHolder(nil, nil)

	if holder.Rules() != patterns.DefaultRuleSet() {
		t.Fatal("expected holder to start with the built-in rules")
	}

	good := writeFile(t, dir, "rules.yaml", "categories:\n  suspicious:\n    - pattern: 'canary'\n")
	if err := holder.ReloadFile(good); err != nil {
		t.Fatalf("ReloadFile failed: %v", err)
	}
	if holder.Reloads() != 1 {
		t.Errorf("expected 1 reload, got %d", holder.Reloads())
	}
	loaded := holder.Rules()
	if loaded.Source() != good {
		t.Errorf("expected source %q, got %q", good, loaded.Source())
	}

	bad := writeFile(t, dir, "bad.yaml", "categories:\n  nope:\n    - pattern: 'x'\n")
	if err := holder.ReloadFile(bad); err == nil {
		t.Fatal("expected reload error")
	}
	if holder.Rules() != loaded {
		t.Error("failed reload must keep the previous rule set")
	}
}
