package source

import (
	"context"
	"testing"

	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
)

func TestNewGitSource_Validation(t *testing.T) {
	holder := NewHolder(nil, nil)

	tests := []struct {
		name    string
		cfg     GitConfig
		wantErr bool
	}{
		{name: "missing repository", cfg: GitConfig{Path: "rules.yaml"}, wantErr: true},
		{name: "missing path", cfg: GitConfig{Repository: "https://example.com/rules.git"}, wantErr: true},
		{name: "valid", cfg: GitConfig{Repository: "https://example.com/rules.git", Path: "rules.yaml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := NewGitSource(tt.cfg, holder, nil)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if g.config.Branch != "main" {
				t.Errorf("expected default branch main, got %q", g.config.Branch)
			}
			if g.config.LocalPath == "" {
				t.Error("expected default local path")
			}
		})
	}
}

func TestGitSource_Auth(t *testing.T) {
	g, err := NewGitSource(GitConfig{
		Repository: "https://example.com/rules.git",
		Path:       "rules.yaml",
		Token:      "secret-token",
	}, NewHolder(nil, nil), nil)
	if err != nil {
		t.Fatalf("NewGitSource failed: %v", err)
	}

	auth, err := g.auth()
	if err != nil {
		t.Fatalf("auth failed: %v", err)
	}
	basic, ok := auth.(*githttp.BasicAuth)
	if !ok {
		t.Fatalf("expected *http.BasicAuth, got %T", auth)
	}
	if basic.Password != "secret-token" {
		t.Errorf("expected token as password, got %q", basic.Password)
	}

	g.config.Token = ""
	if auth, err := g.auth(); err != nil || auth != nil {
		t.Errorf("expected no auth, got %v, %v", auth, err)
	}
}

func TestGitSource_StartWithoutSchedule(t *testing.T) {
	g, err := NewGitSource(GitConfig{Repository: "https://example.com/rules.git", Path: "rules.yaml"}, NewHolder(nil, nil), nil)
	if err != nil {
		t.Fatalf("NewGitSource failed: %v", err)
	}
	if err := g.Start(context.Background()); err != nil {
		t.Errorf("Start without schedule should be a no-op, got %v", err)
	}

	g.config.PollSchedule = "not a cron"
	if err := g.Start(context.Background()); err == nil {
		t.Error("expected invalid schedule error")
	}
}
