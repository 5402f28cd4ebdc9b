package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"
	"github.com/robfig/cron/v3"
)

// GitConfig describes a Git repository holding a rule file.
type GitConfig struct {
	// Repository is the clone URL.
	Repository string

	// Branch is the branch to track.
	Branch string

	// Path is the rule file path inside the repository.
	Path string

	// LocalPath is where the repository is cloned.
	LocalPath string

	// Token enables HTTPS token authentication when set.
	Token string

	// SSHKeyPath enables SSH key authentication when set.
	SSHKeyPath string

	// SSHKeyPassphrase unlocks an encrypted SSH key.
	SSHKeyPassphrase string

	// PollSchedule is a cron expression for pulling updates. Empty disables polling.
	PollSchedule string

	// Timeout bounds each clone or pull.
	Timeout time.Duration
}

// GitSource keeps a local clone of a rule repository and reloads a Holder
// when new commits arrive.
type GitSource struct {
	config GitConfig
	holder *Holder
	logger *slog.Logger

	mu   sync.Mutex
	repo *gogit.Repository
	head string
}

// NewGitSource validates cfg and creates a GitSource. Nothing is cloned until
// Sync is called.
func NewGitSource(cfg GitConfig, holder *Holder, logger *slog.Logger) (*GitSource, error) {
	if cfg.Repository == "" {
		return nil, fmt.Errorf("repository URL cannot be empty")
	}
	if cfg.Path == "" {
		return nil, fmt.Errorf("rule file path cannot be empty")
	}
	if cfg.Branch == "" {
		cfg.Branch = "main"
	}
	if cfg.LocalPath == "" {
		cfg.LocalPath = filepath.Join(os.TempDir(), "warden-rules")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &GitSource{
		config: cfg,
		holder: holder,
		logger: logger.With("component", "policy.git", "repository", cfg.Repository),
	}, nil
}

// Sync clones the repository on first use, pulls it afterwards, and reloads
// the rule file when HEAD moved.
func (g *GitSource) Sync(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, g.config.Timeout)
	defer cancel()

	if g.repo == nil {
		if err := g.open(ctx); err != nil {
			return err
		}
	} else if err := g.pull(ctx); err != nil {
		return err
	}

	ref, err := g.repo.Head()
	if err != nil {
		return fmt.Errorf("failed to get HEAD: %w", err)
	}
	sha := ref.Hash().String()
	if sha == g.head {
		g.logger.Debug("rule repository unchanged", "sha", sha)
		return nil
	}

	if err := g.holder.ReloadFile(filepath.Join(g.config.LocalPath, g.config.Path)); err != nil {
		return err
	}
	g.logger.Info("rules loaded from repository", "sha", sha, "previous_sha", g.head)
	g.head = sha
	return nil
}

// Start pulls on the configured cron schedule until ctx is cancelled.
func (g *GitSource) Start(ctx context.Context) error {
	if g.config.PollSchedule == "" {
		return nil
	}
	if _, err := cron.ParseStandard(g.config.PollSchedule); err != nil {
		return fmt.Errorf("invalid poll schedule %q: %w", g.config.PollSchedule, err)
	}

	c := cron.New()
	if _, err := c.AddFunc(g.config.PollSchedule, func() {
		if err := g.Sync(ctx); err != nil {
			g.logger.Error("rule repository sync failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule rule sync: %w", err)
	}
	c.Start()
	g.logger.Info("rule repository polling started", "schedule", g.config.PollSchedule)

	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
	}()
	return nil
}

// Head returns the commit the active rules were loaded from.
func (g *GitSource) Head() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.head
}

func (g *GitSource) open(ctx context.Context) error {
	if _, err := os.Stat(filepath.Join(g.config.LocalPath, ".git")); err == nil {
		repo, err := gogit.PlainOpen(g.config.LocalPath)
		if err != nil {
			return fmt.Errorf("failed to open existing repo: %w", err)
		}
		g.repo = repo
		return g.pull(ctx)
	}

	if err := os.MkdirAll(g.config.LocalPath, 0o755); err != nil {
		return fmt.Errorf("failed to create repository directory: %w", err)
	}

	auth, err := g.auth()
	if err != nil {
		return err
	}
	repo, err := gogit.PlainCloneContext(ctx, g.config.LocalPath, false, &gogit.CloneOptions{
		URL:           g.config.Repository,
		ReferenceName: plumbing.NewBranchReferenceName(g.config.Branch),
		SingleBranch:  true,
		Depth:         1,
		Auth:          auth,
	})
	if err != nil {
		return fmt.Errorf("failed to clone repository: %w", err)
	}
	g.repo = repo
	return nil
}

func (g *GitSource) pull(ctx context.Context) error {
	worktree, err := g.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}
	auth, err := g.auth()
	if err != nil {
		return err
	}
	err = worktree.PullContext(ctx, &gogit.PullOptions{
		RemoteName:    "origin",
		ReferenceName: plumbing.NewBranchReferenceName(g.config.Branch),
		SingleBranch:  true,
		Auth:          auth,
	})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return fmt.Errorf("failed to pull: %w", err)
	}
	return nil
}

func (g *GitSource) auth() (transport.AuthMethod, error) {
	switch {
	case g.config.Token != "":
		return &githttp.BasicAuth{Username: "git", Password: g.config.Token}, nil
	case g.config.SSHKeyPath != "":
		keys, err := ssh.NewPublicKeysFromFile("git", g.config.SSHKeyPath, g.config.SSHKeyPassphrase)
		if err != nil {
			return nil, fmt.Errorf("failed to load SSH key: %w", err)
		}
		return keys, nil
	default:
		return nil, nil
	}
}
