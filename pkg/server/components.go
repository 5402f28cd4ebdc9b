package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"mercator-hq/warden/pkg/completion"
	"mercator-hq/warden/pkg/config"
	"mercator-hq/warden/pkg/notify"
	"mercator-hq/warden/pkg/policy/patterns"
	"mercator-hq/warden/pkg/policy/source"
	"mercator-hq/warden/pkg/providerfactory"
	"mercator-hq/warden/pkg/providers"
	"mercator-hq/warden/pkg/storage"
	"mercator-hq/warden/pkg/telemetry/logging"
)

// NewLogger builds the process logger. A nil w writes to stdout.
func NewLogger(cfg config.LoggingConfig, w io.Writer) (*slog.Logger, error) {
	return logging.New(logging.Config{
		Level:          cfg.Level,
		Format:         cfg.Format,
		AddSource:      cfg.AddSource,
		RedactPII:      config.BoolValue(cfg.RedactPII, true),
		RedactPatterns: cfg.LoggingPatterns(),
		Writer:         w,
	})
}

// ProviderConfigs converts the configured providers, ordered by name.
func ProviderConfigs(cfg *config.Config) []providers.ProviderConfig {
	names := make([]string, 0, len(cfg.Providers))
	for name := range cfg.Providers {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]providers.ProviderConfig, 0, len(names))
	for _, name := range names {
		p := cfg.Providers[name]
		out = append(out, providers.ProviderConfig{
			Name:                name,
			Type:                p.Type,
			BaseURL:             p.BaseURL,
			APIKey:              p.APIKey,
			Timeout:             p.Timeout,
			MaxRetries:          p.MaxRetries,
			HealthCheckInterval: p.HealthCheckInterval,
		})
	}
	return out
}

// NewProviderManager loads every configured provider. Background health
// checks run when any provider sets health_check_interval.
func NewProviderManager(cfg *config.Config, logger *slog.Logger) (*providerfactory.Manager, error) {
	configs := ProviderConfigs(cfg)
	healthCheck := false
	for _, c := range configs {
		if c.HealthCheckInterval > 0 {
			healthCheck = true
		}
	}

	manager := providerfactory.NewManager(healthCheck, logger)
	if err := manager.LoadFromConfig(configs); err != nil {
		_ = manager.Close()
		return nil, fmt.Errorf("failed to load providers: %w", err)
	}
	return manager, nil
}

// NewCompletion builds the completion service named name on its configured
// provider.
func NewCompletion(name string, cfg config.CompletionConfig, manager *providerfactory.Manager, opts ...completion.Option) (*completion.ProviderService, error) {
	provider, err := manager.GetProvider(cfg.Provider)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return completion.NewProviderService(provider, completion.Config{
		Name:         name,
		Model:        cfg.Model,
		Instructions: cfg.Instructions,
		Temperature:  cfg.Temperature,
		MaxTokens:    cfg.MaxTokens,
		Timeout:      cfg.Timeout,
	}, opts...)
}

// NewStore opens the configured storage backend.
func NewStore(cfg config.StorageConfig, logger *slog.Logger) (storage.Store, error) {
	compression, err := storage.ParseCompression(cfg.Compression)
	if err != nil {
		return nil, err
	}
	return storage.Open(storage.Config{
		Backend: cfg.Backend,
		SQLite: storage.SQLiteConfig{
			Driver:       cfg.SQLite.Driver,
			Path:         cfg.SQLite.Path,
			MaxOpenConns: cfg.SQLite.MaxOpenConns,
			WALMode:      config.BoolValue(cfg.SQLite.WALMode, true),
			BusyTimeout:  cfg.SQLite.BusyTimeout,
			Compression:  compression,
			Logger:       logger,
		},
	})
}

// NewPruner creates the retention pruner for store.
func NewPruner(store storage.Store, cfg config.RetentionConfig, logger *slog.Logger) *storage.Pruner {
	return storage.NewPruner(store, storage.RetentionConfig{
		Days:     cfg.Days,
		Schedule: cfg.Schedule,
	}, logger)
}

// Rules owns the active rule set and whatever keeps it current.
type Rules struct {
	Holder *source.Holder

	watcher *source.Watcher
	git     *source.GitSource
}

// LoadRules loads the initial rule set for cfg. In git mode the repository
// is synced once before returning.
func LoadRules(ctx context.Context, cfg config.RulesConfig, logger *slog.Logger) (*Rules, error) {
	switch cfg.Mode {
	case "file":
		set, err := source.LoadFile(cfg.FilePath)
		if err != nil {
			return nil, err
		}
		r := &Rules{Holder: source.NewHolder(set, logger)}
		if cfg.Watch {
			w, err := source.NewWatcher(cfg.FilePath, r.Holder, cfg.Debounce, logger)
			if err != nil {
				return nil, err
			}
			r.watcher = w
		}
		return r, nil

	case "git":
		r := &Rules{Holder: source.NewHolder(patterns.DefaultRuleSet(), logger)}
		g, err := source.NewGitSource(source.GitConfig{
			Repository:       cfg.Git.Repository,
			Branch:           cfg.Git.Branch,
			Path:             cfg.Git.Path,
			LocalPath:        cfg.Git.LocalPath,
			Token:            cfg.Git.Token,
			SSHKeyPath:       cfg.Git.SSHKeyPath,
			SSHKeyPassphrase: cfg.Git.SSHKeyPassphrase,
			PollSchedule:     cfg.Git.PollSchedule,
			Timeout:          cfg.Git.Timeout,
		}, r.Holder, logger)
		if err != nil {
			return nil, err
		}
		if err := g.Sync(ctx); err != nil {
			return nil, fmt.Errorf("initial rule sync failed: %w", err)
		}
		r.git = g
		return r, nil

	default:
		return &Rules{Holder: source.NewHolder(patterns.DefaultRuleSet(), logger)}, nil
	}
}

// Start runs the file watcher or the repository poller until ctx is done.
func (r *Rules) Start(ctx context.Context, logger *slog.Logger) error {
	if r.watcher != nil {
		go func() {
			if err := r.watcher.Run(ctx); err != nil {
				logger.Error("rule file watcher exited", "error", err)
			}
		}()
	}
	if r.git != nil {
		return r.git.Start(ctx)
	}
	return nil
}

// NotificationRecorder counts alert deliveries.
type NotificationRecorder interface {
	RecordNotification(outcome string)
}

// NewNotifier combines the log and webhook notifiers enabled by cfg. Every
// delivery is counted on recorder when it is set.
func NewNotifier(cfg config.NotifyConfig, recorder NotificationRecorder, logger *slog.Logger) (notify.Notifier, error) {
	var targets notify.Multi
	if config.BoolValue(cfg.Log, true) {
		targets = append(targets, notify.NewLogNotifier(logger))
	}
	if cfg.Webhook.URL != "" {
		wh, err := notify.NewWebhookNotifier(notify.WebhookConfig{
			URL:        cfg.Webhook.URL,
			Headers:    cfg.Webhook.Headers,
			Timeout:    cfg.Webhook.Timeout,
			MaxRetries: cfg.Webhook.MaxRetries,
		}, logger)
		if err != nil {
			return nil, err
		}
		targets = append(targets, wh)
	}
	if len(targets) == 0 {
		return notify.Nop{}, nil
	}
	if recorder == nil {
		return targets, nil
	}

	return notify.NotifierFunc(func(ctx context.Context, alert notify.Alert) error {
		err := targets.Notify(ctx, alert)
		outcome := "delivered"
		if err != nil {
			outcome = "failed"
		}
		recorder.RecordNotification(outcome)
		return err
	}), nil
}
