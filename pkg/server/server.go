package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/warden/pkg/chat"
	"mercator-hq/warden/pkg/completion"
	"mercator-hq/warden/pkg/config"
	"mercator-hq/warden/pkg/policy/engine"
	"mercator-hq/warden/pkg/policy/gate"
	"mercator-hq/warden/pkg/providerfactory"
	"mercator-hq/warden/pkg/proxy/handlers"
	"mercator-hq/warden/pkg/proxy/middleware"
	"mercator-hq/warden/pkg/security/auth"
	"mercator-hq/warden/pkg/storage"
	"mercator-hq/warden/pkg/telemetry/health"
	"mercator-hq/warden/pkg/telemetry/metrics"
	"mercator-hq/warden/pkg/telemetry/tracing"
)

// ChatRoute is the registered chat pattern, also used as the metrics label.
const ChatRoute = "/api/chat/"

// Option configures a Server.
type Option func(*options)

type options struct {
	logger      *slog.Logger
	registry    *prometheus.Registry
	version     health.VersionInfo
	tracingOpts []tracing.Option
}

// WithLogger replaces the logger built from the telemetry configuration.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithRegistry sets the Prometheus registry. A private registry is used by
// default.
func WithRegistry(r *prometheus.Registry) Option {
	return func(o *options) { o.registry = r }
}

// WithVersion sets the build information served on /version.
func WithVersion(info health.VersionInfo) Option {
	return func(o *options) { o.version = info }
}

// WithTracingOptions passes options to the tracer.
func WithTracingOptions(opts ...tracing.Option) Option {
	return func(o *options) { o.tracingOpts = append(o.tracingOpts, opts...) }
}

// Server is the gateway HTTP server and everything it owns.
type Server struct {
	config *config.Config
	logger *slog.Logger

	store     storage.Store
	manager   *providerfactory.Manager
	rules     *Rules
	scheduler *storage.Scheduler
	tracer    *tracing.Tracer
	metrics   *metrics.Collector
	health    *health.Checker
	gate      *gate.Gate
	chat      *chat.Orchestrator
	handler   http.Handler

	mu           sync.Mutex
	httpServer   *http.Server
	listener     net.Listener
	isRunning    bool
	shutdownOnce sync.Once
	closeOnce    sync.Once
	closeErr     error
}

// New builds every component named by cfg. cfg must have defaults applied
// and be valid. When New fails, everything it opened is closed.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Server, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Server{config: cfg, logger: o.logger}
	if s.logger == nil {
		logger, err := NewLogger(cfg.Telemetry.Logging, nil)
		if err != nil {
			return nil, err
		}
		s.logger = logger
	}

	if err := s.build(ctx, o); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Server) build(ctx context.Context, o options) error {
	cfg := s.config
	var err error

	tc := cfg.Telemetry.Tracing
	s.tracer, err = tracing.New(tracing.Config{
		Enabled:        tc.Enabled,
		ServiceName:    tc.ServiceName,
		ServiceVersion: o.version.Version,
		Endpoint:       tc.Endpoint,
		Insecure:       tc.Insecure,
		Timeout:        tc.Timeout,
		Sampler:        tc.Sampler,
		SampleRatio:    tc.SampleRatio,
	}, o.tracingOpts...)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	mc := metrics.DefaultConfig()
	mc.Enabled = config.BoolValue(cfg.Telemetry.Metrics.Enabled, true)
	mc.Namespace = cfg.Telemetry.Metrics.Namespace
	s.metrics = metrics.NewCollector(mc, o.registry)

	s.store, err = NewStore(cfg.Storage, s.logger)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}

	s.manager, err = NewProviderManager(cfg, s.logger)
	if err != nil {
		return err
	}

	completionOpts := []completion.Option{
		completion.WithLogger(s.logger),
		completion.WithRecorder(s.metrics),
		completion.WithTracer(s.tracer.Tracer()),
	}
	agent, err := NewCompletion("agent", cfg.Agent, s.manager, completionOpts...)
	if err != nil {
		return err
	}
	classifier, err := NewCompletion("classifier", cfg.Classifier, s.manager, completionOpts...)
	if err != nil {
		return err
	}

	s.rules, err = LoadRules(ctx, cfg.Policy.Rules, s.logger)
	if err != nil {
		return fmt.Errorf("failed to load rules: %w", err)
	}

	eng, err := engine.New(s.rules.Holder, engine.CompletionClassifier(classifier),
		engine.Config{PIIMode: engine.PIIMode(cfg.Policy.PIIMode)},
		engine.WithLogger(s.logger),
		engine.WithRecorder(s.metrics),
		engine.WithTracer(s.tracer.Tracer()),
	)
	if err != nil {
		return err
	}

	notifier, err := NewNotifier(cfg.Notify, s.metrics, s.logger)
	if err != nil {
		return fmt.Errorf("failed to create notifier: %w", err)
	}

	s.gate = gate.New(eng, notifier, s.logger)
	s.chat, err = chat.New(chat.Deps{
		Store:   s.store,
		Agent:   agent,
		Gate:    s.gate,
		Logger:  s.logger,
		Metrics: s.metrics,
		Tracer:  s.tracer.Tracer(),
	}, chat.Options{
		HistoryLimit:      cfg.Chat.HistoryLimit,
		HistoryFetchLimit: cfg.Chat.HistoryFetchLimit,
		InboundMode:       chat.InboundMode(cfg.Chat.InboundRejection),
		RecoveryReply:     cfg.Chat.RecoveryReply,
	})
	if err != nil {
		return err
	}

	s.scheduler = storage.NewScheduler(NewPruner(s.store, cfg.Storage.Retention, s.logger))

	s.health = health.New(cfg.Telemetry.Health.CheckTimeout)
	s.health.Register("storage", true, s.store.Ping)
	s.health.Register("providers", false, s.checkProviders)

	s.handler = s.setupRoutes(o.version)
	return nil
}

// checkProviders reports provider health and refreshes the health gauges.
func (s *Server) checkProviders(ctx context.Context) error {
	for name, h := range s.manager.GetHealthSummary().Details {
		s.metrics.UpdateProviderHealth(name, h.IsHealthy)
	}
	return s.manager.Check(ctx)
}

func (s *Server) setupRoutes(version health.VersionInfo) http.Handler {
	mux := http.NewServeMux()

	chatMiddleware := []func(http.Handler) http.Handler{
		middleware.MetricsMiddleware(s.metrics, ChatRoute),
	}
	if s.config.Auth.Enabled {
		mw := auth.NewAPIKeyMiddleware(auth.FromConfig(s.config.Auth), s.config.Auth.Sources, s.logger)
		chatMiddleware = append(chatMiddleware, mw.Handle)
	}
	chatMiddleware = append(chatMiddleware, middleware.TimeoutMiddleware(s.config.Server.RequestTimeout))

	chatHandler := middleware.Chain(
		handlers.NewChatHandler(s.chat, s.logger, s.config.Server.MaxBodyBytes),
		chatMiddleware...,
	)
	mux.Handle(ChatRoute+"{$}", chatHandler)
	mux.Handle("/api/chat", chatHandler)

	health.Mount(mux, s.health, version)
	if config.BoolValue(s.config.Telemetry.Metrics.Enabled, true) {
		mux.Handle("GET "+s.config.Telemetry.Metrics.Path, s.metrics.Handler())
	}

	// Recovery is outermost.
	return middleware.Chain(mux,
		middleware.RecoveryMiddleware(s.logger),
		middleware.RequestIDMiddleware,
		tracing.HTTPMiddleware(s.tracer),
		middleware.LoggingMiddleware(s.logger),
		middleware.CORSMiddleware(s.config.Server.CORS),
	)
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Orchestrator returns the conversation orchestrator.
func (s *Server) Orchestrator() *chat.Orchestrator {
	return s.chat
}

// Start serves on the configured address and blocks until ctx is cancelled
// or the listener fails. Background rule refresh and retention run for the
// same lifetime. The server is shut down before Start returns.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}

	ln, err := net.Listen("tcp", s.config.Server.ListenAddress)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", s.config.Server.ListenAddress, err)
	}
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:        s.handler,
		ReadTimeout:    s.config.Server.ReadTimeout,
		WriteTimeout:   s.config.Server.WriteTimeout,
		IdleTimeout:    s.config.Server.IdleTimeout,
		MaxHeaderBytes: s.config.Server.MaxHeaderBytes,
		ErrorLog:       slog.NewLogLogger(s.logger.Handler(), slog.LevelError),
	}
	s.isRunning = true
	s.mu.Unlock()

	if err := s.rules.Start(ctx, s.logger); err != nil {
		s.logger.Error("rule refresh not started", "error", err)
	}
	if err := s.scheduler.Start(ctx); err != nil {
		s.logger.Error("retention scheduler not started", "error", err)
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting server",
			"address", ln.Addr().String(),
			"storage", s.config.Storage.Backend,
			"rules", s.config.Policy.Rules.Mode,
			"auth_enabled", s.config.Auth.Enabled,
		)
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		_ = s.Shutdown(context.Background())
		return err
	}
}

// Addr returns the bound listener address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// IsRunning reports whether Start is serving.
func (s *Server) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// Shutdown drains connections within the configured shutdown timeout, stops
// background jobs and closes every component.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		srv := s.httpServer
		s.mu.Unlock()

		s.logger.Info("initiating graceful shutdown", "timeout", s.config.Server.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.Server.ShutdownTimeout)
		defer cancel()

		if srv != nil {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				s.logger.Error("error during server shutdown", "error", err)
				shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			}
		}
		if s.scheduler != nil {
			s.scheduler.Stop()
		}
		if s.gate != nil {
			if err := s.gate.Wait(shutdownCtx); err != nil {
				s.logger.Warn("pending alerts not delivered before shutdown", "error", err)
			}
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		shutdownErr = errors.Join(shutdownErr, s.Close())
		s.logger.Info("server stopped")
	})

	return shutdownErr
}

// Close releases providers, the store and the tracer. It is safe to call
// more than once.
func (s *Server) Close() error {
	s.closeOnce.Do(func() {
		var errs []error
		if s.manager != nil {
			errs = append(errs, s.manager.Close())
		}
		if s.store != nil {
			errs = append(errs, s.store.Close())
		}
		if s.tracer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
			errs = append(errs, s.tracer.Shutdown(ctx))
			cancel()
		}
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}
