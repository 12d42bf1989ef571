// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/garyellow/tucurso-bot/internal/buildinfo"
	"github.com/garyellow/tucurso-bot/internal/catalog"
	"github.com/garyellow/tucurso-bot/internal/config"
	"github.com/garyellow/tucurso-bot/internal/genai"
	"github.com/garyellow/tucurso-bot/internal/logger"
	"github.com/garyellow/tucurso-bot/internal/metrics"
	"github.com/garyellow/tucurso-bot/internal/model"
	"github.com/garyellow/tucurso-bot/internal/nlu"
	"github.com/garyellow/tucurso-bot/internal/r2client"
	"github.com/garyellow/tucurso-bot/internal/ratelimit"
	"github.com/garyellow/tucurso-bot/internal/relay"
	"github.com/garyellow/tucurso-bot/internal/sentry"
	"github.com/garyellow/tucurso-bot/internal/storage"
	"github.com/garyellow/tucurso-bot/internal/warmup"
	"github.com/garyellow/tucurso-bot/internal/webhook"
)

// Application manages the application lifecycle and dependencies.
type Application struct {
	cfg         *config.Config
	logger      *logger.Logger
	metrics     *metrics.Metrics
	registry    *prometheus.Registry
	store       storage.Store
	catalog     *catalog.Catalog
	parser      *genai.FallbackParser // nil when no LLM is configured
	remote      *nlu.BreakerInterpreter
	llmLimiter  *ratelimit.KeyedLimiter
	userLimiter *ratelimit.KeyedLimiter
	manager     *model.Manager
	readiness   *warmup.ReadinessState
	relay       *relay.Handler
	line        *webhook.Handler // nil unless LINE credentials are set
	router      *gin.Engine
	server      *http.Server
	wg          sync.WaitGroup // background jobs
}

// Initialize creates and initializes a new application with all dependencies.
func Initialize(ctx context.Context, cfg *config.Config) (*Application, error) {
	log := logger.NewWithOptions(cfg.LogLevel, os.Stdout, logger.Options{
		BetterStackToken:    cfg.BetterStackToken,
		BetterStackEndpoint: cfg.BetterStackEndpoint,
	})
	log = log.WithField("service", "tucurso-bot")
	if host, err := os.Hostname(); err == nil && host != "" {
		log = log.WithField("instance_id", host)
	}
	// Package-level slog calls pick up sender, channel and request id.
	slog.SetDefault(log.Logger)

	info := buildinfo.Get()
	log.WithField("version", info.Version).Info("Initializing application...")

	if cfg.SentryEnabled {
		release := cfg.SentryRelease
		if release == "" {
			release = buildinfo.Release()
		}
		if err := sentry.Initialize(sentry.Config{
			DSN:              cfg.SentryDSN,
			Environment:      cfg.SentryEnvironment,
			Release:          release,
			SampleRate:       cfg.SentrySampleRate,
			TracesSampleRate: cfg.SentryTracesSampleRate,
		}); err != nil {
			log.WithError(err).Warn("Sentry initialization failed")
		} else {
			log.WithField("environment", cfg.SentryEnvironment).Info("Sentry enabled")
		}
	}

	registry := metrics.NewRegistry()
	m := metrics.New(registry)

	store, err := storage.Open(ctx, storage.Options{
		Backend:    cfg.TrackerStore,
		SQLitePath: cfg.SQLitePath(),
		RedisURL:   cfg.RedisURL,
		TTL:        cfg.TrackerTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("tracker store: %w", err)
	}
	store = storage.WithMetrics(store, m)
	log.WithField("backend", store.Backend()).
		WithField("ttl", cfg.TrackerTTL).
		Info("Tracker store ready")

	cat, err := loadCatalog(cfg)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("catalog: %w", err)
	}
	if dups := cat.Duplicates(); len(dups) > 0 {
		log.WithField("courses", dups).Warn("Course names repeat across categories; lookups return the first")
	}

	a := &Application{
		cfg:       cfg,
		logger:    log,
		metrics:   m,
		registry:  registry,
		store:     store,
		catalog:   cat,
		readiness: warmup.NewReadinessState(),
	}

	if cfg.LLMEnabled && cfg.HasLLMProvider() {
		llmCfg := buildLLMConfig(cfg)
		parser, err := genai.CreateIntentParser(ctx, llmCfg, m)
		if err != nil {
			log.WithError(err).Warn("Intent parser initialization failed")
		}
		if parser != nil {
			a.parser = parser
			a.remote = nlu.NewBreakerInterpreter(genai.NewInterpreter(parser, llmCfg.RequestTimeout), nlu.BreakerConfig{
				Name:        "llm",
				MaxFailures: uint32(cfg.BreakerMaxFailures), //nolint:gosec // validated positive
				OpenTimeout: cfg.BreakerOpenTimeout,
				Metrics:     m,
			})
			providers := make([]string, 0)
			for _, p := range llmCfg.ConfiguredProviders() {
				providers = append(providers, p.String())
			}
			log.WithField("providers", providers).Info("Remote NLU enabled")
		}
	}

	a.llmLimiter = ratelimit.NewKeyedLimiter(ratelimit.KeyedConfig{
		Name:          ratelimit.NameLLM,
		Burst:         cfg.LLMRateBurst,
		RefillRate:    cfg.LLMRateRefill / 3600.0, // hourly to per-second
		DailyLimit:    cfg.LLMRateDaily,
		CleanupPeriod: config.RateLimiterCleanupInterval,
		Metrics:       m,
	})
	a.userLimiter = ratelimit.NewKeyedLimiter(ratelimit.KeyedConfig{
		Name:          ratelimit.NameUser,
		Burst:         cfg.UserRateBurst,
		RefillRate:    cfg.UserRateRefill,
		CleanupPeriod: config.RateLimiterCleanupInterval,
		Metrics:       m,
	})

	source, err := buildSource(ctx, cfg)
	if err != nil {
		a.closeResources()
		return nil, fmt.Errorf("model source: %w", err)
	}
	deps := model.Deps{
		Catalog:          cat,
		Store:            store,
		Limiter:          a.llmLimiter,
		Logger:           log,
		Metrics:          m,
		MaxMessageLength: cfg.MaxMessageLen,
		Seed:             cfg.ModelSeed,
	}
	if a.remote != nil {
		deps.Remote = a.remote
	}
	a.manager = model.NewManager(source, deps, a.readiness)

	if a.relay, err = relay.NewHandler(relay.HandlerConfig{
		Engine:  a.manager,
		Limiter: a.userLimiter,
		Logger:  log,
		Metrics: m,
	}); err != nil {
		a.closeResources()
		return nil, fmt.Errorf("relay: %w", err)
	}

	if cfg.LINEEnabled() {
		if a.line, err = webhook.NewHandler(webhook.HandlerConfig{
			ChannelSecret: cfg.LineChannelSecret,
			ChannelToken:  cfg.LineChannelToken,
			Engine:        a.manager,
			Metrics:       m,
			Logger:        log,
		}, webhook.WithProcessingTimeout(config.LINEEventProcessing)); err != nil {
			a.closeResources()
			return nil, fmt.Errorf("line webhook: %w", err)
		}
		log.Info("LINE channel enabled")
	}

	gin.SetMode(gin.ReleaseMode)
	a.router = a.newRouter()
	a.server = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           a.router,
		ReadHeaderTimeout: config.HTTPRead,
		ReadTimeout:       config.HTTPRead,
		WriteTimeout:      config.HTTPWrite,
		IdleTimeout:       config.HTTPIdle,
	}

	log.WithField("model_source", source.Name()).
		WithField("model_ref", source.Ref()).
		Info("Initialization complete")
	return a, nil
}

// loadCatalog reads the configured catalog file or falls back to the
// built-in catalog.
func loadCatalog(cfg *config.Config) (*catalog.Catalog, error) {
	if cfg.CatalogPath == "" {
		return catalog.Default(), nil
	}
	return catalog.LoadFile(cfg.CatalogPath)
}

// buildSource returns the model bundle source selected by cfg.
func buildSource(ctx context.Context, cfg *config.Config) (model.Source, error) {
	switch cfg.ModelSource {
	case config.ModelSourceFile:
		return model.FileSource{Path: cfg.ModelPath}, nil
	case config.ModelSourceR2:
		client, err := r2client.New(ctx, r2client.Config{
			Endpoint:    cfg.R2EndpointURL(),
			AccessKeyID: cfg.R2AccessKeyID,
			SecretKey:   cfg.R2SecretAccessKey,
			BucketName:  cfg.R2BucketName,
		})
		if err != nil {
			return nil, err
		}
		return model.NewR2Source(client, cfg.ModelR2Key), nil
	default:
		return model.EmbeddedSource{}, nil
	}
}

// buildLLMConfig maps the application config onto the parser chain.
// Unknown provider names are logged and dropped.
func buildLLMConfig(cfg *config.Config) genai.LLMConfig {
	llmCfg := genai.DefaultLLMConfig()
	llmCfg.SetAccount(genai.ProviderGemini, cfg.GeminiAPIKey, cfg.GeminiIntentModels)
	llmCfg.SetAccount(genai.ProviderGroq, cfg.GroqAPIKey, cfg.GroqIntentModels)
	llmCfg.SetAccount(genai.ProviderCerebras, cfg.CerebrasAPIKey, cfg.CerebrasIntentModels)

	if len(cfg.LLMProviders) > 0 {
		order := make([]genai.Provider, 0, len(cfg.LLMProviders))
		for _, name := range cfg.LLMProviders {
			p, ok := genai.ParseProvider(name)
			if !ok {
				slog.Warn("ignoring unknown LLM provider", "name", name)
				continue
			}
			order = append(order, p)
		}
		if len(order) > 0 {
			llmCfg.Providers = order
		}
	}
	llmCfg.RequestTimeout = config.LLMRequest

	return llmCfg
}

// Run starts the HTTP server and background jobs, then blocks until
// SIGINT/SIGTERM and shuts down in order:
//  1. cancel the background jobs and wait for them
//  2. stop accepting HTTP requests and drain in-flight ones
//  3. drain queued LINE events
//  4. close parsers, the store and the limiters, then flush Sentry and logs
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.startBackgroundJobs(ctx)
	serverErr := a.startHTTPServer()

	select {
	case sig := <-a.waitForShutdownSignal():
		a.logger.WithField("signal", sig.String()).Info("Received shutdown signal")
	case err := <-serverErr:
		a.logger.WithError(err).Error("HTTP server stopped unexpectedly")
	}

	cancel()
	a.logger.Info("Waiting for background jobs to finish...")
	start := time.Now()
	a.wg.Wait()
	a.logger.WithField("duration_ms", time.Since(start).Milliseconds()).
		Info("All background jobs completed")

	return a.shutdown()
}

// startHTTPServer starts the HTTP server in a goroutine. The returned
// channel receives the error if the listener fails.
func (a *Application) startHTTPServer() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.WithField("port", a.cfg.Port).Info("Starting HTTP server")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	return errCh
}

func (a *Application) waitForShutdownSignal() <-chan os.Signal {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	return quit
}

// shutdown stops the HTTP server and releases resources. Background jobs
// must already have stopped.
func (a *Application) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	a.logger.Info("Stopping HTTP server...")
	var errs []error
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Error("HTTP server shutdown error")
		errs = append(errs, err)
	}

	if a.line != nil {
		a.logger.Info("Waiting for LINE events to complete...")
		drainCtx, drainCancel := context.WithTimeout(shutdownCtx, config.LINEDrain)
		if err := a.line.Shutdown(drainCtx); err != nil {
			a.logger.WithError(err).Warn("LINE handler shutdown timeout")
		}
		drainCancel()
	}

	a.logger.Info("Closing resources...")
	a.closeResources()

	if sentry.IsEnabled() {
		sentry.Flush(2 * time.Second)
	}
	a.logger.Info("Shutdown complete")
	if err := a.logger.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// closeResources releases everything Initialize opened. Safe on a partially
// initialized application.
func (a *Application) closeResources() {
	if a.parser != nil {
		if err := a.parser.Close(); err != nil {
			a.logger.WithError(err).WithField("component", "intent_parser").Error("Component close error")
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.WithError(err).WithField("component", "tracker_store").Error("Component close error")
		}
	}
	if a.llmLimiter != nil {
		a.llmLimiter.Stop()
	}
	if a.userLimiter != nil {
		a.userLimiter.Stop()
	}
}
