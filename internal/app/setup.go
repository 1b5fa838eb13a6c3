package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/haggleworks/negotiator/internal/negotiation"
	"github.com/haggleworks/negotiator/internal/provider"
	"github.com/haggleworks/negotiator/internal/storage"
	"github.com/haggleworks/negotiator/pkg/cache"
	"github.com/haggleworks/negotiator/pkg/config"
	"github.com/haggleworks/negotiator/pkg/healthprobe"
	"github.com/haggleworks/negotiator/pkg/httpserver"
)

// New creates a new application instance.
func New(cfg *config.Config, logger *zap.Logger, opts *Options) (*App, error) {
	if opts == nil {
		opts = &Options{}
	}

	ctx, cancel := context.WithCancel(context.Background())

	healthChecker := healthprobe.New()

	llm, generateCache, err := setupProvider(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup provider: %w", err)
	}

	sink, err := setupSink(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup storage: %w", err)
	}

	registry := negotiation.NewRegistry(&negotiation.RegistryConfig{
		Sink:   sink,
		Logger: logger,
	})

	runs := newRunService(ctx, cfg, llm, registry, logger)

	httpServer := httpserver.New(&httpserver.Config{
		Port:          cfg.HTTPPort,
		Logger:        logger,
		HealthChecker: healthChecker,
		Runs:          runs,
	})

	return &App{
		cfg:           cfg,
		opts:          opts,
		logger:        logger,
		healthChecker: healthChecker,
		httpServer:    httpServer,
		llm:           llm,
		generateCache: generateCache,
		registry:      registry,
		runs:          runs,
		sink:          sink,
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

// setupProvider builds the shared LLM provider, wrapped in a generate cache
// when enabled. The cache is returned separately so shutdown can close it.
func setupProvider(cfg *config.Config, logger *zap.Logger) (provider.Provider, cache.Cache, error) {
	llm, err := provider.Shared(provider.HTTPConfig{
		BaseURL: cfg.ProviderBaseURL,
		APIKey:  cfg.ProviderAPIKey,
		Model:   cfg.ProviderModel,
		Timeout: cfg.ProviderTimeout,
		Retry: provider.RetryConfig{
			MaxRetries: cfg.ProviderMaxRetries,
			BaseDelay:  cfg.ProviderBaseDelay,
		},
		SuppressReasoning: cfg.ReasoningSuppressed,
		Enabled:           cfg.ProviderEnabled,
		Logger:            logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create provider: %w", err)
	}

	if !cfg.GenerateCacheEnabled {
		return llm, nil, nil
	}

	generateCache, err := cache.NewRistrettoCache(&cache.RistrettoConfig{
		NumCounters: 10000, // 10x expected max cached completions
		MaxCost:     1000,  // Maximum 1000 cached completions
		BufferItems: 64,    // Buffer size for Get operations
		Logger:      logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create generate cache: %w", err)
	}

	cached := provider.NewCachedProvider(llm, generateCache, cfg.GenerateCacheTTL, logger)

	logger.Info("generate-cache-enabled",
		zap.Duration("ttl", cfg.GenerateCacheTTL))

	return cached, generateCache, nil
}

func setupSink(cfg *config.Config, logger *zap.Logger) (storage.Sink, error) {
	if cfg.StorageMode == "postgres" {
		sink, err := storage.NewPostgresSink(&storage.PostgresConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPass,
			Database: cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSL,
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create postgres sink: %w", err)
		}
		return sink, nil
	}

	return storage.NewConsoleSink(logger), nil
}
