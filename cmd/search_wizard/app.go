package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/jonathan/search-wizard/internal/artifact"
	"github.com/jonathan/search-wizard/internal/blob"
	"github.com/jonathan/search-wizard/internal/config"
	"github.com/jonathan/search-wizard/internal/fetch"
	"github.com/jonathan/search-wizard/internal/generation"
	"github.com/jonathan/search-wizard/internal/llm"
	"github.com/jonathan/search-wizard/internal/logging"
	"github.com/jonathan/search-wizard/internal/store"
	"github.com/jonathan/search-wizard/internal/structure"
)

// newLLMClient selects the first provider in the configured order that has
// credentials. Tests replace it with a scripted client.
var newLLMClient = func(ctx context.Context, cfg *config.Config, log *zap.Logger) (llm.Client, error) {
	order, err := cfg.ProviderOrder()
	if err != nil {
		return nil, err
	}
	client, err := llm.Select(ctx, order, cfg.Credentials(), nil)
	if err != nil {
		return nil, err
	}
	return llm.WithBackoff(client, llm.DefaultBackoffConfig(), log), nil
}

// loadConfig reads the optional config file, then applies environment
// overrides, flags and defaults, and validates the result.
func loadConfig() (*config.Config, error) {
	cfg := &config.Config{}
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	merged := cfg.MergeWithDefaults(config.Config{})
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return &merged, nil
}

// app holds the collaborators shared by the commands
type app struct {
	cfg       *config.Config
	log       *zap.Logger
	client    llm.Client
	store     store.Store
	resolver  *artifact.Resolver
	extractor *structure.Extractor
}

// newApp loads configuration and opens the store and the model client.
// Callers must Close the app.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	log, err := logging.New(cfg.LogLevel, cfg.Development)
	if err != nil {
		return nil, err
	}

	client, err := newLLMClient(ctx, cfg, log)
	if err != nil {
		_ = log.Sync()
		return nil, err
	}
	log.Info("llm provider selected", zap.String("provider", string(client.Provider())))

	st, err := openStore(ctx, cfg, log)
	if err != nil {
		_ = client.Close()
		_ = log.Sync()
		return nil, err
	}

	resolver := artifact.NewResolver(artifact.Options{
		Fetcher:     fetch.NewCachedFetcher(fetch.Plain(fetch.DefaultOptions()), nil),
		SupabaseKey: cfg.Supabase.Key,
		Logger:      log,
	})

	return &app{
		cfg:       cfg,
		log:       log,
		client:    client,
		store:     st,
		resolver:  resolver,
		extractor: structure.New(client, structure.Options{Logger: log}),
	}, nil
}

func (a *app) generator(onProgress generation.ProgressCallback) (*generation.Service, error) {
	return generation.NewService(generation.Options{
		Resolver:    a.resolver,
		Store:       a.store,
		Client:      a.client,
		SupabaseKey: a.cfg.Supabase.Key,
		Timeout:     a.cfg.GenerationTimeout(),
		Chunking:    a.cfg.ChunkOptions(),
		MaxTokens:   a.cfg.LLM.MaxTokens,
		Logger:      a.log,
		OnProgress:  onProgress,
	})
}

// Close releases the store and the model client
func (a *app) Close() {
	a.store.Close()
	if err := a.client.Close(); err != nil {
		a.log.Warn("closing llm client", zap.Error(err))
	}
	_ = a.log.Sync()
}

// openStore connects to PostgreSQL when a database URL is configured and
// keeps everything in memory otherwise. Either way structure reads go
// through an LRU.
func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (store.Store, error) {
	var base store.Store
	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL not set, using in-memory store")
		base = store.NewMemory()
	} else {
		pg, err := store.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			return nil, err
		}
		base = pg
	}

	cached, err := store.NewCached(base, cfg.StructureCacheSize)
	if err != nil {
		base.Close()
		return nil, fmt.Errorf("structure cache: %w", err)
	}
	return cached, nil
}

// openBlobs returns the S3 store when an endpoint is configured
func openBlobs(cfg *config.Config) (blob.Store, error) {
	if cfg.S3.Endpoint == "" {
		return blob.NewMemory(), nil
	}
	return blob.NewS3Store(blob.S3Config{
		Endpoint:  cfg.S3.Endpoint,
		Region:    cfg.S3.Region,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
		Bucket:    cfg.S3.Bucket,
		UseSSL:    cfg.S3.UseSSL,
	})
}
