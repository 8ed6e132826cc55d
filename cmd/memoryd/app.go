package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fyrsmithlabs/memoryd/internal/config"
	"github.com/fyrsmithlabs/memoryd/internal/embeddings"
	"github.com/fyrsmithlabs/memoryd/internal/ledger"
	"github.com/fyrsmithlabs/memoryd/internal/logging"
	"github.com/fyrsmithlabs/memoryd/internal/memory"
	"github.com/fyrsmithlabs/memoryd/internal/quota"
	"github.com/fyrsmithlabs/memoryd/internal/services"
	"github.com/fyrsmithlabs/memoryd/internal/telemetry"
	"github.com/fyrsmithlabs/memoryd/internal/tenantstore"
	"github.com/fyrsmithlabs/memoryd/internal/vectorindex"
)

// app holds the wired process singletons for one CLI invocation.
type app struct {
	cfg       *config.Config
	logger    *logging.Logger
	telemetry *telemetry.Telemetry
	registry  services.Registry
}

// newApp loads config and wires logging, telemetry and the embedding
// engine. When withStore is true the tenant store and orchestrator are
// constructed too, which requires the --tenant flag.
func newApp(ctx context.Context, withStore bool) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logCfg := logging.NewDefaultConfig()
	logCfg.Format = cfg.Logging.Format
	if level, err := logging.ParseLevel(cfg.Logging.Level); err == nil {
		logCfg.Level = level
	}
	logger, err := logging.NewLogger(logCfg)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	tel, err := telemetry.New(ctx, &telemetry.Config{
		Enabled:     cfg.Telemetry.Enabled,
		ServiceName: cfg.Telemetry.ServiceName,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing telemetry: %w", err)
	}

	engine := embeddings.NewEngine(embeddings.Config{
		Provider:      cfg.Embeddings.Provider,
		Model:         cfg.Embeddings.Model,
		CacheDir:      cfg.Embeddings.CacheDir,
		MaxLength:     cfg.Embeddings.MaxLength,
		ModelPath:     cfg.Embeddings.ModelPath,
		TokenizerPath: cfg.Embeddings.TokenizerPath,
	}, logger)

	opts := services.Options{Engine: engine}

	if withStore {
		if tenantHandle == "" {
			return nil, fmt.Errorf("--tenant is required")
		}

		store, err := tenantstore.New(ctx, tenantHandle, storeConfig(cfg), logger)
		if err != nil {
			return nil, fmt.Errorf("opening tenant store: %w", err)
		}

		memSvc, err := memory.NewService(engine, store, memory.Config{
			MaxContentLength: cfg.Memory.MaxContentLength,
			MaxSearchResults: cfg.Memory.MaxSearchResults,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("creating memory service: %w", err)
		}

		opts.Store = store
		opts.Memory = memSvc
	}

	if cfg.Quota.ProjectID != "" {
		subs, err := quota.NewFirestoreStore(ctx, quota.FirestoreConfig{
			ProjectID:  cfg.Quota.ProjectID,
			Database:   cfg.Quota.Database,
			Collection: cfg.Quota.Collection,
		})
		if err != nil {
			return nil, fmt.Errorf("connecting quota store: %w", err)
		}
		gate, err := quota.NewGate(subs, logger)
		if err != nil {
			return nil, fmt.Errorf("creating quota gate: %w", err)
		}
		opts.Quota = gate
	}

	return &app{
		cfg:       cfg,
		logger:    logger,
		telemetry: tel,
		registry:  services.NewRegistry(opts),
	}, nil
}

// storeConfig derives the tenant store construction config.
func storeConfig(cfg *config.Config) tenantstore.Config {
	return tenantstore.Config{
		IndexPath: expandHome(cfg.Index.Path),
		Index: vectorindex.Config{
			Provider:  cfg.Index.Provider,
			Dimension: cfg.Index.VectorSize,
			Compress:  cfg.Index.Compress,
			Params: vectorindex.Params{
				M:              cfg.Index.M,
				EfConstruction: cfg.Index.EfConstruction,
				EfSearch:       cfg.Index.EfSearch,
			},
		},
		Ledger: ledger.Config{
			RPCURLs:   cfg.Ledger.RPCURLs,
			Address:   cfg.Ledger.Address,
			DevFaucet: cfg.Ledger.DevFaucet,
		},
	}
}

// expandHome expands a leading ~ to the user's home directory.
func expandHome(path string) string {
	if len(path) > 0 && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return home + path[1:]
		}
	}
	return path
}

// close flushes and releases the app's resources.
func (a *app) close(ctx context.Context) {
	if store := a.registry.Store(); store != nil {
		store.Release()
	}
	if engine := a.registry.Engine(); engine != nil {
		_ = engine.Close()
	}
	_ = a.telemetry.Shutdown(ctx)
	_ = a.logger.Sync()
}
