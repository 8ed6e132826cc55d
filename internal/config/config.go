// Package config provides configuration loading for memoryd.
//
// Configuration is loaded from a YAML file and overridden by environment
// variables, with hardcoded defaults as the lowest layer.
package config

import (
	"errors"
	"fmt"
)

// Environment names accepted by Config.Environment.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config holds the complete memoryd configuration.
type Config struct {
	// Environment is "development" or "production". Production disables
	// the deployment auto-fund path.
	Environment string `koanf:"environment"`

	Logging    LoggingConfig    `koanf:"logging"`
	Telemetry  TelemetryConfig  `koanf:"telemetry"`
	Embeddings EmbeddingsConfig `koanf:"embeddings"`
	Index      IndexConfig      `koanf:"index"`
	Ledger     LedgerConfig     `koanf:"ledger"`
	Quota      QuotaConfig      `koanf:"quota"`
	Memory     MemoryConfig     `koanf:"memory"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // json or console
}

// TelemetryConfig holds OpenTelemetry settings.
type TelemetryConfig struct {
	Enabled     bool   `koanf:"enabled"`
	ServiceName string `koanf:"service_name"`
	Endpoint    string `koanf:"endpoint"` // OTLP gRPC endpoint
}

// EmbeddingsConfig holds embedding engine settings.
type EmbeddingsConfig struct {
	// Provider is "fastembed" (default) or "onnx".
	Provider string `koanf:"provider"`

	// Model is the embedding model name (e.g. BAAI/bge-small-en-v1.5).
	Model string `koanf:"model"`

	// CacheDir is the directory for cached model files.
	CacheDir string `koanf:"cache_dir"`

	// MaxLength is the maximum input sequence length.
	MaxLength int `koanf:"max_length"`

	// ModelPath and TokenizerPath are used by the onnx provider only.
	ModelPath     string `koanf:"model_path"`
	TokenizerPath string `koanf:"tokenizer_path"`
}

// IndexConfig holds vector index settings.
//
// M, EfConstruction and EfSearch are the approximate-nearest-neighbor
// graph parameters handed to the index at open time.
type IndexConfig struct {
	Provider       string `koanf:"provider"` // "chromem" (default)
	Path           string `koanf:"path"`     // base dir for per-tenant databases
	M              int    `koanf:"m"`
	EfConstruction int    `koanf:"ef_construction"`
	EfSearch       int    `koanf:"ef_search"`
	VectorSize     int    `koanf:"vector_size"`
	Compress       bool   `koanf:"compress"`
}

// LedgerConfig holds ledger network connection settings.
type LedgerConfig struct {
	// RPCURLs are JSON-RPC endpoints; the first is primary, the rest
	// are fallbacks.
	RPCURLs []string `koanf:"rpc_urls"`

	// Address is the deploying identity's account address.
	Address string `koanf:"address"`

	// DevFaucet enables auto-funding of zero-balance accounts.
	// Ignored (and rejected by Validate) in production.
	DevFaucet bool `koanf:"dev_faucet"`
}

// QuotaConfig holds subscription record store settings.
type QuotaConfig struct {
	ProjectID  string `koanf:"project_id"`
	Database   string `koanf:"database"`
	Collection string `koanf:"collection"`
}

// MemoryConfig holds orchestrator limits.
type MemoryConfig struct {
	// MaxContentLength is the maximum accepted memory content size in
	// characters.
	MaxContentLength int `koanf:"max_content_length"`

	// MaxSearchResults caps k for search requests.
	MaxSearchResults int `koanf:"max_search_results"`
}

// IsProduction reports whether the production environment is configured.
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Environment == "" {
		cfg.Environment = EnvDevelopment
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "memoryd"
	}
	if cfg.Telemetry.Endpoint == "" {
		cfg.Telemetry.Endpoint = "localhost:4317"
	}

	if cfg.Embeddings.Provider == "" {
		cfg.Embeddings.Provider = "fastembed"
	}
	if cfg.Embeddings.Model == "" {
		cfg.Embeddings.Model = "BAAI/bge-small-en-v1.5"
	}
	if cfg.Embeddings.MaxLength == 0 {
		cfg.Embeddings.MaxLength = 512
	}

	if cfg.Index.Provider == "" {
		cfg.Index.Provider = "chromem"
	}
	if cfg.Index.Path == "" {
		cfg.Index.Path = "~/.config/memoryd/index"
	}
	if cfg.Index.M == 0 {
		cfg.Index.M = 16
	}
	if cfg.Index.EfConstruction == 0 {
		cfg.Index.EfConstruction = 200
	}
	if cfg.Index.EfSearch == 0 {
		cfg.Index.EfSearch = 50
	}
	if cfg.Index.VectorSize == 0 {
		cfg.Index.VectorSize = 384 // bge-small-en-v1.5 dimensions
	}

	if len(cfg.Ledger.RPCURLs) == 0 {
		cfg.Ledger.RPCURLs = []string{"http://localhost:8545"}
	}

	if cfg.Quota.Collection == "" {
		cfg.Quota.Collection = "subscriptions"
	}

	if cfg.Memory.MaxContentLength == 0 {
		cfg.Memory.MaxContentLength = 10000
	}
	if cfg.Memory.MaxSearchResults == 0 {
		cfg.Memory.MaxSearchResults = 100
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Environment != EnvDevelopment && c.Environment != EnvProduction {
		return fmt.Errorf("invalid environment %q (must be %q or %q)",
			c.Environment, EnvDevelopment, EnvProduction)
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid logging format %q (must be json or console)", c.Logging.Format)
	}

	if c.Telemetry.Enabled && c.Telemetry.ServiceName == "" {
		return errors.New("service name required when telemetry is enabled")
	}

	if c.Index.M <= 0 || c.Index.EfConstruction <= 0 || c.Index.EfSearch <= 0 {
		return fmt.Errorf("index parameters must be positive: m=%d ef_construction=%d ef_search=%d",
			c.Index.M, c.Index.EfConstruction, c.Index.EfSearch)
	}
	if c.Index.VectorSize <= 0 {
		return fmt.Errorf("vector size must be positive: %d", c.Index.VectorSize)
	}

	if len(c.Ledger.RPCURLs) == 0 {
		return errors.New("at least one ledger RPC URL is required")
	}
	if c.IsProduction() && c.Ledger.DevFaucet {
		return errors.New("dev_faucet cannot be enabled in production")
	}

	if c.Memory.MaxContentLength <= 0 {
		return fmt.Errorf("max content length must be positive: %d", c.Memory.MaxContentLength)
	}
	if c.Memory.MaxSearchResults < 1 {
		return fmt.Errorf("max search results must be at least 1: %d", c.Memory.MaxSearchResults)
	}

	return nil
}
