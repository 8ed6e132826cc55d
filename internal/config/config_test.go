package config

import (
	"strings"
	"testing"
)

func defaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func TestApplyDefaults(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Environment != EnvDevelopment {
		t.Errorf("Environment = %q, want %q", cfg.Environment, EnvDevelopment)
	}
	if cfg.Embeddings.Provider != "fastembed" {
		t.Errorf("Embeddings.Provider = %q, want fastembed", cfg.Embeddings.Provider)
	}
	if cfg.Embeddings.Model != "BAAI/bge-small-en-v1.5" {
		t.Errorf("Embeddings.Model = %q", cfg.Embeddings.Model)
	}
	if cfg.Index.M != 16 || cfg.Index.EfConstruction != 200 || cfg.Index.EfSearch != 50 {
		t.Errorf("index params = %d/%d/%d, want 16/200/50",
			cfg.Index.M, cfg.Index.EfConstruction, cfg.Index.EfSearch)
	}
	if cfg.Index.VectorSize != 384 {
		t.Errorf("Index.VectorSize = %d, want 384", cfg.Index.VectorSize)
	}
	if cfg.Memory.MaxContentLength != 10000 {
		t.Errorf("Memory.MaxContentLength = %d, want 10000", cfg.Memory.MaxContentLength)
	}
	if cfg.Memory.MaxSearchResults != 100 {
		t.Errorf("Memory.MaxSearchResults = %d, want 100", cfg.Memory.MaxSearchResults)
	}
	if len(cfg.Ledger.RPCURLs) != 1 {
		t.Errorf("Ledger.RPCURLs = %v, want one default endpoint", cfg.Ledger.RPCURLs)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(cfg *Config) {},
		},
		{
			name:    "invalid environment",
			mutate:  func(cfg *Config) { cfg.Environment = "staging" },
			wantErr: "invalid environment",
		},
		{
			name:    "invalid logging format",
			mutate:  func(cfg *Config) { cfg.Logging.Format = "xml" },
			wantErr: "invalid logging format",
		},
		{
			name:    "zero ef_search",
			mutate:  func(cfg *Config) { cfg.Index.EfSearch = -1 },
			wantErr: "index parameters must be positive",
		},
		{
			name:    "negative vector size",
			mutate:  func(cfg *Config) { cfg.Index.VectorSize = -384 },
			wantErr: "vector size must be positive",
		},
		{
			name:    "no rpc urls",
			mutate:  func(cfg *Config) { cfg.Ledger.RPCURLs = nil },
			wantErr: "at least one ledger RPC URL",
		},
		{
			name: "faucet in production",
			mutate: func(cfg *Config) {
				cfg.Environment = EnvProduction
				cfg.Ledger.DevFaucet = true
			},
			wantErr: "dev_faucet cannot be enabled in production",
		},
		{
			name:    "zero max content length",
			mutate:  func(cfg *Config) { cfg.Memory.MaxContentLength = -1 },
			wantErr: "max content length must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestIsProduction(t *testing.T) {
	cfg := defaultConfig()
	if cfg.IsProduction() {
		t.Error("development config reports production")
	}
	cfg.Environment = EnvProduction
	if !cfg.IsProduction() {
		t.Error("production config does not report production")
	}
}
