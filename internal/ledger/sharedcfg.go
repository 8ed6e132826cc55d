package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"golang.org/x/sync/singleflight"
)

// ErrInvalidConfig indicates invalid ledger configuration.
var ErrInvalidConfig = errors.New("invalid ledger configuration")

// Config holds ledger connection settings.
type Config struct {
	// RPCURLs are JSON-RPC endpoints; the first is primary, the rest
	// are fallbacks.
	RPCURLs []string

	// Address is the deploying identity's account address.
	Address string

	// DevFaucet enables auto-funding of zero-balance accounts.
	DevFaucet bool
}

// Validate validates the configuration.
func (c Config) Validate() error {
	if len(c.RPCURLs) == 0 {
		return fmt.Errorf("%w: at least one RPC URL required", ErrInvalidConfig)
	}
	if c.Address == "" {
		return fmt.Errorf("%w: address required", ErrInvalidConfig)
	}
	return nil
}

// SharedConfig is the process-wide ledger binding. It is read-only
// after construction; every tenant store shares the same instance.
type SharedConfig struct {
	client    *Client
	chainID   *big.Int
	address   string
	devFaucet bool
}

// Client returns the shared RPC client.
func (s *SharedConfig) Client() *Client { return s.client }

// ChainID returns the chain id observed at initialization.
func (s *SharedConfig) ChainID() *big.Int { return new(big.Int).Set(s.chainID) }

// Address returns the deploying identity's account address.
func (s *SharedConfig) Address() string { return s.address }

// DevFaucet reports whether development auto-funding is enabled.
func (s *SharedConfig) DevFaucet() bool { return s.devFaucet }

var (
	sharedSF singleflight.Group
	sharedMu sync.RWMutex
	shared   *SharedConfig
)

// GetOrInit returns the process-wide shared config, building it on
// first use. Concurrent first callers share one in-flight
// initialization. A failed initialization is not cached; the next
// caller retries. Once built, the cached instance is returned for the
// process lifetime and later cfg values are ignored.
func GetOrInit(ctx context.Context, cfg Config) (*SharedConfig, error) {
	sharedMu.RLock()
	s := shared
	sharedMu.RUnlock()
	if s != nil {
		return s, nil
	}

	v, err, _ := sharedSF.Do("shared", func() (interface{}, error) {
		sharedMu.RLock()
		cached := shared
		sharedMu.RUnlock()
		if cached != nil {
			return cached, nil
		}

		built, err := newSharedConfig(ctx, cfg)
		if err != nil {
			return nil, err
		}

		sharedMu.Lock()
		shared = built
		sharedMu.Unlock()
		return built, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*SharedConfig), nil
}

// newSharedConfig verifies connectivity and builds the binding.
func newSharedConfig(ctx context.Context, cfg Config) (*SharedConfig, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := NewClient(cfg.RPCURLs...)
	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("verifying ledger connectivity: %w", err)
	}

	return &SharedConfig{
		client:    client,
		chainID:   chainID,
		address:   cfg.Address,
		devFaucet: cfg.DevFaucet,
	}, nil
}

// ResetForTest clears the cached shared config. Test use only.
func ResetForTest() {
	sharedMu.Lock()
	shared = nil
	sharedMu.Unlock()
}
