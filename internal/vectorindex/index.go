package vectorindex

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig indicates invalid index configuration.
	ErrInvalidConfig = errors.New("invalid index configuration")

	// ErrDimensionMismatch indicates a vector whose length does not
	// match the index dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrIndexFailed indicates an index storage or query failure.
	ErrIndexFailed = errors.New("index operation failed")
)

// Params are graph construction and search tuning knobs. They are
// recorded with the index when it is opened.
type Params struct {
	// M is the maximum number of graph neighbors per node.
	M int `koanf:"m"`

	// EfConstruction is the candidate list size during inserts.
	EfConstruction int `koanf:"ef_construction"`

	// EfSearch is the candidate list size during queries.
	EfSearch int `koanf:"ef_search"`
}

// ApplyDefaults sets default values for unset fields.
func (p *Params) ApplyDefaults() {
	if p.M == 0 {
		p.M = 16
	}
	if p.EfConstruction == 0 {
		p.EfConstruction = 200
	}
	if p.EfSearch == 0 {
		p.EfSearch = 50
	}
}

// Validate validates the parameters.
func (p *Params) Validate() error {
	if p.M <= 0 {
		return fmt.Errorf("%w: m must be positive", ErrInvalidConfig)
	}
	if p.EfConstruction <= 0 {
		return fmt.Errorf("%w: ef_construction must be positive", ErrInvalidConfig)
	}
	if p.EfSearch <= 0 {
		return fmt.Errorf("%w: ef_search must be positive", ErrInvalidConfig)
	}
	return nil
}

// Hit is one nearest-neighbor result. Distance is cosine distance:
// 0 means identical direction, 2 means opposite.
type Hit struct {
	ID       uint64
	Distance float32
	Metadata map[string]string
}

// Index stores vectors under integer ids and answers nearest-neighbor
// queries. Implementations are safe for concurrent use.
type Index interface {
	// Insert stores a vector with its metadata under the given id.
	// Inserting an existing id overwrites the previous entry.
	Insert(ctx context.Context, id uint64, vector []float32, metadata map[string]string) error

	// Search returns up to k nearest hits ordered nearest first.
	// An empty index yields an empty slice, not an error.
	Search(ctx context.Context, vector []float32, k int) ([]Hit, error)

	// Get returns the metadata stored under id. The second return is
	// false when the id is absent; absence is not an error.
	Get(ctx context.Context, id uint64) (map[string]string, bool, error)

	// Count returns the number of stored vectors.
	Count(ctx context.Context) (int, error)

	// Delete removes the entry under id. Deleting an absent id is a
	// no-op.
	Delete(ctx context.Context, id uint64) error

	// Close persists and releases the index.
	Close() error
}

// Config holds configuration for opening an index.
type Config struct {
	// Provider is the index backend: "chromem" (default).
	Provider string `koanf:"provider"`

	// Path is the directory for persistent storage.
	Path string `koanf:"path"`

	// Dimension is the expected vector length.
	Dimension int `koanf:"dimension"`

	// Compress enables gzip compression for stored data.
	Compress bool `koanf:"compress"`

	// Params are tuning knobs recorded at open time.
	Params Params `koanf:"params"`
}

// Open creates an index from config.
func Open(cfg Config) (Index, error) {
	switch cfg.Provider {
	case "chromem", "":
		return NewChromemIndex(cfg)
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, cfg.Provider)
	}
}
