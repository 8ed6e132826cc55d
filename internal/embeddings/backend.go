package embeddings

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrEmptyInput indicates empty or nil input texts.
	ErrEmptyInput = errors.New("empty or nil input texts")

	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInitialization indicates model load failure. Retryable: a
	// failed load is not memoized.
	ErrInitialization = errors.New("embedding model initialization failed")

	// ErrShape indicates the backend returned a tensor whose shape
	// contradicts the declared model dimensionality or batch size.
	// This is a backend contract violation, not a user error.
	ErrShape = errors.New("embedding tensor shape mismatch")

	// ErrEmbeddingFailed indicates embedding generation failure.
	ErrEmbeddingFailed = errors.New("embedding generation failed")
)

// Tensor is the raw output of an embedding backend: a flat value buffer
// plus its dimensions. Rank 1 is a single vector, rank 2 a batch with
// one row per input text.
type Tensor struct {
	Data []float32
	Dims []int64
}

// Rank returns the number of tensor axes.
func (t *Tensor) Rank() int {
	return len(t.Dims)
}

// Backend converts texts into raw embedding tensors.
//
// Backends apply mean pooling and unit normalization; the returned
// vectors are ready for cosine-distance search. A backend's declared
// dimension is fixed at load time and identical for every tensor it
// produces.
type Backend interface {
	// Embed generates embeddings for the given texts. Implementations
	// return a rank-1 tensor for a single text or a rank-2 tensor for
	// a batch.
	Embed(ctx context.Context, texts []string) (*Tensor, error)

	// ModelID identifies the loaded model.
	ModelID() string

	// Dimension returns the embedding dimension for the loaded model.
	Dimension() int

	// Close releases resources held by the backend.
	Close() error
}

// Config holds configuration for the embedding engine and its backend.
type Config struct {
	// Provider is the backend type: "fastembed" (default) or "onnx".
	Provider string

	// Model is the embedding model name.
	// Supported: BAAI/bge-small-en-v1.5 (default), BAAI/bge-base-en-v1.5,
	// sentence-transformers/all-MiniLM-L6-v2, etc.
	Model string

	// CacheDir is the directory to cache model files.
	CacheDir string

	// MaxLength is the maximum input sequence length. Defaults to 512.
	MaxLength int

	// ModelPath and TokenizerPath are used by the onnx provider only.
	ModelPath     string
	TokenizerPath string
}

// newBackend creates a backend from config.
func newBackend(cfg Config) (Backend, error) {
	switch cfg.Provider {
	case "fastembed", "":
		return NewFastEmbedBackend(cfg)
	case "onnx":
		return NewONNXBackend(cfg)
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, cfg.Provider)
	}
}
