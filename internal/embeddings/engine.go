package embeddings

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/fyrsmithlabs/memoryd/internal/logging"
)

// Result is a validated embedding for one input text.
type Result struct {
	Vector     []float32
	Dimensions int
	ModelID    string
}

// Engine generates embeddings through a lazily-initialized backend.
//
// The backend is loaded on first use. Concurrent first calls share a
// single in-flight load; the losers wait for the winner's result. A
// failed load is not cached, so the next call retries from scratch.
type Engine struct {
	config  Config
	logger  *logging.Logger
	metrics *Metrics

	// factory is swappable in tests.
	factory func(Config) (Backend, error)

	sf      singleflight.Group
	mu      sync.RWMutex
	backend Backend
}

// NewEngine creates an engine. The model is not loaded until the first
// call to Embed, EmbedBatch, or EnsureReady.
func NewEngine(cfg Config, logger *logging.Logger) *Engine {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{
		config:  cfg,
		logger:  logger,
		metrics: NewMetrics(logger.Underlying()),
		factory: newBackend,
	}
}

// Ready reports whether the backend has been loaded.
func (e *Engine) Ready() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.backend != nil
}

// EnsureReady loads the backend if it is not loaded yet.
func (e *Engine) EnsureReady(ctx context.Context) error {
	_, err := e.getBackend(ctx)
	return err
}

// getBackend returns the loaded backend, initializing it on first use.
func (e *Engine) getBackend(ctx context.Context) (Backend, error) {
	e.mu.RLock()
	b := e.backend
	e.mu.RUnlock()
	if b != nil {
		return b, nil
	}

	v, err, _ := e.sf.Do("backend", func() (interface{}, error) {
		// Re-check under the write path: a previous winner may have
		// installed the backend between our RUnlock and Do.
		e.mu.RLock()
		cached := e.backend
		e.mu.RUnlock()
		if cached != nil {
			return cached, nil
		}

		start := time.Now()
		backend, err := e.factory(e.config)
		if err != nil {
			e.logger.Warn(ctx, "embedding backend load failed",
				zap.String("provider", e.config.Provider),
				zap.String("model", e.config.Model),
				zap.Error(err))
			return nil, fmt.Errorf("%w: %v", ErrInitialization, err)
		}

		e.mu.Lock()
		e.backend = backend
		e.mu.Unlock()

		e.logger.Info(ctx, "embedding backend loaded",
			zap.String("provider", e.config.Provider),
			zap.String("model", backend.ModelID()),
			zap.Int("dimension", backend.Dimension()),
			zap.Duration("load_time", time.Since(start)))
		return backend, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Backend), nil
}

// Embed generates a validated embedding for a single text.
func (e *Engine) Embed(ctx context.Context, text string) (*Result, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: text cannot be empty", ErrEmptyInput)
	}

	results, err := e.embed(ctx, []string{text}, "embed")
	if err != nil {
		return nil, err
	}
	return results[0], nil
}

// EmbedBatch generates validated embeddings for multiple texts. The
// result order matches the input order.
func (e *Engine) EmbedBatch(ctx context.Context, texts []string) ([]*Result, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput)
	}
	for i, t := range texts {
		if t == "" {
			return nil, fmt.Errorf("%w: text at index %d is empty", ErrEmptyInput, i)
		}
	}

	return e.embed(ctx, texts, "embed_batch")
}

func (e *Engine) embed(ctx context.Context, texts []string, operation string) ([]*Result, error) {
	backend, err := e.getBackend(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var genErr error
	defer func() {
		e.metrics.RecordGeneration(ctx, backend.ModelID(), operation, time.Since(start), len(texts), genErr)
	}()

	tensor, err := backend.Embed(ctx, texts)
	if err != nil {
		genErr = fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
		return nil, genErr
	}

	vectors, err := splitTensor(tensor, len(texts), backend.Dimension())
	if err != nil {
		genErr = err
		return nil, err
	}

	results := make([]*Result, len(vectors))
	for i, v := range vectors {
		results[i] = &Result{
			Vector:     v,
			Dimensions: backend.Dimension(),
			ModelID:    backend.ModelID(),
		}
	}
	return results, nil
}

// splitTensor validates a backend tensor against the expected batch
// size and dimension, and slices it into per-text vectors.
//
// A rank-1 tensor is accepted only for a single input and must hold
// exactly the declared dimension. A rank-2 tensor must be shaped
// [len(texts), dimension]. Anything else is a backend contract
// violation.
func splitTensor(t *Tensor, numTexts, dimension int) ([][]float32, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: backend returned nil tensor", ErrShape)
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: backend declares non-positive dimension %d", ErrShape, dimension)
	}

	switch t.Rank() {
	case 1:
		if numTexts != 1 {
			return nil, fmt.Errorf("%w: rank-1 tensor for %d texts", ErrShape, numTexts)
		}
		if t.Dims[0] != int64(dimension) {
			return nil, fmt.Errorf("%w: got %d values, want %d", ErrShape, t.Dims[0], dimension)
		}
		if len(t.Data) != dimension {
			return nil, fmt.Errorf("%w: buffer holds %d values, dims claim %d", ErrShape, len(t.Data), dimension)
		}
		return [][]float32{t.Data}, nil

	case 2:
		if t.Dims[0] != int64(numTexts) {
			return nil, fmt.Errorf("%w: got %d rows, want %d", ErrShape, t.Dims[0], numTexts)
		}
		if t.Dims[1] != int64(dimension) {
			return nil, fmt.Errorf("%w: got %d columns, want %d", ErrShape, t.Dims[1], dimension)
		}
		if len(t.Data) != numTexts*dimension {
			return nil, fmt.Errorf("%w: buffer holds %d values, dims claim %d", ErrShape, len(t.Data), numTexts*dimension)
		}

		vectors := make([][]float32, numTexts)
		for i := 0; i < numTexts; i++ {
			vectors[i] = t.Data[i*dimension : (i+1)*dimension]
		}
		return vectors, nil

	default:
		return nil, fmt.Errorf("%w: unexpected rank %d", ErrShape, t.Rank())
	}
}

// Dimension returns the embedding dimension, or 0 if the backend is
// not loaded yet.
func (e *Engine) Dimension() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.backend == nil {
		return 0
	}
	return e.backend.Dimension()
}

// Close releases the backend if it was loaded.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.backend == nil {
		return nil
	}
	err := e.backend.Close()
	e.backend = nil
	return err
}
