package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	chromem "github.com/philippgille/chromem-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var chromemTracer = otel.Tracer("memoryd.vectorindex.chromem")

const collectionName = "vectors"

// ChromemIndex implements Index using chromem-go, an embeddable pure-Go
// vector database with gob persistence. Vectors arrive precomputed, so
// the collection's embedding function is never invoked.
type ChromemIndex struct {
	db         *chromem.DB
	collection *chromem.Collection
	dimension  int
	params     Params
}

// NewChromemIndex opens a persistent chromem index at cfg.Path.
func NewChromemIndex(cfg Config) (*ChromemIndex, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("%w: path required", ErrInvalidConfig)
	}
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive", ErrInvalidConfig)
	}

	params := cfg.Params
	params.ApplyDefaults()
	if err := params.Validate(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
		return nil, fmt.Errorf("creating directory %s: %w", cfg.Path, err)
	}

	db, err := chromem.NewPersistentDB(cfg.Path, cfg.Compress)
	if err != nil {
		return nil, fmt.Errorf("opening chromem db: %w", err)
	}

	// Tuning knobs ride along as collection metadata so a reopened
	// index keeps its recorded configuration.
	meta := map[string]string{
		"dimension":       strconv.Itoa(cfg.Dimension),
		"m":               strconv.Itoa(params.M),
		"ef_construction": strconv.Itoa(params.EfConstruction),
		"ef_search":       strconv.Itoa(params.EfSearch),
	}

	collection, err := db.GetOrCreateCollection(collectionName, meta, rejectEmbedding)
	if err != nil {
		return nil, fmt.Errorf("getting/creating collection: %w", err)
	}

	return &ChromemIndex{
		db:         db,
		collection: collection,
		dimension:  cfg.Dimension,
		params:     params,
	}, nil
}

// rejectEmbedding guards against accidental text-based inserts. All
// vectors must arrive precomputed.
func rejectEmbedding(context.Context, string) ([]float32, error) {
	return nil, errors.New("index stores precomputed vectors only")
}

// Params returns the tuning knobs recorded at open time.
func (x *ChromemIndex) Params() Params {
	return x.params
}

func (x *ChromemIndex) checkVector(vector []float32) error {
	if len(vector) != x.dimension {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vector), x.dimension)
	}
	return nil
}

func encodeID(id uint64) string {
	return strconv.FormatUint(id, 10)
}

func decodeID(s string) (uint64, error) {
	return strconv.ParseUint(s, 10, 64)
}

// Insert stores a vector with its metadata under the given id.
func (x *ChromemIndex) Insert(ctx context.Context, id uint64, vector []float32, metadata map[string]string) error {
	ctx, span := chromemTracer.Start(ctx, "ChromemIndex.Insert")
	defer span.End()
	span.SetAttributes(attribute.Int64("vector.id", int64(id)))

	if err := x.checkVector(vector); err != nil {
		span.RecordError(err)
		return err
	}

	doc := chromem.Document{
		ID:        encodeID(id),
		Content:   metadata["content"],
		Metadata:  metadata,
		Embedding: vector,
	}
	if err := x.collection.AddDocument(ctx, doc); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("%w: %v", ErrIndexFailed, err)
	}
	return nil
}

// Search returns up to k nearest hits ordered nearest first by cosine
// distance.
func (x *ChromemIndex) Search(ctx context.Context, vector []float32, k int) ([]Hit, error) {
	ctx, span := chromemTracer.Start(ctx, "ChromemIndex.Search")
	defer span.End()
	span.SetAttributes(attribute.Int("k", k))

	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", ErrInvalidConfig, k)
	}
	if err := x.checkVector(vector); err != nil {
		span.RecordError(err)
		return nil, err
	}

	// chromem requires nResults <= document count.
	count := x.collection.Count()
	if count == 0 {
		return []Hit{}, nil
	}
	if k > count {
		k = count
	}

	results, err := x.collection.QueryEmbedding(ctx, vector, k, nil, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%w: %v", ErrIndexFailed, err)
	}

	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		id, err := decodeID(r.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: malformed document id %q", ErrIndexFailed, r.ID)
		}
		hits = append(hits, Hit{
			ID:       id,
			Distance: 1 - r.Similarity,
			Metadata: r.Metadata,
		})
	}

	span.SetAttributes(attribute.Int("results", len(hits)))
	return hits, nil
}

// Get returns the metadata stored under id.
func (x *ChromemIndex) Get(ctx context.Context, id uint64) (map[string]string, bool, error) {
	ctx, span := chromemTracer.Start(ctx, "ChromemIndex.Get")
	defer span.End()
	span.SetAttributes(attribute.Int64("vector.id", int64(id)))

	doc, err := x.collection.GetByID(ctx, encodeID(id))
	if err != nil {
		// chromem reports absence as an error; absence is not an
		// error for callers.
		return nil, false, nil
	}
	return doc.Metadata, true, nil
}

// Count returns the number of stored vectors.
func (x *ChromemIndex) Count(_ context.Context) (int, error) {
	return x.collection.Count(), nil
}

// Delete removes the entry under id.
func (x *ChromemIndex) Delete(ctx context.Context, id uint64) error {
	ctx, span := chromemTracer.Start(ctx, "ChromemIndex.Delete")
	defer span.End()
	span.SetAttributes(attribute.Int64("vector.id", int64(id)))

	if err := x.collection.Delete(ctx, nil, nil, encodeID(id)); err != nil {
		span.RecordError(err)
		return fmt.Errorf("%w: %v", ErrIndexFailed, err)
	}
	return nil
}

// Close releases the index. chromem persists on write, so there is
// nothing to flush.
func (x *ChromemIndex) Close() error {
	return nil
}
