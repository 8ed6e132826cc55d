package memory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/memoryd/internal/embeddings"
	"github.com/fyrsmithlabs/memoryd/internal/logging"
	"github.com/fyrsmithlabs/memoryd/internal/tenantstore"
	"github.com/fyrsmithlabs/memoryd/internal/vectorindex"
)

// ErrValidation indicates invalid caller input.
var ErrValidation = errors.New("validation failed")

var tracer = otel.Tracer("memoryd.memory")

// Memory is one stored memory as returned to callers. Distance is set
// on search results only.
type Memory struct {
	ID       uint64
	Content  string
	Metadata Metadata
	Distance float32
}

// Stats summarizes a tenant's memory state. It is always available;
// fields degrade to zero values when the underlying store cannot
// answer.
type Stats struct {
	TotalMemories int
	EngineReady   bool
	StoreReady    bool
}

// Embedder is the slice of the embedding engine the orchestrator uses.
type Embedder interface {
	Embed(ctx context.Context, text string) (*embeddings.Result, error)
	Ready() bool
}

// Store is the slice of the tenant store the orchestrator uses.
type Store interface {
	Insert(ctx context.Context, vector []float32, metadata map[string]string) (uint64, error)
	Search(ctx context.Context, vector []float32, k int) ([]vectorindex.Hit, error)
	GetByID(ctx context.Context, id uint64) (map[string]string, bool, error)
	Count(ctx context.Context) (int, error)
}

var _ Store = (*tenantstore.Store)(nil)

// Config holds orchestrator limits.
type Config struct {
	// MaxContentLength is the maximum accepted content size in
	// characters. Defaults to 10000.
	MaxContentLength int

	// MaxSearchResults caps k for searches. Defaults to 100.
	MaxSearchResults int
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.MaxContentLength == 0 {
		c.MaxContentLength = 10000
	}
	if c.MaxSearchResults == 0 {
		c.MaxSearchResults = 100
	}
}

// Service orchestrates memory operations against one tenant store.
type Service struct {
	embedder Embedder
	store    Store
	config   Config
	logger   *logging.Logger
}

// NewService creates an orchestrator bound to the given store.
func NewService(embedder Embedder, store Store, cfg Config, logger *logging.Logger) (*Service, error) {
	if embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if store == nil {
		return nil, errors.New("store is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	cfg.ApplyDefaults()

	return &Service{
		embedder: embedder,
		store:    store,
		config:   cfg,
		logger:   logger,
	}, nil
}

// CreateMemory embeds content and stores it with its metadata. The
// metadata's content field is overwritten with the source text so the
// stored record can never disagree with what was embedded.
func (s *Service) CreateMemory(ctx context.Context, content string, meta Metadata) (*Memory, error) {
	ctx, span := tracer.Start(ctx, "Service.CreateMemory")
	defer span.End()

	if content == "" {
		return nil, fmt.Errorf("%w: content cannot be empty", ErrValidation)
	}
	if len([]rune(content)) > s.config.MaxContentLength {
		return nil, fmt.Errorf("%w: content exceeds %d characters", ErrValidation, s.config.MaxContentLength)
	}

	meta.Content = content
	if meta.CreatedAt == "" {
		meta.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}

	result, err := s.embedder.Embed(ctx, content)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("embedding content: %w", err)
	}

	id, err := s.store.Insert(ctx, result.Vector, meta.ToMap())
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("storing memory: %w", err)
	}

	span.SetAttributes(attribute.Int64("memory.id", int64(id)))
	s.logger.Debug(ctx, "memory created",
		zap.Uint64("id", id),
		zap.Int("content_length", len(content)),
		zap.String("model", result.ModelID))

	return &Memory{ID: id, Content: content, Metadata: meta}, nil
}

// SearchMemories embeds the query, fetches the k nearest memories and
// applies the filters. Filtering may drop hits but never reorders the
// nearest-first result.
func (s *Service) SearchMemories(ctx context.Context, query string, k int, filters *SearchFilters) ([]Memory, error) {
	ctx, span := tracer.Start(ctx, "Service.SearchMemories")
	defer span.End()
	span.SetAttributes(attribute.Int("k", k))

	if query == "" {
		return nil, fmt.Errorf("%w: query cannot be empty", ErrValidation)
	}
	if k < 1 {
		return nil, fmt.Errorf("%w: k must be at least 1, got %d", ErrValidation, k)
	}
	if k > s.config.MaxSearchResults {
		k = s.config.MaxSearchResults
	}

	result, err := s.embedder.Embed(ctx, query)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	hits, err := s.store.Search(ctx, result.Vector, k)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("searching store: %w", err)
	}

	memories := make([]Memory, 0, len(hits))
	for _, hit := range hits {
		meta := MetadataFromMap(hit.Metadata)
		if !filters.empty() && !filters.matches(&meta) {
			continue
		}
		memories = append(memories, Memory{
			ID:       hit.ID,
			Content:  meta.Content,
			Metadata: meta,
			Distance: hit.Distance,
		})
	}

	span.SetAttributes(
		attribute.Int("hits", len(hits)),
		attribute.Int("results", len(memories)),
	)
	return memories, nil
}

// GetMemory returns the memory stored under id. Absence is reported
// through the second return, not an error.
func (s *Service) GetMemory(ctx context.Context, id uint64) (*Memory, bool, error) {
	ctx, span := tracer.Start(ctx, "Service.GetMemory")
	defer span.End()
	span.SetAttributes(attribute.Int64("memory.id", int64(id)))

	raw, found, err := s.store.GetByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, false, fmt.Errorf("reading memory %d: %w", id, err)
	}
	if !found {
		return nil, false, nil
	}

	meta := MetadataFromMap(raw)
	return &Memory{ID: id, Content: meta.Content, Metadata: meta}, true, nil
}

// Stats reports the tenant's memory state. It never fails; an
// unreachable store yields zeroed values.
func (s *Service) Stats(ctx context.Context) Stats {
	ctx, span := tracer.Start(ctx, "Service.Stats")
	defer span.End()

	stats := Stats{EngineReady: s.embedder.Ready()}

	count, err := s.store.Count(ctx)
	if err != nil {
		s.logger.Warn(ctx, "stats degraded, store unreachable", zap.Error(err))
		return stats
	}

	stats.TotalMemories = count
	stats.StoreReady = true
	return stats
}
