package tenantstore

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/memoryd/internal/ledger"
	"github.com/fyrsmithlabs/memoryd/internal/logging"
	"github.com/fyrsmithlabs/memoryd/internal/vectorindex"
)

var (
	// ErrInvalidHandle indicates a malformed tenant handle.
	ErrInvalidHandle = errors.New("invalid tenant handle")

	// ErrStore indicates an index storage or query failure.
	ErrStore = errors.New("tenant store operation failed")

	// ErrDeployment indicates store deployment failure.
	ErrDeployment = ledger.ErrDeployment
)

var tracer = otel.Tracer("memoryd.tenantstore")

// handlePattern matches ledger account and contract addresses plus
// test-friendly identifiers.
var handlePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Config holds construction settings for a tenant store.
type Config struct {
	// IndexPath is the base directory; each tenant's index lives in
	// its own subdirectory keyed by handle.
	IndexPath string

	// Index carries the provider and tuning knobs for the tenant
	// index. Path is derived from IndexPath and the handle.
	Index vectorindex.Config

	// Ledger is the shared ledger binding configuration. The first
	// store constructed in the process performs the binding; later
	// stores reuse it.
	Ledger ledger.Config
}

// Store is a tenant-scoped vector store. All operations are bound to
// the handle given at construction.
type Store struct {
	handle string
	shared *ledger.SharedConfig
	logger *logging.Logger

	// writeMu serializes Insert so the id read from the count and the
	// insert it feeds are atomic with respect to other writers.
	writeMu sync.Mutex

	mu       sync.RWMutex
	index    vectorindex.Index
	released bool
}

// New constructs a store for the given tenant handle. Initialization
// is eager: the shared ledger config is bound and the tenant index is
// opened before New returns.
func New(ctx context.Context, handle string, cfg Config, logger *logging.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	if !handlePattern.MatchString(handle) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidHandle, handle)
	}

	shared, err := ledger.GetOrInit(ctx, cfg.Ledger)
	if err != nil {
		return nil, fmt.Errorf("binding ledger config for %s: %w", handle, err)
	}

	indexCfg := cfg.Index
	indexCfg.Path = filepath.Join(cfg.IndexPath, handle)
	index, err := vectorindex.Open(indexCfg)
	if err != nil {
		return nil, fmt.Errorf("opening index for %s: %w", handle, err)
	}

	logger.Info(ctx, "tenant store opened",
		zap.String("handle", handle),
		zap.String("index_path", indexCfg.Path))

	return &Store{
		handle: handle,
		shared: shared,
		logger: logger,
		index:  index,
	}, nil
}

// Handle returns the tenant handle this store is bound to.
func (s *Store) Handle() string {
	return s.handle
}

// getIndex returns the live index or an error after Release.
func (s *Store) getIndex() (vectorindex.Index, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.released {
		return nil, fmt.Errorf("%w: store for %s is released", ErrStore, s.handle)
	}
	return s.index, nil
}

// Insert stores a vector with its metadata and returns the assigned
// record id. Ids are assigned from the count observed before the
// insert; writes are serialized per store so concurrent inserts get
// distinct ids.
func (s *Store) Insert(ctx context.Context, vector []float32, metadata map[string]string) (uint64, error) {
	ctx, span := tracer.Start(ctx, "Store.Insert")
	defer span.End()
	span.SetAttributes(attribute.String("tenant.handle", s.handle))

	index, err := s.getIndex()
	if err != nil {
		span.RecordError(err)
		return 0, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	count, err := index.Count(ctx)
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("%w: counting records for %s: %v", ErrStore, s.handle, err)
	}

	id := uint64(count)
	if err := index.Insert(ctx, id, vector, metadata); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("%w: inserting record %d for %s: %v", ErrStore, id, s.handle, err)
	}

	span.SetAttributes(attribute.Int64("record.id", int64(id)))
	return id, nil
}

// Search returns up to k hits ordered nearest first. An empty store
// yields an empty slice.
func (s *Store) Search(ctx context.Context, vector []float32, k int) ([]vectorindex.Hit, error) {
	ctx, span := tracer.Start(ctx, "Store.Search")
	defer span.End()
	span.SetAttributes(
		attribute.String("tenant.handle", s.handle),
		attribute.Int("k", k),
	)

	if k < 1 {
		return nil, fmt.Errorf("%w: k must be at least 1, got %d", ErrStore, k)
	}

	index, err := s.getIndex()
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	hits, err := index.Search(ctx, vector, k)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%w: searching %s: %v", ErrStore, s.handle, err)
	}

	span.SetAttributes(attribute.Int("results", len(hits)))
	return hits, nil
}

// GetByID returns the metadata stored under id. Absence is reported
// through the second return, not an error.
func (s *Store) GetByID(ctx context.Context, id uint64) (map[string]string, bool, error) {
	ctx, span := tracer.Start(ctx, "Store.GetByID")
	defer span.End()
	span.SetAttributes(
		attribute.String("tenant.handle", s.handle),
		attribute.Int64("record.id", int64(id)),
	)

	index, err := s.getIndex()
	if err != nil {
		span.RecordError(err)
		return nil, false, err
	}

	metadata, found, err := index.Get(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, false, fmt.Errorf("%w: reading record %d for %s: %v", ErrStore, id, s.handle, err)
	}
	return metadata, found, nil
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	index, err := s.getIndex()
	if err != nil {
		return 0, err
	}

	count, err := index.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: counting records for %s: %v", ErrStore, s.handle, err)
	}
	return count, nil
}

// Release drops the store's in-memory handles. It never fails and
// never deletes persisted or remote data. The store is unusable
// afterwards.
func (s *Store) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return
	}
	s.released = true

	if err := s.index.Close(); err != nil {
		s.logger.Warn(context.Background(), "closing index on release",
			zap.String("handle", s.handle),
			zap.Error(err))
	}
	s.index = nil
}
