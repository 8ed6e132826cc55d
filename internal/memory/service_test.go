package memory

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/memoryd/internal/embeddings"
	"github.com/fyrsmithlabs/memoryd/internal/vectorindex"
)

// fakeEmbedder hashes text length into a deterministic vector.
type fakeEmbedder struct {
	ready    bool
	embedErr error
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) (*embeddings.Result, error) {
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	f.ready = true
	return &embeddings.Result{
		Vector:     []float32{float32(len(text)), 1, 0},
		Dimensions: 3,
		ModelID:    "fake-model",
	}, nil
}

func (f *fakeEmbedder) Ready() bool { return f.ready }

// fakeStore keeps records in insertion order and returns them all as
// hits, nearest first by insertion.
type fakeStore struct {
	records   []map[string]string
	insertErr error
	searchErr error
	countErr  error
}

func (f *fakeStore) Insert(_ context.Context, _ []float32, metadata map[string]string) (uint64, error) {
	if f.insertErr != nil {
		return 0, f.insertErr
	}
	f.records = append(f.records, metadata)
	return uint64(len(f.records) - 1), nil
}

func (f *fakeStore) Search(_ context.Context, _ []float32, k int) ([]vectorindex.Hit, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	hits := make([]vectorindex.Hit, 0, k)
	for i, rec := range f.records {
		if len(hits) == k {
			break
		}
		hits = append(hits, vectorindex.Hit{
			ID:       uint64(i),
			Distance: float32(i) * 0.1,
			Metadata: rec,
		})
	}
	return hits, nil
}

func (f *fakeStore) GetByID(_ context.Context, id uint64) (map[string]string, bool, error) {
	if int(id) >= len(f.records) {
		return nil, false, nil
	}
	return f.records[id], true, nil
}

func (f *fakeStore) Count(_ context.Context) (int, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	return len(f.records), nil
}

func newTestService(t *testing.T, store *fakeStore) (*Service, *fakeEmbedder) {
	t.Helper()
	embedder := &fakeEmbedder{}
	svc, err := NewService(embedder, store, Config{}, nil)
	require.NoError(t, err)
	return svc, embedder
}

func TestCreateMemory(t *testing.T) {
	store := &fakeStore{}
	svc, _ := newTestService(t, store)
	ctx := context.Background()

	mem, err := svc.CreateMemory(ctx, "user prefers dark mode", Metadata{
		Content: "stale copy that must be replaced",
		Tags:    []string{"preference"},
	})
	require.NoError(t, err)

	assert.Equal(t, uint64(0), mem.ID)
	assert.Equal(t, "user prefers dark mode", mem.Content)
	assert.Equal(t, "user prefers dark mode", mem.Metadata.Content,
		"metadata content must be overwritten with the source text")
	assert.NotEmpty(t, mem.Metadata.CreatedAt)

	stored := store.records[0]
	assert.Equal(t, "user prefers dark mode", stored["content"])
}

func TestCreateMemoryValidation(t *testing.T) {
	svc, _ := newTestService(t, &fakeStore{})
	ctx := context.Background()

	_, err := svc.CreateMemory(ctx, "", Metadata{})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreateMemory(ctx, strings.Repeat("a", 10001), Metadata{})
	assert.ErrorIs(t, err, ErrValidation)

	// Exactly at the limit is accepted.
	_, err = svc.CreateMemory(ctx, strings.Repeat("a", 10000), Metadata{})
	assert.NoError(t, err)
}

func TestCreateMemoryEmbedFailure(t *testing.T) {
	store := &fakeStore{}
	embedder := &fakeEmbedder{embedErr: errors.New("model gone")}
	svc, err := NewService(embedder, store, Config{}, nil)
	require.NoError(t, err)

	_, err = svc.CreateMemory(context.Background(), "content", Metadata{})
	require.Error(t, err)
	assert.Empty(t, store.records, "nothing may be stored when embedding fails")
}

func TestSearchMemories(t *testing.T) {
	store := &fakeStore{}
	svc, _ := newTestService(t, store)
	ctx := context.Background()

	_, err := svc.CreateMemory(ctx, "dark mode", Metadata{Tags: []string{"ui"}, Importance: 8})
	require.NoError(t, err)
	_, err = svc.CreateMemory(ctx, "vim keybindings", Metadata{Tags: []string{"editor"}, Importance: 3})
	require.NoError(t, err)
	_, err = svc.CreateMemory(ctx, "tab width", Metadata{Tags: []string{"ui", "editor"}, Importance: 5})
	require.NoError(t, err)

	t.Run("unfiltered returns all in store order", func(t *testing.T) {
		results, err := svc.SearchMemories(ctx, "preferences", 10, nil)
		require.NoError(t, err)
		require.Len(t, results, 3)
		for i := 1; i < len(results); i++ {
			assert.GreaterOrEqual(t, results[i].Distance, results[i-1].Distance)
		}
	})

	t.Run("tag filter shrinks without reordering", func(t *testing.T) {
		results, err := svc.SearchMemories(ctx, "preferences", 10, &SearchFilters{Tags: []string{"ui"}})
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "dark mode", results[0].Content)
		assert.Equal(t, "tab width", results[1].Content)
	})

	t.Run("importance range", func(t *testing.T) {
		results, err := svc.SearchMemories(ctx, "preferences", 10, &SearchFilters{ImportanceMin: 4, ImportanceMax: 8})
		require.NoError(t, err)
		require.Len(t, results, 2)
	})

	t.Run("filters can empty the result", func(t *testing.T) {
		results, err := svc.SearchMemories(ctx, "preferences", 10, &SearchFilters{Tags: []string{"nonexistent"}})
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}

func TestSearchMemoriesValidation(t *testing.T) {
	svc, _ := newTestService(t, &fakeStore{})
	ctx := context.Background()

	_, err := svc.SearchMemories(ctx, "", 5, nil)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.SearchMemories(ctx, "q", 0, nil)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSearchMemoriesCapsK(t *testing.T) {
	store := &fakeStore{}
	embedder := &fakeEmbedder{}
	svc, err := NewService(embedder, store, Config{MaxSearchResults: 2}, nil)
	require.NoError(t, err)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := svc.CreateMemory(ctx, "memory", Metadata{})
		require.NoError(t, err)
	}

	results, err := svc.SearchMemories(ctx, "q", 50, nil)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestGetMemory(t *testing.T) {
	store := &fakeStore{}
	svc, _ := newTestService(t, store)
	ctx := context.Background()

	created, err := svc.CreateMemory(ctx, "remember this", Metadata{Client: "cli"})
	require.NoError(t, err)

	mem, found, err := svc.GetMemory(ctx, created.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "remember this", mem.Content)
	assert.Equal(t, "cli", mem.Metadata.Client)

	_, found, err = svc.GetMemory(ctx, 999)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStatsNeverFails(t *testing.T) {
	t.Run("healthy store", func(t *testing.T) {
		store := &fakeStore{}
		svc, _ := newTestService(t, store)
		ctx := context.Background()

		_, err := svc.CreateMemory(ctx, "one", Metadata{})
		require.NoError(t, err)

		stats := svc.Stats(ctx)
		assert.Equal(t, 1, stats.TotalMemories)
		assert.True(t, stats.StoreReady)
		assert.True(t, stats.EngineReady)
	})

	t.Run("broken store degrades to zeroes", func(t *testing.T) {
		store := &fakeStore{countErr: errors.New("store offline")}
		svc, _ := newTestService(t, store)

		stats := svc.Stats(context.Background())
		assert.Zero(t, stats.TotalMemories)
		assert.False(t, stats.StoreReady)
	})
}
