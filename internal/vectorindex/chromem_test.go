package vectorindex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIndex(t *testing.T) *ChromemIndex {
	t.Helper()
	idx, err := NewChromemIndex(Config{
		Path:      t.TempDir(),
		Dimension: 3,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestNewChromemIndexValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "missing path", cfg: Config{Dimension: 3}},
		{name: "zero dimension", cfg: Config{Path: "/tmp/x"}},
		{name: "negative m", cfg: Config{Path: "/tmp/x", Dimension: 3, Params: Params{M: -1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewChromemIndex(tt.cfg)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestParamsDefaults(t *testing.T) {
	idx := newTestIndex(t)
	p := idx.Params()
	assert.Equal(t, 16, p.M)
	assert.Equal(t, 200, p.EfConstruction)
	assert.Equal(t, 50, p.EfSearch)
}

func TestInsertAndGet(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	meta := map[string]string{"content": "user prefers dark mode", "client": "cli"}
	require.NoError(t, idx.Insert(ctx, 0, []float32{1, 0, 0}, meta))

	got, ok, err := idx.Get(ctx, 0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "user prefers dark mode", got["content"])
	assert.Equal(t, "cli", got["client"])

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestGetAbsentIsNotError(t *testing.T) {
	idx := newTestIndex(t)

	got, ok, err := idx.Get(context.Background(), 42)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestInsertDimensionMismatch(t *testing.T) {
	idx := newTestIndex(t)

	err := idx.Insert(context.Background(), 0, []float32{1, 0}, nil)
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = idx.Search(context.Background(), []float32{1, 0, 0, 0}, 1)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestSearchEmptyIndex(t *testing.T) {
	idx := newTestIndex(t)

	hits, err := idx.Search(context.Background(), []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearchOrdersNearestFirst(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Insert(ctx, 0, []float32{1, 0, 0}, map[string]string{"content": "x axis"}))
	require.NoError(t, idx.Insert(ctx, 1, []float32{0, 1, 0}, map[string]string{"content": "y axis"}))
	require.NoError(t, idx.Insert(ctx, 2, []float32{0, 0, 1}, map[string]string{"content": "z axis"}))

	hits, err := idx.Search(ctx, []float32{1, 0, 0}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)

	assert.Equal(t, uint64(0), hits[0].ID)
	assert.InDelta(t, 0.0, hits[0].Distance, 1e-5)
	for i := 1; i < len(hits); i++ {
		assert.GreaterOrEqual(t, hits[i].Distance, hits[i-1].Distance)
	}
}

func TestSearchCapsKAtCount(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Insert(ctx, 0, []float32{1, 0, 0}, nil))

	hits, err := idx.Search(ctx, []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestSearchRejectsNonPositiveK(t *testing.T) {
	idx := newTestIndex(t)

	_, err := idx.Search(context.Background(), []float32{1, 0, 0}, 0)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestInsertOverwritesExistingID(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Insert(ctx, 0, []float32{1, 0, 0}, map[string]string{"content": "old"}))
	require.NoError(t, idx.Insert(ctx, 0, []float32{0, 1, 0}, map[string]string{"content": "new"}))

	got, ok, err := idx.Get(ctx, 0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "new", got["content"])

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestDelete(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Insert(ctx, 0, []float32{1, 0, 0}, nil))
	require.NoError(t, idx.Delete(ctx, 0))

	_, ok, err := idx.Get(ctx, 0)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPersistenceAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	idx, err := NewChromemIndex(Config{Path: dir, Dimension: 3})
	require.NoError(t, err)
	require.NoError(t, idx.Insert(ctx, 7, []float32{0, 1, 0}, map[string]string{"content": "kept"}))
	require.NoError(t, idx.Close())

	reopened, err := NewChromemIndex(Config{Path: dir, Dimension: 3})
	require.NoError(t, err)
	defer reopened.Close()

	got, ok, err := reopened.Get(ctx, 7)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "kept", got["content"])
}

func TestOpenUnknownProvider(t *testing.T) {
	_, err := Open(Config{Provider: "qdrant", Path: "/tmp/x", Dimension: 3})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
