package sqlite

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-factcheck/internal/core/domain"
	"github.com/custodia-labs/sercha-factcheck/internal/core/ports/driven"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(filepath.Join(t.TempDir(), "data", "chunks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, store.Close()) })
	return store
}

func record(source string, index int, text string, vector ...float32) domain.VectorRecord {
	stem := source[:len(source)-len(filepath.Ext(source))]
	return domain.VectorRecord{
		ChunkRecord: domain.ChunkRecord{
			ID:   domain.ChunkID(stem, index),
			Text: text,
			Metadata: domain.ChunkMetadata{
				Source:        source,
				ChunkIndex:    index,
				Title:         "Title of " + stem,
				Author:        domain.UnknownAuthor,
				ProcessedDate: "2024-03-01T09:00:00Z",
				ChunkLength:   len([]rune(text)),
			},
		},
		Vector: vector,
	}
}

func TestNewStore_RequiresPath(t *testing.T) {
	_, err := NewStore("")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNewStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chunks.db")
	ctx := context.Background()

	store, err := NewStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Upsert(ctx, []domain.VectorRecord{record("a.pdf", 0, "alpha", 1, 0)}))
	require.NoError(t, store.Close())

	// migrations are not re-applied and data survives
	store, err = NewStore(path)
	require.NoError(t, err)
	defer store.Close()

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, path, store.Path())
}

func TestStore_QueryEmpty(t *testing.T) {
	store := setupTestStore(t)

	matches, err := store.Query(context.Background(), []float32{1, 0}, 3)
	require.NoError(t, err)
	assert.NotNil(t, matches)
	assert.Empty(t, matches)
}

func TestStore_QueryOrdersByDistance(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, []domain.VectorRecord{
		record("a.pdf", 0, "same direction", 2, 0),
		record("a.pdf", 1, "orthogonal", 0, 1),
		record("b.pdf", 0, "opposite", -1, 0),
		record("b.pdf", 1, "diagonal", 1, 1),
	}))

	matches, err := store.Query(ctx, []float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, matches, 3)

	assert.Equal(t, "a_chunk_0", matches[0].ID)
	assert.InDelta(t, 0, matches[0].Distance, 1e-9)
	assert.Equal(t, "b_chunk_1", matches[1].ID)
	assert.InDelta(t, 1-1/math.Sqrt2, matches[1].Distance, 1e-6)
	assert.Equal(t, "a_chunk_1", matches[2].ID)
	assert.InDelta(t, 1, matches[2].Distance, 1e-9)

	// metadata and text come back with the match
	assert.Equal(t, "same direction", matches[0].Document)
	assert.Equal(t, "a.pdf", matches[0].Metadata.Source)
	assert.Equal(t, "Title of a", matches[0].Metadata.Title)
}

func TestStore_QueryDimensionMismatch(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, []domain.VectorRecord{record("a.pdf", 0, "alpha", 1, 0, 0)}))

	_, err := store.Query(ctx, []float32{1, 0}, 1)
	assert.Error(t, err)
}

func TestStore_UpsertReplaces(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, []domain.VectorRecord{record("a.pdf", 0, "old text", 1, 0)}))
	require.NoError(t, store.Upsert(ctx, []domain.VectorRecord{record("a.pdf", 0, "new text", 0, 1)}))

	n, _ := store.Count(ctx)
	assert.Equal(t, 1, n)

	matches, err := store.Query(ctx, []float32{0, 1}, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "new text", matches[0].Document)
	assert.InDelta(t, 0, matches[0].Distance, 1e-9)
}

func TestStore_UpsertRejectsMissingVector(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	err := store.Upsert(ctx, []domain.VectorRecord{
		record("a.pdf", 0, "fine", 1, 0),
		record("a.pdf", 1, "no vector"),
	})
	assert.Error(t, err)

	// the whole batch rolls back
	n, _ := store.Count(ctx)
	assert.Equal(t, 0, n)
}

func TestStore_GetPagingAndFilter(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	var records []domain.VectorRecord
	for i := 0; i < 7; i++ {
		records = append(records, record("a.pdf", i, fmt.Sprintf("a%d", i), 1, 0))
	}
	records = append(records, record("b.pdf", 0, "b0", 0, 1))
	require.NoError(t, store.Upsert(ctx, records))

	filter := driven.Filter{Source: "a.pdf"}
	first, err := store.Get(ctx, driven.GetOptions{Limit: 5, Filter: filter})
	require.NoError(t, err)
	second, err := store.Get(ctx, driven.GetOptions{Limit: 5, Offset: 5, Filter: filter})
	require.NoError(t, err)

	assert.Len(t, first, 5)
	assert.Len(t, second, 2)
	for _, c := range append(first, second...) {
		assert.Equal(t, "a.pdf", c.Metadata.Source)
	}
	assert.Less(t, first[0].ID, first[1].ID, "results are ordered by id")

	all, err := store.Get(ctx, driven.GetOptions{})
	require.NoError(t, err)
	assert.Len(t, all, 8)

	tail, err := store.Get(ctx, driven.GetOptions{Offset: 6})
	require.NoError(t, err)
	assert.Len(t, tail, 2)
}

func TestStore_Delete(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, []domain.VectorRecord{
		record("a.pdf", 0, "a0", 1, 0),
		record("a.pdf", 1, "a1", 1, 0),
		record("b.pdf", 0, "b0", 0, 1),
	}))

	require.NoError(t, store.Delete(ctx, []string{"a_chunk_0", "missing_chunk_9"}))
	require.NoError(t, store.Delete(ctx, nil))
	n, _ := store.Count(ctx)
	assert.Equal(t, 2, n)

	require.NoError(t, store.DeleteWhere(ctx, driven.Filter{Source: "a.pdf"}))
	n, _ = store.Count(ctx)
	assert.Equal(t, 1, n)

	require.NoError(t, store.Reset(ctx))
	n, _ = store.Count(ctx)
	assert.Equal(t, 0, n)
	assert.NoError(t, store.HealthCheck(ctx))
}

func TestCosineDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{0.3, 0.4}, []float32{0.3, 0.4}, 0},
		{"scaled", []float32{1, 1}, []float32{5, 5}, 0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 1},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, 2},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cosineDistance(tt.a, tt.b, norm(tt.a))
			if math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("cosineDistance = %v, want %v", got, tt.want)
			}
			if got < 0 {
				t.Errorf("distance should never be negative, got %v", got)
			}
		})
	}
}

func TestFloat32BytesRoundTrip(t *testing.T) {
	in := []float32{0.25, -1.5, 3, 0}
	assert.Equal(t, in, bytesToFloat32Slice(float32SliceToBytes(in)))
	assert.Nil(t, float32SliceToBytes(nil))
	assert.Nil(t, bytesToFloat32Slice(nil))
}
