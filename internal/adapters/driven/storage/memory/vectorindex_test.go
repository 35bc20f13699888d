package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/medrag/internal/core/domain"
	"github.com/custodia-labs/medrag/internal/core/ports/driven"
)

func record(id string, index int, vec ...float32) driven.VectorRecord {
	return driven.VectorRecord{
		ID:     id,
		Vector: vec,
		Chunk:  domain.Chunk{Index: index, DocumentID: "doc-1", Text: id},
	}
}

func TestVectorIndex_SearchRanksByCosine(t *testing.T) {
	idx := NewVectorIndex()
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, "ns", []driven.VectorRecord{
		record("orthogonal", 0, 0, 1),
		record("exact", 1, 2, 0),
		record("close", 2, 1, 0.2),
	}))

	hits, err := idx.Search(ctx, "ns", []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "exact", hits[0].ID)
	assert.InDelta(t, 1.0, hits[0].Similarity, 1e-9)
	assert.Equal(t, "close", hits[1].ID)
	assert.Equal(t, "close", hits[1].Chunk.Text)
}

func TestVectorIndex_TieBreakByIndex(t *testing.T) {
	idx := NewVectorIndex()
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, "ns", []driven.VectorRecord{
		record("b", 5, 1, 0),
		record("a", 2, 1, 0),
	}))

	hits, err := idx.Search(ctx, "ns", []float32{1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, 2, hits[0].Chunk.Index)
}

func TestVectorIndex_UpsertOverwrites(t *testing.T) {
	idx := NewVectorIndex()
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, "ns", []driven.VectorRecord{record("p1", 0, 1, 0)}))
	require.NoError(t, idx.Upsert(ctx, "ns", []driven.VectorRecord{record("p1", 0, 0, 1)}))

	count, err := idx.Count(ctx, "ns")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	hits, err := idx.Search(ctx, "ns", []float32{0, 1}, 1)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, hits[0].Similarity, 1e-9)
}

func TestVectorIndex_DimensionMismatch(t *testing.T) {
	idx := NewVectorIndex()
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, "ns", []driven.VectorRecord{record("p1", 0, 1, 0)}))
	err := idx.Upsert(ctx, "ns", []driven.VectorRecord{record("p2", 1, 1, 0, 0)})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = idx.Search(ctx, "ns", []float32{1, 0, 0}, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestVectorIndex_NamespacesIsolated(t *testing.T) {
	idx := NewVectorIndex()
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, "a", []driven.VectorRecord{record("p1", 0, 1, 0)}))
	require.NoError(t, idx.Upsert(ctx, "b", []driven.VectorRecord{record("p2", 0, 1, 0)}))

	require.NoError(t, idx.DeleteNamespace(ctx, "a"))
	require.NoError(t, idx.DeleteNamespace(ctx, "missing"))

	hits, err := idx.Search(ctx, "a", []float32{1, 0}, 3)
	require.NoError(t, err)
	assert.Empty(t, hits)

	count, err := idx.Count(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestVectorIndex_StoresCopies(t *testing.T) {
	idx := NewVectorIndex()
	ctx := context.Background()

	vec := []float32{1, 0}
	require.NoError(t, idx.Upsert(ctx, "ns", []driven.VectorRecord{{ID: "p1", Vector: vec}}))
	vec[0], vec[1] = 0, 1

	hits, err := idx.Search(ctx, "ns", []float32{1, 0}, 1)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, hits[0].Similarity, 1e-9)
}
