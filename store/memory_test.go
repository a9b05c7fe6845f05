package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sigrag/types"
)

func TestMemoryStore_LookupUnknownCollection(t *testing.T) {
	s := NewMemoryStore(nil, nil)

	_, err := s.Lookup("missing")
	require.Error(t, err)
	assert.Equal(t, types.ErrCollectionNotFound, types.CodeOf(err))
	assert.Contains(t, err.Error(), "missing")
}

func TestMemoryStore_IndexAndSimilar(t *testing.T) {
	s := NewMemoryStore(nil, nil)
	ctx := context.Background()

	docs := []Document{
		{ID: "d1", Text: "Client A paid $50,000 for Enterprise License"},
		{ID: "d2", Text: "Client B invested $75,000 in Custom Development"},
		{ID: "d3", Text: "The office cafeteria serves lunch at noon"},
	}
	require.NoError(t, s.Index(ctx, "finance", docs))

	c, err := s.Lookup("finance")
	require.NoError(t, err)
	assert.Equal(t, "finance", c.Name())

	results, err := c.Similar(ctx, "what did Client A pay for the Enterprise License", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	// 排序为降序且最相关的是 d1
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
	assert.Equal(t, "d1", results[0].DocumentID)
}

func TestMemoryStore_SimilarLimitBound(t *testing.T) {
	s := NewMemoryStore(nil, nil)
	ctx := context.Background()

	require.NoError(t, s.Index(ctx, "c", []Document{{ID: "1", Text: "alpha"}}))

	c, err := s.Lookup("c")
	require.NoError(t, err)

	results, err := c.Similar(ctx, "alpha", 10)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestMemoryStore_List(t *testing.T) {
	s := NewMemoryStore(nil, nil)
	ctx := context.Background()

	require.NoError(t, s.Index(ctx, "zeta", []Document{{ID: "1", Text: "a"}}))
	require.NoError(t, s.Index(ctx, "alpha", []Document{{ID: "1", Text: "b"}}))

	names, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "zeta"}, names)
}

func TestMemoryStore_IndexEmptyNameRejected(t *testing.T) {
	s := NewMemoryStore(nil, nil)
	err := s.Index(context.Background(), "", []Document{{ID: "1", Text: "a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collection_name must be provided")
}

func TestLocalEmbedder_Deterministic(t *testing.T) {
	e := NewLocalEmbedder(64)
	ctx := context.Background()

	a, err := e.Embed(ctx, []string{"quarterly revenue report"})
	require.NoError(t, err)
	b, err := e.Embed(ctx, []string{"quarterly revenue report"})
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a[0], 64)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float64{1, 0}, []float64{1, 0}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float64{1, 0}, []float64{0, 1}), 1e-9)
	assert.Equal(t, 0.0, cosineSimilarity([]float64{1, 0}, []float64{1}))
	assert.Equal(t, 0.0, cosineSimilarity([]float64{0, 0}, []float64{1, 1}))
}
