package rag

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func embedded(id string, vec ...float64) Document {
	d := doc(id, "content of "+id)
	d.Embedding = vec
	return d
}

func TestInMemoryVectorStore_AddAndSearch(t *testing.T) {
	store := NewInMemoryVectorStore(zap.NewNop())
	ctx := context.Background()

	require.NoError(t, store.AddDocuments(ctx, []Document{
		embedded("a", 1, 0, 0),
		embedded("b", 0, 1, 0),
		embedded("c", 0.9, 0.1, 0),
	}))

	results, err := store.Search(ctx, []float64{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].Document.ID)
	assert.Equal(t, "c", results[1].Document.ID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
}

func TestInMemoryVectorStore_MissingEmbedding(t *testing.T) {
	store := NewInMemoryVectorStore(zap.NewNop())
	err := store.AddDocuments(context.Background(), []Document{doc("x", "no embedding")})
	require.Error(t, err)
}

func TestInMemoryVectorStore_Delete(t *testing.T) {
	store := NewInMemoryVectorStore(zap.NewNop())
	ctx := context.Background()

	require.NoError(t, store.AddDocuments(ctx, []Document{
		embedded("a", 1, 0),
		embedded("b", 0, 1),
	}))
	require.NoError(t, store.DeleteDocuments(ctx, []string{"a"}))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestInMemoryVectorStore_EmptySearch(t *testing.T) {
	store := NewInMemoryVectorStore(zap.NewNop())
	results, err := store.Search(context.Background(), []float64{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float64{1, 2}, []float64{1, 2}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float64{1, 0}, []float64{0, 1}), 1e-9)
	assert.Equal(t, 0.0, cosineSimilarity([]float64{1}, []float64{1, 2}))
	assert.Equal(t, 0.0, cosineSimilarity([]float64{0, 0}, []float64{1, 2}))
}
