package chromem

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndex_QueryEmpty(t *testing.T) {
	idx, err := New()
	require.NoError(t, err)

	results, err := idx.Query(context.Background(), 5, []float32{1, 0, 0}, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestIndex_UpsertAndQuery(t *testing.T) {
	ctx := context.Background()
	idx, err := New()
	require.NoError(t, err)

	require.NoError(t, idx.Upsert(ctx, "a", []float32{1, 0, 0}, map[string]any{
		"user_id": "1", "plant_id": "7", "content": "몬스테라 물주기",
	}))
	require.NoError(t, idx.Upsert(ctx, "b", []float32{0, 1, 0}, map[string]any{
		"user_id": "1", "plant_id": "7", "content": "햇빛이 부족해",
	}))
	require.NoError(t, idx.Upsert(ctx, "c", []float32{1, 0, 0}, map[string]any{
		"user_id": "2", "plant_id": "7", "content": "other user",
	}))
	assert.Equal(t, 3, idx.Count())

	results, err := idx.Query(ctx, 10, []float32{1, 0.1, 0}, map[string]string{"user_id": "1", "plant_id": "7"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].ID)
	assert.Equal(t, "몬스테라 물주기", results[0].Metadata["content"])
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestIndex_QueryClampsTopK(t *testing.T) {
	ctx := context.Background()
	idx, err := New()
	require.NoError(t, err)
	require.NoError(t, idx.Upsert(ctx, "only", []float32{0, 0, 1}, map[string]any{"user_id": "1"}))

	results, err := idx.Query(ctx, 50, []float32{0, 0, 1}, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "only", results[0].ID)
}

func TestFlattenMetadata(t *testing.T) {
	out := flattenMetadata(map[string]any{
		"s":   "x",
		"n":   42,
		"b":   true,
		"nil": nil,
	})
	assert.Equal(t, map[string]string{"s": "x", "n": "42", "b": "true"}, out)
}
