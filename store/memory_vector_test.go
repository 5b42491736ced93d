package store

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryVectorSearchOptions_Validate(t *testing.T) {
	tests := []struct {
		name    string
		opts    *MemoryVectorSearchOptions
		wantErr bool
		errMsg  string
	}{
		{"valid defaults", &MemoryVectorSearchOptions{Vector: []float32{0.1}}, false, ""},
		{"empty Vector", &MemoryVectorSearchOptions{Vector: []float32{}}, true, "vector cannot be empty"},
		{"nil Vector", &MemoryVectorSearchOptions{Vector: nil}, true, "vector cannot be empty"},
		{"Limit negative", &MemoryVectorSearchOptions{Vector: []float32{0.1}, Limit: -1}, true, "limit cannot be negative"},
		{"Limit > 1000", &MemoryVectorSearchOptions{Vector: []float32{0.1}, Limit: 1001}, true, "limit too large"},
		{"Limit == 1000", &MemoryVectorSearchOptions{Vector: []float32{0.1}, Limit: 1000}, false, ""},
		{"filter keys", &MemoryVectorSearchOptions{Vector: []float32{0.1}, Filter: map[string]string{"user_id": "1", "plant_id": "2"}}, false, ""},
		{"injected filter key", &MemoryVectorSearchOptions{Vector: []float32{0.1}, Filter: map[string]string{"x' OR '1'='1": "1"}}, true, "invalid filter key"},
		{"empty filter key", &MemoryVectorSearchOptions{Vector: []float32{0.1}, Filter: map[string]string{"": "1"}}, true, "invalid filter key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.Validate()

			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, strings.Contains(err.Error(), tt.errMsg),
					"expected error to contain %q, got %q", tt.errMsg, err.Error())
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestMemoryVectorSearchOptions_Validate_SetsDefaultLimit(t *testing.T) {
	opts := &MemoryVectorSearchOptions{Vector: []float32{0.1}}

	require.NoError(t, opts.Validate())
	assert.Equal(t, 10, opts.Limit, "Limit should be set to default value 10")
}

func TestStore_RejectsInvalidInput(t *testing.T) {
	s := New(nil, nil)
	ctx := context.Background()

	_, err := s.CreateChatMessage(ctx, &ChatMessage{Role: "system", Content: "x"})
	assert.Error(t, err)

	assert.Error(t, s.UpsertMemoryVector(ctx, &MemoryVector{Embedding: []float32{1}}))
	assert.Error(t, s.UpsertMemoryVector(ctx, &MemoryVector{ID: "mem:1"}))

	_, err = s.MemoryVectorSearch(ctx, &MemoryVectorSearchOptions{})
	assert.Error(t, err)
}
