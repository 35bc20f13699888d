package gemini

import (
	"context"
	"errors"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/medrag/internal/core/domain"
)

func TestNewEmbeddingService_RequiresAPIKey(t *testing.T) {
	_, err := NewEmbeddingService(context.Background(), Config{})
	assert.ErrorIs(t, err, domain.ErrCapabilityUnavailable)
}

func TestNewEmbeddingService_Defaults(t *testing.T) {
	svc, err := NewEmbeddingService(context.Background(), Config{APIKey: "key"})
	require.NoError(t, err)
	defer svc.Close()

	assert.Equal(t, DefaultModel, svc.ModelName())
	assert.Equal(t, 768, svc.Dimensions())
}

func TestEmbedBatch(t *testing.T) {
	svc, err := NewEmbeddingService(context.Background(), Config{APIKey: "key"})
	require.NoError(t, err)
	defer svc.Close()

	var seen []string
	svc.batchEmbed = func(_ context.Context, texts []string) (*genai.BatchEmbedContentsResponse, error) {
		seen = texts
		return &genai.BatchEmbedContentsResponse{Embeddings: []*genai.ContentEmbedding{
			{Values: []float32{1, 0}},
			{Values: []float32{0, 1}},
		}}, nil
	}

	vectors, err := svc.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, seen)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, vectors)
}

func TestEmbedBatch_TransportError(t *testing.T) {
	svc, err := NewEmbeddingService(context.Background(), Config{APIKey: "key"})
	require.NoError(t, err)
	defer svc.Close()

	svc.batchEmbed = func(context.Context, []string) (*genai.BatchEmbedContentsResponse, error) {
		return nil, errors.New("quota")
	}

	_, err = svc.Embed(context.Background(), "a")
	assert.ErrorContains(t, err, "gemini: embed: quota")
}

func TestVectorsFrom(t *testing.T) {
	tests := []struct {
		name    string
		resp    *genai.BatchEmbedContentsResponse
		n       int
		wantErr string
	}{
		{"nil response", nil, 1, "got 0 embeddings for 1 inputs"},
		{"short", &genai.BatchEmbedContentsResponse{Embeddings: []*genai.ContentEmbedding{{Values: []float32{1}}}}, 2, "got 1 embeddings"},
		{"empty vector", &genai.BatchEmbedContentsResponse{Embeddings: []*genai.ContentEmbedding{{}}}, 1, "empty embedding at 0"},
		{"ok", &genai.BatchEmbedContentsResponse{Embeddings: []*genai.ContentEmbedding{{Values: []float32{1}}}}, 1, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			vectors, err := vectorsFrom(tc.resp, tc.n)
			if tc.wantErr != "" {
				assert.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, vectors, tc.n)
		})
	}
}
