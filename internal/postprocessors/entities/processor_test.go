package entities

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/medrag/internal/core/domain"
)

func TestName(t *testing.T) {
	assert.Equal(t, "entities", New().Name())
}

func TestProcess_KeepsMentionedEntities(t *testing.T) {
	chunks := []domain.Chunk{
		{Index: 0, Text: "Metformin 500 mg with meals.", Entities: []string{"metformin", "Insulin", "Metformin"}},
		{Index: 1, Text: "Insulin titration.", Entities: []string{"metformin", "Insulin"}},
		{Index: 2, Text: "No entities here."},
	}

	out, err := New().Process(context.Background(), "doc", nil, chunks)
	require.NoError(t, err)
	require.Len(t, out, 3)

	assert.Equal(t, []string{"metformin"}, out[0].Entities)
	assert.Equal(t, []string{"Insulin"}, out[1].Entities)
	assert.Nil(t, out[2].Entities)
}

func TestProcess_KeepUnmatched(t *testing.T) {
	chunks := []domain.Chunk{
		{Text: "Dose table", Entities: []string{"Aspirin", " ", "aspirin", "Heparin"}},
	}

	out, err := New(WithKeepUnmatched(true)).Process(context.Background(), "doc", nil, chunks)
	require.NoError(t, err)
	assert.Equal(t, []string{"Aspirin", "Heparin"}, out[0].Entities)
}

func TestProcess_DoesNotMutateInput(t *testing.T) {
	chunks := []domain.Chunk{{Text: "abc", Entities: []string{"xyz"}}}

	_, err := New().Process(context.Background(), "doc", nil, chunks)
	require.NoError(t, err)
	assert.Equal(t, []string{"xyz"}, chunks[0].Entities)
}
