package hasher

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/medrag/internal/core/domain"
)

func TestHash_Deterministic(t *testing.T) {
	a, err := Hash("Amoxicilline 1 g")
	require.NoError(t, err)
	b, err := Hash("Amoxicilline 1 g")
	require.NoError(t, err)
	c, err := Hash("Amoxicilline 2 g")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 16)
}

func TestProcessor_Process(t *testing.T) {
	p := New()
	assert.Equal(t, "hasher", p.Name())

	in := []domain.Chunk{{Index: 0, Text: "a"}, {Index: 1, Text: "b"}}
	out, err := p.Process(context.Background(), "doc-1", nil, in)
	require.NoError(t, err)
	require.Len(t, out, 2)

	for i, c := range out {
		want, _ := Hash(in[i].Text)
		assert.Equal(t, want, c.ContentHash)
		assert.Equal(t, in[i].Index, c.Index)
	}
	assert.Empty(t, in[0].ContentHash, "input chunks must not be mutated")
}
