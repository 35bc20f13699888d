package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/medrag/internal/adapters/driven/llm/anthropic"
	"github.com/custodia-labs/medrag/internal/core/domain"
	"github.com/custodia-labs/medrag/internal/core/ports/driven"
)

func newVisionServer(t *testing.T, reply string, got *map[string]any) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(got))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"content":     []map[string]string{{"type": "text", "text": reply}},
			"stop_reason": "end_turn",
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func TestExtract_DocumentBlock(t *testing.T) {
	var got map[string]any
	server := newVisionServer(t, `{"text":"Ceftriaxone 1 g IV","page_type":"protocol"}`, &got)

	svc, err := NewVisionService(anthropic.Config{APIKey: "k", BaseURL: server.URL}, 0)
	require.NoError(t, err)

	res, err := svc.Extract(context.Background(), driven.Page{Number: 2, Data: []byte("%PDF-1.4"), MIMEType: "application/pdf"})
	require.NoError(t, err)
	assert.Equal(t, "Ceftriaxone 1 g IV", res.Text)
	assert.Equal(t, "protocol", res.Analysis.PageType)

	assert.InDelta(t, float64(DefaultMaxTokens), got["max_tokens"], 0)
	assert.Equal(t, float64(0), got["temperature"])
	messages := got["messages"].([]any)
	content := messages[0].(map[string]any)["content"].([]any)
	require.Len(t, content, 2)
	first := content[0].(map[string]any)
	assert.Equal(t, "document", first["type"])
	assert.Equal(t, "application/pdf", first["source"].(map[string]any)["media_type"])
	assert.Contains(t, content[1].(map[string]any)["text"], "page 2")
}

func TestExtract_ImageBlock(t *testing.T) {
	var got map[string]any
	server := newVisionServer(t, `{"text":"x"}`, &got)

	svc, err := NewVisionService(anthropic.Config{APIKey: "k", BaseURL: server.URL}, 100)
	require.NoError(t, err)

	_, err = svc.Extract(context.Background(), driven.Page{Number: 1, Data: []byte{0x89, 'P'}, MIMEType: "image/png"})
	require.NoError(t, err)
	content := got["messages"].([]any)[0].(map[string]any)["content"].([]any)
	assert.Equal(t, "image", content[0].(map[string]any)["type"])
	assert.InDelta(t, 100, got["max_tokens"], 0)
}

func TestExtract_UnusableReply(t *testing.T) {
	var got map[string]any
	server := newVisionServer(t, "I could not read the page.", &got)

	svc, err := NewVisionService(anthropic.Config{APIKey: "k", BaseURL: server.URL}, 0)
	require.NoError(t, err)

	_, err = svc.Extract(context.Background(), driven.Page{Number: 1, Data: []byte("x"), MIMEType: "image/jpeg"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestPageBlock_Rejects(t *testing.T) {
	_, err := pageBlock(driven.Page{Number: 1, MIMEType: "image/png"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = pageBlock(driven.Page{Number: 1, Data: []byte("x"), MIMEType: "text/plain"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNewVisionService_RequiresKey(t *testing.T) {
	_, err := NewVisionService(anthropic.Config{}, 0)
	assert.ErrorIs(t, err, domain.ErrCapabilityUnavailable)
}
