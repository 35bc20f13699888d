package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/medrag/internal/core/ports/driven"
)

func noEnv(string) (string, bool) { return "", false }

func envFrom(vars map[string]string) func(string) (string, bool) {
	return func(name string) (string, bool) {
		v, ok := vars[name]
		return v, ok
	}
}

func newTestStore(t *testing.T, opts ...Option) *ConfigStore {
	t.Helper()
	store, err := NewConfigStore(t.TempDir(), append([]Option{WithLookupEnv(noEnv)}, opts...)...)
	require.NoError(t, err)
	return store
}

func TestConfigStore_ImplementsInterface(t *testing.T) {
	var _ driven.ConfigStore = (*ConfigStore)(nil)
}

func TestNewConfigStore_Success(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir, WithLookupEnv(noEnv))

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(tmpDir, "config.toml"), store.Path())
}

func TestDefaultDir(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("Cannot determine home directory")
	}

	dir, err := DefaultDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".medrag"), dir)
}

func TestConfigStore_SetAndGet(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Set("llm.model", "gpt-4o-mini"))

	val, ok := store.Get("llm.model")
	assert.True(t, ok)
	assert.Equal(t, "gpt-4o-mini", val)

	_, ok = store.Get("missing")
	assert.False(t, ok)
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Set("retrieval.top_k", 6))
	require.NoError(t, store.Set("resilience.requests_per_second", 2.5))
	require.NoError(t, store.Set("storage.minio.use_ssl", true))
	require.NoError(t, store.Set("server.allowed_origins", []string{"http://a", "http://b"}))

	assert.Equal(t, 6, store.GetInt("retrieval.top_k"))
	assert.InDelta(t, 2.5, store.GetFloat("resilience.requests_per_second"), 1e-9)
	assert.True(t, store.GetBool("storage.minio.use_ssl"))
	assert.Equal(t, []string{"http://a", "http://b"}, store.GetStringSlice("server.allowed_origins"))

	// Wrong types return zero values.
	assert.Empty(t, store.GetString("retrieval.top_k"))
	assert.Zero(t, store.GetInt("storage.minio.use_ssl"))
	assert.False(t, store.GetBool("retrieval.top_k"))
	assert.Nil(t, store.GetStringSlice("retrieval.top_k"))
}

func TestConfigStore_PersistsNestedTables(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir, WithLookupEnv(noEnv))
	require.NoError(t, err)

	require.NoError(t, store.Set("embedding.provider", "ollama"))
	require.NoError(t, store.Set("pipeline.chunker.chunk_size", 400))
	require.NoError(t, store.Set("pipeline.processors", []string{"chunker", "hasher"}))

	raw, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(raw), "[embedding]")
	assert.Contains(t, string(raw), "[pipeline.chunker]")

	reloaded, err := NewConfigStore(tmpDir, WithLookupEnv(noEnv))
	require.NoError(t, err)
	assert.Equal(t, "ollama", reloaded.GetString("embedding.provider"))
	assert.Equal(t, 400, reloaded.GetInt("pipeline.chunker.chunk_size"))
	assert.Equal(t, []string{"chunker", "hasher"}, reloaded.GetStringSlice("pipeline.processors"))
}

func TestConfigStore_LoadsHandWrittenFile(t *testing.T) {
	tmpDir := t.TempDir()
	content := `
[llm]
provider = "anthropic"
max_tokens = 2000

[vector_index]
backend = "qdrant"
url = "http://localhost:6333"
`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(content), 0600))

	store, err := NewConfigStore(tmpDir, WithLookupEnv(noEnv))
	require.NoError(t, err)

	assert.Equal(t, "anthropic", store.GetString("llm.provider"))
	assert.Equal(t, 2000, store.GetInt("llm.max_tokens"))
	assert.Equal(t, "qdrant", store.GetString("vector_index.backend"))
}

func TestConfigStore_EnvOverridesFile(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.toml"),
		[]byte("[retrieval]\ntop_k = 4\n"), 0600))

	store, err := NewConfigStore(tmpDir, WithLookupEnv(envFrom(map[string]string{
		"MEDRAG_RETRIEVAL_K":  "9",
		"OPENAI_API_KEY":      "sk-env",
		"MEDRAG_CORS_ORIGINS": "http://a, http://b",
		"UNRELATED":           "x",
	})))
	require.NoError(t, err)

	assert.Equal(t, 9, store.GetInt("retrieval.top_k"))
	assert.Equal(t, "sk-env", store.GetString("openai.api_key"))
	assert.Equal(t, []string{"http://a", "http://b"}, store.GetStringSlice("server.allowed_origins"))
	assert.Equal(t, []string{"openai.api_key", "retrieval.top_k", "server.allowed_origins"}, store.Overrides())
}

func TestConfigStore_EnvNotPersisted(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir, WithLookupEnv(envFrom(map[string]string{
		"ANTHROPIC_API_KEY": "sk-secret",
	})))
	require.NoError(t, err)

	require.NoError(t, store.Set("llm.provider", "anthropic"))

	raw, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "sk-secret")
}

func TestConfigStore_DotEnv(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".env"),
		[]byte("GEMINI_API_KEY=from-file\nMEDRAG_CHUNK_SIZE=500\n"), 0600))
	extra := filepath.Join(t.TempDir(), "extra.env")
	require.NoError(t, os.WriteFile(extra, []byte("MEDRAG_CHUNK_SIZE=650\nMEDRAG_QDRANT_URL=http://q\n"), 0600))

	store, err := NewConfigStore(tmpDir,
		WithLookupEnv(envFrom(map[string]string{"GEMINI_API_KEY": "from-process"})),
		WithDotEnv(extra, filepath.Join(tmpDir, "missing.env")),
	)
	require.NoError(t, err)

	// Process environment wins over files; the config dir .env wins over later files.
	assert.Equal(t, "from-process", store.GetString("gemini.api_key"))
	assert.Equal(t, 500, store.GetInt("pipeline.chunker.chunk_size"))
	assert.Equal(t, "http://q", store.GetString("vector_index.url"))
}

func TestConfigStore_EnvStringConversions(t *testing.T) {
	store := newTestStore(t, WithLookupEnv(envFrom(map[string]string{
		"MEDRAG_MAX_FILE_SIZE": "not-a-number",
		"MEDRAG_CHUNK_SIZE":    " 300 ",
	})))

	assert.Zero(t, store.GetInt("ingestion.max_file_size"))
	assert.Equal(t, 300, store.GetInt("pipeline.chunker.chunk_size"))
	assert.InDelta(t, 300.0, store.GetFloat("pipeline.chunker.chunk_size"), 1e-9)
}

func TestConfigStore_Load_NonExistent(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Load())
	_, ok := store.Get("anything")
	assert.False(t, ok)
}

func TestConfigStore_FilePermissions(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Set("key", "value"))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfigStore_Concurrency(t *testing.T) {
	store := newTestStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = store.Set("retrieval.top_k", n)
			_ = store.GetInt("retrieval.top_k")
		}(i)
	}
	wg.Wait()

	_, ok := store.Get("retrieval.top_k")
	assert.True(t, ok)
}

func TestNewConfigStore_MkdirAllError(t *testing.T) {
	store, err := NewConfigStore("/dev/null/cannot/create/dirs", WithLookupEnv(noEnv))

	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestNewConfigStore_LoadCorruptedFile(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte("this is not valid TOML {{{[["), 0600))

	store, err := NewConfigStore(tmpDir, WithLookupEnv(noEnv))

	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestConfigStore_Save_WriteFileError(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Set("test", "value"))

	require.NoError(t, os.Remove(store.Path()))
	require.NoError(t, os.Mkdir(store.Path(), 0700))

	assert.Error(t, store.Set("another", "value"))
}

func TestFlattenAndNestMap(t *testing.T) {
	flat := map[string]any{
		"a":       1,
		"b.c":     "x",
		"b.d.e":   true,
		"a.ghost": "dropped",
	}

	nested := nestMap(flat)

	assert.Equal(t, 1, nested["a"])
	b, ok := nested["b"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "x", b["c"])

	back := flattenMap(nested, "")
	assert.Equal(t, map[string]any{"a": 1, "b.c": "x", "b.d.e": true}, back)
}
