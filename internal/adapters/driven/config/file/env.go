package file

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
)

// EnvBindings maps environment variables to config keys.
//
//nolint:gosec // G101: These are variable names, not credentials.
var EnvBindings = map[string]string{
	"OPENAI_API_KEY":    "openai.api_key",
	"ANTHROPIC_API_KEY": "anthropic.api_key",
	"GEMINI_API_KEY":    "gemini.api_key",

	"MEDRAG_EMBEDDING_PROVIDER": "embedding.provider",
	"MEDRAG_EMBEDDING_MODEL":    "embedding.model",
	"MEDRAG_LLM_PROVIDER":       "llm.provider",
	"MEDRAG_LLM_MODEL":          "llm.model",
	"MEDRAG_VISION_PROVIDER":    "vision.provider",
	"MEDRAG_VISION_MODEL":       "vision.model",
	"MEDRAG_OLLAMA_URL":         "ollama.base_url",

	"MEDRAG_CHUNK_SIZE":    "pipeline.chunker.chunk_size",
	"MEDRAG_CHUNK_OVERLAP": "pipeline.chunker.overlap",
	"MEDRAG_RETRIEVAL_K":   "retrieval.top_k",
	"MEDRAG_MAX_FILE_SIZE": "ingestion.max_file_size",

	"MEDRAG_VECTOR_BACKEND": "vector_index.backend",
	"MEDRAG_QDRANT_URL":     "vector_index.url",
	"MEDRAG_QDRANT_API_KEY": "vector_index.api_key",

	"MEDRAG_DATA_DIR":         "storage.data_dir",
	"MEDRAG_DOCUMENT_STORE":   "storage.documents",
	"MEDRAG_BLOB_STORE":       "storage.blobs",
	"MEDRAG_MINIO_ENDPOINT":   "storage.minio.endpoint",
	"MEDRAG_MINIO_ACCESS_KEY": "storage.minio.access_key",
	"MEDRAG_MINIO_SECRET_KEY": "storage.minio.secret_key",
	"MEDRAG_MINIO_BUCKET":     "storage.minio.bucket",

	"MEDRAG_REDIS_URL":     "events.redis_url",
	"MEDRAG_ADDR":          "server.addr",
	"MEDRAG_CORS_ORIGINS":  "server.allowed_origins",
	"MEDRAG_OTLP_ENDPOINT": "server.otlp_endpoint",
}

// resolveEnv collects overrides for every bound variable.
// lookup wins over the .env files, and earlier files win over later ones.
func resolveEnv(lookup func(string) (string, bool), dotenv []string) (map[string]string, error) {
	fileVars := make(map[string]string)
	for i := len(dotenv) - 1; i >= 0; i-- {
		vars, err := godotenv.Read(dotenv[i])
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
		for k, v := range vars {
			fileVars[k] = v
		}
	}

	overrides := make(map[string]string)
	for name, key := range EnvBindings {
		if val, ok := lookup(name); ok && val != "" {
			overrides[key] = val
			continue
		}
		if val, ok := fileVars[name]; ok && val != "" {
			overrides[key] = val
		}
	}
	return overrides, nil
}
