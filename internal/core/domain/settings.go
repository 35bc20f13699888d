package domain

import "time"

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for vision, embeddings or generation.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"

	// AIProviderGemini is Google Gemini cloud API.
	AIProviderGemini AIProvider = "gemini"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic, AIProviderGemini:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic || p == AIProviderGemini
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	case AIProviderGemini:
		return "Google Gemini (cloud)"
	default:
		return unknownDescription
	}
}

// ProviderSettings is the connection configuration shared by every AI capability.
type ProviderSettings struct {
	// Provider is the service provider.
	Provider AIProvider

	// Model is the model name.
	Model string

	// BaseURL is the API endpoint override.
	BaseURL string

	// APIKey is the API key for cloud providers.
	APIKey string
}

// IsConfigured returns true if the provider is set up.
func (s ProviderSettings) IsConfigured() bool {
	if !s.Provider.IsValid() {
		return false
	}
	if s.Provider.RequiresAPIKey() && s.APIKey == "" {
		return false
	}
	return true
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	ProviderSettings

	// Dimensions overrides the model's default vector size.
	Dimensions int
}

// LLMSettings holds generation provider configuration.
type LLMSettings struct {
	ProviderSettings

	// Temperature is the sampling temperature for answers.
	Temperature float64

	// MaxTokens bounds the answer length.
	MaxTokens int
}

// VisionSettings holds vision extraction provider configuration.
type VisionSettings struct {
	ProviderSettings

	// MaxTokens bounds each page analysis response.
	MaxTokens int
}

// VectorBackend selects the vector index implementation.
type VectorBackend string

// Available vector backends.
const (
	VectorBackendMemory VectorBackend = "memory"
	VectorBackendQdrant VectorBackend = "qdrant"
	VectorBackendSQLite VectorBackend = "sqlite"
)

// IsValid returns true if the backend is recognised.
func (b VectorBackend) IsValid() bool {
	switch b {
	case VectorBackendMemory, VectorBackendQdrant, VectorBackendSQLite:
		return true
	default:
		return false
	}
}

// VectorIndexSettings holds vector index configuration.
type VectorIndexSettings struct {
	// Backend selects the implementation.
	Backend VectorBackend

	// URL is the Qdrant endpoint.
	URL string

	// APIKey is the Qdrant API key, if any.
	APIKey string
}

// StoreBackend selects the document record store.
type StoreBackend string

// Available document store backends.
const (
	StoreBackendMemory StoreBackend = "memory"
	StoreBackendSQLite StoreBackend = "sqlite"
)

// BlobBackend selects the raw upload store.
type BlobBackend string

// Available blob store backends.
const (
	BlobBackendMemory     BlobBackend = "memory"
	BlobBackendFilesystem BlobBackend = "filesystem"
	BlobBackendMinIO      BlobBackend = "minio"
)

// MinIOSettings configures the MinIO blob store.
type MinIOSettings struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// StorageSettings holds persistence configuration.
type StorageSettings struct {
	// DataDir holds sqlite databases and filesystem uploads.
	DataDir string

	// Documents selects the document record store.
	Documents StoreBackend

	// Blobs selects the raw upload store.
	Blobs BlobBackend

	// MinIO configures the MinIO blob store.
	MinIO MinIOSettings
}

// IngestionSettings bounds uploads and extraction.
type IngestionSettings struct {
	// MaxFileSize is the largest accepted upload in bytes.
	MaxFileSize int64

	// ExtractionWorkers is the number of pages analysed concurrently.
	ExtractionWorkers int

	// BatchSize is the number of chunks embedded per request.
	BatchSize int

	// Retry governs embedding batch retries.
	Retry RetryPolicy
}

// RetrievalSettings configures question answering.
type RetrievalSettings struct {
	// TopK is the number of chunks retrieved per question.
	TopK int
}

// ResilienceSettings configures circuit breakers and rate limits on AI capabilities.
type ResilienceSettings struct {
	// RequestsPerSecond limits calls per capability; 0 disables limiting.
	RequestsPerSecond float64

	// Burst is the limiter bucket size.
	Burst int

	// BreakerFailures is the number of consecutive failures that opens the breaker; 0 disables it.
	BreakerFailures uint32

	// BreakerTimeout is how long an open breaker waits before probing.
	BreakerTimeout time.Duration
}

// EventSettings configures the progress event bus.
type EventSettings struct {
	// QueueSize is the per-subscriber queue bound.
	QueueSize int

	// RedisURL enables relaying events to Redis when set.
	RedisURL string

	// RedisChannel is the Redis pub/sub channel.
	RedisChannel string
}

// ServerSettings configures the HTTP API.
type ServerSettings struct {
	// Addr is the listen address.
	Addr string

	// AllowedOrigins lists CORS origins.
	AllowedOrigins []string

	// OTLPEndpoint enables trace export when set.
	OTLPEndpoint string
}

// AppSettings holds all application settings.
type AppSettings struct {
	Embedding   EmbeddingSettings
	LLM         LLMSettings
	Vision      VisionSettings
	VectorIndex VectorIndexSettings
	Storage     StorageSettings
	Ingestion   IngestionSettings
	Retrieval   RetrievalSettings
	Resilience  ResilienceSettings
	Events      EventSettings
	Server      ServerSettings
	Pipeline    PipelineConfig
}

// DefaultAppSettings returns settings with sensible defaults.
// AI providers are left without API keys; they are supplied by config or environment.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: EmbeddingSettings{
			ProviderSettings: ProviderSettings{
				Provider: AIProviderOpenAI,
				Model:    DefaultEmbeddingModels()[AIProviderOpenAI],
			},
		},
		LLM: LLMSettings{
			ProviderSettings: ProviderSettings{
				Provider: AIProviderOpenAI,
				Model:    DefaultLLMModels()[AIProviderOpenAI],
			},
			Temperature: 0,
			MaxTokens:   1500,
		},
		Vision: VisionSettings{
			ProviderSettings: ProviderSettings{
				Provider: AIProviderAnthropic,
				Model:    DefaultVisionModels()[AIProviderAnthropic],
			},
			MaxTokens: 4000,
		},
		VectorIndex: VectorIndexSettings{
			Backend: VectorBackendMemory,
		},
		Storage: StorageSettings{
			Documents: StoreBackendMemory,
			Blobs:     BlobBackendMemory,
		},
		Ingestion: IngestionSettings{
			MaxFileSize:       50 * 1024 * 1024,
			ExtractionWorkers: 2,
			BatchSize:         32,
			Retry:             DefaultRetryPolicy(),
		},
		Retrieval: RetrievalSettings{
			TopK: 6,
		},
		Resilience: ResilienceSettings{
			RequestsPerSecond: 5,
			Burst:             5,
			BreakerFailures:   5,
			BreakerTimeout:    30 * time.Second,
		},
		Events: EventSettings{
			QueueSize:    256,
			RedisChannel: "medrag:events",
		},
		Server: ServerSettings{
			Addr:           ":8000",
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Pipeline: DefaultPipelineConfig(),
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
		AIProviderGemini: "text-embedding-004",
	}
}

// DefaultLLMModels returns default models for each generation provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
		AIProviderGemini:    "gemini-1.5-flash",
	}
}

// DefaultVisionModels returns default models for each vision provider.
func DefaultVisionModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
		AIProviderGemini:    "gemini-1.5-flash",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
		// Gemini models
		"text-embedding-004": 768,
	}
}

// PipelineConfig holds post-processor pipeline configuration.
// Uses generic map-based config for extensibility - new processors can be added
// without modifying this struct.
type PipelineConfig struct {
	// Processors is the ordered list of processor names to run.
	Processors []string

	// ProcessorConfigs holds per-processor configuration as generic maps.
	// Key is processor name, value is processor-specific config.
	ProcessorConfigs map[string]map[string]any
}

// GetProcessorConfig returns config for a specific processor, or nil if not set.
func (c *PipelineConfig) GetProcessorConfig(name string) map[string]any {
	if c.ProcessorConfigs == nil {
		return nil
	}
	return c.ProcessorConfigs[name]
}

// DefaultPipelineConfig returns the default pipeline configuration.
// The chunker must run first; the hasher fingerprints its output.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Processors: []string{"chunker", "entities", "hasher"},
		ProcessorConfigs: map[string]map[string]any{
			"chunker": {
				"chunk_size": 800,
				"overlap":    100,
			},
		},
	}
}
