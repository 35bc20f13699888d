package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/medrag/internal/core/domain"
	"github.com/custodia-labs/medrag/internal/core/ports/driven"
	"github.com/custodia-labs/medrag/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEmbedProvider   = "embedding.provider"
	keyEmbedModel      = "embedding.model"
	keyEmbedBaseURL    = "embedding.base_url"
	keyEmbedAPIKey     = "embedding.api_key"
	keyEmbedDimensions = "embedding.dimensions"
	keyLLMProvider     = "llm.provider"
	keyLLMModel        = "llm.model"
	keyLLMBaseURL      = "llm.base_url"
	keyLLMAPIKey       = "llm.api_key"
	keyLLMMaxTokens    = "llm.max_tokens"
	keyVisionProvider  = "vision.provider"
	keyVisionModel     = "vision.model"
	keyVisionBaseURL   = "vision.base_url"
	keyVisionAPIKey    = "vision.api_key"
	keyVisionMaxTokens = "vision.max_tokens"

	keyVectorBackend = "vector_index.backend"
	keyVectorURL     = "vector_index.url"
	keyVectorAPIKey  = "vector_index.api_key"

	keyDataDir        = "storage.data_dir"
	keyDocBackend     = "storage.documents"
	keyBlobBackend    = "storage.blobs"
	keyMinIOEndpoint  = "storage.minio.endpoint"
	keyMinIOAccessKey = "storage.minio.access_key"
	keyMinIOSecretKey = "storage.minio.secret_key"
	keyMinIOBucket    = "storage.minio.bucket"
	keyMinIOUseSSL    = "storage.minio.use_ssl"

	keyMaxFileSize       = "ingestion.max_file_size"
	keyExtractionWorkers = "ingestion.extraction_workers"
	keyBatchSize         = "ingestion.batch_size"
	keyRetryAttempts     = "ingestion.retry.max_attempts"
	keyRetryBaseDelay    = "ingestion.retry.base_delay"
	keyRetryMaxDelay     = "ingestion.retry.max_delay"
	keyRetryMultiplier   = "ingestion.retry.multiplier"

	keyTopK = "retrieval.top_k"

	keyRateLimit       = "resilience.requests_per_second"
	keyRateBurst       = "resilience.burst"
	keyBreakerFailures = "resilience.breaker_failures"
	keyBreakerTimeout  = "resilience.breaker_timeout"

	keyEventQueueSize    = "events.queue_size"
	keyEventRedisURL     = "events.redis_url"
	keyEventRedisChannel = "events.redis_channel"

	keyServerAddr    = "server.addr"
	keyServerOrigins = "server.allowed_origins"
	keyOTLPEndpoint  = "server.otlp_endpoint"

	keyPipelineProcessors = "pipeline.processors"
)

// defaultOllamaURL is used for local providers without a configured base URL.
const defaultOllamaURL = "http://localhost:11434"

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
	}
}

// Get retrieves current application settings.
// Unset keys keep their defaults. Provider API keys fall back to the
// provider-wide key ("openai.api_key") when the capability has none.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	d := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Embedding: domain.EmbeddingSettings{
			ProviderSettings: s.getProviderSettings("embedding", d.Embedding.ProviderSettings,
				domain.DefaultEmbeddingModels()),
			Dimensions: s.getInt(keyEmbedDimensions, d.Embedding.Dimensions),
		},
		LLM: domain.LLMSettings{
			ProviderSettings: s.getProviderSettings("llm", d.LLM.ProviderSettings, domain.DefaultLLMModels()),
			Temperature:      d.LLM.Temperature,
			MaxTokens:        s.getInt(keyLLMMaxTokens, d.LLM.MaxTokens),
		},
		Vision: domain.VisionSettings{
			ProviderSettings: s.getProviderSettings("vision", d.Vision.ProviderSettings,
				domain.DefaultVisionModels()),
			MaxTokens: s.getInt(keyVisionMaxTokens, d.Vision.MaxTokens),
		},
		VectorIndex: domain.VectorIndexSettings{
			Backend: s.getVectorBackend(d.VectorIndex.Backend),
			URL:     s.getString(keyVectorURL, d.VectorIndex.URL),
			APIKey:  s.configStore.GetString(keyVectorAPIKey),
		},
		Storage: domain.StorageSettings{
			DataDir:   s.getString(keyDataDir, d.Storage.DataDir),
			Documents: domain.StoreBackend(s.getString(keyDocBackend, string(d.Storage.Documents))),
			Blobs:     domain.BlobBackend(s.getString(keyBlobBackend, string(d.Storage.Blobs))),
			MinIO: domain.MinIOSettings{
				Endpoint:  s.configStore.GetString(keyMinIOEndpoint),
				AccessKey: s.configStore.GetString(keyMinIOAccessKey),
				SecretKey: s.configStore.GetString(keyMinIOSecretKey),
				Bucket:    s.getString(keyMinIOBucket, "medrag"),
				UseSSL:    s.getBool(keyMinIOUseSSL, false),
			},
		},
		Ingestion: domain.IngestionSettings{
			MaxFileSize:       int64(s.getInt(keyMaxFileSize, int(d.Ingestion.MaxFileSize))),
			ExtractionWorkers: s.getInt(keyExtractionWorkers, d.Ingestion.ExtractionWorkers),
			BatchSize:         s.getInt(keyBatchSize, d.Ingestion.BatchSize),
			Retry: domain.RetryPolicy{
				MaxAttempts: s.getInt(keyRetryAttempts, d.Ingestion.Retry.MaxAttempts),
				BaseDelay:   s.getDuration(keyRetryBaseDelay, d.Ingestion.Retry.BaseDelay),
				Multiplier:  s.getFloat(keyRetryMultiplier, d.Ingestion.Retry.Multiplier),
				MaxDelay:    s.getDuration(keyRetryMaxDelay, d.Ingestion.Retry.MaxDelay),
			},
		},
		Retrieval: domain.RetrievalSettings{
			TopK: s.getInt(keyTopK, d.Retrieval.TopK),
		},
		Resilience: domain.ResilienceSettings{
			RequestsPerSecond: s.getFloat(keyRateLimit, d.Resilience.RequestsPerSecond),
			Burst:             s.getInt(keyRateBurst, d.Resilience.Burst),
			BreakerFailures:   uint32(s.getInt(keyBreakerFailures, int(d.Resilience.BreakerFailures))), //nolint:gosec
			BreakerTimeout:    s.getDuration(keyBreakerTimeout, d.Resilience.BreakerTimeout),
		},
		Events: domain.EventSettings{
			QueueSize:    s.getInt(keyEventQueueSize, d.Events.QueueSize),
			RedisURL:     s.configStore.GetString(keyEventRedisURL),
			RedisChannel: s.getString(keyEventRedisChannel, d.Events.RedisChannel),
		},
		Server: domain.ServerSettings{
			Addr:           s.getString(keyServerAddr, d.Server.Addr),
			AllowedOrigins: s.getStringSlice(keyServerOrigins, d.Server.AllowedOrigins),
			OTLPEndpoint:   s.configStore.GetString(keyOTLPEndpoint),
		},
		Pipeline: s.GetPipelineConfig(),
	}

	return settings, nil
}

// Save persists application settings.
// Empty API keys are not written so that environment-supplied keys stay out of the file.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []struct {
		key   string
		value any
	}{
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyLLMProvider, settings.LLM.Provider.String()},
		{keyLLMModel, settings.LLM.Model},
		{keyLLMBaseURL, settings.LLM.BaseURL},
		{keyLLMMaxTokens, settings.LLM.MaxTokens},
		{keyVisionProvider, settings.Vision.Provider.String()},
		{keyVisionModel, settings.Vision.Model},
		{keyVisionBaseURL, settings.Vision.BaseURL},
		{keyVisionMaxTokens, settings.Vision.MaxTokens},
		{keyVectorBackend, string(settings.VectorIndex.Backend)},
		{keyVectorURL, settings.VectorIndex.URL},
		{keyTopK, settings.Retrieval.TopK},
		{keyMaxFileSize, settings.Ingestion.MaxFileSize},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	secrets := map[string]string{
		keyEmbedAPIKey:  settings.Embedding.APIKey,
		keyLLMAPIKey:    settings.LLM.APIKey,
		keyVisionAPIKey: settings.Vision.APIKey,
	}
	for key, value := range secrets {
		if value == "" {
			continue
		}
		if err := s.configStore.Set(key, value); err != nil {
			return fmt.Errorf("save %s: %w", key, err)
		}
	}

	return nil
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if err := checkProvider("embedding", provider, domain.DefaultEmbeddingModels(), apiKey); err != nil {
		return err
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.ProviderSettings = applyProvider(
		settings.Embedding.ProviderSettings, provider, model, apiKey, domain.DefaultEmbeddingModels())
	settings.Embedding.Dimensions = domain.EmbeddingDimensions()[settings.Embedding.Model]

	if err := s.Save(settings); err != nil {
		return err
	}
	return s.configStore.Set(keyEmbedDimensions, settings.Embedding.Dimensions)
}

// SetLLMProvider configures the answer generation provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if err := checkProvider("llm", provider, domain.DefaultLLMModels(), apiKey); err != nil {
		return err
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.LLM.ProviderSettings = applyProvider(
		settings.LLM.ProviderSettings, provider, model, apiKey, domain.DefaultLLMModels())
	return s.Save(settings)
}

// SetVisionProvider configures the page analysis provider.
func (s *SettingsService) SetVisionProvider(provider domain.AIProvider, model, apiKey string) error {
	if err := checkProvider("vision", provider, domain.DefaultVisionModels(), apiKey); err != nil {
		return err
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Vision.ProviderSettings = applyProvider(
		settings.Vision.ProviderSettings, provider, model, apiKey, domain.DefaultVisionModels())
	return s.Save(settings)
}

// Validate checks that the capabilities required for ingestion and querying are configured.
// Vision is optional: without it PDFs fall back to their text layer.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	var errs []error
	if !settings.Embedding.IsConfigured() {
		errs = append(errs, fmt.Errorf("%w: embedding provider %q is not configured",
			domain.ErrCapabilityUnavailable, settings.Embedding.Provider))
	}
	if !settings.LLM.IsConfigured() {
		errs = append(errs, fmt.Errorf("%w: llm provider %q is not configured",
			domain.ErrCapabilityUnavailable, settings.LLM.Provider))
	}
	if !settings.VectorIndex.Backend.IsValid() {
		errs = append(errs, fmt.Errorf("%w: unknown vector backend %q",
			domain.ErrInvalidInput, settings.VectorIndex.Backend))
	}
	if settings.VectorIndex.Backend == domain.VectorBackendQdrant && settings.VectorIndex.URL == "" {
		errs = append(errs, fmt.Errorf("%w: qdrant backend requires vector_index.url", domain.ErrInvalidInput))
	}
	if err := settings.Ingestion.Retry.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ValidateProviders pings every configured provider.
func (s *SettingsService) ValidateProviders() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}

	var errs []error
	if err := s.aiValidator.ValidateEmbedding(&settings.Embedding); err != nil {
		errs = append(errs, fmt.Errorf("embedding: %w", err))
	}
	if err := s.aiValidator.ValidateLLM(&settings.LLM); err != nil {
		errs = append(errs, fmt.Errorf("llm: %w", err))
	}
	if err := s.aiValidator.ValidateVision(&settings.Vision); err != nil {
		errs = append(errs, fmt.Errorf("vision: %w", err))
	}
	return errors.Join(errs...)
}

// GetPipelineConfig returns the post-processor pipeline configuration.
// Returns default configuration if nothing is configured.
func (s *SettingsService) GetPipelineConfig() domain.PipelineConfig {
	cfg := domain.DefaultPipelineConfig()

	if processors := s.configStore.GetStringSlice(keyPipelineProcessors); len(processors) > 0 {
		cfg.Processors = processors
	}

	for _, name := range cfg.Processors {
		overrides := s.loadProcessorConfig("pipeline." + name + ".")
		if len(overrides) == 0 {
			continue
		}
		existing := cfg.ProcessorConfigs[name]
		if existing == nil {
			existing = make(map[string]any)
		}
		for k, v := range overrides {
			existing[k] = v
		}
		cfg.ProcessorConfigs[name] = existing
	}

	return cfg
}

// loadProcessorConfig loads known processor keys with a given prefix into a map.
func (s *SettingsService) loadProcessorConfig(prefix string) map[string]any {
	cfg := make(map[string]any)
	for _, key := range []string{"chunk_size", "overlap", "keep_unmatched"} {
		if val, exists := s.configStore.Get(prefix + key); exists {
			cfg[key] = val
		}
	}
	return cfg
}

// getProviderSettings reads the provider block for one capability.
func (s *SettingsService) getProviderSettings(
	capability string,
	defaults domain.ProviderSettings,
	models map[domain.AIProvider]string,
) domain.ProviderSettings {
	provider := s.getProvider(capability+".provider", defaults.Provider)

	model := s.configStore.GetString(capability + ".model")
	if model == "" {
		if provider == defaults.Provider {
			model = defaults.Model
		} else {
			model = models[provider]
		}
	}

	baseURL := s.configStore.GetString(capability + ".base_url")
	if baseURL == "" {
		baseURL = s.configStore.GetString(provider.String() + ".base_url")
	}
	if baseURL == "" && provider.IsLocal() {
		baseURL = defaultOllamaURL
	}

	apiKey := s.configStore.GetString(capability + ".api_key")
	if apiKey == "" {
		apiKey = s.configStore.GetString(provider.String() + ".api_key")
	}

	return domain.ProviderSettings{
		Provider: provider,
		Model:    model,
		BaseURL:  baseURL,
		APIKey:   apiKey,
	}
}

// checkProvider validates a provider change before it is applied.
func checkProvider(capability string, provider domain.AIProvider, models map[domain.AIProvider]string, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: invalid %s provider: %s", domain.ErrInvalidInput, capability, provider)
	}
	if _, ok := models[provider]; !ok {
		return fmt.Errorf("%w: provider %s does not support %s", domain.ErrInvalidInput, provider, capability)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("%w: API key required for %s", domain.ErrInvalidInput, provider)
	}
	return nil
}

// applyProvider switches a capability to a new provider.
func applyProvider(
	current domain.ProviderSettings,
	provider domain.AIProvider,
	model, apiKey string,
	models map[domain.AIProvider]string,
) domain.ProviderSettings {
	current.Provider = provider
	current.APIKey = apiKey

	if model != "" {
		current.Model = model
	} else {
		current.Model = models[provider]
	}

	if provider.IsLocal() {
		if current.BaseURL == "" {
			current.BaseURL = defaultOllamaURL
		}
	} else {
		current.BaseURL = ""
	}
	return current
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getStringSlice(key string, defaultVal []string) []string {
	if val := s.configStore.GetStringSlice(key); len(val) > 0 {
		return val
	}
	return defaultVal
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	str := s.configStore.GetString(key)
	if str == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(str)
	if err != nil {
		return defaultVal
	}
	return d
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	provider := domain.AIProvider(s.configStore.GetString(key))
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getVectorBackend(defaultVal domain.VectorBackend) domain.VectorBackend {
	backend := domain.VectorBackend(s.configStore.GetString(keyVectorBackend))
	if !backend.IsValid() {
		return defaultVal
	}
	return backend
}
