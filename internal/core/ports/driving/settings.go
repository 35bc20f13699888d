package driving

import "github.com/custodia-labs/medrag/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings with defaults applied.
	Get() (*domain.AppSettings, error)

	// Save persists application settings.
	Save(settings *domain.AppSettings) error

	// SetEmbeddingProvider configures the embedding provider.
	SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error

	// SetLLMProvider configures the answer generation provider.
	SetLLMProvider(provider domain.AIProvider, model, apiKey string) error

	// SetVisionProvider configures the page analysis provider.
	SetVisionProvider(provider domain.AIProvider, model, apiKey string) error

	// Validate checks that the required capabilities are configured.
	Validate() error

	// ValidateProviders pings every configured provider.
	ValidateProviders() error
}
