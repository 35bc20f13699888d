// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/medrag/internal/adapters/driven/ai/guard"
	geminiembed "github.com/custodia-labs/medrag/internal/adapters/driven/embedding/gemini"
	ollamaembed "github.com/custodia-labs/medrag/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/medrag/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/medrag/internal/adapters/driven/llm/anthropic"
	geminillm "github.com/custodia-labs/medrag/internal/adapters/driven/llm/gemini"
	ollamallm "github.com/custodia-labs/medrag/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/medrag/internal/adapters/driven/llm/openai"
	anthropicvision "github.com/custodia-labs/medrag/internal/adapters/driven/vision/anthropic"
	geminivision "github.com/custodia-labs/medrag/internal/adapters/driven/vision/gemini"
	"github.com/custodia-labs/medrag/internal/core/domain"
	"github.com/custodia-labs/medrag/internal/core/ports/driven"
	"github.com/custodia-labs/medrag/internal/telemetry"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// InitResult contains the AI capabilities built from settings.
// A nil capability is unavailable; operations needing it fail with
// domain.ErrCapabilityUnavailable.
type InitResult struct {
	EmbeddingService driven.EmbeddingService
	LLMService       driven.LLMService
	VisionService    driven.VisionService
	Warnings         []string // Non-fatal issues found while building.
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.EmbeddingService != nil {
		r.EmbeddingService.Close()
	}
	if r.LLMService != nil {
		r.LLMService.Close()
	}
	if r.VisionService != nil {
		r.VisionService.Close()
	}
}

// InitOptions controls Init.
type InitOptions struct {
	// Prompts is handed to capabilities that accept custom prompts.
	Prompts driven.PromptStore

	// Metrics records breaker transitions. May be nil.
	Metrics *telemetry.Metrics

	// Ping validates connectivity of each built capability. A failed ping is
	// reported as a warning; the capability is kept.
	Ping bool
}

// Init builds every configured capability, wrapped in resilience guards.
// Unconfigured or failing capabilities are left nil with a warning.
func Init(ctx context.Context, settings domain.AppSettings, opts InitOptions) *InitResult {
	result := &InitResult{}
	cfg := guard.ConfigFrom(settings.Resilience, opts.Metrics)

	if embedder, err := CreateEmbeddingService(ctx, &settings.Embedding); err != nil {
		result.warn("embedding", err)
	} else if embedder != nil {
		result.ping(ctx, opts.Ping, "embedding", embedder.Ping)
		result.EmbeddingService = guard.WrapEmbedding(embedder, cfg)
	} else {
		result.Warnings = append(result.Warnings, "embedding: not configured")
	}

	if llm, err := CreateLLMService(ctx, &settings.LLM); err != nil {
		result.warn("llm", err)
	} else if llm != nil {
		result.ping(ctx, opts.Ping, "llm", llm.Ping)
		result.LLMService = guard.WrapLLM(llm, cfg)
	} else {
		result.Warnings = append(result.Warnings, "llm: not configured")
	}

	if vision, err := CreateVisionService(ctx, &settings.Vision); err != nil {
		result.warn("vision", err)
	} else if vision != nil {
		result.ping(ctx, opts.Ping, "vision", vision.Ping)
		wrapped := guard.WrapVision(vision, cfg)
		if aware, ok := wrapped.(driven.PromptStoreAware); ok && opts.Prompts != nil {
			aware.SetPromptStore(opts.Prompts)
		}
		result.VisionService = wrapped
	} else {
		result.Warnings = append(result.Warnings, "vision: not configured, PDFs use their text layer")
	}

	return result
}

func (r *InitResult) warn(capability string, err error) {
	r.Warnings = append(r.Warnings, fmt.Sprintf("%s: %v", capability, err))
}

func (r *InitResult) ping(ctx context.Context, enabled bool, capability string, ping func(context.Context) error) {
	if !enabled {
		return
	}
	pctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := ping(pctx); err != nil {
		r.Warnings = append(r.Warnings, fmt.Sprintf("%s: service unreachable: %v", capability, err))
	}
}

// CreateEmbeddingService creates the appropriate embedding service based on settings.
// Returns nil if the provider is not configured.
func CreateEmbeddingService(ctx context.Context, settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	dimensions := settings.Dimensions
	if dimensions == 0 {
		dimensions = domain.EmbeddingDimensions()[settings.Model]
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: dimensions,
		}), nil

	case domain.AIProviderOpenAI:
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: dimensions,
		})

	case domain.AIProviderGemini:
		return geminiembed.NewEmbeddingService(ctx, geminiembed.Config{
			APIKey:     settings.APIKey,
			Model:      settings.Model,
			Dimensions: dimensions,
		})

	case domain.AIProviderAnthropic:
		return nil, fmt.Errorf("%w: anthropic does not support embeddings, use openai, gemini or ollama",
			domain.ErrInvalidInput)

	default:
		return nil, fmt.Errorf("%w: unsupported embedding provider: %s", domain.ErrInvalidInput, settings.Provider)
	}
}

// CreateLLMService creates the appropriate LLM service based on settings.
// Returns nil if the provider is not configured.
func CreateLLMService(ctx context.Context, settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamallm.NewLLMService(ollamallm.LLMConfig{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		}), nil

	case domain.AIProviderOpenAI:
		return openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	case domain.AIProviderAnthropic:
		return anthropicllm.NewLLMService(anthropicllm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	case domain.AIProviderGemini:
		return geminillm.NewLLMService(ctx, geminillm.Config{
			APIKey: settings.APIKey,
			Model:  settings.Model,
		})

	default:
		return nil, fmt.Errorf("%w: unsupported LLM provider: %s", domain.ErrInvalidInput, settings.Provider)
	}
}

// CreateVisionService creates the page analysis service based on settings.
// Returns nil if the provider is not configured.
func CreateVisionService(ctx context.Context, settings *domain.VisionSettings) (driven.VisionService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderAnthropic:
		return anthropicvision.NewVisionService(anthropicllm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		}, settings.MaxTokens)

	case domain.AIProviderGemini:
		return geminivision.NewVisionService(ctx, geminillm.Config{
			APIKey: settings.APIKey,
			Model:  settings.Model,
		}, settings.MaxTokens)

	default:
		return nil, fmt.Errorf("%w: %s does not provide a vision service, use anthropic or gemini",
			domain.ErrInvalidInput, settings.Provider)
	}
}

// validate builds a service with create and pings it.
func validate[T interface {
	Ping(context.Context) error
	Close() error
}](create func(context.Context) (T, error), isNil func(T) bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	svc, err := create(ctx)
	if err != nil {
		return err
	}
	if isNil(svc) {
		return nil
	}
	defer svc.Close()
	return svc.Ping(ctx)
}

// ValidateEmbeddingConfig validates an embedding configuration by creating a service and pinging it.
func ValidateEmbeddingConfig(settings *domain.EmbeddingSettings) error {
	return validate(func(ctx context.Context) (driven.EmbeddingService, error) {
		return CreateEmbeddingService(ctx, settings)
	}, func(s driven.EmbeddingService) bool { return s == nil })
}

// ValidateLLMConfig validates an LLM configuration by creating a service and pinging it.
func ValidateLLMConfig(settings *domain.LLMSettings) error {
	return validate(func(ctx context.Context) (driven.LLMService, error) {
		return CreateLLMService(ctx, settings)
	}, func(s driven.LLMService) bool { return s == nil })
}

// ValidateVisionConfig validates a vision configuration by creating a service and pinging it.
func ValidateVisionConfig(settings *domain.VisionSettings) error {
	return validate(func(ctx context.Context) (driven.VisionService, error) {
		return CreateVisionService(ctx, settings)
	}, func(s driven.VisionService) bool { return s == nil })
}
