package guard

import (
	"context"

	"github.com/custodia-labs/medrag/internal/core/domain"
	"github.com/custodia-labs/medrag/internal/core/ports/driven"
)

var (
	_ driven.EmbeddingService = (*Embedding)(nil)
	_ driven.LLMService       = (*LLM)(nil)
	_ driven.VisionService    = (*Vision)(nil)
	_ driven.PromptStoreAware = (*Vision)(nil)
)

// Embedding guards an embedding service.
type Embedding struct {
	driven.EmbeddingService
	guard *Guard
}

// WrapEmbedding decorates svc. A nil svc stays nil.
func WrapEmbedding(svc driven.EmbeddingService, cfg Config) driven.EmbeddingService {
	if svc == nil || !cfg.Enabled() {
		return svc
	}
	return &Embedding{EmbeddingService: svc, guard: New("embedding", cfg)}
}

// Embed generates a vector embedding for the given text.
func (e *Embedding) Embed(ctx context.Context, text string) ([]float32, error) {
	var out []float32
	err := e.guard.Do(ctx, func() error {
		var err error
		out, err = e.EmbeddingService.Embed(ctx, text)
		return err
	})
	return out, err
}

// EmbedBatch embeds texts in one guarded call.
func (e *Embedding) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var out [][]float32
	err := e.guard.Do(ctx, func() error {
		var err error
		out, err = e.EmbeddingService.EmbedBatch(ctx, texts)
		return err
	})
	return out, err
}

// LLM guards a generation service.
type LLM struct {
	driven.LLMService
	guard *Guard
}

// WrapLLM decorates svc. A nil svc stays nil.
func WrapLLM(svc driven.LLMService, cfg Config) driven.LLMService {
	if svc == nil || !cfg.Enabled() {
		return svc
	}
	return &LLM{LLMService: svc, guard: New("llm", cfg)}
}

// Generate produces text completion from a prompt.
func (l *LLM) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	var out string
	err := l.guard.Do(ctx, func() error {
		var err error
		out, err = l.LLMService.Generate(ctx, prompt, opts)
		return err
	})
	return out, err
}

// Chat conducts a multi-turn conversation.
func (l *LLM) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	var out string
	err := l.guard.Do(ctx, func() error {
		var err error
		out, err = l.LLMService.Chat(ctx, messages, opts)
		return err
	})
	return out, err
}

// Vision guards a vision service.
type Vision struct {
	driven.VisionService
	guard *Guard
}

// WrapVision decorates svc. A nil svc stays nil.
func WrapVision(svc driven.VisionService, cfg Config) driven.VisionService {
	if svc == nil || !cfg.Enabled() {
		return svc
	}
	return &Vision{VisionService: svc, guard: New("vision", cfg)}
}

// Extract analyses one page.
func (v *Vision) Extract(ctx context.Context, page driven.Page) (*domain.VisionResult, error) {
	var out *domain.VisionResult
	err := v.guard.Do(ctx, func() error {
		var err error
		out, err = v.VisionService.Extract(ctx, page)
		return err
	})
	return out, err
}

// SetPromptStore forwards to the wrapped service when it accepts prompts.
func (v *Vision) SetPromptStore(store driven.PromptStore) {
	if aware, ok := v.VisionService.(driven.PromptStoreAware); ok {
		aware.SetPromptStore(store)
	}
}

// BreakerState reports the embedding breaker state.
func (e *Embedding) BreakerState() string { return e.guard.State() }

// BreakerState reports the generation breaker state.
func (l *LLM) BreakerState() string { return l.guard.State() }

// BreakerState reports the vision breaker state.
func (v *Vision) BreakerState() string { return v.guard.State() }

// StateOf returns the breaker state of a wrapped capability, "disabled" for
// an unwrapped one and "" for nil.
func StateOf(svc any) string {
	if svc == nil {
		return ""
	}
	if s, ok := svc.(interface{ BreakerState() string }); ok {
		return s.BreakerState()
	}
	return "disabled"
}
