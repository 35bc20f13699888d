// Package gemini provides a vision adapter over the Gemini API.
package gemini

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"

	"github.com/custodia-labs/medrag/internal/adapters/driven/llm/gemini"
	"github.com/custodia-labs/medrag/internal/adapters/driven/vision"
	"github.com/custodia-labs/medrag/internal/core/domain"
	"github.com/custodia-labs/medrag/internal/core/ports/driven"
)

var (
	_ driven.VisionService    = (*VisionService)(nil)
	_ driven.PromptStoreAware = (*VisionService)(nil)
)

// DefaultMaxTokens bounds the page analysis reply.
const DefaultMaxTokens = 4000

// generator is the subset of gemini.Client used here.
type generator interface {
	Generate(ctx context.Context, req gemini.Request) (string, error)
	Model() string
	Ping(ctx context.Context) error
	Close() error
}

// VisionService analyses pages with a Gemini model. PDFs and images are sent inline.
type VisionService struct {
	client    generator
	maxTokens int
	prompts   driven.PromptStore
}

// NewVisionService creates a vision service. maxTokens <= 0 uses DefaultMaxTokens.
func NewVisionService(ctx context.Context, cfg gemini.Config, maxTokens int) (*VisionService, error) {
	client, err := gemini.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &VisionService{client: client, maxTokens: maxTokens}, nil
}

// SetPromptStore sets the store for the page analysis prompt.
func (s *VisionService) SetPromptStore(store driven.PromptStore) {
	s.prompts = store
}

// Extract analyses one page in JSON response mode.
func (s *VisionService) Extract(ctx context.Context, page driven.Page) (*domain.VisionResult, error) {
	if len(page.Data) == 0 {
		return nil, fmt.Errorf("%w: page %d is empty", domain.ErrInvalidInput, page.Number)
	}

	reply, err := s.client.Generate(ctx, gemini.Request{
		Parts: []genai.Part{
			genai.Blob{MIMEType: page.MIMEType, Data: page.Data},
			genai.Text(vision.Prompt(s.prompts, page.Number)),
		},
		MaxTokens: s.maxTokens,
		JSON:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("page %d: %w", page.Number, err)
	}

	res, err := vision.ParseAnalysis(reply)
	if err != nil {
		return nil, fmt.Errorf("page %d: %w", page.Number, err)
	}
	return res, nil
}

// ModelName returns the name of the vision model being used.
func (s *VisionService) ModelName() string {
	return s.client.Model()
}

// Ping validates the model is reachable.
func (s *VisionService) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

// Close releases resources.
func (s *VisionService) Close() error {
	return s.client.Close()
}
