// Package anthropic provides a vision adapter over the Anthropic messages API.
package anthropic

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/custodia-labs/medrag/internal/adapters/driven/llm/anthropic"
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

// VisionService analyses pages with a Claude model.
type VisionService struct {
	client    *anthropic.Client
	maxTokens int
	prompts   driven.PromptStore
}

// NewVisionService creates a vision service. maxTokens <= 0 uses DefaultMaxTokens.
func NewVisionService(cfg anthropic.Config, maxTokens int) (*VisionService, error) {
	client, err := anthropic.NewClient(cfg)
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

// Extract sends one page as an image or document block followed by the analysis prompt.
func (s *VisionService) Extract(ctx context.Context, page driven.Page) (*domain.VisionResult, error) {
	block, err := pageBlock(page)
	if err != nil {
		return nil, err
	}

	temperature := 0.0
	reply, err := s.client.CreateMessage(ctx, anthropic.MessagesRequest{
		MaxTokens:   s.maxTokens,
		Temperature: &temperature,
		Messages: []anthropic.Message{{
			Role: "user",
			Content: []anthropic.ContentBlock{
				block,
				{Type: "text", Text: vision.Prompt(s.prompts, page.Number)},
			},
		}},
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

func pageBlock(page driven.Page) (anthropic.ContentBlock, error) {
	if len(page.Data) == 0 {
		return anthropic.ContentBlock{}, fmt.Errorf("%w: page %d is empty", domain.ErrInvalidInput, page.Number)
	}

	source := &anthropic.BlockSource{
		Type:      "base64",
		MediaType: page.MIMEType,
		Data:      base64.StdEncoding.EncodeToString(page.Data),
	}
	switch page.MIMEType {
	case "application/pdf":
		return anthropic.ContentBlock{Type: "document", Source: source}, nil
	case "image/png", "image/jpeg", "image/gif", "image/webp":
		return anthropic.ContentBlock{Type: "image", Source: source}, nil
	default:
		return anthropic.ContentBlock{}, fmt.Errorf("%w: unsupported page type %q", domain.ErrInvalidInput, page.MIMEType)
	}
}

// ModelName returns the name of the vision model being used.
func (s *VisionService) ModelName() string {
	return s.client.Model()
}

// Ping validates the API key.
func (s *VisionService) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

// Close releases resources.
func (s *VisionService) Close() error {
	return nil
}
