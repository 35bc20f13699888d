// Package anthropic provides generation and messages API adapters for Anthropic.
package anthropic

import (
	"context"

	"github.com/custodia-labs/medrag/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// LLMService provides answer generation using the Anthropic API.
type LLMService struct {
	client *Client
}

// NewLLMService creates a new Anthropic LLM service.
func NewLLMService(cfg Config) (*LLMService, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &LLMService{client: client}, nil
}

// Generate produces text completion from a prompt.
// Temperature is always sent, since the API default is not deterministic.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	temperature := opts.Temperature
	return s.client.CreateMessage(ctx, MessagesRequest{
		Messages:    []Message{{Role: "user", Content: prompt}},
		MaxTokens:   opts.MaxTokens,
		System:      opts.System,
		Temperature: &temperature,
		StopSeqs:    opts.StopWords,
	})
}

// Chat conducts a multi-turn conversation.
// A "system" message becomes the request's system instruction.
func (s *LLMService) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	var system string
	apiMessages := make([]Message, 0, len(messages))
	for _, msg := range messages {
		if msg.Role == "system" {
			system = msg.Content
			continue
		}
		apiMessages = append(apiMessages, Message{Role: msg.Role, Content: msg.Content})
	}

	temperature := opts.Temperature
	return s.client.CreateMessage(ctx, MessagesRequest{
		Messages:    apiMessages,
		MaxTokens:   opts.MaxTokens,
		System:      system,
		Temperature: &temperature,
	})
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string {
	return s.client.Model()
}

// Ping validates the API key.
func (s *LLMService) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

// Close releases resources.
func (s *LLMService) Close() error {
	return nil
}
