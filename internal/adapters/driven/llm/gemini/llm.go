package gemini

import (
	"context"
	"strings"

	"github.com/google/generative-ai-go/genai"

	"github.com/custodia-labs/medrag/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// LLMService provides answer generation using Gemini.
type LLMService struct {
	client *Client
}

// NewLLMService creates a Gemini LLM service.
func NewLLMService(ctx context.Context, cfg Config) (*LLMService, error) {
	client, err := NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &LLMService{client: client}, nil
}

// Generate produces text completion from a prompt.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	return s.client.Generate(ctx, Request{
		System:      opts.System,
		Parts:       []genai.Part{genai.Text(prompt)},
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
		Stop:        opts.StopWords,
	})
}

// Chat conducts a multi-turn conversation. System messages become the
// system instruction; the final message is sent against the earlier history.
func (s *LLMService) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	var system []string
	var turns []*genai.Content
	for _, msg := range messages {
		switch msg.Role {
		case "system":
			system = append(system, msg.Content)
		case "assistant":
			turns = append(turns, &genai.Content{Role: "model", Parts: []genai.Part{genai.Text(msg.Content)}})
		default:
			turns = append(turns, &genai.Content{Role: "user", Parts: []genai.Part{genai.Text(msg.Content)}})
		}
	}

	req := Request{
		System:      strings.Join(system, "\n\n"),
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	}
	if n := len(turns); n > 0 {
		req.History = turns[:n-1]
		req.Parts = turns[n-1].Parts
	}
	return s.client.Generate(ctx, req)
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string {
	return s.client.Model()
}

// Ping validates the model is reachable.
func (s *LLMService) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

// Close releases resources.
func (s *LLMService) Close() error {
	return s.client.Close()
}
