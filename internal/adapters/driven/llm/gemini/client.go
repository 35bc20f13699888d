// Package gemini provides generation and multimodal adapters over the Gemini API.
package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/custodia-labs/medrag/internal/adapters/driven/ai/apierr"
)

// Default configuration values.
const (
	DefaultModel = "gemini-1.5-flash"

	providerName = "gemini"
)

// Config holds configuration for Gemini clients.
type Config struct {
	// APIKey is the Gemini API key (required).
	APIKey string

	// Model is the generative model to use (default: gemini-1.5-flash).
	Model string

	// ClientOptions are passed to the genai client after the API key.
	ClientOptions []option.ClientOption
}

// Request is one generation call.
type Request struct {
	System      string
	History     []*genai.Content
	Parts       []genai.Part
	MaxTokens   int
	Temperature float64
	Stop        []string

	// JSON asks the model for an application/json response.
	JSON bool
}

// Client wraps a genai client for the generation and vision adapters.
type Client struct {
	client *genai.Client
	model  string

	// send is the transport seam; it defaults to the genai SDK.
	send func(ctx context.Context, m *genai.GenerativeModel, history []*genai.Content, parts []genai.Part) (*genai.GenerateContentResponse, error)
}

// NewClient creates a Gemini client.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, apierr.Unconfigured(providerName, "API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	opts := append([]option.ClientOption{option.WithAPIKey(cfg.APIKey)}, cfg.ClientOptions...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: create client: %w", providerName, err)
	}

	return &Client{client: client, model: cfg.Model, send: sendContent}, nil
}

func sendContent(
	ctx context.Context,
	m *genai.GenerativeModel,
	history []*genai.Content,
	parts []genai.Part,
) (*genai.GenerateContentResponse, error) {
	if len(history) == 0 {
		return m.GenerateContent(ctx, parts...)
	}
	cs := m.StartChat()
	cs.History = history
	return cs.SendMessage(ctx, parts...)
}

// Generate runs a request and returns the concatenated text of the first candidate.
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	if len(req.Parts) == 0 {
		return "", fmt.Errorf("%s: empty request", providerName)
	}

	m := c.client.GenerativeModel(c.model)
	if req.System != "" {
		m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
	}
	m.SetTemperature(float32(req.Temperature))
	if req.MaxTokens > 0 {
		m.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	if len(req.Stop) > 0 {
		m.StopSequences = req.Stop
	}
	if req.JSON {
		m.ResponseMIMEType = "application/json"
	}

	resp, err := c.send(ctx, m, req.History, req.Parts)
	if err != nil {
		return "", fmt.Errorf("%s: generate: %w", providerName, err)
	}
	return textFrom(resp)
}

func textFrom(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("%s: no candidates returned", providerName)
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("%s: response contained no text", providerName)
	}
	return sb.String(), nil
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// Ping fetches the model metadata.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.client.GenerativeModel(c.model).Info(ctx); err != nil {
		return fmt.Errorf("%s: ping failed: %w", providerName, err)
	}
	return nil
}

// Close releases the underlying client.
func (c *Client) Close() error {
	return c.client.Close()
}
