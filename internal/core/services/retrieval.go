package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/custodia-labs/medrag/internal/core/domain"
	"github.com/custodia-labs/medrag/internal/core/ports/driven"
	"github.com/custodia-labs/medrag/internal/logger"
	"github.com/custodia-labs/medrag/internal/telemetry"
)

// DefaultTopK is the number of chunks retrieved per question.
const DefaultTopK = 6

// DefaultAnswerMaxTokens bounds the generated answer.
const DefaultAnswerMaxTokens = 1500

// Retriever answers questions from a single document's namespace.
type Retriever struct {
	embedder  driven.EmbeddingService
	index     driven.VectorIndex
	llm       driven.LLMService
	events    driven.EventPublisher
	metrics   *telemetry.Metrics
	prompts   driven.PromptStore
	topK      int
	maxTokens int
}

// Ensure Retriever accepts custom prompts.
var _ driven.PromptStoreAware = (*Retriever)(nil)

// RetrieverOption configures the retriever.
type RetrieverOption func(*Retriever)

// WithTopK sets how many chunks are retrieved.
func WithTopK(k int) RetrieverOption {
	return func(r *Retriever) {
		if k > 0 {
			r.topK = k
		}
	}
}

// WithAnswerMaxTokens bounds the generated answer length.
func WithAnswerMaxTokens(n int) RetrieverOption {
	return func(r *Retriever) {
		if n > 0 {
			r.maxTokens = n
		}
	}
}

// WithRetrieverMetrics records query outcomes.
func WithRetrieverMetrics(m *telemetry.Metrics) RetrieverOption {
	return func(r *Retriever) {
		r.metrics = m
	}
}

// NewRetriever creates a retriever.
func NewRetriever(
	embedder driven.EmbeddingService,
	index driven.VectorIndex,
	llm driven.LLMService,
	events driven.EventPublisher,
	opts ...RetrieverOption,
) *Retriever {
	r := &Retriever{
		embedder:  embedder,
		index:     index,
		llm:       llm,
		events:    events,
		topK:      DefaultTopK,
		maxTokens: DefaultAnswerMaxTokens,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetPromptStore lets users override the answer system prompt.
func (r *Retriever) SetPromptStore(store driven.PromptStore) {
	r.prompts = store
}

// systemPrompt returns the configured answer instruction, falling back to the built-in one.
func (r *Retriever) systemPrompt() string {
	if r.prompts == nil {
		return domain.AnswerSystemPrompt
	}
	prompt, err := r.prompts.Load(driven.PromptAnswerSystem)
	if err != nil || strings.TrimSpace(prompt) == "" {
		logger.Warn("answer prompt unavailable, using built-in: %v", err)
		return domain.AnswerSystemPrompt
	}
	return prompt
}

// Answer retrieves evidence for the question and synthesises a grounded answer.
// Evidence is returned even when the model abstains.
func (r *Retriever) Answer(ctx context.Context, documentID, question string) (*domain.QueryResult, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "retrieval")
	defer span.End()
	span.SetAttributes(attribute.String("document.id", documentID))

	start := time.Now()
	result, err := r.answer(ctx, documentID, question)
	r.metrics.RecordStage(ctx, "retrieval", time.Since(start), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	r.metrics.RecordQuery(ctx, result.Abstained)
	span.SetAttributes(
		attribute.Int("evidence", len(result.Evidence)),
		attribute.Bool("abstained", result.Abstained),
	)
	return result, nil
}

func (r *Retriever) answer(ctx context.Context, documentID, question string) (*domain.QueryResult, error) {
	logger.Section("Retrieval")

	// 1. VALIDATE
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: question must not be empty", domain.ErrValidation)
	}
	if r.embedder == nil {
		return nil, fmt.Errorf("%w: no embedding service: %w", domain.ErrRetrieval, domain.ErrCapabilityUnavailable)
	}
	if r.llm == nil {
		return nil, fmt.Errorf("%w: no generation service: %w", domain.ErrRetrieval, domain.ErrCapabilityUnavailable)
	}

	// 2. EMBED QUESTION
	queryVector, err := r.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("%w: embed question: %w", domain.ErrEmbedding, err)
	}

	// 3. CHECK NAMESPACE
	namespace := domain.NamespaceFor(documentID)
	count, err := r.index.Count(ctx, namespace)
	if err != nil {
		return nil, fmt.Errorf("%w: count %s: %w", domain.ErrRetrieval, namespace, err)
	}
	if count == 0 {
		return nil, fmt.Errorf("%w: namespace %s is empty", domain.ErrRetrieval, namespace)
	}

	// 4. SEARCH
	hits, err := r.index.Search(ctx, namespace, queryVector, r.topK)
	if err != nil {
		return nil, fmt.Errorf("%w: search %s: %w", domain.ErrRetrieval, namespace, err)
	}

	evidence := make([]domain.Evidence, len(hits))
	scores := make([]map[string]any, len(hits))
	for i, h := range hits {
		evidence[i] = domain.Evidence{Chunk: h.Chunk, Score: h.Similarity}
		scores[i] = map[string]any{
			"index": h.Chunk.Index,
			"page":  h.Chunk.Page,
			"score": h.Similarity,
		}
	}
	logger.Debug("Retrieved %d/%d chunks from %s", len(hits), count, namespace)

	r.publish(domain.NewEvent(documentID, domain.EventRetrieval,
		fmt.Sprintf("Retrieved %d chunks", len(hits))).
		WithDetail(map[string]any{"question": question, "hits": scores}))

	// 5. GENERATE
	raw, err := r.llm.Generate(ctx, BuildAnswerPrompt(question, evidence), driven.GenerateOptions{
		System:      r.systemPrompt(),
		MaxTokens:   r.maxTokens,
		Temperature: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	// 6. NORMALISE
	answer, abstained := NormaliseAnswer(raw)

	level := domain.LevelSuccess
	if abstained {
		level = domain.LevelWarning
	}
	r.publish(domain.NewEvent(documentID, domain.EventAnswer, "Answer generated").
		WithLevel(level).
		WithDetail(map[string]any{
			"abstained": abstained,
			"evidence":  len(evidence),
			"model":     r.llm.ModelName(),
		}))

	return &domain.QueryResult{
		DocumentID: documentID,
		Answer:     answer,
		Abstained:  abstained,
		Evidence:   evidence,
		Model:      r.llm.ModelName(),
	}, nil
}

func (r *Retriever) publish(e domain.ProgressEvent) {
	if r.events != nil {
		r.events.Publish(e)
	}
}
