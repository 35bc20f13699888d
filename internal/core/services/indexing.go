package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/custodia-labs/medrag/internal/core/domain"
	"github.com/custodia-labs/medrag/internal/core/ports/driven"
	"github.com/custodia-labs/medrag/internal/logger"
	"github.com/custodia-labs/medrag/internal/telemetry"
)

// DefaultBatchSize is the number of chunks embedded per request.
const DefaultBatchSize = 32

// pointNamespace seeds deterministic vector point IDs.
var pointNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/custodia-labs/medrag/points"))

// errVectorCount marks an embedding response with the wrong number of vectors.
var errVectorCount = errors.New("embedding returned wrong number of vectors")

// PointID returns the vector point ID for a chunk.
// The same namespace, index and content always give the same ID.
func PointID(namespace string, chunk domain.Chunk) string {
	name := fmt.Sprintf("%s/%d/%s", namespace, chunk.Index, chunk.ContentHash)
	return uuid.NewSHA1(pointNamespace, []byte(name)).String()
}

// IndexingPipeline embeds chunks in batches and upserts them into a namespace.
type IndexingPipeline struct {
	embedder  driven.EmbeddingService
	events    driven.EventPublisher
	metrics   *telemetry.Metrics
	batchSize int
	retry     domain.RetryPolicy
}

// IndexingOption configures the pipeline.
type IndexingOption func(*IndexingPipeline)

// WithBatchSize sets the embedding batch size.
func WithBatchSize(n int) IndexingOption {
	return func(p *IndexingPipeline) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// WithRetryPolicy sets the per-batch retry policy.
func WithRetryPolicy(policy domain.RetryPolicy) IndexingOption {
	return func(p *IndexingPipeline) {
		if policy.Validate() == nil {
			p.retry = policy
		}
	}
}

// WithIndexingMetrics records indexed chunk counts.
func WithIndexingMetrics(m *telemetry.Metrics) IndexingOption {
	return func(p *IndexingPipeline) {
		p.metrics = m
	}
}

// NewIndexingPipeline creates an indexing pipeline.
func NewIndexingPipeline(
	embedder driven.EmbeddingService,
	events driven.EventPublisher,
	opts ...IndexingOption,
) *IndexingPipeline {
	p := &IndexingPipeline{
		embedder:  embedder,
		events:    events,
		batchSize: DefaultBatchSize,
		retry:     domain.DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Index embeds and upserts every chunk into the document's namespace.
// Returns the number of chunks written. Embedding failures that outlast
// the retry policy return domain.ErrEmbedding; upsert failures are wrapped
// and returned without retry.
func (p *IndexingPipeline) Index(
	ctx context.Context, sink driven.VectorIndex, documentID string, chunks []domain.Chunk,
) (int, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "indexing")
	defer span.End()
	span.SetAttributes(
		attribute.String("document.id", documentID),
		attribute.Int("chunks", len(chunks)),
	)

	start := time.Now()
	n, err := p.index(ctx, sink, documentID, chunks)
	p.metrics.RecordStage(ctx, "indexing", time.Since(start), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return n, err
}

func (p *IndexingPipeline) index(
	ctx context.Context, sink driven.VectorIndex, documentID string, chunks []domain.Chunk,
) (int, error) {
	logger.Section("Indexing")

	if p.embedder == nil {
		return 0, fmt.Errorf("%w: no embedding service: %w", domain.ErrEmbedding, domain.ErrCapabilityUnavailable)
	}
	if len(chunks) == 0 {
		return 0, fmt.Errorf("%w: nothing to index", domain.ErrChunking)
	}

	namespace := domain.NamespaceFor(documentID)
	batches := (len(chunks) + p.batchSize - 1) / p.batchSize
	indexed := 0

	for b := 0; b < batches; b++ {
		lo := b * p.batchSize
		hi := min(lo+p.batchSize, len(chunks))
		batch := chunks[lo:hi]

		vectors, err := p.embedBatch(ctx, documentID, b+1, batch)
		if err != nil {
			return indexed, err
		}

		records := make([]driven.VectorRecord, len(batch))
		for i, c := range batch {
			records[i] = driven.VectorRecord{
				ID:     PointID(namespace, c),
				Vector: vectors[i],
				Chunk:  c,
			}
		}

		if err := sink.Upsert(ctx, namespace, records); err != nil {
			return indexed, fmt.Errorf("upsert batch %d/%d: %w", b+1, batches, err)
		}

		indexed += len(batch)
		p.metrics.RecordChunks(ctx, len(batch))
		logger.Debug("Indexed batch %d/%d (%d/%d chunks)", b+1, batches, indexed, len(chunks))

		p.publish(domain.NewEvent(documentID, domain.EventIndexingProgress,
			fmt.Sprintf("Indexed %d/%d chunks", indexed, len(chunks))).
			WithDetail(map[string]any{
				"batch":   b + 1,
				"batches": batches,
				"indexed": indexed,
				"total":   len(chunks),
			}))
	}

	return indexed, nil
}

// embedBatch embeds one batch under the retry policy.
func (p *IndexingPipeline) embedBatch(
	ctx context.Context, documentID string, batchNo int, batch []domain.Chunk,
) ([][]float32, error) {
	texts := make([]string, len(batch))
	for i, c := range batch {
		texts[i] = c.Text
	}

	attempts := 0
	operation := func() ([][]float32, error) {
		attempts++
		vectors, err := p.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			if isPermanent(err) {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		if len(vectors) != len(texts) {
			return nil, backoff.Permanent(fmt.Errorf("%w: got %d for %d texts",
				errVectorCount, len(vectors), len(texts)))
		}
		return vectors, nil
	}

	vectors, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(&backoff.ExponentialBackOff{
			InitialInterval:     p.retry.BaseDelay,
			Multiplier:          p.retry.Multiplier,
			RandomizationFactor: 0,
			MaxInterval:         p.retry.MaxDelay,
		}),
		backoff.WithMaxTries(uint(p.retry.MaxAttempts)),
		backoff.WithNotify(func(err error, wait time.Duration) {
			logger.Warn("Embedding batch %d failed (attempt %d): %v; retrying in %s",
				batchNo, attempts, err, wait)
			p.publish(domain.NewEvent(documentID, domain.EventIndexingProgress,
				fmt.Sprintf("Embedding batch %d failed, retrying", batchNo)).
				WithLevel(domain.LevelWarning).
				WithDetail(map[string]any{
					"batch":   batchNo,
					"attempt": attempts,
					"error":   err.Error(),
				}))
		}),
	)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: batch %d after %d attempts: %w", domain.ErrEmbedding, batchNo, attempts, err)
	}
	return vectors, nil
}

// isPermanent reports capability errors that a retry cannot fix.
func isPermanent(err error) bool {
	return errors.Is(err, domain.ErrCapabilityUnavailable) || errors.Is(err, domain.ErrInvalidInput)
}

func (p *IndexingPipeline) publish(e domain.ProgressEvent) {
	if p.events != nil {
		p.events.Publish(e)
	}
}
