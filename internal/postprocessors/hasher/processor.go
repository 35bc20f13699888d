// Package hasher fingerprints chunk text for idempotent upserts.
package hasher

import (
	"context"
	"fmt"

	"github.com/minio/highwayhash"

	"github.com/custodia-labs/medrag/internal/core/domain"
)

// key is the fixed HighwayHash key. Changing it changes every content hash.
var key = []byte("medrag-chunk-content-hash-key-01")

// Processor sets ContentHash on every chunk.
// It implements the PostProcessor interface.
type Processor struct{}

// New creates a hasher processor.
func New() *Processor {
	return &Processor{}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "hasher"
}

// Process returns the chunks with ContentHash filled in.
func (p *Processor) Process(
	_ context.Context,
	_ string,
	_ []domain.ExtractedSegment,
	chunks []domain.Chunk,
) ([]domain.Chunk, error) {
	out := make([]domain.Chunk, len(chunks))
	for i, c := range chunks {
		h, err := Hash(c.Text)
		if err != nil {
			return nil, fmt.Errorf("hash chunk %d: %w", c.Index, err)
		}
		c.ContentHash = h
		out[i] = c
	}
	return out, nil
}

// Hash returns the hex HighwayHash-64 of text.
func Hash(text string) (string, error) {
	h, err := highwayhash.New64(key)
	if err != nil {
		return "", err
	}
	if _, err := h.Write([]byte(text)); err != nil {
		return "", err
	}
	return fmt.Sprintf("%016x", h.Sum64()), nil
}
