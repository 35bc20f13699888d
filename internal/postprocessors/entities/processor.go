// Package entities narrows vision-supplied medical entities to the chunk
// that actually mentions them.
package entities

import (
	"context"
	"strings"

	"github.com/custodia-labs/medrag/internal/core/domain"
)

// Processor filters and deduplicates chunk entities.
// It implements the PostProcessor interface.
type Processor struct {
	keepUnmatched bool
}

// Option configures the processor.
type Option func(*Processor)

// WithKeepUnmatched keeps entities even when the chunk text never mentions them.
func WithKeepUnmatched(keep bool) Option {
	return func(p *Processor) {
		p.keepUnmatched = keep
	}
}

// New creates an entities processor.
func New(opts ...Option) *Processor {
	p := &Processor{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "entities"
}

// Process returns the chunks with their entity lists narrowed.
// Matching is case-insensitive; duplicates keep their first spelling.
func (p *Processor) Process(
	_ context.Context,
	_ string,
	_ []domain.ExtractedSegment,
	chunks []domain.Chunk,
) ([]domain.Chunk, error) {
	out := make([]domain.Chunk, len(chunks))
	for i, c := range chunks {
		c.Entities = p.filter(c.Text, c.Entities)
		out[i] = c
	}
	return out, nil
}

func (p *Processor) filter(text string, entities []string) []string {
	if len(entities) == 0 {
		return nil
	}

	lower := strings.ToLower(text)
	seen := make(map[string]bool, len(entities))
	var kept []string
	for _, e := range entities {
		e = strings.TrimSpace(e)
		key := strings.ToLower(e)
		if e == "" || seen[key] {
			continue
		}
		seen[key] = true
		if p.keepUnmatched || strings.Contains(lower, key) {
			kept = append(kept, e)
		}
	}
	return kept
}
