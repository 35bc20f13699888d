// Package chunker provides a segment-aware text chunking processor.
package chunker

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/custodia-labs/medrag/internal/core/domain"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 800

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 100

// Processor splits extracted segments into bounded, overlapping chunks.
// A chunk never spans two segments; oversized segments are split internally
// and every piece keeps the segment's provenance.
// It implements the PostProcessor interface.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// ChunkSize returns the configured maximum chunk length in characters.
func (p *Processor) ChunkSize() int {
	return p.chunkSize
}

// Overlap returns the configured overlap in characters.
func (p *Processor) Overlap() int {
	return p.overlap
}

// Process splits the segments into chunks.
// Input chunks are ignored; this processor creates new chunks from the segments.
// Returns domain.ErrChunking if the segments carry no text at all.
func (p *Processor) Process(
	ctx context.Context,
	documentID string,
	segments []domain.ExtractedSegment,
	_ []domain.Chunk,
) ([]domain.Chunk, error) {
	chunks := make([]domain.Chunk, 0, len(segments))

	for _, seg := range segments {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		for _, piece := range p.split(seg.Text) {
			chunks = append(chunks, domain.Chunk{
				Index:      len(chunks),
				DocumentID: documentID,
				Text:       piece,
				Page:       seg.Page,
				Section:    seg.Section,
				Tag:        seg.Tag,
				Entities:   seg.Entities,
			})
		}
	}

	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: extracted text is empty", domain.ErrChunking)
	}

	return chunks, nil
}

// split cuts text into pieces of at most chunkSize runes. Cuts prefer a
// paragraph break, then a sentence end, then whitespace, within the back half
// of the window. Consecutive pieces share roughly overlap runes.
func (p *Processor) split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	runes := []rune(text)
	if len(runes) <= p.chunkSize {
		return []string{text}
	}

	var pieces []string
	start := 0

	for start < len(runes) {
		end := start + p.chunkSize
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = breakPoint(runes, start, end)
		}

		if piece := strings.TrimSpace(string(runes[start:end])); piece != "" {
			pieces = append(pieces, piece)
		}

		if end == len(runes) {
			break
		}

		next := alignToWord(runes, end-p.overlap, end)
		if next <= start {
			next = end
		}
		start = next
	}

	return pieces
}

// breakPoint returns the best cut position in runes[start:end].
func breakPoint(runes []rune, start, end int) int {
	floor := start + (end-start)/2

	// 1. PARAGRAPH BREAK
	for i := end - 1; i > floor; i-- {
		if runes[i] == '\n' && runes[i-1] == '\n' {
			return i + 1
		}
	}

	// 2. SENTENCE END
	for i := end - 1; i > floor; i-- {
		if unicode.IsSpace(runes[i]) && isSentenceEnd(runes[i-1]) {
			return i + 1
		}
	}

	// 3. WHITESPACE
	for i := end - 1; i > floor; i-- {
		if unicode.IsSpace(runes[i]) {
			return i + 1
		}
	}

	return end
}

func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?', ';', ':', '\n':
		return true
	default:
		return false
	}
}

// alignToWord moves pos forward to the start of the next word, but not past limit.
func alignToWord(runes []rune, pos, limit int) int {
	if pos <= 0 {
		return 0
	}
	if unicode.IsSpace(runes[pos-1]) {
		return pos
	}
	for i := pos; i < limit; i++ {
		if unicode.IsSpace(runes[i]) {
			return i + 1
		}
	}
	return pos
}
