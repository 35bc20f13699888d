// Package pdf reads the embedded text layer of PDF documents.
//
// This is the fallback used when no vision capability is configured.
// Scanned pages without a text layer yield no segments.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/medrag/internal/core/domain"
	"github.com/custodia-labs/medrag/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.TextExtractor = (*Normaliser)(nil)

// Normaliser handles PDF documents.
type Normaliser struct{}

// New creates a new PDF normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedClasses returns the document classes this normaliser handles.
func (n *Normaliser) SupportedClasses() []domain.Class {
	return []domain.Class{domain.ClassPDF}
}

// Extract returns one segment per page that carries text.
func (n *Normaliser) Extract(ctx context.Context, data []byte) (segments []domain.ExtractedSegment, err error) {
	// The reader panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			segments = nil
			err = fmt.Errorf("%w: unreadable pdf: %v", domain.ErrInvalidInput, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}

	pages := reader.NumPage()
	for i := 1; i <= pages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		fonts := make(map[string]*pdf.Font)
		text, err := page.GetPlainText(fonts)
		if err != nil {
			continue
		}

		text = cleanText(text)
		if text == "" {
			continue
		}

		segments = append(segments, domain.ExtractedSegment{
			Text: text,
			Page: i,
			Tag:  domain.TagText,
		})
	}

	return segments, nil
}

// cleanText trims each line and collapses runs of blank lines.
func cleanText(s string) string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
