// Package pdf splits PDF documents into single-page PDFs for page analysis.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/custodia-labs/medrag/internal/core/domain"
	"github.com/custodia-labs/medrag/internal/core/ports/driven"
)

// Ensure Splitter implements the interface.
var _ driven.PageSplitter = (*Splitter)(nil)

const mimePDF = "application/pdf"

func init() {
	// pdfcpu otherwise writes a config directory under the user's home.
	api.DisableConfigDir()
}

// Splitter splits PDFs with pdfcpu.
type Splitter struct {
	conf *model.Configuration
}

// New creates a splitter using relaxed validation, which tolerates the
// minor PDF format violations common in exported clinical documents.
func New() *Splitter {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &Splitter{conf: conf}
}

// Split returns one single-page PDF per page, numbered from 1.
func (s *Splitter) Split(ctx context.Context, data []byte) ([]driven.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty pdf", domain.ErrInvalidInput)
	}

	spans, err := api.SplitRaw(bytes.NewReader(data), 1, s.conf)
	if err != nil {
		return nil, fmt.Errorf("%w: split pdf: %v", domain.ErrInvalidInput, err)
	}

	pages := make([]driven.Page, 0, len(spans))
	for _, span := range spans {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		b, err := io.ReadAll(span.Reader)
		if err != nil {
			return nil, fmt.Errorf("read page %d: %w", span.From, err)
		}
		pages = append(pages, driven.Page{
			Number:   span.From,
			Data:     b,
			MIMEType: mimePDF,
		})
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: pdf has no pages", domain.ErrInvalidInput)
	}
	return pages, nil
}

// PageCount returns the number of pages without splitting.
func (s *Splitter) PageCount(data []byte) (int, error) {
	n, err := api.PageCount(bytes.NewReader(data), s.conf)
	if err != nil {
		return 0, fmt.Errorf("%w: count pages: %v", domain.ErrInvalidInput, err)
	}
	return n, nil
}
