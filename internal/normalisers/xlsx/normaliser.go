// Package xlsx extracts worksheet rows from XLSX spreadsheets.
package xlsx

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/custodia-labs/medrag/internal/core/domain"
	"github.com/custodia-labs/medrag/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.TextExtractor = (*Normaliser)(nil)

// Normaliser handles XLSX spreadsheets.
type Normaliser struct{}

// New creates a new XLSX normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedClasses returns the document classes this normaliser handles.
func (n *Normaliser) SupportedClasses() []domain.Class {
	return []domain.Class{domain.ClassXLSX}
}

// Extract returns one table segment per non-empty sheet.
// The first row is treated as the header and repeated as "column: value"
// labels on every data row so chunks stay readable out of context.
func (n *Normaliser) Extract(ctx context.Context, data []byte) ([]domain.ExtractedSegment, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	defer func() { _ = f.Close() }()

	var segments []domain.ExtractedSegment
	for _, sheet := range f.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rows, err := f.GetRows(sheet)
		if err != nil || len(rows) == 0 {
			continue
		}

		text := renderSheet(rows)
		if text == "" {
			continue
		}

		segments = append(segments, domain.ExtractedSegment{
			Text:    text,
			Tag:     domain.TagTable,
			Section: sheet,
		})
	}

	return segments, nil
}

func renderSheet(rows [][]string) string {
	header := trimCells(rows[0])
	lines := make([]string, 0, len(rows))
	if line := strings.Join(nonEmpty(header), " | "); line != "" {
		lines = append(lines, line)
	}

	for _, row := range rows[1:] {
		if line := renderRow(header, trimCells(row)); line != "" {
			lines = append(lines, line)
		}
	}

	return strings.Join(lines, "\n")
}

func renderRow(header, row []string) string {
	parts := make([]string, 0, len(row))
	for i, value := range row {
		if value == "" {
			continue
		}
		if i < len(header) && header[i] != "" {
			parts = append(parts, header[i]+": "+value)
		} else {
			parts = append(parts, value)
		}
	}
	return strings.Join(parts, " | ")
}

func trimCells(row []string) []string {
	out := make([]string, len(row))
	for i, cell := range row {
		out[i] = strings.TrimSpace(cell)
	}
	return out
}

func nonEmpty(cells []string) []string {
	out := make([]string, 0, len(cells))
	for _, c := range cells {
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}
