// Package docx extracts headings, paragraphs and tables from DOCX documents.
package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/medrag/internal/core/domain"
	"github.com/custodia-labs/medrag/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.TextExtractor = (*Normaliser)(nil)

// Normaliser handles DOCX documents.
type Normaliser struct{}

// New creates a new DOCX normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedClasses returns the document classes this normaliser handles.
func (n *Normaliser) SupportedClasses() []domain.Class {
	return []domain.Class{domain.ClassDOCX}
}

// Extract reads word/document.xml in body order.
// Paragraphs under a heading form one text segment titled by that heading;
// tables become table segments with cells joined by " | ".
func (n *Normaliser) Extract(_ context.Context, data []byte) ([]domain.ExtractedSegment, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: not a docx archive", domain.ErrInvalidInput)
	}

	content, err := readDocumentXML(reader)
	if err != nil {
		return nil, err
	}

	var doc documentXML
	if err := xml.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("%w: malformed document.xml: %w", domain.ErrInvalidInput, err)
	}

	return buildSegments(doc.Body.blocks), nil
}

// readDocumentXML returns the contents of word/document.xml.
func readDocumentXML(reader *zip.Reader) ([]byte, error) {
	for _, file := range reader.File {
		if file.Name != "word/document.xml" {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
		}
		defer rc.Close()

		content, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
		}
		return content, nil
	}
	return nil, fmt.Errorf("%w: word/document.xml missing", domain.ErrInvalidInput)
}

func buildSegments(blocks []block) []domain.ExtractedSegment {
	var (
		segments []domain.ExtractedSegment
		section  string
		body     []string
		covered  bool
	)

	flush := func() {
		if len(body) > 0 {
			segments = append(segments, domain.ExtractedSegment{
				Text:    strings.Join(body, "\n"),
				Tag:     domain.TagText,
				Section: section,
			})
			covered = true
		} else if section != "" && !covered {
			segments = append(segments, domain.ExtractedSegment{
				Text:    section,
				Tag:     domain.TagHeading,
				Section: section,
			})
		}
		body = nil
	}

	for _, b := range blocks {
		switch {
		case b.para != nil:
			text := b.para.text()
			if text == "" {
				continue
			}
			if b.para.isHeading() {
				flush()
				section = text
				covered = false
				continue
			}
			body = append(body, text)

		case b.table != nil:
			rows := b.table.rows()
			if len(rows) == 0 {
				continue
			}
			if len(body) > 0 {
				flush()
			}
			segments = append(segments, domain.ExtractedSegment{
				Text:    strings.Join(rows, "\n"),
				Tag:     domain.TagTable,
				Section: section,
			})
			covered = true
		}
	}
	flush()

	return segments
}

// documentXML represents the structure of word/document.xml.
type documentXML struct {
	Body body `xml:"body"`
}

// body keeps paragraphs and tables in document order.
type body struct {
	blocks []block
}

type block struct {
	para  *paragraph
	table *table
}

// UnmarshalXML decodes body children in order, skipping unknown elements.
func (b *body) UnmarshalXML(d *xml.Decoder, _ xml.StartElement) error {
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				var p paragraph
				if err := d.DecodeElement(&p, &t); err != nil {
					return err
				}
				b.blocks = append(b.blocks, block{para: &p})
			case "tbl":
				var tb table
				if err := d.DecodeElement(&tb, &t); err != nil {
					return err
				}
				b.blocks = append(b.blocks, block{table: &tb})
			default:
				if err := d.Skip(); err != nil {
					return err
				}
			}
		case xml.EndElement:
			return nil
		}
	}
}

type paragraph struct {
	Props struct {
		Style struct {
			Val string `xml:"val,attr"`
		} `xml:"pStyle"`
	} `xml:"pPr"`
	Runs []run `xml:"r"`
}

type run struct {
	Text []textElement `xml:"t"`
}

type textElement struct {
	Content string `xml:",chardata"`
}

func (p *paragraph) text() string {
	var sb strings.Builder
	for _, r := range p.Runs {
		for _, t := range r.Text {
			sb.WriteString(t.Content)
		}
	}
	return strings.TrimSpace(sb.String())
}

func (p *paragraph) isHeading() bool {
	style := strings.ToLower(p.Props.Style.Val)
	return strings.HasPrefix(style, "heading") ||
		strings.HasPrefix(style, "titre") ||
		style == "title"
}

type table struct {
	Rows []struct {
		Cells []struct {
			Paragraphs []paragraph `xml:"p"`
		} `xml:"tc"`
	} `xml:"tr"`
}

// rows renders each table row as "a | b", dropping empty cells and rows.
func (t *table) rows() []string {
	var out []string
	for _, row := range t.Rows {
		var cells []string
		for _, cell := range row.Cells {
			var parts []string
			for _, p := range cell.Paragraphs {
				if text := p.text(); text != "" {
					parts = append(parts, text)
				}
			}
			if len(parts) > 0 {
				cells = append(cells, strings.Join(parts, " "))
			}
		}
		if len(cells) > 0 {
			out = append(out, strings.Join(cells, " | "))
		}
	}
	return out
}
