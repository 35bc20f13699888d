package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/medrag/internal/core/domain"
	"github.com/custodia-labs/medrag/internal/core/ports/driven"
	"github.com/custodia-labs/medrag/internal/logger"
	"github.com/custodia-labs/medrag/internal/telemetry"
)

// DefaultExtractionWorkers is the number of pages analysed concurrently.
const DefaultExtractionWorkers = 2

// ExtractionResult is the output of one extraction run.
type ExtractionResult struct {
	// Segments are ordered by page, then by position within the page.
	Segments []domain.ExtractedSegment

	// Pages is the number of extraction units attempted.
	Pages int

	// FailedPages lists the 1-based units that produced nothing.
	FailedPages []int
}

// ExtractionOrchestrator turns raw document bytes into ordered segments.
// Scanned content goes through the vision capability page by page;
// text-native classes go through their TextExtractor.
type ExtractionOrchestrator struct {
	vision     driven.VisionService
	splitter   driven.PageSplitter
	extractors map[domain.Class]driven.TextExtractor
	events     driven.EventPublisher
	metrics    *telemetry.Metrics
	workers    int
}

// ExtractionOption configures the orchestrator.
type ExtractionOption func(*ExtractionOrchestrator)

// WithExtractionWorkers bounds how many pages are in flight at once.
func WithExtractionWorkers(n int) ExtractionOption {
	return func(o *ExtractionOrchestrator) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithExtractionMetrics records page outcomes.
func WithExtractionMetrics(m *telemetry.Metrics) ExtractionOption {
	return func(o *ExtractionOrchestrator) {
		o.metrics = m
	}
}

// NewExtractionOrchestrator creates an orchestrator.
// vision and splitter are optional; without them PDFs use their text layer
// and images cannot be ingested.
func NewExtractionOrchestrator(
	vision driven.VisionService,
	splitter driven.PageSplitter,
	extractors []driven.TextExtractor,
	events driven.EventPublisher,
	opts ...ExtractionOption,
) *ExtractionOrchestrator {
	o := &ExtractionOrchestrator{
		vision:     vision,
		splitter:   splitter,
		extractors: make(map[domain.Class]driven.TextExtractor),
		events:     events,
		workers:    DefaultExtractionWorkers,
	}
	for _, e := range extractors {
		for _, class := range e.SupportedClasses() {
			o.extractors[class] = e
		}
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// HasVision returns true if a vision capability is configured.
func (o *ExtractionOrchestrator) HasVision() bool {
	return o.vision != nil
}

// Extract runs extraction for the document.
// Returns domain.ErrExtraction when no unit yields text.
func (o *ExtractionOrchestrator) Extract(
	ctx context.Context, doc *domain.Document, data []byte,
) (*ExtractionResult, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "extraction")
	defer span.End()
	span.SetAttributes(
		attribute.String("document.id", doc.ID),
		attribute.String("document.class", doc.Class.String()),
	)

	start := time.Now()
	result, err := o.extract(ctx, doc, data)
	o.metrics.RecordStage(ctx, "extraction", time.Since(start), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("pages", result.Pages),
		attribute.Int("segments", len(result.Segments)),
	)
	return result, nil
}

func (o *ExtractionOrchestrator) extract(
	ctx context.Context, doc *domain.Document, data []byte,
) (*ExtractionResult, error) {
	logger.Section("Extraction")
	logger.Debug("Document %s (%s, %d bytes)", doc.ID, doc.Class, len(data))

	switch doc.Class {
	case domain.ClassImage:
		if o.vision == nil {
			return nil, fmt.Errorf("%w: images require a vision capability: %w",
				domain.ErrExtraction, domain.ErrCapabilityUnavailable)
		}
		mimeType := doc.MIMEType
		if mimeType == "" {
			mimeType = "image/png"
		}
		return o.extractVision(ctx, doc.ID, []driven.Page{{Number: 1, Data: data, MIMEType: mimeType}})

	case domain.ClassPDF:
		if o.vision != nil && o.splitter != nil {
			pages, err := o.splitter.Split(ctx, data)
			if err != nil {
				return nil, fmt.Errorf("%w: split pages: %w", domain.ErrExtraction, err)
			}
			if len(pages) == 0 {
				return nil, fmt.Errorf("%w: document has no pages", domain.ErrExtraction)
			}
			return o.extractVision(ctx, doc.ID, pages)
		}
		return o.extractText(ctx, doc, data)

	case domain.ClassDOCX, domain.ClassXLSX:
		return o.extractText(ctx, doc, data)

	default:
		return nil, fmt.Errorf("%w: unsupported class %q", domain.ErrExtraction, doc.Class)
	}
}

// extractText runs the class's TextExtractor as a single unit.
func (o *ExtractionOrchestrator) extractText(
	ctx context.Context, doc *domain.Document, data []byte,
) (*ExtractionResult, error) {
	extractor, ok := o.extractors[doc.Class]
	if !ok {
		return nil, fmt.Errorf("%w: no text extractor for %s: %w",
			domain.ErrExtraction, doc.Class, domain.ErrCapabilityUnavailable)
	}

	o.publish(domain.NewEvent(doc.ID, domain.EventExtractionStart,
		fmt.Sprintf("Reading %s text", doc.Class)).
		WithDetail(map[string]any{"total": 1, "mode": "text"}))

	segments, err := extractor.Extract(ctx, data)
	if err != nil {
		o.metrics.RecordPage(ctx, false)
		return nil, fmt.Errorf("%w: %w", domain.ErrExtraction, err)
	}

	segments = dropEmptySegments(segments)
	if len(segments) == 0 {
		o.metrics.RecordPage(ctx, false)
		return nil, fmt.Errorf("%w: no text found in document", domain.ErrExtraction)
	}
	o.metrics.RecordPage(ctx, true)

	pages := 1
	for _, s := range segments {
		if s.Page > pages {
			pages = s.Page
		}
	}

	o.publish(domain.NewEvent(doc.ID, domain.EventExtractionProgress,
		fmt.Sprintf("Extracted %d segments", len(segments))).
		WithLevel(domain.LevelSuccess).
		WithDetail(map[string]any{
			"page":     1,
			"total":    1,
			"fraction": 1.0,
			"sections": len(segments),
		}))

	return &ExtractionResult{Segments: segments, Pages: pages}, nil
}

// extractVision sends each page to the vision capability with bounded
// concurrency. Failed pages are reported and skipped.
func (o *ExtractionOrchestrator) extractVision(
	ctx context.Context, documentID string, pages []driven.Page,
) (*ExtractionResult, error) {
	total := len(pages)
	o.publish(domain.NewEvent(documentID, domain.EventExtractionStart,
		fmt.Sprintf("Analysing %d pages", total)).
		WithDetail(map[string]any{"total": total, "mode": "vision"}))

	results := make([]*domain.VisionResult, total)
	var completed atomic.Int32

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)
	for i, page := range pages {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			res, err := o.vision.Extract(gctx, page)
			if err == nil && res.IsEmpty() {
				err = errors.New("no text recognised")
			}
			if err != nil {
				// A cancelled run is not a page failure.
				if ctx.Err() != nil {
					return ctx.Err()
				}
				done := completed.Add(1)
				logger.Warn("Page %d failed: %v", page.Number, err)
				o.metrics.RecordPage(gctx, false)
				o.publish(domain.NewEvent(documentID, domain.EventExtractionProgress,
					fmt.Sprintf("Page %d/%d failed", page.Number, total)).
					WithLevel(domain.LevelWarning).
					WithDetail(map[string]any{
						"page":     page.Number,
						"total":    total,
						"fraction": float64(done) / float64(total),
						"error":    err.Error(),
					}))
				return nil
			}

			results[i] = res
			done := completed.Add(1)
			o.metrics.RecordPage(gctx, true)
			o.publish(domain.NewEvent(documentID, domain.EventExtractionProgress,
				fmt.Sprintf("Page %d/%d analysed: %d sections, %d tables",
					page.Number, total, len(res.Analysis.Sections), len(res.Analysis.Tables))).
				WithLevel(domain.LevelSuccess).
				WithDetail(map[string]any{
					"page":      page.Number,
					"total":     total,
					"fraction":  float64(done) / float64(total),
					"sections":  len(res.Analysis.Sections),
					"tables":    len(res.Analysis.Tables),
					"page_type": res.Analysis.PageType,
				}))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &ExtractionResult{Pages: total}
	for i, res := range results {
		if res == nil {
			out.FailedPages = append(out.FailedPages, pages[i].Number)
			continue
		}
		out.Segments = append(out.Segments, SegmentsFromVision(pages[i].Number, res)...)
	}

	if len(out.Segments) == 0 {
		return nil, fmt.Errorf("%w: all %d pages failed", domain.ErrExtraction, total)
	}

	logger.Debug("Extracted %d segments from %d/%d pages",
		len(out.Segments), total-len(out.FailedPages), total)
	return out, nil
}

// SegmentsFromVision maps one vision result to segments.
// Each section with content becomes a segment tagged by its type, each
// table becomes a table segment, and the page transcription is used only
// when no section carries content.
func SegmentsFromVision(page int, res *domain.VisionResult) []domain.ExtractedSegment {
	var segments []domain.ExtractedSegment
	hasSectionContent := false

	for _, s := range res.Analysis.Sections {
		text := strings.TrimSpace(s.Content)
		if text == "" {
			continue
		}
		hasSectionContent = true
		segments = append(segments, domain.ExtractedSegment{
			Text:       text,
			Page:       page,
			Tag:        domain.ParseSegmentTag(s.Type),
			Section:    strings.TrimSpace(s.Title),
			Entities:   s.MedicalEntities,
			Confidence: s.Confidence,
		})
	}

	for _, t := range res.Analysis.Tables {
		text := strings.TrimSpace(t.Content)
		if text == "" {
			continue
		}
		if len(t.Columns) > 0 {
			header := strings.Join(t.Columns, " | ")
			if !strings.HasPrefix(text, header) {
				text = header + "\n" + text
			}
		}
		segments = append(segments, domain.ExtractedSegment{
			Text:     text,
			Page:     page,
			Tag:      domain.TagTable,
			Section:  strings.TrimSpace(t.Title),
			Entities: res.Analysis.KeyMedicalInfo.Medications,
		})
	}

	if !hasSectionContent {
		if text := strings.TrimSpace(res.Text); text != "" {
			segments = append(segments, domain.ExtractedSegment{
				Text:     text,
				Page:     page,
				Tag:      domain.TagText,
				Entities: res.Analysis.KeyMedicalInfo.Medications,
			})
		}
	}

	return segments
}

func dropEmptySegments(in []domain.ExtractedSegment) []domain.ExtractedSegment {
	out := make([]domain.ExtractedSegment, 0, len(in))
	for _, s := range in {
		if strings.TrimSpace(s.Text) != "" {
			out = append(out, s)
		}
	}
	return out
}

func (o *ExtractionOrchestrator) publish(e domain.ProgressEvent) {
	if o.events != nil {
		o.events.Publish(e)
	}
}
