package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the pipeline instruments.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Ingestions          metric.Int64Counter
	PagesExtracted      metric.Int64Counter
	ChunksIndexed       metric.Int64Counter
	Queries             metric.Int64Counter
	StageDuration       metric.Float64Histogram
	BreakerStateChanges metric.Int64Counter
	HTTPRequests        metric.Int64Counter
}

// NewMetrics creates the instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(InstrumentationName)

	ingestions, err := meter.Int64Counter(
		"medrag.ingestions.total",
		metric.WithDescription("Completed ingestions by outcome"),
	)
	if err != nil {
		return nil, err
	}

	pages, err := meter.Int64Counter(
		"medrag.pages.extracted",
		metric.WithDescription("Extraction units by outcome"),
	)
	if err != nil {
		return nil, err
	}

	chunks, err := meter.Int64Counter(
		"medrag.chunks.indexed",
		metric.WithDescription("Chunks upserted into the vector index"),
	)
	if err != nil {
		return nil, err
	}

	queries, err := meter.Int64Counter(
		"medrag.queries.total",
		metric.WithDescription("Answered queries"),
	)
	if err != nil {
		return nil, err
	}

	stage, err := meter.Float64Histogram(
		"medrag.stage.duration",
		metric.WithDescription("Pipeline stage duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	breaker, err := meter.Int64Counter(
		"medrag.circuit_breaker.state_changes",
		metric.WithDescription("Circuit breaker state changes"),
	)
	if err != nil {
		return nil, err
	}

	requests, err := meter.Int64Counter(
		"medrag.http.requests",
		metric.WithDescription("HTTP API requests by route and status class"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		Ingestions:          ingestions,
		PagesExtracted:      pages,
		ChunksIndexed:       chunks,
		Queries:             queries,
		StageDuration:       stage,
		BreakerStateChanges: breaker,
		HTTPRequests:        requests,
	}, nil
}

// RecordIngestion counts a finished ingestion.
func (m *Metrics) RecordIngestion(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.Ingestions.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// RecordPage counts one extraction unit.
func (m *Metrics) RecordPage(ctx context.Context, ok bool) {
	if m == nil {
		return
	}
	m.PagesExtracted.Add(ctx, 1, metric.WithAttributes(attribute.Bool("ok", ok)))
}

// RecordChunks counts indexed chunks.
func (m *Metrics) RecordChunks(ctx context.Context, n int) {
	if m == nil {
		return
	}
	m.ChunksIndexed.Add(ctx, int64(n))
}

// RecordQuery counts an answered query.
func (m *Metrics) RecordQuery(ctx context.Context, abstained bool) {
	if m == nil {
		return
	}
	m.Queries.Add(ctx, 1, metric.WithAttributes(attribute.Bool("abstained", abstained)))
}

// RecordStage records how long a pipeline stage took.
func (m *Metrics) RecordStage(ctx context.Context, stage string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.StageDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.Bool("error", err != nil),
	))
}

// RecordBreakerState counts a circuit breaker transition.
func (m *Metrics) RecordBreakerState(service, state string) {
	if m == nil {
		return
	}
	m.BreakerStateChanges.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("service", service),
		attribute.String("state", state),
	))
}

// RecordRequest counts an HTTP API request.
func (m *Metrics) RecordRequest(ctx context.Context, method, route string, status int) {
	if m == nil {
		return
	}
	m.HTTPRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.Int("status_class", status/100),
	))
}
