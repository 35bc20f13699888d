package mcp

import (
	"context"

	"github.com/custodia-labs/medrag/internal/core/domain"
	"github.com/custodia-labs/medrag/internal/core/ports/driving"
	"github.com/custodia-labs/medrag/internal/eventbus"
)

// mockRegistry is a mock implementation of driving.DocumentRegistry.
type mockRegistry struct {
	docs     []domain.Document
	info     *domain.DocumentInfo
	result   *domain.QueryResult
	err      error
	queryErr error

	registered []string
	ingested   []string
	started    []string
	deleted    []string
}

var _ driving.DocumentRegistry = (*mockRegistry)(nil)

func (m *mockRegistry) Register(_ context.Context, _ []byte, filename string) (*domain.Document, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.registered = append(m.registered, filename)
	return &domain.Document{ID: "doc-new", Filename: filename, Status: domain.StatusUploaded}, nil
}

func (m *mockRegistry) Ingest(_ context.Context, id string) (*domain.Document, error) {
	m.ingested = append(m.ingested, id)
	return &domain.Document{ID: id, Status: domain.StatusReady, TotalChunks: 5}, nil
}

func (m *mockRegistry) StartIngest(_ context.Context, id string) (*domain.Document, error) {
	m.started = append(m.started, id)
	return &domain.Document{ID: id, Status: domain.StatusAnalyzing}, nil
}

func (m *mockRegistry) Query(_ context.Context, _, _ string) (*domain.QueryResult, error) {
	return m.result, m.queryErr
}

func (m *mockRegistry) Delete(_ context.Context, id string) error {
	if m.err != nil {
		return m.err
	}
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockRegistry) Get(_ context.Context, _ string) (*domain.Document, error) {
	return nil, domain.ErrNotFound
}

func (m *mockRegistry) Info(_ context.Context, _ string) (*domain.DocumentInfo, error) {
	if m.info == nil {
		return nil, domain.ErrNotFound
	}
	return m.info, nil
}

func (m *mockRegistry) List(_ context.Context) ([]domain.Document, error) {
	return m.docs, m.err
}

func (m *mockRegistry) Subscribe(size int) driving.EventSubscription {
	return eventbus.New().SubscribeWithSize(size)
}
