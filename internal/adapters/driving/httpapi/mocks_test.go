package httpapi

import (
	"context"
	"sync"

	"github.com/custodia-labs/medrag/internal/core/domain"
	"github.com/custodia-labs/medrag/internal/core/ports/driving"
	"github.com/custodia-labs/medrag/internal/eventbus"
)

// mockRegistry is a configurable driving.DocumentRegistry.
type mockRegistry struct {
	mu sync.Mutex

	bus *eventbus.Bus

	registerFn    func(data []byte, filename string) (*domain.Document, error)
	ingestFn      func(id string) (*domain.Document, error)
	startIngestFn func(id string) (*domain.Document, error)
	queryFn       func(id, question string) (*domain.QueryResult, error)
	deleteFn      func(id string) error
	infoFn        func(id string) (*domain.DocumentInfo, error)
	docs          []domain.Document
	listErr       error

	registered []string
	deleted    []string
}

var _ driving.DocumentRegistry = (*mockRegistry)(nil)

func newMockRegistry() *mockRegistry {
	return &mockRegistry{bus: eventbus.New()}
}

func (m *mockRegistry) Register(_ context.Context, data []byte, filename string) (*domain.Document, error) {
	m.mu.Lock()
	m.registered = append(m.registered, filename)
	m.mu.Unlock()
	if m.registerFn != nil {
		return m.registerFn(data, filename)
	}
	return &domain.Document{ID: "doc-1", Filename: filename, Size: int64(len(data)), Status: domain.StatusUploaded}, nil
}

func (m *mockRegistry) Ingest(_ context.Context, id string) (*domain.Document, error) {
	if m.ingestFn != nil {
		return m.ingestFn(id)
	}
	return &domain.Document{ID: id, Status: domain.StatusReady, TotalChunks: 3}, nil
}

func (m *mockRegistry) StartIngest(_ context.Context, id string) (*domain.Document, error) {
	if m.startIngestFn != nil {
		return m.startIngestFn(id)
	}
	return &domain.Document{ID: id, Status: domain.StatusAnalyzing}, nil
}

func (m *mockRegistry) Query(_ context.Context, id, question string) (*domain.QueryResult, error) {
	if m.queryFn != nil {
		return m.queryFn(id, question)
	}
	return &domain.QueryResult{DocumentID: id, Answer: "ok"}, nil
}

func (m *mockRegistry) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	m.deleted = append(m.deleted, id)
	m.mu.Unlock()
	if m.deleteFn != nil {
		return m.deleteFn(id)
	}
	return nil
}

func (m *mockRegistry) Get(_ context.Context, id string) (*domain.Document, error) {
	for i := range m.docs {
		if m.docs[i].ID == id {
			d := m.docs[i]
			return &d, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockRegistry) Info(ctx context.Context, id string) (*domain.DocumentInfo, error) {
	if m.infoFn != nil {
		return m.infoFn(id)
	}
	doc, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &domain.DocumentInfo{Document: *doc, Namespace: doc.Namespace()}, nil
}

func (m *mockRegistry) List(_ context.Context) ([]domain.Document, error) {
	return m.docs, m.listErr
}

func (m *mockRegistry) Subscribe(size int) driving.EventSubscription {
	return m.bus.SubscribeWithSize(size)
}
