package tui

import (
	"context"
	"sync"

	"github.com/custodia-labs/medrag/internal/core/domain"
	"github.com/custodia-labs/medrag/internal/core/ports/driving"
	"github.com/custodia-labs/medrag/internal/eventbus"
)

// mockRegistry is a configurable driving.DocumentRegistry backed by a real bus.
type mockRegistry struct {
	mu sync.Mutex

	bus  *eventbus.Bus
	docs []domain.Document

	listErr   error
	startErr  error
	deleteErr error
	queryFn   func(id, question string) (*domain.QueryResult, error)

	started []string
	deleted []string
}

var _ driving.DocumentRegistry = (*mockRegistry)(nil)

func newMockRegistry(docs ...domain.Document) *mockRegistry {
	return &mockRegistry{bus: eventbus.New(), docs: docs}
}

func (m *mockRegistry) Register(_ context.Context, data []byte, filename string) (*domain.Document, error) {
	return &domain.Document{ID: "new", Filename: filename, Size: int64(len(data)), Status: domain.StatusUploaded}, nil
}

func (m *mockRegistry) Ingest(_ context.Context, id string) (*domain.Document, error) {
	return &domain.Document{ID: id, Status: domain.StatusReady}, nil
}

func (m *mockRegistry) StartIngest(_ context.Context, id string) (*domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.startErr != nil {
		return nil, m.startErr
	}
	m.started = append(m.started, id)
	for i := range m.docs {
		if m.docs[i].ID == id {
			d := m.docs[i]
			d.Status = domain.StatusAnalyzing
			return &d, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockRegistry) Query(_ context.Context, id, question string) (*domain.QueryResult, error) {
	if m.queryFn != nil {
		return m.queryFn(id, question)
	}
	return &domain.QueryResult{DocumentID: id, Answer: "500 mg twice daily"}, nil
}

func (m *mockRegistry) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, id)
	return m.deleteErr
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
