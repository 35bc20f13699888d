package watch

import (
	"context"
	"sync"

	"github.com/custodia-labs/medrag/internal/core/domain"
	"github.com/custodia-labs/medrag/internal/core/ports/driving"
	"github.com/custodia-labs/medrag/internal/eventbus"
)

// mockRegistry records the calls a watcher makes.
type mockRegistry struct {
	mu sync.Mutex

	registerErr error
	ingestErr   error

	registered []string
	ingested   []string
	started    []string
}

var _ driving.DocumentRegistry = (*mockRegistry)(nil)

func (m *mockRegistry) Register(_ context.Context, data []byte, filename string) (*domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.registerErr != nil {
		return nil, m.registerErr
	}
	m.registered = append(m.registered, filename)
	return &domain.Document{ID: "doc-" + filename, Filename: filename, Size: int64(len(data)), Status: domain.StatusUploaded}, nil
}

func (m *mockRegistry) Ingest(_ context.Context, id string) (*domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ingestErr != nil {
		return nil, m.ingestErr
	}
	m.ingested = append(m.ingested, id)
	return &domain.Document{ID: id, Status: domain.StatusReady}, nil
}

func (m *mockRegistry) StartIngest(_ context.Context, id string) (*domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = append(m.started, id)
	return &domain.Document{ID: id, Status: domain.StatusAnalyzing}, nil
}

func (m *mockRegistry) Query(_ context.Context, id, _ string) (*domain.QueryResult, error) {
	return &domain.QueryResult{DocumentID: id}, nil
}

func (m *mockRegistry) Delete(_ context.Context, _ string) error { return nil }

func (m *mockRegistry) Get(_ context.Context, _ string) (*domain.Document, error) {
	return nil, domain.ErrNotFound
}

func (m *mockRegistry) Info(_ context.Context, _ string) (*domain.DocumentInfo, error) {
	return nil, domain.ErrNotFound
}

func (m *mockRegistry) List(_ context.Context) ([]domain.Document, error) { return nil, nil }

func (m *mockRegistry) Subscribe(size int) driving.EventSubscription {
	return eventbus.New().SubscribeWithSize(size)
}

func (m *mockRegistry) registeredNames() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.registered...)
}
