package cli

import (
	"bufio"
	"context"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/medrag/internal/core/domain"
	"github.com/custodia-labs/medrag/internal/core/ports/driving"
	"github.com/custodia-labs/medrag/internal/eventbus"
)

// mockRegistry is an in-memory driving.DocumentRegistry that publishes the
// same terminal events as the real registry.
type mockRegistry struct {
	mu   sync.Mutex
	bus  *eventbus.Bus
	docs []domain.Document

	registerErr error
	ingestErr   map[string]error
	queryFn     func(id, question string) (*domain.QueryResult, error)

	deleted []string
	started []string
}

var _ driving.DocumentRegistry = (*mockRegistry)(nil)

func newMockRegistry() *mockRegistry {
	created := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	indexed := created.Add(time.Minute)
	return &mockRegistry{
		bus: eventbus.New(),
		docs: []domain.Document{
			{
				ID: "doc-1", Filename: "metformin.pdf", Size: 2048, MIMEType: "application/pdf",
				Class: domain.ClassPDF, Status: domain.StatusReady, TotalChunks: 14, PageCount: 3,
				CreatedAt: created, UpdatedAt: indexed, IndexedAt: &indexed,
			},
			{
				ID: "doc-2", Filename: "scan.png", Size: 512, MIMEType: "image/png",
				Class: domain.ClassImage, Status: domain.StatusError, ErrorMessage: "vision unavailable",
				CreatedAt: created, UpdatedAt: created,
			},
		},
		ingestErr: map[string]error{},
	}
}

func (m *mockRegistry) Register(_ context.Context, data []byte, filename string) (*domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.registerErr != nil {
		return nil, m.registerErr
	}
	doc := domain.Document{
		ID:       "new-" + filename,
		Filename: filename,
		Size:     int64(len(data)),
		Status:   domain.StatusUploaded,
	}
	m.docs = append(m.docs, doc)
	return &doc, nil
}

func (m *mockRegistry) Ingest(_ context.Context, id string) (*domain.Document, error) {
	m.mu.Lock()
	err := m.ingestErr[id]
	m.mu.Unlock()
	if err != nil {
		m.bus.Publish(domain.NewEvent(id, domain.EventError, err.Error()).WithLevel(domain.LevelError))
		return nil, err
	}
	m.bus.Publish(domain.NewEvent(id, domain.EventReady, "Ready").WithLevel(domain.LevelSuccess))
	return &domain.Document{ID: id, Status: domain.StatusReady, TotalChunks: 7, PageCount: 2}, nil
}

func (m *mockRegistry) StartIngest(_ context.Context, id string) (*domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
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
	return &domain.QueryResult{
		DocumentID: id,
		Answer:     "The maximum daily dose is 2000 mg.",
		Model:      "gpt-4o-mini",
		Evidence: []domain.Evidence{
			{Chunk: domain.Chunk{Page: 2, Section: "Dosage", Tag: domain.TagDosage, Text: "Max 2000 mg/day"}, Score: 0.87},
		},
	}, nil
}

func (m *mockRegistry) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.docs {
		if m.docs[i].ID == id {
			m.docs = append(m.docs[:i], m.docs[i+1:]...)
			m.deleted = append(m.deleted, id)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *mockRegistry) Get(_ context.Context, id string) (*domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
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
	return &domain.DocumentInfo{Document: *doc, Namespace: doc.Namespace(), VectorCount: doc.TotalChunks}, nil
}

func (m *mockRegistry) List(_ context.Context) ([]domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Document(nil), m.docs...), nil
}

func (m *mockRegistry) Subscribe(size int) driving.EventSubscription {
	return m.bus.SubscribeWithSize(size)
}

// mockSettings is an in-memory driving.SettingsService.
type mockSettings struct {
	settings     domain.AppSettings
	validateErr  error
	providersErr error
}

var _ driving.SettingsService = (*mockSettings)(nil)

func newMockSettings() *mockSettings {
	return &mockSettings{settings: domain.DefaultAppSettings()}
}

func (m *mockSettings) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettings) Save(s *domain.AppSettings) error {
	m.settings = *s
	return nil
}

func (m *mockSettings) SetEmbeddingProvider(p domain.AIProvider, model, apiKey string) error {
	m.settings.Embedding.ProviderSettings = domain.ProviderSettings{Provider: p, Model: model, APIKey: apiKey}
	return nil
}

func (m *mockSettings) SetLLMProvider(p domain.AIProvider, model, apiKey string) error {
	m.settings.LLM.ProviderSettings = domain.ProviderSettings{Provider: p, Model: model, APIKey: apiKey}
	return nil
}

func (m *mockSettings) SetVisionProvider(p domain.AIProvider, model, apiKey string) error {
	m.settings.Vision.ProviderSettings = domain.ProviderSettings{Provider: p, Model: model, APIKey: apiKey}
	return nil
}

func (m *mockSettings) Validate() error { return m.validateErr }

func (m *mockSettings) ValidateProviders() error { return m.providersErr }

// setupTestServices injects mocks and resets command flags.
// The returned cleanup restores the previous state.
func setupTestServices() (*mockRegistry, *mockSettings, func()) {
	reg := newMockRegistry()
	settings := newMockSettings()
	SetServices(&Services{Registry: reg, Settings: settings})

	resetFlags()
	return reg, settings, func() {
		SetServices(nil)
		resetFlags()
		stdin = bufio.NewReader(strings.NewReader(""))
	}
}

func resetFlags() {
	listJSON, showJSON, queryJSON = false, false, false
	analyzeAsync, ingestAsync, ingestPlain = false, false, false
}

// setStdin feeds interactive answers to the settings commands.
func setStdin(input string) {
	stdin = bufio.NewReader(strings.NewReader(input))
}
