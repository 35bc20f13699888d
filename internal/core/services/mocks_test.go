package services

import (
	"context"
	"errors"
	"hash/fnv"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/medrag/internal/core/domain"
	"github.com/custodia-labs/medrag/internal/core/ports/driven"
	"github.com/custodia-labs/medrag/internal/eventbus"
	"github.com/custodia-labs/medrag/internal/postprocessors"
)

// mockDocStore is an in-memory DocumentStore.
type mockDocStore struct {
	mu   sync.Mutex
	docs map[string]domain.Document
}

func newMockDocStore() *mockDocStore {
	return &mockDocStore{docs: make(map[string]domain.Document)}
}

func (s *mockDocStore) Save(_ context.Context, doc *domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.ID] = *doc
	return nil
}

func (s *mockDocStore) Get(_ context.Context, id string) (*domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

func (s *mockDocStore) List(_ context.Context) ([]domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Document, 0, len(s.docs))
	for _, d := range s.docs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *mockDocStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, id)
	return nil
}

// mockBlobStore is an in-memory BlobStore.
type mockBlobStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func newMockBlobStore() *mockBlobStore {
	return &mockBlobStore{blobs: make(map[string][]byte)}
}

func (s *mockBlobStore) Put(_ context.Context, key string, data []byte, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = append([]byte(nil), data...)
	return nil
}

func (s *mockBlobStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.blobs[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return data, nil
}

func (s *mockBlobStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, key)
	return nil
}

// mockVectorIndex is an in-memory VectorIndex with cosine search.
type mockVectorIndex struct {
	mu         sync.Mutex
	namespaces map[string]map[string]driven.VectorRecord
	upsertErr  error
	upserts    int
	deleteErrs []error // consumed one per DeleteNamespace call; nil entries succeed
}

func newMockVectorIndex() *mockVectorIndex {
	return &mockVectorIndex{namespaces: make(map[string]map[string]driven.VectorRecord)}
}

func (m *mockVectorIndex) Upsert(_ context.Context, namespace string, records []driven.VectorRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts++
	if m.upsertErr != nil {
		return m.upsertErr
	}
	ns, ok := m.namespaces[namespace]
	if !ok {
		ns = make(map[string]driven.VectorRecord)
		m.namespaces[namespace] = ns
	}
	for _, r := range records {
		ns[r.ID] = r
	}
	return nil
}

func (m *mockVectorIndex) Search(_ context.Context, namespace string, query []float32, k int) ([]driven.VectorHit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var hits []driven.VectorHit
	for id, r := range m.namespaces[namespace] {
		hits = append(hits, driven.VectorHit{ID: id, Chunk: r.Chunk, Similarity: cosine(query, r.Vector)})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Similarity > hits[j].Similarity })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (m *mockVectorIndex) Count(_ context.Context, namespace string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.namespaces[namespace]), nil
}

func (m *mockVectorIndex) DeleteNamespace(_ context.Context, namespace string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.deleteErrs) > 0 {
		err := m.deleteErrs[0]
		m.deleteErrs = m.deleteErrs[1:]
		if err != nil {
			return err
		}
	}
	delete(m.namespaces, namespace)
	return nil
}

func (m *mockVectorIndex) Close() error { return nil }

func (m *mockVectorIndex) chunks(namespace string) []domain.Chunk {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Chunk
	for _, r := range m.namespaces[namespace] {
		out = append(out, r.Chunk)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		if i >= len(b) {
			break
		}
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// mockEmbedder hashes words into a bag-of-words vector.
type mockEmbedder struct {
	mu         sync.Mutex
	calls      int
	failBatch  int // number of EmbedBatch calls that fail before succeeding; -1 fails forever
	failAfter  int // when positive, every call after this many fails
	shortBatch bool
	err        error

	// When gate is set, Embed signals entered and waits for gate to close.
	entered chan struct{}
	gate    chan struct{}
}

const mockDims = 64

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	entered, gate := m.entered, m.gate
	m.mu.Unlock()

	if gate != nil {
		select {
		case entered <- struct{}{}:
		default:
		}
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return bagOfWords(text), nil
}

// hold makes the next Embed calls wait until the returned release is called.
func (m *mockEmbedder) hold() (entered <-chan struct{}, release func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entered = make(chan struct{}, 1)
	m.gate = make(chan struct{})
	gate := m.gate
	return m.entered, func() {
		m.mu.Lock()
		m.entered, m.gate = nil, nil
		m.mu.Unlock()
		close(gate)
	}
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.calls++
	fail := m.failBatch < 0 || m.calls <= m.failBatch || (m.failAfter > 0 && m.calls > m.failAfter)
	m.mu.Unlock()

	if fail {
		if m.err != nil {
			return nil, m.err
		}
		return nil, errors.New("embedding capability unavailable")
	}

	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = bagOfWords(t)
	}
	if m.shortBatch && len(out) > 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int              { return mockDims }
func (m *mockEmbedder) ModelName() string            { return "mock-embed" }
func (m *mockEmbedder) Ping(_ context.Context) error { return nil }
func (m *mockEmbedder) Close() error                 { return nil }

func (m *mockEmbedder) batchCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func bagOfWords(text string) []float32 {
	v := make([]float32, mockDims)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,;:?!()")
		if w == "" {
			continue
		}
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		v[h.Sum32()%mockDims]++
	}
	return v
}

// mockLLM answers from the prompt or abstains.
type mockLLM struct {
	mu      sync.Mutex
	answer  string
	err     error
	prompts []string
	opts    []driven.GenerateOptions
}

func (m *mockLLM) Generate(_ context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, prompt)
	m.opts = append(m.opts, opts)
	if m.err != nil {
		return "", m.err
	}
	return m.answer, nil
}

func (m *mockLLM) Chat(_ context.Context, _ []driven.ChatMessage, _ driven.ChatOptions) (string, error) {
	return m.answer, m.err
}

func (m *mockLLM) ModelName() string            { return "mock-llm" }
func (m *mockLLM) Ping(_ context.Context) error { return nil }
func (m *mockLLM) Close() error                 { return nil }

// mockVision returns per-page results or errors.
type mockVision struct {
	mu      sync.Mutex
	results map[int]*domain.VisionResult
	errs    map[int]error
	block   chan struct{}
	calls   []int
}

func (m *mockVision) Extract(ctx context.Context, page driven.Page) (*domain.VisionResult, error) {
	m.mu.Lock()
	m.calls = append(m.calls, page.Number)
	block := m.block
	m.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err := m.errs[page.Number]; err != nil {
		return nil, err
	}
	if res, ok := m.results[page.Number]; ok {
		return res, nil
	}
	return &domain.VisionResult{}, nil
}

func (m *mockVision) ModelName() string            { return "mock-vision" }
func (m *mockVision) Ping(_ context.Context) error { return nil }
func (m *mockVision) Close() error                 { return nil }

// mockSplitter returns a fixed number of pages.
type mockSplitter struct {
	pages int
	err   error
}

func (s *mockSplitter) Split(_ context.Context, _ []byte) ([]driven.Page, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([]driven.Page, s.pages)
	for i := range out {
		out[i] = driven.Page{Number: i + 1, Data: []byte("%PDF-1.4"), MIMEType: "application/pdf"}
	}
	return out, nil
}

// mockTextExtractor returns fixed segments for its classes.
type mockTextExtractor struct {
	classes  []domain.Class
	segments []domain.ExtractedSegment
	err      error
}

func (e *mockTextExtractor) SupportedClasses() []domain.Class { return e.classes }

func (e *mockTextExtractor) Extract(_ context.Context, _ []byte) ([]domain.ExtractedSegment, error) {
	return e.segments, e.err
}

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.ProgressEvent
}

func (p *recordingPublisher) Publish(e domain.ProgressEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) kinds() []domain.EventKind {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.EventKind, len(p.events))
	for i, e := range p.events {
		out[i] = e.Kind
	}
	return out
}

func (p *recordingPublisher) ofKind(kind domain.EventKind) []domain.ProgressEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []domain.ProgressEvent
	for _, e := range p.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// visionPage builds a vision result holding one text section.
func visionPage(title, content string) *domain.VisionResult {
	return &domain.VisionResult{
		Text: content,
		Analysis: domain.PageAnalysis{
			PageType: "guidelines",
			Sections: []domain.PageSection{{Title: title, Type: "section", Content: content, Confidence: 0.9}},
		},
	}
}

// fastRetry keeps retry tests quick.
func fastRetry() domain.RetryPolicy {
	return domain.RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		Multiplier:  2,
		MaxDelay:    4 * time.Millisecond,
	}
}

// testHarness wires a registry over mocks.
type testHarness struct {
	docs     *mockDocStore
	blobs    *mockBlobStore
	index    *mockVectorIndex
	bus      *eventbus.Bus
	vision   *mockVision
	splitter *mockSplitter
	embedder *mockEmbedder
	llm      *mockLLM
	registry *Registry
}

func newTestHarness(pages int) *testHarness {
	h := &testHarness{
		docs:     newMockDocStore(),
		blobs:    newMockBlobStore(),
		index:    newMockVectorIndex(),
		bus:      eventbus.New(),
		vision:   &mockVision{results: map[int]*domain.VisionResult{}, errs: map[int]error{}},
		splitter: &mockSplitter{pages: pages},
		embedder: &mockEmbedder{},
		llm:      &mockLLM{answer: "Amoxicillin 1 g three times daily [1, p. 1]."},
	}

	reg := postprocessors.NewRegistry()
	postprocessors.RegisterDefaults(reg)
	pipeline, err := postprocessors.BuildPipeline(reg, domain.DefaultPipelineConfig())
	if err != nil {
		panic(err)
	}

	extractor := NewExtractionOrchestrator(h.vision, h.splitter, nil, h.bus)
	indexer := NewIndexingPipeline(h.embedder, h.bus, WithRetryPolicy(fastRetry()), WithBatchSize(2))
	retriever := NewRetriever(h.embedder, h.index, h.llm, h.bus)
	h.registry = NewRegistry(h.docs, h.blobs, h.index, h.bus, extractor, pipeline, indexer, retriever)
	return h
}

// mockPromptStore serves prompts from a map.
type mockPromptStore struct {
	prompts map[string]string
	err     error
}

func (m *mockPromptStore) Load(name string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.prompts[name], nil
}

func (m *mockPromptStore) Reload() {}

// mockConfigStore is an in-memory ConfigStore.
type mockConfigStore struct {
	data    map[string]any
	setErr  error
	saveCnt int
}

func newMockConfigStore() *mockConfigStore {
	return &mockConfigStore{data: make(map[string]any)}
}

func (m *mockConfigStore) Get(key string) (any, bool) {
	v, ok := m.data[key]
	return v, ok
}

func (m *mockConfigStore) GetString(key string) string {
	s, _ := m.data[key].(string)
	return s
}

func (m *mockConfigStore) GetInt(key string) int {
	switch v := m.data[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	default:
		return 0
	}
}

func (m *mockConfigStore) GetFloat(key string) float64 {
	switch v := m.data[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return 0
	}
}

func (m *mockConfigStore) GetBool(key string) bool {
	b, _ := m.data[key].(bool)
	return b
}

func (m *mockConfigStore) GetStringSlice(key string) []string {
	s, _ := m.data[key].([]string)
	return s
}

func (m *mockConfigStore) Set(key string, value any) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	return nil
}

func (m *mockConfigStore) Save() error {
	m.saveCnt++
	return nil
}

func (m *mockConfigStore) Load() error  { return nil }
func (m *mockConfigStore) Path() string { return "mock.toml" }

// mockAIValidator records which capabilities were validated.
type mockAIValidator struct {
	embeddingErr error
	llmErr       error
	visionErr    error
	calls        []string
}

func (m *mockAIValidator) ValidateEmbedding(_ *domain.EmbeddingSettings) error {
	m.calls = append(m.calls, "embedding")
	return m.embeddingErr
}

func (m *mockAIValidator) ValidateLLM(_ *domain.LLMSettings) error {
	m.calls = append(m.calls, "llm")
	return m.llmErr
}

func (m *mockAIValidator) ValidateVision(_ *domain.VisionSettings) error {
	m.calls = append(m.calls, "vision")
	return m.visionErr
}
