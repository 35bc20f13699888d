package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/custodia-labs/medrag/internal/core/domain"
	"github.com/custodia-labs/medrag/internal/core/ports/driven"
	"github.com/custodia-labs/medrag/internal/core/ports/driving"
	"github.com/custodia-labs/medrag/internal/eventbus"
	"github.com/custodia-labs/medrag/internal/logger"
	"github.com/custodia-labs/medrag/internal/telemetry"
)

// Ensure Registry implements the interface.
var _ driving.DocumentRegistry = (*Registry)(nil)

// DefaultMaxFileSize is the largest accepted upload.
const DefaultMaxFileSize int64 = 50 << 20

// Registry owns document lifecycle state and coordinates ingestion.
//
// States move uploaded -> analyzing -> ready|error, and ready or error may
// return to analyzing on re-ingestion. At most one ingestion runs per
// document; a second attempt fails with domain.ErrConflict. Deletion wins
// over a running ingestion: its later writes are discarded.
type Registry struct {
	docs      driven.DocumentStore
	blobs     driven.BlobStore
	index     driven.VectorIndex
	bus       *eventbus.Bus
	extractor *ExtractionOrchestrator
	pipeline  driven.PostProcessorPipeline
	indexer   *IndexingPipeline
	retriever *Retriever
	metrics   *telemetry.Metrics

	maxFileSize int64
	now         func() time.Time

	locks *KeyedLock

	mu     sync.Mutex
	guards map[string]*writeGuard

	wg sync.WaitGroup
}

// RegistryOption configures the registry.
type RegistryOption func(*Registry)

// WithMaxFileSize sets the upload size limit in bytes.
func WithMaxFileSize(n int64) RegistryOption {
	return func(r *Registry) {
		if n > 0 {
			r.maxFileSize = n
		}
	}
}

// WithRegistryClock overrides the time source.
func WithRegistryClock(now func() time.Time) RegistryOption {
	return func(r *Registry) {
		r.now = now
	}
}

// WithRegistryMetrics records ingestion outcomes.
func WithRegistryMetrics(m *telemetry.Metrics) RegistryOption {
	return func(r *Registry) {
		r.metrics = m
	}
}

// NewRegistry creates a document registry.
func NewRegistry(
	docs driven.DocumentStore,
	blobs driven.BlobStore,
	index driven.VectorIndex,
	bus *eventbus.Bus,
	extractor *ExtractionOrchestrator,
	pipeline driven.PostProcessorPipeline,
	indexer *IndexingPipeline,
	retriever *Retriever,
	opts ...RegistryOption,
) *Registry {
	r := &Registry{
		docs:        docs,
		blobs:       blobs,
		index:       index,
		bus:         bus,
		extractor:   extractor,
		pipeline:    pipeline,
		indexer:     indexer,
		retriever:   retriever,
		maxFileSize: DefaultMaxFileSize,
		now:         time.Now,
		locks:       NewKeyedLock(),
		guards:      make(map[string]*writeGuard),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Recover marks documents left in analyzing by a previous process as failed
// and clears namespaces whose rollback did not complete.
// Call once at startup before serving requests.
func (r *Registry) Recover(ctx context.Context) error {
	docs, err := r.docs.List(ctx)
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}
	for i := range docs {
		doc := &docs[i]
		if cause, _, pending := strings.Cut(doc.ErrorMessage, " ("+cleanupPending); doc.Status == domain.StatusError && pending {
			if err := r.index.DeleteNamespace(ctx, doc.Namespace()); err != nil {
				logger.Warn("Namespace of %s still not cleared: %v", doc.ID, err)
				continue
			}
			doc.ErrorMessage = cause
			doc.UpdatedAt = r.now()
			if err := r.docs.Save(ctx, doc); err != nil {
				return fmt.Errorf("save %s: %w", doc.ID, err)
			}
			continue
		}
		if doc.Status != domain.StatusAnalyzing {
			continue
		}
		logger.Warn("Recovering interrupted ingestion of %s", doc.ID)
		if err := r.index.DeleteNamespace(ctx, doc.Namespace()); err != nil {
			return fmt.Errorf("clear namespace %s: %w", doc.Namespace(), err)
		}
		doc.Status = domain.StatusError
		doc.ErrorMessage = "ingestion interrupted"
		doc.TotalChunks = 0
		doc.UpdatedAt = r.now()
		if err := r.docs.Save(ctx, doc); err != nil {
			return fmt.Errorf("save %s: %w", doc.ID, err)
		}
	}
	return nil
}

// Register validates an upload and stores it in the uploaded state.
func (r *Registry) Register(ctx context.Context, data []byte, filename string) (*domain.Document, error) {
	filename = filepath.Base(strings.TrimSpace(filename))
	if filename == "" || filename == "." || filename == string(filepath.Separator) {
		return nil, fmt.Errorf("%w: filename is required", domain.ErrValidation)
	}

	class, mimeType, err := r.validateUpload(data, filename)
	if err != nil {
		return nil, err
	}

	now := r.now()
	doc := &domain.Document{
		ID:        uuid.NewString(),
		Filename:  filename,
		Size:      int64(len(data)),
		MIMEType:  mimeType,
		Class:     class,
		Status:    domain.StatusUploaded,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := r.blobs.Put(ctx, doc.ID, data, mimeType); err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}
	if err := r.docs.Save(ctx, doc); err != nil {
		_ = r.blobs.Delete(context.WithoutCancel(ctx), doc.ID)
		return nil, fmt.Errorf("save document: %w", err)
	}

	logger.Info("Registered %s as %s (%s, %d bytes)", filename, doc.ID, class, doc.Size)
	r.publish(domain.NewEvent(doc.ID, domain.EventUpload,
		fmt.Sprintf("Uploaded %s", filename)).
		WithLevel(domain.LevelSuccess).
		WithDetail(map[string]any{
			"filename": filename,
			"size":     doc.Size,
			"class":    string(class),
		}))

	return doc, nil
}

// validateUpload checks size, extension and sniffed content agree.
func (r *Registry) validateUpload(data []byte, filename string) (domain.Class, string, error) {
	if len(data) == 0 {
		return "", "", fmt.Errorf("%w: file is empty", domain.ErrValidation)
	}
	if int64(len(data)) > r.maxFileSize {
		return "", "", fmt.Errorf("%w: file is too large (%d bytes, maximum %d)",
			domain.ErrValidation, len(data), r.maxFileSize)
	}

	class, ok := domain.ClassForExtension(filename)
	if !ok {
		return "", "", fmt.Errorf("%w: unsupported file type %q (allowed: pdf, docx, xlsx, jpg, jpeg, png)",
			domain.ErrValidation, filepath.Ext(filename))
	}

	detected := mimetype.Detect(data)
	if !contentMatchesClass(detected, class) {
		return "", "", fmt.Errorf("%w: content of %s does not match its extension (detected %s)",
			domain.ErrValidation, filename, detected.String())
	}

	return class, mimeForClass(detected, class), nil
}

// contentMatchesClass accepts a sniffed type for a class.
// Office files are zip containers; a plain zip is accepted and left to the extractor.
func contentMatchesClass(detected *mimetype.MIME, class domain.Class) bool {
	switch class {
	case domain.ClassPDF:
		return detected.Is("application/pdf")
	case domain.ClassImage:
		return detected.Is("image/png") || detected.Is("image/jpeg")
	case domain.ClassDOCX:
		return detected.Is(mimeDOCX) || detected.Is("application/zip")
	case domain.ClassXLSX:
		return detected.Is(mimeXLSX) || detected.Is("application/zip")
	default:
		return false
	}
}

const (
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

func mimeForClass(detected *mimetype.MIME, class domain.Class) string {
	switch class {
	case domain.ClassDOCX:
		return mimeDOCX
	case domain.ClassXLSX:
		return mimeXLSX
	default:
		return detected.String()
	}
}

// Ingest runs the full pipeline and returns the final document.
func (r *Registry) Ingest(ctx context.Context, documentID string) (*domain.Document, error) {
	doc, guard, err := r.beginIngest(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return r.runIngest(ctx, doc, guard)
}

// StartIngest moves the document to analyzing and finishes in the background.
// Conflicts and unknown IDs are reported synchronously.
func (r *Registry) StartIngest(ctx context.Context, documentID string) (*domain.Document, error) {
	doc, guard, err := r.beginIngest(ctx, documentID)
	if err != nil {
		return nil, err
	}

	snapshot := *doc
	bg := context.WithoutCancel(ctx)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if _, err := r.runIngest(bg, doc, guard); err != nil && !errors.Is(err, domain.ErrSuperseded) {
			logger.Warn("Ingestion of %s failed: %v", documentID, err)
		}
	}()

	return &snapshot, nil
}

// beginIngest takes the document lock and records the analyzing transition.
// On success the caller owns the lock and must pass it to runIngest.
func (r *Registry) beginIngest(ctx context.Context, documentID string) (*domain.Document, *writeGuard, error) {
	if !r.locks.TryAcquire(documentID) {
		return nil, nil, fmt.Errorf("%w: document %s is already being ingested", domain.ErrConflict, documentID)
	}

	doc, err := r.docs.Get(ctx, documentID)
	if err != nil {
		r.locks.Release(documentID)
		return nil, nil, err
	}
	if !doc.Status.CanIngest() {
		r.locks.Release(documentID)
		return nil, nil, fmt.Errorf("%w: document %s is %s", domain.ErrConflict, documentID, doc.Status)
	}

	guard := r.guardFor(documentID)
	guard.generation.Add(1)
	doc.Status = domain.StatusAnalyzing
	doc.ErrorMessage = ""
	doc.TotalChunks = 0
	doc.IndexedAt = nil
	doc.UpdatedAt = r.now()

	if err := guard.do(func() error { return r.docs.Save(ctx, doc) }); err != nil {
		r.locks.Release(documentID)
		if errors.Is(err, domain.ErrSuperseded) {
			return nil, nil, fmt.Errorf("%w: document %s", domain.ErrNotFound, documentID)
		}
		return nil, nil, fmt.Errorf("save document: %w", err)
	}

	logger.Info("Ingesting %s (%s)", doc.ID, doc.Filename)
	return doc, guard, nil
}

// runIngest performs extraction, chunking and indexing, then records the outcome.
// It releases the document lock.
func (r *Registry) runIngest(ctx context.Context, doc *domain.Document, guard *writeGuard) (*domain.Document, error) {
	defer r.locks.Release(doc.ID)

	sink := &guardedIndex{VectorIndex: r.index, guard: guard}

	// 1. CLEAR NAMESPACE
	if err := sink.DeleteNamespace(ctx, doc.Namespace()); err != nil {
		return r.fail(ctx, doc, guard, fmt.Errorf("clear namespace: %w", err))
	}

	// 2. LOAD UPLOAD
	data, err := r.blobs.Get(ctx, doc.ID)
	if err != nil {
		return r.fail(ctx, doc, guard, fmt.Errorf("%w: load upload: %w", domain.ErrExtraction, err))
	}

	// 3. EXTRACT
	extracted, err := r.extractor.Extract(ctx, doc, data)
	if err != nil {
		return r.fail(ctx, doc, guard, err)
	}

	// 4. CHUNK
	chunks, err := r.pipeline.Process(ctx, doc.ID, extracted.Segments)
	if err != nil {
		if !errors.Is(err, domain.ErrChunking) {
			err = fmt.Errorf("%w: %w", domain.ErrChunking, err)
		}
		return r.fail(ctx, doc, guard, err)
	}
	r.publish(domain.NewEvent(doc.ID, domain.EventChunkingDone,
		fmt.Sprintf("Created %d chunks", len(chunks))).
		WithDetail(map[string]any{
			"chunks":   len(chunks),
			"segments": len(extracted.Segments),
			"pages":    extracted.Pages,
		}))

	// 5. INDEX
	indexed, err := r.indexer.Index(ctx, sink, doc.ID, chunks)
	if err != nil {
		return r.fail(ctx, doc, guard, err)
	}

	// 6. READY
	now := r.now()
	doc.Status = domain.StatusReady
	doc.TotalChunks = indexed
	doc.PageCount = extracted.Pages
	doc.IndexedAt = &now
	doc.UpdatedAt = now
	if err := guard.do(func() error { return r.docs.Save(ctx, doc) }); err != nil {
		return r.fail(ctx, doc, guard, fmt.Errorf("save document: %w", err))
	}

	r.metrics.RecordIngestion(ctx, string(domain.StatusReady))
	logger.Info("Document %s ready with %d chunks", doc.ID, indexed)

	detail := map[string]any{
		"total_chunks": indexed,
		"pages":        extracted.Pages,
	}
	if len(extracted.FailedPages) > 0 {
		detail["failed_pages"] = extracted.FailedPages
	}
	r.publish(domain.NewEvent(doc.ID, domain.EventReady,
		fmt.Sprintf("Document ready: %d chunks indexed", indexed)).
		WithLevel(domain.LevelSuccess).
		WithDetail(detail))

	out := *doc
	return &out, nil
}

// fail rolls back the namespace and records the error state.
// A deleted document is left alone and domain.ErrSuperseded is returned.
func (r *Registry) fail(ctx context.Context, doc *domain.Document, guard *writeGuard, cause error) (*domain.Document, error) {
	if errors.Is(cause, domain.ErrSuperseded) || guard.tombstoned() {
		logger.Debug("Ingestion of %s superseded by deletion", doc.ID)
		return nil, domain.ErrSuperseded
	}

	cleanup := context.WithoutCancel(ctx)
	message := cause.Error()
	if err := r.rollback(cleanup, doc.Namespace()); err != nil {
		logger.Error("Rollback of %s failed: %v", doc.Namespace(), err)
		message = fmt.Sprintf("%s (%s: %v)", message, cleanupPending, err)
	}

	doc.Status = domain.StatusError
	doc.ErrorMessage = message
	doc.TotalChunks = 0
	doc.IndexedAt = nil
	doc.UpdatedAt = r.now()
	if err := guard.do(func() error { return r.docs.Save(cleanup, doc) }); err != nil {
		if errors.Is(err, domain.ErrSuperseded) {
			return nil, domain.ErrSuperseded
		}
		logger.Error("Saving error state of %s failed: %v", doc.ID, err)
	}

	r.metrics.RecordIngestion(cleanup, string(domain.StatusError))
	logger.Warn("Ingestion of %s failed: %v", doc.ID, cause)
	r.publish(domain.NewEvent(doc.ID, domain.EventError, cause.Error()).
		WithLevel(domain.LevelError).
		WithDetail(map[string]any{"stage": stageOf(cause)}))

	return nil, cause
}

// cleanupPending marks an error message whose namespace still holds vectors.
const cleanupPending = "namespace cleanup pending"

// rollback clears a failed ingestion's namespace, retrying once.
func (r *Registry) rollback(ctx context.Context, namespace string) error {
	err := r.index.DeleteNamespace(ctx, namespace)
	if err == nil {
		return nil
	}
	logger.Warn("Rollback of %s failed, retrying: %v", namespace, err)
	return r.index.DeleteNamespace(ctx, namespace)
}

// stageOf names the pipeline stage an error came from.
func stageOf(err error) string {
	switch {
	case errors.Is(err, domain.ErrExtraction):
		return "extraction"
	case errors.Is(err, domain.ErrChunking):
		return "chunking"
	case errors.Is(err, domain.ErrEmbedding):
		return "embedding"
	default:
		return "indexing"
	}
}

// Query answers a question from a ready document.
// An ingestion or deletion that starts while the answer is being built
// invalidates it, so callers never see results from a half-rebuilt namespace.
func (r *Registry) Query(ctx context.Context, documentID, question string) (*domain.QueryResult, error) {
	// Read before the status so a concurrent beginIngest is always noticed.
	generation := r.generationOf(documentID)

	doc, err := r.docs.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.Status != domain.StatusReady {
		return nil, fmt.Errorf("%w: document %s is %s", domain.ErrNotReady, documentID, doc.Status)
	}
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("%w: question must not be empty", domain.ErrValidation)
	}

	result, err := r.retriever.Answer(ctx, documentID, question)

	if r.deleted(documentID) {
		return nil, fmt.Errorf("%w: document %s was deleted", domain.ErrNotFound, documentID)
	}
	if r.generationOf(documentID) != generation {
		return nil, fmt.Errorf("%w: document %s is being re-ingested", domain.ErrNotReady, documentID)
	}
	return result, err
}

// Delete removes the document everywhere. Any running ingestion is superseded.
func (r *Registry) Delete(ctx context.Context, documentID string) error {
	doc, err := r.docs.Get(ctx, documentID)
	if err != nil {
		return err
	}

	// Waits for in-flight guarded writes, then blocks all later ones.
	r.guardFor(documentID).tombstone()

	// The record goes last: while it exists a failed delete can be retried.
	if err := r.index.DeleteNamespace(ctx, doc.Namespace()); err != nil {
		return fmt.Errorf("delete namespace: %w", err)
	}
	if err := r.blobs.Delete(ctx, documentID); err != nil {
		return fmt.Errorf("delete upload: %w", err)
	}
	if err := r.docs.Delete(ctx, documentID); err != nil {
		return fmt.Errorf("delete record: %w", err)
	}

	logger.Info("Deleted %s (%s)", documentID, doc.Filename)
	r.publish(domain.NewEvent(documentID, domain.EventDeleted,
		fmt.Sprintf("Deleted %s", doc.Filename)).
		WithLevel(domain.LevelSuccess))
	return nil
}

// Get retrieves a document by ID.
func (r *Registry) Get(ctx context.Context, documentID string) (*domain.Document, error) {
	return r.docs.Get(ctx, documentID)
}

// Info returns the document with its live namespace size.
func (r *Registry) Info(ctx context.Context, documentID string) (*domain.DocumentInfo, error) {
	doc, err := r.docs.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}
	count, err := r.index.Count(ctx, doc.Namespace())
	if err != nil {
		return nil, fmt.Errorf("count namespace: %w", err)
	}
	return &domain.DocumentInfo{
		Document:    *doc,
		Namespace:   doc.Namespace(),
		VectorCount: count,
	}, nil
}

// List returns all documents.
func (r *Registry) List(ctx context.Context) ([]domain.Document, error) {
	return r.docs.List(ctx)
}

// Subscribe registers an observer of progress events.
func (r *Registry) Subscribe(size int) driving.EventSubscription {
	return r.bus.SubscribeWithSize(size)
}

// Close waits for background ingestions to finish.
func (r *Registry) Close() error {
	r.wg.Wait()
	return nil
}

// guardFor returns the document's write guard, creating it on first use.
// Guards are kept after deletion so the tombstone outlives the record.
func (r *Registry) guardFor(documentID string) *writeGuard {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.guards[documentID]
	if !ok {
		g = &writeGuard{}
		r.guards[documentID] = g
	}
	return g
}

// generationOf returns how many ingestions of the document have started.
func (r *Registry) generationOf(documentID string) uint64 {
	r.mu.Lock()
	g, ok := r.guards[documentID]
	r.mu.Unlock()
	if !ok {
		return 0
	}
	return g.generation.Load()
}

func (r *Registry) deleted(documentID string) bool {
	r.mu.Lock()
	g, ok := r.guards[documentID]
	r.mu.Unlock()
	return ok && g.tombstoned()
}

func (r *Registry) publish(e domain.ProgressEvent) {
	if r.bus != nil {
		r.bus.Publish(e)
	}
}
