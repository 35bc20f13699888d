package services

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/medrag/internal/core/domain"
)

var (
	fakePDF = []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n%%EOF\n")
	fakePNG = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 32)...)
)

func registerPDF(t *testing.T, h *testHarness) *domain.Document {
	t.Helper()
	doc, err := h.registry.Register(context.Background(), fakePDF, "guideline.pdf")
	require.NoError(t, err)
	return doc
}

func TestRegistry_Register(t *testing.T) {
	h := newTestHarness(1)
	sub := h.registry.Subscribe(0)
	defer sub.Unsubscribe()

	doc := registerPDF(t, h)

	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, domain.StatusUploaded, doc.Status)
	assert.Equal(t, domain.ClassPDF, doc.Class)
	assert.Equal(t, "application/pdf", doc.MIMEType)
	assert.Equal(t, int64(len(fakePDF)), doc.Size)

	stored, err := h.blobs.Get(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, fakePDF, stored)

	select {
	case e := <-sub.Events():
		assert.Equal(t, domain.EventUpload, e.Kind)
		assert.Equal(t, doc.ID, e.DocumentID)
	case <-time.After(time.Second):
		t.Fatal("expected upload event")
	}
}

func TestRegistry_Register_Validation(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		filename string
	}{
		{"empty file", nil, "a.pdf"},
		{"missing filename", fakePDF, ""},
		{"unsupported extension", fakePDF, "notes.txt"},
		{"content mismatch", fakePNG, "scan.pdf"},
		{"pdf named as image", fakePDF, "scan.png"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestHarness(1)
			_, err := h.registry.Register(context.Background(), tc.data, tc.filename)
			assert.ErrorIs(t, err, domain.ErrValidation)

			docs, _ := h.docs.List(context.Background())
			assert.Empty(t, docs)
		})
	}
}

func TestRegistry_Register_TooLarge(t *testing.T) {
	h := newTestHarness(1)
	h.registry.maxFileSize = 10

	_, err := h.registry.Register(context.Background(), fakePDF, "big.pdf")
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Contains(t, err.Error(), "too large")
}

func TestRegistry_Register_Image(t *testing.T) {
	h := newTestHarness(1)
	doc, err := h.registry.Register(context.Background(), fakePNG, "scan.PNG")
	require.NoError(t, err)
	assert.Equal(t, domain.ClassImage, doc.Class)
	assert.Equal(t, "image/png", doc.MIMEType)
}

func TestRegistry_Ingest_Ready(t *testing.T) {
	h := newTestHarness(2)
	h.vision.results[1] = visionPage("Dosage", "Amoxicillin 1 g three times daily for 7 days.")
	h.vision.results[2] = visionPage("Contraindications", "Penicillin allergy is a contraindication.")
	doc := registerPDF(t, h)

	ready, err := h.registry.Ingest(context.Background(), doc.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusReady, ready.Status)
	assert.Equal(t, 2, ready.TotalChunks)
	assert.Equal(t, 2, ready.PageCount)
	assert.NotNil(t, ready.IndexedAt)
	assert.Empty(t, ready.ErrorMessage)

	count, _ := h.index.Count(context.Background(), doc.Namespace())
	assert.Equal(t, ready.TotalChunks, count)

	// Indices are contiguous from 0.
	for i, c := range h.index.chunks(doc.Namespace()) {
		assert.Equal(t, i, c.Index)
		assert.NotEmpty(t, c.ContentHash)
	}

	stored, err := h.registry.Get(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReady, stored.Status)
}

func TestRegistry_Ingest_EventsInOrder(t *testing.T) {
	h := newTestHarness(1)
	h.vision.results[1] = visionPage("Dosage", "Amoxicillin 1 g.")
	doc := registerPDF(t, h)

	sub := h.registry.Subscribe(64)
	defer sub.Unsubscribe()

	_, err := h.registry.Ingest(context.Background(), doc.ID)
	require.NoError(t, err)

	var kinds []domain.EventKind
	var lastSeq uint64
	timeout := time.After(time.Second)
	for {
		select {
		case e := <-sub.Events():
			assert.Greater(t, e.Seq, lastSeq)
			lastSeq = e.Seq
			kinds = append(kinds, e.Kind)
			if e.IsTerminal() {
				assert.Equal(t, []domain.EventKind{
					domain.EventExtractionStart,
					domain.EventExtractionProgress,
					domain.EventChunkingDone,
					domain.EventIndexingProgress,
					domain.EventReady,
				}, kinds)
				return
			}
		case <-timeout:
			t.Fatalf("timed out, got %v", kinds)
		}
	}
}

func TestRegistry_Reingest_IsIdempotent(t *testing.T) {
	h := newTestHarness(1)
	h.vision.results[1] = visionPage("Dosage", "Amoxicillin 1 g three times daily.")
	doc := registerPDF(t, h)

	first, err := h.registry.Ingest(context.Background(), doc.ID)
	require.NoError(t, err)
	firstChunks := h.index.chunks(doc.Namespace())

	second, err := h.registry.Ingest(context.Background(), doc.ID)
	require.NoError(t, err)

	assert.Equal(t, first.TotalChunks, second.TotalChunks)
	assert.Equal(t, firstChunks, h.index.chunks(doc.Namespace()))
}

func TestRegistry_Ingest_PartialPageTolerance(t *testing.T) {
	h := newTestHarness(3)
	h.vision.results[1] = visionPage("A", "Page one content about fever.")
	h.vision.errs[2] = errors.New("vision timeout")
	h.vision.results[3] = visionPage("C", "Page three content about cough.")
	doc := registerPDF(t, h)

	sub := h.registry.Subscribe(64)
	defer sub.Unsubscribe()

	ready, err := h.registry.Ingest(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReady, ready.Status)

	var pages []int
	for _, c := range h.index.chunks(doc.Namespace()) {
		pages = append(pages, c.Page)
	}
	assert.Equal(t, []int{1, 3}, pages)

	var sawFailure bool
	timeout := time.After(time.Second)
	for !sawFailure {
		select {
		case e := <-sub.Events():
			if e.Kind == domain.EventExtractionProgress && e.Level == domain.LevelWarning {
				assert.Equal(t, 2, e.Detail["page"])
				assert.Contains(t, e.Detail["error"], "vision timeout")
				sawFailure = true
			}
		case <-timeout:
			t.Fatal("expected a page 2 failure event")
		}
	}
}

func TestRegistry_Ingest_AllPagesFail(t *testing.T) {
	h := newTestHarness(2)
	h.vision.errs[1] = errors.New("boom")
	h.vision.errs[2] = errors.New("boom")
	doc := registerPDF(t, h)

	_, err := h.registry.Ingest(context.Background(), doc.ID)
	assert.ErrorIs(t, err, domain.ErrExtraction)

	stored, _ := h.registry.Get(context.Background(), doc.ID)
	assert.Equal(t, domain.StatusError, stored.Status)
	assert.NotEmpty(t, stored.ErrorMessage)

	count, _ := h.index.Count(context.Background(), doc.Namespace())
	assert.Zero(t, count)
}

func TestRegistry_Ingest_EmbeddingExhaustsRetries(t *testing.T) {
	h := newTestHarness(1)
	h.vision.results[1] = visionPage("Dosage", "Amoxicillin 1 g three times daily.")
	h.embedder.failBatch = -1
	doc := registerPDF(t, h)

	_, err := h.registry.Ingest(context.Background(), doc.ID)
	assert.ErrorIs(t, err, domain.ErrEmbedding)
	assert.Equal(t, 3, h.embedder.batchCalls())

	stored, _ := h.registry.Get(context.Background(), doc.ID)
	assert.Equal(t, domain.StatusError, stored.Status)
	assert.Zero(t, stored.TotalChunks)

	count, _ := h.index.Count(context.Background(), doc.Namespace())
	assert.Zero(t, count)

	docs, _ := h.registry.List(context.Background())
	for _, d := range docs {
		assert.NotEqual(t, domain.StatusReady, d.Status)
	}
}

func TestRegistry_Ingest_RollbackAfterPartialIndexing(t *testing.T) {
	h := newTestHarness(3)
	for p := 1; p <= 3; p++ {
		h.vision.results[p] = visionPage("S", "Distinct content for a page.")
	}
	// Batch size is 2: the first batch succeeds, every attempt of the second fails.
	h.embedder.failAfter = 1
	h.embedder.err = errors.New("quota exceeded")
	doc := registerPDF(t, h)

	_, err := h.registry.Ingest(context.Background(), doc.ID)
	assert.ErrorIs(t, err, domain.ErrEmbedding)

	count, _ := h.index.Count(context.Background(), doc.Namespace())
	assert.Zero(t, count, "partial batches must be rolled back")
	assert.Equal(t, 1, h.index.upserts)
}

func TestRegistry_Ingest_RollbackRetried(t *testing.T) {
	tests := []struct {
		name        string
		deleteErrs  []error
		wantPending bool
	}{
		{"second attempt succeeds", []error{nil, errors.New("index busy")}, false},
		{"both attempts fail", []error{nil, errors.New("index busy"), errors.New("index busy")}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestHarness(3)
			for p := 1; p <= 3; p++ {
				h.vision.results[p] = visionPage("S", "Distinct content for a page.")
			}
			h.embedder.failAfter = 1
			h.embedder.err = errors.New("quota exceeded")
			// The first call is the pre-ingestion clear.
			h.index.deleteErrs = tc.deleteErrs
			doc := registerPDF(t, h)

			_, err := h.registry.Ingest(context.Background(), doc.ID)
			assert.ErrorIs(t, err, domain.ErrEmbedding)

			stored, _ := h.registry.Get(context.Background(), doc.ID)
			assert.Equal(t, domain.StatusError, stored.Status)
			count, _ := h.index.Count(context.Background(), doc.Namespace())

			if !tc.wantPending {
				assert.Zero(t, count)
				assert.NotContains(t, stored.ErrorMessage, cleanupPending)
				return
			}

			assert.NotZero(t, count)
			assert.Contains(t, stored.ErrorMessage, cleanupPending)
			assert.Contains(t, stored.ErrorMessage, "quota exceeded")

			require.NoError(t, h.registry.Recover(context.Background()))

			count, _ = h.index.Count(context.Background(), doc.Namespace())
			assert.Zero(t, count)
			stored, _ = h.registry.Get(context.Background(), doc.ID)
			assert.Equal(t, domain.StatusError, stored.Status)
			assert.NotContains(t, stored.ErrorMessage, cleanupPending)
			assert.Contains(t, stored.ErrorMessage, "quota exceeded")
		})
	}
}

func TestRegistry_Ingest_UpsertFailure(t *testing.T) {
	h := newTestHarness(1)
	h.vision.results[1] = visionPage("Dosage", "Amoxicillin.")
	h.index.upsertErr = errors.New("index unavailable")
	doc := registerPDF(t, h)

	_, err := h.registry.Ingest(context.Background(), doc.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index unavailable")

	stored, _ := h.registry.Get(context.Background(), doc.ID)
	assert.Equal(t, domain.StatusError, stored.Status)
}

func TestRegistry_Ingest_UnknownDocument(t *testing.T) {
	h := newTestHarness(1)
	_, err := h.registry.Ingest(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.False(t, h.registry.locks.Held("missing"))
}

func TestRegistry_Ingest_ErrorCanBeRetried(t *testing.T) {
	h := newTestHarness(1)
	h.vision.errs[1] = errors.New("boom")
	doc := registerPDF(t, h)

	_, err := h.registry.Ingest(context.Background(), doc.ID)
	require.Error(t, err)

	delete(h.vision.errs, 1)
	h.vision.results[1] = visionPage("Dosage", "Amoxicillin.")

	ready, err := h.registry.Ingest(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReady, ready.Status)
	assert.Empty(t, ready.ErrorMessage)
}

func TestRegistry_StartIngest_ConflictAndNotReady(t *testing.T) {
	h := newTestHarness(1)
	h.vision.block = make(chan struct{})
	h.vision.results[1] = visionPage("Dosage", "Amoxicillin 1 g.")
	doc := registerPDF(t, h)

	started, err := h.registry.StartIngest(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAnalyzing, started.Status)

	_, err = h.registry.Ingest(context.Background(), doc.ID)
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = h.registry.StartIngest(context.Background(), doc.ID)
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = h.registry.Query(context.Background(), doc.ID, "What is the dose?")
	assert.ErrorIs(t, err, domain.ErrNotReady)

	close(h.vision.block)
	require.NoError(t, h.registry.Close())

	stored, _ := h.registry.Get(context.Background(), doc.ID)
	assert.Equal(t, domain.StatusReady, stored.Status)
}

func TestRegistry_StartIngest_SurvivesCallerCancellation(t *testing.T) {
	h := newTestHarness(1)
	h.vision.results[1] = visionPage("Dosage", "Amoxicillin 1 g.")
	doc := registerPDF(t, h)

	ctx, cancel := context.WithCancel(context.Background())
	_, err := h.registry.StartIngest(ctx, doc.ID)
	require.NoError(t, err)
	cancel()

	require.NoError(t, h.registry.Close())
	stored, _ := h.registry.Get(context.Background(), doc.ID)
	assert.Equal(t, domain.StatusReady, stored.Status)
}

func TestRegistry_Query_NotReadyStates(t *testing.T) {
	h := newTestHarness(1)
	h.vision.errs[1] = errors.New("boom")
	doc := registerPDF(t, h)

	_, err := h.registry.Query(context.Background(), doc.ID, "question")
	assert.ErrorIs(t, err, domain.ErrNotReady, "uploaded")

	_, _ = h.registry.Ingest(context.Background(), doc.ID)
	_, err = h.registry.Query(context.Background(), doc.ID, "question")
	assert.ErrorIs(t, err, domain.ErrNotReady, "error")

	_, err = h.registry.Query(context.Background(), "missing", "question")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRegistry_Query_Answer(t *testing.T) {
	h := newTestHarness(1)
	h.vision.results[1] = visionPage("Dosage", "Amoxicillin 1 g three times daily.")
	doc := registerPDF(t, h)
	_, err := h.registry.Ingest(context.Background(), doc.ID)
	require.NoError(t, err)

	result, err := h.registry.Query(context.Background(), doc.ID, "What is the amoxicillin dose?")
	require.NoError(t, err)

	assert.False(t, result.Abstained)
	assert.Equal(t, h.llm.answer, result.Answer)
	require.NotEmpty(t, result.Evidence)
	assert.Equal(t, 1, result.Evidence[0].Chunk.Page)
	assert.Equal(t, "mock-llm", result.Model)

	_, err = h.registry.Query(context.Background(), doc.ID, "   ")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestRegistry_Query_Abstains(t *testing.T) {
	h := newTestHarness(1)
	h.vision.results[1] = visionPage("Dosage", "Amoxicillin 1 g three times daily.")
	h.llm.answer = AbstentionMarker
	doc := registerPDF(t, h)
	_, err := h.registry.Ingest(context.Background(), doc.ID)
	require.NoError(t, err)

	result, err := h.registry.Query(context.Background(), doc.ID, "What is the capital of France?")
	require.NoError(t, err)

	assert.True(t, result.Abstained)
	assert.Equal(t, domain.AbstentionAnswer, result.Answer)
	assert.NotEmpty(t, result.Evidence)
}

func TestRegistry_Query_InvalidatedMidFlight(t *testing.T) {
	tests := []struct {
		name    string
		wantErr error
		act     func(t *testing.T, h *testHarness, doc *domain.Document)
	}{
		{
			name:    "re-ingestion still analyzing",
			wantErr: domain.ErrNotReady,
			act: func(t *testing.T, h *testHarness, doc *domain.Document) {
				h.vision.mu.Lock()
				h.vision.block = make(chan struct{})
				h.vision.mu.Unlock()
				started, err := h.registry.StartIngest(context.Background(), doc.ID)
				require.NoError(t, err)
				assert.Equal(t, domain.StatusAnalyzing, started.Status)
			},
		},
		{
			name:    "re-ingestion completed",
			wantErr: domain.ErrNotReady,
			act: func(t *testing.T, h *testHarness, doc *domain.Document) {
				_, err := h.registry.Ingest(context.Background(), doc.ID)
				require.NoError(t, err)
			},
		},
		{
			name:    "deleted",
			wantErr: domain.ErrNotFound,
			act: func(t *testing.T, h *testHarness, doc *domain.Document) {
				require.NoError(t, h.registry.Delete(context.Background(), doc.ID))
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestHarness(3)
			h.vision.results[1] = visionPage("Dosage", "Amoxicillin 1 g three times daily.")
			h.vision.results[2] = visionPage("Duration", "Continue amoxicillin for 7 days.")
			h.vision.results[3] = visionPage("Allergy", "Penicillin allergy is a contraindication.")
			doc := registerPDF(t, h)
			_, err := h.registry.Ingest(context.Background(), doc.ID)
			require.NoError(t, err)

			entered, release := h.embedder.hold()
			type outcome struct {
				result *domain.QueryResult
				err    error
			}
			done := make(chan outcome, 1)
			go func() {
				result, err := h.registry.Query(context.Background(), doc.ID, "What is the amoxicillin dose?")
				done <- outcome{result, err}
			}()

			select {
			case <-entered:
			case <-time.After(time.Second):
				t.Fatal("query never reached the embedder")
			}

			tc.act(t, h, doc)
			release()

			select {
			case out := <-done:
				assert.ErrorIs(t, out.err, tc.wantErr)
				assert.Nil(t, out.result)
			case <-time.After(time.Second):
				t.Fatal("query did not return")
			}

			h.vision.mu.Lock()
			if h.vision.block != nil {
				close(h.vision.block)
			}
			h.vision.mu.Unlock()
			require.NoError(t, h.registry.Close())
		})
	}
}

func TestRegistry_Query_AfterReingestionSucceeds(t *testing.T) {
	h := newTestHarness(1)
	h.vision.results[1] = visionPage("Dosage", "Amoxicillin 1 g three times daily.")
	doc := registerPDF(t, h)

	for range 2 {
		_, err := h.registry.Ingest(context.Background(), doc.ID)
		require.NoError(t, err)
	}

	result, err := h.registry.Query(context.Background(), doc.ID, "What is the amoxicillin dose?")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Evidence)
}

func TestRegistry_Delete(t *testing.T) {
	h := newTestHarness(1)
	h.vision.results[1] = visionPage("Dosage", "Amoxicillin 1 g.")
	doc := registerPDF(t, h)
	_, err := h.registry.Ingest(context.Background(), doc.ID)
	require.NoError(t, err)

	require.NoError(t, h.registry.Delete(context.Background(), doc.ID))

	hits, err := h.index.Search(context.Background(), doc.Namespace(), bagOfWords("amoxicillin"), 10)
	require.NoError(t, err)
	assert.Empty(t, hits)

	_, err = h.registry.Get(context.Background(), doc.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = h.blobs.Get(context.Background(), doc.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, h.registry.Delete(context.Background(), doc.ID), domain.ErrNotFound)
}

func TestRegistry_Delete_NamespaceFailureIsRetryable(t *testing.T) {
	h := newTestHarness(1)
	h.vision.results[1] = visionPage("Dosage", "Amoxicillin 1 g.")
	doc := registerPDF(t, h)
	_, err := h.registry.Ingest(context.Background(), doc.ID)
	require.NoError(t, err)

	h.index.mu.Lock()
	h.index.deleteErrs = []error{errors.New("index unavailable")}
	h.index.mu.Unlock()

	err = h.registry.Delete(context.Background(), doc.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index unavailable")

	// Nothing was removed, so the caller can retry.
	_, err = h.registry.Get(context.Background(), doc.ID)
	require.NoError(t, err)
	_, err = h.blobs.Get(context.Background(), doc.ID)
	require.NoError(t, err)

	require.NoError(t, h.registry.Delete(context.Background(), doc.ID))

	count, _ := h.index.Count(context.Background(), doc.Namespace())
	assert.Zero(t, count)
	_, err = h.registry.Get(context.Background(), doc.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRegistry_Delete_SupersedesIngestion(t *testing.T) {
	h := newTestHarness(1)
	h.vision.block = make(chan struct{})
	h.vision.results[1] = visionPage("Dosage", "Amoxicillin 1 g.")
	doc := registerPDF(t, h)

	sub := h.registry.Subscribe(64)
	defer sub.Unsubscribe()

	_, err := h.registry.StartIngest(context.Background(), doc.ID)
	require.NoError(t, err)

	require.NoError(t, h.registry.Delete(context.Background(), doc.ID))
	close(h.vision.block)
	require.NoError(t, h.registry.Close())

	_, err = h.registry.Get(context.Background(), doc.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	count, _ := h.index.Count(context.Background(), doc.Namespace())
	assert.Zero(t, count)
	assert.Zero(t, h.index.upserts)

	// A late ingestion attempt cannot resurrect the record.
	_, err = h.registry.Ingest(context.Background(), doc.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Drain and check no ready or error event was published after deletion.
	deadline := time.After(200 * time.Millisecond)
	for {
		select {
		case e := <-sub.Events():
			assert.NotEqual(t, domain.EventReady, e.Kind)
			assert.NotEqual(t, domain.EventError, e.Kind)
		case <-deadline:
			return
		}
	}
}

func TestRegistry_Info(t *testing.T) {
	h := newTestHarness(1)
	h.vision.results[1] = visionPage("Dosage", "Amoxicillin 1 g.")
	doc := registerPDF(t, h)
	_, err := h.registry.Ingest(context.Background(), doc.ID)
	require.NoError(t, err)

	info, err := h.registry.Info(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.Namespace(), info.Namespace)
	assert.Equal(t, info.Document.TotalChunks, info.VectorCount)

	_, err = h.registry.Info(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRegistry_Recover(t *testing.T) {
	h := newTestHarness(1)
	doc := registerPDF(t, h)
	doc.Status = domain.StatusAnalyzing
	require.NoError(t, h.docs.Save(context.Background(), doc))

	require.NoError(t, h.registry.Recover(context.Background()))

	stored, _ := h.registry.Get(context.Background(), doc.ID)
	assert.Equal(t, domain.StatusError, stored.Status)
	assert.Equal(t, "ingestion interrupted", stored.ErrorMessage)
}

func TestKeyedLock(t *testing.T) {
	l := NewKeyedLock()

	assert.True(t, l.TryAcquire("a"))
	assert.False(t, l.TryAcquire("a"))
	assert.True(t, l.TryAcquire("b"))
	assert.True(t, l.Held("a"))

	l.Release("a")
	assert.False(t, l.Held("a"))
	assert.True(t, l.TryAcquire("a"))

	l.Release("missing")
}
