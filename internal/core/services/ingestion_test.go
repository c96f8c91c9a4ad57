package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docrag/internal/adapters/driven/executor"
	"github.com/custodia-labs/docrag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
	"github.com/custodia-labs/docrag/internal/extractors"
	"github.com/custodia-labs/docrag/internal/postprocessors"
)

const sampleText = "Hello there friend. Another sentence here."

type ingestionFixture struct {
	docs  *memory.DocumentStore
	files *memory.FileStore
	svc   *IngestionService
}

func newIngestionFixture(
	t *testing.T, embedder driven.EmbeddingService, exec driven.TaskExecutor, opts ...IngestionOption,
) *ingestionFixture {
	t.Helper()
	pipeline, err := postprocessors.NewDefault(domain.ChunkingSettings{Size: 20, Overlap: 5})
	require.NoError(t, err)
	if exec == nil {
		exec = executor.NewInline()
	}

	f := &ingestionFixture{
		docs:  memory.NewDocumentStore(),
		files: memory.NewFileStore(),
	}
	opts = append([]IngestionOption{WithContentTypeDetector(extractors.DetectContentType)}, opts...)
	f.svc = NewIngestionService(f.docs, f.docs, f.files, extractors.NewDefaultRegistry(),
		pipeline, embedder, exec, opts...)
	return f
}

// upload stores a document and waits for processing to finish.
func (f *ingestionFixture) upload(t *testing.T, filename, contentType, body string) (*domain.Document, error) {
	t.Helper()
	res, err := f.svc.Upload(context.Background(), domain.UploadRequest{
		OwnerID:     "alice",
		Filename:    filename,
		ContentType: contentType,
		Content:     []byte(body),
	})
	require.NoError(t, err)

	var procErr error
	select {
	case procErr = <-res.Done:
	case <-time.After(5 * time.Second):
		t.Fatal("processing did not finish")
	}

	doc, err := f.docs.GetDocument(context.Background(), res.Document.ID)
	require.NoError(t, err)
	return doc, procErr
}

// createPending inserts a pending document directly.
func (f *ingestionFixture) createPending(t *testing.T, body string) *domain.Document {
	t.Helper()
	ctx := context.Background()
	location, err := f.files.Save(ctx, "alice", "notes.txt", []byte(body))
	require.NoError(t, err)
	doc := &domain.Document{
		ID:               "doc-pending",
		OwnerID:          "alice",
		Filename:         "stored.txt",
		OriginalFilename: "notes.txt",
		Location:         location,
		Size:             int64(len(body)),
		ContentType:      domain.MIMETypePlainText,
		Status:           domain.StatusPending,
		UploadedAt:       time.Now(),
	}
	require.NoError(t, f.docs.CreateDocument(ctx, doc))
	return doc
}

// blockingEmbedder parks EmbedDocuments until released.
type blockingEmbedder struct {
	*mockEmbeddingService
	entered chan struct{}
	release chan struct{}
}

func (b *blockingEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	close(b.entered)
	<-b.release
	return b.mockEmbeddingService.EmbedDocuments(ctx, texts)
}

// ==================== Upload + Process Tests ====================

func TestIngestionService_UploadProcessesDocument(t *testing.T) {
	embedder := newMockEmbeddingService()
	f := newIngestionFixture(t, embedder, nil)

	doc, err := f.upload(t, "notes.txt", "text/plain; charset=utf-8", sampleText)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusCompleted, doc.Status)
	assert.Empty(t, doc.Error)
	require.NotNil(t, doc.ProcessedAt)
	assert.Equal(t, "notes.txt", doc.OriginalFilename)
	assert.Equal(t, domain.MIMETypePlainText, doc.ContentType)
	assert.Equal(t, int64(len(sampleText)), doc.Size)

	chunks, err := f.docs.GetChunks(context.Background(), doc.ID)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, "Hello there friend.", chunks[0].Text)
	assert.Equal(t, []int{0, 14, 29}, []int{chunks[0].CharStart, chunks[1].CharStart, chunks[2].CharStart})
	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
		assert.NotNil(t, c.Embedding)
		assert.Equal(t, embedder.vectorFor(c.Text), c.Embedding)
	}

	assert.Equal(t, 1, embedder.batchCalls, "one batch call per document")
}

func TestIngestionService_SmallDocumentSingleChunk(t *testing.T) {
	f := newIngestionFixture(t, newMockEmbeddingService(), nil)

	doc, err := f.upload(t, "short.txt", domain.MIMETypePlainText, "  Short note.  ")
	require.NoError(t, err)

	chunks, err := f.docs.GetChunks(context.Background(), doc.ID)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "Short note.", chunks[0].Text)
	assert.Equal(t, 0, chunks[0].CharStart)
	assert.Equal(t, 11, chunks[0].CharEnd)
	assert.Equal(t, 2, chunks[0].TokenCount)
}

func TestIngestionService_BlankDocumentCompletesWithoutProvider(t *testing.T) {
	f := newIngestionFixture(t, nil, nil)

	doc, err := f.upload(t, "blank.txt", domain.MIMETypePlainText, " \n\t \u200b\n ")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, doc.Status)

	chunks, err := f.docs.GetChunks(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestIngestionService_ProcessingFailures(t *testing.T) {
	tests := []struct {
		name        string
		embedder    func() driven.EmbeddingService
		contentType string
		body        string
		wantErr     error
	}{
		{
			name:        "corrupt pdf",
			embedder:    func() driven.EmbeddingService { return newMockEmbeddingService() },
			contentType: domain.MIMETypePDF,
			body:        "this is not a pdf",
			wantErr:     domain.ErrExtraction,
		},
		{
			name: "provider error",
			embedder: func() driven.EmbeddingService {
				m := newMockEmbeddingService()
				m.err = errors.New("503 service unavailable")
				return m
			},
			contentType: domain.MIMETypePlainText,
			body:        sampleText,
			wantErr:     domain.ErrEmbeddingProvider,
		},
		{
			name: "vector count mismatch",
			embedder: func() driven.EmbeddingService {
				m := newMockEmbeddingService()
				m.batchSize = 1
				return m
			},
			contentType: domain.MIMETypePlainText,
			body:        sampleText,
			wantErr:     domain.ErrEmbeddingProvider,
		},
		{
			name:        "no embedding service",
			embedder:    func() driven.EmbeddingService { return nil },
			contentType: domain.MIMETypePlainText,
			body:        sampleText,
			wantErr:     domain.ErrEmbeddingUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newIngestionFixture(t, tt.embedder(), nil)

			doc, err := f.upload(t, "file", tt.contentType, tt.body)
			assert.ErrorIs(t, err, tt.wantErr)

			assert.Equal(t, domain.StatusFailed, doc.Status)
			assert.NotEmpty(t, doc.Error)
			assert.Nil(t, doc.ProcessedAt)

			chunks, err := f.docs.GetChunks(context.Background(), doc.ID)
			require.NoError(t, err)
			assert.Empty(t, chunks, "no partial chunks survive")
		})
	}
}

func TestIngestionService_FailureRecordedAfterCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	embedder := newMockEmbeddingService()
	embedder.err = context.Canceled
	f := newIngestionFixture(t, embedder, nil)
	doc := f.createPending(t, sampleText)

	cancel()
	err := f.svc.Process(ctx, doc.ID)
	assert.ErrorIs(t, err, context.Canceled)

	got, err := f.docs.GetDocument(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, got.Status)
}

func TestIngestionService_WithPoolExecutor(t *testing.T) {
	pool := executor.NewPool(2, 4)
	defer pool.Close(context.Background())
	f := newIngestionFixture(t, newMockEmbeddingService(), pool)

	doc, err := f.upload(t, "notes.md", "", sampleText)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, doc.Status)
	assert.Equal(t, domain.MIMETypeMarkdown, doc.ContentType)
}

// ==================== State Machine Tests ====================

func TestIngestionService_Process_RejectsNonPending(t *testing.T) {
	for _, status := range []domain.DocumentStatus{domain.StatusCompleted, domain.StatusFailed} {
		t.Run(string(status), func(t *testing.T) {
			embedder := newMockEmbeddingService()
			f := newIngestionFixture(t, embedder, nil)
			doc := f.createPending(t, sampleText)
			doc.Status = status
			doc.Error = "earlier"
			require.NoError(t, f.docs.UpdateDocument(context.Background(), doc))

			err := f.svc.Process(context.Background(), doc.ID)
			assert.ErrorIs(t, err, domain.ErrInvalidTransition)

			got, err := f.docs.GetDocument(context.Background(), doc.ID)
			require.NoError(t, err)
			assert.Equal(t, status, got.Status)
			assert.Equal(t, "earlier", got.Error)
			assert.Zero(t, embedder.batchCalls)
		})
	}
}

func TestIngestionService_Process_PersistedProcessing(t *testing.T) {
	f := newIngestionFixture(t, newMockEmbeddingService(), nil)
	doc := f.createPending(t, sampleText)
	doc.Status = domain.StatusProcessing
	require.NoError(t, f.docs.UpdateDocument(context.Background(), doc))

	err := f.svc.Process(context.Background(), doc.ID)
	assert.ErrorIs(t, err, domain.ErrIngestionInProgress)

	got, err := f.docs.GetDocument(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessing, got.Status)
}

func TestIngestionService_Process_ConcurrentTriggers(t *testing.T) {
	embedder := &blockingEmbedder{
		mockEmbeddingService: newMockEmbeddingService(),
		entered:              make(chan struct{}),
		release:              make(chan struct{}),
	}
	f := newIngestionFixture(t, embedder, nil)
	doc := f.createPending(t, sampleText)

	var wg sync.WaitGroup
	var firstErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		firstErr = f.svc.Process(context.Background(), doc.ID)
	}()

	<-embedder.entered
	err := f.svc.Process(context.Background(), doc.ID)
	assert.ErrorIs(t, err, domain.ErrIngestionInProgress)

	close(embedder.release)
	wg.Wait()
	require.NoError(t, firstErr)

	got, err := f.docs.GetDocument(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)
	assert.Equal(t, 1, embedder.batchCalls)

	// Once completed, another trigger is an invalid transition.
	assert.ErrorIs(t, f.svc.Process(context.Background(), doc.ID), domain.ErrInvalidTransition)
}

func TestIngestionService_Process_NotFound(t *testing.T) {
	f := newIngestionFixture(t, newMockEmbeddingService(), nil)
	assert.ErrorIs(t, f.svc.Process(context.Background(), "missing"), domain.ErrNotFound)
}

// ==================== Upload Validation Tests ====================

func TestIngestionService_Upload_Validation(t *testing.T) {
	tests := []struct {
		name    string
		req     domain.UploadRequest
		wantErr error
	}{
		{
			name:    "missing owner",
			req:     domain.UploadRequest{Filename: "a.txt", Content: []byte("x")},
			wantErr: domain.ErrInvalidInput,
		},
		{
			name:    "empty content",
			req:     domain.UploadRequest{OwnerID: "alice", Filename: "a.txt"},
			wantErr: domain.ErrInvalidInput,
		},
		{
			name:    "too large",
			req:     domain.UploadRequest{OwnerID: "alice", Filename: "a.txt", Content: make([]byte, 65)},
			wantErr: domain.ErrTooLarge,
		},
		{
			name: "unsupported declared type",
			req: domain.UploadRequest{
				OwnerID: "alice", Filename: "a.png", ContentType: "image/png", Content: []byte("x"),
			},
			wantErr: domain.ErrUnsupportedType,
		},
		{
			name: "undetectable binary",
			req: domain.UploadRequest{
				OwnerID: "alice", Filename: "blob", Content: []byte{0x89, 'P', 'N', 'G', 0, 0, 0, 0},
			},
			wantErr: domain.ErrUnsupportedType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newIngestionFixture(t, newMockEmbeddingService(), nil, WithMaxUploadBytes(64))

			_, err := f.svc.Upload(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Zero(t, f.files.Len(), "nothing stored")

			docs, err := f.docs.ListDocuments(context.Background(), "alice")
			require.NoError(t, err)
			assert.Empty(t, docs)
		})
	}
}

func TestIngestionService_Upload_OctetStreamIsDetected(t *testing.T) {
	f := newIngestionFixture(t, newMockEmbeddingService(), nil)

	doc, err := f.upload(t, "../../etc/readme.txt", "application/octet-stream", sampleText)
	require.NoError(t, err)
	assert.Equal(t, domain.MIMETypePlainText, doc.ContentType)
	assert.Equal(t, "readme.txt", doc.OriginalFilename)
	assert.NotEqual(t, doc.OriginalFilename, doc.Filename)
}

type failingDocStore struct {
	*memory.DocumentStore
}

func (failingDocStore) CreateDocument(context.Context, *domain.Document) error {
	return domain.ErrPersistence
}

func TestIngestionService_Upload_CreateFailureRemovesFile(t *testing.T) {
	pipeline, err := postprocessors.NewDefault(domain.DefaultAppSettings().Chunking)
	require.NoError(t, err)
	docs := failingDocStore{memory.NewDocumentStore()}
	files := memory.NewFileStore()
	svc := NewIngestionService(docs, docs, files, extractors.NewDefaultRegistry(),
		pipeline, newMockEmbeddingService(), executor.NewInline())

	_, err = svc.Upload(context.Background(), domain.UploadRequest{
		OwnerID: "alice", Filename: "a.txt", ContentType: domain.MIMETypePlainText, Content: []byte("hi"),
	})
	assert.ErrorIs(t, err, domain.ErrPersistence)
	assert.Zero(t, files.Len())
}

// completionFailingStore accepts every status update except completed.
type completionFailingStore struct {
	*memory.DocumentStore
}

func (s completionFailingStore) UpdateDocument(ctx context.Context, doc *domain.Document) error {
	if doc.Status == domain.StatusCompleted {
		return domain.ErrPersistence
	}
	return s.DocumentStore.UpdateDocument(ctx, doc)
}

func TestIngestionService_Process_CompletionFailureRemovesChunks(t *testing.T) {
	pipeline, err := postprocessors.NewDefault(domain.ChunkingSettings{Size: 20, Overlap: 5})
	require.NoError(t, err)
	docs := completionFailingStore{memory.NewDocumentStore()}
	f := &ingestionFixture{docs: docs.DocumentStore, files: memory.NewFileStore()}
	f.svc = NewIngestionService(docs, docs, f.files, extractors.NewDefaultRegistry(),
		pipeline, newMockEmbeddingService(), executor.NewInline())
	pending := f.createPending(t, sampleText)

	err = f.svc.Process(context.Background(), pending.ID)
	require.ErrorIs(t, err, domain.ErrPersistence)

	doc, err := f.docs.GetDocument(context.Background(), pending.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, doc.Status)
	assert.Contains(t, doc.Error, "mark completed")
	assert.Nil(t, doc.ProcessedAt)

	chunks, err := f.docs.GetChunks(context.Background(), pending.ID)
	require.NoError(t, err)
	assert.Empty(t, chunks)

	searchable, err := f.docs.LoadChunksForOwner(context.Background(), "alice", nil)
	require.NoError(t, err)
	assert.Empty(t, searchable)
}

func TestIngestionService_UploadHTML(t *testing.T) {
	f := newIngestionFixture(t, newMockEmbeddingService(), nil)

	page := `<html><head><title>Notes</title></head><body>` +
		`<p class="intro">Hello there friend.</p><div id="main">Another sentence here.</div></body></html>`
	doc, err := f.upload(t, "notes.html", "", page)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, doc.Status)
	assert.Equal(t, domain.MIMETypeHTML, doc.ContentType)

	chunks, err := f.docs.GetChunks(context.Background(), doc.ID)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	var texts []string
	for _, c := range chunks {
		texts = append(texts, c.Text)
	}
	joined := strings.Join(texts, " ")
	assert.Contains(t, joined, "friend.")
	assert.Contains(t, joined, "Another sentence")
	assert.NotContains(t, joined, "<")
}

func TestIngestionService_Upload_ExecutorClosed(t *testing.T) {
	exec := executor.NewInline()
	require.NoError(t, exec.Close(context.Background()))
	f := newIngestionFixture(t, newMockEmbeddingService(), exec)

	_, err := f.svc.Upload(context.Background(), domain.UploadRequest{
		OwnerID: "alice", Filename: "a.txt", ContentType: domain.MIMETypePlainText, Content: []byte("hi"),
	})
	assert.ErrorIs(t, err, executor.ErrClosed)

	docs, err := f.docs.ListDocuments(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, domain.StatusPending, docs[0].Status)
}

func TestIngestionService_Status(t *testing.T) {
	f := newIngestionFixture(t, newMockEmbeddingService(), nil)
	doc := f.createPending(t, sampleText)

	got, err := f.svc.Status(context.Background(), "alice", doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, got.Status)

	_, err = f.svc.Status(context.Background(), "bob", doc.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"report.pdf", "report.pdf"},
		{"My Report (final).docx", "My_Report_final.docx"},
		{"../../etc/passwd", "passwd"},
		{`C:\Users\bob\notes.txt`, "notes.txt"},
		{".hidden", "hidden"},
		{"", "upload"},
		{"日本語", "upload"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeFilename(tt.in))
		})
	}
}
