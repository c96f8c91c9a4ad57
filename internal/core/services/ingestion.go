package services

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
	"github.com/custodia-labs/docrag/internal/core/ports/driving"
	"github.com/custodia-labs/docrag/internal/logger"
)

// Ensure IngestionService implements the interface.
var _ driving.IngestionService = (*IngestionService)(nil)

// ContentTypeDetector guesses a MIME type from a file name and leading bytes.
type ContentTypeDetector func(filename string, head []byte) string

// IngestionOption configures an IngestionService.
type IngestionOption func(*IngestionService)

// WithMaxUploadBytes rejects uploads larger than n bytes.
func WithMaxUploadBytes(n int64) IngestionOption {
	return func(s *IngestionService) {
		if n > 0 {
			s.maxUploadBytes = n
		}
	}
}

// WithContentTypeDetector sets the detector used when an upload has no
// usable declared type.
func WithContentTypeDetector(d ContentTypeDetector) IngestionOption {
	return func(s *IngestionService) {
		s.detect = d
	}
}

// IngestionService drives documents from upload to searchable chunks.
// It is the only writer of document status.
type IngestionService struct {
	docStore         driven.DocumentStore
	chunkStore       driven.ChunkStore
	fileStore        driven.FileStore
	extractors       driven.ExtractorRegistry
	pipeline         driven.TextPipeline
	embeddingService driven.EmbeddingService
	executor         driven.TaskExecutor

	maxUploadBytes int64
	detect         ContentTypeDetector
	now            func() time.Time

	// In-flight documents of this process.
	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewIngestionService creates a new ingestion orchestrator.
// The embeddingService is optional - if nil, documents with text fail
// with domain.ErrEmbeddingUnavailable.
func NewIngestionService(
	docStore driven.DocumentStore,
	chunkStore driven.ChunkStore,
	fileStore driven.FileStore,
	extractors driven.ExtractorRegistry,
	pipeline driven.TextPipeline,
	embeddingService driven.EmbeddingService,
	executor driven.TaskExecutor,
	opts ...IngestionOption,
) *IngestionService {
	s := &IngestionService{
		docStore:         docStore,
		chunkStore:       chunkStore,
		fileStore:        fileStore,
		extractors:       extractors,
		pipeline:         pipeline,
		embeddingService: embeddingService,
		executor:         executor,
		maxUploadBytes:   domain.DefaultMaxUploadBytes,
		now:              time.Now,
		inFlight:         make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Upload validates the file, stores its bytes, creates the pending document
// and schedules processing.
func (s *IngestionService) Upload(ctx context.Context, req domain.UploadRequest) (*driving.UploadResult, error) {
	if strings.TrimSpace(req.OwnerID) == "" {
		return nil, fmt.Errorf("%w: owner is required", domain.ErrInvalidInput)
	}
	if len(req.Content) == 0 {
		return nil, fmt.Errorf("%w: empty file", domain.ErrInvalidInput)
	}
	if int64(len(req.Content)) > s.maxUploadBytes {
		return nil, fmt.Errorf("%w: %d bytes exceeds limit of %d", domain.ErrTooLarge, len(req.Content), s.maxUploadBytes)
	}

	original := SanitizeFilename(req.Filename)
	contentType := s.resolveContentType(original, req.ContentType, req.Content)
	if !s.extractors.Supports(contentType) {
		return nil, fmt.Errorf("%w: %q (supported: %s)", domain.ErrUnsupportedType,
			contentType, strings.Join(s.extractors.SupportedMIMETypes(), ", "))
	}

	location, err := s.fileStore.Save(ctx, req.OwnerID, original, req.Content)
	if err != nil {
		return nil, fmt.Errorf("store file: %w", err)
	}

	doc := &domain.Document{
		ID:               uuid.New().String(),
		OwnerID:          req.OwnerID,
		Filename:         path.Base(filepath.ToSlash(location)),
		OriginalFilename: original,
		Location:         location,
		Size:             int64(len(req.Content)),
		ContentType:      contentType,
		Status:           domain.StatusPending,
		UploadedAt:       s.now().UTC(),
	}
	if err := s.docStore.CreateDocument(ctx, doc); err != nil {
		if delErr := s.fileStore.Delete(context.WithoutCancel(ctx), location); delErr != nil {
			logger.Warn("Failed to remove orphaned upload %s: %v", location, delErr)
		}
		return nil, fmt.Errorf("create document: %w", err)
	}
	logger.Info("Uploaded %s as document %s (%s, %d bytes)", original, doc.ID, contentType, doc.Size)

	documentID := doc.ID
	done, err := s.executor.Submit(ctx, "ingest "+documentID, func(taskCtx context.Context) error {
		err := s.Process(taskCtx, documentID)
		if err != nil {
			logger.Error("Processing document %s failed: %v", documentID, err)
		}
		return err
	})
	if err != nil {
		// The row stays pending; Process can be triggered again later.
		return nil, fmt.Errorf("schedule processing: %w", err)
	}

	return &driving.UploadResult{Document: doc, Done: done}, nil
}

// Process runs a pending document through
// extract -> clean -> chunk -> embed -> persist.
// Failures after the document enters processing are recorded on it.
func (s *IngestionService) Process(ctx context.Context, documentID string) error {
	if !s.acquire(documentID) {
		return fmt.Errorf("%w: document %s", domain.ErrIngestionInProgress, documentID)
	}
	defer s.release(documentID)

	doc, err := s.docStore.GetDocument(ctx, documentID)
	if err != nil {
		return fmt.Errorf("get document: %w", err)
	}
	switch {
	case doc.Status == domain.StatusProcessing:
		return fmt.Errorf("%w: document %s", domain.ErrIngestionInProgress, documentID)
	case !doc.Status.CanTransitionTo(domain.StatusProcessing):
		return fmt.Errorf("%w: document %s is %s", domain.ErrInvalidTransition, documentID, doc.Status)
	}

	logger.Section("Ingest " + documentID)
	doc.Status = domain.StatusProcessing
	if err := s.docStore.UpdateDocument(ctx, doc); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}

	count, err := s.ingest(ctx, doc)
	if err != nil {
		s.markFailed(ctx, doc, err)
		return err
	}

	processedAt := s.now().UTC()
	doc.Status = domain.StatusCompleted
	doc.Error = ""
	doc.ProcessedAt = &processedAt
	if err := s.docStore.UpdateDocument(context.WithoutCancel(ctx), doc); err != nil {
		err = fmt.Errorf("mark completed: %w", err)
		// The chunks are already committed; a failed document must not be searchable.
		if delErr := s.chunkStore.DeleteChunksForDocument(context.WithoutCancel(ctx), documentID); delErr != nil {
			logger.Error("Failed to remove chunks of document %s: %v", documentID, delErr)
		}
		s.markFailed(ctx, doc, err)
		return err
	}

	logger.Info("Document %s completed with %d chunks", documentID, count)
	return nil
}

// Status returns the current state of an owner's document.
func (s *IngestionService) Status(ctx context.Context, ownerID, documentID string) (*domain.Document, error) {
	doc, err := s.docStore.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.OwnerID != ownerID {
		return nil, domain.ErrNotFound
	}
	return doc, nil
}

// ingest performs the pipeline stages and returns the number of chunks saved.
func (s *IngestionService) ingest(ctx context.Context, doc *domain.Document) (int, error) {
	content, err := s.fileStore.Read(ctx, doc.Location)
	if err != nil {
		return 0, fmt.Errorf("read file: %w", err)
	}
	logger.Debug("Read %d bytes from %s", len(content), doc.Location)

	text, err := s.extractors.Extract(ctx, &domain.RawDocument{
		Name:     doc.OriginalFilename,
		MIMEType: doc.ContentType,
		Content:  content,
	})
	if err != nil {
		return 0, err
	}
	logger.Debug("Extracted %d characters", len([]rune(text)))

	cleaned, drafts, err := s.pipeline.Process(ctx, text)
	if err != nil {
		return 0, fmt.Errorf("chunk text: %w", err)
	}
	logger.Debug("Cleaned to %d characters, %d chunks", len([]rune(cleaned)), len(drafts))

	if len(drafts) == 0 {
		logger.Info("Document %s has no text; completing without chunks", doc.ID)
		if _, err := s.chunkStore.SaveChunks(ctx, doc.ID, nil); err != nil {
			return 0, fmt.Errorf("save chunks: %w", err)
		}
		return 0, nil
	}

	if s.embeddingService == nil {
		return 0, domain.ErrEmbeddingUnavailable
	}

	texts := make([]string, len(drafts))
	for i, d := range drafts {
		texts[i] = d.Text
	}
	vectors, err := s.embeddingService.EmbedDocuments(ctx, texts)
	if err != nil {
		if errors.Is(err, domain.ErrEmbeddingProvider) {
			return 0, fmt.Errorf("embed chunks: %w", err)
		}
		return 0, fmt.Errorf("%w: embed chunks: %w", domain.ErrEmbeddingProvider, err)
	}
	if len(vectors) != len(drafts) {
		return 0, fmt.Errorf("%w: got %d embeddings for %d chunks",
			domain.ErrEmbeddingProvider, len(vectors), len(drafts))
	}
	logger.Debug("Embedded %d chunks with %s", len(vectors), s.embeddingService.ModelName())

	chunks := make([]domain.Chunk, len(drafts))
	for i, d := range drafts {
		chunks[i] = d.ToChunk(doc.ID, vectors[i])
	}

	saved, err := s.chunkStore.SaveChunks(ctx, doc.ID, chunks)
	if err != nil {
		return 0, fmt.Errorf("save chunks: %w", err)
	}
	return len(saved), nil
}

// markFailed records cause on the document. The write survives
// cancellation of ctx so an aborted request still leaves a final status.
func (s *IngestionService) markFailed(ctx context.Context, doc *domain.Document, cause error) {
	logger.Warn("Document %s failed: %v", doc.ID, cause)

	doc.Status = domain.StatusFailed
	doc.Error = cause.Error()
	doc.ProcessedAt = nil
	if err := s.docStore.UpdateDocument(context.WithoutCancel(ctx), doc); err != nil {
		logger.Error("Failed to record failure of document %s: %v", doc.ID, err)
	}
}

func (s *IngestionService) acquire(documentID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[documentID]; busy {
		return false
	}
	s.inFlight[documentID] = struct{}{}
	return true
}

func (s *IngestionService) release(documentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, documentID)
}

// resolveContentType prefers the declared type and falls back to detection
// when it is missing or generic.
func (s *IngestionService) resolveContentType(filename, declared string, content []byte) string {
	if mediaType, _, err := mime.ParseMediaType(declared); err == nil &&
		mediaType != "application/octet-stream" {
		return strings.ToLower(mediaType)
	}
	if s.detect == nil {
		return ""
	}
	head := content
	if len(head) > 512 {
		head = head[:512]
	}
	return s.detect(filename, head)
}

// SanitizeFilename reduces a client-supplied name to a safe base name made
// of letters, digits, dot, dash and underscore.
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	clean := strings.Trim(b.String(), "._")
	if clean == "" {
		return "upload"
	}
	return clean
}
