package mcp

import (
	"context"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driving"
)

const testOwner = "alice"

// mockSearchService is a mock implementation of driving.SearchService.
type mockSearchService struct {
	results []domain.ScoredChunk
	err     error

	gotOwner string
	gotQuery string
	gotOpts  domain.SearchOptions
}

func (m *mockSearchService) Search(
	_ context.Context,
	ownerID, query string,
	opts domain.SearchOptions,
) ([]domain.ScoredChunk, error) {
	m.gotOwner = ownerID
	m.gotQuery = query
	m.gotOpts = opts
	return m.results, m.err
}

// mockDocumentService is a mock implementation of driving.DocumentService.
type mockDocumentService struct {
	documents []domain.Document
	document  *domain.Document
	chunks    []domain.Chunk
	err       error

	gotOwner string
	gotID    string
}

func (m *mockDocumentService) List(_ context.Context, ownerID string) ([]domain.Document, error) {
	m.gotOwner = ownerID
	return m.documents, m.err
}

func (m *mockDocumentService) Get(_ context.Context, ownerID, documentID string) (*domain.Document, error) {
	m.gotOwner, m.gotID = ownerID, documentID
	return m.document, m.err
}

func (m *mockDocumentService) Chunks(_ context.Context, ownerID, documentID string) ([]domain.Chunk, error) {
	m.gotOwner, m.gotID = ownerID, documentID
	return m.chunks, m.err
}

func (m *mockDocumentService) Delete(_ context.Context, _, _ string) error {
	return m.err
}

// mockIngestionService is a mock implementation of driving.IngestionService.
// Upload reports procErr on the Done channel immediately.
type mockIngestionService struct {
	document  *domain.Document
	final     *domain.Document
	uploadErr error
	procErr   error
	hold      bool

	gotRequest domain.UploadRequest
}

func (m *mockIngestionService) Upload(_ context.Context, req domain.UploadRequest) (*driving.UploadResult, error) {
	m.gotRequest = req
	if m.uploadErr != nil {
		return nil, m.uploadErr
	}
	done := make(chan error, 1)
	if !m.hold {
		done <- m.procErr
		close(done)
	}
	return &driving.UploadResult{Document: m.document, Done: done}, nil
}

func (m *mockIngestionService) Process(_ context.Context, _ string) error {
	return m.procErr
}

func (m *mockIngestionService) Status(_ context.Context, _, _ string) (*domain.Document, error) {
	if m.final == nil {
		return nil, domain.ErrNotFound
	}
	return m.final, nil
}
