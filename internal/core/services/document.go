package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
	"github.com/custodia-labs/docrag/internal/core/ports/driving"
	"github.com/custodia-labs/docrag/internal/logger"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

// DocumentService manages an owner's documents.
type DocumentService struct {
	docStore   driven.DocumentStore
	chunkStore driven.ChunkStore
	fileStore  driven.FileStore
}

// NewDocumentService creates a new document service.
// The fileStore parameter is optional; without it raw files are left in place on delete.
func NewDocumentService(
	docStore driven.DocumentStore,
	chunkStore driven.ChunkStore,
	fileStore driven.FileStore,
) *DocumentService {
	return &DocumentService{
		docStore:   docStore,
		chunkStore: chunkStore,
		fileStore:  fileStore,
	}
}

// List returns all documents owned by ownerID.
func (s *DocumentService) List(ctx context.Context, ownerID string) ([]domain.Document, error) {
	docs, err := s.docStore.ListDocuments(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []domain.Document{}
	}
	return docs, nil
}

// Get retrieves a document by ID.
// Documents of other owners are reported as not found.
func (s *DocumentService) Get(ctx context.Context, ownerID, documentID string) (*domain.Document, error) {
	doc, err := s.docStore.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.OwnerID != ownerID {
		logger.Debug("Document %s requested by non-owner %s", documentID, ownerID)
		return nil, domain.ErrNotFound
	}
	return doc, nil
}

// Chunks returns the chunks of a document ordered by index.
func (s *DocumentService) Chunks(ctx context.Context, ownerID, documentID string) ([]domain.Chunk, error) {
	if _, err := s.Get(ctx, ownerID, documentID); err != nil {
		return nil, err
	}
	chunks, err := s.chunkStore.GetChunks(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if chunks == nil {
		chunks = []domain.Chunk{}
	}
	return chunks, nil
}

// Delete removes a document, its chunks and its raw file.
// A raw file that cannot be removed is logged; the document is already gone.
func (s *DocumentService) Delete(ctx context.Context, ownerID, documentID string) error {
	doc, err := s.Get(ctx, ownerID, documentID)
	if err != nil {
		return err
	}

	if err := s.docStore.DeleteDocument(ctx, documentID); err != nil {
		return fmt.Errorf("delete document %s: %w", documentID, err)
	}
	logger.Info("Deleted document %s (%s)", documentID, doc.OriginalFilename)

	if s.fileStore != nil && doc.Location != "" {
		if err := s.fileStore.Delete(ctx, doc.Location); err != nil {
			logger.Warn("Failed to remove raw file for document %s: %v", documentID, err)
		}
	}
	return nil
}
