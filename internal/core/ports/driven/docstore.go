package driven

import (
	"context"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

// DocumentStore persists document rows.
type DocumentStore interface {
	// CreateDocument stores a new document.
	CreateDocument(ctx context.Context, doc *domain.Document) error

	// GetDocument retrieves a document by ID.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// UpdateDocument overwrites the mutable lifecycle fields of a document.
	UpdateDocument(ctx context.Context, doc *domain.Document) error

	// ListDocuments returns documents owned by ownerID, oldest first.
	ListDocuments(ctx context.Context, ownerID string) ([]domain.Document, error)

	// DeleteDocument removes a document and its chunks.
	DeleteDocument(ctx context.Context, id string) error
}

// ChunkStore persists chunks and answers owner-scoped candidate queries.
// Access control is enforced here: no chunk is returned unless its
// parent document belongs to the requesting owner.
type ChunkStore interface {
	// SaveChunks replaces the chunks of a document in one transaction.
	// Either every chunk is stored or none is.
	SaveChunks(ctx context.Context, documentID string, chunks []domain.Chunk) ([]domain.Chunk, error)

	// LoadChunksForOwner returns embedded chunks of documents owned by
	// ownerID, optionally limited to documentIDs, in a stable order.
	LoadChunksForOwner(ctx context.Context, ownerID string, documentIDs []string) ([]domain.Chunk, error)

	// GetChunks returns every chunk of a document ordered by index.
	GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// CountEmbeddedChunks returns how many chunks of a document have an embedding.
	CountEmbeddedChunks(ctx context.Context, documentID string) (int, error)

	// DeleteChunksForDocument removes all chunks of a document.
	DeleteChunksForDocument(ctx context.Context, documentID string) error
}

// FileStore persists raw uploaded bytes.
type FileStore interface {
	// Save writes content for ownerID and returns its location.
	Save(ctx context.Context, ownerID, filename string, content []byte) (string, error)

	// Read returns the bytes stored at location.
	Read(ctx context.Context, location string) ([]byte, error)

	// Delete removes the bytes at location. Missing files are not an error.
	Delete(ctx context.Context, location string) error
}
