package driving

import (
	"context"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

// DocumentService manages an owner's documents.
// Every method returns domain.ErrNotFound for documents of other owners.
type DocumentService interface {
	// List returns all documents owned by ownerID.
	List(ctx context.Context, ownerID string) ([]domain.Document, error)

	// Get retrieves a document by ID.
	Get(ctx context.Context, ownerID, documentID string) (*domain.Document, error)

	// Chunks returns the chunks of a document ordered by index.
	Chunks(ctx context.Context, ownerID, documentID string) ([]domain.Chunk, error)

	// Delete removes a document, its chunks and its raw file.
	Delete(ctx context.Context, ownerID, documentID string) error
}
