package driving

import (
	"context"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

// UploadResult is returned once the document row and raw file are persisted.
type UploadResult struct {
	// Document is the pending document.
	Document *domain.Document

	// Done receives the processing outcome once and is then closed.
	// A nil value means the document completed.
	Done <-chan error
}

// IngestionService accepts uploads and drives documents through the
// pending -> processing -> completed|failed lifecycle.
type IngestionService interface {
	// Upload stores the file, creates a pending document and schedules processing.
	Upload(ctx context.Context, req domain.UploadRequest) (*UploadResult, error)

	// Process runs extraction, chunking, embedding and persistence for a
	// pending document. Failures are recorded on the document and returned.
	Process(ctx context.Context, documentID string) error

	// Status returns the current state of an owner's document.
	Status(ctx context.Context, ownerID, documentID string) (*domain.Document, error)
}
