package driving

import (
	"context"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

// SearchService provides similarity search to external actors.
type SearchService interface {
	// Search ranks the owner's embedded chunks against query.
	// An empty result is not an error.
	Search(ctx context.Context, ownerID, query string, opts domain.SearchOptions) ([]domain.ScoredChunk, error)
}
