package driven

import (
	"context"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

// TextPipeline normalises extracted text and splits it into chunk drafts.
type TextPipeline interface {
	// Process returns the cleaned text and the drafts cut from it.
	// Draft offsets index into the cleaned text.
	Process(ctx context.Context, text string) (string, []domain.ChunkDraft, error)
}
