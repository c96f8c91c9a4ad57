package postprocessors

import (
	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/postprocessors/chunker"
	"github.com/custodia-labs/docrag/internal/postprocessors/cleaner"
)

// NewDefault builds the standard clean-then-chunk pipeline.
// Invalid chunking settings fail with domain.ErrConfiguration.
func NewDefault(cfg domain.ChunkingSettings) (*Pipeline, error) {
	c, err := chunker.New(
		chunker.WithChunkSize(cfg.Size),
		chunker.WithOverlap(cfg.Overlap),
	)
	if err != nil {
		return nil, err
	}

	return NewPipeline(c, cleaner.New()), nil
}
