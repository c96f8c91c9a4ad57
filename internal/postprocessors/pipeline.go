// Package postprocessors turns extracted document text into chunk drafts.
package postprocessors

import (
	"context"
	"errors"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
)

// Ensure Pipeline implements the interface.
var _ driven.TextPipeline = (*Pipeline)(nil)

// Stage rewrites text before it is chunked.
type Stage interface {
	Name() string
	Apply(text string) string
}

// Splitter cuts text into chunk drafts.
type Splitter interface {
	Name() string
	Chunk(text string) []domain.ChunkDraft
}

// Pipeline runs text through its stages in order and then splits it.
type Pipeline struct {
	stages   []Stage
	splitter Splitter
}

// NewPipeline creates a pipeline that splits with splitter after running
// stages in the order provided.
func NewPipeline(splitter Splitter, stages ...Stage) *Pipeline {
	return &Pipeline{
		stages:   stages,
		splitter: splitter,
	}
}

// Process returns the staged text and the drafts cut from it.
func (p *Pipeline) Process(ctx context.Context, text string) (string, []domain.ChunkDraft, error) {
	if p.splitter == nil {
		return "", nil, errors.New("pipeline has no splitter")
	}

	for _, stage := range p.stages {
		if err := ctx.Err(); err != nil {
			return "", nil, err
		}
		text = stage.Apply(text)
	}

	if err := ctx.Err(); err != nil {
		return "", nil, err
	}

	return text, p.splitter.Chunk(text), nil
}

// Add appends a stage to the pipeline.
func (p *Pipeline) Add(stage Stage) {
	p.stages = append(p.stages, stage)
}

// Len returns the number of stages in the pipeline.
func (p *Pipeline) Len() int {
	return len(p.stages)
}
