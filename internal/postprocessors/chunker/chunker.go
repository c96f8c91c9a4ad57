// Package chunker splits cleaned text into overlapping, sentence-aware chunks.
package chunker

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

// snapWindow is the fraction of the chunk size, measured back from the
// nominal end, that is searched for a sentence terminator.
const snapWindow = 0.2

// Chunker splits text into windows of roughly chunkSize characters.
// Offsets and sizes are counted in runes, not bytes.
type Chunker struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker.
type Option func(*Chunker)

// WithChunkSize sets the window length in characters.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		c.chunkSize = size
	}
}

// WithOverlap sets the number of characters shared by adjacent chunks.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		c.overlap = overlap
	}
}

// New creates a chunker. It returns domain.ErrConfiguration when the
// window could not make forward progress.
func New(opts ...Option) (*Chunker, error) {
	c := &Chunker{
		chunkSize: domain.DefaultChunkSize,
		overlap:   domain.DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(c)
	}

	cfg := domain.ChunkingSettings{Size: c.chunkSize, Overlap: c.overlap}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("chunker: %w", err)
	}

	return c, nil
}

// Name returns the processor name.
func (c *Chunker) Name() string {
	return "chunker"
}

// ChunkSize returns the configured window length.
func (c *Chunker) ChunkSize() int {
	return c.chunkSize
}

// Overlap returns the configured overlap.
func (c *Chunker) Overlap() int {
	return c.overlap
}

// Chunk splits text into drafts with contiguous indices starting at zero.
//
// Text no longer than the chunk size is returned as a single chunk. Longer
// text is walked in windows; when a '.', '!' or '?' falls in the last fifth
// of a window the window ends just after it. Each chunk's text is trimmed but
// CharStart and CharEnd describe the untrimmed window, so consecutive
// windows always cover the whole input. Whitespace-only windows are skipped.
func (c *Chunker) Chunk(text string) []domain.ChunkDraft {
	if text == "" {
		return nil
	}

	runes := []rune(text)
	n := len(runes)

	if n <= c.chunkSize {
		return []domain.ChunkDraft{{
			Index:      0,
			Text:       text,
			CharStart:  0,
			CharEnd:    n,
			TokenCount: EstimateTokens(text),
		}}
	}

	drafts := make([]domain.ChunkDraft, 0, n/(c.chunkSize-c.overlap)+1)
	searchBack := int(float64(c.chunkSize) * snapWindow)

	for start := 0; start < n; {
		end := start + c.chunkSize

		if end < n {
			searchStart := end - searchBack
			if pos := lastTerminator(runes, searchStart, end); pos > searchStart {
				end = pos + 1
			}
		}

		stop := min(end, n)
		if trimmed := strings.TrimSpace(string(runes[start:stop])); trimmed != "" {
			drafts = append(drafts, domain.ChunkDraft{
				Index:      len(drafts),
				Text:       trimmed,
				CharStart:  start,
				CharEnd:    stop,
				TokenCount: EstimateTokens(trimmed),
			})
		}

		// Advance from the unclamped end so the tail of the text is
		// revisited exactly as the window arithmetic dictates.
		next := end - c.overlap
		if next <= start {
			next = end
		}
		start = next
	}

	return drafts
}

// EstimateTokens approximates the token count as one token per four characters.
func EstimateTokens(text string) int {
	return utf8.RuneCountInString(text) / 4
}

// lastTerminator returns the position of the last sentence terminator in
// runes[from:to], or -1 when there is none.
func lastTerminator(runes []rune, from, to int) int {
	for i := to - 1; i >= from; i-- {
		switch runes[i] {
		case '.', '!', '?':
			return i
		}
	}
	return -1
}
