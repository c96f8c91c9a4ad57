package domain

import (
	"fmt"
	"time"
)

// DocumentStatus is the processing lifecycle state of a document.
type DocumentStatus string

// Document lifecycle states.
const (
	// StatusPending is the state of a freshly uploaded document.
	StatusPending DocumentStatus = "pending"

	// StatusProcessing means ingestion is running.
	StatusProcessing DocumentStatus = "processing"

	// StatusCompleted means chunks and embeddings were persisted.
	StatusCompleted DocumentStatus = "completed"

	// StatusFailed means ingestion stopped; Error holds the reason.
	StatusFailed DocumentStatus = "failed"
)

// IsValid returns true if the status is recognised.
func (s DocumentStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal returns true for completed and failed.
func (s DocumentStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransitionTo reports whether the state machine allows moving to next.
func (s DocumentStatus) CanTransitionTo(next DocumentStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusProcessing
	case StatusProcessing:
		return next == StatusCompleted || next == StatusFailed
	default:
		return false
	}
}

// String returns the string representation.
func (s DocumentStatus) String() string {
	return string(s)
}

// Document represents an uploaded file owned by a single user.
// Only the ingestion orchestrator mutates its status fields.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// OwnerID is the user that uploaded the document.
	OwnerID string

	// Filename is the generated name the raw bytes are stored under.
	Filename string

	// OriginalFilename is the sanitised name supplied at upload.
	OriginalFilename string

	// Location is where the raw bytes live in the file store.
	Location string

	// Size is the raw content length in bytes.
	Size int64

	// ContentType is the declared (or detected) MIME type.
	ContentType string

	// Status is the processing state.
	Status DocumentStatus

	// Error holds the failure message when Status is failed.
	Error string

	// ProcessedAt is set when processing completes.
	ProcessedAt *time.Time

	// UploadedAt is when the document row was created.
	UploadedAt time.Time
}

// Chunk represents a searchable unit within a document.
// Chunks are created in bulk once per document and never modified.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// Index is the 0-based ordinal position within the document.
	Index int

	// Text is the trimmed chunk content.
	Text string

	// CharStart is the untrimmed start offset into the cleaned text.
	CharStart int

	// CharEnd is the exclusive end offset into the cleaned text.
	CharEnd int

	// TokenCount is the estimated number of tokens in Text.
	TokenCount int

	// Embedding is the vector representation; nil until embedded.
	Embedding []float32

	// CreatedAt is when the chunk was persisted.
	CreatedAt time.Time
}

// ChunkDraft is a chunk produced by the chunker before ids and
// embeddings are attached.
type ChunkDraft struct {
	Index      int
	Text       string
	CharStart  int
	CharEnd    int
	TokenCount int
}

// ToChunk builds a Chunk for documentID carrying the given embedding.
func (d ChunkDraft) ToChunk(documentID string, embedding []float32) Chunk {
	return Chunk{
		DocumentID: documentID,
		Index:      d.Index,
		Text:       d.Text,
		CharStart:  d.CharStart,
		CharEnd:    d.CharEnd,
		TokenCount: d.TokenCount,
		Embedding:  embedding,
	}
}

// EmbeddingDimension returns the length shared by every embedded chunk, or 0
// when no chunk carries an embedding. Vectors of different lengths cannot be
// compared, so a mixed batch fails with ErrConfiguration.
func EmbeddingDimension(chunks []Chunk) (int, error) {
	dim := 0
	for _, c := range chunks {
		if c.Embedding == nil {
			continue
		}
		switch {
		case dim == 0:
			dim = len(c.Embedding)
		case len(c.Embedding) != dim:
			return 0, fmt.Errorf("%w: chunk %d has %d-dimensional embedding, expected %d",
				ErrConfiguration, c.Index, len(c.Embedding), dim)
		}
	}
	return dim, nil
}
