package domain

// DefaultTopK is the number of results returned when a caller does not
// ask for a specific count.
const DefaultTopK = 5

// SearchOptions configures a similarity search.
type SearchOptions struct {
	// TopK is the maximum number of results. Zero or negative returns none.
	TopK int

	// DocumentIDs restricts the search to these documents.
	// Empty means all documents owned by the caller.
	DocumentIDs []string
}

// ScoredChunk is a chunk ranked against a query.
type ScoredChunk struct {
	ChunkID    string  `json:"id"`
	DocumentID string  `json:"document_id"`
	ChunkIndex int     `json:"chunk_index"`
	Text       string  `json:"text"`
	CharStart  int     `json:"char_start"`
	CharEnd    int     `json:"char_end"`
	TokenCount int     `json:"token_count"`
	Similarity float64 `json:"similarity"`
}

// NewScoredChunk enriches a chunk with its similarity score.
func NewScoredChunk(c Chunk, similarity float64) ScoredChunk {
	return ScoredChunk{
		ChunkID:    c.ID,
		DocumentID: c.DocumentID,
		ChunkIndex: c.Index,
		Text:       c.Text,
		CharStart:  c.CharStart,
		CharEnd:    c.CharEnd,
		TokenCount: c.TokenCount,
		Similarity: similarity,
	}
}
