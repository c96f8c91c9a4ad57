package driven

import "context"

// EmbeddingService generates vector embeddings from text.
// This is an optional service - when nil, ingestion and search are disabled.
//
// Documents and queries are embedded separately: some providers produce
// asymmetric embeddings tuned for indexing or for retrieval, and adapters
// must pass that intent through rather than collapse it.
//
// Implementations may include:
//   - Voyage AI (voyage-3)
//   - OpenAI (text-embedding-3-small, text-embedding-3-large)
//   - Ollama (nomic-embed-text, all-minilm)
type EmbeddingService interface {
	// EmbedDocument generates a vector for text that will be stored.
	EmbedDocument(ctx context.Context, text string) ([]float32, error)

	// EmbedDocuments generates one vector per input, in input order.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery generates a vector for a search query.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding vector size (e.g., 768, 1024, 1536).
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
