package domain

import "errors"

// Domain errors represent business logic failures.
// Adapters wrap infrastructure errors with one of these using %w so
// callers can classify failures with errors.Is.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates a content type no extractor handles.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrExtraction indicates a document could not be read or parsed.
	ErrExtraction = errors.New("extraction failed")

	// ErrEmbeddingProvider indicates a transport or provider-side failure,
	// including a batch response of the wrong size.
	ErrEmbeddingProvider = errors.New("embedding provider error")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	// Ingestion and semantic search are disabled without embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrPersistence indicates the store is unavailable or rejected a write.
	ErrPersistence = errors.New("persistence error")

	// ErrConfiguration indicates invalid settings, such as an overlap that
	// is not smaller than the chunk size or mixed embedding dimensions.
	ErrConfiguration = errors.New("configuration error")

	// ErrIngestionInProgress indicates the document is already being processed.
	ErrIngestionInProgress = errors.New("ingestion in progress")

	// ErrInvalidTransition indicates a status change the lifecycle forbids.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrTooLarge indicates an upload exceeds the configured size limit.
	ErrTooLarge = errors.New("file too large")
)
