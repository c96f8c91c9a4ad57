// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - Extractor / ExtractorRegistry: Turn raw bytes into normalised text
//   - TextPipeline: Clean and chunk extracted text
//   - DocumentStore / ChunkStore: Document and chunk persistence (SQLite)
//   - FileStore: Raw upload persistence
//   - TaskExecutor: Background processing with a completion signal
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - EmbeddingService: Generates vector embeddings. Without it, search
//     returns no results and ingestion fails with ErrEmbeddingUnavailable.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, extractor, or postprocessor package
package driven
