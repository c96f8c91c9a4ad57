// Package sqlite provides a SQLite-based implementation of the document and
// chunk store ports.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. A single database connection pool
// backs both interfaces:
//
//   - DocumentStore: document rows and their lifecycle status
//   - ChunkStore: chunks, embeddings and owner-scoped candidate loading
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.docrag/data/docrag.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
