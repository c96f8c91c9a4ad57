// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
//   - IngestionService: upload, then extract, clean, chunk, embed and persist
//   - SearchService: owner-scoped brute-force cosine similarity ranking
//   - DocumentService: listing, inspection and deletion of documents
//   - SettingsService: configuration keys mapped onto domain.AppSettings
//
// Services are pure Go with no CGO.
package services
