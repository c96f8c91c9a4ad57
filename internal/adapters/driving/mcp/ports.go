package mcp

import (
	"github.com/custodia-labs/docrag/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Search provides similarity search.
	Search driving.SearchService

	// Document lists and reads the owner's documents.
	Document driving.DocumentService

	// Ingestion accepts text added by the assistant. Optional.
	Ingestion driving.IngestionService

	// OwnerID scopes every call. An MCP session acts as a single user.
	OwnerID string
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Search == nil {
		return ErrMissingSearchService
	}
	if p.OwnerID == "" {
		return ErrMissingOwner
	}
	// Document and Ingestion are optional
	return nil
}
