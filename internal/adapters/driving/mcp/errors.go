// Package mcp provides an MCP (Model Context Protocol) server adapter for docrag.
// It lets AI assistants retrieve ranked chunks from a user's documents.
package mcp

import "errors"

// ErrMissingSearchService is returned when the search service is not provided.
var ErrMissingSearchService = errors.New("mcp: search service is required")

// ErrMissingOwner is returned when no owner is configured for the session.
var ErrMissingOwner = errors.New("mcp: owner id is required")
