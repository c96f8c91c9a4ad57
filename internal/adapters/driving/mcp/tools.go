package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query       string   `json:"query" jsonschema:"the natural language query to match passages against"`
	TopK        int      `json:"top_k,omitempty" jsonschema:"maximum number of passages to return (default 5)"`
	DocumentIDs []string `json:"document_ids,omitempty" jsonschema:"restrict the search to these document ids"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []domain.ScoredChunk `json:"results"`
	Count   int                  `json:"count"`
}

// ListDocumentsInput is the (empty) input schema for the list_documents tool.
type ListDocumentsInput struct{}

// ListDocumentsOutput is the output schema for the list_documents tool.
type ListDocumentsOutput struct {
	Documents []DocumentInfo `json:"documents"`
	Count     int            `json:"count"`
}

// DocumentInfo is the assistant-facing view of a document.
type DocumentInfo struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	Status      string `json:"status"`
	Error       string `json:"error,omitempty"`
	UploadedAt  string `json:"uploaded_at"`
	ProcessedAt string `json:"processed_at,omitempty"`
}

// AddDocumentInput is the input schema for the add_document tool.
type AddDocumentInput struct {
	Filename string `json:"filename" jsonschema:"name for the new document, e.g. notes.md"`
	Content  string `json:"content" jsonschema:"plain text or markdown body of the document"`
}

// AddDocumentOutput is the output schema for the add_document tool.
type AddDocumentOutput struct {
	Document DocumentInfo `json:"document"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Retrieve the passages from the user's documents most similar to a query",
	}, s.handleSearch)

	if s.ports.Document != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "list_documents",
			Description: "List the user's uploaded documents and their processing status",
		}, s.handleListDocuments)
	}

	if s.ports.Ingestion != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "add_document",
			Description: "Add a text document to the user's library and index it for search",
		}, s.handleAddDocument)
	}
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	topK := input.TopK
	if topK <= 0 {
		topK = domain.DefaultTopK
	}

	opts := domain.SearchOptions{TopK: topK, DocumentIDs: input.DocumentIDs}
	results, err := s.ports.Search.Search(ctx, s.ports.OwnerID, input.Query, opts)
	if err != nil {
		return nil, SearchOutput{}, toolError(err)
	}
	if results == nil {
		results = []domain.ScoredChunk{}
	}

	return nil, SearchOutput{Results: results, Count: len(results)}, nil
}

// handleListDocuments handles the list_documents tool invocation.
func (s *Server) handleListDocuments(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ListDocumentsInput,
) (*mcp.CallToolResult, ListDocumentsOutput, error) {
	docs, err := s.ports.Document.List(ctx, s.ports.OwnerID)
	if err != nil {
		return nil, ListDocumentsOutput{}, toolError(err)
	}

	output := ListDocumentsOutput{
		Documents: make([]DocumentInfo, len(docs)),
		Count:     len(docs),
	}
	for i := range docs {
		output.Documents[i] = newDocumentInfo(&docs[i])
	}
	return nil, output, nil
}

// handleAddDocument uploads the text and waits for processing so the
// assistant can search it immediately.
func (s *Server) handleAddDocument(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AddDocumentInput,
) (*mcp.CallToolResult, AddDocumentOutput, error) {
	result, err := s.ports.Ingestion.Upload(ctx, domain.UploadRequest{
		OwnerID:     s.ports.OwnerID,
		Filename:    input.Filename,
		ContentType: "text/plain",
		Content:     []byte(input.Content),
	})
	if err != nil {
		return nil, AddDocumentOutput{}, toolError(err)
	}

	doc := result.Document
	select {
	case procErr := <-result.Done:
		if procErr != nil {
			return nil, AddDocumentOutput{}, toolError(procErr)
		}
	case <-ctx.Done():
		// Processing continues in the background.
		return nil, AddDocumentOutput{Document: newDocumentInfo(doc)}, nil
	}

	if latest, err := s.ports.Ingestion.Status(ctx, s.ports.OwnerID, doc.ID); err == nil {
		doc = latest
	}
	return nil, AddDocumentOutput{Document: newDocumentInfo(doc)}, nil
}

func newDocumentInfo(doc *domain.Document) DocumentInfo {
	info := DocumentInfo{
		ID:          doc.ID,
		Filename:    doc.OriginalFilename,
		ContentType: doc.ContentType,
		Size:        doc.Size,
		Status:      doc.Status.String(),
		Error:       doc.Error,
		UploadedAt:  doc.UploadedAt.Format(timeLayout),
	}
	if doc.ProcessedAt != nil {
		info.ProcessedAt = doc.ProcessedAt.Format(timeLayout)
	}
	return info
}

// toolError rewrites internal failures into messages an assistant can act on.
func toolError(err error) error {
	switch {
	case errors.Is(err, domain.ErrEmbeddingUnavailable):
		return fmt.Errorf("no embedding provider is configured; run `docrag settings set embedding.provider ...`: %w", err)
	case errors.Is(err, domain.ErrNotFound):
		return fmt.Errorf("document not found: %w", err)
	default:
		return err
	}
}
