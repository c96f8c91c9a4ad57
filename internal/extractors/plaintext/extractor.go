// Package plaintext reads UTF-8 text documents.
package plaintext

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

const byteOrderMark = "\ufeff"

// Extractor handles plain text and Markdown documents. Markdown is kept
// verbatim; its syntax carries little weight in an embedding.
type Extractor struct{}

// New creates a new plain text extractor.
func New() *Extractor {
	return &Extractor{}
}

// SupportedMIMETypes returns the MIME types this extractor handles.
func (e *Extractor) SupportedMIMETypes() []string {
	return []string{domain.MIMETypePlainText, domain.MIMETypeMarkdown}
}

// Extract decodes the content as UTF-8 and trims it.
func (e *Extractor) Extract(_ context.Context, raw *domain.RawDocument) (string, error) {
	if raw == nil {
		return "", fmt.Errorf("%w: %w: nil document", domain.ErrExtraction, domain.ErrInvalidInput)
	}

	if !utf8.Valid(raw.Content) {
		return "", fmt.Errorf("%w: %s is not valid UTF-8", domain.ErrExtraction, raw.Name)
	}

	text := strings.TrimPrefix(string(raw.Content), byteOrderMark)
	return strings.TrimSpace(text), nil
}
