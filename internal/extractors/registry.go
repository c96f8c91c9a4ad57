package extractors

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
	"github.com/custodia-labs/docrag/internal/extractors/docx"
	"github.com/custodia-labs/docrag/internal/extractors/html"
	"github.com/custodia-labs/docrag/internal/extractors/pdf"
	"github.com/custodia-labs/docrag/internal/extractors/plaintext"
	"github.com/custodia-labs/docrag/internal/extractors/xlsx"
)

// Ensure Registry implements the interface.
var _ driven.ExtractorRegistry = (*Registry)(nil)

// Registry maps MIME types to extractors.
type Registry struct {
	mu         sync.RWMutex
	extractors map[string]driven.Extractor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		extractors: make(map[string]driven.Extractor),
	}
}

// NewDefaultRegistry creates a registry with every built-in extractor registered.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(pdf.New())
	r.Register(docx.New())
	r.Register(html.New())
	r.Register(xlsx.New())
	r.Register(plaintext.New())
	return r
}

// Register adds an extractor for each MIME type it supports.
// A later registration for the same type replaces the earlier one.
func (r *Registry) Register(extractor driven.Extractor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, mimeType := range extractor.SupportedMIMETypes() {
		r.extractors[mimeType] = extractor
	}
}

// Supports reports whether mimeType has a registered extractor.
func (r *Registry) Supports(mimeType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.extractors[baseMIMEType(mimeType)]
	return ok
}

// SupportedMIMETypes returns all registered MIME types, sorted.
func (r *Registry) SupportedMIMETypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.extractors))
	for t := range r.extractors {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Extract dispatches raw to the extractor registered for its MIME type.
func (r *Registry) Extract(ctx context.Context, raw *domain.RawDocument) (string, error) {
	if raw == nil {
		return "", fmt.Errorf("%w: %w: nil document", domain.ErrExtraction, domain.ErrInvalidInput)
	}

	mimeType := baseMIMEType(raw.MIMEType)

	r.mu.RLock()
	extractor, ok := r.extractors[mimeType]
	r.mu.RUnlock()

	if !ok {
		return "", fmt.Errorf("%w: %w: %q", domain.ErrExtraction, domain.ErrUnsupportedType, raw.MIMEType)
	}

	return extractor.Extract(ctx, raw)
}

// extensionTypes maps file extensions to the MIME types they imply.
var extensionTypes = map[string]string{
	".pdf":      domain.MIMETypePDF,
	".docx":     domain.MIMETypeDOCX,
	".xlsx":     domain.MIMETypeXLSX,
	".txt":      domain.MIMETypePlainText,
	".text":     domain.MIMETypePlainText,
	".md":       domain.MIMETypeMarkdown,
	".markdown": domain.MIMETypeMarkdown,
	".html":     domain.MIMETypeHTML,
	".htm":      domain.MIMETypeHTML,
}

// DetectContentType resolves the MIME type of an upload from its filename,
// falling back to sniffing the first bytes of content. Parameters such as
// charset are dropped. The result is not checked against any registry.
func DetectContentType(filename string, head []byte) string {
	if t, ok := extensionTypes[strings.ToLower(filepath.Ext(filename))]; ok {
		return t
	}

	sniffed := baseMIMEType(http.DetectContentType(head))
	if sniffed == "application/zip" {
		if t := officeType(head); t != "" {
			return t
		}
	}
	return sniffed
}

// officeType guesses the Office Open XML type from the member names in a
// zip header. Packages that only show [Content_Types].xml are taken to be
// word-processing documents.
func officeType(head []byte) string {
	s := string(head)
	switch {
	case strings.Contains(s, "word/"):
		return domain.MIMETypeDOCX
	case strings.Contains(s, "xl/"):
		return domain.MIMETypeXLSX
	case strings.Contains(s, "[Content_Types].xml"):
		return domain.MIMETypeDOCX
	default:
		return ""
	}
}

// baseMIMEType strips parameters and normalises case.
func baseMIMEType(contentType string) string {
	if contentType == "" {
		return ""
	}
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		return mediaType
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}
