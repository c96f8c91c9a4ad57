package driven

import (
	"context"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

// Extractor turns the raw bytes of one document format into text.
// Output is trimmed per logical unit (page, paragraph) and newline-joined;
// cleaning and chunking happen later.
type Extractor interface {
	// SupportedMIMETypes returns the MIME types this extractor handles.
	SupportedMIMETypes() []string

	// Extract returns the document text.
	// Failures wrap domain.ErrExtraction.
	Extract(ctx context.Context, raw *domain.RawDocument) (string, error)
}

// ExtractorRegistry dispatches a raw document to the extractor for its
// declared content type.
type ExtractorRegistry interface {
	// Extract uses the extractor registered for raw.MIMEType.
	// Unsupported types fail with an error wrapping both
	// domain.ErrExtraction and domain.ErrUnsupportedType.
	Extract(ctx context.Context, raw *domain.RawDocument) (string, error)

	// Register adds an extractor to the registry.
	Register(extractor Extractor)

	// Supports reports whether mimeType has a registered extractor.
	Supports(mimeType string) bool

	// SupportedMIMETypes returns all MIME types that can be extracted.
	SupportedMIMETypes() []string
}
