package domain

// Supported content types.
const (
	MIMETypePDF       = "application/pdf"
	MIMETypeDOCX      = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MIMETypePlainText = "text/plain"
	MIMETypeMarkdown  = "text/markdown"
	MIMETypeHTML      = "text/html"
	MIMETypeXLSX      = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// RawDocument represents opaque bytes awaiting extraction.
type RawDocument struct {
	// Name is the file name, used for logging and type detection.
	Name string

	// MIMEType is the declared content type (e.g., "application/pdf").
	MIMEType string

	// Content is the raw bytes.
	Content []byte
}

// UploadRequest carries a new document into the ingestion pipeline.
type UploadRequest struct {
	// OwnerID is the uploading user.
	OwnerID string

	// Filename is the client-supplied file name.
	Filename string

	// ContentType is the declared MIME type. Empty means detect.
	ContentType string

	// Content is the file body.
	Content []byte
}
