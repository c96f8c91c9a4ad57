package pdf

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

// buildPDF assembles a minimal single-font PDF with one page per entry in
// pages. Each page draws its string with a single Tj operator.
func buildPDF(pages ...string) []byte {
	var objects []string

	pageCount := len(pages)
	fontObj := 3 + 2*pageCount

	kids := ""
	for i := range pages {
		kids += fmt.Sprintf("%d 0 R ", 3+2*i)
	}

	objects = append(objects,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, pageCount),
	)
	for i, text := range pages {
		stream := fmt.Sprintf("BT /F1 12 Tf 72 712 Td (%s) Tj ET", text)
		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] "+
				"/Resources << /Font << /F1 %d 0 R >> >> /Contents %d 0 R >>", fontObj, 4+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream),
		)
	}
	objects = append(objects,
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)

	return buf.Bytes()
}

func TestNew(t *testing.T) {
	e := New()
	require.NotNil(t, e)
	assert.IsType(t, &Extractor{}, e)
}

func TestSupportedMIMETypes(t *testing.T) {
	assert.Equal(t, []string{"application/pdf"}, New().SupportedMIMETypes())
}

func TestExtract_Pages(t *testing.T) {
	raw := &domain.RawDocument{
		Name:     "report.pdf",
		MIMEType: domain.MIMETypePDF,
		Content:  buildPDF("First page", "Second page"),
	}

	text, err := New().Extract(context.Background(), raw)

	require.NoError(t, err)
	assert.Contains(t, text, "First page")
	assert.Contains(t, text, "Second page")
	assert.Less(t, bytes.Index([]byte(text), []byte("First")), bytes.Index([]byte(text), []byte("Second")))
}

func TestExtract_NilOrEmpty(t *testing.T) {
	e := New()

	_, err := e.Extract(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrExtraction)

	_, err = e.Extract(context.Background(), &domain.RawDocument{Name: "empty.pdf"})
	assert.ErrorIs(t, err, domain.ErrExtraction)
}

func TestExtract_NotAPDF(t *testing.T) {
	raw := &domain.RawDocument{
		Name:     "fake.pdf",
		MIMEType: domain.MIMETypePDF,
		Content:  []byte("this is definitely not a pdf file"),
	}

	text, err := New().Extract(context.Background(), raw)

	assert.ErrorIs(t, err, domain.ErrExtraction)
	assert.Empty(t, text)
}

func TestExtract_Truncated(t *testing.T) {
	full := buildPDF("Some text")
	raw := &domain.RawDocument{
		Name:     "cut.pdf",
		MIMEType: domain.MIMETypePDF,
		Content:  full[:len(full)/2],
	}

	_, err := New().Extract(context.Background(), raw)

	assert.ErrorIs(t, err, domain.ErrExtraction)
}
