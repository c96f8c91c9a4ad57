// Package xlsx extracts cell text from Excel workbooks.
package xlsx

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor handles XLSX workbooks.
type Extractor struct{}

// New creates a new XLSX extractor.
func New() *Extractor {
	return &Extractor{}
}

// SupportedMIMETypes returns the MIME types this extractor handles.
func (e *Extractor) SupportedMIMETypes() []string {
	return []string{domain.MIMETypeXLSX}
}

// Extract renders each sheet as a "Sheet: <name>" line followed by its
// non-empty rows, cells separated by tabs. Sheets without data are skipped
// and sheets are separated by a blank line.
func (e *Extractor) Extract(_ context.Context, raw *domain.RawDocument) (string, error) {
	if raw == nil || len(raw.Content) == 0 {
		return "", fmt.Errorf("%w: empty xlsx", domain.ErrExtraction)
	}

	f, err := excelize.OpenReader(bytes.NewReader(raw.Content))
	if err != nil {
		return "", fmt.Errorf("%w: open xlsx: %w", domain.ErrExtraction, err)
	}
	defer func() { _ = f.Close() }()

	var sheets []string
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("%w: read sheet %q: %w", domain.ErrExtraction, sheet, err)
		}

		lines := rowLines(rows)
		if len(lines) == 0 {
			continue
		}
		sheets = append(sheets, "Sheet: "+sheet+"\n"+strings.Join(lines, "\n"))
	}

	return strings.Join(sheets, "\n\n"), nil
}

// rowLines joins each row's cells with tabs, dropping trailing empty cells
// and rows that hold no text.
func rowLines(rows [][]string) []string {
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		end := len(row)
		for end > 0 && strings.TrimSpace(row[end-1]) == "" {
			end--
		}
		if end == 0 {
			continue
		}

		cells := make([]string, end)
		for i, cell := range row[:end] {
			cells[i] = strings.TrimSpace(cell)
		}
		lines = append(lines, strings.Join(cells, "\t"))
	}
	return lines
}
