// Package cleaner normalises extracted text before it is chunked.
package cleaner

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	lineEndings     = strings.NewReplacer("\r\n", "\n", "\r", "\n")
	horizontalSpace = regexp.MustCompile(`[ \t]+`)
	blankLines      = regexp.MustCompile(`\n\s*\n`)
)

// Processor applies Clean as a named pipeline stage.
type Processor struct{}

// New creates a cleaning stage.
func New() *Processor {
	return &Processor{}
}

// Name returns the stage name.
func (p *Processor) Name() string {
	return "cleaner"
}

// Apply cleans text.
func (p *Processor) Apply(text string) string {
	return Clean(text)
}

// Clean normalises whitespace and strips invisible characters.
//
// Zero-width characters go first so that removing them can never join two
// whitespace runs that a later step would have collapsed. Clean is
// idempotent: Clean(Clean(s)) == Clean(s).
func Clean(text string) string {
	if text == "" {
		return ""
	}
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, string(utf8.RuneError))
	}

	text = strings.Map(dropZeroWidth, text)
	text = lineEndings.Replace(text)
	text = horizontalSpace.ReplaceAllString(text, " ")
	text = blankLines.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}

func dropZeroWidth(r rune) rune {
	switch r {
	case '\u200b', '\u200c', '\u200d', '\ufeff':
		return -1
	}
	return r
}
