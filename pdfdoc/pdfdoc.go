// Package pdfdoc wraps PDF validation and plain-text extraction for the
// monthly report scrapers.
package pdfdoc

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"
)

var pdfMagic = []byte("%PDF-")

// IsPDF reports whether data starts with the PDF magic header. Portals
// sometimes serve an HTML error page from a .pdf link.
func IsPDF(data []byte) bool {
	return len(data) >= len(pdfMagic) && bytes.Equal(data[:len(pdfMagic)], pdfMagic)
}

// ExtractText returns the concatenated plain text of every page. Layout is
// not preserved; downstream extraction works on label-anchored patterns, not
// positions.
func ExtractText(data []byte) (string, error) {
	if !IsPDF(data) {
		return "", fmt.Errorf("not a PDF document")
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	textReader, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}

	text, err := io.ReadAll(textReader)
	if err != nil {
		return "", fmt.Errorf("read text: %w", err)
	}
	return string(text), nil
}
