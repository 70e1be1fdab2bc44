package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// extractPDF concatenates the plain text of every page. Scanned PDFs with no text layer
// produce an empty string.
func extractPDF(content []byte) (text string, err error) {
	// The pdf reader panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("extract PDF: malformed document: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("extract PDF: %w", err)
	}
	pages := make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("extract PDF: page %d: %w", i, err)
		}
		pages = append(pages, pageText)
	}
	return strings.Join(pages, "\n"), nil
}
