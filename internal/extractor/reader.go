package extractor

import (
	"fmt"

	"github.com/ledongthuc/pdf"
	log "github.com/sirupsen/logrus"
)

// pdfPageReader reads the embedded text layer page by page.
type pdfPageReader struct{}

func (pdfPageReader) ReadPages(path string) ([]string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF %s: %w", path, err)
	}
	defer f.Close()

	numPages := r.NumPage()
	pages := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			// Page-local failure, the OCR fallback gets a chance at it.
			log.Warnf("text extraction failed for page %d of %s: %v", i, path, err)
			pages = append(pages, "")
			continue
		}
		pages = append(pages, text)
	}
	return pages, nil
}
