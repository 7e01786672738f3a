// Package extractor turns a PDF file into an ordered sequence of per-page
// plain-text strings. Pages without an embedded text layer are rasterized and
// run through OCR; a page that fails OCR degrades to an empty string rather
// than aborting the document.
package extractor

import (
	"context"
	"regexp"
	"strings"

	log "github.com/sirupsen/logrus"
)

// PageReader extracts the embedded text layer of a PDF, one string per page.
type PageReader interface {
	ReadPages(path string) ([]string, error)
}

// PageOCR recognizes the text of a single rasterized page (zero-based).
type PageOCR interface {
	RecognizePage(ctx context.Context, path string, page int) (string, error)
}

// Extractor composes a text-layer reader with an OCR fallback.
type Extractor struct {
	reader PageReader
	ocr    PageOCR
}

// New returns an extractor backed by the PDF text layer and a Tesseract OCR
// engine configured for English and Arabic.
func New() *Extractor {
	return NewWith(pdfPageReader{}, newTesseractOCR("eng", "ara"))
}

// NewWith builds an extractor from explicit collaborators.
func NewWith(reader PageReader, ocr PageOCR) *Extractor {
	return &Extractor{reader: reader, ocr: ocr}
}

// ExtractPages returns one whitespace-normalized string per page. Pages whose
// text layer is empty are OCR'd; OCR failures leave that page empty and do
// not affect the remaining pages.
func (e *Extractor) ExtractPages(ctx context.Context, path string) ([]string, error) {
	pages, err := e.reader.ReadPages(path)
	if err != nil {
		return nil, err
	}

	for i := range pages {
		pages[i] = normalizeWhitespace(pages[i])
	}

	for i := range pages {
		if pages[i] != "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := e.ocr.RecognizePage(ctx, path, i)
		if err != nil {
			log.Warnf("OCR failed for page %d of %s: %v", i+1, path, err)
			continue
		}
		pages[i] = normalizeWhitespace(text)
	}

	return pages, nil
}

var spaceRe = regexp.MustCompile(`\s+`)

// normalizeWhitespace collapses all runs of whitespace, newlines included,
// into single spaces and trims the result.
func normalizeWhitespace(text string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(text, " "))
}
