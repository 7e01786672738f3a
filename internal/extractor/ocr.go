package extractor

import (
	"context"
	"fmt"
	"image/png"
	"os"
	"path/filepath"

	"github.com/gen2brain/go-fitz"
	"github.com/otiai10/gosseract/v2"
)

// tesseractOCR rasterizes a single PDF page with MuPDF and recognizes it with
// Tesseract. The rendered page image lives in a temporary directory that is
// removed before the call returns, success or not.
type tesseractOCR struct {
	languages []string
}

func newTesseractOCR(languages ...string) *tesseractOCR {
	return &tesseractOCR{languages: languages}
}

func (t *tesseractOCR) RecognizePage(ctx context.Context, path string, page int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	doc, err := fitz.New(path)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF for rasterization: %w", err)
	}
	defer doc.Close()

	img, err := doc.Image(page)
	if err != nil {
		return "", fmt.Errorf("failed to rasterize page %d: %w", page+1, err)
	}

	tmpDir, err := os.MkdirTemp("", "pdfocr")
	if err != nil {
		return "", fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	imgPath := filepath.Join(tmpDir, fmt.Sprintf("page-%d.png", page+1))
	out, err := os.Create(imgPath)
	if err != nil {
		return "", fmt.Errorf("failed to create page image: %w", err)
	}
	if err := png.Encode(out, img); err != nil {
		out.Close()
		return "", fmt.Errorf("failed to encode page image: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("failed to write page image: %w", err)
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(t.languages...); err != nil {
		return "", fmt.Errorf("failed to configure OCR languages: %w", err)
	}
	if err := client.SetImage(imgPath); err != nil {
		return "", fmt.Errorf("failed to load page image for OCR: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("OCR failed for page %d: %w", page+1, err)
	}
	return text, nil
}
