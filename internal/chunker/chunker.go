// Package chunker splits per-page document text into fixed-size overlapping
// windows, the retrieval unit of the index.
package chunker

import (
	"fmt"

	"pdf-rag-chat/internal/models"
)

const (
	DefaultChunkSize = 1000
	DefaultOverlap   = 100
)

// Chunker emits character windows of Size with Overlap characters shared
// between consecutive windows of the same page.
type Chunker struct {
	size    int
	overlap int
}

// New validates the window geometry. Overlap must be strictly smaller than
// size, otherwise the window start would never advance.
func New(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, &models.ConfigurationError{
			Field:  "chunk size",
			Reason: fmt.Sprintf("must be positive, got %d", size),
		}
	}
	if overlap < 0 {
		return nil, &models.ConfigurationError{
			Field:  "chunk overlap",
			Reason: fmt.Sprintf("must not be negative, got %d", overlap),
		}
	}
	if overlap >= size {
		return nil, &models.ConfigurationError{
			Field:  "chunk overlap",
			Reason: fmt.Sprintf("%d must be smaller than chunk size %d", overlap, size),
		}
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Size returns the configured window size in characters.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the configured overlap in characters.
func (c *Chunker) Overlap() int { return c.overlap }

// Split chunks each page in order. Windows are measured in runes, not bytes,
// so multibyte text (Arabic pages in particular) never gets cut mid-character.
// A page shorter than the window yields one chunk equal to the whole page; an
// empty page yields none. Chunk order is page order, then offset order within
// the page.
func (c *Chunker) Split(pages []string) []string {
	var chunks []string
	step := c.size - c.overlap
	for _, page := range pages {
		runes := []rune(page)
		for start := 0; start < len(runes); start += step {
			end := start + c.size
			if end >= len(runes) {
				chunks = append(chunks, string(runes[start:]))
				break
			}
			chunks = append(chunks, string(runes[start:end]))
		}
	}
	return chunks
}
