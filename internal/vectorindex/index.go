// Package vectorindex stores (vector, text) records for one document corpus
// and answers k-nearest-neighbor queries by cosine similarity. Backends are
// interchangeable: an exact in-memory scan, a Qdrant collection, or a
// Postgres table with pgvector.
package vectorindex

import (
	"context"

	"pdf-rag-chat/internal/models"
)

// Index is the vector store contract. A rebuild is Reset followed by Insert;
// Reset drops every record of the previous corpus, so no query ever sees a
// mix of old and new chunks.
type Index interface {
	// Reset drops all records and declares the active vector dimension.
	// Idempotent.
	Reset(ctx context.Context, dimension int) error

	// Insert adds chunks to the corpus, assigning each a fresh unique id.
	// Every vector must match the declared dimension or the call fails with
	// models.ErrDimensionMismatch, leaving prior records untouched.
	Insert(ctx context.Context, chunks []models.Chunk) error

	// Search returns up to topK records ordered by descending cosine
	// similarity to the query vector, ties broken by insertion order.
	Search(ctx context.Context, vector []float32, topK int) ([]models.SearchResult, error)
}
