// Package embedding turns text into fixed-length vectors by calling an
// external embedding service.
package embedding

import "context"

// Embedder converts a text string into its embedding vector. The model
// identifier is fixed at construction so every vector produced by one
// instance lives in the same vector space.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
