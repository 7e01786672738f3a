// Package rag composes extraction, chunking, embedding and the vector index
// into the two core operations: building a knowledge base from a PDF and
// retrieving ranked context for a query.
package rag

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"pdf-rag-chat/internal/chunker"
	"pdf-rag-chat/internal/embedding"
	"pdf-rag-chat/internal/models"
	"pdf-rag-chat/internal/vectorindex"
)

const (
	// DefaultTopK is the number of context chunks retrieved per query.
	DefaultTopK = 3
	// DefaultConcurrency bounds the embedding fan-out during a build.
	DefaultConcurrency = 3
)

// PageExtractor produces one plain-text string per PDF page.
type PageExtractor interface {
	ExtractPages(ctx context.Context, path string) ([]string, error)
}

// Pipeline owns one vector index and serializes builds against it. Queries
// may run concurrently against a stable index, never against an in-flight
// rebuild.
type Pipeline struct {
	extractor   PageExtractor
	chunker     *chunker.Chunker
	embedder    embedding.Embedder
	index       vectorindex.Index
	concurrency int

	buildMu sync.Mutex
}

// New wires a pipeline. Concurrency <= 0 falls back to DefaultConcurrency.
func New(ex PageExtractor, ch *chunker.Chunker, emb embedding.Embedder, idx vectorindex.Index, concurrency int) *Pipeline {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Pipeline{
		extractor:   ex,
		chunker:     ch,
		embedder:    emb,
		index:       idx,
		concurrency: concurrency,
	}
}

// BuildIndex extracts the document, chunks it, embeds every chunk and
// replaces the index corpus. It returns the number of chunks indexed.
//
// All embeddings are computed before the index is touched: any embedding
// failure aborts the whole build and leaves the previous corpus serving
// queries. Chunk order is page order then offset order, and each worker
// writes its vector back to the originating chunk's slot, so completion
// order never reshuffles the pairing.
func (p *Pipeline) BuildIndex(ctx context.Context, path string) (int, error) {
	p.buildMu.Lock()
	defer p.buildMu.Unlock()

	start := time.Now()
	pages, err := p.extractor.ExtractPages(ctx, path)
	if err != nil {
		return 0, err
	}

	texts := p.chunker.Split(pages)
	if len(texts) == 0 {
		return 0, models.ErrEmptyDocument
	}
	log.Infof("extracted %d pages into %d chunks from %s", len(pages), len(texts), path)

	chunks := make([]models.Chunk, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, text := range texts {
		g.Go(func() error {
			vec, err := p.embedder.Embed(gctx, text)
			if err != nil {
				return fmt.Errorf("chunk %d: %w", i, err)
			}
			chunks[i] = models.Chunk{Text: text, Vector: vec}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	dimension := len(chunks[0].Vector)
	if err := p.index.Reset(ctx, dimension); err != nil {
		return 0, fmt.Errorf("failed to reset index: %w", err)
	}
	if err := p.index.Insert(ctx, chunks); err != nil {
		return 0, fmt.Errorf("failed to populate index: %w", err)
	}

	log.Infof("indexed %d chunks (dimension %d) in %v", len(chunks), dimension, time.Since(start).Round(time.Millisecond))
	return len(chunks), nil
}

// Retrieve embeds the query, searches the index for the topK most similar
// chunks and joins their texts, ranked order, separated by blank lines.
// Querying an empty or never-built corpus fails with models.ErrNoIndexBuilt.
func (p *Pipeline) Retrieve(ctx context.Context, query string, topK int) (string, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}
	vec, err := p.embedder.Embed(ctx, query)
	if err != nil {
		return "", err
	}
	results, err := p.index.Search(ctx, vec, topK)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return "", models.ErrNoIndexBuilt
	}
	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Record.Text
	}
	return strings.Join(texts, "\n\n"), nil
}
