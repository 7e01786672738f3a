// Command indexer builds the vector database from a PDF without running the
// HTTP server. Useful for preloading a Qdrant or pgvector backend before the
// service starts.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"pdf-rag-chat/internal/chunker"
	"pdf-rag-chat/internal/config"
	"pdf-rag-chat/internal/embedding"
	"pdf-rag-chat/internal/extractor"
	"pdf-rag-chat/internal/rag"
	"pdf-rag-chat/internal/vectorindex"
)

func main() {
	pdfPath := flag.String("pdf", "", "path to the PDF to index (required)")
	configPath := flag.String("config", "", "path to YAML config file")
	chunkSize := flag.Int("chunk-size", 0, "override configured chunk size")
	overlap := flag.Int("overlap", -1, "override configured chunk overlap")
	query := flag.String("query", "", "optional test query to run after indexing")
	flag.Parse()

	if *pdfPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("could not load .env: %v", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if *chunkSize > 0 {
		cfg.Pipeline.ChunkSize = *chunkSize
	}
	if *overlap >= 0 {
		cfg.Pipeline.Overlap = *overlap
	}
	if cfg.Index.Type == "" || cfg.Index.Type == "memory" {
		log.Println("warning: memory index is process-local, the built index is discarded on exit")
	}

	ctx := context.Background()

	embedder, err := newEmbedder(cfg.Embedder)
	if err != nil {
		log.Fatalf("embedder: %v", err)
	}
	index, err := newIndex(ctx, cfg.Index)
	if err != nil {
		log.Fatalf("index: %v", err)
	}
	ch, err := chunker.New(cfg.Pipeline.ChunkSize, cfg.Pipeline.Overlap)
	if err != nil {
		log.Fatalf("chunker: %v", err)
	}

	pipeline := rag.New(extractor.New(), ch, embedder, index, cfg.Pipeline.Concurrency)

	start := time.Now()
	count, err := pipeline.BuildIndex(ctx, *pdfPath)
	if err != nil {
		log.Fatalf("failed to build index from %s: %v", *pdfPath, err)
	}
	log.Printf("indexed %d chunks from %s in %v", count, *pdfPath, time.Since(start).Round(time.Millisecond))

	if *query != "" {
		contextStr, err := pipeline.Retrieve(ctx, *query, cfg.Pipeline.TopK)
		if err != nil {
			log.Fatalf("test query failed: %v", err)
		}
		fmt.Printf("--- context for %q ---\n%s\n", *query, contextStr)
	}
}

func newEmbedder(cfg config.EmbedderConfig) (embedding.Embedder, error) {
	switch cfg.Type {
	case "", "openai":
		return embedding.NewOpenAI(embedding.OpenAIConfig{
			BaseURL: cfg.BaseURL,
			APIKey:  config.FromEnv(cfg.APIKeyEnv),
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		}), nil
	case "ollama":
		return embedding.NewOllama(cfg.BaseURL, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown embedder type %q", cfg.Type)
	}
}

func newIndex(ctx context.Context, cfg config.IndexConfig) (vectorindex.Index, error) {
	switch cfg.Type {
	case "", "memory":
		return vectorindex.NewMemory(), nil
	case "qdrant":
		return vectorindex.NewQdrant(vectorindex.QdrantConfig{
			URL:        cfg.Qdrant.BaseURL,
			APIKey:     config.FromEnv(cfg.Qdrant.APIKeyEnv),
			Collection: cfg.Qdrant.Collection,
		}), nil
	case "postgres":
		connStr := config.FromEnv(cfg.Postgres.URLEnv)
		if connStr == "" {
			return nil, fmt.Errorf("postgres index selected but %s is not set", cfg.Postgres.URLEnv)
		}
		return vectorindex.NewPostgres(ctx, connStr)
	default:
		return nil, fmt.Errorf("unknown index type %q", cfg.Type)
	}
}
